package services

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"weread-agent/internal/app/repositories"
	"weread-agent/internal/pkg/storage"
	"weread-agent/pkg/config"
)

const probeLockName = "weread:probe"

var initOnce sync.Once

var (
	Poller  *SessionPoller
	History IQueryHistory
	Search  *SearchService
)

// Init 在 config.Init 和 storage.Init 之后调用
func Init() {
	initOnce.Do(func() {
		Poller = NewPollerFromConfig()

		var cache repositories.AnswerCache
		ttl := config.GetRedisConf().CacheTTL
		if storage.RDB != nil {
			cache = repositories.NewRedisAnswerCache(storage.RDB, ttl)
		} else {
			cache = repositories.NewMemoryAnswerCache(ttl)
		}

		if storage.DB != nil {
			History = NewQueryHistoryService()
		}
		Search = NewSearchService(Poller, cache, History)
	})
}

// NewPollerFromConfig 按配置组装传输层、登录态和恢复策略
func NewPollerFromConfig() *SessionPoller {
	conf := config.GetWereadConf()
	transport := NewHTTPTransport(conf.Timeout, conf.UserAgent)

	var credentials CredentialsProvider = StaticCredentials{Cookie: conf.Cookie}
	var opts []RecoveryOption
	if storage.RDB != nil {
		credentials = NewRedisCredentials(storage.RDB, config.GetRedisConf().CookieKey)
		opts = append(opts, WithProbeLocker(NewRedisProbeLocker(storage.Sync, probeLockName, conf.Timeout+5*time.Second)))
		log.Info("weread credentials loaded from redis")
	}

	recovery := NewRecoveryPolicy(transport, credentials, RecoveryConfig{
		QueryURL:        conf.QueryURL,
		LivenessURL:     conf.LivenessURL,
		AuthExpiredCode: conf.AuthExpiredCode,
	}, opts...)
	return NewSessionPoller(recovery, PollerConfig{
		APIVersion:      conf.APIVersion,
		RequestInterval: conf.RequestInterval,
	})
}
