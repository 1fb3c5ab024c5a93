package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DefaultQueryURL        = "https://weread.qq.com/web/ai/query_session_id"
	DefaultLivenessURL     = "https://weread.qq.com"
	DefaultAuthExpiredCode = -2012
	DefaultRequestInterval = 200 * time.Millisecond
	MaxRequestInterval     = time.Minute
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.runMode", "release")
	v.SetDefault("server.logLevel", "info")
	v.SetDefault("server.logFile", "")
	v.SetDefault("server.otelEnabled", false)
	v.SetDefault("server.searchPerMinute", 30)
	v.SetDefault("server.taskRetention", 30*time.Minute)
	v.SetDefault("server.otelEndpoint", "localhost:4318")

	v.SetDefault("weread.queryURL", DefaultQueryURL)
	v.SetDefault("weread.livenessURL", DefaultLivenessURL)
	v.SetDefault("weread.apiVersion", 1)
	v.SetDefault("weread.authExpiredCode", DefaultAuthExpiredCode)
	v.SetDefault("weread.requestInterval", DefaultRequestInterval)
	v.SetDefault("weread.timeout", 30*time.Second)
	v.SetDefault("weread.cookie", "")
	v.SetDefault("weread.userAgent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	// 没有默认值的 key 也要注册，否则 Unmarshal 时读不到对应的环境变量
	v.SetDefault("mysql.enabled", false)
	v.SetDefault("mysql.host", "localhost:3306")
	v.SetDefault("mysql.username", "")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.dbName", "weread")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.cookieKey", "weread:cookie")
	v.SetDefault("redis.cacheTTL", 10*time.Minute)
}

// Init 加载配置文件；path 为空时只使用默认值和环境变量（WEREAD_QUERYURL 之类）。
func Init(path string) error {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using system environment")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return load(v)
}

type root struct {
	Server Server `mapstructure:"server"`
	Weread Weread `mapstructure:"weread"`
	Mysql  Mysql  `mapstructure:"mysql"`
	Redis  Redis  `mapstructure:"redis"`
}

// load 通过 Unmarshal 整体解析，保证环境变量能覆盖嵌套字段
func load(v *viper.Viper) error {
	var c root
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	serverConf = c.Server
	wereadConf = c.Weread
	mysqlConf = c.Mysql
	redisConf = c.Redis
	return nil
}
