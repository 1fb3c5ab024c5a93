package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"weread-agent/pkg/config"
)

var (
	RDB  *redis.Client
	Sync *redsync.Redsync
)

func initRedis() error {
	if RDB != nil {
		return nil
	}
	conf := config.GetRedisConf()
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		log.Errorf("redis connect fail:%s", err.Error())
		return fmt.Errorf("connect redis %s: %w", conf.Addr, err)
	}

	RDB = client
	Sync = redsync.New(goredis.NewPool(client))
	log.Info("redis connection success")
	return nil
}
