package storage

import (
	log "github.com/sirupsen/logrus"

	"weread-agent/pkg/config"
)

// Init 按配置连接 MySQL 和 Redis，未启用的组件保持为 nil
func Init() error {
	if config.GetMysqlConf().Enabled {
		if err := initMysql(); err != nil {
			return err
		}
	} else {
		log.Info("mysql disabled, query history will not be persisted")
	}

	if config.GetRedisConf().Enabled {
		if err := initRedis(); err != nil {
			return err
		}
	} else {
		log.Info("redis disabled, using in-process cache and static cookie")
	}
	return nil
}

// Close 释放连接，进程退出前调用
func Close() {
	if DB != nil {
		if sqlDb, err := DB.DB(); err == nil {
			_ = sqlDb.Close()
		}
	}
	if RDB != nil {
		_ = RDB.Close()
	}
}
