package config

import "time"

var redisConf Redis

type Redis struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	CookieKey string        `mapstructure:"cookieKey"` // 共享登录态所在的 key
	CacheTTL  time.Duration `mapstructure:"cacheTTL"`
}

func GetRedisConf() Redis {
	return redisConf
}
