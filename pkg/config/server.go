package config

import "time"

var serverConf Server

type Server struct {
	Addr     string `mapstructure:"addr"`
	RunMode  string `mapstructure:"runMode"`
	LogLevel string `mapstructure:"logLevel"`
	LogFile  string `mapstructure:"logFile"`

	// 单个客户端每分钟允许发起的搜索次数
	SearchPerMinute int           `mapstructure:"searchPerMinute"`
	TaskRetention   time.Duration `mapstructure:"taskRetention"`

	OtelEnabled  bool   `mapstructure:"otelEnabled"`
	OtelEndpoint string `mapstructure:"otelEndpoint"`
}

func GetServerConf() Server {
	return serverConf
}

func GetRunMode() string {
	return serverConf.RunMode
}
