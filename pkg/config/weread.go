package config

import "time"

var wereadConf Weread

// Weread 微信读书 AI 问书接口配置
type Weread struct {
	QueryURL        string        `mapstructure:"queryURL"`
	LivenessURL     string        `mapstructure:"livenessURL"`
	Cookie          string        `mapstructure:"cookie"`
	UserAgent       string        `mapstructure:"userAgent"`
	APIVersion      int           `mapstructure:"apiVersion"`
	AuthExpiredCode int           `mapstructure:"authExpiredCode"`
	RequestInterval time.Duration `mapstructure:"requestInterval"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

func GetWereadConf() Weread {
	return wereadConf
}
