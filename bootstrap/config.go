package bootstrap

import "github.com/kbukum/voicenotes/config"

// Config is satisfied by any config struct embedding config.ServiceConfig:
//
//	type AppConfig struct {
//	    config.ServiceConfig `mapstructure:",squash"`
//	    Server server.Config `mapstructure:"server"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
