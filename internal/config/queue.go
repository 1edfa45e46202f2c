package config

import "errors"

type QueueConfig struct {
	Url           string `mapstructure:"url"`
	QueueUser     string `mapstructure:"queue-user"`
	QueuePassword string `mapstructure:"queue-password"`
	// ExchangeName is the topic exchange settlement events are published to.
	ExchangeName string `mapstructure:"exchange-name"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.Url == "" {
		return errors.New("queue url is required")
	}
	if cfg.ExchangeName == "" {
		return errors.New("queue exchange-name is required")
	}
	return nil
}
