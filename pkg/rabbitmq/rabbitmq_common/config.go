package rabbitmq_common

import (
	"fmt"
	"strings"
)

// Config is the part of every publisher/consumer config shared across the package.
type Config struct {
	URL string
}

// Validate checks the base settings.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("rabbitmq: URL is required")
	}
	if !strings.HasPrefix(c.URL, "amqp://") && !strings.HasPrefix(c.URL, "amqps://") {
		return fmt.Errorf("rabbitmq: URL must use the amqp:// or amqps:// scheme")
	}
	return nil
}
