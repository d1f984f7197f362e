// internal/workers/report/send/config.go
package send

import (
	"fmt"
	"time"

	"vinreport-workers/internal/common/config"
	"vinreport-workers/internal/email"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// Subject and Body are macro templates resolved against the request.
	Subject string `mapstructure:"subject"`
	Body    string `mapstructure:"body"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       150 * time.Second,
	}
}

// LoadConfig builds the worker config, reading the body template file.
func LoadConfig(wc config.WorkerConfig, ec config.EmailConfig) (*Config, error) {
	body, err := email.LoadBodyTemplate(ec.SendBodyTemplate)
	if err != nil {
		return nil, err
	}
	return &Config{
		Enabled:       wc.Enabled,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
		Subject:       ec.SendSubject,
		Body:          body,
	}, nil
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	return nil
}
