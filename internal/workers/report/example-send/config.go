// internal/workers/report/example-send/config.go
package examplesend

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
	Subject       string        `mapstructure:"subject"`
	Body          string        `mapstructure:"body"`
	// ExampleFile is the static report attached to every example mail.
	ExampleFile string `mapstructure:"example_file"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
	}
}

// LoadConfig builds the worker config, reading the body template file.
func LoadConfig(wc config.WorkerConfig, ec config.EmailConfig, rc config.ReportConfig) (*Config, error) {
	body, err := email.LoadBodyTemplate(ec.ExampleBodyTemplate)
	if err != nil {
		return nil, err
	}
	return &Config{
		Enabled:       wc.Enabled,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
		Subject:       ec.ExampleSubject,
		Body:          body,
		ExampleFile:   rc.ExampleFile,
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
	if c.ExampleFile == "" {
		return fmt.Errorf("example_file is required")
	}
	return nil
}
