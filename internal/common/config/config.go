// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig               `mapstructure:"app"`
	Camunda    CamundaConfig           `mapstructure:"camunda"`
	Database   DatabaseConfig          `mapstructure:"database"`
	Workers    map[string]WorkerConfig `mapstructure:"workers"`
	Gateway    GatewayConfig           `mapstructure:"gateway"`
	Report     ReportConfig            `mapstructure:"report"`
	Email      EmailConfig             `mapstructure:"email"`
	Validation ValidationConfig        `mapstructure:"validation"`
	AWS        AWSConfig               `mapstructure:"aws"`
	Logging    LoggingConfig           `mapstructure:"logging"`
	Metrics    MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the cross-process generation lease. The lease is
// off unless Enabled is set.
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	LeaseTTL  int    `mapstructure:"lease_ttl"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Report pipeline ---

// GatewayConfig points at the data and email endpoints.
type GatewayConfig struct {
	DataURL  string `mapstructure:"data_url"`
	EmailURL string `mapstructure:"email_url"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

type ReportConfig struct {
	CachePath     string `mapstructure:"cache_path"`
	TemplatesPath string `mapstructure:"templates_path"`
	Mask          string `mapstructure:"mask"`
	CacheDisabled bool   `mapstructure:"cache_disabled"`
	Template      string `mapstructure:"template"`
	Locale        string `mapstructure:"locale"`
	// SubDatasets maps a renderer sub-dataset name to a dotted path in the
	// merged document.
	SubDatasets       map[string]string `mapstructure:"sub_datasets"`
	ExampleFile       string            `mapstructure:"example_file"`
	GenerationTimeout int               `mapstructure:"generation_timeout"` // milliseconds
}

type EmailConfig struct {
	Provider            string `mapstructure:"provider"`
	SendSubject         string `mapstructure:"send_subject"`
	SendBodyTemplate    string `mapstructure:"send_body_template"`
	ExampleSubject      string `mapstructure:"example_subject"`
	ExampleBodyTemplate string `mapstructure:"example_body_template"`
	ContentType         string `mapstructure:"content_type"`
}

// ValidationConfig overrides the identifying field patterns.
type ValidationConfig struct {
	STS   string `mapstructure:"sts"`
	VIN   string `mapstructure:"vin"`
	GRZ   string `mapstructure:"grz"`
	Email string `mapstructure:"email"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	SES    struct {
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

const (
	EmailProviderGateway = "gateway"
	EmailProviderSES     = "ses"
)
