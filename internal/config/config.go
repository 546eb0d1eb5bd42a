package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"sigs.k8s.io/yaml"
)

const redacted = "<redacted>"

type Config struct {
	Qualtrics *qualtricsConfig
	Podio     *podioConfig
	Archive   *archiveConfig
	Metrics   *metricsConfig
	LogLevel  string `envconfig:"PROJECT_SYNC_LOG_LEVEL" default:"info"`
}

type qualtricsConfig struct {
	BaseURL              string        `envconfig:"QUALTRICS_BASE_URL" default:"https://umich.qualtrics.com/API/v3" validate:"required,url"`
	ReportBaseURL        string        `envconfig:"QUALTRICS_REPORT_BASE_URL" default:"https://umich.qualtrics.com/CP/Report.php" validate:"required,url"`
	UserFile             string        `envconfig:"QUALTRICS_USER_FILE" default:""`
	TokenFile            string        `envconfig:"QUALTRICS_TOKEN_FILE" default:""`
	ProjectSurveyID      string        `envconfig:"QUALTRICS_PROJECT_SURVEY_ID" default:"" validate:"required"`
	ConsultationSurveyID string        `envconfig:"QUALTRICS_CONSULTATION_SURVEY_ID" default:"" validate:"required"`
	PollInterval         time.Duration `envconfig:"QUALTRICS_POLL_INTERVAL" default:"5s" validate:"gt=0"`
	PollAttempts         int           `envconfig:"QUALTRICS_POLL_ATTEMPTS" default:"20" validate:"gt=0"`
	PollJitter           time.Duration `envconfig:"QUALTRICS_POLL_JITTER" default:"100ms" validate:"gte=0"`
	RequestTimeout       time.Duration `envconfig:"QUALTRICS_REQUEST_TIMEOUT" default:"60s" validate:"gt=0"`
}

type podioConfig struct {
	BaseURL        string        `envconfig:"PODIO_BASE_URL" default:"https://api.podio.com" validate:"required,url"`
	TokenURL       string        `envconfig:"PODIO_TOKEN_URL" default:"https://podio.com/oauth/token" validate:"required,url"`
	ConfigFile     string        `envconfig:"PODIO_CONFIG_FILE" default:""`
	LoadAttempts   int           `envconfig:"PODIO_LOAD_ATTEMPTS" default:"20" validate:"gt=0"`
	AuthAttempts   int           `envconfig:"PODIO_AUTH_ATTEMPTS" default:"5" validate:"gt=0"`
	RetryDelay     time.Duration `envconfig:"PODIO_RETRY_DELAY" default:"1s" validate:"gt=0"`
	RequestTimeout time.Duration `envconfig:"PODIO_REQUEST_TIMEOUT" default:"60s" validate:"gt=0"`
}

// archiveConfig points at the S3 compatible bucket keeping raw export archives.
// Archiving is disabled when Endpoint is empty.
type archiveConfig struct {
	Endpoint  string `envconfig:"PROJECT_SYNC_ARCHIVE_ENDPOINT" default:""`
	Bucket    string `envconfig:"PROJECT_SYNC_ARCHIVE_BUCKET" default:"project-sync" validate:"required_with=Endpoint"`
	AccessKey string `envconfig:"PROJECT_SYNC_ARCHIVE_ACCESS_KEY" default:"" validate:"required_with=Endpoint"`
	SecretKey string `envconfig:"PROJECT_SYNC_ARCHIVE_SECRET_KEY" default:"" validate:"required_with=Endpoint"`
	UseSSL    bool   `envconfig:"PROJECT_SYNC_ARCHIVE_USE_SSL" default:"true"`
}

type metricsConfig struct {
	PushgatewayURL string `envconfig:"PROJECT_SYNC_PUSHGATEWAY_URL" default:"" validate:"omitempty,url"`
	Job            string `envconfig:"PROJECT_SYNC_METRICS_JOB" default:"project_sync"`
}

// New reads the configuration from the environment and validates it.
// Every failure is returned as a *ConfigurationError.
func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, &ConfigurationError{Source: "environment", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return &ConfigurationError{Source: "environment", Err: err}
	}
	return nil
}

func (c *Config) ArchiveEnabled() bool {
	return c.Archive != nil && c.Archive.Endpoint != ""
}

// String returns the configuration as yaml with the secrets masked.
func (c *Config) String() string {
	cp := *c
	if c.Archive != nil {
		archive := *c.Archive
		if archive.SecretKey != "" {
			archive.SecretKey = redacted
		}
		cp.Archive = &archive
	}
	contents, err := yaml.Marshal(cp)
	if err != nil {
		return "<error>"
	}
	return string(contents)
}
