package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"phisheye/lexical"
	"phisheye/scoring"
	"phisheye/signals"
)

// Config is the full service configuration. Values come from defaults, then
// the YAML file, then environment variables.
type Config struct {
	Server struct {
		Port           string        `yaml:"port"`
		LogLevel       string        `yaml:"log_level"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxBatch       int           `yaml:"max_batch"`
		BatchWorkers   int           `yaml:"batch_workers"`
	} `yaml:"server"`

	Model struct {
		Path        string `yaml:"path"`
		TopFeatures int    `yaml:"top_features"`
	} `yaml:"model"`

	Registry struct {
		Timeout          time.Duration `yaml:"timeout"`
		MaxRetries       int           `yaml:"max_retries"`
		Backoff          time.Duration `yaml:"backoff"`
		RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"`
		QueriesPerSecond float64       `yaml:"queries_per_second"`
		Burst            int           `yaml:"burst"`
	} `yaml:"registry"`

	Lists          lexical.Lists `yaml:"lists"`
	TrustedDomains []string      `yaml:"trusted_domains"`

	Scoring struct {
		Weights         scoring.Weights    `yaml:"weights"`
		Thresholds      scoring.Thresholds `yaml:"thresholds"`
		HighProbability float64            `yaml:"high_probability"`
	} `yaml:"scoring"`

	Content struct {
		Enabled      bool          `yaml:"enabled"`
		Timeout      time.Duration `yaml:"timeout"`
		SkipChromedp bool          `yaml:"skip_chromedp"`
		ChromePath   string        `yaml:"chrome_path"`
	} `yaml:"content"`

	Mail struct {
		Enabled bool          `yaml:"enabled"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"mail"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Port = "8080"
	cfg.Server.LogLevel = "info"
	cfg.Server.RequestTimeout = 20 * time.Second
	cfg.Server.MaxBatch = 50
	cfg.Server.BatchWorkers = 4

	cfg.Model.Path = "models/url-v1.json"
	cfg.Model.TopFeatures = 5

	cfg.Registry.Timeout = 5 * time.Second
	cfg.Registry.MaxRetries = 2
	cfg.Registry.Backoff = time.Second
	cfg.Registry.RateLimitBackoff = 3 * time.Second
	cfg.Registry.QueriesPerSecond = 2
	cfg.Registry.Burst = 4

	cfg.Lists = lexical.DefaultLists()
	cfg.TrustedDomains = signals.DefaultTrustedDomains

	cfg.Scoring.Weights = scoring.DefaultWeights()
	cfg.Scoring.Thresholds = scoring.DefaultThresholds()
	cfg.Scoring.HighProbability = scoring.DefaultHighProbability

	cfg.Content.Timeout = 10 * time.Second
	cfg.Mail.Timeout = 3 * time.Second
	return cfg
}

// Load reads .env, the YAML file named by PHISHEYE_CONFIG (default
// config.yaml) and environment overrides. A missing YAML file is not an
// error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("PHISHEYE_CONFIG")
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}

	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	list := func(key string, dst *[]string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			var out []string
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					out = append(out, item)
				}
			}
			*dst = out
		}
	}

	str("PORT", &c.Server.Port)
	str("LOG_LEVEL", &c.Server.LogLevel)
	dur("REQUEST_TIMEOUT", &c.Server.RequestTimeout)
	str("MODEL_PATH", &c.Model.Path)
	dur("WHOIS_TIMEOUT", &c.Registry.Timeout)
	num("WHOIS_MAX_RETRIES", &c.Registry.MaxRetries)
	dur("WHOIS_BACKOFF", &c.Registry.Backoff)
	dur("WHOIS_RATE_LIMIT_BACKOFF", &c.Registry.RateLimitBackoff)
	list("TRUSTED_DOMAINS", &c.TrustedDomains)
	list("SUSPICIOUS_TLDS", &c.Lists.SuspiciousTLDs)
	flag("CONTENT_PROBE", &c.Content.Enabled)
	flag("SKIP_CHROMEDP", &c.Content.SkipChromedp)
	str("CHROME_PATH", &c.Content.ChromePath)
	flag("MAIL_PROBE", &c.Mail.Enabled)

	return errors.Join(errs...)
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is empty"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	if c.Server.MaxBatch < 1 || c.Server.BatchWorkers < 1 {
		errs = append(errs, errors.New("server.max_batch and server.batch_workers must be >= 1"))
	}
	if c.Model.Path == "" {
		errs = append(errs, errors.New("model.path is empty"))
	}
	if c.Registry.Timeout <= 0 {
		errs = append(errs, errors.New("registry.timeout must be positive"))
	}
	if c.Registry.MaxRetries < 0 {
		errs = append(errs, errors.New("registry.max_retries must be >= 0"))
	}
	if c.Registry.Backoff < 0 || c.Registry.RateLimitBackoff < 0 {
		errs = append(errs, errors.New("registry backoffs must be >= 0"))
	}
	if err := c.Scoring.Weights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring.weights: %w", err))
	}
	if err := c.Scoring.Thresholds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring.thresholds: %w", err))
	}
	if p := c.Scoring.HighProbability; p <= 0 || p > 1 {
		errs = append(errs, errors.New("scoring.high_probability must be within (0,1]"))
	}
	return errors.Join(errs...)
}

// LookupBudget is the longest a single domain lookup may take.
func (c *Config) LookupBudget() time.Duration {
	return c.Registry.Timeout * time.Duration(1+c.Registry.MaxRetries)
}
