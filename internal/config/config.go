// Package config loads simulation settings from YAML, .env files and the
// environment, and validates them before anything is constructed.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"banksim/internal/money"
)

// ErrInvalidConfiguration wraps every validation failure.
var ErrInvalidConfiguration = errors.New("invalid configuration")

const (
	envBanks          = "BANKSIM_BANKS"
	envWorkers        = "BANKSIM_WORKERS"
	envSpenders       = "BANKSIM_SPENDERS"
	envDuration       = "BANKSIM_DURATION"
	envSeed           = "BANKSIM_SEED"
	envLogLevel       = "BANKSIM_LOG_LEVEL"
	envMetricsAddr    = "BANKSIM_METRICS_ADDR"
	envReportInterval = "BANKSIM_REPORT_INTERVAL"
)

// Config is the root configuration structure.
type Config struct {
	Banks           int           `yaml:"banks" validate:"gte=0"`
	Workers         int           `yaml:"workers" validate:"gte=0"`
	Spenders        int           `yaml:"spenders" validate:"gte=0"`
	WorkingDuration time.Duration `yaml:"workingDuration" validate:"gte=0"`
	DepositAmount   money.Range   `yaml:"depositAmount" validate:"-"`
	WithdrawAmount  money.Range   `yaml:"withdrawAmount" validate:"-"`
	ActorInterval   time.Duration `yaml:"actorInterval" validate:"gte=0"`
	InitialBalance  int64         `yaml:"initialBalance" validate:"gte=0"`
	BanksPerActor   int           `yaml:"banksPerActor" validate:"gte=1"`
	Targeting       string        `yaml:"targeting" validate:"oneof=fixed round-robin random"`
	Seed            int64         `yaml:"seed"`
	ReportInterval  time.Duration `yaml:"reportInterval" validate:"gte=0"`
	JoinTimeout     time.Duration `yaml:"joinTimeout" validate:"gte=0"`
	LogLevel        string        `yaml:"logLevel" validate:"oneof=debug info warn error"`
	MetricsAddr     string        `yaml:"metricsAddr"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Banks:           1,
		Workers:         2,
		Spenders:        1,
		WorkingDuration: time.Second,
		DepositAmount:   money.Range{Min: 10, Max: 100},
		WithdrawAmount:  money.Range{Min: 10, Max: 100},
		ActorInterval:   10 * time.Millisecond,
		BanksPerActor:   1,
		Targeting:       "fixed",
		Seed:            1,
		LogLevel:        "info",
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the
// file keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from BANKSIM_* variables found through lookup
// (os.LookupEnv in production).
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	ints := []struct {
		key string
		dst *int
	}{
		{envBanks, &cfg.Banks},
		{envWorkers, &cfg.Workers},
		{envSpenders, &cfg.Spenders},
	}
	for _, it := range ints {
		v, ok := lookup(it.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfiguration, it.key, v)
		}
		*it.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{envDuration, &cfg.WorkingDuration},
		{envReportInterval, &cfg.ReportInterval},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidConfiguration, d.key, v)
		}
		*d.dst = parsed
	}

	if v, ok := lookup(envSeed); ok && v != "" {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfiguration, envSeed, v)
		}
		cfg.Seed = seed
	}
	if v, ok := lookup(envLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(envMetricsAddr); ok {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	return nil
}

var validate = validator.New()

// Validate checks every field and the cross-field rules. All failures wrap
// ErrInvalidConfiguration.
func (c Config) Validate() error {
	var problems []string
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.ActualTag(), fe.Value()))
		}
	}
	if err := ValidateCounts(c.Banks, c.Workers, c.Spenders); err != nil {
		return err
	}
	if err := c.ValidateAmounts(c.Workers, c.Spenders); err != nil {
		return err
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateAmounts checks the deposit range when there are workers and the
// withdraw range when there are spenders. An unused range is never checked.
func (c Config) ValidateAmounts(workers, spenders int) error {
	if workers > 0 {
		if err := c.DepositAmount.Validate(); err != nil {
			return fmt.Errorf("%w: deposit amount: %v", ErrInvalidConfiguration, err)
		}
	}
	if spenders > 0 {
		if err := c.WithdrawAmount.Validate(); err != nil {
			return fmt.Errorf("%w: withdraw amount: %v", ErrInvalidConfiguration, err)
		}
	}
	return nil
}

// ValidateCounts checks entity counts on their own. Zero is always valid,
// but actors need at least one bank to target.
func ValidateCounts(banks, workers, spenders int) error {
	if banks < 0 || workers < 0 || spenders < 0 {
		return fmt.Errorf("%w: counts must not be negative (banks=%d workers=%d spenders=%d)",
			ErrInvalidConfiguration, banks, workers, spenders)
	}
	if banks == 0 && (workers > 0 || spenders > 0) {
		return fmt.Errorf("%w: %d workers and %d spenders have no bank to target",
			ErrInvalidConfiguration, workers, spenders)
	}
	return nil
}
