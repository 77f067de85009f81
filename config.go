package procsched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/procsched/internal/logging"
	"github.com/viant/procsched/runtime/kernel"
	"github.com/viant/procsched/service/memory"
	"gopkg.in/yaml.v3"
)

// EventsConfig controls lifecycle event publication
type EventsConfig struct {
	Enabled     bool `json:"enabled" yaml:"enabled"`
	QueueBuffer int  `json:"queueBuffer" yaml:"queueBuffer"`
	// MaxRetries bounds redelivery of an event whose listener panicked
	MaxRetries int `json:"maxRetries" yaml:"maxRetries"`
}

// TracingConfig controls OpenTelemetry tracing
type TracingConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	ServiceName    string `json:"serviceName" yaml:"serviceName"`
	ServiceVersion string `json:"serviceVersion" yaml:"serviceVersion"`
	// OutputFile receives the spans; empty means stdout
	OutputFile string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

// Config represents the service configuration
type Config struct {
	Kernel  kernel.Config  `json:"kernel" yaml:"kernel"`
	Memory  memory.Config  `json:"memory" yaml:"memory"`
	Events  EventsConfig   `json:"events" yaml:"events"`
	Tracing TracingConfig  `json:"tracing" yaml:"tracing"`
	Log     logging.Config `json:"log" yaml:"log"`
}

// DefaultConfig returns the default service configuration
func DefaultConfig() Config {
	return Config{
		Kernel: kernel.DefaultConfig(),
		Memory: memory.DefaultConfig(),
		Events: EventsConfig{
			Enabled:     true,
			QueueBuffer: 256,
			MaxRetries:  3,
		},
		Tracing: TracingConfig{
			ServiceName:    "procsched",
			ServiceVersion: "0.1.0",
		},
		Log: logging.Config{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the configuration
func (c *Config) Validate() error {
	var errs []error
	if c.Kernel.CPUs < 1 {
		errs = append(errs, fmt.Errorf("kernel.cpus must be positive, was %d", c.Kernel.CPUs))
	}
	if c.Kernel.Slots < 1 {
		errs = append(errs, fmt.Errorf("kernel.slots must be positive, was %d", c.Kernel.Slots))
	}
	if c.Kernel.OpenFiles < 0 {
		errs = append(errs, fmt.Errorf("kernel.openFiles must not be negative, was %d", c.Kernel.OpenFiles))
	}
	if c.Kernel.IdleInterval < 0 {
		errs = append(errs, fmt.Errorf("kernel.idleInterval must not be negative, was %s", c.Kernel.IdleInterval))
	}
	if c.Kernel.TimeZone != "" {
		if _, err := time.LoadLocation(c.Kernel.TimeZone); err != nil {
			errs = append(errs, fmt.Errorf("kernel.timeZone: %w", err))
		}
	}
	if c.Memory.Pages < 1 {
		errs = append(errs, fmt.Errorf("memory.pages must be positive, was %d", c.Memory.Pages))
	}
	if c.Memory.PageSize < 1 {
		errs = append(errs, fmt.Errorf("memory.pageSize must be positive, was %d", c.Memory.PageSize))
	}
	if c.Events.QueueBuffer < 0 {
		errs = append(errs, fmt.Errorf("events.queueBuffer must not be negative, was %d", c.Events.QueueBuffer))
	}
	if c.Events.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("events.maxRetries must not be negative, was %d", c.Events.MaxRetries))
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	switch c.Log.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format: unsupported %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// LoadConfig reads a YAML configuration from URL over the defaults
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download config %v: %w", URL, err)
	}
	config := DefaultConfig()
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
