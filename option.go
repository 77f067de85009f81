package procsched

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/procsched/model"
	"github.com/viant/procsched/runtime/kernel"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/fs"
)

// Option represents a service option
type Option func(s *Service)

// WithConfig replaces the whole configuration
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithCPUs sets the number of simulated CPUs
func WithCPUs(count int) Option {
	return func(s *Service) {
		s.config.Kernel.CPUs = count
	}
}

// WithTimeZone sets the location of the scheduling clock
func WithTimeZone(name string) Option {
	return func(s *Service) {
		s.config.Kernel.TimeZone = name
	}
}

// WithLogger sets the logger; the log section of the configuration is then ignored
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLogOutput sets where the configured logger writes
func WithLogOutput(w io.Writer) Option {
	return func(s *Service) {
		s.logOutput = w
	}
}

// WithInitImage sets the program of the root process
func WithInitImage(image kernel.Image) Option {
	return func(s *Service) {
		s.image = image
	}
}

// WithNow overrides the scheduling clock
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.kernelOptions = append(s.kernelOptions, kernel.WithNow(now))
	}
}

// WithKernelOptions passes additional options to the kernel
func WithKernelOptions(options ...kernel.Option) Option {
	return func(s *Service) {
		s.kernelOptions = append(s.kernelOptions, options...)
	}
}

// WithEventListener registers a handler for every process event; it enables events
func WithEventListener(handler func(*event.Event[model.ProcInfo])) Option {
	return func(s *Service) {
		s.config.Events.Enabled = true
		s.listener = handler
	}
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.config.Tracing = TracingConfig{Enabled: true, ServiceName: serviceName, ServiceVersion: serviceVersion, OutputFile: outputFile}
	}
}

// WithFs sets the storage service used by DumpTable
func WithFs(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// WithNamespace shares namespace as the directory tree of every process
func WithNamespace(namespace *fs.Namespace) Option {
	return func(s *Service) {
		s.namespace = namespace
	}
}
