package event

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/procsched/service/messaging/memory"
)

type Option func(s *Service)

// WithNewMemoryQueueConfig sets the memory queue configuration factory
func WithNewMemoryQueueConfig(newQueue func(name string) memory.Config) Option {
	return func(s *Service) {
		s.memNewQueueConfig = newQueue
	}
}

// WithLogger sets the logger used by listeners
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithBootID stamps every published event with the kernel boot identifier
func WithBootID(bootID string) Option {
	return func(s *Service) {
		s.bootID = bootID
	}
}
