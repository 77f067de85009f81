package event

import (
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/procsched/service/messaging"
	"github.com/viant/procsched/service/messaging/memory"
)

// Service hands out typed publishers backed by in-memory queues
type Service struct {
	typedPublishers   map[reflect.Type]any
	typedListener     map[reflect.Type]any
	mux               *sync.RWMutex
	memNewQueueConfig func(name string) memory.Config
	logger            logrus.FieldLogger
	bootID            string
}

// Close stops every running listener
func (s *Service) Close() {
	s.mux.Lock()
	defer s.mux.Unlock()
	for key, listener := range s.typedListener {
		listener.(interface{ Stop() }).Stop()
		delete(s.typedListener, key)
	}
}

func New(opts ...Option) *Service {
	ret := &Service{
		typedPublishers: make(map[reflect.Type]any),
		typedListener:   make(map[reflect.Type]any),
		mux:             &sync.RWMutex{},
		logger:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.memNewQueueConfig == nil {
		ret.memNewQueueConfig = func(name string) memory.Config {
			config := memory.DefaultConfig()
			config.DropWhenFull = true
			return config
		}
	}
	return ret
}

// QueueOf creates a named queue for the given payload type
func QueueOf[T any](s *Service, name string) messaging.Queue[T] {
	return memory.NewQueue[T](s.memNewQueueConfig(name))
}

func keyOf[T any]() reflect.Type {
	rType := reflect.TypeOf((*T)(nil)).Elem()
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// SetListenerOf installs a handler for events carrying T, replacing any previous one
func SetListenerOf[T any](s *Service, handler func(*Event[T])) {
	key := keyOf[T]()
	publisher := PublisherOf[T](s)
	s.mux.Lock()
	defer s.mux.Unlock()
	if prev, ok := s.typedListener[key]; ok {
		prev.(*Listener[T]).Stop()
	}
	listener := NewListener[T](publisher, handler, s.logger)
	s.typedListener[key] = listener
	listener.Start()
}

// PublisherOf returns a publisher for the provided type
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.typedPublishers[key]
	s.mux.RUnlock()
	if ok {
		return ret.(*Publisher[T])
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok = s.typedPublishers[key]; ok {
		return ret.(*Publisher[T])
	}
	publisher := NewPublisher[T](QueueOf[Event[T]](s, key.String()))
	publisher.bootID = s.bootID
	s.typedPublishers[key] = publisher
	return publisher
}

// Dropped returns the number of events discarded across every publisher
func (s *Service) Dropped() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := 0
	for _, publisher := range s.typedPublishers {
		if counter, ok := publisher.(interface{ Dropped() int }); ok {
			ret += counter.Dropped()
		}
	}
	return ret
}
