package engine

import (
	"sync"

	"github.com/docpipe/metron/internal/analytics"
)

// AnomalyHandler receives anomaly events. Handlers run synchronously
// on the recording goroutine and must return quickly.
type AnomalyHandler func(analytics.AnomalyEvent)

// ErrorHandler receives persistence and processing failures.
type ErrorHandler func(error)

// subscribers is the engine's explicit callback registry, one list per
// event type. Registration is expected at wiring time, before traffic,
// but is safe at any point.
type subscribers struct {
	mu        sync.RWMutex
	onAnomaly []AnomalyHandler
	onError   []ErrorHandler
}

func (s *subscribers) addAnomaly(fn AnomalyHandler) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onAnomaly = append(s.onAnomaly, fn)
	s.mu.Unlock()
}

func (s *subscribers) addError(fn ErrorHandler) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onError = append(s.onError, fn)
	s.mu.Unlock()
}

func (s *subscribers) emitAnomaly(ev analytics.AnomalyEvent) {
	s.mu.RLock()
	handlers := s.onAnomaly
	s.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

func (s *subscribers) emitError(err error) {
	s.mu.RLock()
	handlers := s.onError
	s.mu.RUnlock()

	for _, fn := range handlers {
		fn(err)
	}
}
