package util

import "sync"

type SigHandler func(sender any, params ...any)

// Signals is a synchronous in-process event bus. Handlers run on the emitting goroutine
// in registration order.
type Signals struct {
	mu       sync.RWMutex
	handlers map[string][]SigHandler
}

var defaultSignals = NewSignals()

func NewSignals() *Signals {
	return &Signals{handlers: make(map[string][]SigHandler)}
}

// Sig returns the process-wide bus.
func Sig() *Signals {
	return defaultSignals
}

func (s *Signals) Connect(event string, h SigHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], h)
}

func (s *Signals) Disconnect(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, event)
}

func (s *Signals) Emit(event string, sender any, params ...any) {
	s.mu.RLock()
	hs := append([]SigHandler(nil), s.handlers[event]...)
	s.mu.RUnlock()
	for _, h := range hs {
		h(sender, params...)
	}
}
