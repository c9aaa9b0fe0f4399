package conversation

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Service routes chat inputs through the state machine. Chat surfaces call
// Handle once per inbound update.
type Service struct {
	machine    Machine
	store      SessionStore
	dispatcher *Dispatcher
	logger     *zap.Logger

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock serialises one session. refs counts holders and waiters so the
// entry can be dropped once nobody needs it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewService wires the state machine to a store and a dispatcher
func NewService(machine Machine, store SessionStore, dispatcher *Dispatcher, logger *zap.Logger) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		machine:    machine,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		locks:      make(map[string]*sessionLock),
	}
}

// Handle applies one input to the session and carries out the resulting
// effects: replies are sent in order before Handle returns, lookups are
// handed to the dispatcher. The returned error joins any send failures.
func (s *Service) Handle(ctx context.Context, session string, in Input, r Replier) error {
	s.lock(session)
	defer s.unlock(session)

	state, err := s.store.Get(ctx, session)
	if err != nil {
		s.logger.Warn("Failed to load session state, assuming idle", zap.String("session", session), zap.Error(err))
		state = Idle
	}

	next, effects := s.machine.Transition(state, in)

	if err := s.store.Set(ctx, session, next); err != nil {
		s.logger.Warn("Failed to save session state", zap.String("session", session), zap.Error(err))
	}

	var errs []error
	for _, eff := range effects {
		switch eff.Kind {
		case EffectReply:
			if err := r.Send(ctx, Message{Text: eff.Text, Keyboard: eff.Keyboard}); err != nil {
				errs = append(errs, err)
			}
		default:
			if s.dispatcher == nil {
				s.logger.Error("No dispatcher configured, dropping lookup", zap.String("session", session))
				continue
			}
			s.dispatcher.Dispatch(session, eff, r)
		}
	}
	return errors.Join(errs...)
}

// State returns the stored state of a session
func (s *Service) State(ctx context.Context, session string) (State, error) {
	return s.store.Get(ctx, session)
}

func (s *Service) lock(session string) {
	s.locksMu.Lock()
	l, ok := s.locks[session]
	if !ok {
		l = &sessionLock{}
		s.locks[session] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
}

func (s *Service) unlock(session string) {
	s.locksMu.Lock()
	l := s.locks[session]
	l.refs--
	if l.refs == 0 {
		delete(s.locks, session)
	}
	s.locksMu.Unlock()

	l.mu.Unlock()
}

// activeLocks returns the number of sessions currently being handled
func (s *Service) activeLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}
