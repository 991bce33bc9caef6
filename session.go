package pisa

import (
	"sync"

	"github.com/GoAethereal/cancel"
	"github.com/google/uuid"
	"github.com/pion/logging"
)

// bootstrapCode declares the universal exception carriers every primitive and composite converter
// in this package assumes are already in scope (§4.5, §7): E_Int, E_Bool, E_String, E_Unit,
// E_Option, E_Pair and E_List. Tuples of every arity are built from nested E_Pair rather than a
// dedicated carrier (§4.5's "right-leaning nest of the universal pair carrier"). A real engine
// almost certainly already has equivalents; this declaration exists so a fresh engine process that
// doesn't can still be driven by this package without the caller hand-writing the same boilerplate
// themselves.
const bootstrapCode = `
datatype exn = E_Int of int
             | E_Bool of bool
             | E_String of string
             | E_Unit
             | E_Option of exn option
             | E_Pair of exn * exn
             | E_List of exn list
`

// Session wraps a Transport with the one-time engine bootstrap and a correlation id for log
// lines, mirroring how modbus.Client pairs a connection with the handshake/options it needs before
// any request can be served. Unlike Transport, a Session is not required: Converter/CompileValue/
// CompileFunction only need a *Transport, and an embedder whose engine already defines the
// exception carriers can skip Session entirely and drive a bare Transport.
type Session struct {
	*Transport
	id       uuid.UUID
	log      logging.LeveledLogger
	bootOnce sync.Once
	bootErr  error
}

// NewSession wraps t with a fresh correlation id, ready to Bootstrap.
func NewSession(t *Transport, factory logging.LoggerFactory) *Session {
	if factory == nil {
		factory = logging.NewDefaultLoggerFactory()
	}
	id := uuid.New()
	return &Session{
		Transport: t,
		id:        id,
		log:       factory.NewLogger("pisa.session"),
	}
}

// ID returns the session's correlation id, suitable for tagging an embedder's own log lines.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Bootstrap declares the exception carriers every converter in this package depends on, exactly
// once regardless of how many times it is called or from how many goroutines (§9's "declare once
// per session" resolution) — a second Bootstrap call on an already-bootstrapped session is a no-op
// returning the first call's result, not a second EvalCode round trip.
func (s *Session) Bootstrap(ctx cancel.Context) error {
	s.bootOnce.Do(func() {
		slot, err := s.EvalCode(ctx, bootstrapCode)
		if err != nil {
			s.bootErr = err
			return
		}
		if _, err := slot.wait(ctx, s.Transport); err != nil {
			s.bootErr = err
			return
		}
		s.log.Debugf("session %s bootstrapped", s.id)
	})
	return s.bootErr
}
