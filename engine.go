package pisa

import (
	"errors"
	"fmt"
	"io"

	"github.com/pion/logging"
)

// Flusher is implemented by output streams that buffer writes (for example a *bufio.Writer). If
// the io.Writer passed to Engine.Serve implements it, the engine flushes after every reply, the
// same discipline the teacher's network.write applies to each outbound ADU.
type Flusher interface {
	Flush() error
}

// Engine is the engine-side half of the bridge: a single-threaded read-dispatch-reply loop over
// EngineStore, delegating actual code execution to an Evaluator. It mirrors modbus.Server in
// shape — Serve owns the loop, per-command handling is split into one method per command tag the
// way Server.handle fans out to Handler — but runs single-threaded per §5 of the design, since the
// wire protocol requires strict in-order command processing.
type Engine struct {
	store *EngineStore
	eval  Evaluator
	log   logging.LeveledLogger
}

// NewEngine constructs an Engine backed by eval. If factory is nil, logging.NewDefaultLoggerFactory
// is used, mirroring the nil-defaulting convention Options.Logger follows on the driver side.
func NewEngine(eval Evaluator, factory logging.LoggerFactory) *Engine {
	if factory == nil {
		factory = logging.NewDefaultLoggerFactory()
	}
	return &Engine{
		store: NewEngineStore(),
		eval:  eval,
		log:   factory.NewLogger("pisa.engine"),
	}
}

// Store exposes the engine's object store, primarily so tests and embedders can inspect live
// objects without routing through the wire protocol.
func (e *Engine) Store() *EngineStore {
	return e.store
}

// Serve runs the dispatch loop until r reaches a clean end-of-stream (returns nil) or a fatal
// framing error occurs (returns a non-nil error wrapping ErrTransportClosed). Every well-formed
// command elicits exactly one reply before the next command is read, per §5's single-threaded
// engine-side ordering guarantee.
func (e *Engine) Serve(r io.Reader, w io.Writer) error {
	for {
		seq, err := getU64(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("pisa: engine read sequence number: %w: %v", ErrTransportClosed, err)
		}
		cmd, err := getByte(r)
		if err != nil {
			return fmt.Errorf("pisa: engine read command tag: %w: %v", ErrTransportClosed, err)
		}

		reply, engErr, fatal := e.dispatch(cmd, r)
		if fatal != nil {
			return fmt.Errorf("pisa: engine framing: %w: %v", ErrTransportClosed, fatal)
		}

		if err := e.writeReply(w, seq, reply, engErr); err != nil {
			return fmt.Errorf("pisa: engine write reply: %w: %v", ErrTransportClosed, err)
		}
		if f, ok := w.(Flusher); ok {
			if err := f.Flush(); err != nil {
				return fmt.Errorf("pisa: engine flush: %w: %v", ErrTransportClosed, err)
			}
		}
	}
}

func (e *Engine) writeReply(w io.Writer, seq uint64, reply Data, engErr *EngineError) error {
	if err := putU64(w, seq); err != nil {
		return err
	}
	if engErr != nil {
		e.log.Debugf("seq %d: engine error: %s", seq, engErr.Message)
		if err := putByte(w, replyFail); err != nil {
			return err
		}
		return putString(w, engErr.Message)
	}
	if err := putByte(w, replyOK); err != nil {
		return err
	}
	return EncodeData(w, reply)
}

// dispatch executes one command. A non-nil fatal error means the body itself could not be parsed
// (truncated stream, impossible shape) and the whole session must end. A non-nil engErr with a
// nil fatal error means the command parsed fine but the engine rejected it; that is reported as a
// normal 0x02 reply and the loop continues.
func (e *Engine) dispatch(cmd byte, r io.Reader) (reply Data, engErr *EngineError, fatal error) {
	switch cmd {
	case cmdEvalCode:
		return e.handleEvalCode(r)
	case cmdStoreExpr:
		return e.handleStoreExpr(r)
	case cmdApply:
		return e.handleApply(r)
	case cmdRemove:
		return e.handleRemove(r)
	default:
		return nil, nil, fmt.Errorf("unknown command tag 0x%02x", cmd)
	}
}

func (e *Engine) handleEvalCode(r io.Reader) (Data, *EngineError, error) {
	code, err := getString(r)
	if err != nil {
		return nil, nil, err
	}
	if err := e.eval.Eval(code); err != nil {
		return nil, newEngineError(err.Error()), nil
	}
	return DList{}, nil, nil
}

func (e *Engine) handleStoreExpr(r io.Reader) (Data, *EngineError, error) {
	code, err := getString(r)
	if err != nil {
		return nil, nil, err
	}
	value, err := e.eval.EvalToValue(code)
	if err != nil {
		return nil, newEngineError(err.Error()), nil
	}
	id := e.store.Put(value)
	return DObject(id), nil, nil
}

func (e *Engine) handleApply(r io.Reader) (Data, *EngineError, error) {
	fnID, err := getU64(r)
	if err != nil {
		return nil, nil, err
	}
	arg, err := DecodeData(r)
	if err != nil {
		return nil, nil, err
	}
	fnValue, ok := e.store.Get(ObjectId(fnID))
	if !ok {
		return nil, newEngineError(fmt.Sprintf("no object %d", fnID)), nil
	}
	result, err := e.eval.Apply(fnValue, arg, e.store)
	if err != nil {
		return nil, newEngineError(fmt.Sprintf("value %s is not applicable: %v", describe(fnValue), err)), nil
	}
	return result, nil, nil
}

func (e *Engine) handleRemove(r io.Reader) (Data, *EngineError, error) {
	body, err := DecodeData(r)
	if err != nil {
		return nil, nil, err
	}
	list, ok := body.(DList)
	if !ok {
		return nil, nil, fmt.Errorf("Remove body must be a DList, got %T", body)
	}
	ids := make([]ObjectId, len(list))
	for i, elem := range list {
		n, ok := elem.(DInt)
		if !ok {
			return nil, nil, fmt.Errorf("Remove element %d must be DInt, got %T", i, elem)
		}
		ids[i] = ObjectId(n)
	}
	for _, id := range ids {
		if !e.store.Remove(id) {
			return nil, newEngineError(fmt.Sprintf("no object %d", id)), nil
		}
	}
	return DList{}, nil, nil
}
