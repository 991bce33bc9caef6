package pisa

import (
	"errors"
	"fmt"
)

// ErrTransportClosed is returned by every outstanding and future call once the underlying byte
// streams have been torn down, either by an explicit Close or by a fatal protocol error on the
// reader. Once raised for a Transport it is raised for every subsequent call on that Transport.
var ErrTransportClosed = errors.New("pisa: transport closed")

// ErrSequenceExhausted is returned if the 64-bit sequence-number counter would wrap. The
// specification explicitly declines to define wraparound semantics, so this implementation
// refuses to reuse an in-flight key rather than risk two requests sharing a completion slot.
var ErrSequenceExhausted = errors.New("pisa: sequence numbers exhausted")

// ErrDetached is returned by a future whose originating call was cancelled before the reply
// arrived. The engine has no cancellation command, so the work still runs to completion on the
// engine side; the driver simply stops waiting for it.
var ErrDetached = errors.New("pisa: request detached before reply arrived")

// ProtocolError reports a framing-level disagreement: an unknown tag byte, or a reply whose Data shape does not match what the issuing command requires (for example an
// Apply reply that is not a DObject). A ProtocolError on the inbound reader is always fatal and
// escalates the whole Transport to ErrTransportClosed.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "pisa: protocol error: " + e.Reason
}

func newProtocolError(format string, args ...any) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// EngineError wraps a 0x02 reply: the engine raised an exception while executing a command. The
// Message is the engine's own exception description, unchanged. EngineError is per-request — it
// never affects other in-flight or future requests.
type EngineError struct {
	Message string
}

func (e *EngineError) Error() string {
	return "pisa: engine error: " + e.Message
}

func newEngineError(message string) *EngineError {
	return &EngineError{Message: message}
}

// ConverterError reports that a Data payload received for Retrieve did not have the shape its
// Converter expected (for example a tuple converter receiving a DList of the wrong length).
type ConverterError struct {
	Converter string
	Reason    string
}

func (e *ConverterError) Error() string {
	return fmt.Sprintf("pisa: converter error (%s): %s", e.Converter, e.Reason)
}

func newConverterError(converter, format string, args ...any) *ConverterError {
	return &ConverterError{Converter: converter, Reason: fmt.Sprintf(format, args...)}
}
