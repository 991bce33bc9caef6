package pisa

import (
	"errors"

	"github.com/pion/logging"
)

// ErrInvalidOptions signals a malformed Options value, mirroring modbus.Options.Verify /
// modbus.Config.Verify's ErrInvalidParameter.
var ErrInvalidOptions = errors.New("pisa: invalid options")

// Options configures a Transport. The zero value is not directly usable — call Verify (or rely on
// NewTransport, which calls it) before first use, the same one-shot validation discipline
// modbus.Options/modbus.Config apply.
type Options struct {
	// RemoveBatchSize is the pending-remove buffer threshold at which the transport
	// opportunistically flushes a Remove command. The batching window is not observable to
	// correctness, only to efficiency (§4.3); 0 selects DefaultRemoveBatchSize.
	RemoveBatchSize int

	// OutboundQueueSize bounds the number of requests the writer goroutine may have queued but not
	// yet sent. 0 selects DefaultOutboundQueueSize. Backpressure beyond this bound is the only
	// blocking behavior a caller of StoreCode/EvalCode/Apply should observe.
	OutboundQueueSize int

	// Logger builds the scoped logger used by Transport (NewSession takes its own factory). A nil
	// Logger defaults to
	// logging.NewDefaultLoggerFactory(), the same nil-defaulting convention modbus.Config.framer
	// applies to its Mode-driven construction.
	Logger logging.LoggerFactory
}

// DefaultRemoveBatchSize is used when Options.RemoveBatchSize is zero.
const DefaultRemoveBatchSize = 32

// DefaultOutboundQueueSize is used when Options.OutboundQueueSize is zero.
const DefaultOutboundQueueSize = 64

// Verify validates o and returns a copy with defaults filled in. It never mutates o.
func (o Options) Verify() (Options, error) {
	if o.RemoveBatchSize < 0 {
		return Options{}, ErrInvalidOptions
	}
	if o.OutboundQueueSize < 0 {
		return Options{}, ErrInvalidOptions
	}
	if o.RemoveBatchSize == 0 {
		o.RemoveBatchSize = DefaultRemoveBatchSize
	}
	if o.OutboundQueueSize == 0 {
		o.OutboundQueueSize = DefaultOutboundQueueSize
	}
	if o.Logger == nil {
		o.Logger = logging.NewDefaultLoggerFactory()
	}
	return o, nil
}
