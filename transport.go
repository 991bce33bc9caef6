package pisa

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/GoAethereal/cancel"
	"github.com/pion/logging"
)

// slot is both the in-flight table's value and the future a caller awaits. Aliased handles that
// share an id also share a *slot: the second Wait simply observes the same resolution.
type slot struct {
	mu       sync.Mutex
	resolved bool
	detached bool
	data     Data
	err      error
	done     chan struct{}
}

func newSlot() *slot {
	return &slot{done: make(chan struct{})}
}

func (s *slot) resolve(data Data, err error) {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return
	}
	s.resolved = true
	s.data, s.err = data, err
	s.mu.Unlock()
	close(s.done)
}

// wait blocks until the slot resolves or ctx is cancelled. On cancellation the slot is marked
// detached on t so that a reply arriving later is dropped and any object id it carries is
// scheduled for removal, per §5's cancellation model.
func (s *slot) wait(ctx context.Context, t *Transport) (Data, error) {
	select {
	case <-s.done:
		return s.data, s.err
	case <-ctx.Done():
		t.detach(s)
		return nil, fmt.Errorf("%w: %w", ErrDetached, ctx.Err())
	}
}

type outboundRequest struct {
	cmd  byte
	body func(w io.Writer) error
	slot *slot
}

// Transport is the driver-side half of the bridge: it owns both byte streams, serializes outbound
// requests through a single writer goroutine, and demultiplexes inbound replies by sequence number
// through a single reader goroutine — the two exclusive serialization points §5 requires. It
// mirrors modbus.Client + modbus.connection in shape: one exclusive writer path
// (modbus.network.write, guarded by a mutex) and one read loop that fans a reply out to whichever
// caller is waiting for it (modbus.network.listen/broadcast, here keyed by sequence number instead
// of by registered callback).
type Transport struct {
	opts Options
	log  logging.LeveledLogger

	w io.Writer
	r io.Reader

	seq atomic.Uint64

	outCh chan outboundRequest
	done  chan struct{}

	mu            sync.Mutex
	inflight      map[uint64]*slot
	pendingRemove []ObjectId
	closed        bool
	closeErr      error

	wg sync.WaitGroup
}

// NewTransport starts a Transport reading replies from r and writing requests to w. The caller
// owns r and w; Transport never closes them itself except as a best-effort part of Close.
// Replies are read from r by a reader goroutine that stays blocked in Read until r yields data,
// an error or end-of-stream.
func NewTransport(r io.Reader, w io.Writer, opts Options) (*Transport, error) {
	opts, err := opts.Verify()
	if err != nil {
		return nil, err
	}
	t := &Transport{
		opts:     opts,
		log:      opts.Logger.NewLogger("pisa.transport"),
		w:        w,
		r:        r,
		outCh:    make(chan outboundRequest, opts.OutboundQueueSize),
		done:     make(chan struct{}),
		inflight: make(map[uint64]*slot),
	}
	t.wg.Add(2)
	go t.writerLoop()
	go t.readerLoop()
	return t, nil
}

// Close tears the Transport down: it stops the writer and reader goroutines and resolves every
// outstanding slot with ErrTransportClosed. To release a reader goroutine blocked in Read, Close
// also closes r and w, best effort, when they implement io.Closer; a stream that does not
// implement it keeps Close waiting until the reader sees an error or end-of-stream.
func (t *Transport) Close() error {
	t.fail(fmt.Errorf("transport closed by caller"))
	if c, ok := t.r.(io.Closer); ok {
		_ = c.Close()
	}
	if c, ok := t.w.(io.Closer); ok {
		_ = c.Close()
	}
	t.wg.Wait()
	return nil
}

func (t *Transport) fail(cause error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.closeErr = fmt.Errorf("%w: %v", ErrTransportClosed, cause)
	pending := t.inflight
	t.inflight = make(map[uint64]*slot)
	t.mu.Unlock()

	close(t.done)
	for _, s := range pending {
		s.resolve(nil, t.closeErr)
	}
}

func (t *Transport) closeErrOrDefault() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closeErr != nil {
		return t.closeErr
	}
	return ErrTransportClosed
}

// detach marks s so that a reply arriving after the caller has stopped waiting is dropped rather
// than delivered, and any object id it names is scheduled for removal (§5 cancellation).
func (t *Transport) detach(s *slot) {
	t.mu.Lock()
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
	t.mu.Unlock()
}

func (t *Transport) writerLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.done:
			for {
				select {
				case req := <-t.outCh:
					req.slot.resolve(nil, t.closeErrOrDefault())
				default:
					return
				}
			}
		case req := <-t.outCh:
			t.send(req)
		}
	}
}

func (t *Transport) send(req outboundRequest) {
	seq, err := t.nextSeq()
	if err != nil {
		req.slot.resolve(nil, err)
		return
	}

	t.mu.Lock()
	if t.closed {
		closeErr := t.closeErr
		t.mu.Unlock()
		req.slot.resolve(nil, closeErr)
		return
	}
	t.inflight[seq] = req.slot
	t.mu.Unlock()

	if err := writeRequestHeader(t.w, seq, req.cmd); err == nil {
		err = req.body(t.w)
	}
	if err != nil {
		t.log.Errorf("write request seq %d: %v", seq, err)
		t.fail(err)
		return
	}
	if f, ok := t.w.(Flusher); ok {
		if err := f.Flush(); err != nil {
			t.fail(err)
		}
	}
}

func (t *Transport) nextSeq() (uint64, error) {
	for {
		cur := t.seq.Load()
		if cur == math.MaxUint64 {
			return 0, ErrSequenceExhausted
		}
		if t.seq.CompareAndSwap(cur, cur+1) {
			return cur, nil
		}
	}
}

func (t *Transport) readerLoop() {
	defer t.wg.Done()
	for {
		seq, status, err := readReplyHeader(t.r)
		if err != nil {
			t.fail(err)
			return
		}
		switch status {
		case replyOK:
			data, err := DecodeData(t.r)
			if err != nil {
				t.fail(err)
				return
			}
			t.deliver(seq, data, nil)
		case replyFail:
			msg, err := getString(t.r)
			if err != nil {
				t.fail(err)
				return
			}
			t.deliver(seq, nil, newEngineError(msg))
		default:
			t.fail(newProtocolError("unknown reply status 0x%02x", status))
			return
		}
	}
}

func (t *Transport) deliver(seq uint64, data Data, engErr *EngineError) {
	t.mu.Lock()
	s, ok := t.inflight[seq]
	if ok {
		delete(t.inflight, seq)
	}
	var detached bool
	if ok {
		s.mu.Lock()
		detached = s.detached
		s.mu.Unlock()
	}
	t.mu.Unlock()

	if !ok {
		t.log.Warnf("reply for unknown sequence number %d", seq)
		return
	}
	if detached {
		if obj, ok := data.(DObject); ok {
			t.scheduleRemove(ObjectId(obj))
		}
		return
	}
	var err error
	if engErr != nil {
		err = engErr
	}
	s.resolve(data, err)
}

// enqueue hands a request to the writer goroutine, blocking only on the bounded outbound queue or
// on ctx/session shutdown.
func (t *Transport) enqueue(ctx cancel.Context, cmd byte, body func(w io.Writer) error) (*slot, error) {
	t.mu.Lock()
	if t.closed {
		err := t.closeErr
		t.mu.Unlock()
		return nil, err
	}
	t.mu.Unlock()

	s := newSlot()
	select {
	case t.outCh <- outboundRequest{cmd: cmd, body: body, slot: s}:
		return s, nil
	case <-t.done:
		return nil, t.closeErrOrDefault()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// StoreCode enqueues a StoreExpr command and returns the slot the resulting id will resolve on.
func (t *Transport) StoreCode(ctx cancel.Context, code string) (*slot, error) {
	return t.enqueue(ctx, cmdStoreExpr, func(w io.Writer) error {
		return putString(w, code)
	})
}

// EvalCode enqueues an EvalCode command. The resolved Data is always an empty DList.
func (t *Transport) EvalCode(ctx cancel.Context, code string) (*slot, error) {
	return t.enqueue(ctx, cmdEvalCode, func(w io.Writer) error {
		return putString(w, code)
	})
}

// ApplyRaw enqueues an Apply command against a known function id and argument Data.
func (t *Transport) ApplyRaw(ctx cancel.Context, fn ObjectId, arg Data) (*slot, error) {
	return t.enqueue(ctx, cmdApply, func(w io.Writer) error {
		if err := putU64(w, uint64(fn)); err != nil {
			return err
		}
		return EncodeData(w, arg)
	})
}

// removeBody encodes a Remove command body: a DList of DInt ids.
func removeBody(ids []ObjectId) func(w io.Writer) error {
	list := make(DList, len(ids))
	for i, id := range ids {
		list[i] = DInt(id)
	}
	return func(w io.Writer) error {
		return EncodeData(w, list)
	}
}

// Remove sends a Remove command for ids and waits for its reply. Most callers never call this
// directly — disposal is driven by Handle.Release via the pending-remove buffer — but it is
// exposed for explicit removal.
func (t *Transport) Remove(ctx cancel.Context, ids ...ObjectId) error {
	if len(ids) == 0 {
		return nil
	}
	s, err := t.enqueue(ctx, cmdRemove, removeBody(ids))
	if err != nil {
		return err
	}
	_, err = s.wait(ctx, t)
	return err
}

// scheduleRemove appends id to the pending-remove buffer and, once the buffer reaches
// Options.RemoveBatchSize, opportunistically flushes it with a fire-and-forget Remove command
// (§4.3). The flush runs on its own goroutine so a Handle's Release never blocks on transport
// activity.
func (t *Transport) scheduleRemove(id ObjectId) {
	t.mu.Lock()
	t.pendingRemove = append(t.pendingRemove, id)
	var batch []ObjectId
	if len(t.pendingRemove) >= t.opts.RemoveBatchSize {
		batch = t.pendingRemove
		t.pendingRemove = nil
	}
	t.mu.Unlock()

	if batch != nil {
		t.fireAndForgetRemove(batch)
	}
}

func (t *Transport) fireAndForgetRemove(ids []ObjectId) {
	go func() {
		sig := cancel.New()
		defer sig.Cancel()
		if err := t.Remove(sig, ids...); err != nil {
			t.log.Debugf("background remove of %d id(s) failed: %v", len(ids), err)
		}
	}()
}

// Flush forces any buffered pending removals out as a single Remove command, waiting for the
// engine's reply. It is legal to never call Flush before the session ends (§4.3).
func (t *Transport) Flush(ctx cancel.Context) error {
	t.mu.Lock()
	batch := t.pendingRemove
	t.pendingRemove = nil
	t.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	return t.Remove(ctx, batch...)
}
