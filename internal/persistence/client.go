package persistence

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/kingrea/slayer-suite/internal/domain"
	"github.com/kingrea/slayer-suite/internal/logging"
)

// ClientOption customizes a Client.
type ClientOption func(*Client)

// ClientWithLogger injects a logger.
func ClientWithLogger(logger logging.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ClientWithOptions sets the options sent with every serialize request.
func ClientWithOptions(opts Options) ClientOption {
	return func(c *Client) {
		c.opts = opts
	}
}

// ClientWithTimeout bounds how long a call waits when ctx has no deadline.
func ClientWithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// ClientWithProgress registers a callback for progress notifications. It
// runs on the client's reader goroutine.
func ClientWithProgress(fn func(Progress)) ClientOption {
	return func(c *Client) {
		c.onProgress = fn
	}
}

type pending struct {
	reply    chan Response
	heavy    bool
	released bool
}

// Client talks to a Worker by correlation id. Only one serialize or
// deserialize may be outstanding at a time; the slot is freed when the
// worker answers, even if the caller already stopped waiting.
type Client struct {
	worker     *Worker
	heavy      *semaphore.Weighted
	opts       Options
	timeout    time.Duration
	onProgress func(Progress)
	logger     logging.Logger

	pendingMu sync.Mutex
	pending   map[string]*pending

	// sendMu guards closed and the worker's input channel.
	sendMu    sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewClient starts a worker and the goroutine that reads its replies.
func NewClient(threshold int, opts ...ClientOption) *Client {
	c := &Client{
		worker:  StartWorker(threshold),
		heavy:   semaphore.NewWeighted(1),
		opts:    Options{ChunkSize: DefaultChunkSize, Compress: true, IncludeProgress: true},
		timeout: 30 * time.Second,
		logger:  logging.Nop(),
		pending: map[string]*pending{},
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	go c.read()
	return c
}

func (c *Client) read() {
	defer close(c.done)
	for msg := range c.worker.Output() {
		if msg.Progress != nil {
			if c.onProgress != nil {
				c.onProgress(*msg.Progress)
			}
			continue
		}
		if msg.Response == nil {
			continue
		}
		c.pendingMu.Lock()
		p, ok := c.pending[msg.Response.ID]
		delete(c.pending, msg.Response.ID)
		c.pendingMu.Unlock()
		if !ok {
			c.logger.Warnf("persistence: response for unknown request %s", msg.Response.ID)
			continue
		}
		c.release(p)
		p.reply <- *msg.Response
	}
	c.pendingMu.Lock()
	for id, p := range c.pending {
		c.release(p)
		close(p.reply)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}

func (c *Client) release(p *pending) {
	if p.heavy && !p.released {
		p.released = true
		c.heavy.Release(1)
	}
}

// Serialize encodes doc, compressing it when it is large. The result is the
// exact bytes to write to disk.
func (c *Client) Serialize(ctx context.Context, doc Document) ([]byte, error) {
	result, err := c.call(ctx, RequestSerialize, cloneDocument(doc), true)
	if err != nil {
		return nil, err
	}
	data, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: serialize returned %T", ErrWorkerFailure, result)
	}
	return data, nil
}

// Deserialize decodes bytes produced by Serialize or by older saves.
func (c *Client) Deserialize(ctx context.Context, data []byte) (Document, error) {
	result, err := c.call(ctx, RequestDeserialize, bytes.Clone(data), true)
	if err != nil {
		return Document{}, err
	}
	doc, ok := result.(Document)
	if !ok {
		return Document{}, fmt.Errorf("%w: deserialize returned %T", ErrWorkerFailure, result)
	}
	return doc, nil
}

// Ping checks the worker is alive. It is allowed while a heavy request is
// outstanding.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := c.call(ctx, RequestPing, nil, false); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

func (c *Client) call(ctx context.Context, kind RequestType, data any, heavy bool) (any, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if heavy && !c.heavy.TryAcquire(1) {
		return nil, ErrWorkerBusy
	}
	id := uuid.NewString()
	p := &pending{reply: make(chan Response, 1), heavy: heavy}

	c.pendingMu.Lock()
	c.pending[id] = p
	c.pendingMu.Unlock()

	req := Request{ID: id, Type: kind, Data: data, Options: c.opts}
	if err := c.send(ctx, req); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.release(p)
		c.pendingMu.Unlock()
		return nil, err
	}

	select {
	case resp, ok := <-p.reply:
		if !ok {
			return nil, ErrWorkerClosed
		}
		if resp.Error != "" {
			return nil, &WorkerError{ID: resp.ID, Message: resp.Error, Stack: resp.Stack}
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("persistence: %s %s: %w", kind, id, ctx.Err())
	}
}

func (c *Client) send(ctx context.Context, req Request) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed {
		return ErrWorkerClosed
	}
	select {
	case c.worker.Input() <- req:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("persistence: send %s: %w", req.Type, ctx.Err())
	}
}

// Close stops the worker and waits for the reader to drain. Requests already
// queued are still answered; later calls fail with ErrWorkerClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.closed = true
		close(c.worker.requests)
		c.sendMu.Unlock()
	})
	<-c.done
	return nil
}

func cloneDocument(doc Document) Document {
	out := doc
	out.Apps = make(map[string]AppEntry, len(doc.Apps))
	for name, entry := range doc.Apps {
		entry.Data = domain.CloneMap(entry.Data)
		out.Apps[name] = entry
	}
	return out
}
