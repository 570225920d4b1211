package persistence

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
)

// RequestType selects the worker operation.
type RequestType string

const (
	RequestSerialize   RequestType = "serialize"
	RequestDeserialize RequestType = "deserialize"
	RequestPing        RequestType = "ping"
)

// Options tune one request.
type Options struct {
	ChunkSize       int  `json:"chunkSize"`
	Compress        bool `json:"compress"`
	IncludeProgress bool `json:"includeProgress"`
}

// Request is sent to the worker. Data is a Document for serialize and the
// encoded bytes for deserialize.
type Request struct {
	ID      string      `json:"id"`
	Type    RequestType `json:"type"`
	Data    any         `json:"data"`
	Options Options     `json:"options"`
}

// Response answers exactly one Request. Exactly one of Result and Error is set.
type Response struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Stack  string `json:"stack,omitempty"`
}

// Progress is an out-of-band notification emitted during serialize.
type Progress struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Phase    string `json:"phase"`
	Progress int    `json:"progress"`
}

// Message is one item on the worker's output channel.
type Message struct {
	Progress *Progress
	Response *Response
}

// Progress phases.
const (
	PhaseEncode   = "encode"
	PhaseCompress = "compress"
	PhaseDone     = "done"
)

// Worker serializes and compresses documents on its own goroutine. It
// shares nothing with callers: requests come in on one channel and
// responses and progress go out on another.
type Worker struct {
	requests  chan Request
	out       chan Message
	threshold int
}

// StartWorker launches the worker goroutine. Closing the returned worker's
// input stops it after the current request; Output is closed afterwards.
func StartWorker(threshold int) *Worker {
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	w := &Worker{
		requests:  make(chan Request, 16),
		out:       make(chan Message, 16),
		threshold: threshold,
	}
	go w.loop()
	return w
}

// Input is where requests are sent.
func (w *Worker) Input() chan<- Request { return w.requests }

// Output carries progress notifications and responses.
func (w *Worker) Output() <-chan Message { return w.out }

func (w *Worker) loop() {
	defer close(w.out)
	for req := range w.requests {
		w.out <- Message{Response: w.handle(req)}
	}
}

func (w *Worker) handle(req Request) (resp *Response) {
	resp = &Response{ID: req.ID}
	defer func() {
		if r := recover(); r != nil {
			resp.Result = nil
			resp.Error = fmt.Sprint(r)
			resp.Stack = string(debug.Stack())
		}
	}()
	var (
		result any
		err    error
	)
	switch req.Type {
	case RequestPing:
		result = "pong"
	case RequestSerialize:
		result, err = w.serialize(req)
	case RequestDeserialize:
		result, err = w.deserialize(req)
	default:
		err = fmt.Errorf("unknown request type %q", req.Type)
	}
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Result = result
	return resp
}

func (w *Worker) progress(req Request, phase string, pct int) {
	if !req.Options.IncludeProgress {
		return
	}
	w.out <- Message{Progress: &Progress{ID: req.ID, Type: "progress", Phase: phase, Progress: pct}}
}

func (w *Worker) serialize(req Request) ([]byte, error) {
	doc, ok := req.Data.(Document)
	if !ok {
		return nil, fmt.Errorf("serialize: want Document, got %T", req.Data)
	}
	w.progress(req, PhaseEncode, 0)
	raw, err := EncodeDocument(doc)
	if err != nil {
		return nil, err
	}
	w.progress(req, PhaseEncode, 100)
	if !req.Options.Compress || len(raw) <= w.threshold {
		w.progress(req, PhaseDone, 100)
		return raw, nil
	}
	packed, err := compress(raw, req.Options.ChunkSize, func(pct int) {
		w.progress(req, PhaseCompress, pct)
	})
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	wire, err := json.Marshal(packed)
	if err != nil {
		return nil, fmt.Errorf("serialize: encode wrapper: %w", err)
	}
	w.progress(req, PhaseDone, 100)
	return wire, nil
}

func (w *Worker) deserialize(req Request) (Document, error) {
	data, ok := req.Data.([]byte)
	if !ok {
		return Document{}, fmt.Errorf("deserialize: want []byte, got %T", req.Data)
	}
	if IsCompressed(data) {
		raw, err := decompress(data)
		if err != nil {
			return Document{}, fmt.Errorf("deserialize: %w", err)
		}
		data = raw
	}
	return DecodeDocument(data)
}
