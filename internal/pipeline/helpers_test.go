package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// fakeHandle counts live sessions through its connector.
type fakeHandle struct {
	conn   *fakeConnector
	closed atomic.Int32
}

func (h *fakeHandle) Close() error {
	if h.closed.Add(1) == 1 {
		h.conn.live.Add(-1)
	}
	return h.conn.closeErr
}

type fakeConnector struct {
	live      atomic.Int32
	opens     atomic.Int32
	failFirst int
	openErr   error
	closeErr  error
	handles   []*fakeHandle
	mu        sync.Mutex
}

func (c *fakeConnector) Open(_ context.Context) (*fakeHandle, error) {
	n := int(c.opens.Add(1))
	if c.openErr != nil && (c.failFirst == 0 || n <= c.failFirst) {
		return nil, c.openErr
	}
	c.live.Add(1)
	h := &fakeHandle{conn: c}
	c.mu.Lock()
	c.handles = append(c.handles, h)
	c.mu.Unlock()
	return h, nil
}

func (c *fakeConnector) Describe() string { return "fake://target" }

// recordingObserver captures events for assertions.
type recordingObserver struct {
	mu     sync.Mutex
	events []Event
	lines  []string
}

func (o *recordingObserver) Printf(format string, _ ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lines = append(o.lines, format)
}

func (o *recordingObserver) Event(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) WithFields(map[string]string) Observer { return o }

func (o *recordingObserver) ofType(t EventType) []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Event
	for _, e := range o.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func okStep(name string, calls *[]string) Step[*fakeHandle] {
	return StepFunc[*fakeHandle]{StepName: name, Fn: func(_ context.Context, _ *fakeHandle, _ Recorder) (*StepResult, error) {
		*calls = append(*calls, name)
		return &StepResult{Output: name + " done"}, nil
	}}
}

func failStep(name string, err error, calls *[]string) Step[*fakeHandle] {
	return StepFunc[*fakeHandle]{StepName: name, Fn: func(_ context.Context, _ *fakeHandle, _ Recorder) (*StepResult, error) {
		*calls = append(*calls, name)
		return nil, err
	}}
}

var errBoom = errors.New("boom")

// observerFunc forwards events to a function.
type observerFunc func(Event)

func (f observerFunc) Printf(string, ...any)                 {}
func (f observerFunc) Event(e Event)                         { f(e) }
func (f observerFunc) WithFields(map[string]string) Observer { return f }
