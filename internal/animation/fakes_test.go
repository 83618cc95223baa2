package animation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// eventLog is shared by the fake engine and writer so tests can check the
// relative order of starts, stops and writes.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Program bytes for the fake engine: [kind, tag, n].
//
//	'L' loops forever
//	'E' ends after n frames
//	'F' faults after n frames
//	'W' produces frames one pixel too short
type fakeProgram struct {
	kind byte
	tag  byte
	n    int
}

type fakeEngine struct {
	log       *eventLog
	mu        sync.Mutex
	instances int
}

func (e *fakeEngine) Decode(data []byte) (Program, error) {
	if len(data) != 3 {
		return nil, errors.New("bad program length")
	}
	switch data[0] {
	case 'L', 'E', 'F', 'W':
	default:
		return nil, fmt.Errorf("unknown program kind %q", data[0])
	}
	return &fakeProgram{kind: data[0], tag: data[1], n: int(data[2])}, nil
}

func (e *fakeEngine) NewInstance(pixels int) Instance {
	e.mu.Lock()
	e.instances++
	e.mu.Unlock()
	return &fakeInstance{log: e.log, pixels: pixels}
}

func (e *fakeEngine) instanceCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instances
}

type fakeInstance struct {
	log     *eventLog
	pixels  int
	running bool
}

func (i *fakeInstance) Start(p Program) Running {
	if i.running {
		panic("fake: instance started twice")
	}
	i.running = true
	prog := p.(*fakeProgram)
	i.log.add("start:%c", prog.tag)
	return &fakeRunning{inst: i, prog: prog, frame: make(Frame, i.pixels)}
}

func (i *fakeInstance) Resize(pixels int) {
	if i.running {
		panic("fake: resize while running")
	}
	i.log.add("resize:%d", pixels)
	i.pixels = pixels
}

type fakeRunning struct {
	inst  *fakeInstance
	prog  *fakeProgram
	steps int
	frame Frame
}

func (r *fakeRunning) Step() (Frame, error) {
	switch r.prog.kind {
	case 'E':
		if r.steps >= r.prog.n {
			return nil, ErrProgramEnded
		}
	case 'F':
		if r.steps >= r.prog.n {
			return nil, errors.New("stack underflow")
		}
	case 'W':
		r.steps++
		return r.frame[:len(r.frame)-1], nil
	}
	r.steps++
	for i := range r.frame {
		r.frame[i] = Pixel{R: r.prog.tag, G: uint8(r.steps), B: 200, W: 10}
	}
	return r.frame, nil
}

func (r *fakeRunning) Stop() (Instance, Program) {
	r.inst.running = false
	r.inst.log.add("stop:%c", r.prog.tag)
	return r.inst, r.prog
}

type fakeWriter struct {
	log    *eventLog
	mu     sync.Mutex
	frames []Frame
	fail   error
}

func (w *fakeWriter) Write(f Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail != nil {
		return w.fail
	}
	w.frames = append(w.frames, append(Frame(nil), f...))
	w.log.add("write:%c", f[0].R)
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.frames)
}

func (w *fakeWriter) written() []Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Frame(nil), w.frames...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type rig struct {
	engine *fakeEngine
	writer *fakeWriter
	log    *eventLog
	coord  *Coordinator
	client *Client
}

func startCoordinator(t *testing.T, cfg Config, opts Options) *rig {
	t.Helper()
	log := &eventLog{}
	r := &rig{
		engine: &fakeEngine{log: log},
		writer: &fakeWriter{log: log},
		log:    log,
	}
	opts.Logger = quietLogger()
	c, err := NewCoordinator(r.engine, r.writer, cfg, opts)
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	r.coord, r.client = c, c.Client()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (r *rig) state(t *testing.T) PlaybackStatus {
	t.Helper()
	st, err := r.client.State(context.Background())
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	return st
}

func (r *rig) load(t *testing.T, data ...byte) ProgramInfo {
	t.Helper()
	info, err := r.client.LoadProgram(context.Background(), data)
	if err != nil {
		t.Fatalf("LoadProgram(%q) error = %v", data, err)
	}
	return info
}
