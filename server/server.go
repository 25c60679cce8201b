// Package server exposes the editor over HTTP.
//
// The Model is not safe for concurrent use, so one goroutine owns it: the
// loop started by Run. HTTP handlers never touch the model directly; they send
// a closure to the loop with Do and wait for it to finish. The loop also
// processes the messages of the broker, fans the changes out to the event
// stream subscribers, advances the play cursor and reloads the project file
// when it changes on disk.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/stepseq/stepseq"
	"github.com/stepseq/stepseq/editor"
	"github.com/stepseq/stepseq/storage"
)

type (
	Options struct {
		// ProjectPath is the project file that is opened at start and that
		// /api/v1/save writes. Empty means a new project.
		ProjectPath string
		// Watch reloads ProjectPath when another program changes it.
		Watch      bool
		MaxHistory int
		// SampleDir receives uploaded samples. Empty means a temporary
		// directory that is removed when Run returns.
		SampleDir string
		// StepsPerBeat and the tempo of the project give the speed of the
		// play cursor.
		StepsPerBeat int
	}

	Server struct {
		opts   Options
		model  *editor.Model
		broker *editor.Broker
		store  *storage.Store
		cursor *editor.PlayCursor
		ops    chan func(*editor.Model)

		mu          sync.Mutex
		subscribers map[chan editor.Change]struct{}

		// lastSave is when the loop last wrote ProjectPath itself, to not
		// reload our own writes.
		lastSave time.Time
		running  chan struct{}
		stopped  chan struct{}
	}
)

// ErrStopped is returned by Do once Run has returned.
var ErrStopped = errors.New("server stopped")

// New returns a Server for the options. store can be nil, in which case the
// project endpoints answer 503.
func New(opts Options, store *storage.Store) *Server {
	if opts.StepsPerBeat < 1 {
		opts.StepsPerBeat = 4
	}
	s := &Server{
		opts:        opts,
		broker:      editor.NewBroker(),
		store:       store,
		cursor:      &editor.PlayCursor{},
		ops:         make(chan func(*editor.Model)),
		subscribers: map[chan editor.Change]struct{}{},
		running:     make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	s.model = editor.NewModel(s.broker, editor.ReleaserFunc(s.releaseSample), opts.MaxHistory)
	return s
}

// Run opens the project and runs the model loop until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.stopped)
	if s.opts.SampleDir == "" {
		dir, err := os.MkdirTemp("", "stepseq-samples-")
		if err != nil {
			return fmt.Errorf("could not create sample directory: %w", err)
		}
		defer os.RemoveAll(dir)
		s.opts.SampleDir = dir
	} else if err := os.MkdirAll(s.opts.SampleDir, 0o755); err != nil {
		return fmt.Errorf("could not create sample directory: %w", err)
	}
	if s.opts.ProjectPath != "" {
		if err := s.model.Open(s.opts.ProjectPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	var changes <-chan struct{}
	if s.opts.Watch && s.opts.ProjectPath != "" {
		w, err := watchFile(ctx, s.opts.ProjectPath)
		if err != nil {
			return err
		}
		changes = w
	}
	bpm := s.model.Transport().State().BPM
	ticker := time.NewTicker(s.stepDuration(bpm))
	defer ticker.Stop()
	defer s.model.Close()
	close(s.running)
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-s.ops:
			f(s.model)
		case msg := <-s.broker.ToModel:
			if e, ok := msg.Data.(editor.SampleLoadFailed); ok {
				log.Printf("loading a sample for channel %d failed: %v", e.Channel, e.Err)
			}
			s.model.ProcessMsg(msg)
		case c := <-s.broker.ToGUI:
			s.publish(c)
		case <-changes:
			if time.Since(s.lastSave) < time.Second {
				continue
			}
			if err := s.model.Open(s.opts.ProjectPath); err != nil {
				log.Printf("reloading %s failed: %v", s.opts.ProjectPath, err)
				continue
			}
			log.Printf("reloaded %s", s.opts.ProjectPath)
		case <-ticker.C:
			s.cursor.Advance(s.model.Channels().Width().Value(), s.model.Transport().Loop().Value())
		}
		if t := s.model.Transport().State().BPM; t != bpm {
			bpm = t
			ticker.Reset(s.stepDuration(bpm))
		}
	}
}

// Do runs f in the model loop and waits for it to return.
func (s *Server) Do(ctx context.Context, f func(*editor.Model)) error {
	done := make(chan struct{})
	op := func(m *editor.Model) {
		defer close(done)
		f(m)
	}
	select {
	case s.ops <- op:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running is closed once the loop accepts work.
func (s *Server) Running() <-chan struct{} { return s.running }

func (s *Server) Cursor() *editor.PlayCursor { return s.cursor }

// Subscribe returns a channel receiving every change of the model and a
// function to stop the subscription. Slow subscribers miss changes rather
// than stall the loop.
func (s *Server) Subscribe() (<-chan editor.Change, func()) {
	c := make(chan editor.Change, 64)
	s.mu.Lock()
	s.subscribers[c] = struct{}{}
	s.mu.Unlock()
	return c, func() {
		s.mu.Lock()
		delete(s.subscribers, c)
		s.mu.Unlock()
	}
}

func (s *Server) publish(c editor.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subscribers {
		editor.TrySend(sub, c)
	}
}

func (s *Server) stepDuration(bpm float64) time.Duration {
	return time.Duration(float64(time.Minute) / (stepseq.ClampBPM(bpm) * float64(s.opts.StepsPerBeat)))
}

// save writes the project file from within the loop.
func (s *Server) save(m *editor.Model) error {
	if s.opts.ProjectPath == "" {
		return errors.New("no project file")
	}
	s.lastSave = time.Now()
	return m.Save(s.opts.ProjectPath)
}

// releaseSample deletes an uploaded sample once the editor no longer refers to
// it. Samples outside the upload directory are left alone.
func (s *Server) releaseSample(ref stepseq.SampleRef) {
	path := filepath.Clean(string(ref))
	if rel, err := filepath.Rel(s.opts.SampleDir, path); err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("could not remove sample %s: %v", path, err)
	}
}
