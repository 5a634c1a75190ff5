// Package worker runs a prediction engine on its own goroutine and talks to it
// with messages, so a slow search never holds up key handling.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bastiangx/keyserve/internal/logger"
	"github.com/bastiangx/keyserve/pkg/keys"
	"github.com/bastiangx/keyserve/pkg/predict"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ErrClosed is returned for requests made after Close.
var ErrClosed = errors.New("engine session closed")

const (
	requestBuffer = 64
	eventBuffer   = 64
)

// EventKind says what an Event carries.
type EventKind int

const (
	EventPredictions EventKind = iota
	EventLanguageSet
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventPredictions:
		return "predictions"
	case EventLanguageSet:
		return "languageSet"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a message from the engine goroutine.
type Event struct {
	Kind EventKind
	// ID of the predict request, empty for other kinds.
	ID string
	// Op names the failed operation: "setLanguage", "setNearbyKeys" or "predict".
	Op          string
	Input       string
	Suggestions []predict.Suggestion
	// InputWeight is the dictionary weight of Input itself, 0 when it
	// isn't a word. Input may be a word that didn't make Suggestions.
	InputWeight float64
	Language    string
	Err         error
}

type opKind int

const (
	opPredict opKind = iota
	opSetLanguage
	opSetNearbyKeys
)

type request struct {
	op     opKind
	id     string
	seq    uint64
	input  string
	lang   string
	data   []byte
	nearby keys.NearbyMap
}

// Options configures an EngineSession.
type Options struct {
	Engine predict.Options
	Limits predict.Limits
}

// EngineSession owns one predict.Engine. Requests are handled in order on a
// single goroutine; results come back on Events.
type EngineSession struct {
	engine *predict.Engine
	limits predict.Limits
	log    *log.Logger

	requests chan request
	events   chan Event
	done     chan struct{}
	exited   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	inflight  atomic.Pointer[predict.Search]
	seq       atomic.Uint64
}

// Start creates an EngineSession and its goroutine.
func Start(opts Options) *EngineSession {
	if opts.Limits == (predict.Limits{}) {
		opts.Limits = predict.DefaultLimits
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &EngineSession{
		engine:   predict.NewEngine(opts.Engine),
		limits:   opts.Limits,
		log:      logger.New("worker"),
		requests: make(chan request, requestBuffer),
		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	go s.loop()
	return s
}

// Events is closed once the session has shut down.
func (s *EngineSession) Events() <-chan Event {
	return s.events
}

// Engine exposes the engine for direct, synchronous queries. It is safe
// for concurrent use.
func (s *EngineSession) Engine() *predict.Engine {
	return s.engine
}

// Limits are the limits every predict request runs with.
func (s *EngineSession) Limits() predict.Limits {
	return s.limits
}

// SetLanguage replaces the dictionary. A bad blob leaves the engine without
// a dictionary and is reported as an EventError.
func (s *EngineSession) SetLanguage(lang string, data []byte) error {
	return s.send(request{op: opSetLanguage, lang: lang, data: data})
}

// SetNearbyKeys replaces the nearby-key map.
func (s *EngineSession) SetNearbyKeys(nearby keys.NearbyMap) error {
	return s.send(request{op: opSetNearbyKeys, nearby: nearby.Clone()})
}

// Predict asks for suggestions for word and returns the request id carried
// by the resulting event. A newer Predict aborts the running search and
// makes queued older ones moot.
func (s *EngineSession) Predict(word string) (string, error) {
	id := uuid.NewString()
	seq := s.seq.Add(1)
	if search := s.inflight.Load(); search != nil {
		search.Abort()
	}
	if err := s.send(request{op: opPredict, id: id, seq: seq, input: word}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *EngineSession) send(req request) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.requests <- req:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Close aborts any running search, stops the goroutine and waits for it.
// It is safe to call more than once.
func (s *EngineSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		if search := s.inflight.Load(); search != nil {
			search.Abort()
		}
	})
	<-s.exited
}

// Closed reports whether Close has been called.
func (s *EngineSession) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *EngineSession) loop() {
	defer close(s.exited)
	defer close(s.events)
	s.log.Debug("Engine session started")

	for {
		select {
		case <-s.done:
			s.log.Debug("Engine session stopped")
			return
		case req := <-s.requests:
			switch req.op {
			case opSetLanguage:
				s.setLanguage(req)
			case opSetNearbyKeys:
				s.engine.SetNearbyKeys(req.nearby)
			case opPredict:
				s.predict(req)
			}
		}
	}
}

func (s *EngineSession) setLanguage(req request) {
	if err := s.engine.LoadDictionary(req.data); err != nil {
		s.log.Errorf("Loading dictionary %q: %v", req.lang, err)
		s.emit(Event{Kind: EventError, Op: "setLanguage", Language: req.lang, Err: err})
		return
	}
	s.log.Debugf("Language %q set (%d bytes)", req.lang, len(req.data))
	s.emit(Event{Kind: EventLanguageSet, Language: req.lang})
}

func (s *EngineSession) predict(req request) {
	if req.seq != s.seq.Load() {
		s.log.Debugf("Skipping superseded prediction for %q", req.input)
		return
	}

	search := s.engine.Predict(req.input, s.limits)
	s.inflight.Store(search)
	defer s.inflight.CompareAndSwap(search, nil)
	// A Predict that raced the Store above aborted the previous search.
	if req.seq != s.seq.Load() {
		search.Abort()
	}

	suggestions, err := search.Run(s.ctx)
	switch {
	case predict.IsAborted(err):
		s.log.Debugf("Prediction for %q aborted", req.input)
	case err != nil:
		s.log.Errorf("Predicting %q: %v", req.input, err)
		s.emit(Event{Kind: EventError, ID: req.id, Op: "predict", Input: req.input, Err: err})
	default:
		weight, err := s.engine.WordWeight(req.input)
		if err != nil {
			s.log.Warnf("Looking up %q: %v", req.input, err)
		}
		s.emit(Event{
			Kind:        EventPredictions,
			ID:          req.id,
			Input:       req.input,
			Suggestions: suggestions,
			InputWeight: weight,
		})
	}
}

func (s *EngineSession) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}
