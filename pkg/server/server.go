package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/keyserve/internal/logger"
	"github.com/bastiangx/keyserve/pkg/config"
	"github.com/bastiangx/keyserve/pkg/dictionary"
	"github.com/bastiangx/keyserve/pkg/keys"
	"github.com/bastiangx/keyserve/pkg/predict"
	"github.com/bastiangx/keyserve/pkg/session"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCompleteLimit = 20
	outputBuffer         = 256
)

// Server answers IPC requests for one input session.
type Server struct {
	cfg     *config.Config
	ctrl    *session.Controller
	catalog *dictionary.Catalog
	log     *log.Logger

	dec *msgpack.Decoder
	enc *msgpack.Encoder

	out      chan any
	done     chan struct{}
	doneOnce sync.Once

	indexMu  sync.Mutex
	index    *dictionary.Index
	indexFor *dictionary.Dictionary
}

// NewServer creates a server reading requests from r and writing responses
// and notifications to w. Dictionaries are read from dictDir.
func NewServer(cfg *config.Config, dictDir string, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:     cfg,
		catalog: dictionary.NewCatalog(dictDir),
		log:     logger.New("server"),
		dec:     msgpack.NewDecoder(r),
		enc:     msgpack.NewEncoder(w),
		out:     make(chan any, outputBuffer),
		done:    make(chan struct{}),
	}
	s.enc.UseCompactInts(true)
	s.ctrl = session.New(&ipcHost{s: s}, cfg.SessionConfig(dictDir))
	return s
}

// NewStdioServer serves over the process's stdin and stdout.
func NewStdioServer(cfg *config.Config, dictDir string) *Server {
	return NewServer(cfg, dictDir, os.Stdin, os.Stdout)
}

// Start runs until the input ends or ctx is cancelled. Reaching the end of
// the input is not an error.
func (s *Server) Start(ctx context.Context) error {
	s.log.Debug("Starting server")
	defer s.ctrl.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.writeLoop()
	})
	g.Go(func() error {
		defer s.stop()
		return s.readLoop(ctx)
	})
	return g.Wait()
}

func (s *Server) stop() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Server) readLoop(ctx context.Context) error {
	s.send(map[string]string{"status": "ready"})
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.log.Errorf("Decoding request: %v", err)
			return fmt.Errorf("reading request: %w", err)
		}
		s.handleRequest(ctx, req)
	}
}

// writeLoop is the only writer of the output stream. Whatever is queued
// when the reader stops is still written.
func (s *Server) writeLoop() error {
	for {
		select {
		case msg := <-s.out:
			if err := s.enc.Encode(msg); err != nil {
				s.stop()
				return fmt.Errorf("writing message: %w", err)
			}
		case <-s.done:
			for {
				select {
				case msg := <-s.out:
					if err := s.enc.Encode(msg); err != nil {
						return fmt.Errorf("writing message: %w", err)
					}
				default:
					return nil
				}
			}
		}
	}
}

func (s *Server) send(msg any) {
	select {
	case s.out <- msg:
	case <-s.done:
	}
}

func (s *Server) notify(n Notification) {
	s.send(n)
}

func (s *Server) respond(req Request, resp Response) {
	resp.ID = req.ID
	if resp.Status == "" {
		resp.Status = statusOK
	}
	s.send(resp)
}

func (s *Server) fail(req Request, err error) {
	s.log.Debugf("Request %s (%s) failed: %v", req.ID, req.Action, err)
	s.send(Response{ID: req.ID, Status: statusError, Error: err.Error()})
}

func (s *Server) handleRequest(ctx context.Context, req Request) {
	start := time.Now()
	var err error
	switch req.Action {
	case "activate":
		err = s.handleActivate(ctx, req)
	case "deactivate":
		err = s.ctrl.Deactivate(ctx)
	case "key":
		err = s.ctrl.Click(ctx, req.Key, req.Repeat)
	case "select":
		err = s.ctrl.Select(ctx, req.Word)
	case "dismiss":
		err = s.ctrl.DismissSuggestions(ctx)
	case "language":
		if req.Lang != "" && !s.catalog.Has(req.Lang) {
			err = fmt.Errorf("no dictionary for %q in %s", req.Lang, s.catalog.Dir())
			break
		}
		err = s.ctrl.SetLanguage(ctx, req.Lang)
	case "layout":
		layout, ok := keys.Named(req.Layout)
		if !ok {
			err = fmt.Errorf("unknown layout %q", req.Layout)
			break
		}
		err = s.ctrl.SetLayout(ctx, layout)
	case "sync":
		if req.Field == nil {
			err = errors.New("missing field")
			break
		}
		err = s.ctrl.SyncText(ctx, req.Field.Text, req.Field.Cursor, req.Field.SelectionEnd)
	case "state":
		s.handleState(ctx, req)
		return
	case "predict":
		s.handlePredict(ctx, req, start)
		return
	case "next":
		s.handleNext(ctx, req)
		return
	case "complete":
		s.handleComplete(ctx, req)
		return
	case "languages":
		s.handleLanguages(req)
		return
	case "health":
		s.respond(req, Response{})
		return
	default:
		err = fmt.Errorf("unknown action: %q", req.Action)
	}

	if err != nil {
		s.fail(req, err)
		return
	}
	s.respond(req, Response{TimeTaken: time.Since(start).Microseconds()})
}

func (s *Server) handleActivate(ctx context.Context, req Request) error {
	field := session.Field{
		Suggest: s.cfg.Session.Suggest,
		Correct: s.cfg.Session.Correct,
	}
	if f := req.Field; f != nil {
		field.Type = f.Type
		field.InputMode = f.InputMode
		field.Text = f.Text
		field.Cursor = f.Cursor
		field.SelectionEnd = f.SelectionEnd
		if f.Suggest != nil {
			field.Suggest = *f.Suggest
		}
		if f.Correct != nil {
			field.Correct = *f.Correct
		}
	}
	return s.ctrl.Activate(ctx, req.Lang, field)
}

func (s *Server) handleState(ctx context.Context, req Request) {
	snap, err := s.ctrl.Snapshot(ctx)
	if err != nil {
		s.fail(req, err)
		return
	}
	s.respond(req, Response{State: &StateInfo{
		Text:           snap.Text,
		Cursor:         snap.Cursor,
		SelectionEnd:   snap.SelectionEnd,
		Mode:           string(snap.Mode),
		Language:       snap.Language,
		AutoCorrection: snap.AutoCorrection,
		EngineRunning:  snap.EngineRunning,
	}})
}

// checkInput validates a lookup prefix against the configured maximum.
func (s *Server) checkInput(req Request, allowEmpty bool) error {
	if req.Prefix == "" && !allowEmpty {
		return errors.New("missing 'p' parameter")
	}
	if limit := s.cfg.Server.MaxInput; limit > 0 && utf8.RuneCountInString(req.Prefix) > limit {
		return fmt.Errorf("input exceeds maximum length of %d characters", limit)
	}
	return nil
}

func (s *Server) handlePredict(ctx context.Context, req Request, start time.Time) {
	if err := s.checkInput(req, false); err != nil {
		s.fail(req, err)
		return
	}
	es, err := s.ctrl.Engine(ctx)
	if err != nil {
		s.fail(req, err)
		return
	}
	if es == nil {
		s.fail(req, errors.New("no language loaded"))
		return
	}

	limits := es.Limits()
	if req.Limit > 0 {
		limits.MaxSuggestions = min(req.Limit, predict.MaxLimits.MaxSuggestions)
	}
	found, err := es.Engine().Predict(req.Prefix, limits).Run(ctx)
	if err != nil {
		s.fail(req, err)
		return
	}

	suggestions := make([]Suggestion, len(found))
	for i, f := range found {
		suggestions[i] = Suggestion{Word: f.Word, Rank: uint16(i + 1), Weight: f.Weight}
	}
	s.respond(req, Response{
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

func (s *Server) handleNext(ctx context.Context, req Request) {
	if err := s.checkInput(req, true); err != nil {
		s.fail(req, err)
		return
	}
	es, err := s.ctrl.Engine(ctx)
	if err != nil {
		s.fail(req, err)
		return
	}
	if es == nil {
		s.fail(req, errors.New("no language loaded"))
		return
	}

	next, err := es.Engine().PredictNextChar(req.Prefix)
	if err != nil {
		s.fail(req, err)
		return
	}
	chars := make([]NextChar, len(next))
	for i, n := range next {
		c := ""
		if n.Char != 0 {
			c = string(n.Char)
		}
		chars[i] = NextChar{Char: c, Frequency: n.Frequency}
	}
	s.respond(req, Response{Chars: chars, Count: len(chars)})
}

func (s *Server) handleComplete(ctx context.Context, req Request) {
	if err := s.checkInput(req, false); err != nil {
		s.fail(req, err)
		return
	}
	idx, err := s.currentIndex(ctx)
	if err != nil {
		s.fail(req, err)
		return
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultCompleteLimit
	}
	words := idx.Complete(req.Prefix, limit)
	s.respond(req, Response{Words: words, Count: len(words)})
}

// currentIndex returns a word index over the loaded dictionary, built on
// first use and rebuilt when the language changes.
func (s *Server) currentIndex(ctx context.Context) (*dictionary.Index, error) {
	es, err := s.ctrl.Engine(ctx)
	if err != nil {
		return nil, err
	}
	if es == nil {
		return nil, errors.New("no language loaded")
	}
	dict := es.Engine().Dictionary()
	if dict == nil {
		return nil, errors.New("dictionary not loaded yet")
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if s.index != nil && s.indexFor == dict {
		return s.index, nil
	}
	idx, err := dictionary.NewIndex(dict)
	if err != nil {
		return nil, fmt.Errorf("indexing dictionary: %w", err)
	}
	s.index, s.indexFor = idx, dict
	return idx, nil
}

func (s *Server) handleLanguages(req Request) {
	langs, err := s.catalog.Languages()
	if err != nil {
		s.fail(req, err)
		return
	}
	s.respond(req, Response{Languages: langs, Count: len(langs)})
}
