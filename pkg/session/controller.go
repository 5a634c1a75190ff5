// Package session applies predictions to a live text field: it keeps a
// mirror of the field, decides when to ask for suggestions, auto-corrects and
// auto-punctuates on word boundaries and undoes either on the next
// backspace. Every key runs on a TaskQueue, so each one sees the settled
// result of the previous key.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bastiangx/keyserve/internal/logger"
	"github.com/bastiangx/keyserve/pkg/dictionary"
	"github.com/bastiangx/keyserve/pkg/keys"
	"github.com/bastiangx/keyserve/pkg/worker"
	"github.com/charmbracelet/log"
)

// InputMode is the kind of assistance a field gets.
type InputMode string

const (
	// ModeVerbatim types keys as they are.
	ModeVerbatim InputMode = "verbatim"
	// ModeLatin suggests and corrects words.
	ModeLatin InputMode = "latin"
	// ModeProse also capitalizes sentences and fixes punctuation.
	ModeProse InputMode = "latin-prose"
)

// ModeFor picks the mode for a field from its type and inputmode
// attributes. An explicit inputmode wins.
func ModeFor(fieldType, inputMode string) InputMode {
	switch InputMode(inputMode) {
	case ModeVerbatim, ModeLatin, ModeProse:
		return InputMode(inputMode)
	}
	switch inputMode {
	case "numeric", "digit":
		return ModeVerbatim
	}
	switch fieldType {
	case "text", "search":
		return ModeLatin
	case "textarea":
		return ModeProse
	default:
		return ModeVerbatim
	}
}

// Field describes the text field being activated.
type Field struct {
	Type         string
	InputMode    string
	Text         string
	Cursor       int
	SelectionEnd int
	Suggest      bool
	Correct      bool
}

// Config holds the controller's tunables.
type Config struct {
	DictionaryDir string
	Layout        keys.Layout
	// DoubleSpace is how soon a second space turns into ". ".
	DoubleSpace time.Duration
	// AutoRepeatDelay postpones predictions while a key repeats.
	AutoRepeatDelay time.Duration
	// IdleTimeout is how long the engine survives a deactivation.
	IdleTimeout time.Duration
	// AutoCorrectThreshold is how much heavier than the typed word a
	// suggestion must be to replace it.
	AutoCorrectThreshold float64
	// MinMismatchWeight is the least weight a correction one letter longer
	// or shorter than the typed word needs.
	MinMismatchWeight float64
	MaxDisplayed      int
	Worker            worker.Options
	// Now is the clock, time.Now when nil.
	Now func() time.Time
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		DictionaryDir:        "dictionaries",
		Layout:               keys.QWERTY(),
		DoubleSpace:          700 * time.Millisecond,
		AutoRepeatDelay:      250 * time.Millisecond,
		IdleTimeout:          30 * time.Second,
		AutoCorrectThreshold: 1.30,
		MinMismatchWeight:    5,
		MaxDisplayed:         3,
	}
}

// state is what a key may change. It is copied before every key and put
// back if the host rejects an edit.
type state struct {
	buf            buffer
	autoCorrection string
	revertFrom     string
	revertTo       string
	// justAutoCorrected marks the revert pair as an auto-correction.
	justAutoCorrected  bool
	correctionDisabled bool
	// disabledAt is where the word with disabled correction starts.
	disabledAt int
	lastSpace  time.Time
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Text               string
	Cursor             int
	SelectionEnd       int
	Mode               InputMode
	Language           string
	AutoCorrection     string
	RevertFrom         string
	RevertTo           string
	CorrectionDisabled bool
	LastSpace          time.Time
	EngineRunning      bool
}

// Controller is one input method instance.
type Controller struct {
	cfg   Config
	host  Host
	log   *log.Logger
	queue *TaskQueue
	model *keys.Model

	// Everything below is only touched by tasks on queue.
	st           state
	active       bool
	mode         InputMode
	capitalizing bool
	punctuating  bool
	suggesting   bool
	correcting   bool

	language    string
	engine      *worker.EngineSession
	requestID   string // latest predict request
	nearby      keys.NearbyMap
	repeatGen   int
	repeatTimer *time.Timer
	idleTimer   *time.Timer
}

// New creates a controller driving host. Call Close when done.
func New(host Host, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.DictionaryDir == "" {
		cfg.DictionaryDir = def.DictionaryDir
	}
	if len(cfg.Layout.Keys) == 0 {
		cfg.Layout = def.Layout
	}
	if cfg.DoubleSpace <= 0 {
		cfg.DoubleSpace = def.DoubleSpace
	}
	if cfg.AutoRepeatDelay <= 0 {
		cfg.AutoRepeatDelay = def.AutoRepeatDelay
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.AutoCorrectThreshold <= 0 {
		cfg.AutoCorrectThreshold = def.AutoCorrectThreshold
	}
	if cfg.MinMismatchWeight <= 0 {
		cfg.MinMismatchWeight = def.MinMismatchWeight
	}
	if cfg.MaxDisplayed <= 0 {
		cfg.MaxDisplayed = def.MaxDisplayed
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Controller{
		cfg:   cfg,
		host:  host,
		log:   logger.New("session"),
		queue: NewTaskQueue(64),
		model: keys.NewModel(),
		mode:  ModeVerbatim,
	}
	if nearby, _, err := c.model.Update(cfg.Layout); err == nil {
		c.nearby = nearby
	} else {
		c.log.Warnf("Building nearby keys: %v", err)
	}
	return c
}

func (c *Controller) do(ctx context.Context, fn func() error) error {
	return c.queue.Do(ctx, fn)
}

// Activate starts assisting field in language lang. A language that can't
// be loaded leaves the field active without predictions and is returned.
func (c *Controller) Activate(ctx context.Context, lang string, field Field) error {
	return c.do(ctx, func() error {
		c.st = state{buf: newBuffer(field.Text, field.Cursor, field.SelectionEnd)}
		c.active = true
		c.mode = ModeFor(field.Type, field.InputMode)
		c.capitalizing = c.mode == ModeProse
		c.punctuating = c.mode == ModeProse
		c.suggesting = field.Suggest && c.mode != ModeVerbatim
		c.correcting = field.Correct && c.mode != ModeVerbatim

		if c.idleTimer != nil {
			c.idleTimer.Stop()
			c.idleTimer = nil
		}

		c.updateCapitalization()

		var err error
		if c.suggesting || c.correcting {
			err = c.setLanguage(lang)
		}
		c.updateSuggestions(false)
		return err
	})
}

// Deactivate ends assistance for the current field and forgets its state.
// The engine is kept for IdleTimeout in case another field activates soon.
func (c *Controller) Deactivate(ctx context.Context) error {
	return c.do(ctx, func() error {
		c.active = false
		c.stopRepeat()
		c.st = state{buf: newBuffer("", 0, 0)}
		c.requestID = ""
		if c.engine == nil || c.idleTimer != nil {
			return nil
		}
		var timer *time.Timer
		timer = time.AfterFunc(c.cfg.IdleTimeout, func() {
			c.queue.Post(func() {
				if c.idleTimer == timer {
					c.log.Debug("Engine idle, shutting it down")
					c.terminateEngine()
				}
			})
		})
		c.idleTimer = timer
		return nil
	})
}

// SetLanguage switches the dictionary. An empty lang shuts the engine down.
func (c *Controller) SetLanguage(ctx context.Context, lang string) error {
	return c.do(ctx, func() error {
		err := c.setLanguage(lang)
		if err == nil {
			c.updateSuggestions(false)
		}
		return err
	})
}

func (c *Controller) setLanguage(lang string) error {
	if (c.engine == nil && lang == "") || (c.engine != nil && lang == c.language) {
		return nil
	}
	if lang == "" {
		c.terminateEngine()
		return nil
	}

	data, err := c.host.GetData(dictionary.LanguagePath(c.cfg.DictionaryDir, lang))
	if err != nil {
		c.log.Warnf("No dictionary for %q: %v", lang, err)
		c.terminateEngine()
		return fmt.Errorf("loading %q: %w", lang, err)
	}

	if c.engine == nil {
		c.engine = worker.Start(c.cfg.Worker)
		if c.nearby != nil {
			if err := c.engine.SetNearbyKeys(c.nearby); err != nil {
				return err
			}
		}
		go c.pump(c.engine)
	}
	c.language = lang
	return c.engine.SetLanguage(lang, data)
}

// SetLayout tells the engine about new key geometry. Unchanged layouts are
// ignored.
func (c *Controller) SetLayout(ctx context.Context, layout keys.Layout) error {
	return c.do(ctx, func() error {
		if c.mode == ModeVerbatim && c.active {
			return nil
		}
		nearby, changed, err := c.model.Update(layout)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		c.nearby = nearby
		if c.engine != nil {
			if err := c.engine.SetNearbyKeys(nearby); err != nil {
				return err
			}
			c.updateSuggestions(false)
		}
		return nil
	})
}

// SyncText replaces the mirrored field contents after the host changed
// them on its own, for example when the user moved the cursor.
func (c *Controller) SyncText(ctx context.Context, text string, cursor, selectionEnd int) error {
	return c.do(ctx, func() error {
		c.st.buf = newBuffer(text, cursor, selectionEnd)
		c.st.autoCorrection = ""
		c.st.revertFrom, c.st.revertTo = "", ""
		c.st.justAutoCorrected = false
		c.updateCapitalization()
		c.updateSuggestions(false)
		return nil
	})
}

// Click handles one key. It returns once the key and everything it caused
// have been applied.
func (c *Controller) Click(ctx context.Context, code rune, repeat bool) error {
	return c.do(ctx, func() error {
		return c.click(code, repeat)
	})
}

func (c *Controller) click(code rune, repeat bool) error {
	saved := c.st

	if code != keys.CodeBackspace {
		c.st.revertFrom, c.st.revertTo = "", ""
		c.st.justAutoCorrected = false
	}

	var err error
	switch {
	case c.st.buf.hasSelection():
		err = c.handleKey(code, repeat)
	case isBoundary(code):
		err = c.handleCorrections(code)
		if err == nil {
			c.st.correctionDisabled = false
		}
	case code == keys.CodeBackspace:
		err = c.handleBackspace(repeat)
	default:
		err = c.handleKey(code, repeat)
	}
	if err != nil {
		// Text edits the host did accept stay in the mirror.
		buf := c.st.buf
		c.st = saved
		c.st.buf = buf
		c.log.Warnf("Key %q rejected: %v", code, err)
		return err
	}

	c.st.autoCorrection = ""
	c.updateCapitalization()
	c.updateSuggestions(repeat)
	if code == keys.CodeSpace || code == keys.CodeReturn {
		c.host.SetLayoutPage(DefaultLayoutPage)
	}
	if code == keys.CodeSpace {
		c.st.lastSpace = c.cfg.Now()
	} else {
		c.st.lastSpace = time.Time{}
	}
	return nil
}

func isBoundary(code rune) bool {
	switch code {
	case keys.CodeSpace, keys.CodeReturn, '.', '?', '!', ',', ':', ';':
		return true
	}
	return false
}

// Select replaces the word before the cursor with word and a space.
func (c *Controller) Select(ctx context.Context, word string) error {
	return c.do(ctx, func() error {
		return c.selectWord(word)
	})
}

// DismissSuggestions hides the suggestions and types a space.
func (c *Controller) DismissSuggestions(ctx context.Context) error {
	return c.do(ctx, func() error {
		return c.dismiss()
	})
}

// Snapshot returns the current state once every queued task has run.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, func() error {
		snap = Snapshot{
			Text:               c.st.buf.String(),
			Cursor:             c.st.buf.cursor,
			SelectionEnd:       c.st.buf.selEnd,
			Mode:               c.mode,
			Language:           c.language,
			AutoCorrection:     c.st.autoCorrection,
			RevertFrom:         c.st.revertFrom,
			RevertTo:           c.st.revertTo,
			CorrectionDisabled: c.st.correctionDisabled,
			LastSpace:          c.st.lastSpace,
			EngineRunning:      c.engine != nil,
		}
		return nil
	})
	return snap, err
}

// Engine returns the running engine session, or nil.
func (c *Controller) Engine(ctx context.Context) (*worker.EngineSession, error) {
	var es *worker.EngineSession
	err := c.do(ctx, func() error {
		es = c.engine
		return nil
	})
	return es, err
}

// Close shuts the engine down and stops the queue.
func (c *Controller) Close() {
	err := c.do(context.Background(), func() error {
		c.stopRepeat()
		if c.idleTimer != nil {
			c.idleTimer.Stop()
			c.idleTimer = nil
		}
		c.terminateEngine()
		return nil
	})
	if err != nil && !errors.Is(err, ErrStopped) {
		c.log.Warnf("Closing session: %v", err)
	}
	c.queue.Stop()
}

func (c *Controller) terminateEngine() {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	if c.engine == nil {
		return
	}
	c.engine.Close()
	c.engine = nil
	c.language = ""
	c.host.SendCandidates([]Candidate{})
	c.st.autoCorrection = ""
}

// pump forwards engine events onto the queue until the engine closes.
func (c *Controller) pump(es *worker.EngineSession) {
	for ev := range es.Events() {
		if !c.queue.Post(func() { c.handleEvent(es, ev) }) {
			return
		}
	}
}

func (c *Controller) handleEvent(es *worker.EngineSession, ev worker.Event) {
	if es != c.engine {
		return
	}
	switch ev.Kind {
	case worker.EventPredictions:
		c.handlePredictions(ev)
	case worker.EventLanguageSet:
		c.log.Debugf("Language %q ready", ev.Language)
	case worker.EventError:
		c.log.Errorf("Engine %s failed: %v", ev.Op, ev.Err)
		if ev.Op == "setLanguage" {
			c.terminateEngine()
		}
	}
}

func (c *Controller) updateCapitalization() {
	if !c.capitalizing {
		c.host.ResetUpperCase()
		return
	}
	c.host.SetUpperCase(c.st.buf.wantsUpperCase())
}

func (c *Controller) sendKey(code rune, repeat bool) error {
	if err := c.host.SendKey(code, repeat); err != nil {
		return fmt.Errorf("%w: key %d: %v", ErrHostRejected, code, err)
	}
	c.st.buf = c.st.buf.key(code)
	return nil
}

// replaceBeforeCursor swaps old, which must end at the cursor, for s.
func (c *Controller) replaceBeforeCursor(old, s string) error {
	before := len([]rune(old))
	if err := c.host.ReplaceSurroundingText(s, before, 0); err != nil {
		return fmt.Errorf("%w: replacing %q: %v", ErrHostRejected, old, err)
	}
	c.st.buf = c.st.buf.surrounding(s, before, 0)
	return nil
}
