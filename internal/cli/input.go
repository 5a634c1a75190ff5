// Package cli runs an input session against stdin for debugging.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/bastiangx/keyserve/pkg/config"
	"github.com/bastiangx/keyserve/pkg/dictionary"
	"github.com/bastiangx/keyserve/pkg/keys"
	"github.com/bastiangx/keyserve/pkg/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	// predictionWait bounds how long a line waits for fresh suggestions.
	predictionWait = 500 * time.Millisecond
	loadWait       = 5 * time.Second
	boundaryKeys   = " .,?!;:"
)

var (
	wordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	autoStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	textStyle = lipgloss.NewStyle().Italic(true)
)

// InputHandler types each line of input into an in-memory text field.
//
// A line is typed key by key, spaces and punctuation included, with shift
// applied the way the session asks. A few prefixes are commands instead:
//
//	#N       select suggestion N
//	<N       press backspace N times (1 if N is missing)
//	/        press return
//	-        dismiss the suggestions
//	?prefix  list dictionary words starting with prefix
//	!        clear the field
type InputHandler struct {
	cfg     *config.Config
	dictDir string
	lang    string
	limit   int

	host *session.BufferHost
	ctrl *session.Controller
	in   io.Reader
}

// NewInputHandler creates a handler for lang with dictionaries in dictDir.
// limit caps the "?" listing.
func NewInputHandler(cfg *config.Config, dictDir, lang string, limit int) *InputHandler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &InputHandler{cfg: cfg, dictDir: dictDir, lang: lang, limit: limit, in: os.Stdin}
}

// Start begins the interface loop. It returns when stdin ends.
func (h *InputHandler) Start() error {
	ctx := context.Background()
	h.host = session.NewBufferHost("", 0)
	h.host.Root = h.dictDir
	h.ctrl = session.New(h.host, h.cfg.SessionConfig("."))
	defer func() { h.ctrl.Close() }()

	field := session.Field{Type: "textarea", Suggest: true, Correct: true}
	if err := h.ctrl.Activate(ctx, h.lang, field); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	if err := h.waitForDictionary(ctx); err != nil {
		return err
	}

	log.Print("keyserve CLI")
	log.Print("type something and press Enter (Ctrl+C to exit)")
	reader := bufio.NewReader(h.in)
	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			if err := h.handleInput(ctx, line); err != nil {
				log.Errorf("%v", err)
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}

func (h *InputHandler) handleInput(ctx context.Context, line string) error {
	_, before := h.host.Candidates()
	start := time.Now()

	switch {
	case strings.HasPrefix(line, "?"):
		return h.listWords(ctx, strings.TrimPrefix(line, "?"))
	case line == "!":
		if err := h.restart(ctx); err != nil {
			return err
		}
		h.show()
		return nil
	case line == "-":
		if err := h.ctrl.DismissSuggestions(ctx); err != nil {
			return err
		}
	case line == "/":
		if err := h.ctrl.Click(ctx, keys.CodeReturn, false); err != nil {
			return err
		}
	case strings.HasPrefix(line, "<"):
		n := 1
		if rest := strings.TrimPrefix(line, "<"); rest != "" {
			var err error
			if n, err = strconv.Atoi(rest); err != nil {
				return fmt.Errorf("bad backspace count %q", rest)
			}
		}
		for i := 0; i < n; i++ {
			if err := h.ctrl.Click(ctx, keys.CodeBackspace, false); err != nil {
				return err
			}
		}
	case strings.HasPrefix(line, "#"):
		n, err := strconv.Atoi(strings.TrimPrefix(line, "#"))
		candidates, _ := h.host.Candidates()
		if err != nil || n < 1 || n > len(candidates) {
			return fmt.Errorf("no suggestion %q", line)
		}
		if err := h.ctrl.Select(ctx, candidates[n-1].Word); err != nil {
			return err
		}
	default:
		pending := -1
		for _, r := range line {
			// Give the word a chance to be corrected before it ends.
			if pending >= 0 && strings.ContainsRune(boundaryKeys, r) {
				h.waitForCandidates(pending)
			}
			_, pending = h.host.Candidates()
			if upper, _ := h.host.UpperCase(); upper {
				r = unicode.ToUpper(r)
			}
			if err := h.ctrl.Click(ctx, r, false); err != nil {
				return err
			}
		}
	}

	h.waitForCandidates(before)
	log.Debugf("Took [ %v ]", time.Since(start))
	h.show()
	return nil
}

// restart activates an empty field.
func (h *InputHandler) restart(ctx context.Context) error {
	h.ctrl.Close()
	h.host = session.NewBufferHost("", 0)
	h.host.Root = h.dictDir
	h.ctrl = session.New(h.host, h.cfg.SessionConfig("."))
	if err := h.ctrl.Activate(ctx, h.lang, session.Field{Type: "textarea", Suggest: true, Correct: true}); err != nil {
		return err
	}
	return h.waitForDictionary(ctx)
}

func (h *InputHandler) waitForDictionary(ctx context.Context) error {
	deadline := time.Now().Add(loadWait)
	for time.Now().Before(deadline) {
		es, err := h.ctrl.Engine(ctx)
		if err != nil {
			return err
		}
		if es != nil && es.Engine().Ready() {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("dictionary for %q did not load", h.lang)
}

func (h *InputHandler) waitForCandidates(before int) {
	deadline := time.Now().Add(predictionWait)
	for time.Now().Before(deadline) {
		if _, calls := h.host.Candidates(); calls > before {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *InputHandler) show() {
	text, cursor := h.host.Text()
	runes := []rune(text)
	log.Printf("field: %s", textStyle.Render(strconv.Quote(string(runes[:cursor])+"|"+string(runes[cursor:]))))

	candidates, _ := h.host.Candidates()
	if len(candidates) == 0 {
		return
	}
	for i, c := range candidates {
		word := wordStyle.Render(c.Word)
		if c.AutoCorrect {
			word = autoStyle.Render(c.Word) + " (auto)"
		}
		log.Printf("%2d. %s", i+1, word)
	}
}

func (h *InputHandler) listWords(ctx context.Context, prefix string) error {
	es, err := h.ctrl.Engine(ctx)
	if err != nil {
		return err
	}
	if es == nil || es.Engine().Dictionary() == nil {
		return fmt.Errorf("no dictionary loaded for %q", h.lang)
	}
	idx, err := dictionary.NewIndex(es.Engine().Dictionary())
	if err != nil {
		return err
	}
	words := idx.Complete(prefix, h.limit)
	if len(words) == 0 {
		log.Warnf("No words start with '%s'", prefix)
		return nil
	}
	log.Printf("Found %d words for prefix '%s':", len(words), prefix)
	for i, w := range words {
		log.Printf("%2d. %-30s (freq: %2d)", i+1, wordStyle.Render(w.Word), w.Frequency)
	}
	return nil
}
