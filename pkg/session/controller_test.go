package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/bastiangx/keyserve/internal/dicttest"
	"github.com/bastiangx/keyserve/pkg/keys"
	"github.com/bastiangx/keyserve/pkg/predict"
	"github.com/bastiangx/keyserve/pkg/worker"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

var equateEmpty = cmpopts.EquateEmpty()

// newOffline activates a controller without an engine. Predictions are fed
// in with predictions().
func newOffline(t *testing.T, host *BufferHost, field Field, clock *fakeClock) *Controller {
	t.Helper()
	cfg := Config{}
	if clock != nil {
		cfg.Now = clock.Now
	}
	c := New(host, cfg)
	t.Cleanup(c.Close)
	if err := c.Activate(context.Background(), "", field); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	return c
}

func typeText(t *testing.T, c *Controller, s string) {
	t.Helper()
	for _, r := range s {
		if err := c.Click(context.Background(), r, false); err != nil {
			t.Fatalf("Click(%q): %v", r, err)
		}
	}
}

func click(t *testing.T, c *Controller, code rune) {
	t.Helper()
	if err := c.Click(context.Background(), code, false); err != nil {
		t.Fatalf("Click(%d): %v", code, err)
	}
}

func predictions(t *testing.T, c *Controller, input string, list ...predict.Suggestion) {
	t.Helper()
	err := c.do(context.Background(), func() error {
		c.handlePredictions(worker.Event{Kind: worker.EventPredictions, Input: input, Suggestions: list})
		return nil
	})
	if err != nil {
		t.Fatalf("handlePredictions: %v", err)
	}
}

func snapshot(t *testing.T, c *Controller) Snapshot {
	t.Helper()
	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap
}

func hostText(h *BufferHost) string {
	text, _ := h.Text()
	return text
}

func TestModeFor(t *testing.T) {
	testCases := []struct {
		description string
		fieldType   string
		inputMode   string
		want        InputMode
	}{
		{"text", "text", "", ModeLatin},
		{"search", "search", "", ModeLatin},
		{"textarea", "textarea", "", ModeProse},
		{"number", "number", "", ModeVerbatim},
		{"numeric inputmode", "text", "numeric", ModeVerbatim},
		{"digit inputmode", "textarea", "digit", ModeVerbatim},
		{"explicit prose", "text", "latin-prose", ModeProse},
		{"explicit verbatim", "textarea", "verbatim", ModeVerbatim},
		{"password", "password", "", ModeVerbatim},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			if got := ModeFor(tc.fieldType, tc.inputMode); got != tc.want {
				t.Errorf("ModeFor(%q, %q) = %q, want %q", tc.fieldType, tc.inputMode, got, tc.want)
			}
		})
	}
}

func TestCapitalization(t *testing.T) {
	host := NewBufferHost("", 0)
	c := newOffline(t, host, Field{Type: "textarea", Suggest: true, Correct: true}, nil)

	upper := func() bool {
		u, set := host.UpperCase()
		if !set {
			t.Fatalf("uppercase state was reset in prose mode")
		}
		return u
	}

	if !upper() {
		t.Errorf("not uppercase at the start of the field")
	}
	typeText(t, c, "H")
	if upper() {
		t.Errorf("uppercase in the middle of a word")
	}
	typeText(t, c, "ello ")
	if upper() {
		t.Errorf("uppercase after %q", hostText(host))
	}
	typeText(t, c, ".")
	if got := hostText(host); got != "Hello. " {
		t.Fatalf("text = %q, want %q", got, "Hello. ")
	}
	if !upper() {
		t.Errorf("not uppercase after %q", hostText(host))
	}
}

func TestCapitalizationOnlyInProse(t *testing.T) {
	host := NewBufferHost("", 0)
	newOffline(t, host, Field{Type: "text", Suggest: true, Correct: true}, nil)
	if _, set := host.UpperCase(); set {
		t.Errorf("latin mode set the shift state")
	}
}

func TestCapitalizationKeepsCapsLock(t *testing.T) {
	host := NewBufferHost("AB", 2)
	newOffline(t, host, Field{Type: "textarea", Text: "AB", Cursor: 2}, nil)
	if u, _ := host.UpperCase(); !u {
		t.Errorf("two capitals before the cursor did not keep uppercase")
	}
}

func TestAutoPunctuation(t *testing.T) {
	testCases := []struct {
		description string
		wait        time.Duration
		want        string
		wantKeys    []rune
		wantRevert  string
	}{
		{
			description: "double space within the window",
			wait:        300 * time.Millisecond,
			want:        "word. ",
			wantKeys:    []rune{'w', 'o', 'r', 'd', ' ', keys.CodeBackspace, '.', ' '},
			wantRevert:  "word  ",
		},
		{
			description: "double space after the window",
			wait:        time.Second,
			want:        "word  ",
			wantKeys:    []rune{'w', 'o', 'r', 'd', ' ', ' '},
			wantRevert:  "word ",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			host := NewBufferHost("", 0)
			clock := newFakeClock()
			c := newOffline(t, host, Field{Type: "textarea", Suggest: true, Correct: true}, clock)

			typeText(t, c, "word ")
			clock.Advance(tc.wait)
			click(t, c, keys.CodeSpace)

			if got := hostText(host); got != tc.want {
				t.Errorf("text = %q, want %q", got, tc.want)
			}
			if got := snapshot(t, c).Text; got != tc.want {
				t.Errorf("mirrored text = %q, want %q", got, tc.want)
			}
			if diff := cmp.Diff(tc.wantKeys, host.SentKeys()); diff != "" {
				t.Errorf("sent keys mismatch (-want +got):\n%s", diff)
			}

			click(t, c, keys.CodeBackspace)
			if got := hostText(host); got != tc.wantRevert {
				t.Errorf("after backspace text = %q, want %q", got, tc.wantRevert)
			}
		})
	}
}

func TestPunctuationMovesBeforeSpace(t *testing.T) {
	testCases := []struct {
		description string
		key         rune
		want        string
	}{
		{"comma", ',', "word, "},
		{"question mark", '?', "word? "},
		{"colon stays", ':', "word :"},
		{"semicolon stays", ';', "word ;"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			host := NewBufferHost("", 0)
			c := newOffline(t, host, Field{Type: "textarea"}, nil)
			typeText(t, c, "word ")
			click(t, c, tc.key)
			if got := hostText(host); got != tc.want {
				t.Errorf("text = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewlineThenPeriod(t *testing.T) {
	host := NewBufferHost("Hello", 5)
	c := newOffline(t, host, Field{Type: "textarea", Text: "Hello", Cursor: 5}, nil)

	click(t, c, keys.CodeReturn)
	click(t, c, '.')

	if got := hostText(host); got != "Hello\n." {
		t.Errorf("text = %q, want %q", got, "Hello\n.")
	}
	if n := len(host.Replacements()); n != 0 {
		t.Errorf("%d replacements, want none", n)
	}
}

func TestAutoCorrectAndRevert(t *testing.T) {
	host := NewBufferHost("", 0)
	c := newOffline(t, host, Field{Type: "text", Suggest: true, Correct: true}, nil)
	teh := []predict.Suggestion{{Word: "the", Weight: 9.6}, {Word: "ten", Weight: 2.5}, {Word: "tea", Weight: 1.6}}

	typeText(t, c, "teh")
	predictions(t, c, "teh", teh...)

	got, _ := host.Candidates()
	want := []Candidate{{Word: "the", AutoCorrect: true}, {Word: "ten"}, {Word: "tea"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
	}

	click(t, c, keys.CodeSpace)
	if got := hostText(host); got != "the " {
		t.Fatalf("text after space = %q, want %q", got, "the ")
	}
	if diff := cmp.Diff([]Replacement{{Text: "the", Before: 3}}, host.Replacements()); diff != "" {
		t.Errorf("replacements mismatch (-want +got):\n%s", diff)
	}
	snap := snapshot(t, c)
	if snap.RevertFrom != "the " || snap.RevertTo != "teh " {
		t.Errorf("revert = %q -> %q, want %q -> %q", snap.RevertFrom, snap.RevertTo, "the ", "teh ")
	}

	click(t, c, keys.CodeBackspace)
	if got := hostText(host); got != "teh " {
		t.Fatalf("text after revert = %q, want %q", got, "teh ")
	}
	snap = snapshot(t, c)
	if !snap.CorrectionDisabled || snap.RevertFrom != "" {
		t.Errorf("after revert: disabled=%v revertFrom=%q", snap.CorrectionDisabled, snap.RevertFrom)
	}

	// Back in the reverted word, correction stays off.
	click(t, c, keys.CodeBackspace)
	predictions(t, c, "teh", teh...)
	got, _ = host.Candidates()
	want = []Candidate{{Word: "the"}, {Word: "ten"}, {Word: "tea"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidates in reverted word mismatch (-want +got):\n%s", diff)
	}

	click(t, c, keys.CodeSpace)
	if got := hostText(host); got != "teh " {
		t.Errorf("text = %q, want %q", got, "teh ")
	}
	if snapshot(t, c).CorrectionDisabled {
		t.Errorf("correction still disabled after a word boundary")
	}
}

func TestRevertReenablesWhenWordDeleted(t *testing.T) {
	host := NewBufferHost("", 0)
	c := newOffline(t, host, Field{Type: "text", Suggest: true, Correct: true}, nil)

	typeText(t, c, "teh")
	predictions(t, c, "teh", predict.Suggestion{Word: "the", Weight: 9.6})
	click(t, c, keys.CodeSpace)
	click(t, c, keys.CodeBackspace)

	for i := 0; i < 3; i++ {
		click(t, c, keys.CodeBackspace)
		if !snapshot(t, c).CorrectionDisabled {
			t.Fatalf("correction re-enabled with %q left", hostText(host))
		}
	}
	click(t, c, keys.CodeBackspace)
	if got := hostText(host); got != "" {
		t.Fatalf("text = %q, want empty", got)
	}
	if snapshot(t, c).CorrectionDisabled {
		t.Errorf("correction still disabled after deleting the word")
	}
}

func TestAutoCorrectWithPunctuation(t *testing.T) {
	host := NewBufferHost("", 0)
	c := newOffline(t, host, Field{Type: "text", Suggest: true, Correct: true}, nil)

	typeText(t, c, "wont")
	predictions(t, c, "wont",
		predict.Suggestion{Word: "won't", Weight: 11},
		predict.Suggestion{Word: "wont", Weight: 8},
	)
	click(t, c, '.')
	if got := hostText(host); got != "won't." {
		t.Errorf("text = %q, want %q", got, "won't.")
	}
	click(t, c, keys.CodeBackspace)
	if got := hostText(host); got != "wont." {
		t.Errorf("text after revert = %q, want %q", got, "wont.")
	}
}

func TestNoCorrectionWhenWordMatches(t *testing.T) {
	host := NewBufferHost("", 0)
	c := newOffline(t, host, Field{Type: "text", Suggest: true, Correct: true}, nil)

	typeText(t, c, "the")
	predictions(t, c, "the",
		predict.Suggestion{Word: "the", Weight: 10},
		predict.Suggestion{Word: "they", Weight: 5},
	)
	click(t, c, keys.CodeSpace)
	if got := hostText(host); got != "the " {
		t.Errorf("text = %q, want %q", got, "the ")
	}
}

func TestSelectDisablesCorrection(t *testing.T) {
	host := NewBufferHost("I like tha", 10)
	c := newOffline(t, host, Field{Type: "text", Text: "I like tha", Cursor: 10, Suggest: true, Correct: true}, nil)

	if err := c.Select(context.Background(), "that"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := hostText(host); got != "I like that " {
		t.Fatalf("text = %q, want %q", got, "I like that ")
	}
	if got, _ := host.Candidates(); len(got) != 0 {
		t.Errorf("candidates after select = %v, want none", got)
	}
	snap := snapshot(t, c)
	if snap.RevertFrom != "that " || snap.RevertTo != "tha" || !snap.CorrectionDisabled {
		t.Errorf("after select: %+v", snap)
	}

	click(t, c, keys.CodeBackspace)
	if got := hostText(host); got != "I like tha" {
		t.Fatalf("text after backspace = %q, want %q", got, "I like tha")
	}

	predictions(t, c, "tha", predict.Suggestion{Word: "that", Weight: 10}, predict.Suggestion{Word: "than", Weight: 8})
	if snapshot(t, c).AutoCorrection != "" {
		t.Errorf("auto-correction offered for a word the user chose")
	}
	click(t, c, keys.CodeSpace)
	if got := hostText(host); got != "I like tha " {
		t.Errorf("text = %q, want %q", got, "I like tha ")
	}
}

func TestStalePredictions(t *testing.T) {
	host := NewBufferHost("janj", 4)
	c := newOffline(t, host, Field{Type: "text", Text: "janj", Cursor: 4, Suggest: true, Correct: true}, nil)

	predictions(t, c, "jan",
		predict.Suggestion{Word: "Jan", Weight: 1},
		predict.Suggestion{Word: "jan", Weight: 1},
	)
	got, calls := host.Candidates()
	if calls != 1 || len(got) != 0 {
		t.Errorf("candidates = %v after %d calls, want one empty list", got, calls)
	}
	if snapshot(t, c).AutoCorrection != "" {
		t.Errorf("stale predictions set an auto-correction")
	}
}

func TestHostRejection(t *testing.T) {
	host := NewBufferHost("", 0)
	c := newOffline(t, host, Field{Type: "text", Suggest: true, Correct: true}, nil)

	typeText(t, c, "teh")
	predictions(t, c, "teh", predict.Suggestion{Word: "the", Weight: 9.6})

	host.RejectNext(errors.New("field went away"))
	err := c.Click(context.Background(), keys.CodeSpace, false)
	if !errors.Is(err, ErrHostRejected) {
		t.Fatalf("Click error = %v, want ErrHostRejected", err)
	}
	snap := snapshot(t, c)
	if snap.Text != "teh" || snap.AutoCorrection != "the" {
		t.Errorf("state changed by a rejected key: %+v", snap)
	}
	if got := hostText(host); got != "teh" {
		t.Errorf("host text = %q, want %q", got, "teh")
	}

	click(t, c, keys.CodeSpace)
	if got := hostText(host); got != "the " {
		t.Errorf("text after retry = %q, want %q", got, "the ")
	}
}

func TestDismissSuggestions(t *testing.T) {
	host := NewBufferHost("hi", 2)
	c := newOffline(t, host, Field{Type: "text", Text: "hi", Cursor: 2, Suggest: true, Correct: true}, nil)

	predictions(t, c, "hi", predict.Suggestion{Word: "his", Weight: 10}, predict.Suggestion{Word: "hi", Weight: 2})
	if snapshot(t, c).AutoCorrection != "his" {
		t.Fatalf("no pending auto-correction to dismiss")
	}

	if err := c.DismissSuggestions(context.Background()); err != nil {
		t.Fatalf("DismissSuggestions: %v", err)
	}
	got, _ := host.Candidates()
	if diff := cmp.Diff([]Candidate{}, got, equateEmpty); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
	if text := hostText(host); text != "hi " {
		t.Errorf("text = %q, want %q", text, "hi ")
	}
	snap := snapshot(t, c)
	if snap.AutoCorrection != "" || snap.CorrectionDisabled || !snap.LastSpace.IsZero() {
		t.Errorf("state not reset: %+v", snap)
	}
}

func TestLayoutPageReset(t *testing.T) {
	host := NewBufferHost("", 0)
	c := newOffline(t, host, Field{Type: "text"}, nil)

	host.SetLayoutPage(2)
	click(t, c, '1')
	if host.LayoutPage() != 2 {
		t.Errorf("layout page changed by an ordinary key")
	}
	click(t, c, keys.CodeSpace)
	if host.LayoutPage() != DefaultLayoutPage {
		t.Errorf("layout page = %d after space, want %d", host.LayoutPage(), DefaultLayoutPage)
	}
}

func TestSelectionReplacedVerbatim(t *testing.T) {
	host := NewBufferHost("hello world", 6)
	c := newOffline(t, host, Field{Type: "textarea", Text: "hello world", Cursor: 6, SelectionEnd: 11}, nil)
	// The host mirrors the same selection.
	if err := host.ReplaceSurroundingText("", 0, 5); err != nil {
		t.Fatal(err)
	}

	click(t, c, '.')
	snap := snapshot(t, c)
	if snap.Text != "hello ." || snap.SelectionEnd != 0 {
		t.Errorf("snapshot = %+v, want the selection replaced by a period", snap)
	}
	if len(host.Replacements()) != 1 {
		t.Errorf("typing over a selection triggered a correction")
	}
}

func TestRank(t *testing.T) {
	c := New(NewBufferHost("", 0), Config{})
	t.Cleanup(c.Close)

	s := func(word string, weight float64) predict.Suggestion {
		return predict.Suggestion{Word: word, Weight: weight}
	}
	auto := func(word string) Candidate { return Candidate{Word: word, AutoCorrect: true} }
	plain := func(word string) Candidate { return Candidate{Word: word} }

	testCases := []struct {
		description string
		input       string
		suggestions []predict.Suggestion
		want        []Candidate
	}{
		{
			"not a word",
			"jan", []predict.Suggestion{s("Jan", 1), s("han", 1), s("Pietje", 1), s("extra", 1)},
			[]Candidate{auto("Jan"), plain("han"), plain("Pietje")},
		},
		{
			"input is a frequent word",
			"the", []predict.Suggestion{s("the", 10), s("they", 5), s("then", 4), s("there", 3)},
			[]Candidate{plain("they"), plain("then"), plain("there")},
		},
		{
			"much more frequent than the input",
			"wont", []predict.Suggestion{s("won't", 11), s("wont", 8), s("won", 7), s("went", 6)},
			[]Candidate{auto("won't"), plain("won"), plain("went")},
		},
		{
			"not frequent enough over the input",
			"foe", []predict.Suggestion{s("for", 16.88), s("foe", 15), s("Doe", 7.57), s("doe", 6.98)},
			[]Candidate{plain("for"), plain("Doe"), plain("doe")},
		},
		{
			"close call",
			"hid", []predict.Suggestion{s("his", 16.3), s("hid", 16), s("HUD", 12), s("hide", 11)},
			[]Candidate{plain("his"), plain("HUD"), plain("hide")},
		},
		{
			"one letter longer but light",
			"zoolgy", []predict.Suggestion{s("zoology", 4.2), s("Zoology's", .09)},
			[]Candidate{plain("zoology"), plain("Zoology's")},
		},
		{
			"one letter longer and heavy",
			"Folow", []predict.Suggestion{s("Follow", 6.237), s("Follows", 2.49), s("Followed", 1.05), s("Follower", .76)},
			[]Candidate{auto("Follow"), plain("Follows"), plain("Followed")},
		},
		{
			"one letter shorter",
			"awesomeo", []predict.Suggestion{s("awesome", 31), s("trahlah", 8), s("moarstu", 7)},
			[]Candidate{auto("awesome"), plain("trahlah"), plain("moarstu")},
		},
		{
			"single letter stays single",
			"n", []predict.Suggestion{s("no", 1), s("not", 1), s("now", 1)},
			[]Candidate{plain("no"), plain("not"), plain("now")},
		},
		{
			"single letter to single letter",
			"i", []predict.Suggestion{s("I", 1), s("in", 1), s("it", 1)},
			[]Candidate{auto("I"), plain("in"), plain("it")},
		},
		{
			"apostrophe word promoted by the engine",
			"im", []predict.Suggestion{s("I'm", 16), s("in", 21), s("km", 9), s("um", 9)},
			[]Candidate{auto("I'm"), plain("in"), plain("km")},
		},
		{
			"all caps input",
			"HOLO", []predict.Suggestion{s("Yolo", 10), s("Yelp", 5), s("Whuuu", 4)},
			[]Candidate{auto("YOLO"), plain("YELP"), plain("WHUUU")},
		},
		{
			"single capital keeps case",
			"F", []predict.Suggestion{s("Yolo", 10), s("Yelp", 5)},
			[]Candidate{plain("Yolo"), plain("Yelp")},
		},
		{
			"all caps input found after case matching",
			"THE", []predict.Suggestion{s("The", 30), s("They", 12), s("Then", 10)},
			[]Candidate{plain("THEY"), plain("THEN")},
		},
		{
			"only the input",
			"the", []predict.Suggestion{s("the", 10)},
			[]Candidate{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := c.rank(tc.input, tc.suggestions, 0, true)
			if diff := cmp.Diff(tc.want, got, equateEmpty); diff != "" {
				t.Errorf("rank(%q) mismatch (-want +got):\n%s", tc.input, diff)
			}
		})
	}

	got := c.rank("jan", []predict.Suggestion{s("Jan", 1)}, 0, false)
	if got[0].AutoCorrect {
		t.Errorf("auto-correction flagged while correcting is off")
	}
}

func TestRankInputWeight(t *testing.T) {
	c := New(NewBufferHost("", 0), Config{})
	t.Cleanup(c.Close)

	s := func(word string, weight float64) predict.Suggestion {
		return predict.Suggestion{Word: word, Weight: weight}
	}
	auto := func(word string) Candidate { return Candidate{Word: word, AutoCorrect: true} }
	plain := func(word string) Candidate { return Candidate{Word: word} }

	crowded := []predict.Suggestion{s("car", 11.22), s("cay", 11.22), s("cate", 11.2), s("cats", 11.2)}

	testCases := []struct {
		description string
		input       string
		suggestions []predict.Suggestion
		inputWeight float64
		want        []Candidate
	}{
		{
			description: "word crowded out of the list",
			input:       "cat",
			suggestions: crowded,
			inputWeight: 10,
			want:        []Candidate{plain("car"), plain("cay"), plain("cate")},
		},
		{
			description: "crowded out but much lighter",
			input:       "cat",
			suggestions: crowded,
			inputWeight: 5,
			want:        []Candidate{auto("car"), plain("cay"), plain("cate")},
		},
		{
			description: "not a word",
			input:       "cat",
			suggestions: crowded,
			want:        []Candidate{auto("car"), plain("cay"), plain("cate")},
		},
		{
			description: "listed weight wins over a lighter lookup",
			input:       "the",
			suggestions: []predict.Suggestion{s("they", 12), s("the", 10)},
			inputWeight: 2,
			want:        []Candidate{plain("they")},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := c.rank(tc.input, tc.suggestions, tc.inputWeight, true)
			if diff := cmp.Diff(tc.want, got, equateEmpty); diff != "" {
				t.Errorf("rank(%q) mismatch (-want +got):\n%s", tc.input, diff)
			}
		})
	}
}

var engineWords = map[string]int{
	"the":   32,
	"then":  12,
	"ten":   10,
	"tea":   8,
	"hello": 30,
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestControllerWithEngine(t *testing.T) {
	host := NewBufferHost("", 0)
	host.SetData("dictionaries/en.dict", dicttest.Build(engineWords))
	c := New(host, Config{})
	t.Cleanup(c.Close)
	ctx := context.Background()

	if err := c.Activate(ctx, "en", Field{Type: "text", Suggest: true, Correct: true}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	typeText(t, c, "teh")

	waitFor(t, "an auto-correction for teh", func() bool {
		return snapshot(t, c).AutoCorrection == "the"
	})
	got, _ := host.Candidates()
	if len(got) == 0 || got[0] != (Candidate{Word: "the", AutoCorrect: true}) {
		t.Errorf("candidates = %v, want the flagged first", got)
	}
	var requestID string
	if err := c.do(ctx, func() error { requestID = c.requestID; return nil }); err != nil {
		t.Fatalf("reading request id: %v", err)
	}
	if requestID == "" {
		t.Errorf("latest predict request id not recorded")
	}

	click(t, c, keys.CodeSpace)
	if text := hostText(host); text != "the " {
		t.Errorf("text = %q, want %q", text, "the ")
	}
	click(t, c, keys.CodeBackspace)
	if text := hostText(host); text != "teh " {
		t.Errorf("text after revert = %q, want %q", text, "teh ")
	}
}

func TestControllerKeepsCrowdedOutWord(t *testing.T) {
	host := NewBufferHost("cat", 3)
	host.SetData("dictionaries/en.dict", dicttest.Build(map[string]int{
		"cat":  10,
		"car":  16,
		"cay":  16,
		"cats": 28,
		"cate": 28,
	}))
	c := New(host, Config{})
	t.Cleanup(c.Close)

	field := Field{Type: "text", Text: "cat", Cursor: 3, Suggest: true, Correct: true}
	if err := c.Activate(context.Background(), "en", field); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	waitFor(t, "candidates for cat", func() bool {
		got, _ := host.Candidates()
		return len(got) > 0
	})

	got, _ := host.Candidates()
	for _, cand := range got {
		if cand.AutoCorrect {
			t.Errorf("candidates = %v, want no auto-correction for a dictionary word", got)
		}
	}
	click(t, c, keys.CodeSpace)
	if text := hostText(host); text != "cat " {
		t.Errorf("text = %q, want %q", text, "cat ")
	}
}

func TestDeactivateResetsState(t *testing.T) {
	type corrections struct {
		Text, AutoCorrection, RevertFrom, RevertTo string
		CorrectionDisabled                         bool
		LastSpace                                  time.Time
	}

	testCases := []struct {
		description string
		setup       func(t *testing.T, c *Controller)
	}{
		{
			description: "pending auto-correction",
			setup: func(t *testing.T, c *Controller) {
				typeText(t, c, "teh")
				predictions(t, c, "teh", predict.Suggestion{Word: "the", Weight: 9.6})
			},
		},
		{
			description: "revert pair after a correction",
			setup: func(t *testing.T, c *Controller) {
				typeText(t, c, "teh")
				predictions(t, c, "teh", predict.Suggestion{Word: "the", Weight: 9.6})
				click(t, c, keys.CodeSpace)
			},
		},
		{
			description: "correction disabled by a revert",
			setup: func(t *testing.T, c *Controller) {
				typeText(t, c, "teh")
				predictions(t, c, "teh", predict.Suggestion{Word: "the", Weight: 9.6})
				click(t, c, keys.CodeSpace)
				click(t, c, keys.CodeBackspace)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			c := newOffline(t, NewBufferHost("", 0), Field{Type: "text", Suggest: true, Correct: true}, nil)
			tc.setup(t, c)
			if err := c.Deactivate(context.Background()); err != nil {
				t.Fatalf("Deactivate: %v", err)
			}

			snap := snapshot(t, c)
			got := corrections{
				Text:               snap.Text,
				AutoCorrection:     snap.AutoCorrection,
				RevertFrom:         snap.RevertFrom,
				RevertTo:           snap.RevertTo,
				CorrectionDisabled: snap.CorrectionDisabled,
				LastSpace:          snap.LastSpace,
			}
			if diff := cmp.Diff(corrections{}, got); diff != "" {
				t.Errorf("state after Deactivate (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEngineIdleTeardown(t *testing.T) {
	host := NewBufferHost("", 0)
	host.SetData("dictionaries/en.dict", dicttest.Build(engineWords))
	c := New(host, Config{IdleTimeout: 20 * time.Millisecond})
	t.Cleanup(c.Close)
	ctx := context.Background()

	if err := c.Activate(ctx, "en", Field{Type: "text", Suggest: true, Correct: true}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !snapshot(t, c).EngineRunning {
		t.Fatalf("engine not started")
	}
	if err := c.Deactivate(ctx); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	waitFor(t, "the engine to shut down", func() bool {
		return !snapshot(t, c).EngineRunning
	})
}

func TestActivateMissingDictionary(t *testing.T) {
	host := NewBufferHost("", 0)
	c := New(host, Config{})
	t.Cleanup(c.Close)

	err := c.Activate(context.Background(), "xx", Field{Type: "text", Suggest: true, Correct: true})
	if err == nil {
		t.Fatalf("Activate succeeded without a dictionary")
	}
	if snapshot(t, c).EngineRunning {
		t.Errorf("engine running without a dictionary")
	}
	// Keys still work.
	click(t, c, 'a')
	if text := hostText(host); text != "a" {
		t.Errorf("text = %q, want %q", text, "a")
	}
}

func TestBadDictionaryStopsEngine(t *testing.T) {
	host := NewBufferHost("", 0)
	host.SetData("dictionaries/en.dict", []byte("definitely not a dictionary"))
	c := New(host, Config{})
	t.Cleanup(c.Close)

	if err := c.Activate(context.Background(), "en", Field{Type: "text", Suggest: true, Correct: true}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	waitFor(t, "the engine to shut down", func() bool {
		return !snapshot(t, c).EngineRunning
	})
}
