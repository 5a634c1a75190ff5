package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/bastiangx/keyserve/internal/dicttest"
	"github.com/bastiangx/keyserve/pkg/dictionary"
	"github.com/bastiangx/keyserve/pkg/keys"
	"github.com/bastiangx/keyserve/pkg/predict"
)

var testWords = map[string]int{
	"hello": 30,
	"help":  20,
	"hell":  5,
	"the":   32,
	"then":  12,
}

func startSession(t *testing.T) *EngineSession {
	t.Helper()
	s := Start(Options{})
	t.Cleanup(s.Close)
	if err := s.SetNearbyKeys(keys.Build(keys.QWERTY())); err != nil {
		t.Fatalf("SetNearbyKeys: %v", err)
	}
	if err := s.SetLanguage("en", dicttest.Build(testWords)); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	ev := next(t, s)
	if ev.Kind != EventLanguageSet || ev.Language != "en" {
		t.Fatalf("first event = %+v, want languageSet en", ev)
	}
	return s
}

func next(t *testing.T, s *EngineSession) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		if !ok {
			t.Fatalf("events channel closed")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for an event")
	}
	return Event{}
}

func words(s []predict.Suggestion) []string {
	out := make([]string, len(s))
	for i, sg := range s {
		out[i] = sg.Word
	}
	return out
}

func TestPredict(t *testing.T) {
	s := startSession(t)

	testCases := []struct {
		description string
		input       string
		wantFirst   string
		wantWeight  float64
	}{
		{"misspelled", "helo", "help", 0},
		{"complete word", "hello", "hello", 30},
		{"word with a longer sibling", "then", "then", 12},
		{"capitalized word", "Then", "Then", 12 * .99},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			id, err := s.Predict(tc.input)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			ev := next(t, s)
			if ev.Kind != EventPredictions || ev.ID != id || ev.Input != tc.input {
				t.Fatalf("event = %+v, want predictions for request %s", ev, id)
			}
			if len(ev.Suggestions) == 0 || ev.Suggestions[0].Word != tc.wantFirst {
				t.Errorf("suggestions = %v, want %q first", words(ev.Suggestions), tc.wantFirst)
			}
			if diff := cmp.Diff(tc.wantWeight, ev.InputWeight, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
				t.Errorf("input weight mismatch (-want +got):\n%s", diff)
			}
		})
	}

	// QWERTY puts p next to o, so the substitution beats the insertion.
	if _, err := s.Predict("helo"); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	ev := next(t, s)
	if diff := cmp.Diff([]string{"help", "hello", "hell"}, words(ev.Suggestions)); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
}

func TestPredictSupersedes(t *testing.T) {
	s := startSession(t)

	inputs := []string{"h", "he", "hel", "hell", "hello"}
	var last string
	for _, in := range inputs {
		id, err := s.Predict(in)
		if err != nil {
			t.Fatalf("Predict(%q): %v", in, err)
		}
		last = id
	}

	// Earlier requests may or may not have finished before being superseded,
	// but the newest one always answers.
	for {
		ev := next(t, s)
		if ev.Kind != EventPredictions {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.ID == last {
			if ev.Input != "hello" || len(ev.Suggestions) == 0 || ev.Suggestions[0].Word != "hello" {
				t.Errorf("last event = %+v", ev)
			}
			return
		}
	}
}

func TestSetLanguageError(t *testing.T) {
	s := startSession(t)

	if err := s.SetLanguage("xx", []byte("not a dictionary")); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	ev := next(t, s)
	if ev.Kind != EventError || ev.Op != "setLanguage" || ev.Language != "xx" {
		t.Fatalf("event = %+v, want setLanguage error", ev)
	}
	if !errors.Is(ev.Err, dictionary.ErrInvalidFormat) && !errors.Is(ev.Err, dictionary.ErrTruncated) {
		t.Errorf("error = %v, want a format error", ev.Err)
	}

	// The previous language is not kept.
	if _, err := s.Predict("hello"); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	ev = next(t, s)
	if ev.Kind != EventError || ev.Op != "predict" || !errors.Is(ev.Err, predict.ErrNotInitialized) {
		t.Errorf("event = %+v, want ErrNotInitialized", ev)
	}
}

func TestPredictBeforeLanguage(t *testing.T) {
	s := Start(Options{})
	defer s.Close()

	if _, err := s.Predict("a"); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	ev := next(t, s)
	if ev.Kind != EventError || !errors.Is(ev.Err, predict.ErrNotInitialized) {
		t.Errorf("event = %+v, want ErrNotInitialized", ev)
	}
}

func TestClose(t *testing.T) {
	s := Start(Options{})
	s.Close()
	s.Close()

	if !s.Closed() {
		t.Errorf("Closed() = false after Close")
	}
	if _, err := s.Predict("a"); !errors.Is(err, ErrClosed) {
		t.Errorf("Predict after Close error = %v, want ErrClosed", err)
	}
	if err := s.SetLanguage("en", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("SetLanguage after Close error = %v, want ErrClosed", err)
	}
	if _, ok := <-s.Events(); ok {
		t.Errorf("events channel still open after Close")
	}
}

func TestLimitsDefault(t *testing.T) {
	s := Start(Options{})
	defer s.Close()
	if diff := cmp.Diff(predict.DefaultLimits, s.Limits()); diff != "" {
		t.Errorf("limits mismatch (-want +got):\n%s", diff)
	}
}
