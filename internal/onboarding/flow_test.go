package onboarding

import (
	"errors"
	"testing"

	"github.com/thedevi-l/eng-coffee-bot/internal/storage"
)

// fakeSaver records saved profiles and can be made to fail.
type fakeSaver struct {
	saved []storage.Profile
	err   error
}

func (f *fakeSaver) SaveProfile(p storage.Profile) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, p)
	return nil
}

func TestAdvance_FullSequence(t *testing.T) {
	s := Session{State: StateAwaitingName}

	steps := []struct {
		input      string
		wantState  State
		wantPrompt string
	}{
		{"Alice", StateAwaitingLevel, PromptLevel},
		{"B1", StateAwaitingInterests, PromptInterests},
		{"music, travel", StateAwaitingGoal, PromptGoal},
		{"speaking practice", StateComplete, ""},
	}

	var prompt string
	for i, step := range steps {
		s, prompt = Advance(s, step.input)
		if s.State != step.wantState {
			t.Fatalf("step %d: state = %v, want %v", i, s.State, step.wantState)
		}
		if prompt != step.wantPrompt {
			t.Errorf("step %d: prompt = %q, want %q", i, prompt, step.wantPrompt)
		}
	}

	if s.Name != "Alice" || s.Level != "B1" || s.Interests != "music, travel" || s.Goal != "speaking practice" {
		t.Errorf("accumulated fields wrong: %+v", s)
	}
}

// TestAdvance_TrimsInput verifies the stored field value is the trimmed text.
func TestAdvance_TrimsInput(t *testing.T) {
	s, _ := Advance(Session{State: StateAwaitingName}, "  Alice \n")
	if s.Name != "Alice" {
		t.Errorf("Name = %q, want %q", s.Name, "Alice")
	}
}

// TestAdvance_EmptyInputReasks verifies whitespace-only input does not advance.
func TestAdvance_EmptyInputReasks(t *testing.T) {
	for _, state := range []State{StateAwaitingName, StateAwaitingLevel, StateAwaitingInterests, StateAwaitingGoal} {
		s, prompt := Advance(Session{State: state}, "   ")
		if s.State != state {
			t.Errorf("state %v advanced on empty input to %v", state, s.State)
		}
		if prompt == "" {
			t.Errorf("state %v: no re-prompt on empty input", state)
		}
	}
}

// TestAdvance_AcceptsAnyText verifies there is no validation of level or
// interest syntax.
func TestAdvance_AcceptsAnyText(t *testing.T) {
	s := Session{State: StateAwaitingLevel}
	s, _ = Advance(s, "somewhere between beginner and ok")
	if s.State != StateAwaitingInterests || s.Level != "somewhere between beginner and ok" {
		t.Errorf("free-text level rejected: %+v", s)
	}
}

func TestAdvance_CompleteIsTerminal(t *testing.T) {
	done := Session{State: StateComplete, Name: "A"}
	got, prompt := Advance(done, "more text")
	if got != done || prompt != "" {
		t.Errorf("Advance on complete session = (%+v, %q), want unchanged", got, prompt)
	}
}

func TestFlow_CompletionPersistsProfile(t *testing.T) {
	saver := &fakeSaver{}
	f := NewFlow(saver)

	if got := f.Start(7); got != PromptName {
		t.Errorf("Start prompt = %q, want %q", got, PromptName)
	}

	answers := []string{"Alice", "B1", "music, travel", "fluency"}
	var completed bool
	for i, a := range answers {
		var err error
		_, completed, err = f.HandleMessage(7, "alice_tg", a)
		if err != nil {
			t.Fatalf("HandleMessage(%d): %v", i, err)
		}
	}

	if !completed {
		t.Fatal("flow did not complete after four answers")
	}
	if len(saver.saved) != 1 {
		t.Fatalf("saved %d profiles, want 1", len(saver.saved))
	}

	p := saver.saved[0]
	if p.UserID != 7 || p.Username != "alice_tg" || p.Name != "Alice" ||
		p.Level != "B1" || p.Interests != "music, travel" || p.Goal != "fluency" {
		t.Errorf("persisted profile wrong: %+v", p)
	}

	if f.Active(7) {
		t.Error("session still active after completion")
	}
}

// TestFlow_NoPartialPersistence verifies nothing is saved before the last answer.
func TestFlow_NoPartialPersistence(t *testing.T) {
	saver := &fakeSaver{}
	f := NewFlow(saver)

	f.Start(7)
	for _, a := range []string{"Alice", "B1", "music"} {
		if _, _, err := f.HandleMessage(7, "alice_tg", a); err != nil {
			t.Fatalf("HandleMessage: %v", err)
		}
	}

	if len(saver.saved) != 0 {
		t.Errorf("profile saved before completion: %+v", saver.saved)
	}
}

// TestFlow_RestartDiscardsAnswers verifies a /start mid-form resets to the
// first question and drops accumulated fields.
func TestFlow_RestartDiscardsAnswers(t *testing.T) {
	saver := &fakeSaver{}
	f := NewFlow(saver)

	f.Start(7)
	f.HandleMessage(7, "u", "Alice")
	f.HandleMessage(7, "u", "B1")

	f.Start(7) // restart

	// The next four answers must be treated as a fresh form.
	answers := []string{"Bob", "A2", "chess", "grammar"}
	var completed bool
	for _, a := range answers {
		_, completed, _ = f.HandleMessage(7, "u", a)
	}
	if !completed {
		t.Fatal("restarted flow did not complete")
	}
	if saver.saved[0].Name != "Bob" || saver.saved[0].Level != "A2" {
		t.Errorf("restart kept stale answers: %+v", saver.saved[0])
	}
}

// TestFlow_SaveFailureRetries verifies a failed upsert leaves the session at
// the goal question so resending the goal retries the write.
func TestFlow_SaveFailureRetries(t *testing.T) {
	saver := &fakeSaver{err: errors.New("disk full")}
	f := NewFlow(saver)

	f.Start(7)
	for _, a := range []string{"Alice", "B1", "music"} {
		f.HandleMessage(7, "u", a)
	}

	_, completed, err := f.HandleMessage(7, "u", "fluency")
	if err == nil || completed {
		t.Fatalf("expected save failure, got completed=%v err=%v", completed, err)
	}
	if !f.Active(7) {
		t.Fatal("session dropped after failed save")
	}

	// Storage recovers; resending the goal completes the form with all
	// accumulated fields intact.
	saver.err = nil
	_, completed, err = f.HandleMessage(7, "u", "fluency")
	if err != nil || !completed {
		t.Fatalf("retry failed: completed=%v err=%v", completed, err)
	}
	p := saver.saved[0]
	if p.Name != "Alice" || p.Level != "B1" || p.Interests != "music" || p.Goal != "fluency" {
		t.Errorf("retried profile lost fields: %+v", p)
	}
}

func TestFlow_NoSession(t *testing.T) {
	f := NewFlow(&fakeSaver{})
	_, _, err := f.HandleMessage(99, "u", "hello")
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("HandleMessage without session = %v, want ErrNoSession", err)
	}
}
