// Package onboarding implements the four-question profile form as an explicit
// state machine. Transitions are pure; the Flow wraps them with a per-user
// session registry and persists the finished profile. Partial answers live
// only in the session — nothing reaches storage until the form completes.
package onboarding

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/thedevi-l/eng-coffee-bot/internal/storage"
)

// ErrNoSession is returned when a message arrives for a user with no active form.
var ErrNoSession = errors.New("no active onboarding session")

// State identifies the question the form is waiting on.
type State int

const (
	StateAwaitingName State = iota
	StateAwaitingLevel
	StateAwaitingInterests
	StateAwaitingGoal
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateAwaitingName:
		return "awaiting_name"
	case StateAwaitingLevel:
		return "awaiting_level"
	case StateAwaitingInterests:
		return "awaiting_interests"
	case StateAwaitingGoal:
		return "awaiting_goal"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session accumulates form answers for one conversation. It is transient:
// discarded on completion (flushed into a Profile) or on restart.
type Session struct {
	State     State
	Name      string
	Level     string
	Interests string
	Goal      string
}

const (
	PromptName      = "What's your name?"
	PromptLevel     = "📚 What's your English level?"
	PromptInterests = "🎯 What are your interests? (comma-separated)"
	PromptGoal      = "🗣️ What's your goal in learning English?"
)

func prompt(s State) string {
	switch s {
	case StateAwaitingName:
		return PromptName
	case StateAwaitingLevel:
		return PromptLevel
	case StateAwaitingInterests:
		return PromptInterests
	case StateAwaitingGoal:
		return PromptGoal
	default:
		return ""
	}
}

// Advance is the pure transition function: it applies one message to a
// session and returns the next session plus the prompt to send back.
// Any non-empty trimmed text is accepted at face value and advances one
// state; whitespace-only input re-asks the current question. A completed
// session is returned unchanged.
func Advance(s Session, input string) (Session, string) {
	text := strings.TrimSpace(input)
	if s.State == StateComplete {
		return s, ""
	}
	if text == "" {
		return s, prompt(s.State)
	}

	switch s.State {
	case StateAwaitingName:
		s.Name = text
		s.State = StateAwaitingLevel
	case StateAwaitingLevel:
		s.Level = text
		s.State = StateAwaitingInterests
	case StateAwaitingInterests:
		s.Interests = text
		s.State = StateAwaitingGoal
	case StateAwaitingGoal:
		s.Goal = text
		s.State = StateComplete
	}
	return s, prompt(s.State)
}

// ProfileSaver is the storage operation the flow needs. Implemented by
// storage.Store.
type ProfileSaver interface {
	SaveProfile(p storage.Profile) error
}

// Flow tracks active onboarding sessions and writes completed profiles.
type Flow struct {
	saver  ProfileSaver
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[int64]Session
}

// NewFlow creates a Flow persisting completed forms through saver.
func NewFlow(saver ProfileSaver) *Flow {
	return &Flow{
		saver:    saver,
		logger:   slog.Default(),
		sessions: make(map[int64]Session),
	}
}

// Start begins (or restarts) the form for userID and returns the first
// question. Restarting mid-form discards prior transient answers; no profile
// was written, so there is nothing to roll back.
func (f *Flow) Start(userID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[userID] = Session{State: StateAwaitingName}
	return PromptName
}

// Active reports whether userID has a form in progress.
func (f *Flow) Active(userID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[userID]
	return ok
}

// HandleMessage feeds one message into the user's session. It returns the
// next prompt, or completed=true once the profile has been persisted.
//
// Only the final persistence step can fail; on failure the session stays at
// the goal question with the earlier answers intact, so resending the goal
// retries the write.
func (f *Flow) HandleMessage(userID int64, username, text string) (reply string, completed bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sess, ok := f.sessions[userID]
	if !ok {
		return "", false, ErrNoSession
	}

	next, nextPrompt := Advance(sess, text)
	if next.State != StateComplete {
		f.sessions[userID] = next
		return nextPrompt, false, nil
	}

	p := storage.Profile{
		UserID:    userID,
		Username:  username,
		Name:      next.Name,
		Level:     next.Level,
		Interests: next.Interests,
		Goal:      next.Goal,
	}
	if err := f.saver.SaveProfile(p); err != nil {
		// Session untouched: still awaiting the goal, answers preserved.
		f.logger.Error("saving completed profile", "user_id", userID, "error", err)
		return "", false, fmt.Errorf("saving profile: %w", err)
	}

	delete(f.sessions, userID)
	f.logger.Info("onboarding complete", "user_id", userID, "level", p.Level)
	return "", true, nil
}
