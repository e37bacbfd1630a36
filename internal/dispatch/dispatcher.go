// Package dispatch resolves match requests against the profile store and
// fans the weekly broadcast out to every stored profile.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thedevi-l/eng-coffee-bot/internal/match"
	"github.com/thedevi-l/eng-coffee-bot/internal/storage"
)

// Store defines the storage operations the dispatcher needs.
// Implemented by storage.Store.
type Store interface {
	GetProfile(userID int64) (storage.Profile, error)
	ListProfilesByLevel(level string, excludeID int64) ([]storage.Profile, error)
	ListAllProfiles() ([]storage.Profile, error)
}

// Delivery sends a match outcome to a person. Implemented by the bot layer.
type Delivery interface {
	Deliver(ctx context.Context, userID int64, o Outcome) error
}

// DeliveryFunc adapts a function to the Delivery interface.
type DeliveryFunc func(ctx context.Context, userID int64, o Outcome) error

func (f DeliveryFunc) Deliver(ctx context.Context, userID int64, o Outcome) error {
	return f(ctx, userID, o)
}

// OutcomeKind classifies the result of a match request.
type OutcomeKind int

const (
	// OutcomeFound carries the matched profile.
	OutcomeFound OutcomeKind = iota
	// OutcomeNoProfile means the requester never finished onboarding.
	OutcomeNoProfile
	// OutcomeNoCandidate means nobody else is stored at the requester's level.
	OutcomeNoCandidate
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeNoProfile:
		return "no_profile"
	case OutcomeNoCandidate:
		return "no_candidate"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of one match request. NoProfile and NoCandidate are
// expected outcomes, not errors; storage failures surface as errors instead.
type Outcome struct {
	Kind  OutcomeKind
	Match *storage.Profile // set only for OutcomeFound
}

// BroadcastStats summarizes one broadcast run.
type BroadcastStats struct {
	Total     int
	Matched   int64
	Unmatched int64
	Failed    int64
}

// Dispatcher orchestrates on-demand and scheduled match requests.
type Dispatcher struct {
	store       Store
	delivery    Delivery
	concurrency int
	logger      *slog.Logger
}

// NewDispatcher creates a Dispatcher. delivery receives broadcast outcomes;
// concurrency bounds the broadcast fan-out (<= 0 defaults to 4).
func NewDispatcher(store Store, delivery Delivery, concurrency int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Dispatcher{
		store:       store,
		delivery:    delivery,
		concurrency: concurrency,
		logger:      slog.Default(),
	}
}

// RequestMatch finds the best partner for userID. It only reads: delivering
// the outcome to the person is the caller's job.
func (d *Dispatcher) RequestMatch(userID int64) (Outcome, error) {
	requester, err := d.store.GetProfile(userID)
	if err == storage.ErrNotFound {
		return Outcome{Kind: OutcomeNoProfile}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("loading profile %d: %w", userID, err)
	}

	candidates, err := d.store.ListProfilesByLevel(requester.Level, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("listing candidates for %d: %w", userID, err)
	}

	best := match.FindBestMatch(requester.Interests, candidates)
	if best == nil {
		return Outcome{Kind: OutcomeNoCandidate}, nil
	}
	return Outcome{Kind: OutcomeFound, Match: best}, nil
}

// BroadcastAll runs a match for every stored profile and delivers each
// outcome. A storage or delivery failure for one person is logged and counted
// but never aborts the remaining people. Only the initial full scan can fail
// the run as a whole.
func (d *Dispatcher) BroadcastAll(ctx context.Context) (BroadcastStats, error) {
	runID := uuid.New().String()
	log := d.logger.With("broadcast_id", runID)

	profiles, err := d.store.ListAllProfiles()
	if err != nil {
		return BroadcastStats{}, fmt.Errorf("listing profiles for broadcast: %w", err)
	}

	stats := BroadcastStats{Total: len(profiles)}
	log.Info("broadcast started", "profiles", stats.Total)

	var matched, unmatched, failed atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, p := range profiles {
		g.Go(func() error {
			outcome, err := d.RequestMatch(p.UserID)
			if err != nil {
				failed.Add(1)
				log.Warn("broadcast match failed", "user_id", p.UserID, "error", err)
				return nil // isolate this person's failure
			}
			if outcome.Kind == OutcomeFound {
				matched.Add(1)
			} else {
				unmatched.Add(1)
			}
			if err := d.delivery.Deliver(gCtx, p.UserID, outcome); err != nil {
				failed.Add(1)
				log.Warn("broadcast delivery failed", "user_id", p.UserID, "error", err)
			}
			return nil
		})
	}

	g.Wait()
	stats.Matched = matched.Load()
	stats.Unmatched = unmatched.Load()
	stats.Failed = failed.Load()
	log.Info("broadcast finished",
		"matched", stats.Matched, "unmatched", stats.Unmatched, "failed", stats.Failed)
	return stats, nil
}
