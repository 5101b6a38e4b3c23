package route

import (
	"context"
	"log"
	"strings"
	"sync"

	"backend-motorota/internal/apperr"
	"backend-motorota/internal/vehicle"
)

const (
	draftOrigin      = "origin"
	draftDestination = "destination"

	DefaultRecentLimit = 5
	MaxRecentLimit     = 50
)

// Drafts is the per-browser-session storage used for input carry-over.
type Drafts interface {
	Get(ctx context.Context, field string) (string, error)
	Set(ctx context.Context, field, value string) error
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

func LoadDraft(ctx context.Context, d Drafts) (Draft, error) {
	origin, err := d.Get(ctx, draftOrigin)
	if err != nil {
		return Draft{}, err
	}
	destination, err := d.Get(ctx, draftDestination)
	if err != nil {
		return Draft{}, err
	}
	return Draft{Origin: origin, Destination: destination}, nil
}

func SaveDraft(ctx context.Context, d Drafts, draft Draft) error {
	if err := d.Set(ctx, draftOrigin, draft.Origin); err != nil {
		return err
	}
	return d.Set(ctx, draftDestination, draft.Destination)
}

// Planner keeps the most recently generated route of one workspace.
type Planner struct {
	gen     *Generator
	trips   TripStore
	notices Notifier

	mu      sync.Mutex
	current *View
}

func NewPlanner(gen *Generator, trips TripStore, notices Notifier) *Planner {
	return &Planner{gen: gen, trips: trips, notices: notices}
}

// Plan generates a fresh route, replacing the current one. The inputs are
// carried over even when the draft store is unavailable.
func (p *Planner) Plan(ctx context.Context, drafts Drafts, draft Draft, v *vehicle.Profile) (View, error) {
	if !CanPlan(draft.Origin, draft.Destination, v) {
		return View{}, apperr.Validation("origin, destination and a configured vehicle are required")
	}

	if drafts != nil {
		trimmed := Draft{Origin: strings.TrimSpace(draft.Origin), Destination: strings.TrimSpace(draft.Destination)}
		if err := SaveDraft(ctx, drafts, trimmed); err != nil {
			log.Printf("carry-over write failed: %v", err)
		}
	}

	view := p.gen.Generate(draft.Origin, draft.Destination)
	p.mu.Lock()
	p.current = &view
	p.mu.Unlock()
	return view, nil
}

func (p *Planner) Current() *View {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	v := *p.current
	v.Stops = append([]Stop(nil), p.current.Stops...)
	return &v
}

// StartTrip persists the current route for ownerID. Every outcome is posted
// as a notice; failures are not retried.
func (p *Planner) StartTrip(ctx context.Context, ownerID string) (Trip, error) {
	if ownerID == "" {
		p.notices.Error("sign in required")
		return Trip{}, apperr.MarkShown(apperr.Authentication("sign in required", nil))
	}
	view := p.Current()
	if view == nil {
		return Trip{}, apperr.Validation("plan a route before starting a trip")
	}

	trip, err := p.trips.Insert(ctx, tripFromView(ownerID, *view))
	if err != nil {
		log.Printf("start trip for %s failed: %v", ownerID, err)
		p.notices.Error("could not start trip")
		return Trip{}, apperr.MarkShown(apperr.Persistence("could not start trip", err))
	}
	p.notices.Success("trip started")
	return trip, nil
}

// Recent lists ownerID's latest trips. Read failures degrade to an empty list.
func (p *Planner) Recent(ctx context.Context, ownerID string, limit int) []Trip {
	if ownerID == "" {
		return []Trip{}
	}
	trips, err := p.trips.Recent(ctx, ownerID, clampLimit(limit))
	if err != nil {
		log.Printf("recent trips for %s failed: %v", ownerID, err)
		return []Trip{}
	}
	if trips == nil {
		trips = []Trip{}
	}
	return trips
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}
