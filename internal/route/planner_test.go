package route

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"backend-motorota/internal/apperr"
	"backend-motorota/internal/vehicle"
)

type fakeTrips struct {
	mu        sync.Mutex
	inserted  []Trip
	insertErr error
	recent    []Trip
	recentErr error
}

func (f *fakeTrips) Insert(ctx context.Context, trip Trip) (Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		f.inserted = append(f.inserted, Trip{})
		return Trip{}, f.insertErr
	}
	trip.ID = "trip-1"
	trip.CreatedAt = time.Now()
	f.inserted = append(f.inserted, trip)
	return trip, nil
}

func (f *fakeTrips) Recent(ctx context.Context, ownerID string, limit int) ([]Trip, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.recent, nil
}

type recordedNotice struct {
	ok      bool
	message string
}

type fakeNotices struct {
	posted []recordedNotice
}

func (f *fakeNotices) Success(message string) { f.posted = append(f.posted, recordedNotice{true, message}) }
func (f *fakeNotices) Error(message string)   { f.posted = append(f.posted, recordedNotice{false, message}) }

type memDrafts map[string]string

func (m memDrafts) Get(_ context.Context, field string) (string, error) { return m[field], nil }
func (m memDrafts) Set(_ context.Context, field, value string) error {
	m[field] = value
	return nil
}

var bike = &vehicle.Profile{Model: "CB500", FuelType: vehicle.FuelFlex, AutonomyKm: 300}

func newTestPlanner() (*Planner, *fakeTrips, *fakeNotices) {
	trips := &fakeTrips{}
	notices := &fakeNotices{}
	return NewPlanner(NewGenerator(rand.NewPCG(3, 4)), trips, notices), trips, notices
}

func TestPlanRejectsWhenGated(t *testing.T) {
	p, _, _ := newTestPlanner()
	drafts := memDrafts{}

	_, err := p.Plan(context.Background(), drafts, Draft{Origin: "Campinas, SP"}, bike)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if p.Current() != nil || len(drafts) != 0 {
		t.Fatalf("gated plan must not change state")
	}
}

func TestPlanStoresDraftAndCurrent(t *testing.T) {
	p, _, _ := newTestPlanner()
	drafts := memDrafts{}

	view, err := p.Plan(context.Background(), drafts, Draft{Origin: "Campinas, SP ", Destination: "Ubatuba, SP"}, bike)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if cur := p.Current(); cur == nil || cur.DistanceKm != view.DistanceKm {
		t.Fatalf("current route not kept")
	}
	draft, _ := LoadDraft(context.Background(), drafts)
	if draft.Origin != "Campinas, SP" || draft.Destination != "Ubatuba, SP" {
		t.Fatalf("draft not carried over: %+v", draft)
	}
}

func TestStartTripRequiresOwner(t *testing.T) {
	p, trips, notices := newTestPlanner()
	if _, err := p.Plan(context.Background(), nil, Draft{Origin: "A", Destination: "B"}, bike); err != nil {
		t.Fatalf("plan: %v", err)
	}

	_, err := p.StartTrip(context.Background(), "")
	if !apperr.Is(err, apperr.KindAuthentication) || !apperr.WasShown(err) {
		t.Fatalf("expected shown authentication error, got %v", err)
	}
	if len(trips.inserted) != 0 {
		t.Fatalf("no write expected without owner")
	}
	if len(notices.posted) != 1 || notices.posted[0].ok || notices.posted[0].message != "sign in required" {
		t.Fatalf("unexpected notices %+v", notices.posted)
	}
}

func TestStartTripWithoutRoute(t *testing.T) {
	p, trips, _ := newTestPlanner()
	if _, err := p.StartTrip(context.Background(), "owner-1"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(trips.inserted) != 0 {
		t.Fatalf("no write expected without route")
	}
}

func TestStartTripFailureIsNotRetried(t *testing.T) {
	p, trips, notices := newTestPlanner()
	trips.insertErr = errors.New("insert failed")
	if _, err := p.Plan(context.Background(), nil, Draft{Origin: "A", Destination: "B"}, bike); err != nil {
		t.Fatalf("plan: %v", err)
	}

	_, err := p.StartTrip(context.Background(), "owner-1")
	if !apperr.Is(err, apperr.KindPersistence) || !apperr.WasShown(err) {
		t.Fatalf("expected shown persistence error, got %v", err)
	}
	if len(trips.inserted) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(trips.inserted))
	}
	if len(notices.posted) != 1 || notices.posted[0].ok {
		t.Fatalf("expected one error notice, got %+v", notices.posted)
	}
}

func TestStartTripPersistsRoute(t *testing.T) {
	p, trips, notices := newTestPlanner()
	view, err := p.Plan(context.Background(), nil, Draft{Origin: "Campinas, SP", Destination: "Ubatuba, SP"}, bike)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	trip, err := p.StartTrip(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if trip.OwnerID != "owner-1" || trip.DistanceKm != view.DistanceKm || trip.DurationMinutes != view.DurationMinutes() {
		t.Fatalf("unexpected trip %+v", trip)
	}
	if len(trip.FuelStops) != len(view.Stops) || trip.FuelStops[0] != view.Stops[0].Label {
		t.Fatalf("stops not persisted in order: %v", trip.FuelStops)
	}
	if len(trips.inserted) != 1 || len(notices.posted) != 1 || !notices.posted[0].ok {
		t.Fatalf("expected one insert and a success notice")
	}
}

func TestRecentFailsSoft(t *testing.T) {
	p, trips, _ := newTestPlanner()
	trips.recentErr = errors.New("read failed")

	if got := p.Recent(context.Background(), "owner-1", 5); got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
	if got := p.Recent(context.Background(), "", 5); len(got) != 0 {
		t.Fatalf("anonymous callers have no trips")
	}
}

func TestClampLimit(t *testing.T) {
	if clampLimit(0) != DefaultRecentLimit || clampLimit(500) != MaxRecentLimit || clampLimit(7) != 7 {
		t.Fatalf("unexpected clamping")
	}
}
