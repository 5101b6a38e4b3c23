// Package workspace binds the per-device stores together and resolves them
// from incoming requests.
package workspace

import (
	"context"
	"sync"
	"time"

	"backend-motorota/internal/carryover"
	"backend-motorota/internal/identity"
	"backend-motorota/internal/notice"
	"backend-motorota/internal/route"
	"backend-motorota/internal/session"
	"backend-motorota/internal/stream"
	"backend-motorota/internal/vehicle"

	"github.com/redis/go-redis/v9"
)

// Deps are the collaborators shared by every workspace.
type Deps struct {
	Auth      identity.Authenticator
	Redis     *redis.Client
	Profiles  session.Profiles
	Vehicles  vehicle.Repository
	Trips     route.TripStore
	Carryover *carryover.Store
	Hub       *stream.Hub
	Generator *route.Generator
	NoticeTTL time.Duration
}

// Workspace is the client state of one browser device.
type Workspace struct {
	deviceID  string
	carryover *carryover.Store
	session   *session.Store
	vehicles  *vehicle.Store
	planner   *route.Planner
	notices   *notice.Board

	mu       sync.Mutex
	lastSeen time.Time
	unsubs   []func()
}

func newWorkspace(deviceID string, deps Deps) *Workspace {
	client := identity.NewClient(deps.Auth, identity.NewTokenStore(deps.Redis, deviceID))
	notices := notice.NewBoard(deps.NoticeTTL)

	w := &Workspace{
		deviceID:  deviceID,
		carryover: deps.Carryover,
		session:   session.NewStore(client, deps.Profiles),
		vehicles:  vehicle.NewStore(deps.Vehicles),
		planner:   route.NewPlanner(deps.Generator, deps.Trips, notices),
		notices:   notices,
		lastSeen:  time.Now(),
	}

	publish := func(stream.Event) {}
	if deps.Hub != nil {
		publish = func(e stream.Event) { deps.Hub.Publish(deviceID, e) }
	}

	w.unsubs = append(w.unsubs,
		w.session.Subscribe(func(st session.State) {
			w.vehicles.SetOwner(st.OwnerID())
			publish(stream.Event{Type: stream.EventSession, Data: st.View()})
		}),
		w.vehicles.OnChange(func(*vehicle.Profile) {
			publish(stream.Event{Type: stream.EventVehicle, Data: w.vehicles.View()})
		}),
		notices.OnChange(func(n *notice.Notice) {
			publish(stream.Event{Type: stream.EventNotice, Data: n})
		}),
	)
	w.session.Start(context.Background())
	w.unsubs = append(w.unsubs, w.session.Close)
	return w
}

func (w *Workspace) DeviceID() string { return w.deviceID }

func (w *Workspace) Session() *session.Store { return w.session }

func (w *Workspace) Vehicles() *vehicle.Store { return w.vehicles }

func (w *Workspace) Notices() *notice.Board { return w.notices }

// ForTab scopes the workspace to one browser session for input carry-over.
func (w *Workspace) ForTab(tabID string) *View {
	return &View{ws: w, tabID: tabID}
}

// Snapshot is the state replayed to a freshly opened socket.
func (w *Workspace) Snapshot() []stream.Event {
	events := []stream.Event{
		{Type: stream.EventSession, Data: w.session.Current().View()},
		{Type: stream.EventVehicle, Data: w.vehicles.View()},
	}
	if n := w.notices.Current(); n != nil {
		events = append(events, stream.Event{Type: stream.EventNotice, Data: n})
	}
	if v := w.planner.Current(); v != nil {
		events = append(events, stream.Event{Type: stream.EventRoute, Data: v})
	}
	return events
}

func (w *Workspace) touch() {
	w.mu.Lock()
	w.lastSeen = time.Now()
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// close detaches listeners and waits for background fetches.
func (w *Workspace) close() {
	w.mu.Lock()
	unsubs := w.unsubs
	w.unsubs = nil
	w.mu.Unlock()
	for _, fn := range unsubs {
		fn()
	}
	w.vehicles.Wait()
}

// View is a Workspace seen from one browser session.
type View struct {
	ws    *Workspace
	tabID string
}

func (v *View) Planner() *route.Planner { return v.ws.planner }

func (v *View) Drafts() route.Drafts { return v.ws.carryover.Bucket(v.tabID) }

func (v *View) OwnerID() string { return v.ws.session.Current().OwnerID() }

func (v *View) Vehicle() *vehicle.Profile { return v.ws.vehicles.Current() }

func (v *View) VehicleLoading() bool { return v.ws.vehicles.Loading() }
