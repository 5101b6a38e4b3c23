package route

import (
	"fmt"
	"time"
)

type Stop struct {
	Station string `json:"station"`
	Km      int    `json:"km"`
	Label   string `json:"label"`
}

func newStop(station string, km int) Stop {
	return Stop{Station: station, Km: km, Label: fmt.Sprintf("%s - km %d", station, km)}
}

// View is one generated route. It is never read back from storage.
type View struct {
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DistanceKm  int       `json:"distance_km"`
	Hours       int       `json:"hours"`
	Minutes     int       `json:"minutes"`
	Duration    string    `json:"duration"`
	Stops       []Stop    `json:"stops"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (v View) DurationMinutes() int {
	return v.Hours*60 + v.Minutes
}

func (v View) StopLabels() []string {
	labels := make([]string, len(v.Stops))
	for i, s := range v.Stops {
		labels[i] = s.Label
	}
	return labels
}

// Trip is a View the owner chose to start.
type Trip struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	DistanceKm      int       `json:"distance_km"`
	DurationMinutes int       `json:"duration_minutes"`
	Duration        string    `json:"duration"`
	FuelStops       []string  `json:"fuel_stops"`
	CreatedAt       time.Time `json:"created_at"`
}

func tripFromView(ownerID string, v View) Trip {
	return Trip{
		OwnerID:         ownerID,
		Origin:          v.Origin,
		Destination:     v.Destination,
		DistanceKm:      v.DistanceKm,
		DurationMinutes: v.DurationMinutes(),
		Duration:        v.Duration,
		FuelStops:       v.StopLabels(),
	}
}

// Draft is the origin/destination pair carried over within a browser session.
type Draft struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}
