package route

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"backend-motorota/internal/vehicle"
)

const (
	minDistanceKm    = 50
	distanceSpreadKm = 300
	averageSpeedKmh  = 80
	longTripKm       = 200
)

// Stations are the fuel brands stops are drawn from.
var Stations = []string{"Posto Shell", "Posto Ipiranga", "Posto BR", "Posto Ale"}

// CanPlan reports whether a route may be generated. It never does I/O.
func CanPlan(origin, destination string, v *vehicle.Profile) bool {
	return strings.TrimSpace(origin) != "" && strings.TrimSpace(destination) != "" && v != nil
}

// Generator draws simulated routes. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}
	return &Generator{rng: rand.New(src), now: time.Now}
}

func (g *Generator) Generate(origin, destination string) View {
	g.mu.Lock()
	defer g.mu.Unlock()

	distance := g.rng.IntN(distanceSpreadKm) + minDistanceKm
	totalMinutes := distance * 60 / averageSpeedKmh
	hours, minutes := totalMinutes/60, totalMinutes%60

	count := 1
	if distance > longTripKm {
		count = 2
	}
	stops := make([]Stop, 0, count)
	for i := 0; i < count; i++ {
		station := Stations[g.rng.IntN(len(Stations))]
		km := int(float64(distance) * (0.2 + g.rng.Float64()*0.6))
		stops = append(stops, newStop(station, km))
	}
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Km < stops[j].Km })

	return View{
		Origin:      strings.TrimSpace(origin),
		Destination: strings.TrimSpace(destination),
		DistanceKm:  distance,
		Hours:       hours,
		Minutes:     minutes,
		Duration:    fmt.Sprintf("%dh %dmin", hours, minutes),
		Stops:       stops,
		GeneratedAt: g.now(),
	}
}
