package route

import (
	"context"

	"backend-motorota/internal/db"

	"github.com/google/uuid"
)

// TripStore persists started trips.
type TripStore interface {
	Insert(ctx context.Context, trip Trip) (Trip, error)
	Recent(ctx context.Context, ownerID string, limit int) ([]Trip, error)
}

type PostgresTrips struct {
	db db.Querier
}

func NewPostgresTrips(db db.Querier) *PostgresTrips {
	return &PostgresTrips{db: db}
}

func (r *PostgresTrips) Insert(ctx context.Context, trip Trip) (Trip, error) {
	trip.ID = uuid.NewString()
	row := r.db.QueryRow(ctx, `
		INSERT INTO trips (id, owner_id, origin, destination, distance_km, duration_minutes, duration_text, fuel_stops)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, trip.ID, trip.OwnerID, trip.Origin, trip.Destination, trip.DistanceKm, trip.DurationMinutes, trip.Duration, trip.FuelStops)
	if err := row.Scan(&trip.CreatedAt); err != nil {
		return Trip{}, err
	}
	return trip, nil
}

func (r *PostgresTrips) Recent(ctx context.Context, ownerID string, limit int) ([]Trip, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, owner_id, origin, destination, distance_km, duration_minutes, duration_text, fuel_stops, created_at
		FROM trips WHERE owner_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Origin, &t.Destination, &t.DistanceKm, &t.DurationMinutes, &t.Duration, &t.FuelStops, &t.CreatedAt); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}
