package vehicle

import (
	"context"

	"backend-motorota/internal/db"
)

// Repository persists one Profile per owner.
type Repository interface {
	FindByOwner(ctx context.Context, ownerID string) (*Profile, error)
	Upsert(ctx context.Context, ownerID string, p Profile) error
	Delete(ctx context.Context, ownerID string) error
}

type PostgresRepository struct {
	db db.Querier
}

func NewPostgresRepository(db db.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByOwner returns nil without error when the owner has no vehicle yet.
func (r *PostgresRepository) FindByOwner(ctx context.Context, ownerID string) (*Profile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT model, fuel_type, autonomy_km, tank_capacity
		FROM vehicle_profiles WHERE owner_id=$1
	`, ownerID)
	var p Profile
	if err := row.Scan(&p.Model, &p.FuelType, &p.AutonomyKm, &p.TankCapacity); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, ownerID string, p Profile) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO vehicle_profiles (owner_id, model, fuel_type, autonomy_km, tank_capacity, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
		ON CONFLICT (owner_id) DO UPDATE
		SET model=EXCLUDED.model, fuel_type=EXCLUDED.fuel_type, autonomy_km=EXCLUDED.autonomy_km,
			tank_capacity=EXCLUDED.tank_capacity, updated_at=now()
	`, ownerID, p.Model, string(p.FuelType), p.AutonomyKm, p.TankCapacity)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM vehicle_profiles WHERE owner_id=$1`, ownerID)
	return err
}
