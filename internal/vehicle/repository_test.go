package vehicle

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestFindByOwner(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	tank := 17.5
	mock.ExpectQuery(`SELECT model, fuel_type, autonomy_km, tank_capacity`).
		WithArgs("owner-1").
		WillReturnRows(pgxmock.NewRows([]string{"model", "fuel_type", "autonomy_km", "tank_capacity"}).
			AddRow("CB500", FuelFlex, 300.0, &tank))

	p, err := repo.FindByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if p == nil || p.Model != "CB500" || p.FuelType != FuelFlex || p.TankCapacity == nil || *p.TankCapacity != 17.5 {
		t.Fatalf("unexpected profile %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindByOwnerNoRows(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`FROM vehicle_profiles`).WithArgs("owner-1").WillReturnError(pgx.ErrNoRows)

	p, err := repo.FindByOwner(context.Background(), "owner-1")
	if err != nil || p != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", p, err)
	}
}

func TestFindByOwnerError(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`FROM vehicle_profiles`).WithArgs("owner-1").WillReturnError(errors.New("down"))

	if _, err := repo.FindByOwner(context.Background(), "owner-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestUpsertAndDelete(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectExec(`(?s)INSERT INTO vehicle_profiles.*ON CONFLICT \(owner_id\) DO UPDATE`).
		WithArgs("owner-1", "CB500", "flex", 300.0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM vehicle_profiles`).
		WithArgs("owner-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.Upsert(context.Background(), "owner-1", Profile{Model: "CB500", FuelType: FuelFlex, AutonomyKm: 300}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Delete(context.Background(), "owner-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
