package profile

import (
	"context"
	"strings"

	"backend-motorota/internal/db"
)

type Repository struct {
	db db.Querier
}

func NewRepository(db db.Querier) *Repository {
	return &Repository{db: db}
}

// FindByID returns nil without error when no profile row exists.
func (r *Repository) FindByID(ctx context.Context, id string) (*UserProfile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, name, is_premium, created_at
		FROM profiles WHERE id=$1
	`, id)
	var p UserProfile
	if err := row.Scan(&p.ID, &p.Email, &p.Name, &p.IsPremium, &p.CreatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Ensure provisions the profile row for a freshly registered user. Existing
// rows are left untouched so repeated calls never duplicate or reset them.
func (r *Repository) Ensure(ctx context.Context, id, email string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO profiles (id, email, name, is_premium)
		VALUES ($1,$2,$3,false)
		ON CONFLICT (id) DO NOTHING
	`, id, email, DefaultName(email))
	return err
}

// DefaultName derives a display name from the local part of an email.
func DefaultName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "User"
	}
	return local
}
