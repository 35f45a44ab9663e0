package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"unifit/internal/models"
)

const universityColumns = `id, name, rank, state, acceptance_rate`

func scanUniversity(row pgx.Row) (*models.University, error) {
	var u models.University
	err := row.Scan(&u.ID, &u.Name, &u.Rank, &u.State, &u.AcceptanceRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUniversityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUniversity retrieves one catalog entry by id.
func (d *DB) GetUniversity(ctx context.Context, id string) (*models.University, error) {
	query := `SELECT ` + universityColumns + ` FROM universities WHERE id = $1`
	return scanUniversity(d.Pool.QueryRow(ctx, query, id))
}

// ListUniversities returns the full catalog ordered by rank.
func (d *DB) ListUniversities(ctx context.Context) ([]models.University, error) {
	rows, err := d.Pool.Query(ctx, `SELECT `+universityColumns+` FROM universities ORDER BY rank ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var universities []models.University
	for rows.Next() {
		var u models.University
		if err := rows.Scan(&u.ID, &u.Name, &u.Rank, &u.State, &u.AcceptanceRate); err != nil {
			return nil, err
		}
		universities = append(universities, u)
	}
	return universities, rows.Err()
}

// UpsertUniversity inserts or updates one catalog entry. The refresher never
// deletes entries so existing fit records keep a valid reference.
func (d *DB) UpsertUniversity(ctx context.Context, u *models.University) error {
	query := `
		INSERT INTO universities (id, name, rank, state, acceptance_rate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			rank = EXCLUDED.rank,
			state = EXCLUDED.state,
			acceptance_rate = EXCLUDED.acceptance_rate,
			updated_at = NOW()
	`
	_, err := d.Pool.Exec(ctx, query, u.ID, u.Name, u.Rank, u.State, u.AcceptanceRate)
	return err
}
