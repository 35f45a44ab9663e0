package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"unifit/internal/models"
)

const profileColumns = `user_email, profile_version, fits_computed_at, fits_version,
	created_at, updated_at`

func scanProfile(row pgx.Row) (*models.StudentProfile, error) {
	var p models.StudentProfile
	err := row.Scan(
		&p.UserEmail,
		&p.ProfileVersion,
		&p.FitsComputedAt,
		&p.FitsVersion,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile retrieves the engine's view of a student profile.
func (d *DB) GetProfile(ctx context.Context, userEmail string) (*models.StudentProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM student_profiles WHERE user_email = $1`
	return scanProfile(d.Pool.QueryRow(ctx, query, userEmail))
}

// GetOrCreateProfile retrieves a profile, creating version 1 on first touch.
func (d *DB) GetOrCreateProfile(ctx context.Context, userEmail string) (*models.StudentProfile, error) {
	query := `
		INSERT INTO student_profiles (user_email)
		VALUES ($1)
		ON CONFLICT (user_email) DO UPDATE SET user_email = EXCLUDED.user_email
		RETURNING ` + profileColumns
	return scanProfile(d.Pool.QueryRow(ctx, query, userEmail))
}

// BumpProfileVersion increments the profile version and returns the new one.
// Called whenever the external profile store reports a mutation. Fit records
// are not touched here; staleness is detected lazily by version comparison.
func (d *DB) BumpProfileVersion(ctx context.Context, userEmail string) (int64, error) {
	query := `
		INSERT INTO student_profiles (user_email, profile_version)
		VALUES ($1, 1)
		ON CONFLICT (user_email) DO UPDATE SET
			profile_version = student_profiles.profile_version + 1,
			updated_at = NOW()
		RETURNING profile_version
	`
	var version int64
	err := d.Pool.QueryRow(ctx, query, userEmail).Scan(&version)
	return version, err
}

// MarkFitsComputed stamps the full-pass marker with the profile version the
// pass ran against.
func (d *DB) MarkFitsComputed(ctx context.Context, userEmail string, version int64, at time.Time) error {
	result, err := d.Pool.Exec(ctx, `
		UPDATE student_profiles
		SET fits_computed_at = $2, fits_version = $3, updated_at = NOW()
		WHERE user_email = $1
	`, userEmail, at, version)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// ResetFits clears the full-pass marker during an explicit profile reset.
func (d *DB) ResetFits(ctx context.Context, userEmail string) error {
	result, err := d.Pool.Exec(ctx, `
		UPDATE student_profiles
		SET fits_computed_at = NULL, fits_version = 0, updated_at = NOW()
		WHERE user_email = $1
	`, userEmail)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
