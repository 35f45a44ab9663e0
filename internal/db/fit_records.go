package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"unifit/internal/models"
)

// fitRecordColumns is the standard column list for fit record queries.
const fitRecordColumns = `user_email, university_id, match_percentage, fit_category,
	factors, gap_analysis, recommendations, essay_angles, scholarship_matches,
	application_timeline, profile_version, computed_at`

// scanFitRecord scans a row into a FitRecord struct.
func scanFitRecord(row pgx.Row) (*models.FitRecord, error) {
	var record models.FitRecord
	var factors, recommendations, essayAngles, scholarships []byte
	err := row.Scan(
		&record.UserEmail,
		&record.UniversityID,
		&record.MatchPercentage,
		&record.FitCategory,
		&factors,
		&record.GapAnalysis,
		&recommendations,
		&essayAngles,
		&scholarships,
		&record.ApplicationTimeline,
		&record.ProfileVersion,
		&record.ComputedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFitRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := decodeRecordJSON(&record, factors, recommendations, essayAngles, scholarships); err != nil {
		return nil, err
	}
	return &record, nil
}

func decodeRecordJSON(record *models.FitRecord, factors, recommendations, essayAngles, scholarships []byte) error {
	if err := json.Unmarshal(factors, &record.Factors); err != nil {
		return fmt.Errorf("decode factors: %w", err)
	}
	if err := json.Unmarshal(recommendations, &record.Recommendations); err != nil {
		return fmt.Errorf("decode recommendations: %w", err)
	}
	if err := json.Unmarshal(essayAngles, &record.EssayAngles); err != nil {
		return fmt.Errorf("decode essay angles: %w", err)
	}
	if err := json.Unmarshal(scholarships, &record.ScholarshipMatches); err != nil {
		return fmt.Errorf("decode scholarship matches: %w", err)
	}
	return nil
}

// scanFitRecords scans multiple rows into a slice of FitRecords.
func scanFitRecords(rows pgx.Rows) ([]models.FitRecord, error) {
	defer rows.Close()

	var records []models.FitRecord
	for rows.Next() {
		var record models.FitRecord
		var factors, recommendations, essayAngles, scholarships []byte
		if err := rows.Scan(
			&record.UserEmail,
			&record.UniversityID,
			&record.MatchPercentage,
			&record.FitCategory,
			&factors,
			&record.GapAnalysis,
			&recommendations,
			&essayAngles,
			&scholarships,
			&record.ApplicationTimeline,
			&record.ProfileVersion,
			&record.ComputedAt,
		); err != nil {
			return nil, err
		}
		if err := decodeRecordJSON(&record, factors, recommendations, essayAngles, scholarships); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// PutFitRecord stores a fit record, overwriting any existing record for the
// same (user, university) pair. Writes are whole-record, never merges.
func (d *DB) PutFitRecord(ctx context.Context, record *models.FitRecord) error {
	factors, err := json.Marshal(record.Factors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}
	recommendations, err := json.Marshal(record.Recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}
	essayAngles, err := json.Marshal(record.EssayAngles)
	if err != nil {
		return fmt.Errorf("encode essay angles: %w", err)
	}
	scholarships, err := json.Marshal(record.ScholarshipMatches)
	if err != nil {
		return fmt.Errorf("encode scholarship matches: %w", err)
	}

	query := `
		INSERT INTO fit_records (user_email, university_id, match_percentage, fit_category,
			factors, gap_analysis, recommendations, essay_angles, scholarship_matches,
			application_timeline, profile_version, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_email, university_id) DO UPDATE SET
			match_percentage = EXCLUDED.match_percentage,
			fit_category = EXCLUDED.fit_category,
			factors = EXCLUDED.factors,
			gap_analysis = EXCLUDED.gap_analysis,
			recommendations = EXCLUDED.recommendations,
			essay_angles = EXCLUDED.essay_angles,
			scholarship_matches = EXCLUDED.scholarship_matches,
			application_timeline = EXCLUDED.application_timeline,
			profile_version = EXCLUDED.profile_version,
			computed_at = EXCLUDED.computed_at
	`
	_, err = d.Pool.Exec(ctx, query,
		record.UserEmail,
		record.UniversityID,
		record.MatchPercentage,
		record.FitCategory,
		factors,
		record.GapAnalysis,
		recommendations,
		essayAngles,
		scholarships,
		record.ApplicationTimeline,
		record.ProfileVersion,
		record.ComputedAt,
	)
	return err
}

// GetFitRecord retrieves the record for one (user, university) pair.
func (d *DB) GetFitRecord(ctx context.Context, userEmail, universityID string) (*models.FitRecord, error) {
	query := `SELECT ` + fitRecordColumns + ` FROM fit_records WHERE user_email = $1 AND university_id = $2`
	return scanFitRecord(d.Pool.QueryRow(ctx, query, userEmail, universityID))
}

// FitQuery holds the filters for bulk fit record reads.
type FitQuery struct {
	Category   string
	State      string
	ExcludeIDs []string
	Limit      int
	SortBy     string // "rank" or "match_score"
}

// QueryFitRecords retrieves a user's fit records with optional category,
// state and exclusion filters. Rank sorting joins the catalog; match_score
// sorting orders by percentage descending.
func (d *DB) QueryFitRecords(ctx context.Context, userEmail string, q FitQuery) ([]models.FitRecord, error) {
	sql := `
		SELECT f.user_email, f.university_id, f.match_percentage, f.fit_category,
			f.factors, f.gap_analysis, f.recommendations, f.essay_angles, f.scholarship_matches,
			f.application_timeline, f.profile_version, f.computed_at
		FROM fit_records f
		JOIN universities u ON u.id = f.university_id
		WHERE f.user_email = $1
	`
	args := []any{userEmail}

	if q.Category != "" {
		sql += ` AND f.fit_category = $` + strconv.Itoa(len(args)+1)
		args = append(args, q.Category)
	}
	if q.State != "" {
		sql += ` AND u.state = $` + strconv.Itoa(len(args)+1)
		args = append(args, q.State)
	}
	if len(q.ExcludeIDs) > 0 {
		sql += ` AND NOT (f.university_id = ANY($` + strconv.Itoa(len(args)+1) + `))`
		args = append(args, q.ExcludeIDs)
	}

	switch q.SortBy {
	case "match_score":
		sql += ` ORDER BY f.match_percentage DESC, u.rank ASC`
	default:
		sql += ` ORDER BY u.rank ASC, f.match_percentage DESC`
	}

	if q.Limit > 0 {
		sql += ` LIMIT $` + strconv.Itoa(len(args)+1)
		args = append(args, q.Limit)
	}

	rows, err := d.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return scanFitRecords(rows)
}

// CountFitRecords returns the number of records a user has, with the same
// filters as QueryFitRecords but no limit.
func (d *DB) CountFitRecords(ctx context.Context, userEmail string, q FitQuery) (int, error) {
	sql := `
		SELECT COUNT(*)
		FROM fit_records f
		JOIN universities u ON u.id = f.university_id
		WHERE f.user_email = $1
	`
	args := []any{userEmail}

	if q.Category != "" {
		sql += ` AND f.fit_category = $` + strconv.Itoa(len(args)+1)
		args = append(args, q.Category)
	}
	if q.State != "" {
		sql += ` AND u.state = $` + strconv.Itoa(len(args)+1)
		args = append(args, q.State)
	}
	if len(q.ExcludeIDs) > 0 {
		sql += ` AND NOT (f.university_id = ANY($` + strconv.Itoa(len(args)+1) + `))`
		args = append(args, q.ExcludeIDs)
	}

	var count int
	err := d.Pool.QueryRow(ctx, sql, args...).Scan(&count)
	return count, err
}

// CountStaleFitRecords returns how many of a user's records were computed
// against a profile version older than the given one.
func (d *DB) CountStaleFitRecords(ctx context.Context, userEmail string, currentVersion int64) (int, error) {
	query := `SELECT COUNT(*) FROM fit_records WHERE user_email = $1 AND profile_version <> $2`
	var count int
	err := d.Pool.QueryRow(ctx, query, userEmail, currentVersion).Scan(&count)
	return count, err
}

// CountFitRecordsByCategory returns record counts grouped by category across
// all users, for the metrics collector.
func (d *DB) CountFitRecordsByCategory(ctx context.Context) (map[string]int64, error) {
	rows, err := d.Pool.Query(ctx, `SELECT fit_category, COUNT(*) FROM fit_records GROUP BY fit_category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

// ListFitUniversityIDs returns the university ids a user has records for.
// Used by profile reset to purge cache entries before deleting rows.
func (d *DB) ListFitUniversityIDs(ctx context.Context, userEmail string) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `SELECT university_id FROM fit_records WHERE user_email = $1`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteFitRecords removes all of a user's fit records (explicit profile
// reset only).
func (d *DB) DeleteFitRecords(ctx context.Context, userEmail string) (int64, error) {
	result, err := d.Pool.Exec(ctx, `DELETE FROM fit_records WHERE user_email = $1`, userEmail)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
