package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"unifit/internal/db"
	"unifit/internal/evaluator"
	"unifit/internal/metrics"
	"unifit/internal/models"
)

type computeResult struct {
	record    *models.FitRecord
	fromCache bool
}

// ComputeFit runs one (user, university) computation with cache-first
// semantics. Concurrent calls for the same key collapse into a single
// flight: at most one evaluator call and one credit charge happen, and every
// waiter receives that flight's result.
//
// A caller whose context expires abandons only its own wait; the dispatched
// computation finishes on a detached context and still populates the store
// and cache for the next caller.
func (e *Engine) ComputeFit(ctx context.Context, userEmail, universityID string, force bool) (*models.FitRecord, bool, error) {
	// Forced recomputes fly under their own key: a force=true caller must
	// never be satisfied by joining a plain flight that resolves as a cache
	// hit.
	key := userEmail + "\x00" + universityID
	if force {
		key += "\x00force"
	}

	detached := context.WithoutCancel(ctx)
	ch := e.flights.DoChan(key, func() (any, error) {
		return e.computeFit(detached, userEmail, universityID, force)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		result := res.Val.(*computeResult)
		return result.record, result.fromCache, nil
	}
}

func (e *Engine) computeFit(ctx context.Context, userEmail, universityID string, force bool) (*computeResult, error) {
	profile, err := e.profiles.GetOrCreateProfile(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	// Cache-first: a fresh record short-circuits everything, no charge, no
	// evaluator call.
	if !force {
		if cached := e.cache.Get(userEmail, universityID); cached != nil && !cached.IsStale(profile.ProfileVersion) {
			metrics.RecordFitComputation(metrics.OutcomeCacheHit)
			return &computeResult{record: cached, fromCache: true}, nil
		}

		record, err := e.records.GetFitRecord(ctx, userEmail, universityID)
		if err != nil && !errors.Is(err, db.ErrFitRecordNotFound) {
			return nil, fmt.Errorf("read fit record: %w", err)
		}
		if record != nil && !record.IsStale(profile.ProfileVersion) {
			e.cache.Put(record)
			metrics.RecordFitComputation(metrics.OutcomeCacheHit)
			return &computeResult{record: record, fromCache: true}, nil
		}
	}

	university, err := e.catalog.GetUniversity(ctx, universityID)
	if err != nil {
		return nil, err
	}

	// Cheap gate before the expensive call. The authoritative check is the
	// conditional deduct after a successful evaluation.
	account, err := e.ledger.GetOrCreateAccount(ctx, userEmail, e.cfg.FreeCredits)
	if err != nil {
		return nil, fmt.Errorf("load credit account: %w", err)
	}
	if !account.CanAfford(e.cfg.FitCreditCost) {
		metrics.RecordFitComputation(metrics.OutcomeInsufficientCredits)
		return nil, db.ErrInsufficientCredits
	}

	result, err := e.evaluate(ctx, profile, university)
	if err != nil {
		metrics.RecordFitComputation(metrics.OutcomeFailed)
		return nil, err
	}

	// Charge only now that the evaluator succeeded. A failed evaluation
	// never burns a credit; a balance drained since the gate check fails
	// here without partially decrementing.
	remaining, err := e.ledger.DeductCredits(ctx, userEmail, e.cfg.FitCreditCost, ReasonFitComputation)
	if err != nil {
		if errors.Is(err, db.ErrInsufficientCredits) {
			metrics.RecordFitComputation(metrics.OutcomeInsufficientCredits)
		}
		return nil, err
	}

	percentage, category := e.scorer.Score(result.Factors, university)
	record := &models.FitRecord{
		UserEmail:           userEmail,
		UniversityID:        universityID,
		MatchPercentage:     percentage,
		FitCategory:         category,
		Factors:             result.Factors,
		GapAnalysis:         result.GapAnalysis,
		Recommendations:     result.Recommendations,
		EssayAngles:         result.EssayAngles,
		ScholarshipMatches:  result.ScholarshipMatches,
		ApplicationTimeline: result.ApplicationTimeline,
		ProfileVersion:      profile.ProfileVersion,
		ComputedAt:          time.Now().UTC(),
	}

	if err := e.records.PutFitRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("persist fit record: %w", err)
	}
	e.cache.Put(record)

	metrics.RecordFitComputation(metrics.OutcomeComputed)
	e.logger.Info("fit computed",
		zap.String("user_email", userEmail),
		zap.String("university_id", universityID),
		zap.Int("match_percentage", percentage),
		zap.String("fit_category", category),
		zap.Int("credits_remaining", remaining),
	)

	return &computeResult{record: record}, nil
}

// evaluate calls the factor evaluator with the configured deadline, retrying
// once on transient failure. Both attempts happen before any credit charge.
// A missing profile document is not transient; it means the user has not
// onboarded yet and is surfaced immediately.
func (e *Engine) evaluate(ctx context.Context, profile *models.StudentProfile, university *models.University) (*evaluator.Result, error) {
	result, err := e.evaluateOnce(ctx, profile, university)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, evaluator.ErrProfileNotFound) {
		return nil, err
	}

	e.logger.Warn("evaluator call failed, retrying once",
		zap.String("user_email", profile.UserEmail),
		zap.String("university_id", university.ID),
		zap.Error(err),
	)

	result, retryErr := e.evaluateOnce(ctx, profile, university)
	if retryErr != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) evaluateOnce(ctx context.Context, profile *models.StudentProfile, university *models.University) (*evaluator.Result, error) {
	evalCtx, cancel := context.WithTimeout(ctx, e.cfg.EvaluatorTimeout)
	defer cancel()

	start := time.Now()
	result, err := e.evaluator.Evaluate(evalCtx, profile, university)
	metrics.ObserveEvaluatorDuration(time.Since(start), err == nil)
	if err != nil {
		if errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", evaluator.ErrTimeout, err)
		}
		return nil, err
	}
	return result, nil
}
