package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"unifit/internal/db"
	"unifit/internal/evaluator"
	"unifit/internal/models"
)

// fakeBackend is an in-memory implementation of RecordStore, Catalog,
// ProfileStore and Ledger backing the engine tests.
type fakeBackend struct {
	mu sync.Mutex

	records      map[string]*models.FitRecord
	profiles     map[string]*models.StudentProfile
	accounts     map[string]*models.CreditAccount
	universities map[string]*models.University
	catalogOrder []string

	deductCalls  int
	transactions []models.CreditTransaction
	markCalls    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		records:      make(map[string]*models.FitRecord),
		profiles:     make(map[string]*models.StudentProfile),
		accounts:     make(map[string]*models.CreditAccount),
		universities: make(map[string]*models.University),
	}
}

func (f *fakeBackend) addUniversity(id string, rank int, state string, acceptanceRate float64) {
	f.universities[id] = &models.University{
		ID:             id,
		Name:           id,
		Rank:           rank,
		State:          state,
		AcceptanceRate: acceptanceRate,
	}
	f.catalogOrder = append(f.catalogOrder, id)
}

func recordMapKey(userEmail, universityID string) string {
	return userEmail + "\x00" + universityID
}

func (f *fakeBackend) GetFitRecord(_ context.Context, userEmail, universityID string) (*models.FitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[recordMapKey(userEmail, universityID)]
	if !ok {
		return nil, db.ErrFitRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (f *fakeBackend) PutFitRecord(_ context.Context, record *models.FitRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *record
	f.records[recordMapKey(record.UserEmail, record.UniversityID)] = &clone
	return nil
}

func (f *fakeBackend) matchingRecords(userEmail string, q db.FitQuery) []models.FitRecord {
	excluded := make(map[string]bool, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		excluded[id] = true
	}

	var out []models.FitRecord
	for _, record := range f.records {
		if record.UserEmail != userEmail {
			continue
		}
		if q.Category != "" && record.FitCategory != q.Category {
			continue
		}
		if excluded[record.UniversityID] {
			continue
		}
		if q.State != "" {
			u, ok := f.universities[record.UniversityID]
			if !ok || u.State != q.State {
				continue
			}
		}
		out = append(out, *record)
	}

	sort.Slice(out, func(i, j int) bool {
		if q.SortBy == "match_score" {
			if out[i].MatchPercentage != out[j].MatchPercentage {
				return out[i].MatchPercentage > out[j].MatchPercentage
			}
		} else {
			ri, rj := 0, 0
			if u, ok := f.universities[out[i].UniversityID]; ok {
				ri = u.Rank
			}
			if u, ok := f.universities[out[j].UniversityID]; ok {
				rj = u.Rank
			}
			if ri != rj {
				return ri < rj
			}
		}
		return out[i].UniversityID < out[j].UniversityID
	})

	return out
}

func (f *fakeBackend) QueryFitRecords(_ context.Context, userEmail string, q db.FitQuery) ([]models.FitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.matchingRecords(userEmail, q)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeBackend) CountFitRecords(_ context.Context, userEmail string, q db.FitQuery) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matchingRecords(userEmail, q)), nil
}

func (f *fakeBackend) CountStaleFitRecords(_ context.Context, userEmail string, currentVersion int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, record := range f.records {
		if record.UserEmail == userEmail && record.IsStale(currentVersion) {
			count++
		}
	}
	return count, nil
}

func (f *fakeBackend) ListFitUniversityIDs(_ context.Context, userEmail string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, record := range f.records {
		if record.UserEmail == userEmail {
			ids = append(ids, record.UniversityID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeBackend) DeleteFitRecords(_ context.Context, userEmail string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for key, record := range f.records {
		if record.UserEmail == userEmail {
			delete(f.records, key)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeBackend) GetUniversity(_ context.Context, id string) (*models.University, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.universities[id]
	if !ok {
		return nil, db.ErrUniversityNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeBackend) ListUniversities(_ context.Context) ([]models.University, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.University, 0, len(f.catalogOrder))
	for _, id := range f.catalogOrder {
		out = append(out, *f.universities[id])
	}
	return out, nil
}

func (f *fakeBackend) GetProfile(_ context.Context, userEmail string) (*models.StudentProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userEmail]
	if !ok {
		return nil, db.ErrProfileNotFound
	}
	clone := *profile
	return &clone, nil
}

func (f *fakeBackend) GetOrCreateProfile(_ context.Context, userEmail string) (*models.StudentProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userEmail]
	if !ok {
		profile = &models.StudentProfile{UserEmail: userEmail, ProfileVersion: 1}
		f.profiles[userEmail] = profile
	}
	clone := *profile
	return &clone, nil
}

func (f *fakeBackend) BumpProfileVersion(_ context.Context, userEmail string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userEmail]
	if !ok {
		profile = &models.StudentProfile{UserEmail: userEmail, ProfileVersion: 1}
		f.profiles[userEmail] = profile
		return 1, nil
	}
	profile.ProfileVersion++
	return profile.ProfileVersion, nil
}

func (f *fakeBackend) MarkFitsComputed(_ context.Context, userEmail string, version int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userEmail]
	if !ok {
		return db.ErrProfileNotFound
	}
	profile.FitsVersion = version
	profile.FitsComputedAt = &at
	f.markCalls++
	return nil
}

func (f *fakeBackend) ResetFits(_ context.Context, userEmail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userEmail]
	if !ok {
		return db.ErrProfileNotFound
	}
	profile.FitsVersion = 0
	profile.FitsComputedAt = nil
	return nil
}

func (f *fakeBackend) GetOrCreateAccount(_ context.Context, userEmail string, freeCredits int) (*models.CreditAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[userEmail]
	if !ok {
		account = &models.CreditAccount{
			UserEmail:        userEmail,
			Tier:             models.TierFree,
			CreditsRemaining: freeCredits,
			CreditsTotal:     freeCredits,
		}
		f.accounts[userEmail] = account
	}
	clone := *account
	return &clone, nil
}

func (f *fakeBackend) DeductCredits(_ context.Context, userEmail string, n int, reason string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[userEmail]
	if !ok {
		return 0, db.ErrAccountNotFound
	}
	if account.CreditsRemaining < n {
		return 0, db.ErrInsufficientCredits
	}
	account.CreditsRemaining -= n
	f.deductCalls++
	f.transactions = append(f.transactions, models.CreditTransaction{
		UserEmail: userEmail,
		Delta:     -n,
		Reason:    reason,
	})
	return account.CreditsRemaining, nil
}

func (f *fakeBackend) AddCredits(_ context.Context, userEmail string, n int, source string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[userEmail]
	if !ok {
		return 0, db.ErrAccountNotFound
	}
	account.CreditsRemaining += n
	account.CreditsTotal += n
	f.transactions = append(f.transactions, models.CreditTransaction{
		UserEmail: userEmail,
		Delta:     n,
		Reason:    source,
	})
	return account.CreditsRemaining, nil
}

func (f *fakeBackend) UpgradeTier(_ context.Context, userEmail, tier string, expires *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[userEmail]
	if !ok {
		return db.ErrAccountNotFound
	}
	account.Tier = tier
	account.SubscriptionExpires = expires
	return nil
}

func (f *fakeBackend) balance(userEmail string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[userEmail]
	if !ok {
		return -1
	}
	return account.CreditsRemaining
}

// fakeEvaluator returns canned factors and scripts failures per university.
type fakeEvaluator struct {
	mu      sync.Mutex
	calls   int
	failIDs map[string]error // university id -> persistent error
	errs    []error          // consumed one per call, before failIDs
	block   chan struct{}    // when set, every call waits until closed
	factors []models.FitFactor
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{
		factors: []models.FitFactor{
			{Name: "GPA Match", Score: 20, Max: 25},
			{Name: "Test Scores", Score: 15, Max: 20},
			{Name: "Course Rigor", Score: 10, Max: 15},
			{Name: "Major Fit", Score: 12, Max: 15},
			{Name: "Activities", Score: 10, Max: 15},
			{Name: "Early Action", Score: 5, Max: 10},
			{Name: "Selectivity Context", Score: 0, Max: 0, Detail: "context"},
		},
	}
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, profile *models.StudentProfile, university *models.University) (*evaluator.Result, error) {
	f.mu.Lock()
	f.calls++
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	} else if f.failIDs != nil {
		err = f.failIDs[university.ID]
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &evaluator.Result{
		Factors:             f.factors,
		GapAnalysis:         "solid academic profile",
		Recommendations:     []string{"retake the SAT"},
		EssayAngles:         []string{"robotics club leadership"},
		ScholarshipMatches:  []string{"merit scholarship"},
		ApplicationTimeline: "apply early action",
	}, nil
}

func (f *fakeEvaluator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestEngine(backend *fakeBackend, eval evaluator.Evaluator, cfg Config) *Engine {
	if cfg.FreeCredits == 0 {
		cfg.FreeCredits = 5
	}
	return New(backend, backend, backend, backend, eval, nil, cfg, zap.NewNop())
}
