package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
	appErrors "github.com/nazarenomarkanthony060120/e-clearance-student/pkg/errors"
)

type mockTrackerSubs struct {
	submissions []models.Submission
	byID        map[string]*models.Submission
	lastFilter  models.SubmissionFilter
	listCalls   int
}

func (m *mockTrackerSubs) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	m.lastFilter = filter
	m.listCalls++
	return m.submissions, nil
}

func (m *mockTrackerSubs) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockBudgetCache struct {
	values   map[string]string
	counters map[string]int64
}

func (m *mockBudgetCache) Get(ctx context.Context, key string, dest interface{}) error {
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if out, ok := dest.(*string); ok {
		*out = v
	}
	return nil
}

func (m *mockBudgetCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if s, ok := value.(string); ok {
		m.values[key] = s
	}
	return nil
}

func (m *mockBudgetCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[key]++
	return m.counters[key], nil
}

func (m *mockBudgetCache) Counter(ctx context.Context, key string) (int64, error) {
	return m.counters[key], nil
}

func newTrackerService(subs *mockTrackerSubs, clearances *mockClearanceReader, users *mockUserReader, cache *mockBudgetCache) *TrackerService {
	var c trackerCache
	if cache != nil {
		c = cache
	}
	return NewTrackerService(subs, clearances, users, c, nil, zap.NewNop(), TrackerConfig{
		MaxFetchAttempts: 3,
		BudgetTTL:        time.Hour,
		ProfileCacheTTL:  time.Hour,
	})
}

func TestTrackerViewReturnsSubmissions(t *testing.T) {
	subs := &mockTrackerSubs{submissions: []models.Submission{
		{ID: "sub-1", Status: models.StatusPending, StudentUID: "student-1"},
	}}
	users := &mockUserReader{user: testStudent()}
	cache := &mockBudgetCache{}
	svc := newTrackerService(subs, &mockClearanceReader{}, users, cache)

	view, err := svc.View(context.Background(), "student-1", models.StatusPending)
	require.NoError(t, err)
	require.Len(t, view.Submissions, 1)
	assert.Equal(t, models.StatusPending, view.Status)
	assert.Equal(t, "123456-7", view.StudentID)
	assert.Equal(t, models.StatusPending, subs.lastFilter.Status)
	// non-empty results never consume budget
	assert.Empty(t, cache.counters)
}

func TestTrackerViewBudgetExhaustsAfterThreeEmptyFetches(t *testing.T) {
	subs := &mockTrackerSubs{}
	users := &mockUserReader{user: testStudent()}
	cache := &mockBudgetCache{}
	svc := newTrackerService(subs, &mockClearanceReader{}, users, cache)

	for i := 0; i < 2; i++ {
		view, err := svc.View(context.Background(), "student-1", models.StatusApproved)
		require.NoError(t, err)
		assert.Empty(t, view.Submissions)
	}

	_, err := svc.View(context.Background(), "student-1", models.StatusApproved)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrFetchExhausted.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "approved")
}

func TestTrackerViewStopsQueryingOnceBudgetSpent(t *testing.T) {
	subs := &mockTrackerSubs{}
	users := &mockUserReader{user: testStudent()}
	cache := &mockBudgetCache{}
	svc := newTrackerService(subs, &mockClearanceReader{}, users, cache)

	for i := 0; i < 5; i++ {
		_, err := svc.View(context.Background(), "student-1", models.StatusApproved)
		if i < 2 {
			require.NoError(t, err)
			continue
		}
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrFetchExhausted.Code, appErrors.FromError(err).Code)
	}

	// the third empty fetch spends the budget; later calls never reach the store
	assert.Equal(t, 3, subs.listCalls)
	assert.Equal(t, int64(3), cache.counters[budgetKey("student-1", models.StatusApproved)])
}

func TestTrackerViewBudgetsAreIndependentPerStatus(t *testing.T) {
	subs := &mockTrackerSubs{}
	users := &mockUserReader{user: testStudent()}
	cache := &mockBudgetCache{}
	svc := newTrackerService(subs, &mockClearanceReader{}, users, cache)

	for i := 0; i < 2; i++ {
		_, err := svc.View(context.Background(), "student-1", models.StatusApproved)
		require.NoError(t, err)
	}
	_, err := svc.View(context.Background(), "student-1", models.StatusDisapproved)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cache.counters[budgetKey("student-1", models.StatusApproved)])
	assert.Equal(t, int64(1), cache.counters[budgetKey("student-1", models.StatusDisapproved)])
}

func TestTrackerViewRejectsNoneStatus(t *testing.T) {
	svc := newTrackerService(&mockTrackerSubs{}, &mockClearanceReader{}, &mockUserReader{user: testStudent()}, nil)

	_, err := svc.View(context.Background(), "student-1", models.StatusNone)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTrackerDetailInstructorBranch(t *testing.T) {
	signature := "/files/signature.png"
	clearance := instructorClearance()
	clearance.SignatureURL = &signature
	reviewed := clearance.ScheduleDate.Add(-24 * time.Hour)
	subs := &mockTrackerSubs{byID: map[string]*models.Submission{
		"sub-1": {ID: "sub-1", ClearanceID: "clr-1", StudentUID: "student-1", Status: models.StatusApproved, ReviewedAt: &reviewed},
	}}
	svc := newTrackerService(subs, &mockClearanceReader{clearance: clearance}, &mockUserReader{user: testStudent()}, nil)

	detail, err := svc.Detail(context.Background(), "student-1", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, detail.Role)
	assert.Equal(t, &signature, detail.SignatureURL)
	assert.Nil(t, detail.Purpose)
	assert.Nil(t, detail.QRCodeURL)
	assert.Equal(t, models.TimelinessOnTime, detail.Timeliness)
}

func TestTrackerDetailPaymentBranchOverdue(t *testing.T) {
	clearance := treasurerClearance()
	reviewed := clearance.ScheduleDate.Add(time.Minute)
	subs := &mockTrackerSubs{byID: map[string]*models.Submission{
		"sub-1": {ID: "sub-1", ClearanceID: "clr-2", StudentUID: "student-1", Status: models.StatusApproved, ReviewedAt: &reviewed},
	}}
	svc := newTrackerService(subs, &mockClearanceReader{clearance: clearance}, &mockUserReader{user: testStudent()}, nil)

	detail, err := svc.Detail(context.Background(), "student-1", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.RolePTCATreasurer, detail.Role)
	assert.NotNil(t, detail.ClearAmount)
	assert.Nil(t, detail.SignatureURL)
	assert.Equal(t, models.TimelinessOverdue, detail.Timeliness)
}

func TestTrackerDetailPendingHasNoTimeliness(t *testing.T) {
	subs := &mockTrackerSubs{byID: map[string]*models.Submission{
		"sub-1": {ID: "sub-1", ClearanceID: "clr-2", StudentUID: "student-1", Status: models.StatusPending},
	}}
	svc := newTrackerService(subs, &mockClearanceReader{clearance: treasurerClearance()}, &mockUserReader{user: testStudent()}, nil)

	detail, err := svc.Detail(context.Background(), "student-1", "sub-1")
	require.NoError(t, err)
	assert.Empty(t, detail.Timeliness)
}

func TestTrackerStudentIDPrefersCache(t *testing.T) {
	cache := &mockBudgetCache{values: map[string]string{
		profileCacheKey("student-1"): "765432-1",
	}}
	subs := &mockTrackerSubs{submissions: []models.Submission{{ID: "sub-1"}}}
	svc := newTrackerService(subs, &mockClearanceReader{}, &mockUserReader{user: testStudent()}, cache)

	view, err := svc.View(context.Background(), "student-1", models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, "765432-1", view.StudentID)
}
