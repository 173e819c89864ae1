package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/servicetype"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence"
	"github.com/iota-uz/taxdesk/modules/servicerequests/services"
	"github.com/iota-uz/taxdesk/pkg/composables"
	"github.com/iota-uz/taxdesk/pkg/eventbus"
	"github.com/iota-uz/taxdesk/pkg/identity"
	"github.com/iota-uz/taxdesk/pkg/serrors"
)

// recordingRepo wraps the in-memory store with call counters and failure injection.
type recordingRepo struct {
	*persistence.InmemServiceRequestRepository

	mu         sync.Mutex
	creates    int
	updates    int
	findErr    error
	createErr  error
	hideOnFind bool
}

func (r *recordingRepo) Create(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	r.mu.Lock()
	r.creates++
	err := r.createErr
	r.mu.Unlock()
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	return r.InmemServiceRequestRepository.Create(ctx, sr)
}

func (r *recordingRepo) Update(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	r.mu.Lock()
	r.updates++
	r.mu.Unlock()
	return r.InmemServiceRequestRepository.Update(ctx, sr)
}

func (r *recordingRepo) FindByUser(ctx context.Context, collection, userID string) (servicerequest.ServiceRequest, error) {
	r.mu.Lock()
	err := r.findErr
	hide := r.hideOnFind
	r.hideOnFind = false
	r.mu.Unlock()
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	if hide {
		return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
	}
	return r.InmemServiceRequestRepository.FindByUser(ctx, collection, userID)
}

type fixture struct {
	repo      *recordingRepo
	publisher eventbus.EventBus
	service   *services.ServiceRequestService
	now       time.Time

	mu        sync.Mutex
	submitted []servicerequest.SubmittedEvent
	changed   []servicerequest.StatusChangedEvent
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	f := &fixture{
		repo:      &recordingRepo{InmemServiceRequestRepository: persistence.NewInmemServiceRequestRepository()},
		publisher: eventbus.NewEventPublisher(logger),
		now:       time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC),
	}
	f.publisher.Subscribe(func(e servicerequest.SubmittedEvent) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.submitted = append(f.submitted, e)
	})
	f.publisher.Subscribe(func(e servicerequest.StatusChangedEvent) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.changed = append(f.changed, e)
	})
	f.service = services.NewServiceRequestService(f.repo, f.publisher, services.WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

var alice = identity.User{ID: "user-alice", Email: "alice@example.com", DisplayName: "Alice"}

func paymentPlan(planType string, amount any) map[string]any {
	return map[string]any{
		"planType":           planType,
		"amount":             amount,
		"agreeToDeclaration": true,
		"userId":             alice.ID,
	}
}

func TestSubmit_NewPaymentPlan(t *testing.T) {
	t.Parallel()
	f := setup(t)
	ctx := context.Background()

	res, err := f.service.Submit(ctx, alice, servicetype.PaymentPlan, paymentPlan("weekly", 500))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.Resubmission)
	assert.Equal(t, "Your Payment Plan request has been submitted", res.Message)

	existing, err := f.service.CheckExisting(ctx, alice, servicetype.PaymentPlan)
	require.NoError(t, err)
	require.True(t, existing.Exists)
	sr := existing.Request
	assert.Equal(t, res.ID, sr.ID())
	assert.Equal(t, servicerequest.StatusPending, sr.Status())
	assert.Equal(t, "paymentPlans", sr.Collection())
	assert.Equal(t, alice.ID, sr.UserID())
	assert.Equal(t, map[string]any{"planType": "weekly", "amount": 500.0}, sr.Payload())
	require.NotNil(t, sr.AgreeToDeclaration())
	assert.True(t, *sr.AgreeToDeclaration())
	assert.Equal(t, f.now, sr.CreatedAt())
	assert.Equal(t, servicerequest.DisplayState{ActionEnabled: true, Label: "Update Payment Plan"}, existing.Display)

	require.Len(t, f.submitted, 1)
	assert.Equal(t, "Payment Plan", f.submitted[0].Title)
	assert.Equal(t, alice, f.submitted[0].User)
	assert.Empty(t, f.submitted[0].ClientIP)
}

func TestSubmit_EventCarriesClientIP(t *testing.T) {
	t.Parallel()
	f := setup(t)
	ctx := composables.WithParams(context.Background(), &composables.Params{IP: "198.51.100.4"})

	_, err := f.service.Submit(ctx, alice, servicetype.PaymentPlan, paymentPlan("monthly", 120))
	require.NoError(t, err)
	require.Len(t, f.submitted, 1)
	assert.Equal(t, "198.51.100.4", f.submitted[0].ClientIP)
}

func TestSubmit_MissingDeclarationNeverReachesStore(t *testing.T) {
	t.Parallel()
	f := setup(t)

	payload := map[string]any{"quarter": "Q1", "userId": alice.ID}
	res, err := f.service.Submit(context.Background(), alice, servicetype.BASLodgementCopy, payload)
	require.Error(t, err)
	assert.False(t, res.Success)

	fieldErrs, ok := serrors.AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, serrors.ValidationErrors{"agreeToDeclaration": "You must agree to the declaration"}, fieldErrs)
	assert.Zero(t, f.repo.creates)
	assert.Zero(t, f.repo.updates)
	assert.Empty(t, f.submitted)
}

func TestSubmit_ResubmitRejectedKeepsIdentity(t *testing.T) {
	t.Parallel()
	f := setup(t)
	ctx := context.Background()

	first, err := f.service.Submit(ctx, alice, servicetype.PaymentPlan, paymentPlan("weekly", 500))
	require.NoError(t, err)
	createdAt := f.now

	f.advance(time.Hour)
	_, err = f.service.Review(ctx, servicetype.PaymentPlan, first.ID, servicerequest.StatusRejected, ptr("amount too low"))
	require.NoError(t, err)

	f.advance(time.Hour)
	second, err := f.service.Submit(ctx, alice, servicetype.PaymentPlan, paymentPlan("monthly", "750"))
	require.NoError(t, err)
	assert.True(t, second.Resubmission)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Your Payment Plan request has been updated", second.Message)

	existing, err := f.service.CheckExisting(ctx, alice, servicetype.PaymentPlan)
	require.NoError(t, err)
	sr := existing.Request
	assert.Equal(t, servicerequest.StatusPending, sr.Status())
	assert.Equal(t, createdAt, sr.CreatedAt())
	assert.Equal(t, f.now, sr.UpdatedAt())
	assert.Equal(t, "monthly", sr.Payload()["planType"])
	assert.Equal(t, 750.0, sr.Payload()["amount"])

	all, err := f.service.List(ctx, servicetype.PaymentPlan, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 1, f.repo.creates)
}

func TestSubmit_CompletedIsLocked(t *testing.T) {
	t.Parallel()
	f := setup(t)
	ctx := context.Background()

	first, err := f.service.Submit(ctx, alice, servicetype.PaymentPlan, paymentPlan("weekly", 500))
	require.NoError(t, err)
	_, err = f.service.Review(ctx, servicetype.PaymentPlan, first.ID, servicerequest.StatusCompleted, nil)
	require.NoError(t, err)

	res, err := f.service.Submit(ctx, alice, servicetype.PaymentPlan, paymentPlan("monthly", 900))
	require.ErrorIs(t, err, servicerequest.ErrSubmissionLocked)
	assert.False(t, res.Success)

	existing, err := f.service.CheckExisting(ctx, alice, servicetype.PaymentPlan)
	require.NoError(t, err)
	assert.Equal(t, "weekly", existing.Request.Payload()["planType"])
	assert.Equal(t, servicerequest.DisplayState{ActionEnabled: false, Label: "Payment Plan Submitted"}, existing.Display)
}

func TestSubmit_LookupFailureTreatedAsAbsent(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.repo.findErr = errors.New("connection reset")

	res, err := f.service.Submit(context.Background(), alice, servicetype.UpdateAddress, map[string]any{
		"oldAddress": "1 Old St",
		"newAddress": "2 New Rd",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, f.repo.creates)
}

func TestSubmit_LostCreateRaceBecomesResubmission(t *testing.T) {
	t.Parallel()
	f := setup(t)
	ctx := context.Background()

	first, err := f.service.Submit(ctx, alice, servicetype.PaymentPlan, paymentPlan("weekly", 500))
	require.NoError(t, err)

	f.repo.hideOnFind = true
	second, err := f.service.Submit(ctx, alice, servicetype.PaymentPlan, paymentPlan("fortnightly", 300))
	require.NoError(t, err)
	assert.True(t, second.Resubmission)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, f.repo.creates)
	assert.Equal(t, 1, f.repo.updates)
}

func TestSubmit_StoreFailure(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.repo.createErr = errors.New("disk full")

	res, err := f.service.Submit(context.Background(), alice, servicetype.PaymentPlan, paymentPlan("weekly", 500))
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.ID)
	assert.Empty(t, f.submitted)

	existing, err := f.service.CheckExisting(context.Background(), alice, servicetype.PaymentPlan)
	require.NoError(t, err)
	assert.False(t, existing.Exists)
}

func TestSubmit_RequiresUserAndKnownType(t *testing.T) {
	t.Parallel()
	f := setup(t)

	_, err := f.service.Submit(context.Background(), identity.User{}, servicetype.PaymentPlan, paymentPlan("weekly", 500))
	require.ErrorIs(t, err, services.ErrMissingUser)

	_, err = f.service.Submit(context.Background(), alice, servicetype.Type("pizza-order"), map[string]any{})
	require.ErrorIs(t, err, servicetype.ErrUnknown)
}

func TestCheckExisting_IsIdempotent(t *testing.T) {
	t.Parallel()
	f := setup(t)
	ctx := context.Background()

	none, err := f.service.CheckExisting(ctx, alice, servicetype.TaxReturnCopy)
	require.NoError(t, err)
	assert.False(t, none.Exists)
	assert.Equal(t, servicerequest.DisplayState{ActionEnabled: true, Label: "Request Tax Return Copy"}, none.Display)

	_, err = f.service.Submit(ctx, alice, servicetype.TaxReturnCopy, map[string]any{"year": "2024", "agreeToDeclaration": "on"})
	require.NoError(t, err)

	a, err := f.service.CheckExisting(ctx, alice, servicetype.TaxReturnCopy)
	require.NoError(t, err)
	b, err := f.service.CheckExisting(ctx, alice, servicetype.TaxReturnCopy)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, f.repo.creates)
}

func TestCheckExisting_StoreFailure(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.repo.findErr = errors.New("timeout")

	res, err := f.service.CheckExisting(context.Background(), alice, servicetype.PaymentPlan)
	require.Error(t, err)
	assert.False(t, res.Exists)
	assert.Equal(t, "Set Up Payment Plan", res.Display.Label)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	f := setup(t)

	res, err := f.service.Validate(servicetype.PaymentPlan, map[string]any{"planType": "yearly", "amount": 0, "agreeToDeclaration": true})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Len(t, res.FieldErrors, 2)
	assert.Contains(t, res.FieldErrors, "planType")
	assert.Contains(t, res.FieldErrors, "amount")

	res, err = f.service.Validate(servicetype.PaymentPlan, paymentPlan("monthly", 10))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.FieldErrors)

	_, err = f.service.Validate("nope", nil)
	require.ErrorIs(t, err, servicetype.ErrUnknown)
}

func TestReview(t *testing.T) {
	t.Parallel()
	f := setup(t)
	ctx := context.Background()

	first, err := f.service.Submit(ctx, alice, servicetype.PaymentPlan, paymentPlan("weekly", 500))
	require.NoError(t, err)

	f.advance(time.Minute)
	sr, err := f.service.Review(ctx, servicetype.PaymentPlan, first.ID, servicerequest.StatusInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, servicerequest.StatusInProgress, sr.Status())
	assert.Equal(t, f.now, sr.UpdatedAt())
	require.Len(t, f.changed, 1)
	assert.Equal(t, servicerequest.StatusPending, f.changed[0].From)
	assert.Equal(t, servicerequest.StatusInProgress, f.changed[0].To)

	res, err := f.service.Submit(ctx, alice, servicetype.PaymentPlan, paymentPlan("weekly", 600))
	require.ErrorIs(t, err, servicerequest.ErrSubmissionLocked)
	assert.False(t, res.Success)

	sr, err = f.service.Review(ctx, servicetype.PaymentPlan, first.ID, servicerequest.StatusInProgress, ptr("waiting on ATO"))
	require.NoError(t, err)
	assert.Equal(t, "waiting on ATO", sr.Notes())
	assert.Len(t, f.changed, 1)

	_, err = f.service.Review(ctx, servicetype.PaymentPlan, first.ID, servicerequest.StatusPending, nil)
	require.ErrorIs(t, err, servicerequest.ErrInvalidTransition)

	_, err = f.service.Review(ctx, servicetype.PaymentPlan, "missing", servicerequest.StatusCompleted, nil)
	require.ErrorIs(t, err, servicerequest.ErrNotFound)

	_, err = f.service.Review(ctx, servicetype.PaymentPlan, first.ID, servicerequest.StatusNone, nil)
	require.ErrorIs(t, err, servicerequest.ErrInvalidStatus)
}

func TestDefinitionsAndDisplayState(t *testing.T) {
	t.Parallel()
	f := setup(t)

	assert.Len(t, f.service.Definitions(), 10)

	state, err := f.service.DisplayState(servicetype.PaymentPlan, servicerequest.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, servicerequest.DisplayState{ActionEnabled: true, Label: "Resubmit Payment Plan"}, state)
}

func ptr[T any](v T) *T { return &v }
