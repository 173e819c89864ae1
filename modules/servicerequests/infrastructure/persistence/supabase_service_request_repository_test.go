package persistence_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence/models"
)

const testServiceKey = "service-role-key"

// fakePostgREST serves one table with a unique user_id column.
type fakePostgREST struct {
	t     *testing.T
	mu    sync.Mutex
	rows  []models.ServiceRequest
	calls []*http.Request
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r)

	assert.Equal(f.t, testServiceKey, r.Header.Get("apikey"))
	assert.Equal(f.t, "Bearer "+testServiceKey, r.Header.Get("Authorization"))
	if r.URL.Path != "/rest/v1/paymentPlans" {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"42P01","message":"relation does not exist"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()
	switch r.Method {
	case http.MethodPost:
		assert.Equal(f.t, "return=representation", r.Header.Get("Prefer"))
		var row models.ServiceRequest
		if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&row)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, existing := range f.rows {
			if existing.UserID == row.UserID {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint"}`))
				return
			}
		}
		row.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", len(f.rows)+1)
		f.rows = append(f.rows, row)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]models.ServiceRequest{row})
	case http.MethodGet:
		if id := q.Get("id"); id == "eq.not-a-uuid" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"22P02","message":"invalid input syntax for type uuid"}`))
			return
		}
		out := []models.ServiceRequest{}
		for i := len(f.rows) - 1; i >= 0; i-- {
			row := f.rows[i]
			if v := q.Get("user_id"); v != "" && "eq."+row.UserID != v {
				continue
			}
			if v := q.Get("id"); v != "" && "eq."+row.ID != v {
				continue
			}
			if v := q.Get("status"); v != "" && "eq."+row.Status != v {
				continue
			}
			out = append(out, row)
		}
		_ = json.NewEncoder(w).Encode(out)
	case http.MethodPatch:
		var patch map[string]any
		if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&patch)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		out := []models.ServiceRequest{}
		for i := range f.rows {
			if "eq."+f.rows[i].ID == q.Get("id") {
				f.rows[i].Status = patch["status"].(string)
				out = append(out, f.rows[i])
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newSupabaseRepo(t *testing.T) (*persistence.SupabaseServiceRequestRepository, *fakePostgREST) {
	t.Helper()
	fake := &fakePostgREST{t: t}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	repo := persistence.NewSupabaseServiceRequestRepository(persistence.SupabaseConfig{
		URL:        srv.URL + "/",
		ServiceKey: testServiceKey,
	}, srv.Client())
	return repo, fake
}

func TestSupabaseRepository_CreateAndFind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, fake := newSupabaseRepo(t)
	now := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	created, err := repo.Create(ctx, newRequest("u1", now))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID())
	assert.Equal(t, now, created.CreatedAt())

	found, err := repo.FindByUser(ctx, "paymentPlans", "u1")
	require.NoError(t, err)
	assert.Equal(t, created.ID(), found.ID())
	assert.Equal(t, "paymentPlans", found.Collection())
	assert.Equal(t, "weekly", found.Payload()["planType"])

	_, err = repo.FindByUser(ctx, "paymentPlans", "nobody")
	require.ErrorIs(t, err, servicerequest.ErrNotFound)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.NotEmpty(t, fake.calls)
	assert.Equal(t, http.MethodPost, fake.calls[0].Method)
}

func TestSupabaseRepository_DuplicateCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newSupabaseRepo(t)

	_, err := repo.Create(ctx, newRequest("u1", time.Now().UTC()))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newRequest("u1", time.Now().UTC()))
	require.ErrorIs(t, err, servicerequest.ErrDuplicate)
}

func TestSupabaseRepository_InvalidIDIsNotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newSupabaseRepo(t)

	_, err := repo.GetByID(context.Background(), "paymentPlans", "not-a-uuid")
	require.ErrorIs(t, err, servicerequest.ErrNotFound)
}

func TestSupabaseRepository_UpdateAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo, _ := newSupabaseRepo(t)
	now := time.Now().UTC()

	a, err := repo.Create(ctx, newRequest("a", now))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newRequest("b", now.Add(time.Second)))
	require.NoError(t, err)

	reviewed, err := a.Review(servicerequest.StatusCompleted, nil, now.Add(time.Minute))
	require.NoError(t, err)
	_, err = repo.Update(ctx, reviewed)
	require.NoError(t, err)

	completed, err := repo.List(ctx, "paymentPlans", &servicerequest.FindParams{Status: servicerequest.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "a", completed[0].UserID())

	ghost := newRequest("ghost", now, servicerequest.WithID("11111111-1111-1111-1111-111111111111"))
	_, err = repo.Update(ctx, ghost)
	require.ErrorIs(t, err, servicerequest.ErrNotFound)
}

func TestSupabaseRepository_UnknownTableFails(t *testing.T) {
	t.Parallel()
	repo, _ := newSupabaseRepo(t)

	_, err := repo.List(context.Background(), "missingTable", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "42P01")
}
