package persistence_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
)

// testCollection returns a collection name no other run shares, so stores
// backed by a live server never see each other's rows.
func testCollection() string {
	return "contract_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func requestIn(collection, userID string, createdAt time.Time, opts ...servicerequest.Option) servicerequest.ServiceRequest {
	opts = append([]servicerequest.Option{
		servicerequest.WithPayload(map[string]any{"planType": "weekly", "amount": 500.0}),
		servicerequest.WithDeclaration(true),
		servicerequest.WithCreatedAt(createdAt),
		servicerequest.WithUpdatedAt(createdAt),
	}, opts...)
	return servicerequest.New(userID, "payment-plan", collection, opts...)
}

// runRepositoryContract checks the behaviour every store backend shares:
// one request per user and collection, lookups, updates and newest-first listing.
func runRepositoryContract(t *testing.T, repo servicerequest.Repository, collection string) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	t.Run("create and find", func(t *testing.T) {
		created, err := repo.Create(ctx, requestIn(collection, "alice", base))
		require.NoError(t, err)
		require.NotEmpty(t, created.ID())
		assert.Equal(t, servicerequest.StatusPending, created.Status())

		found, err := repo.FindByUser(ctx, collection, "alice")
		require.NoError(t, err)
		assert.Equal(t, created.ID(), found.ID())
		assert.Equal(t, "payment-plan", found.ServiceType())
		assert.Equal(t, collection, found.Collection())
		assert.Equal(t, "weekly", found.Payload()["planType"])
		assert.InDelta(t, 500.0, found.Payload()["amount"], 0)
		require.NotNil(t, found.AgreeToDeclaration())
		assert.True(t, *found.AgreeToDeclaration())
		assert.True(t, base.Equal(found.CreatedAt()), "createdAt %s", found.CreatedAt())

		byID, err := repo.GetByID(ctx, collection, created.ID())
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.UserID())
	})

	t.Run("missing lookups", func(t *testing.T) {
		_, err := repo.FindByUser(ctx, collection, "nobody")
		require.ErrorIs(t, err, servicerequest.ErrNotFound)
		_, err = repo.GetByID(ctx, collection, uuid.NewString())
		require.ErrorIs(t, err, servicerequest.ErrNotFound)
		_, err = repo.GetByID(ctx, collection, "not-a-uuid")
		require.ErrorIs(t, err, servicerequest.ErrNotFound)
	})

	t.Run("create is conditional", func(t *testing.T) {
		_, err := repo.Create(ctx, requestIn(collection, "alice", base.Add(time.Minute)))
		require.ErrorIs(t, err, servicerequest.ErrDuplicate)

		const workers = 8
		var (
			wg         sync.WaitGroup
			mu         sync.Mutex
			wins, dups int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Create(ctx, requestIn(collection, "racer", base.Add(2*time.Minute)))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case assert.ErrorIs(t, err, servicerequest.ErrDuplicate):
					dups++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
		assert.Equal(t, workers-1, dups)
	})

	t.Run("update", func(t *testing.T) {
		current, err := repo.FindByUser(ctx, collection, "alice")
		require.NoError(t, err)

		reviewed, err := current.Review(servicerequest.StatusRejected, ptr("missing payslips"), base.Add(time.Hour))
		require.NoError(t, err)
		_, err = repo.Update(ctx, reviewed)
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, collection, current.ID())
		require.NoError(t, err)
		assert.Equal(t, servicerequest.StatusRejected, got.Status())
		assert.Equal(t, "missing payslips", got.Notes())
		assert.True(t, base.Equal(got.CreatedAt()))
		assert.True(t, base.Add(time.Hour).Equal(got.UpdatedAt()))

		resubmitted, err := got.Resubmit(map[string]any{"planType": "monthly", "amount": 750.0}, nil, base.Add(2*time.Hour))
		require.NoError(t, err)
		_, err = repo.Update(ctx, resubmitted)
		require.NoError(t, err)

		got, err = repo.FindByUser(ctx, collection, "alice")
		require.NoError(t, err)
		assert.Equal(t, current.ID(), got.ID())
		assert.Equal(t, servicerequest.StatusPending, got.Status())
		assert.Equal(t, "monthly", got.Payload()["planType"])

		_, err = repo.Update(ctx, requestIn(collection, "ghost", base, servicerequest.WithID(uuid.NewString())))
		require.ErrorIs(t, err, servicerequest.ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		_, err := repo.Create(ctx, requestIn(collection, "bob", base.Add(3*time.Hour)))
		require.NoError(t, err)

		all, err := repo.List(ctx, collection, nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "bob", all[0].UserID())
		assert.Equal(t, "racer", all[1].UserID())
		assert.Equal(t, "alice", all[2].UserID())

		limited, err := repo.List(ctx, collection, &servicerequest.FindParams{Limit: 2})
		require.NoError(t, err)
		require.Len(t, limited, 2)
		assert.Equal(t, "bob", limited[0].UserID())

		bob, err := repo.FindByUser(ctx, collection, "bob")
		require.NoError(t, err)
		bob, err = bob.Review(servicerequest.StatusInProgress, nil, base.Add(4*time.Hour))
		require.NoError(t, err)
		_, err = repo.Update(ctx, bob)
		require.NoError(t, err)

		inProgress, err := repo.List(ctx, collection, &servicerequest.FindParams{Status: servicerequest.StatusInProgress})
		require.NoError(t, err)
		require.Len(t, inProgress, 1)
		assert.Equal(t, "bob", inProgress[0].UserID())

		empty, err := repo.List(ctx, testCollection(), nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}
