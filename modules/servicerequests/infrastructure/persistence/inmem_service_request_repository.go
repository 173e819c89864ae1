package persistence

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
)

type SafeMap[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		m: make(map[K]V),
	}
}

func (s *SafeMap[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

// SetIfAbsent stores value only when key is unset and reports whether it did.
func (s *SafeMap[K, V]) SetIfAbsent(key K, value V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.m[key]; exists {
		return false
	}
	s.m[key] = value
	return true
}

func (s *SafeMap[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, found := s.m[key]
	return val, found
}

func (s *SafeMap[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(maps.Values(s.m))
}

type requestKey struct {
	collection string
	id         string
}

type ownerKey struct {
	collection string
	userID     string
}

type InmemServiceRequestRepository struct {
	storage *SafeMap[requestKey, servicerequest.ServiceRequest]
	owners  *SafeMap[ownerKey, string]
}

func NewInmemServiceRequestRepository() *InmemServiceRequestRepository {
	return &InmemServiceRequestRepository{
		storage: NewSafeMap[requestKey, servicerequest.ServiceRequest](),
		owners:  NewSafeMap[ownerKey, string](),
	}
}

func (r *InmemServiceRequestRepository) Create(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	if err := ctx.Err(); err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	id := uuid.New().String()
	if !r.owners.SetIfAbsent(ownerKey{collection: sr.Collection(), userID: sr.UserID()}, id) {
		return servicerequest.ServiceRequest{}, servicerequest.ErrDuplicate
	}
	created := sr.Stamp(id, sr.CreatedAt())
	r.storage.Set(requestKey{collection: sr.Collection(), id: id}, created)
	return created, nil
}

func (r *InmemServiceRequestRepository) FindByUser(ctx context.Context, collection, userID string) (servicerequest.ServiceRequest, error) {
	if err := ctx.Err(); err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	id, found := r.owners.Get(ownerKey{collection: collection, userID: userID})
	if !found {
		return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
	}
	return r.GetByID(ctx, collection, id)
}

func (r *InmemServiceRequestRepository) GetByID(ctx context.Context, collection, id string) (servicerequest.ServiceRequest, error) {
	if err := ctx.Err(); err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	sr, found := r.storage.Get(requestKey{collection: collection, id: id})
	if !found {
		return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
	}
	return sr, nil
}

func (r *InmemServiceRequestRepository) Update(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	if err := ctx.Err(); err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	key := requestKey{collection: sr.Collection(), id: sr.ID()}
	if _, found := r.storage.Get(key); !found {
		return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
	}
	r.storage.Set(key, sr)
	return sr, nil
}

func (r *InmemServiceRequestRepository) List(ctx context.Context, collection string, params *servicerequest.FindParams) ([]servicerequest.ServiceRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all := r.storage.Values()
	out := make([]servicerequest.ServiceRequest, 0, len(all))
	for _, sr := range all {
		if sr.Collection() == collection {
			out = append(out, sr)
		}
	}
	return filterAndLimit(out, params), nil
}
