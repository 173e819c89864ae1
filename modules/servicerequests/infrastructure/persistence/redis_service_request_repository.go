package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence/models"
)

// RedisServiceRequestRepository keeps one hash of JSON documents per
// collection plus a userId -> id hash that HSETNX guards.
type RedisServiceRequestRepository struct {
	redis  *redis.Client
	prefix string
}

func NewRedisServiceRequestRepository(client *redis.Client, prefix string) *RedisServiceRequestRepository {
	if prefix == "" {
		prefix = "taxdesk"
	}
	return &RedisServiceRequestRepository{redis: client, prefix: prefix + ":service_requests:v1"}
}

func (r *RedisServiceRequestRepository) Create(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	id := uuid.New().String()
	claimed, err := r.redis.HSetNX(ctx, r.ownersKey(sr.Collection()), sr.UserID(), id).Result()
	if err != nil {
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "redis: claim owner")
	}
	if !claimed {
		return servicerequest.ServiceRequest{}, servicerequest.ErrDuplicate
	}

	created := sr.Stamp(id, sr.CreatedAt())
	if err := r.write(ctx, created); err != nil {
		if delErr := r.redis.HDel(ctx, r.ownersKey(sr.Collection()), sr.UserID()).Err(); delErr != nil {
			return servicerequest.ServiceRequest{}, errors.Wrapf(err, "redis: release owner failed too: %v", delErr)
		}
		return servicerequest.ServiceRequest{}, err
	}
	return created, nil
}

func (r *RedisServiceRequestRepository) FindByUser(ctx context.Context, collection, userID string) (servicerequest.ServiceRequest, error) {
	id, err := r.redis.HGet(ctx, r.ownersKey(collection), userID).Result()
	if err != nil {
		if err == redis.Nil {
			return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
		}
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "redis: find owner")
	}
	return r.GetByID(ctx, collection, id)
}

func (r *RedisServiceRequestRepository) GetByID(ctx context.Context, collection, id string) (servicerequest.ServiceRequest, error) {
	result, err := r.redis.HGet(ctx, r.requestsKey(collection), id).Result()
	if err != nil {
		if err == redis.Nil {
			return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
		}
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "redis: get request")
	}
	return r.decode(collection, result)
}

func (r *RedisServiceRequestRepository) Update(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	exists, err := r.redis.HExists(ctx, r.requestsKey(sr.Collection()), sr.ID()).Result()
	if err != nil {
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "redis: check request")
	}
	if !exists {
		return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
	}
	if err := r.write(ctx, sr); err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	return sr, nil
}

func (r *RedisServiceRequestRepository) List(ctx context.Context, collection string, params *servicerequest.FindParams) ([]servicerequest.ServiceRequest, error) {
	resultMap, err := r.redis.HGetAll(ctx, r.requestsKey(collection)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis: list requests")
	}
	out := make([]servicerequest.ServiceRequest, 0, len(resultMap))
	for _, value := range resultMap {
		sr, err := r.decode(collection, value)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return filterAndLimit(out, params), nil
}

func (r *RedisServiceRequestRepository) write(ctx context.Context, sr servicerequest.ServiceRequest) error {
	doc, err := json.Marshal(ToDBServiceRequest(sr))
	if err != nil {
		return errors.Wrap(err, "redis: marshal request")
	}
	if err := r.redis.HSet(ctx, r.requestsKey(sr.Collection()), sr.ID(), doc).Err(); err != nil {
		return errors.Wrap(err, "redis: write request")
	}
	return nil
}

func (r *RedisServiceRequestRepository) decode(collection, value string) (servicerequest.ServiceRequest, error) {
	var model models.ServiceRequest
	if err := json.Unmarshal([]byte(value), &model); err != nil {
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "redis: decode request")
	}
	return ToDomainServiceRequest(collection, model)
}

func (r *RedisServiceRequestRepository) requestsKey(collection string) string {
	return fmt.Sprintf("%s:{%s}:docs", r.prefix, collection)
}

func (r *RedisServiceRequestRepository) ownersKey(collection string) string {
	return fmt.Sprintf("%s:{%s}:owners", r.prefix, collection)
}
