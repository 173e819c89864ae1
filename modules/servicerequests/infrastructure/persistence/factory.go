package persistence

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/pkg/configuration"
)

// Store is an opened repository together with the release of whatever
// connection backs it.
type Store struct {
	Repository servicerequest.Repository
	Pool       *pgxpool.Pool
	Close      func()
}

// Open connects the backend selected by STORE_BACKEND.
func Open(ctx context.Context, conf *configuration.Configuration, logger logrus.FieldLogger) (*Store, error) {
	log := logger.WithField("store", conf.Store.Backend)
	switch conf.Store.Backend {
	case configuration.StoreMemory, "":
		log.Warn("using in-memory store; requests are lost on restart")
		return &Store{Repository: NewInmemServiceRequestRepository(), Close: func() {}}, nil

	case configuration.StorePostgres:
		pool, err := OpenPool(ctx, conf.Database)
		if err != nil {
			return nil, err
		}
		log.Info("connected to postgres")
		return &Store{Repository: NewPgServiceRequestRepository(pool), Pool: pool, Close: pool.Close}, nil

	case configuration.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.URL,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "redis: ping")
		}
		log.Info("connected to redis")
		return &Store{
			Repository: NewRedisServiceRequestRepository(client, conf.Redis.Prefix),
			Close: func() {
				if err := client.Close(); err != nil {
					log.WithError(err).Warn("redis: close")
				}
			},
		}, nil

	case configuration.StoreSupabase:
		repo := NewSupabaseServiceRequestRepository(SupabaseConfig{
			URL:        conf.Supabase.URL,
			ServiceKey: conf.Supabase.ServiceKey,
			Timeout:    conf.Supabase.Timeout,
		}, &http.Client{Timeout: conf.Supabase.Timeout})
		return &Store{Repository: repo, Close: func() {}}, nil

	case configuration.StoreMongo:
		session, err := DialMongo(conf.Mongo.URL, conf.Mongo.Timeout)
		if err != nil {
			return nil, err
		}
		log.Info("connected to mongo")
		return &Store{
			Repository: NewMongoServiceRequestRepository(session, conf.Mongo.Database),
			Close:      session.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", conf.Store.Backend)
	}
}

func OpenPool(ctx context.Context, opts configuration.DatabaseOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(opts.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "postgres: parse config")
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "postgres: ping")
	}
	return pool, nil
}
