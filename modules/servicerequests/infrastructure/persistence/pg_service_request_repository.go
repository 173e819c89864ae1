package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence/models"
)

const (
	pgInsertServiceRequest = `
INSERT INTO service_requests (collection, service_type, user_id, payload, agree_to_declaration, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (collection, user_id) DO NOTHING
RETURNING id::text`

	pgSelectServiceRequest = `
SELECT id::text, service_type, user_id, payload, agree_to_declaration, status, notes, created_at, updated_at
FROM service_requests`

	pgUpdateServiceRequest = `
UPDATE service_requests
SET payload = $3, agree_to_declaration = $4, status = $5, notes = $6, updated_at = $7
WHERE collection = $1 AND id = $2::uuid`
)

// invalid_text_representation, raised for ids that are not uuids
const pgInvalidTextRepresentation = "22P02"

type PgServiceRequestRepository struct {
	pool *pgxpool.Pool
}

func NewPgServiceRequestRepository(pool *pgxpool.Pool) *PgServiceRequestRepository {
	return &PgServiceRequestRepository{pool: pool}
}

func (r *PgServiceRequestRepository) Create(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	m := ToDBServiceRequest(sr)
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "marshal payload")
	}

	var id string
	err = r.pool.QueryRow(ctx, pgInsertServiceRequest,
		m.Collection, m.ServiceType, m.UserID, payload, m.AgreeToDeclaration, m.Status, m.Notes, m.CreatedAt, m.UpdatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return servicerequest.ServiceRequest{}, servicerequest.ErrDuplicate
	}
	if err != nil {
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "insert service request")
	}
	return sr.Stamp(id, sr.CreatedAt()), nil
}

func (r *PgServiceRequestRepository) FindByUser(ctx context.Context, collection, userID string) (servicerequest.ServiceRequest, error) {
	row := r.pool.QueryRow(ctx, pgSelectServiceRequest+` WHERE collection = $1 AND user_id = $2`, collection, userID)
	return r.scanOne(collection, row)
}

func (r *PgServiceRequestRepository) GetByID(ctx context.Context, collection, id string) (servicerequest.ServiceRequest, error) {
	row := r.pool.QueryRow(ctx, pgSelectServiceRequest+` WHERE collection = $1 AND id = $2::uuid`, collection, id)
	return r.scanOne(collection, row)
}

func (r *PgServiceRequestRepository) Update(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	m := ToDBServiceRequest(sr)
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "marshal payload")
	}
	tag, err := r.pool.Exec(ctx, pgUpdateServiceRequest,
		m.Collection, m.ID, payload, m.AgreeToDeclaration, m.Status, m.Notes, m.UpdatedAt,
	)
	if isInvalidText(err) {
		return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
	}
	if err != nil {
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "update service request")
	}
	if tag.RowsAffected() == 0 {
		return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
	}
	return sr, nil
}

func (r *PgServiceRequestRepository) List(ctx context.Context, collection string, params *servicerequest.FindParams) ([]servicerequest.ServiceRequest, error) {
	if params == nil {
		params = &servicerequest.FindParams{}
	}
	rows, err := r.pool.Query(ctx,
		pgSelectServiceRequest+` WHERE collection = $1 AND ($2::text = '' OR status = $2) ORDER BY created_at DESC LIMIT NULLIF($3::int, 0)`,
		collection, string(params.Status), params.Limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list service requests")
	}
	defer rows.Close()

	var out []servicerequest.ServiceRequest
	for rows.Next() {
		sr, err := r.scan(collection, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list service requests")
	}
	return out, nil
}

func (r *PgServiceRequestRepository) scanOne(collection string, row pgx.Row) (servicerequest.ServiceRequest, error) {
	sr, err := r.scan(collection, row)
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
	}
	return sr, err
}

func (r *PgServiceRequestRepository) scan(collection string, row pgx.Row) (servicerequest.ServiceRequest, error) {
	var (
		m       models.ServiceRequest
		payload []byte
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&m.ID, &m.ServiceType, &m.UserID, &payload, &m.AgreeToDeclaration, &m.Status, &m.Notes, &created, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return servicerequest.ServiceRequest{}, err
		}
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "scan service request")
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &m.Payload); err != nil {
			return servicerequest.ServiceRequest{}, errors.Wrap(err, "unmarshal payload")
		}
	}
	m.CreatedAt = created
	m.UpdatedAt = updated
	return ToDomainServiceRequest(collection, m)
}

func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}
