package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence/models"
)

type SupabaseConfig struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// SupabaseServiceRequestRepository talks to the PostgREST API of a hosted
// Supabase project. Each collection is its own table with a unique user_id.
type SupabaseServiceRequestRepository struct {
	config SupabaseConfig
	client *http.Client
}

func NewSupabaseServiceRequestRepository(config SupabaseConfig, client *http.Client) *SupabaseServiceRequestRepository {
	if client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	config.URL = strings.TrimRight(config.URL, "/")
	return &SupabaseServiceRequestRepository{config: config, client: client}
}

type supabasePatch struct {
	Payload            map[string]any `json:"payload"`
	AgreeToDeclaration *bool          `json:"agree_to_declaration"`
	Status             string         `json:"status"`
	Notes              *string        `json:"notes"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type supabaseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PostgREST error codes this store maps to domain errors.
const (
	pgrstUniqueViolation = "23505"
	pgrstInvalidText     = "22P02"
)

func (r *SupabaseServiceRequestRepository) Create(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	row := ToDBServiceRequest(sr)
	row.ID = ""
	row.Collection = ""

	var created []models.ServiceRequest
	status, apiErr, err := r.do(ctx, http.MethodPost, r.restURL(sr.Collection(), nil), row, "return=representation", &created)
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	if status == http.StatusConflict || apiErr.Code == pgrstUniqueViolation {
		return servicerequest.ServiceRequest{}, servicerequest.ErrDuplicate
	}
	if status >= http.StatusBadRequest {
		return servicerequest.ServiceRequest{}, apiErr.wrap(status)
	}
	if len(created) == 0 || created[0].ID == "" {
		return servicerequest.ServiceRequest{}, errors.New("supabase: create returned no row")
	}
	return sr.Stamp(created[0].ID, sr.CreatedAt()), nil
}

func (r *SupabaseServiceRequestRepository) FindByUser(ctx context.Context, collection, userID string) (servicerequest.ServiceRequest, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("limit", "1")
	return r.getOne(ctx, collection, q)
}

func (r *SupabaseServiceRequestRepository) GetByID(ctx context.Context, collection, id string) (servicerequest.ServiceRequest, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")
	return r.getOne(ctx, collection, q)
}

func (r *SupabaseServiceRequestRepository) Update(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	m := ToDBServiceRequest(sr)
	patch := supabasePatch{
		Payload:            m.Payload,
		AgreeToDeclaration: m.AgreeToDeclaration,
		Status:             m.Status,
		Notes:              m.Notes,
		UpdatedAt:          m.UpdatedAt,
	}
	q := url.Values{}
	q.Set("id", "eq."+sr.ID())

	var updated []models.ServiceRequest
	status, apiErr, err := r.do(ctx, http.MethodPatch, r.restURL(sr.Collection(), q), patch, "return=representation", &updated)
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	if apiErr.Code == pgrstInvalidText {
		return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
	}
	if status >= http.StatusBadRequest {
		return servicerequest.ServiceRequest{}, apiErr.wrap(status)
	}
	if len(updated) == 0 {
		return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
	}
	return sr, nil
}

func (r *SupabaseServiceRequestRepository) List(ctx context.Context, collection string, params *servicerequest.FindParams) ([]servicerequest.ServiceRequest, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	if params != nil {
		if params.Status != servicerequest.StatusNone {
			q.Set("status", "eq."+string(params.Status))
		}
		if params.Limit > 0 {
			q.Set("limit", strconv.Itoa(params.Limit))
		}
	}
	rows, err := r.query(ctx, collection, q)
	if err != nil {
		return nil, err
	}
	out := make([]servicerequest.ServiceRequest, 0, len(rows))
	for _, row := range rows {
		sr, err := ToDomainServiceRequest(collection, row)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, nil
}

func (r *SupabaseServiceRequestRepository) getOne(ctx context.Context, collection string, q url.Values) (servicerequest.ServiceRequest, error) {
	rows, err := r.query(ctx, collection, q)
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	if len(rows) == 0 {
		return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
	}
	return ToDomainServiceRequest(collection, rows[0])
}

func (r *SupabaseServiceRequestRepository) query(ctx context.Context, collection string, q url.Values) ([]models.ServiceRequest, error) {
	var rows []models.ServiceRequest
	status, apiErr, err := r.do(ctx, http.MethodGet, r.restURL(collection, q), nil, "", &rows)
	if err != nil {
		return nil, err
	}
	if apiErr.Code == pgrstInvalidText {
		return nil, servicerequest.ErrNotFound
	}
	if status >= http.StatusBadRequest {
		return nil, apiErr.wrap(status)
	}
	return rows, nil
}

// do sends one PostgREST call. API errors come back as status plus body, not as err.
func (r *SupabaseServiceRequestRepository) do(ctx context.Context, method, reqURL string, body any, prefer string, out any) (int, supabaseError, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, supabaseError{}, errors.Wrap(err, "supabase: marshal body")
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return 0, supabaseError{}, errors.Wrap(err, "supabase: build request")
	}
	req.Header.Set("apikey", r.config.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+r.config.ServiceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, supabaseError{}, errors.Wrapf(err, "supabase: %s %s", method, req.URL.Path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, supabaseError{}, errors.Wrap(err, "supabase: read response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr supabaseError
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return resp.StatusCode, apiErr, nil
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, supabaseError{}, errors.Wrap(err, "supabase: decode response")
		}
	}
	return resp.StatusCode, supabaseError{}, nil
}

func (r *SupabaseServiceRequestRepository) restURL(collection string, q url.Values) string {
	u := fmt.Sprintf("%s/rest/v1/%s", r.config.URL, url.PathEscape(collection))
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (e supabaseError) wrap(status int) error {
	return fmt.Errorf("supabase: status %d: %s %s", status, e.Code, e.Message)
}
