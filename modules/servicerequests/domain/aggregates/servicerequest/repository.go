package servicerequest

import "context"

type FindParams struct {
	Status Status
	Limit  int
}

// Repository is the document store for service requests. Every collection
// holds at most one request per user; Create enforces it and reports
// ErrDuplicate when a request already exists.
type Repository interface {
	Create(ctx context.Context, sr ServiceRequest) (ServiceRequest, error)
	FindByUser(ctx context.Context, collection, userID string) (ServiceRequest, error)
	GetByID(ctx context.Context, collection, id string) (ServiceRequest, error)
	Update(ctx context.Context, sr ServiceRequest) (ServiceRequest, error)
	// List returns newest first.
	List(ctx context.Context, collection string, params *FindParams) ([]ServiceRequest, error)
}
