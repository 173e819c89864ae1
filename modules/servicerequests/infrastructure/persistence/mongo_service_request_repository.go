package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/mgo/v3"
	"github.com/juju/mgo/v3/bson"
	"github.com/pkg/errors"

	"github.com/iota-uz/taxdesk/modules/servicerequests/domain/aggregates/servicerequest"
	"github.com/iota-uz/taxdesk/modules/servicerequests/infrastructure/persistence/models"
)

// MongoServiceRequestRepository stores each collection as a mongo collection
// with a unique index on userId.
type MongoServiceRequestRepository struct {
	session  *mgo.Session
	database string

	mu      sync.Mutex
	indexed map[string]bool
}

func DialMongo(url string, timeout time.Duration) (*mgo.Session, error) {
	session, err := mgo.DialWithTimeout(url, timeout)
	if err != nil {
		return nil, errors.Wrap(err, "mongo: dial")
	}
	session.SetMode(mgo.Strong, true)
	return session, nil
}

func NewMongoServiceRequestRepository(session *mgo.Session, database string) *MongoServiceRequestRepository {
	return &MongoServiceRequestRepository{
		session:  session,
		database: database,
		indexed:  map[string]bool{},
	}
}

func (r *MongoServiceRequestRepository) Create(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	if err := ctx.Err(); err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	s, c, err := r.collection(sr.Collection())
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	defer s.Close()

	created := sr.Stamp(uuid.New().String(), sr.CreatedAt())
	if err := c.Insert(ToDBServiceRequest(created)); err != nil {
		if mgo.IsDup(err) {
			return servicerequest.ServiceRequest{}, servicerequest.ErrDuplicate
		}
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "mongo: insert request")
	}
	return created, nil
}

func (r *MongoServiceRequestRepository) FindByUser(ctx context.Context, collection, userID string) (servicerequest.ServiceRequest, error) {
	return r.findOne(ctx, collection, bson.M{"userId": userID})
}

func (r *MongoServiceRequestRepository) GetByID(ctx context.Context, collection, id string) (servicerequest.ServiceRequest, error) {
	return r.findOne(ctx, collection, bson.M{"_id": id})
}

func (r *MongoServiceRequestRepository) Update(ctx context.Context, sr servicerequest.ServiceRequest) (servicerequest.ServiceRequest, error) {
	if err := ctx.Err(); err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	s, c, err := r.collection(sr.Collection())
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	defer s.Close()

	m := ToDBServiceRequest(sr)
	set := bson.M{
		"payload":   m.Payload,
		"status":    m.Status,
		"updatedAt": m.UpdatedAt,
	}
	unset := bson.M{}
	if m.AgreeToDeclaration != nil {
		set["agreeToDeclaration"] = *m.AgreeToDeclaration
	} else {
		unset["agreeToDeclaration"] = ""
	}
	if m.Notes != nil {
		set["notes"] = *m.Notes
	} else {
		unset["notes"] = ""
	}
	change := bson.M{"$set": set}
	if len(unset) > 0 {
		change["$unset"] = unset
	}
	if err := c.UpdateId(sr.ID(), change); err != nil {
		if err == mgo.ErrNotFound {
			return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
		}
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "mongo: update request")
	}
	return sr, nil
}

func (r *MongoServiceRequestRepository) List(ctx context.Context, collection string, params *servicerequest.FindParams) ([]servicerequest.ServiceRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, c, err := r.collection(collection)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	filter := bson.M{}
	limit := 0
	if params != nil {
		if params.Status != servicerequest.StatusNone {
			filter["status"] = string(params.Status)
		}
		limit = params.Limit
	}
	query := c.Find(filter).Sort("-createdAt")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var docs []models.ServiceRequest
	if err := query.All(&docs); err != nil {
		return nil, errors.Wrap(err, "mongo: list requests")
	}
	out := make([]servicerequest.ServiceRequest, 0, len(docs))
	for _, doc := range docs {
		sr, err := ToDomainServiceRequest(collection, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, nil
}

func (r *MongoServiceRequestRepository) findOne(ctx context.Context, collection string, filter bson.M) (servicerequest.ServiceRequest, error) {
	if err := ctx.Err(); err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	s, c, err := r.collection(collection)
	if err != nil {
		return servicerequest.ServiceRequest{}, err
	}
	defer s.Close()

	var doc models.ServiceRequest
	if err := c.Find(filter).One(&doc); err != nil {
		if err == mgo.ErrNotFound {
			return servicerequest.ServiceRequest{}, servicerequest.ErrNotFound
		}
		return servicerequest.ServiceRequest{}, errors.Wrap(err, "mongo: find request")
	}
	return ToDomainServiceRequest(collection, doc)
}

// collection returns a copied session the caller must close, ensuring the
// unique owner index the first time a collection is touched.
func (r *MongoServiceRequestRepository) collection(name string) (*mgo.Session, *mgo.Collection, error) {
	s := r.session.Copy()
	c := s.DB(r.database).C(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.indexed[name] {
		err := c.EnsureIndex(mgo.Index{
			Key:    []string{"userId"},
			Unique: true,
			Name:   "service_requests_user_unique",
		})
		if err != nil {
			s.Close()
			return nil, nil, errors.Wrapf(err, "mongo: ensure index on %s", name)
		}
		r.indexed[name] = true
	}
	return s, c, nil
}
