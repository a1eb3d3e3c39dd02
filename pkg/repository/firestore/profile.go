package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type profileRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func (r *profileRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionProfiles))
}

// Put stores the phone number normalized so that GetByPhone can query it directly.
func (r *profileRepository) Put(ctx context.Context, p *model.Profile) error {
	if p.ID == "" {
		return goerr.New("profile id is required")
	}

	stored := *p
	stored.Phone = model.NormalizePhone(p.Phone)
	stored.UpdatedAt = time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}

	if _, err := r.collection().Doc(stored.ID).Set(ctx, &stored); err != nil {
		return goerr.Wrap(err, "failed to put profile", goerr.V("id", p.ID))
	}
	return nil
}

func (r *profileRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	doc, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "profile not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get profile", goerr.V("id", id))
	}

	var p model.Profile
	if err := doc.DataTo(&p); err != nil {
		return nil, goerr.Wrap(err, "failed to decode profile", goerr.V("id", id))
	}
	return &p, nil
}

func (r *profileRepository) GetByPhone(ctx context.Context, phone string) (*model.Profile, error) {
	normalized := model.NormalizePhone(phone)
	if normalized == "" {
		return nil, goerr.Wrap(ErrNotFound, "profile not found", goerr.V("phone", phone))
	}

	iter := r.collection().Where("Phone", "==", normalized).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(ErrNotFound, "profile not found", goerr.V("phone", phone))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query profile by phone", goerr.V("phone", phone))
	}

	var p model.Profile
	if err := doc.DataTo(&p); err != nil {
		return nil, goerr.Wrap(err, "failed to decode profile", goerr.V("id", doc.Ref.ID))
	}
	return &p, nil
}

func (r *profileRepository) List(ctx context.Context) ([]*model.Profile, error) {
	iter := r.collection().OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var profiles []*model.Profile
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate profiles")
		}

		var p model.Profile
		if err := doc.DataTo(&p); err != nil {
			return nil, goerr.Wrap(err, "failed to decode profile", goerr.V("id", doc.Ref.ID))
		}
		profiles = append(profiles, &p)
	}
	return profiles, nil
}
