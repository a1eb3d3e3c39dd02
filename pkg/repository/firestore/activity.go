package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"google.golang.org/api/iterator"
)

type activityRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func (r *activityRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionActivities))
}

func (r *activityRepository) Create(ctx context.Context, a *model.Activity) (*model.Activity, error) {
	created := *a
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection().Doc(created.ID).Create(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create activity", goerr.V("id", created.ID))
	}
	a.ID = created.ID
	a.CreatedAt = created.CreatedAt
	return &created, nil
}

func (r *activityRepository) ListByDeliverable(ctx context.Context, deliverableID string) ([]*model.Activity, error) {
	q := r.collection().
		Where("DeliverableID", "==", deliverableID).
		OrderBy("CreatedAt", firestore.Asc)
	return r.list(ctx, q)
}

func (r *activityRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]*model.Activity, error) {
	q := r.collection().
		Where("ProjectID", "==", projectID).
		OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.list(ctx, q)
}

func (r *activityRepository) list(ctx context.Context, q firestore.Query) ([]*model.Activity, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	activities := make([]*model.Activity, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate activities")
		}

		var a model.Activity
		if err := doc.DataTo(&a); err != nil {
			return nil, goerr.Wrap(err, "failed to decode activity", goerr.V("id", doc.Ref.ID))
		}
		activities = append(activities, &a)
	}
	return activities, nil
}
