package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type notificationRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func (r *notificationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionNotifications))
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	created := *n
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.Status == "" {
		created.Status = types.NotificationStatusPending
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection().Doc(created.ID).Create(ctx, &created); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(ErrConflict, "notification already exists", goerr.V("id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create notification", goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *notificationRepository) Update(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	updated := *n
	_, err := r.collection().Doc(n.ID).Update(ctx, []firestore.Update{
		{Path: "Status", Value: updated.Status},
		{Path: "Attempts", Value: updated.Attempts},
		{Path: "LastError", Value: updated.LastError},
		{Path: "SentAt", Value: updated.SentAt},
		{Path: "Channel", Value: updated.Channel},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "notification not found", goerr.V("id", n.ID))
		}
		return nil, goerr.Wrap(err, "failed to update notification", goerr.V("id", n.ID))
	}
	return &updated, nil
}

func (r *notificationRepository) ListPending(ctx context.Context, limit int) ([]*model.Notification, error) {
	q := r.collection().
		Where("Status", "==", types.NotificationStatusPending.String()).
		OrderBy("CreatedAt", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.list(ctx, q)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*model.Notification, error) {
	q := r.collection().
		Where("RecipientID", "==", recipientID).
		OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.list(ctx, q)
}

func (r *notificationRepository) list(ctx context.Context, q firestore.Query) ([]*model.Notification, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	notifications := make([]*model.Notification, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate notifications")
		}

		var n model.Notification
		if err := doc.DataTo(&n); err != nil {
			return nil, goerr.Wrap(err, "failed to decode notification", goerr.V("id", doc.Ref.ID))
		}
		notifications = append(notifications, &n)
	}
	return notifications, nil
}
