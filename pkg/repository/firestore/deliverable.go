package firestore

import (
	"context"
	"slices"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type deliverableRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func (r *deliverableRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionDeliverables))
}

func (r *deliverableRepository) activities() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionActivities))
}

// setActivity stages the activity write inside tx. The ID is assigned here so the
// caller sees it after the commit.
func (r *deliverableRepository) setActivity(tx *firestore.Transaction, a *model.Activity) error {
	if a == nil {
		return nil
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return tx.Create(r.activities().Doc(a.ID), a)
}

func (r *deliverableRepository) Create(ctx context.Context, d *model.Deliverable, activity *model.Activity) (*model.Deliverable, error) {
	created := d.Clone()
	created.Revision = 1
	ref := r.collection().Doc(created.ID)
	tokenQuery := r.collection().Where("ApprovalToken", "==", created.ApprovalToken.String()).Limit(1)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(tokenQuery).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to query approval token", goerr.V("token", created.ApprovalToken))
		}
		if len(docs) > 0 {
			return goerr.Wrap(ErrConflict, "approval token already taken",
				goerr.V("id", created.ID), goerr.V("token", created.ApprovalToken), goerr.V("owner", docs[0].Ref.ID))
		}

		if err := tx.Create(ref, created); err != nil {
			return goerr.Wrap(err, "failed to create deliverable", goerr.V("id", created.ID))
		}
		return r.setActivity(tx, activity)
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(ErrConflict, "deliverable already exists", goerr.V("id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create deliverable", goerr.V("id", created.ID))
	}

	return created, nil
}

func (r *deliverableRepository) Get(ctx context.Context, id string) (*model.Deliverable, error) {
	doc, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "deliverable not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get deliverable", goerr.V("id", id))
	}
	return decodeDeliverable(doc)
}

func (r *deliverableRepository) GetByToken(ctx context.Context, token model.ApprovalToken) (*model.Deliverable, error) {
	iter := r.collection().Where("ApprovalToken", "==", token.String()).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(ErrNotFound, "deliverable not found for token", goerr.V("token", token))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query deliverable by token", goerr.V("token", token))
	}
	return decodeDeliverable(doc)
}

func (r *deliverableRepository) ListByProject(ctx context.Context, projectID string) ([]*model.Deliverable, error) {
	iter := r.collection().Where("ProjectID", "==", projectID).Documents(ctx)
	defer iter.Stop()

	deliverables := make([]*model.Deliverable, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate deliverables", goerr.V("project_id", projectID))
		}

		d, err := decodeDeliverable(doc)
		if err != nil {
			return nil, err
		}
		deliverables = append(deliverables, d)
	}

	slices.SortFunc(deliverables, func(a, b *model.Deliverable) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return deliverables, nil
}

func (r *deliverableRepository) Commit(ctx context.Context, d *model.Deliverable, expectedRevision int64, activity *model.Activity) (*model.Deliverable, error) {
	ref := r.collection().Doc(d.ID)
	updated := d.Clone()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "deliverable not found", goerr.V("id", d.ID))
			}
			return goerr.Wrap(err, "failed to get deliverable", goerr.V("id", d.ID))
		}

		existing, err := decodeDeliverable(doc)
		if err != nil {
			return err
		}
		if existing.Revision != expectedRevision {
			return goerr.Wrap(ErrConflict, "deliverable was modified concurrently",
				goerr.V("id", d.ID),
				goerr.V("expected_revision", expectedRevision),
				goerr.V("stored_revision", existing.Revision))
		}

		updated.Revision = expectedRevision + 1
		updated.CreatedAt = existing.CreatedAt
		updated.ApprovalToken = existing.ApprovalToken
		if err := tx.Set(ref, updated); err != nil {
			return goerr.Wrap(err, "failed to store deliverable", goerr.V("id", d.ID))
		}
		return r.setActivity(tx, activity)
	}, firestore.MaxAttempts(1))
	if err != nil {
		if status.Code(err) == codes.Aborted {
			return nil, goerr.Wrap(ErrConflict, "deliverable transaction aborted by a concurrent write", goerr.V("id", d.ID))
		}
		return nil, goerr.Wrap(err, "failed to commit deliverable", goerr.V("id", d.ID))
	}

	return updated, nil
}

func decodeDeliverable(doc *firestore.DocumentSnapshot) (*model.Deliverable, error) {
	var d model.Deliverable
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode deliverable", goerr.V("id", doc.Ref.ID))
	}
	return &d, nil
}
