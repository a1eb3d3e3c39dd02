package firestore

import (
	"context"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type projectRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func (r *projectRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionProjects))
}

func (r *projectRepository) Create(ctx context.Context, p *model.Project) (*model.Project, error) {
	created := *p
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.UpdatedAt = created.CreatedAt

	if _, err := r.collection().Doc(created.ID).Create(ctx, &created); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(ErrConflict, "project already exists", goerr.V("id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create project", goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *projectRepository) Get(ctx context.Context, id string) (*model.Project, error) {
	doc, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get project", goerr.V("id", id))
	}

	var p model.Project
	if err := doc.DataTo(&p); err != nil {
		return nil, goerr.Wrap(err, "failed to decode project", goerr.V("id", id))
	}
	return &p, nil
}

func (r *projectRepository) List(ctx context.Context) ([]*model.Project, error) {
	iter := r.collection().Documents(ctx)
	defer iter.Stop()

	var projects []*model.Project
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate projects")
		}

		var p model.Project
		if err := doc.DataTo(&p); err != nil {
			return nil, goerr.Wrap(err, "failed to decode project", goerr.V("id", doc.Ref.ID))
		}
		projects = append(projects, &p)
	}

	slices.SortFunc(projects, func(a, b *model.Project) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return projects, nil
}

func (r *projectRepository) Update(ctx context.Context, p *model.Project) (*model.Project, error) {
	ref := r.collection().Doc(p.ID)
	updated := *p

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "project not found", goerr.V("id", p.ID))
			}
			return goerr.Wrap(err, "failed to get project", goerr.V("id", p.ID))
		}
		var existing model.Project
		if err := doc.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to decode project", goerr.V("id", p.ID))
		}

		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, &updated)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update project", goerr.V("id", p.ID))
	}
	return &updated, nil
}
