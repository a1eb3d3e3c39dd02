package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ruleRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func (r *ruleRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionRules))
}

func (r *ruleRepository) Create(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error) {
	created := rule.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.UpdatedAt = created.CreatedAt

	if _, err := r.collection().Doc(created.ID).Create(ctx, created); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(ErrConflict, "rule already exists", goerr.V("id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create rule", goerr.V("id", created.ID))
	}
	return created, nil
}

func (r *ruleRepository) Get(ctx context.Context, id string) (*model.AutomationRule, error) {
	doc, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "rule not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get rule", goerr.V("id", id))
	}

	var rule model.AutomationRule
	if err := doc.DataTo(&rule); err != nil {
		return nil, goerr.Wrap(err, "failed to decode rule", goerr.V("id", id))
	}
	return &rule, nil
}

func (r *ruleRepository) List(ctx context.Context) ([]*model.AutomationRule, error) {
	iter := r.collection().Documents(ctx)
	defer iter.Stop()

	rules := make([]*model.AutomationRule, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate rules")
		}

		var rule model.AutomationRule
		if err := doc.DataTo(&rule); err != nil {
			return nil, goerr.Wrap(err, "failed to decode rule", goerr.V("id", doc.Ref.ID))
		}
		rules = append(rules, &rule)
	}

	model.SortRules(rules)
	return rules, nil
}

func (r *ruleRepository) Update(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error) {
	ref := r.collection().Doc(rule.ID)
	updated := rule.Clone()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "rule not found", goerr.V("id", rule.ID))
			}
			return goerr.Wrap(err, "failed to get rule", goerr.V("id", rule.ID))
		}
		created, err := doc.DataAt("CreatedAt")
		if err != nil {
			return goerr.Wrap(err, "failed to read rule creation time", goerr.V("id", rule.ID))
		}
		if t, ok := created.(time.Time); ok {
			updated.CreatedAt = t
		}
		updated.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, updated)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update rule", goerr.V("id", rule.ID))
	}
	return updated, nil
}

func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	ref := r.collection().Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "rule not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get rule", goerr.V("id", id))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete rule", goerr.V("id", id))
	}
	return nil
}
