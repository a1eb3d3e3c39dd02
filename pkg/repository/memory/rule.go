package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
)

type ruleRepository struct {
	mu    sync.RWMutex
	rules map[string]*model.AutomationRule
}

func newRuleRepository() *ruleRepository {
	return &ruleRepository{
		rules: make(map[string]*model.AutomationRule),
	}
}

func (r *ruleRepository) Create(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := rule.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if _, exists := r.rules[created.ID]; exists {
		return nil, goerr.Wrap(ErrConflict, "rule already exists", goerr.V("id", created.ID))
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.UpdatedAt = created.CreatedAt

	r.rules[created.ID] = created
	return created.Clone(), nil
}

func (r *ruleRepository) Get(ctx context.Context, id string) (*model.AutomationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.rules[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "rule not found", goerr.V("id", id))
	}
	return rule.Clone(), nil
}

func (r *ruleRepository) List(ctx context.Context) ([]*model.AutomationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]*model.AutomationRule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule.Clone())
	}
	model.SortRules(rules)
	return rules, nil
}

func (r *ruleRepository) Update(ctx context.Context, rule *model.AutomationRule) (*model.AutomationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.rules[rule.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "rule not found", goerr.V("id", rule.ID))
	}

	updated := rule.Clone()
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.rules[updated.ID] = updated
	return updated.Clone(), nil
}

func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[id]; !exists {
		return goerr.Wrap(ErrNotFound, "rule not found", goerr.V("id", id))
	}
	delete(r.rules, id)
	return nil
}
