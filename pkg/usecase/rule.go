package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
)

type RuleUseCase struct {
	repo  interfaces.Repository
	clock func() time.Time
}

func NewRuleUseCase(repo interfaces.Repository, clock func() time.Time) *RuleUseCase {
	return &RuleUseCase{repo: repo, clock: clock}
}

// CreateRule validates and stores a new automation rule
func (uc *RuleUseCase) CreateRule(ctx context.Context, session *auth.Session, rule *model.AutomationRule) (*model.AutomationRule, error) {
	if err := uc.authorize(session); err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, goerr.Wrap(ErrValidation, "rule is required")
	}

	now := uc.clock()
	r := rule.Clone()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := r.Validate(); err != nil {
		return nil, validationError(err, "invalid automation rule")
	}

	created, err := uc.repo.Rule().Create(ctx, r)
	if err != nil {
		return nil, backendError(err, "failed to create automation rule")
	}
	logging.From(ctx).Info("automation rule created", "rule_id", created.ID, "rule_name", created.Name)
	return created, nil
}

// GetRule returns a rule
func (uc *RuleUseCase) GetRule(ctx context.Context, session *auth.Session, id string) (*model.AutomationRule, error) {
	if err := uc.authorize(session); err != nil {
		return nil, err
	}
	r, err := uc.repo.Rule().Get(ctx, id)
	if err != nil {
		return nil, notFoundOrBackend(err, ErrRuleNotFound, "automation rule", goerr.V(RuleIDKey, id))
	}
	return r, nil
}

// ListRules returns the rules in execution order
func (uc *RuleUseCase) ListRules(ctx context.Context, session *auth.Session) ([]*model.AutomationRule, error) {
	if err := uc.authorize(session); err != nil {
		return nil, err
	}
	rules, err := uc.repo.Rule().List(ctx)
	if err != nil {
		return nil, backendError(err, "failed to list automation rules")
	}
	model.SortRules(rules)
	return rules, nil
}

// UpdateRule replaces the definition of an existing rule. Its position in the
// execution order is kept.
func (uc *RuleUseCase) UpdateRule(ctx context.Context, session *auth.Session, id string, rule *model.AutomationRule) (*model.AutomationRule, error) {
	if err := uc.authorize(session); err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, goerr.Wrap(ErrValidation, "rule is required")
	}

	existing, err := uc.repo.Rule().Get(ctx, id)
	if err != nil {
		return nil, notFoundOrBackend(err, ErrRuleNotFound, "automation rule", goerr.V(RuleIDKey, id))
	}

	r := rule.Clone()
	r.ID = existing.ID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = uc.clock()
	if err := r.Validate(); err != nil {
		return nil, validationError(err, "invalid automation rule", goerr.V(RuleIDKey, id))
	}

	updated, err := uc.repo.Rule().Update(ctx, r)
	if err != nil {
		return nil, notFoundOrBackend(err, ErrRuleNotFound, "automation rule", goerr.V(RuleIDKey, id))
	}
	return updated, nil
}

// DeleteRule removes a rule
func (uc *RuleUseCase) DeleteRule(ctx context.Context, session *auth.Session, id string) error {
	if err := uc.authorize(session); err != nil {
		return err
	}
	if err := uc.repo.Rule().Delete(ctx, id); err != nil {
		return notFoundOrBackend(err, ErrRuleNotFound, "automation rule", goerr.V(RuleIDKey, id))
	}
	logging.From(ctx).Info("automation rule deleted", "rule_id", id)
	return nil
}

// EnsureDefaults stores each of rules whose name is not taken yet and returns how
// many were added. Existing rules are left untouched so that edits survive restarts.
func (uc *RuleUseCase) EnsureDefaults(ctx context.Context, rules []*model.AutomationRule) (int, error) {
	existing, err := uc.repo.Rule().List(ctx)
	if err != nil {
		return 0, backendError(err, "failed to list automation rules")
	}
	names := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		names[r.Name] = struct{}{}
	}

	added := 0
	for _, rule := range rules {
		if _, ok := names[rule.Name]; ok {
			continue
		}
		if _, err := uc.CreateRule(ctx, auth.System(), rule); err != nil {
			return added, goerr.Wrap(err, "failed to seed default rule", goerr.V("rule_name", rule.Name))
		}
		names[rule.Name] = struct{}{}
		added++
	}
	return added, nil
}

func (uc *RuleUseCase) authorize(session *auth.Session) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if !session.CanManageRules() {
		return goerr.Wrap(ErrAccessDenied, "only admins may manage automation rules", goerr.V(UserIDKey, session.UserID))
	}
	return nil
}
