package interfaces

import (
	"context"

	"github.com/nexaflow/nexaflow/pkg/domain/model"
)

// RuleRepository defines the interface for automation rules
type RuleRepository interface {
	// Create stores a new rule, assigning an ID if empty
	Create(ctx context.Context, r *model.AutomationRule) (*model.AutomationRule, error)

	// Get retrieves a rule by ID
	Get(ctx context.Context, id string) (*model.AutomationRule, error)

	// List retrieves all rules ordered by creation time, then ID
	List(ctx context.Context) ([]*model.AutomationRule, error)

	// Update replaces an existing rule
	Update(ctx context.Context, r *model.AutomationRule) (*model.AutomationRule, error)

	// Delete deletes a rule by ID
	Delete(ctx context.Context, id string) error
}
