package memory

import (
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps every collection in process memory. It is used for local
// development and tests.
type Memory struct {
	project      *projectRepository
	profile      *profileRepository
	deliverable  *deliverableRepository
	activity     *activityRepository
	rule         *ruleRepository
	notification *notificationRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	activityRepo := newActivityRepository()

	return &Memory{
		project:      newProjectRepository(),
		profile:      newProfileRepository(),
		deliverable:  newDeliverableRepository(activityRepo),
		activity:     activityRepo,
		rule:         newRuleRepository(),
		notification: newNotificationRepository(),
	}
}

func (m *Memory) Project() interfaces.ProjectRepository {
	return m.project
}

func (m *Memory) Profile() interfaces.ProfileRepository {
	return m.profile
}

func (m *Memory) Deliverable() interfaces.DeliverableRepository {
	return m.deliverable
}

func (m *Memory) Activity() interfaces.ActivityRepository {
	return m.activity
}

func (m *Memory) Rule() interfaces.RuleRepository {
	return m.rule
}

func (m *Memory) Notification() interfaces.NotificationRepository {
	return m.notification
}
