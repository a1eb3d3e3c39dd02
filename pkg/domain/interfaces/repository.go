package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Project() ProjectRepository
	Profile() ProfileRepository
	Deliverable() DeliverableRepository
	Activity() ActivityRepository
	Rule() RuleRepository
	Notification() NotificationRepository
}
