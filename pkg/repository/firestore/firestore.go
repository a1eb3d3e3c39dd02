package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
)

var (
	ErrNotFound = interfaces.ErrNotFound
	ErrConflict = interfaces.ErrConflict
)

// Collection names before prefixing
const (
	collectionProjects      = "projects"
	collectionProfiles      = "profiles"
	collectionDeliverables  = "deliverables"
	collectionActivities    = "activities"
	collectionRules         = "automation_rules"
	collectionNotifications = "notifications"
)

type Firestore struct {
	client       *firestore.Client
	databaseID   string
	names        *collectionNames
	project      *projectRepository
	profile      *profileRepository
	deliverable  *deliverableRepository
	activity     *activityRepository
	rule         *ruleRepository
	notification *notificationRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix isolates collections, e.g. per environment or per test run.
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.names.prefix = prefix
	}
}

// WithDatabaseID selects a named database instead of the default one.
func WithDatabaseID(databaseID string) Option {
	return func(f *Firestore) {
		f.databaseID = databaseID
	}
}

// collectionNames is shared by every sub-repository so that options apply to all of them.
type collectionNames struct {
	prefix string
}

func (n *collectionNames) name(base string) string {
	if n.prefix != "" {
		return n.prefix + "_" + base
	}
	return base
}

// CollectionName returns the stored name of the collection base under prefix
func CollectionName(prefix, base string) string {
	return (&collectionNames{prefix: prefix}).name(base)
}

func New(ctx context.Context, projectID string, opts ...Option) (*Firestore, error) {
	names := &collectionNames{}
	f := &Firestore{names: names}
	for _, opt := range opts {
		opt(f)
	}

	databaseID := f.databaseID
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f.client = client
	f.project = &projectRepository{client: client, names: names}
	f.profile = &profileRepository{client: client, names: names}
	f.deliverable = &deliverableRepository{client: client, names: names}
	f.activity = &activityRepository{client: client, names: names}
	f.rule = &ruleRepository{client: client, names: names}
	f.notification = &notificationRepository{client: client, names: names}

	return f, nil
}

func (f *Firestore) Project() interfaces.ProjectRepository {
	return f.project
}

func (f *Firestore) Profile() interfaces.ProfileRepository {
	return f.profile
}

func (f *Firestore) Deliverable() interfaces.DeliverableRepository {
	return f.deliverable
}

func (f *Firestore) Activity() interfaces.ActivityRepository {
	return f.activity
}

func (f *Firestore) Rule() interfaces.RuleRepository {
	return f.rule
}

func (f *Firestore) Notification() interfaces.NotificationRepository {
	return f.notification
}

// Close releases the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}
