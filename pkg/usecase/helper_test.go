package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/repository/memory"
	"github.com/nexaflow/nexaflow/pkg/service/notify"
	"github.com/nexaflow/nexaflow/pkg/service/storage"
	"github.com/nexaflow/nexaflow/pkg/usecase"
)

const clientPhone = "+15550102000"

// testClock starts at a fixed instant and moves one second per reading so that
// records created in sequence sort in sequence.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	repo    interfaces.Repository
	uc      *usecase.UseCases
	storage *storage.Memory
	outbox  *notify.Outbox
	clock   *testClock

	admin    *model.Profile
	pm       *model.Profile
	member   *model.Profile
	client   *model.Profile
	outsider *model.Profile
	project  *model.Project
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	wrap    func(interfaces.Repository) interfaces.Repository
	options []usecase.Option
}

// withRepoWrapper lets a test intercept repository calls
func withRepoWrapper(wrap func(interfaces.Repository) interfaces.Repository) fixtureOption {
	return func(c *fixtureConfig) {
		c.wrap = wrap
	}
}

func withOptions(opts ...usecase.Option) fixtureOption {
	return func(c *fixtureConfig) {
		c.options = append(c.options, opts...)
	}
}

// newFixture builds use cases over the memory repository with one project run
// by pm for client, staffed by member, and the default review rule installed.
func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	ctx := context.Background()

	cfg := &fixtureConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var repo interfaces.Repository = memory.New()
	if cfg.wrap != nil {
		repo = cfg.wrap(repo)
	}

	f := &fixture{
		repo:    repo,
		storage: storage.NewMemory(""),
		outbox:  notify.NewOutbox(),
		clock:   newTestClock(),
		admin:   &model.Profile{ID: "admin-1", Name: "Ada Admin", Email: "admin@example.com", Role: types.RoleAdmin},
		pm:      &model.Profile{ID: "pm-1", Name: "Pat Manager", Email: "pm@example.com", Role: types.RoleProjectManager},
		member: &model.Profile{
			ID: "member-1", Name: "Mika Member", Email: "member@example.com",
			Phone: "+15550103000", Role: types.RoleTeamMember,
		},
		client: &model.Profile{
			ID: "client-1", Name: "Chris Client", Email: "client@example.com",
			Phone: clientPhone, Role: types.RoleClient, NotifyChannel: types.NotificationChannelEmail,
		},
		outsider: &model.Profile{ID: "client-2", Name: "Olli Outsider", Email: "other@example.com", Role: types.RoleClient},
	}

	for _, p := range []*model.Profile{f.admin, f.pm, f.member, f.client, f.outsider} {
		gt.NoError(t, repo.Profile().Put(ctx, p)).Required()
	}

	sender := notify.New(
		notify.WithSender(types.NotificationChannelEmail, f.outbox.Email()),
		notify.WithSender(types.NotificationChannelWhatsApp, f.outbox.WhatsApp()),
	)
	options := append([]usecase.Option{
		usecase.WithStorage(f.storage),
		usecase.WithNotificationSender(sender),
		usecase.WithClock(f.clock.Now),
	}, cfg.options...)
	f.uc = usecase.New(repo, options...)

	added, err := f.uc.Rule.EnsureDefaults(ctx, []*model.AutomationRule{model.DefaultReviewRule()})
	gt.NoError(t, err).Required()
	gt.Number(t, added).Equal(1)

	f.project, err = f.uc.Project.CreateProject(ctx, f.session(f.pm), usecase.ProjectInput{
		Name:      "Spring campaign",
		ClientID:  f.client.ID,
		MemberIDs: []string{f.member.ID},
	})
	gt.NoError(t, err).Required()

	return f
}

func (f *fixture) session(p *model.Profile) *auth.Session {
	return auth.FromProfile(p)
}

func (f *fixture) createDeliverable(t *testing.T, title string, requiresReview bool) *model.Deliverable {
	t.Helper()
	d, err := f.uc.Deliverable.CreateDeliverable(context.Background(), f.session(f.pm), f.project.ID, usecase.DeliverableInput{
		Title:          title,
		RequiresReview: requiresReview,
		AssigneeID:     f.member.ID,
	})
	gt.NoError(t, err).Required()
	return d
}

func (f *fixture) upload(t *testing.T, deliverableID, fileName string) *model.Deliverable {
	t.Helper()
	d, err := f.uc.Deliverable.UploadVersion(context.Background(), f.session(f.member), usecase.UploadInput{
		DeliverableID: deliverableID,
		FileName:      fileName,
		ContentType:   "image/png",
		Size:          int64(len("png-bytes")),
		Body:          strings.NewReader("png-bytes"),
	})
	gt.NoError(t, err).Required()
	return d
}

// inReview creates a deliverable requiring review with one uploaded version
func (f *fixture) inReview(t *testing.T, title string) *model.Deliverable {
	t.Helper()
	d := f.createDeliverable(t, title, true)
	d = f.upload(t, d.ID, "logo.png")
	gt.Value(t, d.Status).Equal(types.DeliverableStatusReview)
	return d
}

func (f *fixture) reload(t *testing.T, id string) *model.Deliverable {
	t.Helper()
	d, err := f.repo.Deliverable().Get(context.Background(), id)
	gt.NoError(t, err).Required()
	return d
}

func (f *fixture) activities(t *testing.T, deliverableID string, activityType types.ActivityType) []*model.Activity {
	t.Helper()
	all, err := f.repo.Activity().ListByDeliverable(context.Background(), deliverableID)
	gt.NoError(t, err).Required()

	var matched []*model.Activity
	for _, a := range all {
		if a.Type == activityType {
			matched = append(matched, a)
		}
	}
	return matched
}

// hookedRepo replaces the deliverable repository of an inner repository
type hookedRepo struct {
	interfaces.Repository
	deliverables interfaces.DeliverableRepository
}

func (r *hookedRepo) Deliverable() interfaces.DeliverableRepository {
	return r.deliverables
}

// hookedDeliverables runs optional hooks around the inner repository
type hookedDeliverables struct {
	interfaces.DeliverableRepository
	beforeCreate func(d *model.Deliverable) error
	afterGet     func(ctx context.Context, d *model.Deliverable)
}

func (r *hookedDeliverables) Create(ctx context.Context, d *model.Deliverable, activity *model.Activity) (*model.Deliverable, error) {
	if r.beforeCreate != nil {
		if err := r.beforeCreate(d); err != nil {
			return nil, err
		}
	}
	return r.DeliverableRepository.Create(ctx, d, activity)
}

func (r *hookedDeliverables) Get(ctx context.Context, id string) (*model.Deliverable, error) {
	d, err := r.DeliverableRepository.Get(ctx, id)
	if err == nil && r.afterGet != nil {
		r.afterGet(ctx, d)
	}
	return d, err
}

func hookDeliverables(hooks *hookedDeliverables) fixtureOption {
	return withRepoWrapper(func(inner interfaces.Repository) interfaces.Repository {
		hooks.DeliverableRepository = inner.Deliverable()
		return &hookedRepo{Repository: inner, deliverables: hooks}
	})
}
