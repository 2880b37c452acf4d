package subscription

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/logger"
	"github.com/magabrotheeeer/course-access/internal/models"
	"github.com/magabrotheeeer/course-access/internal/notify"
	"github.com/magabrotheeeer/course-access/internal/services/course"
	"github.com/magabrotheeeer/course-access/internal/services/enrollment"
	"github.com/magabrotheeeer/course-access/internal/services/entitlement"
	"github.com/magabrotheeeer/course-access/internal/storage/memory"
)

// mapCache кэш в памяти для тестов.
type mapCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	floors map[string]int64
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte), floors: make(map[string]int64)}
}

func (c *mapCache) Get(_ context.Context, key string, result any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, result)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *mapCache) SetVersioned(_ context.Context, key string, version int64, value any, _ time.Duration) (bool, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if floor, ok := c.floors[key]; ok && version < floor {
		return false, nil
	}
	c.data[key] = raw
	return true, nil
}

func (c *mapCache) Fence(_ context.Context, key string, version int64, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version > c.floors[key] {
		c.floors[key] = version
	}
	delete(c.data, key)
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(userUID string, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ev.UserID = userUID
	n.events = append(n.events, ev)
}

type fixture struct {
	processor    *Processor
	store        *memory.Storage
	entitlements *entitlement.Service
	courses      *course.Service
	notifier     *recordingNotifier
	user         *models.Snapshot
	now          time.Time
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	c := newMapCache()
	log := logger.Discard()

	user, err := store.CreateUser(context.Background(), "buyer@example.com")
	require.NoError(t, err)

	ents := entitlement.New(store, c, log, time.Minute, 3)
	courses := course.New(store, c, log, time.Minute)
	notifier := &recordingNotifier{}
	enroller := enrollment.New(store, courses, ents, notifier, log)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := NewProcessor(ents, courses, enroller, notifier, log, time.Second)
	p.now = func() time.Time { return now }

	return fixture{
		processor:    p,
		store:        store,
		entitlements: ents,
		courses:      courses,
		notifier:     notifier,
		user:         user,
		now:          now,
	}
}

func (f fixture) snapshot(t *testing.T) *models.Snapshot {
	t.Helper()
	s, err := f.store.GetUser(context.Background(), f.user.UUID)
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T { return &v }

func TestTransition(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		event       models.BillingEvent
		wantOK      bool
		wantPremium bool
		wantStatus  models.SubscriptionStatus
		wantExpiry  *time.Time
	}{
		{"initial purchase", models.BillingEvent{Type: models.EventInitialPurchase, ExpiresAt: &expiry}, true, true, models.StatusActive, &expiry},
		{"renewal without expiry", models.BillingEvent{Type: models.EventRenewal}, true, true, models.StatusActive, nil},
		{"uncancellation", models.BillingEvent{Type: models.EventUncancellation, ExpiresAt: &expiry}, true, true, models.StatusActive, &expiry},
		{"cancellation keeps premium", models.BillingEvent{Type: models.EventCancellation, ExpiresAt: &expiry}, true, true, models.StatusCancelled, &expiry},
		{"expiration with date", models.BillingEvent{Type: models.EventExpiration, ExpiresAt: &expiry}, true, false, models.StatusExpired, &expiry},
		{"expiration falls back to now", models.BillingEvent{Type: models.EventExpiration}, true, false, models.StatusExpired, &now},
		{"non renewing purchase", models.BillingEvent{Type: models.EventNonRenewingPurchase}, false, false, "", nil},
		{"test", models.BillingEvent{Type: models.EventTest}, false, false, "", nil},
		{"unrecognized", models.BillingEvent{Type: models.EventUnrecognized}, false, false, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, ok := Transition(tt.event, now)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				assert.True(t, patch.Empty())
				return
			}
			require.NotNil(t, patch.IsPremium)
			assert.Equal(t, tt.wantPremium, *patch.IsPremium)
			assert.Equal(t, tt.wantStatus, *patch.SubscriptionStatus)
			if tt.wantExpiry == nil {
				assert.Nil(t, patch.SubscriptionExpire)
			} else {
				require.NotNil(t, patch.SubscriptionExpire)
				assert.True(t, tt.wantExpiry.Equal(*patch.SubscriptionExpire))
			}
			assert.Nil(t, patch.Role, "billing events never change role")
		})
	}
}

func TestProcessor_InitialPurchaseReplayIsIdempotent(t *testing.T) {
	f := setup(t)
	expiry := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	ev := models.BillingEvent{Type: models.EventInitialPurchase, RawType: "INITIAL_PURCHASE",
		AppUserID: f.user.UUID, ExpiresAt: &expiry}

	f.processor.Process(context.Background(), ev)
	once := f.snapshot(t)
	f.processor.Process(context.Background(), ev)
	twice := f.snapshot(t)

	assert.True(t, twice.IsPremium)
	assert.Equal(t, models.StatusActive, twice.SubscriptionStatus)
	require.NotNil(t, twice.SubscriptionExpire)
	assert.True(t, expiry.Equal(*twice.SubscriptionExpire))
	assert.Equal(t, once.Version, twice.Version, "replay must not write")
	assert.Len(t, f.notifier.events, 1)
}

func TestProcessor_CancellationThenExpiration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	expiry := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	f.processor.Process(ctx, models.BillingEvent{Type: models.EventInitialPurchase, AppUserID: f.user.UUID, ExpiresAt: &expiry})
	f.processor.Process(ctx, models.BillingEvent{Type: models.EventCancellation, AppUserID: f.user.UUID, ExpiresAt: &expiry})

	cancelled := f.snapshot(t)
	assert.True(t, cancelled.IsPremium, "grace period keeps access")
	assert.Equal(t, models.StatusCancelled, cancelled.SubscriptionStatus)

	f.processor.Process(ctx, models.BillingEvent{Type: models.EventExpiration, AppUserID: f.user.UUID})
	expired := f.snapshot(t)
	assert.False(t, expired.IsPremium)
	assert.Equal(t, models.StatusExpired, expired.SubscriptionStatus)
	require.NotNil(t, expired.SubscriptionExpire)
	assert.True(t, f.now.Equal(*expired.SubscriptionExpire))
}

func TestProcessor_ExpirationReplayKeepsFirstTimestamp(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ev := models.BillingEvent{Type: models.EventExpiration, AppUserID: f.user.UUID}

	f.processor.Process(ctx, ev)
	first := f.snapshot(t)

	f.processor.now = func() time.Time { return f.now.Add(time.Hour) }
	f.processor.Process(ctx, ev)
	second := f.snapshot(t)

	assert.Equal(t, first.Version, second.Version)
	assert.True(t, first.SubscriptionExpire.Equal(*second.SubscriptionExpire))
}

func TestProcessor_NonRenewingPurchaseEnrolls(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.courses.Create(ctx, models.CourseDraft{
		Title:             "My Course",
		ProductIdentifier: "My Course Identifier",
		StoreProductIDs:   []string{"prod_123"},
	})
	require.NoError(t, err)
	assert.Equal(t, "my_course_identifier", created.ProductIdentifier)

	before := f.snapshot(t)
	ev := models.BillingEvent{Type: models.EventNonRenewingPurchase, AppUserID: f.user.UUID, ProductID: "prod_123"}
	f.processor.Process(ctx, ev)
	f.processor.Process(ctx, ev)

	after := f.snapshot(t)
	assert.True(t, after.IsEnrolled(created.ID))
	assert.Equal(t, before.SubscriptionStatus, after.SubscriptionStatus)
	assert.Equal(t, before.IsPremium, after.IsPremium)
	assert.Equal(t, before.Version+1, after.Version, "second delivery is a no-op")

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, notify.KindEnrollmentSuccess, f.notifier.events[0].Kind)
}

func TestProcessor_NoMutation(t *testing.T) {
	tests := []struct {
		name  string
		event func(f fixture) models.BillingEvent
	}{
		{"unknown type", func(f fixture) models.BillingEvent {
			return models.BillingEvent{Type: models.ParseEventType("PRODUCT_CHANGE"), RawType: "PRODUCT_CHANGE", AppUserID: f.user.UUID}
		}},
		{"test event", func(f fixture) models.BillingEvent {
			return models.BillingEvent{Type: models.EventTest, AppUserID: f.user.UUID}
		}},
		{"malformed subject", func(fixture) models.BillingEvent {
			return models.BillingEvent{Type: models.EventInitialPurchase, AppUserID: "507f1f77bcf86cd799439011"}
		}},
		{"missing subject", func(fixture) models.BillingEvent {
			return models.BillingEvent{Type: models.EventRenewal}
		}},
		{"unknown subject", func(fixture) models.BillingEvent {
			return models.BillingEvent{Type: models.EventRenewal, AppUserID: uuid.NewString()}
		}},
		{"purchase of unknown product", func(f fixture) models.BillingEvent {
			return models.BillingEvent{Type: models.EventNonRenewingPurchase, AppUserID: f.user.UUID, ProductID: "prod_missing"}
		}},
		{"purchase without product", func(f fixture) models.BillingEvent {
			return models.BillingEvent{Type: models.EventNonRenewingPurchase, AppUserID: f.user.UUID}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			before := f.snapshot(t)

			assert.NotPanics(t, func() { f.processor.Process(context.Background(), tt.event(f)) })

			after := f.snapshot(t)
			assert.Equal(t, before, after)
			assert.Empty(t, f.notifier.events)
		})
	}
}

type MockEntitlements struct {
	mock.Mock
}

func (m *MockEntitlements) ValidUserID(id string) bool {
	return m.Called(id).Bool(0)
}

func (m *MockEntitlements) Update(ctx context.Context, userUID string, mutate entitlement.Mutation) (*models.Snapshot, bool, error) {
	args := m.Called(ctx, userUID, mutate)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Snapshot), args.Bool(1), args.Error(2)
}

func TestProcessor_SwallowsStoreFailures(t *testing.T) {
	ents := new(MockEntitlements)
	ents.On("ValidUserID", "u1").Return(true)
	ents.On("Update", mock.Anything, "u1", mock.Anything).Return(nil, false, apperr.ErrUnavailable)

	notifier := &recordingNotifier{}
	p := NewProcessor(ents, nil, nil, notifier, logger.Discard(), 10*time.Millisecond)

	assert.NotPanics(t, func() {
		p.Process(context.Background(), models.BillingEvent{Type: models.EventRenewal, AppUserID: "u1", ExpiresAt: ptr(time.Now())})
	})
	assert.Empty(t, notifier.events)
	ents.AssertExpectations(t)
}

func TestProcessor_AppliesTimeout(t *testing.T) {
	ents := new(MockEntitlements)
	ents.On("ValidUserID", "u1").Return(true)
	ents.On("Update", mock.Anything, "u1", mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok, "processing context must carry a deadline")
		}).
		Return(nil, false, nil)

	p := NewProcessor(ents, nil, nil, notify.Nop{}, logger.Discard(), time.Second)
	p.Process(context.Background(), models.BillingEvent{Type: models.EventCancellation, AppUserID: "u1"})
	ents.AssertExpectations(t)
}
