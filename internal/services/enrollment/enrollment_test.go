package enrollment

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/logger"
	"github.com/magabrotheeeer/course-access/internal/models"
	"github.com/magabrotheeeer/course-access/internal/notify"
	"github.com/magabrotheeeer/course-access/internal/storage/memory"
)

type storeCourses struct {
	store *memory.Storage
}

func (c storeCourses) GetByID(ctx context.Context, id string) (*models.Course, error) {
	return c.store.FindCourseByID(ctx, id)
}

// barrierCourses отдаёт курс только после того, как его запросили все n участников.
type barrierCourses struct {
	storeCourses
	arrived sync.WaitGroup
}

func newBarrierCourses(store *memory.Storage, n int) *barrierCourses {
	c := &barrierCourses{storeCourses: storeCourses{store: store}}
	c.arrived.Add(n)
	return c
}

func (c *barrierCourses) GetByID(ctx context.Context, id string) (*models.Course, error) {
	course, err := c.storeCourses.GetByID(ctx, id)
	c.arrived.Done()
	c.arrived.Wait()
	return course, err
}

type recordingCache struct {
	mu        sync.Mutex
	forgotten []string
}

func (c *recordingCache) Forget(_ context.Context, userUID string, _ int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgotten = append(c.forgotten, userUID)
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
	svc      *Service
	store    *memory.Storage
	cache    *recordingCache
	notifier *recordingNotifier
	user     *models.Snapshot
	course   *models.Course
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	user, err := store.CreateUser(ctx, "student@example.com")
	require.NoError(t, err)
	course, err := store.CreateCourse(ctx, models.Course{Title: "Go", Slug: "go", ProductIdentifier: "go"}, nil)
	require.NoError(t, err)

	f := fixture{
		store:    store,
		cache:    &recordingCache{},
		notifier: &recordingNotifier{},
		user:     user,
		course:   course,
	}
	f.svc = New(store, storeCourses{store: store}, f.cache, f.notifier, logger.Discard())
	return f
}

func TestService_EnrollIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.Enroll(ctx, f.course.ID, f.user.UUID)
	require.NoError(t, err)
	assert.True(t, first.IsEnrolled(f.course.ID))

	second, err := f.svc.Enroll(ctx, f.course.ID, f.user.UUID)
	require.NoError(t, err)
	assert.Equal(t, first.EnrolledCourseIDs.IDs(), second.EnrolledCourseIDs.IDs())
	assert.Equal(t, first.Version, second.Version)

	require.Len(t, f.notifier.events, 1, "only the first enrollment notifies")
	assert.Equal(t, notify.KindEnrollmentSuccess, f.notifier.events[0].Kind)
	assert.Equal(t, f.course.ID, f.notifier.events[0].CourseID)
	assert.Equal(t, []string{f.user.UUID}, f.cache.forgotten)
}

func TestService_EnrollThenUnenrollRestoresSet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	other, err := f.store.CreateCourse(ctx, models.Course{Title: "Rust", Slug: "rust", ProductIdentifier: "rust"}, nil)
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, other.ID, f.user.UUID)
	require.NoError(t, err)

	before, err := f.store.GetUser(ctx, f.user.UUID)
	require.NoError(t, err)

	_, err = f.svc.Enroll(ctx, f.course.ID, f.user.UUID)
	require.NoError(t, err)
	after, err := f.svc.Unenroll(ctx, f.course.ID, f.user.UUID)
	require.NoError(t, err)

	assert.Equal(t, before.EnrolledCourseIDs.IDs(), after.EnrolledCourseIDs.IDs())
}

func TestService_UnenrollNotEnrolledIsNoop(t *testing.T) {
	f := setup(t)

	got, err := f.svc.Unenroll(context.Background(), f.course.ID, f.user.UUID)
	require.NoError(t, err)
	assert.Empty(t, got.EnrolledCourseIDs)
	assert.Equal(t, f.user.Version, got.Version)
}

func TestService_NotFound(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		courseID string
		userUID  string
		entity   string
	}{
		{"missing course", uuid.NewString(), f.user.UUID, "course"},
		{"missing user", f.course.ID, uuid.NewString(), "user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Enroll(ctx, tt.courseID, tt.userUID)
			require.ErrorIs(t, err, apperr.ErrNotFound)
			var nf *apperr.NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tt.entity, nf.Entity)

			_, err = f.svc.Unenroll(ctx, tt.courseID, tt.userUID)
			assert.ErrorIs(t, err, apperr.ErrNotFound)
		})
	}
	assert.Empty(t, f.notifier.events)
}

func TestService_CanceledContextIsUnavailable(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Enroll(ctx, f.course.ID, f.user.UUID)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestService_Listings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Enroll(ctx, f.course.ID, f.user.UUID)
	require.NoError(t, err)

	courses, err := f.svc.EnrolledCourses(ctx, f.user.UUID)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, f.course.ID, courses[0].ID)

	users, err := f.svc.EnrolledUsers(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, f.user.UUID, users[0].UUID)

	_, err = f.svc.EnrolledUsers(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_ConcurrentEnrollNotifiesOnce(t *testing.T) {
	f := setup(t)
	const workers = 8
	svc := New(f.store, newBarrierCourses(f.store, workers), f.cache, f.notifier, logger.Discard())

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.Enroll(context.Background(), f.course.ID, f.user.UUID)
			assert.NoError(t, err)
			assert.True(t, got.IsEnrolled(f.course.ID))
		}()
	}
	wg.Wait()

	assert.Len(t, f.notifier.events, 1, "one new enrollment produces one notification")
	assert.Len(t, f.cache.forgotten, 1)

	final, err := f.store.GetUser(context.Background(), f.user.UUID)
	require.NoError(t, err)
	assert.Equal(t, f.user.Version+1, final.Version)
}
