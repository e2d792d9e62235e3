package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ArtificalManny/sharesync/internal/database/testutil"
	"github.com/ArtificalManny/sharesync/internal/realtime"
)

type emitCall struct {
	room  string
	event realtime.Event
}

// recordingBroker captures every emit so tests can assert ordering and targets
// without a live hub.
type recordingBroker struct {
	rooms []emitCall
	users []emitCall
}

func (b *recordingBroker) Emit(room string, event realtime.Event) {
	b.rooms = append(b.rooms, emitCall{room: room, event: event})
}

func (b *recordingBroker) EmitToUser(userID string, event realtime.Event) {
	b.users = append(b.users, emitCall{room: userID, event: event})
}

func newFanoutFixture(t *testing.T) (*FanoutService, *NotificationService, *PointsService, *recordingBroker) {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	notifications, err := NewNotificationService(db)
	require.NoError(t, err)

	points, err := NewPointsService(db)
	require.NoError(t, err)

	broker := &recordingBroker{}
	scores := ScoreTable{"create_post": 5, "like_post": 1, "complete_task": 10}

	fanout, err := NewFanoutService(notifications, points, broker, scores)
	require.NoError(t, err)

	return fanout, notifications, points, broker
}

func TestFanoutPersistsThenBroadcasts(t *testing.T) {
	fanout, notifications, points, broker := newFanoutFixture(t)

	ctx := context.Background()
	created, err := fanout.NotifyProjectEvent(ctx, NotifyProjectEventInput{
		ProjectID:    "proj-1",
		Event:        realtime.NewPost{PostID: "post-1", ProjectID: "proj-1", AuthorID: "alice"},
		ActorID:      "alice",
		RecipientIDs: []string{"bob", "carol"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	// One durable notification per recipient, tagged with the entity id.
	for _, userID := range []string{"bob", "carol"} {
		items, err := notifications.ListForUser(ctx, ListNotificationsInput{UserID: userID})
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Equal(t, "newPost", items[0].Type)
		require.Equal(t, "post-1", items[0].RelatedID)
	}

	// The actor earned create_post points exactly once.
	total, err := points.TotalFor(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 5, total)

	// One broadcast into the project room, one private push per recipient.
	require.Len(t, broker.rooms, 1)
	require.Equal(t, "project:proj-1", broker.rooms[0].room)
	require.Equal(t, realtime.KindNewPost, broker.rooms[0].event.Kind())

	require.Len(t, broker.users, 2)
	for _, call := range broker.users {
		require.Equal(t, realtime.KindNotificationCreated, call.event.Kind())
	}
}

func TestFanoutNonScoringEventAwardsNothing(t *testing.T) {
	fanout, _, points, broker := newFanoutFixture(t)

	ctx := context.Background()
	created, err := fanout.NotifyProjectEvent(ctx, NotifyProjectEventInput{
		ProjectID:    "proj-1",
		Event:        realtime.NewTask{TaskID: "task-1", ProjectID: "proj-1", CreatorID: "alice"},
		ActorID:      "alice",
		RecipientIDs: []string{"bob", "carol"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	total, err := points.TotalFor(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, total)

	require.Len(t, broker.rooms, 1)
	require.Len(t, broker.users, 2)
}

func TestFanoutActionOverrideCreditsLike(t *testing.T) {
	fanout, _, points, _ := newFanoutFixture(t)

	ctx := context.Background()
	_, err := fanout.NotifyProjectEvent(ctx, NotifyProjectEventInput{
		ProjectID:    "proj-1",
		Event:        realtime.ProjectUpdated{ProjectID: "proj-1", UpdatedBy: "bob"},
		ActorID:      "bob",
		RecipientIDs: []string{"alice"},
		Action:       "like_post",
	})
	require.NoError(t, err)

	total, err := points.TotalFor(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestFanoutAbortsBeforeBroadcastOnPersistenceFailure(t *testing.T) {
	fanout, notifications, _, broker := newFanoutFixture(t)

	// The empty recipient id makes the store reject the write.
	ctx := context.Background()
	_, err := fanout.NotifyProjectEvent(ctx, NotifyProjectEventInput{
		ProjectID:    "proj-1",
		Event:        realtime.NewPost{PostID: "post-1", ProjectID: "proj-1", AuthorID: "alice"},
		ActorID:      "alice",
		RecipientIDs: []string{""},
	})
	require.Error(t, err)

	// Nothing was broadcast because nothing durable was committed.
	require.Empty(t, broker.rooms)
	require.Empty(t, broker.users)

	items, err := notifications.ListForUser(ctx, ListNotificationsInput{UserID: "alice"})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestFanoutRequiresProjectAndEvent(t *testing.T) {
	fanout, _, _, broker := newFanoutFixture(t)

	ctx := context.Background()
	_, err := fanout.NotifyProjectEvent(ctx, NotifyProjectEventInput{
		Event:        realtime.NewPost{PostID: "post-1"},
		RecipientIDs: []string{"bob"},
	})
	require.Error(t, err)

	_, err = fanout.NotifyProjectEvent(ctx, NotifyProjectEventInput{
		ProjectID:    "proj-1",
		RecipientIDs: []string{"bob"},
	})
	require.Error(t, err)

	require.Empty(t, broker.rooms)
	require.Empty(t, broker.users)
}
