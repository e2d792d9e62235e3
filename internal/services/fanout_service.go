package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ArtificalManny/sharesync/internal/realtime"
	"github.com/ArtificalManny/sharesync/pkg/logger"
)

// Broker is the slice of the event broker the coordinator needs. Satisfied by
// *realtime.Hub; tests inject recording fakes.
type Broker interface {
	Emit(room string, event realtime.Event)
	EmitToUser(userID string, event realtime.Event)
}

// ScoreTable maps action tags to their fixed point values. Populated from
// configuration, never hardcoded at call sites.
type ScoreTable map[string]int

// scoringActions maps event kinds to the action tag credited to the actor.
// Kinds without an entry (and without an explicit override) award nothing.
var scoringActions = map[realtime.Kind]string{
	realtime.KindNewPost:       "create_post",
	realtime.KindTaskCompleted: "complete_task",
}

// NotifyProjectEventInput describes one application action to fan out.
type NotifyProjectEventInput struct {
	ProjectID    string
	Event        realtime.Event
	ActorID      string
	RecipientIDs []string

	// Action overrides the scoring tag derived from the event kind. Lets
	// callers credit actions such as like_post that notify without carrying
	// their own broadcast kind.
	Action string
}

// FanoutService coordinates one triggering action into its downstream
// effects: a persisted notification per recipient, a ledger append for
// scoring actions, and live broadcasts to the project room and each
// recipient's personal room. Persistence strictly precedes broadcast.
type FanoutService struct {
	notifications *NotificationService
	points        *PointsService
	broker        Broker
	scores        ScoreTable
	log           *zap.Logger
}

// NewFanoutService constructs a FanoutService.
func NewFanoutService(notifications *NotificationService, points *PointsService, broker Broker, scores ScoreTable) (*FanoutService, error) {
	switch {
	case notifications == nil:
		return nil, errors.New("fanout service: notification service is required")
	case points == nil:
		return nil, errors.New("fanout service: points service is required")
	case broker == nil:
		return nil, errors.New("fanout service: broker is required")
	}

	return &FanoutService{
		notifications: notifications,
		points:        points,
		broker:        broker,
		scores:        scores,
		log:           logger.WithModule("fanout"),
	}, nil
}

// NotifyProjectEvent persists one notification per recipient and a point
// event for scoring actions, then broadcasts. Any persistence failure aborts
// the whole operation before anything is broadcast; broadcast problems are
// logged but never escalate since the store already holds durable truth.
func (s *FanoutService) NotifyProjectEvent(ctx context.Context, input NotifyProjectEventInput) ([]NotificationDTO, error) {
	projectID := strings.TrimSpace(input.ProjectID)
	if projectID == "" {
		return nil, errors.New("fanout service: project id is required")
	}
	if input.Event == nil {
		return nil, errors.New("fanout service: event is required")
	}

	kind := input.Event.Kind()
	relatedID := relatedEntityID(input.Event)

	created := make([]NotificationDTO, 0, len(input.RecipientIDs))
	for _, recipient := range input.RecipientIDs {
		dto, err := s.notifications.Create(ctx, CreateNotificationInput{
			UserID:    recipient,
			Type:      string(kind),
			Message:   messageFor(kind),
			RelatedID: relatedID,
		})
		if err != nil {
			return nil, fmt.Errorf("fanout service: notify %s: %w", recipient, err)
		}
		created = append(created, *dto)
	}

	if action := s.scoringAction(kind, input.Action); action != "" && input.ActorID != "" {
		if value, ok := s.scores[action]; ok {
			if err := s.points.AddPoints(ctx, input.ActorID, value, action); err != nil {
				return nil, fmt.Errorf("fanout service: award %s: %w", action, err)
			}
		}
	}

	// Durable records are committed; everything below is best-effort.
	s.broker.Emit(realtime.ProjectRoom(projectID), input.Event)

	for i := range created {
		s.broker.EmitToUser(created[i].UserID, realtime.NotificationCreated{
			Notification: created[i],
		})
	}

	s.log.Debug("fanned out project event",
		zap.String("project_id", projectID),
		zap.String("event", string(kind)),
		zap.Int("recipients", len(created)),
	)

	return created, nil
}

func (s *FanoutService) scoringAction(kind realtime.Kind, override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	return scoringActions[kind]
}

// relatedEntityID pulls the primary entity id out of the payload, if the
// event carries one.
func relatedEntityID(event realtime.Event) string {
	var ref struct {
		PostID string `json:"postId"`
		TaskID string `json:"taskId"`
	}
	if err := realtime.DecodePayload(event, &ref); err != nil {
		return ""
	}

	switch {
	case ref.PostID != "":
		return ref.PostID
	case ref.TaskID != "":
		return ref.TaskID
	default:
		return ""
	}
}

func messageFor(kind realtime.Kind) string {
	switch kind {
	case realtime.KindNewPost:
		return "A new post was added to your project"
	case realtime.KindNewTask:
		return "A new task was added to your project"
	case realtime.KindTaskCompleted:
		return "A task in your project was completed"
	case realtime.KindProjectUpdated:
		return "A project you belong to was updated"
	case realtime.KindUserJoined:
		return "Someone joined your project"
	case realtime.KindUserLeft:
		return "Someone left your project"
	default:
		return "Activity in your project"
	}
}
