package realtime

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Kind identifies one of the closed set of realtime event kinds. Every event
// pushed to a room carries exactly one kind so consumers can switch
// exhaustively instead of sniffing untyped payloads.
type Kind string

const (
	KindUserJoined          Kind = "userJoined"
	KindUserLeft            Kind = "userLeft"
	KindNewPost             Kind = "newPost"
	KindNewTask             Kind = "newTask"
	KindTaskCompleted       Kind = "taskCompleted"
	KindProjectUpdated      Kind = "projectUpdated"
	KindNotificationCreated Kind = "notificationCreated"
)

// Event is a tagged payload deliverable to a room.
type Event interface {
	Kind() Kind
}

// UserJoined announces a member joining a project room.
type UserJoined struct {
	UserID string `json:"userId"`
}

// Kind implements Event.
func (UserJoined) Kind() Kind { return KindUserJoined }

// UserLeft announces a member leaving a project room.
type UserLeft struct {
	UserID string `json:"userId"`
}

// Kind implements Event.
func (UserLeft) Kind() Kind { return KindUserLeft }

// NewPost announces a post created inside a project.
type NewPost struct {
	PostID    string `json:"postId"`
	ProjectID string `json:"projectId"`
	AuthorID  string `json:"authorId"`
	Title     string `json:"title,omitempty"`
}

// Kind implements Event.
func (NewPost) Kind() Kind { return KindNewPost }

// NewTask announces a task created inside a project.
type NewTask struct {
	TaskID    string `json:"taskId"`
	ProjectID string `json:"projectId"`
	CreatorID string `json:"creatorId"`
	Title     string `json:"title,omitempty"`
}

// Kind implements Event.
func (NewTask) Kind() Kind { return KindNewTask }

// TaskCompleted announces a task transitioning to done.
type TaskCompleted struct {
	TaskID    string `json:"taskId"`
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
}

// Kind implements Event.
func (TaskCompleted) Kind() Kind { return KindTaskCompleted }

// ProjectUpdated announces a change to project metadata.
type ProjectUpdated struct {
	ProjectID string         `json:"projectId"`
	UpdatedBy string         `json:"updatedBy"`
	Changes   map[string]any `json:"changes,omitempty"`
}

// Kind implements Event.
func (ProjectUpdated) Kind() Kind { return KindProjectUpdated }

// NotificationCreated carries a freshly persisted notification to the
// recipient's personal room.
type NotificationCreated struct {
	Notification any `json:"notification"`
}

// Kind implements Event.
func (NotificationCreated) Kind() Kind { return KindNotificationCreated }

// Frame is the JSON envelope written to connected clients.
type Frame struct {
	Room  string `json:"room"`
	Event Kind   `json:"event"`
	Data  any    `json:"data,omitempty"`
}

const (
	projectRoomPrefix = "project:"
	userRoomPrefix    = "user:"
)

// ProjectRoom derives the room key for a project channel.
func ProjectRoom(projectID string) string {
	return projectRoomPrefix + strings.TrimSpace(projectID)
}

// UserRoom derives the room key for a user's personal channel.
func UserRoom(userID string) string {
	return userRoomPrefix + strings.TrimSpace(userID)
}

// IsProjectRoom reports whether the room key addresses a project channel.
func IsProjectRoom(room string) bool {
	return strings.HasPrefix(room, projectRoomPrefix)
}

func normalizeRoom(room string) string {
	return strings.ToLower(strings.TrimSpace(room))
}

// EventForKind builds a typed event from an untyped payload map, keyed by the
// wire names of the payload fields. Unknown kinds are rejected so callers can
// never smuggle an open-ended event through the broker.
func EventForKind(kind Kind, data map[string]any) (Event, error) {
	switch kind {
	case KindUserJoined:
		var p UserJoined
		return p, DecodePayload(data, &p)
	case KindUserLeft:
		var p UserLeft
		return p, DecodePayload(data, &p)
	case KindNewPost:
		var p NewPost
		return p, DecodePayload(data, &p)
	case KindNewTask:
		var p NewTask
		return p, DecodePayload(data, &p)
	case KindTaskCompleted:
		var p TaskCompleted
		return p, DecodePayload(data, &p)
	case KindProjectUpdated:
		var p ProjectUpdated
		return p, DecodePayload(data, &p)
	case KindNotificationCreated:
		var p NotificationCreated
		return p, DecodePayload(data, &p)
	default:
		return nil, fmt.Errorf("realtime: unknown event kind %q", kind)
	}
}

// DecodePayload decodes between payload shapes using their JSON field names.
func DecodePayload(src any, dest any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  dest,
	})
	if err != nil {
		return fmt.Errorf("realtime: build payload decoder: %w", err)
	}
	if err := decoder.Decode(src); err != nil {
		return fmt.Errorf("realtime: decode payload: %w", err)
	}
	return nil
}
