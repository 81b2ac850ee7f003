package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types on the integrity stream
const (
	EventCommentSubtreeDeleted = "comment_subtree_deleted"
	EventFollowChanged         = "follow_changed"
)

// Stream names
const (
	StreamIntegrity = "stream:integrity"
)

// ConsumerGroupIntegrity is the consumer group for repair workers.
const (
	ConsumerGroupIntegrity = "integrity_workers"
)

// Event is a repair hint published after a committed write. Handlers
// recompute state from the database, so replaying an event is harmless.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	// Comment events
	PostID    int64  `json:"post_id,omitempty"`
	CommentID int64  `json:"comment_id,omitempty"`
	RootID    *int64 `json:"root_id,omitempty"`

	// Follow events
	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`
}

// NewCommentSubtreeDeletedEvent is published after a comment cascade.
// RootID is nil when the deleted comment was itself top-level.
func NewCommentSubtreeDeletedEvent(postID, commentID int64, rootID *int64) Event {
	return Event{
		Type:      EventCommentSubtreeDeleted,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		CommentID: commentID,
		RootID:    rootID,
	}
}

func NewFollowChangedEvent(followerID, followeeID int64) Event {
	return Event{
		Type:       EventFollowChanged,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// ToMap converts the event to XADD field-value pairs with the JSON body under "data".
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEvent parses an Event from Redis stream message values.
func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
