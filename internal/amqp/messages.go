package amqp

import (
	"encoding/json"
	"time"

	"suryasakshi/internal/core"
)

// ActivityMessage announces one ledger mutation. It carries the audit entry
// itself so consumers never need database access.
type ActivityMessage struct {
	ActivityID int64           `json:"activity_id,omitempty"`
	UserName   string          `json:"user_name"`
	Action     core.ActionKind `json:"action"`
	Category   core.Category   `json:"category"`
	Target     string          `json:"target"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewActivityMessage builds a message from an activity entry. A zero entry
// time is replaced with now.
func NewActivityMessage(a core.Activity) *ActivityMessage {
	ts := a.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ActivityMessage{
		ActivityID: a.ID,
		UserName:   a.UserName,
		Action:     a.Action,
		Category:   a.Category,
		Target:     a.Target,
		Timestamp:  ts,
	}
}

// Activity converts the message back into an audit entry.
func (m *ActivityMessage) Activity() core.Activity {
	return core.Activity{
		ID:        m.ActivityID,
		UserName:  m.UserName,
		Action:    m.Action,
		Category:  m.Category,
		Target:    m.Target,
		CreatedAt: m.Timestamp,
	}
}

func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityMessageFromJSON decodes and sanity-checks a message body.
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Action.IsValid() {
		return nil, &InvalidMessageError{Reason: "unknown action " + string(msg.Action)}
	}
	return &msg, nil
}

type InvalidMessageError struct {
	Reason string
}

func (e *InvalidMessageError) Error() string {
	return "invalid activity message: " + e.Reason
}
