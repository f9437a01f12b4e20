package intake

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventTypeFinalized is emitted when an object's bytes are fully and
// durably written to the source bucket. It is the only event type the
// pipeline acts on.
const EventTypeFinalized = "storage.object.v1.finalized"

// Event is one object notification, consumed exactly once per invocation.
type Event struct {
	Type       string    `json:"type"`
	Bucket     string    `json:"bucket"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// URI returns the object's storage address.
func (e Event) URI() string {
	return fmt.Sprintf("s3://%s/%s", e.Bucket, e.Name)
}

// notification is the inbound wire shape of a storage notification.
type notification struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data struct {
		Bucket string `json:"bucket"`
		Name   string `json:"name"`
	} `json:"data"`
}

// ParseEvent decodes a storage notification payload into an Event.
func ParseEvent(payload []byte) (Event, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return Event{}, fmt.Errorf("decode notification: %w", err)
	}
	if n.Type == "" {
		return Event{}, fmt.Errorf("notification missing event type")
	}
	if n.Type == EventTypeFinalized && (n.Data.Bucket == "" || n.Data.Name == "") {
		return Event{}, fmt.Errorf("finalized notification missing bucket or object name")
	}

	ev := Event{
		Type:       n.Type,
		Bucket:     n.Data.Bucket,
		Name:       n.Data.Name,
		OccurredAt: n.Time,
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return ev, nil
}
