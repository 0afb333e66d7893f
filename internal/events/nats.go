// Package events publishes domain events to NATS for downstream consumers.
// Publishing is best effort; the API never fails a request because an event
// could not be delivered.
package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects for the events this service emits.
const (
	SubjectPostCreated    = "atelier.post.created"
	SubjectPostDeleted    = "atelier.post.deleted"
	SubjectProjectCreated = "atelier.project.created"
	SubjectProjectDeleted = "atelier.project.deleted"
	SubjectTaskCreated    = "atelier.task.created"
	SubjectCommentCreated = "atelier.comment.created"
)

// Publisher emits JSON events on NATS subjects. A nil Publisher is valid and
// drops all events, which is how the API runs when NATS is not configured.
type Publisher struct {
	conn *nats.Conn
}

// Connect dials NATS and returns a publisher.
func Connect(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn}, nil
}

// Envelope is the wire shape of every event.
type Envelope struct {
	Subject    string    `json:"subject"`
	EntityID   string    `json:"entity_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publish emits an event. Failures are logged and swallowed.
func (p *Publisher) Publish(subject, entityID, actorID string) {
	if p == nil || p.conn == nil {
		return
	}
	payload, err := json.Marshal(Envelope{
		Subject:    subject,
		EntityID:   entityID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("events: marshal %s: %v", subject, err)
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		log.Printf("events: publish %s: %v", subject, err)
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
