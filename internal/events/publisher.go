package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ConversationCreatedEvent announces a new conversation to interested
// services (presence, notifications).
type ConversationCreatedEvent struct {
	ConversationID string   `json:"conversation_id"`
	Participants   []string `json:"participants"`
	IsGroup        bool     `json:"is_group"`
}

// Publisher pushes conversation lifecycle events over NATS. Methods on a
// nil Publisher are no-ops so the service runs without a broker.
type Publisher struct {
	nc  *nats.Conn
	log *zap.SugaredLogger
}

func NewPublisher(url string, log *zap.SugaredLogger) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc, log: log}, nil
}

func (p *Publisher) PublishConversationCreated(conversationID string, participants []string, isGroup bool) {
	p.publish("conversation.created", ConversationCreatedEvent{
		ConversationID: conversationID,
		Participants:   participants,
		IsGroup:        isGroup,
	})
}

// PublishConversationDirectCreated announces a direct conversation minted
// by find-or-create, as opposed to an explicit create.
func (p *Publisher) PublishConversationDirectCreated(conversationID string, participants []string) {
	p.publish("conversation.direct_created", ConversationCreatedEvent{
		ConversationID: conversationID,
		Participants:   participants,
		IsGroup:        false,
	})
}

func (p *Publisher) publish(subject string, ev ConversationCreatedEvent) {
	if p == nil || p.nc == nil {
		return
	}
	b, _ := json.Marshal(ev)
	if err := p.nc.Publish(subject, b); err != nil {
		p.log.Errorw("publish "+subject, "conversation_id", ev.ConversationID, "err", err)
	}
}

func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}
