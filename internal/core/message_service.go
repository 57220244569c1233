package core

import (
	"context"
	"strings"

	"geomeet.io/geo-meet/internal/store"
)

// UnknownSender is recorded when a message arrives without an actor.
const UnknownSender = "unknown"

type MessageService struct {
	dbStore store.Store
}

func NewMessageService(db store.Store) *MessageService {
	return &MessageService{dbStore: db}
}

func (s *MessageService) Send(ctx context.Context, sender, content string) (*store.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationError("Missing required fields")
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		sender = UnknownSender
	}

	msg := store.Message{Sender: sender, Content: content}
	if err := s.dbStore.CreateMessage(ctx, &msg); err != nil {
		return nil, fromStore("Failed to send message", "Message not found", err)
	}
	return &msg, nil
}

// ListBySender returns the sender's messages, newest first.
func (s *MessageService) ListBySender(ctx context.Context, sender string) ([]store.Message, error) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return nil, validationError("Missing user ID")
	}
	msgs, err := s.dbStore.ListMessagesBySender(ctx, sender)
	if err != nil {
		return nil, fromStore("Failed to fetch messages", "Messages not found", err)
	}
	return msgs, nil
}
