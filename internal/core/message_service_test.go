package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageSendAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewMessageService(newFakeStore())

	first, err := svc.Send(ctx, alice, "hi")
	require.NoError(t, err)
	second, err := svc.Send(ctx, alice, "lunch?")
	require.NoError(t, err)
	_, err = svc.Send(ctx, bob, "hey")
	require.NoError(t, err)

	msgs, err := svc.ListBySender(ctx, alice)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, second.ID, msgs[0].ID)
	assert.Equal(t, first.ID, msgs[1].ID)
}

func TestMessageSendDefaultsSender(t *testing.T) {
	msg, err := NewMessageService(newFakeStore()).Send(context.Background(), "", "anyone?")
	require.NoError(t, err)
	assert.Equal(t, UnknownSender, msg.Sender)
}

func TestMessageValidation(t *testing.T) {
	svc := NewMessageService(newFakeStore())

	_, err := svc.Send(context.Background(), alice, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ListBySender(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}
