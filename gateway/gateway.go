// Package gateway is the boundary between the bot and the chat platform.
// Everything the router and the reconciler do on the platform goes through
// the Gateway interface; Discord implements it over discordgo.
package gateway

import (
	"context"

	"confessbot/model"
)

// Gateway is the platform surface the bot consumes. Every method returns an
// apperr.Gateway error when the platform call fails or times out.
type Gateway interface {
	// SelfID is the platform user id the bot posts as.
	SelfID() string
	// FetchContainer returns the channel with its pinned and recent anchors.
	FetchContainer(ctx context.Context, channelID string) (*model.Container, error)
	// PostMessage sends msg into a channel or thread.
	PostMessage(ctx context.Context, channelID string, msg model.Message) (model.MessageRef, error)
	// EditMessage replaces the content and buttons of a posted message.
	EditMessage(ctx context.Context, ref model.MessageRef, msg model.Message) error
	// PinMessage pins a message.
	PinMessage(ctx context.Context, ref model.MessageRef) error
	// StartThread opens a thread named name in channelID with msg as its
	// first message and returns the reference of that message. The thread id
	// is ref.ChannelID.
	StartThread(ctx context.Context, channelID, name string, msg model.Message) (model.MessageRef, error)
	// ShowForm answers an interaction with a form.
	ShowForm(ctx context.Context, in model.InteractionRef, form model.Form) error
	// RespondTo answers an interaction with a message.
	RespondTo(ctx context.Context, in model.InteractionRef, msg model.Message, private bool) error
	// FollowUp sends a further message for an interaction that was already
	// answered.
	FollowUp(ctx context.Context, in model.InteractionRef, msg model.Message, private bool) error
}
