// Package reconciler makes sure the public channel carries exactly one
// "how to submit" prompt. It checks what is actually in the channel on every
// start instead of remembering that setup already ran.
package reconciler

import (
	"context"

	"go.uber.org/zap"

	"confessbot/apperr"
	"confessbot/gateway"
	"confessbot/handler"
	"confessbot/model"
)

// Reconciler creates the submission prompt when it is missing.
type Reconciler struct {
	gw    gateway.Gateway
	title string
	log   *zap.Logger
}

// New creates a reconciler. title is both the prompt embed title and, in
// forum channels, the thread name used to recognise an existing prompt.
func New(gw gateway.Gateway, title string, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{gw: gw, title: title, log: log}
}

// EnsurePrompt posts and pins the prompt in channelID unless the bot already
// authored one there. It reports whether a prompt was created.
func (r *Reconciler) EnsurePrompt(ctx context.Context, channelID string) (bool, error) {
	c, err := r.gw.FetchContainer(ctx, channelID)
	if err != nil {
		return false, err
	}

	log := r.log.With(zap.String("channel_id", channelID), zap.Stringer("kind", c.Kind))

	if c.Kind != model.ContainerText && c.Kind != model.ContainerForum {
		return false, apperr.Newf(apperr.Validation, "channel %s must be a forum or text channel, got %s", channelID, c.Kind)
	}

	if existing, ok := r.findPrompt(c); ok {
		log.Info("prompt already present",
			zap.String("message_id", existing.Ref.MessageID),
			zap.Bool("archived", existing.Archived),
		)
		return false, nil
	}

	prompt := handler.PromptMessage(r.title)

	var ref model.MessageRef
	if c.Kind == model.ContainerForum {
		ref, err = r.gw.StartThread(ctx, channelID, r.title, prompt)
	} else {
		ref, err = r.gw.PostMessage(ctx, channelID, prompt)
	}
	if err != nil {
		return false, err
	}

	if err := r.gw.PinMessage(ctx, ref); err != nil {
		// The prompt exists and will be found on the next start.
		log.Warn("failed to pin prompt", zap.String("message_id", ref.MessageID), zap.Error(err))
	}

	log.Info("prompt created", zap.String("message_id", ref.MessageID))
	return true, nil
}

func (r *Reconciler) findPrompt(c *model.Container) (model.Anchor, bool) {
	self := r.gw.SelfID()
	for _, a := range c.Anchors {
		if a.AuthorID == self && a.Title == r.title {
			return a, true
		}
	}
	return model.Anchor{}, false
}
