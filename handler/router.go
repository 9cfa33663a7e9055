package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"confessbot/apperr"
	"confessbot/confession"
	"confessbot/gateway"
	"confessbot/model"
)

// Lifecycle is the submission lifecycle the router drives.
type Lifecycle interface {
	Submit(ctx context.Context, payload model.Payload, submitterID string) (int64, error)
	Decide(ctx context.Context, id int64, verdict model.Verdict) (*confession.Decision, error)
	RecordReply(id int64, text string, imageRef *string) (*confession.ReplyAction, error)
	MarkPublished(ctx context.Context, id int64) error
}

// CommandHandler handles a slash command.
type CommandHandler func(ctx context.Context, ev Event) ([]Directive, error)

// Options configures where the router posts.
type Options struct {
	ModerationChannelID string
	PublicChannelID     string
	ThreadPrefix        string
	// CanModerate restricts approve/reject. Nil allows everyone who can see
	// the moderation surface.
	CanModerate func(userID string, roles []string) bool
}

// Router classifies interactions, drives the lifecycle and applies the
// resulting directives through the gateway.
type Router struct {
	lifecycle Lifecycle
	gateway   gateway.Gateway
	opts      Options
	log       *zap.Logger
	commands  map[string]CommandHandler
}

// NewRouter creates a router.
func NewRouter(lc Lifecycle, gw gateway.Gateway, opts Options, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		lifecycle: lc,
		gateway:   gw,
		opts:      opts,
		log:       log,
		commands:  make(map[string]CommandHandler),
	}
}

// AddCommand registers a handler for a slash command.
func (r *Router) AddCommand(name string, h CommandHandler) {
	r.commands[name] = h
}

// Route decides what an event leads to. Errors are returned unchanged;
// Handle turns them into user-facing responses.
func (r *Router) Route(ctx context.Context, ev Event) ([]Directive, error) {
	if ev.Type == EventCommand {
		h, ok := r.commands[ev.Command]
		if !ok {
			return nil, apperr.Newf(apperr.Routing, "unknown command %q", ev.Command)
		}
		return h(ctx, ev)
	}

	tok, err := ParseToken(ev.CustomID)
	if err != nil {
		return nil, err
	}

	switch ev.Type {
	case EventButton:
		if tok.Kind.IsForm() {
			return nil, apperr.Newf(apperr.Routing, "form token %q on a button", ev.CustomID)
		}
	case EventForm:
		if !tok.Kind.IsForm() {
			return nil, apperr.Newf(apperr.Routing, "button token %q on a form", ev.CustomID)
		}
	default:
		return nil, apperr.Newf(apperr.Routing, "unsupported event type %s", ev.Type)
	}

	switch tok.Kind {
	case KindOpenForm:
		return []Directive{ShowForm{Form: ConfessionForm()}}, nil
	case KindConfessForm:
		return r.submit(ctx, ev)
	case KindApprove:
		return r.decide(ctx, ev, tok.ID, model.Approve)
	case KindReject:
		return r.decide(ctx, ev, tok.ID, model.Reject)
	case KindReply:
		return []Directive{ShowForm{Form: ReplyForm(tok.ID)}}, nil
	case KindReplyForm:
		return r.reply(ev, tok.ID)
	}
	return nil, apperr.Newf(apperr.Routing, "unhandled token kind %q", tok.Kind)
}

func (r *Router) submit(ctx context.Context, ev Event) ([]Directive, error) {
	payload := model.Payload{
		Title:    strings.TrimSpace(ev.Field(FieldTitle)),
		Body:     strings.TrimSpace(ev.Field(FieldBody)),
		ImageURL: model.OptionalString(ev.Field(FieldImage)),
	}

	id, err := r.lifecycle.Submit(ctx, payload, ev.UserID)
	if err != nil {
		return nil, err
	}

	return []Directive{
		Respond{Message: Text("Your confession was sent and is waiting for review."), Private: true},
		PostModeration{SubmissionID: id, Message: ModerationMessage(id, payload)},
	}, nil
}

func (r *Router) decide(ctx context.Context, ev Event, id int64, verdict model.Verdict) ([]Directive, error) {
	if r.opts.CanModerate != nil && !r.opts.CanModerate(ev.UserID, ev.Roles) {
		return nil, apperr.Newf(apperr.Forbidden, "user may not %s confession %d", verdict, id)
	}

	d, err := r.lifecycle.Decide(ctx, id, verdict)
	if err != nil {
		return nil, err
	}

	var directives []Directive
	if d.Publish != nil {
		directives = append(directives,
			Respond{Message: Text(fmt.Sprintf("Approved as confession #%d.", d.Publish.Label)), Private: true},
		)
	} else {
		directives = append(directives, Respond{Message: Text("Confession rejected."), Private: true})
	}

	if ev.Message.MessageID != "" {
		directives = append(directives, UpdateModeration{Ref: ev.Message, Message: DecidedMessage(d)})
	}
	if d.Publish != nil {
		directives = append(directives, PublishDirective(r.opts.ThreadPrefix, d.Publish))
	}
	return directives, nil
}

func (r *Router) reply(ev Event, id int64) ([]Directive, error) {
	action, err := r.lifecycle.RecordReply(id, ev.Field(FieldReplyText), model.OptionalString(ev.Field(FieldReplyImage)))
	if err != nil {
		return nil, err
	}
	return []Directive{
		Respond{Message: Text("Your anonymous reply was posted."), Private: true},
		PostReply{ChannelID: ev.ChannelID, Message: ReplyMessage(action)},
	}, nil
}

// Handle routes an event and applies the outcome. It never panics on bad
// input: routing, validation and not-found errors become private messages,
// infrastructure errors are logged and reported as a generic failure.
func (r *Router) Handle(ctx context.Context, ev Event) {
	log := r.log.With(
		zap.String("request_id", uuid.NewString()),
		zap.Stringer("event", ev.Type),
		zap.String("token", ev.CustomID),
	)
	if ev.Command != "" {
		log = log.With(zap.String("command", ev.Command))
	}

	directives, err := r.Route(ctx, ev)
	if err != nil {
		if apperr.Recoverable(err) {
			log.Info("interaction refused", zap.Error(err))
		} else {
			log.Error("interaction failed", zap.Error(err))
		}
		if rerr := r.gateway.RespondTo(ctx, ev.Interaction, Text(apperr.UserMessage(err)), true); rerr != nil {
			log.Error("failed to report error to user", zap.Error(rerr))
		}
		return
	}

	r.apply(ctx, ev, directives, log)
}

// apply executes directives in order. A failed directive does not stop the
// rest; once everything ran, the user is told that something went wrong.
func (r *Router) apply(ctx context.Context, ev Event, directives []Directive, log *zap.Logger) {
	var answered, failed bool

	for _, d := range directives {
		var err error
		switch d := d.(type) {
		case Respond:
			if err = r.gateway.RespondTo(ctx, ev.Interaction, d.Message, d.Private); err == nil {
				answered = true
			}
		case ShowForm:
			if err = r.gateway.ShowForm(ctx, ev.Interaction, d.Form); err == nil {
				answered = true
			}
		case PostModeration:
			_, err = r.gateway.PostMessage(ctx, r.opts.ModerationChannelID, d.Message)
			if err != nil {
				log = log.With(zap.Int64("submission_id", d.SubmissionID))
			}
		case UpdateModeration:
			err = r.gateway.EditMessage(ctx, d.Ref, d.Message)
		case Publish:
			err = r.publish(ctx, d, log)
		case PostReply:
			_, err = r.gateway.PostMessage(ctx, d.ChannelID, d.Message)
		default:
			err = fmt.Errorf("unhandled directive %T", d)
		}

		if err != nil {
			failed = true
			log.Error("directive failed", zap.String("directive", fmt.Sprintf("%T", d)), zap.Error(err))
		}
	}

	if !failed {
		return
	}

	notice := Text(apperr.GenericFailure)
	var err error
	if answered {
		err = r.gateway.FollowUp(ctx, ev.Interaction, notice, true)
	} else {
		err = r.gateway.RespondTo(ctx, ev.Interaction, notice, true)
	}
	if err != nil {
		log.Error("failed to report failure to user", zap.Error(err))
	}
}

// publish posts an approved confession. The row stays unpublished when the
// thread cannot be started so it shows up in the startup report.
func (r *Router) publish(ctx context.Context, p Publish, log *zap.Logger) error {
	log = log.With(zap.Int64("submission_id", p.SubmissionID), zap.Int("label", p.Label))

	ref, err := r.gateway.StartThread(ctx, r.opts.PublicChannelID, p.ThreadName, p.Message)
	if err != nil {
		log.Error("approved confession not published", zap.Error(err))
		return fmt.Errorf("start thread for confession %d: %w", p.SubmissionID, err)
	}
	if err := r.lifecycle.MarkPublished(ctx, p.SubmissionID); err != nil {
		log.Error("failed to mark confession published", zap.String("thread_id", ref.ChannelID), zap.Error(err))
	}
	if p.ImageURL == "" {
		return nil
	}
	if _, err := r.gateway.PostMessage(ctx, ref.ChannelID, ImageMessage(p.ImageURL)); err != nil {
		return fmt.Errorf("post image for confession %d: %w", p.SubmissionID, err)
	}
	return nil
}
