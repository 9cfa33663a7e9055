// Package confession implements the submission lifecycle: a confession is
// created pending, and a moderator moves it once to approved or rejected.
// Approval assigns the public sequence label the published post carries.
package confession

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"confessbot/apperr"
	"confessbot/model"
)

// Length limits follow the platform surfaces the content is posted to: the
// title becomes an embed title and part of the thread name, the body is sent
// as plain message content (2000) and a reply is an embed description (4096).
const (
	MaxTitleLength = 256
	MaxBodyLength  = 2000
	MaxReplyLength = 4000
)

// Store is the subset of the record store the lifecycle needs.
type Store interface {
	Create(ctx context.Context, payload model.Payload, submitterID string) (int64, error)
	GetPending(ctx context.Context, id int64) (*model.Submission, error)
	// Approve marks the confession approved and returns its label atomically.
	Approve(ctx context.Context, id int64) (int, error)
	MarkRejected(ctx context.Context, id int64) error
	MarkPublished(ctx context.Context, id int64) error
}

// PublishAction directs the router to post approved content. It carries
// nothing that identifies the submitter.
type PublishAction struct {
	SubmissionID int64
	Label        int
	Payload      model.Payload
}

// Decision is the outcome of a moderation action.
type Decision struct {
	ID      int64
	Verdict model.Verdict
	Payload model.Payload
	// Publish is set for approvals only.
	Publish *PublishAction
}

// ReplyAction directs the router to post an anonymous reply.
type ReplyAction struct {
	SubmissionID int64
	Text         string
	ImageURL     *string
}

// Service drives confessions through their lifecycle.
type Service struct {
	store Store
	log   *zap.Logger
}

// NewService creates a lifecycle service over store.
func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

// Submit validates the payload and stores it as a pending confession.
func (s *Service) Submit(ctx context.Context, payload model.Payload, submitterID string) (int64, error) {
	payload.Title = strings.TrimSpace(payload.Title)
	payload.Body = strings.TrimSpace(payload.Body)
	if payload.ImageURL != nil {
		payload.ImageURL = model.OptionalString(*payload.ImageURL)
	}

	if err := validateText("Title", payload.Title, MaxTitleLength); err != nil {
		return 0, err
	}
	if err := validateText("Description", payload.Body, MaxBodyLength); err != nil {
		return 0, err
	}

	id, err := s.store.Create(ctx, payload, submitterID)
	if err != nil {
		return 0, fmt.Errorf("submit confession: %w", err)
	}

	s.log.Info("confession submitted", zap.Int64("submission_id", id))
	return id, nil
}

// Decide applies a moderator's verdict to a pending confession. A confession
// that is unknown or already decided yields a NotFound error and is left
// untouched.
func (s *Service) Decide(ctx context.Context, id int64, verdict model.Verdict) (*Decision, error) {
	sub, err := s.store.GetPending(ctx, id)
	if err != nil {
		return nil, err
	}

	decision := &Decision{ID: id, Verdict: verdict, Payload: sub.Payload}

	switch verdict {
	case model.Reject:
		if err := s.store.MarkRejected(ctx, id); err != nil {
			return nil, err
		}
	case model.Approve:
		label, err := s.store.Approve(ctx, id)
		if err != nil {
			return nil, err
		}
		decision.Publish = &PublishAction{
			SubmissionID: id,
			Label:        label,
			Payload:      sub.Payload,
		}
	default:
		return nil, fmt.Errorf("unknown verdict %d", verdict)
	}

	s.log.Info("confession decided",
		zap.Int64("submission_id", id),
		zap.Stringer("verdict", verdict),
	)
	return decision, nil
}

// MarkPublished records that the public post for an approved confession
// exists.
func (s *Service) MarkPublished(ctx context.Context, id int64) error {
	if err := s.store.MarkPublished(ctx, id); err != nil {
		return fmt.Errorf("mark confession %d published: %w", id, err)
	}
	return nil
}

// RecordReply validates an anonymous reply to a published confession. It does
// not change the confession.
func (s *Service) RecordReply(id int64, text string, imageRef *string) (*ReplyAction, error) {
	text = strings.TrimSpace(text)
	if err := validateText("Reply", text, MaxReplyLength); err != nil {
		return nil, err
	}
	if imageRef != nil {
		imageRef = model.OptionalString(*imageRef)
	}
	return &ReplyAction{SubmissionID: id, Text: text, ImageURL: imageRef}, nil
}

func validateText(field, value string, max int) error {
	if value == "" {
		return apperr.Newf(apperr.Validation, "%s must not be empty.", field)
	}
	if utf8.RuneCountInString(value) > max {
		return apperr.Newf(apperr.Validation, "%s must be at most %d characters.", field, max)
	}
	return nil
}
