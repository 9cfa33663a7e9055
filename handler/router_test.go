package handler_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confessbot/apperr"
	"confessbot/confession"
	"confessbot/db"
	"confessbot/gateway/gatewaytest"
	"confessbot/handler"
	"confessbot/model"
)

const (
	modChannel    = "mod-channel"
	publicChannel = "public-channel"
	submitter     = "user-42"
	moderator     = "mod-7"
)

type fixture struct {
	router *handler.Router
	gw     *gatewaytest.Fake
	store  *db.Store
}

func newFixture(t *testing.T, opts ...func(*handler.Options)) *fixture {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "confessions.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gw := gatewaytest.New("bot-1")
	gw.AddContainer(modChannel, model.ContainerText)
	gw.AddContainer(publicChannel, model.ContainerForum)

	o := handler.Options{
		ModerationChannelID: modChannel,
		PublicChannelID:     publicChannel,
		ThreadPrefix:        "Confession",
	}
	for _, fn := range opts {
		fn(&o)
	}

	svc := confession.NewService(store, nil)
	return &fixture{router: handler.NewRouter(svc, gw, o, nil), gw: gw, store: store}
}

func submitEvent(title, body, image string) handler.Event {
	return handler.Event{
		Type:     handler.EventForm,
		CustomID: handler.ConfessFormToken().String(),
		Fields: map[string]string{
			handler.FieldTitle: title,
			handler.FieldBody:  body,
			handler.FieldImage: image,
		},
		UserID:      submitter,
		ChannelID:   publicChannel,
		Interaction: model.InteractionRef{ID: "i-submit", Token: "t-submit"},
	}
}

func buttonEvent(token string, msg model.MessageRef) handler.Event {
	return handler.Event{
		Type:        handler.EventButton,
		CustomID:    token,
		UserID:      moderator,
		ChannelID:   msg.ChannelID,
		Message:     msg,
		Interaction: model.InteractionRef{ID: "i-" + token, Token: "t-" + token},
	}
}

func lastResponse(t *testing.T, gw *gatewaytest.Fake) gatewaytest.Response {
	t.Helper()
	require.NotEmpty(t, gw.Responses)
	return gw.Responses[len(gw.Responses)-1]
}

func TestRouter_OpenFormButton(t *testing.T) {
	f := newFixture(t)

	f.router.Handle(context.Background(), buttonEvent(handler.OpenFormToken().String(), model.MessageRef{}))

	require.Len(t, f.gw.Forms, 1)
	assert.Equal(t, handler.ConfessFormToken().String(), f.gw.Forms[0].Form.Token)
	assert.Empty(t, f.gw.Responses)
}

func TestRouter_LegacyOpenFormToken(t *testing.T) {
	f := newFixture(t)

	f.router.Handle(context.Background(), buttonEvent("open_confess_modal", model.MessageRef{}))

	require.Len(t, f.gw.Forms, 1)
}

func TestRouter_SubmitPostsModerationItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.Handle(ctx, submitEvent("A", "B", ""))

	resp := lastResponse(t, f.gw)
	assert.True(t, resp.Private)
	assert.Contains(t, resp.Message.Content, "waiting for review")

	posts := f.gw.PostsTo(modChannel)
	require.Len(t, posts, 1)
	msg := posts[0].Message
	require.Len(t, msg.Buttons, 2)
	assert.Equal(t, "approve:1", msg.Buttons[0].Token)
	assert.Equal(t, "reject:1", msg.Buttons[1].Token)
	require.Len(t, msg.Embeds, 1)
	assert.Contains(t, msg.Embeds[0].Description, "A")
	assert.Contains(t, msg.Embeds[0].Description, "B")
	assert.NotContains(t, fmt.Sprintf("%+v", msg), submitter)

	sub, err := f.store.GetPending(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.Payload{Title: "A", Body: "B"}, sub.Payload)
}

func TestRouter_SubmitValidationError(t *testing.T) {
	f := newFixture(t)

	f.router.Handle(context.Background(), submitEvent("   ", "B", ""))

	resp := lastResponse(t, f.gw)
	assert.True(t, resp.Private)
	assert.Equal(t, "Title must not be empty.", resp.Message.Content)
	assert.Empty(t, f.gw.Posts)
}

func TestRouter_ApprovePublishesWithoutSubmitter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.Handle(ctx, submitEvent("A", "B", ""))
	modRef := f.gw.PostsTo(modChannel)[0].Ref

	directives, err := f.router.Route(ctx, buttonEvent("approve:1", modRef))
	require.NoError(t, err)
	assert.NotContains(t, fmt.Sprintf("%+v", directives), submitter)

	var pub *handler.Publish
	for _, d := range directives {
		if p, ok := d.(handler.Publish); ok {
			pub = &p
		}
	}
	require.NotNil(t, pub)
	assert.Equal(t, 1, pub.Label)
	assert.Equal(t, "Confession #1: A", pub.ThreadName)
	assert.Equal(t, "B", pub.Message.Content)
	require.Len(t, pub.Message.Buttons, 1)
	assert.Equal(t, "reply:1", pub.Message.Buttons[0].Token)
}

func TestRouter_ApproveAppliesDirectives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.Handle(ctx, submitEvent("A", "B", "https://example.com/cat.png"))
	modRef := f.gw.PostsTo(modChannel)[0].Ref

	f.router.Handle(ctx, buttonEvent("approve:1", modRef))

	resp := lastResponse(t, f.gw)
	assert.Equal(t, "Approved as confession #1.", resp.Message.Content)

	require.Len(t, f.gw.Edits, 1)
	assert.Equal(t, modRef, f.gw.Edits[0].Ref)
	assert.Empty(t, f.gw.Edits[0].Message.Buttons)
	assert.Equal(t, model.ColorApproved, f.gw.Edits[0].Message.Embeds[0].Color)

	require.Len(t, f.gw.Threads, 1)
	thread := f.gw.Threads[0]
	assert.Equal(t, publicChannel, thread.ParentID)
	assert.Equal(t, "Confession #1: A", thread.Name)

	images := f.gw.PostsTo(thread.First.Ref.ChannelID)
	require.Len(t, images, 1)
	assert.Equal(t, "https://example.com/cat.png", images[0].Message.Embeds[0].ImageURL)

	assert.Empty(t, f.gw.FollowUps)
}

func TestRouter_RejectThenApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.Handle(ctx, submitEvent("A", "B", ""))
	modRef := f.gw.PostsTo(modChannel)[0].Ref

	f.router.Handle(ctx, buttonEvent("reject:1", modRef))
	assert.Equal(t, "Confession rejected.", lastResponse(t, f.gw).Message.Content)
	require.Len(t, f.gw.Edits, 1)
	assert.Equal(t, model.ColorRejected, f.gw.Edits[0].Message.Embeds[0].Color)

	f.router.Handle(ctx, buttonEvent("approve:1", modRef))
	resp := lastResponse(t, f.gw)
	assert.True(t, resp.Private)
	assert.Equal(t, apperr.UserMessage(apperr.New(apperr.NotFound, "")), resp.Message.Content)
	assert.Empty(t, f.gw.Threads)
	assert.Len(t, f.gw.Edits, 1)
}

func TestRouter_LabelsFollowApprovalOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.router.Handle(ctx, submitEvent(fmt.Sprintf("T%d", i+1), "B", ""))
	}
	f.router.Handle(ctx, buttonEvent("approve:3", model.MessageRef{}))
	f.router.Handle(ctx, buttonEvent("reject:2", model.MessageRef{}))
	f.router.Handle(ctx, buttonEvent("approve:1", model.MessageRef{}))

	require.Len(t, f.gw.Threads, 2)
	assert.Equal(t, "Confession #1: T3", f.gw.Threads[0].Name)
	assert.Equal(t, "Confession #2: T1", f.gw.Threads[1].Name)
}

func TestRouter_MalformedTokens(t *testing.T) {
	cases := []string{"foo:bar", "approve:notanumber", "approve:", "approve:0", "approve:-1", "open-form:1", ""}
	for _, token := range cases {
		t.Run(token, func(t *testing.T) {
			f := newFixture(t)
			f.router.Handle(context.Background(), buttonEvent(token, model.MessageRef{}))

			resp := lastResponse(t, f.gw)
			assert.True(t, resp.Private)
			assert.Equal(t, "Could not process this action.", resp.Message.Content)
			assert.Empty(t, f.gw.Posts)
			assert.Empty(t, f.gw.Threads)
		})
	}
}

func TestRouter_TokenOnWrongSurface(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.router.Route(ctx, buttonEvent(handler.ConfessFormToken().String(), model.MessageRef{}))
	assert.True(t, apperr.Is(err, apperr.Routing), "got %v", err)

	ev := submitEvent("A", "B", "")
	ev.CustomID = "approve:1"
	_, err = f.router.Route(ctx, ev)
	assert.True(t, apperr.Is(err, apperr.Routing), "got %v", err)
}

func TestRouter_UnknownSubmission(t *testing.T) {
	f := newFixture(t)

	f.router.Handle(context.Background(), buttonEvent("approve:99", model.MessageRef{}))

	resp := lastResponse(t, f.gw)
	assert.Contains(t, resp.Message.Content, "not found")
	assert.Empty(t, f.gw.Threads)
}

func TestRouter_ModeratorCheck(t *testing.T) {
	f := newFixture(t, func(o *handler.Options) {
		o.CanModerate = func(userID string, _ []string) bool { return userID == "boss" }
	})
	ctx := context.Background()

	f.router.Handle(ctx, submitEvent("A", "B", ""))
	f.router.Handle(ctx, buttonEvent("approve:1", model.MessageRef{}))

	resp := lastResponse(t, f.gw)
	assert.Equal(t, "You are not allowed to moderate confessions.", resp.Message.Content)
	assert.Empty(t, f.gw.Threads)

	ev := buttonEvent("approve:1", model.MessageRef{})
	ev.UserID = "boss"
	f.router.Handle(ctx, ev)
	require.Len(t, f.gw.Threads, 1)
}

func TestRouter_ReplyFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.Handle(ctx, buttonEvent("reply:5", model.MessageRef{ChannelID: "thread-5"}))
	require.Len(t, f.gw.Forms, 1)
	assert.Equal(t, "reply-form:5", f.gw.Forms[0].Form.Token)

	f.router.Handle(ctx, handler.Event{
		Type:      handler.EventForm,
		CustomID:  "reply_modal:5",
		Fields:    map[string]string{handler.FieldReplyText: " hi ", handler.FieldReplyImage: ""},
		UserID:    "user-9",
		ChannelID: "thread-5",
	})

	assert.Equal(t, "Your anonymous reply was posted.", lastResponse(t, f.gw).Message.Content)
	posts := f.gw.PostsTo("thread-5")
	require.Len(t, posts, 1)
	assert.Equal(t, "hi", posts[0].Message.Embeds[0].Description)
	assert.Empty(t, posts[0].Message.Embeds[0].ImageURL)
	assert.NotContains(t, fmt.Sprintf("%+v", posts[0]), "user-9")
}

func TestRouter_PublishFailureReportedAsFollowUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.Handle(ctx, submitEvent("A", "B", ""))
	modRef := f.gw.PostsTo(modChannel)[0].Ref
	f.gw.Fail(gatewaytest.MethodStartThread, errors.New("timeout"))

	f.router.Handle(ctx, buttonEvent("approve:1", modRef))

	assert.Equal(t, "Approved as confession #1.", lastResponse(t, f.gw).Message.Content)
	require.Len(t, f.gw.Edits, 1, "later directives still run")
	require.Len(t, f.gw.FollowUps, 1)
	assert.Equal(t, apperr.GenericFailure, f.gw.FollowUps[0].Message.Content)

	sub, err := f.store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, sub.Status)

	unpublished, err := f.store.ListUnpublished(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, unpublished)
}

func TestRouter_ApproveMarksPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.Handle(ctx, submitEvent("A", "B", ""))
	f.router.Handle(ctx, submitEvent("C", "D", ""))
	posts := f.gw.PostsTo(modChannel)
	require.Len(t, posts, 2)

	f.router.Handle(ctx, buttonEvent("approve:1", posts[0].Ref))
	f.gw.Fail(gatewaytest.MethodStartThread, errors.New("timeout"))
	f.router.Handle(ctx, buttonEvent("approve:2", posts[1].Ref))

	require.Len(t, f.gw.Threads, 1)
	unpublished, err := f.store.ListUnpublished(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, unpublished)
}

func TestRouter_ModerationPostFailureKeepsSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.Fail(gatewaytest.MethodPostMessage, errors.New("boom"))

	f.router.Handle(ctx, submitEvent("A", "B", ""))

	require.Len(t, f.gw.FollowUps, 1)
	_, err := f.store.GetPending(ctx, 1)
	assert.NoError(t, err)
}

func TestRouter_FailedAcknowledgementFallsBackToResponse(t *testing.T) {
	f := newFixture(t)
	f.gw.Fail(gatewaytest.MethodShowForm, errors.New("expired"))

	f.router.Handle(context.Background(), buttonEvent(handler.OpenFormToken().String(), model.MessageRef{}))

	resp := lastResponse(t, f.gw)
	assert.Equal(t, apperr.GenericFailure, resp.Message.Content)
	assert.Empty(t, f.gw.FollowUps)
}

func TestRouter_Commands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.AddCommand("ping", func(context.Context, handler.Event) ([]handler.Directive, error) {
		return []handler.Directive{handler.Respond{Message: handler.Text("Pong!")}}, nil
	})

	f.router.Handle(ctx, handler.Event{Type: handler.EventCommand, Command: "ping"})
	assert.Equal(t, "Pong!", lastResponse(t, f.gw).Message.Content)

	_, err := f.router.Route(ctx, handler.Event{Type: handler.EventCommand, Command: "nope"})
	assert.True(t, apperr.Is(err, apperr.Routing))
}

func TestThreadName_Truncates(t *testing.T) {
	name := handler.ThreadName("Confession", 12, strings.Repeat("x", 200))
	assert.Equal(t, 100, len([]rune(name)))
	assert.True(t, strings.HasSuffix(name, "…"))

	assert.Equal(t, "Confession #3: short", handler.ThreadName("Confession", 3, "short"))
}
