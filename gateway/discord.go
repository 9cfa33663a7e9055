package gateway

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"confessbot/apperr"
	"confessbot/model"
)

const (
	// recentMessages is how far back a text channel is scanned for anchors.
	recentMessages = 50
	// threadArchiveMinutes matches the one day auto archive option.
	threadArchiveMinutes = 1440
	// archivedPageSize and maxArchivedPages bound the scan of archived forum
	// posts.
	archivedPageSize = 100
	maxArchivedPages = 10
)

// Discord implements Gateway over a discordgo session. Every call is bounded
// by the configured timeout.
type Discord struct {
	s       *discordgo.Session
	timeout time.Duration
	log     *zap.Logger
}

// NewDiscord creates a gateway over an open session.
func NewDiscord(s *discordgo.Session, timeout time.Duration, log *zap.Logger) *Discord {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discord{s: s, timeout: timeout, log: log}
}

var _ Gateway = (*Discord)(nil)

// call bounds one platform round trip.
func (d *Discord) call(ctx context.Context) (discordgo.RequestOption, context.CancelFunc) {
	var cancel context.CancelFunc
	if d.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	return discordgo.WithContext(ctx), cancel
}

func fail(op string, err error) error {
	return apperr.Wrap(apperr.Gateway, op, err)
}

func interaction(in model.InteractionRef) *discordgo.Interaction {
	return &discordgo.Interaction{ID: in.ID, AppID: in.AppID, Token: in.Token}
}

func (d *Discord) SelfID() string {
	if d.s.State == nil || d.s.State.User == nil {
		return ""
	}
	return d.s.State.User.ID
}

func (d *Discord) FetchContainer(ctx context.Context, channelID string) (*model.Container, error) {
	opt, cancel := d.call(ctx)
	defer cancel()

	ch, err := d.s.Channel(channelID, opt)
	if err != nil {
		return nil, fail("fetch channel "+channelID, err)
	}

	c := &model.Container{ID: ch.ID, Kind: ContainerKindOf(ch.Type)}
	switch c.Kind {
	case model.ContainerText:
		pinned, err := d.s.ChannelMessagesPinned(channelID, opt)
		if err != nil {
			return nil, fail("fetch pinned messages", err)
		}
		seen := make(map[string]bool, len(pinned))
		for _, m := range pinned {
			seen[m.ID] = true
			c.Anchors = append(c.Anchors, AnchorFromMessage(m, true))
		}

		recent, err := d.s.ChannelMessages(channelID, recentMessages, "", "", "", opt)
		if err != nil {
			return nil, fail("fetch recent messages", err)
		}
		for _, m := range recent {
			if !seen[m.ID] {
				c.Anchors = append(c.Anchors, AnchorFromMessage(m, false))
			}
		}
	case model.ContainerForum:
		active, err := d.s.GuildThreadsActive(ch.GuildID, opt)
		if err != nil {
			return nil, fail("fetch active threads", err)
		}
		for _, th := range active.Threads {
			if th.ParentID == channelID {
				c.Anchors = append(c.Anchors, AnchorFromThread(th))
			}
		}

		// Forum posts archive after a day without activity and drop out of
		// the active list.
		archived, err := d.archivedThreads(channelID, opt)
		if err != nil {
			return nil, err
		}
		c.Anchors = append(c.Anchors, archived...)
	}
	return c, nil
}

func (d *Discord) archivedThreads(channelID string, opt discordgo.RequestOption) ([]model.Anchor, error) {
	var (
		anchors []model.Anchor
		before  *time.Time
	)
	for page := 0; page < maxArchivedPages; page++ {
		list, err := d.s.ThreadsArchived(channelID, before, archivedPageSize, opt)
		if err != nil {
			return nil, fail("fetch archived threads", err)
		}
		for _, th := range list.Threads {
			a := AnchorFromThread(th)
			a.Archived = true
			anchors = append(anchors, a)
		}
		if !list.HasMore || len(list.Threads) == 0 {
			return anchors, nil
		}
		last := list.Threads[len(list.Threads)-1]
		if last.ThreadMetadata == nil {
			return anchors, nil
		}
		ts := last.ThreadMetadata.ArchiveTimestamp
		before = &ts
	}
	d.log.Warn("archived thread scan truncated", zap.String("channel_id", channelID))
	return anchors, nil
}

func (d *Discord) PostMessage(ctx context.Context, channelID string, msg model.Message) (model.MessageRef, error) {
	opt, cancel := d.call(ctx)
	defer cancel()

	m, err := d.s.ChannelMessageSendComplex(channelID, BuildMessageSend(msg), opt)
	if err != nil {
		return model.MessageRef{}, fail("send message to "+channelID, err)
	}
	return model.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}, nil
}

func (d *Discord) EditMessage(ctx context.Context, ref model.MessageRef, msg model.Message) error {
	opt, cancel := d.call(ctx)
	defer cancel()

	if _, err := d.s.ChannelMessageEditComplex(BuildMessageEdit(ref, msg), opt); err != nil {
		return fail("edit message "+ref.MessageID, err)
	}
	return nil
}

func (d *Discord) PinMessage(ctx context.Context, ref model.MessageRef) error {
	opt, cancel := d.call(ctx)
	defer cancel()

	if err := d.s.ChannelMessagePin(ref.ChannelID, ref.MessageID, opt); err != nil {
		return fail("pin message "+ref.MessageID, err)
	}
	return nil
}

// StartThread opens a forum post in forum channels. In text and announcement
// channels it opens a thread and sends msg as its first message.
func (d *Discord) StartThread(ctx context.Context, channelID, name string, msg model.Message) (model.MessageRef, error) {
	opt, cancel := d.call(ctx)
	defer cancel()

	ch, err := d.s.Channel(channelID, opt)
	if err != nil {
		return model.MessageRef{}, fail("fetch channel "+channelID, err)
	}

	switch ContainerKindOf(ch.Type) {
	case model.ContainerForum:
		th, err := d.s.ForumThreadStartComplex(channelID, &discordgo.ThreadStart{
			Name:                name,
			AutoArchiveDuration: threadArchiveMinutes,
		}, BuildMessageSend(msg), opt)
		if err != nil {
			return model.MessageRef{}, fail("start forum post", err)
		}
		return model.MessageRef{ChannelID: th.ID, MessageID: th.ID}, nil

	case model.ContainerText:
		th, err := d.s.ThreadStart(channelID, name, ThreadTypeFor(ch.Type), threadArchiveMinutes, opt)
		if err != nil {
			return model.MessageRef{}, fail("start thread", err)
		}
		m, err := d.s.ChannelMessageSendComplex(th.ID, BuildMessageSend(msg), opt)
		if err != nil {
			d.log.Warn("thread created without its first message", zap.String("thread_id", th.ID))
			return model.MessageRef{}, fail("send first thread message", err)
		}
		return model.MessageRef{ChannelID: th.ID, MessageID: m.ID}, nil
	}

	return model.MessageRef{}, apperr.Newf(apperr.Validation, "channel %s is neither a forum nor a text channel", channelID)
}

func (d *Discord) ShowForm(ctx context.Context, in model.InteractionRef, form model.Form) error {
	opt, cancel := d.call(ctx)
	defer cancel()

	if err := d.s.InteractionRespond(interaction(in), BuildModal(form), opt); err != nil {
		return fail("show form", err)
	}
	return nil
}

func (d *Discord) RespondTo(ctx context.Context, in model.InteractionRef, msg model.Message, private bool) error {
	opt, cancel := d.call(ctx)
	defer cancel()

	if err := d.s.InteractionRespond(interaction(in), BuildResponse(msg, private), opt); err != nil {
		return fail("respond to interaction", err)
	}
	return nil
}

func (d *Discord) FollowUp(ctx context.Context, in model.InteractionRef, msg model.Message, private bool) error {
	opt, cancel := d.call(ctx)
	defer cancel()

	if _, err := d.s.FollowupMessageCreate(interaction(in), true, BuildFollowUp(msg, private), opt); err != nil {
		return fail("send follow-up", err)
	}
	return nil
}
