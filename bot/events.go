package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"confessbot/handler"
	"confessbot/model"
)

// EventFromInteraction converts an inbound interaction into a router event.
// Interactions the router does not handle report false.
func EventFromInteraction(i *discordgo.InteractionCreate) (handler.Event, bool) {
	if i == nil || i.Interaction == nil {
		return handler.Event{}, false
	}

	ev := handler.Event{
		ChannelID: i.ChannelID,
		Interaction: model.InteractionRef{
			ID:    i.ID,
			AppID: i.AppID,
			Token: i.Token,
		},
	}

	// 服务器内交互带 Member，私信交互只有 User
	switch {
	case i.Member != nil && i.Member.User != nil:
		ev.UserID = i.Member.User.ID
		ev.Roles = i.Member.Roles
	case i.User != nil:
		ev.UserID = i.User.ID
	}

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		ev.Type = handler.EventButton
		ev.CustomID = i.MessageComponentData().CustomID
		if i.Message != nil {
			ev.Message = model.MessageRef{ChannelID: i.Message.ChannelID, MessageID: i.Message.ID}
		}
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		ev.Type = handler.EventForm
		ev.CustomID = data.CustomID
		ev.Fields = formFields(data.Components)
	case discordgo.InteractionApplicationCommand:
		ev.Type = handler.EventCommand
		ev.Command = i.ApplicationCommandData().Name
	default:
		return handler.Event{}, false
	}
	return ev, true
}

func formFields(components []discordgo.MessageComponent) map[string]string {
	fields := make(map[string]string)
	for _, component := range components {
		var inner []discordgo.MessageComponent
		switch row := component.(type) {
		case *discordgo.ActionsRow:
			inner = row.Components
		case discordgo.ActionsRow:
			inner = row.Components
		}
		for _, comp := range inner {
			switch input := comp.(type) {
			case *discordgo.TextInput:
				fields[input.CustomID] = input.Value
			case discordgo.TextInput:
				fields[input.CustomID] = input.Value
			}
		}
	}
	return fields
}

func registerEventHandlers(ctx context.Context, s *discordgo.Session, b *Bot) {
	s.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		ev, ok := EventFromInteraction(i)
		if !ok {
			return
		}
		b.router.Handle(ctx, ev)
	})
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.onReady(s, r)
	})

	// 设置必要的intents
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuilds
}
