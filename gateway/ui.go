package gateway

import (
	"github.com/bwmarrin/discordgo"

	"confessbot/model"
	"confessbot/utils"
)

// maxButtonsPerRow is the Discord limit for buttons in one actions row.
const maxButtonsPerRow = 5

var buttonStyles = map[model.ButtonStyle]discordgo.ButtonStyle{
	model.ButtonPrimary:   discordgo.PrimaryButton,
	model.ButtonSecondary: discordgo.SecondaryButton,
	model.ButtonSuccess:   discordgo.SuccessButton,
	model.ButtonDanger:    discordgo.DangerButton,
}

// BuildEmbeds renders embeds.
func BuildEmbeds(embeds []model.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		embed := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.Footer != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if e.ImageURL != "" {
			embed.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
		}
		out = append(out, embed)
	}
	return out
}

// BuildComponents lays buttons out in actions rows.
func BuildComponents(buttons []model.Button) []discordgo.MessageComponent {
	components := []discordgo.MessageComponent{}
	for start := 0; start < len(buttons); start += maxButtonsPerRow {
		end := min(start+maxButtonsPerRow, len(buttons))
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			style, ok := buttonStyles[b.Style]
			if !ok {
				style = discordgo.SecondaryButton
			}
			row.Components = append(row.Components, discordgo.Button{
				Label:    b.Label,
				Style:    style,
				CustomID: b.Token,
			})
		}
		components = append(components, row)
	}
	return components
}

// BuildMessageSend renders a message for posting.
func BuildMessageSend(msg model.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     BuildEmbeds(msg.Embeds),
		Components: BuildComponents(msg.Buttons),
	}
}

// BuildMessageEdit renders a full replacement of a posted message. Buttons
// missing from msg are removed.
func BuildMessageEdit(ref model.MessageRef, msg model.Message) *discordgo.MessageEdit {
	embeds := BuildEmbeds(msg.Embeds)
	components := BuildComponents(msg.Buttons)
	return &discordgo.MessageEdit{
		ID:         ref.MessageID,
		Channel:    ref.ChannelID,
		Content:    utils.StringPtr(msg.Content),
		Embeds:     &embeds,
		Components: &components,
	}
}

// BuildModal renders a form as a modal response.
func BuildModal(form model.Form) *discordgo.InteractionResponse {
	rows := make([]discordgo.MessageComponent, 0, len(form.Fields))
	for _, f := range form.Fields {
		style := discordgo.TextInputShort
		if f.Paragraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    f.ID,
					Label:       f.Label,
					Style:       style,
					Placeholder: f.Placeholder,
					Required:    f.Required,
					MaxLength:   f.MaxLength,
				},
			},
		})
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   form.Token,
			Title:      form.Title,
			Components: rows,
		},
	}
}

// BuildResponse renders a message as an interaction response.
func BuildResponse(msg model.Message, private bool) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		Content:    msg.Content,
		Embeds:     BuildEmbeds(msg.Embeds),
		Components: BuildComponents(msg.Buttons),
	}
	if private {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

// BuildFollowUp renders a message as a follow-up webhook message.
func BuildFollowUp(msg model.Message, private bool) *discordgo.WebhookParams {
	params := &discordgo.WebhookParams{
		Content:    msg.Content,
		Embeds:     BuildEmbeds(msg.Embeds),
		Components: BuildComponents(msg.Buttons),
	}
	if private {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	return params
}

// AnchorFromMessage describes a text channel message as an anchor.
func AnchorFromMessage(m *discordgo.Message, pinned bool) model.Anchor {
	a := model.Anchor{
		Ref:    model.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID},
		Pinned: pinned || m.Pinned,
	}
	if m.Author != nil {
		a.AuthorID = m.Author.ID
	}
	if len(m.Embeds) > 0 && m.Embeds[0] != nil {
		a.Title = m.Embeds[0].Title
	}
	return a
}

// AnchorFromThread describes a forum thread as an anchor. The starter
// message of a forum thread shares the thread id.
func AnchorFromThread(th *discordgo.Channel) model.Anchor {
	return model.Anchor{
		Ref:      model.MessageRef{ChannelID: th.ID, MessageID: th.ID},
		AuthorID: th.OwnerID,
		Title:    th.Name,
	}
}

// ContainerKindOf maps a channel type to the kind of container it is.
func ContainerKindOf(t discordgo.ChannelType) model.ContainerKind {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return model.ContainerText
	case discordgo.ChannelTypeGuildForum:
		return model.ContainerForum
	default:
		return model.ContainerOther
	}
}

// ThreadTypeFor is the thread type a channel of type t accepts.
// Announcement channels only take announcement threads.
func ThreadTypeFor(t discordgo.ChannelType) discordgo.ChannelType {
	if t == discordgo.ChannelTypeGuildNews {
		return discordgo.ChannelTypeGuildNewsThread
	}
	return discordgo.ChannelTypeGuildPublicThread
}
