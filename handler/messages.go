package handler

import (
	"fmt"
	"unicode/utf8"

	"confessbot/confession"
	"confessbot/model"
)

// Form field ids. They match the ids used by earlier versions of the bot.
const (
	FieldTitle      = "confess_title"
	FieldBody       = "confess_description"
	FieldImage      = "confess_image"
	FieldReplyText  = "reply_text"
	FieldReplyImage = "reply_image"
)

// Platform limits for the surfaces confessions are rendered into.
const (
	maxThreadName       = 100
	maxMessageContent   = 2000
	maxEmbedTitle       = 256
	maxEmbedDescription = 4096
)

// PromptMessage builds the pinned "how to submit" prompt.
func PromptMessage(title string) model.Message {
	return model.Message{
		Embeds: []model.Embed{{
			Title:       title,
			Description: "Click the button below to send an anonymous confession.",
			Color:       model.ColorPrompt,
		}},
		Buttons: []model.Button{{
			Label: "Send confession",
			Token: OpenFormToken().String(),
			Style: model.ButtonPrimary,
		}},
	}
}

// ConfessionForm is the form a user fills in to submit a confession.
func ConfessionForm() model.Form {
	return model.Form{
		Token: ConfessFormToken().String(),
		Title: "Send a confession",
		Fields: []model.FormField{
			{ID: FieldTitle, Label: "Title", Required: true, MaxLength: confession.MaxTitleLength},
			{ID: FieldBody, Label: "Description", Paragraph: true, Required: true, MaxLength: confession.MaxBodyLength},
			{ID: FieldImage, Label: "Image URL (optional)", Placeholder: "https://..."},
		},
	}
}

// ReplyForm is the form for an anonymous reply to confession id.
func ReplyForm(id int64) model.Form {
	return model.Form{
		Token: ReplyFormToken(id).String(),
		Title: "Anonymous reply",
		Fields: []model.FormField{
			{ID: FieldReplyText, Label: "Reply", Paragraph: true, Required: true, MaxLength: confession.MaxReplyLength},
			{ID: FieldReplyImage, Label: "Image URL (optional)", Placeholder: "https://..."},
		},
	}
}

func moderationEmbed(id int64, p model.Payload) model.Embed {
	embed := model.Embed{
		Title:       "Pending confession",
		Description: fmt.Sprintf("**Title:** %s\n**Description:** %s", p.Title, p.Body),
		Footer:      fmt.Sprintf("ID: %d", id),
		Color:       model.ColorPending,
	}
	if url, ok := p.Image(); ok {
		embed.ImageURL = url
	}
	return embed
}

// ModerationMessage is the moderation queue item for a pending confession.
// It never mentions the submitter.
func ModerationMessage(id int64, p model.Payload) model.Message {
	return model.Message{
		Embeds: []model.Embed{moderationEmbed(id, p)},
		Buttons: []model.Button{
			{Label: "Approve", Token: ApproveToken(id).String(), Style: model.ButtonSuccess},
			{Label: "Reject", Token: RejectToken(id).String(), Style: model.ButtonDanger},
		},
	}
}

// DecidedMessage is the moderation item after a decision: recolored and
// without buttons, so the action cannot be taken twice from the UI.
func DecidedMessage(d *confession.Decision) model.Message {
	embed := moderationEmbed(d.ID, d.Payload)
	switch {
	case d.Publish != nil:
		embed.Title = fmt.Sprintf("Approved confession #%d", d.Publish.Label)
		embed.Color = model.ColorApproved
	default:
		embed.Title = "Rejected confession"
		embed.Color = model.ColorRejected
	}
	return model.Message{Embeds: []model.Embed{embed}}
}

// ThreadName is the name of the public thread for an approved confession.
func ThreadName(prefix string, label int, title string) string {
	name := fmt.Sprintf("%s #%d: %s", prefix, label, title)
	if utf8.RuneCountInString(name) <= maxThreadName {
		return name
	}
	runes := []rune(name)
	return string(runes[:maxThreadName-1]) + "…"
}

// PublishDirective turns an approval into the public post with its reply
// button.
func PublishDirective(prefix string, a *confession.PublishAction) Publish {
	pub := Publish{
		SubmissionID: a.SubmissionID,
		Label:        a.Label,
		ThreadName:   ThreadName(prefix, a.Label, a.Payload.Title),
		Message: model.Message{
			Content: a.Payload.Body,
			Buttons: []model.Button{{
				Label: "Reply anonymously",
				Token: ReplyToken(a.SubmissionID).String(),
				Style: model.ButtonSecondary,
			}},
		},
	}
	if url, ok := a.Payload.Image(); ok {
		pub.ImageURL = url
	}
	return pub
}

// ImageMessage carries a single image.
func ImageMessage(url string) model.Message {
	return model.Message{Embeds: []model.Embed{{ImageURL: url}}}
}

// ReplyMessage is the public anonymous reply.
func ReplyMessage(r *confession.ReplyAction) model.Message {
	embed := model.Embed{
		Title:       "Anonymous reply",
		Description: r.Text,
		Color:       model.ColorReply,
	}
	if r.ImageURL != nil {
		embed.ImageURL = *r.ImageURL
	}
	return model.Message{Embeds: []model.Embed{embed}}
}

// Text returns a plain text message.
func Text(s string) model.Message {
	return model.Message{Content: s}
}
