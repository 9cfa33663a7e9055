package handler

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confessbot/confession"
	"confessbot/model"
)

func longestPayload() model.Payload {
	return model.Payload{
		Title:    strings.Repeat("t", confession.MaxTitleLength),
		Body:     strings.Repeat("b", confession.MaxBodyLength),
		ImageURL: model.OptionalString("https://example.com/cat.png"),
	}
}

func TestModerationMessage_LongestConfessionFits(t *testing.T) {
	msg := ModerationMessage(9_999_999, longestPayload())

	require.Len(t, msg.Embeds, 1)
	embed := msg.Embeds[0]
	assert.LessOrEqual(t, utf8.RuneCountInString(embed.Title), maxEmbedTitle)
	assert.LessOrEqual(t, utf8.RuneCountInString(embed.Description), maxEmbedDescription)
}

func TestDecidedMessage_LongestConfessionFits(t *testing.T) {
	p := longestPayload()
	d := &confession.Decision{
		ID:      1,
		Verdict: model.Approve,
		Payload: p,
		Publish: &confession.PublishAction{SubmissionID: 1, Label: 123456, Payload: p},
	}

	embed := DecidedMessage(d).Embeds[0]
	assert.LessOrEqual(t, utf8.RuneCountInString(embed.Title), maxEmbedTitle)
	assert.LessOrEqual(t, utf8.RuneCountInString(embed.Description), maxEmbedDescription)
}

func TestPublishDirective_LongestConfessionFits(t *testing.T) {
	pub := PublishDirective("Confession", &confession.PublishAction{
		SubmissionID: 1,
		Label:        123456,
		Payload:      longestPayload(),
	})

	assert.LessOrEqual(t, utf8.RuneCountInString(pub.Message.Content), maxMessageContent)
	assert.LessOrEqual(t, utf8.RuneCountInString(pub.ThreadName), maxThreadName)
}

func TestReplyMessage_LongestReplyFits(t *testing.T) {
	msg := ReplyMessage(&confession.ReplyAction{Text: strings.Repeat("r", confession.MaxReplyLength)})
	assert.LessOrEqual(t, utf8.RuneCountInString(msg.Embeds[0].Description), maxEmbedDescription)
}

func TestConfessionForm_MatchesValidationLimits(t *testing.T) {
	limits := map[string]int{}
	for _, f := range ConfessionForm().Fields {
		limits[f.ID] = f.MaxLength
	}
	assert.Equal(t, confession.MaxTitleLength, limits[FieldTitle])
	assert.Equal(t, confession.MaxBodyLength, limits[FieldBody])
}
