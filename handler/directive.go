package handler

import "confessbot/model"

// Directive is a platform action the router decided on. The set is closed:
// Handle switches over every implementation.
type Directive interface {
	directive()
}

// Respond answers the interaction itself.
type Respond struct {
	Message model.Message
	Private bool
}

// ShowForm answers the interaction with a form.
type ShowForm struct {
	Form model.Form
}

// PostModeration posts a new item to the moderation surface.
type PostModeration struct {
	SubmissionID int64
	Message      model.Message
}

// UpdateModeration replaces a moderation item once it has been decided.
type UpdateModeration struct {
	Ref     model.MessageRef
	Message model.Message
}

// Publish posts an approved confession to the public container in its own
// thread. It holds no submitter data.
type Publish struct {
	SubmissionID int64
	Label        int
	ThreadName   string
	Message      model.Message
	// ImageURL is sent into the thread after the first message when set.
	ImageURL string
}

// PostReply posts an anonymous reply into the channel the reply came from.
type PostReply struct {
	ChannelID string
	Message   model.Message
}

func (Respond) directive()          {}
func (ShowForm) directive()         {}
func (PostModeration) directive()   {}
func (UpdateModeration) directive() {}
func (Publish) directive()          {}
func (PostReply) directive()        {}
