// Package gatewaytest provides an in-memory Gateway that records every call.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"confessbot/apperr"
	"confessbot/gateway"
	"confessbot/model"
)

var _ gateway.Gateway = (*Fake)(nil)

// Method names used as keys for injected failures.
const (
	MethodFetchContainer = "FetchContainer"
	MethodPostMessage    = "PostMessage"
	MethodEditMessage    = "EditMessage"
	MethodPinMessage     = "PinMessage"
	MethodStartThread    = "StartThread"
	MethodShowForm       = "ShowForm"
	MethodRespondTo      = "RespondTo"
	MethodFollowUp       = "FollowUp"
)

// Posted is a message the fake accepted.
type Posted struct {
	Ref     model.MessageRef
	Message model.Message
}

// Thread is a thread the fake opened.
type Thread struct {
	ParentID string
	Name     string
	First    Posted
}

// Response is an interaction answer.
type Response struct {
	Interaction model.InteractionRef
	Message     model.Message
	Private     bool
}

// Form is a form shown to a user.
type Form struct {
	Interaction model.InteractionRef
	Form        model.Form
}

// Fake is a recording gateway. The zero value is not usable; call New.
type Fake struct {
	mu sync.Mutex

	self       string
	seq        int
	containers map[string]*model.Container
	failures   map[string]error

	Posts     []Posted
	Edits     []Posted
	Pins      []model.MessageRef
	Threads   []Thread
	Responses []Response
	FollowUps []Response
	Forms     []Form
}

// New creates a fake that posts as selfID.
func New(selfID string) *Fake {
	return &Fake{
		self:       selfID,
		containers: make(map[string]*model.Container),
		failures:   make(map[string]error),
	}
}

// AddContainer registers a channel of the given kind.
func (f *Fake) AddContainer(id string, kind model.ContainerKind, anchors ...model.Anchor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[id] = &model.Container{ID: id, Kind: kind, Anchors: anchors}
}

// Fail makes every later call of method return err. A nil err clears it.
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, method)
		return
	}
	f.failures[method] = err
}

// Anchors returns the current anchors of a container.
func (f *Fake) Anchors(channelID string) []model.Anchor {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[channelID]
	if !ok {
		return nil
	}
	return append([]model.Anchor(nil), c.Anchors...)
}

// Archive marks the anchor at ref in channelID as archived, the way a forum
// post drops out of the active list after a day without activity.
func (f *Fake) Archive(channelID string, ref model.MessageRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[channelID]
	if !ok {
		return
	}
	for i := range c.Anchors {
		if c.Anchors[i].Ref == ref {
			c.Anchors[i].Archived = true
		}
	}
}

// PostsTo returns the messages posted into channelID.
func (f *Fake) PostsTo(channelID string) []Posted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Posted
	for _, p := range f.Posts {
		if p.Ref.ChannelID == channelID {
			out = append(out, p)
		}
	}
	return out
}

func (f *Fake) failure(method string) error {
	if err, ok := f.failures[method]; ok {
		return apperr.Wrap(apperr.Gateway, method, err)
	}
	return nil
}

func (f *Fake) nextID() string {
	f.seq++
	return fmt.Sprintf("%d", 1000+f.seq)
}

func (f *Fake) SelfID() string { return f.self }

func (f *Fake) FetchContainer(_ context.Context, channelID string) (*model.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(MethodFetchContainer); err != nil {
		return nil, err
	}
	c, ok := f.containers[channelID]
	if !ok {
		return nil, apperr.Newf(apperr.Gateway, "unknown channel %s", channelID)
	}
	out := *c
	out.Anchors = append([]model.Anchor(nil), c.Anchors...)
	return &out, nil
}

func (f *Fake) PostMessage(_ context.Context, channelID string, msg model.Message) (model.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(MethodPostMessage); err != nil {
		return model.MessageRef{}, err
	}
	ref := model.MessageRef{ChannelID: channelID, MessageID: f.nextID()}
	f.Posts = append(f.Posts, Posted{Ref: ref, Message: msg})

	if c, ok := f.containers[channelID]; ok && c.Kind == model.ContainerText {
		c.Anchors = append(c.Anchors, model.Anchor{Ref: ref, AuthorID: f.self, Title: firstTitle(msg)})
	}
	return ref, nil
}

func (f *Fake) EditMessage(_ context.Context, ref model.MessageRef, msg model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(MethodEditMessage); err != nil {
		return err
	}
	f.Edits = append(f.Edits, Posted{Ref: ref, Message: msg})
	return nil
}

func (f *Fake) PinMessage(_ context.Context, ref model.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(MethodPinMessage); err != nil {
		return err
	}
	f.Pins = append(f.Pins, ref)
	if c, ok := f.containers[ref.ChannelID]; ok {
		for i := range c.Anchors {
			if c.Anchors[i].Ref == ref {
				c.Anchors[i].Pinned = true
			}
		}
	}
	return nil
}

func (f *Fake) StartThread(_ context.Context, channelID, name string, msg model.Message) (model.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(MethodStartThread); err != nil {
		return model.MessageRef{}, err
	}
	threadID := f.nextID()
	ref := model.MessageRef{ChannelID: threadID, MessageID: threadID}
	f.Threads = append(f.Threads, Thread{
		ParentID: channelID,
		Name:     name,
		First:    Posted{Ref: ref, Message: msg},
	})

	if c, ok := f.containers[channelID]; ok && c.Kind == model.ContainerForum {
		c.Anchors = append(c.Anchors, model.Anchor{Ref: ref, AuthorID: f.self, Title: name})
	}
	return ref, nil
}

func (f *Fake) ShowForm(_ context.Context, in model.InteractionRef, form model.Form) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(MethodShowForm); err != nil {
		return err
	}
	f.Forms = append(f.Forms, Form{Interaction: in, Form: form})
	return nil
}

func (f *Fake) RespondTo(_ context.Context, in model.InteractionRef, msg model.Message, private bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(MethodRespondTo); err != nil {
		return err
	}
	f.Responses = append(f.Responses, Response{Interaction: in, Message: msg, Private: private})
	return nil
}

func (f *Fake) FollowUp(_ context.Context, in model.InteractionRef, msg model.Message, private bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(MethodFollowUp); err != nil {
		return err
	}
	f.FollowUps = append(f.FollowUps, Response{Interaction: in, Message: msg, Private: private})
	return nil
}

func firstTitle(msg model.Message) string {
	if len(msg.Embeds) == 0 {
		return ""
	}
	return msg.Embeds[0].Title
}
