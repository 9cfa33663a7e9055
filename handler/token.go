package handler

import (
	"strconv"
	"strings"

	"confessbot/apperr"
)

// Kind is the action part of a correlation token.
type Kind string

const (
	KindOpenForm    Kind = "open-form"
	KindConfessForm Kind = "confess-form"
	KindApprove     Kind = "approve"
	KindReject      Kind = "reject"
	KindReply       Kind = "reply"
	KindReplyForm   Kind = "reply-form"
)

// maxTokenLength is the platform limit for custom ids.
const maxTokenLength = 100

// legacyKinds maps custom ids posted by earlier versions of the bot, so
// prompts and published confessions that are already live keep working.
var legacyKinds = map[string]Kind{
	"open_confess_modal": KindOpenForm,
	"confess_modal":      KindConfessForm,
	"reply_modal":        KindReplyForm,
}

// HasID reports whether tokens of this kind carry a submission id.
func (k Kind) HasID() bool {
	switch k {
	case KindApprove, KindReject, KindReply, KindReplyForm:
		return true
	}
	return false
}

// IsForm reports whether the kind is carried by form submissions rather than
// buttons.
func (k Kind) IsForm() bool {
	return k == KindConfessForm || k == KindReplyForm
}

func (k Kind) valid() bool {
	switch k {
	case KindOpenForm, KindConfessForm, KindApprove, KindReject, KindReply, KindReplyForm:
		return true
	}
	return false
}

// Token is a parsed correlation token: "kind" or "kind:id".
type Token struct {
	Kind Kind
	ID   int64
}

// String renders the token in its wire format.
func (t Token) String() string {
	if !t.Kind.HasID() {
		return string(t.Kind)
	}
	return string(t.Kind) + ":" + strconv.FormatInt(t.ID, 10)
}

func OpenFormToken() Token          { return Token{Kind: KindOpenForm} }
func ConfessFormToken() Token       { return Token{Kind: KindConfessForm} }
func ApproveToken(id int64) Token   { return Token{Kind: KindApprove, ID: id} }
func RejectToken(id int64) Token    { return Token{Kind: KindReject, ID: id} }
func ReplyToken(id int64) Token     { return Token{Kind: KindReply, ID: id} }
func ReplyFormToken(id int64) Token { return Token{Kind: KindReplyForm, ID: id} }

// ParseToken parses a custom id. Anything outside the closed vocabulary is a
// Routing error.
func ParseToken(s string) (Token, error) {
	if s == "" || len(s) > maxTokenLength {
		return Token{}, apperr.Newf(apperr.Routing, "token length %d out of range", len(s))
	}

	head, rest, hasID := strings.Cut(s, ":")
	kind := Kind(head)
	if legacy, ok := legacyKinds[head]; ok {
		kind = legacy
	}
	if !kind.valid() {
		return Token{}, apperr.Newf(apperr.Routing, "unknown token kind %q", head)
	}

	if !kind.HasID() {
		if hasID {
			return Token{}, apperr.Newf(apperr.Routing, "token %q takes no id", s)
		}
		return Token{Kind: kind}, nil
	}

	if !hasID {
		return Token{}, apperr.Newf(apperr.Routing, "token %q is missing its id", s)
	}
	id, err := parseID(rest)
	if err != nil {
		return Token{}, apperr.Wrap(apperr.Routing, "token "+strconv.Quote(s)+" has a malformed id", err)
	}
	return Token{Kind: kind, ID: id}, nil
}

// parseID accepts only plain ASCII decimal digits, so "+1", " 1" and "0x1"
// are rejected even where strconv would take them.
func parseID(s string) (int64, error) {
	if s == "" {
		return 0, apperr.New(apperr.Routing, "empty id")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, apperr.Newf(apperr.Routing, "non-digit %q in id", s[i])
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, apperr.New(apperr.Routing, "id must be positive")
	}
	return id, nil
}
