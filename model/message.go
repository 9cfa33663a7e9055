package model

// Platform-neutral values exchanged with the platform gateway. The gateway
// renders them into the concrete client types.

// ButtonStyle mirrors the four interactive button colors.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Color values used on embeds.
const (
	ColorPending  = 0xFFFF00
	ColorApproved = 0x2EA043
	ColorRejected = 0xED4245
	ColorPrompt   = 0x5865F2
	ColorReply    = 0x00BFFF
)

// Button is an interactive element carrying a correlation token.
type Button struct {
	Label string
	Token string
	Style ButtonStyle
}

// Embed is a rich content block.
type Embed struct {
	Title       string
	Description string
	Footer      string
	ImageURL    string
	Color       int
}

// Message is outbound content. A nil Buttons slice on an edit removes all
// interactive elements.
type Message struct {
	Content string
	Embeds  []Embed
	Buttons []Button
}

// FormField is a single text input of a form.
type FormField struct {
	ID          string
	Label       string
	Placeholder string
	Paragraph   bool
	Required    bool
	MaxLength   int
}

// Form is a modal input dialog.
type Form struct {
	Token  string
	Title  string
	Fields []FormField
}

// MessageRef addresses a posted message.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// InteractionRef is the handle needed to answer an inbound interaction.
type InteractionRef struct {
	ID    string
	AppID string
	Token string
}

// ContainerKind is the kind of channel content is posted into.
type ContainerKind int

const (
	ContainerOther ContainerKind = iota
	ContainerText
	ContainerForum
)

func (k ContainerKind) String() string {
	switch k {
	case ContainerText:
		return "text"
	case ContainerForum:
		return "forum"
	default:
		return "other"
	}
}

// Anchor is a pinned or prominent piece of content inside a container: a
// message in text channels, a thread in forums.
type Anchor struct {
	Ref      MessageRef
	AuthorID string
	Title    string
	Pinned   bool
	// Archived is set for forum threads that are no longer active.
	Archived bool
}

// Container is a channel together with its current anchors.
type Container struct {
	ID      string
	Kind    ContainerKind
	Anchors []Anchor
}
