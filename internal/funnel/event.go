package funnel

// EventKind tags the closed set of inbound event shapes. Button taps, list
// selections and free text all arrive through the same struct; the transport
// layer normalizes them before they reach the state machine.
type EventKind string

const (
	EventText   EventKind = "text"
	EventButton EventKind = "button"
	EventList   EventKind = "list"
)

// Event is one inbound message, already stripped of transport details.
//
// SelectionID carries the stable option identifier for button/list replies,
// using the conventions emitted by the machine's own prompts:
//
//	city:<slug>           city choice
//	req:<idx>:<yes|no>    requirement answer
//	disc:<idx>:<option>   DISC answer
//	vacancy:<id>          vacancy choice
type Event struct {
	MessageID   string    `json:"messageId"`
	SenderID    string    `json:"senderId"`
	Kind        EventKind `json:"kind"`
	Text        string    `json:"text,omitempty"`
	SelectionID string    `json:"selectionId,omitempty"`
}

// IntentKind tags the outbound intent shapes accepted by the sender
// collaborator.
type IntentKind string

const (
	IntentText       IntentKind = "text"
	IntentOptionList IntentKind = "button-list"
	IntentTemplate   IntentKind = "template"
)

// Option is one selectable entry in a button-list intent.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Intent is an abstract outbound message. The engine never formats or sends
// it; delivery belongs to the transport collaborator.
type Intent struct {
	Recipient   string            `json:"recipient"`
	Kind        IntentKind        `json:"kind"`
	Body        string            `json:"body,omitempty"`
	Options     []Option          `json:"options,omitempty"`
	TemplateKey string            `json:"templateKey,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
}
