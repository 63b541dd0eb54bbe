package server

// Message types exchanged over the websocket.
const (
	TypeFrame  = "frame"  // server → preview: compiled deck
	TypeGoto   = "goto"   // server → preview: show page
	TypeCursor = "cursor" // server → editor: move caret; editor → server: caret moved
	TypePage   = "page"   // preview → server: page clicked
	TypeText   = "text"   // editor → server: document text changed
)

// Message is the JSON envelope of every websocket message. Only the fields
// of its Type are set.
type Message struct {
	Type       string `json:"type"`
	Page       int    `json:"page"`
	Offset     int    `json:"offset"`
	Text       string `json:"text,omitempty"`
	Markup     string `json:"markup,omitempty"`
	Stylesheet string `json:"stylesheet,omitempty"`
	Title      string `json:"title,omitempty"`
	Seq        uint64 `json:"seq,omitempty"`
}
