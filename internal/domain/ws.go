package domain

const (
	WsMessageChange   = "change"
	WsMessageBlur     = "blur"
	WsMessageSubmit   = "submit"
	WsMessageState    = "state"
	WsMessageNavigate = "navigate"
	WsMessageError    = "error"
)

type WsClientMessage struct {
	Type  string  `json:"type"`
	Field FieldID `json:"field,omitempty"`
	Value string  `json:"value,omitempty"`
}

type WsServerMessage struct {
	Type    string `json:"type"`
	State   any    `json:"state,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}
