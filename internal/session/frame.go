package session

// Server to client frame types.
const (
	FrameUnread            = "unread"
	FrameToast             = "toast"
	FrameSound             = "sound"
	FrameNotification      = "notification"
	FrameRequestPermission = "request_permission"
)

// Client to server frame types.
const (
	FramePermission = "permission"
	FrameQuiet      = "quiet"
)

// Frame is a server to client message on the stream.
type Frame struct {
	Type    string         `json:"type"`
	Source  string         `json:"source,omitempty"`
	Counts  map[string]int `json:"counts,omitempty"`
	Total   *int           `json:"total,omitempty"`
	Key     string         `json:"key,omitempty"`
	Title   string         `json:"title,omitempty"`
	Message string         `json:"message,omitempty"`
}

// ClientFrame is a client to server message on the stream.
type ClientFrame struct {
	Type    string `json:"type"`
	State   string `json:"state,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
}
