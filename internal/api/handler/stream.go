package handler

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/edvin/inboxwatch/internal/dispatch"
	"github.com/edvin/inboxwatch/internal/session"
)

type StreamServer interface {
	Serve(ctx context.Context, conn *websocket.Conn, userID string, opts session.Options) error
}

type Stream struct {
	sessions       StreamServer
	originPatterns []string
}

// NewStream creates the stream handler. originPatterns are host patterns
// accepted for cross-origin upgrades.
func NewStream(sessions StreamServer, originPatterns []string) *Stream {
	return &Stream{sessions: sessions, originPatterns: originPatterns}
}

// Connect upgrades to a WebSocket and runs a notification session until the
// client goes away. The query parameters permission and quiet seed the
// client's notification permission and quiet mode.
func (h *Stream) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var opts session.Options
	if p := q.Get("permission"); p != "" {
		opts.Permission = dispatch.ParsePermission(p)
	}
	opts.Quiet = q.Get("quiet") == "1" || q.Get("quiet") == "true"

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		// Accept has already written the failure response.
		return
	}
	defer conn.CloseNow()

	logger := zerolog.Ctx(r.Context())
	if err := h.sessions.Serve(r.Context(), conn, userID, opts); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("notification stream ended with error")
		conn.Close(websocket.StatusInternalError, "stream error")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
