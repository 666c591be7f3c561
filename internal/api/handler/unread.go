package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/inboxwatch/internal/api/response"
	"github.com/edvin/inboxwatch/internal/poller"
)

// UnreadSources supplies the counters behind the one-shot unread endpoint.
// A nil Mailbox or Chat omits that source.
type UnreadSources struct {
	Accounts      poller.AccountLister
	Mailbox       poller.MailboxCounter
	Conversations poller.ConversationLister
	Chat          poller.ChatCounter
}

type Unread struct {
	src     UnreadSources
	timeout time.Duration
}

func NewUnread(src UnreadSources, fetchTimeout time.Duration) *Unread {
	return &Unread{src: src, timeout: fetchTimeout}
}

type unreadSource struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
	Failed []string       `json:"failed,omitempty"`
}

type unreadResponse struct {
	Mail  *unreadSource `json:"mail,omitempty"`
	Chat  *unreadSource `json:"chat,omitempty"`
	Total int           `json:"total"`
}

// Get fetches every visible counter once. Counters that fail are listed
// under failed and left out of the totals.
func (h *Unread) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	logger := zerolog.Ctx(r.Context()).With().Str("user_id", userID).Logger()
	var resp unreadResponse
	if h.src.Mailbox != nil {
		resp.Mail = h.observe(r, poller.NewMailSource(userID, h.src.Accounts, h.src.Mailbox), logger)
		resp.Total += resp.Mail.Total
	}
	if h.src.Chat != nil {
		resp.Chat = h.observe(r, poller.NewChatSource(userID, h.src.Conversations, h.src.Chat), logger)
		resp.Total += resp.Chat.Total
	}

	response.WriteJSON(w, http.StatusOK, resp)
}

func (h *Unread) observe(r *http.Request, src poller.Source, logger zerolog.Logger) *unreadSource {
	targets := src.Targets(r.Context())
	obs := poller.Observe(r.Context(), src, targets, h.timeout, logger)

	out := &unreadSource{Counts: make(map[string]int, len(obs))}
	for _, o := range obs {
		if o.Err != nil {
			out.Failed = append(out.Failed, o.Key)
			continue
		}
		out.Counts[o.Key] = o.Count
		out.Total += o.Count
	}
	return out
}
