package handler

import (
	"context"
	"net/http"

	"github.com/edvin/inboxwatch/internal/api/request"
	"github.com/edvin/inboxwatch/internal/api/response"
	"github.com/edvin/inboxwatch/internal/model"
)

type PushFanOuter interface {
	FanOut(ctx context.Context, req model.PushRequest) (*model.DeliveryReport, error)
}

type Push struct {
	svc PushFanOuter
}

func NewPush(svc PushFanOuter) *Push {
	return &Push{svc: svc}
}

type pushResult struct {
	DevicePlatform string `json:"device_platform"`
	Success        bool   `json:"success"`
}

type pushResponse struct {
	Success bool         `json:"success"`
	ID      string       `json:"id,omitempty"`
	Sent    int          `json:"sent"`
	Total   int          `json:"total"`
	Results []pushResult `json:"results"`
	Message string       `json:"message,omitempty"`
}

// Send delivers a notification to every device of the expanded audience.
// An unconfigured provider is reported in the body, not as an error status.
func (h *Push) Send(w http.ResponseWriter, r *http.Request) {
	var req request.SendPush
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.svc.FanOut(r.Context(), model.PushRequest{
		UserIDs: req.UserIDs,
		Roles:   req.Roles,
		Title:   req.Title,
		Body:    req.Body,
		Data:    req.Data,
	})
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	if report.Disabled {
		response.WriteJSON(w, http.StatusOK, pushResponse{Success: false, Results: []pushResult{}, Message: report.Message})
		return
	}

	results := make([]pushResult, 0, len(report.Results))
	for _, res := range report.Results {
		results = append(results, pushResult{DevicePlatform: res.Device.Platform, Success: res.Success})
	}
	response.WriteJSON(w, http.StatusOK, pushResponse{
		Success: true,
		ID:      report.ID,
		Sent:    report.Sent,
		Total:   report.Total,
		Results: results,
	})
}
