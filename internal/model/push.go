package model

// PushRequest is the immutable input to one fan-out invocation.
type PushRequest struct {
	UserIDs []string          `json:"user_ids,omitempty"`
	Roles   []string          `json:"roles,omitempty"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Data    map[string]string `json:"data,omitempty"`
}

// PushPayload is what the provider delivers to a single device.
type PushPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// DeliveryResult is the outcome of one delivery attempt.
type DeliveryResult struct {
	Device           Device `json:"-"`
	Success          bool   `json:"success"`
	PermanentFailure bool   `json:"permanent_failure"`
	Error            string `json:"error,omitempty"`
}

// DeliveryReport aggregates one fan-out invocation.
type DeliveryReport struct {
	ID       string           `json:"id"`
	Sent     int              `json:"sent"`
	Total    int              `json:"total"`
	Results  []DeliveryResult `json:"results"`
	Disabled bool             `json:"disabled,omitempty"`
	Message  string           `json:"message,omitempty"`
}
