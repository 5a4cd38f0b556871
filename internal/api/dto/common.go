package dto

type SuccessResponse struct {
	Success bool `json:"success"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	EventID  string `json:"event_id,omitempty"`
}
