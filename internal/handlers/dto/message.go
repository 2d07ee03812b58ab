package dto

// SendMessageRequest carries a new message. Content may be empty when
// media is attached; the ledger rejects both being absent.
type SendMessageRequest struct {
	Content   string `json:"content"`
	MediaURL  string `json:"mediaUrl"`
	MediaType string `json:"mediaType"`
}
