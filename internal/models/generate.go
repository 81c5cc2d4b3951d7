package models

// ImageUpload is the raw image received in the multipart `image` field.
type ImageUpload struct {
	Data     []byte
	MimeType string
}

// GenerationRequest represents a single image edit submission
type GenerationRequest struct {
	Prompt string
	Image  *ImageUpload
}

// GenerationResult is returned by the generate endpoint.
// Mock and Fallback are never set together.
type GenerationResult struct {
	Images   []string `json:"images" example:"data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAA..."`
	Mock     bool     `json:"mock,omitempty"`
	Fallback bool     `json:"fallback,omitempty"`
}

type ErrorResponse struct {
	Error  string `json:"error" example:"Upstream error"`
	Detail string `json:"detail,omitempty"`
}

// SessionResponse reports a session cookie even when its email cannot be read,
// in which case Authenticated is true and Email is null.
type SessionResponse struct {
	Authenticated bool    `json:"authenticated" example:"true"`
	Email         *string `json:"email" example:"user@example.com"`
}
