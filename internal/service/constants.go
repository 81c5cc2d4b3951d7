package service

import "regexp"

const (
	completionsPath = "chat/completions"

	defaultMimeType = "image/png"
	octetStream     = "application/octet-stream"

	systemPromptEdit = "You are an image editing assistant. Given a user instruction and a reference image, return the edited image as base64."
)

const (
	partTypeImageURL = "image_url"

	// user turn index inside the serialized payload, after the system turn
	userMessagePath = "messages.1.content"
)

var embeddedDataURI = regexp.MustCompile(`data:image/[A-Za-z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)
