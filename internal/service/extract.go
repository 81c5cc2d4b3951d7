package service

import (
	"strings"

	"github.com/tidwall/gjson"
)

var inlineBase64Keys = []string{"image_base64", "b64_json"}

// extractImages pulls image data URIs out of a chat completion reply.
// Providers disagree on the shape of message content, so this never fails:
// anything it cannot recognize yields no images.
func extractImages(raw []byte) (images []string) {
	defer func() {
		if recover() != nil {
			images = nil
		}
	}()

	if !gjson.ValidBytes(raw) {
		return nil
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	switch {
	case content.IsArray():
		content.ForEach(func(_, part gjson.Result) bool {
			if uri, ok := imageFromPart(part); ok {
				images = append(images, uri)
			}
			return true
		})
	case content.Type == gjson.String:
		if m := embeddedDataURI.FindString(content.Str); m != "" {
			images = append(images, m)
		}
	}
	return images
}

func imageFromPart(part gjson.Result) (string, bool) {
	for _, key := range inlineBase64Keys {
		if b64 := part.Get(key); b64.Type == gjson.String && b64.Str != "" {
			return "data:image/png;base64," + b64.Str, true
		}
	}

	ref := part.Get(partTypeImageURL)
	if ref.IsObject() {
		ref = ref.Get("url")
	}
	if ref.Type == gjson.String && strings.HasPrefix(ref.Str, "data:") {
		return ref.Str, true
	}
	return "", false
}
