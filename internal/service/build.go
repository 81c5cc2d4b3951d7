package service

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// EncodeDataURI wraps raw image bytes into a base64 data URI. Unknown or
// generic MIME types fall back to image/png.
func EncodeDataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", normalizeMimeType(mimeType), base64.StdEncoding.EncodeToString(data))
}

func normalizeMimeType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(mimeType))
	if err != nil || mediaType == "" || mediaType == octetStream {
		return defaultMimeType
	}
	return mediaType
}

// buildPayload serializes the primary request: a system turn and a user turn
// with the prompt text followed by the image as an {url} object.
func (g *GenerateService) buildPayload(prompt, dataURI string) ([]byte, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPromptEdit),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURI,
				}),
			}),
		},
	}

	body, err := params.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}
	return body, nil
}

// stringImageURLPayload derives the schema-fallback body: every image_url part
// of the user turn carries the bare data URI instead of an {url} object. All
// other bytes of body are preserved.
func stringImageURLPayload(body []byte, dataURI string) ([]byte, error) {
	parts := gjson.GetBytes(body, userMessagePath)
	if !parts.IsArray() {
		return nil, fmt.Errorf("user message content is not a part list")
	}

	out := append([]byte(nil), body...)
	for i, part := range parts.Array() {
		if part.Get("type").String() != partTypeImageURL {
			continue
		}

		var err error
		out, err = sjson.SetBytes(out, fmt.Sprintf("%s.%d.%s", userMessagePath, i, partTypeImageURL), dataURI)
		if err != nil {
			return nil, fmt.Errorf("failed to rewrite image part %d: %w", i, err)
		}
	}
	return out, nil
}
