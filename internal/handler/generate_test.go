package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/kdduha/image-edit/internal/config"
	"github.com/kdduha/image-edit/internal/models"
	"github.com/kdduha/image-edit/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG
var onePixelPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

type fakeGenerateService struct {
	calls  int
	last   *models.GenerationRequest
	result *models.GenerationResult
	err    error
	panic  any
}

func (f *fakeGenerateService) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	f.calls++
	f.last = req
	if f.panic != nil {
		panic(f.panic)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return f.result, f.err
}

type formFile struct {
	data        []byte
	contentType string
}

func multipartRequest(t *testing.T, fields map[string]string, image *formFile) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="input.png"`)
		if image.contentType != "" {
			h.Set("Content-Type", image.contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(image.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestGenerateHandler_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		image  *formFile
		field  string
	}{
		{name: "no prompt", image: &formFile{data: onePixelPNG}, field: "prompt"},
		{name: "empty prompt", fields: map[string]string{"prompt": ""}, image: &formFile{data: onePixelPNG}, field: "prompt"},
		{name: "no image", fields: map[string]string{"prompt": "add a hat"}, field: "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeGenerateService{}
			h := NewGenerateHandler(svc, 1<<20)

			rec := httptest.NewRecorder()
			h.Generate(rec, multipartRequest(t, tt.fields, tt.image))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeBody(t, rec)
			assert.Equal(t, "Missing "+tt.field, body["error"])
			assert.Equal(t, tt.field, body["detail"])
		})
	}
}

func TestGenerateHandler_PassesUpload(t *testing.T) {
	svc := &fakeGenerateService{result: &models.GenerationResult{Images: []string{"data:image/png;base64,QUJD"}}}
	h := NewGenerateHandler(svc, 1<<20)

	rec := httptest.NewRecorder()
	h.Generate(rec, multipartRequest(t,
		map[string]string{"prompt": "make it snow"},
		&formFile{data: onePixelPNG, contentType: "image/webp"},
	))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.calls)
	assert.Equal(t, "make it snow", svc.last.Prompt)
	assert.Equal(t, onePixelPNG, svc.last.Image.Data)
	assert.Equal(t, "image/webp", svc.last.Image.MimeType)

	body := decodeBody(t, rec)
	assert.Equal(t, []any{"data:image/png;base64,QUJD"}, body["images"])
	assert.NotContains(t, body, "mock")
	assert.NotContains(t, body, "fallback")
}

func TestGenerateHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
		detail string
	}{
		{
			name:   "upstream",
			err:    &service.UpstreamError{Status: 400, Detail: "first\n---\nsecond"},
			status: http.StatusBadGateway,
			msg:    "Upstream error",
			detail: "first\n---\nsecond",
		},
		{
			name:   "wrapped upstream",
			err:    fmt.Errorf("call: %w", &service.UpstreamError{Status: 401, Detail: "unauthorized"}),
			status: http.StatusBadGateway,
			msg:    "Upstream error",
			detail: "unauthorized",
		},
		{
			name:   "anything else",
			err:    errors.New("dial tcp: connection refused"),
			status: http.StatusInternalServerError,
			msg:    "Server error",
			detail: "dial tcp: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewGenerateHandler(&fakeGenerateService{err: tt.err}, 1<<20)

			rec := httptest.NewRecorder()
			h.Generate(rec, multipartRequest(t, map[string]string{"prompt": "p"}, &formFile{data: onePixelPNG}))

			assert.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.msg, body["error"])
			assert.Equal(t, tt.detail, body["detail"])
		})
	}
}

func TestGenerateHandler_Panic(t *testing.T) {
	h := NewGenerateHandler(&fakeGenerateService{panic: "boom"}, 1<<20)

	rec := httptest.NewRecorder()
	h.Generate(rec, multipartRequest(t, map[string]string{"prompt": "p"}, &formFile{data: onePixelPNG}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Server error", body["error"])
	assert.Equal(t, "boom", body["detail"])
}

func TestGenerateHandler_NotMultipart(t *testing.T) {
	svc := &fakeGenerateService{}
	h := NewGenerateHandler(svc, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"prompt":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", decodeBody(t, rec)["error"])
	assert.Zero(t, svc.calls)
}

func TestGenerateHandler_UploadTooLarge(t *testing.T) {
	svc := &fakeGenerateService{}
	h := NewGenerateHandler(svc, 64)

	rec := httptest.NewRecorder()
	h.Generate(rec, multipartRequest(t, map[string]string{"prompt": "p"}, &formFile{data: bytes.Repeat([]byte{1}, 1024)}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, svc.calls)
}

// prompt="add a hat", 1x1 PNG, no credential configured.
func TestGenerateHandler_MockScenario(t *testing.T) {
	cfg := config.UpstreamConfig{BaseURL: "http://127.0.0.1:0", Model: "m"}
	svc := service.NewGenerateService(log.New(io.Discard, "", 0), service.NewUpstreamClient(cfg), cfg)
	h := NewGenerateHandler(svc, 1<<20)

	rec := httptest.NewRecorder()
	h.Generate(rec, multipartRequest(t,
		map[string]string{"prompt": "add a hat"},
		&formFile{data: onePixelPNG, contentType: "image/png"},
	))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []any{"data:image/png;base64," + base64.StdEncoding.EncodeToString(onePixelPNG)}, body["images"])
	assert.Equal(t, true, body["mock"])
	assert.NotContains(t, body, "fallback")
}
