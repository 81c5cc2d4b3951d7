package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kdduha/image-edit/internal/metrics"
	"github.com/kdduha/image-edit/internal/models"
	"github.com/kdduha/image-edit/internal/service"
)

// multipart parts above this size are spilled to temp files
const multipartMemory = 8 << 20

type generateService interface {
	Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
}

type GenerateHandler struct {
	service        generateService
	maxUploadBytes int64
}

func NewGenerateHandler(service generateService, maxUploadBytes int64) *GenerateHandler {
	return &GenerateHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// Generate godoc
// @Summary Edit an image
// @Description Sends the prompt and image to the upstream multimodal model and returns the edited image(s) as data URIs.
// @Description Without an upstream credential the input image is echoed back with mock=true; when the reply holds no image it is echoed back with fallback=true.
// @Tags generate
// @Accept multipart/form-data
// @Produce json
// @Param prompt formData string true "Edit instruction"
// @Param image formData file true "Source image"
// @Success 200 {object} models.GenerationResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/generate [post]
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.GenerationsTotal(metrics.OutcomeServerError)
			writeError(w, http.StatusInternalServerError, "Server error", fmt.Sprint(rec))
		}
	}()

	req, err := h.decode(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}

	resp, err := h.service.Generate(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}

	switch {
	case resp.Mock:
		metrics.GenerationsTotal(metrics.OutcomeMock)
	case resp.Fallback:
		metrics.GenerationsTotal(metrics.OutcomeFallback)
	default:
		metrics.GenerationsTotal(metrics.OutcomeOK)
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads the multipart submission. Absent fields are left empty so
// that validation reports them as missing.
func (h *GenerateHandler) decode(w http.ResponseWriter, r *http.Request) (*models.GenerationRequest, error) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	req := &models.GenerationRequest{Prompt: r.PostFormValue("prompt")}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	req.Image = &models.ImageUpload{
		Data:     data,
		MimeType: header.Header.Get("Content-Type"),
	}
	return req, nil
}

func (h *GenerateHandler) fail(w http.ResponseWriter, err error) {
	var (
		missing  *models.MissingFieldError
		upstream *service.UpstreamError
	)
	switch {
	case errors.As(err, &missing):
		metrics.GenerationsTotal(metrics.OutcomeMissingField)
		writeError(w, http.StatusBadRequest, "Missing "+missing.Field, missing.Field)
	case errors.As(err, &upstream):
		metrics.GenerationsTotal(metrics.OutcomeUpstream)
		writeError(w, http.StatusBadGateway, "Upstream error", upstream.Detail)
	default:
		metrics.GenerationsTotal(metrics.OutcomeServerError)
		writeError(w, http.StatusInternalServerError, "Server error", err.Error())
	}
}
