package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/kdduha/image-edit/internal/config"
	"github.com/kdduha/image-edit/internal/metrics"
	"github.com/kdduha/image-edit/internal/models"
	"github.com/kdduha/image-edit/internal/telemetry"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type GenerateService struct {
	logger    *log.Logger
	client    openai.Client
	apiKey    string
	modelName string
}

// NewUpstreamClient builds the completion client. SDK retries are disabled:
// the only retry is the schema fallback done by GenerateService.
func NewUpstreamClient(cfg config.UpstreamConfig, opts ...option.RequestOption) openai.Client {
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	return openai.NewClient(append(base, opts...)...)
}

func NewGenerateService(logger *log.Logger, client openai.Client, cfg config.UpstreamConfig) *GenerateService {
	return &GenerateService{
		logger:    logger,
		client:    client,
		apiKey:    cfg.APIKey,
		modelName: cfg.Model,
	}
}

// Generate edits req.Image according to req.Prompt. For every valid request
// the result holds at least one image: the input itself is echoed back with
// Mock set when no credential is configured, or with Fallback set when the
// provider reply contains no recognizable image.
func (g *GenerateService) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	dataURI := EncodeDataURI(req.Image.MimeType, req.Image.Data)

	if g.apiKey == "" {
		g.logger.Println("no upstream credential configured, returning input image as mock")
		return &models.GenerationResult{Images: []string{dataURI}, Mock: true}, nil
	}

	body, err := g.buildPayload(req.Prompt, dataURI)
	if err != nil {
		return nil, err
	}

	raw, err := g.complete(ctx, metrics.AttemptPrimary, body)
	if err != nil {
		raw, err = g.retryOnRejection(ctx, body, dataURI, err)
		if err != nil {
			return nil, err
		}
	}

	images := extractImages(raw)
	if len(images) == 0 {
		g.logger.Println("no image found in upstream reply, returning input image as fallback")
		return &models.GenerationResult{Images: []string{dataURI}, Fallback: true}, nil
	}

	g.logger.Printf("extracted %d image(s) from upstream reply\n", len(images))
	return &models.GenerationResult{Images: images}, nil
}

// retryOnRejection decides what to do with a failed primary attempt. Only a 400
// (schema rejection) earns one retry with the image reference sent as a
// bare string. Any other non-2xx status is returned as an UpstreamError rather
// than parsed as a reply, so a JSON error body never turns into a fallback.
func (g *GenerateService) retryOnRejection(ctx context.Context, body []byte, dataURI string, primaryErr error) ([]byte, error) {
	var apiErr *openai.Error
	if !errors.As(primaryErr, &apiErr) {
		return nil, fmt.Errorf("upstream request failed: %w", primaryErr)
	}

	primaryBody := errorBody(apiErr)
	if apiErr.StatusCode != http.StatusBadRequest {
		g.logger.Printf("upstream returned %d\n", apiErr.StatusCode)
		return nil, &UpstreamError{Status: apiErr.StatusCode, Detail: primaryBody}
	}

	g.logger.Println("upstream rejected payload schema, retrying with string image_url")
	altBody, err := stringImageURLPayload(body, dataURI)
	if err != nil {
		return nil, &UpstreamError{Detail: err.Error()}
	}

	raw, err := g.complete(ctx, metrics.AttemptSchemaFallback, altBody)
	if err != nil {
		var retryErr *openai.Error
		if !errors.As(err, &retryErr) {
			return nil, &UpstreamError{Detail: err.Error()}
		}
		return nil, &UpstreamError{
			Status: retryErr.StatusCode,
			Detail: primaryBody + "\n---\n" + errorBody(retryErr),
		}
	}
	return raw, nil
}

func (g *GenerateService) complete(ctx context.Context, attempt string, body []byte) ([]byte, error) {
	ctx, span := telemetry.Start(ctx, "upstream.chat_completions",
		trace.WithAttributes(
			attribute.String("upstream.attempt", attempt),
			attribute.String("upstream.model", g.modelName),
		),
	)
	start := time.Now()

	var raw []byte
	err := g.client.Post(ctx, completionsPath, bytes.NewReader(body), &raw)

	metrics.UpstreamRequest(attempt, statusOf(err), time.Since(start))
	telemetry.End(span, err)
	return raw, err
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// errorBody returns the provider's error body as sent.
func errorBody(apiErr *openai.Error) string {
	if apiErr.Response != nil && apiErr.Response.Body != nil {
		if b, err := io.ReadAll(apiErr.Response.Body); err == nil && len(b) > 0 {
			return string(b)
		}
	}
	if raw := apiErr.RawJSON(); raw != "" {
		return raw
	}
	return apiErr.Error()
}
