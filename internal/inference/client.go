// Package inference talks to a Replicate-compatible prediction API.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Cheertaboi/coupon-studio/internal/models"
)

const (
	// SDXL text-to-image.
	ImageModelVersion = "39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b"
	// hunyuan3d-2 image-to-mesh.
	MeshModelVersion = "4ac0c7d1ef7e7dd58bf92364262597272dea79bfdb158b26027f54eb667f28b8"
)

var ErrNotConfigured = fmt.Errorf("replicate API token %w", models.ErrNotConfigured)

type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Prediction is a remote job. Output is kept raw; its shape depends on
// the model.
type Prediction struct {
	ID     string          `json:"id"`
	Status Status          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// ErrorMessage returns the remote error as text, or "" when there is none.
func (p *Prediction) ErrorMessage() string {
	raw := strings.TrimSpace(string(p.Error))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Error, &s); err == nil {
		return s
	}
	return raw
}

// APIError is a non-2xx answer from the prediction API.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference API status %d: %s", e.Status, e.Detail)
}

type Client struct {
	client *resty.Client
	token  string
}

func NewClient(baseURL, token string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	if token != "" {
		c.SetHeader("Authorization", "Token "+token)
	}
	return &Client{client: c, token: token}
}

type predictionRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

// CreateImagePrediction starts a text-to-image job.
func (c *Client) CreateImagePrediction(ctx context.Context, prompt string) (*Prediction, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", models.ErrValidation)
	}
	return c.create(ctx, predictionRequest{
		Version: ImageModelVersion,
		Input: map[string]any{
			"prompt":              prompt,
			"negative_prompt":     "low quality, bad anatomy, blurry, pixelated, disfigured",
			"width":               768,
			"height":              768,
			"num_outputs":         1,
			"num_inference_steps": 25,
			"guidance_scale":      7.5,
			"scheduler":           "K_EULER",
		},
	})
}

// CreateModelPrediction starts an image-to-3D job. Data URLs are passed
// through; blob URLs cannot be fetched remotely and are rejected.
func (c *Client) CreateModelPrediction(ctx context.Context, imageURL string) (*Prediction, error) {
	image, err := normalizeImageURL(imageURL)
	if err != nil {
		return nil, err
	}
	return c.create(ctx, predictionRequest{
		Version: MeshModelVersion,
		Input: map[string]any{
			"image":                image,
			"num_inference_steps":  50,
			"guidance_scale":       7.5,
			"negative_prompt":      "ugly, disfigured, low quality, blurry, nsfw",
			"export_triangle_mesh": true,
			"texture_size":         1024,
			"output_type":          "textured_mesh",
		},
	})
}

func (c *Client) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: prediction id is required", models.ErrValidation)
	}
	if c.token == "" {
		return nil, ErrNotConfigured
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get("/predictions/{id}")
	if err != nil {
		return nil, fmt.Errorf("get prediction %s: %w", id, err)
	}
	return decodePrediction(resp)
}

func (c *Client) create(ctx context.Context, req predictionRequest) (*Prediction, error) {
	if c.token == "" {
		return nil, ErrNotConfigured
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&req).
		Post("/predictions")
	if err != nil {
		return nil, fmt.Errorf("create prediction: %w", err)
	}
	return decodePrediction(resp)
}

func decodePrediction(resp *resty.Response) (*Prediction, error) {
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		var body struct {
			Detail string `json:"detail"`
		}
		detail := resp.String()
		if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Detail != "" {
			detail = body.Detail
		}
		return nil, &APIError{Status: resp.StatusCode(), Detail: detail}
	}

	var p Prediction
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return nil, fmt.Errorf("decode prediction: %w (body %q)", err, truncate(resp.String(), 200))
	}
	if p.ID == "" {
		return nil, fmt.Errorf("decode prediction: missing id (body %q)", truncate(resp.String(), 200))
	}
	return &p, nil
}

func normalizeImageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", fmt.Errorf("%w: image URL is required", models.ErrValidation)
	case strings.HasPrefix(raw, "data:image/"):
		return raw, nil
	case strings.HasPrefix(raw, "blob:"):
		return "", fmt.Errorf("%w: blob URLs are not supported, upload the image instead", models.ErrValidation)
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return "", fmt.Errorf("%w: invalid image URL %q", models.ErrValidation, raw)
	}
	return u.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsAPIError reports whether err carries an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
