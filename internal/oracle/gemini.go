package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jonathan/risk-sentinel/internal/types"
)

// Defaults for the Gemini-backed oracles. Timeouts are long because the
// backend serializes resource-bound inference.
const (
	DefaultTextModel   = "gemini-2.5-flash"
	DefaultVisionModel = "gemini-2.5-flash"
	DefaultTimeout     = 150 * time.Second

	maxImageBytes = 8 << 20
)

// Client wraps a genai connection shared by the text and vision oracles.
type Client struct {
	genai *genai.Client
}

// NewClient creates a Gemini client. The API key is required.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{genai: c}, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	if c.genai != nil {
		return c.genai.Close()
	}
	return nil
}

// TextOracle returns a text-classification oracle on the given model.
func (c *Client) TextOracle(model string, timeout time.Duration) *GeminiTextOracle {
	if model == "" {
		model = DefaultTextModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GeminiTextOracle{client: c.genai, model: model, timeout: timeout}
}

// VisionOracle returns an image-classification oracle on the given model.
func (c *Client) VisionOracle(model string, timeout time.Duration) *GeminiVisionOracle {
	if model == "" {
		model = DefaultVisionModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GeminiVisionOracle{
		client:  c.genai,
		model:   model,
		timeout: timeout,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// GeminiTextOracle classifies text items through a Gemini model.
type GeminiTextOracle struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// Name identifies this oracle in contributions and logs.
func (o *GeminiTextOracle) Name() string { return "gemini-text" }

// Classify sends the item text and rule findings to the model and decodes
// its opinion. Failures map onto the package's typed errors.
func (o *GeminiTextOracle) Classify(ctx context.Context, item types.ContentItem, sig types.RuleSignal) (types.OracleOpinion, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	model := o.client.GenerativeModel(o.model)
	model.SetTemperature(0.1) // Low temperature for consistent output
	model.ResponseMIMEType = "application/json"

	prompt := buildClassificationPrompt(item, sig)
	resp, err := model.GenerateContent(callCtx, genai.Text(prompt))
	if err != nil {
		return types.OracleOpinion{}, o.wrapCallError(callCtx, err)
	}

	raw, err := textFromResponse(resp)
	if err != nil {
		return types.OracleOpinion{}, &MalformedResponseError{Oracle: o.Name(), Detail: err.Error()}
	}
	return DecodeOpinion(raw, item.Text), nil
}

func (o *GeminiTextOracle) wrapCallError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Oracle: o.Name(), Elapsed: o.timeout}
	}
	return &UnreachableError{Oracle: o.Name(), Cause: err}
}

// GeminiVisionOracle classifies image items through a multimodal model.
type GeminiVisionOracle struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	http    *http.Client
}

// Name identifies this oracle in contributions and logs.
func (o *GeminiVisionOracle) Name() string { return "gemini-vision" }

// Wants reports whether the item carries an image to analyze.
func (o *GeminiVisionOracle) Wants(item types.ContentItem) bool {
	return item.HasImage()
}

// Classify fetches the item's image and asks the model for its opinion.
// Items without an image yield the neutral opinion without a model call.
func (o *GeminiVisionOracle) Classify(ctx context.Context, item types.ContentItem, _ types.RuleSignal) (types.OracleOpinion, error) {
	if !item.HasImage() {
		return types.NeutralOpinion(), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	data, format, err := o.fetchImage(callCtx, item.ImageURL)
	if err != nil {
		return types.OracleOpinion{}, &UnreachableError{Oracle: o.Name(), Cause: err}
	}

	model := o.client.GenerativeModel(o.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(callCtx, genai.ImageData(format, data), genai.Text(buildVisionPrompt()))
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return types.OracleOpinion{}, &TimeoutError{Oracle: o.Name(), Elapsed: o.timeout}
		}
		return types.OracleOpinion{}, &UnreachableError{Oracle: o.Name(), Cause: err}
	}

	raw, err := textFromResponse(resp)
	if err != nil {
		return types.OracleOpinion{}, &MalformedResponseError{Oracle: o.Name(), Detail: err.Error()}
	}
	return DecodeOpinion(raw, item.Text), nil
}

func (o *GeminiVisionOracle) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	return data, imageFormat(url), nil
}

func imageFormat(url string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(strings.SplitN(url, "?", 2)[0]), ".")) {
	case "png":
		return "png"
	case "webp":
		return "webp"
	default:
		return "jpeg"
	}
}

// textFromResponse extracts text from a Gemini API response.
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
