package captioner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"visionvault/internal/logging"
	"visionvault/internal/metrics"
	"visionvault/internal/tagstore"
)

// DefaultTimeout bounds one captioning request.
const DefaultTimeout = 60 * time.Second

const (
	maxResponseBytes = 1024 * 1024
	maxTags          = 10
)

const prompt = `Describe this image for a searchable photo library.
Return only JSON, without markdown code fences, in this form:
{"tags": ["tag1", "tag2", "tag3"], "description": "one or two sentences"}
Use 3 to 8 short lowercase tags.`

// Config configures the captioning client.
type Config struct {
	Endpoint     string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxDimension int
}

// Caption is the result of captioning one image.
type Caption struct {
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
}

// Client calls an OpenAI-compatible chat completions endpoint with a vision
// model.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client. An empty endpoint yields a client whose Caption
// always fails, so captioning passes fall back to the placeholder.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = DefaultMaxDimension
	}
	// The per-request context carries the timeout.
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c.cfg.Endpoint != ""
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Caption uploads the image at path and returns its tags and description.
// Every failure wraps tagstore.ErrCaptioning.
func (c *Client) Caption(ctx context.Context, path string) (caption Caption, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		switch {
		case err == nil:
		case !c.Enabled():
			status = "skipped"
		case errors.Is(err, context.DeadlineExceeded):
			status = "timeout"
		default:
			status = "error"
		}
		metrics.CaptionRequestsTotal.WithLabelValues(status).Inc()
		if status != "skipped" {
			metrics.CaptionRequestDuration.Observe(time.Since(start).Seconds())
		}
	}()

	if !c.Enabled() {
		return Caption{}, fmt.Errorf("%w: no captioning endpoint configured", tagstore.ErrCaptioning)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	data, mimeType, err := prepareImage(path, c.cfg.MaxDimension)
	if err != nil {
		return Caption{}, fmt.Errorf("%w: %s: %w", tagstore.ErrCaptioning, path, err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
		Temperature: 0.2,
	})
	if err != nil {
		return Caption{}, fmt.Errorf("%w: %w", tagstore.ErrCaptioning, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Caption{}, fmt.Errorf("%w: %w", tagstore.ErrCaptioning, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Caption{}, fmt.Errorf("%w: request failed: %w", tagstore.ErrCaptioning, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logging.Debug("failed to close captioning response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return Caption{}, fmt.Errorf("%w: authentication rejected, check captioner.api_key (status %d)", tagstore.ErrCaptioning, resp.StatusCode)
		}
		return Caption{}, fmt.Errorf("%w: service returned %s", tagstore.ErrCaptioning, resp.Status)
	}

	var result chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return Caption{}, fmt.Errorf("%w: invalid response: %w", tagstore.ErrCaptioning, err)
	}
	if len(result.Choices) == 0 {
		return Caption{}, fmt.Errorf("%w: empty response", tagstore.ErrCaptioning)
	}

	return parseCaption(result.Choices[0].Message.Content)
}

// parseCaption extracts the JSON caption from a model reply, tolerating
// markdown code fences around it.
func parseCaption(content string) (Caption, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var caption Caption
	if err := json.Unmarshal([]byte(content), &caption); err != nil {
		return Caption{}, fmt.Errorf("%w: reply is not caption JSON: %w", tagstore.ErrCaptioning, err)
	}

	tags := make([]string, 0, len(caption.Tags))
	for _, t := range caption.Tags {
		// Commas would split the tag when the record is read back.
		t = strings.TrimSpace(strings.ReplaceAll(t, ",", " "))
		if t != "" && len(tags) < maxTags {
			tags = append(tags, t)
		}
	}
	caption.Tags = tags
	caption.Description = strings.TrimSpace(caption.Description)

	if len(caption.Tags) == 0 {
		return Caption{}, fmt.Errorf("%w: reply contained no tags", tagstore.ErrCaptioning)
	}
	return caption, nil
}
