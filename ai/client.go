// Package ai talks to the external inference service used for upscaling,
// background removal and prompt based generation.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotConfigured is returned by every call when no base URL is set.
var ErrNotConfigured = errors.New("ai service is not configured")

// ErrResponseTooLarge is returned when a response body exceeds the size limit.
var ErrResponseTooLarge = errors.New("response too large")

// maxResponseSize bounds image payloads read from the service.
const maxResponseSize = 64 << 20

// Error is a failed call to the inference service. StatusCode is zero for
// transport failures and timeouts.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ai %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ai %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client is a small HTTP client for the inference service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logrus.Entry

	maxResponse int64
}

// NewClient builds a client. An empty baseURL yields a client whose calls all
// fail with ErrNotConfigured.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     logrus.WithField("component", "ai"),

		maxResponse: maxResponseSize,
	}
}

// Configured reports whether a base URL was provided.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Upscale enlarges img by factor (2, 4 or 8) and returns the encoded result.
func (c *Client) Upscale(ctx context.Context, img []byte, factor int) ([]byte, error) {
	path := "/upscale?factor=" + strconv.Itoa(factor)
	return c.postImage(ctx, "upscale", path, img)
}

// RemoveBackground returns img as a PNG with the background made transparent.
func (c *Client) RemoveBackground(ctx context.Context, img []byte) ([]byte, error) {
	return c.postImage(ctx, "remove-background", "/remove-background", img)
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Image string `json:"image"`
}

// Generate creates an image from prompt. The service answers with either a
// base64 data URL or a URL to download the image from.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	const op = "generate"
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	bodyBytes, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.do(ctx, op, http.MethodPost, c.baseURL+"/generate", "application/json", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &Error{Op: op, Message: "invalid response", Err: fmt.Errorf("parse response: %w", err)}
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, &Error{Op: op, Message: parsed.Error.Message, Err: errors.New(parsed.Error.Message)}
	}

	imageURL := strings.TrimSpace(parsed.Image)
	switch {
	case imageURL == "":
		return nil, &Error{Op: op, Message: "no image returned", Err: errors.New("image is empty")}
	case strings.HasPrefix(imageURL, "data:"):
		raw, err := decodeDataURL(imageURL)
		if err != nil {
			return nil, &Error{Op: op, Message: "invalid image payload", Err: err}
		}
		return raw, nil
	default:
		return c.do(ctx, op, http.MethodGet, imageURL, "", nil)
	}
}

func (c *Client) postImage(ctx context.Context, op, path string, img []byte) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	return c.do(ctx, op, http.MethodPost, c.baseURL+path, "application/octet-stream", bytes.NewReader(img))
}

func (c *Client) do(ctx context.Context, op, method, url, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Warnf("%s request failed", op)
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Warnf("%s returned status %d", op, resp.StatusCode)
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponse+1))
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if int64(len(data)) > c.maxResponse {
		c.log.Warnf("%s response exceeds %d bytes", op, c.maxResponse)
		return nil, &Error{Op: op, Err: fmt.Errorf("%w: limit is %d bytes", ErrResponseTooLarge, c.maxResponse)}
	}
	c.log.Debugf("%s completed in %s (%d bytes)", op, time.Since(start), len(data))
	return data, nil
}

func decodeDataURL(dataURL string) ([]byte, error) {
	const marker = ";base64,"
	idx := strings.Index(dataURL, marker)
	if idx < 0 {
		return nil, errors.New("data URL missing base64 marker")
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL[idx+len(marker):])
	if err != nil {
		return nil, fmt.Errorf("decode image base64: %w", err)
	}
	return raw, nil
}
