// Package whisper talks to an LLMWhisperer compatible OCR API.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/extract"
)

const keyHeader = "unstract-key"

type (
	Client struct {
		baseURL    string
		apiKey     string
		httpClient *http.Client
		logger     core.Logger
	}

	HTTPError struct {
		Op         string
		StatusCode int
		Body       string
	}

	uploadResponse struct {
		WhisperHash string `json:"whisper_hash"`
		Message     string `json:"message"`
	}

	statusResponse struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}

	retrieveResponse struct {
		Text *string `json:"text"`
	}
)

var _ extract.OCRService = (*Client)(nil)

func (e *HTTPError) Error() string {
	return fmt.Sprintf("whisper %s: http %d: %s", e.Op, e.StatusCode, core.TruncateRunes(strings.TrimSpace(e.Body), 500))
}

func NewClient(conf *core.Config, logger core.Logger) *Client {
	timeout := conf.OCR.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(conf.OCR.BaseURL, "/"),
		apiKey:     conf.OCR.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("client", "whisper"),
	}
}

// Upload sends the file for processing and returns its whisper hash.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file")
	}
	defer f.Close()

	q := url.Values{}
	q.Set("mode", "form")
	q.Set("output_mode", "layout_preserving")
	req, err := c.newRequest(ctx, http.MethodPost, "whisper", q, f)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	raw, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status == http.StatusUnsupportedMediaType {
		return "", errors.Wrapf(extract.ErrUnsupported, "whisper upload: %s", strings.TrimSpace(string(raw)))
	}
	if status >= http.StatusBadRequest {
		return "", &HTTPError{Op: "upload", StatusCode: status, Body: string(raw)}
	}

	var res uploadResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", errors.Wrap(err, "decoding whisper upload response")
	}
	if res.WhisperHash == "" {
		return "", errors.Errorf("whisper upload: no whisper_hash in response: %s", core.TruncateRunes(string(raw), 500))
	}
	return res.WhisperHash, nil
}

// Status returns the processing status of a job, e.g. "processing" or "processed".
func (c *Client) Status(ctx context.Context, hash string) (string, error) {
	q := url.Values{}
	q.Set("whisper_hash", hash)
	req, err := c.newRequest(ctx, http.MethodGet, "whisper-status", q, nil)
	if err != nil {
		return "", err
	}

	raw, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	var res statusResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		if status >= http.StatusBadRequest {
			return "", &HTTPError{Op: "status", StatusCode: status, Body: string(raw)}
		}
		return "", errors.Wrap(err, "decoding whisper status response")
	}
	if res.Status == "" {
		res.Status = "unknown"
	}
	return res.Status, nil
}

// Retrieve returns the extracted text of a processed job.
func (c *Client) Retrieve(ctx context.Context, hash string) (string, error) {
	q := url.Values{}
	q.Set("whisper_hash", hash)
	q.Set("text_only", "true")
	req, err := c.newRequest(ctx, http.MethodGet, "whisper-retrieve", q, nil)
	if err != nil {
		return "", err
	}

	raw, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &HTTPError{Op: "retrieve", StatusCode: status, Body: string(raw)}
	}

	// text_only answers are usually JSON, sometimes the bare text
	var res retrieveResponse
	if err := json.Unmarshal(raw, &res); err == nil && res.Text != nil {
		return strings.TrimSpace(*res.Text), nil
	}
	return strings.TrimSpace(string(raw)), nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, q url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + "/" + endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "creating whisper request")
	}
	req.Header.Set(keyHeader, c.apiKey)
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "whisper %s", req.URL.Path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "reading whisper response")
	}
	c.logger.Debug("whisper response", "path", req.URL.Path, "status", resp.StatusCode)
	return raw, resp.StatusCode, nil
}
