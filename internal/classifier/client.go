// Package classifier talks to the remote image authenticity service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is where the classification service listens in local setups.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds a single classification round trip.
	DefaultTimeout = 60 * time.Second

	predictPath      = "/predict"
	healthPath       = "/health"
	formField        = "file"
	defaultFilename  = "upload"
	maxResponseBytes = 1 << 20

	probabilitySumTolerance = 0.01
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Client is a stateless adapter over the classification HTTP API. It never
// retries and never caches: every call is one request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client for the service rooted at baseURL. A nil httpClient
// gets one with DefaultTimeout.
func New(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.Named("classifier"),
	}
}

// Classify uploads the image as multipart field "file" and decodes the verdict.
func (c *Client) Classify(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, body)
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	started := time.Now()
	status, payload, err := c.do(httpReq)
	if err != nil {
		c.logger.Warn("classification request failed",
			zap.Error(err),
			zap.String("filename", req.Filename()),
			zap.Int("size", req.Size()))
		return nil, err
	}

	if status < 200 || status > 299 {
		detail := serviceDetail(payload)
		c.logger.Warn("classification rejected by service",
			zap.Int("status", status),
			zap.String("detail", detail),
			zap.String("filename", req.Filename()))
		return nil, &Error{Kind: KindServiceRejected, Status: status, Detail: detail}
	}

	resp, err := decodePrediction(payload)
	if err != nil {
		c.logger.Warn("malformed classification response", zap.Error(err), zap.Int("status", status))
		return nil, err
	}

	c.logger.Debug("classification complete",
		zap.String("label", string(resp.Label)),
		zap.Float64("confidence", resp.Confidence),
		zap.Duration("latency", time.Since(started)))
	return resp, nil
}

// Health reports whether the service is up and has its model loaded.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	status, payload, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &Error{Kind: KindServiceRejected, Status: status, Detail: serviceDetail(payload)}
	}

	var health Health
	if err := json.Unmarshal(payload, &health); err != nil {
		return nil, Malformed("decode health: %v", err)
	}
	return &health, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &Error{Kind: KindUnreachable, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, &Error{Kind: KindUnreachable, Status: resp.StatusCode, Err: err}
	}
	return resp.StatusCode, payload, nil
}

func encodeMultipart(req *Request) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := req.Filename()
	if filename == "" {
		filename = defaultFilename
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, formField, quoteEscaper.Replace(filename)))
	if ct := req.ContentType(); ct != "" {
		header.Set("Content-Type", ct)
	} else {
		header.Set("Content-Type", "application/octet-stream")
	}

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

// serviceDetail pulls a string "detail" out of an error body. Validation
// errors carry a list there, which is not shown to users.
func serviceDetail(payload []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err != nil {
		return ""
	}
	return strings.TrimSpace(detail)
}

func decodePrediction(payload []byte) (*Response, error) {
	var raw struct {
		Label         *string   `json:"label"`
		Confidence    *float64  `json:"confidence"`
		Probabilities []float64 `json:"probabilities"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, Malformed("decode body: %v", err)
	}
	if raw.Label == nil || strings.TrimSpace(*raw.Label) == "" {
		return nil, Malformed("missing label")
	}
	if raw.Confidence == nil {
		return nil, Malformed("missing confidence")
	}
	if len(raw.Probabilities) == 0 {
		return nil, Malformed("missing probabilities")
	}

	var sum float64
	for _, p := range raw.Probabilities {
		sum += p
	}
	if math.Abs(sum-1) > probabilitySumTolerance {
		return nil, Malformed("probabilities sum to %.4f", sum)
	}

	return &Response{
		Label:         Label(*raw.Label),
		Confidence:    *raw.Confidence,
		Probabilities: raw.Probabilities,
	}, nil
}
