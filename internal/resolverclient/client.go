package resolverclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/staff-onboard/internal/config"
	"github.com/example/staff-onboard/internal/identifier"
	"github.com/example/staff-onboard/internal/logging"
)

const resolvePath = "/process_image"

// Client calls the identifier resolver's HTTP surface. Each attempt gets
// its own timeout; transport failures and 5xx responses are retried with
// exponential backoff, everything else fails fast.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *zap.Logger
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

type resolveResponse struct {
	EmployeeID string `json:"employee_id"`
}

// NewClient builds a resolver client from the configured call policy.
func NewClient(cfg config.ResolverConfig, logger *zap.Logger) *Client {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{Timeout: cfg.AttemptTimeout},
		logger:         logger.Named("resolver_client"),
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}
}

// Resolve sends the photo as a multipart attachment and returns the
// predicted identifier.
func (c *Client) Resolve(ctx context.Context, requestID string, photo identifier.Photo) (string, error) {
	const operation = "resolverclient.resolve"
	opLogger := logging.WithOperation(c.logger, operation, requestID)

	backoff := c.initialBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= c.maxBackoff {
				backoff = next
			}
		}

		id, retryable, err := c.attempt(ctx, photo)
		if err == nil {
			if attempt > 1 {
				opLogger.Info("resolver call succeeded after retry", zap.Int("attempt", attempt))
			}
			return id, nil
		}
		lastErr = err

		if !retryable {
			opLogger.Error("resolver call failed", zap.Error(err), zap.Int("attempt", attempt))
			return "", logging.NewOperationError(operation, requestID, err)
		}
		opLogger.Warn("transient resolver failure", zap.Error(err), zap.Int("attempt", attempt))
	}

	opLogger.Error("resolver unreachable after retries",
		zap.Error(lastErr), zap.Int("attempts", c.maxAttempts))
	return "", logging.NewOperationError(operation, requestID,
		fmt.Errorf("%w: %v", identifier.ErrUnavailable, lastErr))
}

// attempt performs a single call. The second return reports whether the
// failure is worth retrying.
func (c *Client) attempt(ctx context.Context, photo identifier.Photo) (string, bool, error) {
	body, contentType, err := buildMultipartBody(photo)
	if err != nil {
		return "", false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+resolvePath, body)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", true, fmt.Errorf("%w: status %d", identifier.ErrRejected, resp.StatusCode)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", false, fmt.Errorf("%w: status %d", identifier.ErrRejected, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, err
	}

	var decoded resolveResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", false, fmt.Errorf("%w: %v", identifier.ErrMalformedResponse, err)
	}
	if strings.TrimSpace(decoded.EmployeeID) == "" {
		return "", false, fmt.Errorf("%w: empty employee_id field", identifier.ErrMalformedResponse)
	}
	return decoded.EmployeeID, false, nil
}

func buildMultipartBody(photo identifier.Photo) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="image"; filename=%q`, photo.Filename))
	if photo.ContentType != "" {
		header.Set("Content-Type", photo.ContentType)
	}

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(photo.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}
