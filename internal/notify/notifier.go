// Package notify posts task run reports to a callback URL.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/GoSim-25-26J-441/gridrun/internal/metrics"
	"github.com/GoSim-25-26J-441/gridrun/internal/store"
	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
)

// SecretHeader carries the callback secret, when one is configured.
const SecretHeader = "X-Gridrun-Callback-Secret"

var (
	ErrInvalidURL       = errors.New("invalid callback url")
	ErrMetadataEndpoint = errors.New("callback url targets a cloud metadata endpoint")
	ErrInternalHost     = errors.New("callback url targets an internal address")
)

var metadataHosts = map[string]bool{
	"169.254.169.254":          true,
	"metadata.google.internal": true,
	"metadata":                 true,
	"fd00:ec2::254":            true,
}

// Payload is the JSON body posted to the callback URL
type Payload struct {
	RunID            string  `json:"run_id"`
	Function         string  `json:"function"`
	Table            string  `json:"table,omitempty"`
	Batch            int     `json:"batch,omitempty"`
	NBatch           int     `json:"n_batch,omitempty"`
	Total            int     `json:"total"`
	Completed        int     `json:"completed"`
	Failed           int     `json:"failed"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	StartedAtUnixMs  int64   `json:"started_at_unix_ms"`
	FinishedAtUnixMs int64   `json:"finished_at_unix_ms"`
	Timestamp        int64   `json:"timestamp"` // when the notification was sent

	Durations *metrics.Aggregation `json:"durations,omitempty"`
}

// PayloadFor builds the payload describing run.
func PayloadFor(run *store.Run) Payload {
	return Payload{
		RunID:            run.ID,
		Function:         run.Function,
		Table:            run.Table,
		Batch:            run.Batch,
		NBatch:           run.NBatch,
		Total:            run.Total,
		Completed:        run.Completed,
		Failed:           run.Failed,
		ElapsedSeconds:   run.ElapsedSeconds,
		Durations:        run.Durations,
		StartedAtUnixMs:  run.StartedAt.UnixMilli(),
		FinishedAtUnixMs: run.FinishedAt.UnixMilli(),
		Timestamp:        time.Now().UTC().UnixMilli(),
	}
}

// Notifier posts run reports, retrying transport failures and non-2xx
// responses with exponential backoff.
type Notifier struct {
	httpClient *http.Client
	attempts   uint
	baseDelay  time.Duration
}

// NewNotifier creates a notifier with a 10s request timeout and 4 attempts.
func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		attempts:  4,
		baseDelay: 1 * time.Second,
	}
}

// WithRetry overrides the number of attempts and the initial backoff delay.
func (n *Notifier) WithRetry(attempts uint, baseDelay time.Duration) *Notifier {
	if attempts < 1 {
		attempts = 1
	}
	n.attempts = attempts
	n.baseDelay = baseDelay
	return n
}

// Notify posts run to callbackURL. "{run_id}" in the URL is replaced with the
// run id. An empty callbackURL is a no-op.
func (n *Notifier) Notify(ctx context.Context, callbackURL, callbackSecret string, run *store.Run) error {
	if callbackURL == "" {
		return nil
	}
	if run == nil {
		return fmt.Errorf("cannot notify: nil run")
	}

	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", run.ID)
	if err := ValidateCallbackURL(finalURL); err != nil {
		logger.Warn("callback url rejected", "callback_url", finalURL, "error", err)
		return err
	}

	payload := PayloadFor(run)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	err = retry.Do(
		func() error { return n.post(ctx, finalURL, callbackSecret, body) },
		retry.Context(ctx),
		retry.Attempts(n.attempts),
		retry.Delay(n.baseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			logger.Warn("notification attempt failed",
				"callback_url", finalURL,
				"run_id", run.ID,
				"attempt", attempt+1,
				"error", err)
		}),
	)
	if err != nil {
		logger.Error("failed to send notification after retries",
			"callback_url", finalURL,
			"run_id", run.ID,
			"attempts", n.attempts,
			"last_error", err)
		return err
	}

	logger.Info("notification sent successfully", "run_id", run.ID, "callback_url", finalURL)
	return nil
}

func (n *Notifier) post(ctx context.Context, callbackURL, callbackSecret string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "gridrun/1.0")
	if callbackSecret != "" {
		req.Header.Set(SecretHeader, callbackSecret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}

// ValidateCallbackURL rejects non-http(s) URLs, cloud metadata endpoints and
// literal private, loopback or unspecified addresses. Host names other than
// the metadata ones are not resolved.
func ValidateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if metadataHosts[host] {
		return fmt.Errorf("%w: %s", ErrMetadataEndpoint, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsUnspecified() || isPrivateIP(ip) {
			return fmt.Errorf("%w: %s", ErrInternalHost, host)
		}
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}
