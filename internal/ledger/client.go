package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pantrack/internal/auth"
	"pantrack/internal/payload"
)

var (
	ErrBaseURLRequired = errors.New("ledger: base url required")
	ErrInvalidRequest  = errors.New("ledger: invalid scan request")
	ErrUnauthorized    = errors.New("ledger: unauthorized")
	ErrInvalidResponse = errors.New("ledger: invalid server response")
	ErrNetwork         = errors.New("ledger: network failure")
	ErrHistoryFetch    = errors.New("ledger: history fetch failed")
)

const (
	scanPath    = "/slip/scan-qr"
	historyPath = "/slip/driver-history/slip"

	maxResponseBytes = 1 << 20
)

// ClientConfig configures one ledger-service client. DriverName attributes
// recorded custody entries; when empty the service falls back to a generic
// identity.
type ClientConfig struct {
	BaseURL        string
	Token          string
	DriverName     string
	RequestTimeout time.Duration
	RetryDelay     time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RequestTimeout: 10 * time.Second,
		RetryDelay:     500 * time.Millisecond,
	}
}

// Client submits custody scans and reads driver history over HTTP with
// bearer-token auth. Submits retry once on transient transport failure;
// cancellation of ctx aborts the in-flight call.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultClientConfig().RequestTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultClientConfig().RetryDelay
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

// SubmitScan posts one decoded payload to the ledger. sessionKey may be empty
// on the first scan of a run. The caller decides whether to persist the
// returned session key; the client has no session state of its own.
func (c *Client) SubmitScan(ctx context.Context, p payload.Payload, sessionKey string) (ScanResponse, error) {
	req := ScanRequest{
		CaseID:     p.CaseID,
		SlipIDs:    p.SlipIDs,
		SessionKey: strings.TrimSpace(sessionKey),
	}
	if err := req.Validate(); err != nil {
		return ScanResponse{}, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return ScanResponse{}, fmt.Errorf("%w: encode request: %v", ErrInvalidRequest, err)
	}

	httpResp, err := c.doWithRetry(ctx, http.MethodPost, c.cfg.BaseURL+scanPath, body)
	if err != nil {
		return ScanResponse{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusUnauthorized {
		return ScanResponse{}, ErrUnauthorized
	}
	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return ScanResponse{}, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}
	var resp ScanResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ScanResponse{}, fmt.Errorf("%w: malformed body (status %d)", ErrInvalidResponse, httpResp.StatusCode)
	}
	if httpResp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = http.StatusText(httpResp.StatusCode)
		}
		return ScanResponse{}, fmt.Errorf("%w: status %d: %s", ErrInvalidResponse, httpResp.StatusCode, msg)
	}
	if err := resp.Validate(); err != nil {
		return ScanResponse{}, err
	}
	return resp, nil
}

// FetchHistory reads all custody-transfer records for one slip, ordered by
// timestamp ascending.
func (c *Client) FetchHistory(ctx context.Context, slipID int) (SlipRecord, error) {
	if slipID <= 0 {
		return SlipRecord{}, fmt.Errorf("%w: invalid slip id %d", ErrHistoryFetch, slipID)
	}
	url := fmt.Sprintf("%s%s/%d", c.cfg.BaseURL, historyPath, slipID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return SlipRecord{}, fmt.Errorf("%w: %v", ErrHistoryFetch, err)
	}
	c.authorize(httpReq)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return SlipRecord{}, fmt.Errorf("%w: %v", ErrHistoryFetch, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusUnauthorized {
		return SlipRecord{}, ErrUnauthorized
	}
	if httpResp.StatusCode != http.StatusOK {
		return SlipRecord{}, fmt.Errorf("%w: status %d", ErrHistoryFetch, httpResp.StatusCode)
	}
	var resp HistoryResponse
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, maxResponseBytes)).Decode(&resp); err != nil {
		return SlipRecord{}, fmt.Errorf("%w: malformed body", ErrHistoryFetch)
	}
	if !resp.Success {
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = "success=false"
		}
		return SlipRecord{}, fmt.Errorf("%w: %s", ErrHistoryFetch, msg)
	}
	if resp.Data.Slip.ID != slipID {
		return SlipRecord{}, fmt.Errorf("%w: slip mismatch (asked %d, got %d)", ErrHistoryFetch, slipID, resp.Data.Slip.ID)
	}
	return resp.Record(), nil
}

// doWithRetry issues the request and retries exactly once on transient
// transport failure. Cancellation is never retried.
func (c *Client) doWithRetry(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		c.authorize(httpReq)
		if name := strings.TrimSpace(c.cfg.DriverName); name != "" {
			httpReq.Header.Set(auth.HeaderDriverName, name)
		}

		httpResp, err := c.http.Do(httpReq)
		if err == nil {
			return httpResp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
		}
		if attempt == 1 {
			log.Warn().Err(err).Str("url", url).Msg("ledger request failed, retrying once")
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
			case <-time.After(c.cfg.RetryDelay):
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrNetwork, lastErr)
}

func (c *Client) authorize(req *http.Request) {
	if token := strings.TrimSpace(c.cfg.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
