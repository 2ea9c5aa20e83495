// Package scan coordinates one custody scan end to end: decode the raw text,
// attach the stored session key, submit to the ledger, and commit the key the
// service returns.
package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"pantrack/internal/ledger"
	"pantrack/internal/payload"
	"pantrack/internal/session"
)

var (
	ErrMalformedPayload = errors.New("scan: malformed payload")
	ErrGatewayRequired  = errors.New("scan: gateway required")
	ErrStoreRequired    = errors.New("scan: session store required")
)

// RunState describes the scanning-run state machine: absent session key means
// idle, a stored key means an active run.
type RunState string

const (
	StateIdle   RunState = "idle"
	StateActive RunState = "active"
)

// Gateway is the ledger submit surface the orchestrator drives.
type Gateway interface {
	SubmitScan(ctx context.Context, p payload.Payload, sessionKey string) (ledger.ScanResponse, error)
}

// Orchestrator is the only component that couples decoding, session state,
// and ledger submits into one unit of work.
type Orchestrator struct {
	gateway  Gateway
	sessions session.Store
}

func NewOrchestrator(gateway Gateway, sessions session.Store) (*Orchestrator, error) {
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if sessions == nil {
		return nil, ErrStoreRequired
	}
	return &Orchestrator{gateway: gateway, sessions: sessions}, nil
}

// Scan resolves one raw QR text. Decode failures are resolved locally and
// never reach the network. On submit success the returned session key is
// committed, overwriting any prior key; on submit failure the stored key is
// left untouched so a retry continues the same run.
func (o *Orchestrator) Scan(ctx context.Context, raw string) (ledger.ScanResponse, error) {
	p, err := payload.Decode(raw)
	if err != nil {
		return ledger.ScanResponse{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	key, _, err := o.sessions.Get()
	if err != nil {
		return ledger.ScanResponse{}, fmt.Errorf("scan: read session: %w", err)
	}
	resp, err := o.gateway.SubmitScan(ctx, p, key)
	if err != nil {
		log.Warn().
			Err(err).
			Int("case_id", p.CaseID).
			Ints("slip_ids", p.SlipIDs).
			Msg("scan submit failed")
		return ledger.ScanResponse{}, err
	}

	if err := o.sessions.Set(resp.SessionKey); err != nil {
		return ledger.ScanResponse{}, fmt.Errorf("scan: persist session key: %w", err)
	}
	log.Info().
		Int("case_id", p.CaseID).
		Ints("slip_ids", p.SlipIDs).
		Str("office", resp.CurrentOfficeCode).
		Int("scanned_cases", resp.ScannedCasesCount).
		Msg("scan recorded")
	return resp, nil
}

// State reports whether a scanning run is in progress.
func (o *Orchestrator) State() RunState {
	if _, ok, err := o.sessions.Get(); err == nil && ok {
		return StateActive
	}
	return StateIdle
}

// Finish ends the current run and clears the stored session key. Expiry is a
// ledger-service concern; the client never times a session out on its own.
func (o *Orchestrator) Finish() error {
	return o.sessions.Clear()
}
