package ledgerd

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"pantrack/internal/ledger"
	"pantrack/internal/observability"
)

var (
	ErrSlipNotFound = errors.New("ledgerd: slip not found")
	ErrCaseMismatch = errors.New("ledgerd: slip does not belong to case")
)

// Slip is one registered work-order slip the ledger tracks.
type Slip struct {
	ID            int
	SlipNumber    string
	CaseID        int
	CaseNumber    string
	PatientName   string
	CasepanNumber string
	CustomerCode  string
	CustomerID    int
}

type slipState struct {
	slip     Slip
	location string
	history  []ledger.HistoryEntry
}

// scanSession groups sequential scans of one driver run. scannedCases counts
// distinct cases; re-scanning a case already seen in the run appends history
// but does not count it again.
type scanSession struct {
	mu           sync.Mutex
	key          string
	scannedCases int
	seenCases    map[int]struct{}
}

// StoreConfig shapes one in-memory ledger store.
type StoreConfig struct {
	OfficeCode string
	LocationID int
	Location   string
	SessionTTL time.Duration
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		OfficeCode: "LAB01",
		LocationID: 1,
		Location:   "Lab - Front Desk",
		SessionTTL: 12 * time.Hour,
	}
}

// Store holds slips, their custody history, and active scan sessions.
// Sessions expire on the configured TTL; an expired key on submit simply
// yields a fresh session in the response.
type Store struct {
	mu       sync.RWMutex
	slips    map[int]*slipState
	sessions *cache.Cache

	officeCode string
	locationID int
	location   string
}

func NewStore(cfg StoreConfig) *Store {
	def := DefaultStoreConfig()
	if strings.TrimSpace(cfg.OfficeCode) == "" {
		cfg.OfficeCode = def.OfficeCode
	}
	if strings.TrimSpace(cfg.Location) == "" {
		cfg.Location = def.Location
	}
	if cfg.LocationID <= 0 {
		cfg.LocationID = def.LocationID
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	return &Store{
		slips:      make(map[int]*slipState),
		sessions:   cache.New(cfg.SessionTTL, cfg.SessionTTL),
		officeCode: cfg.OfficeCode,
		locationID: cfg.LocationID,
		location:   cfg.Location,
	}
}

// AddSlip registers a slip and its starting location.
func (s *Store) AddSlip(slip Slip, location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(location) == "" {
		location = "Office"
	}
	s.slips[slip.ID] = &slipState{slip: slip, location: location}
}

// RecordScan applies one custody scan: one history entry per listed slip,
// the case counted toward the session if unseen in this run, and the
// resulting per-slip entries returned. Appends within one session are
// serialized on the session lock so concurrent scans under the same key
// produce a deterministic history order; scans under different sessions
// proceed independently.
func (s *Store) RecordScan(req ledger.ScanRequest, user string, now time.Time) (ledger.ScanResponse, error) {
	if err := req.Validate(); err != nil {
		return ledger.ScanResponse{}, err
	}

	sess := s.resolveSession(req.SessionKey)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every slip before touching any history so a bad pan never
	// records a partial scan.
	states := make([]*slipState, 0, len(req.SlipIDs))
	for _, slipID := range req.SlipIDs {
		state, ok := s.slips[slipID]
		if !ok {
			return ledger.ScanResponse{}, fmt.Errorf("%w: %d", ErrSlipNotFound, slipID)
		}
		if state.slip.CaseID != req.CaseID {
			return ledger.ScanResponse{}, fmt.Errorf("%w: slip %d, case %d", ErrCaseMismatch, slipID, req.CaseID)
		}
		states = append(states, state)
	}

	entries := make([]ledger.ScanResultEntry, 0, len(states))
	for _, state := range states {
		state.history = append(state.history, ledger.HistoryEntry{
			Timestamp: now,
			Location:  s.location,
			User:      user,
		})
		state.location = s.location
		entries = append(entries, s.resultEntry(state))
	}

	if _, seen := sess.seenCases[req.CaseID]; !seen {
		sess.seenCases[req.CaseID] = struct{}{}
		sess.scannedCases++
	}
	s.sessions.Set(sess.key, sess, cache.DefaultExpiration)
	observability.RecordScan(s.officeCode, "accepted", len(entries))

	return ledger.ScanResponse{
		Success:           true,
		Message:           "scan recorded",
		Data:              entries,
		SessionKey:        sess.key,
		CurrentOfficeCode: s.officeCode,
		ScannedCasesCount: sess.scannedCases,
	}, nil
}

// SlipHistory returns the chain-of-custody view of one slip, oldest first.
func (s *Store) SlipHistory(slipID int) (ledger.SlipRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.slips[slipID]
	if !ok {
		return ledger.SlipRecord{}, fmt.Errorf("%w: %d", ErrSlipNotFound, slipID)
	}
	history := make([]ledger.HistoryEntry, len(state.history))
	copy(history, state.history)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
	return ledger.SlipRecord{
		ID:              state.slip.ID,
		SlipNumber:      state.slip.SlipNumber,
		CurrentLocation: state.location,
		History:         history,
	}, nil
}

// resolveSession returns the live session for key, or mints a fresh one when
// the key is empty, unknown, or expired.
func (s *Store) resolveSession(key string) *scanSession {
	key = strings.TrimSpace(key)
	if key != "" {
		if v, ok := s.sessions.Get(key); ok {
			return v.(*scanSession)
		}
	}
	sess := &scanSession{
		key:       uuid.NewString(),
		seenCases: make(map[int]struct{}),
	}
	s.sessions.Set(sess.key, sess, cache.DefaultExpiration)
	observability.RecordSessionStarted(s.officeCode)
	return sess
}

func (s *Store) resultEntry(state *slipState) ledger.ScanResultEntry {
	return ledger.ScanResultEntry{
		CaseID:                state.slip.CaseID,
		CaseNumber:            state.slip.CaseNumber,
		SlipID:                state.slip.ID,
		SlipNumber:            state.slip.SlipNumber,
		PatientName:           state.slip.PatientName,
		CasepanNumber:         state.slip.CasepanNumber,
		LocationID:            s.locationID,
		Location:              state.location,
		CurrentDriverLocation: state.location,
		CustomerCode:          state.slip.CustomerCode,
		CustomerID:            state.slip.CustomerID,
	}
}
