package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ScanRequest is the POST /slip/scan-qr body. SessionKey is omitted on the
// first scan of a run; the service mints a key in that case.
type ScanRequest struct {
	CaseID     int    `json:"case_id"`
	SlipIDs    []int  `json:"slip_ids"`
	SessionKey string `json:"session_key,omitempty"`
}

func (r ScanRequest) Validate() error {
	if r.CaseID <= 0 {
		return fmt.Errorf("%w: case_id must be positive", ErrInvalidRequest)
	}
	if len(r.SlipIDs) == 0 {
		return fmt.Errorf("%w: slip_ids must not be empty", ErrInvalidRequest)
	}
	for i, id := range r.SlipIDs {
		if id <= 0 {
			return fmt.Errorf("%w: slip_ids[%d] must be positive", ErrInvalidRequest, i)
		}
	}
	return nil
}

// ScanResultEntry is one (case, slip) pairing recorded by a scan. Entries are
// produced by the ledger service; clients only read them.
type ScanResultEntry struct {
	CaseID                int    `json:"case_id"`
	CaseNumber            string `json:"case_number"`
	SlipID                int    `json:"slip_id"`
	SlipNumber            string `json:"slip_number"`
	PatientName           string `json:"patient_name"`
	CasepanNumber         string `json:"casepan_number"`
	LocationID            int    `json:"location_id"`
	Location              string `json:"location"`
	CurrentDriverLocation string `json:"current_driver_location"`
	CustomerCode          string `json:"customer_code"`
	CustomerID            int    `json:"customer_id"`
}

// ScanResponse is the scan-qr response envelope. The service always returns a
// session key, even when one was supplied, and may rotate it.
type ScanResponse struct {
	Success           bool              `json:"success"`
	Message           string            `json:"message"`
	Data              []ScanResultEntry `json:"data"`
	SessionKey        string            `json:"session_key"`
	CurrentOfficeCode string            `json:"current_office_code"`
	ScannedCasesCount int               `json:"scanned_cases_count"`
}

// Validate enforces the response shape a caller may rely on: accepted flag,
// at least one result entry, and a non-empty session key. A transport-level
// 200 with a body failing any of these is still an invalid response.
func (r ScanResponse) Validate() error {
	if !r.Success {
		msg := strings.TrimSpace(r.Message)
		if msg == "" {
			msg = "success=false"
		}
		return fmt.Errorf("%w: %s", ErrInvalidResponse, msg)
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("%w: empty data", ErrInvalidResponse)
	}
	if strings.TrimSpace(r.SessionKey) == "" {
		return fmt.Errorf("%w: missing session_key", ErrInvalidResponse)
	}
	return nil
}

// HistoryEntry is one custody-transfer record for a slip. Records are
// append-only and owned by the ledger service.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location"`
	User      string    `json:"user"`
	Receiver  string    `json:"receiver,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// SlipRecord is the assembled chain-of-custody view of one slip. History is
// ordered by timestamp ascending so a timeline renders top to bottom.
type SlipRecord struct {
	ID              int            `json:"id"`
	SlipNumber      string         `json:"slip_number"`
	CurrentLocation string         `json:"current_location"`
	History         []HistoryEntry `json:"driver_history"`
}

// SlipCore is the slip half of the driver-history response, without its
// history entries.
type SlipCore struct {
	ID              int    `json:"id"`
	SlipNumber      string `json:"slip_number"`
	CurrentLocation string `json:"current_location"`
}

// HistoryResponse is the GET /slip/driver-history/slip/{id} envelope.
type HistoryResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    HistoryData `json:"data"`
}

type HistoryData struct {
	Slip          SlipCore       `json:"slip"`
	DriverHistory []HistoryEntry `json:"driver_history"`
}

// Record assembles the slip core and its history into one ordered view.
func (r HistoryResponse) Record() SlipRecord {
	history := make([]HistoryEntry, len(r.Data.DriverHistory))
	copy(history, r.Data.DriverHistory)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
	return SlipRecord{
		ID:              r.Data.Slip.ID,
		SlipNumber:      r.Data.Slip.SlipNumber,
		CurrentLocation: r.Data.Slip.CurrentLocation,
		History:         history,
	}
}

// MergeLatest overlays the newest scan result onto a fetched record so a
// display reflects the transfer recorded moments ago. Entries for a different
// slip leave the record untouched. Applying it is the embedding surface's
// concern: only a caller holding both a fetched record and a scan result it
// just submitted has anything to merge, so standalone history readers print
// the fetch as-is.
func MergeLatest(rec SlipRecord, entry ScanResultEntry) SlipRecord {
	if entry.SlipID != rec.ID {
		return rec
	}
	if loc := strings.TrimSpace(entry.CurrentDriverLocation); loc != "" {
		rec.CurrentLocation = loc
	}
	if rec.SlipNumber == "" {
		rec.SlipNumber = entry.SlipNumber
	}
	return rec
}
