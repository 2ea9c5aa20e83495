// Package ledger is the client for the scan-ledger service, the system of
// record for custody scans and driver history.
//
// Ownership boundary:
// - wire shapes for scan submit and history fetch
// - response-shape validation
// - transport errors mapped to a small, matchable taxonomy
//
// The client never mutates session state; committing a returned session key
// is the orchestrator's job.
package ledger
