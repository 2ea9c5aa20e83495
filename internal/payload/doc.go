// Package payload decodes raw scanned QR text into case and slip identifiers.
//
// Ownership boundary:
// - recognized text encodings and their precedence
// - numeric coercion of case/slip identifiers
// - no I/O, no session or transport concerns
package payload
