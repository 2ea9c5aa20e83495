// Package ledgerd is an in-memory reference implementation of the
// scan-ledger service contract.
//
// It exists so the client packages and driver tooling have a real endpoint to
// develop and test against. It keeps the same wire shapes as the production
// service but owns no durable storage.
package ledgerd
