// Package repositories provides the persistence layer for the tracker's three
// collections: the pending-check queue, recorded playlist hits and the OAuth
// credential state.
//
// All three are owned exclusively by this package; the check engine and the
// credential manager read and write through it and hold no copies across
// calls. Queue and hit rows are upserted keyed on UPC, so each collection
// holds at most one row per code.
package repositories
