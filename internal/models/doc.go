// Package models defines the data model for UPC playlist tracking.
//
// Three persisted collections back the tracker: the pending-check queue
// (QueueEntry, at most one per code), recorded placements (Hit, at most one
// per code) and the OAuth token state (TokenSet, single row). Release and
// LookupResult are transient shapes produced while processing a code.
package models
