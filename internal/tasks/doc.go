// Package tasks contains the check engine and the background queue worker.
//
// [Engine] processes one UPC code at a time: resolve the release, query
// playlist placements, then either record a hit or decide the retry schedule.
// [Worker] periodically re-runs the engine over queue entries whose check
// date has come due.
package tasks
