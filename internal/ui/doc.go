// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a browser over the tracker's stored state:
//  1. [HitListView] : Browse recorded playlist placements, grouped visually by release week
//  2. [HitDetailView] : Inspect the playlist lines of one placement
//  3. [QueueListView] : Review codes still awaiting a scheduled check
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, tab, q) with contextual
// help displayed via charmbracelet/bubbles/help.
package ui
