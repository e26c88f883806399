// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for playlist generation:
//  1. [MoodListView] : Browse and select a mood profile
//  2. [ConfirmView] : Review artists, genre, and mood before generating
//  3. [GenerateView] : Monitor real-time progress updates
//  4. [ResultView] : Display the created playlist and any unresolved artists
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the GenerateEngine, providing non-blocking status reporting during generation.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
