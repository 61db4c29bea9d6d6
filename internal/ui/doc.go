// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a small workflow for reopening work:
//  1. [RecentListView] : browse and filter recently opened projects
//  2. [LoadingView] : spinner and progress bar fed by the load pipeline
//  3. [ResultView] : which parts of the project loaded, or the localized failure
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the load pipeline; the pipeline never blocks on a slow UI.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
