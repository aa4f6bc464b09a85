// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The screen is chosen by the view router from the session snapshot:
//  1. Loading : a spinner while a stored credential is verified
//  2. Login : press enter to sign in through the browser
//  3. Dashboard : Videos and Channels tabs over the feed synchronizer's state
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Every backend call runs as a [tea.Cmd]; the model re-reads the session and feed snapshots when each one resolves.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, r, o, x, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
