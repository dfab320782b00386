// Package ui implements the terminal front end using bubbletea's Elm architecture.
//
// The TUI mirrors the web page:
//  1. [BoardView] : the stone list beside the empty bowl
//  2. [FocusView] : the single task in the bowl with the daily reflection
//  3. [AddView] : a text input for a new stone
//  4. [HelpView] : the onboarding dialog, rendered from Markdown with glamour
//
// Drag and drop becomes a keyboard gesture: space picks a stone up, moving the cursor chooses a target, and
// space (another stone) or b (the bowl) releases it. esc cancels the gesture. Every release goes through
// [dnd.Controller.Drop], so the terminal and the web API share one set of rules.
//
// The reflection is fetched by a [tea.Cmd] and arrives as a message; the view never waits for it.
package ui
