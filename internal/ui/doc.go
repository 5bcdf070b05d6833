// Package ui implements the terminal UI for watching a workflow run to
// completion, built with [bubbletea].
//
// The watch model polls the execution backend once a second and renders the
// live progress snapshot until the workflow reaches a terminal state.
package ui
