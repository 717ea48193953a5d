// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for managing lesson and course media:
//  1. [OwnerListView] : Browse lessons and courses from the backend
//  2. [StatusView] : Inspect the reconciled media state for one owner
//  3. [UploadView] : Enter a video file path to upload
//  4. [ConfirmDeleteView] : Confirm removal of the attached video
//  5. [ProgressView] : Monitor upload, transcode and deletion progress
//  6. [ResultView] : Display the settled outcome
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Lifecycle events flow through the machine's update channel, bridged into messages one read at a time so long operations never block the render loop.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
