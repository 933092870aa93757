// Package ui implements the interactive terminal player using bubbletea's Elm architecture.
//
// The TUI switches between views with tab:
//  1. [LibraryView] : Browse tracks, play one, or add it to the open editor
//  2. [PlaylistsView] : Play a playlist from its first track, edit it, or start a new one
//  3. [EditorView] : Rename, trim and reorder the working copy by keyboard or mouse drag, then save
//  4. [ExpandedView] : Full player with a spectrum visualizer
//
// A compact player bar sits under every view while the session reports the player as visible.
// The [Model] subscribes to the session and re-renders on each published state. Visualizers are
// mounted per view: entering the library or the expanded player creates one and leaving closes it,
// so render ticks only run for what is on screen.
//
// Transport keys (space, <, >, [, ], +, -, m) work from every view. Editor rows are two cells tall;
// dragging a row past the midpoint of its neighbour moves it there.
package ui
