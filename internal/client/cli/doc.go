// Package cli provides the interactive heartwall command-line client.
//
// It wires configuration, the server API client, the gallery service and an
// interactive REPL. Typical flow: load history, start the background
// listener and connectivity watcher, then execute user commands.
//
// Key features:
//   - List the memory wall, newest first
//   - Open a photo, pan and zoom it under the heart mask, write a preview
//   - Upload it with a nickname and a short message
//   - Print cards uploaded by other people as they arrive
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
