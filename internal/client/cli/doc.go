// Package cli provides the interactive deductsync command-line client.
//
// It wires configuration, the local SQLite store, the REST API client and
// the sync services into an interactive REPL that supports online/offline
// operation. Typical flow: log in, let the connectivity watcher run in the
// background, and record donations whether the server is reachable or not.
//
// Key features:
//   - Login / Logout with cache eviction on identity change
//   - Add / list / show / delete donations (optimistic, outbox-backed)
//   - Charity directory search and management
//   - Receipt upload with deferred confirmation for pending donations
//   - Manual sync and pull, yearly CSV export
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher and Root for details.
package cli
