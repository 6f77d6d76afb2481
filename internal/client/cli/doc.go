// Package cli provides the interactive GophSend command-line client.
//
// It wires configuration, the local store, the API client and the services
// into a REPL. Typical flow: restore a sealed session if there is one, start
// the background connectivity watcher and file list sync, and execute user
// commands.
//
// Key features:
//   - Login (OAuth with PKCE) / Unlock / Logout
//   - Upload files and print the share link
//   - Download a shared file, asking for its password when needed
//   - List owned files, change their download limit or password, delete them
//   - Sync the owned file list with the account
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
