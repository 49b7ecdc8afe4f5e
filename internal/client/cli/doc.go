// Package cli provides the interactive storefront command-line client.
//
// It wires configuration, local storage, the auth backend (local registry or
// remote server), the route guard and an interactive REPL. Typical flow:
// restore the stored session, open the home page (which sends a signed-out
// visitor to the login page), then execute user commands.
//
// Key features:
//   - Register / Login / Logout with redirect back to the page that asked
//     for sign-in
//   - Page navigation through the route guard (go <path>)
//   - Role changes for admins (promote)
//   - Connectivity watcher in remote mode
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See NewRootCommand for the cobra entry point.
package cli
