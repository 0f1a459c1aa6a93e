// Package cli provides the interactive kinlink command-line client.
//
// It wires configuration, local storage, the registry client and the link
// resolution pipeline behind a small REPL. Typical flow: sign in (online
// with offline fallback), let the background workers probe connectivity
// and sync the family graph, then open links and scanned codes.
//
// Links opened while signed out are kept as a deferred link and opened right
// after the next successful login.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
