// Package credstore persists the application's Twitch credentials document.
//
// The document holds the registered client id and secret plus one account
// slot per role. It is loaded once at startup and rewritten in full after
// every mutation:
//   - Load fails hard when the file is missing or malformed; there is no
//     empty fallback because the process cannot run without a client id.
//   - Trailing commas and comments are tolerated on read (JWCC).
//   - Writes use temp file + rename with 0600 permissions.
//   - A loaded Store holds an exclusive lock on a sidecar "<file>.lock", so
//     a second process cannot load the document and write back a stale copy
//     over the owner's changes.
//
// Slots are only mutated through Store.Update, which applies the change to a
// copy and commits it to memory after the write succeeds, so a failed save
// leaves both memory and disk at the previous state.
package credstore
