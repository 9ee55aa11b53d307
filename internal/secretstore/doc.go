// Package secretstore reads and writes the Twitch application's client secret.
//
// Backends:
//   - Document: the clientSecret field of the credentials document (default)
//   - File: a dedicated 0600 file, written atomically
//   - Env: a read-only environment variable
//   - Keyring: OS-native credential storage (macOS Keychain, Secret Service, etc.)
package secretstore
