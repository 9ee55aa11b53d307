// Package twitch is a minimal client for the Twitch identity and Helix APIs.
//
// It covers what credential management needs and nothing more:
//   - Authorization-code exchange via golang.org/x/oauth2
//   - Token validation against id.twitch.tv
//   - User profile lookup via Helix
//
// A Client also carries a live bearer token that follows the role's active
// account. Calls that act as the signed-in user (Me) use it; calls made during
// authorization take the new token explicitly.
//
//	c, _ := twitch.NewClient(clientID)
//	grant, err := c.Exchange(ctx, code, clientSecret, redirectURI)
package twitch
