package scopes

import "github.com/florianilch/jolt-auth/internal/account"

// Defaults returns the scope requirements of every operation the bot performs.
func Defaults() []Requirement {
	return []Requirement{
		// chat bot
		{Operation: "chat.read", Scope: "chat:read", Role: account.ChatBot},
		{Operation: "chat.read", Scope: "user:read:chat", Role: account.ChatBot},
		{Operation: "chat.send", Scope: "chat:edit", Role: account.ChatBot},
		{Operation: "chat.send", Scope: "user:write:chat", Role: account.ChatBot},
		{Operation: "chat.announce", Scope: "moderator:manage:announcements", Role: account.ChatBot},
		{Operation: "chat.shoutout", Scope: "moderator:manage:shoutouts", Role: account.ChatBot},
		{Operation: "whisper.send", Scope: "user:manage:whispers", Role: account.ChatBot},
		{Operation: "moderation.delete", Scope: "moderator:manage:chat_messages", Role: account.ChatBot},
		{Operation: "moderation.ban", Scope: "moderator:manage:banned_users", Role: account.ChatBot},

		// streamer
		{Operation: "redemptions.list", Scope: "channel:read:redemptions", Role: account.Streamer},
		{Operation: "redemptions.fulfill", Scope: "channel:manage:redemptions", Role: account.Streamer},
		{Operation: "broadcast.update", Scope: "channel:manage:broadcast", Role: account.Streamer},
		{Operation: "subscriptions.list", Scope: "channel:read:subscriptions", Role: account.Streamer},
		{Operation: "bits.events", Scope: "bits:read", Role: account.Streamer},
		{Operation: "followers.events", Scope: "moderator:read:followers", Role: account.Streamer},
		{Operation: "raids.start", Scope: "channel:manage:raids", Role: account.Streamer},
		{Operation: "ads.schedule", Scope: "channel:read:ads", Role: account.Streamer},
		{Operation: "chat.bot", Scope: "channel:bot", Role: account.Streamer},
	}
}
