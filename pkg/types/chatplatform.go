package types

import "context"

// ChannelID identifies a chat channel the bot is reading questions into.
type ChannelID string

// UserID identifies a chat user.
type UserID string

// MessageID identifies a previously sent message, for later edits.
type MessageID string

// InboundMessage is a single user-authored message delivered by the chat
// platform, either a command invocation or free text (a buzz word, a
// prompted answer).
type InboundMessage struct {
	Channel   ChannelID
	User      UserID
	Text      string
	Timestamp int64 // Unix seconds the platform received the message
	IsBot     bool  // true for messages authored by another bot, never a real player
}

// ChatPlatform is the seam between the reader/handler code and whatever
// chat SDK is actually wired in. A console-backed implementation exercises
// it for local runs and tests; a real deployment would back it with the
// out-of-scope chat vendor's SDK.
type ChatPlatform interface {
	// Say posts a new message to channel and returns its ID.
	Say(ctx context.Context, channel ChannelID, text string) (MessageID, error)
	// Edit replaces the content of a previously sent message.
	Edit(ctx context.Context, channel ChannelID, id MessageID, text string) error
	// React attaches an emoji reaction to a previously sent message.
	React(ctx context.Context, channel ChannelID, id MessageID, emoji string) error
	// Mention formats a user reference for inclusion in message text.
	Mention(user UserID) string
	// Events streams inbound messages for every channel the platform is
	// watching. Closed when the platform shuts down.
	Events() <-chan InboundMessage
}
