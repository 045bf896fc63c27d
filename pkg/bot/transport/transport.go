// Package transport defines the messaging-transport contracts the bot
// consumes, plus a WebSocket bridge implementation of them. The transport
// proper (pairing, delivery guarantees, credential storage) lives in an
// external bridge process; this package only speaks its wire protocol.
package transport

import "context"

// Message is one inbound transport event.
type Message struct {
	// From is the opaque conversation identifier of the counterpart.
	From string

	// PushName is the display name supplied by the transport, if any.
	PushName string

	// Text is the message body for text messages.
	Text string

	// Audio marks a voice note; MediaID then references its payload.
	Audio   bool
	MediaID string

	// FromSelf marks messages originated by the bot's own account.
	FromSelf bool
}

// Sender delivers a text payload to a conversation.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// MediaDownloader fetches the raw payload of a voice note.
type MediaDownloader interface {
	DownloadAudio(ctx context.Context, msg Message) ([]byte, error)
}
