package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// frame is the JSON envelope exchanged with the bridge process.
type frame struct {
	Type string `json:"type"`

	// "message" (inbound)
	From     string `json:"from,omitempty"`
	PushName string `json:"push_name,omitempty"`
	Text     string `json:"text,omitempty"`
	Audio    bool   `json:"audio,omitempty"`
	MediaID  string `json:"media_id,omitempty"`
	FromSelf bool   `json:"from_self,omitempty"`

	// "send" (outbound)
	To string `json:"to,omitempty"`

	// "fetch_media" (outbound) / "media" (inbound)
	ID    int64  `json:"id,omitempty"`
	Data  []byte `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type mediaResult struct {
	data []byte
	err  error
}

// Bridge is a WebSocket session with the messaging bridge. It implements
// Sender and MediaDownloader and surfaces inbound events on Messages.
type Bridge struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	messages chan Message
	done     chan struct{}
	closed   atomic.Bool

	fetchMu sync.Mutex
	fetches map[int64]chan mediaResult
	nextID  atomic.Int64
}

// Dial connects to the bridge at url and starts reading events.
func Dial(ctx context.Context, url string, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bridge connect %q: %w", url, err)
	}

	b := &Bridge{
		conn:     conn,
		logger:   logger,
		messages: make(chan Message, 16),
		done:     make(chan struct{}),
		fetches:  make(map[int64]chan mediaResult),
	}
	go b.readLoop()
	return b, nil
}

// Messages returns the inbound event channel. It is closed when the
// bridge session ends.
func (b *Bridge) Messages() <-chan Message {
	return b.messages
}

func (b *Bridge) readLoop() {
	defer func() {
		close(b.done)
		close(b.messages)
		b.failPendingFetches(fmt.Errorf("bridge session closed"))
	}()

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			if !b.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Error("bridge read failed", "error", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			b.logger.Warn("bridge sent malformed frame", "error", err)
			continue
		}

		switch f.Type {
		case "message":
			b.messages <- Message{
				From:     f.From,
				PushName: f.PushName,
				Text:     f.Text,
				Audio:    f.Audio,
				MediaID:  f.MediaID,
				FromSelf: f.FromSelf,
			}
		case "media":
			b.deliverMedia(f)
		default:
			b.logger.Debug("bridge sent unknown frame type", "type", f.Type)
		}
	}
}

func (b *Bridge) deliverMedia(f frame) {
	b.fetchMu.Lock()
	ch, ok := b.fetches[f.ID]
	if ok {
		delete(b.fetches, f.ID)
	}
	b.fetchMu.Unlock()
	if !ok {
		return
	}

	if f.Error != "" {
		ch <- mediaResult{err: fmt.Errorf("bridge media fetch: %s", f.Error)}
		return
	}
	ch <- mediaResult{data: f.Data}
}

func (b *Bridge) failPendingFetches(err error) {
	b.fetchMu.Lock()
	defer b.fetchMu.Unlock()
	for id, ch := range b.fetches {
		delete(b.fetches, id)
		ch <- mediaResult{err: err}
	}
}

// Send delivers a text payload to a conversation.
func (b *Bridge) Send(ctx context.Context, to, text string) error {
	return b.writeFrame(frame{Type: "send", To: to, Text: text})
}

// DownloadAudio fetches the payload referenced by an audio message. The
// reply is correlated by request id, so concurrent downloads do not mix.
func (b *Bridge) DownloadAudio(ctx context.Context, msg Message) ([]byte, error) {
	id := b.nextID.Add(1)
	ch := make(chan mediaResult, 1)

	b.fetchMu.Lock()
	b.fetches[id] = ch
	b.fetchMu.Unlock()

	if err := b.writeFrame(frame{Type: "fetch_media", ID: id, MediaID: msg.MediaID}); err != nil {
		b.fetchMu.Lock()
		delete(b.fetches, id)
		b.fetchMu.Unlock()
		return nil, err
	}

	select {
	case res := <-ch:
		return res.data, res.err
	case <-ctx.Done():
		b.fetchMu.Lock()
		delete(b.fetches, id)
		b.fetchMu.Unlock()
		return nil, ctx.Err()
	case <-b.done:
		return nil, fmt.Errorf("bridge session closed")
	}
}

func (b *Bridge) writeFrame(f frame) error {
	if b.closed.Load() {
		return fmt.Errorf("bridge closed")
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("bridge write: %w", err)
	}
	return nil
}

// Close shuts the session down. Safe to call more than once.
func (b *Bridge) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.writeMu.Lock()
	_ = b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	b.writeMu.Unlock()
	return b.conn.Close()
}
