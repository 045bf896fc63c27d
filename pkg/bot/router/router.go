// Package router is the message-handling state machine: it classifies
// inbound transport events, drives engagement tracking and promotion,
// queries the completion service, and escalates low-confidence answers
// to a human operator.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lium-dot/alpha/pkg/bot/escalate"
	"github.com/lium-dot/alpha/pkg/bot/llm"
	"github.com/lium-dot/alpha/pkg/bot/transport"
)

// User-visible reply templates. The wording is part of the bot's contract
// with its users and operator; tests pin it.
const (
	replyAudioError   = "⚠️ Couldn't process audio message"
	replyTextError    = "⚠️ Error processing request"
	replyConsulting   = "Consulting knowledge base... ⏳"
	operatorCmdPrefix = "/ans"
)

// Config carries the fixed routing policy.
type Config struct {
	// OperatorID is the conversation identifier of the human operator.
	OperatorID string

	// WakeWord addresses the bot; matched case-insensitively at the start
	// of a trimmed message and stripped everywhere before prompting.
	WakeWord string

	// Threshold is the message count at which a conversation is promoted.
	Threshold int
}

// Tracker counts qualifying inbound messages per conversation.
type Tracker interface {
	Record(conversationID string) int
}

// PermissionStore is the approval allow-list contract.
type PermissionStore interface {
	IsApproved(conversationID string) bool
	Grant(conversationID string) error
}

// Queue holds queries awaiting an operator answer.
type Queue interface {
	Enqueue(requester, displayName, prompt string) (string, error)
	Resolve(token string) (escalate.PendingQuery, bool)
}

// AudioPipeline turns a raw voice-note payload into text.
type AudioPipeline interface {
	Transcribe(ctx context.Context, raw []byte) (string, error)
}

// Deps are the collaborators a Router orchestrates. All state lives in
// them; the Router itself only holds policy.
type Deps struct {
	Tracker    Tracker
	Permits    PermissionStore
	Queue      Queue
	Completer  llm.Completer
	Audio      AudioPipeline
	Downloader transport.MediaDownloader
	Sender     transport.Sender
	Logger     *slog.Logger
}

// Router consumes inbound events and produces outbound replies.
type Router struct {
	cfg  Config
	deps Deps
}

// New creates a Router. Deps.Logger may be nil.
func New(cfg Config, deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Router{cfg: cfg, deps: deps}
}

// Handle processes one inbound transport event. It never panics: failures
// in the requester flow are converted into a single generic error reply.
func (r *Router) Handle(ctx context.Context, msg transport.Message) {
	if msg.FromSelf {
		return
	}
	if msg.From == r.cfg.OperatorID {
		r.handleOperator(ctx, msg)
		return
	}
	r.handleRequester(ctx, msg)
}

func (r *Router) handleRequester(ctx context.Context, msg transport.Message) {
	defer func() {
		if v := recover(); v != nil {
			r.deps.Logger.Error("requester handler panicked", "panic", v, "from", msg.From)
			if msg.Audio {
				r.send(ctx, msg.From, replyAudioError)
			} else {
				r.send(ctx, msg.From, replyTextError)
			}
		}
	}()

	prompt := msg.Text
	if msg.Audio {
		raw, err := r.deps.Downloader.DownloadAudio(ctx, msg)
		var text string
		if err == nil {
			text, err = r.deps.Audio.Transcribe(ctx, raw)
		}
		if err != nil {
			r.deps.Logger.Error("audio transcription failed", "error", err, "from", msg.From)
			r.send(ctx, msg.From, replyAudioError)
			return
		}
		prompt = text
	}

	// Engagement is recorded before any permission check, wake word or not.
	count := r.deps.Tracker.Record(msg.From)
	if count >= r.cfg.Threshold {
		if err := r.deps.Permits.Grant(msg.From); err != nil {
			// Promotion write failures never block the reply already underway.
			r.deps.Logger.Warn("promotion write failed", "error", err, "from", msg.From)
		}
	}

	prompt = strings.TrimSpace(prompt)
	if !hasWakeWord(prompt, r.cfg.WakeWord) {
		return
	}
	prompt = stripWakeWord(prompt, r.cfg.WakeWord)

	if !r.deps.Permits.IsApproved(msg.From) {
		r.send(ctx, msg.From, fmt.Sprintf("🔒 You need %d more messages to use Alpha", r.cfg.Threshold-count))
		return
	}

	answer, err := r.deps.Completer.Complete(ctx, prompt)
	if llm.LowConfidence(answer, err) {
		if err != nil {
			r.deps.Logger.Warn("completion failed, escalating", "error", err, "from", msg.From)
		}
		r.escalate(ctx, msg, prompt)
		return
	}
	r.send(ctx, msg.From, answer)
}

func (r *Router) escalate(ctx context.Context, msg transport.Message, prompt string) {
	name := msg.PushName
	if name == "" {
		name = "Unknown"
	}

	token, err := r.deps.Queue.Enqueue(msg.From, name, prompt)
	if err != nil {
		r.deps.Logger.Error("escalation enqueue failed", "error", err, "from", msg.From)
		r.send(ctx, msg.From, replyTextError)
		return
	}

	notice := fmt.Sprintf(
		"❓ Assistance Request\n\nUser: %s\nQuery: %s\nID: %s\nReply with: %s %s [response]",
		name, prompt, token, operatorCmdPrefix, token,
	)
	r.send(ctx, r.cfg.OperatorID, notice)
	r.send(ctx, msg.From, replyConsulting)
}

// handleOperator parses "/ans <token> <reply...>" from the operator and
// forwards the reply to the original requester. Anything else from the
// operator, including unknown tokens, is dropped without feedback.
func (r *Router) handleOperator(ctx context.Context, msg transport.Message) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, operatorCmdPrefix) {
		return
	}

	parts := strings.Fields(text)
	if len(parts) < 2 {
		return
	}
	token := parts[1]
	reply := strings.Join(parts[2:], " ")

	pq, ok := r.deps.Queue.Resolve(token)
	if !ok {
		r.deps.Logger.Debug("operator reply matched no pending query", "token", token)
		return
	}
	r.send(ctx, pq.Requester, "🤖 Alpha: "+reply)
}

func (r *Router) send(ctx context.Context, to, text string) {
	if err := r.deps.Sender.Send(ctx, to, text); err != nil {
		r.deps.Logger.Error("send failed", "error", err, "to", to)
	}
}

// hasWakeWord reports whether the trimmed message addresses the bot.
func hasWakeWord(text, wakeWord string) bool {
	if wakeWord == "" {
		return false
	}
	return strings.HasPrefix(lowerASCII(text), lowerASCII(wakeWord))
}

// stripWakeWord removes every occurrence of the wake word, case
// insensitively, and trims the remainder.
func stripWakeWord(text, wakeWord string) string {
	if wakeWord == "" {
		return strings.TrimSpace(text)
	}
	lower := lowerASCII(wakeWord)
	var b strings.Builder
	for {
		i := strings.Index(lowerASCII(text), lower)
		if i < 0 {
			b.WriteString(text)
			break
		}
		b.WriteString(text[:i])
		text = text[i+len(wakeWord):]
	}
	return strings.TrimSpace(b.String())
}

// lowerASCII folds only A-Z so byte offsets stay valid for any message
// body, unlike strings.ToLower on arbitrary Unicode.
func lowerASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
