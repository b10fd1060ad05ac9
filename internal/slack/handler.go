// Package slack answers questions posted to a Slack bot through the Events API.
package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/godeye/godeye/internal/assistant"
	"github.com/godeye/godeye/internal/dispatch"
	"github.com/godeye/godeye/internal/observability"
)

const maxBodyBytes = 1 << 20

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

type Asker interface {
	Ask(ctx context.Context, req assistant.Request) assistant.Answer
}

type envelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	EventID   string `json:"event_id"`
	Event     event  `json:"event"`
}

type event struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype"`
	User     string `json:"user"`
	BotID    string `json:"bot_id"`
	Text     string `json:"text"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}

type Handler struct {
	Asker         Asker
	Poster        Poster
	Deduper       *Deduper
	Queue         *dispatch.Queue
	SigningSecret string
	BotUserID     string
	TableRows     int
	Logger        *slog.Logger
	Clock         func() time.Time
}

// ServeHTTP verifies and acknowledges the event, then answers it on the queue.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}
	if err := VerifySignature(h.SigningSecret, r.Header, body, h.now()); err != nil {
		h.logger().WarnContext(r.Context(), "rejected slack request", slog.Any("error", err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var payload envelope
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	switch payload.Type {
	case "url_verification":
		writeJSON(w, map[string]string{"challenge": payload.Challenge})
		return
	case "event_callback":
	default:
		writeJSON(w, map[string]bool{"ok": true})
		return
	}

	if h.Deduper != nil && h.Deduper.Seen(payload.EventID) {
		observability.IncrementSlackDuplicate()
		h.logger().DebugContext(r.Context(), "ignoring duplicate slack event", slog.String("event_id", payload.EventID))
		writeJSON(w, map[string]bool{"ok": true})
		return
	}

	question, ok := h.question(payload.Event)
	if ok {
		ev := payload.Event
		traceID := observability.TraceIDFromContext(r.Context())
		queued := h.Queue.Submit(func(ctx context.Context) {
			h.answer(observability.ContextWithTraceID(ctx, traceID), ev, question)
		})
		if !queued {
			if h.Deduper != nil {
				h.Deduper.Forget(payload.EventID)
			}
			h.logger().WarnContext(r.Context(), "slack event not queued, asking for redelivery",
				slog.String("trace_id", traceID),
				slog.String("event_id", payload.EventID),
				slog.String("channel", ev.Channel),
			)
			http.Error(w, "busy, retry later", http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, map[string]bool{"ok": true})
}

// question filters out bot, self and edited messages and strips mentions of the bot.
func (h *Handler) question(ev event) (string, bool) {
	if ev.Type != "message" && ev.Type != "app_mention" {
		return "", false
	}
	if ev.Subtype != "" || ev.BotID != "" {
		return "", false
	}
	if h.BotUserID != "" && ev.User == h.BotUserID {
		return "", false
	}
	text := strings.TrimSpace(mentionPattern.ReplaceAllString(ev.Text, ""))
	if text == "" || ev.Channel == "" {
		return "", false
	}
	return text, true
}

func (h *Handler) answer(ctx context.Context, ev event, question string) {
	answer := h.Asker.Ask(ctx, assistant.Request{Question: question, Surface: assistant.SurfaceSlack})
	message := Message{
		Channel:  ev.Channel,
		ThreadTS: ev.ThreadTS,
		Text:     "SQL Query and Answer",
		Blocks:   AnswerBlocks(answer, h.TableRows),
	}
	if err := h.Poster.PostMessage(ctx, message); err != nil {
		h.logger().ErrorContext(ctx, "slack reply failed",
			slog.String("trace_id", answer.TraceID),
			slog.String("channel", ev.Channel),
			slog.Any("error", err),
		)
	}
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock()
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return observability.NopLogger()
	}
	return h.Logger
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
