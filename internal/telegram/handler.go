// Package telegram answers questions sent to a Telegram bot webhook.
package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/godeye/godeye/internal/assistant"
	"github.com/godeye/godeye/internal/dispatch"
	"github.com/godeye/godeye/internal/observability"
	"github.com/godeye/godeye/internal/prompt"
)

const (
	secretHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxBodyBytes = 1 << 20
)

type Asker interface {
	Ask(ctx context.Context, req assistant.Request) assistant.Answer
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	MessageID int64  `json:"message_id"`
	Chat      chat   `json:"chat"`
	Text      string `json:"text"`
}

type chat struct {
	ID int64 `json:"id"`
}

type Handler struct {
	Asker       Asker
	Sender      Sender
	Queue       *dispatch.Queue
	SecretToken string
	// Latest is the newest date in the dataset. Zero disables the date guards.
	Latest     time.Time
	ReplyLimit int
	Logger     *slog.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.SecretToken != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(h.SecretToken)) != 1 {
		h.logger().WarnContext(r.Context(), "rejected telegram request", slog.String("remote_addr", r.RemoteAddr))
		http.Error(w, "invalid secret token", http.StatusUnauthorized)
		return
	}

	var payload update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if payload.Message != nil && payload.Message.Chat.ID != 0 {
		msg := *payload.Message
		traceID := observability.TraceIDFromContext(r.Context())
		queued := h.Queue.Submit(func(ctx context.Context) {
			h.answer(observability.ContextWithTraceID(ctx, traceID), msg)
		})
		if !queued {
			h.logger().WarnContext(r.Context(), "telegram update not queued, asking for redelivery",
				slog.String("trace_id", traceID),
				slog.Int64("chat_id", msg.Chat.ID),
			)
			http.Error(w, "busy, retry later", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (h *Handler) answer(ctx context.Context, msg message) {
	reply := h.reply(ctx, msg.Text)
	if err := h.Sender.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		h.logger().ErrorContext(ctx, "telegram reply failed",
			slog.Int64("chat_id", msg.Chat.ID),
			slog.Any("error", err),
		)
	}
}

// reply applies the dataset date guards before asking.
func (h *Handler) reply(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return invalidQuestionReply
	}
	question := text
	if !h.Latest.IsZero() {
		if years := prompt.FutureYears(text, h.Latest); len(years) > 0 {
			h.logger().InfoContext(ctx, "question asks past the dataset", slog.Int("year", slices.Max(years)))
			return futureYearReply(h.Latest.Year())
		}
		question = prompt.AnnotateRelativeTime(text, h.Latest)
	}
	answer := h.Asker.Ask(ctx, assistant.Request{Question: question, Surface: assistant.SurfaceTelegram})
	return Reply(answer, h.ReplyLimit)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return observability.NopLogger()
	}
	return h.Logger
}
