// README: LINE webhook callback; routes text messages into the order workflow.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.uber.org/zap"
)

type Conversation interface {
	Handle(ctx context.Context, owner, text string) []string
}

type Replier interface {
	Reply(ctx context.Context, replyToken string, texts []string) error
}

type EventClaimer interface {
	Claim(ctx context.Context, key string) (bool, error)
}

type CallbackHandler struct {
	secret   string
	workflow Conversation
	replier  Replier
	events   EventClaimer
	log      *zap.Logger
}

func NewCallbackHandler(secret string, workflow Conversation, replier Replier, events EventClaimer, log *zap.Logger) *CallbackHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CallbackHandler{secret: secret, workflow: workflow, replier: replier, events: events, log: log}
}

// Handle verifies the signature and answers 200 once every event is processed.
// Per-event failures are logged only; a non-2xx would make LINE redeliver.
func (h *CallbackHandler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.secret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			writeError(c, http.StatusBadRequest, "invalid signature")
			return
		}
		h.log.Warn("webhook parse failed", zap.Error(err))
		writeError(c, http.StatusBadRequest, "bad request")
		return
	}

	ctx := c.Request.Context()
	for _, ev := range cb.Events {
		e, ok := ev.(webhook.MessageEvent)
		if !ok {
			continue
		}
		msg, ok := e.Message.(webhook.TextMessageContent)
		if !ok {
			continue
		}
		owner := ownerOf(e.Source)
		if owner == "" {
			continue
		}
		if !h.claim(ctx, e.WebhookEventId) {
			h.log.Info("duplicate webhook event", zap.String("event_id", e.WebhookEventId))
			continue
		}

		replies := h.workflow.Handle(ctx, owner, msg.Text)
		if err := h.replier.Reply(ctx, e.ReplyToken, replies); err != nil {
			h.log.Error("reply failed", zap.String("owner_id", owner), zap.Error(err))
		}
	}
	c.String(http.StatusOK, "OK")
}

// claim fails open: a dedupe store outage must not drop user messages.
func (h *CallbackHandler) claim(ctx context.Context, eventID string) bool {
	if h.events == nil {
		return true
	}
	ok, err := h.events.Claim(ctx, eventID)
	if err != nil {
		h.log.Warn("event claim failed", zap.String("event_id", eventID), zap.Error(err))
		return true
	}
	return ok
}
