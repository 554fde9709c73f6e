package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/faq-webhook/internal/domain/faq"
	"github.com/yanqian/faq-webhook/internal/infra/messenger/line"
)

const (
	signatureHeader = "X-Line-Signature"
	maxWebhookBody  = 1 << 20
)

// Messenger is the slice of the chat-platform client the webhook needs.
type Messenger interface {
	VerifySignature(body []byte, signature string) bool
	Reply(ctx context.Context, replyToken string, texts ...string) error
}

// WebhookHandler bridges chat-platform events to the FAQ service. The
// platform expects a fast 200 regardless of per-event outcomes, so reply
// failures are logged, never surfaced.
type WebhookHandler struct {
	faqSvc    faq.Service
	messenger Messenger
	logger    *slog.Logger
}

// NewWebhookHandler constructs the webhook handler.
func NewWebhookHandler(faqSvc faq.Service, messenger Messenger, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		faqSvc:    faqSvc,
		messenger: messenger,
		logger:    logger.With("component", "http.webhook"),
	}
}

// Receive handles one webhook delivery.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "read webhook body", err))
		return
	}

	if !h.messenger.VerifySignature(body, c.GetHeader(signatureHeader)) {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_signature", "webhook signature mismatch", nil))
		return
	}

	payload, err := line.ParseWebhook(body)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "parse webhook payload", err))
		return
	}

	for _, event := range payload.Events {
		h.handleEvent(c.Request.Context(), event)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WebhookHandler) handleEvent(ctx context.Context, event line.Event) {
	if event.Type != "message" || event.Message.Type != "text" || event.Message.Text == "" {
		return
	}

	resp, err := h.faqSvc.Answer(ctx, faq.Request{Question: event.Message.Text})
	if err != nil {
		h.logger.Error("answer failed", "error", err, "user", event.Source.UserID)
		if replyErr := h.messenger.Reply(ctx, event.ReplyToken, "申し訳ありません、ただいま回答できません。しばらくしてからもう一度お試しください。"); replyErr != nil {
			h.logger.Error("apology reply failed", "error", replyErr)
		}
		return
	}

	h.logger.Info("message answered", "source", resp.Source, "method", resp.Method, "score", resp.Score)
	if err := h.messenger.Reply(ctx, event.ReplyToken, resp.Answer); err != nil {
		h.logger.Error("reply failed", "error", err, "user", event.Source.UserID)
	}
}
