package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"gridx-backend/chatbot"
	"gridx-backend/integrations"
	"gridx-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxChatMessage = 2000
	maxAudioUpload = 25 << 20
	wsWriteTimeout = 10 * time.Second
	wsIdleTimeout  = 5 * time.Minute
)

type ChatController struct {
	bot        *chatbot.Bot
	classifier *integrations.HuggingFace
	speech     *integrations.AssemblyAI
	upgrader   websocket.Upgrader
	now        func() time.Time
}

// NewChatController answers chat traffic. classifier and speech may be nil.
func NewChatController(bot *chatbot.Bot, classifier *integrations.HuggingFace, speech *integrations.AssemblyAI, allowedOrigins []string) *ChatController {
	return &ChatController{
		bot:        bot,
		classifier: classifier,
		speech:     speech,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		now: time.Now,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

type ChatInput struct {
	Message string              `json:"message" binding:"required"`
	History []map[string]string `json:"history"`
}

type ChatReply struct {
	Response string             `json:"response"`
	Intent   string             `json:"intent"`
	Scores   map[string]float64 `json:"scores,omitempty"`
}

func (cc *ChatController) reply(ctx context.Context, message string) ChatReply {
	r := cc.bot.Respond(message, cc.now())
	out := ChatReply{Response: r.Response, Intent: r.Intent}

	if cc.classifier != nil && cc.classifier.Enabled() {
		scores, err := cc.classifier.ZeroShot(ctx, message, cc.bot.Labels())
		if err != nil {
			zap.L().Warn("Intent scoring failed", zap.Error(err))
		} else {
			out.Scores = scores
		}
	}
	return out
}

func (cc *ChatController) Chat(c *gin.Context) {
	var input ChatInput
	if !bindJSON(c, &input) {
		return
	}
	message := strings.TrimSpace(input.Message)
	if message == "" || len(message) > maxChatMessage {
		utils.RespondWithError(c, http.StatusBadRequest, "message must be between 1 and 2000 characters")
		return
	}
	c.JSON(http.StatusOK, cc.reply(c.Request.Context(), message))
}

// ChatSocket answers each JSON {"message": ...} frame with one ChatReply.
func (cc *ChatController) ChatSocket(c *gin.Context) {
	conn, err := cc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxChatMessage * 2)
	ctx := c.Request.Context()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		var input ChatInput
		if err := conn.ReadJSON(&input); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				zap.L().Debug("Chat socket closed", zap.Error(err))
			}
			return
		}

		var out interface{}
		if message := strings.TrimSpace(input.Message); message == "" || len(message) > maxChatMessage {
			out = gin.H{"error": "message must be between 1 and 2000 characters"}
		} else {
			out = cc.reply(ctx, message)
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			zap.L().Debug("Chat socket write failed", zap.Error(err))
			return
		}
	}
}

func (cc *ChatController) VoiceToText(c *gin.Context) {
	if cc.speech == nil {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Voice transcription is not configured")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioUpload)
	header, err := c.FormFile("audio")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "No audio file provided")
		return
	}
	audio, err := header.Open()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Could not read audio file")
		return
	}
	defer audio.Close()

	text, err := cc.speech.Transcribe(c.Request.Context(), audio)
	switch {
	case errors.Is(err, integrations.ErrNotConfigured):
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Voice transcription is not configured")
		return
	case errors.Is(err, integrations.ErrTranscriptionFailed):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, "Could not transcribe audio")
		return
	case err != nil:
		zap.L().Error("Transcription failed", zap.Error(err))
		utils.RespondWithError(c, http.StatusBadGateway, "Speech service unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":     text,
		"response": cc.bot.Respond(text, cc.now()).Response,
	})
}
