package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secuteam/gwm-api/internal/models"
	"github.com/secuteam/gwm-api/internal/service"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
	"github.com/secuteam/gwm-api/pkg/response"
)

// MessageHandler wires HTTP endpoints to the messaging service.
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler creates a new handler.
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Send godoc
// @Summary Send a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		RecipientID string `json:"recipient_id" binding:"required"`
		Body        string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "recipient_id and body required"))
		return
	}

	message, err := h.messages.Send(c.Request.Context(), claims.UserID, payload.RecipientID, payload.Body)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, message)
}

// History godoc
// @Summary Conversation history with a peer
// @Tags Messages
// @Produce json
// @Param peerId path string true "Peer user ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /messages/{peerId} [get]
func (h *MessageHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.MessageFilter{
		UserID:   claims.UserID,
		PeerID:   c.Param("peerId"),
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "page_size", 50),
	}

	messages, err := h.messages.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, messages, nil)
}

// Conversations godoc
// @Summary List conversations of the current user
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages [get]
func (h *MessageHandler) Conversations(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	conversations, err := h.messages.Conversations(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, conversations, nil)
}
