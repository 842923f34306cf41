package handler

import (
	"net/http"

	"metabento/internal/domain"
	"metabento/internal/middleware"
	"metabento/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type NotificationHandler struct {
	svc *service.NotificationService
	log logrus.FieldLogger
}

func NewNotificationHandler(svc *service.NotificationService, log logrus.FieldLogger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: log}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, offset := pageParams(c)
	list, unread, err := h.svc.List(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unread": unread})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	updated, err := h.svc.MarkRead(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !updated {
		respondError(c, h.log, domain.NewError(domain.KindNotFound, "notification not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
