package handler

import (
	"net/http"

	"metabento/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProgressionHandler struct {
	svc *service.ProgressionService
	log logrus.FieldLogger
}

func NewProgressionHandler(svc *service.ProgressionService, log logrus.FieldLogger) *ProgressionHandler {
	return &ProgressionHandler{svc: svc, log: log}
}

func (h *ProgressionHandler) Level(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	lv, err := h.svc.Level(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, lv)
}

func (h *ProgressionHandler) Achievements(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.Achievements(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": list})
}
