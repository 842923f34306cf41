package handler

import (
	"net/http"

	"metabento/internal/domain"
	"metabento/internal/middleware"
	"metabento/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	points *service.PointsService
	log    logrus.FieldLogger
}

func NewAdminHandler(points *service.PointsService, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{points: points, log: log}
}

type AwardPointsRequest struct {
	UserID      uint   `json:"user_id" binding:"required"`
	Points      int64  `json:"points" binding:"required"`
	Reason      string `json:"reason"`
	Description string `json:"description" binding:"max=255"`
	ReferenceID string `json:"reference_id" binding:"max=128"`
}

// AwardPoints applies a signed operator adjustment. Negative awards floor the balance at 0.
func (h *AdminHandler) AwardPoints(c *gin.Context) {
	var req AwardPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.points.AdminAdjust(c.Request.Context(), req.UserID, req.Points,
		domain.TransactionReason(req.Reason), req.Description, req.ReferenceID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"admin_id": middleware.GetUserID(c),
		"user_id":  req.UserID,
		"points":   req.Points,
		"applied":  res.PointsChange,
	}).Info("admin award")
	c.JSON(http.StatusOK, gin.H{
		"user_id":       res.UserID,
		"new_balance":   res.NewBalance,
		"points_change": res.PointsChange,
	})
}
