package handler

import (
	"net/http"
	"strconv"

	"metabento/internal/middleware"
	"metabento/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type PointsHandler struct {
	svc *service.PointsService
	log logrus.FieldLogger
}

func NewPointsHandler(svc *service.PointsService, log logrus.FieldLogger) *PointsHandler {
	return &PointsHandler{svc: svc, log: log}
}

func (h *PointsHandler) Stats(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *PointsHandler) Leaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultLeaderboardLimit)))
	if err != nil || limit <= 0 {
		badRequest(c, "limit must be a positive integer")
		return
	}
	entries, err := h.svc.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func (h *PointsHandler) Transactions(c *gin.Context) {
	limit, offset := pageParams(c)
	list, err := h.svc.Transactions(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list})
}

func (h *PointsHandler) DailyBonus(c *gin.Context) {
	res, err := h.svc.ClaimDailyBonus(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
