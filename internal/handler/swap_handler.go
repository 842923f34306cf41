package handler

import (
	"net/http"

	"metabento/internal/middleware"
	"metabento/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SwapHandler struct {
	svc *service.SwapService
	log logrus.FieldLogger
}

func NewSwapHandler(svc *service.SwapService, log logrus.FieldLogger) *SwapHandler {
	return &SwapHandler{svc: svc, log: log}
}

type SwapRequest struct {
	Points        int64  `json:"points" binding:"required"`
	WalletAddress string `json:"wallet_address"`
}

// Create debits points and records a pending token swap. Owner only.
func (h *SwapHandler) Create(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.svc.Swap(c.Request.Context(), middleware.GetUserID(c), userID, req.Points, req.WalletAddress)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *SwapHandler) History(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	list, err := h.svc.History(c.Request.Context(), middleware.GetUserID(c), middleware.IsAdmin(c), userID, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"swaps": list})
}
