package handler

import (
	"net/http"

	"metabento/internal/domain"
	"metabento/internal/middleware"
	"metabento/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ConnectionHandler struct {
	svc *service.ConnectionService
	log logrus.FieldLogger
}

func NewConnectionHandler(svc *service.ConnectionService, log logrus.FieldLogger) *ConnectionHandler {
	return &ConnectionHandler{svc: svc, log: log}
}

type CreateConnectionRequest struct {
	FromUserID     uint   `json:"from_user_id"` // defaults to the caller
	ToUserID       uint   `json:"to_user_id" binding:"required"`
	ConnectionType string `json:"connection_type" binding:"required"`
}

type ScanRequest struct {
	Payload  string `json:"payload" binding:"required"`
	ScanType string `json:"scan_type"`
}

func (h *ConnectionHandler) Create(c *gin.Context) {
	var req CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	callerID := middleware.GetUserID(c)
	from := req.FromUserID
	if from == 0 {
		from = callerID
	}
	res, err := h.svc.CreateConnection(c.Request.Context(), callerID, from, req.ToUserID, domain.ConnectionType(req.ConnectionType))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ConnectionHandler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.svc.ProcessScan(c.Request.Context(), middleware.GetUserID(c), req.Payload, req.ScanType)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	status := http.StatusOK
	if res.Connection != nil {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

// List shows a user's connections. Private peers are hidden from everyone but the owner.
func (h *ConnectionHandler) List(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	list, err := h.svc.ListConnections(c.Request.Context(), middleware.GetUserID(c), middleware.IsAdmin(c), userID, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": list})
}

func (h *ConnectionHandler) ScanHistory(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if middleware.GetUserID(c) != userID && !middleware.IsAdmin(c) {
		respondError(c, h.log, domain.ErrUnauthorized)
		return
	}
	limit, offset := pageParams(c)
	list, err := h.svc.ScanHistory(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": list})
}
