package handler

import (
	"net/http"

	"metabento/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	svc *service.AuthService
	log logrus.FieldLogger
}

func NewAuthHandler(svc *service.AuthService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

type NonceRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

type WalletLoginRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Nonce         string `json:"nonce" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required,min=3,max=64"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Nonce(c *gin.Context) {
	var req NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ch, err := h.svc.Nonce(c.Request.Context(), req.WalletAddress)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h *AuthHandler) WalletLogin(c *gin.Context) {
	var req WalletLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, err := h.svc.WalletLogin(c.Request.Context(), req.WalletAddress, req.Nonce, req.Signature)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sessionBody(sess))
}

func (h *AuthHandler) CheckWallet(c *gin.Context) {
	var req NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	exists, u, err := h.svc.CheckWallet(c.Request.Context(), req.WalletAddress)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	body := gin.H{"exists": exists}
	if u != nil {
		body["username"] = u.UsernameOrEmpty()
		body["display_name"] = u.Name()
	}
	c.JSON(http.StatusOK, body)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, err := h.svc.Register(c.Request.Context(), req.Email, req.Username, req.Password, req.DisplayName)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, sessionBody(sess))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sessionBody(sess))
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	tokens, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

func sessionBody(s *service.Session) gin.H {
	return gin.H{
		"user":          s.User,
		"access_token":  s.Tokens.AccessToken,
		"refresh_token": s.Tokens.RefreshToken,
		"is_new_user":   s.IsNewUser,
	}
}
