package handler

import (
	"net/http"

	"metabento/internal/middleware"
	"metabento/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type MeHandler struct {
	profiles *service.ProfileService
	log      logrus.FieldLogger
}

func NewMeHandler(profiles *service.ProfileService, log logrus.FieldLogger) *MeHandler {
	return &MeHandler{profiles: profiles, log: log}
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
	Username    *string `json:"username" binding:"omitempty,min=3,max=64"`
	Bio         *string `json:"bio" binding:"omitempty,max=512"`
	IsPublic    *bool   `json:"is_public"`
}

func (h *MeHandler) Get(c *gin.Context) {
	p, err := h.profiles.Me(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *MeHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := h.profiles.Update(c.Request.Context(), middleware.GetUserID(c), service.ProfileUpdate{
		DisplayName: req.DisplayName,
		Username:    req.Username,
		Bio:         req.Bio,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// PublicProfile serves /profiles/:username. Private profiles answer 404 to everyone but the owner.
func (h *MeHandler) PublicProfile(c *gin.Context) {
	p, err := h.profiles.Public(c.Request.Context(), middleware.GetUserID(c), c.Param("username"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
