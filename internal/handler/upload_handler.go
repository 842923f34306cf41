package handler

import (
	"net/http"
	"strings"

	"metabento/internal/middleware"
	"metabento/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxAvatarBytes = 5 << 20

type UploadHandler struct {
	profiles *service.ProfileService
	log      logrus.FieldLogger
}

func NewUploadHandler(profiles *service.ProfileService, log logrus.FieldLogger) *UploadHandler {
	return &UploadHandler{profiles: profiles, log: log}
}

// UploadAvatar accepts a multipart "file" image and stores it as the caller's avatar.
func (h *UploadHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file required")
		return
	}
	if file.Size > maxAvatarBytes {
		badRequest(c, "image must be 5MB or smaller")
		return
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		badRequest(c, "file must be an image")
		return
	}
	f, err := file.Open()
	if err != nil {
		badRequest(c, "could not read file")
		return
	}
	defer f.Close()

	url, err := h.profiles.UploadAvatar(c.Request.Context(), middleware.GetUserID(c), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}
