package handler

import (
	"errors"
	"net/http"
	"strconv"

	"metabento/internal/domain"
	"metabento/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation:          http.StatusBadRequest,
	domain.KindNotFound:            http.StatusNotFound,
	domain.KindConflict:            http.StatusConflict,
	domain.KindUnauthorized:        http.StatusUnauthorized,
	domain.KindForbidden:           http.StatusForbidden,
	domain.KindInsufficientBalance: http.StatusUnprocessableEntity,
	domain.KindIntegrity:           http.StatusInternalServerError,
}

// respondError writes {"error", "code"} for err. Only domain messages reach the client.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind != domain.KindIntegrity {
		status := kindStatus[de.Kind]
		// a caller acting on another user's resource is authenticated but not allowed
		if errors.Is(err, domain.ErrUnauthorized) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": de.Message, "code": de.Kind})
		return
	}
	if errors.Is(err, cloudinary.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "code": "UNAVAILABLE"})
		return
	}
	log.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "operation could not be completed, please retry",
		"code":  domain.KindIntegrity,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": domain.KindValidation})
}

// paramID parses a positive numeric path parameter, answering 400 when it is not one.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
