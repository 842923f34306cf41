package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// AvatarFolder is where profile pictures are stored.
const AvatarFolder = "metabento/avatars"

// Avatars are square crops, delivered with automatic quality and format.
const (
	avatarEager = "q_auto,f_auto,w_400,h_400,c_fill,g_face"
	avatarWidth = 400
)

var ErrNotConfigured = errors.New("image uploads are not configured")

// Client uploads profile images.
type Client interface {
	UploadAvatar(ctx context.Context, file io.Reader, userID uint) (url string, err error)
}

// AvatarURL builds the delivery URL for an uploaded public id.
func AvatarURL(cloudName, publicID string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_fill/%s",
		cloudName, avatarWidth, publicID)
}

var eagerAsyncFalse = false

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

// UploadAvatar stores the image under a per-user public id, replacing any earlier upload.
func (c *clientImpl) UploadAvatar(ctx context.Context, file io.Reader, userID uint) (string, error) {
	overwrite := true
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     AvatarFolder,
		PublicID:   fmt.Sprintf("user_%d", userID),
		Overwrite:  &overwrite,
		Eager:      avatarEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return "", err
	}
	if len(result.Eager) > 0 && result.Eager[0].SecureURL != "" {
		return result.Eager[0].SecureURL, nil
	}
	if result.SecureURL != "" {
		return result.SecureURL, nil
	}
	return AvatarURL(c.cloudName, result.PublicID), nil
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, ErrNotConfigured
	}
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{
		cloudName: cloudName,
		uploader:  up,
	}, nil
}
