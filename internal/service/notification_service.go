package service

import (
	"context"
	"encoding/json"

	"metabento/internal/models"
	"metabento/internal/repository"
	"metabento/internal/ws"
)

// NotificationService persists notifications and pushes them to open sockets.
type NotificationService struct {
	repo *repository.NotificationRepository
	hub  *ws.Hub
}

func NewNotificationService(repo *repository.NotificationRepository, hub *ws.Hub) *NotificationService {
	return &NotificationService{repo: repo, hub: hub}
}

func (s *NotificationService) Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	n := &models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.SendToUser(userID, map[string]interface{}{
			"type":         "notification",
			"notification": n,
			"data":         data,
		})
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.repo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return list, unread, nil
}

// MarkRead reports false when the notification is not the user's or was already read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (bool, error) {
	return s.repo.MarkRead(ctx, id, userID)
}
