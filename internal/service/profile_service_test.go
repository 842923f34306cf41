package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"metabento/internal/domain"
	"metabento/internal/logging"
	"metabento/internal/ws"
	"metabento/pkg/cloudinary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloud struct {
	uploaded []uint
}

func (f *fakeCloud) UploadAvatar(_ context.Context, file io.Reader, userID uint) (string, error) {
	if _, err := io.ReadAll(file); err != nil {
		return "", err
	}
	f.uploaded = append(f.uploaded, userID)
	return cloudinary.AvatarURL("demo", "user_avatar"), nil
}

func TestProfile_PublicAndPrivate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewProfileService(env.store, nil, logging.Discard())
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)
	email := "bob@example.com"
	require.NoError(t, env.store.Users.UpdateFields(ctx, b.ID, map[string]interface{}{"email": email}))

	p, err := svc.Public(ctx, a.ID, "BOB")
	require.NoError(t, err)
	assert.Equal(t, b.ID, p.User.ID)
	assert.Nil(t, p.User.Email)
	assert.Equal(t, 1, p.Level.CurrentLevel)

	own, err := svc.Public(ctx, b.ID, "bob")
	require.NoError(t, err)
	require.NotNil(t, own.User.Email)

	lvl, err := env.progress.Level(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), lvl.ProfileViews, "only other viewers count")

	private := false
	_, err = svc.Update(ctx, b.ID, ProfileUpdate{IsPublic: &private})
	require.NoError(t, err)
	_, err = svc.Public(ctx, a.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = svc.Public(ctx, 0, "bob")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = svc.Public(ctx, b.ID, "bob")
	assert.NoError(t, err)
}

func TestProfile_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewProfileService(env.store, nil, logging.Discard())
	a := env.newUser(t, "alice", 0)
	env.newUser(t, "bob", 0)

	name, bio, username := "  Alice Liddell ", "hello", "Alice_L"
	u, err := svc.Update(ctx, a.ID, ProfileUpdate{DisplayName: &name, Bio: &bio, Username: &username})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", u.DisplayName)
	assert.Equal(t, "hello", u.Bio)
	assert.Equal(t, "alice_l", u.UsernameOrEmpty())

	taken := "bob"
	_, err = svc.Update(ctx, a.ID, ProfileUpdate{Username: &taken})
	assert.ErrorIs(t, err, domain.ErrUsernameExists)

	bad := "x"
	_, err = svc.Update(ctx, a.ID, ProfileUpdate{Username: &bad})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	long := strings.Repeat("b", 600)
	_, err = svc.Update(ctx, a.ID, ProfileUpdate{Bio: &long})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = svc.Update(ctx, 9999, ProfileUpdate{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestProfile_UploadAvatar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)

	_, err := NewProfileService(env.store, nil, logging.Discard()).UploadAvatar(ctx, a.ID, strings.NewReader("img"))
	assert.ErrorIs(t, err, cloudinary.ErrNotConfigured)

	cloud := &fakeCloud{}
	svc := NewProfileService(env.store, cloud, logging.Discard())
	url, err := svc.UploadAvatar(ctx, a.ID, strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, cloud.uploaded)

	me, err := svc.Me(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, url, me.User.AvatarURL)
}

func TestNotificationService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hub := ws.NewHub()
	svc := NewNotificationService(env.store.Notifications, hub)
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)

	client := ws.NewClient(a.ID)
	hub.Register(client)
	defer client.Close()

	require.NoError(t, svc.Notify(ctx, a.ID, domain.NotificationLevelUp, "Level up!", "You reached level 2", map[string]interface{}{"new_level": 2}))

	select {
	case raw := <-client.Send:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "notification", msg["type"])
	default:
		t.Fatal("expected a pushed notification")
	}

	list, unread, err := svc.List(ctx, a.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), unread)
	assert.JSONEq(t, `{"new_level":2}`, list[0].Data)

	ok, err := svc.MarkRead(ctx, b.ID, list[0].ID)
	require.NoError(t, err)
	assert.False(t, ok, "not bob's notification")

	ok, err = svc.MarkRead(ctx, a.ID, list[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, unread, err = svc.List(ctx, a.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}
