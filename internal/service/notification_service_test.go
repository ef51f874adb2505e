package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	"github.com/noah-isme/sma-lms-gradesync/pkg/mailer"
	"github.com/noah-isme/sma-lms-gradesync/pkg/storage"
)

type userLookupStub struct {
	users map[string]*models.User
}

func (s *userLookupStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

type unitLookupStub struct {
	units map[string]*models.Unit
}

func (s *unitLookupStub) FindByID(ctx context.Context, id string) (*models.Unit, error) {
	u, ok := s.units[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

type senderStub struct {
	sent []mailer.Message
	err  error
}

func (s *senderStub) Send(ctx context.Context, msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newNotificationFixture(t *testing.T, email string) (*NotificationService, *senderStub, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	sender := &senderStub{}
	svc := NewNotificationService(
		&userLookupStub{users: map[string]*models.User{"user-1": {ID: "user-1", Username: "jsmith", Email: email, FullName: "Jo Smith"}}},
		&unitLookupStub{units: map[string]*models.Unit{"unit-1": {ID: "unit-1", Code: "COS10001", Name: "Intro to Programming"}}},
		store,
		sender,
		storage.NewSignedURLSigner("secret", time.Hour),
		NotificationConfig{ProductName: "Assessments", BaseURL: "https://assessments.example.edu/api/v1/"},
		nil,
	)
	return svc, sender, store
}

func TestNotifyResultAttachesStoredResult(t *testing.T) {
	svc, sender, store := newNotificationFixture(t, "jo@example.edu")
	require.NoError(t, store.Save(context.Background(), GradeSyncResultKey("unit-1"), []byte("Status,Message\nSuccess,ok\n")))

	require.NoError(t, svc.NotifyResult(context.Background(), "unit-1", "user-1"))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "jo@example.edu", msg.To)
	assert.Equal(t, "Assessments COS10001 - LMS Grade Transfer Result", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "result.csv", msg.Attachments[0].Name)
	assert.Equal(t, "Status,Message\nSuccess,ok\n", string(msg.Attachments[0].Data))
	assert.Contains(t, msg.Body, "Jo Smith")
	assert.Contains(t, msg.Body, "https://assessments.example.edu/api/v1/lms/results/unit-1.")
}

func TestNotifyResultWithoutArtifact(t *testing.T) {
	svc, sender, _ := newNotificationFixture(t, "jo@example.edu")

	require.NoError(t, svc.NotifyResult(context.Background(), "unit-1", "user-1"))
	require.Len(t, sender.sent, 1)
	assert.Empty(t, sender.sent[0].Attachments)
	assert.False(t, strings.Contains(sender.sent[0].Body, "/lms/results/"))
}

func TestNotifyResultSkipsUsersWithoutEmail(t *testing.T) {
	svc, sender, _ := newNotificationFixture(t, "  ")

	require.NoError(t, svc.NotifyResult(context.Background(), "unit-1", "user-1"))
	assert.Empty(t, sender.sent)
}

func TestNotifyResultErrors(t *testing.T) {
	svc, sender, _ := newNotificationFixture(t, "jo@example.edu")

	assert.Error(t, svc.NotifyResult(context.Background(), "unit-1", "user-2"))
	assert.Error(t, svc.NotifyResult(context.Background(), "unit-2", "user-1"))

	sender.err = errors.New("smtp down")
	assert.Error(t, svc.NotifyResult(context.Background(), "unit-1", "user-1"))
}

func TestNotifyResultThroughLogSender(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewNotificationService(
		&userLookupStub{users: map[string]*models.User{"user-1": {ID: "user-1", Email: "jo@example.edu"}}},
		&unitLookupStub{units: map[string]*models.Unit{"unit-1": {ID: "unit-1", Code: "COS10001"}}},
		store,
		mailer.NewLogSender(nil),
		nil,
		NotificationConfig{},
		nil,
	)
	assert.NoError(t, svc.NotifyResult(context.Background(), "unit-1", "user-1"))
}
