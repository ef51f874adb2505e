package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	"github.com/noah-isme/sma-lms-gradesync/pkg/mailer"
	"github.com/noah-isme/sma-lms-gradesync/pkg/storage"
)

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type unitLookup interface {
	FindByID(ctx context.Context, id string) (*models.Unit, error)
}

// NotificationConfig shapes result mails.
type NotificationConfig struct {
	ProductName string
	// BaseURL prefixes signed result links, e.g. https://assessments.example.edu/api/v1.
	BaseURL string
}

// NotificationService mails grade transfer results to the user who requested them.
type NotificationService struct {
	users  userLookup
	units  unitLookup
	store  storage.ArtifactStore
	sender mailer.Sender
	signer *storage.SignedURLSigner
	cfg    NotificationConfig
	logger *zap.Logger
}

// NewNotificationService constructs the notifier. signer may be nil to omit result links.
func NewNotificationService(users userLookup, units unitLookup, store storage.ArtifactStore, sender mailer.Sender, signer *storage.SignedURLSigner, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "Assessments"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &NotificationService{users: users, units: units, store: store, sender: sender, signer: signer, cfg: cfg, logger: logger}
}

// NotifyResult sends the unit's latest result to userID. Users without an email address are
// skipped, and the CSV is attached only when a result is stored.
func (s *NotificationService) NotifyResult(ctx context.Context, unitID, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}
	if strings.TrimSpace(user.Email) == "" {
		s.logger.Sugar().Debugw("skipping grade transfer mail, user has no email", "user_id", userID)
		return nil
	}

	unit, err := s.units.FindByID(ctx, unitID)
	if err != nil {
		return fmt.Errorf("load unit %s: %w", unitID, err)
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("%s %s - LMS Grade Transfer Result", s.cfg.ProductName, unit.Code),
	}

	key := GradeSyncResultKey(unitID)
	data, err := s.readResult(ctx, key)
	if err != nil {
		return err
	}
	if data != nil {
		msg.Attachments = []mailer.Attachment{{Name: GradeSyncResultFilename, Data: data}}
	}
	msg.Body = s.body(user, unit, key, data != nil)

	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send grade transfer mail: %w", err)
	}
	s.logger.Sugar().Infow("grade transfer mail sent", "unit_id", unitID, "user_id", userID, "attached", data != nil)
	return nil
}

func (s *NotificationService) readResult(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("open grade transfer result: %w", err)
	}
	defer rc.Close() //nolint:errcheck
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read grade transfer result: %w", err)
	}
	return data, nil
}

func (s *NotificationService) body(user *models.User, unit *models.Unit, key string, attached bool) string {
	name := user.FullName
	if name == "" {
		name = user.Username
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "The transfer of %s grades for %s %s to the LMS has finished.\n", s.cfg.ProductName, unit.Code, unit.Name)
	if attached {
		b.WriteString("The outcome for each student is attached.\n")
		if link := s.resultLink(unit.ID, key); link != "" {
			fmt.Fprintf(&b, "\nYou can also download the result from %s\n", link)
		}
	} else {
		b.WriteString("No result file was produced.\n")
	}
	return b.String()
}

func (s *NotificationService) resultLink(unitID, key string) string {
	if s.signer == nil || s.cfg.BaseURL == "" {
		return ""
	}
	token, _, err := s.signer.Generate(unitID, key)
	if err != nil {
		s.logger.Sugar().Warnw("failed to sign result link", "unit_id", unitID, "error", err)
		return ""
	}
	return fmt.Sprintf("%s/lms/results/%s", s.cfg.BaseURL, token)
}
