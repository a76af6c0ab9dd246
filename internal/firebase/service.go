package firebase

import (
	"context"
	"fmt"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"hemato_backend/internal/config"
	"hemato_backend/internal/shared"
)

// Service wraps the external Firebase authentication service. It is the only
// component that talks to the identity collaborator; everything downstream
// consumes shared.Session snapshots.
type Service struct {
	authClient *auth.Client
	logger     *zap.Logger
}

var _ shared.IdentityProvider = (*Service)(nil)

// NewService initializes the Firebase Admin SDK and creates a new Service.
func NewService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Error("Firebase service account key path is not configured.")
		return nil, fmt.Errorf("firebase service account key path is required")
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var app *firebase.App
	var err error
	if cfg.FirebaseProjectID != "" {
		conf := &firebase.Config{ProjectID: cfg.FirebaseProjectID}
		app, err = firebase.NewApp(context.Background(), conf, opt)
	} else {
		app, err = firebase.NewApp(context.Background(), nil, opt)
	}
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &Service{authClient: authClient, logger: logger}, nil
}

// CurrentSession verifies the presented ID token and returns the session
// snapshot it attests. Each call yields a fresh snapshot; the previous one is
// simply discarded by callers.
func (s *Service) CurrentSession(ctx context.Context, idToken string) (*shared.Session, error) {
	if idToken == "" {
		return nil, fmt.Errorf("ID token must not be empty")
	}

	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Warn("Firebase ID token verification failed", zap.Error(err))
		return nil, fmt.Errorf("failed to verify Firebase ID token: %w", err)
	}

	sess := &shared.Session{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		sess.Email = email
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		sess.EmailVerified = verified
	}

	s.logger.Debug("Firebase ID token verified successfully", zap.String("uid", token.UID))
	return sess, nil
}
