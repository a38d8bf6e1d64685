// Package firebase bootstraps the Firebase Admin SDK app shared by the
// Firebase-backed collaborators.
package firebase

import (
	"context"
	"log/slog"

	"threads/config"
	"threads/internal/errors"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/fx"
	"google.golang.org/api/option"
)

// Params defines the required parameters
type Params struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewApp initializes the Firebase app from the firebase config section.
// Without a credentials path the SDK falls back to application default credentials.
func NewApp(params Params) (*firebase.App, error) {
	cfg := params.Config.Firebase
	if cfg == nil || cfg.ProjectID == "" {
		return nil, errors.New("firebase.projectId is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	app, err := firebase.NewApp(context.Background(), &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize Firebase app")
	}

	params.Logger.Info("Firebase app initialized", slog.String("project", cfg.ProjectID))

	return app, nil
}

// NewAuthClient returns the Admin SDK auth client of app.
func NewAuthClient(app *firebase.App) (*auth.Client, error) {
	client, err := app.Auth(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "failed to get auth client")
	}

	return client, nil
}
