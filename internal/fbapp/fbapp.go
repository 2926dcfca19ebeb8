// Package fbapp initializes the Firebase Admin app shared by the Realtime
// Database lobby store and ID token verification.
package fbapp

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

var ErrNoDatabaseURL = errors.New("firebase database url is not set")

type Config struct {
	// DatabaseURL is the Realtime Database instance, FB_ROUTE_INSTANCE_URL.
	DatabaseURL string
	// CredentialsFile is a service account key; empty means application
	// default credentials.
	CredentialsFile string
	ProjectID       string
}

// New builds the app. Extra options are appended after the credentials option.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*firebase.App, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrNoDatabaseURL
	}

	var o []option.ClientOption
	if cfg.CredentialsFile != "" {
		o = append(o, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	o = append(o, opts...)

	app, err := firebase.NewApp(ctx, &firebase.Config{
		DatabaseURL: cfg.DatabaseURL,
		ProjectID:   cfg.ProjectID,
	}, o...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app, nil
}
