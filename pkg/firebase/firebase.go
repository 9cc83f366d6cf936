package firebase

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// App holds the initialized Firebase app, its auth client and the upload bucket.
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
	Storage     *Storage
}

// InitFirebase initializes the Firebase application, the authentication
// client and the storage bucket used for uploads.
func InitFirebase(ctx context.Context, credentialsPath, bucket string, log *zap.Logger) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}

	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", credentialsPath)
	}

	opt := option.WithCredentialsFile(credentialsPath)

	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucket}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	store, err := NewStorage(ctx, firebaseApp, bucket)
	if err != nil {
		return nil, err
	}

	log.Info("Firebase app, auth and storage clients initialized", zap.String("bucket", bucket))
	return &App{FirebaseApp: firebaseApp, AuthClient: authClient, Storage: store}, nil
}
