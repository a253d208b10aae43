package firestore

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// defaultCredentialsFile ローカル実行時に探すサービスアカウント鍵
const defaultCredentialsFile = "emergency-map-firestore-key.json"

type FirestoreClient struct {
	client *firestore.Client
}

// NewFirestoreClient ルートカタログ用のFirestoreクライアントを作成
// Cloud Run上ではデフォルト認証、ローカルでは鍵ファイルがあればそれを使う
func NewFirestoreClient(ctx context.Context, projectID string, logger *zap.Logger) (*FirestoreClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("FIRESTORE_PROJECT_ID環境変数が設定されていません")
	}

	var opts []option.ClientOption
	if os.Getenv("K_SERVICE") != "" {
		logger.Info("☁️ Cloud Run environment: using default credentials")
	} else {
		credentialsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if credentialsFile == "" {
			credentialsFile = defaultCredentialsFile
		}

		if _, err := os.Stat(credentialsFile); err != nil {
			logger.Warn("⚠️ Credentials file not found, trying default authentication", zap.String("file", credentialsFile))
		} else {
			logger.Info("📄 Using credentials file", zap.String("file", credentialsFile))
			opts = append(opts, option.WithCredentialsFile(credentialsFile))
		}
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	logger.Info("✅ Firestore client initialized", zap.String("project_id", projectID))

	return &FirestoreClient{client: client}, nil
}

func (fc *FirestoreClient) Close() error {
	return fc.client.Close()
}

func (fc *FirestoreClient) GetClient() *firestore.Client {
	return fc.client
}
