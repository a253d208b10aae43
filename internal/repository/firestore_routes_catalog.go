package repository

import (
	"context"
	"fmt"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/repository"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
)

// offlineRoutesCollection 事前計算済みルートを保持するコレクション名
const offlineRoutesCollection = "offlineRoutes"

// FirestoreRoutesCatalog Firestoreに配信された事前計算済みルートを読み出すカタログ
type FirestoreRoutesCatalog struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreRoutesCatalog 新しいFirestoreRoutesCatalogインスタンスを作成
func NewFirestoreRoutesCatalog(client *firestore.Client, logger *zap.Logger) repository.RouteCatalog {
	return &FirestoreRoutesCatalog{
		client: client,
		logger: logger,
	}
}

// FetchRoutes コレクション内の全ルートを取得する。ドキュメントIDをルートIDとして扱う
func (c *FirestoreRoutesCatalog) FetchRoutes(ctx context.Context) ([]*model.OfflineRoute, error) {
	docs, err := c.client.Collection(offlineRoutesCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("ルートカタログの取得に失敗しました: %w", err)
	}

	routes := make([]*model.OfflineRoute, 0, len(docs))
	for _, doc := range docs {
		var route model.OfflineRoute
		if err := doc.DataTo(&route); err != nil {
			c.logger.Warn("⚠️ Skipping malformed route document", zap.String("doc_id", doc.Ref.ID), zap.Error(err))
			continue
		}
		route.ID = doc.Ref.ID
		routes = append(routes, &route)
	}

	c.logger.Info("✅ Route catalog fetched", zap.Int("count", len(routes)))
	return routes, nil
}

// PublishRoute ルートをカタログへ書き込む（sync コマンドの逆方向）
func (c *FirestoreRoutesCatalog) PublishRoute(ctx context.Context, route *model.OfflineRoute) error {
	if route.ID == "" {
		return &model.ValidationError{Field: "id", Message: "ルートIDは必須です"}
	}
	if _, err := c.client.Collection(offlineRoutesCollection).Doc(route.ID).Set(ctx, route); err != nil {
		return fmt.Errorf("ルート %s の保存に失敗しました: %w", route.ID, err)
	}
	return nil
}
