package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"EmergencyMap-App/internal/domain/model"
)

// ConnectivityMonitor はオンライン/オフライン状態を保持し、切り替え時にイベントを配信する
type ConnectivityMonitor struct {
	bus      *EventBus
	logger   *zap.Logger
	probeURL string
	client   *http.Client

	mu     sync.RWMutex
	online bool
}

// NewConnectivityMonitor は新しいConnectivityMonitorインスタンスを作成（初期状態はオンライン）
func NewConnectivityMonitor(bus *EventBus, logger *zap.Logger, probeURL string) *ConnectivityMonitor {
	return &ConnectivityMonitor{
		bus:      bus,
		logger:   logger,
		probeURL: probeURL,
		client:   &http.Client{Timeout: 5 * time.Second},
		online:   true,
	}
}

// SetOnline は状態を更新し、変化した場合のみイベントを配信する
func (m *ConnectivityMonitor) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}
	if online {
		m.logger.Info("🌐 Connection restored")
	} else {
		m.logger.Warn("📴 Connection lost, running offline")
	}
	m.bus.Publish(model.ConnectionChanged{Online: online, At: time.Now()})
}

// IsOffline はオフラインかどうか
func (m *ConnectivityMonitor) IsOffline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.online
}

// Probe は probeURL に HEAD リクエストを送り、結果で状態を更新する
func (m *ConnectivityMonitor) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		m.SetOnline(false)
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.SetOnline(false)
		return false
	}
	resp.Body.Close()

	online := resp.StatusCode < http.StatusInternalServerError
	m.SetOnline(online)
	return online
}

// Run は interval ごとに Probe を実行する
func (m *ConnectivityMonitor) Run(ctx context.Context, interval time.Duration) {
	if m.probeURL == "" {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
