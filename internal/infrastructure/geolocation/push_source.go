package geolocation

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"EmergencyMap-App/internal/domain/model"
)

// PushSource は外部（HTTP・WebSocket）から送られた位置を監視者へ配る PositionSource
// Timeout が設定された監視は、その間に位置が届かないとタイムアウトエラーを受け取る
type PushSource struct {
	logger *zap.Logger

	mu      sync.Mutex
	nextID  int
	watches map[int]*watch
}

type watch struct {
	opts     model.WatchOptions
	onUpdate func(model.Position)
	onError  func(error)
	timer    *time.Timer
}

// NewPushSource は新しいPushSourceインスタンスを作成
func NewPushSource(logger *zap.Logger) *PushSource {
	return &PushSource{
		logger:  logger,
		watches: make(map[int]*watch),
	}
}

// StartWatch は監視を登録し、解除関数を返す
func (s *PushSource) StartWatch(opts model.WatchOptions, onUpdate func(model.Position), onError func(error)) (func(), error) {
	w := &watch{opts: opts, onUpdate: onUpdate, onError: onError}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watches[id] = w
	if opts.Timeout > 0 {
		w.timer = time.AfterFunc(opts.Timeout, func() { s.timeout(id) })
	}
	s.mu.Unlock()

	s.logger.Debug("📡 Position watch started", zap.Int("watch_id", id), zap.Bool("high_accuracy", opts.HighAccuracy))

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			delete(s.watches, id)
			s.mu.Unlock()
			s.logger.Debug("📡 Position watch cancelled", zap.Int("watch_id", id))
		})
	}, nil
}

// Push は位置を全ての監視者へ配る。座標が不正ならPositionUnavailableとして扱う
func (s *PushSource) Push(pos model.Position) {
	if !pos.Location.Valid() {
		s.PushError(model.GeolocationPositionUnavailable, "invalid coordinates")
		return
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = time.Now()
	}

	for _, w := range s.snapshot(true) {
		w.onUpdate(pos)
	}
}

// PushError は位置情報エラーを全ての監視者へ配る
func (s *PushSource) PushError(code int, message string) {
	err := &model.GeolocationError{Code: code, Message: message}
	for _, w := range s.snapshot(false) {
		w.onError(err)
	}
}

// Watching は現在の監視数を返す
func (s *PushSource) Watching() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

// snapshot はコールバックをロック外で呼ぶために監視者を複製する
func (s *PushSource) snapshot(resetTimers bool) []*watch {
	s.mu.Lock()
	defer s.mu.Unlock()

	watches := make([]*watch, 0, len(s.watches))
	for _, w := range s.watches {
		if resetTimers && w.timer != nil {
			w.timer.Reset(w.opts.Timeout)
		}
		watches = append(watches, w)
	}
	return watches
}

func (s *PushSource) timeout(id int) {
	s.mu.Lock()
	w, ok := s.watches[id]
	if ok {
		w.timer.Reset(w.opts.Timeout)
	}
	s.mu.Unlock()

	if ok {
		w.onError(&model.GeolocationError{Code: model.GeolocationTimeout, Message: "position timeout"})
	}
}
