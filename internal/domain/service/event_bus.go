package service

import (
	"sync"

	"EmergencyMap-App/internal/domain/model"
)

// EventHandler イベントを受け取るコールバック
type EventHandler func(event model.Event)

// EventBus 種別ごとの購読を管理するイベントバス
// Publish は呼び出し時点の購読者全員に同期的に配信する
type EventBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[model.EventKind]map[int]EventHandler
	all      map[int]EventHandler
}

// NewEventBus は新しいEventBusインスタンスを作成
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[model.EventKind]map[int]EventHandler),
		all:      make(map[int]EventHandler),
	}
}

// Subscribe は指定種別のイベントを購読し、購読解除用の関数を返す
func (b *EventBus) Subscribe(kind model.EventKind, handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[int]EventHandler)
	}
	b.handlers[kind][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[kind], id)
	}
}

// SubscribeAll は全種別のイベントを購読する
func (b *EventBus) SubscribeAll(handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.all[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

// Publish はイベントを配信する
func (b *EventBus) Publish(event model.Event) {
	b.mu.RLock()
	targets := make([]EventHandler, 0, len(b.handlers[event.Kind()])+len(b.all))
	for _, h := range b.handlers[event.Kind()] {
		targets = append(targets, h)
	}
	for _, h := range b.all {
		targets = append(targets, h)
	}
	b.mu.RUnlock()

	for _, h := range targets {
		h(event)
	}
}
