package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

const sendQueueSize = 512

type client struct {
	userID    string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(userID string, conn *websocket.Conn) *client {
	return &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// close は done だけを閉じる。send チャネルは閉じず、
// 配送側は done を優先して観測することで closed-channel 送信を避ける。
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Registry はプロセス全体の接続表。service.Sender を満たす。
// 宛先不在と送信キュー満杯はどちらも black-hole（best-effort 配送）。
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*client)}
}

// add は接続を登録し、同一IDの旧接続があればそれを返す。
func (r *Registry) add(c *client) *client {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.clients[c.userID]
	r.clients[c.userID] = c
	return old
}

// remove は接続がまだ現役の場合のみ表から外し、外せたかどうかを返す。
// 再接続で置き換えられた旧接続の後始末が現役の接続を消さないためのガード。
func (r *Registry) remove(c *client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[c.userID] != c {
		return false
	}
	delete(r.clients, c.userID)
	return true
}

// Send はイベントをJSONにして宛先の送信キューへ積む。
// 宛先が居ない・切断済み・キュー満杯の場合は落として続行する。
func (r *Registry) Send(ctx context.Context, userID string, event any) {
	r.mu.RLock()
	c, ok := r.clients[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "registry: marshal error", "userID", userID, "err", err)
		return
	}

	select {
	case <-c.done:
	case c.send <- data:
	default:
		slog.WarnContext(ctx, "registry: send queue full, message dropped", "userID", userID)
	}
}
