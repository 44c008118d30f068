package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/touka-aoi/merc-lobby/domain"
	"github.com/touka-aoi/merc-lobby/handler"
)

// timerSyncInterval は TIMER_SYNC を配信する残秒数の刻み。
const timerSyncInterval = 60

// armCountdownLocked はルームの装備カウントダウンを起動する。
// 取消ハンドルはルームが排他的に所有し、再スタート時は旧タスクが必ず先に片付く。
func (m *Manager) armCountdownLocked(room *domain.Room) {
	ctx, cancel := context.WithCancel(context.Background())
	room.ArmTimer(cancel)
	go m.runCountdown(ctx, room.ID)
}

// runCountdown はルーム1つぶんのカウントダウンタスク。
// 1刻みごとに Manager のロックを取り直すので、コマンド処理との直列化が保たれる。
func (m *Manager) runCountdown(ctx context.Context, roomID string) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := m.countdownTick(ctx, roomID); done {
				return
			}
		}
	}
}

// countdownTick は1秒ぶんの進行を処理する。タスクを終えるべきなら true を返す。
func (m *Manager) countdownTick(ctx context.Context, roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 再スタートで取り消された旧タスクがロック待ちで1刻み遅れて届くことがある
	if ctx.Err() != nil {
		return true
	}

	room, ok := m.rooms[roomID]
	if !ok || room.Status != domain.StatusPlaying {
		return true
	}

	if room.TimeRemaining <= 0 {
		m.expireCountdownLocked(ctx, room)
		return true
	}

	if room.TimeRemaining%timerSyncInterval == 0 {
		evt := handler.NewTimerSyncEvent(room.TimeRemaining)
		for _, uid := range room.Players {
			m.sender.Send(ctx, uid, evt)
		}
	}
	room.TimeRemaining--
	return false
}

// expireCountdownLocked は期限切れ処理: 未提出者を通常の退室経路で追い出し、
// 残ったメンバーが全員提出済みなら準備完了を通知する。
func (m *Manager) expireCountdownLocked(ctx context.Context, room *domain.Room) {
	slog.InfoContext(ctx, "manager: equip timer expired", "roomID", room.ID)

	var stragglers []string
	for _, pid := range room.Players {
		if _, ok := room.Setups[pid]; !ok {
			stragglers = append(stragglers, pid)
		}
	}
	roomID := room.ID
	for _, pid := range stragglers {
		slog.InfoContext(ctx, "manager: evicting player on timer expiry", "roomID", roomID, "userID", pid)
		m.sender.Send(ctx, pid, handler.NewSystemEvent("Kicked/Equipment timer expired."))
		m.sender.Send(ctx, pid, handler.NewLeftRoomEvent())
		m.leaveRoomLocked(ctx, pid)
	}

	// 退室処理が準備完了を発火済みならガードが二重配信を防ぐ
	if survivor, ok := m.rooms[roomID]; ok {
		m.announceIfReadyLocked(ctx, survivor)
		survivor.CancelTimer()
	}
}
