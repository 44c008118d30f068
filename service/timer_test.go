package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/touka-aoi/merc-lobby/domain"
	"github.com/touka-aoi/merc-lobby/handler"
)

// newTickingManager は実時間の1秒を1msに圧縮したマネージャーを返す。
func newTickingManager() (*Manager, *fakeSender) {
	sender := &fakeSender{}
	m := NewManager(sender)
	m.tickInterval = time.Millisecond
	return m, sender
}

func TestCountdown_EvictsStragglersOnExpiry(t *testing.T) {
	m, sender := newTickingManager()
	ctx := context.Background()
	connectAll(ctx, m, "h", "p1", "p2")
	makeRoom(t, m, "h", "p1", "p2")

	one := 1
	m.UpdateSettings(ctx, "h", domain.ConfigPatch{EquipTimer: &one})
	m.StartGame(ctx, "h", json.RawMessage(validLevelJSON))

	m.SubmitSetup(ctx, "h", json.RawMessage(validSetupJSON))
	m.SubmitSetup(ctx, "p1", json.RawMessage(validSetupJSON))
	// p2 は提出しない

	require.Eventually(t, func() bool {
		return sender.countFor("p2", isSystem("Kicked/Equipment timer expired.")) == 1
	}, 2*time.Second, 5*time.Millisecond, "straggler must be evicted when the countdown runs out")

	require.Eventually(t, func() bool {
		return sender.countFor("h", isType[handler.AllSetupsReadyEvent]) == 1
	}, 2*time.Second, 5*time.Millisecond)

	room := m.roomOf(t, "h")
	assert.Equal(t, []string{"h", "p1"}, room.Players)
	assert.Equal(t, 1, sender.countFor("p2", isType[handler.LeftRoomEvent]))
	assert.Equal(t, 1, sender.countFor("p1", isType[handler.AllSetupsReadyEvent]))
	assert.Equal(t, 0, sender.countFor("p2", isType[handler.AllSetupsReadyEvent]))

	// 60秒刻みの同期は開始直後の60で1回だけ流れる
	syncAt60 := func(ev any) bool {
		s, ok := ev.(handler.TimerSyncEvent)
		return ok && s.TimeRemaining == 60
	}
	assert.Equal(t, 1, sender.countFor("h", syncAt60))
}

func TestCountdown_StopsWhenAllSetupsArrive(t *testing.T) {
	m, sender := newTickingManager()
	ctx := context.Background()
	connectAll(ctx, m, "h", "p1")
	makeRoom(t, m, "h", "p1")

	one := 1
	m.UpdateSettings(ctx, "h", domain.ConfigPatch{EquipTimer: &one})
	m.StartGame(ctx, "h", json.RawMessage(validLevelJSON))

	m.SubmitSetup(ctx, "h", json.RawMessage(validSetupJSON))
	m.SubmitSetup(ctx, "p1", json.RawMessage(validSetupJSON))

	require.Eventually(t, func() bool {
		return sender.countFor("h", isType[handler.AllSetupsReadyEvent]) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// 満了相当の時間が過ぎても誰も追い出されない
	time.Sleep(100 * time.Millisecond)
	room := m.roomOf(t, "h")
	assert.Equal(t, []string{"h", "p1"}, room.Players)
	assert.Equal(t, 0, sender.countFor("h", isSystem("Kicked/Equipment timer expired.")))
	assert.Equal(t, 0, sender.countFor("p1", isSystem("Kicked/Equipment timer expired.")))
	assert.Equal(t, 1, sender.countFor("p1", isType[handler.AllSetupsReadyEvent]))
}

func TestCountdown_AllStragglersEvictedDeletesRoom(t *testing.T) {
	m, sender := newTickingManager()
	ctx := context.Background()
	connectAll(ctx, m, "h", "p1")
	makeRoom(t, m, "h", "p1")

	one := 1
	m.UpdateSettings(ctx, "h", domain.ConfigPatch{EquipTimer: &one})
	m.StartGame(ctx, "h", json.RawMessage(validLevelJSON))
	// 誰も提出しない

	require.Eventually(t, func() bool {
		return m.roomCount() == 0
	}, 2*time.Second, 5*time.Millisecond, "room must disappear once every member is evicted")

	assert.Equal(t, 1, sender.countFor("h", isSystem("Kicked/Equipment timer expired.")))
	assert.Equal(t, 1, sender.countFor("p1", isSystem("Kicked/Equipment timer expired.")))
	assert.Equal(t, 0, sender.countFor("h", isType[handler.AllSetupsReadyEvent]))
}

func TestCountdownTick_IgnoresCancelledTask(t *testing.T) {
	m, sender := newTestManager()
	ctx := context.Background()
	connectAll(ctx, m, "h", "p1")
	makeRoom(t, m, "h", "p1")
	m.StartGame(ctx, "h", json.RawMessage(validLevelJSON))

	room := m.roomOf(t, "h")
	before := room.TimeRemaining
	sender.reset()

	// 取り消し済みの旧タスクの刻みはルームへ一切触れずに終了する
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	done := m.countdownTick(cancelled, room.ID)

	assert.True(t, done)
	assert.Equal(t, before, m.roomOf(t, "h").TimeRemaining)
	assert.Empty(t, sender.all(), "no TIMER_SYNC from a cancelled task")
}

func TestCountdown_StopsWhenRoomEmpties(t *testing.T) {
	m, sender := newTickingManager()
	ctx := context.Background()
	connectAll(ctx, m, "h", "p1")
	makeRoom(t, m, "h", "p1")

	m.StartGame(ctx, "h", json.RawMessage(validLevelJSON))
	m.LeaveRoom(ctx, "p1")
	m.LeaveRoom(ctx, "h")

	require.Equal(t, 0, m.roomCount())
	sender.reset()

	// 取り残されたタスクが残っていても次の刻みで自然に終了し、配信は起きない
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sender.all())
}
