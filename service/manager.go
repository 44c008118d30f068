package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/touka-aoi/merc-lobby/domain"
	"github.com/touka-aoi/merc-lobby/handler"
)

// Sender はユーザーIDを宛先とするメッセージ配送の境界です。
// 切断済み・未接続の宛先への送信は失敗ではなく no-op として扱われます。
type Sender interface {
	Send(ctx context.Context, userID string, event any)
}

// Manager はルーム表とプレイヤー→ルーム対応を所有する唯一のコーディネーターです。
// すべての状態変更は1つのミューテックスで直列化されます。ルームへ直接触れるのは
// Manager の公開操作のみで、外部からの変更経路はありません。
type Manager struct {
	mu sync.Mutex

	sender Sender

	rooms      map[string]*domain.Room
	playerRoom map[string]string
	connected  map[string]struct{}
	lobbyChat  domain.ChatLog

	// tickInterval はカウントダウンの1秒相当の刻み。テストで短縮できる。
	tickInterval time.Duration
}

func NewManager(sender Sender) *Manager {
	return &Manager{
		sender:       sender,
		rooms:        make(map[string]*domain.Room),
		playerRoom:   make(map[string]string),
		connected:    make(map[string]struct{}),
		tickInterval: time.Second,
	}
}

// Connect は認証済みユーザーの接続を登録し、ロビー履歴とルーム一覧を送る。
func (m *Manager) Connect(ctx context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected[userID] = struct{}{}
	m.sender.Send(ctx, userID, handler.NewSystemEvent("Welcome!"))
	m.replayLobbyChatLocked(ctx, userID)
	m.sender.Send(ctx, userID, handler.NewRoomListEvent(m.roomListLocked()))
	slog.InfoContext(ctx, "manager: user connected", "userID", userID)
}

// Disconnect は切断を処理する。所属ルームからの退室も同一トランザクションで行う。
// トランスポートはちょうど1回だけ呼ぶこと。
func (m *Manager) Disconnect(ctx context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.connected, userID)
	m.leaveRoomLocked(ctx, userID)
	slog.InfoContext(ctx, "manager: user disconnected", "userID", userID)
}

// GlobalChat はロビーチャットを履歴へ積み、ルームに居ない接続者全員へ配る。
func (m *Manager) GlobalChat(ctx context.Context, senderID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	formatted := m.lobbyChat.Append(senderID, text)
	evt := handler.NewChatEvent(handler.ChatContextLobby, formatted)
	for uid := range m.connected {
		if _, inRoom := m.playerRoom[uid]; inRoom {
			continue
		}
		m.sender.Send(ctx, uid, evt)
	}
}

// RoomChat は発言者の所属ルームのメンバーだけに配る独立したチャットドメイン。
func (m *Manager) RoomChat(ctx context.Context, senderID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.activeRoomLocked(senderID)
	if room == nil {
		return
	}
	formatted := room.Chat.Append(senderID, text)
	evt := handler.NewChatEvent(handler.ChatContextRoom, formatted)
	for _, uid := range room.Players {
		m.sender.Send(ctx, uid, evt)
	}
}

// CreateRoom は作成者をホスト兼唯一のメンバーとして OPEN のルームを作る。
// 既に別ルームへ居る場合は先に退室させる。
func (m *Manager) CreateRoom(ctx context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaveRoomLocked(ctx, userID)

	room := domain.NewRoom(uuid.NewString(), userID)
	m.rooms[room.ID] = room
	m.playerRoom[userID] = room.ID

	m.broadcastRoomStateLocked(ctx, room)
	m.sender.Send(ctx, userID, handler.NewJoinedRoomEvent(room.ID))
	slog.InfoContext(ctx, "manager: room created", "roomID", room.ID, "host", userID)
}

// JoinRoom は満員でないルームへ参加させ、ルームチャット履歴を追送する。
// 不在・満員はどちらも SYSTEM 通知で応答し、致命的には扱わない。
func (m *Manager) JoinRoom(ctx context.Context, userID, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaveRoomLocked(ctx, userID)

	room, ok := m.rooms[roomID]
	if !ok || room.IsFull() {
		m.sender.Send(ctx, userID, handler.NewSystemEvent("Room not found."))
		return
	}

	room.AddPlayer(userID)
	m.playerRoom[userID] = roomID

	m.broadcastRoomStateLocked(ctx, room)
	m.sender.Send(ctx, userID, handler.NewJoinedRoomEvent(roomID))
	for _, line := range room.Chat.Entries() {
		m.sender.Send(ctx, userID, handler.NewChatEvent(handler.ChatContextRoom, line))
	}
}

// LeaveRoom は明示的な退室要求を処理する。
func (m *Manager) LeaveRoom(ctx context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaveRoomLocked(ctx, userID)
	m.sender.Send(ctx, userID, handler.NewLeftRoomEvent())
}

// KickPlayer はホスト専用。対象へ退室通知を送ってから退室経路へ乗せる。
func (m *Manager) KickPlayer(ctx context.Context, hostID, targetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.activeRoomLocked(hostID)
	if room == nil || room.Host != hostID {
		return
	}
	if targetID == hostID || !room.HasPlayer(targetID) {
		return
	}

	m.leaveRoomLocked(ctx, targetID)
	m.sender.Send(ctx, targetID, handler.NewLeftRoomEvent())
	m.sender.Send(ctx, targetID, handler.NewSystemEvent("You were kicked by the host."))
	slog.InfoContext(ctx, "manager: player kicked", "roomID", room.ID, "target", targetID)
}

// RoomState は要求者の所属ルームの全設定とメンバー一覧を返す。
func (m *Manager) RoomState(ctx context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.activeRoomLocked(userID)
	if room == nil {
		return
	}
	m.sender.Send(ctx, userID, handler.NewRoomStateEvent(room))
}

// RoomList は OPEN のルーム一覧を要求者へ返す。
func (m *Manager) RoomList(ctx context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sender.Send(ctx, userID, handler.NewRoomListEvent(m.roomListLocked()))
}

// UpdateSettings はホスト専用の部分更新。実際に変化があった場合のみ再配信する。
func (m *Manager) UpdateSettings(ctx context.Context, userID string, patch domain.ConfigPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.activeRoomLocked(userID)
	if room == nil || room.Host != userID {
		return
	}
	if room.Config.Apply(patch, len(room.Players)) {
		m.broadcastRoomStateLocked(ctx, room)
	}
}

// StartGame はレベルデータの整合性検査を通った場合のみラウンドを開始する。
// 検査失敗はホストにだけ全エラー一覧を返し、ルームは OPEN のまま残る。
func (m *Manager) StartGame(ctx context.Context, userID string, rawLevel json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.activeRoomLocked(userID)
	if room == nil || room.Host != userID || len(rawLevel) == 0 {
		return
	}

	var level domain.LevelData
	if err := json.Unmarshal(rawLevel, &level); err != nil {
		m.sender.Send(ctx, userID, handler.NewGameStartRejectedEvent(
			[]string{"Malformed level data: " + err.Error()}))
		return
	}
	if ok, errs := domain.ValidateLevel(&level); !ok {
		slog.WarnContext(ctx, "manager: game start rejected", "roomID", room.ID, "errors", len(errs))
		m.sender.Send(ctx, userID, handler.NewGameStartRejectedEvent(errs))
		return
	}

	if err := room.BeginRound(&level, rawLevel); err != nil {
		slog.WarnContext(ctx, "manager: begin round refused", "roomID", room.ID, "err", err)
		return
	}

	levelID := "L_" + uuid.NewString()
	evt := handler.GameStartedEvent{
		Type:              handler.EventGameStarted,
		LevelData:         rawLevel,
		LevelID:           levelID,
		QuickMatchAllowed: room.Config.QuickMatchAllowed,
		EquipTimer:        room.Config.EquipTimer,
	}
	for _, uid := range room.Players {
		m.sender.Send(ctx, uid, evt)
	}

	m.armCountdownLocked(room)
	slog.InfoContext(ctx, "manager: game started", "roomID", room.ID, "levelID", levelID,
		"equipTimer", room.Config.EquipTimer)
}

// SubmitSetup はロースターを予算検証にかける。違反は信頼失墜として扱い、
// 再提出を求めず即座に退室させる。
func (m *Manager) SubmitSetup(ctx context.Context, userID string, rawSetup json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.activeRoomLocked(userID)
	if room == nil || room.Level == nil || len(rawSetup) == 0 {
		return
	}

	setup, err := domain.ParseSetup(rawSetup)
	if err != nil {
		m.rejectSetupLocked(ctx, room, userID, "Malformed setup: "+err.Error())
		return
	}
	if ok, reason := domain.ValidateSetup(setup, room.Level); !ok {
		m.rejectSetupLocked(ctx, room, userID, reason)
		return
	}

	room.Setups[userID] = rawSetup
	m.announceIfReadyLocked(ctx, room)
}

func (m *Manager) rejectSetupLocked(ctx context.Context, room *domain.Room, userID, reason string) {
	slog.WarnContext(ctx, "manager: setup rejected, removing player",
		"roomID", room.ID, "userID", userID, "reason", reason)
	m.sender.Send(ctx, userID, handler.NewSystemEvent("Disconnected: "+reason))
	m.leaveRoomLocked(ctx, userID)
	m.sender.Send(ctx, userID, handler.NewLeftRoomEvent())
}

// ReportResult は申告を記録し、スコアを行列全体から再計算して配信する。
func (m *Manager) ReportResult(ctx context.Context, userID, opponentID string, result domain.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.activeRoomLocked(userID)
	if room == nil || opponentID == "" || !domain.ValidOutcome(result) {
		return
	}

	room.RecordResult(userID, opponentID, result)
	m.broadcastTournamentLocked(ctx, room)
}

// --- 内部ヘルパー（すべて m.mu 保持前提） ---

func (m *Manager) activeRoomLocked(userID string) *domain.Room {
	rid, ok := m.playerRoom[userID]
	if !ok {
		return nil
	}
	return m.rooms[rid]
}

// leaveRoomLocked は退室の唯一の経路。ホストが OPEN のルームを離れると解散、
// PLAYING 中のホスト退室は通常の離脱として扱われルームは存続する。
func (m *Manager) leaveRoomLocked(ctx context.Context, userID string) {
	rid, ok := m.playerRoom[userID]
	if !ok {
		return
	}
	room, ok := m.rooms[rid]
	if !ok {
		delete(m.playerRoom, userID)
		return
	}

	if room.Host == userID && room.Status == domain.StatusOpen {
		slog.InfoContext(ctx, "manager: host left open room, disbanding", "roomID", rid)
		for _, pid := range append([]string(nil), room.Players...) {
			delete(m.playerRoom, pid)
			m.sender.Send(ctx, pid, handler.NewLeftRoomEvent())
			if pid != userID {
				m.sender.Send(ctx, pid, handler.NewSystemEvent("Room disbanded by host."))
			}
		}
		room.CancelTimer()
		delete(m.rooms, rid)
	} else {
		if room.Host == userID {
			slog.InfoContext(ctx, "manager: host left playing room, game continues", "roomID", rid)
		}
		empty := room.RemovePlayer(userID)
		delete(m.playerRoom, userID)
		if empty {
			room.CancelTimer()
			delete(m.rooms, rid)
		} else {
			m.broadcastRoomStateLocked(ctx, room)
			if room.Status == domain.StatusPlaying {
				m.announceIfReadyLocked(ctx, room)
				m.broadcastTournamentLocked(ctx, room)
			}
		}
	}

	// 退室者はロビーへ戻る。不在中に流れた履歴を追送する。
	if _, connected := m.connected[userID]; connected {
		m.replayLobbyChatLocked(ctx, userID)
	}
}

// announceIfReadyLocked は現メンバー全員の提出が揃っていれば ALL_SETUPS_READY を
// 1度だけ配信し、カウントダウンを止める。
func (m *Manager) announceIfReadyLocked(ctx context.Context, room *domain.Room) {
	if !room.AllSetupsIn() || !room.MarkReadyAnnounced() {
		return
	}
	evt := handler.NewAllSetupsReadyEvent(room.Setups)
	for _, uid := range room.Players {
		m.sender.Send(ctx, uid, evt)
	}
	room.CancelTimer()
	slog.InfoContext(ctx, "manager: all setups ready", "roomID", room.ID)
}

func (m *Manager) broadcastTournamentLocked(ctx context.Context, room *domain.Room) {
	st := domain.Reconcile(room.Players, room.Results)
	room.Scores = st.Scores

	evt := handler.TournamentUpdateEvent{
		Type:          handler.EventTournamentUpdate,
		Scores:        st.Scores,
		Results:       room.Results,
		VerifiedCount: st.VerifiedPairs,
		TotalPairs:    st.TotalPairs,
		IsFinal:       st.Final,
	}
	for _, uid := range room.Players {
		m.sender.Send(ctx, uid, evt)
	}
}

func (m *Manager) broadcastRoomStateLocked(ctx context.Context, room *domain.Room) {
	evt := handler.NewRoomStateEvent(room)
	for _, uid := range room.Players {
		m.sender.Send(ctx, uid, evt)
	}
}

func (m *Manager) replayLobbyChatLocked(ctx context.Context, userID string) {
	for _, line := range m.lobbyChat.Entries() {
		m.sender.Send(ctx, userID, handler.NewChatEvent(handler.ChatContextLobby, line))
	}
}

func (m *Manager) roomListLocked() []handler.RoomSummary {
	list := make([]handler.RoomSummary, 0, len(m.rooms))
	for _, r := range m.rooms {
		if r.Status != domain.StatusOpen {
			continue
		}
		list = append(list, handler.RoomSummary{
			ID:                  r.ID,
			Name:                r.Name,
			Host:                r.Host,
			Players:             len(r.Players),
			MaxPlayers:          r.Config.MaxPlayers,
			LevelName:           r.Config.LevelName,
			IsRandom:            r.Config.IsRandom,
			SetupCharacterCount: r.Config.SetupCharacterCount,
			SetupEquipmentCount: r.Config.SetupEquipmentCount,
		})
	}
	return list
}
