package handler

import (
	"encoding/json"

	"github.com/touka-aoi/merc-lobby/domain"
)

// サーバー→クライアントのイベント種別。
const (
	EventChat              = "CHAT"
	EventRoomList          = "ROOM_LIST"
	EventJoinedRoom        = "JOINED_ROOM"
	EventLeftRoom          = "LEFT_ROOM"
	EventRoomState         = "ROOM_STATE"
	EventGameStartRejected = "GAME_START_REJECTED"
	EventGameStarted       = "GAME_STARTED"
	EventAllSetupsReady    = "ALL_SETUPS_READY"
	EventTournamentUpdate  = "TOURNAMENT_UPDATE"
	EventTimerSync         = "TIMER_SYNC"
	EventSystem            = "SYSTEM"
)

// チャットの配信ドメイン。
const (
	ChatContextLobby = "LOBBY"
	ChatContextRoom  = "ROOM"
)

type ChatEvent struct {
	Type    string `json:"type"`
	Context string `json:"context"`
	Txt     string `json:"txt"`
}

func NewChatEvent(context, txt string) ChatEvent {
	return ChatEvent{Type: EventChat, Context: context, Txt: txt}
}

// RoomSummary はロビーに見せるルーム一覧の1行。OPEN のルームだけが載る。
type RoomSummary struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Host                string `json:"host"`
	Players             int    `json:"players"`
	MaxPlayers          int    `json:"max_players"`
	LevelName           string `json:"level_name"`
	IsRandom            bool   `json:"is_random"`
	SetupCharacterCount int    `json:"setup_character_count"`
	SetupEquipmentCount int    `json:"setup_equipment_count"`
}

type RoomListEvent struct {
	Type  string        `json:"type"`
	Rooms []RoomSummary `json:"rooms"`
}

func NewRoomListEvent(rooms []RoomSummary) RoomListEvent {
	return RoomListEvent{Type: EventRoomList, Rooms: rooms}
}

type JoinedRoomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

func NewJoinedRoomEvent(roomID string) JoinedRoomEvent {
	return JoinedRoomEvent{Type: EventJoinedRoom, RoomID: roomID}
}

type LeftRoomEvent struct {
	Type string `json:"type"`
}

func NewLeftRoomEvent() LeftRoomEvent {
	return LeftRoomEvent{Type: EventLeftRoom}
}

// RoomStateEvent は設定レコード全体とメンバー一覧をそのまま運ぶ。
type RoomStateEvent struct {
	Type    string   `json:"type"`
	Players []string `json:"players"`
	domain.Config
}

func NewRoomStateEvent(room *domain.Room) RoomStateEvent {
	return RoomStateEvent{
		Type:    EventRoomState,
		Players: append([]string(nil), room.Players...),
		Config:  room.Config,
	}
}

type GameStartRejectedEvent struct {
	Type   string   `json:"type"`
	Errors []string `json:"errors"`
}

func NewGameStartRejectedEvent(errs []string) GameStartRejectedEvent {
	return GameStartRejectedEvent{Type: EventGameStartRejected, Errors: errs}
}

type GameStartedEvent struct {
	Type              string          `json:"type"`
	LevelData         json.RawMessage `json:"level_data"`
	LevelID           string          `json:"level_id"`
	QuickMatchAllowed bool            `json:"quick_match_allowed"`
	EquipTimer        int             `json:"equip_timer"`
}

type AllSetupsReadyEvent struct {
	Type   string                     `json:"type"`
	Setups map[string]json.RawMessage `json:"setups"`
}

func NewAllSetupsReadyEvent(setups map[string]json.RawMessage) AllSetupsReadyEvent {
	return AllSetupsReadyEvent{Type: EventAllSetupsReady, Setups: setups}
}

type TournamentUpdateEvent struct {
	Type          string                               `json:"type"`
	Scores        map[string]int                       `json:"scores"`
	Results       map[string]map[string]domain.Outcome `json:"results"`
	VerifiedCount int                                  `json:"verified_count"`
	TotalPairs    int                                  `json:"total_pairs"`
	IsFinal       bool                                 `json:"is_final"`
}

type TimerSyncEvent struct {
	Type          string `json:"type"`
	TimeRemaining int    `json:"time_remaining"`
}

func NewTimerSyncEvent(remaining int) TimerSyncEvent {
	return TimerSyncEvent{Type: EventTimerSync, TimeRemaining: remaining}
}

type SystemEvent struct {
	Type string `json:"type"`
	Txt  string `json:"txt"`
}

func NewSystemEvent(txt string) SystemEvent {
	return SystemEvent{Type: EventSystem, Txt: txt}
}
