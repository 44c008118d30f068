package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RoomStatus はルームのライフサイクル状態。
type RoomStatus uint8

const (
	// StatusOpen は参加受付中。設定はホストのみ変更可能。
	StatusOpen RoomStatus = iota
	// StatusPlaying はレベル確定後。セットアップ提出と結果申告を受け付ける。
	StatusPlaying
)

func (s RoomStatus) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusPlaying:
		return "PLAYING"
	default:
		return fmt.Sprintf("RoomStatus(%d)", uint8(s))
	}
}

// ErrInvalidTransition は遷移表にない状態遷移を表します。
var ErrInvalidTransition = errors.New("invalid room status transition")

// 遷移表。PLAYING→PLAYING はラウンドの再スタート。
var roomTransitions = map[RoomStatus][]RoomStatus{
	StatusOpen:    {StatusPlaying},
	StatusPlaying: {StatusPlaying},
}

// Room は1つのマッチメイキングセッションを表すエンティティ。
// 並行アクセスの直列化は呼び出し側（service.Manager）が担う。
type Room struct {
	ID     string
	Host   string
	Name   string
	Status RoomStatus

	// Players は参加順を保持する。重複なし。
	Players []string

	Config Config
	Chat   ChatLog

	// ラウンド状態。BeginRound でリセットされる。
	LevelRaw json.RawMessage
	Level    *LevelData
	Setups   map[string]json.RawMessage
	Results  map[string]map[string]Outcome
	Scores   map[string]int

	// TimeRemaining は装備タイマーの残秒数。
	TimeRemaining int

	timerCancel    context.CancelFunc
	readyAnnounced bool
}

// NewRoom はホストを唯一のメンバーとして OPEN 状態のルームを作る。
func NewRoom(id, host string) *Room {
	return &Room{
		ID:      id,
		Host:    host,
		Name:    displayName(host) + "'s Room",
		Status:  StatusOpen,
		Players: []string{host},
		Config:  DefaultConfig(),
		Setups:  make(map[string]json.RawMessage),
		Results: make(map[string]map[string]Outcome),
		Scores:  make(map[string]int),
	}
}

// displayName は "platform:name" 形式のIDから表示名部分を取り出す。
func displayName(userID string) string {
	if _, name, ok := strings.Cut(userID, ":"); ok {
		return name
	}
	return userID
}

func (r *Room) transition(to RoomStatus) error {
	for _, allowed := range roomTransitions[r.Status] {
		if allowed == to {
			r.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
}

// HasPlayer は指定IDが現メンバーかどうかを返す。
func (r *Room) HasPlayer(userID string) bool {
	for _, p := range r.Players {
		if p == userID {
			return true
		}
	}
	return false
}

// AddPlayer はメンバー末尾へ追加する。既存メンバーなら何もしない。
func (r *Room) AddPlayer(userID string) {
	if r.HasPlayer(userID) {
		return
	}
	r.Players = append(r.Players, userID)
}

// RemovePlayer はメンバーを外し、そのプレイヤーのラウンド状態も掃除する。
// ルームが空になった場合 true を返す。
func (r *Room) RemovePlayer(userID string) bool {
	for i, p := range r.Players {
		if p == userID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			delete(r.Setups, userID)
			delete(r.Scores, userID)
			delete(r.Results, userID)
			// メンバー構成が変わったので準備完了通知は再評価の対象に戻す
			r.readyAnnounced = false
			return len(r.Players) == 0
		}
	}
	return false
}

// IsFull は定員に達しているかどうかを返す。
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.Config.MaxPlayers
}

// BeginRound はレベルデータを確定し、ラウンド状態をリセットして PLAYING へ遷移する。
// タイマーの残秒数は equip_timer 分×60 で初期化される。
func (r *Room) BeginRound(level *LevelData, raw json.RawMessage) error {
	if err := r.transition(StatusPlaying); err != nil {
		return err
	}
	r.Level = level
	r.LevelRaw = raw
	r.Setups = make(map[string]json.RawMessage)
	r.Results = make(map[string]map[string]Outcome)
	r.Scores = make(map[string]int)
	r.TimeRemaining = r.Config.EquipTimer * 60
	r.readyAnnounced = false
	return nil
}

// RecordResult は申告を記録する。同じ相手への再申告は上書きされる。
func (r *Room) RecordResult(reporter, opponent string, result Outcome) {
	row, ok := r.Results[reporter]
	if !ok {
		row = make(map[string]Outcome)
		r.Results[reporter] = row
	}
	row[opponent] = result
}

// AllSetupsIn は現メンバー全員がセットアップ提出済みかどうかを返す。
func (r *Room) AllSetupsIn() bool {
	return len(r.Players) > 0 && len(r.Setups) == len(r.Players)
}

// MarkReadyAnnounced は準備完了通知をこのラウンド（かつ現メンバー構成）で
// まだ出していなければ出したことにして true を返す。
func (r *Room) MarkReadyAnnounced() bool {
	if r.readyAnnounced {
		return false
	}
	r.readyAnnounced = true
	return true
}

// ArmTimer はカウントダウンの取消ハンドルを設定する。
// 既存のタイマーがあれば必ず先に取り消す。アクティブなカウントダウンは常に1つ。
func (r *Room) ArmTimer(cancel context.CancelFunc) {
	r.CancelTimer()
	r.timerCancel = cancel
}

// CancelTimer は走行中のカウントダウンを取り消す。未設定なら何もしない。
func (r *Room) CancelTimer() {
	if r.timerCancel != nil {
		r.timerCancel()
		r.timerCancel = nil
	}
}
