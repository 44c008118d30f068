package handler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/touka-aoi/merc-lobby/domain"
)

// クライアント→サーバーのコマンド名。メッセージは {"cmd": "...", ...} のフラットなJSON。
const (
	CmdGlobalChat     = "GLOBAL_CHAT"
	CmdRoomChat       = "ROOM_CHAT"
	CmdCreateRoom     = "CREATE_ROOM"
	CmdJoinRoom       = "JOIN_ROOM"
	CmdLeaveRoom      = "LEAVE_ROOM"
	CmdGetRooms       = "GET_ROOMS"
	CmdKickPlayer     = "KICK_PLAYER"
	CmdGetRoomState   = "GET_ROOM_STATE"
	CmdUpdateSettings = "UPDATE_ROOM_SETTINGS"
	CmdStartGame      = "START_GAME"
	CmdSubmitSetup    = "SUBMIT_SETUP"
	CmdReportResult   = "REPORT_RESULT"
)

// Envelope はコマンド種別の判別にのみ使う外殻。
type Envelope struct {
	Cmd string `json:"cmd"`
}

// HandshakePayload は接続直後の認証フレーム。
// ticket の検証は Identity コラボレーターに委譲される。
type HandshakePayload struct {
	Ticket  string `json:"ticket"`
	SteamID string `json:"steam_id"`
}

type ChatPayload struct {
	Txt string `json:"txt"`
}

type JoinRoomPayload struct {
	RoomID string `json:"room_id"`
}

func (p *JoinRoomPayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("room id is required")
	}
	return nil
}

type KickPlayerPayload struct {
	TargetID string `json:"target_id"`
}

func (p *KickPlayerPayload) Validate() error {
	if p.TargetID == "" {
		return errors.New("target id is required")
	}
	return nil
}

// UpdateSettingsPayload は設定の部分更新。存在するキーだけが反映される。
type UpdateSettingsPayload struct {
	domain.ConfigPatch
}

type StartGamePayload struct {
	LevelData json.RawMessage `json:"level_data"`
}

func (p *StartGamePayload) Validate() error {
	if len(p.LevelData) == 0 {
		return errors.New("level data is required")
	}
	return nil
}

type SubmitSetupPayload struct {
	SetupData json.RawMessage `json:"setup_data"`
}

func (p *SubmitSetupPayload) Validate() error {
	if len(p.SetupData) == 0 {
		return errors.New("setup data is required")
	}
	return nil
}

type ReportResultPayload struct {
	OpponentID string         `json:"opponent_id"`
	Result     domain.Outcome `json:"result"`
}

func (p *ReportResultPayload) Validate() error {
	if p.OpponentID == "" {
		return errors.New("opponent id is required")
	}
	if !domain.ValidOutcome(p.Result) {
		return fmt.Errorf("invalid result: %q", p.Result)
	}
	return nil
}
