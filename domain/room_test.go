package domain

import (
	"context"
	"fmt"
	"testing"
)

func TestNewRoom(t *testing.T) {
	r := NewRoom("r1", "steam:alice")

	if r.Status != StatusOpen {
		t.Errorf("Status = %s, want OPEN", r.Status)
	}
	if len(r.Players) != 1 || r.Players[0] != "steam:alice" {
		t.Errorf("Players = %v, want sole host member", r.Players)
	}
	if r.Name != "alice's Room" {
		t.Errorf("Name = %q", r.Name)
	}
	if r.Config.MaxPlayers != 2 || r.Config.EquipTimer != 15 {
		t.Errorf("default config = %+v", r.Config)
	}
}

func TestRoom_AddRemovePlayer(t *testing.T) {
	r := NewRoom("r1", "h")
	r.AddPlayer("p1")
	r.AddPlayer("p1") // 重複は無視

	if len(r.Players) != 2 {
		t.Fatalf("Players = %v", r.Players)
	}

	r.Setups["p1"] = []byte(`[]`)
	r.Scores["p1"] = 3
	r.RecordResult("p1", "h", OutcomeWin)

	if empty := r.RemovePlayer("p1"); empty {
		t.Error("room with host should not be empty")
	}
	if _, ok := r.Setups["p1"]; ok {
		t.Error("leaver setup not cleaned")
	}
	if _, ok := r.Scores["p1"]; ok {
		t.Error("leaver score not cleaned")
	}
	if _, ok := r.Results["p1"]; ok {
		t.Error("leaver result row not cleaned")
	}

	if empty := r.RemovePlayer("h"); !empty {
		t.Error("removing last member should report empty")
	}
}

func TestRoom_Transitions(t *testing.T) {
	r := NewRoom("r1", "h")
	level := validLevel()

	if err := r.BeginRound(level, []byte(`{}`)); err != nil {
		t.Fatalf("OPEN -> PLAYING failed: %v", err)
	}
	if r.Status != StatusPlaying {
		t.Errorf("Status = %s, want PLAYING", r.Status)
	}

	// ラウンド再スタートは合法な自己遷移
	if err := r.BeginRound(level, []byte(`{}`)); err != nil {
		t.Errorf("PLAYING -> PLAYING restart failed: %v", err)
	}
}

func TestRoom_BeginRoundResetsRoundState(t *testing.T) {
	r := NewRoom("r1", "h")
	r.AddPlayer("p1")
	r.Config.EquipTimer = 2

	r.Setups["p1"] = []byte(`[]`)
	r.RecordResult("p1", "h", OutcomeWin)
	r.Scores["p1"] = 2

	if err := r.BeginRound(validLevel(), []byte(`{}`)); err != nil {
		t.Fatalf("BeginRound failed: %v", err)
	}

	if len(r.Setups) != 0 || len(r.Results) != 0 || len(r.Scores) != 0 {
		t.Error("round state not reset")
	}
	if r.TimeRemaining != 120 {
		t.Errorf("TimeRemaining = %d, want 120", r.TimeRemaining)
	}
	if r.Level == nil {
		t.Error("level data not attached")
	}
}

func TestRoom_AllSetupsIn(t *testing.T) {
	r := NewRoom("r1", "h")
	r.AddPlayer("p1")

	if r.AllSetupsIn() {
		t.Error("no setups submitted yet")
	}
	r.Setups["h"] = []byte(`[]`)
	r.Setups["p1"] = []byte(`[]`)
	if !r.AllSetupsIn() {
		t.Error("all members submitted")
	}

	if !r.MarkReadyAnnounced() {
		t.Error("first announce should pass")
	}
	if r.MarkReadyAnnounced() {
		t.Error("second announce should be suppressed")
	}
	// メンバー構成が変われば再告知の対象に戻る
	r.RemovePlayer("p1")
	if !r.MarkReadyAnnounced() {
		t.Error("announce guard should reset after membership change")
	}
}

func TestRoom_ArmTimerCancelsPredecessor(t *testing.T) {
	r := NewRoom("r1", "h")

	ctx1, cancel1 := context.WithCancel(context.Background())
	r.ArmTimer(cancel1)

	_, cancel2 := context.WithCancel(context.Background())
	r.ArmTimer(cancel2)

	select {
	case <-ctx1.Done():
	default:
		t.Error("previous countdown not cancelled on re-arm")
	}

	r.CancelTimer()
	r.CancelTimer() // 冪等
}

func TestConfig_ApplyPatch(t *testing.T) {
	c := DefaultConfig()

	four := 4
	if !c.Apply(ConfigPatch{MaxPlayers: &four}, 2) {
		t.Fatal("patch should report change")
	}
	if c.MaxPlayers != 4 {
		t.Errorf("MaxPlayers = %d, want 4", c.MaxPlayers)
	}

	// 現在の人数未満への縮小は黙って無視
	one := 1
	if c.Apply(ConfigPatch{MaxPlayers: &one}, 3) {
		t.Error("shrink below membership should not count as a change")
	}
	if c.MaxPlayers != 4 {
		t.Errorf("MaxPlayers = %d, want 4 after ignored shrink", c.MaxPlayers)
	}

	// equip_timer は [1,30] に丸める
	big := 99
	c.Apply(ConfigPatch{EquipTimer: &big}, 2)
	if c.EquipTimer != 30 {
		t.Errorf("EquipTimer = %d, want 30", c.EquipTimer)
	}
	zero := 0
	c.Apply(ConfigPatch{EquipTimer: &zero}, 2)
	if c.EquipTimer != 1 {
		t.Errorf("EquipTimer = %d, want 1", c.EquipTimer)
	}

	if c.Apply(ConfigPatch{}, 2) {
		t.Error("empty patch should not report change")
	}
}

func TestChatLog_Bounded(t *testing.T) {
	var log ChatLog
	for i := 0; i < 25; i++ {
		log.Append("u", fmt.Sprintf("msg %d", i))
	}

	entries := log.Entries()
	if len(entries) != 20 {
		t.Fatalf("entries = %d, want 20", len(entries))
	}
	if entries[0] != "[u]: msg 5" || entries[19] != "[u]: msg 24" {
		t.Errorf("window = %q .. %q", entries[0], entries[19])
	}
}
