package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/touka-aoi/merc-lobby/service"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	registry := NewRegistry()
	manager := service.NewManager(registry)
	h := NewHandler(manager, registry, TrustIdentity{})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, ctx context.Context, url, steamID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	conn.SetReadLimit(maxMessageBytes)

	hello := fmt.Sprintf(`{"ticket": "t", "steam_id": %q}`, steamID)
	if err := conn.Write(ctx, websocket.MessageText, []byte(hello)); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	return conn
}

// readUntil は指定タイプのイベントが届くまでフレームを読み進める。
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, eventType string) []byte {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read while waiting for %s: %v", eventType, err)
		}
		var env struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &env) == nil && env.Type == eventType {
			return data
		}
	}
}

// fullSizeLevelJSON は各リストを上限まで詰めた有効なレベルデータを組み立てる。
// 傭兵16体×スロット20、装備・敵装備パック各100点。
func fullSizeLevelJSON() []byte {
	item := func(id int) string {
		return fmt.Sprintf(`{"id": "item%d", "cost": 50, "slot_type": "hand",
			"stats": {"attack": 5, "defence": 3, "speed": 1, "health": 10},
			"abilities": ["cleave", "parry", "lunge"]}`, id)
	}
	var items, enemyItems []string
	for i := 0; i < 100; i++ {
		items = append(items, item(i))
		enemyItems = append(enemyItems, item(1000+i))
	}

	var mercs []string
	for i := 0; i < 16; i++ {
		var slots []string
		for j := 0; j < 20; j++ {
			slots = append(slots, fmt.Sprintf(`{"id": "m%ds%d", "type": "hand"}`, i, j))
		}
		mercs = append(mercs, fmt.Sprintf(`{"id": "m%d", "health": 100, "attack": 10,
			"defence": 5, "speed": 3, "cost": 50, "level": 1, "max_level": 10,
			"level_growth": {"health": 10, "attack": 2},
			"slots": [%s],
			"level_abilities": {"1": {"bash": {}, "guard": {}}, "2": {"charge": {}}}}`,
			i, strings.Join(slots, ",")))
	}

	return []byte(fmt.Sprintf(`{
		"dialogue": {"player_money": 2000, "max_mercenaries": 10, "levels_available": 90},
		"mercenaries": [%s],
		"equipment": [%s],
		"enemy_equipment": [%s]
	}`, strings.Join(mercs, ","), strings.Join(items, ","), strings.Join(enemyItems, ",")))
}

func TestServeHTTP_StartGameWithFullSizeLevel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := newTestServer(t)
	conn := dial(t, ctx, url, "steam:host")

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"cmd": "CREATE_ROOM"}`)); err != nil {
		t.Fatalf("create room: %v", err)
	}
	readUntil(t, ctx, conn, "JOINED_ROOM")

	level := fullSizeLevelJSON()
	frame := []byte(fmt.Sprintf(`{"cmd": "START_GAME", "level_data": %s}`, level))
	if len(frame) <= 1<<15 {
		t.Fatalf("frame must exceed a 32KB read limit to be meaningful, got %d bytes", len(frame))
	}
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		t.Fatalf("start game: %v", err)
	}

	data := readUntil(t, ctx, conn, "GAME_STARTED")
	var started struct {
		LevelData json.RawMessage `json:"level_data"`
		LevelID   string          `json:"level_id"`
	}
	if err := json.Unmarshal(data, &started); err != nil {
		t.Fatalf("decode GAME_STARTED: %v", err)
	}
	if started.LevelID == "" {
		t.Error("level_id missing")
	}
	if len(started.LevelData) != len(level) {
		t.Errorf("level data not echoed intact: got %d bytes, sent %d", len(started.LevelData), len(level))
	}
}

func TestServeHTTP_HandshakeRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := newTestServer(t)
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// steam_id が空のハンドシェイクは拒否される
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"ticket": "t", "steam_id": ""}`)); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "AUTH_FAILED" {
		t.Errorf("reply = %q, want AUTH_FAILED", data)
	}
}
