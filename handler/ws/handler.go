package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/touka-aoi/merc-lobby/handler"
	"github.com/touka-aoi/merc-lobby/service"
)

// maxMessageBytes は1フレームの受信上限。上限いっぱいのレベルデータを運ぶ
// START_GAME フレームは coder/websocket の既定値 32KB に収まらない。
const maxMessageBytes = 1 << 20

// Handler は1接続ぶんのWebSocketエンドポイント。
// ハンドシェイクで信頼できるプレイヤーIDを確定し、以降のテキストフレームを
// コマンドへデコードして Manager に委譲する。
type Handler struct {
	svc      *service.Manager
	registry *Registry
	identity Identity
}

func NewHandler(svc *service.Manager, registry *Registry, identity Identity) *Handler {
	return &Handler{
		svc:      svc,
		registry: registry,
		identity: identity,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "ws: failed to accept connection", "err", err)
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	userID, err := h.handshake(ctx, conn)
	if err != nil {
		_ = conn.Write(ctx, websocket.MessageText, []byte("AUTH_FAILED"))
		_ = conn.Close(websocket.StatusPolicyViolation, "auth failed")
		return
	}

	c := newClient(userID, conn)
	if old := h.registry.add(c); old != nil {
		// 同一IDの再接続。旧接続は黙って置き換える。
		old.close()
		_ = old.conn.Close(websocket.StatusNormalClosure, "superseded")
	}

	h.svc.Connect(ctx, userID)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		h.readLoop(ctx, c)
		return nil
	})
	eg.Go(func() error {
		h.writeLoop(ctx, c)
		return nil
	})
	_ = eg.Wait()
}

// handshake は最初のフレーム {ticket, steam_id} から信頼できるIDを得る。
func (h *Handler) handshake(ctx context.Context, conn *websocket.Conn) (string, error) {
	msgType, data, err := conn.Read(ctx)
	if err != nil {
		return "", err
	}
	if msgType != websocket.MessageText {
		return "", ErrAuthFailed
	}
	var hello handler.HandshakePayload
	if err := json.Unmarshal(data, &hello); err != nil {
		return "", ErrAuthFailed
	}
	return h.identity.Verify(ctx, hello.Ticket, hello.SteamID)
}

// readLoop は受信フレームをコマンドへ回す。終了時に切断をちょうど1回だけ通知する。
func (h *Handler) readLoop(ctx context.Context, c *client) {
	defer func() {
		if h.registry.remove(c) {
			h.svc.Disconnect(ctx, c.userID)
		}
		c.close()
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()
	for {
		msgType, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				slog.DebugContext(ctx, "ws: read ended", "userID", c.userID, "err", err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}
		h.dispatch(ctx, c.userID, data)
	}
}

func (h *Handler) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
				slog.DebugContext(ctx, "ws: write error", "userID", c.userID, "err", err)
				return
			}
		}
	}
}

// dispatch は1フレームを1コマンドとして処理する。
// JSONでない、または cmd を持たないメッセージはレガシーなロビーチャットとして扱う。
func (h *Handler) dispatch(ctx context.Context, userID string, data []byte) {
	var env handler.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Cmd == "" {
		h.svc.GlobalChat(ctx, userID, string(data))
		return
	}

	switch env.Cmd {
	case handler.CmdGlobalChat:
		var p handler.ChatPayload
		if !h.decode(ctx, env.Cmd, data, &p) {
			return
		}
		h.svc.GlobalChat(ctx, userID, p.Txt)

	case handler.CmdRoomChat:
		var p handler.ChatPayload
		if !h.decode(ctx, env.Cmd, data, &p) {
			return
		}
		h.svc.RoomChat(ctx, userID, p.Txt)

	case handler.CmdCreateRoom:
		h.svc.CreateRoom(ctx, userID)

	case handler.CmdJoinRoom:
		var p handler.JoinRoomPayload
		if !h.decode(ctx, env.Cmd, data, &p) {
			return
		}
		if err := p.Validate(); err != nil {
			slog.WarnContext(ctx, "ws: invalid payload", "cmd", env.Cmd, "err", err)
			return
		}
		h.svc.JoinRoom(ctx, userID, p.RoomID)

	case handler.CmdLeaveRoom:
		h.svc.LeaveRoom(ctx, userID)

	case handler.CmdGetRooms:
		h.svc.RoomList(ctx, userID)

	case handler.CmdKickPlayer:
		var p handler.KickPlayerPayload
		if !h.decode(ctx, env.Cmd, data, &p) {
			return
		}
		if err := p.Validate(); err != nil {
			slog.WarnContext(ctx, "ws: invalid payload", "cmd", env.Cmd, "err", err)
			return
		}
		h.svc.KickPlayer(ctx, userID, p.TargetID)

	case handler.CmdGetRoomState:
		h.svc.RoomState(ctx, userID)

	case handler.CmdUpdateSettings:
		var p handler.UpdateSettingsPayload
		if !h.decode(ctx, env.Cmd, data, &p) {
			return
		}
		h.svc.UpdateSettings(ctx, userID, p.ConfigPatch)

	case handler.CmdStartGame:
		var p handler.StartGamePayload
		if !h.decode(ctx, env.Cmd, data, &p) {
			return
		}
		if err := p.Validate(); err != nil {
			slog.WarnContext(ctx, "ws: invalid payload", "cmd", env.Cmd, "err", err)
			return
		}
		h.svc.StartGame(ctx, userID, p.LevelData)

	case handler.CmdSubmitSetup:
		var p handler.SubmitSetupPayload
		if !h.decode(ctx, env.Cmd, data, &p) {
			return
		}
		if err := p.Validate(); err != nil {
			slog.WarnContext(ctx, "ws: invalid payload", "cmd", env.Cmd, "err", err)
			return
		}
		h.svc.SubmitSetup(ctx, userID, p.SetupData)

	case handler.CmdReportResult:
		var p handler.ReportResultPayload
		if !h.decode(ctx, env.Cmd, data, &p) {
			return
		}
		if err := p.Validate(); err != nil {
			slog.WarnContext(ctx, "ws: invalid payload", "cmd", env.Cmd, "err", err)
			return
		}
		h.svc.ReportResult(ctx, userID, p.OpponentID, p.Result)

	default:
		slog.WarnContext(ctx, "ws: unsupported command dropped", "cmd", env.Cmd)
	}
}

func (h *Handler) decode(ctx context.Context, cmd string, data []byte, dst any) bool {
	if err := json.Unmarshal(data, dst); err != nil {
		slog.WarnContext(ctx, "ws: malformed payload dropped", "cmd", cmd, "err", err)
		return false
	}
	return true
}
