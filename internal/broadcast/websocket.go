package broadcast

import (
	"net/http"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

// TokenVerifier 将 Bearer 凭证解析为用户 ID。
type TokenVerifier interface {
	ParseToken(raw string) (uuid.UUID, error)
}

// WebsocketHandler 向已认证的浏览器推送 ProgressEvent JSON 帧。
// 查询参数：?token=<jwt>&uploadId=<uuid>，uploadId 可选。
type WebsocketHandler struct {
	hub      *Hub
	verifier TokenVerifier
	upgrader websocket.Upgrader
	log      *log.Helper
}

// NewWebsocketHandler 构造进度 websocket 端点。
func NewWebsocketHandler(hub *Hub, verifier TokenVerifier, cfg configloader.ServerConfig, logger log.Logger) *WebsocketHandler {
	origin := strings.TrimRight(cfg.FrontendURL, "/")
	return &WebsocketHandler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if origin == "" {
					return true
				}
				got := r.Header.Get("Origin")
				return got == "" || strings.TrimRight(got, "/") == origin
			},
		},
		log: log.NewHelper(logger),
	}
}

// ServeHTTP 完成认证与协议升级，并持续推送事件直到任一方关闭。
func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	}
	ownerID, err := h.verifier.ParseToken(token)
	if err != nil || ownerID == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filter := Filter{OwnerID: ownerID}
	if raw := r.URL.Query().Get("uploadId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid uploadId", http.StatusBadRequest)
			return
		}
		filter.UploadID = id
	}

	sub, err := h.hub.Subscribe(filter)
	if err != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithContext(r.Context()).Warnf("websocket upgrade failed: err=%v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop 读取客户端帧以处理控制消息，并在对端断开时发出信号。
func (h *WebsocketHandler) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
