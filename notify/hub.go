package notify

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	clientBuffer = 32
)

// Hub is the push transport. It owns the registry of connected players;
// a player is online while at least one subscription is open.
type Hub struct {
	upgrader websocket.Upgrader
	token    []byte
	mu       sync.RWMutex
	subs     map[string]map[chan []byte]struct{}
}

// NewHub builds a hub whose websocket endpoint accepts only requests carrying
// gatewayToken. With an empty token every upgrade is refused.
func NewHub(gatewayToken string) *Hub {
	return &Hub{
		token: []byte(gatewayToken),
		upgrader: websocket.Upgrader{
			// origin is enforced by the gateway in front of us
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe registers a receiver for playerID. The returned cancel func must
// be called once the receiver goes away.
func (h *Hub) Subscribe(playerID string) (<-chan []byte, func()) {
	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	if h.subs[playerID] == nil {
		h.subs[playerID] = make(map[chan []byte]struct{})
	}
	h.subs[playerID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[playerID], ch)
			if len(h.subs[playerID]) == 0 {
				delete(h.subs, playerID)
			}
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Online(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[playerID]) > 0
}

// OnlinePlayers returns the connected player ids, sorted.
func (h *Hub) OnlinePlayers() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (h *Hub) BalanceChanged(u BalanceUpdate) {
	h.send(u.PlayerID, Message{Type: TypeBalanceUpdate, Data: u})
}

func (h *Hub) Announce(a Announcement) {
	h.send(a.PlayerID, Message{Type: a.Type, Data: a})
}

// send delivers to one player, or all players when playerID is empty. Slow
// receivers miss the message.
func (h *Hub) send(playerID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("failed to encode hub message")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, chans := range h.subs {
		if playerID != "" && id != playerID {
			continue
		}
		for ch := range chans {
			select {
			case ch <- data:
			default:
			}
		}
	}
}

// authorized checks the gateway token, as "Bearer <token>" or the raw value.
func (h *Hub) authorized(r *http.Request) bool {
	if len(h.token) == 0 {
		return false
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), h.token) == 1
}

// ServeHTTP upgrades gateway-authenticated requests to a websocket. The
// player id comes from the X-User-ID header set by the gateway.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		log.WithField("remote", r.RemoteAddr).Warn("❌ [GATEWAY_AUTH] websocket rejected")
		http.Error(w, "invalid gateway authentication token", http.StatusUnauthorized)
		return
	}
	playerID := r.Header.Get("X-User-ID")
	if playerID == "" {
		http.Error(w, "missing X-User-ID", http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	msgs, cancel := h.Subscribe(playerID)
	log.WithField("player_id", playerID).Debug("🔌 websocket connected")

	gone := make(chan struct{})
	go h.readPump(conn, gone)
	h.writePump(conn, msgs, gone)
	cancel()
	log.WithField("player_id", playerID).Debug("websocket disconnected")
}

// readPump drains client frames so control messages are processed, and
// closes gone when the peer goes away.
func (h *Hub) readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Debug("websocket read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, msgs <-chan []byte, gone <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-gone:
			return
		case data := <-msgs:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
