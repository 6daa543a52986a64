package ws

import (
	"net/http"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket streams the caller's tenant events as JSON text frames.
// WS route: /ws/orders
func (h *OrderHub) HandleWebSocket(c *gin.Context) {
	tenantID := utils.CurrentTenantID(c)
	if tenantID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "token has no restaurant"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}

	sub := h.Subscribe(tenantID)
	log.WithFields(log.Fields{
		"tenant_id": tenantID,
		"user_id":   utils.CurrentUserID(c),
	}).Info("order stream subscribed")

	go writePump(conn, sub)
	go readPump(conn, sub)
}

// readPump only drains control frames; clients do not send events.
func readPump(conn *websocket.Conn, sub *Subscription) {
	defer func() {
		sub.Close()
		conn.Close()
	}()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("ws read error")
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case evt, ok := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// dropped or hub stopped: the client reconnects and refetches
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "resubscribe"))
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				log.WithError(err).Debug("ws write error")
				sub.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.Close()
				return
			}
		}
	}
}
