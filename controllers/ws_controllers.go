package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/hub"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/services"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Inbound control actions.
const (
	ActionSubscribeTable   = "subscribe_table"
	ActionUnsubscribeTable = "unsubscribe_table"
	ActionFollowFloor      = "follow_floor"
)

type controlMessage struct {
	Action  string `json:"action"`
	TableID uint   `json:"table_id"`
	Follow  bool   `json:"follow"`
}

type WSController struct {
	Hub      *hub.Hub
	Engine   *services.Engine
	upgrader websocket.Upgrader
}

// NewWSController accepts upgrades from the given origins; an empty list
// accepts any origin.
func NewWSController(h *hub.Hub, engine *services.Engine, origins []string) *WSController {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &WSController{
		Hub:    h,
		Engine: engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

// Stream -> websocket feed of one restaurant's committed changes
func (wc *WSController) Stream(c *gin.Context) {
	rid, err := strconv.ParseUint(c.Query("restaurant_id"), 10, 64)
	if err != nil || rid == 0 {
		badRequest(c, errRestaurantID)
		return
	}
	if !inScope(c, uint(rid)) {
		return
	}

	ws, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	clientID := uuid.NewString()
	client := wc.Hub.Subscribe(clientID, uint(rid))
	log := utils.Logger().WithFields(logrus.Fields{
		"client":     clientID,
		"restaurant": rid,
		"user":       actor(c),
	})
	log.Info("websocket client connected")

	go wc.writeLoop(ws, client, log)
	wc.readLoop(c.Request.Context(), ws, client, log)

	wc.Hub.Unsubscribe(clientID)
	log.Info("websocket client disconnected")
}

func (wc *WSController) readLoop(ctx context.Context, ws *websocket.Conn, client *hub.Client, log *logrus.Entry) {
	ws.SetReadLimit(4096)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg controlMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("websocket read failed")
			}
			return
		}
		switch msg.Action {
		case ActionSubscribeTable:
			if msg.TableID != 0 && wc.ownsTable(ctx, client, msg.TableID, log) {
				wc.Hub.SubscribeTable(client.ID, msg.TableID)
			}
		case ActionUnsubscribeTable:
			wc.Hub.UnsubscribeTable(client.ID, msg.TableID)
		case ActionFollowFloor:
			wc.Hub.FollowFloor(client.ID, msg.Follow)
		default:
			log.WithField("action", msg.Action).Debug("unknown control message")
		}
	}
}

// ownsTable reports whether tableID belongs to the restaurant the client
// joined.
func (wc *WSController) ownsTable(ctx context.Context, client *hub.Client, tableID uint, log *logrus.Entry) bool {
	t, err := wc.Engine.GetTable(ctx, tableID)
	if err != nil {
		log.WithError(err).WithField("table", tableID).Warn("table subscription rejected")
		return false
	}
	if t.RestaurantID != client.RestaurantID {
		log.WithField("table", tableID).Warn("table subscription outside restaurant rejected")
		return false
	}
	return true
}

// writeLoop owns all writes to ws. When the hub drops the client it sends a
// final connection_lost frame so the dashboard refetches state.
func (wc *WSController) writeLoop(ws *websocket.Conn, client *hub.Client, log *logrus.Entry) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case ev := <-client.Events():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(ev); err != nil {
				log.WithError(err).Warn("websocket write failed")
				wc.Hub.Unsubscribe(client.ID)
				return
			}
		case <-client.Done():
			if reason := client.DropReason(); reason != "" {
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = ws.WriteJSON(hub.ConnectionLost(client.RestaurantID, reason, time.Now()))
				_ = ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason))
			}
			return
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				wc.Hub.Unsubscribe(client.ID)
				return
			}
		}
	}
}
