package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"drtnav/internal/domain"
	"drtnav/internal/hub"
	"drtnav/internal/resolver"
)

type WSHandler struct {
	hub      *hub.Hub
	catalogs CatalogSource
	resolver *resolver.Resolver
	logger   *slog.Logger
}

func NewWSHandler(h *hub.Hub, catalogs CatalogSource, res *resolver.Resolver, logger *slog.Logger) *WSHandler {
	return &WSHandler{hub: h, catalogs: catalogs, resolver: res, logger: logger}
}

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SubscribePayload struct {
	RouteIDs []string `json:"routeIds"`
}

type PongMessage struct {
	Type string `json:"type"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := hub.NewClient(clientID, 64)

	h.hub.Register(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writeLoop(ctx, conn, client)

	h.readLoop(ctx, conn, client)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				h.logger.Debug("websocket read error", "client_id", client.ID, "error", err)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("invalid message format", "client_id", client.ID, "error", err)
			continue
		}

		switch msg.Type {
		case "subscribe":
			var payload SubscribePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				continue
			}
			if len(payload.RouteIDs) > 0 {
				h.hub.Subscribe(client, payload.RouteIDs)
				h.sendSnapshot(client, payload.RouteIDs)
			}

		case "unsubscribe":
			var payload SubscribePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				continue
			}
			if len(payload.RouteIDs) > 0 {
				h.hub.Unsubscribe(client, payload.RouteIDs)
			}

		case "ping":
			h.sendPong(client)
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// sendSnapshot gives a fresh subscriber the stops of its routes and, when
// the current result belongs to one of them, the result too.
func (h *WSHandler) sendSnapshot(client *hub.Client, routeIDs []string) {
	cat := h.catalogs.Catalog()

	var stops []domain.Stop
	var routes []domain.RouteInfo
	subscribed := make(map[string]struct{}, len(routeIDs))
	for _, id := range routeIDs {
		subscribed[id] = struct{}{}
		stops = append(stops, cat.RouteStops(id)...)
	}
	for _, info := range cat.Routes() {
		if _, ok := subscribed[info.ID]; ok {
			routes = append(routes, info)
		}
	}

	data, err := json.Marshal(hub.CatalogMessage{
		Type:    "snapshot",
		Payload: hub.CatalogPayload{Routes: routes, Stops: stops},
	})
	if err != nil {
		return
	}
	h.send(client, data)

	if path := h.resolver.Current(); path != nil {
		if _, ok := subscribed[path.RouteID]; ok {
			data, err := json.Marshal(hub.ResultMessage{Type: "result", Payload: path})
			if err != nil {
				return
			}
			h.send(client, data)
		}
	}
}

func (h *WSHandler) sendPong(client *hub.Client) {
	data, err := json.Marshal(PongMessage{Type: "pong"})
	if err != nil {
		return
	}
	h.send(client, data)
}

func (h *WSHandler) send(client *hub.Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Debug("client send buffer full", "client_id", client.ID)
	}
}
