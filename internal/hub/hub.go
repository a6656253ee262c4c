package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"drtnav/internal/domain"
)

type Client struct {
	ID     string
	Send   chan []byte
	routes map[string]struct{}
	mu     sync.RWMutex
}

func NewClient(id string, bufferSize int) *Client {
	return &Client{
		ID:     id,
		Send:   make(chan []byte, bufferSize),
		routes: make(map[string]struct{}),
	}
}

func (c *Client) AddRoutes(routeIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range routeIDs {
		c.routes[id] = struct{}{}
	}
}

func (c *Client) RemoveRoutes(routeIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range routeIDs {
		delete(c.routes, id)
	}
}

func (c *Client) GetRoutes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	routes := make([]string, 0, len(c.routes))
	for id := range c.routes {
		routes = append(routes, id)
	}
	return routes
}

// event is one pre-marshaled message; an empty routeID fans out to every
// connected client, otherwise only to the route's subscribers.
type event struct {
	routeID string
	data    []byte
}

// Hub fans resolve results and catalog reloads out to websocket map
// clients. Clients subscribe per route id.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*Client]struct{}
	routeClients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan event

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:      make(map[*Client]struct{}),
		routeClients: make(map[string]map[*Client]struct{}),
		register:     make(chan *Client, 16),
		unregister:   make(chan *Client, 16),
		broadcast:    make(chan event, 64),
		logger:       logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.ID, "total", len(h.clients))

		case client := <-h.unregister:
			h.removeClient(client)

		case ev := <-h.broadcast:
			h.fanout(ev)
		}
	}
}

func (h *Hub) Subscribe(client *Client, routeIDs []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.AddRoutes(routeIDs)

	for _, id := range routeIDs {
		if h.routeClients[id] == nil {
			h.routeClients[id] = make(map[*Client]struct{})
		}
		h.routeClients[id][client] = struct{}{}
	}
}

func (h *Hub) Unsubscribe(client *Client, routeIDs []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.RemoveRoutes(routeIDs)

	for _, id := range routeIDs {
		if h.routeClients[id] != nil {
			delete(h.routeClients[id], client)
			if len(h.routeClients[id]) == 0 {
				delete(h.routeClients, id)
			}
		}
	}
}

type ResultMessage struct {
	Type    string               `json:"type"`
	Payload *domain.ResolvedPath `json:"payload"`
}

type CatalogMessage struct {
	Type    string         `json:"type"`
	Payload CatalogPayload `json:"payload"`
}

type CatalogPayload struct {
	Routes []domain.RouteInfo `json:"routes"`
	Stops  []domain.Stop      `json:"stops"`
}

// PublishResult pushes a committed resolve result to the route's
// subscribers.
func (h *Hub) PublishResult(path *domain.ResolvedPath) {
	data, err := json.Marshal(ResultMessage{Type: "result", Payload: path})
	if err != nil {
		return
	}
	h.publish(event{routeID: path.RouteID, data: data})
}

// PublishCatalog pushes a rebuilt catalog to every client.
func (h *Hub) PublishCatalog(routes []domain.RouteInfo, stops []domain.Stop) {
	data, err := json.Marshal(CatalogMessage{
		Type:    "catalog",
		Payload: CatalogPayload{Routes: routes, Stops: stops},
	})
	if err != nil {
		return
	}
	h.publish(event{data: data})
}

func (h *Hub) publish(ev event) {
	select {
	case h.broadcast <- ev:
	default:
		h.logger.Warn("broadcast channel full, dropping event", "route_id", ev.routeID)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) fanout(ev event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.clients
	if ev.routeID != "" {
		targets = h.routeClients[ev.routeID]
	}

	for client := range targets {
		select {
		case client.Send <- ev.data:
		default:
			h.logger.Debug("client send buffer full", "client_id", client.ID)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	for _, id := range client.GetRoutes() {
		if h.routeClients[id] != nil {
			delete(h.routeClients[id], client)
			if len(h.routeClients[id]) == 0 {
				delete(h.routeClients, id)
			}
		}
	}

	delete(h.clients, client)
	close(client.Send)
	h.logger.Debug("client unregistered", "client_id", client.ID, "total", len(h.clients))
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]struct{})
	h.routeClients = make(map[string]map[*Client]struct{})
}
