package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/geojson"

	"github.com/richardvergely/GeoNature/internal/domain"
	"github.com/richardvergely/GeoNature/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	writeTimeout   = 5 * time.Second
	sendBuffer     = 16
)

// LayerUpdate is the message pushed to widget clients when a layer installs.
type LayerUpdate struct {
	LayerID   string                     `json:"layer_id"`
	Revision  int64                      `json:"revision"`
	Clustered bool                       `json:"clustered"`
	Features  *geojson.FeatureCollection `json:"features"`
}

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	mapID uuid.UUID
	conn  *websocket.Conn
	errCh chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	mapID uuid.UUID
	conn  *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	mapID uuid.UUID
	data  []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	mapID   uuid.UUID
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	cw.conn.Close()
}

// --- Hub ---

// Hub fans layer updates out to the widget clients of each map.
type Hub struct {
	cmdCh            chan hubCmd
	clock            clockwork.Clock
	clients          map[uuid.UUID]map[*websocket.Conn]*clientWriter
	onFirstClient    func(mapID uuid.UUID)
	onMapEmpty       func(mapID uuid.UUID)
	maxClientsPerMap int
}

// NewHub creates and starts a hub.
// onFirstClient fires when a map gains its first client on this instance,
// onMapEmpty when its last client leaves. Either may be nil.
func NewHub(onFirstClient, onMapEmpty func(uuid.UUID), clock clockwork.Clock, maxClientsPerMap int) *Hub {
	h := &Hub{
		cmdCh:            make(chan hubCmd, 256),
		clock:            clock,
		clients:          make(map[uuid.UUID]map[*websocket.Conn]*clientWriter),
		onFirstClient:    onFirstClient,
		onMapEmpty:       onMapEmpty,
		maxClientsPerMap: maxClientsPerMap,
	}
	go h.run()
	return h
}

// Register adds a widget client to a map. Returns an error when the per-map
// client limit is reached or the hub is stuck.
func (h *Hub) Register(mapID uuid.UUID, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- cmdRegister{mapID: mapID, conn: conn, errCh: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a widget client from a map.
func (h *Hub) Unregister(mapID uuid.UUID, conn *websocket.Conn) {
	h.cmdCh <- cmdUnregister{mapID: mapID, conn: conn}
}

// BroadcastLayer pushes a newly installed layer to all of the map's clients.
func (h *Hub) BroadcastLayer(mapID uuid.UUID, layer *domain.RenderedLayer) {
	update := LayerUpdate{
		LayerID:   layer.ID.String(),
		Revision:  layer.Revision,
		Clustered: layer.Clustered,
		Features:  layer.Features,
	}
	data, err := json.Marshal(update)
	if err != nil {
		slog.Error("Failed to marshal layer update", "layer_id", layer.ID.String(), "error", err)
		return
	}
	h.cmdCh <- cmdBroadcast{mapID: mapID, data: data}
}

// ClientCount returns the number of connected clients for a map, -1 when the
// hub does not answer in time.
func (h *Hub) ClientCount(mapID uuid.UUID) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdClientCount{mapID: mapID, replyCh: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, closing all client connections.
func (h *Hub) Stop() {
	h.cmdCh <- cmdStop{}
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.mapID, c.conn)
		case cmdBroadcast:
			h.handleBroadcast(c)
		case cmdClientCount:
			c.replyCh <- len(h.clients[c.mapID])
		case cmdStop:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	clients, exists := h.clients[c.mapID]
	if !exists {
		clients = make(map[*websocket.Conn]*clientWriter)
		h.clients[c.mapID] = clients
	}

	if len(clients) >= h.maxClientsPerMap {
		slog.Warn("Rejecting client: max clients reached", "map_uuid", c.mapID.String(), "max_clients", h.maxClientsPerMap)
		c.conn.Close()
		c.errCh <- fmt.Errorf("max clients per map (%d) reached", h.maxClientsPerMap)
		return
	}

	// First client activates the map; run the callback off the hub goroutine
	// so a slow activation cannot stall other commands.
	if !exists && h.onFirstClient != nil {
		go h.onFirstClient(c.mapID)
	}

	clients[c.conn] = newClientWriter(c.conn)

	metrics.HubActiveMaps.Set(float64(len(h.clients)))
	metrics.HubConnectedClients.Inc()

	slog.Debug("Client registered", "map_uuid", c.mapID.String(), "total_clients", len(clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(mapID uuid.UUID, conn *websocket.Conn) {
	clients, exists := h.clients[mapID]
	if !exists {
		return
	}
	cw, exists := clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, conn)
	metrics.HubConnectedClients.Dec()

	if len(clients) == 0 {
		delete(h.clients, mapID)
		metrics.HubActiveMaps.Set(float64(len(h.clients)))
		if h.onMapEmpty != nil {
			h.onMapEmpty(mapID)
		}
		slog.Info("Last client disconnected", "map_uuid", mapID.String())
	} else {
		slog.Debug("Client unregistered", "map_uuid", mapID.String(), "remaining_clients", len(clients))
	}
}

func (h *Hub) handleBroadcast(c cmdBroadcast) {
	clients, exists := h.clients[c.mapID]
	if !exists {
		return
	}

	var slow []*websocket.Conn
	for conn, cw := range clients {
		select {
		case cw.sendCh <- c.data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "map_uuid", c.mapID.String())
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(c.mapID, conn)
	}
}

func (h *Hub) handleStop() {
	total := 0
	for mapID, clients := range h.clients {
		for _, cw := range clients {
			cw.stop()
			total++
		}
		delete(h.clients, mapID)
		if h.onMapEmpty != nil {
			h.onMapEmpty(mapID)
		}
	}
	metrics.HubActiveMaps.Set(0)
	slog.Info("Hub shutdown complete", "disconnected_clients", total)
}
