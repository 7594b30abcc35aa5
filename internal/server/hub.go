package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/npeters/go-taskroom/internal/database"
	"github.com/npeters/go-taskroom/internal/stats"
	"github.com/npeters/go-taskroom/internal/types"
)

// Hub is the realtime core: it owns the connection registry, accepts
// connection lifecycle events, and runs the chat channel. All registry
// mutation happens on the Run loop, so connect/disconnect races on the same
// user serialize naturally.
type Hub struct {
	log            *log.Logger
	db             database.TaskRoomRepository
	stats          stats.StatsProvider
	registry       *Registry
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	inboundChan    chan *ClientEvent
	stop           chan stopReq
	done           chan struct{}
}

type stopReq struct {
	done chan struct{}
}

func NewHub(logger *log.Logger, db database.TaskRoomRepository, sp stats.StatsProvider) (*Hub, error) {
	h := &Hub{
		log:            logger,
		db:             db,
		stats:          sp,
		registry:       NewRegistry(),
		clients:        make(map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		inboundChan:    make(chan *ClientEvent, 256),
		stop:           make(chan stopReq),
		done:           make(chan struct{}),
	}

	for _, metric := range []string{
		"NumActiveClients",
		"NumOnlineUsers",
		"NumChatMessages",
		"NumEventsDelivered",
	} {
		sp.RegisterMetric(metric)
	}

	return h, nil
}

// Registry exposes the connection registry for the dispatcher. Only the hub
// mutates it.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// RegisterClient hands a freshly upgraded connection to the Run loop and
// returns true once the loop has accepted it. It returns false if the hub
// has already stopped, so callers upgrading a connection that races
// shutdown do not block forever.
func (h *Hub) RegisterClient(c *Client) bool {
	select {
	case h.RegisterChan <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.RegisterChan:
			h.log.Printf("adding connection from %q", client.user.Name)
			h.addClient(client)
		case client := <-h.deRegisterChan:
			h.log.Printf("removing connection from %q", client.user.Name)
			h.removeClient(client)
		case ev := <-h.inboundChan:
			if ev.Event == EventSendMessage {
				h.saveAndBroadcast(ev)
			}
		case req := <-h.stop:
			h.log.Println("stopping clients")
			h.clientsLock.Lock()
			for c := range h.clients {
				c.stopClient()
			}
			h.clientsLock.Unlock()

			close(h.done)
			close(req.done)
			return
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	h.clients[c] = struct{}{}
	if !h.registry.IsOnline(c.user.Id) {
		h.stats.Incr("NumOnlineUsers")
	}
	h.registry.Register(c)
	h.stats.Incr("NumActiveClients")
}

func (h *Hub) removeClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	if _, ok := h.clients[c]; !ok {
		// already removed, e.g. duplicate close notification
		return
	}

	delete(h.clients, c)
	h.registry.Unregister(c)
	h.stats.Decr("NumActiveClients")
	if !h.registry.IsOnline(c.user.Id) {
		h.stats.Decr("NumOnlineUsers")
	}
}

// saveAndBroadcast persists an inbound chat message and, only if the store
// accepted it, fans it out to every connected client including the sender.
// An unpersisted message must never be broadcast: live viewers would see a
// message that later vanishes from history.
func (h *Hub) saveAndBroadcast(ev *ClientEvent) {
	var text string
	if err := json.Unmarshal(ev.Data, &text); err != nil || text == "" {
		ev.client.queueEvent(ErrInvalidMessage())
		return
	}

	saved, err := h.db.CreateMessage(database.Message{
		SenderId:   ev.client.user.Id,
		SenderName: ev.client.user.Name,
		Text:       text,
	})
	if err != nil {
		h.log.Println("error saving message:", err)
		ev.client.queueEvent(ErrInternalError())
		return
	}

	h.stats.Incr("NumChatMessages")

	h.broadcast(&ServerEvent{
		Event: EventNewMessage,
		Data: types.Message{
			Id:         saved.Id,
			SenderId:   saved.SenderId,
			SenderName: saved.SenderName,
			Text:       saved.Text,
			CreatedAt:  saved.CreatedAt,
		},
		Timestamp: Now(),
	})
}

func (h *Hub) broadcast(msg *ServerEvent) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	for client := range h.clients {
		client.queueEvent(msg)
	}
}

func (h *Hub) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case h.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
