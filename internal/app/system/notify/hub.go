// internal/app/system/notify/hub.go
//
// Package notify fans real-time events out to WebSocket clients grouped
// into rooms. Every connection joins its user room ("user:<id>") and may
// join camp rooms ("camp:<id>") it is authorised for.
package notify

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event types pushed to clients.
const (
	EventApplicationNew    = "application:new"
	EventApplicationStatus = "application:status"
	EventApplicationMsg    = "application:message"
	EventTaskAssigned      = "task:assigned"
	EventRosterUpdated     = "roster:updated"
	EventInviteApplied     = "invite:applied"
	EventShiftSignup       = "shift:signup"

	eventJoined = "joined-camp"
	eventLeft   = "left-camp"
	eventError  = "error"
)

// CampRoom names the room for a camp.
func CampRoom(campID string) string { return "camp:" + campID }

// UserRoom names the room for a user.
func UserRoom(userID string) string { return "user:" + userID }

// Event is the wire format of every server message.
type Event struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Publisher sends events to rooms. Publish never blocks.
type Publisher interface {
	Publish(room, eventType string, data any)
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(string, string, any) {}

// Or returns p, or Discard when p is nil.
func Or(p Publisher) Publisher {
	if p == nil {
		return Discard{}
	}
	return p
}

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opJoin
	opLeave
	opDirect
	opStats
)

type op struct {
	kind    opKind
	client  *Client
	room    string
	payload []byte
	reply   chan [2]int
}

type envelope struct {
	room    string
	payload []byte
}

// Hub owns all room membership. Its state is only touched by the run loop.
type Hub struct {
	log       *zap.Logger
	ops       chan op
	broadcast chan envelope
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once

	clients map[*Client]map[string]struct{}
	rooms   map[string]map[*Client]struct{}
}

// NewHub creates a hub. Call Start before attaching clients.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:       log,
		ops:       make(chan op),
		broadcast: make(chan envelope, 256),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		clients:   make(map[*Client]map[string]struct{}),
		rooms:     make(map[string]map[*Client]struct{}),
	}
}

// Start runs the hub loop in a goroutine.
func (h *Hub) Start() { go h.run() }

// Stop disconnects every client and waits for the loop to exit.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Publish queues an event for room. When the queue is full the event is
// dropped and logged.
func (h *Hub) Publish(room, eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Room: room, Data: data})
	if err != nil {
		h.log.Error("notify: marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- envelope{room: room, payload: payload}:
	case <-h.done:
	default:
		h.log.Warn("notify: broadcast queue full, dropping event",
			zap.String("room", room), zap.String("type", eventType))
	}
}

// submit hands an op to the loop unless the hub has stopped.
func (h *Hub) submit(o op) bool {
	select {
	case h.ops <- o:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.stop:
			for c := range h.clients {
				h.drop(c)
			}
			return
		case o := <-h.ops:
			h.apply(o)
		case env := <-h.broadcast:
			for c := range h.rooms[env.room] {
				h.deliver(c, env.payload)
			}
		}
	}
}

func (h *Hub) apply(o op) {
	c := o.client
	switch o.kind {
	case opRegister:
		h.clients[c] = make(map[string]struct{})
		h.join(c, UserRoom(c.userID))
	case opUnregister:
		if _, ok := h.clients[c]; ok {
			h.drop(c)
		}
	case opJoin:
		if _, ok := h.clients[c]; ok {
			h.join(c, o.room)
			h.deliver(c, mustEvent(eventJoined, o.room, nil))
		}
	case opLeave:
		if rooms, ok := h.clients[c]; ok {
			delete(rooms, o.room)
			h.removeFromRoom(c, o.room)
			h.deliver(c, mustEvent(eventLeft, o.room, nil))
		}
	case opDirect:
		if _, ok := h.clients[c]; ok {
			h.deliver(c, o.payload)
		}
	case opStats:
		o.reply <- [2]int{len(h.clients), len(h.rooms)}
	}
}

func (h *Hub) join(c *Client, room string) {
	h.clients[c][room] = struct{}{}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) removeFromRoom(c *Client, room string) {
	members := h.rooms[room]
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// deliver queues payload on c, dropping c when its buffer is full.
func (h *Hub) deliver(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.log.Warn("notify: slow client dropped", zap.String("user_id", c.userID))
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	for room := range h.clients[c] {
		h.removeFromRoom(c, room)
	}
	delete(h.clients, c)
	close(c.send)
}

// Stats reports connected clients and live rooms.
func (h *Hub) Stats() (clients, rooms int) {
	reply := make(chan [2]int, 1)
	if !h.submit(op{kind: opStats, reply: reply}) {
		return 0, 0
	}
	v := <-reply
	return v[0], v[1]
}

func mustEvent(eventType, room string, data any) []byte {
	b, _ := json.Marshal(Event{Type: eventType, Room: room, Data: data})
	return b
}
