package livews

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"

	"github.com/velolift/VeloLiftBack/internal/metrics"
	"github.com/velolift/VeloLiftBack/internal/services"
)

// Hub fans live workout events out to connected clients. An athlete sees
// their own reps as they land; a linked coach sees the same stream for
// every athlete on their roster.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	events     chan *event
	metrics    *metrics.Manager
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

type event struct {
	recipients []string
	payload    *RepMessage
}

// RepMessage is the wire shape of a live rep notification.
type RepMessage struct {
	Type       string   `json:"type"`
	WorkoutID  string   `json:"workout_id"`
	AthleteID  string   `json:"athlete_id"`
	SetID      string   `json:"set_id"`
	Exercise   string   `json:"exercise"`
	RepNumber  int      `json:"rep_number"`
	Depth      *float64 `json:"depth,omitempty"`
	Velocity   *float64 `json:"velocity,omitempty"`
	Quality    *string  `json:"quality,omitempty"`
	SpeedScore *float64 `json:"speed_score,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

func NewHub(m *metrics.Manager) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *event, 64),
		metrics:    m,
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case ev := <-h.events:
			h.deliver(ev)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// PublishRep queues a rep for delivery to the athlete and, when linked,
// their coach. Non-blocking: a full queue drops the event rather than
// stalling the request that produced it.
func (h *Hub) PublishRep(athleteID int64, coachID *int64, ev services.RepEvent) {
	athlete := strconv.FormatInt(athleteID, 10)
	recipients := []string{athlete}
	if coachID != nil {
		recipients = append(recipients, strconv.FormatInt(*coachID, 10))
	}

	message := &RepMessage{
		Type:      "rep",
		WorkoutID: strconv.FormatInt(ev.WorkoutID, 10),
		AthleteID: athlete,
		SetID:     strconv.FormatInt(ev.Set.ID, 10),
		Exercise:  ev.Set.Exercise,
		RepNumber: ev.Rep.RepNumber,
		Depth:     ev.Rep.Depth,
		Velocity:  ev.Rep.Velocity,
		Quality:   ev.Rep.Quality,
		Timestamp: ev.Rep.CreatedAt.UTC().Format(time.RFC3339),
	}
	message.SpeedScore = services.SpeedScore(ev.Rep.Depth, ev.Rep.TimeSeconds)

	if h.metrics != nil {
		h.metrics.CounterRepsRecorded.Inc()
	}

	select {
	case h.events <- &event{recipients: recipients, payload: message}:
	default:
		log.Printf("live feed queue full, dropping rep event for workout %d", ev.WorkoutID)
	}
}

func (h *Hub) deliver(ev *event) {
	encoded, err := json.Marshal(ev.payload)
	if err != nil {
		log.Printf("live feed encode event: %v", err)
		return
	}
	for _, userID := range ev.recipients {
		h.sendToUser(userID, encoded)
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// ReadPump drains the connection until the client disconnects. The feed
// is one-way; inbound frames are discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
