// Package stream serves the room to remote clients: an HTTP API, a websocket scene feed and a Kafka
// tier summary topic.
package stream

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/sterilysense/roomview/pkg/roomview"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
	maxInput   = 4096
)

// Frame types.
const (
	FrameHello = "hello"
	FrameScene = "scene"
	FrameError = "error"
)

// Frame is one server to client message. Clients connecting with ?format=proto receive the same
// frame as a binary google.protobuf.Struct.
type Frame struct {
	Type    string          `json:"type"`
	Session string          `json:"session,omitempty"`
	Scene   *roomview.Scene `json:"scene,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type client struct {
	id    string
	conn  *websocket.Conn
	send  chan []byte
	proto bool
}

// Hub fans scenes out to websocket clients and applies the input they send to the controller.
type Hub struct {
	Controller *roomview.Controller

	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[string]*client
}

func NewHub(c *roomview.Controller) *Hub {
	return &Hub{
		Controller: c,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Clients returns the number of connected sessions.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}
	c := &client{
		id:    uuid.NewString(),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		proto: r.URL.Query().Get("format") == "proto",
	}

	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[WS] Client %s connected from %s (%d connected)", c.id, r.RemoteAddr, n)

	go h.writePump(c)

	h.sendTo(c, Frame{Type: FrameHello, Session: c.id})
	if scene, err := h.Controller.Scene(); err == nil {
		h.sendTo(c, Frame{Type: FrameScene, Scene: &scene})
	}
	h.readPump(c)
}

// BroadcastScene derives the current scene and pushes it to every client.
func (h *Hub) BroadcastScene() error {
	scene, err := h.Controller.Scene()
	if err != nil {
		return err
	}
	return h.Broadcast(Frame{Type: FrameScene, Scene: &scene})
}

// Broadcast encodes f once per wire format and queues it for every client. Clients whose queue is
// full are disconnected.
func (h *Hub) Broadcast(f Frame) error {
	text, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	var binary []byte

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		msg := text
		if c.proto {
			if binary == nil {
				if binary, err = encodeProto(text); err != nil {
					return err
				}
			}
			msg = binary
		}
		select {
		case c.send <- msg:
		default:
			log.Printf("[WS] Client %s is too slow, dropping", id)
			h.removeLocked(c)
		}
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) sendTo(c *client, f Frame) {
	msg, err := encodeFrame(f, c.proto)
	if err != nil {
		log.Printf("[WS] Encoding frame for %s: %v", c.id, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	log.Printf("[WS] Client %s disconnected (%d connected)", c.id, len(h.clients))
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxInput)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in roomview.Input
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error from %s: %v", c.id, err)
			}
			return
		}
		if err := h.Controller.Apply(in); err != nil {
			h.sendTo(c, Frame{Type: FrameError, Error: err.Error()})
			continue
		}
		if err := h.BroadcastScene(); err != nil {
			log.Printf("[WS] Broadcast error: %v", err)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	msgType := websocket.TextMessage
	if c.proto {
		msgType = websocket.BinaryMessage
	}
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msgType, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encodeFrame(f Frame, asProto bool) ([]byte, error) {
	text, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	if !asProto {
		return text, nil
	}
	return encodeProto(text)
}

// encodeProto re-encodes a JSON frame as a serialized structpb.Struct.
func encodeProto(text []byte) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(text, &m); err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("building proto frame: %w", err)
	}
	return proto.Marshal(st)
}

// DecodeProtoFrame parses a binary frame back into a generic struct.
func DecodeProtoFrame(data []byte) (*structpb.Struct, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return nil, err
	}
	return st, nil
}
