// ABOUTME: WebSocket feed of per-update channel levels
// ABOUTME: Fans meter frames out to connected clients as JSON without blocking the loop
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/peakmeter/internal/app"
	"github.com/Resonate-Protocol/peakmeter/internal/version"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

// Path is the websocket endpoint.
const Path = "/levels"

const (
	frameQueue     = 16
	clientQueue    = 8
	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
	shutdownWindow = 5 * time.Second
)

// Config holds feed configuration
type Config struct {
	Addr      string
	Name      string // service name for greetings and mDNS
	Advertise bool
	Channels  int
}

// HelloMessage greets each new client.
type HelloMessage struct {
	Type     string `json:"type"`
	Session  string `json:"session"`
	Name     string `json:"name"`
	Product  string `json:"product"`
	Version  string `json:"version"`
	Channels int    `json:"channels"`
}

// LevelsMessage carries one meter frame.
type LevelsMessage struct {
	Type     string         `json:"type"`
	Session  string         `json:"session"`
	Seq      uint64         `json:"seq"`
	At       time.Time      `json:"at"`
	Rate     int            `json:"rate"`
	Channels []ChannelLevel `json:"channels"`
}

// ChannelLevel is one channel in a LevelsMessage. DB is null for silence.
type ChannelLevel struct {
	Index       int      `json:"index"`
	Port        string   `json:"port,omitempty"`
	Connections []string `json:"connections,omitempty"`
	Peak        float32  `json:"peak"`
	DB          *float64 `json:"db"`
	Width       int      `json:"width,omitempty"`
	Held        int      `json:"held,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Feed serves meter frames over websocket.
type Feed struct {
	config    Config
	sessionID string
	upgrader  websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
	advertiser *Advertiser

	frames  chan *app.Frame
	dropped atomic.Int64

	clientsMu sync.RWMutex
	clients   map[string]*client

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a feed; call Start to listen.
func New(config Config) *Feed {
	return &Feed{
		config:    config,
		sessionID: uuid.New().String(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin != "" {
					slog.Debug("accepting websocket origin", "origin", origin)
				}
				return true
			},
		},
		frames:   make(chan *app.Frame, frameQueue),
		clients:  make(map[string]*client),
		stopChan: make(chan struct{}),
	}
}

// Start listens on the configured address and begins broadcasting.
func (f *Feed) Start() error {
	ln, err := net.Listen("tcp", f.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.config.Addr, err)
	}
	f.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(Path, f.handleWebSocket)
	f.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	f.wg.Add(2)
	go func() {
		defer f.wg.Done()
		if err := f.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("level feed server failed", "err", err)
		}
	}()
	go func() {
		defer f.wg.Done()
		f.broadcast()
	}()

	slog.Info("level feed listening", "addr", ln.Addr().String(), "path", Path, "session", f.sessionID)

	if f.config.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		f.advertiser = NewAdvertiser(f.config.Name, port)
		if err := f.advertiser.Start(); err != nil {
			slog.Warn("mDNS advertisement failed", "err", err)
			f.advertiser = nil
		}
	}
	return nil
}

// Addr returns the listening address, or nil before Start.
func (f *Feed) Addr() net.Addr {
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// SessionID identifies this meter run to clients.
func (f *Feed) SessionID() string { return f.sessionID }

// Publish queues a frame; when the queue is full the frame is dropped.
func (f *Feed) Publish(frame *app.Frame) {
	select {
	case f.frames <- frame:
	default:
		if f.dropped.Inc() == 1 {
			slog.Warn("level feed falling behind, dropping frames")
		}
	}
}

// Dropped returns how many frames Publish discarded.
func (f *Feed) Dropped() int64 { return f.dropped.Load() }

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()
	return len(f.clients)
}

// Stop closes every client and the listener.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopChan)

		if f.advertiser != nil {
			f.advertiser.Stop()
		}

		if f.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownWindow)
			defer cancel()
			if err := f.httpServer.Shutdown(ctx); err != nil {
				slog.Warn("level feed shutdown error", "err", err)
			}
		}

		f.clientsMu.Lock()
		for _, c := range f.clients {
			c.conn.Close()
		}
		f.clientsMu.Unlock()

		f.wg.Wait()
		slog.Debug("level feed stopped", "dropped", f.dropped.Load())
	})
}

func (f *Feed) broadcast() {
	for {
		select {
		case <-f.stopChan:
			return
		case frame := <-f.frames:
			data, err := json.Marshal(f.levelsMessage(frame))
			if err != nil {
				slog.Error("error marshaling levels", "err", err)
				continue
			}

			f.clientsMu.RLock()
			for _, c := range f.clients {
				select {
				case c.send <- data:
				default:
				}
			}
			f.clientsMu.RUnlock()
		}
	}
}

func (f *Feed) levelsMessage(frame *app.Frame) LevelsMessage {
	msg := LevelsMessage{
		Type:     "levels",
		Session:  f.sessionID,
		Seq:      frame.Seq,
		At:       frame.At,
		Rate:     frame.Rate,
		Channels: make([]ChannelLevel, len(frame.Channels)),
	}
	for i, ch := range frame.Channels {
		msg.Channels[i] = ChannelLevel{
			Index:       ch.Index,
			Port:        ch.Port,
			Connections: ch.Connections,
			Peak:        ch.Peak,
			DB:          finiteDB(ch.DB),
			Width:       ch.Width,
			Held:        ch.Held,
		}
	}
	return msg
}

// finiteDB maps -Inf and NaN to nil; JSON has no infinities.
func finiteDB(db float64) *float64 {
	if math.IsInf(db, 0) || math.IsNaN(db) {
		return nil
	}
	return &db
}

func (f *Feed) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-f.stopChan:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", "err", err)
		return
	}

	c := &client{id: uuid.New().String(), conn: conn, send: make(chan []byte, clientQueue)}
	slog.Info("level feed client connected", "client", c.id, "remote", r.RemoteAddr)

	hello, _ := json.Marshal(HelloMessage{
		Type:     "hello",
		Session:  f.sessionID,
		Name:     f.config.Name,
		Product:  version.Product,
		Version:  version.Version,
		Channels: f.config.Channels,
	})
	c.send <- hello

	if !f.register(c) {
		conn.Close()
		return
	}

	f.readUntilClosed(c)

	f.clientsMu.Lock()
	delete(f.clients, c.id)
	f.clientsMu.Unlock()
	close(c.send)
	slog.Info("level feed client disconnected", "client", c.id)
}

// register adds c and starts its writer unless Stop has begun. Stop closes
// stopChan before it takes clientsMu, so a client registered here is always
// seen by Stop and counted before its wg.Wait.
func (f *Feed) register(c *client) bool {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	select {
	case <-f.stopChan:
		return false
	default:
	}

	f.clients[c.id] = c
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.clientWriter(c)
	}()
	return true
}

// readUntilClosed discards client messages until the connection ends.
func (f *Feed) readUntilClosed(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "client", c.id, "err", err)
			}
			return
		}
	}
}

func (f *Feed) clientWriter(c *client) {
	defer c.conn.Close()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("error writing levels", "client", c.id, "err", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}
