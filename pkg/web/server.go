// Package web exposes the rover over HTTP: status, turn submission,
// interrupt/reset controls, and a websocket stream of pipeline state
// transitions.
package web

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/codemusic/go-roverseer/pkg/pipeline"
	"github.com/codemusic/go-roverseer/pkg/rover"
)

// Server is the HTTP and websocket front of the controller.
type Server struct {
	app    *fiber.App
	addr   string
	ctrl   *rover.Controller
	hub    *Hub
	logger *slog.Logger
}

// StateEvent is the wire form of one pipeline transition.
type StateEvent struct {
	From  string `json:"from"`
	To    string `json:"to"`
	At    string `json:"at"`
	Busy  bool   `json:"busy"`
	Model string `json:"model"`
	Voice string `json:"voice"`
}

// NewServer creates the server and registers it as a transition
// observer on the controller's state machine.
func NewServer(addr string, ctrl *rover.Controller) *Server {
	s := &Server{
		addr:   addr,
		ctrl:   ctrl,
		hub:    NewHub("state"),
		logger: slog.Default().With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "RoverSeer",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/status", s.handleStatus)
	app.Get("/health", s.handleHealth)
	app.Post("/turn", s.handleTurn)
	app.Post("/turn/voice", s.handleVoiceTurn)
	app.Post("/interrupt", s.handleInterrupt)
	app.Post("/reset", s.handleReset)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(func(c *websocket.Conn) {
		s.hub.serveClient(c)
	}))

	s.app = app
	ctrl.Machine().AddObserver(s)
	return s
}

// OnTransition broadcasts every pipeline transition to websocket
// clients.
func (s *Server) OnTransition(old, new pipeline.State) {
	s.hub.BroadcastJSON(StateEvent{
		From:  old.String(),
		To:    new.String(),
		At:    time.Now().Format(time.RFC3339Nano),
		Busy:  new != pipeline.StateIdle,
		Model: s.ctrl.ActiveModel(),
		Voice: s.ctrl.ActiveVoice(),
	})
}

// Start runs the hub and serves until Shutdown. Blocks.
func (s *Server) Start() error {
	go s.hub.Run()
	s.logger.Info("web server listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
