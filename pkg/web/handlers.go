package web

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/codemusic/go-roverseer/pkg/pipeline"
	"github.com/codemusic/go-roverseer/pkg/rover"
)

// StatusResponse reports the live pipeline state.
type StatusResponse struct {
	State      string `json:"state"`
	Busy       bool   `json:"busy"`
	Speaking   bool   `json:"speaking"`
	Model      string `json:"model"`
	Voice      string `json:"voice"`
	ActiveTurn int    `json:"active_turns"`
	MaxTurns   int    `json:"max_turns"`
}

// TurnBody is the request body for POST /turn.
type TurnBody struct {
	Text      string `json:"text"`
	System    string `json:"system"`
	Model     string `json:"model"`
	Voice     string `json:"voice"`
	Bicameral bool   `json:"bicameral"`
	Quiet     bool   `json:"quiet"`
}

// TurnResponse is the reply for a completed turn.
type TurnResponse struct {
	ID          string `json:"id"`
	Transcript  string `json:"transcript,omitempty"`
	Reply       string `json:"reply"`
	Model       string `json:"model"`
	Voice       string `json:"voice,omitempty"`
	PlaybackCut bool   `json:"playback_cut,omitempty"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	gate := s.ctrl.Gate()
	return c.JSON(StatusResponse{
		State:      s.ctrl.State().String(),
		Busy:       s.ctrl.IsBusy(),
		Speaking:   s.ctrl.Speaking(),
		Model:      s.ctrl.ActiveModel(),
		Voice:      s.ctrl.ActiveVoice(),
		ActiveTurn: gate.Active(),
		MaxTurns:   gate.Max(),
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Health(c.Context()))
}

func (s *Server) handleTurn(c *fiber.Ctx) error {
	var body TurnBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}
	if body.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text required"})
	}

	res, err := s.ctrl.RunTextTurn(c.Context(), rover.TurnRequest{
		Text:      body.Text,
		System:    body.System,
		Model:     body.Model,
		Voice:     body.Voice,
		Bicameral: body.Bicameral,
		Quiet:     body.Quiet,
	})
	if err != nil {
		return s.turnError(c, err)
	}
	return c.JSON(turnResponse(res))
}

func (s *Server) handleVoiceTurn(c *fiber.Ctx) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "audio file required"})
	}
	f, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable audio file"})
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable audio file"})
	}

	res, err := s.ctrl.RunVoiceTurn(c.Context(), rover.TurnRequest{
		Audio:     audio,
		System:    c.FormValue("system"),
		Model:     c.FormValue("model"),
		Voice:     c.FormValue("voice"),
		Bicameral: c.FormValue("bicameral") == "true",
	})
	if err != nil {
		return s.turnError(c, err)
	}
	return c.JSON(turnResponse(res))
}

func (s *Server) handleInterrupt(c *fiber.Ctx) error {
	s.ctrl.Interrupt()
	return c.JSON(fiber.Map{"interrupted": true})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	s.ctrl.Reset()
	return c.JSON(fiber.Map{"state": s.ctrl.State().String()})
}

// turnError maps classified turn failures onto HTTP statuses.
func (s *Server) turnError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, pipeline.ErrCapacityExceeded) {
		status = fiber.StatusTooManyRequests
	}
	s.logger.Error("turn failed", "status", status, "error", err)
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func turnResponse(res *rover.TurnResult) TurnResponse {
	return TurnResponse{
		ID:          res.ID,
		Transcript:  res.Transcript,
		Reply:       res.Reply,
		Model:       res.Model,
		Voice:       res.Voice,
		PlaybackCut: res.PlaybackCut,
	}
}
