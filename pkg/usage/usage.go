// Package usage persists interaction logs and model runtime statistics.
//
// Each record type is appended as a JSON line to a daily file under the
// log directory (for example llm_2026-08-30.jsonl), so logs rotate by
// date without any background machinery. Writes are fire-and-forget:
// a failed append is logged and never propagated to the caller.
package usage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TurnRecord captures a single model completion.
type TurnRecord struct {
	Timestamp string `json:"timestamp"`
	TurnID    string `json:"turn_id,omitempty"`
	Model     string `json:"model"`
	System    string `json:"system,omitempty"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
	LatencyMs int64  `json:"latency_ms"`
}

// BicameralRecord captures a full two-mind convergence flow.
type BicameralRecord struct {
	Timestamp        string `json:"timestamp"`
	TurnID           string `json:"turn_id,omitempty"`
	FirstModel       string `json:"first_model"`
	SecondModel      string `json:"second_model"`
	ConvergenceModel string `json:"convergence_model"`
	Prompt           string `json:"prompt"`
	FirstResponse    string `json:"first_response"`
	FirstMs          int64  `json:"first_ms"`
	SecondResponse   string `json:"second_response"`
	SecondMs         int64  `json:"second_ms"`
	Final            string `json:"final"`
	ConvergenceMs    int64  `json:"convergence_ms"`
	TotalMs          int64  `json:"total_ms"`
}

// TTSRecord captures one synthesis.
type TTSRecord struct {
	Timestamp string `json:"timestamp"`
	Voice     string `json:"voice"`
	Text      string `json:"text"`
	Output    string `json:"output,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// ASRRecord captures one transcription.
type ASRRecord struct {
	Timestamp  string `json:"timestamp"`
	AudioBytes int    `json:"audio_bytes"`
	Transcript string `json:"transcript"`
	LatencyMs  int64  `json:"latency_ms"`
}

// ErrorRecord captures a classified failure.
type ErrorRecord struct {
	Timestamp string `json:"timestamp"`
	TurnID    string `json:"turn_id,omitempty"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
}

// Logger appends usage records to daily JSONL files.
type Logger struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	now   func() time.Time
	stats map[string]*ModelStats
}

// ModelStats tracks cumulative runtime for one model.
type ModelStats struct {
	TotalMs   int64  `json:"total_ms"`
	RunCount  int64  `json:"run_count"`
	AverageMs int64  `json:"average_ms"`
	LastMs    int64  `json:"last_ms"`
	LastRun   string `json:"last_run"`
}

const statsFile = "model_stats.json"

// NewLogger creates a usage logger rooted at dir, creating it if needed.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	l := &Logger{
		dir:    dir,
		logger: slog.Default().With("component", "usage"),
		now:    time.Now,
		stats:  make(map[string]*ModelStats),
	}
	l.loadStats()
	return l, nil
}

// Dir returns the log directory.
func (l *Logger) Dir() string { return l.dir }

// LogTurn records a single-model completion and updates model stats.
func (l *Logger) LogTurn(rec TurnRecord) {
	if rec.Timestamp == "" {
		rec.Timestamp = l.timestamp()
	}
	l.appendRecord("llm", rec)
	l.recordRuntime(rec.Model, rec.LatencyMs)
}

// LogBicameral records a two-mind convergence flow and updates stats
// for every model involved.
func (l *Logger) LogBicameral(rec BicameralRecord) {
	if rec.Timestamp == "" {
		rec.Timestamp = l.timestamp()
	}
	if rec.TotalMs == 0 {
		rec.TotalMs = rec.FirstMs + rec.SecondMs + rec.ConvergenceMs
	}
	l.appendRecord("bicameral", rec)
	l.recordRuntime(rec.FirstModel, rec.FirstMs)
	l.recordRuntime(rec.SecondModel, rec.SecondMs)
	l.recordRuntime(rec.ConvergenceModel, rec.ConvergenceMs)
}

// LogTTS records one synthesis.
func (l *Logger) LogTTS(rec TTSRecord) {
	if rec.Timestamp == "" {
		rec.Timestamp = l.timestamp()
	}
	l.appendRecord("tts", rec)
}

// LogASR records one transcription.
func (l *Logger) LogASR(rec ASRRecord) {
	if rec.Timestamp == "" {
		rec.Timestamp = l.timestamp()
	}
	l.appendRecord("asr", rec)
}

// LogError records a classified failure.
func (l *Logger) LogError(rec ErrorRecord) {
	if rec.Timestamp == "" {
		rec.Timestamp = l.timestamp()
	}
	l.appendRecord("errors", rec)
}

// Stats returns a copy of the runtime statistics for model, or nil if
// the model has never been recorded.
func (l *Logger) Stats(model string) *ModelStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.stats[model]
	if !ok {
		return nil
	}
	out := *s
	return &out
}

// AverageRuntime returns the average completion time for model in
// milliseconds, or 0 if unknown.
func (l *Logger) AverageRuntime(model string) int64 {
	if s := l.Stats(model); s != nil {
		return s.AverageMs
	}
	return 0
}

func (l *Logger) timestamp() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now().Format(time.RFC3339)
}

// appendRecord writes rec as one JSON line to today's file for logType.
func (l *Logger) appendRecord(logType string, rec any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		l.logger.Error("failed to marshal usage record", "type", logType, "error", err)
		return
	}

	path := l.dailyPathLocked(logType)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.logger.Error("failed to open usage log", "path", path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		l.logger.Error("failed to append usage record", "path", path, "error", err)
	}
}

func (l *Logger) dailyPathLocked(logType string) string {
	day := l.now().Format("2006-01-02")
	return filepath.Join(l.dir, fmt.Sprintf("%s_%s.jsonl", logType, day))
}

func (l *Logger) recordRuntime(model string, ms int64) {
	if model == "" || ms <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.stats[model]
	if !ok {
		s = &ModelStats{}
		l.stats[model] = s
	}
	s.TotalMs += ms
	s.RunCount++
	s.AverageMs = s.TotalMs / s.RunCount
	s.LastMs = ms
	s.LastRun = l.now().Format(time.RFC3339)

	l.saveStatsLocked()
}

func (l *Logger) loadStats() {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(l.dir, statsFile))
	if err != nil {
		return
	}
	var stats map[string]*ModelStats
	if err := json.Unmarshal(data, &stats); err != nil {
		l.logger.Warn("ignoring corrupt model stats file", "error", err)
		return
	}
	l.stats = stats
}

func (l *Logger) saveStatsLocked() {
	data, err := json.MarshalIndent(l.stats, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(l.dir, statsFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		l.logger.Error("failed to save model stats", "path", path, "error", err)
	}
}
