package log

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Entry is one captured log call.
type Entry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// Field returns the value of key and whether it was set.
func (e Entry) Field(key string) (any, bool) {
	v, ok := e.Fields[key]
	return v, ok
}

type sink struct {
	mu      sync.Mutex
	level   Level
	entries []Entry
}

// Recorder is a Logger that keeps every call in memory so tests can assert
// on pipeline phases and fields. The ensemble trainer logs from worker
// goroutines, so all access goes through a mutex.
type Recorder struct {
	sink   *sink
	fields map[string]any
}

// NewRecorder creates a Recorder dropping calls below level.
//
//	rec := log.NewRecorder(log.LevelDebug)
//	rec.Info("Loaded dataset", log.SamplesKey, 8760)
//	rec.HasField(log.SamplesKey, 8760) // true
func NewRecorder(level Level) *Recorder {
	return &Recorder{sink: &sink{level: level}, fields: map[string]any{}}
}

func (r *Recorder) Debug(msg string, fields ...any) { r.record(LevelDebug, msg, fields) }
func (r *Recorder) Info(msg string, fields ...any)  { r.record(LevelInfo, msg, fields) }
func (r *Recorder) Warn(msg string, fields ...any)  { r.record(LevelWarn, msg, fields) }
func (r *Recorder) Error(msg string, fields ...any) { r.record(LevelError, msg, fields) }

// With returns a Recorder sharing the same storage with extra fields.
func (r *Recorder) With(fields ...any) Logger {
	merged := make(map[string]any, len(r.fields)+len(fields)/2)
	for k, v := range r.fields {
		merged[k] = v
	}
	addPairs(merged, fields)
	return &Recorder{sink: r.sink, fields: merged}
}

// Enabled implements Logger.Enabled.
func (r *Recorder) Enabled(_ context.Context, level Level) bool {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	return level >= r.sink.level
}

func (r *Recorder) record(level Level, msg string, fields []any) {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	if level < r.sink.level {
		return
	}
	e := Entry{Level: level, Message: msg, Fields: make(map[string]any, len(r.fields)+len(fields)/2)}
	for k, v := range r.fields {
		e.Fields[k] = v
	}
	addPairs(e.Fields, fields)
	r.sink.entries = append(r.sink.entries, e)
}

// errors are stored by message so tests can compare plain strings.
func addPairs(dst map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			dst[key] = err.Error()
			continue
		}
		dst[key] = fields[i+1]
	}
}

// Entries returns a copy of everything captured so far.
func (r *Recorder) Entries() []Entry {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	out := make([]Entry, len(r.sink.entries))
	copy(out, r.sink.entries)
	return out
}

// Has reports whether any captured message contains substr.
func (r *Recorder) Has(substr string) bool {
	for _, e := range r.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// HasField reports whether any entry carries key with exactly value.
func (r *Recorder) HasField(key string, value any) bool {
	for _, e := range r.Entries() {
		if v, ok := e.Fields[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Reset drops all captured entries.
func (r *Recorder) Reset() {
	r.sink.mu.Lock()
	r.sink.entries = nil
	r.sink.mu.Unlock()
}

// RecorderProvider hands out Recorders that share one store. Install it with
// SetProvider to capture logs from every package.
type RecorderProvider struct {
	root *Recorder
}

// NewRecorderProvider creates a provider capturing at level and above.
func NewRecorderProvider(level Level) *RecorderProvider {
	return &RecorderProvider{root: NewRecorder(level)}
}

func (p *RecorderProvider) GetLogger() Logger { return p.root }

func (p *RecorderProvider) GetLoggerWithName(name string) Logger {
	return p.root.With(ComponentKey, name)
}

func (p *RecorderProvider) SetLevel(level Level) {
	p.root.sink.mu.Lock()
	p.root.sink.level = level
	p.root.sink.mu.Unlock()
}

// Recorder returns the shared recorder.
func (p *RecorderProvider) Recorder() *Recorder { return p.root }
