package logger

import (
	"fmt"
	"sync"
)

// Entry is a captured log line.
type Entry struct {
	Level   string
	Message string
	Fields  Fields
}

// Recorder keeps log lines in memory so tests can assert on what the
// server logged.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  Fields
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}, fields: Fields{}}
}

func (r *Recorder) add(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, Entry{Level: level, Message: fmt.Sprintf(format, args...), Fields: r.fields})
}

func (r *Recorder) Debugf(format string, args ...any) { r.add("debug", format, args...) }
func (r *Recorder) Infof(format string, args ...any)  { r.add("info", format, args...) }
func (r *Recorder) Warnf(format string, args ...any)  { r.add("warn", format, args...) }
func (r *Recorder) Errorf(format string, args ...any) { r.add("error", format, args...) }

func (r *Recorder) WithFields(fields Fields) Logger {
	merged := make(Fields, len(r.fields)+len(fields))
	for k, v := range r.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Recorder{mu: r.mu, entries: r.entries, fields: merged}
}

// Entries returns a snapshot of everything logged so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(*r.entries))
	copy(out, *r.entries)
	return out
}
