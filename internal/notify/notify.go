// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify prints progress and warnings for a sync run. It replaces
// the UI notifications of an interactive importer with plain lines on a
// writer, filtered by verbosity.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/pdiddy/pack-sync/pkg/types"
)

// Level orders message severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) prefix() string {
	switch l {
	case LevelWarn:
		return "warning: "
	case LevelError:
		return "error: "
	default:
		return ""
	}
}

// Reporter receives notifications from the sync pipeline.
type Reporter interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Writer is a Reporter that writes one line per message. Warnings and
// errors go to errW when set, everything else to w.
type Writer struct {
	mu   sync.Mutex
	w    io.Writer
	errW io.Writer
	min  Level
}

// New returns a Writer that prints messages at or above the level implied
// by verbosity: quiet prints errors only, verbose adds debug lines.
func New(w io.Writer, verbosity types.Verbosity) *Writer {
	return &Writer{w: w, min: MinLevel(verbosity)}
}

// WithErrorWriter routes warnings and errors to errW.
func (r *Writer) WithErrorWriter(errW io.Writer) *Writer {
	r.errW = errW
	return r
}

// MinLevel maps a verbosity to the lowest level printed.
func MinLevel(v types.Verbosity) Level {
	switch v {
	case types.VerbosityQuiet:
		return LevelError
	case types.VerbosityVerbose:
		return LevelDebug
	default:
		return LevelInfo
	}
}

func (r *Writer) Debugf(format string, args ...any) { r.printf(LevelDebug, format, args...) }
func (r *Writer) Infof(format string, args ...any)  { r.printf(LevelInfo, format, args...) }
func (r *Writer) Warnf(format string, args ...any)  { r.printf(LevelWarn, format, args...) }
func (r *Writer) Errorf(format string, args ...any) { r.printf(LevelError, format, args...) }

func (r *Writer) printf(l Level, format string, args ...any) {
	if r == nil || l < r.min {
		return
	}
	out := r.w
	if l >= LevelWarn && r.errW != nil {
		out = r.errW
	}
	if out == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(out, l.prefix()+format+"\n", args...)
}

// Discard drops every message.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Debugf(string, ...any) {}
func (discard) Infof(string, ...any)  {}
func (discard) Warnf(string, ...any)  {}
func (discard) Errorf(string, ...any) {}
