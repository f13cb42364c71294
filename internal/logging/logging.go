// Package logging hands out slog loggers tagged by subsystem category so
// noisy MIDI traffic can be filtered independently of application logs.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

type Category string

const (
	MidiIn  Category = "midi_in"
	MidiOut Category = "midi_out"
	Audio   Category = "audio"
	App     Category = "app"
)

var defaultLevels = map[Category]slog.Level{
	MidiIn:  slog.LevelWarn,
	MidiOut: slog.LevelWarn,
	Audio:   slog.LevelInfo,
	App:     slog.LevelInfo,
}

var (
	mu      sync.Mutex
	loggers = map[Category]*slog.Logger{}
	levels  = map[Category]*slog.LevelVar{}
)

// Get returns the logger for a category, creating it on first use. Every
// record it emits carries a "category" attribute.
func Get(category Category) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	lvl := new(slog.LevelVar)
	lvl.Set(defaultLevels[category])
	levels[category] = lvl
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	l := slog.New(handler).With("category", string(category))
	loggers[category] = l
	return l
}

// SetLevel adjusts a category's verbosity at runtime.
func SetLevel(category Category, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	lvl, ok := levels[category]
	if !ok {
		lvl = new(slog.LevelVar)
		levels[category] = lvl
	}
	lvl.Set(level)
}
