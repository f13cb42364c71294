package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/PixPMusic/gopher-mixer/internal/audio"
	"github.com/PixPMusic/gopher-mixer/internal/config"
	"github.com/PixPMusic/gopher-mixer/internal/integration"
	"github.com/PixPMusic/gopher-mixer/internal/logging"
	"github.com/PixPMusic/gopher-mixer/internal/midi"
	"github.com/PixPMusic/gopher-mixer/internal/model"
	"github.com/PixPMusic/gopher-mixer/internal/profile"
	"github.com/PixPMusic/gopher-mixer/internal/runtime"
	"github.com/PixPMusic/gopher-mixer/internal/startup"
)

// notifier logs runtime updates and forwards integration triggers to their
// handlers.
type notifier struct {
	runtime.LogNotifier
	dispatcher *integration.Dispatcher
}

func (n notifier) IntegrationTriggered(trig runtime.IntegrationTrigger) {
	n.LogNotifier.IntegrationTriggered(trig)
	n.dispatcher.Dispatch(integration.Trigger{
		BindingID: trig.BindingID,
		Action:    trig.Action,
		Value:     trig.Value,
		ID:        trig.Target.IntegrationID,
		Kind:      trig.Target.IntegrationKind,
		Data:      trig.Target.Data,
	})
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	configDir, err := config.Dir()
	if err != nil {
		log.Fatalf("Failed to prepare config directory: %v", err)
	}

	if cfg.Verbose {
		for _, category := range []logging.Category{logging.MidiIn, logging.MidiOut, logging.Audio, logging.App} {
			logging.SetLevel(category, slog.LevelDebug)
		}
	}

	if err := startup.Sync(cfg.Autostart); err != nil {
		log.Printf("Failed to update autostart registration: %v", err)
	}

	// Initialize MIDI manager
	midiManager := midi.NewManager()
	defer midiManager.Close()

	rt := runtime.New(audio.NewBackend(), midiManager, profile.NewStore(configDir),
		notifier{dispatcher: integration.NewDispatcher()})

	if _, err := rt.LoadProfile(cfg.ActiveProfile); err != nil {
		log.Fatalf("Failed to load profile %q: %v", cfg.ActiveProfile, err)
	}

	// Connect the configured controller. A missing device is not fatal; the
	// app keeps running and the device can be started later.
	if cfg.InputDeviceID != "" {
		if err := midiManager.Start(cfg.InputDeviceID, cfg.OutputDeviceID, func(event model.MidiEvent) {
			if err := rt.ApplyMidiEvent(event); err != nil {
				log.Printf("Failed to apply MIDI event: %v", err)
			}
		}); err != nil {
			log.Printf("Failed to start MIDI device %q: %v", cfg.InputDeviceID, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go rt.RunReconcileLoop(ctx)

	<-ctx.Done()

	rt.Shutdown()
	midiManager.Stop()
}
