// Command led-matrix-controller wires the control plane (C4-C7) and the
// display engine (C1-C3) together: it parses startup configuration, opens
// the persisted playlist/brightness state, starts the panel driver and the
// display engine's tick loop, and serves the HTTP API. Startup and shutdown
// follow cmd/hub75-gpio/main.go's shape: fatal on panel config errors,
// signal.Notify(syscall.SIGINT, syscall.SIGTERM) for graceful shutdown.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fcurrie/led-matrix-controller/internal/bus"
	"github.com/fcurrie/led-matrix-controller/internal/config"
	"github.com/fcurrie/led-matrix-controller/internal/engine"
	"github.com/fcurrie/led-matrix-controller/internal/httpapi"
	"github.com/fcurrie/led-matrix-controller/internal/preview"
	"github.com/fcurrie/led-matrix-controller/internal/store"
	"github.com/fcurrie/led-matrix-controller/pkg/panel"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to parse configuration: %v", err)
	}

	pins, err := panel.ResolvePins(cfg.HardwareMapping)
	if err != nil {
		log.Fatalf("Failed to resolve panel pinout: %v", err)
	}

	panelCfg := panel.Config{
		Rows: cfg.Rows, Cols: cfg.Cols,
		ChainLength:       cfg.ChainLength,
		Parallel:          cfg.Parallel,
		PWMBits:           cfg.PWMBits,
		PWMLSBNanoseconds: cfg.PWMLSBNanoseconds,
		DitherBits:        cfg.DitherBits,
		GPIOSlowdown:      cfg.GPIOSlowdown,
		RowSetter:         cfg.RowSetter,
		LEDSequence:       cfg.LEDSequence,
		Multiplexing:      cfg.Multiplexing,
		PixelMapperChain:  cfg.PixelMapperChain,
		HardwareMapping:   cfg.HardwareMapping,
		RefreshRateCap:    cfg.RefreshRateCap,
		Interlaced:        cfg.Interlaced,
		InverseColors:     cfg.InverseColors,
		ChipNumber:        panel.DefaultChipNumber,
		Pins:              pins,
	}

	var driver panel.Driver
	switch cfg.Driver {
	case config.DriverBinding:
		driver, err = panel.NewBoundDriver(panelCfg)
	default:
		driver, err = panel.NewNativeDriver(panelCfg)
	}
	if err != nil {
		log.Fatalf("Failed to initialize panel driver: %v", err)
	}
	defer driver.Close()

	eventBus := bus.New()

	st, err := store.Open(cfg.StateFile, eventBus)
	if err != nil {
		log.Fatalf("Failed to open state file %s: %v", cfg.StateFile, err)
	}

	previewMgr := preview.New(eventBus)

	eng := engine.New(st, previewMgr, driver, engine.Config{
		Rows: cfg.Rows, Cols: cfg.Cols,
		MaxBrightness:   cfg.MaxBrightness,
		IdlePlaceholder: cfg.IdleText,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	panelFailure := make(chan error, 1)
	go func() {
		if err := eng.Run(ctx); err != nil {
			panelFailure <- err
		}
	}()
	go previewMgr.Run(ctx)

	handlers := httpapi.New(st, previewMgr, eventBus, driverHealth(driver))
	srv := &http.Server{
		Addr:    cfg.BindAddr + ":" + strconv.Itoa(cfg.Port),
		Handler: handlers.Routes(),
	}

	go func() {
		log.Printf("led-matrix-controller listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("Received shutdown signal")
	case err := <-panelFailure:
		log.Fatalf("Panel driver failed: %v", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
}

// driverHealth returns driver as an httpapi.Ready if it implements
// HasRendered, or nil if it doesn't (the /healthz check is then skipped).
func driverHealth(d panel.Driver) httpapi.Ready {
	if r, ok := d.(httpapi.Ready); ok {
		return r
	}
	return nil
}
