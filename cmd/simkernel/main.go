// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Command simkernel runs one rank of a distributed agent-based
// simulation: it loads the rank's configuration, brings up its patches
// in dependency order, and drives the cross-rank communication cycle
// until every rank agrees the run has terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"quiltkernel/internal/config"
	"quiltkernel/internal/telemetry"
	"quiltkernel/pkg/addr"
	"quiltkernel/pkg/kernel"
	"quiltkernel/pkg/patch"
	"quiltkernel/pkg/transport"
)

func main() {
	configPath := flag.String("config", "kernel.yaml", "path to the rank's YAML configuration")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(*configPath, logger); err != nil {
		logger.Error("rank terminated with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("simkernel: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("simkernel: invalid configuration: %w", err)
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID, "rank", cfg.Rank.ID, "rank_size", cfg.Rank.Size)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, &telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		ServiceVersion: "0.1.0",
		CollectorURL: cfg.Telemetry.CollectorURL,
		Environment:  "simulation",
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn("tracing disabled: failed to start tracer provider", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn("tracer provider shutdown failed", "error", err)
			}
		}()
	}

	var comm transport.Communicator
	var peers, expectFrom []int
	if cfg.Rank.Size == 1 {
		comm = transport.NewDummyCommunicator()
	} else {
		return fmt.Errorf("simkernel: only single-rank runs are supported (rank size is %d)", cfg.Rank.Size)
	}
	for r := 0; r < cfg.Rank.Size; r++ {
		if r != cfg.Rank.ID {
			peers = append(peers, r)
			expectFrom = append(expectFrom, r)
		}
	}
	net := transport.NewNetworkInterface(comm, cfg.Rank.Deterministic, peers, expectFrom)

	seq := kernel.NewSequencer()
	registry := kernel.NewInteractantRegistry()
	loop := kernel.NewMainLoop(seq, registry, cfg.Rank.Safety)

	if cfg.Checkpoint.Directory != "" {
		if err := os.MkdirAll(cfg.Checkpoint.Directory, 0o755); err != nil {
			return fmt.Errorf("simkernel: creating checkpoint directory: %w", err)
		}
	}
	clockAgent := kernel.NewClockAgent("clock", seq, cfg.Checkpoint.EveryNDays,
		func(day int) {
			logger.Info("day advanced", "day", day)
		},
		func(day int) {
			if err := writeCheckpoint(cfg.Checkpoint.Directory, runID, day, loop); err != nil {
				logger.Warn("checkpoint failed", "day", day, "error", err)
			}
		},
	)
	seq.Enqueue(clockAgent, 0)

	group := patch.NewPatchGroup(cfg.Rank.ID, loop, net)
	patchIndex := make(map[string]int, len(cfg.Patches))
	for i, pc := range cfg.Patches {
		patchIndex[pc.Name] = i
		p := patch.NewPatch(pc.Name, addr.New(cfg.Rank.ID, i), registry, pc.DependsOn...)
		group.AddPatch(p)
	}

	// GatesTo entries of the form "rank:name" name a neighbor on another
	// rank; simkernel only ever drives a single rank and has no peer
	// address book, so those are logged and skipped rather than wired.
	for _, pc := range cfg.Patches {
		p, _ := group.Patch(pc.Name)
		for _, gate := range pc.GatesTo {
			if strings.Contains(gate, ":") {
				logger.Warn("cross-rank gate not wired by simkernel", "patch", pc.Name, "gate", gate)
				continue
			}
			idx, ok := patchIndex[gate]
			if !ok {
				return fmt.Errorf("simkernel: patch %q gates to unknown patch %q", pc.Name, gate)
			}
			neighbor, _ := group.Patch(gate)
			neighborAddr := addr.New(cfg.Rank.ID, idx)
			selfAddr := addr.New(cfg.Rank.ID, patchIndex[pc.Name])
			p.AddGateTo(neighborAddr)
			neighbor.AddGateFrom(selfAddr)
		}
	}

	if err := group.Start(); err != nil {
		return fmt.Errorf("simkernel: %w", err)
	}
	logger.Info("patches started", "order", strings.Join(group.StartupOrder(), ","))

	for {
		select {
		case <-ctx.Done():
			logger.Info("rank shutting down on signal")
			return nil
		default:
		}

		more, err := group.RunCycle()
		if err != nil {
			return fmt.Errorf("simkernel: %w", err)
		}
		if !more {
			logger.Info("run terminated", "final_day", loop.TimeNow())
			return nil
		}
	}
}

func writeCheckpoint(dir, runID string, day int, loop *kernel.MainLoop) error {
	if dir == "" {
		return nil
	}
	agents, interactants := loop.Census()
	path := filepath.Join(dir, fmt.Sprintf("%s-day%04d.txt", runID, day))
	var b strings.Builder
	fmt.Fprintf(&b, "day=%d\n", day)
	for name, n := range agents {
		fmt.Fprintf(&b, "agent %s waiting=%d\n", name, n)
	}
	for name, n := range interactants {
		fmt.Fprintf(&b, "interactant %s wait_queue=%d\n", name, n)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
