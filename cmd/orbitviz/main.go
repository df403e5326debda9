// Command orbitviz runs the great-circle orbit visualizer: an HTTP and gRPC
// server (serve) or headless runs that print readouts (simulate) or write
// the map raster and ground track to disk (render).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/orbit-visualizer/internal/config"
	"github.com/signalsfoundry/orbit-visualizer/internal/logging"
	"github.com/signalsfoundry/orbit-visualizer/internal/observability"
	"github.com/signalsfoundry/orbit-visualizer/internal/sim"
	"github.com/signalsfoundry/orbit-visualizer/kb"
	"github.com/signalsfoundry/orbit-visualizer/render"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "orbitviz:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "orbitviz",
		Short:         "Great-circle orbit visualizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(newServeCmd(), newSimulateCmd(), newRenderCmd())
	return root
}

// loadConfig reads the layered configuration and builds the logger every
// command shares. Logs go to the command's stderr.
func loadConfig(cmd *cobra.Command) (config.Config, logging.Logger, error) {
	cfg, err := config.Load("", cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	lc := cfg.LoggingConfig()
	lc.Writer = cmd.ErrOrStderr()
	log := logging.New(lc).With(logging.String("command", cmd.Name()))
	return cfg, log, nil
}

// app is the simulation and its renderers, built from config.
type app struct {
	store        *kb.KnowledgeBase
	engine       *sim.Engine
	fading       *render.FadingGlobe
	accumulating *render.AccumulatingGlobe
	mapR         *render.MapRenderer
	simMetrics   *observability.SimulationCollector
}

// newApp wires the renderers and engine. reg may be nil, in which case no
// simulation metrics are recorded.
func newApp(cfg config.Config, log logging.Logger, reg prometheus.Registerer, opts ...sim.Option) (*app, error) {
	mc := cfg.MapConfig()
	if path := cfg.Render.BaseMap; path != "" {
		img, err := render.LoadBaseMap(path)
		if err != nil {
			return nil, err
		}
		mc.BaseMap = img
	}
	mapR, err := render.NewMapRenderer(mc)
	if err != nil {
		return nil, err
	}

	a := &app{
		store:        kb.NewKnowledgeBase(),
		fading:       render.NewFadingGlobe(cfg.Render.TrailCapacity),
		accumulating: render.NewAccumulatingGlobe(cfg.Render.TrailCapacity),
		mapR:         mapR,
	}
	base := []sim.Option{
		sim.WithRenderers(a.fading, a.accumulating, a.mapR),
		sim.WithInterval(cfg.Simulation.TickInterval),
		sim.WithMode(cfg.TimeMode()),
	}
	if reg != nil {
		a.simMetrics, err = observability.NewSimulationCollector(reg)
		if err != nil {
			return nil, fmt.Errorf("simulation metrics: %w", err)
		}
		base = append(base, sim.WithMetricsRecorder(a.simMetrics))
	}
	a.engine = sim.NewEngine(a.store, log, append(base, opts...)...)
	return a, nil
}
