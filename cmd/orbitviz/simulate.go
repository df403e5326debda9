package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/orbit-visualizer/core"
	"github.com/signalsfoundry/orbit-visualizer/internal/config"
	"github.com/signalsfoundry/orbit-visualizer/internal/logging"
	"github.com/signalsfoundry/orbit-visualizer/internal/sim"
	"github.com/signalsfoundry/orbit-visualizer/model"
)

func newSimulateCmd() *cobra.Command {
	var ticks, every int
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Step a run headlessly and print position readouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return simulate(cmd.Context(), cfg, log, cmd.OutOrStdout(), ticks, every)
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 100, "number of ticks to run")
	cmd.Flags().IntVar(&every, "every", 10, "print a readout every N ticks")
	return cmd
}

func simulate(ctx context.Context, cfg config.Config, log logging.Logger, out io.Writer, ticks, every int) error {
	if ticks <= 0 {
		return fmt.Errorf("ticks must be positive, got %d", ticks)
	}
	if every <= 0 {
		every = 1
	}
	a, err := newApp(cfg, log, nil, sim.WithManualStepping())
	if err != nil {
		return err
	}
	params := cfg.OrbitParameters()
	if err := a.engine.Start(ctx, params, cfg.Simulation.AnimationSpeed); err != nil {
		return err
	}
	defer a.engine.Stop()

	start := core.GeoToXYZ(params.InitialPosition())
	fmt.Fprintf(out, "initial lat=%.4f lon=%.4f direction=%.2f animation_speed=%.2f\n",
		params.InitialLatitude, params.InitialLongitude, params.PlaneDirection, cfg.Simulation.AnimationSpeed)
	for i := 1; i <= ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := a.engine.Step()
		if err != nil {
			return err
		}
		if i%every == 0 || i == ticks {
			printReadout(out, frame, core.CentralAngle(start, frame.Position))
		}
	}
	return nil
}

func printReadout(out io.Writer, f model.Frame, distance float64) {
	fmt.Fprintf(out, "seq=%d phase=%.4f lat=%.4f lon=%.4f earth_lon=%.4f rotation=%.2f distance=%.2f xyz=(%.4f, %.4f, %.4f)\n",
		f.Seq, f.Phase,
		f.Absolute.Lat, f.Absolute.Lon,
		core.WrapLongitude(f.Earth.Lon), f.EarthRotation,
		distance,
		f.Position.X, f.Position.Y, f.Position.Z,
	)
}

func newRenderCmd() *cobra.Command {
	var (
		ticks       int
		pngPath     string
		geojsonPath string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Step a run headlessly, then write the map PNG and ground-track GeoJSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pngPath == "" && geojsonPath == "" {
				return fmt.Errorf("nothing to write: set --png and/or --geojson")
			}
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return renderFiles(cmd.Context(), cfg, log, ticks, pngPath, geojsonPath)
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 629, "number of ticks to run before writing")
	cmd.Flags().StringVar(&pngPath, "png", "", "path of the map PNG to write")
	cmd.Flags().StringVar(&geojsonPath, "geojson", "", "path of the ground-track GeoJSON to write")
	return cmd
}

func renderFiles(ctx context.Context, cfg config.Config, log logging.Logger, ticks int, pngPath, geojsonPath string) error {
	if ticks <= 0 {
		return fmt.Errorf("ticks must be positive, got %d", ticks)
	}
	a, err := newApp(cfg, log, nil, sim.WithManualStepping())
	if err != nil {
		return err
	}
	if err := a.engine.Start(ctx, cfg.OrbitParameters(), cfg.Simulation.AnimationSpeed); err != nil {
		return err
	}
	for range ticks {
		if _, err := a.engine.Step(); err != nil {
			return err
		}
	}
	// Stopping clears the renderers, so write before it.
	defer a.engine.Stop()

	if pngPath != "" {
		if err := writeFile(pngPath, a.mapR.EncodePNG); err != nil {
			return err
		}
		log.Info(ctx, "wrote map", logging.String("path", pngPath), logging.Int("segments", a.mapR.TrailLen()))
	}
	if geojsonPath != "" {
		data, err := a.mapR.GroundTrack().MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode ground track: %w", err)
		}
		if err := os.WriteFile(geojsonPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", geojsonPath, err)
		}
		log.Info(ctx, "wrote ground track", logging.String("path", geojsonPath))
	}
	return nil
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
