package main

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
)

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestSimulatePrintsReadouts(t *testing.T) {
	out, err := execute(t, context.Background(), "simulate", "--ticks", "20", "--every", "5", "--direction", "45")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want header plus 4 readouts:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "direction=45.00") {
		t.Fatalf("header = %q, want direction=45.00", lines[0])
	}
	if !strings.HasPrefix(lines[4], "seq=20 phase=0.2000") {
		t.Fatalf("last readout = %q, want seq=20 phase=0.2000", lines[4])
	}
}

func TestSimulateRejectsBadTicks(t *testing.T) {
	if _, err := execute(t, context.Background(), "simulate", "--ticks", "0"); err == nil {
		t.Fatalf("simulate --ticks 0 should fail")
	}
}

func TestSimulateRejectsInvalidConfig(t *testing.T) {
	if _, err := execute(t, context.Background(), "simulate", "--latitude", "120"); err == nil {
		t.Fatalf("latitude 120 should be rejected")
	}
}

func TestRenderWritesFiles(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "map.png")
	trackPath := filepath.Join(dir, "track.geojson")

	_, err := execute(t, context.Background(), "render",
		"--ticks", "50",
		"--map-width", "120", "--map-height", "90",
		"--png", pngPath, "--geojson", trackPath,
	)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := os.Open(pngPath)
	if err != nil {
		t.Fatalf("open png: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 90 {
		t.Fatalf("png bounds = %v, want 120x90", b)
	}

	data, err := os.ReadFile(trackPath)
	if err != nil {
		t.Fatalf("read geojson: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("decode geojson: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want track and initial point", len(fc.Features))
	}
}

func TestRenderNeedsOutput(t *testing.T) {
	if _, err := execute(t, context.Background(), "render"); err == nil {
		t.Fatalf("render without outputs should fail")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := execute(t, ctx, "serve", "--http-addr", "127.0.0.1:0", "--grpc-addr", "127.0.0.1:0", "--auto-start")
		errCh <- err
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop after cancel")
	}
}
