package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/signalsfoundry/orbit-visualizer/core"
	"github.com/signalsfoundry/orbit-visualizer/internal/logging"
	"github.com/signalsfoundry/orbit-visualizer/internal/sim"
	"github.com/signalsfoundry/orbit-visualizer/kb"
	"github.com/signalsfoundry/orbit-visualizer/model"
)

const maxBodyBytes = 1 << 16

var errBadRequest = errors.New("bad request")

// stateResponse is the readout shown next to the renderers.
type stateResponse struct {
	sim.Status
	RunID uint64       `json:"run_id,omitempty"`
	Frame *model.Frame `json:"frame,omitempty"`
	// AngularDistance is the central angle in degrees between the initial
	// point and the current position.
	AngularDistance float64 `json:"angular_distance"`
}

// runRequest starts a run. Omitted fields take the server defaults.
type runRequest struct {
	InitialLatitude  *float64 `json:"initial_latitude"`
	InitialLongitude *float64 `json:"initial_longitude"`
	Direction        *float64 `json:"direction"`
	Speed            *float64 `json:"speed"`
	AnimationSpeed   *float64 `json:"animation_speed"`
}

type speedRequest struct {
	AnimationSpeed *float64 `json:"animation_speed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready while a run is active.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Status().Running {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "idle"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) state() stateResponse {
	resp := stateResponse{Status: s.engine.Status()}
	store := s.engine.Store()
	if run, ok := store.CurrentRun(); ok {
		resp.RunID = run.ID
	}
	if frame, ok := store.LatestFrame(); ok {
		resp.Frame = &frame
		start := core.GeoToXYZ(frame.Params.InitialPosition())
		resp.AngularDistance = core.CentralAngle(start, frame.Position)
	}
	return resp
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	params := s.defaultParams
	speed := s.defaultSpeed
	setIf(&params.InitialLatitude, req.InitialLatitude)
	setIf(&params.InitialLongitude, req.InitialLongitude)
	setIf(&params.PlaneDirection, req.Direction)
	setIf(&params.ScaleFactor, req.Speed)
	setIf(&speed, req.AnimationSpeed)

	if err := s.engine.Start(s.runCtx, params, speed); err != nil {
		writeError(w, err)
		return
	}
	s.reqLog(r).Info(r.Context(), "run started over http",
		logging.Float64("direction", params.PlaneDirection),
		logging.Float64("animation_speed", speed),
	)
	writeJSON(w, http.StatusCreated, s.state())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Stop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleAnimationSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.AnimationSpeed == nil {
		writeError(w, fmt.Errorf("%w: animation_speed is required", errBadRequest))
		return
	}
	if err := s.engine.SetAnimationSpeed(*req.AnimationSpeed); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleGlobe(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	g, ok := s.globes[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown globe %q", name)})
		return
	}
	writeJSON(w, http.StatusOK, g.Scene())
}

func (s *Server) handleMapScene(w http.ResponseWriter, r *http.Request) {
	if s.mapR == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "map renderer disabled"})
		return
	}
	writeJSON(w, http.StatusOK, s.mapR.Scene())
}

func (s *Server) handleMapPNG(w http.ResponseWriter, r *http.Request) {
	if s.mapR == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "map renderer disabled"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.mapR.EncodePNG(w); err != nil {
		s.reqLog(r).Warn(r.Context(), "write map png", logging.Err(err))
	}
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	if s.mapR == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "map renderer disabled"})
		return
	}
	data, err := s.mapR.GroundTrack().MarshalJSON()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) reqLog(r *http.Request) logging.Logger {
	if l := logging.LoggerFromContext(r.Context()); l != nil {
		return l
	}
	return s.log
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, model.ErrInvalidOrbitParameters),
		errors.Is(err, sim.ErrInvalidAnimationSpeed):
		return http.StatusBadRequest
	case errors.Is(err, sim.ErrNotRunning), errors.Is(err, kb.ErrNoRun):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
