package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nodegrid/nodegrid/pkg/lifecycle"
	"github.com/nodegrid/nodegrid/pkg/metrics"
	"github.com/nodegrid/nodegrid/pkg/rotation"
	"github.com/nodegrid/nodegrid/pkg/types"
)

// CreateContainerRequest is the panel's container creation payload.
type CreateContainerRequest struct {
	Descriptor     string              `json:"descriptor"`
	Image          string              `json:"image"`
	StartupCommand string              `json:"startup_command"`
	Environment    map[string]string   `json:"environment"`
	MemoryMB       int64               `json:"memory_mb"`
	SwapMB         int64               `json:"swap_mb"`
	CPUPercent     int64               `json:"cpu_percent"`
	IOWeight       uint16              `json:"io_weight"`
	Ports          []types.PortBinding `json:"ports"`
}

type errorResponse struct {
	Error         string `json:"error"`
	OccupiedPorts []int  `json:"occupied_ports,omitempty"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: s.cfg.Version})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	infos, err := s.cfg.Manager.List(r.Context())
	metrics.LifecycleOps.WithLabelValues("list", metrics.Outcome(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.ManagedContainers.Set(float64(len(infos)))
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.cfg.Manager.Create(r.Context(), lifecycle.CreateRequest{
		Descriptor:     types.Descriptor(req.Descriptor),
		Image:          req.Image,
		StartupCommand: req.StartupCommand,
		Environment:    req.Environment,
		Limits: types.ResourceLimits{
			MemoryMB:   req.MemoryMB,
			SwapMB:     req.SwapMB,
			CPUPercent: req.CPUPercent,
			IOWeight:   req.IOWeight,
		},
		Ports: req.Ports,
	})
	metrics.LifecycleOps.WithLabelValues("create", metrics.Outcome(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := s.cfg.Manager.Delete(r.Context(), pathDescriptor(r))
	metrics.LifecycleOps.WithLabelValues("delete", metrics.Outcome(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	err := s.cfg.Manager.Start(r.Context(), pathDescriptor(r))
	metrics.LifecycleOps.WithLabelValues("start", metrics.Outcome(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "container started"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	err := s.cfg.Manager.Stop(r.Context(), pathDescriptor(r))
	metrics.LifecycleOps.WithLabelValues("stop", metrics.Outcome(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "container stopped"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cfg.Manager.Stats(r.Context(), pathDescriptor(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUpdateToken(w http.ResponseWriter, r *http.Request) {
	var req rotation.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	err := s.cfg.Rotator.Apply(r.Context(), req.Token)
	metrics.Rotations.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "token rotated"})
}

func (s *Server) handleSelfUpdate(w http.ResponseWriter, r *http.Request) {
	s.cfg.Updater.Trigger()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "update scheduled, agent will restart shortly",
	})
}

func pathDescriptor(r *http.Request) types.Descriptor {
	return types.Descriptor(chi.URLParam(r, "descriptor"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error classes onto HTTP statuses. Internal errors
// keep their message: the panel is a trusted caller and needs the engine's
// words; unauthorized stays opaque.
func writeError(w http.ResponseWriter, err error) {
	var conflict *types.PortConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:         conflict.Error(),
			OccupiedPorts: conflict.Ports,
		})
		return
	}

	switch {
	case errors.Is(err, types.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, types.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, types.ErrPrecondition):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, types.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
