package web

import (
	"encoding/json"
	"net/http"

	"github.com/armellarcier/benew-zha-quirks/internal/store"
)

// deviceView is a device record enriched with quirk binding info.
type deviceView struct {
	*store.Device
	Quirk   string   `json:"quirk,omitempty"`
	Actions []string `json:"actions,omitempty"`
	IsValve bool     `json:"is_valve"`
}

func (s *Server) enrichDevice(dev *store.Device) deviceView {
	v := deviceView{Device: dev}
	if def := s.hub.DefinitionFor(dev.IEEEAddress); def != nil {
		v.Quirk = def.Name
		v.Actions = def.Actions
	}
	_, v.IsValve = s.hub.ValveFor(dev.IEEEAddress)
	return v
}

func (s *Server) handleAPIListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.hub.Devices()
	if err != nil {
		s.logger.Error("list devices", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	views := make([]deviceView, 0, len(devices))
	for _, dev := range devices {
		views = append(views, s.enrichDevice(dev))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAPIGetDevice(w http.ResponseWriter, r *http.Request) {
	ieee := r.PathValue("ieee")
	dev, err := s.hub.Device(ieee)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.enrichDevice(dev))
}

type renameDeviceRequest struct {
	FriendlyName string `json:"friendly_name"`
}

func (s *Server) handleAPIRenameDevice(w http.ResponseWriter, r *http.Request) {
	ieee := r.PathValue("ieee")
	if _, err := s.hub.Device(ieee); err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
		return
	}

	var req renameDeviceRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.hub.Rename(ieee, req.FriendlyName); err != nil {
		s.logger.Error("rename device", "err", err, "ieee", ieee)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "friendly_name": req.FriendlyName})
}

type calibrationResponse struct {
	MinLimit uint8 `json:"min_limit"`
	MaxLimit uint8 `json:"max_limit"`
}

func (s *Server) handleAPIGetCalibration(w http.ResponseWriter, r *http.Request) {
	ieee := r.PathValue("ieee")
	vc, ok := s.hub.ValveFor(ieee)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not a valve device"})
		return
	}
	min, max := vc.Limits()
	s.writeJSON(w, http.StatusOK, calibrationResponse{MinLimit: min, MaxLimit: max})
}

type setCalibrationRequest struct {
	MinLimit uint8 `json:"min_limit"`
	MaxLimit uint8 `json:"max_limit"`
}

func (s *Server) handleAPISetCalibration(w http.ResponseWriter, r *http.Request) {
	ieee := r.PathValue("ieee")
	vc, ok := s.hub.ValveFor(ieee)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not a valve device"})
		return
	}

	var req setCalibrationRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := vc.SetLimits(r.Context(), req.MinLimit, req.MaxLimit); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, calibrationResponse{MinLimit: req.MinLimit, MaxLimit: req.MaxLimit})
}

type setValveRequest struct {
	Position uint8 `json:"position"`
}

func (s *Server) handleAPISetValvePosition(w http.ResponseWriter, r *http.Request) {
	ieee := r.PathValue("ieee")
	vc, ok := s.hub.ValveFor(ieee)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not a valve device"})
		return
	}

	var req setValveRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := vc.SetPosition(r.Context(), req.Position); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIListQuirks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.hub.Registry().Definitions())
}

func (s *Server) handleAPIVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writeJSON encode failed", "err", err)
	}
}
