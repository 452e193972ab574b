package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/scanlab-io/scanlab/internal/errors"
	"github.com/scanlab-io/scanlab/internal/model"
	"github.com/scanlab-io/scanlab/internal/orchestrator"
)

// validate checks request body structs against their validate tags.
var validate = validator.New()

// ScanCreateRequest is the body of POST /api/v1/scans.
type ScanCreateRequest struct {
	Target      string `json:"target" validate:"required"`
	ScanType    string `json:"scan_type" validate:"omitempty,oneof=quick deep discovery custom"`
	PortRange   string `json:"port_range" validate:"omitempty,max=64"`
	UserConsent bool   `json:"user_consent"`
}

// ModeRequest is the body of PUT /api/v1/settings/mode. ConfirmLive,
// when present, records or revokes the live scanning acknowledgement.
type ModeRequest struct {
	Mode        string `json:"mode" validate:"required,oneof=training live"`
	ConfirmLive *bool  `json:"confirm_live,omitempty"`
}

// createScanHandler starts a new scan.
func (s *Server) createScanHandler(w http.ResponseWriter, r *http.Request) {
	var req ScanCreateRequest
	if err := s.parseJSON(r, &req); err != nil {
		s.writeError(w, r, errors.WrapScanError(errors.CodeInvalidFormat, "invalid scan request", err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		s.writeError(w, r, errors.WrapScanError(errors.CodeInvalidFormat, "invalid scan request", err))
		return
	}

	scanType := model.ScanType(req.ScanType)
	if scanType == "" {
		scanType = model.ScanTypeQuick
	}

	result, err := s.orch.StartScan(r.Context(), orchestrator.ScanRequest{
		Target:      req.Target,
		ScanType:    scanType,
		PortRange:   req.PortRange,
		UserConsent: req.UserConsent,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusAccepted, result)
}

// listScansHandler returns the scan history, newest first.
func (s *Server) listScansHandler(w http.ResponseWriter, r *http.Request) {
	params := getPaginationParams(r)

	scans, err := s.orch.GetScanHistory(r.Context(), params.PageSize, params.Offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	total, err := s.orch.CountScans(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writePaginated(w, r, scans, params, total)
}

// getScanHandler returns a single scan with its full results.
func (s *Server) getScanHandler(w http.ResponseWriter, r *http.Request) {
	scanID := mux.Vars(r)["id"]

	result, err := s.orch.GetScan(r.Context(), scanID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, result)
}

// scanStatusResponse is a light-weight view of a scan for polling.
type scanStatusResponse struct {
	ScanID      string           `json:"scan_id"`
	Status      model.ScanStatus `json:"status"`
	Progress    float64          `json:"progress"`
	DeviceCount int              `json:"device_count"`
	Error       string           `json:"error,omitempty"`
}

// scanStatusHandler returns scan progress without the device payload.
func (s *Server) scanStatusHandler(w http.ResponseWriter, r *http.Request) {
	scanID := mux.Vars(r)["id"]

	result, err := s.orch.GetScanStatus(r.Context(), scanID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, scanStatusResponse{
		ScanID:      result.ScanID,
		Status:      result.Status,
		Progress:    result.Progress,
		DeviceCount: result.DeviceCount(),
		Error:       result.ErrorMessage,
	})
}

// deleteScanHandler removes a scan record.
func (s *Server) deleteScanHandler(w http.ResponseWriter, r *http.Request) {
	scanID := mux.Vars(r)["id"]

	deleted, err := s.orch.DeleteScan(r.Context(), scanID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !deleted {
		s.writeError(w, r, errors.ErrScanNotFound(scanID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// cancelScanHandler cancels a running scan.
func (s *Server) cancelScanHandler(w http.ResponseWriter, r *http.Request) {
	scanID := mux.Vars(r)["id"]

	if !s.orch.CancelScan(r.Context(), scanID) {
		s.writeError(w, r, errors.ErrScanNotFound(scanID))
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"scan_id":   scanID,
		"cancelled": true,
		"timestamp": time.Now().UTC(),
	})
}

// validateTargetHandler validates a target without scanning it.
func (s *Server) validateTargetHandler(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		s.writeError(w, r, errors.NewScanError(errors.CodeInvalidFormat,
			"Missing required query parameter: target"))
		return
	}

	info, err := s.orch.ValidateTarget(target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, info)
}

// interfacesHandler lists the machine's network interfaces.
func (s *Server) interfacesHandler(w http.ResponseWriter, r *http.Request) {
	ifaces, err := s.orch.ListInterfaces()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"interfaces": ifaces,
	})
}

// localNetworkHandler returns the detected local network, if any.
func (s *Server) localNetworkHandler(w http.ResponseWriter, r *http.Request) {
	network := s.orch.DetectLocalNetwork()

	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"network":  network,
		"detected": network != "",
	})
}

// getModeHandler returns the active network mode and the live scan
// confirmation state.
func (s *Server) getModeHandler(w http.ResponseWriter, r *http.Request) {
	mode, err := s.orch.NetworkMode(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	confirmed, err := s.orch.LiveScanConfirmed(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"mode":                mode,
		"live_scan_confirmed": confirmed,
	})
}

// setModeHandler switches between training and live mode and updates
// the live scan confirmation when the request carries it.
func (s *Server) setModeHandler(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := s.parseJSON(r, &req); err != nil {
		s.writeError(w, r, errors.WrapScanError(errors.CodeInvalidFormat, "invalid mode request", err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		s.writeError(w, r, errors.WrapScanError(errors.CodeInvalidFormat, "invalid mode request", err))
		return
	}

	if req.ConfirmLive != nil {
		if err := s.orch.SetLiveScanConfirm(r.Context(), *req.ConfirmLive); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	if err := s.orch.SetNetworkMode(r.Context(), req.Mode); err != nil {
		s.writeError(w, r, err)
		return
	}

	confirmed, err := s.orch.LiveScanConfirmed(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"mode":                req.Mode,
		"live_scan_confirmed": confirmed,
	})
}

// healthHandler provides a basic health check endpoint.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}
	status := "healthy"
	statusCode := http.StatusOK

	if _, err := s.orch.CountScans(r.Context()); err != nil {
		checks["store"] = "failed: " + err.Error()
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	s.writeJSON(w, r, statusCode, map[string]interface{}{
		"status":    status,
		"checks":    checks,
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().UTC(),
	})
}

// versionHandler provides version information.
func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"service":   "scanlab",
		"version":   Version,
		"timestamp": time.Now().UTC(),
	})
}

// Version is the reported service version. Overridden at build time
// with -ldflags "-X github.com/scanlab-io/scanlab/internal/api.Version=...".
var Version = "0.1.0"
