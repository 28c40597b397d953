package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/attrition-cli/internal/model"
	"github.com/sells-group/attrition-cli/internal/pipeline"
	"github.com/sells-group/attrition-cli/internal/store"
)

// maxBodyBytes caps request bodies; bulk batches of a few thousand employees
// stay well under it.
const maxBodyBytes = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if svc := s.service(); svc != nil {
		resp["model_version"] = svc.Version()
	} else {
		resp["status"] = "no_model"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	svc := s.service()
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prediction pipeline unavailable")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body")
		return
	}

	var in model.EmployeeInput
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pred, err := svc.PredictOne(r.Context(), in)
	if err != nil {
		writePredictionError(w, err)
		return
	}

	s.audit(r, pred, body)
	writeJSON(w, http.StatusOK, pred)
}

// bulkResult is the per-record response element of a bulk prediction.
type bulkResult struct {
	Index      int               `json:"index"`
	Prediction *model.Prediction `json:"prediction,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func (s *Server) handlePredictBulk(w http.ResponseWriter, r *http.Request) {
	svc := s.service()
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "prediction pipeline unavailable")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body")
		return
	}

	var ins []model.EmployeeInput
	if err := json.Unmarshal(body, &ins); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: expected an array of employees")
		return
	}
	if len(ins) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch")
		return
	}

	// Raw per-record payloads for the audit log.
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		raws = nil
	}

	outcomes, err := svc.PredictMany(r.Context(), ins)
	if err != nil {
		writePredictionError(w, err)
		return
	}

	results := make([]bulkResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = bulkResult{Index: o.Index, Prediction: o.Prediction}
		if o.Err != nil {
			results[i].Error = o.Err.Error()
			continue
		}
		var raw json.RawMessage
		if o.Index < len(raws) {
			raw = raws[o.Index]
		}
		s.audit(r, o.Prediction, raw)
	}

	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	filter := store.LogFilter{
		EmployeeID:   r.URL.Query().Get("employee_id"),
		ModelVersion: r.URL.Query().Get("model_version"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	entries, err := s.st.ListPredictionLogs(r.Context(), filter)
	if err != nil {
		zap.L().Named("http").Error("list prediction logs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list prediction logs")
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// audit records one served prediction. Failures are logged and swallowed;
// auditing never fails a response that already carries a valid prediction.
func (s *Server) audit(r *http.Request, pred *model.Prediction, raw json.RawMessage) {
	if s.st == nil || pred == nil {
		return
	}
	if raw == nil {
		raw = json.RawMessage(`{}`)
	}
	svc := s.service()
	entry := &model.AuditEntry{
		EmployeeID:   pred.IDEmploye,
		Input:        raw,
		Probability:  pred.ProbabiliteDepart,
		Class:        pred.PredictionDepart,
		ModelVersion: svc.Version(),
	}
	if err := s.st.LogPrediction(r.Context(), entry); err != nil {
		zap.L().Named("http").Warn("prediction audit failed",
			zap.String("employee_id", pred.IDEmploye),
			zap.Error(err))
	}
}

// writePredictionError maps pipeline errors onto HTTP status codes.
func writePredictionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrPipelineUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, pipeline.ErrMissingColumn),
		errors.Is(err, pipeline.ErrMalformedValue),
		errors.Is(err, pipeline.ErrUnknownOrdinalCategories):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zap.L().Named("http").Error("prediction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "prediction failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Named("http").Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
