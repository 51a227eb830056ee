// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package orchestrator

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabricctl/controller/internal/plan"
)

// Router builds the controller's HTTP surface: the configuration-upload
// endpoint, a read-only plan inspection endpoint, and /metrics.
func (o *Orchestrator) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/plan", o.handleUploadPlan).Methods(http.MethodPost)
	r.HandleFunc("/plan", o.handleGetPlan).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// handleUploadPlan accepts the normalized configuration-upload payload,
// stores it in memory as the currently applied plan (it is not written
// to disk), and drives every downstream rule installation. Parse failures
// are rejected with 400; installation failures are logged, not surfaced,
// since individual table writes degrade gracefully. A parsed upload
// always gets 202 with a status and request id; the response carries no
// per-install success flag and no processing time.
func (o *Orchestrator) handleUploadPlan(w http.ResponseWriter, r *http.Request) {
	var p plan.Plan
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "malformed plan payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	requestID := uuid.NewString()
	o.log.Info("plan upload received", "request_id", requestID)
	o.ApplyPlan(&p)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "applied", "request_id": requestID})
}

// handleGetPlan dumps the currently applied plan as JSON, the
// machine-readable counterpart to the original's tabular rule-inspection
// tooling.
func (o *Orchestrator) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p := o.CurrentPlan()
	w.Header().Set("Content-Type", "application/json")
	if p == nil {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"applied": false})
		return
	}
	json.NewEncoder(w).Encode(p)
}
