package http

import (
	"net/http"

	"github.com/RukuLab/ruku/pkg/domain/model"
	"github.com/RukuLab/ruku/pkg/domain/types"
)

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	status := &model.HealthStatus{
		Status:  "healthy",
		Service: "ruku",
		Version: types.Version,
	}

	writeJSON(w, status)
}
