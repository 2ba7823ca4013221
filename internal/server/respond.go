package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/gridcast/internal/aggregate"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

// respondError writes the uniform error body.
func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// respondLoadError maps a store load failure to an HTTP status: a
// missing snapshot is a 503 "no data" condition, anything else a 500.
func respondLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, aggregate.ErrDataUnavailable) {
		respondError(w, http.StatusServiceUnavailable, "no aggregate data loaded for requested resolution")
		return
	}
	zap.L().Error("snapshot load failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}
