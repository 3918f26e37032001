// Package api provides the HTTP API handlers for the Don't Touch dashboard.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// queryInt reads an integer query parameter, returning def when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// queryDate reads a YYYY-MM-DD query parameter, returning def when it is absent.
func queryDate(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return time.ParseInLocation(dateLayout, raw, def.Location())
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}
