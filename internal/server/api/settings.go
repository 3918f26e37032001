package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/donttouch/internal/config"
	"github.com/ayusman/donttouch/internal/i18n"
)

// SettingsTarget holds the settings in effect and applies new ones.
type SettingsTarget interface {
	Settings() config.Settings
	ApplySettings(s config.Settings) error
}

// SettingsHandler serves GET and PUT /api/settings. PUT accepts a partial
// document; missing fields keep their current values.
type SettingsHandler struct {
	target SettingsTarget
	kv     config.KeyValueStore
	log    logrus.FieldLogger
}

// NewSettingsHandler creates a SettingsHandler. When kv is nil, updates are
// applied but not persisted.
func NewSettingsHandler(target SettingsTarget, kv config.KeyValueStore, log logrus.FieldLogger) *SettingsHandler {
	return &SettingsHandler{target: target, kv: kv, log: log}
}

// ServeHTTP implements http.Handler.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.target.Settings())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, true) {
		return
	}

	s := h.target.Settings()
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := s.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.kv != nil {
		if err := config.Save(h.kv, s); err != nil {
			h.log.WithError(err).Error("failed to save settings")
			writeError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
	}

	if err := h.target.ApplySettings(s); err != nil {
		if errors.Is(err, config.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply settings")
		return
	}

	writeJSON(w, http.StatusOK, h.target.Settings())
}

// Languages lists the languages the interface can be shown in.
type Languages interface {
	Language() string
	Languages() []string
}

type languageResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type languagesResponse struct {
	Current   string             `json:"current"`
	Languages []languageResponse `json:"languages"`
}

// LanguagesHandler handles GET /api/languages.
func LanguagesHandler(l Languages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		codes := l.Languages()
		response := languagesResponse{
			Current:   l.Language(),
			Languages: make([]languageResponse, 0, len(codes)),
		}
		for _, code := range codes {
			response.Languages = append(response.Languages, languageResponse{
				Code: code,
				Name: i18n.SupportedLanguages[code],
			})
		}
		writeJSON(w, http.StatusOK, response)
	}
}
