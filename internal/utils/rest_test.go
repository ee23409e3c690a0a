package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		message string
	}{
		{
			name:    "bad request",
			code:    http.StatusBadRequest,
			message: "agent_type and model are required",
		},
		{
			name:    "service unavailable",
			code:    http.StatusServiceUnavailable,
			message: "Tenant budget store not configured",
		},
		{
			name:    "internal server error",
			code:    http.StatusInternalServerError,
			message: "Failed to list tenant budgets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			RespondWithError(w, tt.code, tt.message)

			if w.Code != tt.code {
				t.Errorf("RespondWithError() status = %d, want %d", w.Code, tt.code)
			}

			contentType := w.Header().Get("Content-Type")
			if contentType != "application/json" {
				t.Errorf("RespondWithError() Content-Type = %s, want application/json", contentType)
			}

			var response ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}

			if response.Error != tt.message {
				t.Errorf("RespondWithError() message = %s, want %s", response.Error, tt.message)
			}
		})
	}
}

func TestRespondMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()

	RespondMethodNotAllowed(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("RespondMethodNotAllowed() status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}

	var response ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.Error != "Method not allowed" {
		t.Errorf("RespondMethodNotAllowed() message = %s", response.Error)
	}
}

func TestRespondWithJSON(t *testing.T) {
	t.Run("map payload", func(t *testing.T) {
		w := httptest.NewRecorder()

		payload := map[string]any{
			"state":         "open",
			"failure_count": 3,
		}

		err := RespondWithJSON(w, http.StatusOK, payload)
		if err != nil {
			t.Errorf("RespondWithJSON() error = %v, want nil", err)
		}

		if w.Code != http.StatusOK {
			t.Errorf("RespondWithJSON() status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]any
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if response["state"] != "open" {
			t.Errorf("RespondWithJSON() state = %v, want open", response["state"])
		}
		if int(response["failure_count"].(float64)) != 3 {
			t.Errorf("RespondWithJSON() failure_count = %v, want 3", response["failure_count"])
		}
	})

	t.Run("nil payload", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := RespondWithJSON(w, http.StatusOK, nil)
		if err != nil {
			t.Errorf("RespondWithJSON() error = %v, want nil", err)
		}

		if body := w.Body.String(); body != "null\n" {
			t.Errorf("RespondWithJSON() body = %q, want null", body)
		}
	})
}
