package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTriggers(t *testing.T, rr *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := rr.Header().Get("HX-Trigger")
	require.NotEmpty(t, raw)
	var triggers map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &triggers))
	return triggers
}

func TestHTMXResponseDefaults(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHTMXResponse().Text("ok").Write(rr)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Empty(t, rr.Header().Get("HX-Trigger"))
}

func TestHTMXResponseBudgetEvents(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerRecordUpdated("alice", "budget").
		TriggerExpenseCreated(2024, 3).
		TriggerSummaryRefresh().
		TriggerFormReset().
		Write(rr)

	triggers := decodeTriggers(t, rr)
	assert.JSONEq(t, `{"username":"alice","reason":"budget"}`, string(triggers["record:updated"]))
	assert.JSONEq(t, `{"year":2024,"month":3}`, string(triggers["expense:created"]))
	assert.Contains(t, triggers, "summary:refresh")
	assert.Contains(t, triggers, "form:reset")
}

func TestHTMXResponseNotify(t *testing.T) {
	tests := []struct {
		kind     NotificationType
		duration int
	}{
		{NotificationSuccess, 3000},
		{NotificationInfo, 3000},
		{NotificationWarning, 3000},
		{NotificationError, 5000},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			rr := httptest.NewRecorder()
			NewHTMXResponse().Notify(tt.kind, "Budget saved").Write(rr)

			var n struct {
				Type     string `json:"type"`
				Message  string `json:"message"`
				Duration int    `json:"duration"`
			}
			require.NoError(t, json.Unmarshal(decodeTriggers(t, rr)["show-notification"], &n))
			assert.Equal(t, string(tt.kind), n.Type)
			assert.Equal(t, "Budget saved", n.Message)
			assert.Equal(t, tt.duration, n.Duration)
		})
	}
}

func TestHTMXResponseLaterTriggerWins(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHTMXResponse().
		Notify(NotificationSuccess, "first").
		Notify(NotificationError, "second").
		Write(rr)

	assert.Contains(t, string(decodeTriggers(t, rr)["show-notification"]), "second")
}

func TestHTMXResponseRetarget(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorResponse(http.StatusUnprocessableEntity, "bad income").Retarget("#profile-result").Write(rr)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "#profile-result", rr.Header().Get("HX-Retarget"))
	assert.Equal(t, "innerHTML", rr.Header().Get("HX-Reswap"))
}

func TestErrorResponseEscapesMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, `<script>alert("x")</script>`).Write(rr)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.NotContains(t, rr.Body.String(), "<script>")
	assert.Contains(t, rr.Body.String(), `class="error"`)
}

func TestHTMXResponseCustomHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHTMXResponse().Status(http.StatusTooManyRequests).Header("Retry-After", "60").Write(rr)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Empty(t, rr.Body.String())
}
