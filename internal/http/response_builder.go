package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// NotificationType selects the toast style app.js shows for show-notification.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// HX-Trigger event names listened for by the budget page.
const (
	eventRecordUpdated  = "record:updated"
	eventExpenseCreated = "expense:created"
	eventFormReset      = "form:reset"
	eventSummaryRefresh = "summary:refresh"
	eventNotification   = "show-notification"
)

// HTMXResponse accumulates headers, HX-Trigger events and a body, then writes
// them in one go. Methods chain.
type HTMXResponse struct {
	status   int
	header   http.Header
	triggers map[string]any
	body     []byte
}

func NewHTMXResponse() *HTMXResponse {
	return &HTMXResponse{
		status:   http.StatusOK,
		header:   make(http.Header),
		triggers: make(map[string]any),
	}
}

// ErrorResponse is an HTML error fragment; message is escaped.
func ErrorResponse(status int, message string) *HTMXResponse {
	return NewHTMXResponse().
		Status(status).
		HTML(`<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`)
}

func (b *HTMXResponse) Status(code int) *HTMXResponse {
	b.status = code
	return b
}

func (b *HTMXResponse) Header(name, value string) *HTMXResponse {
	b.header.Set(name, value)
	return b
}

// Retarget swaps the body into selector instead of the requesting element's
// target. Used so a failed form submit does not replace the content it guards.
func (b *HTMXResponse) Retarget(selector string) *HTMXResponse {
	b.header.Set("HX-Retarget", selector)
	b.header.Set("HX-Reswap", "innerHTML")
	return b
}

// Trigger adds an HX-Trigger event. A later call with the same name wins.
func (b *HTMXResponse) Trigger(name string, detail any) *HTMXResponse {
	b.triggers[name] = detail
	return b
}

func (b *HTMXResponse) TriggerRecordUpdated(username, reason string) *HTMXResponse {
	return b.Trigger(eventRecordUpdated, map[string]string{"username": username, "reason": reason})
}

func (b *HTMXResponse) TriggerExpenseCreated(year, month int) *HTMXResponse {
	return b.Trigger(eventExpenseCreated, map[string]int{"year": year, "month": month})
}

func (b *HTMXResponse) TriggerFormReset() *HTMXResponse {
	return b.Trigger(eventFormReset, struct{}{})
}

// TriggerSummaryRefresh makes section#summary reload itself.
func (b *HTMXResponse) TriggerSummaryRefresh() *HTMXResponse {
	return b.Trigger(eventSummaryRefresh, struct{}{})
}

// Notify shows a toast. Errors stay up longer.
func (b *HTMXResponse) Notify(kind NotificationType, message string) *HTMXResponse {
	duration := 3000
	if kind == NotificationError {
		duration = 5000
	}
	return b.Trigger(eventNotification, map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": duration,
	})
}

// Text sets a plain-text body.
func (b *HTMXResponse) Text(content string) *HTMXResponse {
	b.header.Set("Content-Type", "text/plain; charset=utf-8")
	b.body = []byte(content)
	return b
}

// HTML sets an already rendered HTML body.
func (b *HTMXResponse) HTML(content string) *HTMXResponse {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = []byte(content)
	return b
}

func (b *HTMXResponse) Write(w http.ResponseWriter) {
	for name, values := range b.header {
		w.Header()[name] = values
	}
	if len(b.triggers) > 0 {
		if encoded, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(encoded))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}
