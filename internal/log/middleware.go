package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// Inject stores logger in each request context, tagged with the request ID
// when requestID is non-nil.
func Inject(logger *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if requestID != nil {
				if id := requestID(r); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), l)))
		})
	}
}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by Inject, or one wrapping
// slog.Default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// EventLog writes the app's well-known events with a fixed field layout.
type EventLog struct {
	logger *Logger
}

func NewEventLog(logger *Logger) *EventLog {
	return &EventLog{logger: logger}
}

func (e *EventLog) HTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	f := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	e.logger.InfoContext(ctx, "HTTP request started", f.ToSlice()...)
}

func (e *EventLog) HTTPEnd(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	f := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(status, durationMs, status < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	e.logger.Logger.Log(ctx, statusLevel(status), "HTTP request completed", f.ToSlice()...)
}

func statusLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func (e *EventLog) ProfileUpdated(ctx context.Context, username string, incomeCents int64, jurisdiction string, cityResident bool, totalTax float64) {
	args := NewFields().
		WithUser(username).
		WithProfile(incomeCents, jurisdiction, cityResident).
		WithOperation(OpCalculate).
		WithComponent(ComponentTax).
		ToSlice()
	e.logger.InfoContext(ctx, "Tax profile updated", append(args, FieldTotalTax, totalTax)...)
}

func (e *EventLog) ExpenseAdded(ctx context.Context, username string, amountCents int64, category string) {
	f := NewFields().
		WithUser(username).
		WithExpense(amountCents, category).
		WithOperation(OpCreate).
		WithComponent(ComponentBudget)
	e.logger.InfoContext(ctx, "Expense added", f.ToSlice()...)
}

func (e *EventLog) StatementImported(ctx context.Context, username, batchID string, count int) {
	args := NewFields().
		WithUser(username).
		WithOperation(OpImport).
		WithComponent(ComponentStatement).
		ToSlice()
	e.logger.InfoContext(ctx, "Statement imported", append(args, FieldBatchID, batchID, FieldExpenseCount, count)...)
}

// Failure logs err under component and operation, on top of fields.
func (e *EventLog) Failure(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	f := fields.WithError(err).WithOperation(operation).WithComponent(component)
	e.logger.ErrorContext(ctx, msg, f.ToSlice()...)
}
