package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text handler for development, JSON for production
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithSessionID adds checkout session ID to logger context
func (l *Logger) WithSessionID(sessionID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("session_id", sessionID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Reservation engine logging methods

// LogHoldAcquired logs when inventory is claimed by a checkout session
func (l *Logger) LogHoldAcquired(ctx context.Context, holdID, showID, sessionID string, units int) {
	l.Logger.InfoContext(ctx,
		"Hold Acquired",
		slog.String("hold_id", holdID),
		slog.String("show_id", showID),
		slog.String("session_id", sessionID),
		slog.Int("units", units),
	)
}

// LogHoldExpired logs when the sweeper reclaims a stale hold
func (l *Logger) LogHoldExpired(ctx context.Context, holdID, showID string) {
	l.Logger.InfoContext(ctx,
		"Hold Expired",
		slog.String("hold_id", holdID),
		slog.String("show_id", showID),
	)
}

// LogBookingConfirmed logs a successful payment confirmation
func (l *Logger) LogBookingConfirmed(ctx context.Context, bookingID, reference, orderID string) {
	l.Logger.InfoContext(ctx,
		"Booking Confirmed",
		slog.String("booking_id", bookingID),
		slog.String("reference", reference),
		slog.String("payment_order_id", orderID),
	)
}

// LogReservationLapsed is an operational alert: payment arrived after the hold
// expired and the caller must initiate a refund. Never swallow this one.
func (l *Logger) LogReservationLapsed(ctx context.Context, bookingID, orderID string, amount float64) {
	l.Logger.ErrorContext(ctx,
		"ALERT Reservation Lapsed - refund required",
		slog.String("booking_id", bookingID),
		slog.String("payment_order_id", orderID),
		slog.Float64("amount", amount),
	)
}

// LogTicketScanned logs a gate scan result
func (l *Logger) LogTicketScanned(ctx context.Context, ticketID string, alreadyUsed bool) {
	l.Logger.InfoContext(ctx,
		"Ticket Scanned",
		slog.String("ticket_id", ticketID),
		slog.Bool("already_used", alreadyUsed),
	)
}

// LogTicketRejected logs a rejected scan without the decode detail
func (l *Logger) LogTicketRejected(ctx context.Context, reason string) {
	l.Logger.WarnContext(ctx,
		"Ticket Rejected",
		slog.String("reason", reason),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
