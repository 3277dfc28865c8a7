package logger

import (
	"context"
	"log/slog"
	"time"
)

// SecurityEvent represents a credential-related event worth operator
// visibility, separate from the persisted action log.
type SecurityEvent struct {
	EventType     string
	UserID        string
	Email         string
	IPAddress     string
	Success       bool
	FailureReason string
}

// SecurityLogger writes credential events through slog
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger creates a new security event logger
func NewSecurityLogger(logger *slog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs login and password-reset attempts
func (sl *SecurityLogger) LogAuthAttempt(event SecurityEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	if event.Success {
		sl.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		sl.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}

// LogPasswordChange logs password change and reset completions
func (sl *SecurityLogger) LogPasswordChange(userID, ipAddress string, success bool) {
	attrs := []slog.Attr{
		slog.String("audit_type", "password"),
		slog.String("event_type", "password_change"),
		slog.Bool("success", success),
		slog.String("user_id", userID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}

	if success {
		sl.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		sl.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}
