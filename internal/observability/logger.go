package observability

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field represents a key-value pair for observability.
type Field struct {
	Key   string
	Value interface{}
}

// MetricField represents a key-value pair for logging metrics.
type MetricField struct {
	Key   string
	Value interface{}
}

type ObservabilityContextKey string

const observabilityKey ObservabilityContextKey = "observability_fields"

// WithFields adds a set of observability fields to the context.
func WithFields(ctx context.Context, fields ...Field) context.Context {
	existing := getObservabilityFields(ctx)
	merged := make([]Field, 0, len(existing)+len(fields))
	merged = append(merged, existing...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, observabilityKey, merged)
}

// Get observability fields from context.
func getObservabilityFields(ctx context.Context) []Field {
	if fields, ok := ctx.Value(observabilityKey).([]Field); ok {
		return fields
	}
	return nil
}

// Merge fields from context and additional metric fields, avoiding duplicates.
func mergeFields(ctx context.Context, fields []MetricField) []zapcore.Field {
	fieldMap := make(map[string]zapcore.Field)

	for _, field := range getObservabilityFields(ctx) {
		fieldMap[field.Key] = zap.Any(field.Key, field.Value)
	}
	for _, field := range fields {
		fieldMap[field.Key] = zap.Any(field.Key, field.Value)
	}

	mergedFields := make([]zapcore.Field, 0, len(fieldMap))
	for _, field := range fieldMap {
		mergedFields = append(mergedFields, field)
	}
	return mergedFields
}

// GetRealClientIP extracts the real client IP from CloudFront headers.
// CloudFront-Viewer-Address contains the client IP in "IP:port" format.
// Falls back to c.ClientIP() if the header is not present.
func GetRealClientIP(c *gin.Context) string {
	if viewerAddr := c.GetHeader("CloudFront-Viewer-Address"); viewerAddr != "" {
		if colonIdx := strings.LastIndex(viewerAddr, ":"); colonIdx > 0 {
			return viewerAddr[:colonIdx]
		}
		return viewerAddr
	}
	return c.ClientIP()
}

// CloudFrontViewerInfo contains the CloudFront viewer headers used to enrich
// subscriber records when the browser does not report them.
type CloudFrontViewerInfo struct {
	Country      *string
	City         *string
	UserTimezone *string
	Latitude     *float64
	Longitude    *float64

	DeviceType string // desktop, mobile, tablet, smarttv, unknown
	DeviceOS   string // android, ios, other
}

// strPtrIfNotEmpty returns a pointer to the string if non-empty, otherwise nil
func strPtrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetCloudFrontViewerInfo extracts CloudFront viewer headers from the request.
func GetCloudFrontViewerInfo(c *gin.Context) CloudFrontViewerInfo {
	info := CloudFrontViewerInfo{
		Country:      strPtrIfNotEmpty(c.GetHeader("CloudFront-Viewer-Country-Name")),
		City:         strPtrIfNotEmpty(c.GetHeader("CloudFront-Viewer-City")),
		UserTimezone: strPtrIfNotEmpty(c.GetHeader("CloudFront-Viewer-Time-Zone")),
		DeviceType:   GetDeviceType(c),
		DeviceOS:     GetDeviceOS(c),
	}

	if lat := c.GetHeader("CloudFront-Viewer-Latitude"); lat != "" {
		if parsed, err := strconv.ParseFloat(lat, 64); err == nil {
			info.Latitude = &parsed
		}
	}
	if lon := c.GetHeader("CloudFront-Viewer-Longitude"); lon != "" {
		if parsed, err := strconv.ParseFloat(lon, 64); err == nil {
			info.Longitude = &parsed
		}
	}

	return info
}

// GetDeviceType determines the device type from CloudFront headers and User-Agent parsing.
// Returns "desktop", "mobile", "tablet", "smarttv", or "unknown".
func GetDeviceType(c *gin.Context) string {
	if c.GetHeader("CloudFront-Is-Mobile-Viewer") == "true" {
		return "mobile"
	}
	if c.GetHeader("CloudFront-Is-Tablet-Viewer") == "true" {
		return "tablet"
	}

	ua := strings.ToLower(c.Request.UserAgent())

	// Tablets first, Android tablets omit "mobile"
	if strings.Contains(ua, "ipad") ||
		(strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")) ||
		strings.Contains(ua, "tablet") {
		return "tablet"
	}

	for _, tv := range []string{"smart-tv", "smarttv", "googletv", "appletv", "roku", "webos", "web0s", "tizen"} {
		if strings.Contains(ua, tv) {
			return "smarttv"
		}
	}

	if strings.Contains(ua, "mobile") ||
		strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "ipod") {
		return "mobile"
	}

	if ua != "" {
		return "desktop"
	}
	return "unknown"
}

// GetDeviceOS determines the device OS from User-Agent parsing.
// Returns "android", "ios", or "other".
func GetDeviceOS(c *gin.Context) string {
	ua := strings.ToLower(c.Request.UserAgent())

	if strings.Contains(ua, "android") {
		return "android"
	}
	if strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "ipad") ||
		strings.Contains(ua, "ipod") {
		return "ios"
	}
	return "other"
}

// Middleware adds request fields to the request context, logs each request and
// records the HTTP metrics.
func Middleware(l *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		requestID := c.Request.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%s", uuid.New().String())
			c.Request.Header.Set("X-Request-ID", requestID)
		}
		c.Writer.Header().Set("X-Request-ID", requestID)

		ctx = WithFields(ctx,
			Field{"request_id", requestID},
			Field{"path", c.Request.URL.Path},
			Field{"method", c.Request.Method},
			Field{"client_ip", GetRealClientIP(c)},
			Field{"user_agent", c.Request.UserAgent()},
		)
		if c.Request.ContentLength > 0 {
			ctx = WithFields(ctx, Field{"content_length", c.Request.ContentLength})
		}

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		httpInFlight.Inc()
		defer func() {
			httpInFlight.Dec()
			if r := recover(); r != nil {
				l.Error(c.Request.Context(), "Recovered from panic", fmt.Errorf("reason: %+v", r))
				c.AbortWithStatus(500)
			}

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			status := c.Writer.Status()
			latency := time.Since(start)
			ObserveHTTPRequest(c.Request.Method, route, status, latency)

			if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
				return
			}
			l.Metrics(ctx,
				MetricField{"status", status},
				MetricField{"latency_ns", latency.Nanoseconds()},
			)
		}()
		c.Next()
	}
}

// Logger represents a custom logger with Zap integration.
type Logger struct {
	zapLogger *zap.Logger
}

// FileOptions configures an optional rotating log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewLogger creates a new instance of custom logger.
func NewLogger() *Logger {
	zapLogger, _ := zap.NewProduction()
	zapLogger = zapLogger.WithOptions(zap.AddCallerSkip(1))
	zapLogger = zapLogger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{zapLogger: zapLogger}
}

// NewLoggerWithFile creates a logger writing JSON to stdout and to a rotating file.
func NewLoggerWithFile(opts FileOptions) *Logger {
	if opts.Path == "" {
		return NewLogger()
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	rotating := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.InfoLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(rotating), zap.InfoLevel),
	)
	zapLogger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	return &Logger{zapLogger: zapLogger}
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.zapLogger.Sync()
}

// Create a logger with fields from context.
func (l *Logger) loggerFromContext(ctx context.Context) *zap.Logger {
	fields := getObservabilityFields(ctx)
	zapFields := make([]zapcore.Field, len(fields))

	for i, f := range fields {
		zapFields[i] = zap.Any(f.Key, f.Value)
	}

	return l.zapLogger.With(zapFields...)
}

// Info logs an informational message with context-based fields.
func (l *Logger) Info(ctx context.Context, msg string) {
	l.loggerFromContext(ctx).Info(msg)
}

// InfoWithError logs an informational message with context and an error.
func (l *Logger) InfoWithError(ctx context.Context, msg string, err error) {
	l.loggerFromContext(ctx).Info(msg, zap.Error(err))
}

// Error logs an error message with context-based fields.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.loggerFromContext(ctx).Error(msg, zap.Error(err))
}

// Warn logs a warning message with context-based fields.
func (l *Logger) Warn(ctx context.Context, msg string) {
	l.loggerFromContext(ctx).Warn(msg)
}

// Debug logs a debug message with context-based fields.
func (l *Logger) Debug(ctx context.Context, msg string) {
	l.loggerFromContext(ctx).Debug(msg)
}

// Fatal logs a fatal message with context-based fields.
func (l *Logger) Fatal(ctx context.Context, msg string, err error) {
	l.loggerFromContext(ctx).Fatal(msg, zap.Error(err))
}

// Metrics logs metrics-related information using custom MetricField type.
func (l *Logger) Metrics(ctx context.Context, fields ...MetricField) {
	l.zapLogger.Info("Metrics", mergeFields(ctx, fields)...)
}
