// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// hasActiveReporting gates the slow path in Build
var hasActiveReporting atomic.Bool

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
	hub     *sentry.Hub
}

// NewSentryReporter creates a Sentry reporter on the current hub
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled, hub: sentry.CurrentHub()}
}

// NewSentryReporterWithHub creates a Sentry reporter on a specific hub
func NewSentryReporterWithHub(enabled bool, hub *sentry.Hub) *SentryReporter {
	return &SentryReporter{enabled: enabled, hub: hub}
}

// InitSentry initializes the global Sentry client. Stack traces and server
// names are left out of events.
func InitSentry(dsn, release string) error {
	if dsn == "" {
		return New(NewStd("sentry dsn is empty")).
			Category(CategoryConfiguration).
			Component("telemetry").
			Build()
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          "slrealizer@" + release,
	})
	if err != nil {
		return New(fmt.Errorf("sentry init: %w", err)).
			Category(CategoryConfiguration).
			Component("telemetry").
			Build()
	}
	return nil
}

// FlushSentry waits for buffered events to be sent
func FlushSentry(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry. Low-priority errors are
// per-sample diagnostics and are never sent.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() || ee.Priority == PriorityLow {
		return
	}

	scrubbedMessage := scrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	component := ee.GetComponent()

	sr.hub.WithScope(func(scope *sentry.Scope) {
		errorTitle := generateErrorTitle(ee)

		scope.SetTag("error_title", errorTitle)
		scope.SetTag("component", component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))

		for key, value := range ee.GetContext() {
			if strValue, ok := value.(string); ok {
				value = scrubMessage(strValue)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}

		level := getErrorLevel(ee.Category)
		scope.SetLevel(level)
		scope.SetFingerprint([]string{errorTitle, component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = scrubbedMessage
		event.Level = level
		event.Exception = []sentry.Exception{{
			Type:  errorTitle,
			Value: scrubbedMessage,
		}}

		sr.hub.CaptureEvent(event)
	})

	ee.MarkReported()
}

// generateErrorTitle builds "Component Category Operation" for grouping
func generateErrorTitle(ee *EnhancedError) string {
	var titleParts []string

	if component := ee.GetComponent(); component != "" && component != ComponentUnknown {
		titleParts = append(titleParts, titleCase(component))
	}
	if categoryTitle := formatCategoryForTitle(ee.Category); categoryTitle != "" {
		titleParts = append(titleParts, categoryTitle)
	}
	if operation, ok := ee.GetContext()["operation"].(string); ok && operation != "" {
		titleParts = append(titleParts, formatOperationForTitle(operation))
	}

	if len(titleParts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}
	return strings.Join(titleParts, " ")
}

func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryMeasurementFailure:
		return "Measurement Failure"
	case CategoryInvalidParameter:
		return "Invalid Parameter"
	case CategoryNonFiniteAggregate:
		return "Non-finite Aggregate"
	case CategoryValidation:
		return "Validation Error"
	case CategoryDatabase:
		return "Database Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryFileParsing:
		return "File Parsing Error"
	case CategoryConfiguration:
		return "Configuration Error"
	default:
		return string(category)
	}
}

func formatOperationForTitle(operation string) string {
	words := strings.Fields(strings.ReplaceAll(operation, "_", " "))
	for i, word := range words {
		words[i] = titleCase(word)
	}
	return strings.Join(words, " ")
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// getErrorLevel returns the Sentry level for a category
func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryMeasurementFailure, CategoryNonFiniteAggregate:
		return sentry.LevelInfo
	case CategoryFileIO, CategoryFileParsing:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

var (
	globalTelemetryReporter atomic.Pointer[TelemetryReporter]
)

// SetTelemetryReporter sets the global telemetry reporter. Pass nil to disable.
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		globalTelemetryReporter.Store(nil)
		hasActiveReporting.Store(false)
		return
	}
	globalTelemetryReporter.Store(&reporter)
	hasActiveReporting.Store(reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	if r := globalTelemetryReporter.Load(); r != nil {
		return *r
	}
	return nil
}

func reportToTelemetry(ee *EnhancedError) {
	if reporter := GetTelemetryReporter(); reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

var (
	urlQueryRegex  = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	dsnRegex       = regexp.MustCompile(`(mysql|https?)://[^@\s]+@`)
	credentialExpr = regexp.MustCompile(`(?i)(password|passwd|pwd|token|key)[=:]\S+`)
)

// scrubMessage removes credentials from messages. Database DSNs carry
// passwords and catalog paths may carry query strings.
func scrubMessage(message string) string {
	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = dsnRegex.ReplaceAllString(scrubbed, "$1://[REDACTED]@")
	return credentialExpr.ReplaceAllString(scrubbed, "$1=[REDACTED]")
}
