// Package errors provides centralized error handling with optional telemetry integration
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

// CategorizedError is an interface for errors that can specify their own category
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	// CategoryMeasurementFailure marks a (lens, epoch) pair whose moments could
	// not be measured. The pair is skipped and counted.
	CategoryMeasurementFailure ErrorCategory = "measurement-failure"
	// CategoryInvalidParameter marks malformed or missing input fields. The batch aborts.
	CategoryInvalidParameter ErrorCategory = "invalid-parameter"
	// CategoryNonFiniteAggregate marks an object record with a NaN or Inf field. The record is dropped.
	CategoryNonFiniteAggregate ErrorCategory = "non-finite-aggregate"

	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryFileParsing   ErrorCategory = "file-parsing"
	CategoryDatabase      ErrorCategory = "database"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryGeneric       ErrorCategory = "generic"
)

// Priority constants for error prioritization
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

const packagePath = "github.com/tphakala/slrealizer/internal/errors"

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error          // Original error
	component string         // Component where error occurred (lazily detected)
	Category  ErrorCategory  // Error category for better grouping
	Priority  string         // Explicit priority override (optional)
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
	reported  bool           // Whether telemetry has been sent
	mu        sync.RWMutex
	detected  bool // Whether component has been auto-detected
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is reports category equality against another EnhancedError
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// ErrorCategory implements CategorizedError
func (ee *EnhancedError) ErrorCategory() ErrorCategory {
	return ee.Category
}

// GetComponent returns the component name, detecting it lazily if needed
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	if ee.detected || ee.component != "" {
		component := ee.component
		ee.mu.RUnlock()
		return component
	}
	ee.mu.RUnlock()

	ee.mu.Lock()
	defer ee.mu.Unlock()

	if ee.component == "" && !ee.detected {
		ee.component = detectComponent()
		ee.detected = true
		if ee.component == "" {
			ee.component = ComponentUnknown
		}
	}

	return ee.component
}

// GetCategory returns the error category
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetPriority returns the explicit priority if set, empty string otherwise
func (ee *EnhancedError) GetPriority() string {
	return ee.Priority
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}
	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// GetTimestamp returns when the error occurred
func (ee *EnhancedError) GetTimestamp() time.Time {
	return ee.Timestamp
}

// MarkReported marks this error as reported to telemetry
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

// IsReported returns whether this error has been reported
func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

// New creates a new error with enhanced context
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name (auto-detected if not set)
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority sets the explicit priority override for the error.
// Unknown values fall back to medium.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	default:
		if priority != "" {
			eb.priority = PriorityMedium
		}
	}
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// PairContext tags the error with the (lens, epoch) pair being realized
func (eb *ErrorBuilder) PairContext(lensID, epochIndex int) *ErrorBuilder {
	return eb.Context("lens_id", lensID).Context("epoch_index", epochIndex)
}

// FileContext adds file-specific context; only the extension is kept
func (eb *ErrorBuilder) FileContext(filePath string) *ErrorBuilder {
	if filePath == "" {
		return eb
	}
	return eb.Context("file_extension", getFileExtension(filePath))
}

// Timing adds performance timing context
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	return eb.Context("operation", operation).Context("duration_ms", duration.Milliseconds())
}

// Build creates the EnhancedError and triggers optional telemetry reporting
func (eb *ErrorBuilder) Build() *EnhancedError {
	// Fast path: per-sample failures are frequent, skip stack walks when nobody listens
	if !hasActiveReporting.Load() {
		ee := &EnhancedError{
			Err:       eb.err,
			component: eb.component,
			Category:  eb.category,
			Priority:  eb.priority,
			Context:   eb.context,
			Timestamp: time.Now(),
			detected:  true,
		}
		if ee.component == "" {
			ee.component = ComponentUnknown
		}
		if ee.Category == "" {
			ee.Category = detectCategory(eb.err)
		}
		return ee
	}

	if eb.component == "" {
		eb.component = detectComponent()
	}
	if eb.category == "" {
		eb.category = detectCategory(eb.err)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		component: eb.component,
		Category:  eb.category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
		detected:  true,
	}

	reportToTelemetry(ee)

	return ee
}

var (
	componentRegistry = make(map[string]string)
	registryMutex     sync.RWMutex
)

// RegisterComponent registers a package path pattern with a component name
func RegisterComponent(packagePattern, componentName string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	componentRegistry[packagePattern] = componentName
}

func init() {
	RegisterComponent("internal/moments", "moments")
	RegisterComponent("internal/noise", "noise")
	RegisterComponent("internal/render", "render")
	RegisterComponent("internal/realize", "realize")
	RegisterComponent("internal/lens", "lens")
	RegisterComponent("internal/survey", "survey")
	RegisterComponent("internal/catalog", "catalog")
	RegisterComponent("internal/datastore", "datastore")
	RegisterComponent("internal/conf", "configuration")
	RegisterComponent("observability/metrics", "metrics")
	RegisterComponent("internal/pipeline", "pipeline")
	RegisterComponent("internal/hostinfo", "hostinfo")
}

func detectComponent() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	if n == len(pcs) {
		pcs = make([]uintptr, 32)
		n = runtime.Callers(2, pcs)
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, packagePath) {
			if component := lookupComponent(frame.Function); component != ComponentUnknown {
				return component
			}
		}
		if !more {
			break
		}
	}
	return ComponentUnknown
}

// lookupComponent searches the registry for a matching component
func lookupComponent(funcName string) string {
	if funcName == "" {
		return ComponentUnknown
	}

	registryMutex.RLock()
	defer registryMutex.RUnlock()

	for pattern, component := range componentRegistry {
		if strings.Contains(funcName, pattern) {
			return component
		}
	}
	return ComponentUnknown
}

// detectCategory prefers a category carried by the wrapped error
func detectCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}
	var catErr CategorizedError
	if stderrors.As(err, &catErr) && catErr.ErrorCategory() != "" {
		return catErr.ErrorCategory()
	}
	return CategoryGeneric
}

func getFileExtension(path string) string {
	if lastDot := strings.LastIndex(path, "."); lastDot > 0 && lastDot < len(path)-1 {
		return strings.ToLower(path[lastDot+1:])
	}
	return "none"
}

// Convenience constructors for the three pipeline error kinds

// MeasurementFailure creates a low-priority per-sample error
func MeasurementFailure(format string, args ...any) *ErrorBuilder {
	return Newf(format, args...).Category(CategoryMeasurementFailure).Priority(PriorityLow)
}

// InvalidParameter creates an input error that aborts the batch
func InvalidParameter(format string, args ...any) *ErrorBuilder {
	return Newf(format, args...).Category(CategoryInvalidParameter).Priority(PriorityHigh)
}

// NonFiniteAggregate creates a low-priority error for a dropped object record
func NonFiniteAggregate(format string, args ...any) *ErrorBuilder {
	return Newf(format, args...).Category(CategoryNonFiniteAggregate).Priority(PriorityLow)
}

// Wrap wraps an existing error with enhanced context
func Wrap(err error) *ErrorBuilder {
	return New(err)
}

// FileError creates a file I/O error with appropriate context
func FileError(err error, filePath string) *EnhancedError {
	return New(err).
		Category(CategoryFileIO).
		FileContext(filePath).
		Build()
}

// ValidationError creates a validation error
func ValidationError(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryValidation).
		Build()
}

// Standard library passthrough functions

// NewStd creates a new standard error
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory checks if an error is an EnhancedError with the specified category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// IsMeasurementFailure reports whether err is a skippable per-sample failure
func IsMeasurementFailure(err error) bool {
	return IsCategory(err, CategoryMeasurementFailure)
}

// IsInvalidParameter reports whether err is a fatal input error
func IsInvalidParameter(err error) bool {
	return IsCategory(err, CategoryInvalidParameter)
}

// IsNonFiniteAggregate reports whether err marks a dropped object record
func IsNonFiniteAggregate(err error) bool {
	return IsCategory(err, CategoryNonFiniteAggregate)
}

// IsNotFound checks if an error is an EnhancedError with CategoryNotFound.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}
