// Package compileerr defines the compiler's structured error taxonomy: a
// closed set of error kinds, each carrying an optional source location, so
// callers can distinguish a malformed query from an unsupported feature
// from a catalog mismatch without string-matching error text.
package compileerr

import "fmt"

// Location is an offset/line/column into the original query text.
type Location struct {
	Offset int
	Line   int
	Column int
}

func (l Location) String() string {
	if l.Line == 0 {
		return fmt.Sprintf("offset %d", l.Offset)
	}
	return fmt.Sprintf("line %d, column %d", l.Line, l.Column)
}

// Kind classifies a compiler error for metrics and CLI exit codes.
type Kind int

const (
	KindParse Kind = iota
	KindAnalysis
	KindSchema
	KindRender
	KindUnsupportedFeature
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse_error"
	case KindAnalysis:
		return "analysis_error"
	case KindSchema:
		return "schema_error"
	case KindRender:
		return "render_error"
	case KindUnsupportedFeature:
		return "unsupported_feature"
	default:
		return "unknown_error"
	}
}

// CompileError is the common shape for every error the compiler returns to
// a caller: a kind, a human message, an optional location, and an optional
// wrapped cause.
type CompileError struct {
	Kind     Kind
	Message  string
	Location *Location
	Cause    error
}

func (e *CompileError) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Location, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// AnalysisSubKind refines KindAnalysis errors per spec.md §6-7's
// per-pass failure modes.
type AnalysisSubKind int

const (
	AnalysisUnknownVariable AnalysisSubKind = iota
	AnalysisAmbiguousType
	AnalysisUnboundProperty
	AnalysisInvalidParameterUsage
	AnalysisOptionalMatchViolation
	AnalysisWithScopeViolation
)

func (k AnalysisSubKind) String() string {
	switch k {
	case AnalysisUnknownVariable:
		return "unknown_variable"
	case AnalysisAmbiguousType:
		return "ambiguous_type"
	case AnalysisUnboundProperty:
		return "unbound_property"
	case AnalysisInvalidParameterUsage:
		return "invalid_parameter_usage"
	case AnalysisOptionalMatchViolation:
		return "optional_match_violation"
	case AnalysisWithScopeViolation:
		return "with_scope_violation"
	default:
		return "unknown"
	}
}

// AnalysisError is a KindAnalysis CompileError with a refining sub-kind.
type AnalysisError struct {
	CompileError
	SubKind AnalysisSubKind
}

// RenderSubKind refines KindRender errors per spec.md §4.5's named emission
// failure modes.
type RenderSubKind int

const (
	RenderMissingViewParameterValue RenderSubKind = iota
	RenderVLPLengthExceeded
	RenderCTEDepthExceeded
)

func (k RenderSubKind) String() string {
	switch k {
	case RenderMissingViewParameterValue:
		return "missing_view_parameter_value"
	case RenderVLPLengthExceeded:
		return "vlp_length_exceeded"
	case RenderCTEDepthExceeded:
		return "cte_depth_exceeded"
	default:
		return "unknown"
	}
}

// RenderError is a KindRender CompileError with a refining sub-kind.
type RenderError struct {
	CompileError
	SubKind RenderSubKind
}

// NewRenderSubError builds a RenderError with the given sub-kind.
func NewRenderSubError(subKind RenderSubKind, message string) *RenderError {
	return &RenderError{
		CompileError: CompileError{Kind: KindRender, Message: message},
		SubKind:      subKind,
	}
}

// NewParseError builds a KindParse CompileError.
func NewParseError(message string, loc Location) *CompileError {
	return &CompileError{Kind: KindParse, Message: message, Location: &loc}
}

// NewSchemaError wraps a catalog lookup/validation failure as a KindSchema
// CompileError.
func NewSchemaError(message string, cause error) *CompileError {
	return &CompileError{Kind: KindSchema, Message: message, Cause: cause}
}

// NewRenderError builds a KindRender CompileError for a failure in the SQL
// emission stage.
func NewRenderError(message string, cause error) *CompileError {
	return &CompileError{Kind: KindRender, Message: message, Cause: cause}
}

// NewUnsupportedFeature builds a KindUnsupportedFeature CompileError for a
// construct the compiler recognizes but deliberately does not implement.
func NewUnsupportedFeature(feature string, loc Location) *CompileError {
	return &CompileError{Kind: KindUnsupportedFeature, Message: fmt.Sprintf("unsupported feature: %s", feature), Location: &loc}
}

// NewAnalysisError builds an AnalysisError with the given sub-kind.
func NewAnalysisError(subKind AnalysisSubKind, message string, loc Location) *AnalysisError {
	return &AnalysisError{
		CompileError: CompileError{Kind: KindAnalysis, Message: message, Location: &loc},
		SubKind:      subKind,
	}
}
