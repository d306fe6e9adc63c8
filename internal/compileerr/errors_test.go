package compileerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileErrorMessageWithLocation(t *testing.T) {
	err := NewParseError("unexpected token ')'", Location{Offset: 12, Line: 1, Column: 13})
	assert.Contains(t, err.Error(), "parse_error")
	assert.Contains(t, err.Error(), "line 1, column 13")
	assert.Contains(t, err.Error(), "unexpected token")
}

func TestCompileErrorUnwrap(t *testing.T) {
	cause := errors.New("no node schema for label Foo")
	err := NewSchemaError("cannot resolve label", cause)

	assert.ErrorIs(t, err, cause)
	require.Error(t, err.Unwrap())
	assert.Equal(t, cause, err.Unwrap())
}

func TestAnalysisErrorCarriesSubKind(t *testing.T) {
	err := NewAnalysisError(AnalysisUnknownVariable, "variable n is not defined", Location{Offset: 5})
	assert.Equal(t, AnalysisUnknownVariable, err.SubKind)
	assert.Equal(t, KindAnalysis, err.Kind)
	assert.Contains(t, err.Error(), "analysis_error")
}

func TestUnsupportedFeatureKind(t *testing.T) {
	err := NewUnsupportedFeature("CREATE clause", Location{Offset: 0})
	assert.Equal(t, KindUnsupportedFeature, err.Kind)
	assert.Contains(t, err.Error(), "unsupported_feature")
	assert.Contains(t, err.Error(), "CREATE clause")
}
