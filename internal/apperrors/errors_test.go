package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndUnwrap(t *testing.T) {
	t.Parallel()

	base := errors.New("connection refused")
	err := Wrap(base, CodeQueryExecution, "failed to fetch feed page")

	require.NotNil(t, err)
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, CodeQueryExecution, CodeOf(err))
	assert.Contains(t, err.Error(), "failed to fetch feed page")
	assert.Contains(t, err.Error(), "connection refused")

	assert.Nil(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestAtStampsStageOnce(t *testing.T) {
	t.Parallel()

	err := At(New(CodeQueryExecution, "window query failed"), StagePaginate)
	assert.Equal(t, StagePaginate, StageOf(err))

	// A second stamp does not overwrite the original stage.
	err = At(err, StageProject)
	assert.Equal(t, StagePaginate, StageOf(err))

	// Foreign errors are wrapped as internal with the stage attached.
	plain := At(fmt.Errorf("boom"), StageUnionBuild)
	assert.Equal(t, CodeInternal, CodeOf(plain))
	assert.Equal(t, StageUnionBuild, StageOf(plain))
}

func TestCodePredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidation(InvalidInput("order", "unknown order field")))
	assert.True(t, IsTimeout(New(CodeTimeout, "deadline exceeded")))
	assert.True(t, IsQueryExecution(New(CodeQueryExecution, "query failed")))
	assert.False(t, IsValidation(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeQueryExecution, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(New(tt.code, "x")), string(tt.code))
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
