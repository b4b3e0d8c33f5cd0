package apperr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := RateLimited("Limite de busca excedido.").WithCause(io.EOF)

	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.False(t, errors.Is(err, ErrExternalAPI))
	assert.True(t, errors.Is(err, io.EOF))
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "direct", err: Storage("x"), want: CodeStorage},
		{name: "wrapped", err: fmt.Errorf("outer: %w", Unauthorized()), want: CodeUnauthorized},
		{name: "foreign", err: errors.New("boom"), want: CodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CodeOf(tc.err))
		})
	}
}

func TestWithDetailsKeepsCode(t *testing.T) {
	err := ErrValidation.WithDetails(map[string]string{"name": "is required"})
	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, map[string]string{"name": "is required"}, err.Details)
	assert.Nil(t, ErrValidation.Details)
}

func TestRetryable(t *testing.T) {
	assert.True(t, CodeRateLimited.Retryable())
	assert.True(t, CodeStorage.Retryable())
	assert.False(t, CodeValidation.Retryable())
	assert.False(t, CodeUnauthorized.Retryable())
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "Erro ao enviar foto", MessageOf(Storage("Erro ao enviar foto").WithCause(io.EOF)))
	assert.Equal(t, "boom", MessageOf(errors.New("boom")))
}
