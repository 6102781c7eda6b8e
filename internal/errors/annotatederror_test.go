package errors_test

import (
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/stretchr/testify/require"
	"log/slog"
	"slices"
	"testing"
)

func TestAnnotatedError(t *testing.T) {
	err := errors.New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	var annotated *errors.AnnotatedError
	require.True(t, errors.As(err, &annotated))

	// Ensure log values are coming through.
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.NotEqual(t, -1, sourceIdx)
	require.Contains(t, group[sourceIdx].Value.String(), "annotatederror_test.go")
}

func TestWrap(t *testing.T) {
	sentinel := errors.NewSentinel("unknown suspect")
	require.NotErrorIs(t, errors.New("unknown suspect"), sentinel)

	wrapped := errors.Wrap(sentinel, "ask", slog.String("suspect", "Victor Haynes"))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "ask: unknown suspect", wrapped.Error())

	twice := errors.Wrap(wrapped, "handle question", slog.String("case_id", "abc"))
	require.ErrorIs(t, twice, sentinel)

	attr := errors.SlogError(twice)
	require.Equal(t, "error", attr.Key)
	group := attr.Value.Resolve().Group()
	require.Contains(t, group, slog.String("case_id", "abc"))
	require.Contains(t, group, slog.String("suspect", "Victor Haynes"))

	require.NoError(t, errors.Wrap(nil, "nothing to wrap"))
}

func TestSlogError_PlainError(t *testing.T) {
	attr := errors.SlogError(errors.NewSentinel("plain"))
	require.Equal(t, "error", attr.Key)
	require.Equal(t, "plain", attr.Value.String())
}
