package accusation_test

import (
	"github.com/myrjola/whodunit/internal/accusation"
	"github.com/myrjola/whodunit/internal/casefile"
	"github.com/myrjola/whodunit/internal/models"
	"github.com/myrjola/whodunit/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestMatch(t *testing.T) {
	names := []string{"Brian Doyle", "Clara Morton", "Dr. Samuel Price", "Brianna Doyle"}
	tests := []struct {
		name    string
		accused string
		want    string
		wantErr error
	}{
		{name: "exact", accused: "Clara Morton", want: "Clara Morton", wantErr: nil},
		{name: "lower case", accused: "clara morton", want: "Clara Morton", wantErr: nil},
		{name: "upper case", accused: "CLARA MORTON", want: "Clara Morton", wantErr: nil},
		{name: "whitespace", accused: "  clara morton\n", want: "Clara Morton", wantErr: nil},
		{name: "exact wins over partial", accused: "brian doyle", want: "Brian Doyle", wantErr: nil},
		{name: "unique partial", accused: "price", want: "Dr. Samuel Price", wantErr: nil},
		{name: "ambiguous partial", accused: "doyle", want: "", wantErr: models.ErrUnknownSuspect},
		{name: "no match", accused: "butler", want: "", wantErr: models.ErrUnknownSuspect},
		{name: "empty", accused: "   ", want: "", wantErr: models.ErrUnknownSuspect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := accusation.Match(names, tt.accused)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	c := testhelpers.Case(t, "B")

	verdict, err := accusation.Resolve(c, "b")
	require.NoError(t, err)
	require.Equal(t, models.Verdict{
		Accused:    "B",
		Correct:    true,
		GuiltyName: "B",
		Catch:      "B's catch",
	}, verdict)

	verdict, err = accusation.Resolve(c, "A")
	require.NoError(t, err)
	require.Equal(t, models.Verdict{
		Accused:    "A",
		Correct:    false,
		GuiltyName: "B",
		Catch:      "B's catch",
	}, verdict)

	_, err = accusation.Resolve(c, "D")
	require.ErrorIs(t, err, models.ErrUnknownSuspect)
}

func TestResolve_CaseInsensitive(t *testing.T) {
	scenario, err := casefile.Load("blackwood")
	require.NoError(t, err)

	for _, guilty := range []string{"Marianne Blackwood", "Victor Haynes", "Caroline Finch"} {
		c, err := casefile.New(scenario, guilty)
		require.NoError(t, err)

		lower, err := accusation.Resolve(c, "victor haynes")
		require.NoError(t, err)
		upper, err := accusation.Resolve(c, "VICTOR HAYNES")
		require.NoError(t, err)
		require.Equal(t, lower, upper)

		verdict, err := accusation.Resolve(c, c.Guilty().Name)
		require.NoError(t, err)
		require.True(t, verdict.Correct)
		require.Equal(t, guilty, verdict.GuiltyName)
	}
}
