package scout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunParametersNormalize(t *testing.T) {
	t.Parallel()

	t.Run("fills location default", func(t *testing.T) {
		t.Parallel()
		p := RunParameters{Query: "coffee", MaxResults: 10}.Normalize()
		require.Equal(t, DefaultLocation, p.Location)
	})

	t.Run("explicit zero max is preserved", func(t *testing.T) {
		t.Parallel()
		p := RunParameters{Query: "coffee", MaxResults: 0}.Normalize()
		require.Zero(t, p.MaxResults)
		require.Zero(t, p.DetailedResults)
	})

	t.Run("negative max clamps to zero", func(t *testing.T) {
		t.Parallel()
		p := RunParameters{Query: "coffee", MaxResults: -3}.Normalize()
		require.Zero(t, p.MaxResults)
	})

	t.Run("max clamps to ceiling", func(t *testing.T) {
		t.Parallel()
		p := RunParameters{Query: "coffee", MaxResults: 500}.Normalize()
		require.Equal(t, MaxResultsCeiling, p.MaxResults)
	})

	t.Run("detailed defaults to max and never exceeds it", func(t *testing.T) {
		t.Parallel()
		p := RunParameters{Query: "coffee", MaxResults: 10}.Normalize()
		require.Equal(t, 10, p.DetailedResults)

		p = RunParameters{Query: "coffee", MaxResults: 10, DetailedResults: 50}.Normalize()
		require.Equal(t, 10, p.DetailedResults)

		p = RunParameters{Query: "coffee", MaxResults: 10, DetailedResults: 3}.Normalize()
		require.Equal(t, 3, p.DetailedResults)
	})
}

func TestSearchString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "coffee Springfield", RunParameters{Query: "coffee", Location: "Springfield"}.SearchString())
	require.Equal(t, "coffee", RunParameters{Query: "coffee"}.SearchString())
}
