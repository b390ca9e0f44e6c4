package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domino14/connectfour/bench"
	"github.com/domino14/connectfour/fixture"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func runInline(t *testing.T, data string, depth int) *bench.Report {
	t.Helper()
	suite, err := fixture.Parse(strings.NewReader(data), "inline", 0)
	require.NoError(t, err)
	report, err := bench.Run(context.Background(), suite, bench.Options{Depth: depth, Threads: 2})
	require.NoError(t, err)
	return report
}

func TestSaveAndListRuns(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "results.db"))
	require.NoError(t, err)
	defer s.Close()

	first := runInline(t, "334323 18\n22334 -18\n", 3)
	id1, err := s.SaveRun(ctx, first)
	require.NoError(t, err)
	second := runInline(t, "334323 18\n4433 18\n", 2)
	id2, err := s.SaveRun(ctx, second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, id2, runs[0].ID)
	assert.Equal(t, 2, runs[0].Depth)
	assert.Equal(t, 1, runs[0].Passed)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, 2, runs[0].Rows)
	assert.Equal(t, second.Fingerprint, runs[0].Fingerprint)
	assert.Equal(t, first.Fingerprint, runs[1].Fingerprint)
	assert.InDelta(t, first.MeanNodes(), runs[1].MeanNodes, 1e-9)
	assert.WithinDuration(t, first.StartedAt, runs[1].StartedAt, 0)

	runs, err = s.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id2, runs[0].ID)

	n, err := s.ResultCount(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunsForFingerprint(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer s.Close()

	a := runInline(t, "334323 18\n", 1)
	b := runInline(t, "334323 18\n", 3)
	c := runInline(t, "22334 -18\n", 3)
	for _, r := range []*bench.Report{a, b, c} {
		_, err := s.SaveRun(ctx, r)
		require.NoError(t, err)
	}
	runs, err := s.RunsFor(ctx, a.Fingerprint)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 3, runs[0].Depth)
	assert.Equal(t, 1, runs[1].Depth)
}

func TestReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, runInline(t, "5443354556 16\n", 1))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
