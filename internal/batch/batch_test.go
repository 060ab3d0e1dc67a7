package batch

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/treevolume/internal/extract"
	"github.com/banshee-data/treevolume/internal/fsutil"
	"github.com/banshee-data/treevolume/internal/monitoring"
	"github.com/banshee-data/treevolume/internal/pointcloud"
	"github.com/banshee-data/treevolume/internal/testutil"
	"github.com/banshee-data/treevolume/internal/timeutil"
	"github.com/banshee-data/treevolume/internal/treevol"
)

const treeSuffix = "_raycloud_trees.txt"

func init() {
	monitoring.SetLogger(nil)
}

func TestListFiles(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	for _, name := range []string{"c_raycloud_trees.txt", "a_raycloud_trees.txt", "b.ply", "notes.txt", "sub/d_raycloud_trees.txt"} {
		require.NoError(t, fsys.WriteFile(filepath.Join("data", name), nil, 0644))
	}

	got, err := ListFiles(fsys, "data", treeSuffix)
	require.NoError(t, err)
	assert.Equal(t, []string{"data/a_raycloud_trees.txt", "data/c_raycloud_trees.txt"}, got)

	got, err = ListFiles(fsys, "data", "")
	require.NoError(t, err)
	assert.Len(t, got, 4, "subdirectories are not files")
}

func TestListFiles_MissingDir(t *testing.T) {
	_, err := ListFiles(fsutil.NewMemoryFileSystem(), "nope", treeSuffix)
	var pe *fs.PathError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestEstimateDir_MixedBatch(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	testutil.WriteTreeFile(t, fsys, "plots/a"+treeSuffix, testutil.StemTree())
	testutil.WriteTreeFile(t, fsys, "plots/b"+treeSuffix, "0,0,0,1,-1,0", testutil.CylinderTree(1, 3))
	testutil.WriteTreeFile(t, fsys, "plots/c"+treeSuffix, testutil.CylinderTree(0.5, 4))
	testutil.WriteTreeFile(t, fsys, "plots/d"+treeSuffix, testutil.StemTree(), "0,0,0,1,-1")

	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	clock.SetAutoStep(time.Millisecond)
	o := &Orchestrator{FS: fsys, Workers: 2, Clock: clock}

	run, err := o.EstimateDir(context.Background(), "plots", treeSuffix)
	require.NoError(t, err)
	require.Len(t, run.Results, 4)
	assert.NotEqual(t, [16]byte{}, [16]byte(run.ID))
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), run.StartedAt)
	assert.Positive(t, run.Duration)

	byName := map[string]FileResult{}
	for _, r := range run.Results {
		byName[r.Filename] = r
	}
	assert.InDelta(t, testutil.StemTreeVolume, byName["a"+treeSuffix].Volume, 1e-9)
	assert.InDelta(t, 3*math.Pi, byName["b"+treeSuffix].Volume, 1e-9)
	assert.InDelta(t, math.Pi, byName["c"+treeSuffix].Volume, 1e-9)
	assert.Equal(t, 3, byName["a"+treeSuffix].Stats.Segments)

	bad := byName["d"+treeSuffix]
	assert.False(t, bad.OK())
	var me *treevol.MalformedRecordError
	assert.ErrorAs(t, bad.Err, &me)

	s := run.Summary()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, testutil.StemTreeVolume+4*math.Pi, s.TotalVolume, 1e-9)
}

func TestEstimateDir_ResultsFollowListing(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	for i := 0; i < 40; i++ {
		name := filepath.Join("many", string(rune('a'+i%26))+string(rune('a'+i/26))+treeSuffix)
		testutil.WriteTreeFile(t, fsys, name, testutil.CylinderTree(1, float64(i)))
	}

	run, err := New(fsys, 8).EstimateDir(context.Background(), "many", treeSuffix)
	require.NoError(t, err)
	require.Len(t, run.Results, 40)

	names := make([]string, len(run.Results))
	for i, r := range run.Results {
		require.NoError(t, r.Err)
		names[i] = r.Path
	}
	assert.True(t, sort.StringsAreSorted(names))
}

func TestEstimateDir_Cancelled(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	testutil.WriteTreeFile(t, fsys, "plots/a"+treeSuffix, testutil.StemTree())
	testutil.WriteTreeFile(t, fsys, "plots/b"+treeSuffix, testutil.StemTree())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := New(fsys, 1).EstimateDir(ctx, "plots", treeSuffix)
	require.NoError(t, err)
	for _, r := range run.Results {
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.NotEmpty(t, r.Filename)
	}
	assert.Equal(t, 2, run.Summary().Failed)
}

func TestEstimateDir_MissingDir(t *testing.T) {
	run, err := New(fsutil.NewMemoryFileSystem(), 1).EstimateDir(context.Background(), "absent", treeSuffix)
	assert.Nil(t, run)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestConvertDir(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("raw/p1.txt", []byte("0 0 0\n1 1 1\n"), 0644))
	require.NoError(t, fsys.WriteFile("raw/p2.txt", []byte("nothing\n"), 0644))

	run, err := New(fsys, 2).ConvertDir(context.Background(), pointcloud.NewConverter(fsys, pointcloud.FormatPLY), "raw", "clouds", ".txt")
	require.NoError(t, err)
	require.Len(t, run.Results, 2)

	assert.NoError(t, run.Results[0].Err)
	assert.Equal(t, "clouds/p1.ply", run.Results[0].Output)
	assert.Equal(t, 2, run.Results[0].Points)
	assert.ErrorIs(t, run.Results[1].Err, pointcloud.ErrNoPoints)

	_, ok := fsys.Bytes("clouds/p1.ply")
	assert.True(t, ok)
}

func TestExtractDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"good.ply", "bad.ply", "slow.ply"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("ply\n"), 0644))
	}

	runner := &extract.Runner{
		Command: "sh",
		Args: []string{"-c", `case "$0" in
*bad.ply) exit 1 ;;
*slow.ply) exec sleep 5 ;;
esac
touch "${0%.ply}_raycloud_trees.txt"`},
		Timeout: 200 * time.Millisecond,
		Root:    dir,
	}

	run, err := New(fsutil.OSFileSystem{}, 3).ExtractDir(context.Background(), runner, dir, ".ply")
	require.NoError(t, err)
	require.Len(t, run.Results, 3)

	results := map[string]FileResult{}
	for _, r := range run.Results {
		results[r.Filename] = r
	}
	assert.NoError(t, results["good.ply"].Err)
	assert.FileExists(t, filepath.Join(dir, "good_raycloud_trees.txt"))

	var sfe *extract.SubprocessFailureError
	require.ErrorAs(t, results["bad.ply"].Err, &sfe)
	assert.Equal(t, 1, sfe.ExitCode)
	require.ErrorAs(t, results["slow.ply"].Err, &sfe)
	assert.True(t, sfe.TimedOut)

	assert.Equal(t, 2, run.Summary().Failed)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		results []FileResult
		want    Summary
	}{
		{"empty", nil, Summary{}},
		{"single", []FileResult{{Volume: 2}}, Summary{Total: 1, Succeeded: 1, TotalVolume: 2, MeanVolume: 2}},
		{
			"with failure",
			[]FileResult{{Volume: 1}, {Volume: 3}, {Err: errors.New("x")}},
			Summary{Total: 3, Succeeded: 2, Failed: 1, TotalVolume: 4, MeanVolume: 2, StdDevVolume: math.Sqrt2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.results)
			assert.Equal(t, tt.want.Total, got.Total)
			assert.Equal(t, tt.want.Succeeded, got.Succeeded)
			assert.Equal(t, tt.want.Failed, got.Failed)
			assert.InDelta(t, tt.want.TotalVolume, got.TotalVolume, 1e-12)
			assert.InDelta(t, tt.want.MeanVolume, got.MeanVolume, 1e-12)
			assert.InDelta(t, tt.want.StdDevVolume, got.StdDevVolume, 1e-12)
		})
	}
}
