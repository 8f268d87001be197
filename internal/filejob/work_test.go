package filejob

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ytget/jobmon/internal/model"
)

func writeTestFiles(t *testing.T, dir string, sizes map[string]int) []string {
	t.Helper()
	var paths []string
	for name, size := range sizes {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
		paths = append(paths, path)
	}
	return paths
}

// writeTree writes files given by slash separated paths relative to dir
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// runWork runs work for plan to completion on the calling goroutine
func runWork(t *testing.T, plan Plan, work WorkFunc) (*Job, error) {
	t.Helper()
	job := NewJob("job-test", plan)
	job.Start()
	err := work(context.Background(), job)
	job.RecomputeProgress(false)
	return job, err
}

func TestSimulatedPlan(t *testing.T) {
	plan := SimulatedPlan("demo", model.JobKindCopy, 3, 1000)

	assert.Equal(t, "demo", plan.Name)
	assert.Len(t, plan.Files, 3)
	assert.Equal(t, int64(3000), plan.TotalBytes)
	assert.Equal(t, "/simulated/demo/file-001.bin", plan.Files[0])
}

func TestSimulate(t *testing.T) {
	plan := SimulatedPlan("demo", model.JobKindCopy, 4, 1000)

	job, err := runWork(t, plan, Simulate(300, nil))
	require.NoError(t, err)

	p := job.Progress()
	assert.Equal(t, int64(4000), p.BytesDone)
	assert.Equal(t, 4, p.FilesDone)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, plan.Files[3], p.CurrentFile)
}

func TestSimulateWithLimiter(t *testing.T) {
	plan := SimulatedPlan("demo", model.JobKindCopy, 1, 4096)
	limiter := rate.NewLimiter(rate.Inf, 1024)

	job, err := runWork(t, plan, Simulate(1024, limiter))
	require.NoError(t, err)
	assert.Equal(t, int64(4096), job.Progress().BytesDone)
}

func TestSimulateStopsOnCancel(t *testing.T) {
	plan := SimulatedPlan("demo", model.JobKindCopy, 2, 1<<20)
	// 1 KiB per second never finishes a megabyte in time
	limiter := rate.NewLimiter(rate.Limit(1024), 1024)

	job := NewJob("job-test", plan)
	job.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := Simulate(1024, limiter)(ctx, job)
	assert.Error(t, err)
	job.RecomputeProgress(false)
	assert.Less(t, job.Progress().BytesDone, plan.TotalBytes)
}

func TestNewPlan(t *testing.T) {
	src := t.TempDir()
	writeTestFiles(t, src, map[string]int{"a.txt": 100, "b.txt": 50})

	plan, err := NewPlan("backup", model.JobKindCopy, []string{src})
	require.NoError(t, err)

	assert.Equal(t, "backup", plan.Name)
	assert.Len(t, plan.Files, 2)
	assert.Equal(t, int64(150), plan.TotalBytes)
}

func TestNewPlanWithoutFiles(t *testing.T) {
	_, err := NewPlan("backup", model.JobKindCopy, nil)
	assert.Error(t, err)
}

func TestNewPlanEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	plan, err := NewPlan("cleanup", model.JobKindDelete, []string{dir})
	require.NoError(t, err)

	assert.Empty(t, plan.Files)
	assert.Equal(t, []PlanDir{{Path: dir, Target: "."}}, plan.Dirs)
}

func TestNewPlanTargets(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a", "x/f.txt": "x"})

	plan, err := NewPlan("backup", model.JobKindCopy, []string{src})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(src, "a.txt"), filepath.Join(src, "x", "f.txt")}, plan.Files)
	assert.Equal(t, []string{"a.txt", filepath.Join("x", "f.txt")}, plan.Targets)
	assert.Equal(t, []PlanDir{
		{Path: filepath.Join(src, "x"), Target: "x"},
		{Path: src, Target: "."},
	}, plan.Dirs)
}

func TestNewPlanRejectsCollidingTargets(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a/f.txt": "a", "b/f.txt": "b"})
	paths := []string{filepath.Join(root, "a", "f.txt"), filepath.Join(root, "b", "f.txt")}

	_, err := NewPlan("backup", model.JobKindCopy, paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "f.txt")

	// Deleting has no destination to collide on
	plan, err := NewPlan("cleanup", model.JobKindDelete, paths)
	require.NoError(t, err)
	assert.Len(t, plan.Files, 2)
}

func TestFileOpsCopy(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeTestFiles(t, src, map[string]int{"a.txt": DefaultChunkSize + 10, "b.txt": 5})

	plan, err := NewPlan("backup", model.JobKindCopy, []string{src})
	require.NoError(t, err)

	job, err := runWork(t, plan, FileOps(dst))
	require.NoError(t, err)

	for _, name := range []string{"a.txt", "b.txt"} {
		assert.FileExists(t, filepath.Join(dst, name))
		assert.FileExists(t, filepath.Join(src, name), "copy must keep the source")
	}
	info, err := os.Stat(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultChunkSize+10), info.Size())

	p := job.Progress()
	assert.Equal(t, plan.TotalBytes, p.BytesDone)
	assert.Equal(t, 2, p.FilesDone)
}

func TestFileOpsMove(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeTestFiles(t, src, map[string]int{"a.txt": 10})

	plan, err := NewPlan("archive", model.JobKindMove, []string{src})
	require.NoError(t, err)

	job, err := runWork(t, plan, FileOps(dst))
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dst, "a.txt"))
	assert.NoFileExists(t, filepath.Join(src, "a.txt"))
	assert.Equal(t, int64(10), job.Progress().BytesDone)
}

func TestFileOpsDelete(t *testing.T) {
	src := t.TempDir()
	writeTestFiles(t, src, map[string]int{"a.txt": 10, "b.txt": 20})

	plan, err := NewPlan("cleanup", model.JobKindDelete, []string{src})
	require.NoError(t, err)

	job, err := runWork(t, plan, FileOps(""))
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(src, "a.txt"))
	assert.NoFileExists(t, filepath.Join(src, "b.txt"))
	assert.Equal(t, 100, job.Progress().Percent)
}

func TestFileOpsMissingSource(t *testing.T) {
	plan := Plan{
		Name:  "backup",
		Kind:  model.JobKindCopy,
		Files: []string{filepath.Join(t.TempDir(), "gone.txt")},
	}

	_, err := runWork(t, plan, FileOps(t.TempDir()))
	assert.Error(t, err)
}

func TestFileOpsCancelled(t *testing.T) {
	src := t.TempDir()
	writeTestFiles(t, src, map[string]int{"a.txt": 10})
	plan, err := NewPlan("backup", model.JobKindCopy, []string{src})
	require.NoError(t, err)

	job := NewJob("job-test", plan)
	job.Start()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dst := t.TempDir()
	err = FileOps(dst)(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dst, "a.txt"))
}

func TestFileOpsCopyOntoItself(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "precious data"})

	plan, err := NewPlan("backup", model.JobKindCopy, []string{filepath.Join(dir, "a.txt")})
	require.NoError(t, err)

	_, err = runWork(t, plan, FileOps(dir))
	assert.ErrorIs(t, err, ErrSameFile)
	assert.Equal(t, "precious data", readFile(t, filepath.Join(dir, "a.txt")))
}

func TestFileOpsMoveOntoItself(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "precious data"})

	plan, err := NewPlan("archive", model.JobKindMove, []string{filepath.Join(dir, "a.txt")})
	require.NoError(t, err)

	_, err = runWork(t, plan, FileOps(dir))
	assert.ErrorIs(t, err, ErrSameFile)
	assert.Equal(t, "precious data", readFile(t, filepath.Join(dir, "a.txt")))
}

func TestFileOpsCopyKeepsTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	writeTree(t, src, map[string]string{"x/f.txt": "from x", "y/f.txt": "from y", "y/z/empty/.keep": ""})

	plan, err := NewPlan("backup", model.JobKindCopy, []string{src})
	require.NoError(t, err)

	_, err = runWork(t, plan, FileOps(dst))
	require.NoError(t, err)

	assert.Equal(t, "from x", readFile(t, filepath.Join(dst, "x", "f.txt")))
	assert.Equal(t, "from y", readFile(t, filepath.Join(dst, "y", "f.txt")))
	assert.FileExists(t, filepath.Join(dst, "y", "z", "empty", ".keep"))
	assert.Equal(t, "from x", readFile(t, filepath.Join(src, "x", "f.txt")), "copy must keep the source")
}

func TestFileOpsMoveKeepsTree(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"x/f.txt": "from x", "y/f.txt": "from y"})

	plan, err := NewPlan("archive", model.JobKindMove, []string{src})
	require.NoError(t, err)

	job, err := runWork(t, plan, FileOps(dst))
	require.NoError(t, err)

	assert.Equal(t, "from x", readFile(t, filepath.Join(dst, "x", "f.txt")))
	assert.Equal(t, "from y", readFile(t, filepath.Join(dst, "y", "f.txt")))
	assert.NoDirExists(t, src, "move must remove the emptied source tree")
	assert.Equal(t, 2, job.Progress().FilesDone)
}

func TestFileOpsRefusesOverwrite(t *testing.T) {
	for _, kind := range []model.JobKind{model.JobKindCopy, model.JobKindMove} {
		t.Run(kind.String(), func(t *testing.T) {
			src := t.TempDir()
			dst := t.TempDir()
			writeTree(t, src, map[string]string{"a.txt": "new"})
			writeTree(t, dst, map[string]string{"a.txt": "old"})

			plan, err := NewPlan("backup", kind, []string{filepath.Join(src, "a.txt")})
			require.NoError(t, err)

			_, err = runWork(t, plan, FileOps(dst))
			assert.ErrorIs(t, err, ErrTargetExists)
			assert.Equal(t, "old", readFile(t, filepath.Join(dst, "a.txt")))
			assert.Equal(t, "new", readFile(t, filepath.Join(src, "a.txt")))
		})
	}
}

func TestFileOpsMoveIntoOwnSubdirectory(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a"})

	plan, err := NewPlan("archive", model.JobKindMove, []string{src})
	require.NoError(t, err)

	_, err = runWork(t, plan, FileOps(filepath.Join(src, "inner")))
	require.Error(t, err)
	assert.Equal(t, "a", readFile(t, filepath.Join(src, "a.txt")))
	assert.NoDirExists(t, filepath.Join(src, "inner"))
}

func TestFileOpsDeleteDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	writeTree(t, root, map[string]string{"a.txt": "a", "x/y/b.txt": "b"})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	plan, err := NewPlan("cleanup", model.JobKindDelete, []string{root})
	require.NoError(t, err)

	_, err = runWork(t, plan, FileOps(""))
	require.NoError(t, err)
	assert.NoDirExists(t, root)
}

func TestFileOpsDeleteKeepsUnscannedEntries(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a"})

	plan, err := NewPlan("cleanup", model.JobKindDelete, []string{root})
	require.NoError(t, err)

	// A file appearing after the scan keeps its directory alive
	writeTree(t, root, map[string]string{"late.txt": "late"})

	_, err = runWork(t, plan, FileOps(""))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(root, "a.txt"))
	assert.FileExists(t, filepath.Join(root, "late.txt"))
}
