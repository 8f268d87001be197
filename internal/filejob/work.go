package filejob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"github.com/ytget/jobmon/internal/model"
	"github.com/ytget/jobmon/internal/platform"
)

// DefaultChunkSize is the unit in which file data is moved and reported
const DefaultChunkSize = 256 * 1024

// NewPlan scans paths and builds a plan covering every regular file under
// them. Copy and move plans are refused when two files would land on the same
// destination.
func NewPlan(name string, kind model.JobKind, paths []string) (Plan, error) {
	scan, err := platform.ScanFiles(paths)
	if err != nil {
		return Plan{}, err
	}
	if len(scan.Files) == 0 && len(scan.Dirs) == 0 {
		return Plan{}, fmt.Errorf("no files found in %v", paths)
	}

	plan := Plan{Name: name, Kind: kind, TotalBytes: scan.TotalBytes}
	targets := make(map[string]string, len(scan.Files))
	for _, f := range scan.Files {
		if kind != model.JobKindDelete {
			if other, exists := targets[f.Rel]; exists {
				return Plan{}, fmt.Errorf("%s and %s would both be written to %s", other, f.Path, f.Rel)
			}
			targets[f.Rel] = f.Path
		}
		plan.Files = append(plan.Files, f.Path)
		plan.Targets = append(plan.Targets, f.Rel)
	}
	for _, d := range scan.Dirs {
		plan.Dirs = append(plan.Dirs, PlanDir{Path: d.Path, Target: d.Rel})
	}
	return plan, nil
}

// SimulatedPlan builds a plan of count synthetic files of fileSize bytes each
func SimulatedPlan(name string, kind model.JobKind, count int, fileSize int64) Plan {
	plan := Plan{Name: name, Kind: kind, TotalBytes: int64(count) * fileSize}
	for i := 0; i < count; i++ {
		plan.Files = append(plan.Files, fmt.Sprintf("/simulated/%s/file-%03d.bin", name, i+1))
	}
	return plan
}

// Simulate returns work that pretends to process the plan's files, moving
// chunk bytes at a time. A non nil limiter bounds the byte rate; its burst must
// be at least chunk.
func Simulate(chunk int64, limiter *rate.Limiter) WorkFunc {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return func(ctx context.Context, job *Job) error {
		plan := job.Plan()
		if len(plan.Files) == 0 {
			return nil
		}
		perFile := plan.TotalBytes / int64(len(plan.Files))

		for _, file := range plan.Files {
			if err := job.WaitIfPaused(ctx); err != nil {
				return err
			}
			job.SetCurrentFile(file)

			for left := perFile; left > 0; {
				n := min(left, chunk)
				if limiter != nil {
					if err := limiter.WaitN(ctx, int(n)); err != nil {
						return err
					}
				} else if err := ctx.Err(); err != nil {
					return err
				}
				job.AddBytes(n)
				left -= n

				if err := job.WaitIfPaused(ctx); err != nil {
					return err
				}
			}
			job.FileDone()
		}
		return nil
	}
}

var (
	// ErrSameFile is returned when a file would be copied or moved onto itself
	ErrSameFile = errors.New("source and destination are the same file")

	// ErrTargetExists is returned instead of overwriting a destination file
	ErrTargetExists = errors.New("destination already exists")
)

// FileOps returns work that performs the job's kind on its files. Copy and
// move recreate the source tree under dstDir and never overwrite existing
// files; move and delete then remove the emptied source directories.
func FileOps(dstDir string) WorkFunc {
	return func(ctx context.Context, job *Job) error {
		plan := job.Plan()

		if job.Kind() != model.JobKindDelete {
			if err := prepareDestination(dstDir, plan.Dirs); err != nil {
				return err
			}
		}

		buf := make([]byte, DefaultChunkSize)
		for i, src := range plan.Files {
			if err := job.WaitIfPaused(ctx); err != nil {
				return err
			}
			job.SetCurrentFile(src)

			var err error
			switch job.Kind() {
			case model.JobKindCopy:
				err = copyFile(ctx, job, src, destination(dstDir, plan, i), buf)
			case model.JobKindMove:
				err = moveFile(ctx, job, src, destination(dstDir, plan, i), buf)
			case model.JobKindDelete:
				err = deleteFile(job, src)
			default:
				err = fmt.Errorf("unsupported job kind: %q", job.Kind())
			}
			if err != nil {
				return err
			}
			job.FileDone()
		}

		if job.Kind() == model.JobKindCopy {
			return nil
		}
		return removeDirs(plan.Dirs)
	}
}

// prepareDestination creates dstDir and the source directory tree under it.
// A destination inside one of the source directories is refused.
func prepareDestination(dstDir string, dirs []PlanDir) error {
	dstAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path of %s: %w", dstDir, err)
	}
	for _, dir := range dirs {
		if dir.Target == "." && within(dstAbs, dir.Path) {
			return fmt.Errorf("destination %s is inside source %s", dstDir, dir.Path)
		}
	}

	if err := platform.EnsureDir(dstDir); err != nil {
		return fmt.Errorf("failed to create destination %s: %w", dstDir, err)
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		target := filepath.Join(dstDir, dirs[i].Target)
		if err := platform.EnsureDir(target); err != nil {
			return fmt.Errorf("failed to create %s: %w", target, err)
		}
	}
	return nil
}

// within reports whether path is dir or lies below it
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func destination(dstDir string, plan Plan, i int) string {
	if i < len(plan.Targets) && plan.Targets[i] != "" {
		return filepath.Join(dstDir, plan.Targets[i])
	}
	return filepath.Join(dstDir, filepath.Base(plan.Files[i]))
}

// checkTarget fails when dst already exists, naming the case where it is src itself
func checkTarget(src, dst string) error {
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("failed to get absolute path of %s: %w", src, err)
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("failed to get absolute path of %s: %w", dst, err)
	}
	if srcAbs == dstAbs {
		return fmt.Errorf("%w: %s", ErrSameFile, src)
	}

	dstInfo, err := os.Lstat(dstAbs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dst, err)
	}
	if srcInfo, err := os.Stat(srcAbs); err == nil && os.SameFile(srcInfo, dstInfo) {
		return fmt.Errorf("%w: %s", ErrSameFile, src)
	}
	return fmt.Errorf("%w: %s", ErrTargetExists, dst)
}

// copyFile copies src to dst chunk by chunk, reporting bytes as they are written
func copyFile(ctx context.Context, job *Job, src, dst string, buf []byte) error {
	if err := checkTarget(src, dst); err != nil {
		return err
	}
	if err := platform.EnsureDir(filepath.Dir(dst)); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrTargetExists, dst)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if err := copyChunks(ctx, job, out, in, buf); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

func copyChunks(ctx context.Context, job *Job, out io.Writer, in io.Reader, buf []byte) error {
	for {
		if err := job.WaitIfPaused(ctx); err != nil {
			return err
		}

		n, readErr := in.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
			job.AddBytes(int64(n))
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read failed: %w", readErr)
		}
	}
}

// moveFile renames src when possible and falls back to copy and delete
func moveFile(ctx context.Context, job *Job, src, dst string, buf []byte) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if err := checkTarget(src, dst); err != nil {
		return err
	}
	if err := platform.EnsureDir(filepath.Dir(dst)); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	if err := os.Rename(src, dst); err == nil {
		job.AddBytes(info.Size())
		return nil
	}

	if err := copyFile(ctx, job, src, dst, buf); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove %s after copy: %w", src, err)
	}
	return nil
}

func deleteFile(job *Job, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	job.AddBytes(info.Size())
	return nil
}

// removeDirs removes source directories left empty by a move or delete.
// Dirs are ordered deepest first, so children go before their parents.
func removeDirs(dirs []PlanDir) error {
	for _, dir := range dirs {
		if err := os.Remove(dir.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove directory %s: %w", dir.Path, err)
		}
	}
	return nil
}
