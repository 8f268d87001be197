package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ytget/jobmon/internal/filejob"
	"github.com/ytget/jobmon/internal/model"
)

var simulatedKinds = []model.JobKind{model.JobKindCopy, model.JobKindMove, model.JobKindDelete}

type simulateOptions struct {
	jobs        int
	files       int
	fileSize    string
	rate        string
	maxParallel int
	metricsAddr string
}

func newSimulateCommand(global *globalOptions) *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:     "simulate",
		Short:   "Run synthetic file jobs through the monitor",
		GroupID: "jobs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.jobs < 1 || opts.files < 1 {
				return fmt.Errorf("--jobs and --files must be at least 1")
			}
			fileSize, err := humanize.ParseBytes(opts.fileSize)
			if err != nil {
				return fmt.Errorf("invalid --file-size %q: %w", opts.fileSize, err)
			}
			limiter, err := newByteLimiter(opts.rate)
			if err != nil {
				return err
			}

			s, err := startSession(global.file, global.logger, opts.maxParallel, opts.metricsAddr)
			if err != nil {
				return err
			}
			defer s.close()

			work := filejob.Simulate(filejob.DefaultChunkSize, limiter)
			for i := 0; i < opts.jobs; i++ {
				kind := simulatedKinds[i%len(simulatedKinds)]
				plan := filejob.SimulatedPlan(fmt.Sprintf("sim-%d", i+1), kind, opts.files, int64(fileSize))
				if err := s.submit(plan, work); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := s.wait(ctx); err != nil {
				return err
			}
			return s.summary()
		},
	}

	cmd.Flags().IntVar(&opts.jobs, "jobs", 3, "Number of jobs to run")
	cmd.Flags().IntVar(&opts.files, "files", 10, "Files per job")
	cmd.Flags().StringVar(&opts.fileSize, "file-size", "4MiB", "Size of each simulated file")
	cmd.Flags().StringVar(&opts.rate, "rate", "8MiB", "Total byte rate shared by all jobs per second, 0 for unlimited")
	cmd.Flags().IntVar(&opts.maxParallel, "max-parallel", 0, "Jobs running at once (default from config)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

// newByteLimiter parses a humanized bytes-per-second rate. Zero disables limiting.
func newByteLimiter(value string) (*rate.Limiter, error) {
	bytesPerSec, err := humanize.ParseBytes(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --rate %q: %w", value, err)
	}
	if bytesPerSec == 0 {
		return nil, nil
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), filejob.DefaultChunkSize), nil
}
