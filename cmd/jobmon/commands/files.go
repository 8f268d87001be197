package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ytget/jobmon/internal/filejob"
	"github.com/ytget/jobmon/internal/model"
)

func newCopyCommand(global *globalOptions) *cobra.Command {
	return newFileCommand(global, model.JobKindCopy, "Copy files and directories into a destination directory")
}

func newMoveCommand(global *globalOptions) *cobra.Command {
	return newFileCommand(global, model.JobKindMove, "Move files and directories into a destination directory")
}

func newDeleteCommand(global *globalOptions) *cobra.Command {
	return newFileCommand(global, model.JobKindDelete, "Delete files and directories")
}

// newFileCommand builds a command running one job of kind over its arguments
func newFileCommand(global *globalOptions, kind model.JobKind, short string) *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:     kind.String() + " <path>...",
		Short:   short,
		GroupID: "jobs",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != model.JobKindDelete && dest == "" {
				return fmt.Errorf("--dest is required for %s", kind)
			}

			plan, err := filejob.NewPlan(planName(kind, args), kind, args)
			if err != nil {
				return err
			}

			s, err := startSession(global.file, global.logger, 1, "")
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.submit(plan, filejob.FileOps(dest)); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := s.wait(ctx); err != nil {
				return err
			}
			return s.summary()
		},
	}

	if kind != model.JobKindDelete {
		cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination directory")
	}

	return cmd
}

// planName describes the job by its first path
func planName(kind model.JobKind, paths []string) string {
	name := filepath.Base(paths[0])
	if len(paths) > 1 {
		name = fmt.Sprintf("%s (+%d)", name, len(paths)-1)
	}
	return fmt.Sprintf("%s %s", kind, name)
}
