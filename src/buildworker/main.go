package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/uuid"
	"github.com/spf13/cobra"
	"github.com/uber/incbuild/src/buildworker/app"
	"github.com/uber/incbuild/src/buildworker/entity"
	"go.uber.org/fx"
)

const (
	_version = "(to be added by Bazel)"

	_flagPreloadProject = "preload-project"
)

func newRootCommand(run func(args entity.LaunchArgs)) *cobra.Command {
	var preloadProject string
	cmd := &cobra.Command{
		Use:          "buildworker <controller-host> <controller-port> <session-id> <state-dir>",
		Short:        "Incremental build worker driven by a build controller",
		Version:      _version,
		Args:         cobra.ExactArgs(4),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			launch, err := parseLaunchArgs(args, preloadProject)
			if err != nil {
				return err
			}
			run(launch)
			return nil
		},
	}
	cmd.Flags().StringVar(&preloadProject, _flagPreloadProject, "", "project to open before the build request arrives")
	return cmd
}

func parseLaunchArgs(args []string, preloadProject string) (entity.LaunchArgs, error) {
	port, err := strconv.Atoi(args[1])
	if err != nil || port <= 0 || port > 65535 {
		return entity.LaunchArgs{}, fmt.Errorf("invalid controller port %q", args[1])
	}
	sessionID, err := uuid.FromString(args[2])
	if err != nil {
		return entity.LaunchArgs{}, fmt.Errorf("invalid session id %q: %w", args[2], err)
	}
	stateDir, err := filepath.Abs(args[3])
	if err != nil {
		return entity.LaunchArgs{}, fmt.Errorf("invalid state directory %q: %w", args[3], err)
	}
	if preloadProject != "" {
		if preloadProject, err = filepath.Abs(preloadProject); err != nil {
			return entity.LaunchArgs{}, fmt.Errorf("invalid project to preload: %w", err)
		}
	}

	return entity.LaunchArgs{
		Host:           args[0],
		Port:           port,
		SessionID:      sessionID,
		StateDir:       stateDir,
		PreloadProject: preloadProject,
	}, nil
}

func opts(args entity.LaunchArgs) fx.Option {
	return fx.Options(
		app.Module,
		fx.Supply(args),
	)
}

func main() {
	// Run exits the process itself: non-zero when start fails, with the requested code on shutdown.
	cmd := newRootCommand(func(args entity.LaunchArgs) {
		fx.New(opts(args)).Run()
	})
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
