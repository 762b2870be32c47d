package cmd

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/licenselab/packscan/cli/client"
	"github.com/licenselab/packscan/cli/tui"
	"github.com/licenselab/packscan/types"
)

// WatchCommand returns the watch command, an interactive follow of one task.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Follow a task until it completes or fails",
		ArgsUsage: "<pack>",
		Flags:     []cli.Flag{ServerFlag},
		Action:    watchAction,
	}
}

func watchAction(c *cli.Context) error {
	pack := c.Args().First()
	if pack == "" {
		return cli.Exit("pack name is required", 1)
	}

	api := client.New(c.String("server"))
	err := tui.RunWatchTUI(func(ctx context.Context) (*types.TaskSnapshot, error) {
		return api.Task(ctx, pack)
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
