package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/licenselab/packscan/cli/client"
	"github.com/licenselab/packscan/cli/render"
)

// TaskCommand returns the task command with subcommands.
func TaskCommand() *cli.Command {
	return &cli.Command{
		Name:  "task",
		Usage: "Manage pack processing tasks",
		Subcommands: []*cli.Command{
			taskSubmitCommand(),
			taskShowCommand(),
			taskDeleteCommand(),
		},
	}
}

func taskSubmitCommand() *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "Start extraction for an uploaded pack",
		ArgsUsage: "<pack>",
		Flags: []cli.Flag{
			ServerFlag,
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "Username recorded on the task",
				Required: true,
			},
		},
		Action: taskSubmitAction,
	}
}

func taskSubmitAction(c *cli.Context) error {
	pack := c.Args().First()
	if pack == "" {
		return cli.Exit("pack name is required", 1)
	}

	token, err := client.New(c.String("server")).StartExtraction(c.Context, c.String("user"), pack)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintf(c.App.Writer, "submitted %s (token %s)\n", pack, token)
	return nil
}

func taskShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show the current state of a task",
		ArgsUsage: "<pack>",
		Flags:     ReadOnlyFlags(),
		Action:    taskShowAction,
	}
}

func taskShowAction(c *cli.Context) error {
	pack := c.Args().First()
	if pack == "" {
		return cli.Exit("pack name is required", 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	snap, err := client.New(c.String("server")).Task(c.Context, pack)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI("task", snap)
	}
	return r.Render(snap)
}

func taskDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Cancel and forget a task",
		ArgsUsage: "<pack>",
		Flags:     []cli.Flag{ServerFlag},
		Action:    taskDeleteAction,
	}
}

func taskDeleteAction(c *cli.Context) error {
	pack := c.Args().First()
	if pack == "" {
		return cli.Exit("pack name is required", 1)
	}

	if err := client.New(c.String("server")).DeleteTask(c.Context, pack); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintf(c.App.Writer, "deleted task for %s\n", pack)
	return nil
}
