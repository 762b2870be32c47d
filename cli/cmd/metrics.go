package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/licenselab/packscan/cli/client"
	"github.com/licenselab/packscan/cli/render"
)

// MetricsCommand returns the metrics command.
func MetricsCommand() *cli.Command {
	return &cli.Command{
		Name:   "metrics",
		Usage:  "Show service counters",
		Flags:  ReadOnlyFlags(),
		Action: metricsAction,
	}
}

func metricsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	snap, err := client.New(c.String("server")).Metrics(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI("metrics", snap)
	}
	return r.Render(snap)
}
