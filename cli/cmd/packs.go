package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/licenselab/packscan/cli/client"
	"github.com/licenselab/packscan/cli/render"
)

// PackItem is one uploaded pack in the packs command output.
type PackItem struct {
	Name string `json:"name"`
}

// PacksCommand returns the packs command, listing uploads waiting on the
// remote drop location.
func PacksCommand() *cli.Command {
	return &cli.Command{
		Name:   "packs",
		Usage:  "List uploaded packs waiting for extraction",
		Flags:  ReadOnlyFlags(),
		Action: packsAction,
	}
}

func packsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for packs", 1)
	}

	names, err := client.New(c.String("server")).Packs(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	items := make([]PackItem, 0, len(names))
	for _, name := range names {
		items = append(items, PackItem{Name: name})
	}
	return r.Render(items)
}
