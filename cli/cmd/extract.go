package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/licenselab/packscan/archive"
	"github.com/licenselab/packscan/cli/render"
	"github.com/licenselab/packscan/extract"
	"github.com/licenselab/packscan/iox"
	"github.com/licenselab/packscan/log"
	"github.com/licenselab/packscan/types"
)

// LibraryRow is one library in the extract command output.
type LibraryRow struct {
	File    string `json:"file"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Type    string `json:"type"`
	Vendor  string `json:"vendor,omitempty"`
	Status  string `json:"status"`
}

// ExtractCommand returns the extract command, a one-shot local extraction
// that never touches a server or a store.
func ExtractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract a pack archive locally and report its libraries",
		ArgsUsage: "<pack.zip>",
		Flags: []cli.Flag{
			FormatFlag,
			NoColorFlag,
			&cli.StringFlag{
				Name:  "vendor-name",
				Usage: "Vendor name for manifest classification",
			},
			&cli.StringFlag{
				Name:  "vendor-prefix",
				Usage: "Bundle name prefix owned by the vendor",
			},
			&cli.StringFlag{
				Name:  "vendor-token",
				Usage: "Substring of vendor-owned file names",
			},
			&cli.StringSliceFlag{
				Name:  "ext",
				Usage: "Archive extensions to scan (default .jar, .mar)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log per-archive progress to stderr",
			},
		},
		Action: extractAction,
	}
}

func extractAction(c *cli.Context) error {
	packPath := c.Args().First()
	if packPath == "" {
		return cli.Exit("pack archive path is required", 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	logger := log.NewPlainLogger().WithOutput(io.Discard)
	if c.Bool("verbose") {
		logger = log.NewPlainLogger().WithOutput(os.Stderr)
	}

	packName := filepath.Base(packPath)
	root, err := os.MkdirTemp("", "packscan-extract-*")
	if err != nil {
		return fmt.Errorf("create extraction workspace: %w", err)
	}
	defer iox.DiscardRemove(root)

	dest := filepath.Join(root, strings.TrimSuffix(packName, ".zip"))
	if err := archive.Unzip(packPath, dest); err != nil {
		return cli.Exit(fmt.Sprintf("unzip pack: %v", err), 1)
	}

	engine := &extract.Engine{
		Classifier: &archive.Classifier{
			VendorName:   c.String("vendor-name"),
			VendorPrefix: c.String("vendor-prefix"),
			VendorToken:  c.String("vendor-token"),
		},
		Extensions: c.StringSlice("ext"),
		Logger:     logger,
	}
	res, err := engine.Run(c.Context, dest)
	if err != nil {
		return cli.Exit(fmt.Sprintf("extract pack: %v", err), 1)
	}
	iox.DiscardRemove(res.ScratchDir)
	res.Details.Faulty = extract.RemoveDuplicates(res.Details, res.Details.Faulty)

	return r.Render(libraryRows(res.Details))
}

func libraryRows(details *types.PackDetails) []LibraryRow {
	rows := make([]LibraryRow, 0, len(details.Clean)+len(details.Faulty))
	add := func(slots []int, status string) {
		for _, slot := range slots {
			lib := details.At(slot)
			if lib == nil {
				continue
			}
			rows = append(rows, LibraryRow{
				File:    lib.FileName,
				Name:    lib.Name,
				Version: lib.Version,
				Type:    string(lib.Type),
				Vendor:  lib.Vendor,
				Status:  status,
			})
		}
	}
	add(details.Clean, "clean")
	add(details.Faulty, "faulty")
	return rows
}
