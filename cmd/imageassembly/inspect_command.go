package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imageassembly/internal/fileutil"
	"imageassembly/internal/ometiff"
)

type inspectJSON struct {
	Path            string `json:"path"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	PixelType       string `json:"pixel_type"`
	Samples         int    `json:"samples"`
	BigEndian       bool   `json:"big_endian"`
	TileWidth       int    `json:"tile_width"`
	TileHeight      int    `json:"tile_height"`
	Tiles           int    `json:"tiles"`
	Compression     string `json:"compression"`
	BigTIFF         bool   `json:"bigtiff"`
	CompressedBytes uint64 `json:"compressed_bytes"`
	FileBytes       int64  `json:"file_bytes"`
	Name            string `json:"name,omitempty"`
	UUID            string `json:"uuid,omitempty"`
}

func newInspectCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "inspect <file>",
		Short:       "Summarize an assembled OME-TIFF",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := ometiff.Probe(args[0])
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			size, err := fileutil.FileSize(args[0])
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			summary := inspectJSON{
				Path:            args[0],
				Width:           info.Width,
				Height:          info.Height,
				PixelType:       info.Format.Type.String(),
				Samples:         info.Format.Samples,
				BigEndian:       info.Format.BigEndian,
				TileWidth:       info.TileWidth,
				TileHeight:      info.TileHeight,
				Tiles:           info.TileCount,
				Compression:     info.Compression.String(),
				BigTIFF:         info.BigTIFF,
				CompressedBytes: info.CompressedBytes,
				FileBytes:       size,
			}
			if info.OME != nil {
				summary.Name = info.OME.Name
				summary.UUID = info.OME.UUID
			}
			if jsonOutput {
				return writeJSON(cmd, summary)
			}

			byteOrder := "little-endian"
			if summary.BigEndian {
				byteOrder = "big-endian"
			}
			rows := [][]string{
				{"Geometry", numberPrinter.Sprintf("%d x %d", summary.Width, summary.Height)},
				{"Pixel type", fmt.Sprintf("%s x %d (%s)", summary.PixelType, summary.Samples, byteOrder)},
				{"Tiles", numberPrinter.Sprintf("%d of %d x %d", summary.Tiles, summary.TileWidth, summary.TileHeight)},
				{"Compression", summary.Compression},
				{"BigTIFF", yesNo(summary.BigTIFF)},
				{"Tile data", humanize.IBytes(summary.CompressedBytes)},
				{"File size", humanize.IBytes(uint64(summary.FileBytes))},
			}
			if summary.Name != "" {
				rows = append(rows, []string{"OME name", summary.Name}, []string{"OME UUID", summary.UUID})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the summary as JSON")
	return cmd
}
