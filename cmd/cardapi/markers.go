package main

import (
	"fmt"

	"github.com/deppfellow/cardapi/internal/config"
	"github.com/deppfellow/cardapi/internal/lib/marker"
	"github.com/deppfellow/cardapi/internal/lib/utils"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type markerReport struct {
	Dir       string          `json:"dir"`
	Running   []marker.Record `json:"running"`
	Corrupted []string        `json:"corrupted"`
}

func markersCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "markers",
		Short: "List running card making processes from the marker directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				cfg, err := config.LoadConfig()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				dir = cfg.Process.MarkerDir
			}

			records, corrupted, err := marker.NewStore(afero.NewOsFs(), dir).List()
			if err != nil {
				return err
			}

			return utils.PrintJSON(cmd.OutOrStdout(), markerReport{
				Dir:       dir,
				Running:   records,
				Corrupted: corrupted,
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "marker directory (defaults to process.marker_dir)")
	return cmd
}
