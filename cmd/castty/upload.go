package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// uploadCmd reports the install ID and API URL it would use to upload a
// recording. The upload transport itself isn't implemented, so the
// command is wired and testable without shipping a live network client.
func uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a recording (stub)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cfg.APIURL == "" {
				return fmt.Errorf("no api_url configured; set it in the config file before uploading")
			}
			return fmt.Errorf("upload: no upload transport wired into this build (would POST %s to %s as install %s)", args[0], cfg.APIURL, cfg.InstallID)
		},
	}
}
