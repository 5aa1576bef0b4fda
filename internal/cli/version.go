package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for matshelf",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, check)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check the backend for a newer client version")

	return cmd
}

func runVersion(cmd *cobra.Command, check bool) error {
	fmt.Printf("matshelf version %s\n", Version)
	fmt.Printf("Build date: %s\n", BuildDate)
	fmt.Printf("Git commit: %s\n", GitCommit)

	if !check {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := newClient(cfg)

	info, err := client.CheckUpdate(cmd.Context(), Version)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}

	switch {
	case info.Required:
		fmt.Printf("Update REQUIRED: version %s is no longer supported, latest is %s\n", Version, info.LatestVersion)
	case info.UpdateAvailable:
		fmt.Printf("Update available: %s\n", info.LatestVersion)
	default:
		fmt.Println("You are up to date")
	}
	return nil
}
