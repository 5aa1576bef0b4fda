package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matshelf/matshelf/internal/logger"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the asset service",
		Long: `Log in with your account credentials. The session token is stored in the
configuration file; no password is persisted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted when omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")

	return cmd
}

func runLogin(cmd *cobra.Command, email, password string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Print("Password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	client := newClient(cfg)
	resp, err := client.Login(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cfg.SetToken(resp.Token)
	if err := cfg.SaveConfig(getConfigPath()); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	logger.Success("Logged in", logger.Fields{"user": resp.User.Name, "email": resp.User.Email})
	return nil
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out and discard the stored session",
		RunE:  runLogout,
	}

	return cmd
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Token() == "" {
		fmt.Println("Not logged in")
		return nil
	}

	client := newClient(cfg)
	if err := client.Logout(cmd.Context()); err != nil {
		// The local session is dropped regardless.
		logger.Warn("Server-side logout failed", logger.Fields{"error": err})
	}

	cfg.SetToken("")
	if err := cfg.SaveConfig(getConfigPath()); err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}

	logger.Success("Logged out")
	return nil
}
