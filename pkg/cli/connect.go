package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ajoealex/data-bucket-ui/pkg/cliconfig"
	"github.com/ajoealex/data-bucket-ui/pkg/session"
)

var (
	connectURL       string
	connectUsername  string
	connectPassword  string
	connectCommunity bool
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a Data Bucket capture server",
	Long: `Connect performs the two-step handshake against a capture server (probe,
then authentication) and persists the session until 'databucket disconnect'.

Credentials are optional; servers running without authentication accept
anonymous sessions. Use --community to connect to the preconfigured
community server without any setup.`,
	Example: `  databucket connect --url http://localhost:8080
  databucket connect --url https://hooks.example.com --username dev --password s3cret
  databucket connect --community`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConnect()
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().StringVar(&connectURL, "url", "", "Capture server base URL (default: $DATABUCKET_URL)")
	connectCmd.Flags().StringVar(&connectUsername, "username", "", "Username (optional)")
	connectCmd.Flags().StringVar(&connectPassword, "password", "", "Password (optional)")
	connectCmd.Flags().BoolVar(&connectCommunity, "community", false, "Connect to the community server")
}

func runConnect() error {
	manager, err := openSessionManager()
	if err != nil {
		return err
	}

	if connectCommunity {
		conn, err := manager.ConnectCommunity(rootCmd.Context(), cliconfig.DefaultCommunityServerURL)
		if err != nil {
			return describeConnectError(err)
		}
		printConnected(conn)
		return nil
	}

	serverURL := connectURL
	if serverURL == "" {
		serverURL = cliconfig.ServerURLFromEnv()
	}
	if serverURL == "" {
		if err := promptConnectForm(&serverURL, &connectUsername, &connectPassword); err != nil {
			return err
		}
	}
	if err := validateServerURL(serverURL); err != nil {
		return err
	}

	conn, err := manager.Connect(rootCmd.Context(), serverURL, connectUsername, connectPassword)
	if err != nil {
		return describeConnectError(err)
	}
	printConnected(conn)
	return nil
}

func promptConnectForm(serverURL, username, password *string) error {
	*serverURL = "http://localhost:8080"
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Capture server URL").
				Placeholder("http://localhost:8080").
				Value(serverURL).
				Validate(validateServerURL),
			huh.NewInput().
				Title("Username (optional)").
				Value(username),
			huh.NewInput().
				Title("Password (optional)").
				EchoMode(huh.EchoModePassword).
				Value(password),
		),
	)
	return form.Run()
}

func validateServerURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid server URL %q (want http(s)://host[:port])", s)
	}
	return nil
}

// describeConnectError maps the session error taxonomy to distinguishable
// user-facing messages.
func describeConnectError(err error) error {
	var authErr *session.AuthError
	switch {
	case errors.Is(err, session.ErrServerUnreachable):
		return fmt.Errorf("cannot reach the capture server - check the URL and that the server is running (%v)", err)
	case errors.Is(err, session.ErrServerMisbehaving):
		return fmt.Errorf("the server did not respond like a Data Bucket API - check the URL (%v)", err)
	case errors.Is(err, session.ErrBlacklisted):
		return errors.New("this client has been blacklisted by the server; contact the server operator")
	case errors.As(err, &authErr):
		if authErr.FinalAttempt() {
			color.New(color.FgYellow, color.Bold).Fprintf(rootCmd.ErrOrStderr(),
				"Warning: only %d attempt(s) remaining before lockout\n", authErr.RemainingAttempts)
		}
		return fmt.Errorf("authentication failed: %s", authErr.Error())
	default:
		return err
	}
}

func printConnected(conn *session.Connection) {
	fmt.Printf("Connected to %s", conn.ServerURL)
	switch {
	case conn.CommunityServer:
		fmt.Print(" (community server)")
	case conn.Anonymous():
		fmt.Print(" (anonymous)")
	default:
		fmt.Printf(" as %s", conn.Username)
	}
	fmt.Println()
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Clear the persisted session",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openSessionManager()
		if err != nil {
			return err
		}
		if err := manager.Disconnect(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		fmt.Println("Disconnected")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := openSessionManager()
		if err != nil {
			return err
		}
		conn, ok := manager.Restore()
		if !ok {
			fmt.Println("Not connected")
			fmt.Println("\nRun 'databucket connect' to connect to a capture server")
			return nil
		}

		fmt.Printf("Server:    %s\n", conn.ServerURL)
		switch {
		case conn.CommunityServer:
			fmt.Println("Session:   community server (anonymous)")
		case conn.Anonymous():
			fmt.Println("Session:   anonymous")
		default:
			fmt.Printf("Session:   authenticated as %s\n", conn.Username)
		}
		if path, err := cliconfig.DefaultSessionPath(); err == nil {
			fmt.Printf("Persisted: %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(statusCmd)
}
