// Command orienta is the terminal client of the Orienta portal: sign-in,
// the aptitude questionnaire, results, and the admin screens.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/orienta/orienta/internal/client"
	"github.com/orienta/orienta/internal/config"
	"github.com/orienta/orienta/internal/httpclient"
	"github.com/orienta/orienta/internal/logging"
	"github.com/orienta/orienta/internal/query"
	"github.com/orienta/orienta/internal/session"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd(os.Stdin, nil).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describeError(err))
		os.Exit(1)
	}
}

// cli holds what every subcommand shares once the root pre-run has built it.
type cli struct {
	cfgPath     string
	apiURL      string
	sessionFile string
	verbose     bool
	jsonOut     bool
	timeout     time.Duration

	in      *bufio.Reader
	logger  *zap.Logger
	portal  *client.Portal
	storage session.Storage
}

// newRootCmd builds the command tree. A nil storage keeps the session in
// the configured file.
func newRootCmd(in io.Reader, storage session.Storage) *cobra.Command {
	c := &cli{in: bufio.NewReader(in), storage: storage}
	root := &cobra.Command{
		Use:           "orienta",
		Short:         "Orienta vocational-orientation portal client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "config file (default $ORIENTA_CONFIG)")
	pf.StringVar(&c.apiURL, "api", "", "server base URL (default from config)")
	pf.StringVar(&c.sessionFile, "session-file", "", "where the signed-in session is kept")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&c.jsonOut, "json", false, "print raw JSON")
	pf.DurationVar(&c.timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(
		c.signupCmd(), c.loginCmd(), c.googleCmd(), c.logoutCmd(), c.whoamiCmd(),
		c.passwordCmd(), c.deactivateCmd(),
		c.questionsCmd(), c.quizCmd(), c.recommendationsCmd(), c.aptitudesCmd(), c.lastCareerCmd(), c.dashboardCmd(),
		c.catalogCmd(), c.backupCmd(), c.statsCmd(),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	if c.apiURL == "" {
		c.apiURL = cfg.Client.BaseURL
	}
	if c.sessionFile == "" {
		c.sessionFile = cfg.Client.SessionFile
	}
	if c.logger, err = logging.NewCLI(c.verbose || cfg.Log.Verbose); err != nil {
		return err
	}
	hc, err := httpclient.New(c.apiURL, httpclient.WithLogger(c.logger))
	if err != nil {
		return err
	}
	if c.storage == nil {
		c.storage = session.NewFileStorage(c.sessionFile)
	}
	holder := session.New(c.storage, c.logger)
	c.portal = client.NewPortal(hc, holder, query.New(query.WithRules(query.DefaultRules())))
	return nil
}

func (c *cli) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

// print writes v as JSON with --json, otherwise calls human.
func (c *cli) print(cmd *cobra.Command, v any, human func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(out)
	return nil
}

// readLine prompts on stdout and reads one trimmed line from the input.
func (c *cli) readLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// secret returns flag when set, otherwise prompts for it.
func (c *cli) secret(cmd *cobra.Command, flag, prompt string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return c.readLine(cmd, prompt)
}

func describeError(err error) string {
	var apiErr *httpclient.APIError
	switch {
	case errors.Is(err, client.ErrNotSignedIn):
		return "not signed in; run `orienta login` first"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return fmt.Sprintf("%s (HTTP %d)", apiErr.Message, apiErr.Status)
	default:
		return err.Error()
	}
}
