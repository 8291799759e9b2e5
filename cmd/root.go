package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/bgbraido/confluence2md/lib"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Exit codes: bad arguments are distinct from runtime failures.
const (
	exitFailure = 1
	exitBadArgs = 2
)

var (
	siteURL  string
	user     string
	apiToken string
	verbose  bool
	ctx      = context.Background()

	rootCmd = &cobra.Command{
		Use:   "confluence2md",
		Short: "Confluence page to Markdown converter",
		Long:  `confluence2md fetches a single Confluence Cloud page over the REST API, downloads its attachments, rewrites references to the local copies, and converts the result to Markdown.`,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// The Run closures terminate via fail/badArgs themselves, so any error that
// surfaces here is a flag or usage error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitBadArgs)
	}
}

func init() {
	// Credentials come from flags, the environment, or a .env file, in
	// that order of preference.
	godotenv.Load()
	rootCmd.PersistentFlags().StringVar(&siteURL, "url", os.Getenv("CONFLUENCE_URL"), "Confluence site base URL (e.g. https://<site>.atlassian.net/wiki)")
	rootCmd.PersistentFlags().StringVar(&user, "user", os.Getenv("CONFLUENCE_USER"), "Atlassian account email")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("CONFLUENCE_API_TOKEN"), "Confluence API token")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// newSession validates the credentials, probes them against the site, and
// returns a ready session. Validation failures exit before any network call.
func newSession() (*lib.Session, error) {
	logger := logrus.New()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	session, err := lib.NewSession(siteURL, user, apiToken, lib.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := session.Probe(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// fail prints the error and terminates with the runtime failure status.
func fail(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(exitFailure)
}

// badArgs prints the message and terminates with the bad-arguments status.
func badArgs(msg string) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	os.Exit(exitBadArgs)
}
