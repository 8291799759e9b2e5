package cmd

import (
	"fmt"

	"github.com/bgbraido/confluence2md/lib"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// fetchCmd represents the fetch command
var (
	pageID    string
	pageTitle string
	spaceKey  string
	outDir    string
	usePandoc bool

	fetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a page and convert it to Markdown",
		Long:  `Fetch a Confluence page by id, or by title and space key, download its attachments, and write the converted Markdown document to the output directory.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := validateFetchArgs(pageID, pageTitle, spaceKey); err != nil {
				badArgs(err.Error())
			}

			session, err := newSession()
			if err != nil {
				fail(err)
			}

			exporter := &lib.Exporter{
				Session:  session,
				Renderer: lib.NewRenderer(usePandoc),
				OutDir:   outDir,
				Progress: verbose,
			}
			result, err := exporter.Export(ctx, lib.PageRef{ID: pageID, Title: pageTitle, Space: spaceKey})
			if err != nil {
				fail(err)
			}

			fmt.Printf("Saved: %s\n", result.MarkdownPath)
			if result.AttachmentsDir != "" {
				fmt.Printf("Attachments saved under: %s\n", result.AttachmentsDir)
			}
		},
	}
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&pageID, "page-id", "", "Confluence page ID")
	fetchCmd.Flags().StringVar(&pageTitle, "title", "", "Page title (requires --space)")
	fetchCmd.Flags().StringVar(&spaceKey, "space", "", "Space key (required when using --title)")
	fetchCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	fetchCmd.Flags().BoolVar(&usePandoc, "pandoc", false, "Use pandoc for HTML to Markdown conversion")
}

// validateFetchArgs rejects missing argument combinations before any network
// call is made.
func validateFetchArgs(pageID, title, space string) error {
	if pageID == "" && title == "" {
		return errors.New("provide --page-id, or --title with --space")
	}
	if title != "" && space == "" {
		return errors.New("--space is required when using --title")
	}
	return nil
}
