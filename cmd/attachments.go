package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// attachmentsCmd represents the attachments command
var (
	attachmentsPageID string

	attachmentsCmd = &cobra.Command{
		Use:   "attachments",
		Short: "List the attachments of a page",
		Long:  `List the attachments of a Confluence page without downloading anything.`,
		Run: func(cmd *cobra.Command, args []string) {
			session, err := newSession()
			if err != nil {
				fail(err)
			}
			attachments, err := session.ListAttachments(ctx, attachmentsPageID)
			if err != nil {
				fail(err)
			}
			if verbose {
				fmt.Printf("Found %d attachments.\n", len(attachments))
			}
			for _, att := range attachments {
				fmt.Printf("%s\t%s\t%s\n", att.ID, att.Title, att.Links.Download)
			}
		},
	}
)

func init() {
	rootCmd.AddCommand(attachmentsCmd)
	attachmentsCmd.Flags().StringVar(&attachmentsPageID, "page-id", "", "Confluence page ID")
	attachmentsCmd.MarkFlagRequired("page-id")
}
