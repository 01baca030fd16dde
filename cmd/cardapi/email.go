package main

import (
	"fmt"

	"github.com/deppfellow/cardapi/internal/lib/email"
	"github.com/spf13/cobra"
)

func emailPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "email-preview [template]",
		Short: "Render an email template with sample data",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templates := email.Templates
			if len(args) == 1 {
				templates = []email.Template{email.Template(args[0])}
			}

			for _, t := range templates {
				html, err := email.Preview(t)
				if err != nil {
					return fmt.Errorf("failed to render %s: %w", t, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), html)
			}
			return nil
		},
	}
}
