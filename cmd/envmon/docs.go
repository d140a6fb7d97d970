package main

import (
	"github.com/spf13/cobra"

	"envmon/internal/docgen"
	"envmon/internal/workflow"
	"envmon/pkg/domain"
)

func (a *app) docsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "docs", Short: "Generate Word documents (plan, quote, report)"}

	var output string
	generate := &cobra.Command{
		Use:   "generate <project-id> <plan|quote|report>",
		Short: "Generate a document, store it and write it to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docType := domain.DocType(args[1])
			notify(cmd, workflow.Pending(docType))
			doc, notice, err := workflow.NewDocuments(a.docs).Download(cmd.Context(), args[0], docType)
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return writeFile(cmd, outputPath(output, doc.Name), doc.Data)
		},
	}
	generate.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: generated name)")

	preview := &cobra.Command{
		Use:   "preview <project-id> <plan|quote|report>",
		Short: "Render a document without storing it and show its metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, notice, err := workflow.NewDocuments(a.docs).Preview(cmd.Context(), args[0], domain.DocType(args[1]))
			if err != nil {
				return err
			}
			notify(cmd, notice)
			return printJSON(cmd, previewOf(doc))
		},
	}

	cmd.AddCommand(generate, preview)
	return cmd
}

type docPreview struct {
	Title     string         `json:"title"`
	Name      string         `json:"name"`
	ProjectID string         `json:"projectId"`
	DocType   domain.DocType `json:"docType"`
	Size      int            `json:"size"`
}

func previewOf(doc docgen.Document) docPreview {
	return docPreview{Title: doc.Title, Name: doc.Name, ProjectID: doc.ProjectID, DocType: doc.DocType, Size: len(doc.Data)}
}
