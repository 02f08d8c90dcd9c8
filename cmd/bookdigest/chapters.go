package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgallion1/bookdigest/internal/book"
)

// loadFlags are the document loading flags shared by chapters and run.
type loadFlags struct {
	maxDepth         int
	skipNonEssential bool
	title            string
	author           string
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "deepest outline level split into chapters (default from config)")
	cmd.Flags().BoolVar(&f.skipNonEssential, "skip-non-essential", false, "drop front and back matter such as copyright pages")
	cmd.Flags().StringVar(&f.title, "title", "", "override the book title")
	cmd.Flags().StringVar(&f.author, "author", "", "override the book author")
}

func (f *loadFlags) load(cmd *cobra.Command, a *app, path string) (*book.Document, error) {
	opts := book.LoadOptions{
		MaxDepth:         a.cfg.MaxDepth,
		SkipNonEssential: a.cfg.SkipNonEssential,
		Title:            f.title,
		Author:           f.author,
	}
	if f.maxDepth > 0 {
		opts.MaxDepth = f.maxDepth
	}
	if cmd.Flags().Changed("skip-non-essential") {
		opts.SkipNonEssential = f.skipNonEssential
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return book.Load(file, path, opts)
}

func chaptersCmd(a *app) *cobra.Command {
	var lf loadFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "chapters <file>",
		Short: "List the chapters of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := lf.load(cmd, a, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"doc_id":   doc.ID,
					"metadata": doc.Metadata,
					"chapters": doc.Outline(),
				})
			}

			fmt.Fprintf(out, "%s (doc %s)\n\n", doc.Metadata.Title, doc.ID)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tTOKENS")
			for _, ch := range doc.Chapters {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", ch.ID, ch.Title, ch.Tokens)
			}
			return tw.Flush()
		},
	}
	lf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outline as JSON")
	return cmd
}
