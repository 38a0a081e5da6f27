package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/blackmichael/blogdemo/internal/blogclient"
)

const searchPreviewLength = 60

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search post titles and bodies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.Join(args, " ")
			results, err := blogclient.NewClient(rootOpts.Server).Search(cmd.Context(), term, limit)
			if err != nil {
				return err
			}
			if results == nil {
				results = []blogclient.SearchResult{}
			}

			return newPrinter(rootOpts, cmd).result(results, func(w io.Writer) {
				if len(results) == 0 {
					fmt.Fprintln(w, "No results found!")
					return
				}
				for _, r := range results {
					fmt.Fprintf(w, "%s  %s\n    %s\n", r.ID, r.Title, preview(r.Body, searchPreviewLength))
				}
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	return cmd
}

// preview returns the first n characters of s on one line, with "..." when cut.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
