package cfg

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"grabarr/internal/domain/consts"
	"grabarr/internal/models"
	"grabarr/internal/parsing"
)

// initSearchCmd returns the command printing provider search results.
func initSearchCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY...",
		Short: fmt.Sprintf("Search for videos (up to %d results)", consts.SearchLimit),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			core, err := newCore(ctx)
			if err != nil {
				return err
			}
			defer core.Close()

			rs, _, err := core.Search(strings.Join(args, " ")).Wait(ctx)
			if err != nil {
				return err
			}
			if rs.Failed() {
				return rs.Err
			}
			printResults(c.OutOrStdout(), rs)
			return nil
		},
	}
}

// printResults writes the result set as an aligned table.
func printResults(w io.Writer, rs models.SearchResultSet) {
	if rs.NoResults || len(rs.Entries) == 0 {
		fmt.Fprintln(w, consts.StatusNoResults)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tCHANNEL\tLENGTH\tUPLOADED\tURL")
	for i, e := range rs.Entries {
		uploaded := ""
		if !e.UploadDate.IsZero() {
			uploaded = e.UploadDate.Format("2006-01-02")
		}
		length := ""
		if e.Duration > 0 {
			length = parsing.FormatDuration(e.Duration)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, e.Title, e.Channel, length, uploaded, e.URL)
	}
	_ = tw.Flush()
}
