package cfg

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"grabarr/internal/cmd"
	"grabarr/internal/domain/errs"
	"grabarr/internal/domain/keys"
	"grabarr/internal/domain/logger"
	"grabarr/internal/models"
	"grabarr/internal/parsing"
)

// initDownloadCmd returns the command downloading links given as arguments or in a file.
func initDownloadCmd(ctx context.Context) (*cobra.Command, error) {
	c := &cobra.Command{
		Use:   "download [URL...]",
		Short: "Download links as MP3 audio or MP4 video",
		Long: "Queues every URL given (and every line of --file), then downloads them in order.\n" +
			"A failing link is reported and the rest of the batch continues.",
		RunE: func(c *cobra.Command, args []string) error {
			links, err := collectLinks(args, viper.GetString(keys.LinkFile))
			if err != nil {
				return err
			}
			mt, sel, err := selections()
			if err != nil {
				return err
			}
			return runDownload(ctx, c.ErrOrStderr(), c.OutOrStdout(), links, mt, sel)
		},
	}

	if err := cmd.InitProfileFlags(c); err != nil {
		return nil, err
	}
	if err := cmd.InitLinkFlags(c); err != nil {
		return nil, err
	}
	return c, nil
}

// collectLinks merges argument links with those read from linkFile.
func collectLinks(args []string, linkFile string) ([]string, error) {
	links := append([]string(nil), args...)
	if linkFile != "" {
		fromFile, err := parsing.ParseLinkFile(linkFile)
		if err != nil {
			return nil, err
		}
		links = append(links, fromFile...)
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: no links given, pass URLs or --%s", errs.ErrValidation, keys.LinkFile)
	}
	return links, nil
}

func runDownload(ctx context.Context, barOut, out io.Writer, links []string, mt models.MediaType, sel models.Selections) error {
	core, err := newCore(ctx)
	if err != nil {
		return err
	}
	defer core.Close()

	if core.Destination() == "" {
		return fmt.Errorf("%w: select a save location with --%s", errs.ErrNoDestination, keys.Destination)
	}

	for _, l := range links {
		core.EnqueueLink(l, "", "")
	}

	unsubscribe := core.Subscribe(newProgressObserver(barOut, len(links)))
	res, err := core.RunBatch(ctx, mt, sel)
	if ferr := core.Flush(ctx); ferr != nil {
		logger.Pl.D(1, "Could not flush progress output: %v", ferr)
	}
	unsubscribe()
	if err != nil {
		return err
	}

	printSummary(out, res)
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", res.Failed, res.Total)
	}
	return nil
}

// printSummary writes one line per item and the batch totals.
func printSummary(w io.Writer, res models.BatchResult) {
	fmt.Fprintln(w)
	for _, item := range res.Items {
		name := item.Title
		if name == "" {
			name = item.URL
		}
		switch item.State {
		case models.StateDone:
			fmt.Fprintf(w, "  ok      %s -> %s\n", name, item.OutputPath)
		default:
			fmt.Fprintf(w, "  failed  %s: %s\n", name, item.Error)
		}
	}
	fmt.Fprintf(w, "Completed: %d/%d\n", res.Completed, res.Total)
}

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrNoDestination):
		return 2
	case errors.Is(err, errs.ErrEnvironment):
		return 3
	default:
		return 1
	}
}

