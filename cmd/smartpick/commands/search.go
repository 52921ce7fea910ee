package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/use-agent/smartpick/models"
	"github.com/use-agent/smartpick/pipeline"
	"github.com/use-agent/smartpick/render"
	"github.com/use-agent/smartpick/webhook"
)

var errNoConnectivity = errors.New("no connectivity: every request of the run failed")

type searchOptions struct {
	minPrice        float64
	maxPrice        float64
	category        string
	query           string
	pages           int
	limit           int
	mode            string
	format          string
	includeUnpriced bool
	webhook         string
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search [--min <price>] [--max <price>] [--category <brand>] [--query <text>]",
		Short: "Walks the listing pages and prints the devices within budget.",
		Example: `  smartpick search --min 150 --max 300
  smartpick search --category samsung-9 --max 400 --format markdown
  smartpick search --query "redmi note" --pages 2 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := models.SearchRequest{
				Category:        opts.category,
				Query:           opts.query,
				MaxPages:        opts.pages,
				MaxDevices:      opts.limit,
				FetchMode:       opts.mode,
				IncludeUnpriced: opts.includeUnpriced,
			}
			if cmd.Flags().Changed("min") {
				req.MinPrice = &opts.minPrice
			}
			if cmd.Flags().Changed("max") {
				req.MaxPrice = &opts.maxPrice
			}

			res, err := pipeline.New(root.cfg).Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := render.Result(cmd.OutOrStdout(), opts.format, res); err != nil {
				return err
			}

			hookURL := root.cfg.Webhook.URL
			if opts.webhook != "" {
				hookURL = opts.webhook
			}
			if hookURL != "" {
				sender := webhook.NewSender(hookURL, root.cfg.Webhook.Secret, root.cfg.Webhook.Retries)
				ev := webhook.NewEvent(webhook.EventSearchCompleted, res.ID, res)
				if err := sender.Deliver(cmd.Context(), ev); err != nil {
					slog.Warn("webhook delivery failed", "url", hookURL, "error", err)
				}
			}

			if res.Condition == models.ConditionNoConnectivity {
				return errNoConnectivity
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.minPrice, "min", 0, "lower budget bound")
	f.Float64Var(&opts.maxPrice, "max", 0, "upper budget bound")
	f.StringVar(&opts.category, "category", "", `brand slug, optionally with the maker id ("samsung-9")`)
	f.StringVar(&opts.query, "query", "", "free-text device name")
	f.IntVar(&opts.pages, "pages", 0, "maximum listing pages (default from SMARTPICK_MAX_PAGES)")
	f.IntVar(&opts.limit, "limit", 0, "maximum detail pages (default from SMARTPICK_MAX_DEVICES)")
	f.StringVar(&opts.mode, "mode", "", "fetch mode: http, browser or auto (default from SMARTPICK_FETCH_MODE)")
	f.StringVar(&opts.format, "format", render.FormatTable, "output format: "+strings.Join(render.Formats, ", "))
	f.BoolVar(&opts.includeUnpriced, "include-unpriced", false, "keep devices without a parseable price")
	f.StringVar(&opts.webhook, "webhook", "", "URL to post the finished run to")

	cmd.PreRunE = func(*cobra.Command, []string) error {
		return checkFormat(opts.format)
	}
	return cmd
}

func checkFormat(format string) error {
	for _, f := range render.Formats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(render.Formats, ", "))
}
