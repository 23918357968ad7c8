package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
	"github.com/ajoealex/data-bucket-ui/pkg/requestlog"
	"github.com/ajoealex/data-bucket-ui/pkg/search"
)

var (
	requestsWatch    bool
	requestsSearch   string
	requestsWhere    string
	requestsEndpoint string
	requestsSelect   int
)

var requestsCmd = &cobra.Command{
	Use:   "requests <bucket-id>",
	Short: "Show the requests a bucket has captured",
	Long: `Requests fetches a bucket's captured-request log non-destructively and
renders it newest first. With --watch the log is polled every few seconds
until interrupted.

Filters combine: --endpoint narrows by glob, --where by expression, --search
by case-insensitive substring across method, endpoint, IP, headers, query
parameters and payload.`,
	Example: `  databucket requests b1
  databucket requests b1 --watch
  databucket requests b1 --search "a@x.com"
  databucket requests b1 --where 'method == "POST"' --endpoint '/webhooks/**'
  databucket requests b1 --select 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucketID := args[0]

		c, _, err := activeConnection()
		if err != nil {
			return err
		}

		var predicate *search.Predicate
		if requestsWhere != "" {
			predicate, err = search.CompilePredicate(requestsWhere)
			if err != nil {
				return err
			}
		}

		applyFilters := func(entries []*api.CapturedRequest) ([]*api.CapturedRequest, error) {
			filtered, err := search.FilterEndpoint(entries, requestsEndpoint)
			if err != nil {
				return nil, err
			}
			if predicate != nil {
				filtered = predicate.Filter(filtered)
			}
			return search.Filter(filtered, requestsSearch), nil
		}

		if requestsWatch {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			log := requestlog.New(c, bucketID,
				requestlog.WithLogger(newLogger()),
				requestlog.WithOnUpdate(func(entries []*api.CapturedRequest) {
					filtered, err := applyFilters(entries)
					if err != nil {
						fmt.Fprintln(os.Stderr, "Error:", err)
						return
					}
					printRequestsTable(filtered, entries)
				}),
			)
			log.Run(ctx)
			return nil
		}

		log := requestlog.New(c, bucketID, requestlog.WithLogger(newLogger()))
		entries, err := log.Refresh(cmd.Context())
		if err != nil {
			return err
		}

		if requestsSelect >= 0 {
			if err := log.Select(requestsSelect); err != nil {
				return err
			}
			selected, _ := log.Selected()
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(selected)
			}
			printRequestDetail(requestsSelect, selected)
			return nil
		}

		filtered, err := applyFilters(entries)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(filtered)
		}
		if len(entries) == 0 {
			fmt.Println("No requests captured yet - send data to this bucket's capture endpoint")
			return nil
		}
		printRequestsTable(filtered, entries)
		return nil
	},
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear <bucket-id>",
	Short: "Clear all captured requests from a bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucketID := args[0]

		c, _, err := activeConnection()
		if err != nil {
			return err
		}

		opts := []requestlog.Option{requestlog.WithLogger(newLogger())}
		if !clearYes {
			opts = append(opts, requestlog.WithConfirm(confirmPrompt))
		}
		log := requestlog.New(c, bucketID, opts...)

		if err := log.Clear(cmd.Context()); err != nil {
			if errors.Is(err, requestlog.ErrDeclined) {
				fmt.Println("Aborted")
				return nil
			}
			return err
		}
		fmt.Printf("Cleared bucket %s\n", bucketID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(clearCmd)
	requestsCmd.Flags().BoolVar(&requestsWatch, "watch", false, "Poll the request log until interrupted")
	requestsCmd.Flags().StringVar(&requestsSearch, "search", "", "Substring search across all request fields")
	requestsCmd.Flags().StringVar(&requestsWhere, "where", "", `Expression filter, e.g. 'method == "POST"'`)
	requestsCmd.Flags().StringVar(&requestsEndpoint, "endpoint", "", `Endpoint glob filter, e.g. '/webhooks/**'`)
	requestsCmd.Flags().IntVar(&requestsSelect, "select", -1, "Show full details of the request at this position")
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "Skip the confirmation prompt")
}
