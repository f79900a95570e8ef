package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/threadline/pkg/config"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/query"
)

var cachePrometheus bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the query cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache counters for this process",
	Long: `Show the query cache counters of this process. Inside "threadline browse"
the same counters cover the whole session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printCacheStats(app.Store)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every cached query, including persisted ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Store.Clear(cmd.Context()); err != nil {
			return err
		}
		output.PrintSuccess("Cache cleared (%s)", config.GetString("cache.persist"))
		return nil
	},
}

func init() {
	cacheStatsCmd.Flags().BoolVar(&cachePrometheus, "prometheus", false, "Print counters in the Prometheus text format")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func printCacheStats(store *query.Store) error {
	if cachePrometheus {
		return store.Metrics().WriteText(output.Writer())
	}

	stats, err := store.Metrics().Stats()
	if err != nil {
		return err
	}
	if err := output.PrintRecord("Query cache", map[string]interface{}{
		"entries":        stats.Entries,
		"hits":           stats.Hits,
		"misses":         stats.Misses,
		"loads":          stats.Loads,
		"load_errors":    stats.LoadErrors,
		"shared_results": stats.SharedResults,
		"invalidations":  stats.Invalidations,
		"sets":           stats.Sets,
		"persist_errors": stats.PersistErrors,
	}); err != nil {
		return err
	}

	if output.GetOutputFormat() == output.FormatJSON {
		return nil
	}
	entries := store.Entries()
	if len(entries) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		age := "-"
		if e.HasData {
			age = time.Since(e.UpdatedAt).Truncate(time.Second).String()
		}
		rows = append(rows, []string{
			e.Key.String(),
			fmt.Sprint(e.FetchCount),
			age,
			fmt.Sprint(e.Invalidated),
		})
	}
	fmt.Fprintln(output.Writer())
	return output.PrintList("", entries, []string{"Key", "Fetches", "Age", "Invalidated"}, rows)
}
