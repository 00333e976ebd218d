// dashctl is a terminal client for the threatboard API: it lists the
// dashboard screens with local filtering, starts phishing scans and watches
// their progress.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctiworks/threatboard/internal/dashboard"
	"github.com/ctiworks/threatboard/internal/filter"
	"github.com/ctiworks/threatboard/internal/logger"
	"github.com/ctiworks/threatboard/internal/models"
)

var (
	serverURL string
	apiKey    string

	category string
	severity string
	status   string
	search   string
	days     int
	page     int
	pageSize int
)

func client() *dashboard.Client {
	return dashboard.NewClient(serverURL, apiKey)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func criteria() filter.Criteria {
	c := filter.Criteria{
		Category: category,
		Severity: severity,
		Tag:      status,
		Search:   search,
	}
	if days > 0 {
		c.Window = filter.LastDays(days)
	}
	return c
}

var rootCmd = &cobra.Command{
	Use:   "dashctl",
	Short: "Terminal client for the threatboard API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var threatsCmd = &cobra.Command{
	Use:   "threats",
	Short: "List threat articles, filtered locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		screen := dashboard.ThreatScreen(client())
		if err := screen.Load(cmd.Context()); err != nil {
			return err
		}
		results, total := screen.Apply(criteria(), filter.Sort{}, page, pageSize)
		fmt.Fprintf(os.Stderr, "%d of %d matching threats (page %d)\n", len(results), total, page)
		return printJSON(results)
	},
}

var phishingCmd = &cobra.Command{
	Use:   "phishing",
	Short: "List detected phishing sites, filtered locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		screen := dashboard.PhishingScreen(client())
		if err := screen.Load(cmd.Context()); err != nil {
			return err
		}
		results, total := screen.Apply(criteria(), filter.Sort{}, page, pageSize)
		fmt.Fprintf(os.Stderr, "%d of %d matching sites (page %d)\n", len(results), total, page)
		return printJSON(results)
	},
}

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "List indicators of compromise, filtered locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		screen := dashboard.IndicatorScreen(client())
		if err := screen.Load(cmd.Context()); err != nil {
			return err
		}
		results, total := screen.Apply(criteria(), filter.Sort{}, page, pageSize)
		fmt.Fprintf(os.Stderr, "%d of %d matching indicators (page %d)\n", len(results), total, page)
		return printJSON(results)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the combined dashboard statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := client().Dashboard(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Trigger a background news ingest cycle on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().TriggerFetch(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("ingest started")
		return nil
	},
}

var (
	scanTyposquat bool
	scanWatch     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [url ...]",
	Short: "Start a phishing scan and optionally watch it",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client()
		progress, err := c.StartScan(cmd.Context(), models.ScanRequest{
			URLs:               args,
			CheckTyposquatting: &scanTyposquat,
		})
		if err != nil {
			return err
		}
		fmt.Printf("scan %s started\n", progress.ScanID)

		if !scanWatch {
			return printJSON(progress)
		}
		return watchScan(cmd.Context(), c, progress.ScanID)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <scan-id>",
	Short: "Watch a running scan until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchScan(cmd.Context(), client(), args[0])
	},
}

func watchScan(ctx context.Context, c *dashboard.Client, scanID string) error {
	poller := dashboard.NewPoller(c, 2*time.Second)
	final, err := poller.Watch(ctx, scanID,
		func(p models.ScanProgress) {
			fmt.Printf("%s %.0f%% sites_found=%d\n", p.Status, p.Progress, p.SitesFound)
		},
		func() {
			fmt.Println("scan completed, refresh the phishing screen")
		},
	)
	if err != nil {
		return err
	}
	if final.Status == models.ScanStatusError {
		return fmt.Errorf("scan failed: %s", final.Error)
	}
	return nil
}

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Analyze a single URL without persisting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := client().CheckURL(cmd.Context(), args[0], "")
		if err != nil {
			return err
		}
		return printJSON(site)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "threatboard server URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("THREATBOARD_API_KEY"), "admin API key")

	for _, cmd := range []*cobra.Command{threatsCmd, phishingCmd, indicatorsCmd} {
		cmd.Flags().StringVar(&category, "category", "", "category filter")
		cmd.Flags().StringVar(&severity, "severity", "", "severity filter")
		cmd.Flags().StringVar(&status, "tag", "", "tag filter (CVE or site status)")
		cmd.Flags().StringVar(&search, "search", "", "free-text search")
		cmd.Flags().IntVar(&days, "days", 0, "only records from the last N days")
		cmd.Flags().IntVar(&page, "page", 1, "page number")
		cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size")
	}

	scanCmd.Flags().BoolVar(&scanTyposquat, "typosquat", true, "include typosquat variations of the protected domain")
	scanCmd.Flags().BoolVar(&scanWatch, "watch", false, "watch the scan until it finishes")

	rootCmd.AddCommand(threatsCmd, phishingCmd, indicatorsCmd, statsCmd, fetchCmd, scanCmd, watchCmd, checkCmd)
}

func main() {
	if err := logger.Init(logger.Config{Level: "warn", Output: "stderr"}); err != nil {
		panic(err)
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
