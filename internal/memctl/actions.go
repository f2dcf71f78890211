// Package memctl implements the CLI commands that inspect the site pattern
// store: the learned per-host selectors, wait policies and success rates.
package memctl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/surfcore/models"
	"github.com/dtnitsch/surfcore/pkg/sitemem"
)

func openStore(c *cli.Context) (*sitemem.Store, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Memory.Enabled {
		return nil, nil
	}
	store, err := sitemem.Open(cfg.Memory.Path, cfg.Memory.Alpha)
	if err != nil {
		return nil, fmt.Errorf("failed to open site memory: %w", err)
	}
	return store, nil
}

// HostsAction lists learned host patterns ranked by access count or success
// rate.
func HostsAction(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Println("Site memory is disabled in config")
		return nil
	}
	defer store.Close()

	var by sitemem.RankBy
	switch c.String("by") {
	case "access":
		by = sitemem.RankByAccess
	case "success":
		by = sitemem.RankBySuccess
	default:
		return fmt.Errorf("unknown ranking: %s (use: access or success)", c.String("by"))
	}

	hosts, err := store.TopHosts(c.Int("limit"), by)
	if err != nil {
		return fmt.Errorf("failed to list hosts: %w", err)
	}

	if len(hosts) == 0 {
		fmt.Println("No host patterns recorded yet")
		fmt.Printf("\nTip: Run 'surfcore browse --urls <url>' to start learning\n")
		return nil
	}

	fmt.Printf("%-35s %-9s %-8s %-14s %-10s %-20s\n",
		"Host", "Accesses", "Success", "Wait Policy", "Selectors", "Updated")
	fmt.Println(strings.Repeat("-", 100))

	for _, h := range hosts {
		policy := h.WaitPolicy
		if policy == "" {
			policy = "(none)"
		}
		fmt.Printf("%-35s %-9d %-8s %-14s %-10d %-20s\n",
			h.Host,
			h.AccessCount,
			fmt.Sprintf("%.1f%%", h.SuccessRate*100),
			policy,
			selectorCount(h),
			h.LastUpdated.Format("2006-01-02 15:04:05"),
		)
	}

	fmt.Printf("\nTotal: %d hosts\n", len(hosts))
	fmt.Printf("\nTip: Use 'surfcore host <name>' to see selector details\n")

	return nil
}

// HostAction shows the full learned pattern for one host.
func HostAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("host name required\nUsage: surfcore host <name>\nExample: surfcore host example.com OR surfcore host https://example.com/page")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Println("Site memory is disabled in config")
		return nil
	}
	defer store.Close()

	name := c.Args().First()
	rec, err := store.Host(name)
	if models.IsKind(err, models.ErrNotFound) {
		fmt.Printf("No patterns recorded for %s\n", sitemem.NormalizeHost(name))
		fmt.Printf("\nTip: Run 'surfcore browse --urls <url>' against this host first\n")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load host: %w", err)
	}

	fmt.Printf("Host: %s\n", rec.Host)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Accesses:     %d\n", rec.AccessCount)
	fmt.Printf("Success rate: %.1f%%\n", rec.SuccessRate*100)
	policy := rec.WaitPolicy
	if policy == "" {
		policy = "(none)"
	}
	fmt.Printf("Wait policy:  %s\n", policy)
	updated := "(unknown)"
	if !rec.LastUpdated.IsZero() {
		updated = rec.LastUpdated.Format("2006-01-02 15:04:05")
	}
	fmt.Printf("Last updated: %s\n", updated)

	printed := false
	for _, category := range models.Categories() {
		sels := rec.Selectors[category]
		if len(sels) == 0 {
			continue
		}
		printed = true

		fmt.Printf("\nSelectors (%s):\n", category)
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("%-35s %-6s %-8s %-8s\n", "Selector", "Uses", "Success", "Avg ms")

		names := make([]string, 0, len(sels))
		for sel := range sels {
			names = append(names, sel)
		}
		sort.Strings(names)
		for _, sel := range names {
			stats := sels[sel]
			fmt.Printf("%-35s %-6d %-8s %-8.1f\n",
				sel, stats.Uses, fmt.Sprintf("%.1f%%", stats.SuccessRate*100), stats.AvgLatencyMs)
		}

		if best, err := store.BestStrategy(rec.Host, category); err == nil {
			fmt.Printf("  Best: %s (%.1f%% over %d uses)\n", best.Selector, best.SuccessRate*100, best.Uses)
		}
	}

	if !printed {
		fmt.Println("\nNo selector history yet")
	}

	return nil
}

func selectorCount(rec sitemem.HostRecord) int {
	n := 0
	for _, sels := range rec.Selectors {
		n += len(sels)
	}
	return n
}
