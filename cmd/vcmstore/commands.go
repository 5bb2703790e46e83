package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dimilowe/vcmstore"
	"github.com/dimilowe/vcmstore/expansion"
)

func expandCmd() *cobra.Command {
	var all, preview bool
	cmd := &cobra.Command{
		Use:   "expand [blueprint-id]",
		Short: "Create shells for a blueprint, or for every blueprint with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return fmt.Errorf("--all takes no blueprint id")
			}
			if !all && len(args) != 1 {
				return fmt.Errorf("expected one blueprint id, or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *vcmstore.App) error {
				var (
					res expansion.Result
					err error
				)
				switch {
				case all && preview:
					res, err = app.Runner.PreviewAll(ctx)
				case all:
					res, err = app.Runner.RunAll(ctx)
				case preview:
					res, err = app.Runner.Preview(ctx, args[0])
				default:
					res, err = app.Runner.Run(ctx, args[0])
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(res)
					return nil
				}
				t := newTable("SLUG", "TYPE", "CLUSTER", "STATUS")
				for _, r := range res.Results {
					t.add(r.Slug, r.Type, r.ClusterSlug, r.Status)
				}
				for _, o := range res.Omitted {
					t.add(o.Slug, "", "", "omitted: "+o.Reason)
				}
				t.write(os.Stdout)
				verb := "created"
				if res.DryRun {
					verb = "would create"
				}
				fmt.Printf("\n%d %s, %d skipped, %d omitted\n", res.CreatedCount, verb, res.SkippedCount, len(res.Omitted))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Expand every blueprint in order")
	cmd.Flags().BoolVar(&preview, "preview", false, "Report what would be created without writing")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show potential and created shells per blueprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *vcmstore.App) error {
				summaries, stats, err := app.Runner.Overview(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(map[string]any{"blueprints": summaries, "stats": stats})
					return nil
				}
				t := newTable("BLUEPRINT", "ENGINE", "TYPE", "CREATED", "POTENTIAL")
				for _, s := range summaries {
					t.add(s.ID, s.EngineID, s.Type, s.Created, s.Potential)
				}
				t.write(os.Stdout)
				fmt.Printf("\n%d blueprints, %d of %d shells created\n",
					stats.TotalBlueprints, stats.TotalCreatedShells, stats.TotalPotentialShells)
				return nil
			})
		},
	}
}

func linksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "Show expected internal links per cluster page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *vcmstore.App) error {
				report, err := app.Links.Compute(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(report)
					return nil
				}
				urls := make([]string, 0, len(report.ExpectedLinks))
				for u := range report.ExpectedLinks {
					urls = append(urls, u)
				}
				sort.Strings(urls)
				t := newTable("URL", "EXPECTED")
				for _, u := range urls {
					t.add(u, report.ExpectedLinks[u])
				}
				t.write(os.Stdout)
				fmt.Printf("\nlegacy tools: %s\n", joinOrNone(report.LegacyTools))
				fmt.Printf("unmigrated:   %s\n", joinOrNone(report.Unmigrated))
				return nil
			})
		},
	}
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Run the readiness checks on every unindexed page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *vcmstore.App) error {
				report, err := app.Inspector.Run(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(report)
					return nil
				}
				t := newTable("URL", "READY", "BLOCKING")
				for _, r := range report.Results {
					reasons := make([]string, len(r.BlockingReasons))
					for i, reason := range r.BlockingReasons {
						reasons[i] = string(reason)
					}
					t.add(r.URL, r.IsReady, strings.Join(reasons, ", "))
				}
				t.write(os.Stdout)
				fmt.Printf("\n%d inspected, %d ready, %d not ready\n",
					report.Summary.Inspected, report.Summary.Ready, report.Summary.NotReady)
				return nil
			})
		},
	}
}

func pagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List unindexed pages with ids, health and readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *vcmstore.App) error {
				pages, err := app.Inspector.UnindexedPages(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(pages)
					return nil
				}
				t := newTable("ID", "URL", "SOURCE", "WORDS", "HEALTH", "REVIEWED", "READY")
				for _, p := range pages.Pages {
					t.add(p.ID, p.URL, p.Source, p.WordCount, p.Health, p.ManualReviewPassed, p.IsReady)
				}
				t.write(os.Stdout)
				s := pages.Stats
				fmt.Printf("\n%d unindexed, %d ready (thin %d, ok %d, strong %d)\n", s.Total, s.Ready, s.Thin, s.OK, s.Strong)
				return nil
			})
		},
	}
}

func reviewCmd() *cobra.Command {
	var reject bool
	cmd := &cobra.Command{
		Use:   "review <url-id>",
		Short: "Mark a page as manually reviewed (or --reject to clear it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *vcmstore.App) error {
				res, err := app.Inspector.ToggleManualReview(ctx, args[0], !reject)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(res)
					return nil
				}
				fmt.Printf("review recorded; ready to index: %t\n", res.IsReadyToIndex)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reject, "reject", false, "Clear the manual review flag")
	return cmd
}

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Flag every ready page as indexed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *vcmstore.App) error {
				res, err := app.Inspector.IndexReadyPages(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(res)
					return nil
				}
				for _, slug := range res.IndexedSlugs {
					fmt.Println(slug)
				}
				fmt.Printf("%d pages indexed\n", res.IndexedCount)
				return nil
			})
		},
	}
}

func joinOrNone(vals []string) string {
	if len(vals) == 0 {
		return "none"
	}
	return strings.Join(vals, ", ")
}
