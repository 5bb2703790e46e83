package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dimilowe/vcmstore"
)

var (
	version    = "dev"
	commit     = "none"
	buildDate  = "unknown"
	configPath string
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vcmstore",
		Short: "Creator-tools content store",
		Long: `vcmstore expands tool and article blueprints into content shells,
computes expected internal links per topic cluster and gates pages
for indexing once they are ready.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", vcmstore.EnvOr("VCM_CONFIG", "vcmstore.yaml"), "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    buildDate,
				})
				return
			}
			fmt.Printf("vcmstore %s (%s, %s)\n", version, commit, buildDate)
		},
	})
	rootCmd.AddCommand(serveCmd(), expandCmd(), statsCmd(), linksCmd(), inspectCmd(), pagesCmd(), reviewCmd(), indexCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// openApp loads config, builds the logger and opens the store. The caller
// must Close the returned app.
func openApp(ctx context.Context) (*vcmstore.App, error) {
	cfg, err := vcmstore.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log, err := vcmstore.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	app := vcmstore.New(cfg, vcmstore.ViewFuncs{}, vcmstore.WithLogger(log))
	if err := app.Open(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// withApp runs fn against an opened app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *vcmstore.App) error) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		app.Close()
		_ = app.Log.Sync()
	}()
	return fn(ctx, app)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
