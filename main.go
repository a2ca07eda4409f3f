package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"go.uber.org/zap"

	"linkbio/internal/app"
	"linkbio/internal/config"
	"linkbio/internal/logging"
)

//go:embed all:frontend/dist
var assets embed.FS

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "linkbio",
		Short:         "Link-in-bio page editor and publisher",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runEditor,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to config.yaml")

	exportCmd := &cobra.Command{
		Use:   "export <draft.json>",
		Short: "Write a draft as a standalone HTML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringP("out", "o", ".", "output directory")

	configCmd := &cobra.Command{Use: "config", Short: "Manage the configuration file"}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	})

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve published pages over HTTP",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "mcp",
			Short: "Run the MCP tool server on stdin/stdout",
			Args:  cobra.NoArgs,
			RunE:  runMCP,
		},
		&cobra.Command{
			Use:   "publish <draft.json>",
			Short: "Publish a draft for the configured user",
			Args:  cobra.ExactArgs(1),
			RunE:  runPublish,
		},
		exportCmd,
		configCmd,
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runEditor(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	linkbio := app.New(cfg, logger)
	size := app.InitialWindowSize(cfg)

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	return wails.Run(&options.App{
		Title:     "Linkiwi",
		Width:     size.Width,
		Height:    size.Height,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 255, G: 255, B: 255, A: 1},
		Menu:             appMenu,
		OnStartup:        linkbio.Startup,
		OnShutdown:       linkbio.Shutdown,
		Bind: []interface{}{
			linkbio,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				FullSizeContent:            true,
			},
			About: &mac.AboutInfo{
				Title:   "Linkiwi",
				Message: "Link-in-bio page builder",
			},
		},
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()
	return app.ServePublic(ctx, cfg, logger)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()
	return app.ServeMCP(ctx, cfg, logger)
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()
	res, err := app.PublishDraft(ctx, cfg, logger, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	out, _ := cmd.Flags().GetString("out")
	ctx, cancel := signalContext()
	defer cancel()
	path, err := app.ExportDraft(ctx, cfg, logger, args[0], out)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if err := config.Default().Save(configPath); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", configPath)
	return nil
}
