package main

import (
	"fmt"
	"os"

	"GoldPredict/internal/di"
	models "GoldPredict/internal/domain/models"
	"GoldPredict/internal/usecase"
	"GoldPredict/pkg/config"
	xutil "GoldPredict/pkg/util"

	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "goldpredict",
		Usage:   "Gold price prediction form service",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/config.yaml",
				Usage:   "config file path (empty for defaults)",
				EnvVars: []string{"GOLDPREDICT_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			predictCommand(),
			sinkCommand(),
		},
		DefaultCommand: "serve",
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the prediction form and JSON API",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			return app.Run(c.Context)
		},
	}
}

func sinkCommand() *cli.Command {
	return &cli.Command{
		Name:  "sink",
		Usage: "Consume submission records from Kafka and store them in ClickHouse",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if err := cfg.ValidateSink(); err != nil {
				return fmt.Errorf("sink config: %w", err)
			}

			app, cleanup, err := di.InitializeSink(cfg)
			if err != nil {
				return fmt.Errorf("sink initialization failed: %w", err)
			}
			defer cleanup()

			return app.Run(c.Context)
		},
	}
}

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:      "predict",
		Usage:     "Submit one prediction request from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "spx", Usage: "SPX value"},
			&cli.StringFlag{Name: "uso", Usage: "USO value"},
			&cli.StringFlag{Name: "slv", Usage: "SLV value"},
			&cli.StringFlag{Name: "eurusd", Usage: "EURUSD value"},
			&cli.StringFlag{
				Name:    "url",
				Usage:   "prediction endpoint (overrides config)",
				EnvVars: []string{"PREDICTOR_URL"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "request timeout (overrides config), 0 to wait indefinitely",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if u := c.String("url"); u != "" {
				cfg.Predictor.URL = u
			}
			if c.IsSet("timeout") {
				cfg.Predictor.Timeout = c.Duration("timeout")
			}

			ctrl := usecase.NewFormController("cli", di.ProvidePredictor(cfg))
			defer ctrl.Close()

			raw := map[models.Field]string{
				models.SPX:    c.String("spx"),
				models.USO:    c.String("uso"),
				models.SLV:    c.String("slv"),
				models.EURUSD: c.String("eurusd"),
			}
			for f, v := range raw {
				if err := ctrl.UpdateField(f, v); err != nil {
					return err
				}
			}

			return printOutcome(c, ctrl.Submit(c.Context))
		},
	}
}

func printOutcome(c *cli.Context, snap models.Snapshot) error {
	out := c.App.Writer
	switch snap.State.Kind {
	case models.StateSucceeded:
		fmt.Fprintf(out, "Predicted GLD Price: %s\n", xutil.FormatUSD(snap.State.Prediction))
		return nil
	case models.StateFailed:
		return cli.Exit(snap.State.Message, 1)
	}
	for _, f := range models.Fields {
		if msg := snap.Errors.Message(f); msg != "" {
			fmt.Fprintln(c.App.ErrWriter, msg)
		}
	}
	return cli.Exit("invalid input", 2)
}
