// Package cli provides the command-line interface for one-shot prediction runs.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"MarketCast/internal/domain/models"
	"MarketCast/pkg/config"
	"MarketCast/pkg/util"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Runner is the pipeline surface the commands drive.
type Runner interface {
	Run(ctx context.Context, req models.RunRequest) models.Result
	RunBatch(ctx context.Context, class models.AssetClass, assets []string, tf models.Timeframe, userID uuid.UUID) ([]models.BatchEntry, error)
	Close() error
}

// Opener builds a Runner from the loaded configuration.
type Opener func(cfg *config.Config) (Runner, error)

type app struct {
	open   Opener
	cfg    *config.Config
	runner Runner

	configPath string
	timeframe  string
	user       string
}

// NewRootCmd creates the root command.
func NewRootCmd(open Opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "predict",
		Short: "Run market predictions without the HTTP server",
		Long: `predict runs the fetch, predict and persist pipeline once and prints the
result envelope as JSON. Equity calls go through the same admission queue
as the server, so a batch of N stocks takes at least 4s x (N-1).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithEnv(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			r, err := a.open(cfg)
			if err != nil {
				return fmt.Errorf("init pipeline: %w", err)
			}
			a.runner = r
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "config/config.yaml", "config file path (empty for defaults only)")
	root.PersistentFlags().StringVar(&a.timeframe, "timeframe", "", "prediction horizon, e.g. 4h or 1d (default from cron.timeframe)")
	root.PersistentFlags().StringVar(&a.user, "user", "", "user id to attribute predictions to (default cron.system_user_id)")

	root.AddCommand(a.singleCmd(models.AssetStock, "stock <name>", "Predict one NSE/BSE stock"))
	root.AddCommand(a.singleCmd(models.AssetCrypto, "crypto <coin-id>", "Predict one CoinGecko coin"))
	root.AddCommand(a.batchCmd())
	return root
}

func (a *app) singleCmd(class models.AssetClass, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: a.closing(func(cmd *cobra.Command, args []string) error {
			tf, user, err := a.params()
			if err != nil {
				return err
			}
			res := a.runner.Run(cmd.Context(), models.RunRequest{
				Class:     class,
				Asset:     args[0],
				Timeframe: tf,
				UserID:    user,
			})
			if err := writeJSON(cmd, res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("%s %s: %s", class, args[0], res.Error)
			}
			return nil
		}),
	}
}

func (a *app) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <stock|crypto> [ASSET,ASSET...]",
		Short: "Run a sequential batch; assets default to the configured list",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.closing(func(cmd *cobra.Command, args []string) error {
			class, err := models.ParseAssetClass(args[0])
			if err != nil {
				return err
			}
			tf, user, err := a.params()
			if err != nil {
				return err
			}
			assets := a.cfg.Cron.DefaultStocks
			if class == models.AssetCrypto {
				assets = a.cfg.Cron.DefaultCoins
			}
			if len(args) == 2 {
				assets = util.SplitList(args[1])
			}
			if len(assets) == 0 {
				return fmt.Errorf("no %s assets given", class)
			}

			entries, err := a.runner.RunBatch(cmd.Context(), class, assets, tf, user)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]any{"success": true, "results": entries})
		}),
	}
}

// closing releases the pipeline after fn, whether or not fn failed.
func (a *app) closing(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.runner.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) params() (models.Timeframe, uuid.UUID, error) {
	raw := a.timeframe
	if raw == "" {
		raw = a.cfg.Cron.Timeframe
	}
	tf, err := models.ParseTimeframe(raw)
	if err != nil {
		return "", uuid.Nil, err
	}
	rawUser := a.user
	if rawUser == "" {
		rawUser = a.cfg.Cron.SystemUserID
	}
	user, err := uuid.Parse(rawUser)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid user id %q: %w", rawUser, err)
	}
	return tf, user, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
