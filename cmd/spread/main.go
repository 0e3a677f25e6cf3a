// Command spread computes and places a bull call spread, or serves the same
// workflow over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/eddiefleurent/bull_call_spread/internal/broker"
	"github.com/eddiefleurent/bull_call_spread/internal/config"
	"github.com/eddiefleurent/bull_call_spread/internal/mock"
	"github.com/eddiefleurent/bull_call_spread/internal/models"
	"github.com/eddiefleurent/bull_call_spread/internal/server"
	"github.com/eddiefleurent/bull_call_spread/internal/strategy"
)

const defaultConfigPath = "config.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "spread",
		Short: "Place a bull call spread around the current underlying price",
		Long: `Buys a call buy-pct below and sells a call sell-pct above the current
mid-price, expiring on the first Friday at least --weeks weeks out.

Examples:
  spread                                  # SPY, 3%/5%, 2 weeks, 1 spread
  spread --symbol AAPL                    # trade AAPL instead of SPY
  spread --buy-pct 2 --sell-pct 5         # 2% below, 5% above
  spread --weeks 3 --quantity 2 --dry-run # print parameters only
  spread --preview                        # pick contracts, no order`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSpread,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "path to configuration file (default config.yaml if present)")
	flags.String("env-file", ".env", "dotenv file loaded before the configuration")
	flags.String("provider", "", "broker provider: alpaca | mock")
	flags.StringP("symbol", "s", "SPY", "underlying symbol to trade")
	flags.Float64("buy-pct", 3.0, "percentage below current price for the long call")
	flags.Float64("sell-pct", 5.0, "percentage above current price for the short call")
	flags.IntP("weeks", "w", 2, "weeks until expiration")
	flags.IntP("quantity", "q", 1, "number of spreads to trade")
	flags.String("time-in-force", "DAY", "order time in force: DAY | GTC")

	root.Flags().Bool("dry-run", false, "print the strategy parameters and exit without contacting the broker")
	root.Flags().Bool("preview", false, "fetch the quote and contracts and show the order without placing it")
	root.MarkFlagsMutuallyExclusive("dry-run", "preview")
	root.SetGlobalNormalizationFunc(flagAliases)

	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve spread previews and executions over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			b, err := newBroker(cfg, logger)
			if err != nil {
				return err
			}

			srv := server.NewServer(server.Config{
				AuthToken:    cfg.Server.AuthToken,
				Port:         cfg.Server.Port,
				AllowExecute: cfg.Server.AllowExecute,
			}, cfg.StrategyParams(), strategy.Deps{Broker: b, Logger: logger}, logger)
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	return cmd
}

// flagAliases accepts the long percentage flag spellings.
func flagAliases(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "buy-percentage":
		name = "buy-pct"
	case "sell-percentage":
		name = "sell-pct"
	}
	return pflag.NormalizedName(name)
}

func runSpread(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	dryRun, _ := flags.GetBool("dry-run")
	preview, _ := flags.GetBool("preview")
	out := cmd.OutOrStdout()

	if dryRun {
		// Parameters only: no broker is built, so no credentials are needed.
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		params := cfg.StrategyParams()
		if err := params.Validate(); err != nil {
			return fmt.Errorf("%w: %w", models.ErrInvalidParams, err)
		}
		printSummary(out, params, modeDryRun)
		return nil
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	params := cfg.StrategyParams()
	mode := modeExecute
	if preview {
		mode = modePreview
	}
	printSummary(out, params, mode)

	b, err := newBroker(cfg, logger)
	if err != nil {
		return err
	}
	deps := strategy.Deps{Broker: b, Logger: logger}

	var res strategy.Result
	if preview {
		res = strategy.Preview(cmd.Context(), params, deps)
	} else {
		res = strategy.Execute(cmd.Context(), params, deps)
	}

	fmt.Fprintln(out, res.Output)
	if !res.Succeeded() {
		return res.Err
	}
	return nil
}

// loadConfig loads .env and the configuration and applies flag overrides
// without validating the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	if err := godotenv.Load(envFile); err != nil {
		if flags.Changed("env-file") || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg, err := readConfig(flags.Lookup("config").Value.String(), flags.Changed("config"))
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads and validates the configuration and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Environment.NewLogger(cmd.ErrOrStderr())
	if !cfg.IsPaperTrading() {
		logger.Warn("LIVE TRADING MODE - real money at risk")
	}
	return cfg, logger, nil
}

func readConfig(path string, explicit bool) (*config.Config, error) {
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Read(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		def := config.Default()
		return &def, nil
	}
	return nil, err
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("provider") {
		cfg.Broker.Provider, err = flags.GetString("provider")
	}
	if err == nil && flags.Changed("symbol") {
		cfg.Strategy.Symbol, err = flags.GetString("symbol")
	}
	if err == nil && flags.Changed("buy-pct") {
		cfg.Strategy.BuyPct, err = flags.GetFloat64("buy-pct")
	}
	if err == nil && flags.Changed("sell-pct") {
		cfg.Strategy.SellPct, err = flags.GetFloat64("sell-pct")
	}
	if err == nil && flags.Changed("weeks") {
		cfg.Strategy.WeeksAhead, err = flags.GetInt("weeks")
	}
	if err == nil && flags.Changed("quantity") {
		cfg.Strategy.Quantity, err = flags.GetInt("quantity")
	}
	if err == nil && flags.Changed("time-in-force") {
		cfg.Strategy.TimeInForce, err = flags.GetString("time-in-force")
	}
	return err
}

func newBroker(cfg *config.Config, logger *logrus.Logger) (broker.Broker, error) {
	switch cfg.Broker.Provider {
	case config.ProviderMock:
		logger.Info("Using offline mock market data and order service")
		return broker.NewTextBroker(mock.NewProvider(), logger), nil
	case config.ProviderAlpaca:
		client := broker.NewAlpacaClientWithBaseURLs(
			cfg.Broker.APIKey,
			cfg.Broker.SecretKey,
			cfg.IsPaperTrading(),
			cfg.Broker.TradingEndpoint,
			cfg.Broker.DataEndpoint,
		).WithTimeout(cfg.BrokerTimeout()).WithLogger(logger).WithDataFeed(cfg.Broker.DataFeed)
		logger.WithField("paper", client.IsPaper()).Info("Using Alpaca market data and order service")
		if !cfg.Broker.CircuitBreaker.Enabled {
			return client, nil
		}
		return broker.NewCircuitBreakerBrokerWithSettings(client, cfg.Broker.CircuitBreaker.BreakerSettings(), logger), nil
	default:
		return nil, fmt.Errorf("unknown broker provider %q", cfg.Broker.Provider)
	}
}

type runMode string

const (
	modeExecute runMode = "Order submission"
	modePreview runMode = "Preview (contracts are selected, no order is placed)"
	modeDryRun  runMode = "Dry run (parameters only, broker not contacted)"
)

func printSummary(w io.Writer, p strategy.Params, mode runMode) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "BULL CALL SPREAD")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Symbol:      %s\n", strings.ToUpper(p.Symbol))
	fmt.Fprintf(w, "Buy strike:  %g%% below current price\n", p.BuyPct)
	fmt.Fprintf(w, "Sell strike: %g%% above current price\n", p.SellPct)
	fmt.Fprintf(w, "Expiration:  first Friday %d week(s) out\n", p.WeeksAhead)
	fmt.Fprintf(w, "Quantity:    %d spread(s)\n", p.Quantity)
	fmt.Fprintf(w, "Mode:        %s\n", mode)
	fmt.Fprintln(w, line)
}
