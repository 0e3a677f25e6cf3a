// Command integration runs end-to-end checks against the Alpaca paper
// environment using config.yaml.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/bull_call_spread/internal/broker"
	"github.com/eddiefleurent/bull_call_spread/internal/config"
	"github.com/eddiefleurent/bull_call_spread/internal/strategy"
)

const checkTimeout = 30 * time.Second

type check struct {
	name string
	run  func(ctx context.Context) error
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "integration",
		Short:         "Run end-to-end checks against the Alpaca paper environment",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().String("config", "config.yaml", "path to configuration file")
	cmd.Flags().Bool("place-order", false, "also submit the spread to the paper account")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Bull Call Spread - End-to-End Integration Test ===")
	fmt.Fprintln(out)

	_ = godotenv.Load()
	configPath, _ := cmd.Flags().GetString("config")
	placeOrder, _ := cmd.Flags().GetBool("place-order")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := requirePaperAlpaca(cfg, configPath); err != nil {
		return err
	}

	logger := cfg.Environment.NewLogger(out)
	client := broker.NewAlpacaClientWithBaseURLs(
		cfg.Broker.APIKey,
		cfg.Broker.SecretKey,
		true, // force paper mode for integration tests
		cfg.Broker.TradingEndpoint,
		cfg.Broker.DataEndpoint,
	).WithTimeout(cfg.BrokerTimeout()).WithLogger(logger).WithDataFeed(cfg.Broker.DataFeed)

	params := cfg.StrategyParams()
	deps := strategy.Deps{Broker: client, Logger: logger}

	checks := []check{
		{"Market Data Retrieval", func(ctx context.Context) error { return checkQuote(ctx, client, params.Symbol, logger) }},
		{"Option Contract Catalog", func(ctx context.Context) error { return checkCatalog(ctx, client, params, logger) }},
		{"Spread Preview", func(ctx context.Context) error { return checkPreview(ctx, params, deps, logger) }},
	}
	if placeOrder {
		checks = append(checks, check{"Paper Order Placement", func(ctx context.Context) error {
			return checkExecute(ctx, params, deps, logger)
		}})
	}

	passed := runChecks(cmd.Context(), out, checks, logger)

	fmt.Fprintln(out, "=== Integration Test Results ===")
	fmt.Fprintf(out, "Tests Passed: %d/%d\n", passed, len(checks))
	if passed != len(checks) {
		return fmt.Errorf("%d test(s) failed", len(checks)-passed)
	}
	return nil
}

// requirePaperAlpaca refuses anything but the Alpaca paper environment.
func requirePaperAlpaca(cfg *config.Config, configPath string) error {
	if !cfg.IsPaperTrading() {
		return fmt.Errorf("integration tests must run in paper mode, set environment.mode: 'paper' in %s", configPath)
	}
	if cfg.Broker.Provider != config.ProviderAlpaca {
		return fmt.Errorf("integration tests need broker.provider: '%s'", config.ProviderAlpaca)
	}
	return nil
}

// runChecks runs every check with its own timeout and returns how many passed.
func runChecks(ctx context.Context, out io.Writer, checks []check, logger *logrus.Logger) int {
	passed := 0
	for i, c := range checks {
		title := fmt.Sprintf("Test %d: %s", i+1, c.name)
		fmt.Fprintln(out, title)
		fmt.Fprintln(out, strings.Repeat("=", len(title)))

		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.run(checkCtx)
		cancel()
		if err != nil {
			logger.WithError(err).Error(c.name + " failed")
			fmt.Fprintln(out, "FAILED")
		} else {
			passed++
			fmt.Fprintln(out, "PASSED")
		}
		fmt.Fprintln(out)
	}
	return passed
}

func checkQuote(ctx context.Context, b broker.Broker, symbol string, logger *logrus.Logger) error {
	quote, err := b.GetQuote(ctx, symbol)
	if err != nil {
		return err
	}
	mid, ok := strategy.MidPrice(quote)
	if !ok {
		return fmt.Errorf("quote for %s has no bid/ask (bid %.2f, ask %.2f)", symbol, quote.Bid, quote.Ask)
	}
	logger.Infof("%s mid-price: $%.2f", symbol, mid)
	return nil
}

func checkCatalog(ctx context.Context, b broker.Broker, p strategy.Params, logger *logrus.Logger) error {
	quote, err := b.GetQuote(ctx, p.Symbol)
	if err != nil {
		return err
	}
	mid, ok := strategy.MidPrice(quote)
	if !ok {
		return fmt.Errorf("no usable quote for %s", p.Symbol)
	}
	strikes := strategy.CalculateStrikes(mid, p.BuyPct, p.SellPct)
	query := strategy.CatalogQuery(p.Symbol, strikes, strategy.TargetExpiration(time.Now(), p.WeeksAhead))

	records, err := b.GetOptionContracts(ctx, query)
	if err != nil {
		return err
	}
	logger.Infof("Found %d contracts expiring %s between $%s and $%s",
		len(records), query.ExpirationDate(), query.StrikeGTE, query.StrikeLTE)
	if len(records) == 0 {
		return fmt.Errorf("empty catalog")
	}
	return nil
}

func checkPreview(ctx context.Context, p strategy.Params, deps strategy.Deps, logger *logrus.Logger) error {
	res := strategy.Preview(ctx, p, deps)
	if !res.Succeeded() {
		return fmt.Errorf("%s: %w", res.Output, res.Err)
	}
	logger.Info(res.Output)
	return nil
}

func checkExecute(ctx context.Context, p strategy.Params, deps strategy.Deps, logger *logrus.Logger) error {
	res := strategy.Execute(ctx, p, deps)
	if !res.Succeeded() {
		return fmt.Errorf("%s: %w", res.Output, res.Err)
	}
	logger.WithField("order_id", res.Response.ID).Info("Paper order accepted")
	return nil
}
