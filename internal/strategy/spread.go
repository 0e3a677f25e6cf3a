package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/bull_call_spread/internal/broker"
	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

// Deps are the collaborators a run needs. Zero-valued optional fields fall
// back to the standard logger, time.Now and random UUIDs.
type Deps struct {
	Broker     broker.Broker
	Logger     *logrus.Logger
	Now        func() time.Time
	NewOrderID func() string
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewOrderID == nil {
		d.NewOrderID = uuid.NewString
	}
	return d
}

// Plan is everything a run worked out before (and including) the order.
type Plan struct {
	Expiration time.Time            `json:"expiration"`
	Order      *models.OrderRequest `json:"order,omitempty"`
	Query      models.ContractQuery `json:"query"`
	Params     Params               `json:"params"`
	Legs       models.SelectedLegs  `json:"legs"`
	Strikes    models.StrikeTargets `json:"strikes"`
	Price      float64              `json:"price"`
}

// Result is the outcome of a run. Output is the human-readable result: the
// order service's response verbatim on success, a failure description otherwise.
type Result struct {
	Err      error                 `json:"-"`
	Response *models.OrderResponse `json:"response,omitempty"`
	State    models.RunState       `json:"state"`
	Output   string                `json:"output"`
	History  []models.RunState     `json:"history"`
	Plan     Plan                  `json:"plan"`
}

// Succeeded reports whether the run finished without failing.
func (r Result) Succeeded() bool {
	return r.Err == nil && r.State != models.StateFailed
}

func (r Result) String() string {
	return r.Output
}

// MidPrice returns the quote midpoint, or ok=false when either side is missing.
func MidPrice(q *models.Quote) (price float64, ok bool) {
	if q == nil {
		return 0, false
	}
	return q.Mid()
}

// Execute runs the full pipeline: quote, strikes, expiration, contract match
// and order submission. It never retries and stops at the first failure.
func Execute(ctx context.Context, p Params, deps Deps) Result {
	return run(ctx, p, deps, true)
}

// Preview runs the pipeline up to contract matching and builds the order
// without submitting it.
func Preview(ctx context.Context, p Params, deps Deps) Result {
	return run(ctx, p, deps, false)
}

type runner struct {
	rm  *models.RunMachine
	log *logrus.Entry
	res Result
}

func (r *runner) advance(to models.RunState, condition string) {
	if err := r.rm.Transition(to, condition); err != nil {
		r.log.WithError(err).Error("Invalid run transition")
		return
	}
	r.log.WithFields(logrus.Fields{"state": to, "step": condition}).Debug(r.rm.GetStateDescription())
}

func (r *runner) fail(condition, output string, cause error) Result {
	if err := r.rm.Fail(condition); err != nil {
		r.log.WithError(err).Error("Invalid run transition")
	}
	r.log.WithFields(logrus.Fields{"step": condition, "state": models.StateFailed}).
		WithError(cause).Warn(output)
	r.res.Output = output
	r.res.Err = cause
	return r.finish()
}

func (r *runner) finish() Result {
	r.res.State = r.rm.GetCurrentState()
	r.res.History = r.rm.History()
	return r.res
}

func run(ctx context.Context, p Params, deps Deps, submit bool) Result {
	deps = deps.withDefaults()
	r := &runner{
		rm:  models.NewRunMachine(),
		log: deps.Logger.WithField("symbol", p.Symbol),
	}
	r.res.Plan.Params = p

	if err := p.Validate(); err != nil {
		err = fmt.Errorf("%w: %w", models.ErrInvalidParams, err)
		return r.fail(models.ConditionInvalidParams, err.Error(), err)
	}
	if deps.Broker == nil {
		err := fmt.Errorf("%w: broker is required", models.ErrInvalidParams)
		return r.fail(models.ConditionInvalidParams, err.Error(), err)
	}
	p = p.normalized()
	r.res.Plan.Params = p
	r.log = deps.Logger.WithField("symbol", p.Symbol)

	quote, err := deps.Broker.GetQuote(ctx, p.Symbol)
	if err != nil {
		if errors.Is(err, models.ErrPriceUnavailable) {
			return r.fail(models.ConditionPriceUnavailable, fmt.Sprintf("failed to fetch current %s price", p.Symbol), err)
		}
		return r.fail(models.ConditionUpstreamFailure,
			fmt.Sprintf("failed to fetch current %s price: %v", p.Symbol, err), fmt.Errorf("quote service: %w", err))
	}
	price, ok := MidPrice(quote)
	if !ok {
		return r.fail(models.ConditionPriceUnavailable, fmt.Sprintf("failed to fetch current %s price", p.Symbol), models.ErrPriceUnavailable)
	}
	r.res.Plan.Price = price
	r.advance(models.StatePriceFetched, models.ConditionQuoteParsed)

	strikes := CalculateStrikes(price, p.BuyPct, p.SellPct)
	if strikes.Buy >= strikes.Sell {
		r.log.WithFields(logrus.Fields{"buy_strike": strikes.Buy, "sell_strike": strikes.Sell}).
			Warn("Buy strike is not below sell strike")
	}
	r.res.Plan.Strikes = strikes
	r.advance(models.StateStrikesComputed, models.ConditionStrikesRounded)

	expiration := TargetExpiration(deps.Now(), p.WeeksAhead)
	r.res.Plan.Expiration = expiration
	r.advance(models.StateExpirationComputed, models.ConditionFridaySelected)

	r.log.WithFields(logrus.Fields{
		"price":       price,
		"buy_strike":  strikes.Buy,
		"sell_strike": strikes.Sell,
		"expiration":  expiration.Format("2006-01-02"),
	}).Info("Computed spread targets")

	query := CatalogQuery(p.Symbol, strikes, expiration)
	r.res.Plan.Query = query
	records, err := deps.Broker.GetOptionContracts(ctx, query)
	if err != nil {
		if errors.Is(err, models.ErrMalformedCatalog) {
			return r.fail(models.ConditionNoContracts, "failed to find suitable option contracts",
				fmt.Errorf("%w: %w", models.ErrNoMatchingContracts, err))
		}
		return r.fail(models.ConditionUpstreamFailure,
			fmt.Sprintf("failed to find suitable option contracts: %v", err), fmt.Errorf("catalog service: %w", err))
	}

	legs, ok := MatchContracts(records, strikes)
	if !ok {
		return r.fail(models.ConditionNoContracts, "failed to find suitable option contracts", models.ErrNoMatchingContracts)
	}
	r.res.Plan.Legs = legs
	r.advance(models.StateContractsMatched, models.ConditionLegsSelected)

	order, err := BuildSpreadOrder(legs.BuySymbol, legs.SellSymbol, p.Quantity, p.TimeInForce)
	if err != nil {
		return r.fail(models.ConditionInvalidParams, fmt.Sprintf("error placing bull call spread: %v", err), err)
	}
	order.ClientOrderID = deps.NewOrderID()
	r.res.Plan.Order = order

	if !submit {
		r.res.Output = fmt.Sprintf("preview: buy %s (strike %.2f), sell %s (strike %.2f), quantity %d, expiring %s",
			legs.BuySymbol, legs.BuyStrike, legs.SellSymbol, legs.SellStrike, p.Quantity, expiration.Format("2006-01-02"))
		r.log.Info("Preview only, order not submitted")
		return r.finish()
	}

	r.log.WithFields(logrus.Fields{
		"buy":             legs.BuySymbol,
		"sell":            legs.SellSymbol,
		"quantity":        p.Quantity,
		"client_order_id": order.ClientOrderID,
	}).Info("Placing bull call spread")

	resp, err := deps.Broker.PlaceMultiLegOrder(ctx, order)
	if err == nil && resp == nil {
		err = errors.New("empty order response")
	}
	if err != nil {
		return r.fail(models.ConditionUpstreamFailure,
			fmt.Sprintf("error placing bull call spread: %v", err), fmt.Errorf("order service: %w", err))
	}
	r.res.Response = resp
	r.advance(models.StateOrderPlaced, models.ConditionOrderAccepted)

	r.res.Output = resp.Raw
	r.advance(models.StateDone, models.ConditionResultReturned)
	r.log.WithField("order_id", resp.ID).Info("Bull call spread placed")
	return r.finish()
}
