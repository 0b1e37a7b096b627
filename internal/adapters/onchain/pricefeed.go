package onchain

// pricefeed.go — USD price of the network's base asset from a Chainlink aggregator.
//
// The aggregator exposes latestRoundData() and decimals(); the answer is an
// int256 scaled by 10^decimals. Stale or non-positive answers are rejected so a
// frozen feed never produces a fake free-collateral figure.

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/ports"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidPrice is returned when the feed answers zero or a negative price.
	ErrInvalidPrice = errors.New("onchain: invalid price answer")
	// ErrStalePrice is returned when the last update is older than the allowed staleness.
	ErrStalePrice = errors.New("onchain: stale price")
)

var aggregatorABI abi.ABI

func init() {
	var err error
	aggregatorABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "decimals",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "uint8"}]
		},
		{
			"name": "latestRoundData",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [
				{"name": "roundId", "type": "uint80"},
				{"name": "answer", "type": "int256"},
				{"name": "startedAt", "type": "uint256"},
				{"name": "updatedAt", "type": "uint256"},
				{"name": "answeredInRound", "type": "uint80"}
			]
		}
	]`))
	if err != nil {
		panic("aggregator abi parse: " + err.Error())
	}
}

// PriceFeed implements ports.PriceOracle on top of a Chainlink aggregator.
type PriceFeed struct {
	caller       ethereum.ContractCaller
	feed         common.Address
	maxStaleness time.Duration
	now          func() time.Time

	mu       sync.Mutex
	decimals *uint8 // cached after the first call, the aggregator never changes it
}

var _ ports.PriceOracle = (*PriceFeed)(nil)

// NewPriceFeed creates a price feed reading the aggregator at feedAddress.
// maxStaleness <= 0 disables the staleness check.
func NewPriceFeed(caller ethereum.ContractCaller, feedAddress string, maxStaleness time.Duration) (*PriceFeed, error) {
	if !common.IsHexAddress(feedAddress) {
		return nil, fmt.Errorf("pricefeed: invalid feed address %q", feedAddress)
	}
	return &PriceFeed{
		caller:       caller,
		feed:         common.HexToAddress(feedAddress),
		maxStaleness: maxStaleness,
		now:          time.Now,
	}, nil
}

// USDPrice returns the latest answer of the feed as a decimal.
func (p *PriceFeed) USDPrice(ctx context.Context) (decimal.Decimal, error) {
	dec, err := p.feedDecimals(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricefeed: decimals: %w", err)
	}

	vals, err := p.call(ctx, "latestRoundData")
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricefeed: latestRoundData: %w", err)
	}
	if len(vals) != 5 {
		return decimal.Zero, fmt.Errorf("pricefeed: latestRoundData: unexpected %d outputs", len(vals))
	}

	answer, ok := vals[1].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("pricefeed: latestRoundData: answer is %T", vals[1])
	}
	updatedAt, ok := vals[3].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("pricefeed: latestRoundData: updatedAt is %T", vals[3])
	}

	if answer.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("pricefeed: answer %s: %w", answer, ErrInvalidPrice)
	}
	if p.maxStaleness > 0 {
		age := p.now().Sub(time.Unix(updatedAt.Int64(), 0))
		if age > p.maxStaleness {
			return decimal.Zero, fmt.Errorf("pricefeed: updated %s ago: %w", age.Truncate(time.Second), ErrStalePrice)
		}
	}

	return decimal.NewFromBigInt(answer, -int32(dec)), nil
}

// feedDecimals returns the cached decimals, asking the aggregator the first time.
func (p *PriceFeed) feedDecimals(ctx context.Context) (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.decimals != nil {
		return *p.decimals, nil
	}

	vals, err := p.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, errors.New("empty output")
	}
	d, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals is %T", vals[0])
	}
	p.decimals = &d
	return d, nil
}

// call packs a no-arg view method, executes it at the latest block and unpacks the result.
func (p *PriceFeed) call(ctx context.Context, method string) ([]any, error) {
	callData, err := aggregatorABI.Pack(method)
	if err != nil {
		return nil, err
	}

	result, err := p.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &p.feed,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, err
	}

	return aggregatorABI.Unpack(method, result)
}
