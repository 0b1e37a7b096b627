package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alejandrodnm/freecollateral/config"
	"github.com/alejandrodnm/freecollateral/internal/adapters/notify"
	"github.com/alejandrodnm/freecollateral/internal/adapters/notional"
	"github.com/alejandrodnm/freecollateral/internal/adapters/onchain"
	"github.com/alejandrodnm/freecollateral/internal/adapters/storage"
	"github.com/alejandrodnm/freecollateral/internal/application/collateral"
	"github.com/alejandrodnm/freecollateral/internal/application/freecollateral"
	"github.com/alejandrodnm/freecollateral/internal/application/host"
	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/alejandrodnm/freecollateral/internal/ports"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// app agrupa las dependencias construidas a partir de la config.
type app struct {
	cfg     *config.Config
	dryRun  bool
	fetcher *collateral.Fetcher
	plugin  *freecollateral.Plugin
	host    *host.Host
	store   *storage.SQLiteStorage
	console *notify.Console
	eth     *ethclient.Client // nil en dry-run sin RPC
	nats    *notify.NATS

	closed bool
}

func wire(ctx context.Context, cfg *config.Config, dryRun bool) (*app, error) {
	a := &app{cfg: cfg, dryRun: dryRun, console: notify.NewConsole()}

	if cfg.Network.RPCURL != "" {
		eth, err := onchain.Dial(ctx, cfg.Network.RPCURL)
		if err != nil {
			return nil, err
		}
		a.eth = eth
	} else if !dryRun {
		return nil, errors.New("network.rpc_url (or ETH_RPC_URL) is required outside dry-run")
	}

	risk, err := a.riskReader()
	if err != nil {
		a.Close()
		return nil, err
	}
	oracle, err := a.priceOracle()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.fetcher = collateral.NewFetcher(collateral.Config{
		Network:     cfg.Network.Name,
		MaxAttempts: cfg.Notional.MaxAttempts,
		RetryWait:   cfg.RetryWait(),
	}, risk, oracle)
	a.plugin = freecollateral.New(a.fetcher)

	a.store, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifiers, err := a.notifiers(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.host = host.New(host.Config{
		Cooldown:      cfg.Watcher.CooldownBlocks,
		PruneSchedule: cfg.Watcher.PruneCron,
		Retention:     cfg.Retention(),
	}, freecollateral.Info, a.plugin, a.store, notifiers)

	if err := a.host.Start(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) riskReader() (ports.RiskReader, error) {
	if a.dryRun {
		slog.Info("dry-run: reading accounts from fixture", "path", a.cfg.Notional.FixturePath)
		return notional.LoadFixture(a.cfg.Notional.FixturePath)
	}
	if a.cfg.Notional.APIBase == "" {
		return nil, errors.New("notional.api_base (or NOTIONAL_API_BASE) is required outside dry-run")
	}
	return notional.NewClient(a.cfg.Notional.APIBase), nil
}

func (a *app) priceOracle() (ports.PriceOracle, error) {
	if a.dryRun || a.eth == nil {
		slog.Info("using static ETH price", "usd", a.cfg.DryRun.ETHPriceUSD)
		return onchain.StaticPrice{Price: decimal.NewFromFloat(a.cfg.DryRun.ETHPriceUSD)}, nil
	}
	return onchain.NewPriceFeed(a.eth, a.cfg.Network.PriceFeed, a.cfg.MaxPriceAge())
}

func (a *app) notifiers(ctx context.Context) (map[domain.Channel]ports.Notifier, error) {
	out := map[domain.Channel]ports.Notifier{
		domain.ChannelConsole: a.console,
	}

	if a.cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(a.cfg.Telegram.Token)
		if err != nil {
			return nil, err
		}
		out[domain.ChannelTelegram] = tg
	}

	if a.cfg.NATS.URL != "" {
		n, err := notify.DialNATS(ctx, a.cfg.NATS.URL, a.cfg.NATS.SubjectPrefix)
		if err != nil {
			return nil, err
		}
		a.nats = n
		out[domain.ChannelNATS] = n
	}

	channels := make([]domain.Channel, 0, len(out))
	for c := range out {
		channels = append(channels, c)
	}
	slog.Debug("notifiers ready", "channels", channels)
	return out, nil
}

func (a *app) blockSource() ports.BlockSource {
	if a.eth != nil {
		return onchain.NewBlockPoller(a.eth, a.cfg.PollInterval())
	}
	slog.Info("dry-run: simulating blocks", "interval", a.cfg.PollInterval())
	return onchain.NewBlockPoller(onchain.NewSimulatedHeads(0), a.cfg.PollInterval())
}

// Close libera conexiones. Idempotente.
func (a *app) Close() {
	if a.closed {
		return
	}
	a.closed = true

	if a.nats != nil {
		if err := a.nats.Close(); err != nil {
			slog.Warn("nats close failed", "err", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("storage close failed", "err", err)
		}
	}
	if a.eth != nil {
		a.eth.Close()
	}
}
