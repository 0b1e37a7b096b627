package onchain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/alejandrodnm/freecollateral/internal/ports"
	"github.com/ethereum/go-ethereum/ethclient"
)

const defaultPollInterval = 12 * time.Second // ~1 bloque en mainnet

// HeadReader is the slice of ethclient.Client the poller needs.
type HeadReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// BlockPoller implements ports.BlockSource by polling the latest block number.
// Heights skipped between two polls collapse into a single event for the newest head.
type BlockPoller struct {
	reader   HeadReader
	interval time.Duration
}

var _ ports.BlockSource = (*BlockPoller)(nil)

// NewBlockPoller creates a poller. interval <= 0 uses the mainnet block time.
func NewBlockPoller(reader HeadReader, interval time.Duration) *BlockPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &BlockPoller{reader: reader, interval: interval}
}

// Blocks reads the current head and starts polling. The first event is the
// first head newer than the one seen at start. The channel closes when ctx is done.
func (p *BlockPoller) Blocks(ctx context.Context) (<-chan domain.BlockEvent, error) {
	start, err := p.reader.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("blocks: initial block number: %w", err)
	}
	slog.Info("block poller starting", "head", start, "interval", p.interval)

	out := make(chan domain.BlockEvent, 1)
	go p.loop(ctx, start, out)
	return out, nil
}

func (p *BlockPoller) loop(ctx context.Context, last uint64, out chan<- domain.BlockEvent) {
	defer close(out)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			head, err := p.reader.BlockNumber(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("block poller: block number failed", "err", err)
				continue
			}
			if head <= last {
				continue
			}
			if head > last+1 {
				slog.Debug("block poller: skipped heights", "from", last+1, "to", head-1)
			}
			last = head

			select {
			case out <- domain.BlockEvent{Number: head, SeenAt: time.Now().UTC()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Dial connects to an Ethereum JSON-RPC endpoint (http, ws or ipc).
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain.Dial: %s: %w", rpcURL, err)
	}
	return client, nil
}

// SimulatedHeads is a HeadReader that advances one block per call. Used by
// dry-run when no RPC endpoint is configured.
type SimulatedHeads struct {
	mu   sync.Mutex
	head uint64
}

// NewSimulatedHeads starts the simulated chain at head.
func NewSimulatedHeads(head uint64) *SimulatedHeads {
	return &SimulatedHeads{head: head}
}

// BlockNumber returns the next height.
func (s *SimulatedHeads) BlockNumber(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head++
	return s.head, nil
}
