package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"p1gateway/internal/meter"
	"p1gateway/internal/telegram"
)

// PortOpener opens the raw telegram byte stream, usually the P1 serial port.
type PortOpener func() (io.ReadCloser, error)

// SnapshotStore persists snapshots and serves history queries.
type SnapshotStore interface {
	Insert(ctx context.Context, s *meter.Snapshot) error
	History(ctx context.Context, from, to time.Time, limit int) ([]meter.Snapshot, error)
	Latest(ctx context.Context) (*meter.Snapshot, error)
}

// LatestCache caches the newest snapshot for the live endpoint.
type LatestCache interface {
	Save(ctx context.Context, s meter.Snapshot) error
	Get(ctx context.Context) (*meter.Snapshot, error)
}

// Broadcaster pushes a serialized snapshot to live stream subscribers.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// SnapshotPublisher pushes snapshots to an external broker.
type SnapshotPublisher interface {
	PublishSnapshot(s meter.Snapshot) error
}

// Archiver appends snapshots to the CSV archive.
type Archiver interface {
	Append(s meter.Snapshot) error
}

// Gateway runs the meter pipeline: frame the serial stream into telegrams,
// parse them, and fan each snapshot out to storage, cache, archive, the
// websocket hub and MQTT. Every sink but the repository is optional.
type Gateway struct {
	openPort  PortOpener
	parser    *telegram.Parser
	verifyCRC bool

	repo      SnapshotStore
	cache     LatestCache
	hub       Broadcaster
	publisher SnapshotPublisher
	archive   Archiver
	logger    *zap.Logger

	latest    atomic.Pointer[meter.Snapshot]
	parsed    atomic.Uint64
	malformed atomic.Uint64
}

// Deps groups the pipeline dependencies.
type Deps struct {
	OpenPort  PortOpener
	Parser    *telegram.Parser
	VerifyCRC bool
	Repo      SnapshotStore
	Cache     LatestCache
	Hub       Broadcaster
	Publisher SnapshotPublisher
	Archive   Archiver
	Logger    *zap.Logger
}

// NewGateway wires the pipeline.
func NewGateway(deps Deps) *Gateway {
	return &Gateway{
		openPort:  deps.OpenPort,
		parser:    deps.Parser,
		verifyCRC: deps.VerifyCRC,
		repo:      deps.Repo,
		cache:     deps.Cache,
		hub:       deps.Hub,
		publisher: deps.Publisher,
		archive:   deps.Archive,
		logger:    deps.Logger,
	}
}

// Run consumes the port until the context is canceled, reopening it with
// backoff when the stream breaks. Retry lives here, not in the parser.
func (g *Gateway) Run(ctx context.Context) error {
	const maxBackoff = time.Minute
	backoff := time.Second

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		port, err := g.openPort()
		if err != nil {
			g.logger.Warn("open meter stream failed, retrying",
				zap.Error(err), zap.Duration("backoff", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		err = g.consume(ctx, port)
		port.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		g.logger.Warn("meter stream ended, reopening", zap.Error(err))
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
	}
}

// consume frames and handles telegrams until the stream ends. Closing the
// port on cancellation unblocks the pending read.
func (g *Gateway) consume(ctx context.Context, port io.ReadCloser) error {
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()

	var scanner *telegram.Scanner
	if g.verifyCRC {
		scanner = telegram.NewScanner(port)
	} else {
		scanner = telegram.NewScannerNoCRC(port)
	}

	var lastDropped uint64
	for {
		tg, err := scanner.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if dropped := scanner.Dropped(); dropped != lastDropped {
			g.logger.Warn("dropped telegrams with bad checksum",
				zap.Uint64("count", dropped-lastDropped))
			lastDropped = dropped
		}
		g.HandleTelegram(ctx, tg)
	}
}

// HandleTelegram parses one telegram and fans the snapshot out. Malformed
// telegrams are dropped whole; per-line decode failures only skip the line.
func (g *Gateway) HandleTelegram(ctx context.Context, tg telegram.Telegram) {
	result, err := g.parser.ParseTelegram(tg)
	if err != nil {
		g.malformed.Add(1)
		g.logger.Warn("discarding malformed telegram", zap.Error(err))
		return
	}
	for _, skip := range result.Skipped {
		g.logger.Warn("skipping undecodable line",
			zap.String("code", skip.Code), zap.String("line", skip.Line), zap.Error(skip.Err))
	}
	if len(result.Readings) == 0 {
		g.logger.Debug("telegram contained no configured codes")
		return
	}

	snapshot := meter.NewSnapshot(result.Readings, time.Now())
	g.parsed.Add(1)
	g.latest.Store(&snapshot)

	if g.repo != nil {
		if err := g.repo.Insert(ctx, &snapshot); err != nil {
			g.logger.Error("persist snapshot failed", zap.Error(err))
		}
	}
	if g.cache != nil {
		if err := g.cache.Save(ctx, snapshot); err != nil {
			g.logger.Warn("cache snapshot failed", zap.Error(err))
		}
	}
	if g.archive != nil {
		if err := g.archive.Append(snapshot); err != nil {
			g.logger.Warn("csv archive failed", zap.Error(err))
		}
	}
	if g.hub != nil {
		if payload, err := json.Marshal(snapshot); err == nil {
			g.hub.Broadcast(payload)
		}
	}
	if g.publisher != nil {
		if err := g.publisher.PublishSnapshot(snapshot); err != nil {
			g.logger.Warn("mqtt publish failed", zap.Error(err))
		}
	}

	g.logger.Debug("snapshot processed",
		zap.Time("taken_at", snapshot.TakenAt),
		zap.Float64("power_kw", snapshot.PowerConsumptionKW))
}

// Latest serves the live endpoint: memory first, then cache, then storage.
func (g *Gateway) Latest(ctx context.Context) (*meter.Snapshot, error) {
	if s := g.latest.Load(); s != nil {
		return s, nil
	}
	if g.cache != nil {
		if s, err := g.cache.Get(ctx); err == nil {
			return s, nil
		}
	}
	if g.repo != nil {
		return g.repo.Latest(ctx)
	}
	return nil, errors.New("no snapshot available")
}

// History returns stored snapshots for [from, to].
func (g *Gateway) History(ctx context.Context, from, to time.Time, limit int) ([]meter.Snapshot, error) {
	return g.repo.History(ctx, from, to, limit)
}

// Stats reports pipeline counters.
func (g *Gateway) Stats() (parsed, malformed uint64) {
	return g.parsed.Load(), g.malformed.Load()
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
