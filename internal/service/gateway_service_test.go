package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"p1gateway/internal/meter"
	"p1gateway/internal/obis"
	"p1gateway/internal/telegram"
)

type fakeRepo struct {
	mu        sync.Mutex
	inserted  []meter.Snapshot
	latest    *meter.Snapshot
	insertErr error
}

func (f *fakeRepo) Insert(_ context.Context, s *meter.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, *s)
	return nil
}

func (f *fakeRepo) History(_ context.Context, _, _ time.Time, _ int) ([]meter.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserted, nil
}

func (f *fakeRepo) Latest(_ context.Context) (*meter.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return nil, errors.New("empty")
	}
	return f.latest, nil
}

func (f *fakeRepo) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

type fakeCache struct {
	mu     sync.Mutex
	saved  []meter.Snapshot
	cached *meter.Snapshot
}

func (f *fakeCache) Save(_ context.Context, s meter.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeCache) Get(_ context.Context) (*meter.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached == nil {
		return nil, errors.New("empty")
	}
	return f.cached, nil
}

type fakeHub struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeHub) Broadcast(payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []meter.Snapshot
}

func (f *fakePublisher) PublishSnapshot(s meter.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, s)
	return nil
}

func testTelegram() telegram.Telegram {
	return telegram.Telegram{Lines: []string{
		"/FLU5\\253769484_A",
		"0-0:1.0.0(250827123000S)",
		"1-0:1.8.1(001234.567*kWh)",
		"1-0:1.8.2(002345.678*kWh)",
		"1-0:1.7.0(00.545*kW)",
		"!A1B2",
	}}
}

func newTestGateway(repo *fakeRepo, cache *fakeCache, hub *fakeHub, pub *fakePublisher) *Gateway {
	deps := Deps{
		Parser: telegram.NewParser(obis.DefaultTable()),
		Logger: zap.NewNop(),
	}
	if repo != nil {
		deps.Repo = repo
	}
	if cache != nil {
		deps.Cache = cache
	}
	if hub != nil {
		deps.Hub = hub
	}
	if pub != nil {
		deps.Publisher = pub
	}
	return NewGateway(deps)
}

func TestHandleTelegram_FansOut(t *testing.T) {
	repo := &fakeRepo{}
	cache := &fakeCache{}
	hub := &fakeHub{}
	pub := &fakePublisher{}
	gw := newTestGateway(repo, cache, hub, pub)

	gw.HandleTelegram(context.Background(), testTelegram())

	require.Equal(t, 1, repo.insertCount())
	assert.Equal(t, 1234.567+2345.678, repo.inserted[0].TotalConsumptionKWh)
	assert.Len(t, cache.saved, 1)
	assert.Len(t, hub.payloads, 1)
	assert.Contains(t, string(hub.payloads[0]), `"power_consumption_kw":0.545`)
	assert.Len(t, pub.published, 1)

	parsed, malformed := gw.Stats()
	assert.Equal(t, uint64(1), parsed)
	assert.Zero(t, malformed)

	latest, err := gw.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.545, latest.PowerConsumptionKW)
}

func TestHandleTelegram_MalformedDropped(t *testing.T) {
	repo := &fakeRepo{}
	gw := newTestGateway(repo, nil, nil, nil)

	gw.HandleTelegram(context.Background(), telegram.Telegram{Lines: []string{
		"/FLU5\\253769484_A",
		"1-0:1.7.0(00.545*kW)",
	}})

	assert.Zero(t, repo.insertCount(), "malformed telegrams must not be partially reported")
	parsed, malformed := gw.Stats()
	assert.Zero(t, parsed)
	assert.Equal(t, uint64(1), malformed)
}

func TestHandleTelegram_PersistErrorDoesNotStopFanOut(t *testing.T) {
	repo := &fakeRepo{insertErr: errors.New("db down")}
	cache := &fakeCache{}
	gw := newTestGateway(repo, cache, nil, nil)

	gw.HandleTelegram(context.Background(), testTelegram())

	assert.Len(t, cache.saved, 1, "cache still updates when the db is down")
}

func TestHandleTelegram_NoConfiguredCodes(t *testing.T) {
	repo := &fakeRepo{}
	gw := newTestGateway(repo, nil, nil, nil)

	gw.HandleTelegram(context.Background(), telegram.Telegram{Lines: []string{
		"/FLU5\\253769484_A",
		"9-9:9.9.9(1*kW)",
		"!A1B2",
	}})

	assert.Zero(t, repo.insertCount())
}

func TestLatest_FallbackOrder(t *testing.T) {
	cachedSnapshot := meter.Snapshot{PowerConsumptionKW: 1.1}
	storedSnapshot := meter.Snapshot{PowerConsumptionKW: 2.2}

	repo := &fakeRepo{latest: &storedSnapshot}
	cache := &fakeCache{cached: &cachedSnapshot}
	gw := newTestGateway(repo, cache, nil, nil)

	// Nothing in memory: cache wins over storage.
	got, err := gw.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.1, got.PowerConsumptionKW)

	// Empty cache: storage serves.
	cache.cached = nil
	got, err = gw.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.2, got.PowerConsumptionKW)

	// A parsed telegram makes memory authoritative.
	gw.HandleTelegram(context.Background(), testTelegram())
	got, err = gw.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.545, got.PowerConsumptionKW)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := NewGateway(Deps{
		OpenPort: func() (io.ReadCloser, error) { return nil, errors.New("no port") },
		Parser:   telegram.NewParser(obis.DefaultTable()),
		Logger:   zap.NewNop(),
	})

	err := gw.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ConsumesStreamUntilEOF(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("/FLU5\\253769484_A\r\n1-0:1.7.0(00.545*kW)\r\n!")
	crc := telegram.Checksum([]byte(sb.String()))
	sb.WriteString(fmt.Sprintf("%04X\r\n", crc))

	opened := make(chan struct{}, 1)
	repo := &fakeRepo{}
	gw := NewGateway(Deps{
		OpenPort: func() (io.ReadCloser, error) {
			select {
			case opened <- struct{}{}:
				return io.NopCloser(strings.NewReader(sb.String())), nil
			default:
				return nil, errors.New("done")
			}
		},
		Parser:    telegram.NewParser(obis.DefaultTable()),
		VerifyCRC: true,
		Repo:      repo,
		Logger:    zap.NewNop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = gw.Run(ctx)

	assert.Equal(t, 1, repo.insertCount())
}
