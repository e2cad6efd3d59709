package scraper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/pokebim/pricewatch/market"
	"github.com/pokebim/pricewatch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLauncher hands out unconnected browser handles and counts launches.
// The handles are never driven, only passed around.
type fakeLauncher struct {
	launches atomic.Int32
	closes   atomic.Int32
	fail     atomic.Bool
	delay    time.Duration
}

func (f *fakeLauncher) launch() (*rod.Browser, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail.Load() {
		return nil, errors.New("chromium not found")
	}
	f.launches.Add(1)
	return rod.New(), nil
}

func (f *fakeLauncher) close(*rod.Browser) error {
	f.closes.Add(1)
	return nil
}

func (f *fakeLauncher) session(idle time.Duration) *Session {
	return NewSessionWithOptions(SessionOptions{
		Launch:      f.launch,
		Close:       f.close,
		IdleTimeout: idle,
	})
}

func TestSession_ConcurrentAcquireLaunchesOnce(t *testing.T) {
	f := &fakeLauncher{delay: 20 * time.Millisecond}
	s := f.session(0)
	defer s.Close()

	const workers = 16
	var wg sync.WaitGroup
	browsers := make([]*rod.Browser, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, release, err := s.Acquire()
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			browsers[i] = b
			release()
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.launches.Load())
	for _, b := range browsers {
		assert.Same(t, browsers[0], b)
	}
	stats := s.Stats()
	assert.True(t, stats.Launched)
	assert.EqualValues(t, 1, stats.Launches)
	assert.Zero(t, stats.OpenPages)
}

func TestSession_FailedLaunchIsNotCached(t *testing.T) {
	f := &fakeLauncher{}
	f.fail.Store(true)
	s := f.session(0)
	defer s.Close()

	_, _, err := s.Acquire()
	require.Error(t, err)
	assert.False(t, s.Stats().Launched)
	assert.EqualValues(t, 1, s.Stats().LaunchFail)

	f.fail.Store(false)
	b, release, err := s.Acquire()
	require.NoError(t, err)
	defer release()
	assert.NotNil(t, b)
	assert.EqualValues(t, 1, f.launches.Load())
}

func TestSession_ReleaseIsIdempotent(t *testing.T) {
	f := &fakeLauncher{}
	s := f.session(0)
	defer s.Close()

	_, release, err := s.Acquire()
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.Stats().OpenPages)

	release()
	release()
	assert.Zero(t, s.Stats().OpenPages)
}

func TestSession_ResetRelaunches(t *testing.T) {
	f := &fakeLauncher{}
	s := f.session(0)
	defer s.Close()

	first, release, err := s.Acquire()
	require.NoError(t, err)
	release()

	s.Reset(rod.New()) // not the shared browser, ignored
	assert.True(t, s.Stats().Launched)

	s.Reset(first)
	assert.False(t, s.Stats().Launched)

	second, release, err := s.Acquire()
	require.NoError(t, err)
	release()
	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, f.launches.Load())
	assert.Eventually(t, func() bool { return f.closes.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	f := &fakeLauncher{}
	s := f.session(0)

	_, release, err := s.Acquire()
	require.NoError(t, err)
	release()

	s.Close()
	s.Close()
	assert.EqualValues(t, 1, f.closes.Load())

	_, _, err = s.Acquire()
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeScrapeFailed, models.CodeOf(err))
}

func TestSession_StatsDoesNotWaitForLaunch(t *testing.T) {
	f := &fakeLauncher{delay: 500 * time.Millisecond}
	s := f.session(0)
	defer s.Close()

	acquired := make(chan error, 1)
	go func() {
		_, release, err := s.Acquire()
		if err == nil {
			release()
		}
		acquired <- err
	}()
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	stats := s.Stats()
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.False(t, stats.Launched)

	require.NoError(t, <-acquired)
	assert.True(t, s.Stats().Launched)
}

func TestSession_CloseDuringLaunch(t *testing.T) {
	f := &fakeLauncher{delay: 100 * time.Millisecond}
	s := f.session(0)

	acquired := make(chan error, 1)
	go func() {
		_, _, err := s.Acquire()
		acquired <- err
	}()
	time.Sleep(20 * time.Millisecond)
	s.Close()

	err := <-acquired
	assert.Equal(t, models.ErrCodeScrapeFailed, models.CodeOf(err))
	assert.EqualValues(t, 1, f.closes.Load())
	assert.False(t, s.Stats().Launched)
}

func TestSession_ClosesIdleBrowser(t *testing.T) {
	f := &fakeLauncher{}
	s := f.session(30 * time.Millisecond)
	defer s.Close()

	_, release, err := s.Acquire()
	require.NoError(t, err)

	// An open page keeps the browser alive past the idle timeout.
	time.Sleep(80 * time.Millisecond)
	assert.True(t, s.Stats().Launched)

	release()
	assert.Eventually(t, func() bool { return !s.Stats().Launched }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, f.closes.Load())
}

func TestPriceScraper_InvalidURLDoesNotLaunch(t *testing.T) {
	f := &fakeLauncher{}
	s := f.session(0)
	defer s.Close()

	ps := NewPriceScraper(s, Options{Guard: market.NewGuard("")})
	for _, raw := range []string{"", "not a url", "https://example.com/cards", "ftp://www.cardmarket.com/x"} {
		_, err := ps.Scrape(context.Background(), raw)
		require.Error(t, err, raw)
		assert.Equal(t, models.ErrCodeInvalidURL, models.CodeOf(err), raw)
	}
	assert.Zero(t, f.launches.Load())
	assert.Equal(t, models.StrategyBrowser, ps.Name())
}

func TestPriceScraper_LaunchFailure(t *testing.T) {
	f := &fakeLauncher{}
	f.fail.Store(true)
	s := f.session(0)
	defer s.Close()

	ps := NewPriceScraper(s, Options{})
	_, err := ps.Scrape(context.Background(), "https://www.cardmarket.com/en/Pokemon/Products/Singles/Base-Set/Charizard")

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeScrapeFailed, models.CodeOf(err))
}
