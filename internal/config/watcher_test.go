package config_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/H1Skaak/g3/internal/config"
	"github.com/H1Skaak/g3/internal/filesys"
	"github.com/H1Skaak/g3/internal/mocks"
)

type WatcherTestSuite struct {
	suite.Suite
}

const (
	goodDoc = "servers:\n  - {name: socks, type: socks_proxy, escaper: direct, listen: 1080}\n"
	badDoc  = "servers:\n  - {name: socks, type: socks_proxy, listen: 1080}\n"
)

func (s *WatcherTestSuite) TestReloadKeepsOldOnFailure() {
	// Given a file that converts once and is then broken
	fsys := new(mocks.MockFS)
	fsys.On("ReadFile", "/etc/g3/g3.yaml").Return([]byte(goodDoc), nil).Once()
	fsys.On("ReadFile", "/etc/g3/g3.yaml").Return([]byte(badDoc), nil).Once()

	store := config.NewStore(nil)
	var hooks int
	w := config.NewWatcher(config.NewWithPath(fsys, "/etc/g3/g3.yaml"), store,
		config.WithReloadHook(func(old, next *config.Config) {
			hooks++
			s.Nil(old)
		}))

	// When reloading twice
	s.Require().NoError(w.Reload())
	first := store.Load()
	err := w.Reload()

	// Then the broken generation never replaces the good one
	s.ErrorIs(err, config.ErrInvalidConfig)
	s.Same(first, store.Load())
	s.Equal(1, hooks)
	fsys.AssertExpectations(s.T())
}

func (s *WatcherTestSuite) TestConcurrentReloadsChain() {
	// Given a watcher whose hook records every swap
	fsys := new(mocks.MockFS)
	fsys.On("ReadFile", "/etc/g3/g3.yaml").Return([]byte(goodDoc), nil)

	initial, err := config.Parse([]byte(goodDoc))
	s.Require().NoError(err)
	store := config.NewStore(initial)

	var (
		mu    sync.Mutex
		swaps [][2]*config.Config
	)
	w := config.NewWatcher(config.NewWithPath(fsys, "/etc/g3/g3.yaml"), store,
		config.WithReloadHook(func(old, next *config.Config) {
			mu.Lock()
			swaps = append(swaps, [2]*config.Config{old, next})
			mu.Unlock()
		}))

	// When a signal and file events reload at the same time
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(w.Reload())
		}()
	}
	wg.Wait()

	// Then every swap replaced the generation installed just before it
	s.Require().Len(swaps, 16)
	s.Same(initial, swaps[0][0])
	for i := 1; i < len(swaps); i++ {
		s.Same(swaps[i-1][1], swaps[i][0])
	}
	s.Same(swaps[len(swaps)-1][1], store.Load())
}

func (s *WatcherTestSuite) TestRunReloadsOnWrite() {
	dir := s.T().TempDir()
	path := filepath.Join(dir, "g3.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(goodDoc), 0o600))

	provider := config.NewWithPath(filesys.OS(), path)
	initial, err := provider.Load()
	s.Require().NoError(err)
	store := config.NewStore(initial)

	reloaded := make(chan *config.Config, 1)
	w := config.NewWatcher(provider, store,
		config.WithDebounce(10*time.Millisecond),
		config.WithReloadHook(func(_, next *config.Config) {
			select {
			case reloaded <- next:
			default:
			}
		}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		s.NoError(<-done)
	}()

	// When the file is rewritten, until the watcher has picked it up
	next := "servers:\n  - {name: socks, type: socks_proxy, escaper: direct, listen: 1081}\n"
	var got *config.Config
	s.Eventually(func() bool {
		_ = os.WriteFile(path, []byte(next), 0o600)
		select {
		case got = <-reloaded:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	// Then the store holds the new generation
	s.Require().NotNil(got)
	s.Same(got, store.Load())
	s.NotEqual(initial.Generation, got.Generation)
	s.Equal(uint16(1081), got.Servers[0].Listen.Address.Port())
}

func TestWatcherSuite(t *testing.T) {
	suite.Run(t, new(WatcherTestSuite))
}
