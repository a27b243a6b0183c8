package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PoolSuite provides base functionality for pool-backed test suites.
type PoolSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	tempDir string
	logger  *zap.Logger
}

// SetupTest runs before each test in the suite
func (s *PoolSuite) SetupTest() {
	s.ctx, s.cancel = TestContext(s.T())
	s.tempDir = s.T().TempDir()
	s.logger = TestLogger(s.T())
}

// TearDownTest runs after each test in the suite
func (s *PoolSuite) TearDownTest() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Context returns the test context
func (s *PoolSuite) Context() context.Context {
	return s.ctx
}

// Logger returns a logger bound to the current test
func (s *PoolSuite) Logger() *zap.Logger {
	return s.logger
}

// TempDir returns the temporary directory path
func (s *PoolSuite) TempDir() string {
	return s.tempDir
}

// CreateTempFile creates a temporary file with content
func (s *PoolSuite) CreateTempFile(name string, content []byte) string {
	path := filepath.Join(s.tempDir, name)
	require.NoError(s.T(), os.WriteFile(path, content, 0600))
	return path
}

// RunConcurrently calls fn from workers goroutines, each handing fn its
// index, and returns the first error.
func (s *PoolSuite) RunConcurrently(workers int, fn func(i int) error) error {
	return RunConcurrently(s.ctx, workers, fn)
}

// RunConcurrently calls fn from workers goroutines and returns the first
// error. A non-positive workers count means GOMAXPROCS.
func RunConcurrently(ctx context.Context, workers int, fn func(i int) error) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	return g.Wait()
}
