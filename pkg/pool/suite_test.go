package pool_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/objectpool/pkg/pool"
	"github.com/ajitpratap0/objectpool/pkg/testutil"
)

type poolSuite struct {
	testutil.PoolSuite
	gen *testutil.ResourceGenerator
}

func TestPoolSuite(t *testing.T) {
	suite.Run(t, new(poolSuite))
}

func (s *poolSuite) SetupTest() {
	s.PoolSuite.SetupTest()
	s.gen = &testutil.ResourceGenerator{}
}

func (s *poolSuite) TestConcurrentUseThenDispose() {
	const workers = 16

	p, err := pool.New(s.gen.Generate, pool.WithName("resources"), pool.WithLogger(s.Logger()))
	s.Require().NoError(err)

	err = s.RunConcurrently(workers, func(int) error {
		for j := 0; j < 100; j++ {
			if err := p.Use(func(*testutil.Resource) error { return nil }); err != nil {
				return err
			}
		}
		return nil
	})
	s.Require().NoError(err)

	stats := p.Stats()
	s.Equal(int64(workers*100), stats.Uses)
	s.Equal(int64(0), stats.InUse)
	s.LessOrEqual(len(s.gen.Built()), workers)

	s.Require().NoError(p.Dispose())
	for _, r := range s.gen.Built() {
		s.Equal(1, r.Closed(), "resource %d", r.ID)
	}
}

func (s *poolSuite) TestGeneratorFailureReleasesReservation() {
	boom := errors.New("dial failed")

	p, err := pool.New(s.gen.Generate, pool.WithLimit(1), pool.WithLogger(s.Logger()))
	s.Require().NoError(err)

	s.gen.FailNext(boom)
	err = p.Use(func(*testutil.Resource) error { return nil })
	s.ErrorIs(err, boom)
	s.Equal(0, p.Count())

	var id int
	s.Require().NoError(p.Use(func(r *testutil.Resource) error {
		id = r.ID
		return nil
	}))
	s.Equal(1, id)
	s.Equal(1, p.Count())
}

func (s *poolSuite) TestShimmedResourcesAreReused() {
	sp, err := pool.NewShimmed(s.gen.Generate,
		func(r *testutil.Resource) (*testutil.Resource, error) {
			return &testutil.Resource{ID: -r.ID}, nil
		},
		pool.WithLogger(s.Logger()))
	s.Require().NoError(err)

	for i := 0; i < 10; i++ {
		s.Require().NoError(sp.Use(func(shim *testutil.Resource) error {
			s.Equal(-1, shim.ID)
			return nil
		}))
	}
	s.Len(s.gen.Built(), 1)
	s.Require().NoError(sp.Dispose())
	s.Equal(1, s.gen.Built()[0].Closed())
}
