//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"kehila/internal/area/models"
	"kehila/internal/area/store"
	"kehila/pkg/platform/sentinel"
	"kehila/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.postgres != nil {
		_ = s.postgres.DB.Close()
		_ = s.postgres.Container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background()))
}

func (s *PostgresStoreSuite) area(id string, withKids bool) *models.Area {
	area, err := models.NewArea(id, withKids, "https://chat.whatsapp.com/"+id)
	s.Require().NoError(err)
	return area
}

func (s *PostgresStoreSuite) TestUpsertAndGet() {
	ctx := context.Background()

	s.Require().NoError(s.store.Upsert(ctx, s.area("kids", true)))

	got, err := s.store.Get(ctx, "kids")
	s.Require().NoError(err)
	s.True(got.WithKids)

	// Upsert with the same id overwrites.
	s.Require().NoError(s.store.Upsert(ctx, s.area("kids", false)))
	got, err = s.store.Get(ctx, "kids")
	s.Require().NoError(err)
	s.False(got.WithKids)

	_, err = s.store.Get(ctx, "ghost")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestList() {
	ctx := context.Background()

	s.Require().NoError(s.store.Upsert(ctx, s.area("kids", true)))
	s.Require().NoError(s.store.Upsert(ctx, s.area("hospitality", false)))

	areas, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(areas, 2)
	s.Equal("hospitality", areas[0].ID)
	s.Equal("kids", areas[1].ID)
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()

	s.Require().NoError(s.store.Upsert(ctx, s.area("kids", true)))
	s.Require().NoError(s.store.Delete(ctx, "kids"))

	_, err := s.store.Get(ctx, "kids")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(ctx, "kids"), sentinel.ErrNotFound)
}
