package questions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviagame/internal/dependencies/mocks"
	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/storage/memory"
	"github.com/mcoot/triviagame/internal/testutil"
)

type stubSource struct {
	categories []model.Category
	err        error
	calls      int
}

func (s *stubSource) FetchCategories(ctx context.Context) ([]model.Category, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]model.Category(nil), s.categories...), nil
}

type CatalogSuite struct {
	suite.Suite
	storage *memory.Storage
	source  *stubSource
	clock   *mocks.MockClock
	catalog *Catalog
	ctx     context.Context
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) SetupTest() {
	s.storage = memory.New()
	s.source = &stubSource{categories: []model.Category{
		{ID: 9, Name: "General Knowledge", TotalQuestions: 300},
		{ID: 17, Name: "Science & Nature", TotalQuestions: 200},
	}}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.catalog = NewCatalog(s.storage, s.source, s.clock, DefaultStaleAfter, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *CatalogSuite) TestListSyncsWhenEmpty() {
	cats, err := s.catalog.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(cats, 2)
	s.Equal("General Knowledge", cats[0].Name)
	s.Equal(1, s.source.calls)
}

func (s *CatalogSuite) TestListUsesFreshCategories() {
	_, err := s.catalog.List(s.ctx)
	s.Require().NoError(err)

	s.clock.Advance(time.Hour)
	_, err = s.catalog.List(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, s.source.calls)
}

func (s *CatalogSuite) TestListResyncsAfterADay() {
	_, err := s.catalog.List(s.ctx)
	s.Require().NoError(err)

	s.source.categories = s.source.categories[:1]
	s.clock.Advance(25 * time.Hour)

	cats, err := s.catalog.List(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, s.source.calls)
	s.Require().Len(cats, 1)
	s.Equal(model.CategoryID(9), cats[0].ID)

	_, err = s.catalog.Get(s.ctx, 17)
	s.ErrorIs(err, model.ErrCategoryNotFound)
}

func (s *CatalogSuite) TestListServesStaleOnSyncFailure() {
	_, err := s.catalog.List(s.ctx)
	s.Require().NoError(err)

	s.source.err = errors.New("upstream down")
	s.clock.Advance(25 * time.Hour)

	cats, err := s.catalog.List(s.ctx)
	s.Require().NoError(err)
	s.Len(cats, 2)
}

func (s *CatalogSuite) TestListFailsWhenNothingCached() {
	s.source.err = errors.New("upstream down")
	_, err := s.catalog.List(s.ctx)
	s.Error(err)
}

func (s *CatalogSuite) TestGet() {
	_, err := s.catalog.Sync(s.ctx)
	s.Require().NoError(err)

	cat, err := s.catalog.Get(s.ctx, 9)
	s.Require().NoError(err)
	s.Equal("General Knowledge", cat.Name)

	_, err = s.catalog.Get(s.ctx, 1234)
	s.ErrorIs(err, model.ErrCategoryNotFound)
}

func (s *CatalogSuite) TestGetSyncsWhenEmpty() {
	cat, err := s.catalog.Get(s.ctx, 17)
	s.Require().NoError(err)
	s.Equal("Science & Nature", cat.Name)
	s.Equal(1, s.source.calls)
}

type StaticProviderSuite struct {
	suite.Suite
}

func TestStaticProviderSuite(t *testing.T) {
	suite.Run(t, new(StaticProviderSuite))
}

func (s *StaticProviderSuite) TestFetchQuestionsReturnsCopies() {
	p := DemoProvider()

	qs, err := p.FetchQuestions(context.Background(), 9, 3)
	s.Require().NoError(err)
	s.Len(qs, 3)
	qs[0].IncorrectAnswers[0] = "changed"

	again, err := p.FetchQuestions(context.Background(), 9, 1)
	s.Require().NoError(err)
	s.NotEqual("changed", again[0].IncorrectAnswers[0])
}

func (s *StaticProviderSuite) TestFetchQuestionsFailsWholesale() {
	p := DemoProvider()

	_, err := p.FetchQuestions(context.Background(), 9, 50)
	s.ErrorIs(err, model.ErrProviderUnavailable)

	_, err = p.FetchQuestions(context.Background(), 999, 1)
	s.ErrorIs(err, model.ErrProviderUnavailable)
}

func (s *StaticProviderSuite) TestFetchCategories() {
	cats, err := DemoProvider().FetchCategories(context.Background())
	s.Require().NoError(err)
	s.Require().Len(cats, 1)
	s.Equal(10, cats[0].TotalQuestions)
}
