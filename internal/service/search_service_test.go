package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

func TestBuildSearchParams(t *testing.T) {
	tests := []struct {
		name     string
		criteria wizard.Criteria
		check    func(t *testing.T, p francetravail.SearchParams)
	}{
		{
			name:     "пустые критерии",
			criteria: wizard.DefaultCriteria(),
			check: func(t *testing.T, p francetravail.SearchParams) {
				assert.Empty(t, p.Query())
			},
		},
		{
			name: "полный набор с кодом INSEE",
			criteria: wizard.Criteria{
				JobType:      "Développeur",
				Location:     "75056",
				Distance:     25,
				ContractType: wizard.ContractCDI,
				WorkSchedule: wizard.ScheduleFullTime,
				Experience:   wizard.ExperienceSenior,
				Keywords:     []string{"go", " "},
				RemoteWork:   true,
			},
			check: func(t *testing.T, p francetravail.SearchParams) {
				q := p.Query()
				assert.Equal(t, "Développeur,go,télétravail", q.Get("motsCles"))
				assert.Equal(t, "75056", q.Get("commune"))
				assert.Equal(t, "25", q.Get("distance"))
				assert.Equal(t, "CDI", q.Get("typeContrat"))
				assert.Equal(t, "3", q.Get("experience"))
				assert.Equal(t, "true", q.Get("tempsPlein"))
			},
		},
		{
			name:     "название города уходит в ключевые слова",
			criteria: wizard.Criteria{Location: "Lyon", Distance: 10, WorkSchedule: wizard.SchedulePartTime},
			check: func(t *testing.T, p francetravail.SearchParams) {
				q := p.Query()
				assert.Equal(t, "Lyon", q.Get("motsCles"))
				assert.False(t, q.Has("commune"))
				assert.False(t, q.Has("distance"))
				assert.Equal(t, "false", q.Get("tempsPlein"))
			},
		},
		{
			name:     "корсиканский код и стажировка",
			criteria: wizard.Criteria{Location: "2A004", Distance: 0, ContractType: wizard.ContractStage, WorkSchedule: wizard.ScheduleFlexible},
			check: func(t *testing.T, p francetravail.SearchParams) {
				q := p.Query()
				assert.Equal(t, "2A004", q.Get("commune"))
				assert.Equal(t, "0", q.Get("distance"))
				assert.Equal(t, "stage", q.Get("motsCles"))
				assert.False(t, q.Has("typeContrat"))
				assert.False(t, q.Has("tempsPlein"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, BuildSearchParams(tt.criteria))
		})
	}
}

func TestResultRange(t *testing.T) {
	assert.Equal(t, "0-49", ResultRange(0, 50))
	assert.Equal(t, "20-29", ResultRange(2, 10))
	assert.Equal(t, "0-49", ResultRange(-1, 0))
}

func TestSearchService_SearchScoresAndNotifies(t *testing.T) {
	userID := uuid.New()
	board := &mockBoard{}
	notifier := &recordingNotifier{}
	criteria := staticCriteria{userID: {JobType: "Boulanger", Keywords: []string{"pain"}, Distance: 10}}
	svc := NewSearchService(board, criteria, notifier)

	total := 2
	board.On("SearchOffers", mock.Anything, mock.MatchedBy(func(p francetravail.SearchParams) bool {
		return p.Keywords == "Boulanger,pain" && p.Range == "0-9"
	})).Return(&francetravail.SearchResult{
		Results: []francetravail.JobOffer{
			{ID: "1", Title: "Boulanger", Description: "Fabrication du pain"},
			{ID: "2", Title: "Caissier"},
		},
		TotalCount: &total,
	}, nil)

	resp, err := svc.Search(context.Background(), userID, SearchOverrides{Range: "0-9"})
	require.NoError(t, err)
	require.Len(t, resp.Offers, 2)
	assert.Equal(t, 100, resp.Offers[0].MatchPercentage)
	assert.Equal(t, 30, resp.Offers[1].MatchPercentage)
	assert.Equal(t, &total, resp.TotalCount)

	require.Len(t, notifier.pushed, 1)
	assert.Equal(t, "Recherche réussie", notifier.pushed[0].Title)
	assert.Empty(t, notifier.notified)
	board.AssertExpectations(t)
}

func TestSearchService_SearchFailure(t *testing.T) {
	userID := uuid.New()
	board := &mockBoard{}
	notifier := &recordingNotifier{}
	svc := NewSearchService(board, staticCriteria{}, notifier)

	board.On("SearchOffers", mock.Anything, mock.Anything).
		Return(nil, &francetravail.SearchError{StatusCode: 503, Err: errors.New("maintenance")})

	_, err := svc.Search(context.Background(), userID, SearchOverrides{})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUnavailable, appErr.Code)
	assert.Equal(t, []string{"Erreur de recherche"}, notifier.titles())
	assert.Empty(t, notifier.pushed)
}

// blockingBoard блокирует первый поиск до отмены контекста.
type blockingBoard struct {
	mockBoard
	started chan struct{}
	once    sync.Once
}

func (b *blockingBoard) SearchOffers(ctx context.Context, params francetravail.SearchParams) (*francetravail.SearchResult, error) {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.started)
		<-ctx.Done()
		return nil, &francetravail.SearchError{Err: ctx.Err()}
	}
	return &francetravail.SearchResult{Results: []francetravail.JobOffer{{ID: "new"}}}, nil
}

func TestSearchService_NewSearchSupersedesPrevious(t *testing.T) {
	userID := uuid.New()
	board := &blockingBoard{started: make(chan struct{})}
	svc := NewSearchService(board, staticCriteria{}, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Search(context.Background(), userID, SearchOverrides{})
		errCh <- err
	}()

	select {
	case <-board.started:
	case <-time.After(time.Second):
		t.Fatal("первый поиск не начался")
	}

	resp, err := svc.Search(context.Background(), userID, SearchOverrides{})
	require.NoError(t, err)
	require.Len(t, resp.Offers, 1)
	assert.Equal(t, "new", resp.Offers[0].ID)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrSearchSuperseded)
	case <-time.After(time.Second):
		t.Fatal("первый поиск не завершился")
	}
}

// gatedBoard держит первый поиск до release или отмены его контекста.
type gatedBoard struct {
	mockBoard
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *gatedBoard) SearchOffers(ctx context.Context, params francetravail.SearchParams) (*francetravail.SearchResult, error) {
	first := false
	b.once.Do(func() { first = true })
	if !first {
		return &francetravail.SearchResult{Results: []francetravail.JobOffer{{ID: "second"}}}, nil
	}
	close(b.started)
	select {
	case <-ctx.Done():
		return nil, &francetravail.SearchError{Err: ctx.Err()}
	case <-b.release:
		return &francetravail.SearchResult{Results: []francetravail.JobOffer{{ID: "first"}}}, nil
	}
}

func TestSearchService_BackgroundAndInteractiveSearchesDoNotSupersede(t *testing.T) {
	criteria := wizard.Criteria{JobType: "Plombier", Distance: 10}

	cases := []struct {
		name   string
		first  func(svc *SearchService, userID uuid.UUID) (*SearchResponse, error)
		second func(svc *SearchService, userID uuid.UUID) (*SearchResponse, error)
	}{
		{
			name: "фоновый поиск во время интерактивного",
			first: func(svc *SearchService, userID uuid.UUID) (*SearchResponse, error) {
				return svc.Search(context.Background(), userID, SearchOverrides{})
			},
			second: func(svc *SearchService, userID uuid.UUID) (*SearchResponse, error) {
				return svc.SearchWithCriteria(context.Background(), userID, criteria, SearchOverrides{Range: AutomationSearchRange})
			},
		},
		{
			name: "интерактивный поиск во время фонового",
			first: func(svc *SearchService, userID uuid.UUID) (*SearchResponse, error) {
				return svc.SearchWithCriteria(context.Background(), userID, criteria, SearchOverrides{Range: AutomationSearchRange})
			},
			second: func(svc *SearchService, userID uuid.UUID) (*SearchResponse, error) {
				return svc.Search(context.Background(), userID, SearchOverrides{})
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userID := uuid.New()
			board := &gatedBoard{started: make(chan struct{}), release: make(chan struct{})}
			svc := NewSearchService(board, staticCriteria{}, nil)

			type outcome struct {
				resp *SearchResponse
				err  error
			}
			firstCh := make(chan outcome, 1)
			go func() {
				resp, err := tc.first(svc, userID)
				firstCh <- outcome{resp, err}
			}()

			select {
			case <-board.started:
			case <-time.After(time.Second):
				t.Fatal("первый поиск не начался")
			}

			resp, err := tc.second(svc, userID)
			require.NoError(t, err)
			require.Len(t, resp.Offers, 1)
			assert.Equal(t, "second", resp.Offers[0].ID)

			select {
			case out := <-firstCh:
				t.Fatalf("первый поиск прерван: %v", out.err)
			case <-time.After(50 * time.Millisecond):
			}

			close(board.release)
			select {
			case out := <-firstCh:
				require.NoError(t, out.err)
				require.Len(t, out.resp.Offers, 1)
				assert.Equal(t, "first", out.resp.Offers[0].ID)
			case <-time.After(time.Second):
				t.Fatal("первый поиск не завершился")
			}
		})
	}
}

func TestSearchService_GetOfferDetails(t *testing.T) {
	userID := uuid.New()
	board := &mockBoard{}
	notifier := &recordingNotifier{}
	svc := NewSearchService(board, staticCriteria{}, notifier)

	board.On("GetOfferDetails", mock.Anything, "123ABC").Return(&francetravail.JobOffer{ID: "123ABC", Title: "Plombier"}, nil)
	board.On("GetOfferDetails", mock.Anything, "404").Return(nil, &francetravail.FetchError{StatusCode: 404})

	offer, err := svc.GetOfferDetails(context.Background(), userID, " 123ABC ")
	require.NoError(t, err)
	assert.Equal(t, "Plombier", offer.Title)
	assert.Equal(t, 100, offer.MatchPercentage)
	require.Len(t, notifier.pushed, 1)
	assert.Equal(t, "Détails récupérés", notifier.pushed[0].Title)

	_, err = svc.GetOfferDetails(context.Background(), userID, "404")
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUpstream, appErr.Code)
	assert.Equal(t, []string{"Erreur de récupération"}, notifier.titles())
}
