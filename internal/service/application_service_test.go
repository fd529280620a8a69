package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

type applicationFixture struct {
	svc      *ApplicationService
	repo     *fakeApplicationRepo
	board    *mockBoard
	docs     *DocumentService
	notifier *recordingNotifier
	userID   uuid.UUID
}

func newApplicationFixture(t *testing.T) *applicationFixture {
	t.Helper()
	userID := uuid.New()
	repo := &fakeApplicationRepo{}
	board := &mockBoard{}
	notifier := &recordingNotifier{}
	docs := NewDocumentService(newFakeDocumentRepo(), newMemFiles(), nil, nil)
	criteria := staticCriteria{userID: {JobType: "Plombier", Distance: 10}}

	return &applicationFixture{
		svc:      NewApplicationService(repo, board, docs, criteria, notifier, nil),
		repo:     repo,
		board:    board,
		docs:     docs,
		notifier: notifier,
		userID:   userID,
	}
}

func plumberOffer(id string) *francetravail.JobOffer {
	return &francetravail.JobOffer{
		ID:           id,
		Title:        "Plombier chauffagiste",
		ContractType: "CDI",
		Workplace:    francetravail.Workplace{Label: "33 - Bordeaux"},
		Company:      &francetravail.Company{Name: "Eau Chaude SARL"},
	}
}

func TestApplicationService_ApplySuccess(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()

	pdf := append([]byte("%PDF-1.4\n"), make([]byte, 32)...)
	_, err := f.docs.Upload(ctx, f.userID, models.DocumentKindCV, "cv.pdf", strings.NewReader(string(pdf)))
	require.NoError(t, err)

	f.board.On("GetOfferDetails", mock.Anything, "A1").Return(plumberOffer("A1"), nil).Once()
	var attached []byte
	f.board.On("SubmitApplication", mock.Anything, mock.MatchedBy(func(p francetravail.ApplicationParams) bool {
		return p.CV != nil && p.CV.FileName == "cv.pdf" && p.OfferID == "A1" &&
			p.CandidateID == f.userID.String() && p.IdempotencyKey != "" && p.CoverLetter == "Bonjour"
	})).Run(func(args mock.Arguments) {
		attached, _ = io.ReadAll(args.Get(1).(francetravail.ApplicationParams).CV.Content)
	}).Return(&francetravail.ApplicationResult{StatusCode: 201}, nil).Once()

	app, err := f.svc.Apply(ctx, f.userID, ApplyInput{OfferID: "A1", CoverLetter: "Bonjour"})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusSuccess, app.Status)
	assert.Equal(t, "Eau Chaude SARL", app.CompanyName)
	assert.Equal(t, models.ApplicationSourceManual, app.Source)
	require.NotNil(t, app.MatchPercentage)
	assert.Equal(t, 100, *app.MatchPercentage)
	assert.Equal(t, pdf, attached)
	assert.Equal(t, []string{"Candidature envoyée"}, f.notifier.titles())

	again, err := f.svc.Apply(ctx, f.userID, ApplyInput{OfferID: "A1"})
	require.NoError(t, err)
	assert.Equal(t, app.ID, again.ID, "повторный отклик не отправляется")
	f.board.AssertExpectations(t)
}

func TestApplicationService_RetryReusesIdempotencyKey(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()

	var keys []string
	f.board.On("GetOfferDetails", mock.Anything, "B2").Return(plumberOffer("B2"), nil).Once()
	f.board.On("SubmitApplication", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.Get(1).(francetravail.ApplicationParams).IdempotencyKey)
		}).
		Return(nil, &francetravail.SubmissionError{StatusCode: 500, Err: errors.New("boom")}).Once()
	f.board.On("SubmitApplication", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.Get(1).(francetravail.ApplicationParams).IdempotencyKey)
		}).
		Return(&francetravail.ApplicationResult{StatusCode: 201}, nil).Once()

	app, err := f.svc.Apply(ctx, f.userID, ApplyInput{OfferID: "B2"})
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUnavailable, appErr.Code)
	require.NotNil(t, app)
	assert.Equal(t, models.ApplicationStatusFailure, app.Status)
	require.NotNil(t, app.ErrorMessage)
	assert.Equal(t, []string{"Erreur de candidature"}, f.notifier.titles())

	app, err = f.svc.Apply(ctx, f.userID, ApplyInput{OfferID: "B2"})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusSuccess, app.Status)
	assert.Nil(t, app.ErrorMessage)

	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])
	f.board.AssertExpectations(t)
}

func TestApplicationService_ConcurrentApplySubmitsOnce(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()

	var arrived sync.WaitGroup
	arrived.Add(2)
	f.board.On("GetOfferDetails", mock.Anything, "A1").
		Run(func(mock.Arguments) {
			arrived.Done()
			arrived.Wait()
		}).
		Return(plumberOffer("A1"), nil).Times(2)
	f.board.On("SubmitApplication", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(50 * time.Millisecond) }).
		Return(&francetravail.ApplicationResult{StatusCode: 201}, nil)

	var wg sync.WaitGroup
	results := make([]*models.Application, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Apply(ctx, f.userID, ApplyInput{OfferID: "A1"})
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Equal(t, "A1", results[i].OfferID)
	}
	assert.Equal(t, results[0].ID, results[1].ID)
	f.board.AssertNumberOfCalls(t, "SubmitApplication", 1)
	assert.Len(t, f.repo.apps, 1)
}

// contendedRetryRepo имитирует параллельный повтор, успевший перевести отклик в pending.
type contendedRetryRepo struct {
	*fakeApplicationRepo
}

func (r contendedRetryRepo) MarkRetry(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	for _, a := range r.apps {
		if a.ID == id {
			a.Status = models.ApplicationStatusPending
			a.ErrorMessage = nil
		}
	}
	r.mu.Unlock()
	return r.fakeApplicationRepo.MarkRetry(ctx, id)
}

func TestApplicationService_ConcurrentRetryReturnsExistingRecord(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()

	f.board.On("GetOfferDetails", mock.Anything, "B2").Return(plumberOffer("B2"), nil).Once()
	f.board.On("SubmitApplication", mock.Anything, mock.Anything).
		Return(nil, &francetravail.SubmissionError{StatusCode: 500}).Once()

	_, err := f.svc.Apply(ctx, f.userID, ApplyInput{OfferID: "B2"})
	require.Error(t, err)

	svc := NewApplicationService(contendedRetryRepo{f.repo}, f.board, f.docs, staticCriteria{}, f.notifier, nil)
	app, err := svc.Apply(ctx, f.userID, ApplyInput{OfferID: "B2"})
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	f.board.AssertNumberOfCalls(t, "SubmitApplication", 1)
}

func TestApplicationService_OfferDetailsFailure(t *testing.T) {
	f := newApplicationFixture(t)

	f.board.On("GetOfferDetails", mock.Anything, "C3").Return(nil, &francetravail.FetchError{StatusCode: 404})

	_, err := f.svc.Apply(context.Background(), f.userID, ApplyInput{OfferID: "C3"})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUpstream, appErr.Code)
	assert.Empty(t, f.repo.apps)
	f.board.AssertNotCalled(t, "SubmitApplication", mock.Anything, mock.Anything)
}

func TestApplicationService_ApplyValidation(t *testing.T) {
	f := newApplicationFixture(t)

	_, err := f.svc.Apply(context.Background(), f.userID, ApplyInput{})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Apply(context.Background(), f.userID, ApplyInput{OfferID: "X", CoverLetter: strings.Repeat("a", 5001)})
	assert.True(t, apperror.IsValidation(err))
}

func TestApplicationService_ListFiltersByMatchLevel(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()

	for i, score := range []int{95, 70, 20} {
		s := score
		require.NoError(t, f.repo.Create(ctx, &models.Application{
			UserID:          f.userID,
			OfferID:         string(rune('a' + i)),
			Status:          models.ApplicationStatusSuccess,
			MatchPercentage: &s,
		}))
	}

	high, err := f.svc.List(ctx, models.ApplicationFilter{UserID: f.userID, MatchLevel: models.MatchLevelHigh})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, 95, *high[0].MatchPercentage)

	all, err := f.svc.List(ctx, models.ApplicationFilter{UserID: f.userID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.List(ctx, models.ApplicationFilter{UserID: f.userID, MatchLevel: "perfect"})
	assert.True(t, apperror.IsValidation(err))

	stats, err := f.svc.Stats(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 100, stats.SuccessRate)
}

func TestApplicationService_ScoresAgainstGivenCriteria(t *testing.T) {
	f := newApplicationFixture(t)

	f.board.On("GetOfferDetails", mock.Anything, "D4").Return(plumberOffer("D4"), nil)
	f.board.On("SubmitApplication", mock.Anything, mock.Anything).Return(&francetravail.ApplicationResult{StatusCode: 201}, nil)

	criteria := wizard.Criteria{JobType: "Électricien", Location: "Paris"}
	app, err := f.svc.applyToOffer(context.Background(), f.userID, criteria, ApplyInput{OfferID: "D4"}, models.ApplicationSourceAutomation)
	require.NoError(t, err)
	assert.Equal(t, 65, *app.MatchPercentage)
	assert.Equal(t, models.ApplicationSourceAutomation, app.Source)
	assert.Empty(t, f.notifier.titles(), "автоматические отклики уведомляются сводкой")
}
