package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

func offerIDIs(id string) interface{} {
	return mock.MatchedBy(func(p francetravail.ApplicationParams) bool { return p.OfferID == id })
}

func TestAutomationService_RunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	active := uuid.New()
	noCV := uuid.New()
	notDue := uuid.New()

	automation := newFakeAutomationRepo()
	recent := now.Add(-time.Hour)
	automation.settings[active] = models.AutomationSettings{UserID: active, Enabled: true, Frequency: "daily", MaxApplicationsPerDay: 3}
	automation.settings[noCV] = models.AutomationSettings{UserID: noCV, Enabled: true, Frequency: "daily", MaxApplicationsPerDay: 3}
	automation.settings[notDue] = models.AutomationSettings{UserID: notDue, Enabled: true, Frequency: "weekly", MaxApplicationsPerDay: 3, LastRunAt: &recent}

	criteria := staticCriteria{
		active: {JobType: "Cuisinier", Distance: 10},
		noCV:   {JobType: "Serveur", Distance: 10},
		notDue: {JobType: "Chef", Distance: 10},
	}

	apps := &fakeApplicationRepo{}
	require.NoError(t, apps.Create(ctx, &models.Application{UserID: active, OfferID: "old", Status: models.ApplicationStatusSuccess}))

	docs := NewDocumentService(newFakeDocumentRepo(), newMemFiles(), nil, nil)
	_, err := docs.Upload(ctx, active, models.DocumentKindCV, "cv.pdf", bytes.NewReader(pdfBytes(64)))
	require.NoError(t, err)

	board := &mockBoard{}
	board.On("SearchOffers", mock.Anything, mock.MatchedBy(func(p francetravail.SearchParams) bool {
		return p.Range == AutomationSearchRange && p.Keywords == "Cuisinier"
	})).Return(&francetravail.SearchResult{Results: []francetravail.JobOffer{
		{ID: "old"}, {ID: "n1"}, {ID: "n2"}, {ID: "n3"},
	}}, nil).Once()
	board.On("GetOfferDetails", mock.Anything, "n1").Return(&francetravail.JobOffer{ID: "n1", Title: "Cuisinier"}, nil)
	board.On("GetOfferDetails", mock.Anything, "n2").Return(&francetravail.JobOffer{ID: "n2", Title: "Commis"}, nil)
	board.On("SubmitApplication", mock.Anything, offerIDIs("n1")).Return(&francetravail.ApplicationResult{StatusCode: 201}, nil)
	board.On("SubmitApplication", mock.Anything, offerIDIs("n2")).
		Return(nil, &francetravail.SubmissionError{StatusCode: 400, Err: errors.New("offre expirée")})

	notifier := &recordingNotifier{}
	search := NewSearchService(board, criteria, notifier)
	applications := NewApplicationService(apps, board, docs, criteria, notifier, nil)
	svc := NewAutomationService(automation, apps, criteria, docs, search, applications, notifier)
	svc.now = func() time.Time { return now }

	report, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunReport{Users: 1, Sent: 1, Failed: 1, Skipped: 1}, report)

	n1, err := apps.GetByOffer(ctx, active, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusSuccess, n1.Status)
	assert.Equal(t, models.ApplicationSourceAutomation, n1.Source)

	_, err = apps.GetByOffer(ctx, active, "n3")
	assert.Error(t, err, "лимит исчерпан до n3")

	st, _ := automation.Get(ctx, active)
	require.NotNil(t, st.LastRunAt)
	assert.Equal(t, now, *st.LastRunAt)

	titles := notifier.titles()
	assert.Contains(t, titles, "Candidatures automatiques")
	assert.NotContains(t, titles, "Candidature envoyée")

	report, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunReport{Skipped: 1}, report, "активный пользователь уже обработан сегодня")
	board.AssertExpectations(t)
}

func TestAutomationService_BudgetExhausted(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	automation := newFakeAutomationRepo()
	automation.settings[userID] = models.AutomationSettings{UserID: userID, Enabled: true, Frequency: "daily", MaxApplicationsPerDay: 1}

	apps := &fakeApplicationRepo{}
	require.NoError(t, apps.Create(ctx, &models.Application{UserID: userID, OfferID: "today", Status: models.ApplicationStatusSuccess}))

	docs := NewDocumentService(newFakeDocumentRepo(), newMemFiles(), nil, nil)
	_, err := docs.Upload(ctx, userID, models.DocumentKindCV, "cv.pdf", bytes.NewReader(pdfBytes(64)))
	require.NoError(t, err)

	criteria := staticCriteria{userID: wizard.DefaultCriteria()}
	board := &mockBoard{}
	svc := NewAutomationService(automation, apps, criteria, docs,
		NewSearchService(board, criteria, nil), NewApplicationService(apps, board, docs, criteria, nil, nil), nil)

	report, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, RunReport{Users: 1}, report)
	board.AssertNotCalled(t, "SearchOffers", mock.Anything, mock.Anything)

	st, _ := automation.Get(ctx, userID)
	assert.NotNil(t, st.LastRunAt)
}

func TestAutomationService_StartRejectsBadSchedule(t *testing.T) {
	svc := NewAutomationService(newFakeAutomationRepo(), &fakeApplicationRepo{}, staticCriteria{}, nil, nil, nil, nil)

	err := svc.Start(context.Background(), "not a schedule")
	assert.Error(t, err)

	require.NoError(t, svc.Start(context.Background(), "@every 1h"))
	require.NoError(t, svc.Start(context.Background(), "@every 1h"), "повторный Start ничего не делает")
	svc.Stop()
	svc.Stop()
}
