package handlers

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/jobautomate-backend/internal/http/middleware"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/service"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

func newTestRouter(ref *service.SessionRef) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if ref != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserIDKey, ref.UserID)
			c.Set(middleware.ContextSessionIDKey, ref.SessionID)
			c.Next()
		})
	}
	return r
}

func newSessionRef() *service.SessionRef {
	return &service.SessionRef{UserID: uuid.New(), SessionID: uuid.New()}
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Register(ctx context.Context, in service.RegisterInput, meta service.SessionMeta) (*service.AuthResult, error) {
	args := m.Called(ctx, in, meta)
	res, _ := args.Get(0).(*service.AuthResult)
	return res, args.Error(1)
}

func (m *mockAuth) Login(ctx context.Context, in service.LoginInput, meta service.SessionMeta) (*service.AuthResult, error) {
	args := m.Called(ctx, in, meta)
	res, _ := args.Get(0).(*service.AuthResult)
	return res, args.Error(1)
}

func (m *mockAuth) Refresh(ctx context.Context, oldToken string) (*service.TokenPair, error) {
	args := m.Called(ctx, oldToken)
	res, _ := args.Get(0).(*service.TokenPair)
	return res, args.Error(1)
}

func (m *mockAuth) Logout(ctx context.Context, ref service.SessionRef) error {
	return m.Called(ctx, ref).Error(0)
}

type mockWizard struct{ mock.Mock }

func (m *mockWizard) Start(ctx context.Context, ref service.SessionRef) (wizard.Snapshot, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(wizard.Snapshot), args.Error(1)
}

func (m *mockWizard) Get(ref service.SessionRef) (wizard.Snapshot, error) {
	args := m.Called(ref)
	return args.Get(0).(wizard.Snapshot), args.Error(1)
}

func (m *mockWizard) Update(ref service.SessionRef, patch wizard.Patch) (wizard.Snapshot, error) {
	args := m.Called(ref, patch)
	return args.Get(0).(wizard.Snapshot), args.Error(1)
}

func (m *mockWizard) AddKeyword(ref service.SessionRef, keyword string) (wizard.Snapshot, error) {
	args := m.Called(ref, keyword)
	return args.Get(0).(wizard.Snapshot), args.Error(1)
}

func (m *mockWizard) RemoveKeyword(ref service.SessionRef, keyword string) (wizard.Snapshot, error) {
	args := m.Called(ref, keyword)
	return args.Get(0).(wizard.Snapshot), args.Error(1)
}

func (m *mockWizard) Next(ctx context.Context, ref service.SessionRef) (*service.WizardResult, error) {
	args := m.Called(ctx, ref)
	res, _ := args.Get(0).(*service.WizardResult)
	return res, args.Error(1)
}

func (m *mockWizard) Back(ref service.SessionRef) (wizard.Snapshot, error) {
	args := m.Called(ref)
	return args.Get(0).(wizard.Snapshot), args.Error(1)
}

func (m *mockWizard) Discard(ref service.SessionRef) {
	m.Called(ref)
}

type mockSearch struct{ mock.Mock }

func (m *mockSearch) Search(ctx context.Context, userID uuid.UUID, overrides service.SearchOverrides) (*service.SearchResponse, error) {
	args := m.Called(ctx, userID, overrides)
	res, _ := args.Get(0).(*service.SearchResponse)
	return res, args.Error(1)
}

func (m *mockSearch) GetOfferDetails(ctx context.Context, userID uuid.UUID, offerID string) (*service.OfferMatch, error) {
	args := m.Called(ctx, userID, offerID)
	res, _ := args.Get(0).(*service.OfferMatch)
	return res, args.Error(1)
}

type mockApplications struct{ mock.Mock }

func (m *mockApplications) Apply(ctx context.Context, userID uuid.UUID, in service.ApplyInput) (*models.Application, error) {
	args := m.Called(ctx, userID, in)
	res, _ := args.Get(0).(*models.Application)
	return res, args.Error(1)
}

func (m *mockApplications) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	args := m.Called(ctx, filter)
	res, _ := args.Get(0).([]models.Application)
	return res, args.Error(1)
}

func (m *mockApplications) Stats(ctx context.Context, userID uuid.UUID) (models.ApplicationStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.ApplicationStats), args.Error(1)
}

type mockDocuments struct{ mock.Mock }

func (m *mockDocuments) Upload(ctx context.Context, userID uuid.UUID, kind models.DocumentKind, filename string, r io.Reader) (*models.Document, error) {
	args := m.Called(ctx, userID, kind, filename, r)
	res, _ := args.Get(0).(*models.Document)
	return res, args.Error(1)
}

func (m *mockDocuments) List(ctx context.Context, userID uuid.UUID) ([]models.Document, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).([]models.Document)
	return res, args.Error(1)
}

func (m *mockDocuments) Open(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) (*models.Document, io.ReadCloser, error) {
	args := m.Called(ctx, userID, kind)
	doc, _ := args.Get(0).(*models.Document)
	rc, _ := args.Get(1).(io.ReadCloser)
	return doc, rc, args.Error(2)
}

func (m *mockDocuments) Delete(ctx context.Context, userID uuid.UUID, kind models.DocumentKind) error {
	return m.Called(ctx, userID, kind).Error(0)
}

type mockNotifications struct{ mock.Mock }

func (m *mockNotifications) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	res, _ := args.Get(0).([]models.Notification)
	return res, args.Error(1)
}

func (m *mockNotifications) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockNotifications) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockNotifications) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockNotifications) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
