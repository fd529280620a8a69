package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/models"
	"github.com/ignatzorin/jobautomate-backend/internal/repository"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// fakeOnboardingRepo хранит состояния онбординга в памяти.
type fakeOnboardingRepo struct {
	mu     sync.Mutex
	states map[uuid.UUID]models.OnboardingState
}

func newFakeOnboardingRepo() *fakeOnboardingRepo {
	return &fakeOnboardingRepo{states: make(map[uuid.UUID]models.OnboardingState)}
}

func (r *fakeOnboardingRepo) Get(_ context.Context, sessionID uuid.UUID) (*models.OnboardingState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[sessionID]
	if !ok {
		return nil, repository.ErrOnboardingStateNotFound
	}
	return &s, nil
}

func (r *fakeOnboardingRepo) Save(_ context.Context, state *models.OnboardingState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.SessionID] = *state
	return nil
}

// fakeAuthRepo реализует AuthRepository; состояние сессии пишется в states.
type fakeAuthRepo struct {
	usersByEmail map[string]*models.User
	usersByID    map[uuid.UUID]*models.User
	sessions     map[uuid.UUID]*models.Session
	states       *fakeOnboardingRepo
}

func newFakeAuthRepo(states *fakeOnboardingRepo) *fakeAuthRepo {
	return &fakeAuthRepo{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[uuid.UUID]*models.User),
		sessions:     make(map[uuid.UUID]*models.Session),
		states:       states,
	}
}

func (m *fakeAuthRepo) Create(_ context.Context, user *models.User) error {
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrUserAlreadyExists
	}
	user.ID = uuid.New()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
	return nil
}

func (m *fakeAuthRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := m.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *fakeAuthRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := m.usersByID[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *fakeAuthRepo) UpdateLastLoginAt(_ context.Context, userID uuid.UUID) error {
	if user, ok := m.usersByID[userID]; ok {
		now := time.Now()
		user.LastLoginAt = &now
	}
	return nil
}

func (m *fakeAuthRepo) CreateSession(ctx context.Context, session *models.Session, state *models.OnboardingState) error {
	session.CreatedAt = time.Now()
	m.sessions[session.ID] = session
	state.SessionID = session.ID
	state.UserID = session.UserID
	return m.states.Save(ctx, state)
}

func (m *fakeAuthRepo) GetSessionByRefreshToken(_ context.Context, refreshToken string) (*models.Session, error) {
	for _, s := range m.sessions {
		if s.RefreshToken == refreshToken && s.ExpiresAt.After(time.Now()) {
			return s, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (m *fakeAuthRepo) RotateSession(_ context.Context, sessionID uuid.UUID, oldToken, newToken string, expiresAt time.Time) error {
	s, ok := m.sessions[sessionID]
	if !ok || s.RefreshToken != oldToken {
		return repository.ErrSessionNotFound
	}
	s.RefreshToken = newToken
	s.ExpiresAt = expiresAt
	return nil
}

func (m *fakeAuthRepo) DeleteSessionByID(_ context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return repository.ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	m.states.mu.Lock()
	delete(m.states.states, sessionID)
	m.states.mu.Unlock()
	return nil
}

// fakeCriteriaRepo хранит критерии в памяти.
type fakeCriteriaRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.SearchCriteria
}

func newFakeCriteriaRepo() *fakeCriteriaRepo {
	return &fakeCriteriaRepo{rows: make(map[uuid.UUID]models.SearchCriteria)}
}

func (r *fakeCriteriaRepo) Get(_ context.Context, userID uuid.UUID) (*models.SearchCriteria, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok {
		return nil, repository.ErrCriteriaNotFound
	}
	return &row, nil
}

func (r *fakeCriteriaRepo) Upsert(_ context.Context, c *models.SearchCriteria) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.UserID] = *c
	return nil
}

// staticCriteria реализует CriteriaSource.
type staticCriteria map[uuid.UUID]wizard.Criteria

func (s staticCriteria) Criteria(_ context.Context, userID uuid.UUID) (*wizard.Criteria, error) {
	c, ok := s[userID]
	if !ok {
		return nil, nil
	}
	c = c.Clone()
	return &c, nil
}

// recordingNotifier запоминает уведомления.
type recordingNotifier struct {
	mu       sync.Mutex
	notified []Notice
	pushed   []Notice
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, notice Notice) (*models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, notice)
	return &models.Notification{ID: uuid.New(), UserID: userID, Title: notice.Title}, nil
}

func (n *recordingNotifier) Push(_ uuid.UUID, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushed = append(n.pushed, notice)
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.notified))
	for _, x := range n.notified {
		out = append(out, x.Title)
	}
	return out
}

// mockBoard — France Travail на testify/mock.
type mockBoard struct {
	mock.Mock
}

func (m *mockBoard) AcquireToken(ctx context.Context) (*francetravail.AccessToken, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*francetravail.AccessToken), args.Error(1)
}

func (m *mockBoard) SearchOffers(ctx context.Context, params francetravail.SearchParams) (*francetravail.SearchResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*francetravail.SearchResult), args.Error(1)
}

func (m *mockBoard) GetOfferDetails(ctx context.Context, offerID string) (*francetravail.JobOffer, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*francetravail.JobOffer), args.Error(1)
}

func (m *mockBoard) SubmitApplication(ctx context.Context, params francetravail.ApplicationParams) (*francetravail.ApplicationResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*francetravail.ApplicationResult), args.Error(1)
}

// fakeApplicationRepo хранит отклики в памяти.
type fakeApplicationRepo struct {
	mu   sync.Mutex
	apps []*models.Application
}

func (r *fakeApplicationRepo) Create(_ context.Context, app *models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.apps {
		if a.UserID == app.UserID && a.OfferID == app.OfferID {
			return repository.ErrApplicationExists
		}
	}
	app.ID = uuid.New()
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	cp := *app
	r.apps = append(r.apps, &cp)
	return nil
}

func (r *fakeApplicationRepo) UpdateResult(_ context.Context, id uuid.UUID, status string, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.apps {
		if a.ID == id {
			a.Status = status
			a.ErrorMessage = errMsg
			return nil
		}
	}
	return repository.ErrApplicationNotFound
}

func (r *fakeApplicationRepo) MarkRetry(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.apps {
		if a.ID == id && a.Status == models.ApplicationStatusFailure {
			a.Status = models.ApplicationStatusPending
			a.ErrorMessage = nil
			return nil
		}
	}
	return repository.ErrApplicationNotFound
}

func (r *fakeApplicationRepo) GetByOffer(_ context.Context, userID uuid.UUID, offerID string) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.apps {
		if a.UserID == userID && a.OfferID == offerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrApplicationNotFound
}

func (r *fakeApplicationRepo) List(_ context.Context, f models.ApplicationFilter) ([]models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lo, hi := f.MatchLevel.Bounds()
	var out []models.Application
	for _, a := range r.apps {
		if a.UserID != f.UserID {
			continue
		}
		if f.MatchLevel != models.MatchLevelAll && (a.MatchPercentage == nil || *a.MatchPercentage < lo || *a.MatchPercentage > hi) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, *a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *fakeApplicationRepo) Stats(_ context.Context, userID uuid.UUID) (models.ApplicationStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total, ok, pending, failed int
	for _, a := range r.apps {
		if a.UserID != userID {
			continue
		}
		total++
		switch a.Status {
		case models.ApplicationStatusSuccess:
			ok++
		case models.ApplicationStatusPending:
			pending++
		case models.ApplicationStatusFailure:
			failed++
		}
	}
	return models.NewApplicationStats(total, ok, pending, failed), nil
}

func (r *fakeApplicationRepo) AppliedOfferIDs(_ context.Context, userID uuid.UUID) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[string]struct{})
	for _, a := range r.apps {
		if a.UserID == userID {
			set[a.OfferID] = struct{}{}
		}
	}
	return set, nil
}

func (r *fakeApplicationRepo) CountSince(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.apps {
		if a.UserID == userID && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// fakeDocumentRepo хранит метаданные документов в памяти.
type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs map[string]models.Document
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[string]models.Document)}
}

func docKey(userID uuid.UUID, kind models.DocumentKind) string {
	return userID.String() + "/" + string(kind)
}

func (r *fakeDocumentRepo) Upsert(_ context.Context, doc *models.Document) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.docs[docKey(doc.UserID, doc.Kind)].FilePath
	doc.ID = uuid.New()
	doc.CreatedAt = time.Now()
	r.docs[docKey(doc.UserID, doc.Kind)] = *doc
	return prev, nil
}

func (r *fakeDocumentRepo) GetByKind(_ context.Context, userID uuid.UUID, kind models.DocumentKind) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[docKey(userID, kind)]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	return &d, nil
}

func (r *fakeDocumentRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Document
	for _, d := range r.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (r *fakeDocumentRepo) DeleteByKind(_ context.Context, userID uuid.UUID, kind models.DocumentKind) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[docKey(userID, kind)]
	if !ok {
		return "", repository.ErrDocumentNotFound
	}
	delete(r.docs, docKey(userID, kind))
	return d.FilePath, nil
}

// memFiles — FileStorage в памяти.
type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFiles() *memFiles {
	return &memFiles{files: make(map[string][]byte)}
}

func (f *memFiles) Save(_ context.Context, userID uuid.UUID, kind, name string, r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	path := userID.String() + "/" + kind + "/" + uuid.NewString() + "_" + name
	f.files[path] = data
	return path, int64(len(data)), nil
}

func (f *memFiles) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *memFiles) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

func (f *memFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// fakeAutomationRepo хранит настройки автоматизации в памяти.
type fakeAutomationRepo struct {
	mu       sync.Mutex
	settings map[uuid.UUID]models.AutomationSettings
}

func newFakeAutomationRepo() *fakeAutomationRepo {
	return &fakeAutomationRepo{settings: make(map[uuid.UUID]models.AutomationSettings)}
}

func (r *fakeAutomationRepo) Get(_ context.Context, userID uuid.UUID) (*models.AutomationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[userID]
	if !ok {
		return models.DefaultAutomationSettings(userID), nil
	}
	return &s, nil
}

func (r *fakeAutomationRepo) Upsert(_ context.Context, s *models.AutomationSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.settings[s.UserID]
	cp := *s
	cp.LastRunAt = prev.LastRunAt
	r.settings[s.UserID] = cp
	return nil
}

func (r *fakeAutomationRepo) ListEnabled(_ context.Context) ([]models.AutomationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AutomationSettings
	for _, s := range r.settings {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeAutomationRepo) MarkRun(_ context.Context, userID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.settings[userID]
	s.LastRunAt = &at
	r.settings[userID] = s
	return nil
}
