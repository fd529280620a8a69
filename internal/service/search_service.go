package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/logger"
	"github.com/ignatzorin/jobautomate-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// RemoteWorkKeyword добавляется в motsCles при удалённой работе.
const RemoteWorkKeyword = "télétravail"

// ErrSearchSuperseded возвращается поиску, который был вытеснен более новым запросом того же пользователя.
var ErrSearchSuperseded = apperror.New(apperror.ErrCodeConflict, "поиск отменён более новым запросом")

var communeCode = regexp.MustCompile(`^\d[\dAB]\d{3}$`)

var experienceCodes = map[wizard.ExperienceLevel]string{
	wizard.ExperienceDebutant:     "1",
	wizard.ExperienceJunior:       "1",
	wizard.ExperienceIntermediate: "2",
	wizard.ExperienceSenior:       "3",
	wizard.ExperienceExpert:       "3",
}

// JobBoard — операции France Travail, которые использует поиск.
type JobBoard interface {
	SearchOffers(ctx context.Context, params francetravail.SearchParams) (*francetravail.SearchResult, error)
	GetOfferDetails(ctx context.Context, offerID string) (*francetravail.JobOffer, error)
}

// OfferMatch — оффер с процентом совпадения с критериями пользователя.
type OfferMatch struct {
	francetravail.JobOffer
	MatchPercentage int `json:"matchPercentage"`
}

// SearchResponse — результат поиска для API.
type SearchResponse struct {
	Offers     []OfferMatch `json:"offers"`
	TotalCount *int         `json:"totalCount,omitempty"`
	Partial    bool         `json:"partial"`
}

// SearchOverrides — параметры запроса, которые заменяют выведенные из критериев.
type SearchOverrides struct {
	Keywords     string
	Commune      string
	Distance     *int
	ContractType string
	Experience   string
	FullTime     *bool
	Page         *int
	Range        string
}

// CriteriaSource отдаёт сохранённые критерии пользователя.
type CriteriaSource interface {
	Criteria(ctx context.Context, userID uuid.UUID) (*wizard.Criteria, error)
}

type searchTicket struct {
	id     uint64
	cancel context.CancelFunc
}

// SearchService выполняет поиск офферов от имени пользователя.
// Новый поиск пользователя отменяет его предыдущий незавершённый поиск.
type SearchService struct {
	board    JobBoard
	criteria CriteriaSource
	notifier Notifier
	log      *logrus.Entry

	mu       sync.Mutex
	seq      uint64
	inflight map[uuid.UUID]searchTicket
}

// NewSearchService создаёт сервис поиска.
func NewSearchService(board JobBoard, criteria CriteriaSource, notifier Notifier) *SearchService {
	return &SearchService{
		board:    board,
		criteria: criteria,
		notifier: notifier,
		log:      logger.WithComponent("search"),
		inflight: make(map[uuid.UUID]searchTicket),
	}
}

// Search ищет офферы по сохранённым критериям пользователя с учётом overrides.
func (s *SearchService) Search(ctx context.Context, userID uuid.UUID, overrides SearchOverrides) (*SearchResponse, error) {
	criteria, err := s.criteria.Criteria(ctx, userID)
	if err != nil {
		return nil, err
	}

	base := wizard.DefaultCriteria()
	if criteria != nil {
		base = *criteria
	}
	params := applyOverrides(BuildSearchParams(base), overrides)

	resp, err := s.search(ctx, userID, base, params, true)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Push(userID, SearchSucceededNotice())
	}
	return resp, nil
}

// SearchWithCriteria ищет офферы по явно переданным критериям без уведомлений.
// Фоновый поиск не вытесняет интерактивный поиск пользователя и не вытесняется им.
func (s *SearchService) SearchWithCriteria(ctx context.Context, userID uuid.UUID, criteria wizard.Criteria, overrides SearchOverrides) (*SearchResponse, error) {
	params := applyOverrides(BuildSearchParams(criteria), overrides)
	return s.search(ctx, userID, criteria, params, false)
}

// search выполняет поиск. exclusive == true включает вытеснение: новый
// интерактивный поиск пользователя отменяет предыдущий.
func (s *SearchService) search(ctx context.Context, userID uuid.UUID, criteria wizard.Criteria, params francetravail.SearchParams, exclusive bool) (*SearchResponse, error) {
	superseded := func() bool { return false }
	if exclusive {
		var id uint64
		ctx, id = s.begin(ctx, userID)
		defer s.end(userID, id)
		superseded = func() bool { return s.superseded(userID, id) }
	}

	result, err := s.board.SearchOffers(ctx, params)
	if err != nil {
		if superseded() {
			return nil, ErrSearchSuperseded
		}
		s.log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("поиск France Travail завершился ошибкой")
		notify(ctx, s.notifier, userID, ProviderErrorNotice(err))
		return nil, upstreamError(err)
	}
	if superseded() {
		return nil, ErrSearchSuperseded
	}

	offers := make([]OfferMatch, 0, len(result.Results))
	for _, o := range result.Results {
		offers = append(offers, OfferMatch{JobOffer: o, MatchPercentage: MatchScore(criteria, o)})
	}

	return &SearchResponse{Offers: offers, TotalCount: result.TotalCount, Partial: result.Partial}, nil
}

// GetOfferDetails возвращает полный оффер с процентом совпадения.
func (s *SearchService) GetOfferDetails(ctx context.Context, userID uuid.UUID, offerID string) (*OfferMatch, error) {
	offer, err := s.board.GetOfferDetails(ctx, strings.TrimSpace(offerID))
	if err != nil {
		if isJobBoardError(err) {
			notify(ctx, s.notifier, userID, ProviderErrorNotice(err))
		}
		return nil, upstreamError(err)
	}

	criteria, err := s.criteria.Criteria(ctx, userID)
	if err != nil {
		return nil, err
	}
	base := wizard.DefaultCriteria()
	if criteria != nil {
		base = *criteria
	}

	if s.notifier != nil {
		s.notifier.Push(userID, DetailsFetchedNotice())
	}
	return &OfferMatch{JobOffer: *offer, MatchPercentage: MatchScore(base, *offer)}, nil
}

// begin регистрирует новый поиск пользователя и отменяет предыдущий.
func (s *SearchService) begin(ctx context.Context, userID uuid.UUID) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.inflight[userID]; ok {
		prev.cancel()
	}
	s.seq++
	s.inflight[userID] = searchTicket{id: s.seq, cancel: cancel}
	return ctx, s.seq
}

func (s *SearchService) end(userID uuid.UUID, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.inflight[userID]; ok && t.id == id {
		t.cancel()
		delete(s.inflight, userID)
	}
}

func (s *SearchService) superseded(userID uuid.UUID, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.inflight[userID]
	return !ok || t.id != id
}

// BuildSearchParams переводит критерии мастера в параметры поиска France Travail.
// Локация уходит в commune только если похожа на код INSEE, иначе дополняет motsCles.
func BuildSearchParams(c wizard.Criteria) francetravail.SearchParams {
	var params francetravail.SearchParams
	var words []string

	if jt := strings.TrimSpace(c.JobType); jt != "" {
		words = append(words, jt)
	}
	words = append(words, nonEmpty(c.Keywords)...)

	if code, ok := contractCodes[c.ContractType]; ok {
		params.ContractType = code
	} else if c.ContractType != wizard.ContractAny {
		words = append(words, string(c.ContractType))
	}

	if code, ok := experienceCodes[c.Experience]; ok {
		params.Experience = code
	}

	switch c.WorkSchedule {
	case wizard.ScheduleFullTime:
		v := true
		params.FullTime = &v
	case wizard.SchedulePartTime:
		v := false
		params.FullTime = &v
	}

	if c.RemoteWork {
		words = append(words, RemoteWorkKeyword)
	}

	if loc := strings.TrimSpace(c.Location); loc != "" {
		if communeCode.MatchString(loc) {
			params.Commune = loc
			d := c.Distance
			params.Distance = &d
		} else {
			words = append(words, loc)
		}
	}

	params.Keywords = strings.Join(words, ",")
	return params
}

func applyOverrides(p francetravail.SearchParams, o SearchOverrides) francetravail.SearchParams {
	if o.Keywords != "" {
		p.Keywords = o.Keywords
	}
	if o.Commune != "" {
		p.Commune = o.Commune
	}
	if o.Distance != nil {
		p.Distance = o.Distance
	}
	if o.ContractType != "" {
		p.ContractType = o.ContractType
	}
	if o.Experience != "" {
		p.Experience = o.Experience
	}
	if o.FullTime != nil {
		p.FullTime = o.FullTime
	}
	if o.Page != nil {
		p.Page = o.Page
	}
	if o.Range != "" {
		p.Range = o.Range
	}
	return p
}

// ResultRange формирует значение range для страницы размера size.
func ResultRange(page, size int) string {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 50
	}
	start := page * size
	return strconv.Itoa(start) + "-" + strconv.Itoa(start+size-1)
}
