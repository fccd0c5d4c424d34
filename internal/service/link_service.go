package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/SergeiKhy/linkhub/internal/models"
	"github.com/SergeiKhy/linkhub/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ошибки сервиса
var (
	ErrInvalidURL         = errors.New("невалидный URL")
	ErrInvalidCode        = errors.New("невалидный кастомный код")
	ErrMissingCustomer    = errors.New("не указан клиент")
	ErrInvalidEdit        = errors.New("невалидные параметры редактирования")
	ErrNothingUpdated     = errors.New("ни одна ссылка не изменена")
	ErrCodeSpaceExhausted = errors.New("не удалось подобрать свободный код")
)

// Комиссия партнёра по умолчанию, в процентах
const defaultAffiliateCommission = 10.0

// LinkService интерфейс сервиса ссылок
type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error)
	GetLink(ctx context.Context, code string) (*models.Link, error)
	ListLinks(ctx context.Context, customerID string) ([]models.LinkSummary, error)
	UpdateLink(ctx context.Context, customerID, linkID, newURL string) (*models.Link, error)
	BulkEdit(ctx context.Context, input *models.BulkEditInput) (int, error)
	DeleteLinks(ctx context.Context, customerID string, linkIDs []string) (int, error)
}

// CodeGenerator выдаёт случайный код заданной длины
type CodeGenerator func(length int) (string, error)

// LinkServiceOption настраивает linkService
type LinkServiceOption func(*linkService)

// WithCodeGenerator подменяет генератор кодов
func WithCodeGenerator(gen CodeGenerator) LinkServiceOption {
	return func(s *linkService) { s.generate = gen }
}

// WithClock подменяет источник времени
func WithClock(now func() time.Time) LinkServiceOption {
	return func(s *linkService) { s.now = now }
}

// linkService реализация сервиса ссылок
type linkService struct {
	store    repository.DocumentStore
	resolver *Resolver
	logger   *zap.Logger
	generate CodeGenerator
	now      func() time.Time
}

// NewLinkService создаёт новый экземпляр сервиса
func NewLinkService(store repository.DocumentStore, resolver *Resolver, logger *zap.Logger, opts ...LinkServiceOption) LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &linkService{
		store:    store,
		resolver: resolver,
		logger:   logger,
		generate: GenerateShortCode,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLink создаёт новую короткую ссылку. Проверка уникальности кода и вставка
// выполняются внутри одной транзакции хранилища.
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error) {
	if input.CustomerID == "" {
		return nil, ErrMissingCustomer
	}

	// Валидация до любых изменений хранилища
	if !IsValidURL(input.OriginalURL) {
		return nil, ErrInvalidURL
	}
	if input.CustomCode != "" && !IsValidShortCode(input.CustomCode) {
		return nil, ErrInvalidCode
	}

	var created models.Link
	err := s.store.Update(ctx, func(doc *models.Document) error {
		code := input.CustomCode
		if code != "" {
			if _, exists := doc.Links[code]; exists {
				return repository.ErrCodeExists
			}
		} else {
			var err error
			if code, err = s.freeCode(doc); err != nil {
				return err
			}
		}

		commission := defaultAffiliateCommission
		link := &models.Link{
			ID:                  uuid.NewString(),
			OriginalURL:         input.OriginalURL,
			ShortCode:           code,
			CustomerID:          input.CustomerID,
			CreatedAt:           s.now().UTC(),
			CustomCode:          input.CustomCode != "",
			AffiliateCode:       input.CustomerID,
			AffiliateCommission: &commission,
		}
		doc.Links[code] = link
		doc.Stats[code] = []models.Click{}

		created = *link
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.resolver.Prime(ctx, &created)

	s.logger.Info("Link created",
		zap.String("short_code", created.ShortCode),
		zap.String("customer_id", created.CustomerID),
		zap.Bool("custom_code", created.CustomCode),
	)
	return &created, nil
}

// freeCode генерирует коды, пока не найдёт свободный; число попыток ограничено
func (s *linkService) freeCode(doc *models.Document) (string, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		code, err := s.generate(DefaultCodeLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		if _, exists := doc.Links[code]; !exists {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// GetLink получает ссылку по короткому коду (сначала из кэша, затем из хранилища)
func (s *linkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	return s.resolver.Resolve(ctx, code)
}

// ListLinks возвращает ссылки клиента, новые первыми
func (s *linkService) ListLinks(ctx context.Context, customerID string) ([]models.LinkSummary, error) {
	if customerID == "" {
		return nil, ErrMissingCustomer
	}

	doc := s.store.Read(ctx)
	links := make([]models.LinkSummary, 0)
	for code, link := range doc.Links {
		if link.CustomerID != customerID {
			continue
		}
		links = append(links, models.LinkSummary{
			ID:          link.ID,
			ShortCode:   code,
			OriginalURL: link.OriginalURL,
			Clicks:      len(doc.Stats[code]),
			CreatedAt:   link.CreatedAt,
			CustomCode:  link.CustomCode,
		})
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ShortCode < links[j].ShortCode
		}
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return links, nil
}

// UpdateLink меняет адрес назначения одной ссылки клиента
func (s *linkService) UpdateLink(ctx context.Context, customerID, linkID, newURL string) (*models.Link, error) {
	if customerID == "" {
		return nil, ErrMissingCustomer
	}
	if !IsValidURL(newURL) {
		return nil, ErrInvalidURL
	}

	var updated models.Link
	err := s.store.Update(ctx, func(doc *models.Document) error {
		link, ok := doc.FindByID(linkID)
		if !ok || link.CustomerID != customerID {
			return repository.ErrLinkNotFound
		}
		link.OriginalURL = newURL
		updated = *link
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Иначе редирект отдавал бы старый адрес до истечения TTL
	s.resolver.Invalidate(ctx, updated.ShortCode)
	return &updated, nil
}

// BulkEdit переписывает адреса нескольких ссылок: заменой целиком или по регулярному выражению
func (s *linkService) BulkEdit(ctx context.Context, input *models.BulkEditInput) (int, error) {
	if input.CustomerID == "" {
		return 0, ErrMissingCustomer
	}
	if len(input.LinkIDs) == 0 {
		return 0, ErrInvalidEdit
	}

	rewrite, err := bulkRewriter(input)
	if err != nil {
		return 0, err
	}

	wanted := make(map[string]bool, len(input.LinkIDs))
	for _, id := range input.LinkIDs {
		wanted[id] = true
	}

	var changed []string
	err = s.store.Update(ctx, func(doc *models.Document) error {
		for code, link := range doc.Links {
			if !wanted[link.ID] || link.CustomerID != input.CustomerID {
				continue
			}
			next := rewrite(link.OriginalURL)
			if next == "" || next == link.OriginalURL || !IsValidURL(next) {
				continue
			}
			link.OriginalURL = next
			changed = append(changed, code)
		}
		if len(changed) == 0 {
			return ErrNothingUpdated
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.resolver.Invalidate(ctx, changed...)
	return len(changed), nil
}

func bulkRewriter(input *models.BulkEditInput) (func(string) string, error) {
	switch input.Mode {
	case models.BulkEditReplace:
		if !IsValidURL(input.NewURL) {
			return nil, ErrInvalidURL
		}
		return func(string) string { return input.NewURL }, nil
	case models.BulkEditFindReplace:
		if input.FindText == "" || input.ReplaceText == "" {
			return nil, ErrInvalidEdit
		}
		re, err := regexp.Compile(input.FindText)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEdit, err)
		}
		return func(old string) string { return re.ReplaceAllString(old, input.ReplaceText) }, nil
	default:
		return nil, ErrInvalidEdit
	}
}

// DeleteLinks удаляет ссылки клиента вместе с их кликами
func (s *linkService) DeleteLinks(ctx context.Context, customerID string, linkIDs []string) (int, error) {
	if customerID == "" {
		return 0, ErrMissingCustomer
	}
	if len(linkIDs) == 0 {
		return 0, ErrInvalidEdit
	}

	var deleted []string
	err := s.store.Update(ctx, func(doc *models.Document) error {
		for _, id := range linkIDs {
			link, ok := doc.FindByID(id)
			if !ok || link.CustomerID != customerID {
				continue
			}
			delete(doc.Links, link.ShortCode)
			delete(doc.Stats, link.ShortCode)
			deleted = append(deleted, link.ShortCode)
		}
		if len(deleted) == 0 {
			return repository.ErrLinkNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.resolver.Invalidate(ctx, deleted...)
	s.logger.Info("Links deleted", zap.String("customer_id", customerID), zap.Int("count", len(deleted)))
	return len(deleted), nil
}

// AffiliateURL добавляет к адресу назначения метки l_id и a_id. Остальные параметры
// остаются как были и в том же порядке; прежние l_id и a_id заменяются.
// Если адрес не разбирается, он возвращается как есть.
func AffiliateURL(link *models.Link) string {
	u, err := url.Parse(link.OriginalURL)
	if err != nil {
		return link.OriginalURL
	}

	params := make([]string, 0, 4)
	for _, p := range strings.Split(u.RawQuery, "&") {
		if p == "" {
			continue
		}
		key, _, _ := strings.Cut(p, "=")
		if k, err := url.QueryUnescape(key); err == nil && (k == "l_id" || k == "a_id") {
			continue
		}
		params = append(params, p)
	}

	params = append(params, "l_id="+url.QueryEscape(link.ID))
	if link.AffiliateCode != "" {
		params = append(params, "a_id="+url.QueryEscape(link.AffiliateCode))
	}
	u.RawQuery = strings.Join(params, "&")
	return u.String()
}
