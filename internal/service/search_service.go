package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
)

type searchStore interface {
	SearchPeople(ctx context.Context, term string, active, openTerm *bool) ([]dto.PersonHit, error)
	SearchOrganizations(ctx context.Context, term string, active *bool) ([]dto.OrganizationHit, error)
	SearchPositions(ctx context.Context, term string, active *bool) ([]dto.PositionHit, error)
}

// SearchConfig tunes the grouped search.
type SearchConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SearchService runs the grouped free-text lookup with a short-lived cache.
type SearchService struct {
	repo     searchStore
	cache    verdictCache
	cfg      SearchConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSearchService constructs the service.
func NewSearchService(repo searchStore, cache verdictCache, cfg SearchConfig, validate *validator.Validate, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{repo: repo, cache: cache, cfg: cfg, validate: validate, logger: logger}
}

// Search matches the term against people, organizations and positions and
// returns the grouped result.
func (s *SearchService) Search(ctx context.Context, query dto.SearchQuery) (*dto.SearchResult, error) {
	if err := validateStruct(s.validate, query); err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(query)
	if s.cache != nil && s.cfg.CacheEnabled {
		var cached dto.SearchResult
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	people, err := s.repo.SearchPeople(ctx, query.Term, query.Active, query.OpenTerm)
	if err != nil {
		return nil, mapStoreError(err, "failed to search people")
	}
	organizations, err := s.repo.SearchOrganizations(ctx, query.Term, query.Active)
	if err != nil {
		return nil, mapStoreError(err, "failed to search organizations")
	}
	positions, err := s.repo.SearchPositions(ctx, query.Term, query.Active)
	if err != nil {
		return nil, mapStoreError(err, "failed to search positions")
	}

	result := &dto.SearchResult{
		People:        people,
		Organizations: organizations,
		Positions:     positions,
	}
	if s.cache != nil && s.cfg.CacheEnabled {
		if err := s.cache.Set(ctx, cacheKey, result, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("search cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

func (s *SearchService) cacheKey(query dto.SearchQuery) string {
	flag := func(b *bool) string {
		if b == nil {
			return "any"
		}
		return fmt.Sprintf("%t", *b)
	}
	return fmt.Sprintf("search:%s:%s:%s", query.Term, flag(query.Active), flag(query.OpenTerm))
}
