package gauge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the gauge service.
type ServiceConfig struct {
	// Repository is the gauge store.
	Repository Repository

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache the network snapshot (default: 5 minutes).
	// The cached Network also carries the memoized distance matrix, so a
	// cache hit skips the O(N²) haversine pass as well.
	CacheTTL time.Duration
}

// Service provides gauge metadata access with a cached network snapshot.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration

	mu          sync.RWMutex
	network     *Network
	cacheExpiry time.Time
}

// NewService creates a new gauge service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
	}
}

// Network returns the current gauge network snapshot, refreshing the cache
// from the repository when expired.
func (s *Service) Network(ctx context.Context) (*Network, error) {
	s.mu.RLock()
	if s.network != nil && time.Now().Before(s.cacheExpiry) {
		network := s.network
		s.mu.RUnlock()
		return network, nil
	}
	s.mu.RUnlock()

	return s.refreshNetwork(ctx)
}

// Get retrieves a single gauge by ID.
func (s *Service) Get(ctx context.Context, id string) (*Gauge, error) {
	return s.repo.Get(ctx, id)
}

// Upsert stores a gauge and invalidates the network snapshot so the next
// run sees the updated station set.
func (s *Service) Upsert(ctx context.Context, g *Gauge) error {
	if err := s.repo.Upsert(ctx, g); err != nil {
		return err
	}
	s.InvalidateCache()
	return nil
}

// InvalidateCache clears the cached network snapshot.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.network = nil
	s.cacheExpiry = time.Time{}
}

func (s *Service) refreshNetwork(ctx context.Context) (*Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check: another goroutine might have refreshed while we waited.
	if s.network != nil && time.Now().Before(s.cacheExpiry) {
		return s.network, nil
	}

	gauges, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(gauges) == 0 {
		return nil, ErrEmptyNetwork
	}

	s.network = NewNetwork(gauges)
	s.cacheExpiry = time.Now().Add(s.cacheTTL)

	s.logger.Info().
		Int("gauges", s.network.Size()).
		Time("expires_at", s.cacheExpiry).
		Msg("gauge network snapshot refreshed")

	return s.network, nil
}
