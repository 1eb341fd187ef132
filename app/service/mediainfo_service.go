package service

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"downpour/app/cache"
	"downpour/app/executor"
	"downpour/app/logger"
	"downpour/app/model"
	"downpour/app/utils/debounce"
)

// prefetchWindow is how long URL edits must stay quiet before a prefetch
// fires. Matches the frontend's input debounce.
const prefetchWindow = 500 * time.Millisecond

// MediaInfoService resolves media metadata through the bounded LRU cache
// and expands playlist URLs through a separate TTL cache. Playlists are
// cached by raw URL since the same id can render differently per page.
type MediaInfoService struct {
	logger    *logger.Logger
	exec      executor.Executor
	cache     *cache.MediaInfoCache
	playlists *gocache.Cache
	prefetch  *debounce.Debouncer
	timeout   time.Duration
}

// NewMediaInfoService wires the lookup path.
func NewMediaInfoService(log *logger.Logger, exec executor.Executor,
	mediaCache *cache.MediaInfoCache, playlistTTL time.Duration) *MediaInfoService {
	if playlistTTL <= 0 {
		playlistTTL = 30 * time.Minute
	}
	return &MediaInfoService{
		logger:    log,
		exec:      exec,
		cache:     mediaCache,
		playlists: gocache.New(playlistTTL, 10*time.Minute),
		prefetch:  debounce.New(prefetchWindow),
		timeout:   30 * time.Second,
	}
}

// Fetch returns metadata for a URL, from cache when fresh.
func (s *MediaInfoService) Fetch(ctx context.Context, url string) (*model.MediaInfo, error) {
	if info := s.cache.Get(url); info != nil {
		return info, nil
	}

	info, err := s.exec.FetchMetadata(ctx, url)
	if err != nil {
		return nil, err
	}
	s.cache.Set(url, info)
	return info, nil
}

// Prefetch warms the cache for a URL the user is still typing. Bursts
// collapse into one fetch of the last URL; failures are only logged.
func (s *MediaInfoService) Prefetch(url string) {
	s.prefetch.Trigger(func() {
		if s.cache.Contains(url) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.Fetch(ctx, url); err != nil {
			s.logger.Debugf("prefetch failed for %s: %v", url, err)
		}
	})
}

// CancelPrefetch drops a pending prefetch, e.g. when the input is cleared.
func (s *MediaInfoService) CancelPrefetch() {
	s.prefetch.Cancel()
}

// IsPlaylist reports whether the URL points at a playlist.
func (s *MediaInfoService) IsPlaylist(url string) bool {
	return s.exec.IsPlaylist(url)
}

// FetchPlaylist expands a playlist URL into its entries, cached with a TTL.
func (s *MediaInfoService) FetchPlaylist(ctx context.Context, url string) (*model.PlaylistInfo, error) {
	if v, ok := s.playlists.Get(url); ok {
		return v.(*model.PlaylistInfo), nil
	}

	info, err := s.exec.FetchPlaylist(ctx, url)
	if err != nil {
		return nil, err
	}
	s.playlists.Set(url, info, gocache.DefaultExpiration)
	return info, nil
}

// PlaylistConfigs turns playlist entries into download configs sharing the
// base config's format, quality and output folder.
func (s *MediaInfoService) PlaylistConfigs(info *model.PlaylistInfo, base model.DownloadConfig) []model.DownloadConfig {
	out := make([]model.DownloadConfig, 0, len(info.Entries))
	for _, e := range info.Entries {
		cfg := base
		cfg.URL = e.URL
		out = append(out, cfg)
	}
	return out
}

// ClearCache wipes both metadata and playlist caches.
func (s *MediaInfoService) ClearCache() {
	s.cache.Clear()
	s.playlists.Flush()
}
