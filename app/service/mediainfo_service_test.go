package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"downpour/app/cache"
	"downpour/app/logger"
	"downpour/app/model"
)

func newMediaFixture() (*MediaInfoService, *fakeExecutor) {
	fx := newFakeExecutor()
	mc := cache.NewMediaInfoCache(10, 30*time.Minute)
	return NewMediaInfoService(logger.NewNop(), fx, mc, 30*time.Minute), fx
}

func TestMediaInfoFetchUsesCache(t *testing.T) {
	svc, fx := newMediaFixture()
	fx.metadata["https://e.com/v"] = &model.MediaInfo{Title: "cached title"}

	info, err := svc.Fetch(context.Background(), "https://e.com/v")
	require.NoError(t, err)
	assert.Equal(t, "cached title", info.Title)

	// the executor going away must not matter once cached
	fx.metaErr = errors.New("executor gone")
	info, err = svc.Fetch(context.Background(), "https://e.com/v")
	require.NoError(t, err)
	assert.Equal(t, "cached title", info.Title)
}

func TestMediaInfoFetchPropagatesErrors(t *testing.T) {
	svc, fx := newMediaFixture()
	fx.metaErr = errors.New("no such video")

	_, err := svc.Fetch(context.Background(), "https://e.com/missing")
	assert.Error(t, err)
}

func TestPlaylistFetchCached(t *testing.T) {
	svc, fx := newMediaFixture()
	fx.playlist = &model.PlaylistInfo{
		Title: "mix",
		URL:   "https://e.com/playlist?list=1",
		Entries: []model.PlaylistEntry{
			{URL: "https://e.com/v1", Title: "one", Index: 1},
			{URL: "https://e.com/v2", Title: "two", Index: 2},
		},
	}

	info, err := svc.FetchPlaylist(context.Background(), "https://e.com/playlist?list=1")
	require.NoError(t, err)
	require.Len(t, info.Entries, 2)

	// served from cache even if the executor result changes
	fx.playlist = &model.PlaylistInfo{Title: "different"}
	info, err = svc.FetchPlaylist(context.Background(), "https://e.com/playlist?list=1")
	require.NoError(t, err)
	assert.Equal(t, "mix", info.Title)
}

func TestPlaylistConfigsInheritBase(t *testing.T) {
	svc, _ := newMediaFixture()

	base := model.DownloadConfig{
		Format:       "audio-mp3",
		Quality:      "best",
		OutputFolder: "/music",
	}
	info := &model.PlaylistInfo{Entries: []model.PlaylistEntry{
		{URL: "https://e.com/v1"},
		{URL: "https://e.com/v2"},
	}}

	cfgs := svc.PlaylistConfigs(info, base)
	require.Len(t, cfgs, 2)
	assert.Equal(t, "https://e.com/v1", cfgs[0].URL)
	assert.Equal(t, "audio-mp3", cfgs[0].Format)
	assert.Equal(t, "/music", cfgs[1].OutputFolder)
}
