package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livecap/livecap/internal/model"
)

func TestXhsRoomID(t *testing.T) {
	for in, want := range map[string]string{
		"https://www.xiaohongshu.com/hina/livestream/569077534207413574/1707413727088?appuid=5f3f": "569077534207413574",
		"https://www.xiaohongshu.com/hina/livestream/569199937572834291?timestamp=1714706217433":   "569199937572834291",
		"https://www.xiaohongshu.com/hina/livestream/42":                                           "42",
	} {
		got, err := xhsRoomID(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := xhsRoomID("https://www.xiaohongshu.com/explore")
	assert.Error(t, err)
}

func xhsTestResolver(t *testing.T, shareInfo string, probeStatus int) *Xiaohongshu {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/share_info"):
			_, _ = w.Write([]byte(shareInfo))
		case strings.HasSuffix(r.URL.Path, ".flv"):
			w.WriteHeader(probeStatus)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	x := NewXiaohongshu(NewClient())
	x.shareBase = srv.URL + "/share_info"
	x.playBase = srv.URL + "/live"
	return x
}

const xhsShareInfo = `{"code":0,"data":{` +
	`"host_info":{"nickname":"小红","avatar":"https://cdn.example.com/av.jpg?x=1"},` +
	`"room":{"name":"深夜电台","cover":"https://cdn.example.com/cover.jpg?y=2","member_count":512}}}`

func TestXiaohongshuResolveLive(t *testing.T) {
	x := xhsTestResolver(t, xhsShareInfo, http.StatusOK)
	info, err := x.Resolve(context.Background(), "https://www.xiaohongshu.com/hina/livestream/569077534207413574?appuid=5f3f")
	require.NoError(t, err)

	assert.Equal(t, model.LiveStatusLive, info.Status)
	assert.Equal(t, "小红", info.AnchorName)
	assert.Equal(t, "https://cdn.example.com/av.jpg", info.AnchorAvatar)
	assert.Equal(t, "https://cdn.example.com/cover.jpg", info.RoomCover)
	assert.Equal(t, "深夜电台", info.Title)
	assert.Equal(t, "512", info.ViewerCount)
	require.Len(t, info.Streams, 1)
	assert.Equal(t, x.playBase+"/569077534207413574.flv", info.Streams[0].URL)
	assert.Equal(t, model.ProtocolFlv, info.Streams[0].Protocol)
}

func TestXiaohongshuResolveOffline(t *testing.T) {
	x := xhsTestResolver(t, xhsShareInfo, http.StatusNotFound)
	info, err := x.Resolve(context.Background(), "https://www.xiaohongshu.com/hina/livestream/42")
	require.NoError(t, err)
	assert.Equal(t, model.LiveStatusNotLive, info.Status)
	require.Len(t, info.Streams, 1)
}

func TestXiaohongshuAPIError(t *testing.T) {
	x := xhsTestResolver(t, `{"code":1,"msg":"room not found"}`, http.StatusOK)
	info, err := x.Resolve(context.Background(), "https://www.xiaohongshu.com/hina/livestream/42")
	require.NoError(t, err)
	assert.Equal(t, model.LiveStatusNotLive, info.Status)
	assert.Empty(t, info.Streams)
}

func TestSetRoutesByPlatform(t *testing.T) {
	s := DefaultSet()

	r, err := s.For("https://live.douyin.com/123")
	require.NoError(t, err)
	assert.Equal(t, model.PlatformDouyin, r.Kind())

	r, err = s.For("https://www.tiktok.com/@x/live")
	require.NoError(t, err)
	assert.Equal(t, model.PlatformTiktok, r.Kind())

	_, err = s.For("https://www.twitch.tv/x")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}
