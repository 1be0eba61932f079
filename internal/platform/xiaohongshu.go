package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/livecap/livecap/internal/model"
)

const (
	xhsShareInfoBase = "https://www.xiaohongshu.com/api/sns/red/live/app/v1/ecology/outside/share_info"
	xhsPlayBase      = "http://live-play.xhscdn.com/live"
)

// Xiaohongshu resolves share links of the form
// .../livestream/<roomID>[/...][?...]. The share_info API carries the
// metadata but not the live state, so liveness is probed against the
// flv endpoint directly.
type Xiaohongshu struct {
	client    *Client
	shareBase string
	playBase  string
}

func NewXiaohongshu(c *Client) *Xiaohongshu {
	return &Xiaohongshu{client: c, shareBase: xhsShareInfoBase, playBase: xhsPlayBase}
}

func (x *Xiaohongshu) Kind() model.PlatformKind { return model.PlatformXiaohongshu }

func (x *Xiaohongshu) Resolve(ctx context.Context, roomURL string) (*model.LiveDescriptor, error) {
	info := &model.LiveDescriptor{
		URL:          roomURL,
		Status:       model.LiveStatusNotLive,
		PlatformKind: model.PlatformXiaohongshu,
	}

	roomID, err := xhsRoomID(roomURL)
	if err != nil {
		return nil, err
	}
	body, err := x.client.fetch(ctx, fmt.Sprintf("%s?room_id=%s", x.shareBase, roomID), xhsHeaders())
	if err != nil {
		return nil, err
	}

	var doc struct {
		Code int `json:"code"`
		Data struct {
			HostInfo struct {
				Nickname string `json:"nickname"`
				Avatar   string `json:"avatar"`
			} `json:"host_info"`
			Room struct {
				Name        string      `json:"name"`
				Cover       string      `json:"cover"`
				MemberCount json.Number `json:"member_count"`
			} `json:"room"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("xiaohongshu: decode share_info: %w", err)
	}
	if doc.Code != 0 {
		return info, nil
	}

	info.AnchorName = doc.Data.HostInfo.Nickname
	info.AnchorAvatar = stripQuery(doc.Data.HostInfo.Avatar)
	info.RoomCover = stripQuery(doc.Data.Room.Cover)
	info.Title = doc.Data.Room.Name
	info.ViewerCount = doc.Data.Room.MemberCount.String()

	flvURL := fmt.Sprintf("%s/%s.flv", x.playBase, roomID)
	info.Streams = []model.Stream{{URL: flvURL, Resolution: "default", Protocol: model.ProtocolFlv}}

	// the endpoint 404s when the room is offline
	status, err := x.client.probe(ctx, flvURL, xhsHeaders())
	if err == nil && status == http.StatusOK {
		info.Status = model.LiveStatusLive
	}
	return info, nil
}

func xhsRoomID(roomURL string) (string, error) {
	_, rest, ok := strings.Cut(roomURL, "/livestream/")
	if !ok {
		return "", fmt.Errorf("xiaohongshu: room id not found in %s", roomURL)
	}
	rest, _, _ = strings.Cut(rest, "?")
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return "", fmt.Errorf("xiaohongshu: room id not found in %s", roomURL)
	}
	return id, nil
}

func stripQuery(u string) string {
	s, _, _ := strings.Cut(u, "?")
	return s
}

func xhsHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "zh-CN,zh;q=0.8,zh-TW;q=0.7,zh-HK;q=0.5,en-US;q=0.3,en;q=0.2",
		"Referer":         "https://www.redelight.cn/hina/livestream/569077534207413574/1707413727088?share_source=&source=share_out_of_app&xhsshare=WeixinSession",
	}
}
