package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/livecap/livecap/internal/model"
)

// The room page embeds its state as an escaped JSON blob inside a
// script tag. There is no public API, so the resolver carves the
// roomStore object out of that blob.
var (
	douyinStateRe    = regexp.MustCompile(`(\{\\"state\\":.*?)]\\n"\]`)
	douyinRoomRe     = regexp.MustCompile(`"roomStore":(.*?),"linkmicStore"`)
	douyinNicknameRe = regexp.MustCompile(`"nickname":"(.*?)","avatar_thumb`)
)

type Douyin struct {
	client *Client
}

func NewDouyin(c *Client) *Douyin { return &Douyin{client: c} }

func (d *Douyin) Kind() model.PlatformKind { return model.PlatformDouyin }

func (d *Douyin) Resolve(ctx context.Context, roomURL string) (*model.LiveDescriptor, error) {
	body, err := d.client.fetch(ctx, roomURL, douyinHeaders())
	if err != nil {
		return nil, err
	}
	return parseDouyinPage(roomURL, body)
}

func parseDouyinPage(roomURL, html string) (*model.LiveDescriptor, error) {
	info := &model.LiveDescriptor{
		URL:          roomURL,
		Status:       model.LiveStatusNotLive,
		PlatformKind: model.PlatformDouyin,
	}

	m := douyinStateRe.FindStringSubmatch(html)
	if m == nil {
		return nil, fmt.Errorf("douyin: state json not found in %s", roomURL)
	}
	state := strings.ReplaceAll(m[1], `\`, "")
	state = strings.ReplaceAll(state, "u0026", "&")

	rm := douyinRoomRe.FindStringSubmatch(state)
	if rm == nil {
		return info, nil
	}
	roomStore := rm[1]
	if nm := douyinNicknameRe.FindStringSubmatch(roomStore); nm != nil {
		info.AnchorName = nm[1]
	}
	roomStore, _, _ = strings.Cut(roomStore, `,"has_commerce_goods"`)
	roomStore += "}}}"

	var doc struct {
		RoomInfo struct {
			Room struct {
				Status       int    `json:"status"`
				Title        string `json:"title"`
				UserCountStr string `json:"user_count_str"`
				Owner        struct {
					AvatarThumb struct {
						URLList []string `json:"url_list"`
					} `json:"avatar_thumb"`
				} `json:"owner"`
				StreamURL struct {
					FlvPullURL    map[string]string `json:"flv_pull_url"`
					HlsPullURLMap map[string]string `json:"hls_pull_url_map"`
				} `json:"stream_url"`
			} `json:"room"`
		} `json:"roomInfo"`
	}
	if err := json.Unmarshal([]byte(roomStore), &doc); err != nil {
		return nil, fmt.Errorf("douyin: decode roomStore: %w", err)
	}

	room := doc.RoomInfo.Room
	// 2 is live, 4 is offline
	switch room.Status {
	case 2:
		info.Status = model.LiveStatusLive
	case 4:
		info.Status = model.LiveStatusNotLive
	default:
		info.Status = model.LiveStatusUnknown
	}
	if info.Status != model.LiveStatusLive {
		return info, nil
	}

	info.Title = room.Title
	info.ViewerCount = room.UserCountStr
	if len(room.Owner.AvatarThumb.URLList) > 0 {
		info.AnchorAvatar = room.Owner.AvatarThumb.URLList[0]
	}
	info.Streams = append(info.Streams,
		streamsFromMap(room.StreamURL.FlvPullURL, model.ProtocolFlv)...)
	info.Streams = append(info.Streams,
		streamsFromMap(room.StreamURL.HlsPullURLMap, model.ProtocolHls)...)
	return info, nil
}

func streamsFromMap(urls map[string]string, proto model.StreamingProtocol) []model.Stream {
	keys := make([]string, 0, len(urls))
	for k := range urls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	streams := make([]model.Stream, 0, len(keys))
	for _, k := range keys {
		if urls[k] == "" {
			continue
		}
		streams = append(streams, model.Stream{URL: urls[k], Resolution: k, Protocol: proto})
	}
	return streams
}

func douyinHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0",
		"Accept-Language": "zh-CN,zh;q=0.8,zh-TW;q=0.7,zh-HK;q=0.5,en-US;q=0.3,en;q=0.2",
		"Referer":         "https://live.douyin.com/",
		"Cookie":          "ttwid=1%7CB1qls3GdnZhUov9o2NxOMxxYS2ff6OSvEWbv0ytbES4%7C1680522049%7C280d802d6d478e3e78d0c807f7c487e7ffec0ae4e5fdd6a0fe74c3c6af149511; my_rd=1; passport_csrf_token=3ab34460fa656183fccfb904b16ff742; __live_version__=%221.1.1.2169%22; webcast_local_quality=sd; live_can_add_dy_2_desktop=%221%22",
	}
}
