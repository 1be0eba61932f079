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

var tiktokStateRe = regexp.MustCompile(
	`<script id="SIGI_STATE" type="application/json">(.*?)</script><script id="SIGI_RETRY" type="application/json">`)

type Tiktok struct {
	client *Client
}

func NewTiktok(c *Client) *Tiktok { return &Tiktok{client: c} }

func (t *Tiktok) Kind() model.PlatformKind { return model.PlatformTiktok }

func (t *Tiktok) Resolve(ctx context.Context, roomURL string) (*model.LiveDescriptor, error) {
	body, err := t.client.fetch(ctx, roomURL, tiktokHeaders())
	if err != nil {
		return nil, err
	}
	return parseTiktokPage(roomURL, body)
}

func parseTiktokPage(roomURL, html string) (*model.LiveDescriptor, error) {
	info := &model.LiveDescriptor{
		URL:          roomURL,
		Status:       model.LiveStatusNotLive,
		PlatformKind: model.PlatformTiktok,
	}

	m := tiktokStateRe.FindStringSubmatch(html)
	if m == nil {
		return nil, fmt.Errorf("tiktok: SIGI_STATE not found in %s", roomURL)
	}

	var doc struct {
		LiveRoom struct {
			LiveRoomUserInfo struct {
				User struct {
					Nickname    string `json:"nickname"`
					UniqueID    string `json:"uniqueId"`
					AvatarThumb string `json:"avatarThumb"`
					Status      int    `json:"status"`
				} `json:"user"`
				LiveRoom struct {
					Title         string `json:"title"`
					CoverURL      string `json:"coverUrl"`
					LiveRoomStats struct {
						UserCount int64 `json:"userCount"`
					} `json:"liveRoomStats"`
					StreamData struct {
						PullData struct {
							StreamData string `json:"stream_data"`
						} `json:"pull_data"`
					} `json:"streamData"`
				} `json:"liveRoom"`
			} `json:"liveRoomUserInfo"`
		} `json:"LiveRoom"`
	}
	if err := json.Unmarshal([]byte(m[1]), &doc); err != nil {
		return nil, fmt.Errorf("tiktok: decode SIGI_STATE: %w", err)
	}

	ui := doc.LiveRoom.LiveRoomUserInfo
	info.AnchorName = fmt.Sprintf("%s(@%s)", ui.User.Nickname, ui.User.UniqueID)
	info.AnchorAvatar = ui.User.AvatarThumb
	info.Title = ui.LiveRoom.Title
	info.RoomCover = ui.LiveRoom.CoverURL
	info.ViewerCount = fmt.Sprintf("%d", ui.LiveRoom.LiveRoomStats.UserCount)
	// 2 means broadcasting
	if ui.User.Status != 2 {
		return info, nil
	}
	info.Status = model.LiveStatusLive

	var sd struct {
		Data map[string]struct {
			Main struct {
				Flv string `json:"flv"`
				Hls string `json:"hls"`
			} `json:"main"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(ui.LiveRoom.StreamData.PullData.StreamData), &sd); err != nil {
		return nil, fmt.Errorf("tiktok: decode stream_data: %w", err)
	}
	resolutions := make([]string, 0, len(sd.Data))
	for k := range sd.Data {
		resolutions = append(resolutions, k)
	}
	sort.Strings(resolutions)
	for _, res := range resolutions {
		main := sd.Data[res].Main
		if main.Flv != "" {
			// the flv endpoints reject tls handshakes from ffmpeg
			info.Streams = append(info.Streams, model.Stream{
				URL:        strings.Replace(main.Flv, "https://", "http://", 1),
				Resolution: res,
				Protocol:   model.ProtocolFlv,
			})
		}
		if main.Hls != "" {
			info.Streams = append(info.Streams, model.Stream{
				URL:        main.Hls,
				Resolution: res,
				Protocol:   model.ProtocolHls,
			})
		}
	}
	return info, nil
}

func tiktokHeaders() map[string]string {
	return map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36 Edg/114.0.1823.79",
		"Accept":     "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Cookie":     "ttwid=1%7CM-rF193sJugKuNz2RGNt-rh6pAAR9IMceUSzlDnPCNI%7C1683274418%7Cf726d4947f2fc37fecc7aeb0cdaee52892244d04efde6f8a8edd2bb168263269; tiktok_webapp_theme=light; tt_chain_token=VWkygAWDlm1cFg/k8whmOg==",
	}
}
