package model

import "strings"

// PlatformKind identifies the live-streaming service hosting a channel.
type PlatformKind string

const (
	PlatformDouyin      PlatformKind = "Douyin"
	PlatformTiktok      PlatformKind = "Tiktok"
	PlatformXiaohongshu PlatformKind = "Xiaohongshu"
	PlatformBilibili    PlatformKind = "Bilibili"
	PlatformHuya        PlatformKind = "Huya"
	PlatformKuaishou    PlatformKind = "Kuaishou"
	PlatformDouyu       PlatformKind = "Douyu"
	PlatformTwitch      PlatformKind = "Twitch"
	PlatformYoutube     PlatformKind = "Youtube"
	PlatformUnknown     PlatformKind = "Unknown"
)

var platformPrefixes = []struct {
	prefix string
	kind   PlatformKind
}{
	{"https://live.douyin.com/", PlatformDouyin},
	{"https://v.douyin.com/", PlatformDouyin},
	{"https://www.tiktok.com/", PlatformTiktok},
	{"https://www.xiaohongshu.com/", PlatformXiaohongshu},
	{"https://live.bilibili.com/", PlatformBilibili},
	{"https://www.huya.com/", PlatformHuya},
	{"https://live.kuaishou.com/", PlatformKuaishou},
	{"https://www.douyu.com/", PlatformDouyu},
	{"https://www.twitch.tv/", PlatformTwitch},
	{"https://www.youtube.com/", PlatformYoutube},
}

// PlatformKindOf maps a channel URL (or a bare platform name) to its kind.
func PlatformKindOf(url string) PlatformKind {
	u := strings.ToLower(strings.TrimSpace(url))
	for _, p := range platformPrefixes {
		if strings.HasPrefix(u, p.prefix) || u == strings.ToLower(string(p.kind)) {
			return p.kind
		}
	}
	return PlatformUnknown
}
