package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/livecap/livecap/internal/model"
)

func TestRecordArgs(t *testing.T) {
	args := recordArgs("https://pull.example.com/live.flv", "/tmp/a.ts", "")

	// input follows -i, output is last
	var input string
	for i, a := range args {
		if a == "-i" && i+1 < len(args) {
			input = args[i+1]
		}
	}
	assert.Equal(t, "https://pull.example.com/live.flv", input)
	assert.Equal(t, "/tmp/a.ts", args[len(args)-1])

	joined := map[string]bool{}
	for _, a := range args {
		joined[a] = true
	}
	// stream copy into mpegts, no re-encode
	assert.True(t, joined["copy"])
	assert.True(t, joined["mpegts"])
	assert.True(t, joined["-rw_timeout"])
	assert.True(t, joined["-reconnect_delay_max"])
	assert.NotContains(t, args, "-http_proxy")
}

func TestRecordArgsProxy(t *testing.T) {
	args := recordArgs("https://pull.example.com/live.flv", "/tmp/a.ts", "http://127.0.0.1:7890")

	// -http_proxy is an input option and must come before -i
	proxyAt, inputAt := -1, -1
	for i, a := range args {
		switch a {
		case "-http_proxy":
			proxyAt = i
		case "-i":
			inputAt = i
		}
	}
	assert.Greater(t, proxyAt, 0)
	assert.Greater(t, inputAt, proxyAt)
	assert.Equal(t, "http://127.0.0.1:7890", args[proxyAt+1])
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "主播Name1", SanitizeName("主播 Name-1!"))
	assert.Equal(t, "abc123", SanitizeName("a/b\\c 1.2:3"))
	assert.Equal(t, "", SanitizeName("___"))
}

func TestOutputPath(t *testing.T) {
	at := time.Date(2026, 9, 1, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, "anchor_20260901_153000.ts", Filename("anchor", at))
	assert.Equal(t,
		"/data/Douyin/主播/主播_20260901_153000.ts",
		OutputPath("/data", model.PlatformDouyin, "主播", at))
}
