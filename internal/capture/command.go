package capture

import (
	"os/exec"
	"strings"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// recordArgs builds the ffmpeg argument list for dumping a live stream
// to an mpegts file without re-encoding. proxy, when set, is passed as
// -http_proxy ahead of the input.
func recordArgs(streamURL, outputPath, proxy string) []string {
	args := []string{
		"-y",
		"-v", "verbose",
		"-rw_timeout", "30000000",
		"-loglevel", "error",
		"-hide_banner",
		"-user_agent", defaultUserAgent,
		"-protocol_whitelist", "rtmp,crypto,file,http,https,tcp,tls,udp,rtp",
		"-thread_queue_size", "1024",
		"-analyzeduration", "20000000",
		"-probesize", "10000000",
		"-fflags", "+discardcorrupt",
	}
	if proxy != "" {
		args = append(args, "-http_proxy", proxy)
	}
	return append(args,
		"-i", streamURL,
		"-bufsize", "8000k",
		"-sn",
		"-dn",
		"-reconnect_delay_max", "60",
		"-reconnect_streamed", "1",
		"-reconnect_at_eof", "1",
		"-max_muxing_queue_size", "1024",
		"-correct_ts_overflow", "1",
		"-c:v", "copy",
		"-c:a", "copy",
		"-map", "0",
		"-f", "mpegts",
		outputPath,
	)
}

// Version probes the ffmpeg binary and returns the first line of its
// -version output.
func Version(ffmpegPath string) (string, error) {
	out, err := exec.Command(ffmpegPath, "-version").Output()
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}
