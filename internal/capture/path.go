package capture

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/livecap/livecap/internal/model"
)

// SanitizeName strips everything but letters and digits so anchor names
// are safe to use as directory and file name components.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Filename builds the recording file name for an anchor at a point in
// time, e.g. "anchor_20260901_153000.ts".
func Filename(anchorName string, at time.Time) string {
	return fmt.Sprintf("%s_%s.ts", SanitizeName(anchorName), at.Format("20060102_150405"))
}

// OutputPath builds the full recording path:
// <saveRoot>/<platform>/<anchor>/<anchor>_<timestamp>.ts
func OutputPath(saveRoot string, kind model.PlatformKind, anchorName string, at time.Time) string {
	return filepath.Join(saveRoot, string(kind), SanitizeName(anchorName), Filename(anchorName, at))
}
