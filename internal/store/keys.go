package store

import (
	"encoding/binary"
	"fmt"
)

// Key families. All records share one ordered table; prefixes keep the
// families contiguous so a range scan enumerates one family.
const (
	planPrefix     = "plan:"
	historyPrefix  = "history:"
	lockPrefix     = "recording:"
	livePrefix     = "live:"
	configKey      = "config"
	pollingTimeKey = "polling_time"
)

func planKey(url string) string { return planPrefix + url }

func lockKey(url string) string { return lockPrefix + url }

func liveKey(url string) string { return livePrefix + url }

func historyKey(url string, startTime int64) string {
	return fmt.Sprintf("%s%s:%d", historyPrefix, url, startTime)
}

// prefixEnd forms the exclusive upper bound of a prefix scan by
// incrementing the last byte of the prefix.
func prefixEnd(prefix string) string {
	if prefix == "" {
		return "\xff"
	}
	b := []byte(prefix)
	b[len(b)-1]++
	return string(b)
}

// Timestamps (lock values, polling time) are stored as big-endian
// 8-byte integers.
func encodeTime(ms int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ms))
	return b[:]
}

func decodeTime(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("malformed timestamp value (%d bytes)", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}
