package badger

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/probeworks/threadscout/core"
)

// Key prefixes for different data types
const (
	postRecordPrefix   = "post"
	postChanDatePrefix = "pochd"
	checkpointPrefix   = "chkpt"
)

// makePostKey generates a key for a post by its internal ID.
func makePostKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", postRecordPrefix, id))
}

// makePostChanDateKey generates a composite key for the channel/date
// index. Format: prefix:channel\x00timestamp:id. The timestamp and id
// are written BigEndian so lexicographic sort matches time order.
func makePostChanDateKey(channel string, createdAt time.Time, id core.ID) []byte {
	prefix := makePartialPostChanDateKey(channel, createdAt)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialPostChanDateKey generates a partial key for date range
// scans within a channel. Format: prefix:channel\x00timestamp
func makePartialPostChanDateKey(channel string, createdAt time.Time) []byte {
	prefix := makeChannelPrefix(channel)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	return buf
}

// makeChannelPrefix generates the index prefix covering an entire
// channel. Channels are case-folded so lookups ignore case.
func makeChannelPrefix(channel string) []byte {
	return []byte(postChanDatePrefix + ":" + strings.ToLower(channel) + "\x00")
}

// makeCheckpointKey generates a key for a (channel, timeframe) search
// checkpoint.
func makeCheckpointKey(channel string, timeframe core.Timeframe) []byte {
	return []byte(fmt.Sprintf("%s:%s\x00%s", checkpointPrefix, strings.ToLower(channel), timeframe))
}
