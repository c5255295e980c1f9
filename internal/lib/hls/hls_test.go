package hls

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentFile(t *testing.T) {
	assert.Equal(t, "segment00000.ts", SegmentFile(0))
	assert.Equal(t, "segment00042.ts", SegmentFile(42))
}

func TestPlaylist(t *testing.T) {
	got := Playlist([]Entry{
		{Duration: 10.0, URI: SegmentFile(0)},
		{Duration: 10.0, URI: SegmentFile(1)},
		{Duration: 4.2, URI: SegmentFile(2)},
	})

	want := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-TARGETDURATION:10\n" +
		"#EXT-X-PLAYLIST-TYPE:VOD\n" +
		"#EXT-X-MEDIA-SEQUENCE:0\n" +
		"#EXTINF:10.000,\n" +
		"segment00000.ts\n" +
		"#EXTINF:10.000,\n" +
		"segment00001.ts\n" +
		"#EXTINF:4.200,\n" +
		"segment00002.ts\n" +
		"#EXT-X-ENDLIST\n"

	assert.Equal(t, want, got)
}

func TestPlaylistTargetDurationRoundsUp(t *testing.T) {
	got := Playlist([]Entry{{Duration: 9.1, URI: "media.mp4"}})

	assert.True(t, strings.Contains(got, "#EXT-X-TARGETDURATION:10\n"))
	assert.True(t, strings.HasSuffix(got, "#EXT-X-ENDLIST\n"))
}
