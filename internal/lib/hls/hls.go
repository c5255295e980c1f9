package hls

import (
	"fmt"
	"math"
	"strings"
)

// File layout of one segmented representation:
//
//	<dir>/index.m3u8
//	<dir>/segment00000.ts ...
//	<dir>/key.bin, <dir>/key.info (when encrypted)

func ManifestFileBase() string {
	return "index.m3u8"
}

func KeyFileBase() string {
	return "key.bin"
}

func KeyInfoFileBase() string {
	return "key.info"
}

// MediaFileBase names the single whole-file segment
// written by the non-splitting packaging strategy.
func MediaFileBase() string {
	return "media.mp4"
}

func SegmentPattern() string {
	return "segment%05d.ts"
}

func SegmentFile(index int) string {
	return fmt.Sprintf(SegmentPattern(), index)
}

type Entry struct {
	Duration float64
	URI      string
}

// Playlist renders a VOD media playlist. The end-of-list
// marker is always written so players can tell a finished
// stream from one still being packaged.
func Playlist(entries []Entry) string {
	var b strings.Builder

	var maxDuration float64
	for _, e := range entries {
		if e.Duration > maxDuration {
			maxDuration = e.Duration
		}
	}

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString(fmt.Sprintf("#EXT-X-TARGETDURATION:%d\n", int(math.Ceil(maxDuration))))
	b.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\n")
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")

	for _, e := range entries {
		b.WriteString(fmt.Sprintf("#EXTINF:%.3f,\n", e.Duration))
		b.WriteString(e.URI + "\n")
	}

	b.WriteString("#EXT-X-ENDLIST\n")

	return b.String()
}
