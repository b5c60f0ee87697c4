/*
DESCRIPTION
  playlist.go hand-rolls just enough HLS M3U8 parsing to select the
  lowest-bitrate rendition of a master playlist and to classify and
  enumerate the segments of a media playlist.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package playlist parses HLS master and media playlists: master
// playlist variant selection by bandwidth, and media playlist
// segment enumeration with VOD/live classification.
package playlist

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind classifies a media playlist.
type Kind int

const (
	// KindVOD is a complete, finite playlist (#EXT-X-ENDLIST present,
	// or #EXT-X-PLAYLIST-TYPE:VOD).
	KindVOD Kind = iota
	// KindLive is an in-progress playlist that must be re-polled.
	KindLive
)

// Variant is one rendition listed in a master playlist.
type Variant struct {
	Bandwidth int
	URI       string
}

// Master is a parsed master playlist.
type Master struct {
	Variants []Variant
}

// LowestBandwidth returns the variant with the smallest BANDWIDTH
// attribute, ties broken by first-seen order. A variant whose bandwidth
// is 0 (missing or malformed) is chosen only when no variant has a
// positive bandwidth. ok is false if m has no variants.
func (m *Master) LowestBandwidth() (v Variant, ok bool) {
	if len(m.Variants) == 0 {
		return Variant{}, false
	}
	lowest := m.Variants[0]
	for _, c := range m.Variants[1:] {
		if c.Bandwidth > 0 && (lowest.Bandwidth == 0 || c.Bandwidth < lowest.Bandwidth) {
			lowest = c
		}
	}
	return lowest, true
}

// Media is a parsed media (segment) playlist.
type Media struct {
	Kind           Kind
	TargetDuration time.Duration
	Segments       []string
}

// ParseMaster parses a master playlist body. base is the playlist's
// own URL, used to resolve relative variant URIs.
func ParseMaster(base *url.URL, body []byte) (*Master, error) {
	m := &Master{}
	lines := strings.Split(string(body), "\n")
	var pendingBandwidth int
	var pending bool
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXT-X-STREAM-INF:") {
			pendingBandwidth = parseBandwidth(line)
			pending = true
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if pending {
			resolved, err := resolve(base, line)
			if err != nil {
				continue // malformed URI: skip this variant, not fatal
			}
			m.Variants = append(m.Variants, Variant{Bandwidth: pendingBandwidth, URI: resolved})
			pending = false
		}
	}
	return m, nil
}

// ParseMedia parses a media playlist body. base is the playlist's own
// URL, used to resolve relative segment URIs.
func ParseMedia(base *url.URL, body []byte) (*Media, error) {
	med := &Media{Kind: KindLive}
	lines := strings.Split(string(body), "\n")
	var vodType bool
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			secs, err := strconv.Atoi(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:"))
			if err == nil {
				med.TargetDuration = time.Duration(secs) * time.Second
			}
		case strings.HasPrefix(line, "#EXT-X-PLAYLIST-TYPE:VOD"):
			vodType = true
		case strings.HasPrefix(line, "#EXT-X-ENDLIST"):
			med.Kind = KindVOD
		case strings.HasPrefix(line, "#EXTINF:"):
			// Next non-comment line is the segment URI; handled below.
			continue
		case strings.HasPrefix(line, "#"):
			continue
		default:
			resolved, err := resolve(base, line)
			if err != nil {
				continue
			}
			med.Segments = append(med.Segments, resolved)
		}
	}
	if vodType {
		med.Kind = KindVOD
	}
	return med, nil
}

// parseBandwidth extracts the BANDWIDTH=<int> attribute from an
// #EXT-X-STREAM-INF line. A missing or malformed attribute yields 0,
// which simply sorts last among variants with a real bandwidth.
func parseBandwidth(attrLine string) int {
	const key = "BANDWIDTH="
	idx := strings.Index(attrLine, key)
	if idx < 0 {
		return 0
	}
	rest := attrLine[idx+len(key):]
	end := strings.IndexAny(rest, ",\r\n")
	if end >= 0 {
		rest = rest[:end]
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0
	}
	return n
}

// resolve resolves a (possibly relative) URI reference against base.
func resolve(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrapf(err, "invalid URI %q", ref)
	}
	if base == nil {
		return u.String(), nil
	}
	return base.ResolveReference(u).String(), nil
}
