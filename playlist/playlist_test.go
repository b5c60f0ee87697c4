package playlist

import (
	"net/url"
	"testing"
	"time"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", s, err)
	}
	return u
}

func TestParseMasterLowestBandwidth(t *testing.T) {
	body := []byte(`#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=3000000,RESOLUTION=1920x1080
hi.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360
lo.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1500000,RESOLUTION=1280x720
mid.m3u8
`)
	m, err := ParseMaster(mustURL(t, "http://example.com/master.m3u8"), body)
	if err != nil {
		t.Fatalf("ParseMaster: %v", err)
	}
	v, ok := m.LowestBandwidth()
	if !ok {
		t.Fatal("LowestBandwidth() ok = false")
	}
	if v.Bandwidth != 800000 || v.URI != "http://example.com/lo.m3u8" {
		t.Errorf("lowest = %+v, want {800000 http://example.com/lo.m3u8}", v)
	}
}

func TestParseMediaVODWithEndlist(t *testing.T) {
	body := []byte(`#EXTM3U
#EXT-X-TARGETDURATION:10
#EXTINF:9.9,
seg0.ts
#EXTINF:9.9,
seg1.ts
#EXT-X-ENDLIST
`)
	med, err := ParseMedia(mustURL(t, "http://example.com/media.m3u8"), body)
	if err != nil {
		t.Fatalf("ParseMedia: %v", err)
	}
	if med.Kind != KindVOD {
		t.Errorf("Kind = %v, want KindVOD", med.Kind)
	}
	if len(med.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(med.Segments))
	}
	if med.Segments[0] != "http://example.com/seg0.ts" {
		t.Errorf("segment[0] = %q", med.Segments[0])
	}
}

func TestParseMediaLiveWithoutEndlist(t *testing.T) {
	body := []byte(`#EXTM3U
#EXT-X-TARGETDURATION:6
#EXTINF:6.0,
seg5.ts
`)
	med, err := ParseMedia(mustURL(t, "http://example.com/media.m3u8"), body)
	if err != nil {
		t.Fatalf("ParseMedia: %v", err)
	}
	if med.Kind != KindLive {
		t.Errorf("Kind = %v, want KindLive", med.Kind)
	}
	if med.TargetDuration != 6*time.Second {
		t.Errorf("TargetDuration = %v, want 6s", med.TargetDuration)
	}
}

func TestParseMasterEmptyNotError(t *testing.T) {
	m, err := ParseMaster(mustURL(t, "http://example.com/master.m3u8"), []byte("#EXTM3U\n"))
	if err != nil {
		t.Fatalf("ParseMaster: %v", err)
	}
	if _, ok := m.LowestBandwidth(); ok {
		t.Error("LowestBandwidth() ok = true for empty master")
	}
}
