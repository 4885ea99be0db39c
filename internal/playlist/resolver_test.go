package playlist

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/RealChuan/hlsget/internal/model"
)

func TestVariantPolicies(t *testing.T) {
	variants := []model.VariantStream{
		{Bandwidth: 500},
		{Bandwidth: 1200},
		{Bandwidth: 800},
	}

	tests := []struct {
		name   string
		policy VariantPolicy
		want   int
	}{
		{"highest", HighestBandwidth, 1},
		{"lowest", LowestBandwidth, 0},
		{"first", FirstListed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy(variants); got != tt.want {
				t.Errorf("policy selected %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"", "highest", "lowest", "first"} {
		if _, err := PolicyByName(name); err != nil {
			t.Errorf("PolicyByName(%q): %v", name, err)
		}
	}
	if _, err := PolicyByName("fanciest"); err == nil {
		t.Error("PolicyByName should reject unknown names")
	}
}

func TestResolver_MasterToMedia(t *testing.T) {
	media := "#EXTM3U\n#EXTINF:4,\nseg0.ts\n#EXT-X-ENDLIST\n"
	master := `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=500000
low.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1200000
high.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=800000
mid.m3u8
`

	var fetched []string
	get := func(_ context.Context, u *url.URL) ([]byte, error) {
		fetched = append(fetched, u.String())
		switch u.Path {
		case "/vod/master.m3u8":
			return []byte(master), nil
		case "/vod/high.m3u8":
			return []byte(media), nil
		default:
			return nil, fmt.Errorf("unexpected fetch of %s", u)
		}
	}

	r := NewResolver(get, nil) // nil policy defaults to highest bandwidth

	got, err := r.Resolve(context.Background(), "https://cdn.example.com/vod/master.m3u8")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(got.Segments))
	}
	if want := "https://cdn.example.com/vod/seg0.ts"; got.Segments[0].URI.String() != want {
		t.Errorf("segment URI = %s, want %s", got.Segments[0].URI, want)
	}
	if len(fetched) != 2 {
		t.Errorf("fetched %d URLs (%v), want 2", len(fetched), fetched)
	}
}

func TestResolver_NestedMasterDepthBound(t *testing.T) {
	master := "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\nself.m3u8\n"
	get := func(context.Context, *url.URL) ([]byte, error) {
		return []byte(master), nil
	}

	r := NewResolver(get, nil)
	_, err := r.Resolve(context.Background(), "https://cdn.example.com/self.m3u8")
	if err == nil {
		t.Fatal("expected depth error for master playlist chain")
	}
}

func TestResolver_LocalFileWithBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.m3u8")
	manifest := "#EXTM3U\n#EXTINF:4,\nseg0.ts\n#EXT-X-ENDLIST\n"
	if err := os.WriteFile(path, []byte(manifest), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	r := NewResolver(func(context.Context, *url.URL) ([]byte, error) {
		t.Fatal("local manifest should not hit the network")
		return nil, nil
	}, nil)

	base, _ := url.Parse("https://cdn.example.com/vod/")
	r.SetBase(base)

	media, err := r.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := "https://cdn.example.com/vod/seg0.ts"; media.Segments[0].URI.String() != want {
		t.Errorf("segment URI = %s, want %s", media.Segments[0].URI, want)
	}
}
