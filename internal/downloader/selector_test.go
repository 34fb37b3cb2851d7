package downloader_test

import (
	"testing"

	"konbata/internal/downloader"
	"konbata/internal/entity"
)

func TestBuildChain(t *testing.T) {
	tests := []struct {
		name      string
		kind      entity.OutputKind
		container string
		quality   string
		want      string
	}{
		{
			name: "audio best", kind: entity.KindAudio, container: "mp3", quality: "best",
			want: "bestaudio/best",
		},
		{
			name: "audio min bitrate", kind: entity.KindAudio, container: "mp3", quality: "192k",
			want: "bestaudio[abr>=192]/bestaudio/best",
		},
		{
			name: "audio unparseable quality falls back to best", kind: entity.KindAudio, container: "m4a", quality: "high",
			want: "bestaudio/best",
		},
		{
			name: "video mp4 height capped", kind: entity.KindVideo, container: "mp4", quality: "720p",
			want: "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best[ext=mp4]/best",
		},
		{
			name: "video mp4 best", kind: entity.KindVideo, container: "mp4", quality: "best",
			want: "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		},
		{
			name: "video mkv height capped", kind: entity.KindVideo, container: "mkv", quality: "1080p",
			want: "bestvideo[height<=1080]+bestaudio/best[height<=1080]/best",
		},
		{
			name: "video webm best", kind: entity.KindVideo, container: "webm", quality: "best",
			want: "bestvideo+bestaudio/best",
		},
		{
			name: "empty quality means best", kind: entity.KindVideo, container: "mkv", quality: "",
			want: "bestvideo+bestaudio/best",
		},
		{
			name: "container case insensitive", kind: entity.KindVideo, container: "MP4", quality: "360p",
			want: "bestvideo[height<=360][ext=mp4]+bestaudio[ext=m4a]/best[height<=360][ext=mp4]/best[ext=mp4]/best",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := downloader.BuildChain(tc.kind, tc.container, tc.quality).String()
			if got != tc.want {
				t.Errorf("BuildChain(%s, %s, %s) =\n  %s\nwant:\n  %s", tc.kind, tc.container, tc.quality, got, tc.want)
			}
		})
	}
}

func TestChainStructure(t *testing.T) {
	chain := downloader.BuildChain(entity.KindVideo, "mp4", "720p")

	if len(chain) != 4 {
		t.Fatalf("len(chain) = %d, want 4 fallback rungs", len(chain))
	}

	// the preferred rung merges two streams, every fallback is single-stream
	if len(chain[0]) != 2 {
		t.Errorf("preferred alternative has %d streams, want 2", len(chain[0]))
	}

	for i, alt := range chain[1:] {
		if len(alt) != 1 {
			t.Errorf("fallback %d has %d streams, want 1", i+1, len(alt))
		}
	}

	// the last rung is always unconstrained best
	last := chain[len(chain)-1]
	if last.String() != "best" {
		t.Errorf("last rung = %q, want %q", last.String(), "best")
	}
}
