package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
)

func combinedFormat(itag, height int, label string) youtube.Format {
	return youtube.Format{
		ItagNo:        itag,
		MimeType:      `video/mp4; codecs="avc1.42001E, mp4a.40.2"`,
		QualityLabel:  label,
		Height:        height,
		AudioChannels: 2,
	}
}

func videoOnlyFormat(itag, height int, label, container string) youtube.Format {
	return youtube.Format{
		ItagNo:       itag,
		MimeType:     `video/` + container + `; codecs="vp9"`,
		QualityLabel: label,
		Height:       height,
	}
}

func audioOnlyFormat(itag int, container string) youtube.Format {
	return youtube.Format{
		ItagNo:        itag,
		MimeType:      `audio/` + container + `; codecs="opus"`,
		AudioChannels: 2,
	}
}

func itags(ds []FormatDescriptor) []int {
	out := make([]int, len(ds))
	for i, d := range ds {
		out[i] = d.Itag
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format youtube.Format
		want   Kind
	}{
		{"combined mp4", combinedFormat(18, 360, "360p"), KindCombined},
		{"video only webm", videoOnlyFormat(248, 1080, "1080p", "webm"), KindVideoOnly},
		{"audio only", audioOnlyFormat(251, "webm"), KindAudioOnly},
		{"audio mime without channel count", youtube.Format{ItagNo: 140, MimeType: "audio/mp4"}, KindAudioOnly},
		{"empty mime", youtube.Format{ItagNo: 1}, KindUnknown},
		{"text track", youtube.Format{ItagNo: 2, MimeType: "text/vtt"}, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.format); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContainer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mime string
		want string
	}{
		{`video/mp4; codecs="avc1.640028"`, "mp4"},
		{`video/webm; codecs="vp9"`, "webm"},
		{`audio/mp4; codecs="mp4a.40.2"`, "mp4"},
		{`audio/webm`, "webm"},
		{`VIDEO/MP4`, "mp4"},
		{``, ""},
		{`garbage`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			f := youtube.Format{MimeType: tt.mime}
			if got := Container(&f); got != tt.want {
				t.Errorf("Container(%q) = %q, want %q", tt.mime, got, tt.want)
			}
		})
	}
}

func TestBuildCountAndOrder(t *testing.T) {
	t.Parallel()

	v := &youtube.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Test Video",
		Duration: 212*time.Second + 900*time.Millisecond,
		Thumbnails: youtube.Thumbnails{
			{URL: "https://i.ytimg.com/vi/x/default.jpg", Width: 120, Height: 90},
			{URL: "https://i.ytimg.com/vi/x/maxresdefault.jpg", Width: 1280, Height: 720},
		},
		Formats: youtube.FormatList{
			audioOnlyFormat(251, "webm"),
			combinedFormat(18, 360, "360p"),
			videoOnlyFormat(137, 1080, "1080p", "mp4"),
			videoOnlyFormat(136, 720, "720p", "mp4"), // below threshold
			videoOnlyFormat(400, 1440, "", "mp4"),    // no label
			audioOnlyFormat(140, "mp4"),
			combinedFormat(22, 720, "720p"),
			videoOnlyFormat(313, 2160, "2160p", "webm"),
		},
	}

	info := Build(v)

	// 2 combined + 2 qualifying video-only + 2 audio-only
	if len(info.Formats) != 6 {
		t.Fatalf("expected 6 formats, got %d: %v", len(info.Formats), itags(info.Formats))
	}

	want := []int{22, 18, 313, 137, 251, 140}
	if got := itags(info.Formats); !equalInts(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	if info.Title != "Test Video" || info.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("unexpected identity: %+v", info)
	}
	if info.Duration != 212 {
		t.Errorf("Duration = %d, want 212", info.Duration)
	}
	if info.Thumbnail != "https://i.ytimg.com/vi/x/maxresdefault.jpg" {
		t.Errorf("Thumbnail = %q, want last entry", info.Thumbnail)
	}
}

func TestBuildDescriptorFields(t *testing.T) {
	t.Parallel()

	v := &youtube.Video{
		Formats: youtube.FormatList{
			combinedFormat(18, 360, "360p"),
			videoOnlyFormat(137, 1080, "1080p", "mp4"),
			audioOnlyFormat(251, "webm"),
		},
	}

	info := Build(v)
	if len(info.Formats) != 3 {
		t.Fatalf("expected 3 formats, got %d", len(info.Formats))
	}

	want := []FormatDescriptor{
		{Itag: 18, Quality: "360p", Container: "mp4", Type: TypeVideo, HasAudio: true, Kind: KindCombined, Height: 360},
		{Itag: 137, Quality: "1080p", Container: "mp4", Type: TypeVideo, HasAudio: false, Kind: KindVideoOnly, Height: 1080},
		{Itag: 251, Quality: AudioQuality, Container: "webm", Type: TypeAudio, HasAudio: true, Kind: KindAudioOnly},
	}
	for i := range want {
		if info.Formats[i] != want[i] {
			t.Errorf("format %d = %+v, want %+v", i, info.Formats[i], want[i])
		}
	}
}

func TestBuildStableSortMissingHeight(t *testing.T) {
	t.Parallel()

	v := &youtube.Video{
		Formats: youtube.FormatList{
			combinedFormat(1, 0, ""),
			combinedFormat(2, 144, "144p"),
			combinedFormat(3, 360, "360p"),
			combinedFormat(4, 360, "360p"),
			combinedFormat(5, 0, ""),
			combinedFormat(6, 360, "360p"),
		},
	}

	info := Build(v)

	want := []int{3, 4, 6, 2, 1, 5}
	if got := itags(info.Formats); !equalInts(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestBuildVideoOnlyTiesKeepSourceOrder(t *testing.T) {
	t.Parallel()

	v := &youtube.Video{
		Formats: youtube.FormatList{
			videoOnlyFormat(248, 1080, "1080p", "webm"),
			videoOnlyFormat(137, 1080, "1080p", "mp4"),
			videoOnlyFormat(399, 1080, "1080p", "mp4"),
			videoOnlyFormat(271, 1440, "1440p", "webm"),
		},
	}

	info := Build(v)

	want := []int{271, 248, 137, 399}
	if got := itags(info.Formats); !equalInts(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()

	info := Build(&youtube.Video{ID: "abc"})

	if info.Formats == nil {
		t.Fatal("Formats should be an empty slice, not nil")
	}
	if len(info.Formats) != 0 {
		t.Errorf("expected no formats, got %d", len(info.Formats))
	}
	if info.Thumbnail != "" {
		t.Errorf("expected empty thumbnail, got %q", info.Thumbnail)
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["formats"].([]interface{}); !ok {
		t.Errorf("formats should encode as an array, got %s", data)
	}
}

func TestFormatDescriptorJSONOmitsSortKey(t *testing.T) {
	t.Parallel()

	d := FormatDescriptor{Itag: 137, Quality: "1080p", Container: "mp4", Type: TypeVideo, Height: 1080, Kind: KindVideoOnly}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}

	want := `{"itag":137,"quality":"1080p","container":"mp4","type":"video","hasAudio":false}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestFindFormat(t *testing.T) {
	t.Parallel()

	v := &youtube.Video{
		Formats: youtube.FormatList{
			combinedFormat(18, 360, "360p"),
			audioOnlyFormat(140, "mp4"),
		},
	}

	if f := FindFormat(v, 140); f == nil || f.ItagNo != 140 {
		t.Errorf("FindFormat(140) = %v", f)
	}
	if f := FindFormat(v, 999); f != nil {
		t.Errorf("FindFormat(999) = %v, want nil", f)
	}
}

func TestPreferredAudio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		formats youtube.FormatList
		want    int
	}{
		{
			name: "prefers mp4 container",
			formats: youtube.FormatList{
				audioOnlyFormat(251, "webm"),
				audioOnlyFormat(140, "mp4"),
				audioOnlyFormat(139, "mp4"),
			},
			want: 140,
		},
		{
			name: "falls back to first audio",
			formats: youtube.FormatList{
				combinedFormat(18, 360, "360p"),
				audioOnlyFormat(250, "webm"),
				audioOnlyFormat(251, "webm"),
			},
			want: 250,
		},
		{
			name: "combined formats are not audio tracks",
			formats: youtube.FormatList{
				combinedFormat(18, 360, "360p"),
			},
			want: 0,
		},
		{
			name:    "no formats",
			formats: nil,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := PreferredAudio(&youtube.Video{Formats: tt.formats})
			if tt.want == 0 {
				if f != nil {
					t.Errorf("expected nil, got itag %d", f.ItagNo)
				}
				return
			}
			if f == nil || f.ItagNo != tt.want {
				t.Errorf("PreferredAudio() = %v, want itag %d", f, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	tests := map[Kind]string{
		KindCombined:  "combined",
		KindVideoOnly: "video-only",
		KindAudioOnly: "audio-only",
		KindUnknown:   "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
