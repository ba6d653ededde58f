package catalog

import (
	"mime"
	"sort"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// Kind classifies an upstream format by the tracks it carries.
type Kind int

const (
	KindUnknown Kind = iota
	KindCombined
	KindVideoOnly
	KindAudioOnly
)

// String returns the classification name used in logs.
func (k Kind) String() string {
	switch k {
	case KindCombined:
		return "combined"
	case KindVideoOnly:
		return "video-only"
	case KindAudioOnly:
		return "audio-only"
	default:
		return "unknown"
	}
}

const (
	// MinVideoOnlyHeight is the lowest video-only rendition offered. Lower
	// resolutions are available pre-combined.
	MinVideoOnlyHeight = 1080

	// AudioQuality is the label every audio-only descriptor carries.
	AudioQuality = "Audio"

	// PreferredAudioContainer is the audio container chosen for remuxing
	// when available.
	PreferredAudioContainer = "mp4"
)

// Descriptor type values.
const (
	TypeVideo = "video"
	TypeAudio = "audio"
)

// FormatDescriptor is the client-facing summary of one downloadable format.
type FormatDescriptor struct {
	Itag      int    `json:"itag"`
	Quality   string `json:"quality"`
	Container string `json:"container"`
	Type      string `json:"type"`
	HasAudio  bool   `json:"hasAudio"`

	Kind   Kind `json:"-"`
	Height int  `json:"-"`
}

// VideoInfo is the simplified catalog returned for a video URL.
type VideoInfo struct {
	Title     string             `json:"title"`
	Thumbnail string             `json:"thumbnail"`
	Duration  uint64             `json:"duration"`
	VideoID   string             `json:"videoId"`
	Formats   []FormatDescriptor `json:"formats"`
}

// Build flattens the upstream video into a VideoInfo. Formats are ordered
// combined (descending height), video-only of at least MinVideoOnlyHeight with a
// quality label (descending height), then audio-only in source order.
func Build(v *youtube.Video) *VideoInfo {
	info := &VideoInfo{
		Title:   v.Title,
		VideoID: v.ID,
		Formats: []FormatDescriptor{},
	}
	if v.Duration > 0 {
		info.Duration = uint64(v.Duration.Seconds())
	}
	if n := len(v.Thumbnails); n > 0 {
		info.Thumbnail = v.Thumbnails[n-1].URL
	}

	var combined, videoOnly, audioOnly []FormatDescriptor
	for i := range v.Formats {
		f := &v.Formats[i]
		switch Classify(f) {
		case KindCombined:
			combined = append(combined, FormatDescriptor{
				Itag:      f.ItagNo,
				Quality:   f.QualityLabel,
				Container: Container(f),
				Type:      TypeVideo,
				HasAudio:  true,
				Kind:      KindCombined,
				Height:    f.Height,
			})
		case KindVideoOnly:
			if f.Height < MinVideoOnlyHeight || f.QualityLabel == "" {
				continue
			}
			videoOnly = append(videoOnly, FormatDescriptor{
				Itag:      f.ItagNo,
				Quality:   f.QualityLabel,
				Container: Container(f),
				Type:      TypeVideo,
				HasAudio:  false,
				Kind:      KindVideoOnly,
				Height:    f.Height,
			})
		case KindAudioOnly:
			audioOnly = append(audioOnly, FormatDescriptor{
				Itag:      f.ItagNo,
				Quality:   AudioQuality,
				Container: Container(f),
				Type:      TypeAudio,
				HasAudio:  true,
				Kind:      KindAudioOnly,
			})
		}
	}

	sortByHeight(combined)
	sortByHeight(videoOnly)

	info.Formats = append(info.Formats, combined...)
	info.Formats = append(info.Formats, videoOnly...)
	info.Formats = append(info.Formats, audioOnly...)
	return info
}

// sortByHeight orders descriptors tallest first, keeping the source order of
// equal heights. A missing height counts as zero.
func sortByHeight(ds []FormatDescriptor) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Height > ds[j].Height
	})
}

// Classify reports which tracks an upstream format carries.
func Classify(f *youtube.Format) Kind {
	mt := mediaType(f)
	hasVideo := strings.HasPrefix(mt, "video/")
	hasAudio := f.AudioChannels > 0 || strings.HasPrefix(mt, "audio/")

	switch {
	case hasVideo && hasAudio:
		return KindCombined
	case hasVideo:
		return KindVideoOnly
	case hasAudio:
		return KindAudioOnly
	default:
		return KindUnknown
	}
}

// Container returns the MIME subtype of a format ("video/webm; codecs=..." is
// "webm"), or an empty string when the MIME type is unusable.
func Container(f *youtube.Format) string {
	mt := mediaType(f)
	_, sub, ok := strings.Cut(mt, "/")
	if !ok {
		return ""
	}
	return sub
}

func mediaType(f *youtube.Format) string {
	if f == nil || f.MimeType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(f.MimeType)
	if err != nil {
		// Fall back to the raw prefix for slightly malformed parameter lists.
		mt, _, _ = strings.Cut(f.MimeType, ";")
		mt = strings.ToLower(strings.TrimSpace(mt))
	}
	return mt
}

// FindFormat returns the upstream format with the given itag, or nil.
func FindFormat(v *youtube.Video, itag int) *youtube.Format {
	for i := range v.Formats {
		if v.Formats[i].ItagNo == itag {
			return &v.Formats[i]
		}
	}
	return nil
}

// PreferredAudio picks the audio track for a remux: the first audio-only
// format in PreferredAudioContainer, else the first audio-only format, else nil.
func PreferredAudio(v *youtube.Video) *youtube.Format {
	var first *youtube.Format
	for i := range v.Formats {
		f := &v.Formats[i]
		if Classify(f) != KindAudioOnly {
			continue
		}
		if Container(f) == PreferredAudioContainer {
			return f
		}
		if first == nil {
			first = f
		}
	}
	return first
}
