// Package catalog turns the upstream format list of a video into the
// simplified, ordered catalog shown to users.
//
// Formats are split into three classes:
//
//   - combined: video and audio in one stream, downloadable directly
//   - video-only: high resolution renditions that need an audio track remuxed in
//   - audio-only: standalone audio tracks
//
// Combined and video-only formats are ordered tallest first with a stable
// sort, so formats of equal height keep the upstream order.
package catalog
