// Package downloader resolves video catalogs and prepares downloads.
//
// Both operations are stateless: every call resolves credentials and fetches
// metadata again, so an info request and a later download request are never
// linked. A download is prepared in two steps. PrepareDownload validates the
// request and picks a branch without writing anything, which lets callers
// still answer with an error status. Plan.Stream then writes the body, either
// passing a pre-combined upstream stream through or remuxing a video-only and
// an audio-only stream with ffmpeg.
package downloader
