// Package remux merges a video-only and an audio-only stream into a single
// fragmented MP4 by running ffmpeg as a child process.
//
// The container is written to ffmpeg's stdout and copied straight to the
// client, so output starts before the inputs are fully read. Inputs are
// either handed to ffmpeg as URLs (InputURL) or fetched in-process and fed
// through inherited pipes (InputPipe). Each job runs in its own process
// group; canceling the job context kills the whole group.
//
// Running jobs are tracked so that Cleanup can terminate them on shutdown.
package remux
