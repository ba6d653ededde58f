/*
Package streaming forwards download bodies to HTTP clients without letting a
slow or vanished client pin an upstream connection or an ffmpeg process.

TimeoutWriter wraps the http.ResponseWriter:

  - every write gets a connection deadline through http.ResponseController
    and is flushed straight away
  - a timer ends the stream when no bytes are delivered for IdleTimeout
  - MaxDuration optionally caps the whole transfer
  - Context ends with the stream, so producers derived from it stop too

Typical use with a producer:

	tw := streaming.NewTimeoutWriter(r.Context(), w, cfg)
	n, err := plan.Stream(tw.Context(), tw)
	written := tw.Written()
	tw.Close()

A failed write cancels the writer context, which in turn kills the process or
aborts the upstream request. Write returns ErrWriteTimeout, ErrClientGone or
ErrStreamCanceled once the stream has ended; check them with errors.Is. Once
Written reports true the response status is committed.
*/
package streaming
