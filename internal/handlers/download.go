package handlers

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"tubegate/internal/downloader"
	"tubegate/internal/logging"
	"tubegate/internal/metrics"
	"tubegate/internal/streaming"
)

// Download streams the requested format as an attachment. Pre-combined
// formats are passed through; video-only formats are remuxed with the best
// audio track.
//
// Headers are committed by the first body byte. A failure before that is
// answered with a 500; a failure after it can only truncate the response.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	req := downloader.ParseRequest(r.URL.Query())
	mode := downloader.ModeDirect
	if !req.HasAudio {
		mode = downloader.ModeRemux
	}

	plan, err := h.service.PrepareDownload(r.Context(), req)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(string(mode), downloader.KindOf(err).String()).Inc()
		writeDownloadError(w, r, err)
		return
	}
	defer plan.Close()

	setAttachmentHeaders(w, plan)

	ctx := r.Context()
	logging.InfoContext(ctx, "Download started: %s (%s)", plan.Filename, plan.Mode)

	streamConfig := h.stream
	streamConfig.OnProgress = func(sent int64, elapsed time.Duration) {
		logging.DebugContext(ctx, "Download progress: %s sent %s in %v",
			plan.Filename, humanize.Bytes(uint64(sent)), elapsed.Round(time.Second))
	}

	tw := streaming.NewTimeoutWriter(ctx, w, streamConfig)
	n, err := plan.Stream(tw.Context(), tw)
	written := tw.Written()
	if closeErr := tw.Close(); closeErr != nil {
		logging.WarnContext(ctx, "Failed to close timeout writer: %v", closeErr)
	}
	_, duration := tw.Stats()

	metrics.BytesStreamedTotal.WithLabelValues(string(plan.Mode)).Add(float64(n))

	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(string(plan.Mode), "stream_error").Inc()

		if isClientAbort(err) {
			logging.InfoContext(ctx, "Download abandoned by client: %s after %s", plan.Filename, humanize.Bytes(uint64(n)))
		} else {
			logging.ErrorContext(ctx, "Download failed: %s after %s: %v", plan.Filename, humanize.Bytes(uint64(n)), err)
		}

		if !written {
			clearAttachmentHeaders(w)
			http.Error(w, downloader.MsgInternal, http.StatusInternalServerError)
		}
		return
	}

	metrics.DownloadsTotal.WithLabelValues(string(plan.Mode), "success").Inc()
	logging.InfoContext(ctx, "Download finished: %s (%s), %s in %v",
		plan.Filename, plan.Mode, humanize.Bytes(uint64(n)), duration.Round(time.Millisecond))
}

func setAttachmentHeaders(w http.ResponseWriter, plan *downloader.Plan) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": plan.Filename})
	if disposition == "" {
		disposition = "attachment"
	}

	header := w.Header()
	header.Set("Content-Disposition", disposition)
	header.Set("Content-Type", plan.ContentType)
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Cache-Control", "no-store")
	if plan.ContentLength > 0 {
		header.Set("Content-Length", strconv.FormatInt(plan.ContentLength, 10))
	}
}

func clearAttachmentHeaders(w http.ResponseWriter) {
	header := w.Header()
	header.Del("Content-Disposition")
	header.Del("Content-Length")
	header.Del("Cache-Control")
}

// writeDownloadError answers with a plain-text error; the download link is
// opened directly by the browser, not parsed by script.
func writeDownloadError(w http.ResponseWriter, r *http.Request, err error) {
	msg := downloader.MsgInternal
	status := http.StatusInternalServerError

	var svcErr *downloader.Error
	if errors.As(err, &svcErr) {
		status = statusForKind(svcErr.Kind)
		if status != http.StatusInternalServerError {
			msg = svcErr.Message
		}
	}

	if status >= http.StatusInternalServerError {
		logging.ErrorContext(r.Context(), "Download preparation failed: %v", err)
	} else {
		logging.DebugContext(r.Context(), "Download rejected: %v", err)
	}
	http.Error(w, msg, status)
}

func isClientAbort(err error) bool {
	return errors.Is(err, streaming.ErrClientGone) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, streaming.ErrWriteTimeout)
}
