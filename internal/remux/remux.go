package remux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"tubegate/internal/logging"
	"tubegate/internal/metrics"
	"tubegate/internal/streaming"
)

// InputMode selects how ffmpeg receives its two input streams.
type InputMode string

const (
	// InputURL passes the direct stream URLs to ffmpeg, which fetches them
	// itself with the configured request headers.
	InputURL InputMode = "url"
	// InputPipe fetches both streams in-process and feeds ffmpeg through
	// inherited pipes.
	InputPipe InputMode = "pipe"
)

// ParseInputMode maps a configuration value to an InputMode.
func ParseInputMode(s string) (InputMode, error) {
	switch InputMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", InputURL:
		return InputURL, nil
	case InputPipe:
		return InputPipe, nil
	default:
		return "", fmt.Errorf("unknown remux input mode %q", s)
	}
}

// ContentType and Extension describe the remux output container.
const (
	ContentType = "video/mp4"
	Extension   = "mp4"
)

// ErrFFmpegNotFound is returned when the ffmpeg binary cannot be located.
var ErrFFmpegNotFound = errors.New("ffmpeg not found")

// ExitError reports an ffmpeg run that ended unsuccessfully, with the tail of
// its stderr.
type ExitError struct {
	Err    error
	Stderr []string
}

func (e *ExitError) Error() string {
	if len(e.Stderr) == 0 {
		return fmt.Sprintf("ffmpeg failed: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg failed: %v: %s", e.Err, e.Stderr[len(e.Stderr)-1])
}

func (e *ExitError) Unwrap() error { return e.Err }

// Config holds remuxer settings.
type Config struct {
	// FFmpegPath is the binary to run, "ffmpeg" when empty.
	FFmpegPath string
	// InputMode selects URL or pipe inputs.
	InputMode InputMode
	// Headers is a CRLF-terminated header block ffmpeg sends when fetching
	// URL inputs.
	Headers string
	// WaitDelay bounds how long Wait waits for I/O after the process is
	// killed.
	WaitDelay time.Duration
	// StderrLines is how many stderr lines are kept for diagnostics.
	StderrLines int
	// MaxJobs caps concurrent ffmpeg processes; further jobs wait for a
	// slot. Zero means no cap.
	MaxJobs int
}

// Input is one side of a remux job.
type Input struct {
	// URL is the direct stream location, used in URL mode.
	URL string
	// Open fetches the stream in pipe mode. The returned reader must stop
	// when ctx ends.
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// Job describes one remux: a video-only and an audio-only input combined into
// a single streamed container.
type Job struct {
	Label string
	Video Input
	Audio Input
}

// Remuxer runs ffmpeg remux jobs and tracks the live processes so they can be
// killed at shutdown.
type Remuxer struct {
	cfg   Config
	slots *semaphore.Weighted

	processes map[uint64]*exec.Cmd
	processMu sync.Mutex
	nextID    atomic.Uint64
}

// New creates a Remuxer.
func New(cfg Config) *Remuxer {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.InputMode == "" {
		cfg.InputMode = InputURL
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = 5 * time.Second
	}
	if cfg.StderrLines <= 0 {
		cfg.StderrLines = 20
	}
	r := &Remuxer{
		cfg:       cfg,
		processes: make(map[uint64]*exec.Cmd),
	}
	if cfg.MaxJobs > 0 {
		r.slots = semaphore.NewWeighted(int64(cfg.MaxJobs))
	}
	return r
}

// Mode returns the configured input mode.
func (r *Remuxer) Mode() InputMode {
	return r.cfg.InputMode
}

// CheckAvailable resolves the ffmpeg binary on PATH or at the given path.
func CheckAvailable(path string) (string, error) {
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}
	return resolved, nil
}

// Args builds the ffmpeg argument list for the given input sources.
func (r *Remuxer) Args(videoSrc, audioSrc string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}

	for _, src := range []string{videoSrc, audioSrc} {
		if r.cfg.InputMode == InputURL {
			if r.cfg.Headers != "" {
				args = append(args, "-headers", r.cfg.Headers)
			}
		}
		args = append(args, "-i", src)
	}

	return append(args,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-f", "mp4",
		// Fragmented output can be written to a non-seekable pipe.
		"-movflags", "frag_keyframe+empty_moov+default_base_moof",
		"pipe:1",
	)
}

// Run remuxes job into w and returns the number of bytes written. The ffmpeg
// process, any input feeders and the upstream fetches they hold are torn down
// before Run returns, whatever the outcome. Canceling ctx aborts the job.
func (r *Remuxer) Run(ctx context.Context, job Job, w io.Writer) (int64, error) {
	if r.slots != nil {
		if !r.slots.TryAcquire(1) {
			logging.Debug("Remux for %s waiting for a free slot (max %d)", job.Label, r.cfg.MaxJobs)
			if err := r.slots.Acquire(ctx, 1); err != nil {
				metrics.RemuxJobsTotal.WithLabelValues("client_gone").Inc()
				return 0, err
			}
		}
		defer r.slots.Release(1)
	}

	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	videoSrc, audioSrc := job.Video.URL, job.Audio.URL
	var (
		childEnds []*os.File
		feeds     []feed
	)
	if r.cfg.InputMode == InputPipe {
		var err error
		childEnds, feeds, err = openFeeds(job)
		if err != nil {
			metrics.RemuxJobsTotal.WithLabelValues("error").Inc()
			return 0, err
		}
		// ExtraFiles[i] becomes fd 3+i in the child.
		videoSrc, audioSrc = "pipe:3", "pipe:4"
	}

	cmd := exec.CommandContext(gctx, r.cfg.FFmpegPath, r.Args(videoSrc, audioSrc)...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = r.cfg.WaitDelay
	cmd.ExtraFiles = childEnds

	stderr := newLineRing(r.cfg.StderrLines)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		closeFiles(childEnds)
		closeFeeds(feeds)
		metrics.RemuxJobsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		closeFiles(childEnds)
		closeFeeds(feeds)
		metrics.RemuxJobsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	// The child holds its own copies of the read ends.
	closeFiles(childEnds)

	id := r.track(cmd)
	defer r.untrack(id)

	logging.Debug("Remux started for %s (pid %d, mode %s)", job.Label, cmd.Process.Pid, r.cfg.InputMode)

	for _, f := range feeds {
		g.Go(func() error { return f.run(gctx) })
	}

	var written int64
	g.Go(func() error {
		n, copyErr := io.Copy(w, stdout)
		written = n
		if copyErr != nil {
			// Kill ffmpeg before waiting on it.
			cancel()
		}

		waitErr := cmd.Wait()
		if copyErr != nil {
			return fmt.Errorf("failed to forward remux output: %w", copyErr)
		}
		if waitErr != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &ExitError{Err: waitErr, Stderr: stderr.Lines()}
		}
		return nil
	})

	err = g.Wait()
	duration := time.Since(start)
	metrics.RemuxJobDuration.Observe(duration.Seconds())

	switch {
	case err == nil:
		metrics.RemuxJobsTotal.WithLabelValues("success").Inc()
		logging.Info("Remux completed for %s: %s in %v", job.Label, humanize.Bytes(uint64(written)), duration.Round(time.Millisecond))
	case errors.Is(err, streaming.ErrClientGone) || errors.Is(err, streaming.ErrWriteTimeout) || errors.Is(err, context.Canceled):
		metrics.RemuxJobsTotal.WithLabelValues("client_gone").Inc()
		logging.Info("Remux aborted for %s after %s: %v", job.Label, humanize.Bytes(uint64(written)), err)
	default:
		metrics.RemuxJobsTotal.WithLabelValues("error").Inc()
		if lines := stderr.Lines(); len(lines) > 0 {
			logging.Error("FFmpeg stderr for %s: %s", job.Label, strings.Join(lines, " | "))
		}
	}

	return written, err
}

// ActiveJobs returns the number of running ffmpeg processes.
func (r *Remuxer) ActiveJobs() int {
	r.processMu.Lock()
	defer r.processMu.Unlock()
	return len(r.processes)
}

// MaxJobs returns the cap on concurrent ffmpeg processes, 0 if unlimited.
func (r *Remuxer) MaxJobs() int {
	return r.cfg.MaxJobs
}

// Cleanup kills all running remux processes.
func (r *Remuxer) Cleanup() {
	r.processMu.Lock()
	defer r.processMu.Unlock()

	for id, cmd := range r.processes {
		logging.Info("Killing remux process %d", id)
		if err := killProcessGroup(cmd); err != nil {
			logging.Warn("failed to kill remux process %d: %v", id, err)
		}
	}
}

func (r *Remuxer) track(cmd *exec.Cmd) uint64 {
	id := r.nextID.Add(1)
	r.processMu.Lock()
	r.processes[id] = cmd
	r.processMu.Unlock()
	return id
}

func (r *Remuxer) untrack(id uint64) {
	r.processMu.Lock()
	delete(r.processes, id)
	r.processMu.Unlock()
}

// feed copies one upstream stream into the write end of an ffmpeg input pipe.
type feed struct {
	name  string
	input Input
	dst   *os.File
}

// inputClosedError marks a failed write into ffmpeg's input pipe. ffmpeg's
// exit status decides whether that matters.
type inputClosedError struct{ err error }

func (e *inputClosedError) Error() string { return e.err.Error() }

type pipeWriter struct{ f *os.File }

func (p pipeWriter) Write(b []byte) (int, error) {
	n, err := p.f.Write(b)
	if err != nil {
		return n, &inputClosedError{err: err}
	}
	return n, nil
}

func (f feed) run(ctx context.Context) error {
	defer f.dst.Close()

	if f.input.Open == nil {
		return fmt.Errorf("%s input has no source", f.name)
	}
	body, err := f.input.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open %s stream: %w", f.name, err)
	}
	defer body.Close()

	n, err := io.Copy(pipeWriter{f.dst}, body)
	var closed *inputClosedError
	if errors.As(err, &closed) {
		logging.Debug("ffmpeg closed %s input after %s", f.name, humanize.Bytes(uint64(n)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s stream: %w", f.name, err)
	}
	return nil
}

// openFeeds creates the video and audio pipes. It returns the read ends for
// the child and the feeders owning the write ends.
func openFeeds(job Job) ([]*os.File, []feed, error) {
	vr, vw, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create video pipe: %w", err)
	}
	ar, aw, err := os.Pipe()
	if err != nil {
		closeFiles([]*os.File{vr, vw})
		return nil, nil, fmt.Errorf("failed to create audio pipe: %w", err)
	}
	return []*os.File{vr, ar}, []feed{
		{name: "video", input: job.Video, dst: vw},
		{name: "audio", input: job.Audio, dst: aw},
	}, nil
}

func closeFeeds(feeds []feed) {
	for _, f := range feeds {
		_ = f.dst.Close()
	}
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
