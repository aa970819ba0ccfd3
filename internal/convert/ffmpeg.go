package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/your-org/ytmerge/internal/observability"
)

// ErrTranscode is wrapped by every merge failure, including timeouts.
var ErrTranscode = errors.New("transcode failed")

// TranscodeError carries the tail of ffmpeg's diagnostic output.
type TranscodeError struct {
	Err    error
	Stderr string
}

func (e *TranscodeError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("transcode failed: %v", e.Err)
	}
	return fmt.Sprintf("transcode failed: %v: %s", e.Err, e.Stderr)
}

func (e *TranscodeError) Unwrap() []error {
	return []error{ErrTranscode, e.Err}
}

// Transcoder merges a video stream and an audio stream into one file.
type Transcoder interface {
	Merge(ctx context.Context, videoURL, audioURL, dest string) error
}

// FFmpeg merges with the ffmpeg binary: video copied verbatim from input 1,
// audio from input 2 re-encoded to AudioCodec, one mp4 written to dest.
type FFmpeg struct {
	Binary       string
	AudioCodec   string
	AudioBitrate string
	Timeout      time.Duration
	// WaitDelay bounds how long Merge waits for ffmpeg's output to close
	// after the process is killed. Zero means defaultWaitDelay.
	WaitDelay time.Duration
}

const (
	stderrTailLines  = 20
	defaultWaitDelay = 5 * time.Second
)

func (f *FFmpeg) Merge(ctx context.Context, videoURL, audioURL, dest string) error {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	start := time.Now()
	observability.ConversionsInFlight.Inc()
	defer observability.ConversionsInFlight.Dec()

	cmd := exec.CommandContext(ctx, f.binary(), f.mergeArgs(videoURL, audioURL, dest)...)
	cmd.WaitDelay = f.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	// stderr goes through exec's own copier so that WaitDelay also covers a
	// child process still holding the descriptor after ffmpeg is killed.
	pr, pw := io.Pipe()
	cmd.Stderr = pw
	tail := newLineTail(stderrTailLines)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		tail.consume(pr, dest)
	}()

	if err := cmd.Start(); err != nil {
		pw.Close()
		<-consumed
		return &TranscodeError{Err: fmt.Errorf("start ffmpeg: %w", err)}
	}

	err := cmd.Wait()
	pw.Close()
	<-consumed
	elapsed := time.Since(start)
	if err != nil {
		observability.TranscodeDuration.WithLabelValues("failure").Observe(elapsed.Seconds())
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return &TranscodeError{Err: err, Stderr: tail.String()}
	}

	observability.TranscodeDuration.WithLabelValues("success").Observe(elapsed.Seconds())
	slog.Info("merged streams", "dest", dest, "duration", elapsed.String())
	return nil
}

func (f *FFmpeg) binary() string {
	if f.Binary == "" {
		return "ffmpeg"
	}
	return f.Binary
}

func (f *FFmpeg) mergeArgs(videoURL, audioURL, dest string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-y",
	}
	args = append(args, inputArgs(videoURL)...)
	args = append(args, inputArgs(audioURL)...)

	codec := f.AudioCodec
	if codec == "" {
		codec = "aac"
	}
	args = append(args,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", codec,
	)
	if f.AudioBitrate != "" {
		args = append(args, "-b:a", f.AudioBitrate)
	}
	return append(args,
		"-movflags", "+faststart",
		"-f", "mp4",
		dest,
	)
}

// inputArgs adds reconnect options for remote inputs.
func inputArgs(url string) []string {
	args := []string{}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
			"-rw_timeout", "30000000", // 30s (microseconds)
		)
	}
	return append(args, "-i", url)
}

// lineTail keeps the last n lines written by ffmpeg.
type lineTail struct {
	n     int
	lines []string
}

func newLineTail(n int) *lineTail {
	return &lineTail{n: n}
}

// consume reads r to EOF. Output past an over-long line is discarded but
// still drained so the writer never blocks.
func (t *lineTail) consume(r io.Reader, dest string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		slog.Debug("ffmpeg stderr", "dest", dest, "output", line)
		t.lines = append(t.lines, line)
		if len(t.lines) > t.n {
			t.lines = t.lines[1:]
		}
	}
	_, _ = io.Copy(io.Discard, r)
}

func (t *lineTail) String() string {
	return strings.Join(t.lines, "\n")
}
