package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/livecap/livecap/internal/logger"
)

// ErrExitedEarly is returned by Launch when ffmpeg dies right after
// starting, which usually means a bad stream URL or a missing codec.
var ErrExitedEarly = errors.New("capture process exited immediately")

// launchGrace is how long a fresh process must survive before Launch
// considers the start successful.
const launchGrace = 200 * time.Millisecond

// Spec describes a single capture to launch.
type Spec struct {
	FFmpegPath string
	StreamURL  string
	OutputPath string
	// Proxy, when set, routes the stream fetch through an http proxy.
	Proxy string
	// Name keys the rotated stderr log file, usually the anchor name.
	Name string
	Log  logger.Config
}

// FFmpeg launches ffmpeg capture processes.
type FFmpeg struct{}

// Launch starts ffmpeg for spec and returns a handle once the process
// has survived its launch grace period.
func (FFmpeg) Launch(spec Spec) (*Handle, error) {
	if err := os.MkdirAll(filepath.Dir(spec.OutputPath), 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	cmd := exec.Command(spec.FFmpegPath, recordArgs(spec.StreamURL, spec.OutputPath, spec.Proxy)...)
	return start(cmd, spec)
}

func start(cmd *exec.Cmd, spec Spec) (*Handle, error) {
	h := &Handle{
		cmd:        cmd,
		outputPath: spec.OutputPath,
		startTime:  time.Now().UnixMilli(),
		done:       make(chan struct{}),
	}

	setSysProcAttr(cmd)
	null, _ := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	cmd.Stdout = null

	stderr := io.Writer(&h.tail)
	if w, err := spec.Log.CaptureWriter(spec.Name); err == nil && w != nil {
		h.logCloser = w
		stderr = io.MultiWriter(&h.tail, w)
	}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	go func() {
		h.waitErr = cmd.Wait()
		if h.logCloser != nil {
			_ = h.logCloser.Close()
		}
		close(h.done)
	}()

	select {
	case <-h.done:
		return nil, fmt.Errorf("%w: %v: %s", ErrExitedEarly, h.waitErr, h.tail.String())
	case <-time.After(launchGrace):
	}
	return h, nil
}

// Handle is a running capture process. Its exit is observed by a single
// waiter goroutine so liveness checks never block.
type Handle struct {
	cmd        *exec.Cmd
	outputPath string
	startTime  int64
	tail       tailBuffer
	logCloser  io.Closer

	done    chan struct{} // closed when cmd.Wait returns
	waitErr error         // valid after done is closed
}

// Alive reports whether the process is still running.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// OutputPath is the file the capture writes to.
func (h *Handle) OutputPath() string { return h.outputPath }

// StartTime is the capture start in unix milliseconds.
func (h *Handle) StartTime() int64 { return h.startTime }

// PID returns the process id of the capture.
func (h *Handle) PID() int { return h.cmd.Process.Pid }

// Terminate sends SIGTERM to the process group so ffmpeg can flush and
// finalize the output file.
func (h *Handle) Terminate() error {
	if !h.Alive() {
		return nil
	}
	return terminateGroup(h.cmd.Process.Pid)
}

// Wait blocks until the process exits. If it is still running after
// timeout it is killed along with its process group.
func (h *Handle) Wait(timeout time.Duration) error {
	select {
	case <-h.done:
		return h.exitErr()
	case <-time.After(timeout):
	}
	killGroup(h.cmd.Process.Pid)
	<-h.done
	return h.exitErr()
}

func (h *Handle) exitErr() error {
	var ee *exec.ExitError
	if errors.As(h.waitErr, &ee) {
		// a signalled exit is the normal way captures end
		return nil
	}
	return h.waitErr
}

// StderrTail returns the last captured stderr output for diagnostics.
func (h *Handle) StderrTail() string { return h.tail.String() }

// tailBuffer keeps the most recent stderr bytes for error reporting.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

const tailLimit = 4 << 10

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > tailLimit {
		t.buf = t.buf[len(t.buf)-tailLimit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
