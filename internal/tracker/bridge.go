package tracker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"github.com/ayusman/attention/internal/skeleton"
)

// Bridge timing defaults, applied when the corresponding BridgeConfig field is zero.
const (
	DefaultRequestTimeout = 2 * time.Second
	DefaultStartTimeout   = 30 * time.Second
	DefaultStopTimeout    = 2 * time.Second
)

// BridgeConfig configures a BridgeProvider.
type BridgeConfig struct {
	// Command is the executable that talks to the body-tracking SDK.
	Command string
	// Args are passed to Command. A first argument ending in .py is resolved
	// against the usual script locations.
	Args []string
	// IdleTimeout stops the subprocess after this long without a request.
	// Zero disables the idle shutdown.
	IdleTimeout time.Duration
	// RequestTimeout bounds the wait for one response line.
	RequestTimeout time.Duration
	// StartTimeout bounds the first response after a start, which includes
	// opening the device and loading the tracker model.
	StartTimeout time.Duration
	// StopTimeout is how long a stopping subprocess may take to exit after
	// its stdin closes before it is killed.
	StopTimeout time.Duration
	Logger      *zap.Logger
}

// BridgeProvider implements Provider using a subprocess that wraps the
// vendor body-tracking SDK. Each Update writes one request line to the
// subprocess stdin and reads one JSON line from its stdout.
// The subprocess is started lazily on the first Update. A subprocess that
// misses a deadline is killed and restarted on the next Update.
type BridgeProvider struct {
	config  BridgeConfig
	command string
	args    []string

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *os.File
	lines     chan bridgeLine
	done      chan struct{}
	started   bool
	warm      bool
	idleTimer *time.Timer
}

type bridgeLine struct {
	data []byte
	err  error
}

// NewBridgeProvider creates a BridgeProvider. It returns ErrBridgeNotFound
// if the command or its script cannot be located.
func NewBridgeProvider(config BridgeConfig) (*BridgeProvider, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.StartTimeout <= 0 {
		config.StartTimeout = DefaultStartTimeout
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = DefaultStopTimeout
	}

	command, err := exec.LookPath(config.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBridgeNotFound, config.Command)
	}

	args := append([]string(nil), config.Args...)
	if len(args) > 0 && strings.HasSuffix(args[0], ".py") {
		script := findBridgeScript(args[0])
		if script == "" {
			return nil, fmt.Errorf("%w: %s", ErrBridgeNotFound, args[0])
		}
		args[0] = script
	}

	return &BridgeProvider{
		config:  config,
		command: command,
		args:    args,
	}, nil
}

// Update requests one frame from the subprocess. It returns when a response
// arrives, ctx is done or the request timeout expires, whichever is first.
func (p *BridgeProvider) Update(ctx context.Context) (Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	if err := p.ensureStarted(); err != nil {
		return Frame{}, err
	}

	if _, err := io.WriteString(p.stdin, "frame\n"); err != nil {
		p.kill()
		return Frame{}, fmt.Errorf("write request: %w", err)
	}

	timeout := p.config.RequestTimeout
	if !p.warm {
		timeout = p.config.StartTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var line bridgeLine
	select {
	case line = <-p.lines:
	case <-ctx.Done():
		// A late answer would be read as the reply to the next request.
		p.kill()
		return Frame{}, ctx.Err()
	case <-timer.C:
		p.kill()
		return Frame{}, fmt.Errorf("%w: no response within %s", ErrBridgeTimeout, timeout)
	}

	if line.err != nil {
		p.shutdown()
		return Frame{}, fmt.Errorf("read response: %w", line.err)
	}
	p.warm = true

	frame, err := parseFrame(line.data)
	if err != nil {
		return Frame{}, err
	}

	p.resetIdleTimer()
	return frame, nil
}

// Close shuts down the subprocess.
func (p *BridgeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown()
}

func (p *BridgeProvider) ensureStarted() error {
	if p.started {
		return nil
	}

	cmd := exec.Command(p.command, p.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	// os.Pipe rather than StdoutPipe: Wait must not close the read end
	// while readLines is still draining it.
	stdout, w, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stdout = w

	// SDK diagnostics go straight to our stderr
	cmd.Stderr = os.Stderr

	err = cmd.Start()
	w.Close()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("start body tracking bridge: %w", err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.stdout = stdout
	p.lines = make(chan bridgeLine)
	p.done = make(chan struct{})
	p.started = true
	p.warm = false
	go readLines(bufio.NewReader(stdout), p.lines, p.done)

	p.config.Logger.Info("body tracking bridge started",
		zap.String("command", p.command),
		zap.Int("pid", cmd.Process.Pid))

	return nil
}

// readLines forwards response lines until the pipe fails or done is closed.
func readLines(r *bufio.Reader, lines chan<- bridgeLine, done <-chan struct{}) {
	for {
		data, err := r.ReadBytes('\n')
		select {
		case lines <- bridgeLine{data: data, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// kill stops an unresponsive subprocess without waiting for it to exit on its own.
func (p *BridgeProvider) kill() {
	if !p.started {
		return
	}
	if err := p.cmd.Process.Kill(); err != nil {
		p.config.Logger.Debug("kill body tracking bridge", zap.Error(err))
	}
	p.config.Logger.Warn("body tracking bridge killed", zap.Int("pid", p.cmd.Process.Pid))
	p.shutdown()
}

func (p *BridgeProvider) shutdown() error {
	if !p.started {
		return nil
	}

	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}

	close(p.done)
	p.stdin.Close()

	cmd := p.cmd
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	var err error
	select {
	case err = <-exited:
	case <-time.After(p.config.StopTimeout):
		p.config.Logger.Warn("body tracking bridge ignored stdin close, killing",
			zap.Int("pid", cmd.Process.Pid))
		cmd.Process.Kill()
		err = <-exited
	}
	p.stdout.Close()

	p.started = false
	p.cmd = nil
	p.stdin = nil
	p.stdout = nil
	p.lines = nil
	p.done = nil

	p.config.Logger.Info("body tracking bridge stopped")
	return err
}

func (p *BridgeProvider) resetIdleTimer() {
	if p.config.IdleTimeout <= 0 {
		return
	}
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.idleTimer = time.AfterFunc(p.config.IdleTimeout, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.shutdown()
	})
}

func findBridgeScript(name string) string {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return name
		}
		return ""
	}

	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	base := filepath.Base(name)
	candidates := []string{
		name,
		filepath.Join("..", name),
		filepath.Join(execDir, name),
		filepath.Join(execDir, "scripts", base),
		filepath.Join(os.Getenv("HOME"), ".attention/scripts", base),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonFrame is one response line from the bridge.
type jsonFrame struct {
	Error       string     `json:"error,omitempty"`
	TimestampUS int64      `json:"timestamp_us"`
	Bodies      []jsonBody `json:"bodies"`
}

type jsonBody struct {
	ID     uint32       `json:"id"`
	Joints [][3]float64 `json:"joints"`
}

func parseFrame(line []byte) (Frame, error) {
	var response jsonFrame
	if err := json.Unmarshal(line, &response); err != nil {
		return Frame{}, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return Frame{}, fmt.Errorf("bridge: %s", response.Error)
	}

	frame := Frame{Timestamp: time.Now()}
	if response.TimestampUS > 0 {
		frame.Timestamp = time.UnixMicro(response.TimestampUS)
	}

	frame.Bodies = make([]Body, 0, len(response.Bodies))
	for _, b := range response.Bodies {
		if len(b.Joints) < int(skeleton.NumJoints) {
			return Frame{}, fmt.Errorf("parse response: body %d has %d joints, want %d",
				b.ID, len(b.Joints), skeleton.NumJoints)
		}
		frame.Bodies = append(frame.Bodies, b.toBody())
	}
	return frame, nil
}

func (b jsonBody) toBody() Body {
	body := Body{ID: b.ID}
	for i := 0; i < int(skeleton.NumJoints); i++ {
		p := b.Joints[i]
		body.Joints[i] = r3.Vector{X: p[0], Y: p[1], Z: p[2]}
	}
	return body
}
