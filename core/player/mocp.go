package player

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"Lyra/logger"
)

// runFunc runs a command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Mocp drives the "music on console" player through its command line client.
type Mocp struct {
	path string
	run  runFunc
}

// NewMocp creates a Mocp using the mocp binary at path.
func NewMocp(path string) *Mocp {
	return &Mocp{path: path, run: execRun}
}

func (m *Mocp) do(ctx context.Context, args ...string) ([]byte, error) {
	logger.Debug("running mocp", logger.String("args", strings.Join(args, " ")))
	out, err := m.run(ctx, m.path, args...)
	if err != nil {
		if strings.Contains(strings.ToLower(string(out)), "not running") {
			return out, ErrNotRunning
		}
		return out, fmt.Errorf("mocp %s failed: %w\nmocp output: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Start launches the mocp server.
func (m *Mocp) Start(ctx context.Context) error {
	_, err := m.do(ctx, "-S")
	return err
}

// State parses the "State:" line of mocp -i.
func (m *Mocp) State(ctx context.Context) (State, error) {
	out, err := m.do(ctx, "-i")
	if err != nil {
		return StateStop, err
	}
	return parseMocpState(out)
}

func parseMocpState(out []byte) (State, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != "State" {
			continue
		}
		switch strings.TrimSpace(value) {
		case "PLAY":
			return StatePlay, nil
		case "PAUSE":
			return StatePause, nil
		case "STOP":
			return StateStop, nil
		default:
			return StateStop, fmt.Errorf("unknown mocp state %q", strings.TrimSpace(value))
		}
	}
	return StateStop, fmt.Errorf("no State line in mocp output")
}

// Play plays file right away without touching mocp's own playlist.
func (m *Mocp) Play(ctx context.Context, file string) error {
	_, err := m.do(ctx, "-l", file)
	return err
}

// Shutdown stops the mocp server.
func (m *Mocp) Shutdown(ctx context.Context) error {
	_, err := m.do(ctx, "-x")
	return err
}
