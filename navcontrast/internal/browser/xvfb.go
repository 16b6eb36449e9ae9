package browser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Headful Chrome draws on a private Xvfb screen, larger than any default
// viewport so captures never clip.
const (
	xvfbScreen   = "1920x1080x24"
	xvfbReady    = 3 * time.Second
	xvfbPoll     = 50 * time.Millisecond
	xvfbStopWait = 2 * time.Second
)

const x11SocketDir = "/tmp/.X11-unix"

// xvfbSocket maps a display name such as ":99" or ":99.0" to the unix
// socket the X server listens on.
func xvfbSocket(display string) (string, error) {
	n, ok := strings.CutPrefix(display, ":")
	if !ok {
		return "", fmt.Errorf("display %q: want :N", display)
	}
	n, _, _ = strings.Cut(n, ".")
	if _, err := strconv.Atoi(n); err != nil {
		return "", fmt.Errorf("display %q: want :N", display)
	}
	return filepath.Join(x11SocketDir, "X"+n), nil
}

// waitSocket polls until path exists or timeout elapses.
func waitSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s not ready after %v", path, timeout)
		}
		time.Sleep(xvfbPoll)
	}
}

// startXvfb runs Xvfb on cfg.XvfbDisplay and returns once its socket
// accepts clients. A server already holding the display is reused.
func (m *Manager) startXvfb() error {
	if m.xvfb != nil {
		return nil
	}
	display := m.cfg.XvfbDisplay
	sock, err := xvfbSocket(display)
	if err != nil {
		return err
	}

	cmd := exec.Command("Xvfb", display, "-screen", "0", xvfbScreen, "-ac", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("exec Xvfb %s: %w", display, err)
	}
	if err := waitSocket(sock, xvfbReady); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return err
	}
	m.xvfb = cmd
	m.cfg.Logger.Info("browser: xvfb ready", "display", display, "pid", cmd.Process.Pid)
	return nil
}

// stopXvfb sends SIGTERM and kills the server if it outlives xvfbStopWait.
func (m *Manager) stopXvfb() {
	cmd := m.xvfb
	m.xvfb = nil
	if cmd == nil || cmd.Process == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(xvfbStopWait):
		cmd.Process.Kill()
		<-done
	}
	m.cfg.Logger.Info("browser: xvfb stopped", "display", m.cfg.XvfbDisplay)
}
