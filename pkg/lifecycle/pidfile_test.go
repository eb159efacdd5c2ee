package lifecycle

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenPIDFile_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battmond.pid")

	p, err := OpenPIDFile(path)
	if err != nil {
		t.Fatalf("OpenPIDFile() error = %v", err)
	}
	defer p.Remove()

	if err := p.Write(4242); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// flock is per open file description, so a second open in the same
	// process contends like another process would.
	_, err = OpenPIDFile(path)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second OpenPIDFile() error = %v, want ErrAlreadyRunning", err)
	}
	var are *AlreadyRunningError
	if !errors.As(err, &are) {
		t.Fatalf("second OpenPIDFile() error type = %T", err)
	}
	if are.PID != 4242 {
		t.Errorf("AlreadyRunningError.PID = %d, want 4242", are.PID)
	}
	if !strings.Contains(err.Error(), "4242") {
		t.Errorf("Error() = %q, want pid in message", err.Error())
	}
}

func TestOpenPIDFile_ReleasedAfterRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battmond.pid")

	p, err := OpenPIDFile(path)
	if err != nil {
		t.Fatalf("OpenPIDFile() error = %v", err)
	}
	if err := p.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("pidfile still exists after Remove(): %v", err)
	}

	p, err = OpenPIDFile(path)
	if err != nil {
		t.Fatalf("OpenPIDFile() after Remove() error = %v", err)
	}
	_ = p.Remove()
}

func TestOpenPIDFile_Unwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "battmond.pid")

	_, err := OpenPIDFile(path)
	if err == nil {
		t.Fatal("OpenPIDFile() error = nil, want error")
	}
	if errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("OpenPIDFile() error = %v, must not be ErrAlreadyRunning", err)
	}
}

func TestPIDFile_WriteTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battmond.pid")
	if err := os.WriteFile(path, []byte("123456789\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := OpenPIDFile(path)
	if err != nil {
		t.Fatalf("OpenPIDFile() error = %v", err)
	}
	defer p.Remove()

	if err := p.Write(17); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "17\n" {
		t.Fatalf("pidfile content = %q, want %q", b, "17\n")
	}
}

func TestDaemon_Foreground(t *testing.T) {
	t.Setenv(detachedEnv, "")
	path := filepath.Join(t.TempDir(), "battmond.pid")

	d := New(path, true)
	d.exit = func(code int) { t.Fatalf("foreground daemon must not exit, got %d", code) }

	if err := d.AcquireLock(); err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	defer d.Release()
	if err := d.Detach(); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(b)) == "" {
		t.Fatal("pidfile is empty after Detach()")
	}

	if err := New(path, true).AcquireLock(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second AcquireLock() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestDaemon_DetachSpawnsChild(t *testing.T) {
	t.Setenv(detachedEnv, "")
	path := filepath.Join(t.TempDir(), "battmond.pid")

	var (
		started *exec.Cmd
		code    = -1
	)
	d := New(path, false)
	d.executable = func() (string, error) { return "/usr/sbin/battmond", nil }
	d.start = func(cmd *exec.Cmd) error {
		started = cmd
		cmd.Process = &os.Process{Pid: 99}
		return nil
	}
	d.exit = func(c int) { code = c }

	if err := d.AcquireLock(); err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	defer d.Release()
	if err := d.Detach(); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}

	if code != 0 {
		t.Fatalf("parent exit code = %d, want 0", code)
	}
	if started == nil {
		t.Fatal("no child was started")
	}
	if started.Path != "/usr/sbin/battmond" {
		t.Errorf("child path = %s", started.Path)
	}
	if started.SysProcAttr == nil || !started.SysProcAttr.Setsid {
		t.Error("child must start a new session")
	}
	if len(started.ExtraFiles) != 1 {
		t.Fatalf("child ExtraFiles = %d, want 1", len(started.ExtraFiles))
	}
	env := strings.Join(started.Env, "\n")
	if !strings.Contains(env, detachedEnv+"=1") || !strings.Contains(env, pidfileFDEnv+"=3") {
		t.Errorf("child env lacks detach markers")
	}
}

func TestDaemon_DetachSpawnFailure(t *testing.T) {
	t.Setenv(detachedEnv, "")

	d := New(filepath.Join(t.TempDir(), "battmond.pid"), false)
	d.executable = func() (string, error) { return "", errors.New("no /proc") }
	d.exit = func(c int) { t.Fatalf("must not exit on failure, got %d", c) }

	if err := d.Detach(); err == nil {
		t.Fatal("Detach() error = nil, want error")
	}
}
