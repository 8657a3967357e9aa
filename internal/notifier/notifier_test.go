package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	ps "github.com/mitchellh/go-ps"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	"github.com/FahimKhamsa/madhabits/internal/models"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 0 }
func (m *mockProcess) Executable() string { return m.executable }

func stubProcess(t *testing.T, executable string) {
	t.Helper()
	old := findProcessFunc
	t.Cleanup(func() { findProcessFunc = old })
	findProcessFunc = func(pid int) (ps.Process, error) {
		if executable == "" {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: executable}, nil
	}
}

func stubConfigDir(t *testing.T, dir string) {
	t.Helper()
	old := userConfigDirFunc
	t.Cleanup(func() { userConfigDirFunc = old })
	userConfigDirFunc = func() (string, error) { return dir, nil }
}

func TestGetTrayAppConfigDir(t *testing.T) {
	tempDir := t.TempDir()
	stubConfigDir(t, tempDir)

	expectedDefault := filepath.Join(tempDir, constants.TrayAppIdentifier)
	dir, err := GetTrayAppConfigDir()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if dir != expectedDefault {
		t.Errorf("expected %s, got %s", expectedDefault, dir)
	}

	if err := os.MkdirAll(expectedDefault, 0o755); err != nil {
		t.Fatal(err)
	}
	customDir := "/custom/madhabits/dir"
	settingsJSON := fmt.Sprintf(`{"settings": {"lockfile_dir": %q}}`, customDir)
	if err := os.WriteFile(filepath.Join(expectedDefault, "settings.json"), []byte(settingsJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	dir, err = GetTrayAppConfigDir()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if dir != customDir {
		t.Errorf("expected %s, got %s", customDir, dir)
	}
}

func TestParseLockfile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    trayLock
		errPart string
	}{
		{name: "old two part format", content: "8080|12345", errPart: "malformed"},
		{name: "garbage", content: "invalid", errPart: "malformed"},
		{name: "empty secret", content: "8080|12345|", errPart: "secret"},
		{name: "empty port", content: "|12345|s3cret", errPart: "port"},
		{name: "port out of range", content: "99999|12345|s3cret", errPart: "range"},
		{name: "bad pid", content: "8080|abc|s3cret", errPart: "process ID"},
		{name: "valid", content: "8080|12345|s3cret\n", want: trayLock{Port: 8080, PID: 12345, Secret: "s3cret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLockfile(tt.content)
			if tt.errPart != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errPart) {
					t.Fatalf("parseLockfile() error = %v, want error containing %q", err, tt.errPart)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseLockfile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFindAndValidateTrayProcess(t *testing.T) {
	lockfilePath := filepath.Join(t.TempDir(), constants.NotifierLockfileName)

	if _, err := findAndValidateTrayProcess(lockfilePath); !errors.Is(err, ErrTrayNotRunning) {
		t.Errorf("missing lockfile: error = %v, want ErrTrayNotRunning", err)
	}

	if err := os.WriteFile(lockfilePath, []byte("8080|12345|testsecret123"), 0o644); err != nil {
		t.Fatal(err)
	}

	stubProcess(t, "")
	if _, err := findAndValidateTrayProcess(lockfilePath); !errors.Is(err, ErrTrayNotRunning) {
		t.Errorf("missing process: error = %v, want ErrTrayNotRunning", err)
	}

	stubProcess(t, "other-app")
	if _, err := findAndValidateTrayProcess(lockfilePath); err == nil {
		t.Error("expected error for wrong executable")
	}

	stubProcess(t, constants.TrayExecutablePrefix)
	lock, err := findAndValidateTrayProcess(lockfilePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lock.Port != 8080 || lock.Secret != "testsecret123" {
		t.Errorf("got %+v", lock)
	}
}

func TestProcessRunning(t *testing.T) {
	stubProcess(t, "madhabits")
	if !ProcessRunning(42, "madhabits") {
		t.Error("expected running process to match prefix")
	}
	if ProcessRunning(0, "madhabits") {
		t.Error("pid 0 should never be running")
	}
	if ProcessRunning(42, "madhabits-tray") {
		t.Error("prefix should not match")
	}
}

type inbox struct {
	mu       sync.Mutex
	payloads []WebhookPayload
}

func (i *inbox) add(p WebhookPayload) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.payloads = append(i.payloads, p)
}

func (i *inbox) all() []WebhookPayload {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]WebhookPayload(nil), i.payloads...)
}

func newTrayServer(t *testing.T, received *inbox) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("X-Madhabits-Secret") != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Unauthorized"))
			return
		}
		var payload WebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if payload.Text == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		received.add(payload)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func serverPort(t *testing.T, server *httptest.Server) int {
	t.Helper()
	parts := strings.Split(server.URL, ":")
	port, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		t.Fatal(err)
	}
	return port
}

func TestSend(t *testing.T) {
	received := &inbox{}
	server := newTrayServer(t, received)
	port := serverPort(t, server)
	n := New()
	ctx := context.Background()

	if err := n.send(ctx, trayLock{Port: port, Secret: "test-secret"}, WebhookPayload{Text: "hello"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := n.send(ctx, trayLock{Port: port, Secret: "wrong-secret"}, WebhookPayload{Text: "hello"}); err == nil {
		t.Error("expected error for wrong secret")
	}
	if err := n.send(ctx, trayLock{Port: port, Secret: "test-secret"}, WebhookPayload{Text: "fail"}); err == nil {
		t.Error("expected error for server failure")
	}
	if got := received.all(); len(got) != 1 || got[0].Text != "hello" {
		t.Errorf("received = %+v", got)
	}
}

func TestNotifyMissed(t *testing.T) {
	received := &inbox{}
	server := newTrayServer(t, received)

	configDir := t.TempDir()
	stubConfigDir(t, configDir)
	stubProcess(t, constants.TrayExecutablePrefix)

	trayDir := filepath.Join(configDir, constants.TrayAppIdentifier)
	if err := os.MkdirAll(trayDir, 0o755); err != nil {
		t.Fatal(err)
	}
	lock := fmt.Sprintf("%d|%d|test-secret", serverPort(t, server), os.Getpid())
	if err := os.WriteFile(filepath.Join(trayDir, constants.NotifierLockfileName), []byte(lock), 0o644); err != nil {
		t.Fatal(err)
	}

	n := New()
	if err := n.NotifyMissed(context.Background(), nil); err != nil {
		t.Fatalf("empty NotifyMissed() error = %v", err)
	}
	if got := received.all(); len(got) != 0 {
		t.Fatalf("expected no notification for empty input, got %d", len(got))
	}

	missed := []models.MissedInstance{{
		Habit:      models.Habit{Name: "Gym", Icon: "🏋"},
		MissedDate: "2024-01-08",
	}}
	if err := n.NotifyMissed(context.Background(), missed); err != nil {
		t.Fatalf("NotifyMissed() error = %v", err)
	}
	got := received.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if !strings.Contains(got[0].Text, "Gym") || !strings.Contains(got[0].Text, "2024-01-08") {
		t.Errorf("text = %q", got[0].Text)
	}
	if got[0].DurationMs != constants.NotificationDurationMs {
		t.Errorf("duration = %d", got[0].DurationMs)
	}
}

func TestMissedMessage(t *testing.T) {
	missed := []models.MissedInstance{
		{Habit: models.Habit{Name: "Gym"}, MissedDate: "2024-01-08"},
		{Habit: models.Habit{Name: "Swim"}, MissedDate: "2024-01-08"},
	}
	got := MissedMessage(missed)
	if !strings.HasPrefix(got, "2 habits") || !strings.Contains(got, "Gym, Swim") {
		t.Errorf("MissedMessage() = %q", got)
	}
	if MissedMessage(nil) != "" {
		t.Error("MissedMessage(nil) should be empty")
	}
}
