// Package notifier delivers desktop notifications through the companion
// tray application.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	"github.com/FahimKhamsa/madhabits/internal/models"
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

var ErrTrayNotRunning = errors.New("madhabits-tray is not running")

type Notifier struct {
	client *http.Client
}

type WebhookPayload struct {
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
}

// trayLock is the content of the tray lockfile: "port|pid|secret".
type trayLock struct {
	Port   int
	PID    int
	Secret string
}

func New() *Notifier {
	return &Notifier{client: &http.Client{Timeout: 5 * time.Second}}
}

func (n *Notifier) Notify(ctx context.Context, text string) error {
	dir, err := GetTrayAppConfigDir()
	if err != nil {
		return err
	}

	lock, err := findAndValidateTrayProcess(filepath.Join(dir, constants.NotifierLockfileName))
	if err != nil {
		return err
	}

	return n.send(ctx, lock, WebhookPayload{
		Text:       text,
		DurationMs: constants.NotificationDurationMs,
	})
}

// NotifyMissed sends one notification summarizing the missed weekly
// occurrences. It does nothing when missed is empty.
func (n *Notifier) NotifyMissed(ctx context.Context, missed []models.MissedInstance) error {
	text := MissedMessage(missed)
	if text == "" {
		return nil
	}
	return n.Notify(ctx, text)
}

// MissedMessage renders missed occurrences as notification text.
func MissedMessage(missed []models.MissedInstance) string {
	switch len(missed) {
	case 0:
		return ""
	case 1:
		m := missed[0]
		return fmt.Sprintf("%s %s was missed on %s. Pick a make-up day this week.", m.Habit.Icon, m.Habit.Name, m.MissedDate)
	}
	names := make([]string, 0, len(missed))
	for _, m := range missed {
		names = append(names, m.Habit.Name)
	}
	return fmt.Sprintf("%d habits were missed yesterday: %s", len(missed), strings.Join(names, ", "))
}

// GetTrayAppConfigDir returns the configuration directory used by the tray application.
func GetTrayAppConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}

	trayConfigDir := filepath.Join(configDir, constants.TrayAppIdentifier)

	// settings.json may point the lockfile elsewhere
	data, err := os.ReadFile(filepath.Join(trayConfigDir, "settings.json"))
	if err != nil {
		return trayConfigDir, nil
	}
	var store struct {
		Settings struct {
			LockfileDir *string `json:"lockfile_dir"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(data, &store); err == nil && store.Settings.LockfileDir != nil && *store.Settings.LockfileDir != "" {
		return *store.Settings.LockfileDir, nil
	}
	return trayConfigDir, nil
}

func parseLockfile(content string) (trayLock, error) {
	parts := strings.Split(strings.TrimSpace(content), "|")
	if len(parts) != 3 {
		return trayLock{}, errors.New("lockfile is malformed")
	}

	if strings.TrimSpace(parts[0]) == "" {
		return trayLock{}, errors.New("port in lockfile is empty")
	}
	port, err := strconv.Atoi(parts[0])
	if err != nil {
		return trayLock{}, errors.New("invalid port number in lockfile")
	}
	if port < 1 || port > 65535 {
		return trayLock{}, fmt.Errorf("port number %d is outside valid range (1-65535)", port)
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return trayLock{}, errors.New("invalid process ID in lockfile")
	}

	secret := strings.TrimSpace(parts[2])
	if secret == "" {
		return trayLock{}, errors.New("secret in lockfile is empty")
	}
	return trayLock{Port: port, PID: pid, Secret: secret}, nil
}

func findAndValidateTrayProcess(lockfilePath string) (trayLock, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return trayLock{}, ErrTrayNotRunning
	}

	lock, err := parseLockfile(string(content))
	if err != nil {
		return trayLock{}, err
	}

	if !ProcessRunning(lock.PID, constants.TrayExecutablePrefix) {
		return trayLock{}, fmt.Errorf("%w (pid %d)", ErrTrayNotRunning, lock.PID)
	}
	return lock, nil
}

// ProcessRunning reports whether pid is alive and its executable name
// starts with prefix.
func ProcessRunning(pid int, prefix string) bool {
	if pid <= 0 {
		return false
	}
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return false
	}
	return strings.HasPrefix(process.Executable(), prefix)
}

func (n *Notifier) send(ctx context.Context, lock trayLock, payload WebhookPayload) error {
	url := fmt.Sprintf("http://127.0.0.1:%d", lock.Port)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Madhabits-Secret", lock.Secret)

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(body))
}
