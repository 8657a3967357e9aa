package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FahimKhamsa/madhabits/internal/backup"
	"github.com/FahimKhamsa/madhabits/internal/remote/memory"
	"github.com/FahimKhamsa/madhabits/internal/storage/sqlite"
)

func newSQLiteContext(t *testing.T) (*Context, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "madhabits.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Failed to init storage: %v", err)
	}
	ctx, _, out := contextFor(t, store, memory.New(memory.WithClock(fixedNow)))
	return ctx, out
}

func TestBackupCreateListRestore(t *testing.T) {
	ctx, out := newSQLiteContext(t)
	login(t, ctx)
	if err := (&HabitAddCmd{Name: "Read"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	if !strings.Contains(out.String(), "Backup created") {
		t.Errorf("unexpected create output: %q", out.String())
	}

	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup list failed: %v", err)
	}
	if !strings.Contains(out.String(), "1 habits") {
		t.Errorf("expected backup summary with one habit, got %q", out.String())
	}

	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.ListBackups()
	if err != nil || len(backups) != 1 {
		t.Fatalf("expected one backup, got %d (%v)", len(backups), err)
	}

	// Add another habit so the restore visibly rolls it back.
	if err := (&HabitAddCmd{Name: "Write"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	out.Reset()
	restore := &BackupRestoreCmd{BackupFile: filepath.Base(backups[0].Path), Yes: true}
	if err := restore.Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !strings.Contains(out.String(), "restored successfully") || !strings.Contains(out.String(), "Previous database saved") {
		t.Errorf("unexpected restore output: %q", out.String())
	}

	summary, err := mgr.Inspect(ctx.Store.GetConfigPath())
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if summary.Habits != 1 {
		t.Errorf("expected restored database with 1 habit, got %d", summary.Habits)
	}
}

func TestBackupRestoreCancelled(t *testing.T) {
	ctx, out := newSQLiteContext(t)
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup create failed: %v", err)
	}
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).ListBackups()
	if err != nil || len(backups) == 0 {
		t.Fatalf("expected a backup: %v", err)
	}

	orig := confirmFunc
	confirmFunc = func(string, string) (bool, error) { return false, nil }
	defer func() { confirmFunc = orig }()

	out.Reset()
	if err := (&BackupRestoreCmd{BackupFile: backups[0].Path}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !strings.Contains(out.String(), "Restore cancelled") {
		t.Errorf("expected cancellation, got %q", out.String())
	}
}

func TestBackupRestoreMissingFile(t *testing.T) {
	ctx, _ := newSQLiteContext(t)
	err := (&BackupRestoreCmd{BackupFile: "madhabits-missing.db", Yes: true}).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}

	abs := filepath.Join(t.TempDir(), "nope.db")
	if _, statErr := os.Stat(abs); !os.IsNotExist(statErr) {
		t.Fatal("temp path unexpectedly exists")
	}
	if err := (&BackupRestoreCmd{BackupFile: abs, Yes: true}).Run(ctx); err == nil {
		t.Error("expected an error for a missing absolute path")
	}
}

func TestBackupListEmpty(t *testing.T) {
	ctx, out := newSQLiteContext(t)
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("backup list failed: %v", err)
	}
	if !strings.Contains(out.String(), "No backups found") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
