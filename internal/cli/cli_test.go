package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FahimKhamsa/madhabits/internal/config"
	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/remote/memory"
	"github.com/FahimKhamsa/madhabits/internal/storage"
)

// fixedNow is Wednesday 2024-01-03, noon UTC.
func fixedNow() time.Time {
	return time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
}

func testSettings() config.Config {
	s := config.Default()
	s.Timezone = "UTC"
	return s
}

// newTestContext returns a context over an initialized JSON store in a temp
// dir and an in-memory remote store.
func newTestContext(t *testing.T) (*Context, *memory.Store, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "habits.json")
	store := storage.NewJSONStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Failed to init storage: %v", err)
	}
	remoteStore := memory.New(memory.WithClock(fixedNow))
	return contextFor(t, store, remoteStore)
}

func contextFor(t *testing.T, store storage.Provider, remoteStore *memory.Store) (*Context, *memory.Store, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	ctx := &Context{
		Store:    store,
		Settings: testSettings(),
		Remote:   remoteStore,
		Clock:    fixedNow,
		Out:      out,
	}
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx, remoteStore, out
}

func login(t *testing.T, ctx *Context) {
	t.Helper()
	if err := (&LoginCmd{User: "u1"}).Run(ctx); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func TestHabitWorkflow(t *testing.T) {
	ctx, remoteStore, out := newTestContext(t)
	login(t, ctx)

	if err := (&HabitAddCmd{Name: "Read", Frequency: "daily"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !strings.Contains(out.String(), "Added habit") {
		t.Errorf("expected add confirmation, got %q", out.String())
	}
	if strings.Contains(out.String(), "offline") {
		t.Errorf("online add should not be queued, got %q", out.String())
	}

	out.Reset()
	if err := (&HabitListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Read") || !strings.Contains(out.String(), "daily") {
		t.Errorf("expected habit in list, got %q", out.String())
	}

	out.Reset()
	if err := (&HabitMarkCmd{Habit: "read"}).Run(ctx); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if !strings.Contains(out.String(), "Marked habit") || !strings.Contains(out.String(), "streak 1") {
		t.Errorf("unexpected mark output: %q", out.String())
	}
	records := remoteStore.Records()
	if len(records) != 1 || !records[0].Completed || records[0].Date != "2024-01-03" {
		t.Errorf("expected one completed remote record for today, got %+v", records)
	}

	out.Reset()
	if err := (&HabitTodayCmd{}).Run(ctx); err != nil {
		t.Fatalf("today failed: %v", err)
	}
	if !strings.Contains(out.String(), "Recorded: 1/1") {
		t.Errorf("expected 1/1 recorded, got %q", out.String())
	}

	out.Reset()
	if err := (&HabitLogCmd{Days: 3}).Run(ctx); err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if !strings.Contains(out.String(), "01/03") || !strings.Contains(out.String(), "x") {
		t.Errorf("expected today's column marked done, got %q", out.String())
	}

	out.Reset()
	if err := (&HabitMarkCmd{Habit: "Read"}).Run(ctx); err != nil {
		t.Fatalf("second mark failed: %v", err)
	}
	if !strings.Contains(out.String(), "Unmarked habit") {
		t.Errorf("expected toggle back, got %q", out.String())
	}
}

func TestHabitStatePersistsAcrossRuns(t *testing.T) {
	ctx, remoteStore, _ := newTestContext(t)
	login(t, ctx)
	if err := (&HabitAddCmd{Name: "Stretch", Frequency: "weekly", Days: "mon,thu"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	path := ctx.Store.GetConfigPath()
	if err := ctx.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	next, _, out := contextFor(t, storage.NewJSONStore(path), remoteStore)
	if err := (&StatusCmd{}).Run(next); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, want := range []string{"User:        u1", "Habits:      1", "Queued:      0"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status missing %q: %q", want, out.String())
		}
	}

	out.Reset()
	if err := (&HabitListCmd{}).Run(next); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "weekly on Mon,Thu") {
		t.Errorf("expected weekly schedule, got %q", out.String())
	}
}

func TestHabitOfflineQueue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habits.json")
	store := storage.NewJSONStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Failed to init storage: %v", err)
	}
	out := &bytes.Buffer{}
	// No remote and backend "none" runs offline.
	ctx := &Context{Store: store, Settings: testSettings(), Clock: fixedNow, Out: out}
	t.Cleanup(func() { _ = ctx.Close() })

	login(t, ctx)
	if !strings.Contains(out.String(), "changes will be queued") {
		t.Errorf("expected offline login notice, got %q", out.String())
	}

	out.Reset()
	if err := (&HabitAddCmd{Name: "Walk"}).Run(ctx); err != nil {
		t.Fatalf("offline add failed: %v", err)
	}
	if !strings.Contains(out.String(), "offline: queued") {
		t.Errorf("expected queued notice, got %q", out.String())
	}
	if err := (&HabitMarkCmd{Habit: "Walk"}).Run(ctx); err != nil {
		t.Fatalf("offline mark failed: %v", err)
	}

	out.Reset()
	if err := (&StatusCmd{}).Run(ctx); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out.String(), "Queued:      2") || !strings.Contains(out.String(), "(offline)") {
		t.Errorf("unexpected status: %q", out.String())
	}

	if err := (&SyncCmd{Timeout: time.Second}).Run(ctx); err == nil {
		t.Error("expected sync to fail without a backend")
	}
}

func TestHabitEditAndDelete(t *testing.T) {
	ctx, remoteStore, out := newTestContext(t)
	login(t, ctx)
	if err := (&HabitAddCmd{Name: "Run"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := (&HabitEditCmd{Habit: "Run", Name: "Jog", Color: "#112233"}).Run(ctx); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	rec, _ := ctx.Reconciler(t.Context())
	h, err := resolveHabit(rec, "jog")
	if err != nil {
		t.Fatalf("renamed habit not found: %v", err)
	}
	if h.Color != "#112233" {
		t.Errorf("expected color #112233, got %s", h.Color)
	}
	if got, _ := remoteStore.Habit(h.ID); got.Name != "Jog" {
		t.Errorf("expected remote rename, got %q", got.Name)
	}

	out.Reset()
	if err := (&HabitDeleteCmd{Habit: "Jog", Yes: true}).Run(ctx); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(rec.Habits()) != 0 {
		t.Errorf("expected no habits after delete, got %d", len(rec.Habits()))
	}
	if _, ok := remoteStore.Habit(h.ID); ok {
		t.Error("expected habit deleted remotely")
	}
}

func TestHabitDeleteCancelled(t *testing.T) {
	ctx, _, out := newTestContext(t)
	login(t, ctx)
	if err := (&HabitAddCmd{Name: "Run"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	orig := confirmFunc
	confirmFunc = func(string, string) (bool, error) { return false, nil }
	defer func() { confirmFunc = orig }()

	if err := (&HabitDeleteCmd{Habit: "Run"}).Run(ctx); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Delete cancelled") {
		t.Errorf("expected cancellation, got %q", out.String())
	}
	rec, _ := ctx.Reconciler(t.Context())
	if len(rec.Habits()) != 1 {
		t.Errorf("expected habit kept, got %d habits", len(rec.Habits()))
	}
}

func TestHabitEditPatchEmpty(t *testing.T) {
	cmd := &HabitEditCmd{Habit: "Run"}
	if _, err := cmd.patch(); err == nil {
		t.Error("expected an error for an edit without changes")
	}

	cmd = &HabitEditCmd{Habit: "Run", Days: "mon,someday"}
	if _, err := cmd.patch(); err == nil {
		t.Error("expected an error for an invalid weekday")
	}

	cmd = &HabitEditCmd{Habit: "Run", Frequency: "weekly", Days: "tue"}
	p, err := cmd.patch()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Frequency == nil || *p.Frequency != models.FrequencyWeekly {
		t.Errorf("expected weekly frequency in patch, got %v", p.Frequency)
	}
	if p.DaysOfWeek == nil || len(*p.DaysOfWeek) != 1 || (*p.DaysOfWeek)[0] != time.Tuesday {
		t.Errorf("expected tuesday in patch, got %v", p.DaysOfWeek)
	}
}

// seedMissedWeekly stores a Tuesday habit for u1 created well before
// yesterday (2024-01-02), which is left uncompleted.
func seedMissedWeekly(remoteStore *memory.Store) {
	created := time.Date(2023, 12, 1, 9, 0, 0, 0, time.UTC)
	remoteStore.Seed([]models.Habit{{
		ID:         "h-weekly",
		UserID:     "u1",
		Name:       "Swim",
		Frequency:  models.FrequencyWeekly,
		DaysOfWeek: []time.Weekday{time.Tuesday},
		CreatedAt:  created,
		UpdatedAt:  created,
	}}, nil)
}

func TestHabitWarningsInteractive(t *testing.T) {
	ctx, remoteStore, out := newTestContext(t)
	seedMissedWeekly(remoteStore)
	login(t, ctx)

	var offered []string
	orig := chooseFunc
	chooseFunc = func(_ string, options []string) (string, error) {
		offered = options
		return options[0], nil
	}
	defer func() { chooseFunc = orig }()

	if err := (&HabitWarningsCmd{Interactive: true}).Run(ctx); err != nil {
		t.Fatalf("warnings failed: %v", err)
	}
	if !strings.Contains(out.String(), "was due on 2024-01-02") {
		t.Errorf("expected missed date in output, got %q", out.String())
	}
	if len(offered) == 0 || offered[0] != "2024-01-03" {
		t.Fatalf("expected today offered first, got %v", offered)
	}

	got, _ := remoteStore.Habit("h-weekly")
	if !got.HasAlternativeDate("2024-01-03") {
		t.Errorf("expected make-up date stored remotely, got %v", got.AlternativeCompletionDates)
	}

	out.Reset()
	if err := (&HabitWarningsCmd{}).Run(ctx); err != nil {
		t.Fatalf("warnings failed: %v", err)
	}
	if !strings.Contains(out.String(), "No missed habits") {
		t.Errorf("expected warning cleared, got %q", out.String())
	}
}

func TestHabitWarningsSkip(t *testing.T) {
	ctx, remoteStore, _ := newTestContext(t)
	seedMissedWeekly(remoteStore)
	login(t, ctx)

	orig := chooseFunc
	chooseFunc = func(string, []string) (string, error) { return "", nil }
	defer func() { chooseFunc = orig }()

	if err := (&HabitWarningsCmd{Interactive: true}).Run(ctx); err != nil {
		t.Fatalf("warnings failed: %v", err)
	}
	rec, _ := ctx.Reconciler(t.Context())
	if len(rec.Warnings()) != 1 {
		t.Errorf("skipped warning should remain, got %d", len(rec.Warnings()))
	}
}

func TestHabitMakeupOutsideWindow(t *testing.T) {
	ctx, remoteStore, _ := newTestContext(t)
	seedMissedWeekly(remoteStore)
	login(t, ctx)

	err := (&HabitMakeupCmd{Habit: "Swim", Missed: "2024-01-02", Date: "2024-01-20"}).Run(ctx)
	if err == nil {
		t.Error("expected an error for a make-up date outside the window")
	}
}

func TestHabitLogRejectsZeroDays(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	if err := (&HabitLogCmd{Days: 0}).Run(ctx); err == nil {
		t.Error("expected an error for --days 0")
	}
}

func TestLogoutKeepsHabits(t *testing.T) {
	ctx, _, out := newTestContext(t)
	login(t, ctx)
	if err := (&HabitAddCmd{Name: "Read"}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := (&LogoutCmd{}).Run(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	out.Reset()
	if err := (&HabitListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Read") {
		t.Errorf("expected habits kept after logout, got %q", out.String())
	}
	if err := (&HabitAddCmd{Name: "Write"}).Run(ctx); err == nil {
		t.Error("expected add to require sign-in")
	}
}
