package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pq "github.com/lib/pq"

	apperrors "github.com/FahimKhamsa/madhabits/internal/errors"
	"github.com/FahimKhamsa/madhabits/internal/models"
	"github.com/FahimKhamsa/madhabits/internal/streak"
	"github.com/FahimKhamsa/madhabits/internal/utils"
	"github.com/FahimKhamsa/madhabits/internal/validation"
)

const habitColumns = `id, user_id, name, description, icon, color, frequency, days_of_week,
       streak, best_streak, alternative_completion_dates, created_at, updated_at`

const recordColumns = `id, habit_id, user_id, date, completed, note, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	var freq string
	var days pq.Int64Array
	var alts pq.StringArray
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &h.Icon, &h.Color, &freq, &days,
		&h.Streak, &h.BestStreak, &alts, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return models.Habit{}, err
	}
	h.Frequency = models.Frequency(freq)
	for _, d := range days {
		h.DaysOfWeek = append(h.DaysOfWeek, time.Weekday(d))
	}
	if len(alts) > 0 {
		h.AlternativeCompletionDates = []string(alts)
	}
	return h, nil
}

func scanRecord(row scanner) (models.CompletionRecord, error) {
	var r models.CompletionRecord
	err := row.Scan(&r.ID, &r.HabitID, &r.UserID, &r.Date, &r.Completed, &r.Note, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func weekdays(days []time.Weekday) pq.Int64Array {
	out := make(pq.Int64Array, len(days))
	for i, d := range days {
		out[i] = int64(d)
	}
	return out
}

func (s *Store) FetchAll(ctx context.Context, userID string) ([]models.Habit, []models.CompletionRecord, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	recRows, err := db.QueryContext(ctx, `SELECT `+recordColumns+` FROM habit_completions WHERE user_id = $1 ORDER BY date`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer recRows.Close()

	var records []models.CompletionRecord
	for recRows.Next() {
		r, err := scanRecord(recRows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		records = append(records, r)
	}
	return habits, records, recRows.Err()
}

func (s *Store) CreateHabit(ctx context.Context, userID string, in models.HabitInput) (models.Habit, error) {
	in, err := validation.ValidateHabitInput(in)
	if err != nil {
		return models.Habit{}, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return models.Habit{}, err
	}
	h := models.NewHabit(uuid.NewString(), userID, in, s.now().UTC())

	_, err = db.ExecContext(ctx, `
INSERT INTO habits (id, user_id, name, description, icon, color, frequency, days_of_week,
                    streak, best_streak, alternative_completion_dates, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, '{}', $9, $9)`,
		h.ID, h.UserID, h.Name, h.Description, h.Icon, h.Color, string(h.Frequency), weekdays(h.DaysOfWeek), h.CreatedAt)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to insert habit: %w", err)
	}
	return h, nil
}

func (s *Store) UpdateHabit(ctx context.Context, id string, patch models.HabitPatch) (models.Habit, error) {
	var out models.Habit
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := lockHabit(ctx, tx, id)
		if err != nil {
			return err
		}
		patch, err := validation.ValidateHabitPatch(current, patch)
		if err != nil {
			return err
		}
		h := patch.Apply(current, s.now().UTC())
		if patch.ChangesSchedule() {
			completed, err := completedDates(ctx, tx, id)
			if err != nil {
				return err
			}
			res := streak.ForHabit(h, completed, utils.Today(s.now()))
			h.Streak, h.BestStreak = res.Current, res.Best
		}
		alts := pq.StringArray(h.AlternativeCompletionDates)
		if alts == nil {
			alts = pq.StringArray{}
		}
		_, err = tx.ExecContext(ctx, `
UPDATE habits SET name = $2, description = $3, icon = $4, color = $5, frequency = $6,
       days_of_week = $7, alternative_completion_dates = $8, streak = $9, best_streak = $10, updated_at = $11
WHERE id = $1`,
			h.ID, h.Name, h.Description, h.Icon, h.Color, string(h.Frequency),
			weekdays(h.DaysOfWeek), alts, h.Streak, h.BestStreak, h.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update habit: %w", err)
		}
		out = h
		return nil
	})
	return out, err
}

func (s *Store) DeleteHabit(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NotFoundf("habit %s", id)
	}
	return nil
}

func (s *Store) ToggleCompletion(ctx context.Context, habitID, date, note string) (models.Habit, models.CompletionRecord, error) {
	date, err := utils.NormalizeDate(date)
	if err != nil {
		return models.Habit{}, models.CompletionRecord{}, apperrors.Validationf("%v", err)
	}

	var habit models.Habit
	var rec models.CompletionRecord
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		h, err := lockHabit(ctx, tx, habitID)
		if err != nil {
			return err
		}
		now := s.now().UTC()

		row := tx.QueryRowContext(ctx, `
INSERT INTO habit_completions (id, habit_id, user_id, date, completed, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, TRUE, $5, $6, $6)
ON CONFLICT (habit_id, date) DO UPDATE
SET completed = NOT habit_completions.completed, note = EXCLUDED.note, updated_at = EXCLUDED.updated_at
RETURNING `+recordColumns,
			uuid.NewString(), habitID, h.UserID, date, note, now)
		rec, err = scanRecord(row)
		if err != nil {
			return fmt.Errorf("failed to toggle completion: %w", err)
		}

		completed, err := completedDates(ctx, tx, habitID)
		if err != nil {
			return err
		}
		res := streak.ForHabit(h, completed, utils.Today(s.now()))
		h.Streak, h.BestStreak, h.UpdatedAt = res.Current, res.Best, now
		if _, err := tx.ExecContext(ctx, `UPDATE habits SET streak = $2, best_streak = $3, updated_at = $4 WHERE id = $1`,
			h.ID, h.Streak, h.BestStreak, h.UpdatedAt); err != nil {
			return fmt.Errorf("failed to update streak: %w", err)
		}
		habit = h
		return nil
	})
	return habit, rec, err
}

func lockHabit(ctx context.Context, tx *sql.Tx, id string) (models.Habit, error) {
	h, err := scanHabit(tx.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, apperrors.NotFoundf("habit %s", id)
	}
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to load habit: %w", err)
	}
	return h, nil
}

func completedDates(ctx context.Context, tx *sql.Tx, habitID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT date FROM habit_completions WHERE habit_id = $1 AND completed ORDER BY date`, habitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed dates: %w", err)
	}
	defer rows.Close()
	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
