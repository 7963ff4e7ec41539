// Package healthdb is the read-only query layer over the relational source
// of truth: user profiles, goals, weight records, meal records, daily
// nutrition summaries, and chat history. Workspace documents are derived
// views of this data and are never written back to it.
package healthdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNoProfile is returned when a user has no profile row. It is the only
// database condition that surfaces to callers as a domain error; every
// other absence is reported as empty data.
var ErrNoProfile = errors.New("healthdb: user has no profile")

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Profile holds the physical attributes nutrition math depends on.
type Profile struct {
	UserID        int64   `json:"user_id"`
	Gender        string  `json:"gender"`
	BirthDate     string  `json:"birth_date"`
	Height        float64 `json:"height_cm"`
	Weight        float64 `json:"weight_kg"`
	ActivityLevel int     `json:"activity_level"`
}

// Allergy is a recorded allergen with severity 1 (mild) to 3 (severe).
type Allergy struct {
	Name     string `json:"name"`
	Severity int    `json:"severity"`
	Reaction string `json:"reaction,omitempty"`
}

// Disease is a diagnosed condition; only current ones drive restrictions.
type Disease struct {
	Name      string `json:"name"`
	Code      string `json:"code,omitempty"`
	Severity  int    `json:"severity"`
	IsCurrent bool   `json:"is_current"`
	Notes     string `json:"notes,omitempty"`
}

// Goal is a health goal. GoalType matches nutrition.GoalType values.
type Goal struct {
	ID           int64   `json:"id"`
	GoalType     int     `json:"goal_type"`
	StartWeight  float64 `json:"start_weight"`
	TargetWeight float64 `json:"target_weight"`
	TargetDate   string  `json:"target_date,omitempty"`
}

// WeightRecord is one weigh-in.
type WeightRecord struct {
	Weight     float64 `json:"weight"`
	MeasuredAt string  `json:"measured_at"`
}

// DailySummary is the aggregated intake for one calendar day.
type DailySummary struct {
	Date     string  `json:"date"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// MealRecord is one completed meal analysis.
type MealRecord struct {
	FoodName    string  `json:"food_name"`
	RecordDate  string  `json:"record_date"`
	MealType    int     `json:"meal_type"`
	Calories    float64 `json:"calories"`
	HealthGrade string  `json:"health_grade,omitempty"`
}

// ChatSession is one conversation with its dominant topic, if classified.
type ChatSession struct {
	ID        int64  `json:"id"`
	Topic     string `json:"topic,omitempty"`
	StartedAt string `json:"started_at"`
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store wraps the SQLite database holding user health data.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the health database at path, applies WAL
// pragmas, and ensures the schema exists.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("healthdb: create data dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("healthdb: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("healthdb: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("healthdb: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY,
			last_login TEXT
		);

		CREATE TABLE IF NOT EXISTS user_profiles (
			user_id        INTEGER PRIMARY KEY REFERENCES users(id),
			gender         TEXT NOT NULL DEFAULT 'male',
			birth_date     TEXT NOT NULL,
			height_cm      REAL NOT NULL,
			weight_kg      REAL NOT NULL,
			activity_level INTEGER NOT NULL DEFAULT 2
		);

		CREATE TABLE IF NOT EXISTS allergies (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id  INTEGER NOT NULL REFERENCES users(id),
			name     TEXT NOT NULL,
			severity INTEGER NOT NULL DEFAULT 1,
			reaction TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS diseases (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users(id),
			name       TEXT NOT NULL,
			code       TEXT NOT NULL DEFAULT '',
			severity   INTEGER NOT NULL DEFAULT 1,
			is_current INTEGER NOT NULL DEFAULT 1,
			notes      TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS health_goals (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id       INTEGER NOT NULL REFERENCES users(id),
			goal_type     INTEGER NOT NULL,
			start_weight  REAL NOT NULL,
			target_weight REAL NOT NULL,
			target_date   TEXT NOT NULL DEFAULT '',
			status        INTEGER NOT NULL DEFAULT 1
		);
		CREATE INDEX IF NOT EXISTS idx_goals_user ON health_goals(user_id, status);

		CREATE TABLE IF NOT EXISTS weight_records (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id     INTEGER NOT NULL REFERENCES users(id),
			weight      REAL NOT NULL,
			measured_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_weight_user ON weight_records(user_id, measured_at);

		CREATE TABLE IF NOT EXISTS daily_summaries (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id      INTEGER NOT NULL REFERENCES users(id),
			summary_date TEXT NOT NULL,
			calories     REAL NOT NULL DEFAULT 0,
			protein      REAL NOT NULL DEFAULT 0,
			carbs        REAL NOT NULL DEFAULT 0,
			fat          REAL NOT NULL DEFAULT 0,
			UNIQUE(user_id, summary_date)
		);

		CREATE TABLE IF NOT EXISTS meal_records (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id      INTEGER NOT NULL REFERENCES users(id),
			food_name    TEXT NOT NULL,
			record_date  TEXT NOT NULL,
			meal_type    INTEGER NOT NULL DEFAULT 0,
			calories     REAL NOT NULL DEFAULT 0,
			health_grade TEXT NOT NULL DEFAULT '',
			status       INTEGER NOT NULL DEFAULT 3
		);
		CREATE INDEX IF NOT EXISTS idx_meals_user ON meal_records(user_id, record_date);

		CREATE TABLE IF NOT EXISTS chat_sessions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users(id),
			topic      TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id   INTEGER NOT NULL REFERENCES chat_sessions(id),
			message_type INTEGER NOT NULL DEFAULT 1,
			content      TEXT NOT NULL,
			created_at   TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

// mealStatusCompleted marks analyses that reached a final result.
const mealStatusCompleted = 3

// goalStatusActive marks the goal currently being pursued.
const goalStatusActive = 1

// userMessageType marks messages authored by the user.
const userMessageType = 1

// ─── Queries ─────────────────────────────────────────────────────────────────

// Profile returns the user's physical profile, or ErrNoProfile.
func (s *Store) Profile(userID int64) (*Profile, error) {
	p := &Profile{UserID: userID}
	err := s.db.QueryRow(`
		SELECT gender, birth_date, height_cm, weight_kg, activity_level
		FROM user_profiles WHERE user_id = ?`, userID).
		Scan(&p.Gender, &p.BirthDate, &p.Height, &p.Weight, &p.ActivityLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("healthdb: profile for user %d: %w", userID, err)
	}
	return p, nil
}

// Allergies returns the user's recorded allergies.
func (s *Store) Allergies(userID int64) ([]Allergy, error) {
	rows, err := s.db.Query(`
		SELECT name, severity, reaction FROM allergies
		WHERE user_id = ? ORDER BY severity DESC, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("healthdb: allergies for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []Allergy
	for rows.Next() {
		var a Allergy
		if err := rows.Scan(&a.Name, &a.Severity, &a.Reaction); err != nil {
			return nil, fmt.Errorf("healthdb: scan allergy: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ActiveDiseases returns the user's current conditions.
func (s *Store) ActiveDiseases(userID int64) ([]Disease, error) {
	rows, err := s.db.Query(`
		SELECT name, code, severity, is_current, notes FROM diseases
		WHERE user_id = ? AND is_current = 1 ORDER BY severity DESC, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("healthdb: diseases for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []Disease
	for rows.Next() {
		var d Disease
		if err := rows.Scan(&d.Name, &d.Code, &d.Severity, &d.IsCurrent, &d.Notes); err != nil {
			return nil, fmt.Errorf("healthdb: scan disease: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ActiveGoal returns the user's active goal, or (nil, nil) when none exists.
func (s *Store) ActiveGoal(userID int64) (*Goal, error) {
	g := &Goal{}
	err := s.db.QueryRow(`
		SELECT id, goal_type, start_weight, target_weight, target_date
		FROM health_goals WHERE user_id = ? AND status = ?
		ORDER BY id DESC LIMIT 1`, userID, goalStatusActive).
		Scan(&g.ID, &g.GoalType, &g.StartWeight, &g.TargetWeight, &g.TargetDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("healthdb: active goal for user %d: %w", userID, err)
	}
	return g, nil
}

// WeightHistory returns up to limit weigh-ins, oldest first.
func (s *Store) WeightHistory(userID int64, limit int) ([]WeightRecord, error) {
	rows, err := s.db.Query(`
		SELECT weight, measured_at FROM (
			SELECT weight, measured_at FROM weight_records
			WHERE user_id = ? ORDER BY measured_at DESC LIMIT ?
		) ORDER BY measured_at ASC`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("healthdb: weight history for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []WeightRecord
	for rows.Next() {
		var r WeightRecord
		if err := rows.Scan(&r.Weight, &r.MeasuredAt); err != nil {
			return nil, fmt.Errorf("healthdb: scan weight record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DailySummary returns the intake summary for one date (YYYY-MM-DD), or
// (nil, nil) when the user logged nothing that day.
func (s *Store) DailySummary(userID int64, date string) (*DailySummary, error) {
	d := &DailySummary{Date: date}
	err := s.db.QueryRow(`
		SELECT calories, protein, carbs, fat FROM daily_summaries
		WHERE user_id = ? AND summary_date = ?`, userID, date).
		Scan(&d.Calories, &d.Protein, &d.Carbs, &d.Fat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("healthdb: daily summary for user %d: %w", userID, err)
	}
	return d, nil
}

// SummariesSince returns daily summaries on or after the given date,
// oldest first.
func (s *Store) SummariesSince(userID int64, since string) ([]DailySummary, error) {
	rows, err := s.db.Query(`
		SELECT summary_date, calories, protein, carbs, fat FROM daily_summaries
		WHERE user_id = ? AND summary_date >= ? ORDER BY summary_date`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("healthdb: summaries for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []DailySummary
	for rows.Next() {
		var d DailySummary
		if err := rows.Scan(&d.Date, &d.Calories, &d.Protein, &d.Carbs, &d.Fat); err != nil {
			return nil, fmt.Errorf("healthdb: scan summary: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CompletedMealsSince returns completed meal records on or after the given
// date, newest first.
func (s *Store) CompletedMealsSince(userID int64, since string) ([]MealRecord, error) {
	rows, err := s.db.Query(`
		SELECT food_name, record_date, meal_type, calories, health_grade
		FROM meal_records
		WHERE user_id = ? AND record_date >= ? AND status = ?
		ORDER BY record_date DESC, id DESC`, userID, since, mealStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("healthdb: meals for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []MealRecord
	for rows.Next() {
		var m MealRecord
		if err := rows.Scan(&m.FoodName, &m.RecordDate, &m.MealType, &m.Calories, &m.HealthGrade); err != nil {
			return nil, fmt.Errorf("healthdb: scan meal: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecentSessions returns up to limit chat sessions, newest first.
func (s *Store) RecentSessions(userID int64, limit int) ([]ChatSession, error) {
	rows, err := s.db.Query(`
		SELECT id, topic, started_at FROM chat_sessions
		WHERE user_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("healthdb: sessions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []ChatSession
	for rows.Next() {
		var c ChatSession
		if err := rows.Scan(&c.ID, &c.Topic, &c.StartedAt); err != nil {
			return nil, fmt.Errorf("healthdb: scan session: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SessionUserMessages returns the user-authored messages of one session in
// order, up to limit.
func (s *Store) SessionUserMessages(sessionID int64, limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT content FROM chat_messages
		WHERE session_id = ? AND message_type = ?
		ORDER BY id LIMIT ?`, sessionID, userMessageType, limit)
	if err != nil {
		return nil, fmt.Errorf("healthdb: messages for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("healthdb: scan message: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ─── Scheduler selections ────────────────────────────────────────────────────

// ActiveUserIDs returns users who logged in on or after the given instant.
func (s *Store) ActiveUserIDs(since string) ([]int64, error) {
	return s.idQuery(`SELECT id FROM users WHERE last_login >= ? ORDER BY id`, since)
}

// UserIDsWithActiveGoal returns users currently pursuing a goal.
func (s *Store) UserIDsWithActiveGoal() ([]int64, error) {
	return s.idQuery(`
		SELECT DISTINCT user_id FROM health_goals
		WHERE status = ? ORDER BY user_id`, goalStatusActive)
}

// UserIDsWithMealsSince returns users with completed meals on or after the
// given date.
func (s *Store) UserIDsWithMealsSince(since string) ([]int64, error) {
	return s.idQuery(`
		SELECT DISTINCT user_id FROM meal_records
		WHERE record_date >= ? AND status = ? ORDER BY user_id`, since, mealStatusCompleted)
}

// UserIDsWithSessionsSince returns users who chatted on or after the given
// instant.
func (s *Store) UserIDsWithSessionsSince(since string) ([]int64, error) {
	return s.idQuery(`
		SELECT DISTINCT user_id FROM chat_sessions
		WHERE started_at >= ? ORDER BY user_id`, since)
}

func (s *Store) idQuery(query string, args ...any) ([]int64, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("healthdb: id query: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("healthdb: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
