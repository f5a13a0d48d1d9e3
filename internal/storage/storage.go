package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/samber/lo"

	"studypack/internal/models"

	_ "modernc.org/sqlite"
)

// ErrNotFound wird zurückgegeben, wenn kein Datensatz existiert
var ErrNotFound = errors.New("nicht gefunden")

// Storage definiert das Interface für Datenpersistenz
type Storage interface {
	// Profile
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	EnsureProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.UserProfile, error)
	Subscribe(userID string) (<-chan models.UserProfile, func())

	// Aktives Lernpaket
	SaveActivePack(ctx context.Context, userID string, pack *models.StudyPack) error
	GetActivePack(ctx context.Context, userID string) (*models.StudyPack, error)

	Close() error
}

// ProfileUpdate ist eine Teilaktualisierung. Zähler werden addiert,
// Badges vereinigt, nil-Felder bleiben unverändert.
type ProfileUpdate struct {
	XP                int
	FlashcardsLearned int
	QuizAttempts      int
	QuizScore         int
	AddBadges         []string
	Streak            *int
	LastActive        *time.Time
}

// SQLiteStorage implementiert Storage mit SQLite
type SQLiteStorage struct {
	db     *sql.DB
	broker *Broker
	now    func() time.Time
}

// NewSQLiteStorage erstellt eine neue SQLite-Storage-Instanz
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite verträgt nur einen Schreiber gleichzeitig
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db, broker: NewBroker(), now: time.Now}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		streak INTEGER NOT NULL DEFAULT 0,
		xp INTEGER NOT NULL DEFAULT 0,
		badges TEXT NOT NULL DEFAULT '[]',
		flashcards_learned INTEGER NOT NULL DEFAULT 0,
		quiz_attempts INTEGER NOT NULL DEFAULT 0,
		total_quiz_score INTEGER NOT NULL DEFAULT 0,
		last_active DATETIME,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS active_packs (
		user_id TEXT PRIMARY KEY,
		pack_id TEXT NOT NULL,
		pack TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	s.broker.Close()
	return s.db.Close()
}

// Subscribe liefert den Kanal für Profiländerungen eines Nutzers
func (s *SQLiteStorage) Subscribe(userID string) (<-chan models.UserProfile, func()) {
	return s.broker.Subscribe(userID)
}

// Profile

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const profileColumns = `user_id, streak, xp, badges, flashcards_learned, quiz_attempts, total_quiz_score, last_active, updated_at`

func scanProfile(row rowScanner) (*models.UserProfile, error) {
	var p models.UserProfile
	var badges string
	var lastActive sql.NullTime
	err := row.Scan(&p.UserID, &p.Streak, &p.XP, &badges, &p.Analytics.FlashcardsLearned,
		&p.Analytics.QuizAttempts, &p.Analytics.TotalQuizScore, &lastActive, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(badges), &p.Badges); err != nil || p.Badges == nil {
		p.Badges = []string{}
	}
	if lastActive.Valid {
		t := lastActive.Time
		p.LastActive = &t
	}
	return &p, nil
}

func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID)
	return scanProfile(row)
}

// EnsureProfile legt beim ersten Zugriff ein Profil mit Standardwerten an
func (s *SQLiteStorage) EnsureProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO profiles (user_id, updated_at) VALUES (?, ?)
	`, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// UpdateProfile wendet eine Teilaktualisierung atomar an und benachrichtigt Abonnenten
func (s *SQLiteStorage) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.UserProfile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := s.now().UTC()
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO profiles (user_id, updated_at) VALUES (?, ?)`, userID, now); err != nil {
		return nil, err
	}

	current, err := scanProfile(tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID))
	if err != nil {
		return nil, err
	}

	badges, _ := json.Marshal(lo.Compact(lo.Uniq(append(current.Badges, upd.AddBadges...))))

	streak := current.Streak
	if upd.Streak != nil {
		streak = *upd.Streak
	}
	var lastActive interface{}
	if upd.LastActive != nil {
		lastActive = upd.LastActive.UTC()
	} else if current.LastActive != nil {
		lastActive = current.LastActive.UTC()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE profiles SET
			xp = xp + ?,
			flashcards_learned = flashcards_learned + ?,
			quiz_attempts = quiz_attempts + ?,
			total_quiz_score = total_quiz_score + ?,
			badges = ?,
			streak = ?,
			last_active = ?,
			updated_at = ?
		WHERE user_id = ?
	`, upd.XP, upd.FlashcardsLearned, upd.QuizAttempts, upd.QuizScore, string(badges), streak, lastActive, now, userID)
	if err != nil {
		return nil, err
	}

	updated, err := scanProfile(tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.broker.Publish(*updated)
	return updated, nil
}

// Aktives Lernpaket

// SaveActivePack ersetzt das aktive Lernpaket des Nutzers vollständig
func (s *SQLiteStorage) SaveActivePack(ctx context.Context, userID string, pack *models.StudyPack) error {
	data, err := json.Marshal(pack)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO active_packs (user_id, pack_id, pack, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, pack.ID, string(data), pack.CreatedAt.UTC())
	return err
}

func (s *SQLiteStorage) GetActivePack(ctx context.Context, userID string) (*models.StudyPack, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT pack FROM active_packs WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var pack models.StudyPack
	if err := json.Unmarshal([]byte(data), &pack); err != nil {
		return nil, err
	}
	return &pack, nil
}
