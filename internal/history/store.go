package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/sparques/rftrx/internal/config"
)

const (
	dirPermissions = 0750

	msPerSecond = 1000

	connectionTimeout = 5 * time.Second

	defaultLimit = 50
	maxLimit     = 500

	// timeFormat is fixed width so stored timestamps sort as text.
	timeFormat = "2006-01-02T15:04:05.000000Z"
)

//go:embed schema.sql
var schema string

// Directions of an Event.
const (
	Received = "rx"
	Sent     = "tx"
)

var (
	// ErrNotFound is returned by Get for an unknown id.
	ErrNotFound = errors.New("history: event not found")
	// ErrInvalidEvent is returned by Record for an event missing its device
	// or direction.
	ErrInvalidEvent = errors.New("history: invalid event")
)

// Event is one code on the air.
type Event struct {
	ID          string        `json:"id"`
	Device      string        `json:"device"`
	Direction   string        `json:"direction"`
	Code        uint64        `json:"code"`
	BitLength   int           `json:"bit_length"`
	PulseLength time.Duration `json:"-"`
	Protocol    int           `json:"protocol"`
	CreatedAt   time.Time     `json:"created_at"`
}

// PulseMicros is PulseLength in microseconds.
func (e Event) PulseMicros() int64 { return e.PulseLength.Microseconds() }

// Store is the SQLite event log.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the database directory and file if needed and applies the
// schema.
func Open(cfg config.HistoryConfig) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db, path: cfg.Path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// HealthCheck runs a trivial query.
func (s *Store) HealthCheck(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Record appends e, assigning an ID and timestamp when unset, and returns
// the stored event.
func (s *Store) Record(ctx context.Context, e Event) (Event, error) {
	if e.Device == "" || (e.Direction != Received && e.Direction != Sent) {
		return Event{}, fmt.Errorf("%w: device %q direction %q", ErrInvalidEvent, e.Device, e.Direction)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Microsecond)

	// SQLite integers are signed; the code is stored bit for bit.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO code_events (id, device, direction, code, bit_length, pulse_us, protocol, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Device, e.Direction, int64(e.Code), e.BitLength, e.PulseMicros(), e.Protocol,
		e.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return Event{}, fmt.Errorf("inserting event: %w", err)
	}
	return e, nil
}

// Filter narrows List. A zero Filter returns the newest 50 events.
type Filter struct {
	Device    string
	Direction string
	Limit     int
}

// List returns events newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, device, direction, code, bit_length, pulse_us, protocol, created_at
		 FROM code_events
		 WHERE (? = '' OR device = ?) AND (? = '' OR direction = ?)
		 ORDER BY seq DESC
		 LIMIT ?`,
		f.Device, f.Device, f.Direction, f.Direction, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// Get returns the event with id.
func (s *Store) Get(ctx context.Context, id string) (Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, device, direction, code, bit_length, pulse_us, protocol, created_at
		 FROM code_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// Prune deletes all but the newest keep events and returns how many rows
// went.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("history: negative keep %d", keep)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM code_events WHERE seq NOT IN (
		     SELECT seq FROM code_events ORDER BY seq DESC LIMIT ?
		 )`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (Event, error) {
	var (
		e         Event
		code      int64
		pulse     int64
		createdAt string
	)
	err := sc.Scan(&e.ID, &e.Device, &e.Direction, &code, &e.BitLength, &pulse, &e.Protocol, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, err
		}
		return Event{}, fmt.Errorf("scanning event: %w", err)
	}
	e.Code = uint64(code)
	e.PulseLength = time.Duration(pulse) * time.Microsecond
	e.CreatedAt, err = time.Parse(timeFormat, createdAt)
	if err != nil {
		return Event{}, fmt.Errorf("parsing event timestamp %q: %w", createdAt, err)
	}
	return e, nil
}
