package manager

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emberhome/ember-core/internal/thing"
)

// Store defines the interface for thing persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Store interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*thing.Device, error)

	// List retrieves all persisted devices.
	List(ctx context.Context) ([]*thing.Device, error)

	// Save upserts a device. The properties map is stored as a JSON
	// document alongside the identity columns.
	Save(ctx context.Context, d *thing.Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteStore implements Store using SQLite.
//
// Only registered (ready) devices are persisted; devices mid-pairing
// live in the manager's cache alone. Loaded devices therefore come back
// with StatusReady.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store.
// The db parameter should be an open SQLite connection with the things
// schema migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a device by its unique identifier.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*thing.Device, error) {
	query := `
		SELECT id, adapter_id, title, properties, created_at, updated_at
		FROM things
		WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	device, err := scanThing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying thing by id: %w", err)
	}
	return device, nil
}

// List retrieves all persisted devices ordered by ID.
func (s *SQLiteStore) List(ctx context.Context) ([]*thing.Device, error) {
	query := `
		SELECT id, adapter_id, title, properties, created_at, updated_at
		FROM things
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying things: %w", err)
	}
	defer rows.Close()

	var devices []*thing.Device
	for rows.Next() {
		device, err := scanThing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning thing: %w", err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating things: %w", err)
	}
	return devices, nil
}

// Save upserts a device.
func (s *SQLiteStore) Save(ctx context.Context, d *thing.Device) error {
	propsJSON, err := json.Marshal(d.Properties)
	if err != nil {
		return fmt.Errorf("marshalling properties: %w", err)
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	query := `
		INSERT INTO things (id, adapter_id, title, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			adapter_id = excluded.adapter_id,
			title = excluded.title,
			properties = excluded.properties,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		d.ID, d.AdapterID, d.Title, string(propsJSON),
		d.CreatedAt.Format(time.RFC3339Nano), d.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving thing: %w", err)
	}
	return nil
}

// Delete removes a device by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM things WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting thing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

// scanThing reads a single things row into a Device. Property values
// arrive as JSON so integers decode as whole float64s; the thing
// package's validation tolerates this for integer properties.
func scanThing(row scanner) (*thing.Device, error) {
	var (
		d         thing.Device
		propsJSON string
		createdAt string
		updatedAt string
	)

	if err := row.Scan(&d.ID, &d.AdapterID, &d.Title, &propsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(propsJSON), &d.Properties); err != nil {
		return nil, fmt.Errorf("unmarshalling properties: %w", err)
	}
	if d.Properties == nil {
		d.Properties = make(map[string]*thing.Property)
	}

	var err error
	d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	d.Status = thing.StatusReady
	return &d, nil
}
