package codecache

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

// ErrUnitNotFound indicates the requested unit doesn't exist.
var ErrUnitNotFound = errors.New("codecache: unit not found")

// Cache handles SQLite storage for compiled units.
type Cache struct {
	db     *sql.DB
	dbPath string
	log    commonlog.Logger
	mu     sync.Mutex
}

// Open opens (creating if needed) a code cache database at dbPath.
// Pass ":memory:" for an ephemeral cache.
func Open(dbPath string) (*Cache, error) {
	c := &Cache{
		dbPath: dbPath,
		log:    commonlog.GetLogger("karst.codecache"),
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	c.db = db

	// Set busy timeout for concurrent access
	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Create table if needed
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		method TEXT NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Put persists a compiled unit, replacing any previous unit with the
// same ID.
func (c *Cache) Put(u *CompiledUnit) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := MarshalUnit(u)
	if err != nil {
		return fmt.Errorf("encoding unit %s: %w", u.ID, err)
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO units (id, method, data) VALUES (?, ?, ?)",
		u.ID, u.Method, data,
	)
	if err != nil {
		return fmt.Errorf("saving unit %s: %w", u.ID, err)
	}

	c.log.Debugf("cached unit %s (%s, %d bytes)", u.ID, u.Method, len(u.Code))
	return nil
}

// Get retrieves a compiled unit by ID.
func (c *Cache) Get(id string) (*CompiledUnit, error) {
	var data []byte
	err := c.db.QueryRow("SELECT data FROM units WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnitNotFound
		}
		return nil, fmt.Errorf("querying unit: %w", err)
	}
	return UnmarshalUnit(data)
}

// List returns the ID and method name of every cached unit, ordered by
// method name.
func (c *Cache) List() ([]UnitInfo, error) {
	rows, err := c.db.Query("SELECT id, method FROM units ORDER BY method")
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	var infos []UnitInfo
	for rows.Next() {
		var info UnitInfo
		if err := rows.Scan(&info.ID, &info.Method); err != nil {
			return nil, fmt.Errorf("scanning unit row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes a unit from the cache. Deleting a missing unit is not
// an error.
func (c *Cache) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec("DELETE FROM units WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting unit %s: %w", id, err)
	}
	return nil
}

// UnitInfo identifies one cached unit.
type UnitInfo struct {
	ID     string
	Method string
}
