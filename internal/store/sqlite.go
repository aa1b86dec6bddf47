package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width, so text order of created_at is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to ":memory:" is its own database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteDB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS prob_tables (
			id TEXT PRIMARY KEY,
			feat_mode TEXT NOT NULL,
			weary INTEGER NOT NULL DEFAULT 0,
			miserable INTEGER NOT NULL DEFAULT 0,
			sample_size INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			row_count INTEGER NOT NULL,
			col_count INTEGER NOT NULL,
			engine_version TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS table_cells (
			table_id TEXT NOT NULL,
			row_idx INTEGER NOT NULL,
			col_idx INTEGER NOT NULL,
			target INTEGER NOT NULL,
			pool_size INTEGER NOT NULL,
			probability REAL NOT NULL,
			PRIMARY KEY (table_id, row_idx, col_idx),
			FOREIGN KEY (table_id) REFERENCES prob_tables(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prob_tables_created_at ON prob_tables(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_prob_tables_mode_created ON prob_tables(feat_mode, created_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// SaveTable stores the header and every cell in one transaction. An empty ID
// is replaced by a new UUID and a zero CreatedAt by the current time.
func (s *SQLiteDB) SaveTable(table *TableRecord) error {
	rows, cols := len(table.Targets), len(table.PoolSizes)
	if len(table.Cells) != rows {
		return fmt.Errorf("table has %d rows of cells for %d targets", len(table.Cells), rows)
	}
	for r, row := range table.Cells {
		if len(row) != cols {
			return fmt.Errorf("row %d has %d cells for %d pool sizes", r, len(row), cols)
		}
	}

	if table.ID == "" {
		table.ID = uuid.New().String()
	}
	if table.CreatedAt.IsZero() {
		table.CreatedAt = time.Now().UTC()
	}
	table.Rows, table.Cols = rows, cols

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO prob_tables (
		id, feat_mode, weary, miserable, sample_size, seed,
		row_count, col_count, engine_version, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		table.ID, table.FeatMode, boolToInt(table.Weary), boolToInt(table.Miserable),
		table.SampleSize, table.Seed, rows, cols, table.EngineVersion,
		table.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert table: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO table_cells
		(table_id, row_idx, col_idx, target, pool_size, probability)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for r, row := range table.Cells {
		for c, p := range row {
			if _, err := stmt.Exec(table.ID, r, c, table.Targets[r], table.PoolSizes[c], p); err != nil {
				return fmt.Errorf("failed to insert cell (%d,%d): %w", r, c, err)
			}
		}
	}

	return tx.Commit()
}

// GetTable retrieves a table and its cells by ID
func (s *SQLiteDB) GetTable(id string) (*TableRecord, error) {
	row := s.db.QueryRow(`SELECT
		id, feat_mode, weary, miserable, sample_size, seed,
		row_count, col_count, engine_version, created_at
		FROM prob_tables WHERE id = ?`, id)

	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	table := &TableRecord{
		TableSummary: *summary,
		Targets:      make([]int, summary.Rows),
		PoolSizes:    make([]int, summary.Cols),
		Cells:        make([][]float64, summary.Rows),
	}
	for r := range table.Cells {
		table.Cells[r] = make([]float64, summary.Cols)
	}

	rows, err := s.db.Query(`SELECT row_idx, col_idx, target, pool_size, probability
		FROM table_cells WHERE table_id = ?
		ORDER BY row_idx, col_idx`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query cells: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r, c, target, pool int
		var p float64
		if err := rows.Scan(&r, &c, &target, &pool, &p); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		if r < 0 || r >= summary.Rows || c < 0 || c >= summary.Cols {
			return nil, fmt.Errorf("cell (%d,%d) outside %dx%d table", r, c, summary.Rows, summary.Cols)
		}
		table.Targets[r] = target
		table.PoolSizes[c] = pool
		table.Cells[r][c] = p
	}

	return table, rows.Err()
}

// ListTables retrieves table headers with pagination and filtering
func (s *SQLiteDB) ListTables(query TablesQuery) (*TablesList, error) {
	whereClause := ""
	args := []interface{}{}

	if query.FeatMode != "" {
		whereClause = "WHERE feat_mode = ?"
		args = append(args, query.FeatMode)
	}

	var totalCount int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM prob_tables "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	if query.PerPage <= 0 {
		query.PerPage = DefaultPerPage
	}
	if query.PerPage > MaxPerPage {
		query.PerPage = MaxPerPage
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Page > MaxPage {
		query.Page = MaxPage
	}

	totalPages := (totalCount + query.PerPage - 1) / query.PerPage
	offset := (query.Page - 1) * query.PerPage

	mainQuery := `SELECT
		id, feat_mode, weary, miserable, sample_size, seed,
		row_count, col_count, engine_version, created_at
		FROM prob_tables ` + whereClause + `
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`
	args = append(args, query.PerPage, offset)

	rows, err := s.db.Query(mainQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	tables := []TableSummary{}
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, *summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	return &TablesList{
		Tables:     tables,
		TotalCount: totalCount,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages,
	}, nil
}

// DeleteTable removes a table and its cells
func (s *SQLiteDB) DeleteTable(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM table_cells WHERE table_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cells: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM prob_tables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (*TableSummary, error) {
	var summary TableSummary
	var wearyInt, miserableInt int
	var createdAt string

	err := row.Scan(
		&summary.ID, &summary.FeatMode, &wearyInt, &miserableInt,
		&summary.SampleSize, &summary.Seed, &summary.Rows, &summary.Cols,
		&summary.EngineVersion, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	summary.Weary = wearyInt == 1
	summary.Miserable = miserableInt == 1
	if summary.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}

	return &summary, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
