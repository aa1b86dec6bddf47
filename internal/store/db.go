package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no table has the requested ID.
var ErrNotFound = errors.New("table not found")

// DB represents the database interface
type DB interface {
	Close() error
	Migrate() error
	SaveTable(table *TableRecord) error
	GetTable(id string) (*TableRecord, error)
	ListTables(query TablesQuery) (*TablesList, error)
	DeleteTable(id string) error
}

// TablesQuery represents query parameters for listing tables
type TablesQuery struct {
	FeatMode string `json:"featMode,omitempty"`
	Page     int    `json:"page"`
	PerPage  int    `json:"perPage"`
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	// MaxPage keeps the row offset well inside int range.
	MaxPage = 1_000_000
)

// TablesList represents a paginated table listing
type TablesList struct {
	Tables     []TableSummary `json:"tables"`
	TotalCount int            `json:"totalCount"`
	Page       int            `json:"page"`
	PerPage    int            `json:"perPage"`
	TotalPages int            `json:"totalPages"`
}

// TableSummary is the header row of a stored table
type TableSummary struct {
	ID            string    `json:"id" db:"id"`
	FeatMode      string    `json:"feat_mode" db:"feat_mode"`
	Weary         bool      `json:"weary" db:"weary"`
	Miserable     bool      `json:"miserable" db:"miserable"`
	SampleSize    int       `json:"sample_size" db:"sample_size"`
	Seed          int64     `json:"seed" db:"seed"`
	Rows          int       `json:"rows" db:"row_count"`
	Cols          int       `json:"cols" db:"col_count"`
	EngineVersion string    `json:"engine_version" db:"engine_version"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// TableRecord is a stored table with its cells
type TableRecord struct {
	TableSummary
	Targets   []int       `json:"targets"`
	PoolSizes []int       `json:"pool_sizes"`
	Cells     [][]float64 `json:"cells"`
}
