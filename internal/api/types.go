package api

import (
	"time"

	"github.com/MJE43/onering-odds/internal/odds"
	"github.com/MJE43/onering-odds/internal/scan"
	"github.com/MJE43/onering-odds/internal/store"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeInvalidArgument = "invalid_argument"
	ErrTypeEmptyBatch      = "empty_batch"
	ErrTypeValidation      = "validation_error"

	// Storage errors
	ErrTypeNotFound           = "not_found"
	ErrTypeServiceUnavailable = "service_unavailable"

	// System errors
	ErrTypeTimeout  = "timeout"
	ErrTypeInternal = "internal_error"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryStorage    ErrorCategory = "storage"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeInvalidArgument, ErrTypeEmptyBatch, ErrTypeValidation:
		return CategoryValidation
	case ErrTypeNotFound, ErrTypeServiceUnavailable:
		return CategoryStorage
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// ModesResponse lists the feat die modes
type ModesResponse struct {
	Modes         []odds.ModeSpec `json:"modes"`
	EngineVersion string          `json:"engine_version"`
}

// EstimateResponse is a single (target, pool size) estimate
type EstimateResponse struct {
	Target        int          `json:"target"`
	PoolSize      int          `json:"pool_size"`
	Variant       odds.Variant `json:"variant"`
	Probability   float64      `json:"probability"`
	Display       string       `json:"display"`
	SampleSize    int          `json:"sample_size"`
	Seed          int64        `json:"seed"`
	EngineVersion string       `json:"engine_version"`
}

// TableRequest is the body of POST /api/v1/tables. Empty axes take the
// default 11..22 targets and 1..5 pool sizes.
type TableRequest struct {
	FeatMode  string `json:"feat_mode"`
	Weary     bool   `json:"weary"`
	Miserable bool   `json:"miserable"`
	Targets   []int  `json:"targets,omitempty"`
	PoolSizes []int  `json:"pool_sizes,omitempty"`
	Save      bool   `json:"save,omitempty"`
}

// TableResponse carries a computed or stored table
type TableResponse struct {
	ID            string        `json:"id,omitempty"`
	Table         *scan.Table   `json:"table"`
	Display       [][]string    `json:"display"`
	CreatedAt     *time.Time    `json:"created_at,omitempty"`
	EngineVersion string        `json:"engine_version"`
	Echo          *TableRequest `json:"echo,omitempty"`
}

// TablesListResponse is a page of stored table headers
type TablesListResponse struct {
	*store.TablesList
	EngineVersion string `json:"engine_version"`
}
