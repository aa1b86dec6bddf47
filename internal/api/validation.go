package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/MJE43/onering-odds/internal/odds"
	"github.com/MJE43/onering-odds/internal/scan"
	"github.com/MJE43/onering-odds/internal/store"
)

// Axis limits for a single table request. Repeated values are allowed.
const (
	MaxTargets   = 64
	MaxPoolSizes = 16
)

// fieldError names the request field that failed validation.
type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string { return e.msg }

func invalidField(field, format string, args ...interface{}) error {
	return &fieldError{field: field, msg: fmt.Sprintf(format, args...)}
}

// ValidateTableRequest normalises the feat mode, fills default axes and
// checks every target and pool size. It returns the variant to build.
func ValidateTableRequest(req *TableRequest) (odds.Variant, error) {
	mode, err := odds.ParseFeatMode(req.FeatMode)
	if err != nil {
		return odds.Variant{}, invalidField("feat_mode", "unknown feat_mode %q", req.FeatMode)
	}
	req.FeatMode = string(mode)

	if len(req.Targets) == 0 {
		req.Targets = scan.DefaultTargets()
	}
	if len(req.PoolSizes) == 0 {
		req.PoolSizes = scan.DefaultPoolSizes()
	}

	if len(req.Targets) > MaxTargets {
		return odds.Variant{}, invalidField("targets", "too many targets (max %d)", MaxTargets)
	}
	for _, target := range req.Targets {
		if err := odds.ValidateTarget(target); err != nil {
			return odds.Variant{}, invalidField("targets", "target must be positive, got %d", target)
		}
	}
	if len(req.PoolSizes) > MaxPoolSizes {
		return odds.Variant{}, invalidField("pool_sizes", "too many pool sizes (max %d)", MaxPoolSizes)
	}
	for _, pool := range req.PoolSizes {
		if err := odds.ValidatePoolSize(pool); err != nil {
			return odds.Variant{}, invalidField("pool_sizes", "pool size must be between %d and %d, got %d",
				odds.MinPoolSize, odds.MaxPoolSize, pool)
		}
	}

	return odds.Variant{FeatMode: mode, Weary: req.Weary, Miserable: req.Miserable}, nil
}

// ParseEstimateQuery reads an odds.Config from estimate query parameters.
// target and pool_size are required; the rest default to a Normal, unhindered
// roll.
func ParseEstimateQuery(q url.Values) (odds.Config, error) {
	var cfg odds.Config

	target, err := requiredInt(q, "target")
	if err != nil {
		return cfg, err
	}
	poolSize, err := requiredInt(q, "pool_size")
	if err != nil {
		return cfg, err
	}

	mode, err := odds.ParseFeatMode(q.Get("feat_mode"))
	if err != nil {
		return cfg, invalidField("feat_mode", "unknown feat_mode %q", q.Get("feat_mode"))
	}
	weary, err := optionalBool(q, "weary")
	if err != nil {
		return cfg, err
	}
	miserable, err := optionalBool(q, "miserable")
	if err != nil {
		return cfg, err
	}

	cfg = odds.Config{
		Target:   target,
		PoolSize: poolSize,
		Variant:  odds.Variant{FeatMode: mode, Weary: weary, Miserable: miserable},
	}
	return cfg, nil
}

// parsePaging reads page and per_page; absent values are left at zero so
// the store applies its defaults.
func parsePaging(q url.Values) (page, perPage int, err error) {
	if page, err = optionalInt(q, "page"); err != nil {
		return 0, 0, err
	}
	if perPage, err = optionalInt(q, "per_page"); err != nil {
		return 0, 0, err
	}
	if page < 0 {
		return 0, 0, invalidField("page", "page must be >= 1")
	}
	if page > store.MaxPage {
		return 0, 0, invalidField("page", "page must be <= %d", store.MaxPage)
	}
	if perPage < 0 {
		return 0, 0, invalidField("per_page", "per_page must be >= 1")
	}
	return page, perPage, nil
}

func requiredInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, invalidField(key, "%s is required", key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidField(key, "%s must be an integer, got %q", key, raw)
	}
	return n, nil
}

func optionalInt(q url.Values, key string) (int, error) {
	if q.Get(key) == "" {
		return 0, nil
	}
	return requiredInt(q, key)
}

func optionalBool(q url.Values, key string) (bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalidField(key, "%s must be a boolean, got %q", key, raw)
	}
	return b, nil
}
