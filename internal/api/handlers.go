package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MJE43/onering-odds/internal/odds"
	"github.com/MJE43/onering-odds/internal/scan"
	"github.com/MJE43/onering-odds/internal/store"
)

// handleVersion reports the build that is serving
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}

// handleListModes returns the feat die modes
func (s *Server) handleListModes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ModesResponse{
		Modes:         odds.ListModes(),
		EngineVersion: EngineVersion,
	})
}

// handleEstimate computes one probability against the shared batch
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	cfg, err := ParseEstimateQuery(r.URL.Query())
	if err != nil {
		s.handleRequestError(w, r, err)
		return
	}

	p, err := odds.EstimateSuccess(s.batch, cfg)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{
			"target":    cfg.Target,
			"pool_size": cfg.PoolSize,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, EstimateResponse{
		Target:        cfg.Target,
		PoolSize:      cfg.PoolSize,
		Variant:       cfg.Variant,
		Probability:   p,
		Display:       scan.FormatProbability(p),
		SampleSize:    s.batch.Len(),
		Seed:          s.batch.Seed(),
		EngineVersion: EngineVersion,
	})
}

// handleCreateTable builds a table and optionally stores it
func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req TableRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	variant, err := ValidateTableRequest(&req)
	if err != nil {
		s.handleRequestError(w, r, err)
		return
	}
	if req.Save && s.db == nil {
		s.errorHandler.HandleUnavailable(w, r, "table storage")
		return
	}

	start := time.Now()
	table, err := s.assembler.Build(r.Context(), scan.TableRequest{
		Targets:   req.Targets,
		PoolSizes: req.PoolSizes,
		Variant:   variant,
		Batch:     s.batch,
	})
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{
			"feat_mode": req.FeatMode,
		})
		return
	}

	resp := TableResponse{
		Table:         table,
		Display:       table.Formatted(),
		EngineVersion: EngineVersion,
		Echo:          &req,
	}

	if req.Save {
		rec := recordFromTable(table)
		if err := s.db.SaveTable(rec); err != nil {
			s.errorHandler.HandleError(w, r, err, nil)
			return
		}
		resp.ID = rec.ID
		resp.CreatedAt = &rec.CreatedAt
	}

	s.logger.Info("table_built",
		zap.String("feat_mode", req.FeatMode),
		zap.Bool("weary", req.Weary),
		zap.Bool("miserable", req.Miserable),
		zap.Int("rows", len(table.Targets)),
		zap.Int("cols", len(table.PoolSizes)),
		zap.Duration("duration", time.Since(start)),
		zap.String("table_id", resp.ID),
	)

	status := http.StatusOK
	if req.Save {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, resp)
}

// handleListTables pages through stored table headers
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorHandler.HandleUnavailable(w, r, "table storage")
		return
	}

	q := r.URL.Query()
	page, perPage, err := parsePaging(q)
	if err != nil {
		s.handleRequestError(w, r, err)
		return
	}
	query := store.TablesQuery{Page: page, PerPage: perPage}
	if raw := q.Get("feat_mode"); raw != "" {
		mode, err := odds.ParseFeatMode(raw)
		if err != nil {
			s.errorHandler.HandleValidationError(w, r, "feat_mode", fmt.Sprintf("unknown feat_mode %q", raw))
			return
		}
		query.FeatMode = string(mode)
	}

	list, err := s.db.ListTables(query)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, nil)
		return
	}

	s.writeJSON(w, http.StatusOK, TablesListResponse{
		TablesList:    list,
		EngineVersion: EngineVersion,
	})
}

// handleGetTable returns a stored table
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadTable(w, r)
	if !ok {
		return
	}

	table := tableFromRecord(rec)
	s.writeJSON(w, http.StatusOK, TableResponse{
		ID:            rec.ID,
		Table:         table,
		Display:       table.Formatted(),
		CreatedAt:     &rec.CreatedAt,
		EngineVersion: rec.EngineVersion,
	})
}

// handleTableCSV streams a stored table as CSV
func (s *Server) handleTableCSV(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadTable(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="table-%s.csv"`, rec.ID))
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(http.StatusOK)

	if err := tableFromRecord(rec).WriteCSV(w); err != nil {
		s.logger.Warn("csv_write_failed", zap.String("table_id", rec.ID), zap.Error(err))
	}
}

// handleDeleteTable removes a stored table
func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorHandler.HandleUnavailable(w, r, "table storage")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.db.DeleteTable(id); err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"table_id": id})
		return
	}

	s.logger.Info("table_deleted", zap.String("table_id", id))
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(http.StatusNoContent)
}

// loadTable fetches the {id} table, writing the error response itself when
// it cannot.
func (s *Server) loadTable(w http.ResponseWriter, r *http.Request) (*store.TableRecord, bool) {
	if s.db == nil {
		s.errorHandler.HandleUnavailable(w, r, "table storage")
		return nil, false
	}

	id := chi.URLParam(r, "id")
	rec, err := s.db.GetTable(id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, map[string]interface{}{"table_id": id})
		return nil, false
	}
	return rec, true
}

// handleRequestError reports a query or body validation failure
func (s *Server) handleRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *fieldError
	if errors.As(err, &fe) {
		s.errorHandler.HandleValidationError(w, r, fe.field, fe.msg)
		return
	}
	s.errorHandler.HandleError(w, r, err, nil)
}

// recordFromTable converts a computed table into its stored form
func recordFromTable(t *scan.Table) *store.TableRecord {
	return &store.TableRecord{
		TableSummary: store.TableSummary{
			FeatMode:      string(t.Variant.FeatMode),
			Weary:         t.Variant.Weary,
			Miserable:     t.Variant.Miserable,
			SampleSize:    t.SampleSize,
			Seed:          t.Seed,
			EngineVersion: EngineVersion,
		},
		Targets:   t.Targets,
		PoolSizes: t.PoolSizes,
		Cells:     t.Cells,
	}
}

// tableFromRecord rebuilds a table from its stored form
func tableFromRecord(rec *store.TableRecord) *scan.Table {
	return &scan.Table{
		Targets:   rec.Targets,
		PoolSizes: rec.PoolSizes,
		Variant: odds.Variant{
			FeatMode:  odds.FeatMode(rec.FeatMode),
			Weary:     rec.Weary,
			Miserable: rec.Miserable,
		},
		Cells:      rec.Cells,
		SampleSize: rec.SampleSize,
		Seed:       rec.Seed,
	}
}
