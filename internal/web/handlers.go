package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/unidata/internal/config"
	"github.com/JonMunkholm/unidata/internal/csvio"
	"github.com/JonMunkholm/unidata/internal/logging"
	"github.com/JonMunkholm/unidata/internal/store"
	"github.com/JonMunkholm/unidata/internal/table"
	"github.com/JonMunkholm/unidata/internal/unidata"
)

// formOverhead is the multipart framing allowed on top of the file itself.
const formOverhead = 1 << 20

// formatRequest is the JSON "plan" part of a format request. Column lists
// are decoded loosely so malformed references are reported per argument.
type formatRequest struct {
	Currency    string `json:"currency"`
	Columns     []any  `json:"columns"`
	NonNegative []any  `json:"non_negative"`
	Precision   *int   `json:"precision"`
	Persist     bool   `json:"persist"`
	Table       string `json:"table"`
}

// ColumnInfo describes one column of a response table.
type ColumnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// FormatResponse is returned by POST /api/format.
type FormatResponse struct {
	RunID   string       `json:"run_id"`
	Source  string       `json:"source"`
	Columns []ColumnInfo `json:"columns"`
	Rows    [][]any      `json:"rows"`
	Table   string       `json:"table,omitempty"`
	Saved   int64        `json:"saved_rows,omitempty"`
}

// ColumnsResponse is returned by POST /api/columns.
type ColumnsResponse struct {
	Source  string       `json:"source"`
	Columns []ColumnInfo `json:"columns"`
	Rows    int          `json:"rows"`
}

// handleFormat cleans an uploaded CSV with the submitted plan and returns
// the resulting table, optionally saving it.
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.limiter.Acquire(ctx); err != nil {
		respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	t, source, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	req, err := decodeFormatRequest(r.FormValue("plan"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	plan, err := req.plan(s.cfg.Format)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := plan.Apply(t); err != nil {
		respondError(w, r, err)
		return
	}

	runID := uuid.New()
	resp := FormatResponse{
		RunID:   runID.String(),
		Source:  source,
		Columns: columnInfos(t),
		Rows:    rowValues(t),
	}

	if req.Persist {
		if s.saver == nil {
			respondError(w, r, fmt.Errorf("persist: %w", store.ErrDisabled))
			return
		}
		name := req.Table
		if name == "" {
			name = strings.TrimSuffix(source, filepath.Ext(source))
		}
		run, err := s.saver.Save(ctx, name, source, runID, t)
		if err != nil {
			respondError(w, r, err)
			return
		}
		resp.Table = run.Table
		resp.Saved = run.Rows
	}

	logging.WithFields(ctx, "run_id", resp.RunID).Info("table formatted",
		"source", source,
		"rows", t.NumRows(),
		"currency_columns", len(plan.Columns),
		"persisted", req.Persist,
	)
	writeJSON(w, r, resp)
}

// handleColumns lists the columns of an uploaded CSV.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	t, source, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, ColumnsResponse{
		Source:  source,
		Columns: columnInfos(t),
		Rows:    t.NumRows(),
	})
}

// handleStatus reports limiter occupancy and whether saving is enabled.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"runs":        s.limiter.Status(),
		"persistence": s.saver != nil,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

// readUpload parses the multipart form and decodes its "file" part.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*table.Table, string, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)

	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", fmt.Errorf("%w: %w", csvio.ErrFileTooLarge, err)
		}
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errNoFile
	}
	defer file.Close()

	t, err := csvio.Read(file, csvio.Options{
		Comma:    s.cfg.Format.Comma(),
		MaxBytes: maxSize,
	})
	if err != nil {
		return nil, "", err
	}
	return t, header.Filename, nil
}

// decodeFormatRequest parses the plan part. An empty plan uses the server
// defaults throughout.
func decodeFormatRequest(raw string) (formatRequest, error) {
	var req formatRequest
	if strings.TrimSpace(raw) == "" {
		return req, nil
	}
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return req, fmt.Errorf("%w: plan: %v", unidata.ErrInvalidArgument, err)
	}
	return req, nil
}

// plan builds the cleaning plan, filling unset fields from defaults.
func (req formatRequest) plan(defaults config.FormatConfig) (unidata.Plan, error) {
	p := unidata.Plan{
		Currency:    req.Currency,
		Columns:     defaults.Columns,
		NonNegative: defaults.NonNegative,
		Precision:   req.Precision,
	}
	if p.Currency == "" {
		p.Currency = defaults.Currency
	}
	if p.Precision == nil {
		precision := defaults.Precision
		p.Precision = &precision
	}

	var err error
	if req.Columns != nil {
		if p.Columns, err = unidata.Columns(req.Columns...); err != nil {
			return p, err
		}
	}
	if req.NonNegative != nil {
		if p.NonNegative, err = unidata.Columns(req.NonNegative...); err != nil {
			return p, err
		}
	}
	return p, nil
}

func columnInfos(t *table.Table) []ColumnInfo {
	infos := make([]ColumnInfo, t.NumColumns())
	for i := range infos {
		c := t.ColumnAt(i)
		infos[i] = ColumnInfo{Name: c.Name(), Kind: c.Kind().String()}
	}
	return infos
}

// rowValues returns the table row by row. Missing floats become null.
func rowValues(t *table.Table) [][]any {
	rows := make([][]any, t.NumRows())
	for row := range rows {
		values := make([]any, t.NumColumns())
		for i := range values {
			v := t.ColumnAt(i).Value(row)
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				v = nil
			}
			values[i] = v
		}
		rows[row] = values
	}
	return rows
}
