package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/reader"
	"github.com/Iron-Ham/linelog/internal/record"
)

// RecordJSON is the wire form of a record in query responses and JSON
// command output.
type RecordJSON struct {
	Level         string    `json:"level"`
	Time          time.Time `json:"time"`
	Side          string    `json:"side"`
	Category      string    `json:"category,omitempty"`
	IsAppCategory bool      `json:"isAppCategory"`
	Context       string    `json:"context,omitempty"`
	Message       string    `json:"message"`
	StackTrace    string    `json:"stackTrace,omitempty"`
}

// NewRecordJSON converts a record to its wire form.
func NewRecordJSON(r record.Record) RecordJSON {
	return RecordJSON{
		Level:         r.Level.String(),
		Time:          r.Time,
		Side:          r.Side.String(),
		Category:      r.Category,
		IsAppCategory: r.IsAppCategory,
		Context:       r.Context,
		Message:       r.Message,
		StackTrace:    r.StackTrace,
	}
}

type queryResponse struct {
	Records []RecordJSON     `json:"records"`
	Stats   reader.ScanStats `json:"stats"`
}

// clientRecordJSON is one fault reported by a remote client.
type clientRecordJSON struct {
	Level      string    `json:"level" validate:"required"`
	Time       time.Time `json:"time"`
	Category   string    `json:"category" validate:"max=512"`
	Context    string    `json:"context"`
	Message    string    `json:"message" validate:"required_without=StackTrace"`
	StackTrace string    `json:"stackTrace"`
	Count      int       `json:"count" validate:"gte=0"`
}

type clientBatch struct {
	Records []clientRecordJSON `json:"records" validate:"required,min=1,max=1000,dive"`
}

type clientResponse struct {
	Accepted int `json:"accepted"`
	Flushed  int `json:"flushed"`
}

type healthResponse struct {
	Status string `json:"status"`
	Folder string `json:"folder"`
	File   string `json:"file"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

var (
	requestValidator     *validator.Validate
	requestValidatorOnce sync.Once
)

func validateRequest(v any) error {
	requestValidatorOnce.Do(func() {
		requestValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return requestValidator.Struct(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	files := s.engine.Store().Files()
	respondJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Folder: files.Folder(),
		File:   files.Active(),
	})
}

// handleQuery serves GET /api/v1/logs.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	f, limit, err := s.parseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	records, stats, err := s.engine.Reader().Collect(r.Context(), f, limit)
	if err != nil {
		if errors.IsUserFacing(err) {
			respondError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
			return
		}
		s.log.Error().Err(err).Msg("query failed")
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "could not read log files")
		return
	}

	out := queryResponse{Records: make([]RecordJSON, 0, len(records)), Stats: stats}
	for _, rec := range records {
		out.Records = append(out.Records, NewRecordJSON(rec))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) parseQuery(r *http.Request) (reader.Filter, int, error) {
	q := r.URL.Query()
	var f reader.Filter

	if v := q.Get("levels"); v != "" {
		levels, err := reader.ParseLevelSet(v)
		if err != nil {
			return f, 0, err
		}
		f.Levels = levels
	}
	if v := q.Get("side"); v != "" {
		side, err := record.ParseSide(v)
		if err != nil {
			return f, 0, errors.NewUserError("side must be server or client").WithCause(err)
		}
		f.Side = &side
	}

	var err error
	if f.Since, err = parseTimeParam(q.Get("since"), "since"); err != nil {
		return f, 0, err
	}
	if f.Until, err = parseTimeParam(q.Get("until"), "until"); err != nil {
		return f, 0, err
	}
	f.Category = q.Get("category")
	f.Contains = q.Get("contains")

	limit := s.cfg.MaxQueryLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, 0, errors.NewUserError("limit must be a positive integer")
		}
		limit = min(n, s.cfg.MaxQueryLimit)
	}

	return f, limit, f.Validate()
}

func parseTimeParam(v, name string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.NewUserError(name + " must be an RFC 3339 time").WithCause(err)
	}
	return t, nil
}

// handleExport serves GET /api/v1/logs/export as a gzip attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rd := s.engine.Reader()
	aw := &attachmentWriter{w: w, name: rd.ArchiveName(s.now())}

	n, err := rd.ExportArchive(r.Context(), aw)
	if err != nil {
		s.log.Error().Err(err).Int64("bytes", n).Msg("archive export failed")
		if !aw.started {
			respondError(w, http.StatusInternalServerError, "EXPORT_FAILED", "could not build archive")
		}
		return
	}
	s.log.Info().Int64("bytes", n).Str("name", aw.name).Msg("archive exported")
}

// attachmentWriter sends the download headers with the first byte so a
// failure before any output can still become an error response.
type attachmentWriter struct {
	w       http.ResponseWriter
	name    string
	started bool
}

func (a *attachmentWriter) Write(p []byte) (int, error) {
	if !a.started {
		a.started = true
		h := a.w.Header()
		h.Set("Content-Type", "application/gzip")
		h.Set("Content-Disposition", `attachment; filename="`+a.name+`"`)
		h.Set("Cache-Control", "no-store")
		a.w.WriteHeader(http.StatusOK)
	}
	return a.w.Write(p)
}

// handleClient serves POST /api/v1/logs/client.
func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxClientBody)

	var batch clientBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "body must be a JSON client record batch")
		return
	}
	if err := validateRequest(&batch); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	host := s.engine.Registry().Host()
	now := s.now()
	records := make([]record.ClientRecord, 0, len(batch.Records))
	for i, in := range batch.Records {
		level, err := record.ParseLevel(in.Level)
		if err != nil || level == record.LevelNone {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"records["+strconv.Itoa(i)+"].level must name a real level")
			return
		}
		t := in.Time
		if t.IsZero() {
			t = now
		}
		category, isApp := host.Classify(in.Category)
		cr := record.NewClientRecord(record.Record{
			Level:         level,
			Time:          t,
			Category:      category,
			IsAppCategory: isApp,
			Context:       strings.TrimSpace(in.Context),
			Message:       in.Message,
			StackTrace:    in.StackTrace,
		})
		if in.Count > 1 {
			cr.Count = in.Count
		}
		records = append(records, cr)
	}

	for _, cr := range records {
		s.coalescer.Add(cr)
	}
	flushed := s.coalescer.Flush()

	respondJSON(w, http.StatusAccepted, clientResponse{Accepted: len(records), Flushed: flushed})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}
