// Package pipeline assembles the visualisation page: it picks a table from an
// upload, the session cache, or a database selection, cleans and summarizes
// it, and maps the result into render-ready fields.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/KaramelBytes/geoportal/internal/analysis"
	"github.com/KaramelBytes/geoportal/internal/session"
	"github.com/KaramelBytes/geoportal/internal/table"
)

// TableSource lists and fetches relational tables.
type TableSource interface {
	ListTables(ctx context.Context) ([]string, error)
	FetchTable(ctx context.Context, name string) (*table.Table, error)
}

// Source identifies where the page's table came from.
type Source int

const (
	SourceNone Source = iota
	SourceUpload
	SourceCache
	SourceTable
)

func (s Source) String() string {
	switch s {
	case SourceUpload:
		return "upload"
	case SourceCache:
		return "session"
	case SourceTable:
		return "table"
	default:
		return "none"
	}
}

// LoadError wraps a failure to obtain a table from one source.
type LoadError struct {
	Source Source
	Err    error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Source, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Upload is a file submitted with the request.
type Upload struct {
	Filename string
	Data     []byte
}

// Request carries the inputs of one visualisation page render.
type Request struct {
	SessionID string
	Upload    *Upload
	TableName string
}

// Page is everything the visualisation template renders.
type Page struct {
	TableNames    []string
	TableSelected string
	CSVUploaded   bool
	Source        Source
	ColumnNames   []string
	Stats         analysis.Summary
	StatHeaders   []string
	Series        map[string]analysis.Series
	// PlotData is Series encoded as JSON for the page script.
	PlotData string
	Notice   string
}

// Orchestrator runs loader, cleaner and summarizer for a request.
type Orchestrator struct {
	sessions session.Store
	tables   TableSource
	log      *slog.Logger
}

func New(sessions session.Store, tables TableSource, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{sessions: sessions, tables: tables, log: log}
}

// Build never fails: a source that errors is logged, noted on the page, and
// treated as absent.
func (o *Orchestrator) Build(ctx context.Context, req Request) Page {
	page := Page{
		TableSelected: req.TableName,
		TableNames:    []string{},
		ColumnNames:   []string{},
		Stats:         analysis.Summary{},
		StatHeaders:   []string{},
		Series:        map[string]analysis.Series{},
		PlotData:      "{}",
	}
	var notices []string
	if o.tables != nil {
		names, err := o.tables.ListTables(ctx)
		if err != nil {
			o.log.Warn("list tables failed", "err", err)
			notices = append(notices, "Database tables are unavailable right now.")
		} else {
			page.TableNames = names
		}
	}

	t, src, errs := o.Load(ctx, req)
	if len(errs) > 0 {
		notices = append(notices, noticeFor(errs[len(errs)-1]))
	}
	page.Notice = strings.Join(notices, " ")
	page.Source = src
	page.CSVUploaded = src == SourceUpload || src == SourceCache
	if t.Empty() {
		return page
	}

	res, err := o.summarize(t)
	if err != nil {
		o.log.Error("summarize failed", "source", src, "err", err)
		page.Notice = strings.TrimSpace(page.Notice + " The data could not be summarized.")
		return page
	}
	page.ColumnNames = res.Columns
	page.Stats = res.Summary
	page.StatHeaders = res.Headers
	page.Series = res.Series
	if b, err := json.Marshal(res.Series); err == nil {
		page.PlotData = string(b)
	}
	return page
}

// Load walks the fallback chain upload > session cache > table selection and
// returns the cleaned table of the first source that yields one. Errors from
// earlier sources are returned alongside.
func (o *Orchestrator) Load(ctx context.Context, req Request) (*table.Table, Source, []error) {
	var errs []error
	fail := func(src Source, err error) {
		le := &LoadError{Source: src, Err: err}
		o.log.Warn("data source failed", "source", src, "err", err)
		errs = append(errs, le)
	}

	if req.Upload != nil {
		t, err := o.fromUpload(ctx, req)
		if err == nil {
			return t, SourceUpload, errs
		}
		fail(SourceUpload, err)
	}

	if req.SessionID != "" && o.sessions != nil {
		t, ok, err := o.fromCache(ctx, req.SessionID)
		if err != nil {
			fail(SourceCache, err)
		} else if ok {
			return t, SourceCache, errs
		}
	}

	if req.TableName != "" && o.tables != nil {
		t, err := o.fromTable(ctx, req.TableName)
		if err == nil {
			return t, SourceTable, errs
		}
		fail(SourceTable, err)
	}
	return nil, SourceNone, errs
}

func (o *Orchestrator) fromUpload(ctx context.Context, req Request) (t *table.Table, err error) {
	defer recoverInto(&err)
	raw, err := table.Parse(req.Upload.Filename, req.Upload.Data)
	if err != nil {
		return nil, err
	}
	t = analysis.Clean(raw)
	if req.SessionID != "" && o.sessions != nil {
		blob, err := table.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("encode session cache: %w", err)
		}
		if err := o.sessions.Put(ctx, session.Key(req.SessionID, session.KeyTable), blob); err != nil {
			// The table is still usable for this request.
			o.log.Warn("session cache write failed", "err", err)
		}
	}
	return t, nil
}

// fromCache evicts an entry that no longer decodes.
func (o *Orchestrator) fromCache(ctx context.Context, sid string) (t *table.Table, ok bool, err error) {
	key := session.Key(sid, session.KeyTable)
	blob, ok, err := o.sessions.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	defer recoverInto(&err)
	cached, err := table.Unmarshal(blob)
	if err != nil {
		if evErr := o.sessions.Evict(ctx, key); evErr != nil {
			o.log.Warn("session cache evict failed", "err", evErr)
		}
		return nil, false, fmt.Errorf("corrupt session cache: %w", err)
	}
	return analysis.Clean(cached), true, nil
}

func (o *Orchestrator) fromTable(ctx context.Context, name string) (t *table.Table, err error) {
	defer recoverInto(&err)
	raw, err := o.tables.FetchTable(ctx, name)
	if err != nil {
		return nil, err
	}
	return analysis.Clean(raw), nil
}

func (o *Orchestrator) summarize(t *table.Table) (res analysis.Result, err error) {
	defer recoverInto(&err)
	return analysis.Summarize(t), nil
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
	}
}

func noticeFor(err error) string {
	var le *LoadError
	if !errors.As(err, &le) {
		return "Data could not be loaded."
	}
	switch le.Source {
	case SourceUpload:
		return "The uploaded file could not be read."
	case SourceCache:
		return "Your previously uploaded data could not be restored."
	case SourceTable:
		return "The selected table could not be loaded."
	}
	return "Data could not be loaded."
}
