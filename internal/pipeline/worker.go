package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/rfpgest/internal/doctree"
	"github.com/dgallion1/rfpgest/internal/extract"
	"github.com/dgallion1/rfpgest/internal/parser"
)

// Worker processes a single document job.
type Worker struct {
	parseOpts    parser.Options
	matchTimeout time.Duration
	stats        *ParseStats
	log          *slog.Logger
}

func NewWorker(parseOpts parser.Options, stats *ParseStats, log *slog.Logger, matchTimeout time.Duration) *Worker {
	return &Worker{
		parseOpts:    parseOpts,
		matchTimeout: matchTimeout,
		stats:        stats,
		log:          log,
	}
}

// Process parses and structures one job. Parsing is synchronous; ctx is only
// checked before work starts.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	if err := ctx.Err(); err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "cancelled")
		return
	}

	res, err := w.run(job, log)
	if err != nil {
		log.Error("extraction failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, failedPhase(err))
		return
	}

	job.Complete(res)
	log.Info("extraction complete",
		"sections", len(res.Structured),
		"requirements", res.RequirementCount(),
		"table_rows", res.TableRowCount())
}

func (w *Worker) run(job *Job, log *slog.Logger) (*doctree.Result, error) {
	job.SetStatus(StatusParsing, "parsing")
	start := time.Now()
	format := strings.ToLower(filepath.Ext(job.Filename))

	p, err := parser.ForFile(job.Filename, w.parseOpts)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	w.stats.Record(format, time.Since(start), err != nil)
	if err != nil {
		return nil, err
	}
	job.SetTitle(doc.Title)

	job.SetStatus(StatusStructuring, "structuring")
	ex := extract.Compile(job.Config(), extract.Options{MatchTimeout: w.matchTimeout, Logger: log})
	if job.Config() != nil && ex == nil {
		log.Warn("requirement config unusable, structuring without extraction")
	}
	return &doctree.Result{Title: doc.Title, Structured: parser.Structure(doc, ex)}, nil
}

func failedPhase(err error) string {
	if errors.Is(err, parser.ErrUnsupportedFormat) {
		return "unsupported"
	}
	return "parsing"
}
