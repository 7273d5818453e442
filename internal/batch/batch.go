// Package batch generates a run of identities, optionally projecting,
// displaying and saving them.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/zarlcorp/zident/internal/export"
	"github.com/zarlcorp/zident/internal/identity"
)

// Validation errors returned by Request.Validate.
var (
	ErrCount    = errors.New("count must be positive")
	ErrAgeRange = errors.New("invalid age range (min_age >= 0, min_age <= max_age <= 120)")
)

// maxPrealloc caps the capacity reserved up front for a batch.
const maxPrealloc = 1024

// Request describes one batch.
type Request struct {
	Count    int
	Identity identity.Options
	Fields   []string // projection allow-list; empty keeps every field
	Preview  bool     // display each record as it is generated
	Save     bool
	Format   export.Format
	Password string // encrypts the saved file
	SaveLog  bool   // write one detail log per record
}

// Validate checks the request before any identity is generated.
func (r Request) Validate() error {
	if r.Count < 1 {
		return ErrCount
	}
	if r.Identity.MinAge < 0 || r.Identity.MaxAge < r.Identity.MinAge || r.Identity.MaxAge > 120 {
		return ErrAgeRange
	}
	if r.Password != "" && !r.Format.Encryptable() {
		return export.ErrEncryptionUnsupported
	}
	return nil
}

// Result is what a batch produced.
type Result struct {
	Records []identity.Record
	Path    string   // export file, when saved
	Logs    []string // detail logs, when requested
}

// Generator produces identities.
type Generator interface {
	Generate(ctx context.Context, opts identity.Options) identity.Identity
}

// Display shows records and warnings to the user.
type Display interface {
	Identity(r identity.Record)
	Warn(msg string)
}

// Runner executes batch requests.
type Runner struct {
	gen  Generator
	out  *export.Writer
	show Display
	log  *slog.Logger
}

// NewRunner returns a Runner writing saved batches and detail logs to out.
func NewRunner(gen Generator, out *export.Writer, show Display, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Runner{gen: gen, out: out, show: show, log: log}
}

// Run validates req, generates req.Count identities and handles display and
// persistence. Invalid field names produce a warning and disable projection.
// Records generated before a save failure are returned with the error.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	fields := req.Fields
	if bad := invalidFields(fields); len(bad) > 0 {
		r.show.Warn(fmt.Sprintf("Invalid fields specified: %s. Valid fields: %s",
			strings.Join(bad, ", "), strings.Join(identity.ValidFields, ", ")))
		fields = nil
	}

	res := Result{Records: make([]identity.Record, 0, min(req.Count, maxPrealloc))}
	for range req.Count {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rec := r.gen.Generate(ctx, req.Identity).Record()
		if len(fields) > 0 {
			rec = rec.Project(fields)
		}
		if req.Preview {
			r.show.Identity(rec)
		}
		res.Records = append(res.Records, rec)
	}

	if !req.Preview {
		for _, rec := range res.Records {
			r.show.Identity(rec)
		}
	}

	r.log.Info("generated identities", "count", len(res.Records), "country", req.Identity.Country)

	if req.Save {
		path, err := r.out.Write(res.Records, req.Format, req.Password)
		if err != nil {
			return res, err
		}
		res.Path = path
	}

	if req.SaveLog {
		for i, rec := range res.Records {
			path, err := r.out.WriteDetailLog(rec, i+1, len(res.Records))
			if err != nil {
				return res, err
			}
			res.Logs = append(res.Logs, path)
		}
	}

	return res, nil
}

func invalidFields(fields []string) []string {
	var bad []string
	for _, f := range fields {
		if !identity.IsValidField(f) && !slices.Contains(bad, f) {
			bad = append(bad, f)
		}
	}
	return bad
}
