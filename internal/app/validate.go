package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/josephgoksu/featuregraph/internal/telemetry"
	"github.com/josephgoksu/featuregraph/internal/validation"
)

// ValidateOptions selects validators and graph behavior for a run.
type ValidateOptions struct {
	Validators []string
	Related    bool
	// Register stores every document of the batch in the graph before any of
	// them is validated, so references inside the batch resolve.
	Register bool
}

// DocumentReport is the outcome for one input document.
type DocumentReport struct {
	Path    string             `json:"path"`
	Outcome validation.Outcome `json:"outcome"`
}

// Valid reports whether the primary document passed.
func (r DocumentReport) Valid() bool { return r.Outcome.Primary.IsValid }

// ValidatePaths expands files and directories into markdown documents and
// validates each one. Loading errors abort the batch before anything runs.
func (a *App) ValidatePaths(ctx context.Context, paths []string, opts ValidateOptions) ([]DocumentReport, error) {
	files, err := a.Loader.Expand(paths)
	if err != nil {
		return nil, err
	}
	docs := make([]validation.Document, 0, len(files))
	for _, f := range files {
		doc, err := a.Loader.Load(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		docs = append(docs, doc)
	}
	return a.validateAll(ctx, docs, opts)
}

// ValidateContent validates a document given as text. path only seeds the
// document id and type when the front matter does not set them.
func (a *App) ValidateContent(ctx context.Context, path, content string, opts ValidateOptions) (DocumentReport, error) {
	doc, err := validation.ParseDocument(path, []byte(content))
	if err != nil {
		return DocumentReport{}, err
	}
	reports, err := a.validateAll(ctx, []validation.Document{doc}, opts)
	if err != nil {
		return DocumentReport{}, err
	}
	return reports[0], nil
}

func (a *App) validateAll(ctx context.Context, docs []validation.Document, opts ValidateOptions) ([]DocumentReport, error) {
	if opts.Register {
		for _, d := range docs {
			if err := a.Documents.Register(ctx, d); err != nil {
				return nil, fmt.Errorf("register %s: %w", d.ID, err)
			}
		}
	}

	reports := make([]DocumentReport, 0, len(docs))
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		out := a.Validator.Validate(ctx, d, validation.Options{
			Validators:      opts.Validators,
			ValidateRelated: opts.Related,
		})
		slog.Debug("document validated", "id", d.ID, "valid", out.Primary.IsValid, "issues", len(out.Primary.Issues))
		a.Telemetry.Track(telemetry.EventDocumentValidated, telemetry.Properties{
			"valid":    out.Primary.IsValid,
			"issues":   len(out.Primary.Issues),
			"related":  len(out.Related),
			"doc_type": string(d.Type),
		})
		reports = append(reports, DocumentReport{Path: d.Path, Outcome: out})
	}
	return reports, nil
}
