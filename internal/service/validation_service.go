package service

import (
	"context"
	"fmt"
	"time"

	"visit-audit/internal/excel"
	"visit-audit/internal/imaging"
	"visit-audit/internal/models"
	"visit-audit/internal/ooxml"
	"visit-audit/internal/validate"
)

// MaxRows is the hard row ceiling enforced before row validation begins.
const MaxRows = 50000

// ValidateRequest is the caller-facing input of one validation run. The
// template is always supplied by the caller; the engine has no built-in
// templates.
type ValidateRequest struct {
	FileBytes     []byte
	TaskName      string
	SelectedSheet string
	Template      *models.ValidationTemplate
	IncludeImages bool
}

// ProgressFunc receives non-terminal progress messages (0–100).
type ProgressFunc func(progress int, message string)

// Engine sequences workbook parsing, header location, row and cross-row
// validation and the image pipeline into one terminal outcome. Execution
// is strictly serial; cancellation is cooperative through the context,
// polled at chunk and image boundaries. A canceled run returns the
// context's error and no partial outcome.
type Engine struct {
	maxRows    int
	chunkSize  int
	imagePause time.Duration
	thresholds imaging.Thresholds
	layouts    []ooxml.RecordLayout
}

// Option tunes the engine.
type Option func(*Engine)

// WithChunkSize overrides the row-validation chunk size.
func WithChunkSize(n int) Option {
	return func(e *Engine) { e.chunkSize = n }
}

// WithMaxRows overrides the hard row ceiling.
func WithMaxRows(n int) Option {
	return func(e *Engine) { e.maxRows = n }
}

// WithImagePause sets the pause between analyzed images, giving the
// runtime room to reclaim decode buffers across hundreds of pictures.
func WithImagePause(d time.Duration) Option {
	return func(e *Engine) { e.imagePause = d }
}

// WithThresholds overrides the duplicate-detection gate.
func WithThresholds(t imaging.Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// WithLayouts supplies known record layouts for the cell-image position
// fallback classifier.
func WithLayouts(layouts []ooxml.RecordLayout) Option {
	return func(e *Engine) { e.layouts = layouts }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		maxRows:    MaxRows,
		chunkSize:  validate.DefaultChunkSize,
		imagePause: 20 * time.Millisecond,
		thresholds: imaging.DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate runs one validation end to end. Unrecoverable failures
// (unreadable container, absent sheet, oversized input) come back as
// errors; a readable but non-conformant file yields a Result with
// IsValid=false instead.
func (e *Engine) Validate(ctx context.Context, req ValidateRequest, progress ProgressFunc) (*models.Outcome, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	if req.Template == nil {
		return nil, fmt.Errorf("validation template is required")
	}

	progress(2, "opening workbook")
	wb, err := excel.OpenWorkbook(req.FileBytes)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheet, ok := excel.ResolveSheet(wb.SheetNames(), req.SelectedSheet, req.Template.SheetNames)
	if !ok {
		if req.SelectedSheet != "" {
			return nil, fmt.Errorf("sheet %q not found in workbook", req.SelectedSheet)
		}
		return &models.Outcome{
			NeedSheetSelection: &models.SheetSelection{AvailableSheets: wb.SheetInfos()},
		}, nil
	}

	progress(5, fmt.Sprintf("reading sheet %s", sheet))
	rows, err := wb.SheetRows(sheet, e.maxRows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s has no data", sheet)
	}
	if len(rows) > e.maxRows {
		return nil, fmt.Errorf("row count exceeds the %d row limit, reduce the row count and retry", e.maxRows)
	}

	progress(10, "locating header row")
	locator := excel.NewHeaderLocator()
	header, headerIndex, found := locator.Locate(rows, req.Template)
	if !found {
		return headerFailure(req.Template, req.Template.RequiredFields), nil
	}

	mapping, missing := excel.MapFields(header, req.Template)
	if len(missing) > 0 {
		return headerFailure(req.Template, missing), nil
	}

	progress(15, "validating rows")
	records := validate.ParseRows(rows, headerIndex, mapping, req.Template)

	rowValidator := validate.NewRowValidator()
	rowValidator.ChunkSize = e.chunkSize
	errs, err := rowValidator.Validate(ctx, records, mapping, req.Template, func(done, total int) {
		if total > 0 {
			progress(15+done*45/total, fmt.Sprintf("validated %d/%d rows", done, total))
		}
	})
	if err != nil {
		return nil, err
	}

	progress(62, "running cross-row checks")
	cross := validate.NewCrossValidator(req.Template, mapping)
	errs = append(errs, cross.Validate(records)...)

	result := &models.Result{
		IsValid:          len(errs) == 0,
		HeaderValidation: models.HeaderValidation{IsValid: true, MissingFields: []string{}},
		Errors:           errs,
		Summary:          summarize(records, errs),
	}
	if result.Errors == nil {
		result.Errors = []models.ValidationError{}
	}

	if req.IncludeImages {
		progress(70, "analyzing embedded images")
		imageValidation, err := e.analyzeImages(ctx, req.FileBytes, header, progress)
		if err != nil {
			return nil, err
		}
		result.ImageValidation = imageValidation
	}

	progress(100, "validation complete")
	return &models.Outcome{Result: result}, nil
}

// analyzeImages maps image anchors to cells, scores each image and
// detects near-duplicates. Per-image decode failures degrade that image
// only; raw bytes are released before the result is returned.
func (e *Engine) analyzeImages(ctx context.Context, fileBytes []byte, header []string, progress ProgressFunc) (*models.ImageValidation, error) {
	container, err := ooxml.OpenContainer(fileBytes)
	if err != nil {
		return nil, err
	}

	classifier := ooxml.NewLayoutClassifier(e.layouts)
	classifier.Detect(header)
	positions, _, err := ooxml.MapImagePositions(container,
		ooxml.NewCellImagesResolver(classifier),
		ooxml.NewAnchorResolver(),
	)
	if err != nil {
		return nil, err
	}

	records, err := ooxml.ExtractImages(container, positions)
	if err != nil {
		return nil, err
	}

	analyzer := imaging.NewAnalyzer()
	results := make([]models.ImageAnalysisResult, 0, len(records))
	pixels := make(map[string][]byte, len(records))
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, analyzer.Analyze(rec))
		pixels[rec.ID] = rec.Data
		progress(70+(i+1)*25/len(records), fmt.Sprintf("analyzed image %d/%d", i+1, len(records)))
		if e.imagePause > 0 && i < len(records)-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.imagePause):
			}
		}
	}

	detector := imaging.NewDetector(e.thresholds)
	groups := detector.Detect(results, func(id string) []byte { return pixels[id] })

	// Raw bytes stop here; hundreds of images must not ride along in the
	// final result.
	for id := range pixels {
		delete(pixels, id)
	}

	blurry := 0
	for _, r := range results {
		if r.IsBlurry {
			blurry++
		}
	}
	return &models.ImageValidation{
		TotalImages:     len(results),
		BlurryImages:    blurry,
		DuplicateGroups: groups,
		Results:         results,
	}, nil
}

// headerFailure is the terminal result for a readable but non-conformant
// file: no adequate header row, or required fields unresolved. Zero rows
// are processed and zero errors reported.
func headerFailure(tpl *models.ValidationTemplate, missing []string) *models.Outcome {
	if missing == nil {
		missing = tpl.RequiredFields
	}
	return &models.Outcome{
		Result: &models.Result{
			IsValid: false,
			HeaderValidation: models.HeaderValidation{
				IsValid:       false,
				MissingFields: missing,
			},
			Errors:  []models.ValidationError{},
			Summary: models.Summary{},
		},
	}
}

func summarize(records []validate.RowRecord, errs []models.ValidationError) models.Summary {
	badRows := make(map[int]bool, len(errs))
	for _, e := range errs {
		badRows[e.Row] = true
	}
	return models.Summary{
		TotalRows:  len(records),
		ValidRows:  len(records) - len(badRows),
		ErrorCount: len(errs),
	}
}
