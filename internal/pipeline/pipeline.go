// Package pipeline orchestrates the background processing of an uploaded
// leveling guide: text extraction, structure parsing, company grounding, and
// concurrent example generation. A role enters as processing and leaves in
// exactly one terminal state.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/levelguide/internal/db"
	"github.com/jonathan/levelguide/internal/extraction"
	"github.com/jonathan/levelguide/internal/generation"
	"github.com/jonathan/levelguide/internal/llm"
	"github.com/jonathan/levelguide/internal/parsing"
)

// DefaultConcurrency bounds how many example-generation calls run at once.
const DefaultConcurrency = 8

// Store is the persistence surface the pipeline writes through. *db.DB
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	SaveGuideStructure(ctx context.Context, roleID uuid.UUID, levels, competencies []string, cells []db.CellInput) ([]db.CellSlot, error)
	SaveCellExamples(ctx context.Context, definitionID uuid.UUID, examples []string, metrics any) error
	MarkRoleCompleted(ctx context.Context, roleID uuid.UUID, message string) error
	MarkRoleFailed(ctx context.Context, roleID uuid.UUID, message string) error
	UpdateRoleProgress(ctx context.Context, roleID uuid.UUID, message string) error
}

// ContextFetcher supplies the optional company-context snippet. It must
// never fail; on any problem it returns "".
type ContextFetcher interface {
	CompanyContext(ctx context.Context, websiteURL string) string
}

// ProgressEvent reports one pipeline step for observability hooks.
type ProgressEvent struct {
	RoleID  uuid.UUID `json:"role_id"`
	Step    string    `json:"step"`
	Message string    `json:"message"`
}

// ProgressCallback is called as pipeline steps complete.
type ProgressCallback func(event ProgressEvent)

// Job carries one uploaded guide through the pipeline.
type Job struct {
	RoleID         uuid.UUID
	RoleName       string
	CompanyWebsite string
	FileName       string
	DeclaredType   string
	Data           []byte
}

// Options configures a Runner.
type Options struct {
	Concurrency int
	Verbose     bool
	OnProgress  ProgressCallback
}

// Runner executes guide-processing jobs against a store and model client.
type Runner struct {
	store   Store
	client  llm.Client
	fetcher ContextFetcher
	quality *generation.QualityCalculator
	opts    Options
}

// NewRunner creates a Runner. fetcher may be nil, in which case no company
// grounding is attempted.
func NewRunner(store Store, client llm.Client, fetcher ContextFetcher, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Runner{
		store:   store,
		client:  client,
		fetcher: fetcher,
		quality: generation.DefaultQualityCalculator(),
		opts:    opts,
	}
}

func (r *Runner) emitProgress(roleID uuid.UUID, step, message string) {
	if r.opts.Verbose {
		log.Printf("[pipeline] role=%s step=%s %s", roleID, step, message)
	}
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(ProgressEvent{RoleID: roleID, Step: step, Message: message})
	}
}

// Process runs one job to a terminal state. The returned error describes why
// a role failed; the terminal state has already been recorded by the time
// Process returns.
func (r *Runner) Process(ctx context.Context, job Job) error {
	r.emitProgress(job.RoleID, "extract", fmt.Sprintf("extracting text from %s", job.FileName))

	extracted, err := extraction.Extract(job.Data, job.DeclaredType)
	if err != nil {
		return r.fail(ctx, job.RoleID, fmt.Sprintf("Could not read the uploaded file: %v", err))
	}

	// Grounding is best-effort and runs while the guide is being parsed; an
	// unreachable website never fails the role.
	contextCh := make(chan string, 1)
	if r.fetcher != nil && job.CompanyWebsite != "" {
		go func() {
			r.emitProgress(job.RoleID, "ground", "fetching company context")
			contextCh <- r.fetcher.CompanyContext(ctx, job.CompanyWebsite)
		}()
	} else {
		contextCh <- ""
	}

	r.emitProgress(job.RoleID, "parse", "parsing leveling guide structure")
	if err := r.store.UpdateRoleProgress(ctx, job.RoleID, "Parsing leveling guide..."); err != nil {
		log.Printf("[pipeline] progress update failed: %v", err)
	}

	guide, err := parsing.ParseGuide(ctx, r.client, extracted.Text)
	if err != nil {
		return r.fail(ctx, job.RoleID, fmt.Sprintf("Could not parse the leveling guide: %v", err))
	}

	cells := make([]db.CellInput, 0, len(guide.Cells))
	for _, cell := range guide.Cells {
		cells = append(cells, db.CellInput{
			LevelName:      cell.Level,
			CompetencyName: cell.Competency,
			Definition:     cell.Definition,
		})
	}

	slots, err := r.store.SaveGuideStructure(ctx, job.RoleID, guide.Levels, guide.Competencies, cells)
	if err != nil {
		return r.fail(ctx, job.RoleID, fmt.Sprintf("Could not store the parsed guide: %v", err))
	}

	companyContext := <-contextCh

	r.emitProgress(job.RoleID, "generate", fmt.Sprintf("generating examples for %d cells", len(slots)))
	if err := r.store.UpdateRoleProgress(ctx, job.RoleID, "Generating examples..."); err != nil {
		log.Printf("[pipeline] progress update failed: %v", err)
	}

	succeeded, failed := r.generateAll(ctx, job, companyContext, slots)

	if ctx.Err() != nil {
		return r.fail(ctx, job.RoleID, "Processing was interrupted")
	}

	// Cell failures never fail the role: the parsed grid is useful on its
	// own, and cells without examples read as "no data" downstream.
	message := fmt.Sprintf("Generated examples for %d of %d cells", succeeded, len(slots))
	if failed > 0 {
		log.Printf("[pipeline] role=%s completed with %d failed cells", job.RoleID, failed)
	}
	if err := r.store.MarkRoleCompleted(ctx, job.RoleID, message); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	r.emitProgress(job.RoleID, "done", message)
	return nil
}

// generateAll fans out example generation over the stored cells with bounded
// concurrency. Individual cell failures are logged and counted, never fatal.
func (r *Runner) generateAll(ctx context.Context, job Job, companyContext string, slots []db.CellSlot) (succeeded, failed int) {
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for _, slot := range slots {
		g.Go(func() error {
			examples, err := generation.GenerateExamples(gCtx, r.client, generation.CellRequest{
				RoleName:       job.RoleName,
				LevelName:      slot.LevelName,
				CompetencyName: slot.CompetencyName,
				Definition:     slot.Definition,
				CompanyContext: companyContext,
			})
			if err != nil {
				log.Printf("[pipeline] role=%s cell %s/%s: %v", job.RoleID, slot.LevelName, slot.CompetencyName, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			metrics := r.quality.Compute(examples)
			if err := r.store.SaveCellExamples(gCtx, slot.DefinitionID, examples, metrics); err != nil {
				log.Printf("[pipeline] role=%s cell %s/%s: store failed: %v", job.RoleID, slot.LevelName, slot.CompetencyName, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			succeeded++
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return succeeded, failed
}

// fail records the terminal failed state and returns an error carrying the
// same message. The write uses a detached context so a canceled job can
// still record why it stopped.
func (r *Runner) fail(ctx context.Context, roleID uuid.UUID, message string) error {
	r.emitProgress(roleID, "failed", message)
	if err := r.store.MarkRoleFailed(context.WithoutCancel(ctx), roleID, message); err != nil {
		log.Printf("[pipeline] role=%s failed to record failure: %v", roleID, err)
	}
	return fmt.Errorf("%s", message)
}
