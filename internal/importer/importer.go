package importer

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/quizbank/backend/internal/models"
	"github.com/quizbank/backend/internal/parser"
)

// QuestionWriter persists one accepted question into a chapter.
type QuestionWriter interface {
	InsertQuestion(ctx context.Context, chapterID int64, q models.ImportQuestionData) (models.Question, error)
}

type EventKind string

const (
	EventProgress EventKind = "progress"
	EventComplete EventKind = "complete"
	EventError    EventKind = "error"
)

// ImportEvent is one callback from a running import job. Progress events are
// monotonic: Processed never decreases across the life of a job.
type ImportEvent struct {
	Kind      EventKind            `json:"kind"`
	Processed int                  `json:"processed"`
	Total     int                  `json:"total"`
	Result    *models.ImportResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
}

const DefaultBatchSize = 100

// Importer runs confirmed imports in bounded batches.
type Importer struct {
	writer    QuestionWriter
	runner    TaskRunner
	batchSize int
}

func New(writer QuestionWriter, runner TaskRunner, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{writer: writer, runner: runner, batchSize: batchSize}
}

// Job is the handle for one running import. Destroy cancels the work at the
// next batch boundary and guarantees no further callbacks fire.
type Job struct {
	cancel context.CancelFunc

	mu        sync.Mutex
	destroyed bool
	onEvent   func(ImportEvent)
	done      bool
}

func (j *Job) emit(ev ImportEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.destroyed {
		return
	}
	if ev.Kind == EventComplete || ev.Kind == EventError {
		j.done = true
	}
	if j.onEvent != nil {
		j.onEvent(ev)
	}
}

// Destroy tears the job down. Idempotent; safe to call from any goroutine.
func (j *Job) Destroy() {
	j.mu.Lock()
	j.destroyed = true
	j.mu.Unlock()
	j.cancel()
}

// Done reports whether the job emitted its terminal event.
func (j *Job) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done
}

// Start validates and persists the previewed questions in batches. Every
// question is re-validated at import time: edits made during preview may have
// invalidated earlier validation results. Invalid questions are counted as
// failed with their messages collected; they never abort the run.
func (im *Importer) Start(ctx context.Context, chapterID int64, preview []models.PreviewQuestion, onEvent func(ImportEvent)) *Job {
	ctx, cancel := context.WithCancel(ctx)
	job := &Job{cancel: cancel, onEvent: onEvent}

	im.runner.Go(func() {
		defer cancel()
		im.run(ctx, job, chapterID, preview)
	})
	return job
}

func (im *Importer) run(ctx context.Context, job *Job, chapterID int64, preview []models.PreviewQuestion) {
	total := len(preview)
	result := models.ImportResult{TotalCount: total}

	processed := 0
	for start := 0; start < total; start += im.batchSize {
		if err := im.runner.YieldBatch(ctx); err != nil {
			job.emit(ImportEvent{
				Kind:      EventError,
				Processed: processed,
				Total:     total,
				Error:     fmt.Sprintf("import cancelled after %d of %d", processed, total),
			})
			return
		}

		end := start + im.batchSize
		if end > total {
			end = total
		}

		for i := start; i < end; i++ {
			q := preview[i].Question
			if errs := parser.ValidateQuestion(&q, models.OneBased); len(errs) > 0 {
				result.FailedCount++
				for _, msg := range errs {
					result.Errors = append(result.Errors, fmt.Sprintf("第%d题：%s", i+1, msg))
				}
				processed++
				continue
			}

			inserted, err := im.writer.InsertQuestion(ctx, chapterID, q)
			if err != nil {
				log.Printf("WARN: insert question %d failed: %v", i+1, err)
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("第%d题：保存失败", i+1))
			} else {
				result.SuccessCount++
				result.Questions = append(result.Questions, inserted)
			}
			processed++
		}

		job.emit(ImportEvent{Kind: EventProgress, Processed: processed, Total: total})
	}

	job.emit(ImportEvent{
		Kind:      EventComplete,
		Processed: processed,
		Total:     total,
		Result:    &result,
	})
}
