package replication

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"newsblog/pkg/domain"
	"newsblog/pkg/logging"
	"newsblog/pkg/newsblog"
	"newsblog/pkg/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultBatchSize = 100
	defaultWorkers   = 5
)

// Config wires the replication dependencies.
type Config struct {
	Source newsblog.Repository
	Target newsblog.Repository

	// TargetNamespace renames the namespace on the way; empty keeps it.
	TargetNamespace string

	BatchSize int
	Workers   int
}

// Stats summarizes one replication run.
type Stats struct {
	Processed int
	Copied    int
	Skipped   int
}

// Replicator copies every article of a namespace from one repository to another,
// for example from a Mongo store to Postgres.
//
// It is a one-shot, copy everything flow. Articles whose source URL already
// exists in the target namespace are skipped; the rest are upserted by ID.
type Replicator struct {
	source          newsblog.Repository
	target          newsblog.Repository
	targetNamespace string
	batchSize       int
	workers         int
	log             zerolog.Logger
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source repository is required")
	}
	if cfg.Target == nil {
		return nil, fmt.Errorf("target repository is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Replicator{
		source:          cfg.Source,
		target:          cfg.Target,
		targetNamespace: cfg.TargetNamespace,
		batchSize:       cfg.BatchSize,
		workers:         cfg.Workers,
		log:             logging.With().Str("component", "replication").Logger(),
	}, nil
}

// ReplicateNamespace reads all articles of namespace from the source and writes
// the new ones to the target in parallel batches.
func (r *Replicator) ReplicateNamespace(ctx context.Context, namespace string) (Stats, error) {
	targetNamespace := r.targetNamespace
	if targetNamespace == "" {
		targetNamespace = namespace
	}

	articles, err := r.readAllArticles(ctx, namespace)
	if err != nil {
		return Stats{}, err
	}

	existing, err := r.target.ExistingURLs(ctx, targetNamespace)
	if err != nil {
		return Stats{}, fmt.Errorf("read target urls: %w", err)
	}

	r.log.Info().
		Str("namespace", namespace).
		Str("target_namespace", targetNamespace).
		Int("articles", len(articles)).
		Int("already_in_target", len(existing)).
		Msg("loaded source articles, processing in batches")

	stats, err := r.processBatches(ctx, articles, existing, namespace, targetNamespace)
	if err != nil {
		return stats, err
	}

	r.log.Info().
		Int("processed", stats.Processed).
		Int("copied", stats.Copied).
		Int("skipped", stats.Skipped).
		Msg("replication complete")
	return stats, nil
}

// readAllArticles pages through the source, oldest first.
func (r *Replicator) readAllArticles(ctx context.Context, namespace string) ([]domain.Article, error) {
	var all []domain.Article
	for offset := 0; ; offset += r.batchSize {
		page, err := r.source.Articles(ctx, domain.ArticleFilter{
			Namespace:   namespace,
			OldestFirst: true,
			Limit:       r.batchSize,
			Offset:      offset,
		})
		if err != nil {
			return nil, fmt.Errorf("read source articles at offset %d: %w", offset, err)
		}
		all = append(all, page...)
		if len(page) < r.batchSize {
			return all, nil
		}
	}
}

type batchJob struct {
	batch      []domain.Article
	start, end int
}

// processBatches fans batches out to workers and fails fast on the first error.
func (r *Replicator) processBatches(ctx context.Context, articles []domain.Article, existing map[string]bool, namespace, targetNamespace string) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var jobs []batchJob
	for start := 0; start < len(articles); start += r.batchSize {
		end := calculateBatchEnd(start, r.batchSize, len(articles))
		jobs = append(jobs, batchJob{batch: articles[start:end], start: start, end: end})
	}

	var (
		processed, copied atomic.Int64
		errOnce           sync.Once
		firstErr          error
	)
	handle := func(ctx context.Context, job batchJob) error {
		n, err := r.processBatch(ctx, job, existing, namespace, targetNamespace)
		if err != nil {
			errOnce.Do(func() {
				firstErr = err
				cancel()
			})
			return err
		}
		processed.Add(int64(len(job.batch)))
		copied.Add(int64(n))
		return nil
	}
	describe := func(job batchJob) string {
		return fmt.Sprintf("batch [%d:%d]", job.start, job.end)
	}

	_, err := worker.NewManager(r.workers, handle, describe).Process(ctx, jobs)

	stats := Stats{Processed: int(processed.Load()), Copied: int(copied.Load())}
	stats.Skipped = stats.Processed - stats.Copied

	// Every handler has returned, so firstErr is settled
	if firstErr != nil {
		return stats, firstErr
	}
	if err != nil {
		return stats, err
	}
	r.logProgress(stats, len(articles))
	return stats, nil
}

func calculateBatchEnd(start, batchSize, totalLen int) int {
	end := start + batchSize
	if end > totalLen {
		return totalLen
	}
	return end
}

// processBatch saves the articles of one batch that are new to the target.
func (r *Replicator) processBatch(ctx context.Context, job batchJob, existing map[string]bool, namespace, targetNamespace string) (int, error) {
	toCopy := filterNewArticlesByURL(job.batch, existing)
	if len(toCopy) == 0 {
		return 0, nil
	}

	for i := range toCopy {
		a := prepareForTarget(toCopy[i], namespace, targetNamespace)
		if err := r.target.Save(ctx, &a); err != nil {
			return 0, fmt.Errorf("copy batch [%d:%d] article id=%q: %w", job.start, job.end, a.ID, err)
		}
	}

	r.log.Debug().Int("start", job.start).Int("end", job.end).Int("copied", len(toCopy)).Msg("batch copied")
	return len(toCopy), nil
}

func (r *Replicator) logProgress(stats Stats, total int) {
	r.log.Info().Int("processed", stats.Processed).Int("total", total).Int("copied", stats.Copied).Msg("progress")
}

// filterNewArticlesByURL drops articles whose URL the target already has.
// Articles without a URL are always kept; saving them again is an upsert by ID.
func filterNewArticlesByURL(all []domain.Article, existing map[string]bool) []domain.Article {
	out := make([]domain.Article, 0, len(all))
	for _, a := range all {
		if a.URL != "" && existing[a.URL] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// prepareForTarget clears author and tag IDs so the target resolves them by slug,
// and derives a new article ID when the namespace changes.
func prepareForTarget(a domain.Article, namespace, targetNamespace string) domain.Article {
	if targetNamespace != namespace {
		a.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(targetNamespace+"|"+a.ID)).String()
		a.Namespace = targetNamespace
	}

	authors := make([]domain.Author, len(a.Authors))
	for i, au := range a.Authors {
		authors[i] = domain.Author{Name: au.Name, Slug: au.Slug}
	}
	a.Authors = authors

	tags := make([]domain.Tag, len(a.Tags))
	for i, t := range a.Tags {
		tags[i] = domain.Tag{Name: t.Name, Slug: t.Slug}
	}
	a.Tags = tags
	return a
}
