// Package content runs the content pipeline for a subject, scores the
// finished artifact and records it in the version store.
package content

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zen-systems/quillflow/pkg/pipeline"
	"github.com/zen-systems/quillflow/pkg/quality"
	"github.com/zen-systems/quillflow/pkg/versions"
)

// DefaultContentType is used when a request leaves ContentType empty.
const DefaultContentType = "Blog Post"

// Request asks for one piece of content.
type Request struct {
	Subject     string
	ContentType string
	// Keyword drives the SEO score. Empty means the subject.
	Keyword string
}

// Outcome is the result of a successful generation. StorageErr is set when
// the artifact could not be saved; the artifact is still returned.
type Outcome struct {
	Run        *pipeline.RunResult
	Quality    quality.Report
	Version    int
	StorageErr error
}

// Artifact returns the finished content.
func (o *Outcome) Artifact() string {
	if o == nil || o.Run == nil {
		return ""
	}
	return o.Run.Artifact
}

// Service wires a pipeline, a worker and a version store.
type Service struct {
	pipeline     *pipeline.Pipeline
	worker       pipeline.Worker
	store        versions.Store
	stageTimeout time.Duration
	evidenceDir  string
	logger       func(format string, args ...any)
}

// Option configures a Service.
type Option func(*Service)

// WithStageTimeout bounds every worker call.
func WithStageTimeout(d time.Duration) Option {
	return func(s *Service) { s.stageTimeout = d }
}

// WithEvidenceDir writes run evidence under dir.
func WithEvidenceDir(dir string) Option {
	return func(s *Service) { s.evidenceDir = dir }
}

// WithLogger sets a printf-style logger.
func WithLogger(logger func(format string, args ...any)) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a content service. A nil store disables versioning.
func NewService(p *pipeline.Pipeline, worker pipeline.Worker, store versions.Store, opts ...Option) (*Service, error) {
	if p == nil {
		return nil, errors.New("content: pipeline is required")
	}
	if worker == nil {
		return nil, errors.New("content: worker is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Service{pipeline: p, worker: worker, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Pipeline returns the pipeline the service runs.
func (s *Service) Pipeline() *pipeline.Pipeline {
	return s.pipeline
}

// Generate runs the pipeline for req. On a stage failure it returns the
// run metadata and a *pipeline.StageFailure; nothing is scored or saved.
func (s *Service) Generate(ctx context.Context, req Request) (*Outcome, error) {
	req = normalize(req)

	run, err := pipeline.Run(ctx, s.pipeline, s.worker, pipeline.RunOptions{
		Subject:      req.Subject,
		ContentType:  req.ContentType,
		StageTimeout: s.stageTimeout,
		EvidenceDir:  s.evidenceDir,
		Logger:       s.logger,
	})
	if err != nil {
		return &Outcome{Run: run}, err
	}

	outcome := &Outcome{
		Run:     run,
		Quality: quality.Score(run.Artifact, req.Keyword),
	}
	s.logf("%s: quality %.1f (%s)", req.Subject, outcome.Quality.Overall, outcome.Quality.Grade)

	if s.store != nil {
		version, err := s.store.SaveVersion(ctx, req.Subject, run.Artifact)
		if err != nil {
			outcome.StorageErr = err
			s.logf("%s: save version: %v", req.Subject, err)
		} else {
			outcome.Version = version
			s.logf("%s: saved version %d", req.Subject, version)
		}
	}
	return outcome, nil
}

// BatchItem is the result of one request in a batch.
type BatchItem struct {
	Request Request
	Outcome *Outcome
	Err     error
}

// GenerateBatch runs requests with at most parallel runs in flight. A
// failing request does not stop the others. Items keep the request order.
func (s *Service) GenerateBatch(ctx context.Context, reqs []Request, parallel int) []BatchItem {
	items := make([]BatchItem, len(reqs))
	if parallel <= 0 {
		parallel = 1
	}

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, req := range reqs {
		g.Go(func() error {
			outcome, err := s.Generate(ctx, req)
			items[i] = BatchItem{Request: normalize(req), Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return items
}

func normalize(req Request) Request {
	req.Subject = strings.TrimSpace(req.Subject)
	req.ContentType = strings.TrimSpace(req.ContentType)
	if req.ContentType == "" {
		req.ContentType = DefaultContentType
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		req.Keyword = req.Subject
	}
	return req
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger(format, args...)
	}
}
