package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/encodeflow/internal/media"
	"github.com/your-org/encodeflow/internal/metrics"
	"github.com/your-org/encodeflow/pkg/storage/objectstore"
)

// EventPublisher emits lifecycle events to the message bus.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key, eventType string, payload any) error
}

// Service runs the encode side of the workflow: a newly observed blob becomes
// an input asset, an empty output asset, and a submitted encoding job.
type Service struct {
	media    media.Client
	store    objectstore.Client
	producer EventPublisher
	logger   *zap.Logger

	transformName   string
	uploadURLExpiry time.Duration
}

type Params struct {
	Media    media.Client
	Store    objectstore.Client
	Producer EventPublisher
	Logger   *zap.Logger

	TransformName   string
	UploadURLExpiry time.Duration
}

// Result reports the names a completed ingest run produced.
type Result struct {
	Token       string    `json:"token"`
	JobName     string    `json:"job_name"`
	InputAsset  string    `json:"input_asset"`
	OutputAsset string    `json:"output_asset"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewService constructs an ingest Service.
func NewService(p Params) *Service {
	return &Service{
		media:           p.Media,
		store:           p.Store,
		producer:        p.Producer,
		logger:          p.Logger,
		transformName:   p.TransformName,
		uploadURLExpiry: p.UploadURLExpiry,
	}
}

// ProcessBlob drives the full ingest sequence for one blob. Any failure
// propagates to the trigger; there is no retry here. A failure after the
// input asset was created leaves that asset behind, which is logged so an
// operator can reap it.
func (s *Service) ProcessBlob(ctx context.Context, r io.Reader, size int64, fileName string) (*Result, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid blob size: %d", size)
	}
	if fileName == "" {
		return nil, fmt.Errorf("blob name is required")
	}

	names := DeriveNames()
	s.logger.Info("blob received",
		zap.String("file", fileName),
		zap.Int64("size_bytes", size),
		zap.String("token", names.Token),
		zap.String("job", names.Job))

	if err := s.media.Login(ctx); err != nil {
		metrics.RecordIngestFailure("login")
		return nil, fmt.Errorf("login: %w", err)
	}

	if _, err := s.media.CreateAsset(ctx, names.InputAsset, "input asset for "+fileName); err != nil {
		metrics.RecordIngestFailure("create_input_asset")
		return nil, fmt.Errorf("create input asset: %w", err)
	}

	uploadURL, err := s.media.UploadContainerURL(ctx, names.InputAsset, s.uploadURLExpiry)
	if err != nil {
		metrics.RecordIngestFailure("upload_url")
		s.warnOrphan(names.InputAsset, fileName)
		return nil, fmt.Errorf("get upload url: %w", err)
	}

	if err := s.media.UploadContent(ctx, uploadURL, fileName, r, size); err != nil {
		metrics.RecordIngestFailure("upload")
		s.warnOrphan(names.InputAsset, fileName)
		return nil, fmt.Errorf("upload content: %w", err)
	}

	outputAsset := names.OutputAsset
	existing, err := s.media.GetAsset(ctx, outputAsset)
	if err != nil {
		metrics.RecordIngestFailure("check_output_asset")
		s.warnOrphan(names.InputAsset, fileName)
		return nil, fmt.Errorf("check output asset: %w", err)
	}
	if existing != nil {
		outputAsset = CollisionFreeName(fileName)
		s.logger.Info("output asset name collided, derived replacement",
			zap.String("collided", names.OutputAsset),
			zap.String("output_asset", outputAsset))
	}

	if _, err := s.media.CreateAsset(ctx, outputAsset, ""); err != nil {
		metrics.RecordIngestFailure("create_output_asset")
		s.warnOrphan(names.InputAsset, fileName)
		return nil, fmt.Errorf("create output asset: %w", err)
	}

	transform, err := s.media.GetOrCreateTransform(ctx, s.transformName)
	if err != nil {
		metrics.RecordIngestFailure("transform")
		s.warnOrphan(names.InputAsset, fileName)
		return nil, fmt.Errorf("ensure transform: %w", err)
	}

	job, err := s.media.SubmitJob(ctx, transform.Name, names.Job, names.InputAsset, []string{outputAsset})
	if err != nil {
		metrics.RecordIngestFailure("submit_job")
		s.warnOrphan(names.InputAsset, fileName)
		return nil, fmt.Errorf("submit job: %w", err)
	}

	metrics.RecordJobSubmitted()
	submittedAt := time.Now().UTC()
	s.logger.Info("encoding job submitted",
		zap.String("job", job.Name),
		zap.String("transform", transform.Name),
		zap.String("input_asset", names.InputAsset),
		zap.String("output_asset", outputAsset))

	s.emitJobSubmitted(ctx, JobSubmittedEvent{
		ID:          uuid.NewString(),
		JobName:     job.Name,
		InputAsset:  names.InputAsset,
		OutputAsset: outputAsset,
		Transform:   transform.Name,
		FileName:    fileName,
		SizeBytes:   size,
		SubmittedAt: submittedAt,
	})

	return &Result{
		Token:       names.Token,
		JobName:     job.Name,
		InputAsset:  names.InputAsset,
		OutputAsset: outputAsset,
		SubmittedAt: submittedAt,
	}, nil
}

// ProcessStoredBlob fetches a blob announced by a bucket notification and
// runs the same sequence on it.
func (s *Service) ProcessStoredBlob(ctx context.Context, key string) (*Result, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no object store configured")
	}
	obj, info, err := s.store.Get(ctx, key)
	if err != nil {
		metrics.RecordIngestFailure("fetch_blob")
		return nil, fmt.Errorf("fetch announced blob: %w", err)
	}
	defer obj.Close()

	return s.ProcessBlob(ctx, obj, info.Size, key)
}

// emitJobSubmitted publishes the lifecycle event. Losing an observability
// event is not worth failing an already-submitted job.
func (s *Service) emitJobSubmitted(ctx context.Context, evt JobSubmittedEvent) {
	if s.producer == nil {
		return
	}
	if err := s.producer.PublishJSON(ctx, evt.JobName, EventTypeJobSubmitted, evt); err != nil {
		s.logger.Error("publish lifecycle event failed",
			zap.String("job", evt.JobName),
			zap.Error(err))
	}
}

func (s *Service) warnOrphan(inputAsset, fileName string) {
	s.logger.Warn("ingest failed after input asset creation, asset may be orphaned",
		zap.String("input_asset", inputAsset),
		zap.String("file", fileName))
}
