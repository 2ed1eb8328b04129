package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/encodeflow/internal/media"
	"github.com/your-org/encodeflow/internal/metrics"
)

// EventPublisher emits lifecycle events to the message bus.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key, eventType string, payload any) error
}

// Service runs the publish side of the workflow: a finished job output
// notification turns into a streaming locator on the output asset.
type Service struct {
	media      media.Client
	producer   EventPublisher
	logger     *zap.Logger
	policyName string
}

type Params struct {
	Media      media.Client
	Producer   EventPublisher
	Logger     *zap.Logger
	PolicyName string
}

// NewService constructs a completion Service.
func NewService(p Params) *Service {
	return &Service{
		media:      p.Media,
		producer:   p.Producer,
		logger:     p.Logger,
		policyName: p.PolicyName,
	}
}

// HandleEvent processes one notification. Only a job-output state change
// reporting Finished triggers a publish; every other type or state is a
// logged no-op. A publish failure is logged and counted but never surfaced
// to the trigger, so one flaky locator call cannot force a redelivery.
func (s *Service) HandleEvent(ctx context.Context, evt Event) error {
	s.logger.Info("notification received",
		zap.String("event_id", evt.ID),
		zap.String("event_type", evt.EventType),
		zap.String("subject", evt.Subject))

	if err := s.media.Login(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	payload, err := evt.DecodePayload()
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case JobOutputStateChangeData:
		return s.handleStateChange(ctx, evt, p)
	case IgnoredPayload:
		s.logger.Info("event type ignored", zap.String("event_type", p.EventType))
		metrics.RecordEventIgnored("event_type")
		return nil
	default:
		return fmt.Errorf("unhandled payload type %T", payload)
	}
}

func (s *Service) handleStateChange(ctx context.Context, evt Event, data JobOutputStateChangeData) error {
	if data.Output.State != media.JobStateFinished {
		s.logger.Info("job output not finished, nothing to publish",
			zap.String("event_id", evt.ID),
			zap.String("state", data.Output.State),
			zap.String("asset", data.Output.AssetName))
		metrics.RecordEventIgnored("state")
		return nil
	}

	assetName := data.Output.AssetName
	if err := s.media.PublishAsset(ctx, assetName, s.policyName); err != nil {
		var apiErr *media.APIError
		if errors.As(err, &apiErr) {
			s.logger.Error("publish asset failed",
				zap.String("asset", assetName),
				zap.String("code", apiErr.Code),
				zap.String("message", apiErr.Message))
		} else {
			s.logger.Error("publish asset failed", zap.String("asset", assetName), zap.Error(err))
		}
		metrics.RecordPublishFailure()
		return nil
	}

	metrics.RecordAssetPublished()
	s.logger.Info("asset published",
		zap.String("asset", assetName),
		zap.String("policy", s.policyName))

	s.emitAssetPublished(ctx, assetName)
	return nil
}

func (s *Service) emitAssetPublished(ctx context.Context, assetName string) {
	if s.producer == nil {
		return
	}
	evt := AssetPublishedEvent{
		ID:         uuid.NewString(),
		AssetName:  assetName,
		PolicyName: s.policyName,
	}
	if err := s.producer.PublishJSON(ctx, assetName, EventTypeAssetPublished, evt); err != nil {
		s.logger.Error("publish lifecycle event failed",
			zap.String("asset", assetName),
			zap.Error(err))
	}
}
