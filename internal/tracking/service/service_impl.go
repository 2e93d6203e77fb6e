package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/podslice/podslice/internal/observability/metrics"
	"github.com/podslice/podslice/internal/orgcontext"
	trackingdomain "github.com/podslice/podslice/internal/tracking/domain"
	"github.com/podslice/podslice/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	eventRepo  repository.Repository[trackingdomain.ContentEvent]
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) trackingdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("tracking.service"),
		genID:      p.GenID,
		eventRepo:  repository.ProvideStore[trackingdomain.ContentEvent](p.DB),
		obsMetrics: p.ObsMetrics,
	}
}

// Record appends one interaction event. On view and share kinds it also
// increments the matching denormalized counter on the content row so display
// paths never scan the event table.
func (s *Service) Record(ctx context.Context, req trackingdomain.RecordRequest) (*trackingdomain.ContentEvent, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, trackingdomain.ErrInvalidOrganization
	}

	contentID, err := snowflake.ParseString(strings.TrimSpace(req.ContentID))
	if err != nil || contentID == 0 {
		return nil, trackingdomain.ErrInvalidContent
	}
	kind := strings.TrimSpace(req.Kind)
	if !trackingdomain.ValidKind(kind) {
		return nil, trackingdomain.ErrInvalidKind
	}
	if req.DurationMS != nil && *req.DurationMS < 0 {
		return nil, trackingdomain.ErrInvalidDuration
	}

	owned, err := s.contentBelongsToOrg(ctx, contentID, orgID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, trackingdomain.ErrContentNotFound
	}

	now := time.Now().UTC()
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	record := &trackingdomain.ContentEvent{
		ID:         s.genID.Generate(),
		ContentID:  contentID,
		Kind:       kind,
		OccurredAt: occurredAt.UTC(),
		DurationMS: req.DurationMS,
		CreatedAt:  now,
	}
	if req.Metadata != nil {
		record.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.eventRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	if err := s.bumpContentCounter(ctx, contentID, kind, now); err != nil {
		// The event row is already written; the denormalized counter is a
		// display convenience and will drift at worst by this one event.
		s.log.Warn("failed to bump content counter",
			zap.String("content_id", contentID.String()),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordTrackedEvent(ctx, kind)
	}

	return record, nil
}

func (s *Service) List(ctx context.Context, req trackingdomain.ListRequest) ([]*trackingdomain.ContentEvent, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, trackingdomain.ErrInvalidOrganization
	}

	contentID, err := snowflake.ParseString(strings.TrimSpace(req.ContentID))
	if err != nil || contentID == 0 {
		return nil, trackingdomain.ErrInvalidContent
	}
	owned, err := s.contentBelongsToOrg(ctx, contentID, orgID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, trackingdomain.ErrContentNotFound
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	return s.eventRepo.Find(ctx,
		&trackingdomain.ContentEvent{ContentID: contentID},
		repository.WithOrder("occurred_at DESC"),
		repository.WithLimit(limit),
	)
}

func (s *Service) contentBelongsToOrg(ctx context.Context, contentID, orgID snowflake.ID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM contents c
		 JOIN podcasts p ON p.id = c.podcast_id
		 WHERE c.id = ? AND p.org_id = ?`,
		contentID,
		orgID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) bumpContentCounter(ctx context.Context, contentID snowflake.ID, kind string, now time.Time) error {
	var column string
	switch kind {
	case trackingdomain.KindView:
		column = "view_count"
	case trackingdomain.KindShare:
		column = "share_count"
	default:
		return nil
	}
	return s.db.WithContext(ctx).Exec(
		`UPDATE contents SET `+column+` = `+column+` + 1, updated_at = ? WHERE id = ?`,
		now,
		contentID,
	).Error
}
