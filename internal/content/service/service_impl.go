package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	contentdomain "github.com/podslice/podslice/internal/content/domain"
	"github.com/podslice/podslice/internal/orgcontext"
	"github.com/podslice/podslice/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	contentRepo repository.Repository[contentdomain.Content]
}

func NewService(p Params) contentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("content.service"),
		genID:       p.GenID,
		contentRepo: repository.ProvideStore[contentdomain.Content](p.DB),
	}
}

func (s *Service) CreatePodcast(ctx context.Context, req contentdomain.CreatePodcastRequest) (*contentdomain.Podcast, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, contentdomain.ErrInvalidOrganization
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, contentdomain.ErrInvalidTitle
	}

	now := time.Now().UTC()
	record := &contentdomain.Podcast{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) CreateContent(ctx context.Context, req contentdomain.CreateContentRequest) (*contentdomain.Content, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, contentdomain.ErrInvalidOrganization
	}

	podcastID, err := snowflake.ParseString(strings.TrimSpace(req.PodcastID))
	if err != nil || podcastID == 0 {
		return nil, contentdomain.ErrInvalidPodcast
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, contentdomain.ErrInvalidTitle
	}
	kind := strings.TrimSpace(req.Kind)
	if kind != contentdomain.KindSummary && kind != contentdomain.KindSocialPost {
		return nil, contentdomain.ErrInvalidKind
	}

	owned, err := s.podcastBelongsToOrg(ctx, podcastID, orgID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, contentdomain.ErrPodcastNotFound
	}

	now := time.Now().UTC()
	record := &contentdomain.Content{
		ID:        s.genID.Generate(),
		PodcastID: podcastID,
		Title:     title,
		Kind:      kind,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.contentRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) ListContent(ctx context.Context, req contentdomain.ListContentRequest) ([]*contentdomain.Content, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, contentdomain.ErrInvalidOrganization
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	if podcastID := strings.TrimSpace(req.PodcastID); podcastID != "" {
		parsed, err := snowflake.ParseString(podcastID)
		if err != nil || parsed == 0 {
			return nil, contentdomain.ErrInvalidPodcast
		}
		owned, err := s.podcastBelongsToOrg(ctx, parsed, orgID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, contentdomain.ErrPodcastNotFound
		}
		return s.contentRepo.Find(ctx,
			&contentdomain.Content{PodcastID: parsed},
			repository.WithOrder("created_at DESC"),
			repository.WithLimit(limit),
		)
	}

	var items []*contentdomain.Content
	err := s.db.WithContext(ctx).
		Where("podcast_id IN (SELECT id FROM podcasts WHERE org_id = ?)", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (s *Service) podcastBelongsToOrg(ctx context.Context, podcastID, orgID snowflake.ID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM podcasts WHERE id = ? AND org_id = ?`,
		podcastID,
		orgID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
