package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/podslice/podslice/internal/orgcontext"
	orgdomain "github.com/podslice/podslice/internal/organization/domain"
	"github.com/podslice/podslice/pkg/db"
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
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) orgdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("organization.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req orgdomain.CreateRequest) (*orgdomain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, orgdomain.ErrInvalidName
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		return nil, orgdomain.ErrInvalidSlug
	}

	now := time.Now().UTC()
	record := &orgdomain.Organization{
		ID:            s.genID.Generate(),
		Name:          name,
		Slug:          slug,
		PayoutStatus:  orgdomain.PayoutStatusNotConfigured,
		TaxFormStatus: orgdomain.TaxFormStatusNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, orgdomain.ErrSlugTaken
		}
		return nil, err
	}
	return record, nil
}

func (s *Service) Get(ctx context.Context) (*orgdomain.Organization, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, orgdomain.ErrInvalidOrganization
	}
	var record orgdomain.Organization
	err := s.db.WithContext(ctx).Where("id = ?", orgID).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, orgdomain.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *Service) IsAdmin(ctx context.Context, userID snowflake.ID) (bool, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return false, orgdomain.ErrInvalidOrganization
	}
	if userID == 0 {
		return false, nil
	}
	var role string
	err := s.db.WithContext(ctx).Raw(
		`SELECT role FROM organization_members WHERE org_id = ? AND user_id = ?`,
		orgID,
		userID,
	).Scan(&role).Error
	if err != nil {
		return false, err
	}
	return role == orgdomain.RoleAdmin, nil
}
