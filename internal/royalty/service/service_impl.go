package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/podslice/podslice/internal/observability/metrics"
	"github.com/podslice/podslice/internal/orgcontext"
	royaltydomain "github.com/podslice/podslice/internal/royalty/domain"
	"github.com/podslice/podslice/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
	lineRepo   repository.Repository[royaltydomain.RoyaltyLineItem]
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) royaltydomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("royalty.service"),
		genID:      p.GenID,
		lineRepo:   repository.ProvideStore[royaltydomain.RoyaltyLineItem](p.DB),
		obsMetrics: p.ObsMetrics,
	}
}

type contentCounters struct {
	ID         snowflake.ID `gorm:"column:id"`
	ViewCount  int64        `gorm:"column:view_count"`
	ShareCount int64        `gorm:"column:share_count"`
}

func (s *Service) Calculate(ctx context.Context, req royaltydomain.CalculateRequest) (*royaltydomain.RoyaltyStatement, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, royaltydomain.ErrInvalidOrganization
	}
	if req.Year < 2000 || req.Year > 9999 || req.Month < 1 || req.Month > 12 {
		return nil, royaltydomain.ErrInvalidPeriod
	}

	periodStart := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0).Add(-time.Millisecond)

	// Qualifying content: created inside the period, priced by its lifetime
	// counters. Engagement landing on content created in an earlier period is
	// never counted here; a known limitation kept for compatibility with the
	// statements already issued.
	var contents []contentCounters
	if err := s.db.WithContext(ctx).Raw(
		`SELECT c.id, c.view_count, c.share_count
		 FROM contents c
		 JOIN podcasts p ON p.id = c.podcast_id
		 WHERE p.org_id = ? AND c.created_at >= ? AND c.created_at <= ?
		 ORDER BY c.id ASC`,
		orgID,
		periodStart,
		periodEnd,
	).Scan(&contents).Error; err != nil {
		// The caller gets the non-specific sentinel; the real cause stays
		// server-side.
		s.log.Error("content counter query failed",
			zap.String("org_id", orgID.String()),
			zap.Int("year", req.Year),
			zap.Int("month", req.Month),
			zap.Error(err),
		)
		return nil, royaltydomain.ErrCalculationFailed
	}

	var totalViews, totalShares int64
	for _, c := range contents {
		totalViews += c.ViewCount
		totalShares += c.ShareCount
	}
	amount := CalculateRoyalty(totalViews, totalShares, 0)

	existing, err := s.findStatement(ctx, orgID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing != nil {
		switch existing.PaymentStatus {
		case royaltydomain.PaymentStatusPaid:
			return nil, royaltydomain.ErrStatementPaid
		case royaltydomain.PaymentStatusProcessing:
			return nil, royaltydomain.ErrStatementProcessing
		}
		// Overwrite totals and amount; line items stay as first written.
		// Resetting to pending is the only path back out of failed.
		if err := s.db.WithContext(ctx).Exec(
			`UPDATE royalty_statements
			 SET total_views = ?, total_shares = ?, calculated_amount = ?,
			     payment_status = ?, updated_at = ?
			 WHERE id = ?`,
			totalViews,
			totalShares,
			amount,
			royaltydomain.PaymentStatusPending,
			now,
			existing.ID,
		).Error; err != nil {
			return nil, err
		}
		existing.TotalViews = totalViews
		existing.TotalShares = totalShares
		existing.CalculatedAmount = amount
		existing.PaymentStatus = royaltydomain.PaymentStatusPending
		existing.UpdatedAt = now
		return existing, nil
	}

	statement := &royaltydomain.RoyaltyStatement{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		TotalViews:       totalViews,
		TotalShares:      totalShares,
		CalculatedAmount: amount,
		Currency:         "USD",
		PaymentStatus:    royaltydomain.PaymentStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.db.WithContext(ctx).Create(statement).Error; err != nil {
		return nil, err
	}

	lines := make([]*royaltydomain.RoyaltyLineItem, 0, len(contents))
	for _, c := range contents {
		lines = append(lines, &royaltydomain.RoyaltyLineItem{
			ID:          s.genID.Generate(),
			StatementID: statement.ID,
			ContentID:   c.ID,
			Views:       c.ViewCount,
			Shares:      c.ShareCount,
			Amount:      CalculateRoyalty(c.ViewCount, c.ShareCount, 0),
			CreatedAt:   now,
		})
	}
	if err := s.lineRepo.BatchCreate(ctx, lines); err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordStatementCalculated(ctx)
	}
	s.log.Info("royalty statement calculated",
		zap.String("statement_id", statement.ID.String()),
		zap.String("org_id", orgID.String()),
		zap.Int("line_items", len(lines)),
		zap.String("amount", amount.StringFixed(2)),
	)
	return statement, nil
}

func (s *Service) ListStatements(ctx context.Context, req royaltydomain.ListStatementsRequest) ([]*royaltydomain.RoyaltyStatement, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, royaltydomain.ErrInvalidOrganization
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	var statements []*royaltydomain.RoyaltyStatement
	err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("period_start DESC").
		Limit(limit).
		Find(&statements).Error
	return statements, err
}

func (s *Service) GetStatement(ctx context.Context, statementID snowflake.ID) (*royaltydomain.RoyaltyStatement, []*royaltydomain.RoyaltyLineItem, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, nil, royaltydomain.ErrInvalidOrganization
	}

	var statement royaltydomain.RoyaltyStatement
	err := s.db.WithContext(ctx).
		Where("id = ? AND org_id = ?", statementID, orgID).
		First(&statement).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, royaltydomain.ErrStatementNotFound
		}
		return nil, nil, err
	}

	lines, err := s.lineRepo.Find(ctx,
		&royaltydomain.RoyaltyLineItem{StatementID: statement.ID},
		repository.WithOrder("content_id ASC"),
	)
	if err != nil {
		return nil, nil, err
	}
	return &statement, lines, nil
}

func (s *Service) findStatement(ctx context.Context, orgID snowflake.ID, periodStart, periodEnd time.Time) (*royaltydomain.RoyaltyStatement, error) {
	var statement royaltydomain.RoyaltyStatement
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND period_start = ? AND period_end = ?", orgID, periodStart, periodEnd).
		First(&statement).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &statement, nil
}
