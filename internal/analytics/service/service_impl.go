package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/podslice/podslice/internal/analytics/domain"
	obsmetrics "github.com/podslice/podslice/internal/observability/metrics"
	"github.com/podslice/podslice/internal/orgcontext"
	trackingdomain "github.com/podslice/podslice/internal/tracking/domain"
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
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) analyticsdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("analytics.service"),
		genID:      p.GenID,
		obsMetrics: p.ObsMetrics,
	}
}

type eventRow struct {
	ContentID  snowflake.ID `gorm:"column:content_id"`
	Kind       string       `gorm:"column:kind"`
	OccurredAt time.Time    `gorm:"column:occurred_at"`
	DurationMS *int64       `gorm:"column:duration_ms"`
}

type groupKey struct {
	contentID snowflake.ID
	day       time.Time
}

type rollupDelta struct {
	views, shares, clicks, plays, completes int64
	listenMS                                int64
}

func (s *Service) Aggregate(ctx context.Context, req analyticsdomain.AggregateRequest) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return analyticsdomain.ErrInvalidOrganization
	}
	if req.From.IsZero() || req.To.IsZero() || req.To.Before(req.From) {
		return analyticsdomain.ErrInvalidRange
	}

	// Widen to whole UTC days so a partial-day boundary never splits a day.
	from := startOfUTCDay(req.From)
	to := endOfUTCDay(req.To)

	var rows []eventRow
	if err := s.db.WithContext(ctx).Raw(
		`SELECT e.content_id, e.kind, e.occurred_at, e.duration_ms
		 FROM content_events e
		 JOIN contents c ON c.id = e.content_id
		 JOIN podcasts p ON p.id = c.podcast_id
		 WHERE p.org_id = ? AND e.occurred_at >= ? AND e.occurred_at <= ?
		 ORDER BY e.occurred_at ASC`,
		orgID,
		from,
		to,
	).Scan(&rows).Error; err != nil {
		return err
	}

	groups := make(map[groupKey]*rollupDelta)
	order := make([]groupKey, 0)
	for _, row := range rows {
		key := groupKey{contentID: row.ContentID, day: startOfUTCDay(row.OccurredAt)}
		delta, seen := groups[key]
		if !seen {
			delta = &rollupDelta{}
			groups[key] = delta
			order = append(order, key)
		}
		switch row.Kind {
		case trackingdomain.KindView:
			delta.views++
		case trackingdomain.KindShare:
			delta.shares++
		case trackingdomain.KindClick:
			delta.clicks++
		case trackingdomain.KindPlay:
			delta.plays++
		case trackingdomain.KindComplete:
			delta.completes++
		}
		// Any event carrying a duration contributes listen time, not only
		// play and complete.
		if row.DurationMS != nil && *row.DurationMS > 0 {
			delta.listenMS += *row.DurationMS
		}
	}

	// Each group is upserted independently. A failure partway through leaves
	// the earlier rows applied: at-least-once, no rollback.
	for _, key := range order {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.upsertRollup(ctx, key, groups[key]); err != nil {
			return err
		}
		if err := s.refreshCompletionRate(ctx, key); err != nil {
			return err
		}
		if s.obsMetrics != nil {
			s.obsMetrics.RecordRollupUpsert(ctx)
		}
	}

	s.log.Info("aggregation pass complete",
		zap.String("org_id", orgID.String()),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("events", len(rows)),
		zap.Int("rollups", len(order)),
	)
	return nil
}

func (s *Service) upsertRollup(ctx context.Context, key groupKey, delta *rollupDelta) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Exec(
		`INSERT INTO daily_rollups (
			id, content_id, day, views, shares, clicks, plays, completes,
			listen_ms_total, completion_rate, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (content_id, day) DO UPDATE SET
			views = daily_rollups.views + excluded.views,
			shares = daily_rollups.shares + excluded.shares,
			clicks = daily_rollups.clicks + excluded.clicks,
			plays = daily_rollups.plays + excluded.plays,
			completes = daily_rollups.completes + excluded.completes,
			listen_ms_total = daily_rollups.listen_ms_total + excluded.listen_ms_total,
			updated_at = excluded.updated_at`,
		s.genID.Generate(),
		key.contentID,
		key.day,
		delta.views,
		delta.shares,
		delta.clicks,
		delta.plays,
		delta.completes,
		delta.listenMS,
		now,
		now,
	).Error
}

// refreshCompletionRate rewrites the derived rate in a second statement after
// the counter upsert. A crash between the two leaves the rate stale and the
// counters correct; the next pass over the day repairs it.
func (s *Service) refreshCompletionRate(ctx context.Context, key groupKey) error {
	var counters struct {
		Plays     int64 `gorm:"column:plays"`
		Completes int64 `gorm:"column:completes"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT plays, completes FROM daily_rollups WHERE content_id = ? AND day = ?`,
		key.contentID,
		key.day,
	).Scan(&counters).Error; err != nil {
		return err
	}

	var rate float64
	if counters.Plays > 0 {
		// Deliberately unclamped: more completes than plays yields > 1.
		rate = float64(counters.Completes) / float64(counters.Plays)
	}
	return s.db.WithContext(ctx).Exec(
		`UPDATE daily_rollups SET completion_rate = ?, updated_at = ? WHERE content_id = ? AND day = ?`,
		rate,
		time.Now().UTC(),
		key.contentID,
		key.day,
	).Error
}

func (s *Service) ListRollups(ctx context.Context, req analyticsdomain.ListRollupsRequest) ([]*analyticsdomain.DailyRollup, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, analyticsdomain.ErrInvalidOrganization
	}

	stmt := s.db.WithContext(ctx).
		Where("content_id IN (SELECT c.id FROM contents c JOIN podcasts p ON p.id = c.podcast_id WHERE p.org_id = ?)", orgID).
		Order("day ASC")

	if contentID := strings.TrimSpace(req.ContentID); contentID != "" {
		parsed, err := snowflake.ParseString(contentID)
		if err != nil || parsed == 0 {
			return nil, analyticsdomain.ErrInvalidContent
		}
		stmt = stmt.Where("content_id = ?", parsed)
	}
	if !req.From.IsZero() {
		stmt = stmt.Where("day >= ?", startOfUTCDay(req.From))
	}
	if !req.To.IsZero() {
		stmt = stmt.Where("day <= ?", startOfUTCDay(req.To))
	}

	var rollups []*analyticsdomain.DailyRollup
	err := stmt.Find(&rollups).Error
	return rollups, err
}

func startOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999000000, time.UTC)
}
