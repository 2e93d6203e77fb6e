package migration

import (
	analyticsdomain "github.com/podslice/podslice/internal/analytics/domain"
	"github.com/podslice/podslice/internal/config"
	contentdomain "github.com/podslice/podslice/internal/content/domain"
	orgdomain "github.com/podslice/podslice/internal/organization/domain"
	royaltydomain "github.com/podslice/podslice/internal/royalty/domain"
	"github.com/podslice/podslice/internal/seed"
	trackingdomain "github.com/podslice/podslice/internal/tracking/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Versioned migrations are postgres-only; other dialects are
			// for local development and tests.
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.DefaultOrgID != 0 {
			return seed.EnsureMainOrgWithID(conn, cfg.DefaultOrgID)
		}
		return seed.EnsureMainOrg(conn)
	}),
)

// AutoMigrate creates the schema from the gorm models.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&contentdomain.Podcast{},
		&contentdomain.Content{},
		&trackingdomain.ContentEvent{},
		&analyticsdomain.DailyRollup{},
		&royaltydomain.RoyaltyStatement{},
		&royaltydomain.RoyaltyLineItem{},
	)
}
