package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	orgdomain "github.com/podslice/podslice/internal/organization/domain"
	"github.com/podslice/podslice/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (orgdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{DB: db, Log: zap.NewNop(), GenID: node}), db, node
}

func TestCreateOrganization(t *testing.T) {
	svc, _, _ := newService(t)

	org, err := svc.Create(context.Background(), orgdomain.CreateRequest{Name: "Acme Pods", Slug: "Acme-Pods"})
	require.NoError(t, err)
	assert.Equal(t, "acme-pods", org.Slug)
	assert.Equal(t, orgdomain.PayoutStatusNotConfigured, org.PayoutStatus)
	assert.Equal(t, orgdomain.TaxFormStatusNone, org.TaxFormStatus)
	assert.False(t, org.PayoutReady())
}

func TestCreateOrganizationSlugTaken(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, orgdomain.CreateRequest{Name: "Acme Pods", Slug: "acme"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, orgdomain.CreateRequest{Name: "Other", Slug: "acme"})
	assert.ErrorIs(t, err, orgdomain.ErrSlugTaken)
}

func TestCreateOrganizationValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, orgdomain.CreateRequest{Name: " ", Slug: "acme"})
	assert.ErrorIs(t, err, orgdomain.ErrInvalidName)

	_, err = svc.Create(ctx, orgdomain.CreateRequest{Name: "Acme", Slug: "  "})
	assert.ErrorIs(t, err, orgdomain.ErrInvalidSlug)
}

func TestGetOrganization(t *testing.T) {
	svc, _, node := newService(t)

	org, err := svc.Create(context.Background(), orgdomain.CreateRequest{Name: "Acme Pods", Slug: "acme"})
	require.NoError(t, err)

	got, err := svc.Get(orgcontext.WithOrgID(context.Background(), org.ID))
	require.NoError(t, err)
	assert.Equal(t, org.ID, got.ID)

	_, err = svc.Get(orgcontext.WithOrgID(context.Background(), node.Generate()))
	assert.ErrorIs(t, err, orgdomain.ErrNotFound)

	_, err = svc.Get(context.Background())
	assert.ErrorIs(t, err, orgdomain.ErrInvalidOrganization)
}

func TestIsAdmin(t *testing.T) {
	svc, db, node := newService(t)

	org, err := svc.Create(context.Background(), orgdomain.CreateRequest{Name: "Acme Pods", Slug: "acme"})
	require.NoError(t, err)

	adminID := node.Generate()
	memberID := node.Generate()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&orgdomain.OrganizationMember{
		ID: node.Generate(), OrgID: org.ID, UserID: adminID, Role: orgdomain.RoleAdmin, CreatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&orgdomain.OrganizationMember{
		ID: node.Generate(), OrgID: org.ID, UserID: memberID, Role: orgdomain.RoleMember, CreatedAt: now,
	}).Error)

	ctx := orgcontext.WithOrgID(context.Background(), org.ID)

	admin, err := svc.IsAdmin(ctx, adminID)
	require.NoError(t, err)
	assert.True(t, admin)

	admin, err = svc.IsAdmin(ctx, memberID)
	require.NoError(t, err)
	assert.False(t, admin)

	admin, err = svc.IsAdmin(ctx, node.Generate())
	require.NoError(t, err)
	assert.False(t, admin)
}
