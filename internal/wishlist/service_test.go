package wishlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
)

type stubWishlistRepo struct {
	items map[uuid.UUID]map[uuid.UUID]bool
	lines []WishlistLine
}

func newStubWishlistRepo() *stubWishlistRepo {
	return &stubWishlistRepo{items: make(map[uuid.UUID]map[uuid.UUID]bool)}
}

func (r *stubWishlistRepo) Insert(ctx context.Context, item *models.WishlistItem) error {
	if r.items[item.BuyerID] == nil {
		r.items[item.BuyerID] = make(map[uuid.UUID]bool)
	}
	r.items[item.BuyerID][item.ProductID] = true
	return nil
}

func (r *stubWishlistRepo) DeleteByProduct(ctx context.Context, buyerID, productID uuid.UUID) (bool, error) {
	if !r.items[buyerID][productID] {
		return false, nil
	}
	delete(r.items[buyerID], productID)
	return true, nil
}

func (r *stubWishlistRepo) ListLines(ctx context.Context, buyerID uuid.UUID) ([]WishlistLine, error) {
	return r.lines, nil
}

type stubProductFinder struct {
	products map[uuid.UUID]*models.Product
}

func (p *stubProductFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := p.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func buildWishlistService(t *testing.T, repo *stubWishlistRepo, products *stubProductFinder) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Products: products})
	require.NoError(t, err)
	return svc
}

func TestAddAndRemove(t *testing.T) {
	buyerID := uuid.New()
	product := &models.Product{ID: uuid.New(), Status: enums.ProductStatusApproved}
	repo := newStubWishlistRepo()
	svc := buildWishlistService(t, repo, &stubProductFinder{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, buyerID, AddInput{ProductID: product.ID}))
	assert.True(t, repo.items[buyerID][product.ID])

	require.NoError(t, svc.Remove(ctx, buyerID, product.ID))
	assert.False(t, repo.items[buyerID][product.ID])

	err := svc.Remove(ctx, buyerID, product.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestAddUnknownProduct(t *testing.T) {
	svc := buildWishlistService(t, newStubWishlistRepo(), &stubProductFinder{
		products: map[uuid.UUID]*models.Product{},
	})

	err := svc.Add(context.Background(), uuid.New(), AddInput{ProductID: uuid.New()})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestAddUnapprovedProduct(t *testing.T) {
	product := &models.Product{ID: uuid.New(), Status: enums.ProductStatusSold}
	svc := buildWishlistService(t, newStubWishlistRepo(), &stubProductFinder{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	err := svc.Add(context.Background(), uuid.New(), AddInput{ProductID: product.ID})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestListMapsLines(t *testing.T) {
	repo := newStubWishlistRepo()
	repo.lines = []WishlistLine{
		{
			WishlistItemID: uuid.New(),
			ProductID:      uuid.New(),
			ProductName:    "Suede Boots",
			PriceCents:     4200,
			Available:      1,
			ProductStatus:  enums.ProductStatusApproved,
		},
	}
	svc := buildWishlistService(t, repo, &stubProductFinder{products: map[uuid.UUID]*models.Product{}})

	items, err := svc.List(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Suede Boots", items[0].ProductName)
	assert.Equal(t, 4200, items[0].PriceCents)
}
