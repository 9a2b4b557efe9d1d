package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
)

type stubCartRepo struct {
	items   map[uuid.UUID]*models.CartItem
	updates []int
	deleted []uuid.UUID
	lines   []CartLine
}

func newStubCartRepo(seed ...*models.CartItem) *stubCartRepo {
	repo := &stubCartRepo{items: make(map[uuid.UUID]*models.CartItem)}
	for _, item := range seed {
		repo.items[item.ID] = item
	}
	return repo
}

func (r *stubCartRepo) Insert(ctx context.Context, item *models.CartItem) error {
	for _, existing := range r.items {
		if existing.BuyerID == item.BuyerID && existing.ProductID == item.ProductID {
			return gorm.ErrDuplicatedKey
		}
	}
	item.ID = uuid.New()
	r.items[item.ID] = item
	return nil
}

func (r *stubCartRepo) FindByBuyerAndID(ctx context.Context, buyerID, cartID uuid.UUID) (*models.CartItem, error) {
	item, ok := r.items[cartID]
	if !ok || item.BuyerID != buyerID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *stubCartRepo) FindByBuyerAndProduct(ctx context.Context, buyerID, productID uuid.UUID) (*models.CartItem, error) {
	for _, item := range r.items {
		if item.BuyerID == buyerID && item.ProductID == productID {
			copied := *item
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCartRepo) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	r.updates = append(r.updates, quantity)
	r.items[id].Quantity = quantity
	return nil
}

func (r *stubCartRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	delete(r.items, id)
	return nil
}

func (r *stubCartRepo) ListLines(ctx context.Context, buyerID uuid.UUID) ([]CartLine, error) {
	return r.lines, nil
}

func (r *stubCartRepo) Count(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	var count int64
	for _, item := range r.items {
		if item.BuyerID == buyerID {
			count++
		}
	}
	return count, nil
}

type stubProducts struct {
	products map[uuid.UUID]*models.Product
}

func (p *stubProducts) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := p.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	return &copied, nil
}

type stubGuard struct {
	begun     int
	released  int
	preempted bool
}

func (g *stubGuard) Begin(ctx context.Context, buyerID, lineID uuid.UUID) (string, error) {
	g.begun++
	return uuid.NewString(), nil
}

func (g *stubGuard) StillHolds(ctx context.Context, buyerID, lineID uuid.UUID, token string) (bool, error) {
	return !g.preempted, nil
}

func (g *stubGuard) Release(ctx context.Context, buyerID, lineID uuid.UUID, token string) error {
	g.released++
	return nil
}

type stubBadge struct {
	values  map[string]string
	deleted []string
}

func newStubBadge() *stubBadge {
	return &stubBadge{values: make(map[string]string)}
}

func (b *stubBadge) Get(ctx context.Context, key string) (string, error) {
	value, ok := b.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return value, nil
}

func (b *stubBadge) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b.values[key] = value.(string)
	return nil
}

func (b *stubBadge) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		b.deleted = append(b.deleted, key)
		delete(b.values, key)
	}
	return nil
}

func (b *stubBadge) CartCountKey(buyerID string) string {
	return "tl:cart_count:" + buyerID
}

type stubPruner struct {
	dropped []uuid.UUID
}

func (p *stubPruner) DropLine(ctx context.Context, buyerID, cartID uuid.UUID) error {
	p.dropped = append(p.dropped, cartID)
	return nil
}

type cartFixture struct {
	svc      Service
	repo     *stubCartRepo
	products *stubProducts
	guard    *stubGuard
	badge    *stubBadge
	pruner   *stubPruner
}

func newCartFixture(t *testing.T, repo *stubCartRepo, products *stubProducts) *cartFixture {
	t.Helper()
	guard := &stubGuard{}
	badge := newStubBadge()
	pruner := &stubPruner{}
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Products:  products,
		Guard:     guard,
		Badge:     badge,
		Selection: pruner,
	})
	require.NoError(t, err)
	return &cartFixture{svc: svc, repo: repo, products: products, guard: guard, badge: badge, pruner: pruner}
}

func approvedProduct(sellerID uuid.UUID, stock int) *models.Product {
	return &models.Product{
		ID:                 uuid.New(),
		SellerID:           sellerID,
		Name:               "Leather Belt",
		Description:        "Brown, lightly worn.",
		Category:           "accessories",
		ItemType:           "belt",
		Size:               "one size",
		Quantity:           stock,
		PriceCents:         1200,
		OriginalPriceCents: 2000,
		ImageURL:           "https://img.example.com/belt.jpg",
		Status:             enums.ProductStatusApproved,
	}
}

func TestAddItem(t *testing.T) {
	buyerID := uuid.New()
	product := approvedProduct(uuid.New(), 3)
	fixture := newCartFixture(t, newStubCartRepo(), &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	dto, err := fixture.svc.AddItem(context.Background(), buyerID, AddItemInput{
		ProductID: product.ID,
		Quantity:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, dto.Quantity)
	assert.Equal(t, 2400, dto.LineTotalCents)
	assert.NotEmpty(t, fixture.badge.deleted, "badge cache invalidated")
}

func TestAddItemDuplicateIsDistinctCode(t *testing.T) {
	buyerID := uuid.New()
	product := approvedProduct(uuid.New(), 3)
	fixture := newCartFixture(t, newStubCartRepo(), &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	_, err := fixture.svc.AddItem(context.Background(), buyerID, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = fixture.svc.AddItem(context.Background(), buyerID, AddItemInput{ProductID: product.ID, Quantity: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAlreadyInCart, typed.Code())
}

func TestAddItemInsufficientStock(t *testing.T) {
	buyerID := uuid.New()
	product := approvedProduct(uuid.New(), 2)
	repo := newStubCartRepo()
	fixture := newCartFixture(t, repo, &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	_, err := fixture.svc.AddItem(context.Background(), buyerID, AddItemInput{ProductID: product.ID, Quantity: 5})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	assert.Equal(t, map[string]int{"available": 2, "requested": 5}, typed.Details())
	assert.Empty(t, repo.items, "no line written on a stock conflict")
}

func TestAddItemRejectsOwnListing(t *testing.T) {
	sellerID := uuid.New()
	product := approvedProduct(sellerID, 3)
	fixture := newCartFixture(t, newStubCartRepo(), &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	_, err := fixture.svc.AddItem(context.Background(), sellerID, AddItemInput{ProductID: product.ID, Quantity: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestAddItemRejectsUnapprovedListing(t *testing.T) {
	product := approvedProduct(uuid.New(), 3)
	product.Status = enums.ProductStatusPending
	fixture := newCartFixture(t, newStubCartRepo(), &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	_, err := fixture.svc.AddItem(context.Background(), uuid.New(), AddItemInput{ProductID: product.ID, Quantity: 1})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdateQuantityIdempotentRepeat(t *testing.T) {
	buyerID := uuid.New()
	product := approvedProduct(uuid.New(), 5)
	item := &models.CartItem{ID: uuid.New(), BuyerID: buyerID, ProductID: product.ID, Quantity: 2}
	repo := newStubCartRepo(item)
	fixture := newCartFixture(t, repo, &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	dto, err := fixture.svc.UpdateQuantity(context.Background(), buyerID, item.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, dto.Quantity)
	assert.Empty(t, repo.updates, "identical repeat does not write")
	assert.Zero(t, fixture.guard.begun, "identical repeat does not claim the line")
}

func TestUpdateQuantityInsufficientStockKeepsStoredQuantity(t *testing.T) {
	buyerID := uuid.New()
	product := approvedProduct(uuid.New(), 3)
	item := &models.CartItem{ID: uuid.New(), BuyerID: buyerID, ProductID: product.ID, Quantity: 2}
	repo := newStubCartRepo(item)
	fixture := newCartFixture(t, repo, &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	_, err := fixture.svc.UpdateQuantity(context.Background(), buyerID, item.ID, 9)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	assert.Equal(t, map[string]int{"available": 3, "requested": 9}, typed.Details())
	assert.Equal(t, 2, repo.items[item.ID].Quantity)
	assert.Empty(t, repo.updates)
}

func TestUpdateQuantityBelowFloorRejected(t *testing.T) {
	buyerID := uuid.New()
	product := approvedProduct(uuid.New(), 3)
	item := &models.CartItem{ID: uuid.New(), BuyerID: buyerID, ProductID: product.ID, Quantity: 2}
	fixture := newCartFixture(t, newStubCartRepo(item), &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	_, err := fixture.svc.UpdateQuantity(context.Background(), buyerID, item.ID, 0)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUpdateQuantityPreemptedClaimConflicts(t *testing.T) {
	buyerID := uuid.New()
	product := approvedProduct(uuid.New(), 5)
	item := &models.CartItem{ID: uuid.New(), BuyerID: buyerID, ProductID: product.ID, Quantity: 2}
	repo := newStubCartRepo(item)
	fixture := newCartFixture(t, repo, &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})
	fixture.guard.preempted = true

	_, err := fixture.svc.UpdateQuantity(context.Background(), buyerID, item.ID, 3)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, 2, repo.items[item.ID].Quantity, "preempted update does not write")
}

func TestUpdateQuantityForeignLineNotFound(t *testing.T) {
	buyerID := uuid.New()
	product := approvedProduct(uuid.New(), 5)
	item := &models.CartItem{ID: uuid.New(), BuyerID: uuid.New(), ProductID: product.ID, Quantity: 2}
	fixture := newCartFixture(t, newStubCartRepo(item), &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	_, err := fixture.svc.UpdateQuantity(context.Background(), buyerID, item.ID, 3)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRemoveItemPrunesSelectionAndBadge(t *testing.T) {
	buyerID := uuid.New()
	product := approvedProduct(uuid.New(), 5)
	item := &models.CartItem{ID: uuid.New(), BuyerID: buyerID, ProductID: product.ID, Quantity: 1}
	repo := newStubCartRepo(item)
	fixture := newCartFixture(t, repo, &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	require.NoError(t, fixture.svc.RemoveItem(context.Background(), buyerID, item.ID))
	assert.Equal(t, []uuid.UUID{item.ID}, repo.deleted)
	assert.Equal(t, []uuid.UUID{item.ID}, fixture.pruner.dropped)
	assert.NotEmpty(t, fixture.badge.deleted)
}

func TestCountUsesCacheThenRepo(t *testing.T) {
	buyerID := uuid.New()
	product := approvedProduct(uuid.New(), 5)
	item := &models.CartItem{ID: uuid.New(), BuyerID: buyerID, ProductID: product.ID, Quantity: 1}
	repo := newStubCartRepo(item)
	fixture := newCartFixture(t, repo, &stubProducts{
		products: map[uuid.UUID]*models.Product{product.ID: product},
	})

	count, err := fixture.svc.Count(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The miss populated the cache; a stale cached value now wins.
	fixture.badge.values[fixture.badge.CartCountKey(buyerID.String())] = "7"
	count, err = fixture.svc.Count(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
