package products

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

type stubRepo struct {
	products   map[uuid.UUID]*models.Product
	updates    []map[string]any
	deleted    []uuid.UUID
	cartRefs   int64
	orderRefs  int64
	categories []string
	sizes      []string
	minPrice   int
	maxPrice   int
}

func newStubRepo(seed ...*models.Product) *stubRepo {
	repo := &stubRepo{products: make(map[uuid.UUID]*models.Product)}
	for _, p := range seed {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *stubRepo) Create(ctx context.Context, product *models.Product) error {
	product.ID = uuid.New()
	r.products[product.ID] = product
	return nil
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *stubRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	r.updates = append(r.updates, updates)
	p := r.products[id]
	if v, ok := updates["price_cents"].(int); ok {
		p.PriceCents = v
	}
	if v, ok := updates["quantity"].(int); ok {
		p.Quantity = v
	}
	if v, ok := updates["description"].(string); ok {
		p.Description = v
	}
	if v, ok := updates["status"].(enums.ProductStatus); ok {
		p.Status = v
	}
	return nil
}

func (r *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	delete(r.products, id)
	return nil
}

func (r *stubRepo) ListApproved(ctx context.Context, input ListApprovedInput) ([]models.Product, string, error) {
	return nil, "", nil
}

func (r *stubRepo) Search(ctx context.Context, term, cursor string, limit int) ([]models.Product, string, error) {
	return nil, "", nil
}

func (r *stubRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) ([]models.Product, string, error) {
	return nil, "", nil
}

func (r *stubRepo) ListPending(ctx context.Context, cursor string, limit int) ([]models.Product, string, error) {
	return nil, "", nil
}

func (r *stubRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	return r.categories, nil
}

func (r *stubRepo) DistinctSizes(ctx context.Context) ([]string, error) {
	return r.sizes, nil
}

func (r *stubRepo) PriceRange(ctx context.Context) (int, int, error) {
	return r.minPrice, r.maxPrice, nil
}

func (r *stubRepo) CountCartReferences(ctx context.Context, productID uuid.UUID) (int64, error) {
	return r.cartRefs, nil
}

func (r *stubRepo) CountOpenOrderReferences(ctx context.Context, productID uuid.UUID) (int64, error) {
	return r.orderRefs, nil
}

func seedProduct(sellerID uuid.UUID) *models.Product {
	return &models.Product{
		ID:                 uuid.New(),
		SellerID:           sellerID,
		Name:               "Vintage Denim Jacket",
		Description:        "Light wash, barely worn.",
		Category:           "outerwear",
		ItemType:           "jacket",
		Size:               "M",
		Quantity:           3,
		PriceCents:         4500,
		OriginalPriceCents: 6000,
		ImageURL:           "https://img.example.com/denim.jpg",
		Status:             enums.ProductStatusApproved,
	}
}

func buildService(t *testing.T, repo *stubRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)
	return svc
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestUpdateAllowsPriceReduction(t *testing.T) {
	sellerID := uuid.New()
	product := seedProduct(sellerID)
	repo := newStubRepo(product)
	svc := buildService(t, repo)

	updated, err := svc.Update(context.Background(), sellerID, product.ID, UpdateProductInput{
		PriceCents: intPtr(3900),
	})
	require.NoError(t, err)
	assert.Equal(t, 3900, updated.PriceCents)
	assert.Equal(t, 6000, updated.OriginalPriceCents, "original price never moves")
}

func TestUpdateRejectsPriceIncreaseWithoutWriting(t *testing.T) {
	sellerID := uuid.New()
	product := seedProduct(sellerID)
	repo := newStubRepo(product)
	svc := buildService(t, repo)

	_, err := svc.Update(context.Background(), sellerID, product.ID, UpdateProductInput{
		PriceCents: intPtr(5000),
		Quantity:   intPtr(1),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, priceIncreaseMessage, typed.Message())
	assert.Empty(t, repo.updates, "a rejected update must not touch the row")
	assert.Equal(t, 4500, repo.products[product.ID].PriceCents)
	assert.Equal(t, 3, repo.products[product.ID].Quantity)
}

func TestUpdateRejectsImmutableFields(t *testing.T) {
	sellerID := uuid.New()
	product := seedProduct(sellerID)
	svc := buildService(t, newStubRepo(product))

	cases := []struct {
		name  string
		input UpdateProductInput
	}{
		{"name", UpdateProductInput{Name: strPtr("New Name")}},
		{"status", UpdateProductInput{Status: strPtr("pending")}},
		{"image", UpdateProductInput{ImageURL: strPtr("https://img.example.com/other.jpg")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), sellerID, product.ID, tc.input)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}

	// Resending the current values is not a change.
	_, err := svc.Update(context.Background(), sellerID, product.ID, UpdateProductInput{
		Name: strPtr(product.Name),
	})
	assert.NoError(t, err)
}

func TestUpdateForbiddenForOtherSeller(t *testing.T) {
	product := seedProduct(uuid.New())
	svc := buildService(t, newStubRepo(product))

	_, err := svc.Update(context.Background(), uuid.New(), product.ID, UpdateProductInput{
		Quantity: intPtr(1),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestCreateRequiresPriceAtOrBelowOriginal(t *testing.T) {
	svc := buildService(t, newStubRepo())

	_, err := svc.Create(context.Background(), uuid.New(), CreateProductInput{
		Name:               "Wool Coat",
		Description:        "Warm",
		Category:           "outerwear",
		ItemType:           "coat",
		Size:               "L",
		Quantity:           1,
		PriceCents:         7000,
		OriginalPriceCents: 6000,
		ImageURL:           "https://img.example.com/coat.jpg",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateStartsPending(t *testing.T) {
	repo := newStubRepo()
	svc := buildService(t, repo)

	dto, err := svc.Create(context.Background(), uuid.New(), CreateProductInput{
		Name:               "Wool Coat",
		Description:        "Warm",
		Category:           "outerwear",
		ItemType:           "coat",
		Size:               "L",
		Quantity:           1,
		PriceCents:         5000,
		OriginalPriceCents: 6000,
		ImageURL:           "https://img.example.com/coat.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusPending, dto.Status)
}

func TestDecideOnlyFromPending(t *testing.T) {
	sellerID := uuid.New()
	pending := seedProduct(sellerID)
	pending.Status = enums.ProductStatusPending
	repo := newStubRepo(pending)
	svc := buildService(t, repo)

	dto, err := svc.Decide(context.Background(), pending.ID, true)
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusApproved, dto.Status)

	_, err = svc.Decide(context.Background(), pending.ID, false)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestDeleteBlockedByReferences(t *testing.T) {
	sellerID := uuid.New()
	product := seedProduct(sellerID)
	repo := newStubRepo(product)
	repo.cartRefs = 2
	svc := buildService(t, repo)

	err := svc.Delete(context.Background(), sellerID, product.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Empty(t, repo.deleted)

	repo.cartRefs = 0
	repo.orderRefs = 1
	err = svc.Delete(context.Background(), sellerID, product.ID)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	repo.orderRefs = 0
	require.NoError(t, svc.Delete(context.Background(), sellerID, product.ID))
	assert.Len(t, repo.deleted, 1)
}

func TestFiltersAggregatesPanels(t *testing.T) {
	repo := newStubRepo()
	repo.categories = []string{"dresses", "outerwear"}
	repo.sizes = []string{"M", "S"}
	repo.minPrice = 500
	repo.maxPrice = 12000
	svc := buildService(t, repo)

	filters, err := svc.Filters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"dresses", "outerwear"}, filters.Categories)
	assert.Equal(t, []string{"M", "S"}, filters.Sizes)
	assert.Equal(t, 500, filters.MinPriceCents)
	assert.Equal(t, 12000, filters.MaxPriceCents)
}
