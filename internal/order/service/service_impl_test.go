package service_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/smallbiznis/ordersync/internal/order/repository"
	"github.com/smallbiznis/ordersync/internal/order/service"
	"github.com/smallbiznis/ordersync/internal/seed"
	"github.com/smallbiznis/ordersync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, domain.Service) {
	t.Helper()

	db := testutil.NewDB(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	require.NoError(t, seed.EnsureDemoData(context.Background(), db, node, zap.NewNop()))

	svc := service.New(service.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})
	return db, svc
}

func TestListOrdersIncludesRelations(t *testing.T) {
	_, svc := setup(t)

	orders, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 5)

	refs := make([]string, 0, len(orders))
	for _, o := range orders {
		refs = append(refs, o.ExternalReference)
		require.NotNil(t, o.Customer)
		assert.NotEmpty(t, o.Products)
		assert.NotNil(t, o.Payments)
	}
	assert.Equal(t, []string{"ORD-1001", "ORD-1002", "ORD-1003", "ORD-1004", "ORD-1005"}, refs)
}

func TestGetByReference(t *testing.T) {
	_, svc := setup(t)

	detail, err := svc.GetByReference(context.Background(), "ORD-1003")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPaid, detail.Status)
	assert.Equal(t, int64(50000), detail.Amount)
	require.NotNil(t, detail.Customer)
	assert.Equal(t, "John Doe", detail.Customer.Name)
	assert.Len(t, detail.Products, 3)
	require.Len(t, detail.Payments, 1)
	assert.Equal(t, "completed", detail.Payments[0].Status)

	quantities := map[string]int64{}
	for _, line := range detail.Products {
		quantities[line.Name] = line.Quantity
	}
	assert.Equal(t, map[string]int64{
		"Deluxe Package": 1,
		"Premium Widget": 1,
		"Basic Gadget":   2,
	}, quantities)
}

func TestGetByReferenceWithoutPayments(t *testing.T) {
	_, svc := setup(t)

	detail, err := svc.GetByReference(context.Background(), "ORD-1001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, detail.Status)
	assert.Empty(t, detail.Payments)
	assert.NotNil(t, detail.Payments)
}

func TestGetByReferenceNotFound(t *testing.T) {
	_, svc := setup(t)

	_, err := svc.GetByReference(context.Background(), "ORD-9999")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetByReference(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestCreateOrder(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()

	existing, err := svc.GetByReference(ctx, "ORD-1001")
	require.NoError(t, err)

	created, err := svc.Create(ctx, domain.CreateOrderRequest{
		MerchantID:        existing.MerchantID.String(),
		CustomerID:        existing.CustomerID.String(),
		ExternalReference: "ORD-2001",
		Amount:            9900,
		Items: []domain.CreateLineItem{
			{ProductID: existing.Products[0].ProductID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, created.Status)
	testutil.AssertCount(t, db, "orders", 6)
	testutil.AssertCount(t, db, "order_product", 10)

	_, err = svc.Create(ctx, domain.CreateOrderRequest{
		MerchantID:        existing.MerchantID.String(),
		CustomerID:        existing.CustomerID.String(),
		ExternalReference: "ORD-2001",
		Amount:            9900,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateRef)
	testutil.AssertCount(t, db, "orders", 6)
}

func TestCreateOrderValidation(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateOrderRequest{MerchantID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidMerchant)

	_, err = svc.Create(ctx, domain.CreateOrderRequest{MerchantID: "1", CustomerID: "1", ExternalReference: "ORD-1", Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.Create(ctx, domain.CreateOrderRequest{MerchantID: "1", CustomerID: "1", ExternalReference: "ORD-1", Amount: 1, Status: "shipped"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
