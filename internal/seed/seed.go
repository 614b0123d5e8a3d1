package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	customerdomain "github.com/smallbiznis/ordersync/internal/customer/domain"
	customerrepo "github.com/smallbiznis/ordersync/internal/customer/repository"
	customerservice "github.com/smallbiznis/ordersync/internal/customer/service"
	merchantdomain "github.com/smallbiznis/ordersync/internal/merchant/domain"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	paymentdomain "github.com/smallbiznis/ordersync/internal/payment/domain"
	productdomain "github.com/smallbiznis/ordersync/internal/product/domain"
	productrepo "github.com/smallbiznis/ordersync/internal/product/repository"
	productservice "github.com/smallbiznis/ordersync/internal/product/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	demoMerchantName = "Test Merchant"
	// MarkerReference is the order whose presence means the demo data exists.
	MarkerReference = "ORD-1001"
)

type demoCustomer struct {
	name  string
	email string
}

type demoProduct struct {
	name  string
	price int64
	stock int64
}

type demoLine struct {
	product  int
	quantity int64
}

type demoOrder struct {
	reference  string
	customer   int
	amount     int64
	status     orderdomain.Status
	lines      []demoLine
	hasPayment bool
}

var demoCustomers = []demoCustomer{
	{name: "John Doe", email: "john@example.com"},
	{name: "Jane Smith", email: "jane@example.com"},
	{name: "Bob Wilson", email: "bob@example.com"},
}

var demoProducts = []demoProduct{
	{name: "Premium Widget", price: 9900, stock: 100},
	{name: "Basic Gadget", price: 4900, stock: 250},
	{name: "Deluxe Package", price: 29900, stock: 50},
	{name: "Standard Service", price: 7500, stock: 500},
	{name: "Enterprise Solution", price: 99900, stock: 20},
}

var demoOrders = []demoOrder{
	{
		reference: "ORD-1001", customer: 0, amount: 25000, status: orderdomain.StatusPending,
		lines: []demoLine{{product: 0, quantity: 2}, {product: 1, quantity: 1}},
	},
	{
		reference: "ORD-1002", customer: 1, amount: 15000, status: orderdomain.StatusProcessing,
		lines: []demoLine{{product: 3, quantity: 2}},
	},
	{
		reference: "ORD-1003", customer: 0, amount: 50000, status: orderdomain.StatusPaid,
		lines:      []demoLine{{product: 2, quantity: 1}, {product: 0, quantity: 1}, {product: 1, quantity: 2}},
		hasPayment: true,
	},
	{
		reference: "ORD-1004", customer: 2, amount: 8000, status: orderdomain.StatusPending,
		lines: []demoLine{{product: 1, quantity: 1}},
	},
	{
		reference: "ORD-1005", customer: 1, amount: 120000, status: orderdomain.StatusProcessing,
		lines: []demoLine{{product: 4, quantity: 1}, {product: 2, quantity: 1}},
	},
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Customers customerdomain.Service
	Products  productdomain.Service
}

type Seeder struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	customers customerdomain.Service
	products  productdomain.Service
}

func New(p Params) *Seeder {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{
		db:        p.DB,
		log:       log.Named("seed"),
		genID:     p.GenID,
		customers: p.Customers,
		products:  p.Products,
	}
}

// EnsureDemoData seeds the demo data using the repository-backed customer
// and product services.
func EnsureDemoData(ctx context.Context, db *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	return New(Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Customers: customerservice.New(customerservice.Params{DB: db, Log: log, GenID: node, Repo: customerrepo.Provide()}),
		Products:  productservice.New(productservice.Params{DB: db, Log: log, GenID: node, Repo: productrepo.Provide()}),
	}).EnsureDemoData(ctx)
}

// EnsureDemoData seeds one merchant with customers, products and the
// ORD-1001..ORD-1005 orders. It is a no-op once the marker order exists.
// Customers and products go through their services; orders, line items and
// payments are written in one transaction, so the marker only appears once
// everything is in place.
func (s *Seeder) EnsureDemoData(ctx context.Context) error {
	if s.db == nil {
		return errors.New("seed database handle is required")
	}
	if s.genID == nil {
		return errors.New("seed id generator is required")
	}
	if s.customers == nil || s.products == nil {
		return errors.New("seed customer and product services are required")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&orderdomain.Order{}).
		Where("external_reference = ?", MarkerReference).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		s.log.Debug("demo data already present", zap.String("marker", MarkerReference))
		return nil
	}

	now := time.Now().UTC()
	merchant := merchantdomain.Merchant{
		ID:            s.genID.Generate(),
		Name:          demoMerchantName,
		APIKey:        "mk_test_" + strings.ToLower(ulid.Make().String()),
		WebhookSecret: "whsec_" + randomToken(32),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(&merchant).Error; err != nil {
		return err
	}

	customers := make([]customerdomain.Customer, 0, len(demoCustomers))
	for _, c := range demoCustomers {
		customer, err := s.customers.Create(ctx, customerdomain.CreateCustomerRequest{
			MerchantID: merchant.ID.String(),
			Name:       c.name,
			Email:      c.email,
		})
		if err != nil {
			return fmt.Errorf("seed customer %s: %w", c.email, err)
		}
		customers = append(customers, customer)
	}

	products := make([]productdomain.Product, 0, len(demoProducts))
	for _, p := range demoProducts {
		product, err := s.products.Create(ctx, productdomain.CreateRequest{
			MerchantID: merchant.ID.String(),
			Name:       p.name,
			Price:      p.price,
			Stock:      p.stock,
		})
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.name, err)
		}
		products = append(products, product)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range demoOrders {
			order := orderdomain.Order{
				ID:                s.genID.Generate(),
				MerchantID:        merchant.ID,
				CustomerID:        customers[o.customer].ID,
				ExternalReference: o.reference,
				Amount:            o.amount,
				Status:            o.status,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}

			lines := make([]orderdomain.LineItem, 0, len(o.lines))
			for _, l := range o.lines {
				lines = append(lines, orderdomain.LineItem{
					OrderID:   order.ID,
					ProductID: products[l.product].ID,
					Quantity:  l.quantity,
					CreatedAt: now,
					UpdatedAt: now,
				})
			}
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}

			if !o.hasPayment {
				continue
			}
			payment := paymentdomain.Payment{
				ID:         s.genID.Generate(),
				OrderID:    order.ID,
				Amount:     o.amount,
				ProviderID: "txn_" + randomToken(16),
				Status:     paymentdomain.StatusCompleted,
				Metadata:   datatypes.JSONMap{},
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("demo data seeded",
		zap.String("merchant_id", merchant.ID.String()),
		zap.Int("customers", len(customers)),
		zap.Int("products", len(products)),
		zap.Int("orders", len(demoOrders)),
	)
	return nil
}

// randomToken returns n lowercase characters taken from the random part of ULIDs.
func randomToken(n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(strings.ToLower(ulid.Make().String()[10:]))
	}
	return b.String()[:n]
}
