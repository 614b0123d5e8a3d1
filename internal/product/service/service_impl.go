package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Product, error) {
	merchantID, err := snowflake.ParseString(strings.TrimSpace(req.MerchantID))
	if err != nil || merchantID == 0 {
		return domain.Product{}, domain.ErrInvalidMerchant
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.Price < 0 {
		return domain.Product{}, domain.ErrInvalidPrice
	}
	if req.Stock < 0 {
		return domain.Product{}, domain.ErrInvalidStock
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:         s.genID.Generate(),
		MerchantID: merchantID,
		Name:       name,
		Price:      req.Price,
		Stock:      req.Stock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, s.db, &product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || productID == 0 {
		return domain.Product{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *item, nil
}
