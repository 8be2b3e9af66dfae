package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
	"github.com/charvilabs/charvi/pkg/cache"
	"github.com/charvilabs/charvi/pkg/logger"
	"github.com/charvilabs/charvi/pkg/storage"
)

const productCacheTTL = 10 * time.Minute

// ProductPage is one page of catalog results.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int64            `json:"page"`
	PerPage  int64            `json:"perPage"`
}

// CatalogStore is the persistence surface for products.
type CatalogStore interface {
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByAltID(ctx context.Context, ref string) (*models.Product, error)
	List(ctx context.Context, category string, page, limit int64) ([]models.Product, int64, error)
}

// ProductService wraps the catalog with a Redis read-through cache. Writes
// bump a list version counter, so stale pages age out without key scans.
type ProductService struct {
	products CatalogStore
	disk     storage.Disk // nil keeps images on the default disk helpers
}

func NewProductService(products CatalogStore) *ProductService {
	return &ProductService{products: products}
}

// WithDisk pins image uploads to a specific storage disk.
func (s *ProductService) WithDisk(d storage.Disk) *ProductService {
	s.disk = d
	return s
}

func (s *ProductService) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if p.Slug == "" {
		p.Slug = slugify(p.Title)
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, apperr.Upstream("could not create product", err)
	}
	s.bumpListVersion()
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id primitive.ObjectID, p *models.Product) (*models.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Upstream("could not update product", err)
	}
	s.invalidate(id)
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("product not found")
		}
		return apperr.Upstream("could not delete product", err)
	}
	s.invalidate(id)
	return nil
}

// Get serves a product through the cache.
func (s *ProductService) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	key := productKey(id)

	var cached models.Product
	if cache.Get(key, &cached) {
		return &cached, nil
	}

	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Upstream("could not load product", err)
	}

	if err := cache.Set(key, p, productCacheTTL); err != nil {
		logger.Warn("products: cache set failed", "key", key, "error", err)
	}
	return p, nil
}

// GetByRef resolves a product by id, SKU or slug. Hex-looking refs go through
// the cached id path.
func (s *ProductService) GetByRef(ctx context.Context, ref string) (*models.Product, error) {
	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		return s.Get(ctx, id)
	}
	p, err := s.products.FindByAltID(ctx, ref)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Upstream("could not load product", err)
	}
	return p, nil
}

// List serves one catalog page through the cache.
func (s *ProductService) List(ctx context.Context, category string, page, perPage int64) (ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	key := listKey(s.listVersion(), category, page, perPage)

	var cached ProductPage
	if cache.Get(key, &cached) {
		return cached, nil
	}

	items, total, err := s.products.List(ctx, category, page, perPage)
	if err != nil {
		return ProductPage{}, apperr.Upstream("could not list products", err)
	}

	out := ProductPage{Products: items, Total: total, Page: page, PerPage: perPage}
	if err := cache.Set(key, out, productCacheTTL); err != nil {
		logger.Warn("products: cache set failed", "key", key, "error", err)
	}
	return out, nil
}

// UploadImage stores an image for the product and records its public URL.
func (s *ProductService) UploadImage(ctx context.Context, id primitive.ObjectID, filename string, data []byte) (*models.Product, error) {
	if len(data) == 0 {
		return nil, apperr.Validation("image payload is empty")
	}

	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Upstream("could not load product", err)
	}

	loc := fmt.Sprintf("products/%s/%s", id.Hex(), sanitizeFilename(filename))
	if s.disk != nil {
		err = s.disk.Put(loc, data)
	} else {
		err = storage.Put(loc, data)
	}
	if err != nil {
		return nil, apperr.Upstream("could not store image", err)
	}

	if s.disk != nil {
		p.Image = s.disk.URL(loc)
	} else {
		p.Image = storage.URL(loc)
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, apperr.Upstream("could not save image url", err)
	}
	s.invalidate(id)
	return p, nil
}

// ─── Cache keys ───────────────────────────────────────────────────────────────

func productKey(id primitive.ObjectID) string {
	return "products:" + id.Hex()
}

func listKey(version int64, category string, page, perPage int64) string {
	if category == "" {
		category = "all"
	}
	return fmt.Sprintf("products:list:v%d:%s:%d:%d", version, category, page, perPage)
}

// listVersion reads the catalog list generation; 0 when the cache is cold.
func (s *ProductService) listVersion() int64 {
	var v int64
	cache.Get("products:list:version", &v)
	return v
}

// bumpListVersion advances the generation so every cached list page misses.
func (s *ProductService) bumpListVersion() {
	v := s.listVersion() + 1
	if err := cache.Set("products:list:version", v, 0); err != nil {
		logger.Warn("products: list version bump failed", "error", err)
	}
}

func (s *ProductService) invalidate(id primitive.ObjectID) {
	if err := cache.Del(productKey(id)); err != nil {
		logger.Warn("products: cache invalidation failed", "id", id.Hex(), "error", err)
	}
	s.bumpListVersion()
}

// ─── Validation ───────────────────────────────────────────────────────────────

func validateProduct(p *models.Product) error {
	switch {
	case p == nil:
		return apperr.Validation("product payload is required")
	case strings.TrimSpace(p.Title) == "":
		return apperr.Validation("title is required")
	case p.Price < 0:
		return apperr.Validation("price cannot be negative")
	case p.Stock < 0:
		return apperr.Validation("stock cannot be negative")
	}
	return nil
}

func slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	return name
}
