// Package catalog covers the knowledge-base and product catalog the agents
// read from during calls: products with pricing, and help articles.
package catalog

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/dialdesk/go-console/query"
	"github.com/dialdesk/go-console/transport"
)

const (
	resourceProducts = "products"
	resourceArticles = "articles"
)

// Product is a backend-owned record; PriceCents avoids client-side float
// arithmetic on money.
type Product struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"priceCents"`
	Currency    string    `json:"currency"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Article is a knowledge-base entry.
type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductParams carries product creation and update fields.
type ProductParams struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"priceCents"`
	Currency    string `json:"currency"`
	Active      bool   `json:"active"`
}

// ProductPatch carries a partial product update. Nil fields are left
// unchanged by the backend; build values with utils.Ptr.
type ProductPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	PriceCents  *int64  `json:"priceCents,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// ArticleParams carries article creation and update fields.
type ArticleParams struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

type productListResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

type articleListResponse struct {
	Articles []Article `json:"articles"`
	Total    int       `json:"total"`
}

// Client reads and writes catalog resources through the shared pipeline and
// cache.
type Client struct {
	pipeline *transport.Pipeline
	cache    *query.Cache
}

// New creates a catalog client over the shared pipeline and cache.
func New(pipeline *transport.Pipeline, cache *query.Cache) (*Client, error) {
	if pipeline == nil {
		return nil, errors.New("[catalog.New] pipeline is required")
	}
	if cache == nil {
		return nil, errors.New("[catalog.New] cache is required")
	}
	return &Client{pipeline: pipeline, cache: cache}, nil
}

// Products lists catalog products. search participates in the cache key:
// differing search terms are distinct reads.
func (c *Client) Products(ctx context.Context, search string, limit, offset int) ([]Product, error) {
	key := query.NewKey(resourceProducts, search, limit, offset)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Product, error) {
		params := map[string]string{
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		}
		if search != "" {
			params["search"] = search
		}
		var resp productListResponse
		if err := c.pipeline.Get(ctx, "/products", params, &resp); err != nil {
			return nil, err
		}
		return resp.Products, nil
	})
}

// Product returns one product.
func (c *Client) Product(ctx context.Context, productID string) (*Product, error) {
	key := query.NewKey(resourceProducts, productID)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) (*Product, error) {
		var product Product
		if err := c.pipeline.Get(ctx, "/products/"+productID, nil, &product); err != nil {
			return nil, err
		}
		return &product, nil
	})
}

// CreateProduct adds a product to the catalog.
func (c *Client) CreateProduct(ctx context.Context, params ProductParams) (*Product, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Product, error) {
		var product Product
		if err := c.pipeline.Post(ctx, "/products", params, &product); err != nil {
			return nil, err
		}
		return &product, nil
	}, query.MutationOptions{
		InvalidatesPrefixes: []string{resourceProducts},
	})
}

// UpdateProduct replaces a product's fields.
func (c *Client) UpdateProduct(ctx context.Context, productID string, params ProductParams) (*Product, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Product, error) {
		var product Product
		if err := c.pipeline.Put(ctx, "/products/"+productID, params, &product); err != nil {
			return nil, err
		}
		return &product, nil
	}, query.MutationOptions{
		Invalidates:         []query.Key{query.NewKey(resourceProducts, productID)},
		InvalidatesPrefixes: []string{resourceProducts},
	})
}

// PatchProduct updates only the fields set on the patch.
func (c *Client) PatchProduct(ctx context.Context, productID string, patch ProductPatch) (*Product, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Product, error) {
		var product Product
		if err := c.pipeline.Patch(ctx, "/products/"+productID, patch, &product); err != nil {
			return nil, err
		}
		return &product, nil
	}, query.MutationOptions{
		Invalidates:         []query.Key{query.NewKey(resourceProducts, productID)},
		InvalidatesPrefixes: []string{resourceProducts},
	})
}

// DeleteProduct removes a product from the catalog.
func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	_, err := query.Mutate(ctx, c.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.pipeline.Delete(ctx, "/products/"+productID, nil)
	}, query.MutationOptions{
		InvalidatesPrefixes: []string{resourceProducts},
	})
	return err
}

// Articles lists knowledge-base entries.
func (c *Client) Articles(ctx context.Context, search string, limit, offset int) ([]Article, error) {
	key := query.NewKey(resourceArticles, search, limit, offset)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Article, error) {
		params := map[string]string{
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		}
		if search != "" {
			params["search"] = search
		}
		var resp articleListResponse
		if err := c.pipeline.Get(ctx, "/articles", params, &resp); err != nil {
			return nil, err
		}
		return resp.Articles, nil
	})
}

// UpsertArticle creates or replaces a knowledge-base entry.
func (c *Client) UpsertArticle(ctx context.Context, articleID string, params ArticleParams) (*Article, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Article, error) {
		var article Article
		if err := c.pipeline.Put(ctx, "/articles/"+articleID, params, &article); err != nil {
			return nil, err
		}
		return &article, nil
	}, query.MutationOptions{
		InvalidatesPrefixes: []string{resourceArticles},
	})
}
