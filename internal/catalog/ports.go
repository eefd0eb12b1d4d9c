// Package catalog declares the ports between the console, its HTTP API and the
// stores holding categories, products and orders.
package catalog

import (
	"context"
	"errors"
	"io"
	"time"

	"backoffice/internal/core"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownCategory = errors.New("unknown category")
	ErrImageRequired   = errors.New("image required")
	ErrBlobDisabled    = errors.New("image storage not configured")
)

// Ports for outbound adapters.
type (
	CategoryRepository interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id string) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// DeleteCategory removes the category and pulls its id from every
		// product that referenced it.
		DeleteCategory(ctx context.Context, id string) error
	}

	ProductRepository interface {
		ListProducts(ctx context.Context) ([]core.Product, error)
		GetProduct(ctx context.Context, id string) (core.Product, error)
		CreateProduct(ctx context.Context, p core.Product) (core.Product, error)
		UpdateProduct(ctx context.Context, p core.Product) (core.Product, error)
		DeleteProduct(ctx context.Context, id string) error
	}

	OrderRepository interface {
		ListOrders(ctx context.Context) ([]core.Order, error)
		GetOrder(ctx context.Context, id string) (core.Order, error)
		CreateOrder(ctx context.Context, o core.Order) (core.Order, error)
		UpdateOrder(ctx context.Context, o core.Order) (core.Order, error)
		DeleteOrder(ctx context.Context, id string) error
		MarkOrderProcessed(ctx context.Context, id string, at time.Time) error
	}

	// Repository is a complete store. Implementations assign ids on create
	// and return ErrNotFound for missing ids.
	Repository interface {
		CategoryRepository
		ProductRepository
		OrderRepository
	}

	// BlobStore keeps product images and returns their public URL.
	BlobStore interface {
		Upload(ctx context.Context, key, contentType string, body io.Reader) (url string, err error)
	}

	// OrderPublisher announces new orders for asynchronous processing.
	OrderPublisher interface {
		PublishOrder(ctx context.Context, o core.Order) error
	}
)

// Inputs accepted by Backend.
type (
	CategoryInput struct {
		Name string `json:"name"`
	}

	ProductInput struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Price       float64  `json:"price"`
		CategoryIDs []string `json:"category_ids"`
		ImageURL    string   `json:"image_url,omitempty"`
	}

	// Image is an uploaded product picture.
	Image struct {
		Filename    string
		ContentType string
		Data        []byte
	}

	// OrderInput carries the products of an order. A zero Date means now.
	OrderInput struct {
		Date       time.Time `json:"date"`
		ProductIDs []string  `json:"product_ids"`
	}
)

// Backend is everything the console screens need. It is served in-process by
// the catalog service or remotely by the REST client.
type Backend interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (core.Category, error)
	UpdateCategory(ctx context.Context, id string, in CategoryInput) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListProducts(ctx context.Context) ([]core.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (core.Product, error)
	CreateProductWithImage(ctx context.Context, in ProductInput, img Image) (core.Product, error)
	UpdateProduct(ctx context.Context, id string, in ProductInput) (core.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListOrders(ctx context.Context) ([]core.Order, error)
	CreateOrder(ctx context.Context, in OrderInput) (core.Order, error)
	UpdateOrder(ctx context.Context, id string, in OrderInput) (core.Order, error)
	DeleteOrder(ctx context.Context, id string) error

	SalesReport(ctx context.Context, q core.SalesQuery) (core.SalesReport, error)
}
