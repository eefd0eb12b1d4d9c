// Package seed fills a backend with sample categories, products and orders.
package seed

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/log"
)

var (
	categoryNames = []string{
		"Eletrônicos", "Alimentos", "Bebidas", "Roupas", "Acessórios",
		"Casa", "Jardim", "Livros", "Esportes", "Brinquedos",
		"Saúde", "Beleza", "Pet", "Automotivo", "Ferramentas",
	}

	productNames = []string{
		"Smartphone", "Notebook", "Tablet", "Smart TV", "Fone de Ouvido",
		"Mouse", "Teclado", "Monitor", "Câmera", "Impressora",
		"Arroz", "Feijão", "Macarrão", "Óleo", "Açúcar",
		"Café", "Leite", "Pão", "Biscoito", "Chocolate",
		"Camiseta", "Calça", "Vestido", "Sapato", "Tênis",
		"Mochila", "Bolsa", "Relógio", "Óculos", "Perfume",
		"Shampoo", "Sabonete", "Creme", "Escova", "Pasta de Dente",
	}

	adjectives = []string{
		"Premium", "Básico", "Profissional", "Luxo", "Ultra",
		"Plus", "Master", "Light", "Pro", "Max",
		"Essential", "Classic", "Modern", "Elite", "Advanced",
	}

	brands = []string{
		"Aurora", "Tupi", "Ipê", "Brisa", "Jatobá", "Cerrado", "Atlântica", "Pampa",
	}

	imageSizes = []int{200, 300, 400, 500}
)

type Options struct {
	Categories int
	Products   int
	Orders     int
	// Days is how far back order dates are spread.
	Days int
	// Clear deletes every existing order, product and category first.
	Clear bool
	Seed  uint64
	Now   func() time.Time
}

func DefaultOptions() Options {
	return Options{Categories: 10, Products: 50, Orders: 100, Days: 180, Seed: 1, Now: time.Now}
}

type Summary struct {
	Categories int
	Products   int
	Orders     int
}

// Run writes sample data through b, so it works against any backend.
func Run(ctx context.Context, b catalog.Backend, opts Options, logger *log.Logger) (Summary, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	var sum Summary

	if opts.Clear {
		if err := clearAll(ctx, b); err != nil {
			return sum, err
		}
		logger.InfoContext(ctx, "Existing data cleared", log.FieldOperation, log.OpSeed)
	}

	categories := make([]core.Category, 0, opts.Categories)
	for _, i := range rng.Perm(len(categoryNames))[:min(opts.Categories, len(categoryNames))] {
		c, err := b.CreateCategory(ctx, catalog.CategoryInput{Name: categoryNames[i]})
		if err != nil {
			return sum, fmt.Errorf("create category: %w", err)
		}
		categories = append(categories, c)
	}
	sum.Categories = len(categories)

	products := make([]core.Product, 0, opts.Products)
	for range opts.Products {
		p, err := b.CreateProduct(ctx, randomProduct(rng, categories))
		if err != nil {
			return sum, fmt.Errorf("create product: %w", err)
		}
		products = append(products, p)
	}
	sum.Products = len(products)

	if len(products) > 0 {
		now := opts.Now()
		span := time.Duration(max(opts.Days, 1)) * 24 * time.Hour
		for range opts.Orders {
			date := now.Add(-time.Duration(rng.Int64N(int64(span))))
			if _, err := b.CreateOrder(ctx, catalog.OrderInput{
				Date:       date.Truncate(time.Second),
				ProductIDs: sampleIDs(rng, products, 1+rng.IntN(5)),
			}); err != nil {
				return sum, fmt.Errorf("create order: %w", err)
			}
			sum.Orders++
		}
	}

	logger.InfoContext(ctx, "Seed completed",
		log.FieldOperation, log.OpSeed,
		"categories", sum.Categories,
		"products", sum.Products,
		"orders", sum.Orders)
	return sum, nil
}

func randomProduct(rng *rand.Rand, categories []core.Category) catalog.ProductInput {
	name := fmt.Sprintf("%s %s", pick(rng, brands), pick(rng, productNames))
	if rng.Float64() > 0.5 {
		name += " " + pick(rng, adjectives)
	}

	var categoryIDs []string
	if len(categories) > 0 {
		n := 1 + rng.IntN(min(3, len(categories)))
		for _, i := range rng.Perm(len(categories))[:n] {
			categoryIDs = append(categoryIDs, categories[i].ID)
		}
	}

	price := 10 + rng.Float64()*990
	return catalog.ProductInput{
		Name:        name,
		Description: fmt.Sprintf("%s da linha %s, ideal para o dia a dia.", name, pick(rng, adjectives)),
		Price:       math.Round(price*100) / 100,
		CategoryIDs: categoryIDs,
		ImageURL: fmt.Sprintf("https://picsum.photos/id/%d/%d/%d",
			1+rng.IntN(1000), pick(rng, imageSizes), pick(rng, imageSizes)),
	}
}

func sampleIDs(rng *rand.Rand, products []core.Product, n int) []string {
	n = min(n, len(products))
	ids := make([]string, 0, n)
	for _, i := range rng.Perm(len(products))[:n] {
		ids = append(ids, products[i].ID)
	}
	return ids
}

func pick[T any](rng *rand.Rand, from []T) T {
	return from[rng.IntN(len(from))]
}

func clearAll(ctx context.Context, b catalog.Backend) error {
	orders, err := b.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}
	for _, o := range orders {
		if err := b.DeleteOrder(ctx, o.ID); err != nil {
			return fmt.Errorf("delete order %s: %w", o.ID, err)
		}
	}
	products, err := b.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	for _, p := range products {
		if err := b.DeleteProduct(ctx, p.ID); err != nil {
			return fmt.Errorf("delete product %s: %w", p.ID, err)
		}
	}
	categories, err := b.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, c := range categories {
		if err := b.DeleteCategory(ctx, c.ID); err != nil {
			return fmt.Errorf("delete category %s: %w", c.ID, err)
		}
	}
	return nil
}
