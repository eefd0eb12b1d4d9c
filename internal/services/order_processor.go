package services

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/catalog"
	"backoffice/internal/core"
	"backoffice/internal/log"
	"backoffice/internal/sheets"
)

// Notification kinds produced when an order is processed.
const (
	NotificationCustomerEmail  = "CUSTOMER_EMAIL"
	NotificationSalesTeamAlert = "SALES_TEAM_ALERT"

	defaultCustomerName = "Cliente"
	salesTeamRecipient  = "sales_team"
)

// OrderProcessorConfig holds configuration for the order processor
type OrderProcessorConfig struct {
	// TrendWindow is how far back the sales trend looks (default: 30 days)
	TrendWindow time.Duration

	// BatchSize caps how many pending orders one sweep processes (default: 10)
	BatchSize int
}

// DefaultOrderProcessorConfig returns sensible defaults
func DefaultOrderProcessorConfig() OrderProcessorConfig {
	return OrderProcessorConfig{
		TrendWindow: 30 * 24 * time.Hour,
		BatchSize:   10,
	}
}

type CurrentOrderMetrics struct {
	TotalItems       int       `json:"total_items"`
	AverageItemPrice float64   `json:"average_item_price"`
	OrderDate        time.Time `json:"order_date"`
}

type SalesTrend struct {
	TotalOrders   int            `json:"total_orders"`
	TotalRevenue  float64        `json:"total_revenue"`
	AvgOrderValue float64        `json:"avg_order_value"`
	ProductsSold  map[string]int `json:"products_sold"`
}

type Notification struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// OrderInsights is the outcome of processing one order.
type OrderInsights struct {
	Order         core.Order          `json:"order_details"`
	Current       CurrentOrderMetrics `json:"current_order"`
	Trends        SalesTrend          `json:"trends"`
	Notifications []Notification      `json:"notifications"`
	SheetsRef     string              `json:"sheets_ref,omitempty"`
}

// OrderProcessor computes order insights, exports the order and marks it
// processed. It backs both the queue worker and the synchronous endpoint.
type OrderProcessor struct {
	repo     catalog.Repository
	exporter sheets.OrderExporter
	config   OrderProcessorConfig
	logger   *log.Logger
	now      func() time.Time
}

// NewOrderProcessor creates a new order processor. exporter may be nil.
func NewOrderProcessor(repo catalog.Repository, exporter sheets.OrderExporter, logger *log.Logger, config OrderProcessorConfig) *OrderProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &OrderProcessor{
		repo:     repo,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentOrder),
		now:      time.Now,
	}
}

// Process handles one order. Missing orders yield catalog.ErrNotFound; an
// export failure is returned so the caller can retry.
func (p *OrderProcessor) Process(ctx context.Context, orderID string) (OrderInsights, error) {
	order, err := p.repo.GetOrder(ctx, core.NormalizeID(orderID))
	if err != nil {
		return OrderInsights{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	orders, err := p.repo.ListOrders(ctx)
	if err != nil {
		return OrderInsights{}, fmt.Errorf("list orders: %w", err)
	}

	now := p.now()
	insights := OrderInsights{
		Order:   order,
		Current: currentOrderMetrics(order),
		Trends:  salesTrend(orders, now.Add(-p.config.TrendWindow)),
	}
	insights.Notifications = notifications(order, insights.Trends)

	ref, err := p.export(ctx, order, now)
	if err != nil {
		return OrderInsights{}, err
	}
	insights.SheetsRef = ref

	if err := p.repo.MarkOrderProcessed(ctx, order.ID, now); err != nil {
		return OrderInsights{}, fmt.Errorf("mark order processed: %w", err)
	}
	at := now.UTC()
	insights.Order.ProcessedAt = &at

	log.NewStructuredLogger(p.logger).LogOrderProcessed(ctx, order.ID, order.Total, len(order.ProductIDs), ref)
	return insights, nil
}

// ProcessPending processes orders never marked processed, oldest first, up to
// the configured batch size. It returns how many were processed.
func (p *OrderProcessor) ProcessPending(ctx context.Context) (int, error) {
	orders, err := p.repo.ListOrders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list orders: %w", err)
	}

	done := 0
	for _, o := range orders {
		if o.ProcessedAt != nil {
			continue
		}
		if p.config.BatchSize > 0 && done >= p.config.BatchSize {
			break
		}
		select {
		case <-ctx.Done():
			return done, ctx.Err()
		default:
		}
		if _, err := p.Process(ctx, o.ID); err != nil {
			p.logger.WarnContext(ctx, "Pending order processing failed",
				log.FieldOrderID, o.ID, log.FieldError, err)
			continue
		}
		done++
	}
	return done, nil
}

func (p *OrderProcessor) export(ctx context.Context, order core.Order, now time.Time) (string, error) {
	if p.exporter == nil {
		return "", nil
	}
	if index, ok := p.exporter.(sheets.OrderIndex); ok {
		exported, err := index.ExportedOrderIDs(ctx)
		if err != nil {
			return "", fmt.Errorf("read exported orders: %w", err)
		}
		if exported[order.ID] {
			p.logger.InfoContext(ctx, "Order already exported, skipping", log.FieldOrderID, order.ID)
			return "", nil
		}
	}

	products, err := p.repo.ListProducts(ctx)
	if err != nil {
		return "", fmt.Errorf("list products: %w", err)
	}
	ref, err := p.exporter.AppendOrder(ctx, sheets.OrderRow{
		OrderID:     order.ID,
		Date:        order.Date,
		Products:    productNames(order.ProductIDs, products),
		Total:       order.Total,
		ProcessedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("append to sheets: %w", err)
	}
	return ref, nil
}

func currentOrderMetrics(o core.Order) CurrentOrderMetrics {
	m := CurrentOrderMetrics{TotalItems: len(o.ProductIDs), OrderDate: o.Date}
	if m.TotalItems > 0 {
		m.AverageItemPrice = o.Total / float64(m.TotalItems)
	}
	return m
}

// salesTrend summarizes every order dated at or after since.
func salesTrend(orders []core.Order, since time.Time) SalesTrend {
	t := SalesTrend{ProductsSold: map[string]int{}}
	for _, o := range orders {
		if o.Date.Before(since) {
			continue
		}
		t.TotalOrders++
		t.TotalRevenue += o.Total
		for _, id := range o.ProductIDs {
			t.ProductsSold[core.NormalizeID(id)]++
		}
	}
	if t.TotalOrders > 0 {
		t.AvgOrderValue = t.TotalRevenue / float64(t.TotalOrders)
	}
	return t
}

// notifications always greets the customer and alerts the sales team when
// the order is above the trend average.
func notifications(o core.Order, trend SalesTrend) []Notification {
	out := []Notification{{
		Type:      NotificationCustomerEmail,
		Recipient: defaultCustomerName,
		Subject:   fmt.Sprintf("Pedido #%s processado", o.ID),
		Message: fmt.Sprintf("Olá %s,\n\nSeu pedido foi processado com sucesso!\nTotal: %s\nStatus: processado",
			defaultCustomerName, core.FormatCurrency(o.Total)),
	}}
	if o.Total > trend.AvgOrderValue {
		out = append(out, Notification{
			Type:      NotificationSalesTeamAlert,
			Recipient: salesTeamRecipient,
			Subject:   "Pedido de Alto Valor Processado",
			Message: fmt.Sprintf("Pedido #%s processado com valor acima da média:\nValor: %s\nCliente: %s",
				o.ID, core.FormatCurrency(o.Total), defaultCustomerName),
		})
	}
	return out
}

func productNames(ids []string, products []core.Product) []string {
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[core.NormalizeID(p.ID)] = p.Name
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[core.NormalizeID(id)]; ok {
			out = append(out, name)
			continue
		}
		out = append(out, id)
	}
	return out
}
