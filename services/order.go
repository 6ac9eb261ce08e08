package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-delivery/metrics"
	"food-delivery/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Dispatcher hands a freshly stored order to the notification side effect.
// Implementations must not block the caller on delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, order models.Order)
}

type OrderService struct {
	db       *sqlx.DB
	dispatch Dispatcher
	log      logrus.FieldLogger
}

func NewOrderService(db *sqlx.DB, dispatch Dispatcher, log logrus.FieldLogger) *OrderService {
	return &OrderService{db: db, dispatch: dispatch, log: log}
}

type orderRow struct {
	ID        int64           `db:"id"`
	Items     []byte          `db:"items"`
	Total     decimal.Decimal `db:"total"`
	Address   string          `db:"address"`
	Name      string          `db:"name"`
	Phone     string          `db:"phone"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r orderRow) toModel() (models.Order, error) {
	items, err := decodeItems(r.Items)
	if err != nil {
		return models.Order{}, fmt.Errorf("order %d: %w", r.ID, err)
	}
	return models.Order{
		ID:        r.ID,
		Items:     items,
		Total:     r.Total,
		Address:   r.Address,
		Name:      r.Name,
		Phone:     r.Phone,
		CreatedAt: r.CreatedAt,
	}, nil
}

// storedItem is the shape of one entry in the items column. Prices are written as
// JSON numbers, the same shape the cart submits.
type storedItem struct {
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
	Qty   int         `json:"qty"`
}

func encodeItems(items []models.OrderItem) (string, error) {
	stored := make([]storedItem, len(items))
	for i, it := range items {
		stored[i] = storedItem{Name: it.Name, Price: json.Number(it.Price.String()), Qty: it.Qty}
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order items: %w", err)
	}
	return string(b), nil
}

func decodeItems(raw []byte) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	return items, nil
}

// PlaceOrder stores the order and, once the row is written, dispatches the new-order
// notification. The total is stored as given.
func (s *OrderService) PlaceOrder(ctx context.Context, input models.PlaceOrderInput) (int64, error) {
	itemsJSON, err := encodeItems(input.Items)
	if err != nil {
		return 0, err
	}

	var (
		id        int64
		createdAt time.Time
	)
	err = s.db.QueryRowxContext(ctx, `
		INSERT INTO orders (items, total, address, name, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		itemsJSON, input.Total, input.Address, input.Name, input.Phone,
	).Scan(&id, &createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	metrics.RecordOrderPlaced()
	s.log.WithFields(logrus.Fields{"order_id": id, "items": len(input.Items), "total": input.Total.String()}).Info("order placed")

	items := make([]models.OrderItem, len(input.Items))
	copy(items, input.Items)
	s.dispatch.Dispatch(ctx, models.Order{
		ID:        id,
		Items:     items,
		Total:     input.Total,
		Address:   input.Address,
		Name:      input.Name,
		Phone:     input.Phone,
		CreatedAt: createdAt,
	})
	return id, nil
}

// ListOrders returns every order, newest first.
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, items, total, address, name, phone, created_at
		FROM orders
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		o, err := r.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var r orderRow
	err := s.db.GetContext(ctx, &r, `
		SELECT id, items, total, address, name, phone, created_at
		FROM orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	o, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &o, nil
}
