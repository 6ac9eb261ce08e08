package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"food-delivery/models"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a write or lookup matched no row.
var ErrNotFound = errors.New("not found")

type MenuService struct {
	db *sqlx.DB
}

func NewMenuService(db *sqlx.DB) *MenuService {
	return &MenuService{db: db}
}

// List returns every menu item in id order.
func (s *MenuService) List(ctx context.Context) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	if err := s.db.SelectContext(ctx, &items, `SELECT id, name, price, image FROM menu ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	return items, nil
}

func (s *MenuService) Get(ctx context.Context, id int64) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.db.GetContext(ctx, &item, `SELECT id, name, price, image FROM menu WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get menu item %d: %w", id, err)
	}
	return &item, nil
}

// Upsert inserts a new item when input.ID is nil, otherwise updates name and price of
// the existing row. The image column is only written when input.Image is set.
// It returns the id of the written row.
func (s *MenuService) Upsert(ctx context.Context, input models.UpsertMenuItemInput) (int64, error) {
	if input.ID == nil {
		var id int64
		err := s.db.QueryRowxContext(ctx, `
			INSERT INTO menu (name, price, image) VALUES ($1, $2, $3)
			RETURNING id`,
			input.Name, input.Price, input.Image,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert menu item: %w", err)
		}
		return id, nil
	}

	id := *input.ID
	var (
		res sql.Result
		err error
	)
	if input.Image != nil {
		res, err = s.db.ExecContext(ctx, `UPDATE menu SET name = $1, price = $2, image = $3 WHERE id = $4`,
			input.Name, input.Price, *input.Image, id)
	} else {
		res, err = s.db.ExecContext(ctx, `UPDATE menu SET name = $1, price = $2 WHERE id = $3`,
			input.Name, input.Price, id)
	}
	if err != nil {
		return 0, fmt.Errorf("update menu item %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return id, ErrNotFound
	}
	return id, nil
}

// Delete removes the item. Orders keep their own item snapshots and are not touched.
func (s *MenuService) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM menu WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete menu item %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
