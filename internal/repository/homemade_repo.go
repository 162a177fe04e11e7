package repository

import (
	"context"
	"time"

	"bar-bartender/internal/db"
	"bar-bartender/internal/domain"
)

// HomemadeRepository persiste los ingredientes secundarios y sus items.
type HomemadeRepository interface {
	// Create inserta cabecera e items; debe correr dentro de Store.InTx.
	Create(ctx context.Context, h *domain.HomemadeIngredient) error
	// Get carga items y el producto de cada item.
	Get(ctx context.Context, userID, id int64) (domain.HomemadeIngredient, error)
	List(ctx context.Context, userID int64) ([]domain.HomemadeIngredient, error)
	Delete(ctx context.Context, userID, id int64) error
	Count(ctx context.Context, userID int64) (int, error)
	CodeExists(ctx context.Context, userID int64, code string) (bool, error)
}

type SQLHomemadeRepository struct {
	q db.DBTX
	d db.Dialect
}

const homemadeColumns = `
	id, user_id, name, COALESCE(unique_code, ''),
	COALESCE(total_volume_ml, 0), COALESCE(unit, 'ml'), COALESCE(method, ''), created_at`

func scanHomemade(s scanner) (domain.HomemadeIngredient, error) {
	var h domain.HomemadeIngredient
	err := s.Scan(
		&h.ID, &h.UserID, &h.Name, &h.UniqueCode,
		&h.TotalVolumeML, &h.Unit, &h.Method, &h.CreatedAt,
	)
	return h, err
}

func (r *SQLHomemadeRepository) Create(ctx context.Context, h *domain.HomemadeIngredient) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	if h.Unit == "" {
		h.Unit = "ml"
	}
	id, err := insertReturningID(ctx, r.q, r.d, `
		INSERT INTO homemade_ingredient (user_id, name, unique_code, total_volume_ml, unit, method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.UserID, h.Name, nullable(h.UniqueCode), h.TotalVolumeML, h.Unit, h.Method, h.CreatedAt,
	)
	if err != nil {
		return translate(r.d, "insert homemade ingredient", err)
	}
	h.ID = id

	for i := range h.Items {
		it := &h.Items[i]
		it.HomemadeID = id
		if it.Unit == "" {
			it.Unit = "ml"
		}
		itemID, err := insertReturningID(ctx, r.q, r.d, `
			INSERT INTO homemade_ingredient_item (homemade_id, product_id, quantity_ml, quantity, unit)
			VALUES (?, ?, ?, ?, ?)`,
			id, it.ProductID, it.QuantityML, it.QuantityML, it.Unit,
		)
		if err != nil {
			return translate(r.d, "insert homemade item", err)
		}
		it.ID = itemID
	}
	return nil
}

func (r *SQLHomemadeRepository) Get(ctx context.Context, userID, id int64) (domain.HomemadeIngredient, error) {
	query := `SELECT ` + homemadeColumns + ` FROM homemade_ingredient WHERE id = ? AND user_id = ?`
	h, err := scanHomemade(r.q.QueryRowContext(ctx, r.d.Rebind(query), id, userID))
	if err != nil {
		return domain.HomemadeIngredient{}, translate(r.d, "select homemade ingredient", err)
	}
	items, err := r.items(ctx, userID, []int64{h.ID})
	if err != nil {
		return domain.HomemadeIngredient{}, err
	}
	h.Items = items[h.ID]
	return h, nil
}

func (r *SQLHomemadeRepository) List(ctx context.Context, userID int64) ([]domain.HomemadeIngredient, error) {
	return r.list(ctx, userID, nil)
}

// list carga los caseros de la cuenta con sus items; ids != nil restringe.
func (r *SQLHomemadeRepository) list(ctx context.Context, userID int64, ids []int64) ([]domain.HomemadeIngredient, error) {
	query := `SELECT ` + homemadeColumns + ` FROM homemade_ingredient WHERE user_id = ?`
	args := []any{userID}
	if ids != nil {
		if len(ids) == 0 {
			return nil, nil
		}
		query += ` AND id IN (` + placeholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY name, id`

	rows, err := r.q.QueryContext(ctx, r.d.Rebind(query), args...)
	if err != nil {
		return nil, translate(r.d, "list homemade ingredients", err)
	}
	var (
		out   []domain.HomemadeIngredient
		found []int64
	)
	for rows.Next() {
		h, err := scanHomemade(rows)
		if err != nil {
			rows.Close()
			return nil, translate(r.d, "scan homemade ingredient", err)
		}
		out = append(out, h)
		found = append(found, h.ID)
	}
	// SQLite trabaja con una sola conexion: hay que liberar rows antes de la
	// siguiente consulta.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translate(r.d, "list homemade ingredients", err)
	}

	items, err := r.items(ctx, userID, found)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

// items carga los items de varios caseros junto con su producto.
func (r *SQLHomemadeRepository) items(ctx context.Context, userID int64, homemadeIDs []int64) (map[int64][]domain.HomemadeIngredientItem, error) {
	out := map[int64][]domain.HomemadeIngredientItem{}
	if len(homemadeIDs) == 0 {
		return out, nil
	}
	args := []any{userID}
	for _, id := range homemadeIDs {
		args = append(args, id)
	}
	query := `
		SELECT i.id, i.homemade_id, i.product_id, COALESCE(i.quantity_ml, 0), COALESCE(i.unit, 'ml'),` +
		productColumns("p.") + `
		FROM homemade_ingredient_item i
		JOIN product p ON p.id = i.product_id AND p.user_id = ?
		WHERE i.homemade_id IN (` + placeholders(len(homemadeIDs)) + `)
		ORDER BY i.id`

	rows, err := r.q.QueryContext(ctx, r.d.Rebind(query), args...)
	if err != nil {
		return nil, translate(r.d, "list homemade items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it domain.HomemadeIngredientItem
			p  domain.Product
		)
		dest := append([]any{&it.ID, &it.HomemadeID, &it.ProductID, &it.QuantityML, &it.Unit}, productDest(&p)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, translate(r.d, "scan homemade item", err)
		}
		it.Product = &p
		out[it.HomemadeID] = append(out[it.HomemadeID], it)
	}
	return out, translate(r.d, "list homemade items", rows.Err())
}

func (r *SQLHomemadeRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, r.d.Rebind(`DELETE FROM homemade_ingredient WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return translate(r.d, "delete homemade ingredient", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLHomemadeRepository) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM homemade_ingredient WHERE user_id = ?`), userID).Scan(&n)
	if err != nil {
		return 0, translate(r.d, "count homemade ingredients", err)
	}
	return n, nil
}

func (r *SQLHomemadeRepository) CodeExists(ctx context.Context, userID int64, code string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		r.d.Rebind(`SELECT COUNT(*) FROM homemade_ingredient WHERE user_id = ? AND unique_code = ?`),
		userID, code,
	).Scan(&n)
	if err != nil {
		return false, translate(r.d, "lookup homemade code", err)
	}
	return n > 0, nil
}
