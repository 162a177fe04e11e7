package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bar-bartender/internal/db"
	"bar-bartender/internal/domain"
)

// ProductFilter restringe List; los campos vacios no filtran.
type ProductFilter struct {
	SubCategory string
	ItemLevel   string
}

// ProductRepository persiste la lista maestra de productos de cada cuenta.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p domain.Product) error
	Get(ctx context.Context, userID, id int64) (domain.Product, error)
	List(ctx context.Context, userID int64, f ProductFilter) ([]domain.Product, error)
	Delete(ctx context.Context, userID, id int64) error
	DeleteAll(ctx context.Context, userID int64) (int64, error)
	DeleteMany(ctx context.Context, userID int64, ids []int64) (int64, error)
	Count(ctx context.Context, userID int64) (int, error)
	// LatestBarbuddyCode devuelve el codigo del producto creado mas
	// recientemente, o "" si no hay.
	LatestBarbuddyCode(ctx context.Context, userID int64) (string, error)
	ExistingCodes(ctx context.Context, userID int64) (itemNumbers, barbuddyCodes map[string]bool, err error)
	ItemNumberExists(ctx context.Context, userID int64, code string, excludeID int64) (bool, error)
	SubCategories(ctx context.Context, userID int64) ([]string, error)
}

type SQLProductRepository struct {
	q db.DBTX
	d db.Dialect
}

// productColumns lista las columnas de product con el prefijo de alias dado.
func productColumns(prefix string) string {
	return fmt.Sprintf(`
	%[1]sid, %[1]suser_id,
	COALESCE(%[1]sunique_item_number, ''), COALESCE(%[1]sbarbuddy_code, ''),
	COALESCE(%[1]ssupplier, ''), %[1]sdescription,
	COALESCE(%[1]scategory, ''), COALESCE(%[1]ssub_category, ''),
	COALESCE(%[1]sml_in_bottle, 0), COALESCE(%[1]sabv, 0),
	COALESCE(%[1]sselling_unit, ''), COALESCE(%[1]scost_per_unit, 0),
	COALESCE(%[1]spurchase_type, ''), COALESCE(%[1]sbottles_per_case, 1),
	COALESCE(%[1]sitem_level, 'Primary')`, prefix)
}

type scanner interface {
	Scan(dest ...any) error
}

func productDest(p *domain.Product) []any {
	return []any{
		&p.ID, &p.UserID,
		&p.UniqueItemNumber, &p.BarbuddyCode,
		&p.Supplier, &p.Description,
		&p.Category, &p.SubCategory,
		&p.MLInBottle, &p.ABV,
		&p.SellingUnit, &p.CostPerUnit,
		&p.PurchaseType, &p.BottlesPerCase,
		&p.ItemLevel,
	}
}

func scanProduct(s scanner) (domain.Product, error) {
	var p domain.Product
	err := s.Scan(productDest(&p)...)
	return p, err
}

func (r *SQLProductRepository) Create(ctx context.Context, p *domain.Product) error {
	const query = `
		INSERT INTO product (
			user_id, unique_item_number, barbuddy_code, supplier, description,
			category, sub_category, ml_in_bottle, abv, selling_unit,
			cost_per_unit, purchase_type, bottles_per_case, item_level
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := insertReturningID(ctx, r.q, r.d, query,
		p.UserID,
		nullable(p.UniqueItemNumber),
		nullable(p.BarbuddyCode),
		p.Supplier,
		p.Description,
		p.Category,
		p.SubCategory,
		p.MLInBottle,
		p.ABV,
		p.SellingUnit,
		p.CostPerUnit,
		p.PurchaseType,
		p.BottlesPerCase,
		p.ItemLevel,
	)
	if err != nil {
		return translate(r.d, "insert product", err)
	}
	p.ID = id
	return nil
}

func (r *SQLProductRepository) Update(ctx context.Context, p domain.Product) error {
	const query = `
		UPDATE product SET
			unique_item_number = ?, supplier = ?, description = ?,
			category = ?, sub_category = ?, ml_in_bottle = ?, abv = ?,
			selling_unit = ?, cost_per_unit = ?, purchase_type = ?,
			bottles_per_case = ?, item_level = ?
		WHERE id = ? AND user_id = ?`
	res, err := r.q.ExecContext(ctx, r.d.Rebind(query),
		nullable(p.UniqueItemNumber),
		p.Supplier,
		p.Description,
		p.Category,
		p.SubCategory,
		p.MLInBottle,
		p.ABV,
		p.SellingUnit,
		p.CostPerUnit,
		p.PurchaseType,
		p.BottlesPerCase,
		p.ItemLevel,
		p.ID,
		p.UserID,
	)
	if err != nil {
		return translate(r.d, "update product", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLProductRepository) Get(ctx context.Context, userID, id int64) (domain.Product, error) {
	query := `SELECT ` + productColumns("") + ` FROM product WHERE id = ? AND user_id = ?`
	p, err := scanProduct(r.q.QueryRowContext(ctx, r.d.Rebind(query), id, userID))
	if err != nil {
		return domain.Product{}, translate(r.d, "select product", err)
	}
	return p, nil
}

func (r *SQLProductRepository) List(ctx context.Context, userID int64, f ProductFilter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns("") + ` FROM product WHERE user_id = ?`
	args := []any{userID}
	if f.SubCategory != "" {
		query += ` AND LOWER(COALESCE(sub_category, '')) = ?`
		args = append(args, strings.ToLower(f.SubCategory))
	}
	if f.ItemLevel != "" {
		query += ` AND COALESCE(item_level, 'Primary') = ?`
		args = append(args, f.ItemLevel)
	}
	query += ` ORDER BY description, id`

	rows, err := r.q.QueryContext(ctx, r.d.Rebind(query), args...)
	if err != nil {
		return nil, translate(r.d, "list products", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, translate(r.d, "scan product", err)
		}
		out = append(out, p)
	}
	return out, translate(r.d, "list products", rows.Err())
}

func (r *SQLProductRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.q.ExecContext(ctx, r.d.Rebind(`DELETE FROM product WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return translate(r.d, "delete product", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLProductRepository) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, r.d.Rebind(`DELETE FROM product WHERE user_id = ?`), userID)
	if err != nil {
		return 0, translate(r.d, "delete products", err)
	}
	return res.RowsAffected()
}

func (r *SQLProductRepository) DeleteMany(ctx context.Context, userID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `DELETE FROM product WHERE user_id = ? AND id IN (` + placeholders(len(ids)) + `)`
	res, err := r.q.ExecContext(ctx, r.d.Rebind(query), args...)
	if err != nil {
		return 0, translate(r.d, "delete products", err)
	}
	return res.RowsAffected()
}

func (r *SQLProductRepository) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM product WHERE user_id = ?`), userID).Scan(&n)
	if err != nil {
		return 0, translate(r.d, "count products", err)
	}
	return n, nil
}

func (r *SQLProductRepository) LatestBarbuddyCode(ctx context.Context, userID int64) (string, error) {
	var code string
	err := r.q.QueryRowContext(ctx, r.d.Rebind(`
		SELECT COALESCE(barbuddy_code, '')
		FROM product
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT 1`), userID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", translate(r.d, "latest barbuddy code", err)
	}
	return code, nil
}

func (r *SQLProductRepository) ExistingCodes(ctx context.Context, userID int64) (map[string]bool, map[string]bool, error) {
	rows, err := r.q.QueryContext(ctx, r.d.Rebind(`
		SELECT COALESCE(unique_item_number, ''), COALESCE(barbuddy_code, '')
		FROM product
		WHERE user_id = ?`), userID)
	if err != nil {
		return nil, nil, translate(r.d, "existing codes", err)
	}
	defer rows.Close()

	items, codes := map[string]bool{}, map[string]bool{}
	for rows.Next() {
		var item, code string
		if err := rows.Scan(&item, &code); err != nil {
			return nil, nil, translate(r.d, "scan codes", err)
		}
		if item != "" {
			items[item] = true
		}
		if code != "" {
			codes[code] = true
		}
	}
	return items, codes, translate(r.d, "existing codes", rows.Err())
}

func (r *SQLProductRepository) ItemNumberExists(ctx context.Context, userID int64, code string, excludeID int64) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx, r.d.Rebind(`
		SELECT COUNT(*) FROM product
		WHERE user_id = ? AND unique_item_number = ? AND id <> ?`), userID, code, excludeID).Scan(&n)
	if err != nil {
		return false, translate(r.d, "lookup item number", err)
	}
	return n > 0, nil
}

func (r *SQLProductRepository) SubCategories(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, r.d.Rebind(`
		SELECT DISTINCT sub_category FROM product
		WHERE user_id = ? AND sub_category IS NOT NULL AND sub_category <> ''
		ORDER BY sub_category`), userID)
	if err != nil {
		return nil, translate(r.d, "list sub categories", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, translate(r.d, "scan sub category", err)
		}
		out = append(out, s)
	}
	return out, translate(r.d, "list sub categories", rows.Err())
}
