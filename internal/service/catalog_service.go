package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bar-bartender/internal/domain"
	"bar-bartender/internal/repository"
)

var (
	ErrInvalidProduct    = errors.New("invalid product")
	ErrItemNumberTaken   = errors.New("unique item number already exists")
	ErrInvalidHomemade   = errors.New("invalid secondary ingredient")
	ErrNoIngredients     = errors.New("at least one ingredient with a quantity greater than zero is required")
	ErrUnknownIngredient = errors.New("unknown ingredient")
	ErrNothingSelected   = errors.New("no items selected")
)

// generatedCodeAttempts acota la busqueda de un codigo libre en imports.
const generatedCodeAttempts = 10000

var defaultMasterCategories = []string{
	"Alcohol", "Non Alcohol", "Non-Alcohol", "Fruits", "Vegetables", "Dairy",
	"Syrups & Purees", "Syrup", "Puree", "Juice", "Other", "Food", "Beverage",
	"Secondary Ingredient",
}

// CatalogService administra productos e ingredientes caseros de cada cuenta.
type CatalogService struct {
	logger      *zap.Logger
	store       *repository.Store
	categorizer Categorizer
	now         func() time.Time
}

func NewCatalogService(logger *zap.Logger, store *repository.Store, categorizer Categorizer) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		logger:      logger,
		store:       store,
		categorizer: categorizer,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type ProductInput struct {
	UniqueItemNumber string  `json:"unique_item_number"`
	Description      string  `json:"description"`
	Supplier         string  `json:"supplier"`
	Category         string  `json:"category"`
	SubCategory      string  `json:"sub_category"`
	ItemLevel        string  `json:"item_level"`
	MLInBottle       float64 `json:"ml_in_bottle"`
	ABV              float64 `json:"abv"`
	SellingUnit      string  `json:"selling_unit"`
	CostPerUnit      float64 `json:"cost_per_unit"`
	PurchaseType     string  `json:"purchase_type"`
	BottlesPerCase   int     `json:"bottles_per_case"`
}

func (in ProductInput) apply(p *domain.Product) error {
	p.Description = strings.TrimSpace(in.Description)
	if p.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidProduct)
	}
	if in.CostPerUnit < 0 || in.MLInBottle < 0 || in.ABV < 0 {
		return fmt.Errorf("%w: negative amounts are not allowed", ErrInvalidProduct)
	}
	p.UniqueItemNumber = strings.TrimSpace(in.UniqueItemNumber)
	p.Supplier = strings.TrimSpace(in.Supplier)
	if p.Supplier == "" {
		p.Supplier = "N/A"
	}
	p.Category = strings.TrimSpace(in.Category)
	p.SubCategory = strings.TrimSpace(in.SubCategory)
	p.ItemLevel = normalizeItemLevel(in.ItemLevel)
	p.MLInBottle = in.MLInBottle
	p.ABV = in.ABV
	p.SellingUnit = strings.TrimSpace(in.SellingUnit)
	p.CostPerUnit = in.CostPerUnit
	p.PurchaseType = strings.TrimSpace(in.PurchaseType)
	if p.PurchaseType == "" {
		p.PurchaseType = "each"
	}
	p.BottlesPerCase = in.BottlesPerCase
	if p.BottlesPerCase <= 0 {
		p.BottlesPerCase = 1
	}
	return nil
}

// CreateProduct da de alta un producto. Genera ITEM-XXXXXXXX si no viene
// numero de item y el siguiente BB### libre a partir del ultimo producto.
func (s *CatalogService) CreateProduct(ctx context.Context, userID int64, in ProductInput) (domain.Product, error) {
	p := domain.Product{UserID: userID}
	if err := in.apply(&p); err != nil {
		return domain.Product{}, err
	}
	s.suggestCategory(ctx, &p, p.Category, p.SubCategory)

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		products := tx.Products()
		if p.UniqueItemNumber != "" {
			taken, err := products.ItemNumberExists(ctx, userID, p.UniqueItemNumber, 0)
			if err != nil {
				return err
			}
			if taken {
				return ErrItemNumberTaken
			}
		} else {
			p.UniqueItemNumber = "ITEM-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		}

		latest, err := products.LatestBarbuddyCode(ctx, userID)
		if err != nil {
			return err
		}
		_, taken, err := products.ExistingCodes(ctx, userID)
		if err != nil {
			return err
		}
		p.BarbuddyCode = freeBarbuddyCode(latest, taken)
		return products.Create(ctx, &p)
	})
	if err != nil {
		return domain.Product{}, s.wrap("create product", err)
	}
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, userID, id int64, in ProductInput) (domain.Product, error) {
	var p domain.Product
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		products := tx.Products()
		current, err := products.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		p = current
		if strings.TrimSpace(in.UniqueItemNumber) == "" {
			in.UniqueItemNumber = current.UniqueItemNumber
		}
		if err := in.apply(&p); err != nil {
			return err
		}
		if p.UniqueItemNumber != current.UniqueItemNumber {
			taken, err := products.ItemNumberExists(ctx, userID, p.UniqueItemNumber, id)
			if err != nil {
				return err
			}
			if taken {
				return ErrItemNumberTaken
			}
		}
		return products.Update(ctx, p)
	})
	if err != nil {
		return domain.Product{}, s.wrap("update product", err)
	}
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, userID, id int64) (domain.Product, error) {
	p, err := s.store.Products().Get(ctx, userID, id)
	if err != nil {
		return domain.Product{}, s.wrap("get product", err)
	}
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, userID, id int64) error {
	return s.wrap("delete product", s.store.Products().Delete(ctx, userID, id))
}

// DeleteAllProducts borra los productos de la cuenta; los caseros quedan.
func (s *CatalogService) DeleteAllProducts(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.Products().DeleteAll(ctx, userID)
	return n, s.wrap("delete all products", err)
}

// DeleteProducts ignora ids ajenos o inexistentes y devuelve cuantos borro.
func (s *CatalogService) DeleteProducts(ctx context.Context, userID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNothingSelected
	}
	n, err := s.store.Products().DeleteMany(ctx, userID, ids)
	return n, s.wrap("delete selected products", err)
}

// ImportRow es una fila de carga masiva; los nombres siguen las columnas de
// la planilla original.
type ImportRow struct {
	Description      string   `json:"description"`
	Supplier         string   `json:"supplier"`
	Category         string   `json:"category"`
	SubCategory      *string  `json:"sub_category"`
	ItemLevel        string   `json:"item_level"`
	Unit             string   `json:"unit"`
	CostPerUnit      any      `json:"cost_per_unit"`
	UniqueItemNumber string   `json:"unique_item_number"`
	Code             string   `json:"code"`
	Quantity         *float64 `json:"quantity"`
}

type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// ImportProducts carga filas en bloque. Los codigos repetidos contra la base
// o dentro del lote se regeneran. Las filas sin descripcion se saltean; si
// falla un insert no se guarda ninguna fila.
func (s *CatalogService) ImportProducts(ctx context.Context, userID int64, rows []ImportRow) (ImportResult, error) {
	products := s.store.Products()
	base, err := products.Count(ctx, userID)
	if err != nil {
		return ImportResult{}, s.wrap("import products", err)
	}
	existingItems, existingCodes, err := products.ExistingCodes(ctx, userID)
	if err != nil {
		return ImportResult{}, s.wrap("import products", err)
	}
	usedItems, usedCodes := map[string]bool{}, map[string]bool{}
	taken := func(existing, used map[string]bool, code string) bool {
		return existing[code] || used[code]
	}

	var result ImportResult
	batch := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		description := strings.TrimSpace(row.Description)
		if description == "" {
			result.Skipped++
			continue
		}

		p := domain.Product{
			UserID:      userID,
			Description: description,
			Supplier:    strings.TrimSpace(row.Supplier),
			Category:    strings.TrimSpace(row.Category),
			SubCategory: "Other",
			ItemLevel:   normalizeItemLevel(row.ItemLevel),
			SellingUnit: strings.TrimSpace(row.Unit),
			CostPerUnit: parseAmount(row.CostPerUnit),
		}
		if p.Supplier == "" {
			p.Supplier = "N/A"
		}
		if p.Category == "" {
			p.Category = "Other"
		}
		if p.SellingUnit == "" {
			p.SellingUnit = "each"
		}
		if row.Quantity != nil {
			p.MLInBottle = *row.Quantity
		}

		// Un "Other" explicito en la sub categoria se respeta; solo se
		// sugiere cuando la columna falta o viene vacia.
		subMissing := row.SubCategory == nil || strings.TrimSpace(*row.SubCategory) == ""
		if !subMissing {
			p.SubCategory = strings.TrimSpace(*row.SubCategory)
		}
		categoryMissing := p.Category == "Other"
		if categoryMissing || subMissing {
			if cat, sub, ok := s.categorize(ctx, p.Description, p.Supplier); ok {
				if categoryMissing {
					p.Category = cat
				}
				if subMissing {
					p.SubCategory = sub
				}
			}
		}

		if item := strings.TrimSpace(row.UniqueItemNumber); item != "" && !taken(existingItems, usedItems, item) {
			p.UniqueItemNumber = item
			usedItems[item] = true
		}
		if code := strings.TrimSpace(row.Code); code != "" && !taken(existingCodes, usedCodes, code) {
			p.BarbuddyCode = code
			usedCodes[code] = true
		}

		seq := base + len(batch)
		if p.UniqueItemNumber == "" {
			p.UniqueItemNumber = s.freeCode(existingItems, usedItems, seq, func(n int) string {
				return fmt.Sprintf("ITEM-%06d", n)
			}, "ITEM-")
		}
		if p.BarbuddyCode == "" {
			p.BarbuddyCode = s.freeCode(existingCodes, usedCodes, seq, func(n int) string {
				return fmt.Sprintf("BB%03d", n)
			}, "BB")
		}
		batch = append(batch, p)
	}

	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		for i := range batch {
			if err := tx.Products().Create(ctx, &batch[i]); err != nil {
				return fmt.Errorf("row %q: %w", batch[i].Description, err)
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, s.wrap("import products", err)
	}
	result.Created = len(batch)
	s.logger.Info("products imported",
		zap.Int64("user_id", userID),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// freeCode busca el primer codigo libre a partir de seq+1 y lo reserva.
func (s *CatalogService) freeCode(existing, used map[string]bool, seq int, format func(int) string, prefix string) string {
	for counter := 1; counter <= generatedCodeAttempts; counter++ {
		candidate := format(seq + counter)
		if !existing[candidate] && !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
	candidate := fmt.Sprintf("%s%d%04d", prefix, s.now().Unix(), seq)
	used[candidate] = true
	return candidate
}

// MasterRow es una fila del listado maestro: un producto o un casero.
type MasterRow struct {
	ID               int64   `json:"id"`
	Kind             string  `json:"kind"`
	UniqueItemNumber string  `json:"unique_item_number"`
	Code             string  `json:"code"`
	Description      string  `json:"description"`
	Supplier         string  `json:"supplier"`
	Category         string  `json:"category"`
	SubCategory      string  `json:"sub_category"`
	ItemLevel        string  `json:"item_level"`
	Quantity         float64 `json:"quantity"`
	CostPerUnit      float64 `json:"cost_per_unit"`
}

type MasterFilter struct {
	Category string
	Level    string
}

type MasterList struct {
	Rows       []MasterRow `json:"rows"`
	Categories []string    `json:"categories"`
}

// ListIngredients une productos y caseros de la cuenta en un solo listado.
func (s *CatalogService) ListIngredients(ctx context.Context, userID int64, f MasterFilter) (MasterList, error) {
	products, err := s.store.Products().List(ctx, userID, repository.ProductFilter{})
	if err != nil {
		return MasterList{}, s.wrap("list products", err)
	}
	homemade, err := s.store.Homemade().List(ctx, userID)
	if err != nil {
		return MasterList{}, s.wrap("list secondary ingredients", err)
	}

	rows := make([]MasterRow, 0, len(products)+len(homemade))
	for _, p := range products {
		rows = append(rows, MasterRow{
			ID:               p.ID,
			Kind:             "product",
			UniqueItemNumber: orDefault(p.UniqueItemNumber, "N/A"),
			Code:             orDefault(p.BarbuddyCode, "N/A"),
			Description:      p.Description,
			Supplier:         orDefault(p.Supplier, "N/A"),
			Category:         orDefault(p.Category, "Product"),
			SubCategory:      orDefault(p.SubCategory, "Other"),
			ItemLevel:        orDefault(p.ItemLevel, domain.ItemLevelPrimary),
			Quantity:         p.MLInBottle,
			CostPerUnit:      p.CostPerUnit,
		})
	}
	for _, h := range homemade {
		rows = append(rows, MasterRow{
			ID:               h.ID,
			Kind:             "secondary",
			UniqueItemNumber: orDefault(h.UniqueCode, "N/A"),
			Code:             orDefault(h.UniqueCode, "N/A"),
			Description:      h.Name,
			Supplier:         "In-House",
			Category:         "Secondary",
			SubCategory:      "Secondary Ingredient",
			ItemLevel:        domain.ItemLevelSecondary,
			Quantity:         h.TotalVolumeML,
			CostPerUnit:      h.CostPerUnit(),
		})
	}

	if f.Category != "" || f.Level != "" {
		rows = slices.DeleteFunc(rows, func(r MasterRow) bool {
			if f.Category != "" && !strings.EqualFold(r.SubCategory, f.Category) {
				return true
			}
			return f.Level != "" && r.ItemLevel != f.Level
		})
	}

	subs, err := s.store.Products().SubCategories(ctx, userID)
	if err != nil {
		return MasterList{}, s.wrap("list sub categories", err)
	}
	categories := append(subs, defaultMasterCategories...)
	slices.Sort(categories)

	return MasterList{Rows: rows, Categories: slices.Compact(categories)}, nil
}

type HomemadeItemInput struct {
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
}

type HomemadeInput struct {
	Name          string              `json:"name"`
	UniqueCode    string              `json:"unique_code"`
	TotalVolumeML float64             `json:"total_volume_ml"`
	Unit          string              `json:"unit"`
	Method        string              `json:"method"`
	Items         []HomemadeItemInput `json:"items"`
}

// CreateHomemade registra un ingrediente casero. Sin codigo se genera
// HM-### y sin volumen total se usa la suma de sus items.
func (s *CatalogService) CreateHomemade(ctx context.Context, userID int64, in HomemadeInput) (domain.HomemadeIngredient, error) {
	h := domain.HomemadeIngredient{
		UserID:        userID,
		Name:          strings.TrimSpace(in.Name),
		UniqueCode:    strings.TrimSpace(in.UniqueCode),
		TotalVolumeML: in.TotalVolumeML,
		Unit:          orDefault(strings.TrimSpace(in.Unit), "ml"),
		Method:        strings.TrimSpace(in.Method),
		CreatedAt:     s.now(),
	}
	if h.Name == "" {
		return domain.HomemadeIngredient{}, fmt.Errorf("%w: name is required", ErrInvalidHomemade)
	}
	if h.TotalVolumeML < 0 {
		return domain.HomemadeIngredient{}, fmt.Errorf("%w: total volume must not be negative", ErrInvalidHomemade)
	}

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		for _, it := range in.Items {
			if it.Quantity <= 0 {
				continue
			}
			product, err := tx.Products().Get(ctx, userID, it.ProductID)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: product %d", ErrUnknownIngredient, it.ProductID)
			}
			if err != nil {
				return err
			}
			unit := orDefault(strings.TrimSpace(it.Unit), "ml")
			h.Items = append(h.Items, domain.HomemadeIngredientItem{
				ProductID:  product.ID,
				QuantityML: domain.ConvertToML(it.Quantity, unit, &product),
				Unit:       unit,
				Product:    &product,
			})
		}
		if len(h.Items) == 0 {
			return ErrNoIngredients
		}
		if h.TotalVolumeML == 0 {
			for _, it := range h.Items {
				h.TotalVolumeML += it.QuantityML
			}
		}

		homemade := tx.Homemade()
		if h.UniqueCode != "" {
			exists, err := homemade.CodeExists(ctx, userID, h.UniqueCode)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: code %s", repository.ErrDuplicate, h.UniqueCode)
			}
		} else {
			code, err := nextSequentialCode(ctx, userID, "HM-%03d", homemade.Count, homemade.CodeExists)
			if err != nil {
				return err
			}
			h.UniqueCode = code
		}
		return homemade.Create(ctx, &h)
	})
	if err != nil {
		return domain.HomemadeIngredient{}, s.wrap("create secondary ingredient", err)
	}
	return h, nil
}

func (s *CatalogService) GetHomemade(ctx context.Context, userID, id int64) (domain.HomemadeIngredient, error) {
	h, err := s.store.Homemade().Get(ctx, userID, id)
	if err != nil {
		return domain.HomemadeIngredient{}, s.wrap("get secondary ingredient", err)
	}
	return h, nil
}

func (s *CatalogService) ListHomemade(ctx context.Context, userID int64) ([]domain.HomemadeIngredient, error) {
	items, err := s.store.Homemade().List(ctx, userID)
	if err != nil {
		return nil, s.wrap("list secondary ingredients", err)
	}
	return items, nil
}

func (s *CatalogService) DeleteHomemade(ctx context.Context, userID, id int64) error {
	return s.wrap("delete secondary ingredient", s.store.Homemade().Delete(ctx, userID, id))
}

// suggestCategory completa solo los campos faltantes con la sugerencia.
func (s *CatalogService) suggestCategory(ctx context.Context, p *domain.Product, category, subCategory string) {
	if !NeedsCategorization(category, subCategory) {
		return
	}
	cat, sub, ok := s.categorize(ctx, p.Description, p.Supplier)
	if !ok {
		return
	}
	if strings.TrimSpace(category) == "" || category == "Other" {
		p.Category = cat
	}
	if strings.TrimSpace(subCategory) == "" || subCategory == "Other" {
		p.SubCategory = sub
	}
}

func (s *CatalogService) categorize(ctx context.Context, description, supplier string) (string, string, bool) {
	if s.categorizer == nil {
		return "", "", false
	}
	cat, sub, ok := s.categorizer.Categorize(ctx, description, supplier)
	if ok {
		s.logger.Info("ai categorized product",
			zap.String("description", description),
			zap.String("category", cat),
			zap.String("sub_category", sub),
		)
	}
	return cat, sub, ok
}

// wrap deja pasar los errores de dominio y registra los de almacenamiento.
func (s *CatalogService) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	s.logger.Error(op+" failed", zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		repository.ErrNotFound, repository.ErrDuplicate,
		ErrInvalidProduct, ErrItemNumberTaken, ErrInvalidHomemade,
		ErrNoIngredients, ErrUnknownIngredient, ErrNothingSelected,
		ErrInvalidRecipe, ErrInvalidCategory,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// nextBarbuddyCode incrementa el BB### del ultimo producto; cualquier
// codigo no numerico reinicia la secuencia en BB001.
func nextBarbuddyCode(latest string) string {
	next := 1
	if len(latest) > 2 && isDigits(latest[2:]) {
		if n, err := strconv.Atoi(latest[2:]); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("BB%03d", next)
}

// freeBarbuddyCode avanza desde el ultimo codigo hasta uno que la cuenta no
// tenga. Los codigos importados a mano pueden romper la secuencia.
func freeBarbuddyCode(latest string, taken map[string]bool) string {
	code := nextBarbuddyCode(latest)
	for taken[code] {
		code = nextBarbuddyCode(code)
	}
	return code
}

// nextSequentialCode prueba count+1, count+2... hasta 100 intentos y luego
// cae en un sufijo de fecha.
func nextSequentialCode(
	ctx context.Context,
	userID int64,
	format string,
	count func(context.Context, int64) (int, error),
	exists func(context.Context, int64, string) (bool, error),
) (string, error) {
	n, err := count(ctx, userID)
	if err != nil {
		return "", err
	}
	for attempt := 1; attempt <= 100; attempt++ {
		candidate := fmt.Sprintf(format, n+attempt)
		taken, err := exists(ctx, userID, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	prefix, _, _ := strings.Cut(format, "%")
	return prefix + time.Now().UTC().Format("20060102150405"), nil
}

func normalizeItemLevel(level string) string {
	if strings.EqualFold(strings.TrimSpace(level), domain.ItemLevelSecondary) {
		return domain.ItemLevelSecondary
	}
	return domain.ItemLevelPrimary
}

// parseAmount acepta numeros o strings numericos; cualquier otra cosa es 0.
func parseAmount(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
