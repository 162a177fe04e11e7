package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bar-bartender/internal/dbtest"
	"bar-bartender/internal/domain"
)

func newStore(t *testing.T) (*Store, int64, int64) {
	t.Helper()
	d := dbtest.New(t)
	alice := dbtest.CreateUser(t, d, "alice", "alice@x.com")
	bob := dbtest.CreateUser(t, d, "bob", "bob@x.com")
	return NewStore(d), alice, bob
}

func TestUserRepository(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	users := s.Users()

	u := domain.User{Username: "carol", Email: "carol@x.com", PasswordHash: "hash"}
	require.NoError(t, users.Create(ctx, &u))
	require.NotZero(t, u.ID)

	got, err := users.GetByEmail(ctx, "CAROL@x.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "hash", got.PasswordHash)

	got, err = users.GetByUsername(ctx, "carol")
	require.NoError(t, err)
	require.Equal(t, "carol@x.com", got.Email)

	_, err = users.GetByID(ctx, 9999)
	require.ErrorIs(t, err, ErrNotFound)

	dup := domain.User{Username: "carol", Email: "other@x.com", PasswordHash: "hash"}
	require.ErrorIs(t, users.Create(ctx, &dup), ErrDuplicate)
}

func TestVerificationRepository(t *testing.T) {
	s, _, _ := newStore(t)
	ctx := context.Background()
	repo := s.Verifications()
	now := time.Now().UTC()

	older := domain.VerificationCode{Email: "a@x.com", Code: "111111", Username: "a", PasswordHash: "h", ExpiresAt: now.Add(time.Minute), CreatedAt: now.Add(-time.Minute)}
	newer := domain.VerificationCode{Email: "a@x.com", Code: "222222", Username: "a", PasswordHash: "h", ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now}
	require.NoError(t, repo.Create(ctx, &older))
	require.NoError(t, repo.Create(ctx, &newer))

	latest, err := repo.LatestUnverified(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "222222", latest.Code)
	require.False(t, latest.Verified)
	require.WithinDuration(t, newer.ExpiresAt, latest.ExpiresAt, time.Second)

	require.NoError(t, repo.MarkVerified(ctx, newer.ID))
	latest, err = repo.LatestUnverified(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "111111", latest.Code)

	last, err := repo.LatestForEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, last.Verified)

	n, err := repo.DeleteVerified(ctx, "a@x.com")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	count, err := repo.CountByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	n, err = repo.DeleteByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = repo.LatestUnverified(ctx, "a@x.com")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.MarkVerified(ctx, 12345), ErrNotFound)
}

func TestProductRepositoryIsTenantScoped(t *testing.T) {
	s, alice, bob := newStore(t)
	ctx := context.Background()
	products := s.Products()

	gin := domain.Product{UserID: alice, UniqueItemNumber: "ITEM-0001", BarbuddyCode: "BB001", Description: "Gin", SubCategory: "Gin", ItemLevel: domain.ItemLevelPrimary, MLInBottle: 700, CostPerUnit: 28, BottlesPerCase: 6}
	require.NoError(t, products.Create(ctx, &gin))

	same := domain.Product{UserID: bob, UniqueItemNumber: "ITEM-0001", BarbuddyCode: "BB001", Description: "Gin", ItemLevel: domain.ItemLevelPrimary}
	require.NoError(t, products.Create(ctx, &same), "codes are unique per account")

	clash := domain.Product{UserID: alice, UniqueItemNumber: "ITEM-0001", Description: "Other", ItemLevel: domain.ItemLevelPrimary}
	require.ErrorIs(t, products.Create(ctx, &clash), ErrDuplicate)

	_, err := products.Get(ctx, bob, gin.ID)
	require.ErrorIs(t, err, ErrNotFound, "other accounts cannot read it")

	got, err := products.Get(ctx, alice, gin.ID)
	require.NoError(t, err)
	require.Equal(t, gin, got)

	lime := domain.Product{UserID: alice, Description: "Lime", SubCategory: "Fruits", ItemLevel: domain.ItemLevelSecondary}
	require.NoError(t, products.Create(ctx, &lime))

	list, err := products.List(ctx, alice, ProductFilter{SubCategory: "fruits"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Lime", list[0].Description)

	list, err = products.List(ctx, alice, ProductFilter{ItemLevel: domain.ItemLevelPrimary})
	require.NoError(t, err)
	require.Len(t, list, 1)

	code, err := products.LatestBarbuddyCode(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, "", code, "latest product has no code")

	items, codes, err := products.ExistingCodes(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"ITEM-0001": true}, items)
	require.Equal(t, map[string]bool{"BB001": true}, codes)

	exists, err := products.ItemNumberExists(ctx, alice, "ITEM-0001", gin.ID)
	require.NoError(t, err)
	require.False(t, exists, "a product never clashes with itself")

	subs, err := products.SubCategories(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []string{"Fruits", "Gin"}, subs)

	n, err := products.DeleteMany(ctx, alice, []int64{gin.ID, same.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, n, "bob's product is out of reach")

	n, err = products.DeleteAll(ctx, alice)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	count, err := products.Count(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRecipeRepositoryLoadsCostingGraph(t *testing.T) {
	s, alice, _ := newStore(t)
	ctx := context.Background()

	vodka := domain.Product{UserID: alice, Description: "Vodka", MLInBottle: 1000, CostPerUnit: 20, ItemLevel: domain.ItemLevelPrimary}
	sugar := domain.Product{UserID: alice, Description: "Sugar", MLInBottle: 1000, CostPerUnit: 4, ItemLevel: domain.ItemLevelPrimary}
	require.NoError(t, s.Products().Create(ctx, &vodka))
	require.NoError(t, s.Products().Create(ctx, &sugar))

	syrup := domain.HomemadeIngredient{
		UserID: alice, Name: "Simple syrup", UniqueCode: "HM-001", TotalVolumeML: 500,
		Items: []domain.HomemadeIngredientItem{{ProductID: sugar.ID, QuantityML: 250}},
	}
	require.NoError(t, s.InTx(ctx, func(tx *Store) error { return tx.Homemade().Create(ctx, &syrup) }))

	h, err := s.Homemade().Get(ctx, alice, syrup.ID)
	require.NoError(t, err)
	require.Len(t, h.Items, 1)
	require.InDelta(t, 1.0, h.Cost(), 1e-9)

	rec := domain.Recipe{
		UserID: alice, RecipeCode: "REC-0001", Title: "Vodka sour", RecipeType: "Beverage", Type: "Cocktails",
		ItemLevel: domain.ItemLevelPrimary, SellingPrice: 10,
		Ingredients: []domain.RecipeIngredient{
			{Kind: domain.IngredientProduct, IngredientID: vodka.ID, Quantity: 50, Unit: "ml", QuantityML: 50},
			{Kind: domain.IngredientHomemade, IngredientID: syrup.ID, Quantity: 20, Unit: "ml", QuantityML: 20},
		},
	}
	require.NoError(t, s.InTx(ctx, func(tx *Store) error { return tx.Recipes().Create(ctx, &rec) }))

	got, err := s.Recipes().GetByCode(ctx, alice, "REC-0001")
	require.NoError(t, err)
	require.Len(t, got.Ingredients, 2)
	require.NotNil(t, got.Ingredients[0].Product)
	require.NotNil(t, got.Ingredients[1].Homemade)
	require.InDelta(t, 1.04, got.Breakdown().TotalCost, 1e-9)

	got.Title = "Vodka sour v2"
	got.Ingredients = got.Ingredients[:1]
	require.NoError(t, s.InTx(ctx, func(tx *Store) error { return tx.Recipes().Update(ctx, &got) }))

	again, err := s.Recipes().Get(ctx, alice, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "Vodka sour v2", again.Title)
	require.Len(t, again.Ingredients, 1)

	list, err := s.Recipes().List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)

	exists, err := s.Recipes().CodeExists(ctx, alice, "REC-0001")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, s.Recipes().Delete(ctx, alice, rec.ID))
	require.ErrorIs(t, s.Recipes().Delete(ctx, alice, rec.ID), ErrNotFound)
	require.NoError(t, s.Homemade().Delete(ctx, alice, syrup.ID))
}

func TestStoreInTxRollsBack(t *testing.T) {
	s, alice, _ := newStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx *Store) error {
		p := domain.Product{UserID: alice, Description: "Rum", ItemLevel: domain.ItemLevelPrimary}
		require.NoError(t, tx.Products().Create(ctx, &p))
		return tx.InTx(ctx, func(*Store) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	n, err := s.Products().Count(ctx, alice)
	require.NoError(t, err)
	require.Zero(t, n)
}
