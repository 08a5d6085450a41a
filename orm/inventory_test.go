package orm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedInventory(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()

	sedan := testVehicleAttrs("1HGBH41JXMN109186")
	sedan.Price = 25000
	sedan.Tags = []string{"family"}
	sedan.Images = &ImageSetInput{
		URLs: []string{"memory://side", "memory://front"},
		Metadata: []ImageMetadata{
			{OriginalName: "side.jpg"},
			{OriginalName: "front.jpg"},
		},
		PrimaryIndex: 1,
	}
	_, err := db.CreateVehicle(ctx, sedan)
	require.NoError(t, err)

	suv := testVehicleAttrs("2HGBH41JXMN109187")
	suv.Make = "BMW"
	suv.Model = "X5"
	suv.BodyType = "suv"
	suv.Price = 60000
	suv.Tags = []string{"luxury"}
	_, err = db.CreateVehicle(ctx, suv)
	require.NoError(t, err)

	ev := testVehicleAttrs("3HGBH41JXMN109188")
	ev.Make = "Tesla"
	ev.Model = "Model 3"
	ev.FuelType = "electric"
	ev.Price = 40000
	ev.Status = StatusSold
	_, err = db.CreateVehicle(ctx, ev)
	require.NoError(t, err)
}

func TestListInventory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("default listing is newest first with stats", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		seedInventory(t, db)

		page, err := db.ListInventory(ctx, &InventoryQuery{})
		require.NoError(t, err)
		assert.Len(t, page.Vehicles, 3)
		assert.EqualValues(t, 3, page.Pagination.TotalItems)
		assert.EqualValues(t, 2, page.Filters.TotalAvailable)
		assert.EqualValues(t, 1, page.Filters.TotalSold)
		assert.EqualValues(t, 1, page.Filters.Categories["suv"])
		assert.EqualValues(t, 1, page.Filters.Categories["electric"])
		assert.EqualValues(t, 1, page.Filters.Categories["luxury"])
	})

	t.Run("sorts by price ascending", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		seedInventory(t, db)

		page, err := db.ListInventory(ctx, &InventoryQuery{
			SortBy:    "price",
			SortOrder: "asc",
		})
		require.NoError(t, err)
		require.Len(t, page.Vehicles, 3)
		assert.InDelta(t, 25000, page.Vehicles[0].Price, 0.001)
		assert.InDelta(t, 60000, page.Vehicles[2].Price, 0.001)
	})

	t.Run("filters by body type category", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		seedInventory(t, db)

		page, err := db.ListInventory(ctx, &InventoryQuery{Category: "suv"})
		require.NoError(t, err)
		require.Len(t, page.Vehicles, 1)
		assert.Equal(t, "BMW", page.Vehicles[0].Make)
	})

	t.Run("electric category filters on fuel type", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		seedInventory(t, db)

		page, err := db.ListInventory(ctx, &InventoryQuery{Category: "electric"})
		require.NoError(t, err)
		require.Len(t, page.Vehicles, 1)
		assert.Equal(t, "Tesla", page.Vehicles[0].Make)
	})

	t.Run("other categories match tag names", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		seedInventory(t, db)

		page, err := db.ListInventory(ctx, &InventoryQuery{Category: "luxury"})
		require.NoError(t, err)
		require.Len(t, page.Vehicles, 1)
		assert.Equal(t, "BMW", page.Vehicles[0].Make)
	})

	t.Run("search matches make, model, vin and year", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		seedInventory(t, db)

		byModel, err := db.ListInventory(ctx, &InventoryQuery{Search: "x5"})
		require.NoError(t, err)
		require.Len(t, byModel.Vehicles, 1)
		assert.Equal(t, "BMW", byModel.Vehicles[0].Make)

		byYear, err := db.ListInventory(ctx, &InventoryQuery{Search: "2021"})
		require.NoError(t, err)
		assert.Len(t, byYear.Vehicles, 3)
	})

	t.Run("status filter", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		seedInventory(t, db)

		page, err := db.ListInventory(ctx, &InventoryQuery{Status: StatusSold})
		require.NoError(t, err)
		require.Len(t, page.Vehicles, 1)
		assert.Equal(t, "Tesla", page.Vehicles[0].Make)
	})

	t.Run("attaches tags and primary image", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		seedInventory(t, db)

		page, err := db.ListInventory(ctx, &InventoryQuery{Search: "camry"})
		require.NoError(t, err)
		require.Len(t, page.Vehicles, 1)
		assert.Equal(t, []string{"family"}, page.Vehicles[0].Tags)
		assert.Equal(t, "memory://front", page.Vehicles[0].ImageURL)
	})

	t.Run("paginates", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		seedInventory(t, db)

		page, err := db.ListInventory(ctx, &InventoryQuery{Limit: 2, Page: 2})
		require.NoError(t, err)
		assert.Len(t, page.Vehicles, 1)
		assert.Equal(t, 2, page.Pagination.CurrentPage)
		assert.Equal(t, 2, page.Pagination.TotalPages)
		assert.False(t, page.Pagination.HasNext)
		assert.True(t, page.Pagination.HasPrevious)
	})

	t.Run("rejects unknown sort column", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		_, err := db.ListInventory(ctx, &InventoryQuery{SortBy: "color"})
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}
