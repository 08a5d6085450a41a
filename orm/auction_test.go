package orm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPurchaseAttrs() *PurchaseAttrs {
	return &PurchaseAttrs{
		PurchaseDate:    time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		PurchasePrice:   10000,
		AdditionalCosts: 1500,
	}
}

func (db *DB) purchaseByID(t *testing.T, auctionID uint) AuctionPurchase {
	t.Helper()

	var purchase AuctionPurchase
	require.NoError(t, db.dbGorm.First(&purchase, auctionID).Error)

	return purchase
}

func TestCreateAuctionPurchase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("derives total investment and forces auction status", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		vehicle := testVehicleAttrs("1HGBH41JXMN109186")
		vehicle.Status = StatusAvailable

		auctionID, vehicleID, err := db.CreateAuctionPurchase(ctx, vehicle, testPurchaseAttrs())
		require.NoError(t, err)
		require.NotZero(t, auctionID)

		purchase := db.purchaseByID(t, auctionID)
		assert.InDelta(t, 11500, purchase.TotalInvestment, 0.001)
		assert.Equal(t, StatusAuction, purchase.Status)
		assert.Nil(t, purchase.Profit)
		assert.Nil(t, purchase.SoldAt)

		detail, err := db.GetVehicle(ctx, vehicleID)
		require.NoError(t, err)
		assert.Equal(t, StatusAuction, detail.Status)
	})

	t.Run("duplicate vin rolls back both rows", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		_, _, err := db.CreateAuctionPurchase(
			ctx,
			testVehicleAttrs("1HGBH41JXMN109186"),
			testPurchaseAttrs(),
		)
		require.NoError(t, err)

		_, _, err = db.CreateAuctionPurchase(
			ctx,
			testVehicleAttrs("1HGBH41JXMN109186"),
			testPurchaseAttrs(),
		)
		var conflictErr *ConflictError
		require.ErrorAs(t, err, &conflictErr)

		var purchaseCount, vehicleCount int64
		require.NoError(t, db.dbGorm.Model(&AuctionPurchase{}).Count(&purchaseCount).Error)
		require.NoError(t, db.dbGorm.Model(&Vehicle{}).Count(&vehicleCount).Error)
		assert.EqualValues(t, 1, purchaseCount)
		assert.EqualValues(t, 1, vehicleCount)
	})

	t.Run("sold on arrival gets profit", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		purchase := testPurchaseAttrs()
		purchase.Status = StatusSold
		purchase.SoldPrice = floatPtr(15000)

		auctionID, vehicleID, err := db.CreateAuctionPurchase(
			ctx,
			testVehicleAttrs("1HGBH41JXMN109186"),
			purchase,
		)
		require.NoError(t, err)

		row := db.purchaseByID(t, auctionID)
		require.NotNil(t, row.Profit)
		assert.InDelta(t, 3500, *row.Profit, 0.001)

		detail, err := db.GetVehicle(ctx, vehicleID)
		require.NoError(t, err)
		assert.Equal(t, StatusSold, detail.Status)
	})
}

func TestUpdateAuctionPurchase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("transition to sold sets sold_at and profit", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		auctionID, vehicleID, err := db.CreateAuctionPurchase(
			ctx,
			testVehicleAttrs("1HGBH41JXMN109186"),
			testPurchaseAttrs(),
		)
		require.NoError(t, err)

		_, err = db.UpdateAuctionPurchase(ctx, auctionID, nil, &PurchaseUpdate{
			Status:    strPtr(StatusSold),
			SoldPrice: floatPtr(14000),
		})
		require.NoError(t, err)

		purchase := db.purchaseByID(t, auctionID)
		assert.Equal(t, StatusSold, purchase.Status)
		require.NotNil(t, purchase.SoldAt)
		require.NotNil(t, purchase.Profit)
		assert.InDelta(t, 2500, *purchase.Profit, 0.001)

		detail, err := db.GetVehicle(ctx, vehicleID)
		require.NoError(t, err)
		assert.Equal(t, StatusSold, detail.Status)
	})

	t.Run("cost change recomputes total investment", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		auctionID, _, err := db.CreateAuctionPurchase(
			ctx,
			testVehicleAttrs("1HGBH41JXMN109186"),
			testPurchaseAttrs(),
		)
		require.NoError(t, err)

		_, err = db.UpdateAuctionPurchase(ctx, auctionID, nil, &PurchaseUpdate{
			AdditionalCosts: floatPtr(2500),
		})
		require.NoError(t, err)

		purchase := db.purchaseByID(t, auctionID)
		assert.InDelta(t, 12500, purchase.TotalInvestment, 0.001)
		assert.Equal(t, StatusAuction, purchase.Status)
		assert.Nil(t, purchase.SoldAt)
	})

	t.Run("updates linked vehicle in the same transaction", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		auctionID, vehicleID, err := db.CreateAuctionPurchase(
			ctx,
			testVehicleAttrs("1HGBH41JXMN109186"),
			testPurchaseAttrs(),
		)
		require.NoError(t, err)

		_, err = db.UpdateAuctionPurchase(
			ctx,
			auctionID,
			&VehicleUpdate{Mileage: intPtr(99000)},
			nil,
		)
		require.NoError(t, err)

		detail, err := db.GetVehicle(ctx, vehicleID)
		require.NoError(t, err)
		assert.Equal(t, 99000, detail.Mileage)
	})

	t.Run("unknown purchase returns not found", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		_, err := db.UpdateAuctionPurchase(ctx, 4711, nil, &PurchaseUpdate{
			AdditionalCosts: floatPtr(1),
		})
		var notFoundErr *NotFoundError
		assert.ErrorAs(t, err, &notFoundErr)
	})
}

func TestDeleteAuctionPurchase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns vehicle to available", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		auctionID, vehicleID, err := db.CreateAuctionPurchase(
			ctx,
			testVehicleAttrs("1HGBH41JXMN109186"),
			testPurchaseAttrs(),
		)
		require.NoError(t, err)

		require.NoError(t, db.DeleteAuctionPurchase(ctx, auctionID))

		var purchaseCount int64
		require.NoError(t, db.dbGorm.Model(&AuctionPurchase{}).Count(&purchaseCount).Error)
		assert.Zero(t, purchaseCount)

		detail, err := db.GetVehicle(ctx, vehicleID)
		require.NoError(t, err)
		assert.Equal(t, StatusAvailable, detail.Status)
	})

	t.Run("unknown purchase returns not found", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		err := db.DeleteAuctionPurchase(ctx, 4711)
		var notFoundErr *NotFoundError
		assert.ErrorAs(t, err, &notFoundErr)
	})
}

func TestListAuctionPurchases(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	seed := func(t *testing.T, db *DB) (soldID uint) {
		t.Helper()

		first := testVehicleAttrs("1HGBH41JXMN109186")
		purchase := testPurchaseAttrs()
		soldID, _, err := db.CreateAuctionPurchase(ctx, first, purchase)
		require.NoError(t, err)
		_, err = db.UpdateAuctionPurchase(ctx, soldID, nil, &PurchaseUpdate{
			Status:    strPtr(StatusSold),
			SoldPrice: floatPtr(16000),
		})
		require.NoError(t, err)

		second := testVehicleAttrs("2HGBH41JXMN109187")
		second.Make = "Honda"
		second.Model = "Civic"
		cheaper := testPurchaseAttrs()
		cheaper.PurchasePrice = 5000
		_, _, err = db.CreateAuctionPurchase(ctx, second, cheaper)
		require.NoError(t, err)

		return soldID
	}

	t.Run("joins vehicle data and paginates", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		seed(t, db)

		page, err := db.ListAuctionPurchases(ctx, &AuctionQuery{
			SortBy:    "purchase_price",
			SortOrder: "asc",
		})
		require.NoError(t, err)
		require.Len(t, page.Purchases, 2)
		assert.Equal(t, "Honda", page.Purchases[0].Make)
		assert.InDelta(t, 5000, page.Purchases[0].PurchasePrice, 0.001)
		assert.EqualValues(t, 2, page.Pagination.TotalItems)
		assert.Equal(t, 1, page.Pagination.TotalPages)
	})

	t.Run("filters by status", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		soldID := seed(t, db)

		page, err := db.ListAuctionPurchases(ctx, &AuctionQuery{Status: StatusSold})
		require.NoError(t, err)
		require.Len(t, page.Purchases, 1)
		assert.Equal(t, soldID, page.Purchases[0].ID)
	})

	t.Run("searches across vin, make and model", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)
		seed(t, db)

		page, err := db.ListAuctionPurchases(ctx, &AuctionQuery{Search: "civic"})
		require.NoError(t, err)
		require.Len(t, page.Purchases, 1)
		assert.Equal(t, "Civic", page.Purchases[0].Model)
	})

	t.Run("rejects unknown sort column", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		_, err := db.ListAuctionPurchases(ctx, &AuctionQuery{SortBy: "profit; DROP TABLE"})
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestAuctionSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("aggregates purchases and sales inside the window", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		auctionID, _, err := db.CreateAuctionPurchase(
			ctx,
			testVehicleAttrs("1HGBH41JXMN109186"),
			testPurchaseAttrs(),
		)
		require.NoError(t, err)
		_, err = db.UpdateAuctionPurchase(ctx, auctionID, nil, &PurchaseUpdate{
			Status:    strPtr(StatusSold),
			SoldPrice: floatPtr(16000),
		})
		require.NoError(t, err)

		outside := testPurchaseAttrs()
		outside.PurchaseDate = time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
		_, _, err = db.CreateAuctionPurchase(
			ctx,
			testVehicleAttrs("2HGBH41JXMN109187"),
			outside,
		)
		require.NoError(t, err)

		from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Now().UTC()

		summary, err := db.AuctionSummary(ctx, from, to, "")
		require.NoError(t, err)
		assert.EqualValues(t, 1, summary.VehiclesPurchased)
		assert.InDelta(t, 11500, summary.TotalInvestment, 0.001)
		assert.EqualValues(t, 1, summary.VehiclesSold)
		assert.InDelta(t, 4500, summary.TotalProfit, 0.001)
	})

	t.Run("empty window reports zeros", func(t *testing.T) {
		t.Parallel()
		db := newTestDB(t)

		_, _, err := db.CreateAuctionPurchase(
			ctx,
			testVehicleAttrs("1HGBH41JXMN109186"),
			testPurchaseAttrs(),
		)
		require.NoError(t, err)

		from := time.Date(1950, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(1950, time.December, 31, 0, 0, 0, 0, time.UTC)

		summary, err := db.AuctionSummary(ctx, from, to, "")
		require.NoError(t, err)
		assert.Zero(t, summary.VehiclesPurchased)
		assert.Zero(t, summary.VehiclesSold)
		assert.InDelta(t, 0, summary.TotalInvestment, 0.001)
		assert.InDelta(t, 0, summary.TotalProfit, 0.001)
	})
}
