package orm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// PurchaseAttrs is the validated input for a new auction purchase.
// TotalInvestment and Profit are always recomputed here.
type PurchaseAttrs struct {
	PurchaseDate    time.Time
	PurchasePrice   float64
	AdditionalCosts float64
	ListPrice       *float64
	SoldPrice       *float64
	Status          string
	Notes           *string
}

// PurchaseUpdate is a partial write set for an auction purchase, nil means
// "leave untouched".
type PurchaseUpdate struct {
	PurchaseDate    *time.Time
	PurchasePrice   *float64
	AdditionalCosts *float64
	ListPrice       *float64
	SoldPrice       *float64
	Status          *string
	Notes           *string
}

// CreateAuctionPurchase creates the vehicle and the linked purchase row in
// one transaction. The vehicle enters inventory with status "auction" so it
// never shows as available while a purchase row exists.
func (db *DB) CreateAuctionPurchase(
	ctx context.Context,
	vehicle *VehicleAttrs,
	purchase *PurchaseAttrs,
) (auctionID, vehicleID uint, err error) {
	err = db.dbGorm.Transaction(func(tx *gorm.DB) error {
		dbTx := db.UseTransaction(tx)

		vehicle.Status = StatusAuction
		vehicleID, err = dbTx.createVehicle(ctx, vehicle)
		if err != nil {
			return err
		}

		status := purchase.Status
		if status == "" {
			status = StatusAuction
		}

		row := AuctionPurchase{
			VehicleID:       vehicleID,
			PurchaseDate:    purchase.PurchaseDate,
			PurchasePrice:   purchase.PurchasePrice,
			AdditionalCosts: purchase.AdditionalCosts,
			TotalInvestment: purchase.PurchasePrice + purchase.AdditionalCosts,
			ListPrice:       purchase.ListPrice,
			SoldPrice:       purchase.SoldPrice,
			Status:          status,
			Notes:           purchase.Notes,
		}
		applyDerivedFields(&row)

		err := gorm.G[AuctionPurchase](tx).Create(ctx, &row)
		if err != nil {
			return wrapErrorWithDetails(
				err,
				"create auction purchase",
				fmt.Sprintf("vehicle_id=%d", vehicleID),
			)
		}
		auctionID = row.ID

		return dbTx.syncVehicleStatus(ctx, vehicleID, status)
	})
	if err != nil {
		return 0, 0, err
	}

	return auctionID, vehicleID, nil
}

// UpdateAuctionPurchase applies partial updates to the purchase and its
// linked vehicle in one transaction, recomputes derived fields and keeps the
// vehicle status in sync. Returned URLs are replaced image blobs for
// post-commit cleanup.
func (db *DB) UpdateAuctionPurchase(
	ctx context.Context,
	auctionID uint,
	vupd *VehicleUpdate,
	pupd *PurchaseUpdate,
) ([]string, error) {
	detailString := fmt.Sprintf("auction_id=%d", auctionID)

	var oldImageURLs []string
	err := db.dbGorm.Transaction(func(tx *gorm.DB) error {
		dbTx := db.UseTransaction(tx)

		purchase, err := gorm.G[AuctionPurchase](tx).
			Where("id = ?", auctionID).
			First(ctx)
		if err != nil {
			return wrapErrorWithDetails(err, "fetch auction purchase", detailString)
		}

		if vupd != nil {
			oldImageURLs, err = dbTx.updateVehicle(ctx, purchase.VehicleID, vupd)
			if err != nil {
				return err
			}
		}

		if pupd == nil {
			return nil
		}

		previousStatus := purchase.Status
		setIfPresentField(&purchase.PurchaseDate, pupd.PurchaseDate)
		setIfPresentField(&purchase.PurchasePrice, pupd.PurchasePrice)
		setIfPresentField(&purchase.AdditionalCosts, pupd.AdditionalCosts)
		setIfPresentField(&purchase.Status, pupd.Status)
		if pupd.ListPrice != nil {
			purchase.ListPrice = pupd.ListPrice
		}
		if pupd.SoldPrice != nil {
			purchase.SoldPrice = pupd.SoldPrice
		}
		if pupd.Notes != nil {
			purchase.Notes = pupd.Notes
		}

		purchase.TotalInvestment = purchase.PurchasePrice + purchase.AdditionalCosts
		if purchase.Status == StatusSold && previousStatus != StatusSold {
			now := time.Now()
			purchase.SoldAt = &now
		}
		applyDerivedFields(&purchase)

		err = tx.WithContext(ctx).Save(&purchase).Error
		if err != nil {
			return wrapErrorWithDetails(err, "save auction purchase", detailString)
		}

		if pupd.Status != nil {
			return dbTx.syncVehicleStatus(ctx, purchase.VehicleID, purchase.Status)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return oldImageURLs, nil
}

// DeleteAuctionPurchase removes the purchase row and returns the vehicle to
// dealership inventory.
func (db *DB) DeleteAuctionPurchase(ctx context.Context, auctionID uint) error {
	detailString := fmt.Sprintf("auction_id=%d", auctionID)

	//nolint:wrapcheck // Error already wrapped
	return db.dbGorm.Transaction(func(tx *gorm.DB) error {
		dbTx := db.UseTransaction(tx)

		purchase, err := gorm.G[AuctionPurchase](tx).
			Where("id = ?", auctionID).
			First(ctx)
		if err != nil {
			return wrapErrorWithDetails(err, "fetch auction purchase", detailString)
		}

		if _, err := gorm.G[AuctionPurchase](tx).Where("id = ?", auctionID).Delete(ctx); err != nil {
			return wrapErrorWithDetails(err, "delete auction purchase", detailString)
		}

		return dbTx.syncVehicleStatus(ctx, purchase.VehicleID, StatusAvailable)
	})
}

// syncVehicleStatus mirrors the purchase lifecycle onto the vehicle row.
// Only the defined lifecycle states are mirrored, anything else leaves the
// vehicle untouched.
func (db *DB) syncVehicleStatus(
	ctx context.Context,
	vehicleID uint,
	purchaseStatus string,
) error {
	switch purchaseStatus {
	case StatusAuction, StatusSold, StatusAvailable:
	default:
		return nil
	}

	err := db.dbGorm.WithContext(ctx).
		Model(&Vehicle{}).
		Where("id = ?", vehicleID).
		Update("status", purchaseStatus).Error

	return wrapErrorWithDetails(
		err,
		"sync vehicle status",
		fmt.Sprintf("vehicle_id=%d, status=%s", vehicleID, purchaseStatus),
	)
}

func applyDerivedFields(purchase *AuctionPurchase) {
	if purchase.Status == StatusSold && purchase.SoldPrice != nil {
		profit := *purchase.SoldPrice - purchase.TotalInvestment
		purchase.Profit = &profit
	} else {
		purchase.Profit = nil
	}
}

// auctionSortColumns is the allow-list for purchase listing sort fields.
var auctionSortColumns = map[string]string{
	"id":               "auction_purchases.id",
	"purchase_date":    "auction_purchases.purchase_date",
	"purchase_price":   "auction_purchases.purchase_price",
	"total_investment": "auction_purchases.total_investment",
	"list_price":       "auction_purchases.list_price",
	"sold_price":       "auction_purchases.sold_price",
	"status":           "auction_purchases.status",
	"profit":           "auction_purchases.profit",
	"created_at":       "auction_purchases.created_at",
	"updated_at":       "auction_purchases.updated_at",
	"make":             "makes.name",
	"model":            "models.name",
	"year":             "vehicles.year",
	"vin":              "vehicles.vin",
}

type AuctionQuery struct {
	Limit     int
	Page      int
	Search    string
	SortBy    string
	SortOrder string
	Status    string
}

type AuctionRow struct {
	ID              uint       `json:"id"`
	VehicleID       uint       `json:"vehicleId"`
	Make            string     `json:"make"`
	Model           string     `json:"model"`
	Year            int        `json:"year"`
	VIN             *string    `json:"vin"`
	PurchaseDate    time.Time  `json:"purchaseDate"`
	PurchasePrice   float64    `json:"purchasePrice"`
	AdditionalCosts float64    `json:"additionalCosts"`
	TotalInvestment float64    `json:"totalInvestment"`
	ListPrice       *float64   `json:"listPrice"`
	SoldPrice       *float64   `json:"soldPrice"`
	Status          string     `json:"status"`
	Profit          *float64   `json:"profit"`
	SoldAt          *time.Time `json:"soldAt"`
	Notes           *string    `json:"notes"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	ImageURLs       []string   `json:"imageUrls"`
}

type AuctionPage struct {
	Purchases  []AuctionRow `json:"purchases"`
	Pagination Pagination   `json:"pagination"`
}

// ListAuctionPurchases returns one page of purchases joined with their
// vehicle, make and model, plus image URLs.
func (db *DB) ListAuctionPurchases(
	ctx context.Context,
	query *AuctionQuery,
) (*AuctionPage, error) {
	sortBy := query.SortBy
	if sortBy == "" {
		sortBy = "purchase_date"
	}
	sortColumn, ok := auctionSortColumns[sortBy]
	if !ok {
		return nil, &ValidationError{
			Reason: fmt.Sprintf(
				"invalid sortBy %q, allowed: %s",
				query.SortBy,
				strings.Join(sortedKeys(auctionSortColumns), ", "),
			),
		}
	}
	order := sortColumn + " ASC"
	if strings.EqualFold(query.SortOrder, "desc") {
		order = sortColumn + " DESC"
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	filtered := func() *gorm.DB {
		q := db.dbGorm.WithContext(ctx).
			Model(&AuctionPurchase{}).
			Joins("JOIN vehicles ON auction_purchases.vehicle_id = vehicles.id").
			Joins("JOIN makes ON vehicles.make_id = makes.id").
			Joins("JOIN models ON vehicles.model_id = models.id")
		if query.Status != "" {
			q = q.Where("auction_purchases.status = ?", query.Status)
		}
		if query.Search != "" {
			term := "%" + strings.ToLower(query.Search) + "%"
			q = q.Where(
				"LOWER(vehicles.vin) LIKE ? OR LOWER(makes.name) LIKE ? OR LOWER(models.name) LIKE ?",
				term, term, term,
			)
		}

		return q
	}

	var totalItems int64
	if err := filtered().Count(&totalItems).Error; err != nil {
		return nil, wrapErrorWithDetails(err, "count auction purchases", "")
	}

	var rows []AuctionRow
	err := filtered().
		Select(
			"auction_purchases.id AS id",
			"auction_purchases.vehicle_id AS vehicle_id",
			"makes.name AS make",
			"models.name AS model",
			"vehicles.year AS year",
			"vehicles.vin AS vin",
			"auction_purchases.purchase_date AS purchase_date",
			"auction_purchases.purchase_price AS purchase_price",
			"auction_purchases.additional_costs AS additional_costs",
			"auction_purchases.total_investment AS total_investment",
			"auction_purchases.list_price AS list_price",
			"auction_purchases.sold_price AS sold_price",
			"auction_purchases.status AS status",
			"auction_purchases.profit AS profit",
			"auction_purchases.sold_at AS sold_at",
			"auction_purchases.notes AS notes",
			"auction_purchases.created_at AS created_at",
			"auction_purchases.updated_at AS updated_at",
		).
		Order(order).
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&rows).Error
	if err != nil {
		return nil, wrapErrorWithDetails(err, "list auction purchases", "")
	}

	if err := db.attachImageURLs(ctx, rows); err != nil {
		return nil, err
	}

	return &AuctionPage{
		Purchases:  rows,
		Pagination: paginate(page, limit, totalItems),
	}, nil
}

func (db *DB) attachImageURLs(ctx context.Context, rows []AuctionRow) error {
	if len(rows) == 0 {
		return nil
	}

	vehicleIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		vehicleIDs = append(vehicleIDs, row.VehicleID)
	}

	sets, err := gorm.G[ImageSet](db.dbGorm).
		Where("vehicle_id IN ?", vehicleIDs).
		Find(ctx)
	if err != nil {
		return wrapErrorWithDetails(err, "fetch image sets", "")
	}

	byVehicle := make(map[uint][]string, len(sets))
	for _, set := range sets {
		byVehicle[set.VehicleID] = set.ImageURLs
	}
	for i := range rows {
		rows[i].ImageURLs = byVehicle[rows[i].VehicleID]
		if rows[i].ImageURLs == nil {
			rows[i].ImageURLs = []string{}
		}
	}

	return nil
}

type AuctionSummary struct {
	TotalInvestment   float64 `json:"totalInvestment"`
	TotalProfit       float64 `json:"totalProfit"`
	VehiclesPurchased int64   `json:"vehiclesPurchased"`
	VehiclesSold      int64   `json:"vehiclesSold"`
}

// AuctionSummary aggregates purchased count and invested total over the
// purchase date, and sold count and profit total over the dedicated sold
// date. Both bounds are inclusive day precision.
func (db *DB) AuctionSummary(
	ctx context.Context,
	dateFrom, dateTo time.Time,
	status string,
) (*AuctionSummary, error) {
	dayAfterTo := dateTo.AddDate(0, 0, 1)

	summary := &AuctionSummary{}

	purchased := db.dbGorm.WithContext(ctx).
		Model(&AuctionPurchase{}).
		Select("COUNT(*), COALESCE(SUM(total_investment), 0)").
		Where("purchase_date >= ? AND purchase_date < ?", dateFrom, dayAfterTo)
	if status != "" {
		purchased = purchased.Where("status = ?", status)
	}
	err := purchased.Row().
		Scan(&summary.VehiclesPurchased, &summary.TotalInvestment)
	if err != nil {
		return nil, wrapErrorWithDetails(err, "aggregate purchased vehicles", "")
	}

	sold := db.dbGorm.WithContext(ctx).
		Model(&AuctionPurchase{}).
		Select("COUNT(*), COALESCE(SUM(profit), 0)").
		Where("status = ?", StatusSold).
		Where("sold_price IS NOT NULL").
		Where("sold_at >= ? AND sold_at < ?", dateFrom, dayAfterTo)
	if status != "" {
		sold = sold.Where("status = ?", status)
	}
	err = sold.Row().Scan(&summary.VehiclesSold, &summary.TotalProfit)
	if err != nil {
		return nil, wrapErrorWithDetails(err, "aggregate sold vehicles", "")
	}

	return summary, nil
}

func setIfPresentField[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
