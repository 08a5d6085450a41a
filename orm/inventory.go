package orm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// inventorySortColumns is the allow-list for inventory listing sort fields.
var inventorySortColumns = map[string]string{
	"date_added": "vehicles.created_at",
	"price":      "vehicles.price",
	"year":       "vehicles.year",
	"mileage":    "vehicles.mileage",
	"make":       "makes.name",
}

// bodyTypeCategories are categories that map directly onto body_type.
var bodyTypeCategories = map[string]bool{
	"sedan": true, "suv": true, "truck": true, "coupe": true,
	"convertible": true, "hatchback": true, "minivan": true, "van": true,
	"wagon": true,
}

type InventoryQuery struct {
	Category  string
	Limit     int
	Page      int
	Search    string
	SortBy    string
	SortOrder string
	Status    string
}

type InventoryRow struct {
	ID         uint      `json:"id"`
	Make       string    `json:"make"`
	Model      string    `json:"model"`
	Year       int       `json:"year"`
	VIN        *string   `json:"vin"`
	Price      float64   `json:"price"`
	Mileage    int       `json:"mileage"`
	Status     string    `json:"status"`
	BodyType   string    `json:"bodyType"`
	IsFeatured bool      `json:"isFeatured"`
	Location   string    `json:"location"`
	DateAdded  time.Time `json:"dateAdded"`
	ImageURL   string    `json:"imageUrl"`
	Tags       []string  `json:"tags"`
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNext      bool  `json:"hasNext"`
	HasPrevious  bool  `json:"hasPrevious"`
}

type InventoryStats struct {
	TotalAvailable int64            `json:"totalAvailable"`
	TotalSold      int64            `json:"totalSold"`
	Categories     map[string]int64 `json:"categories"`
}

type InventoryPage struct {
	Vehicles   []InventoryRow `json:"vehicles"`
	Pagination Pagination     `json:"pagination"`
	Filters    InventoryStats `json:"filters"`
}

// ListInventory returns one filtered, sorted page of vehicles plus filter
// statistics over the same filter set.
func (db *DB) ListInventory(
	ctx context.Context,
	query *InventoryQuery,
) (*InventoryPage, error) {
	sortBy := query.SortBy
	if sortBy == "" {
		sortBy = "date_added"
	}
	sortColumn, ok := inventorySortColumns[sortBy]
	if !ok {
		return nil, &ValidationError{
			Reason: fmt.Sprintf(
				"invalid sort_by %q, allowed: %s",
				query.SortBy,
				strings.Join(sortedKeys(inventorySortColumns), ", "),
			),
		}
	}
	order := sortColumn + " DESC"
	if strings.EqualFold(query.SortOrder, "asc") {
		order = sortColumn + " ASC"
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
			Model(&Vehicle{}).
			Joins("JOIN makes ON vehicles.make_id = makes.id").
			Joins("JOIN models ON vehicles.model_id = models.id")
		if query.Search != "" {
			term := "%" + strings.ToLower(query.Search) + "%"
			q = q.Where(
				"LOWER(makes.name) LIKE ? OR LOWER(models.name) LIKE ? OR LOWER(vehicles.vin) LIKE ? OR CAST(vehicles.year AS TEXT) LIKE ?",
				term, term, term, term,
			)
		}
		if query.Status != "" && query.Status != "all" {
			q = q.Where("vehicles.status = ?", query.Status)
		}
		switch {
		case query.Category == "" || query.Category == "all":
		case bodyTypeCategories[query.Category]:
			q = q.Where("vehicles.body_type = ?", query.Category)
		case query.Category == "electric":
			q = q.Where("vehicles.fuel_type = ?", "electric")
		default:
			// Remaining categories (luxury, compact, ...) are tag names.
			q = q.Where(
				"EXISTS (SELECT 1 FROM tag_mappings tm JOIN tags t ON tm.tag_id = t.id WHERE tm.vehicle_id = vehicles.id AND t.name = ?)",
				query.Category,
			)
		}

		return q
	}

	var totalItems int64
	if err := filtered().Count(&totalItems).Error; err != nil {
		return nil, wrapErrorWithDetails(err, "count inventory", "")
	}

	var rows []InventoryRow
	err := filtered().
		Select(
			"vehicles.id AS id",
			"makes.name AS make",
			"models.name AS model",
			"vehicles.year AS year",
			"vehicles.vin AS vin",
			"vehicles.price AS price",
			"vehicles.mileage AS mileage",
			"vehicles.status AS status",
			"vehicles.body_type AS body_type",
			"vehicles.is_featured AS is_featured",
			"vehicles.location AS location",
			"vehicles.created_at AS date_added",
		).
		Order(order).
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&rows).Error
	if err != nil {
		return nil, wrapErrorWithDetails(err, "list inventory", "")
	}

	if err := db.decorateInventoryRows(ctx, rows); err != nil {
		return nil, err
	}

	stats, err := db.inventoryStats(ctx)
	if err != nil {
		return nil, err
	}

	return &InventoryPage{
		Vehicles:   rows,
		Pagination: paginate(page, limit, totalItems),
		Filters:    *stats,
	}, nil
}

// decorateInventoryRows attaches tags and the primary image URL to each row.
func (db *DB) decorateInventoryRows(ctx context.Context, rows []InventoryRow) error {
	if len(rows) == 0 {
		return nil
	}

	vehicleIDs := make([]uint, 0, len(rows))
	for i := range rows {
		rows[i].Tags = []string{}
		vehicleIDs = append(vehicleIDs, rows[i].ID)
	}

	type tagRow struct {
		VehicleID uint
		Name      string
	}
	var tagRows []tagRow
	err := db.dbGorm.WithContext(ctx).
		Model(&Tag{}).
		Select("tm.vehicle_id AS vehicle_id", "tags.name AS name").
		Joins("JOIN tag_mappings tm ON tm.tag_id = tags.id").
		Where("tm.vehicle_id IN ?", vehicleIDs).
		Order("tags.name").
		Scan(&tagRows).Error
	if err != nil {
		return wrapErrorWithDetails(err, "fetch inventory tags", "")
	}

	tagsByVehicle := make(map[uint][]string)
	for _, tr := range tagRows {
		tagsByVehicle[tr.VehicleID] = append(tagsByVehicle[tr.VehicleID], tr.Name)
	}

	sets, err := gorm.G[ImageSet](db.dbGorm).
		Where("vehicle_id IN ?", vehicleIDs).
		Find(ctx)
	if err != nil {
		return wrapErrorWithDetails(err, "fetch inventory images", "")
	}
	primaryByVehicle := make(map[uint]string, len(sets))
	for _, set := range sets {
		if len(set.ImageURLs) == 0 {
			continue
		}
		idx := set.PrimaryIndex
		if idx < 0 || idx >= len(set.ImageURLs) {
			idx = 0
		}
		primaryByVehicle[set.VehicleID] = set.ImageURLs[idx]
	}

	for i := range rows {
		if tags, ok := tagsByVehicle[rows[i].ID]; ok {
			rows[i].Tags = tags
		}
		rows[i].ImageURL = primaryByVehicle[rows[i].ID]
	}

	return nil
}

// inventoryStats aggregates status, body type, fuel and tag counts over the
// whole inventory.
func (db *DB) inventoryStats(ctx context.Context) (*InventoryStats, error) {
	type countRow struct {
		Key   string
		Count int64
	}

	stats := &InventoryStats{Categories: map[string]int64{}}

	var statusRows []countRow
	err := db.dbGorm.WithContext(ctx).
		Model(&Vehicle{}).
		Select("status AS key", "COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error
	if err != nil {
		return nil, wrapErrorWithDetails(err, "aggregate status counts", "")
	}
	for _, row := range statusRows {
		switch row.Key {
		case StatusAvailable:
			stats.TotalAvailable = row.Count
		case StatusSold:
			stats.TotalSold = row.Count
		}
	}

	var bodyRows []countRow
	err = db.dbGorm.WithContext(ctx).
		Model(&Vehicle{}).
		Select("body_type AS key", "COUNT(*) AS count").
		Group("body_type").
		Scan(&bodyRows).Error
	if err != nil {
		return nil, wrapErrorWithDetails(err, "aggregate body type counts", "")
	}
	for _, row := range bodyRows {
		if bodyTypeCategories[row.Key] {
			stats.Categories[row.Key] = row.Count
		}
	}

	var electric int64
	err = db.dbGorm.WithContext(ctx).
		Model(&Vehicle{}).
		Where("fuel_type = ?", "electric").
		Count(&electric).Error
	if err != nil {
		return nil, wrapErrorWithDetails(err, "aggregate fuel counts", "")
	}
	stats.Categories["electric"] = electric

	var tagRows []countRow
	err = db.dbGorm.WithContext(ctx).
		Model(&Tag{}).
		Select("tags.name AS key", "COUNT(DISTINCT tm.vehicle_id) AS count").
		Joins("JOIN tag_mappings tm ON tm.tag_id = tags.id").
		Where("tags.name IN ?", []string{"luxury", "compact"}).
		Group("tags.name").
		Scan(&tagRows).Error
	if err != nil {
		return nil, wrapErrorWithDetails(err, "aggregate tag counts", "")
	}
	for _, row := range tagRows {
		stats.Categories[row.Key] = row.Count
	}

	return stats, nil
}

func paginate(page, limit int, totalItems int64) Pagination {
	totalPages := int((totalItems + int64(limit) - 1) / int64(limit))

	return Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		ItemsPerPage: limit,
		HasNext:      page < totalPages,
		HasPrevious:  page > 1,
	}
}

func sortedKeys(columns map[string]string) []string {
	keys := make([]string, 0, len(columns))
	for key := range columns {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}
