package orm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// VehicleAttrs is the already-validated input for a vehicle insert. Required
// fields (make, model, year, price, vin, transmission, body type) are
// enforced upstream; Status defaults to "available" when empty.
type VehicleAttrs struct {
	Make          string
	Model         string
	Year          int
	Price         float64
	Mileage       int
	VIN           *string
	ExteriorColor string
	InteriorColor string
	Transmission  string
	FuelType      string
	Engine        string
	BodyType      string
	Condition     string
	Status        string
	Description   string
	IsFeatured    bool
	CarfaxLink    string
	StockNumber   string
	Location      string

	Tags     []string
	Features []string
	Images   *ImageSetInput
}

// VehicleUpdate carries a partial write set: a nil pointer means "leave the
// field untouched". Tags, Features and Images follow full-replace semantics
// when present, including an explicit empty list.
type VehicleUpdate struct {
	Make          *string
	Model         *string
	Year          *int
	Price         *float64
	Mileage       *int
	VIN           *string
	ExteriorColor *string
	InteriorColor *string
	Transmission  *string
	FuelType      *string
	Engine        *string
	BodyType      *string
	Condition     *string
	Status        *string
	Description   *string
	IsFeatured    *bool
	CarfaxLink    *string
	StockNumber   *string
	Location      *string

	Tags     *[]string
	Features *[]string
	Images   *ImageSetInput
}

// CreateVehicle runs the full write pipeline in one transaction: VIN
// pre-check, make/model resolution, vehicle insert, tag/feature mappings and
// the image row. Any failure rolls everything back.
func (db *DB) CreateVehicle(
	ctx context.Context,
	attrs *VehicleAttrs,
) (uint, error) {
	var vehicleID uint

	err := db.dbGorm.Transaction(func(tx *gorm.DB) error {
		dbTx := db.UseTransaction(tx)

		id, err := dbTx.createVehicle(ctx, attrs)
		if err != nil {
			return err
		}
		vehicleID = id

		return nil
	})

	//nolint:wrapcheck // Error already wrapped
	return vehicleID, err
}

// createVehicle is the transaction body shared with the auction pipeline.
// The receiver must be transaction-bound.
func (db *DB) createVehicle(
	ctx context.Context,
	attrs *VehicleAttrs,
) (uint, error) {
	if err := db.checkVINAvailable(ctx, attrs.VIN, 0); err != nil {
		return 0, err
	}

	makeID, err := db.resolveMake(ctx, attrs.Make)
	if err != nil {
		return 0, err
	}

	modelID, err := db.resolveModel(ctx, makeID, attrs.Model)
	if err != nil {
		return 0, err
	}

	status := attrs.Status
	if status == "" {
		status = StatusAvailable
	}

	vehicle := Vehicle{
		MakeID:        makeID,
		ModelID:       modelID,
		Year:          attrs.Year,
		Price:         attrs.Price,
		Mileage:       attrs.Mileage,
		VIN:           attrs.VIN,
		ExteriorColor: attrs.ExteriorColor,
		InteriorColor: attrs.InteriorColor,
		Transmission:  attrs.Transmission,
		FuelType:      attrs.FuelType,
		Engine:        attrs.Engine,
		BodyType:      attrs.BodyType,
		Condition:     attrs.Condition,
		Status:        status,
		Description:   attrs.Description,
		IsFeatured:    attrs.IsFeatured,
		CarfaxLink:    attrs.CarfaxLink,
		StockNumber:   attrs.StockNumber,
		Location:      attrs.Location,
	}

	err = gorm.G[Vehicle](db.dbGorm).Create(ctx, &vehicle)
	if err != nil {
		return 0, wrapErrorWithDetails(
			err,
			"create vehicle",
			fmt.Sprintf("make=%s, model=%s, vin=%v", attrs.Make, attrs.Model, attrs.VIN),
		)
	}

	if len(attrs.Tags) > 0 {
		if err := db.setTags(ctx, vehicle.ID, attrs.Tags); err != nil {
			return 0, err
		}
	}
	if len(attrs.Features) > 0 {
		if err := db.setFeatures(ctx, vehicle.ID, attrs.Features); err != nil {
			return 0, err
		}
	}

	if attrs.Images != nil {
		if _, err := db.replaceImages(ctx, vehicle.ID, attrs.Images); err != nil {
			return 0, err
		}
	}

	return vehicle.ID, nil
}

// UpdateVehicle applies a partial update in one transaction and returns the
// URLs of any replaced image blobs. Those belong to the caller for
// post-commit cleanup; nothing is deleted remotely here.
func (db *DB) UpdateVehicle(
	ctx context.Context,
	vehicleID uint,
	upd *VehicleUpdate,
) ([]string, error) {
	var oldImageURLs []string

	err := db.dbGorm.Transaction(func(tx *gorm.DB) error {
		dbTx := db.UseTransaction(tx)

		urls, err := dbTx.updateVehicle(ctx, vehicleID, upd)
		if err != nil {
			return err
		}
		oldImageURLs = urls

		return nil
	})
	if err != nil {
		return nil, err
	}

	return oldImageURLs, nil
}

func (db *DB) updateVehicle(
	ctx context.Context,
	vehicleID uint,
	upd *VehicleUpdate,
) ([]string, error) {
	detailString := fmt.Sprintf("vehicle_id=%d", vehicleID)

	vehicle, err := gorm.G[Vehicle](db.dbGorm).
		Where("id = ?", vehicleID).
		First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(err, "fetch vehicle", detailString)
	}

	updates := map[string]any{}

	// Make/model resolution: a model supplied without a make is scoped under
	// the vehicle's current make.
	makeID := vehicle.MakeID
	if upd.Make != nil {
		makeID, err = db.resolveMake(ctx, *upd.Make)
		if err != nil {
			return nil, err
		}
		updates["make_id"] = makeID
	}
	if upd.Model != nil {
		modelID, err := db.resolveModel(ctx, makeID, *upd.Model)
		if err != nil {
			return nil, err
		}
		updates["model_id"] = modelID
	}

	if upd.VIN != nil && (vehicle.VIN == nil || *vehicle.VIN != *upd.VIN) {
		if err := db.checkVINAvailable(ctx, upd.VIN, vehicleID); err != nil {
			return nil, err
		}
		updates["vin"] = *upd.VIN
	}

	setIfPresent(updates, "year", upd.Year)
	setIfPresent(updates, "price", upd.Price)
	setIfPresent(updates, "mileage", upd.Mileage)
	setIfPresent(updates, "exterior_color", upd.ExteriorColor)
	setIfPresent(updates, "interior_color", upd.InteriorColor)
	setIfPresent(updates, "transmission", upd.Transmission)
	setIfPresent(updates, "fuel_type", upd.FuelType)
	setIfPresent(updates, "engine", upd.Engine)
	setIfPresent(updates, "body_type", upd.BodyType)
	setIfPresent(updates, "condition", upd.Condition)
	setIfPresent(updates, "status", upd.Status)
	setIfPresent(updates, "description", upd.Description)
	setIfPresent(updates, "is_featured", upd.IsFeatured)
	setIfPresent(updates, "carfax_link", upd.CarfaxLink)
	setIfPresent(updates, "stock_number", upd.StockNumber)
	setIfPresent(updates, "location", upd.Location)

	if len(updates) > 0 {
		err = db.dbGorm.WithContext(ctx).
			Model(&Vehicle{}).
			Where("id = ?", vehicleID).
			Updates(updates).Error
		if err != nil {
			return nil, wrapErrorWithDetails(err, "update vehicle", detailString)
		}
	}

	if upd.Tags != nil {
		if err := db.setTags(ctx, vehicleID, *upd.Tags); err != nil {
			return nil, err
		}
	}
	if upd.Features != nil {
		if err := db.setFeatures(ctx, vehicleID, *upd.Features); err != nil {
			return nil, err
		}
	}

	var oldImageURLs []string
	if upd.Images != nil {
		oldImageURLs, err = db.replaceImages(ctx, vehicleID, upd.Images)
		if err != nil {
			return nil, err
		}
	}

	return oldImageURLs, nil
}

// DeleteVehicle removes the vehicle and everything owned by it (image row,
// tag/feature mappings, auction purchase) and nulls the vehicle reference on
// payments and documents. It returns the image URLs for post-commit cleanup.
func (db *DB) DeleteVehicle(ctx context.Context, vehicleID uint) ([]string, error) {
	detailString := fmt.Sprintf("vehicle_id=%d", vehicleID)

	var imageURLs []string
	err := db.dbGorm.Transaction(func(tx *gorm.DB) error {
		_, err := gorm.G[Vehicle](tx).Where("id = ?", vehicleID).First(ctx)
		if err != nil {
			return wrapErrorWithDetails(err, "fetch vehicle", detailString)
		}

		images, err := gorm.G[ImageSet](tx).
			Where("vehicle_id = ?", vehicleID).
			Find(ctx)
		if err != nil {
			return wrapErrorWithDetails(err, "fetch image set", detailString)
		}
		if len(images) > 0 {
			imageURLs = images[0].ImageURLs
		}

		if _, err := gorm.G[TagMapping](tx).Where("vehicle_id = ?", vehicleID).Delete(ctx); err != nil {
			return wrapErrorWithDetails(err, "delete tag mappings", detailString)
		}
		if _, err := gorm.G[FeatureMapping](tx).Where("vehicle_id = ?", vehicleID).Delete(ctx); err != nil {
			return wrapErrorWithDetails(err, "delete feature mappings", detailString)
		}
		if _, err := gorm.G[ImageSet](tx).Where("vehicle_id = ?", vehicleID).Delete(ctx); err != nil {
			return wrapErrorWithDetails(err, "delete image set", detailString)
		}
		if _, err := gorm.G[AuctionPurchase](tx).Where("vehicle_id = ?", vehicleID).Delete(ctx); err != nil {
			return wrapErrorWithDetails(err, "delete auction purchase", detailString)
		}

		// Payments and documents survive the vehicle, only the reference
		// goes away.
		err = tx.WithContext(ctx).Model(&Payment{}).
			Where("vehicle_id = ?", vehicleID).
			Update("vehicle_id", nil).Error
		if err != nil {
			return wrapErrorWithDetails(err, "detach payments", detailString)
		}
		err = tx.WithContext(ctx).Model(&Document{}).
			Where("vehicle_id = ?", vehicleID).
			Update("vehicle_id", nil).Error
		if err != nil {
			return wrapErrorWithDetails(err, "detach documents", detailString)
		}

		if _, err := gorm.G[Vehicle](tx).Where("id = ?", vehicleID).Delete(ctx); err != nil {
			return wrapErrorWithDetails(err, "delete vehicle", detailString)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return imageURLs, nil
}

// VehicleDetail is a fully joined read model for one vehicle.
type VehicleDetail struct {
	Vehicle
	MakeName  string    `json:"make"`
	ModelName string    `json:"model"`
	Tags      []string  `json:"tags"`
	Features  []string  `json:"features"`
	Images    *ImageSet `json:"images,omitempty"`
}

func (db *DB) GetVehicle(ctx context.Context, vehicleID uint) (*VehicleDetail, error) {
	detailString := fmt.Sprintf("vehicle_id=%d", vehicleID)

	vehicle, err := gorm.G[Vehicle](db.dbGorm).
		Preload("Make", nil).
		Preload("Model", nil).
		Where("id = ?", vehicleID).
		First(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(err, "fetch vehicle", detailString)
	}

	detail := &VehicleDetail{
		Vehicle:   vehicle,
		MakeName:  vehicle.Make.Name,
		ModelName: vehicle.Model.Name,
		Tags:      []string{},
		Features:  []string{},
	}

	err = db.dbGorm.WithContext(ctx).
		Model(&Tag{}).
		Joins("JOIN tag_mappings tm ON tm.tag_id = tags.id").
		Where("tm.vehicle_id = ?", vehicleID).
		Order("tags.name").
		Pluck("tags.name", &detail.Tags).Error
	if err != nil {
		return nil, wrapErrorWithDetails(err, "fetch tags", detailString)
	}

	err = db.dbGorm.WithContext(ctx).
		Model(&Feature{}).
		Joins("JOIN feature_mappings fm ON fm.feature_id = features.id").
		Where("fm.vehicle_id = ?", vehicleID).
		Order("features.name").
		Pluck("features.name", &detail.Features).Error
	if err != nil {
		return nil, wrapErrorWithDetails(err, "fetch features", detailString)
	}

	images, err := gorm.G[ImageSet](db.dbGorm).
		Where("vehicle_id = ?", vehicleID).
		Find(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(err, "fetch image set", detailString)
	}
	if len(images) > 0 {
		detail.Images = &images[0]
	}

	return detail, nil
}

// checkVINAvailable rejects a duplicate VIN before any row is written. The
// unique index on the column is the backstop for requests racing past this
// check.
func (db *DB) checkVINAvailable(
	ctx context.Context,
	vin *string,
	excludeVehicleID uint,
) error {
	if vin == nil || *vin == "" {
		return nil
	}

	query := db.dbGorm.WithContext(ctx).
		Model(&Vehicle{}).
		Where("vin = ?", *vin)
	if excludeVehicleID != 0 {
		query = query.Where("id <> ?", excludeVehicleID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return wrapErrorWithDetails(err, "check vin", "vin="+*vin)
	}
	if count > 0 {
		return &ConflictError{
			Conflict: "a vehicle with VIN " + *vin + " already exists",
		}
	}

	return nil
}

func setIfPresent[T any](updates map[string]any, column string, value *T) {
	if value != nil {
		updates[column] = *value
	}
}
