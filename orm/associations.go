package orm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Association reconciliation: each setter replaces the vehicle's entire
// mapping set with the supplied one (delete-all, insert-current-set). Callers
// that want "leave untouched" simply do not call the setter. All setters must
// run on a transaction-bound handle.

func (db *DB) setTags(ctx context.Context, vehicleID uint, names []string) error {
	_, err := gorm.G[TagMapping](db.dbGorm).
		Where("vehicle_id = ?", vehicleID).
		Delete(ctx)
	if err != nil {
		return wrapErrorWithDetails(
			err,
			"delete tag mappings",
			fmt.Sprintf("vehicle_id=%d", vehicleID),
		)
	}

	for _, name := range dedupeNames(names) {
		tagID, err := db.resolveTag(ctx, name)
		if err != nil {
			return err
		}

		err = gorm.G[TagMapping](db.dbGorm).
			Create(ctx, &TagMapping{VehicleID: vehicleID, TagID: tagID})
		if err != nil {
			return wrapErrorWithDetails(
				err,
				"create tag mapping",
				fmt.Sprintf("vehicle_id=%d, tag=%s", vehicleID, name),
			)
		}
	}

	return nil
}

func (db *DB) setFeatures(ctx context.Context, vehicleID uint, names []string) error {
	_, err := gorm.G[FeatureMapping](db.dbGorm).
		Where("vehicle_id = ?", vehicleID).
		Delete(ctx)
	if err != nil {
		return wrapErrorWithDetails(
			err,
			"delete feature mappings",
			fmt.Sprintf("vehicle_id=%d", vehicleID),
		)
	}

	for _, name := range dedupeNames(names) {
		featureID, err := db.resolveFeature(ctx, name)
		if err != nil {
			return err
		}

		err = gorm.G[FeatureMapping](db.dbGorm).
			Create(ctx, &FeatureMapping{VehicleID: vehicleID, FeatureID: featureID})
		if err != nil {
			return wrapErrorWithDetails(
				err,
				"create feature mapping",
				fmt.Sprintf("vehicle_id=%d, feature=%s", vehicleID, name),
			)
		}
	}

	return nil
}

// ImageSetInput carries already-uploaded image URLs into the transactional
// pipeline. Uploads happen before the transaction opens; only the committed
// row may reference them.
type ImageSetInput struct {
	URLs         []string
	Metadata     []ImageMetadata
	PrimaryIndex int
}

func (in *ImageSetInput) validate() error {
	if len(in.URLs) != len(in.Metadata) {
		return &ValidationError{
			Reason: fmt.Sprintf(
				"image urls and metadata must be parallel: %d urls, %d metadata entries",
				len(in.URLs),
				len(in.Metadata),
			),
		}
	}
	if in.PrimaryIndex < 0 || in.PrimaryIndex >= len(in.URLs) {
		return &ValidationError{
			Reason: fmt.Sprintf(
				"primary index %d out of range for %d images",
				in.PrimaryIndex,
				len(in.URLs),
			),
		}
	}

	return nil
}

// replaceImages swaps the vehicle's image row for the supplied set and
// returns the URLs of the replaced blobs. The caller deletes those from the
// remote store only after the transaction commits.
func (db *DB) replaceImages(
	ctx context.Context,
	vehicleID uint,
	in *ImageSetInput,
) ([]string, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	detailString := fmt.Sprintf("vehicle_id=%d", vehicleID)

	var oldURLs []string
	existing, err := gorm.G[ImageSet](db.dbGorm).
		Where("vehicle_id = ?", vehicleID).
		Find(ctx)
	if err != nil {
		return nil, wrapErrorWithDetails(err, "fetch image set", detailString)
	}
	if len(existing) > 0 {
		oldURLs = existing[0].ImageURLs

		_, err = gorm.G[ImageSet](db.dbGorm).
			Where("vehicle_id = ?", vehicleID).
			Delete(ctx)
		if err != nil {
			return nil, wrapErrorWithDetails(err, "delete image set", detailString)
		}
	}

	err = gorm.G[ImageSet](db.dbGorm).Create(ctx, &ImageSet{
		VehicleID:    vehicleID,
		ImageURLs:    in.URLs,
		Metadata:     in.Metadata,
		PrimaryIndex: in.PrimaryIndex,
	})
	if err != nil {
		return nil, wrapErrorWithDetails(err, "create image set", detailString)
	}

	return oldURLs, nil
}

func dedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}

	return result
}
