package server

import (
	"net/http"
	"strconv"
	"time"

	"dealership-backend/orm"

	"github.com/gin-gonic/gin"
)

// createVehicle handles POST /inventory/vehicle. Image blobs are uploaded
// before the transaction opens; if the transaction fails the fresh blobs are
// discarded so the store never holds images of a vehicle that was not
// created.
func (s *Server) createVehicle(c *gin.Context) {
	ctx := c.Request.Context()

	attrs, files, err := parseCreateVehicle(c)
	if err != nil {
		respondError(c, err)

		return
	}

	images, err := s.uploadImages(ctx, files)
	if err != nil {
		respondError(c, err)

		return
	}
	attrs.Images = images

	vehicleID, err := s.db.CreateVehicle(ctx, attrs)
	if err != nil {
		if images != nil {
			s.discardUploads(ctx, images.URLs)
		}
		respondError(c, err)

		return
	}

	detail, err := s.db.GetVehicle(ctx, vehicleID)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "vehicle added to inventory",
		"vehicle": detail,
	})
}

// updateVehicle handles PUT /inventory/vehicle/:id. When new images come in,
// the replaced blobs are deleted only after the transaction has committed;
// their per-item outcomes are reported under "cleanup".
func (s *Server) updateVehicle(c *gin.Context) {
	ctx := c.Request.Context()

	vehicleID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, err)

		return
	}

	upd, files, err := parseUpdateVehicle(c)
	if err != nil {
		respondError(c, err)

		return
	}

	images, err := s.uploadImages(ctx, files)
	if err != nil {
		respondError(c, err)

		return
	}
	upd.Images = images

	oldImageURLs, err := s.db.UpdateVehicle(ctx, vehicleID, upd)
	if err != nil {
		if images != nil {
			s.discardUploads(ctx, images.URLs)
		}
		respondError(c, err)

		return
	}

	cleanup := s.store.Delete(ctx, oldImageURLs)

	detail, err := s.db.GetVehicle(ctx, vehicleID)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "vehicle updated",
		"vehicle": detail,
		"cleanup": cleanup,
	})
}

// deleteVehicle handles DELETE /inventory/vehicle/:id. Blob deletion runs
// after the database transaction so a failed delete never orphans rows.
func (s *Server) deleteVehicle(c *gin.Context) {
	ctx := c.Request.Context()

	vehicleID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, err)

		return
	}

	imageURLs, err := s.db.DeleteVehicle(ctx, vehicleID)
	if err != nil {
		respondError(c, err)

		return
	}

	cleanup := s.store.Delete(ctx, imageURLs)

	c.JSON(http.StatusOK, gin.H{
		"status":             "success",
		"message":            "vehicle removed from inventory",
		"deleted_vehicle_id": vehicleID,
		"deleted_at":         time.Now().UTC(),
		"cleanup":            cleanup,
	})
}

// getVehicle handles GET /inventory/vehicle/:id.
func (s *Server) getVehicle(c *gin.Context) {
	vehicleID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, err)

		return
	}

	detail, err := s.db.GetVehicle(c.Request.Context(), vehicleID)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"vehicle": detail,
	})
}

// listVehicles handles GET /inventory/vehicles.
func (s *Server) listVehicles(c *gin.Context) {
	query := &orm.InventoryQuery{
		Category:  c.Query("category"),
		Limit:     intQuery(c, "limit"),
		Page:      intQuery(c, "page"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Status:    c.Query("status"),
	}

	page, err := s.db.ListInventory(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"vehicles":   page.Vehicles,
		"pagination": page.Pagination,
		"filters":    page.Filters,
	})
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || value == 0 {
		return 0, &orm.ValidationError{
			Reason: name + " must be a positive integer, got " + strconv.Quote(raw),
		}
	}

	return uint(value), nil
}

// intQuery reads an integer query parameter, 0 when absent or malformed. The
// listing layer applies its own defaults for 0.
func intQuery(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}

	return value
}
