package server

import (
	"net/http"
	"time"

	"dealership-backend/orm"

	"github.com/gin-gonic/gin"
)

// createPurchase handles POST /auction/purchase. The vehicle and the purchase
// record are created in one transaction, image blobs go up first.
func (s *Server) createPurchase(c *gin.Context) {
	ctx := c.Request.Context()

	attrs, purchase, files, err := parseCreatePurchase(c)
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

	auctionID, vehicleID, err := s.db.CreateAuctionPurchase(ctx, attrs, purchase)
	if err != nil {
		if images != nil {
			s.discardUploads(ctx, images.URLs)
		}
		respondError(c, err)

		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":     "success",
		"message":    "auction purchase recorded",
		"auction_id": auctionID,
		"vehicle_id": vehicleID,
	})
}

// updatePurchase handles PUT /auction/purchase/:id. Vehicle fields and
// purchase fields share the form; both partial updates run in one
// transaction.
func (s *Server) updatePurchase(c *gin.Context) {
	ctx := c.Request.Context()

	auctionID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, err)

		return
	}

	vupd, pupd, files, err := parseUpdatePurchase(c)
	if err != nil {
		respondError(c, err)

		return
	}

	images, err := s.uploadImages(ctx, files)
	if err != nil {
		respondError(c, err)

		return
	}
	vupd.Images = images

	oldImageURLs, err := s.db.UpdateAuctionPurchase(ctx, auctionID, vupd, pupd)
	if err != nil {
		if images != nil {
			s.discardUploads(ctx, images.URLs)
		}
		respondError(c, err)

		return
	}

	cleanup := s.store.Delete(ctx, oldImageURLs)

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "auction purchase updated",
		"cleanup": cleanup,
	})
}

// deletePurchase handles DELETE /auction/purchase/:id. The vehicle itself
// stays in inventory and returns to "available".
func (s *Server) deletePurchase(c *gin.Context) {
	auctionID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, err)

		return
	}

	if err := s.db.DeleteAuctionPurchase(c.Request.Context(), auctionID); err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             "success",
		"message":            "auction purchase deleted",
		"deleted_auction_id": auctionID,
	})
}

// listPurchases handles GET /auction/purchases.
func (s *Server) listPurchases(c *gin.Context) {
	query := &orm.AuctionQuery{
		Limit:     intQuery(c, "limit"),
		Page:      intQuery(c, "page"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Status:    c.Query("status"),
	}

	page, err := s.db.ListAuctionPurchases(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"purchases":  page.Purchases,
		"pagination": page.Pagination,
	})
}

// purchaseSummary handles GET /auction/summary. The date window defaults to
// all recorded history up to today, both bounds inclusive.
func (s *Server) purchaseSummary(c *gin.Context) {
	dateFrom := time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	if raw := c.Query("dateFrom"); raw != "" {
		parsed, err := parseDate(raw, "dateFrom")
		if err != nil {
			respondError(c, err)

			return
		}
		dateFrom = parsed
	}

	dateTo := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := c.Query("dateTo"); raw != "" {
		parsed, err := parseDate(raw, "dateTo")
		if err != nil {
			respondError(c, err)

			return
		}
		dateTo = parsed
	}

	status := c.Query("status")
	if err := checkEnum("status", status, vehicleStatuses, false); err != nil {
		respondError(c, err)

		return
	}

	summary, err := s.db.AuctionSummary(c.Request.Context(), dateFrom, dateTo, status)
	if err != nil {
		respondError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"summary": summary,
	})
}
