package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPurchaseFields(vin string) map[string][]string {
	fields := validVehicleFields(vin)
	delete(fields, "price")
	fields["list_price"] = []string{"15000"}
	fields["purchase_date"] = []string{"2024-03-15"}
	fields["purchase_price"] = []string{"10000"}
	fields["additional_costs"] = []string{"1500"}

	return fields
}

func createPurchase(t *testing.T, srv *Server, vin string) (auctionID, vehicleID int) {
	t.Helper()

	body, contentType := buildForm(t, validPurchaseFields(vin))
	recorder, response := doRequest(
		t, srv, http.MethodPost, "/auction/purchase", body, contentType,
	)
	require.Equal(t, http.StatusCreated, recorder.Code)

	auction, _ := response["auction_id"].(float64)
	vehicle, _ := response["vehicle_id"].(float64)

	return int(auction), int(vehicle)
}

func TestCreatePurchaseHandler(t *testing.T) {
	t.Parallel()

	t.Run("creates vehicle and purchase together", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)

		auctionID, vehicleID := createPurchase(t, srv, "1HGBH41JXMN109186")
		assert.NotZero(t, auctionID)
		assert.NotZero(t, vehicleID)

		recorder, response := doRequest(
			t,
			srv,
			http.MethodGet,
			fmt.Sprintf("/inventory/vehicle/%d", vehicleID),
			nil,
			"",
		)
		require.Equal(t, http.StatusOK, recorder.Code)
		vehicle, _ := response["vehicle"].(map[string]any)
		assert.Equal(t, "auction", vehicle["status"])
		// list_price doubles as the vehicle price on auction intake
		assert.InDelta(t, 15000, vehicle["price"], 0.001)
	})

	t.Run("missing purchase date is rejected", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)

		fields := validPurchaseFields("1HGBH41JXMN109186")
		delete(fields, "purchase_date")
		body, contentType := buildForm(t, fields)

		recorder, response := doRequest(
			t, srv, http.MethodPost, "/auction/purchase", body, contentType,
		)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, codeValidation, response["code"])
		assert.Zero(t, countVehicles(t, srv))
	})

	t.Run("malformed purchase date is rejected", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)

		fields := validPurchaseFields("1HGBH41JXMN109186")
		fields["purchase_date"] = []string{"15.03.2024"}
		body, contentType := buildForm(t, fields)

		recorder, response := doRequest(
			t, srv, http.MethodPost, "/auction/purchase", body, contentType,
		)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, codeValidation, response["code"])
	})
}

func TestUpdatePurchaseHandler(t *testing.T) {
	t.Parallel()

	t.Run("marking sold syncs the vehicle", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)
		auctionID, vehicleID := createPurchase(t, srv, "1HGBH41JXMN109186")

		body, contentType := buildForm(t, map[string][]string{
			"purchase_status": {"sold"},
			"sold_price":      {"16000"},
		})
		recorder, _ := doRequest(
			t,
			srv,
			http.MethodPut,
			fmt.Sprintf("/auction/purchase/%d", auctionID),
			body,
			contentType,
		)
		require.Equal(t, http.StatusOK, recorder.Code)

		_, response := doRequest(t, srv, http.MethodGet, "/auction/purchases", nil, "")
		purchases, _ := response["purchases"].([]any)
		require.Len(t, purchases, 1)
		purchase, _ := purchases[0].(map[string]any)
		assert.Equal(t, "sold", purchase["status"])
		assert.InDelta(t, 4500, purchase["profit"], 0.001)
		assert.NotNil(t, purchase["soldAt"])

		recorder, response = doRequest(
			t,
			srv,
			http.MethodGet,
			fmt.Sprintf("/inventory/vehicle/%d", vehicleID),
			nil,
			"",
		)
		require.Equal(t, http.StatusOK, recorder.Code)
		vehicle, _ := response["vehicle"].(map[string]any)
		assert.Equal(t, "sold", vehicle["status"])
	})

	t.Run("invalid purchase status is rejected", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)
		auctionID, _ := createPurchase(t, srv, "1HGBH41JXMN109186")

		body, contentType := buildForm(t, map[string][]string{
			"purchase_status": {"vanished"},
		})
		recorder, response := doRequest(
			t,
			srv,
			http.MethodPut,
			fmt.Sprintf("/auction/purchase/%d", auctionID),
			body,
			contentType,
		)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, codeValidation, response["code"])
	})

	t.Run("unknown purchase returns 404", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)

		body, contentType := buildForm(t, map[string][]string{
			"additional_costs": {"100"},
		})
		recorder, response := doRequest(
			t, srv, http.MethodPut, "/auction/purchase/4711", body, contentType,
		)
		require.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Equal(t, codeNotFound, response["code"])
	})
}

func TestDeletePurchaseHandler(t *testing.T) {
	t.Parallel()

	t.Run("keeps the vehicle and frees it up", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)
		auctionID, vehicleID := createPurchase(t, srv, "1HGBH41JXMN109186")

		recorder, _ := doRequest(
			t,
			srv,
			http.MethodDelete,
			fmt.Sprintf("/auction/purchase/%d", auctionID),
			nil,
			"",
		)
		require.Equal(t, http.StatusOK, recorder.Code)

		_, response := doRequest(t, srv, http.MethodGet, "/auction/purchases", nil, "")
		purchases, _ := response["purchases"].([]any)
		assert.Empty(t, purchases)

		recorder, response = doRequest(
			t,
			srv,
			http.MethodGet,
			fmt.Sprintf("/inventory/vehicle/%d", vehicleID),
			nil,
			"",
		)
		require.Equal(t, http.StatusOK, recorder.Code)
		vehicle, _ := response["vehicle"].(map[string]any)
		assert.Equal(t, "available", vehicle["status"])
	})
}

func TestListPurchasesHandler(t *testing.T) {
	t.Parallel()

	t.Run("invalid sortBy is rejected", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)

		recorder, response := doRequest(
			t, srv, http.MethodGet, "/auction/purchases?sortBy=shady", nil, "",
		)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, codeValidation, response["code"])
	})

	t.Run("lists joined purchase rows", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)
		createPurchase(t, srv, "1HGBH41JXMN109186")

		recorder, response := doRequest(
			t, srv, http.MethodGet, "/auction/purchases", nil, "",
		)
		require.Equal(t, http.StatusOK, recorder.Code)
		purchases, _ := response["purchases"].([]any)
		require.Len(t, purchases, 1)
		purchase, _ := purchases[0].(map[string]any)
		assert.Equal(t, "Toyota", purchase["make"])
		assert.InDelta(t, 11500, purchase["totalInvestment"], 0.001)
	})
}

func TestPurchaseSummaryHandler(t *testing.T) {
	t.Parallel()

	t.Run("defaults cover recorded history", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)
		createPurchase(t, srv, "1HGBH41JXMN109186")

		recorder, response := doRequest(
			t, srv, http.MethodGet, "/auction/summary", nil, "",
		)
		require.Equal(t, http.StatusOK, recorder.Code)
		summary, _ := response["summary"].(map[string]any)
		assert.InDelta(t, 1, summary["vehiclesPurchased"], 0.001)
		assert.InDelta(t, 11500, summary["totalInvestment"], 0.001)
	})

	t.Run("window outside the data reports zeros", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)
		createPurchase(t, srv, "1HGBH41JXMN109186")

		recorder, response := doRequest(
			t,
			srv,
			http.MethodGet,
			"/auction/summary?dateFrom=1950-01-01&dateTo=1950-12-31",
			nil,
			"",
		)
		require.Equal(t, http.StatusOK, recorder.Code)
		summary, _ := response["summary"].(map[string]any)
		assert.InDelta(t, 0, summary["vehiclesPurchased"], 0.001)
	})

	t.Run("malformed dateFrom is rejected", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)

		recorder, response := doRequest(
			t, srv, http.MethodGet, "/auction/summary?dateFrom=yesterday", nil, "",
		)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, codeValidation, response["code"])
	})
}
