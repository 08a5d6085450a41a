package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dealership-backend/orm"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Request parsing and validation live here, before any transaction is
// opened. The writers only ever see already-validated, strongly-typed data.

var (
	transmissionTypes = []string{"automatic", "manual", "cvt", "semi_automatic"}
	bodyTypes         = []string{
		"sedan", "suv", "truck", "coupe", "convertible",
		"hatchback", "minivan", "van", "wagon",
	}
	fuelTypes = []string{
		"gasoline", "diesel", "electric", "hybrid", "plug_in_hybrid",
	}
	conditionTypes = []string{
		"new", "used", "certified_pre_owned", "excellent", "good", "fair",
	}
	vehicleStatuses = []string{
		"available", "sold", "pending", "maintenance", "auction",
	}

	vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)
)

const (
	maxImageFiles    = 10
	maxImageFileSize = 5 * 1024 * 1024
	imagesFieldName  = "images"
)

// extToMime maps allowed image extensions to the MIME type they must carry.
var extToMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var validate = validator.New()

type createVehicleRequest struct {
	Make         string  `validate:"required"`
	Model        string  `validate:"required"`
	Year         int     `validate:"required"`
	Price        float64 `validate:"required,gt=0"`
	VIN          string  `validate:"required"`
	Transmission string  `validate:"required"`
	BodyType     string  `validate:"required"`
	Mileage      int     `validate:"min=0"`
}

// formReader wraps a parsed multipart form so handlers can distinguish
// "field absent" from "field present but empty".
type formReader struct {
	values map[string][]string
}

func newFormReader(c *gin.Context) (*formReader, []*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, &orm.ValidationError{
			Reason: "request body must be multipart/form-data: " + err.Error(),
		}
	}

	return &formReader{values: form.Value}, form.File[imagesFieldName], nil
}

func (f *formReader) get(key string) (string, bool) {
	values, ok := f.values[key]
	if !ok || len(values) == 0 {
		return "", false
	}

	return values[0], true
}

// list returns all values for a repeated field. A single empty value is
// treated as an explicitly supplied empty list.
func (f *formReader) list(key string) ([]string, bool) {
	values, ok := f.values[key]
	if !ok {
		return nil, false
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			result = append(result, v)
		}
	}

	return result, true
}

func (f *formReader) getInt(key string) (int, bool, error) {
	raw, ok := f.get(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, &orm.ValidationError{
			Reason: fmt.Sprintf("%s must be an integer, got %q", key, raw),
		}
	}

	return value, true, nil
}

func (f *formReader) getFloat(key string) (float64, bool, error) {
	raw, ok := f.get(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, &orm.ValidationError{
			Reason: fmt.Sprintf("%s must be a number, got %q", key, raw),
		}
	}

	return value, true, nil
}

func (f *formReader) getBool(key string) (bool, bool) {
	raw, ok := f.get(key)
	if !ok {
		return false, false
	}

	return raw == "true", true
}

// parseCreateVehicle validates the add-vehicle form and produces the typed
// insert attributes.
func parseCreateVehicle(c *gin.Context) (*orm.VehicleAttrs, []*multipart.FileHeader, error) {
	form, files, err := newFormReader(c)
	if err != nil {
		return nil, nil, err
	}

	attrs, err := vehicleAttrsFromForm(form, files)
	if err != nil {
		return nil, nil, err
	}

	return attrs, files, nil
}

func vehicleAttrsFromForm(form *formReader, files []*multipart.FileHeader) (*orm.VehicleAttrs, error) {
	var err error
	attrs := &orm.VehicleAttrs{}
	attrs.Make, _ = form.get("make")
	attrs.Model, _ = form.get("model")
	attrs.Transmission, _ = form.get("transmission")
	attrs.BodyType, _ = form.get("body_type")
	attrs.FuelType, _ = form.get("fuel_type")
	attrs.Condition, _ = form.get("condition")
	attrs.Status, _ = form.get("status")
	attrs.ExteriorColor, _ = form.get("exterior_color")
	attrs.InteriorColor, _ = form.get("interior_color")
	attrs.Engine, _ = form.get("engine")
	attrs.Description, _ = form.get("description")
	attrs.CarfaxLink, _ = form.get("carfax_link")
	attrs.StockNumber, _ = form.get("stock_number")
	attrs.Location, _ = form.get("location")
	attrs.IsFeatured, _ = form.getBool("is_featured")

	if attrs.Year, _, err = form.getInt("year"); err != nil {
		return nil, err
	}
	if attrs.Price, _, err = form.getFloat("price"); err != nil {
		return nil, err
	}
	if attrs.Mileage, _, err = form.getInt("mileage"); err != nil {
		return nil, err
	}

	vin, _ := form.get("vin")

	req := createVehicleRequest{
		Make:         attrs.Make,
		Model:        attrs.Model,
		Year:         attrs.Year,
		Price:        attrs.Price,
		VIN:          vin,
		Transmission: attrs.Transmission,
		BodyType:     attrs.BodyType,
		Mileage:      attrs.Mileage,
	}
	if err := validate.Struct(&req); err != nil {
		return nil, translateValidatorError(err)
	}

	if err := checkVIN(vin); err != nil {
		return nil, err
	}
	attrs.VIN = &vin

	if err := checkYear(attrs.Year); err != nil {
		return nil, err
	}
	if err := checkEnum("transmission", attrs.Transmission, transmissionTypes, true); err != nil {
		return nil, err
	}
	if err := checkEnum("body_type", attrs.BodyType, bodyTypes, true); err != nil {
		return nil, err
	}
	if err := checkOptionalEnums(attrs.FuelType, attrs.Condition, attrs.Status); err != nil {
		return nil, err
	}
	if err := checkLink(attrs.CarfaxLink); err != nil {
		return nil, err
	}

	if tags, ok := form.list("tags"); ok {
		attrs.Tags = tags
	}
	if features, ok := form.list("features"); ok {
		attrs.Features = features
	}

	if err := checkImageFiles(files); err != nil {
		return nil, err
	}

	return attrs, nil
}

// parseUpdateVehicle builds a partial write set: only fields present in the
// form end up in the update.
func parseUpdateVehicle(c *gin.Context) (*orm.VehicleUpdate, []*multipart.FileHeader, error) {
	form, files, err := newFormReader(c)
	if err != nil {
		return nil, nil, err
	}

	upd := &orm.VehicleUpdate{}

	setString := func(key string, dst **string) {
		if value, ok := form.get(key); ok {
			*dst = &value
		}
	}
	setString("make", &upd.Make)
	setString("model", &upd.Model)
	setString("vin", &upd.VIN)
	setString("exterior_color", &upd.ExteriorColor)
	setString("interior_color", &upd.InteriorColor)
	setString("transmission", &upd.Transmission)
	setString("fuel_type", &upd.FuelType)
	setString("engine", &upd.Engine)
	setString("body_type", &upd.BodyType)
	setString("condition", &upd.Condition)
	setString("status", &upd.Status)
	setString("description", &upd.Description)
	setString("carfax_link", &upd.CarfaxLink)
	setString("stock_number", &upd.StockNumber)
	setString("location", &upd.Location)

	if year, ok, err := form.getInt("year"); err != nil {
		return nil, nil, err
	} else if ok {
		if err := checkYear(year); err != nil {
			return nil, nil, err
		}
		upd.Year = &year
	}
	if price, ok, err := form.getFloat("price"); err != nil {
		return nil, nil, err
	} else if ok {
		if price <= 0 {
			return nil, nil, &orm.ValidationError{
				Reason: fmt.Sprintf("price must be greater than 0, got %v", price),
			}
		}
		upd.Price = &price
	}
	if mileage, ok, err := form.getInt("mileage"); err != nil {
		return nil, nil, err
	} else if ok {
		if mileage < 0 {
			return nil, nil, &orm.ValidationError{Reason: "mileage cannot be negative"}
		}
		upd.Mileage = &mileage
	}
	if featured, ok := form.getBool("is_featured"); ok {
		upd.IsFeatured = &featured
	}

	if upd.VIN != nil {
		if err := checkVIN(*upd.VIN); err != nil {
			return nil, nil, err
		}
	}
	if upd.Transmission != nil {
		if err := checkEnum("transmission", *upd.Transmission, transmissionTypes, true); err != nil {
			return nil, nil, err
		}
	}
	if upd.BodyType != nil {
		if err := checkEnum("body_type", *upd.BodyType, bodyTypes, true); err != nil {
			return nil, nil, err
		}
	}
	fuel, condition, status := "", "", ""
	if upd.FuelType != nil {
		fuel = *upd.FuelType
	}
	if upd.Condition != nil {
		condition = *upd.Condition
	}
	if upd.Status != nil {
		status = *upd.Status
	}
	if err := checkOptionalEnums(fuel, condition, status); err != nil {
		return nil, nil, err
	}
	if upd.CarfaxLink != nil {
		if err := checkLink(*upd.CarfaxLink); err != nil {
			return nil, nil, err
		}
	}

	if tags, ok := form.list("tags"); ok {
		upd.Tags = &tags
	}
	if features, ok := form.list("features"); ok {
		upd.Features = &features
	}

	if err := checkImageFiles(files); err != nil {
		return nil, nil, err
	}

	return upd, files, nil
}

// parseCreatePurchase validates the auction-purchase form: the full vehicle
// create set plus the purchase fields.
func parseCreatePurchase(c *gin.Context) (*orm.VehicleAttrs, *orm.PurchaseAttrs, []*multipart.FileHeader, error) {
	form, files, err := newFormReader(c)
	if err != nil {
		return nil, nil, nil, err
	}

	// Auction intakes usually carry list_price instead of a retail price;
	// use it as the vehicle price when no explicit price is given.
	if _, ok := form.get("price"); !ok {
		if listPrice, ok := form.get("list_price"); ok {
			form.values["price"] = []string{listPrice}
		}
	}

	attrs, err := vehicleAttrsFromForm(form, files)
	if err != nil {
		return nil, nil, nil, err
	}

	purchase := &orm.PurchaseAttrs{}

	rawDate, ok := form.get("purchase_date")
	if !ok {
		return nil, nil, nil, &orm.ValidationError{Reason: "purchase_date is required"}
	}
	purchase.PurchaseDate, err = parseDate(rawDate, "purchase_date")
	if err != nil {
		return nil, nil, nil, err
	}

	price, ok, err := form.getFloat("purchase_price")
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok {
		return nil, nil, nil, &orm.ValidationError{Reason: "purchase_price is required"}
	}
	if price <= 0 {
		return nil, nil, nil, &orm.ValidationError{
			Reason: fmt.Sprintf("purchase_price must be greater than 0, got %v", price),
		}
	}
	purchase.PurchasePrice = price

	if costs, ok, err := form.getFloat("additional_costs"); err != nil {
		return nil, nil, nil, err
	} else if ok {
		if costs < 0 {
			return nil, nil, nil, &orm.ValidationError{Reason: "additional_costs cannot be negative"}
		}
		purchase.AdditionalCosts = costs
	}
	if listPrice, ok, err := form.getFloat("list_price"); err != nil {
		return nil, nil, nil, err
	} else if ok {
		purchase.ListPrice = &listPrice
	}
	if soldPrice, ok, err := form.getFloat("sold_price"); err != nil {
		return nil, nil, nil, err
	} else if ok {
		purchase.SoldPrice = &soldPrice
	}
	if notes, ok := form.get("notes"); ok {
		purchase.Notes = &notes
	}
	purchase.Status, _ = form.get("purchase_status")
	if err := checkEnum("purchase_status", purchase.Status, vehicleStatuses, false); err != nil {
		return nil, nil, nil, err
	}

	return attrs, purchase, files, nil
}

// parseUpdatePurchase builds partial write sets for the purchase and its
// linked vehicle in one pass.
func parseUpdatePurchase(c *gin.Context) (*orm.VehicleUpdate, *orm.PurchaseUpdate, []*multipart.FileHeader, error) {
	vupd, files, err := parseUpdateVehicle(c)
	if err != nil {
		return nil, nil, nil, err
	}

	// MultipartForm is cached on the request, this re-reads the same parse.
	form, _, err := newFormReader(c)
	if err != nil {
		return nil, nil, nil, err
	}

	pupd := &orm.PurchaseUpdate{}

	if rawDate, ok := form.get("purchase_date"); ok {
		date, err := parseDate(rawDate, "purchase_date")
		if err != nil {
			return nil, nil, nil, err
		}
		pupd.PurchaseDate = &date
	}
	if price, ok, err := form.getFloat("purchase_price"); err != nil {
		return nil, nil, nil, err
	} else if ok {
		if price <= 0 {
			return nil, nil, nil, &orm.ValidationError{
				Reason: fmt.Sprintf("purchase_price must be greater than 0, got %v", price),
			}
		}
		pupd.PurchasePrice = &price
	}
	if costs, ok, err := form.getFloat("additional_costs"); err != nil {
		return nil, nil, nil, err
	} else if ok {
		if costs < 0 {
			return nil, nil, nil, &orm.ValidationError{Reason: "additional_costs cannot be negative"}
		}
		pupd.AdditionalCosts = &costs
	}
	if listPrice, ok, err := form.getFloat("list_price"); err != nil {
		return nil, nil, nil, err
	} else if ok {
		pupd.ListPrice = &listPrice
	}
	if soldPrice, ok, err := form.getFloat("sold_price"); err != nil {
		return nil, nil, nil, err
	} else if ok {
		pupd.SoldPrice = &soldPrice
	}
	if notes, ok := form.get("notes"); ok {
		pupd.Notes = &notes
	}
	if status, ok := form.get("purchase_status"); ok {
		if err := checkEnum("purchase_status", status, vehicleStatuses, true); err != nil {
			return nil, nil, nil, err
		}
		pupd.Status = &status
	}

	return vupd, pupd, files, nil
}

func checkVIN(vin string) error {
	if !vinPattern.MatchString(vin) {
		return &orm.ValidationError{
			Reason: "vin must be 17 characters from [A-HJ-NPR-Z0-9]",
		}
	}

	return nil
}

func checkYear(year int) error {
	maxYear := time.Now().Year() + 1
	if year < 1900 || year > maxYear {
		return &orm.ValidationError{
			Reason: fmt.Sprintf("year must be between 1900 and %d", maxYear),
		}
	}

	return nil
}

func checkEnum(field, value string, allowed []string, required bool) error {
	if value == "" && !required {
		return nil
	}
	for _, candidate := range allowed {
		if value == candidate {
			return nil
		}
	}

	return &orm.ValidationError{
		Reason: fmt.Sprintf(
			"invalid %s %q, allowed: %s",
			field,
			value,
			strings.Join(allowed, ", "),
		),
	}
}

func checkOptionalEnums(fuelType, condition, status string) error {
	if err := checkEnum("fuel_type", fuelType, fuelTypes, false); err != nil {
		return err
	}
	if err := checkEnum("condition", condition, conditionTypes, false); err != nil {
		return err
	}

	return checkEnum("status", status, vehicleStatuses, false)
}

func checkLink(link string) error {
	if link == "" {
		return nil
	}
	parsed, err := url.Parse(link)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return &orm.ValidationError{
			Reason: "carfax_link must be an http(s) URL",
		}
	}

	return nil
}

func checkImageFiles(files []*multipart.FileHeader) error {
	if len(files) > maxImageFiles {
		return &orm.ValidationError{
			Reason: fmt.Sprintf("at most %d image files allowed per upload", maxImageFiles),
		}
	}

	for _, file := range files {
		if file.Size > maxImageFileSize {
			return &orm.ValidationError{
				Reason: fmt.Sprintf("file %q exceeds the 5MB limit", file.Filename),
			}
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		wantMime, ok := extToMime[ext]
		if !ok {
			return &orm.ValidationError{
				Reason: fmt.Sprintf(
					"file %q has an unsupported extension, allowed: jpg, jpeg, png, gif, webp",
					file.Filename,
				),
			}
		}

		gotMime := file.Header.Get("Content-Type")
		if gotMime != wantMime {
			return &orm.ValidationError{
				Reason: fmt.Sprintf(
					"file %q: extension %s expects content type %s, got %s",
					file.Filename,
					ext,
					wantMime,
					gotMime,
				),
			}
		}
	}

	return nil
}

func parseDate(raw, field string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, &orm.ValidationError{
			Reason: fmt.Sprintf("%s must be a YYYY-MM-DD date, got %q", field, raw),
		}
	}

	return date, nil
}

// translateValidatorError turns validator tag failures into the same
// ValidationError shape the custom checks raise.
func translateValidatorError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return &orm.ValidationError{Reason: err.Error()}
	}

	fe := fieldErrors[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return &orm.ValidationError{Reason: field + " is required"}
	case "gt":
		return &orm.ValidationError{
			Reason: fmt.Sprintf("%s must be greater than %s", field, fe.Param()),
		}
	case "min":
		return &orm.ValidationError{
			Reason: fmt.Sprintf("%s must be at least %s", field, fe.Param()),
		}
	default:
		return &orm.ValidationError{
			Reason: fmt.Sprintf("%s failed %s validation", field, fe.Tag()),
		}
	}
}
