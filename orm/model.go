package orm

import (
	"time"
)

// Make and Model are normalized lookup rows. They are created on first
// reference and never updated or deleted by the write pipeline.
type Make struct {
	ID   uint   `gorm:"primaryKey"                   json:"id"`
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name"`
}

type Model struct {
	ID     uint   `gorm:"primaryKey"                                            json:"id"`
	MakeID uint   `gorm:"not null;uniqueIndex:idx_models_make_name"             json:"makeId"`
	Name   string `gorm:"size:100;not null;uniqueIndex:idx_models_make_name"    json:"name"`

	Make Make `gorm:"foreignKey:MakeID" json:"-"`
}

// Tag and Feature are free-form labels attached to vehicles through explicit
// mapping rows. Names are matched byte-for-byte, no case folding.
type Tag struct {
	ID   uint   `gorm:"primaryKey"                    json:"id"`
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name"`
}

type Feature struct {
	ID   uint   `gorm:"primaryKey"                    json:"id"`
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name"`
}

type TagMapping struct {
	VehicleID uint `gorm:"primaryKey" json:"vehicleId"`
	TagID     uint `gorm:"primaryKey" json:"tagId"`
}

type FeatureMapping struct {
	VehicleID uint `gorm:"primaryKey" json:"vehicleId"`
	FeatureID uint `gorm:"primaryKey" json:"featureId"`
}

// Vehicle statuses. Any other value is accepted as free text on the column
// but has no lifecycle handling.
const (
	StatusAvailable   = "available"
	StatusSold        = "sold"
	StatusPending     = "pending"
	StatusMaintenance = "maintenance"
	StatusAuction     = "auction"
)

type Vehicle struct {
	ID      uint    `gorm:"primaryKey"            json:"id"`
	MakeID  uint    `gorm:"not null"              json:"makeId"`
	ModelID uint    `gorm:"not null"              json:"modelId"`
	Year    int     `gorm:"not null"              json:"year"`
	Price   float64 `gorm:"not null"              json:"price"`
	Mileage int     `gorm:"default:0"             json:"mileage"`
	VIN     *string `gorm:"column:vin;size:17;uniqueIndex" json:"vin"`

	ExteriorColor string `gorm:"size:50"  json:"exteriorColor"`
	InteriorColor string `gorm:"size:50"  json:"interiorColor"`
	Transmission  string `gorm:"size:20;not null" json:"transmission"`
	FuelType      string `gorm:"size:20"  json:"fuelType"`
	Engine        string `gorm:"size:100" json:"engine"`
	BodyType      string `gorm:"size:20;not null" json:"bodyType"`
	Condition     string `gorm:"size:30"  json:"condition"`
	Status        string `gorm:"size:20;not null;default:available" json:"status"`
	Description   string `gorm:"type:text" json:"description"`
	IsFeatured    bool   `gorm:"default:false" json:"isFeatured"`
	CarfaxLink    string `gorm:"size:500" json:"carfaxLink"`
	StockNumber   string `gorm:"size:50"  json:"stockNumber"`
	Location      string `gorm:"size:100" json:"location"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Make  Make  `gorm:"foreignKey:MakeID"  json:"make,omitempty"`
	Model Model `gorm:"foreignKey:ModelID" json:"model,omitempty"`
}

// ImageMetadata mirrors one uploaded file, stored positionally parallel to
// ImageSet.ImageURLs.
type ImageMetadata struct {
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// ImageSet holds all image URLs for one vehicle. The row is replaced
// wholesale on update, never merged.
type ImageSet struct {
	VehicleID    uint            `gorm:"primaryKey"                     json:"vehicleId"`
	ImageURLs    []string        `gorm:"type:jsonb;serializer:json"     json:"imageUrls"`
	Metadata     []ImageMetadata `gorm:"type:jsonb;serializer:json"     json:"metadata"`
	PrimaryIndex int             `gorm:"not null;default:0"             json:"primaryIndex"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuctionPurchase links 1:1 to a vehicle bought at auction.
// TotalInvestment and Profit are derived server-side, never trusted from
// input. SoldAt is set when the purchase transitions to "sold" so summary
// aggregation does not have to lean on UpdatedAt as a sale-date proxy.
type AuctionPurchase struct {
	ID              uint       `gorm:"primaryKey"           json:"id"`
	VehicleID       uint       `gorm:"not null;uniqueIndex" json:"vehicleId"`
	PurchaseDate    time.Time  `gorm:"not null"             json:"purchaseDate"`
	PurchasePrice   float64    `gorm:"not null"             json:"purchasePrice"`
	AdditionalCosts float64    `gorm:"not null;default:0"   json:"additionalCosts"`
	TotalInvestment float64    `gorm:"not null"             json:"totalInvestment"`
	ListPrice       *float64   `json:"listPrice"`
	SoldPrice       *float64   `json:"soldPrice"`
	Status          string     `gorm:"size:20;not null;default:auction" json:"status"`
	Profit          *float64   `json:"profit"`
	SoldAt          *time.Time `json:"soldAt"`
	Notes           *string    `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Vehicle Vehicle `gorm:"foreignKey:VehicleID" json:"-"`
}

// Payment and Document reference vehicles loosely: deleting a vehicle nulls
// the reference instead of cascading.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	VehicleID *uint     `json:"vehicleId"`
	Amount    float64   `gorm:"not null"   json:"amount"`
	Status    string    `gorm:"size:20;not null;default:pending" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Document struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	VehicleID *uint     `json:"vehicleId"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	URL       string    `gorm:"size:500"   json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}
