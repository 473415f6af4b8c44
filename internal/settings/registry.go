// Package settings is the administrator-editable key/value registry backing
// the payment display.
package settings

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campusprint/internal/database"
)

// Keys the payment display reads. The registry itself is schema-free; only
// this package knows the raw key strings.
const (
	KeyQRCode  = "qr_code_url"
	KeyUPIID   = "upi_id"
	KeyContact = "contact_number"
)

// Registry stores flat key/value settings with upsert semantics. There is no
// deletion path and no cross-key transaction: each key is written
// independently.
type Registry struct {
	db *gorm.DB
}

// NewRegistry builds the registry.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// GetAll returns every stored setting as a key-to-value map.
func (r *Registry) GetAll(ctx context.Context) (map[string]string, error) {
	var rows []database.AppSetting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// Upsert inserts key or overwrites its existing value. A single atomic row
// write either way.
func (r *Registry) Upsert(ctx context.Context, key, value string) error {
	setting := database.AppSetting{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("upsert setting %q: %w", key, err)
	}
	return nil
}

// PaymentSettings is the typed view the submission flow reads. QRCodeKey is
// the storage key of the QR image; callers resolve it to a public URL at the
// edge.
type PaymentSettings struct {
	QRCodeKey     string
	UPIID         string
	ContactNumber string
}

// Payment returns the typed payment display settings. Absent keys come back
// as empty strings; the display simply hides them.
func (r *Registry) Payment(ctx context.Context) (PaymentSettings, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return PaymentSettings{}, err
	}
	return PaymentSettings{
		QRCodeKey:     all[KeyQRCode],
		UPIID:         all[KeyUPIID],
		ContactNumber: all[KeyContact],
	}, nil
}
