package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vente - vente au comptant encaissée en caisse
type Vente struct {
	ID          uint            `gorm:"primaryKey"`
	AgenceID    uint            `gorm:"index;not null"`
	ArticleID   *uint           `gorm:"index"` // article vendu, optionnel
	Designation string          `gorm:"size:200"`
	Quantite    int             `gorm:"not null;default:1"`
	Montant     decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	DateVente   time.Time       `gorm:"index;not null"`
	CreatedAt   time.Time
}
