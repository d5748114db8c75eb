package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StatutSouscription string

const (
	SouscriptionEnCours StatutSouscription = "en_cours"
	SouscriptionSoldee  StatutSouscription = "soldee"
)

// Souscription - souscription de droit de terre payée par mensualités
type Souscription struct {
	ID                   uint               `gorm:"primaryKey"`
	AgenceID             uint               `gorm:"index;not null"`
	Agence               Agence             `gorm:"foreignKey:AgenceID"`
	ClientID             uint               `gorm:"index;not null"`
	Client               Client             `gorm:"foreignKey:ClientID"`
	BienID               uint               `gorm:"index;not null"`
	Bien                 Bien               `gorm:"foreignKey:BienID"`
	MontantTotal         decimal.Decimal    `gorm:"type:numeric(14,2);not null"`
	MontantPaye          decimal.Decimal    `gorm:"type:numeric(14,2);not null"`
	SoldeRestant         decimal.Decimal    `gorm:"type:numeric(14,2);not null"`
	MensualiteDroitTerre decimal.Decimal    `gorm:"type:numeric(14,2);not null"` // mensualité indicative
	Statut               StatutSouscription `gorm:"size:20;not null;default:en_cours"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
