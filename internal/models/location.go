package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StatutLocation string

const (
	LocationActive   StatutLocation = "active"
	LocationResiliee StatutLocation = "resiliee"
)

// Location - bail de location. Les champs financiers dérivés
// (dette_totale, montant_paye) sont mis à jour par les cas d'usage de
// paiement, jamais par le moteur d'écriture lui-même.
type Location struct {
	ID           uint            `gorm:"primaryKey"`
	AgenceID     uint            `gorm:"index;not null"`
	Agence       Agence          `gorm:"foreignKey:AgenceID"`
	ClientID     uint            `gorm:"index;not null"`
	Client       Client          `gorm:"foreignKey:ClientID"`
	BienID       uint            `gorm:"index;not null"`
	Bien         Bien            `gorm:"foreignKey:BienID"`
	LoyerMensuel decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Caution      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	DebutBail    time.Time       `gorm:"not null"`
	DetteTotale  decimal.Decimal `gorm:"type:numeric(14,2);not null"` // loyers dus non réglés
	MontantPaye  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Statut       StatutLocation  `gorm:"size:20;not null;default:active"`
	ImportID     *uint           `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
