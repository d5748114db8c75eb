package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StatutFacture string

const (
	FactureImpayee StatutFacture = "impayee"
	FacturePartiel StatutFacture = "partiel"
	FacturePayee   StatutFacture = "payee"
)

// FactureFournisseur - facture à régler à un fournisseur.
// statut recalculé à chaque paiement : payee si solde <= 0, sinon partiel.
type FactureFournisseur struct {
	ID           uint            `gorm:"primaryKey"`
	AgenceID     uint            `gorm:"index;not null"`
	Agence       Agence          `gorm:"foreignKey:AgenceID"`
	Fournisseur  string          `gorm:"size:150;not null"`
	Numero       string          `gorm:"size:50"`
	MontantTotal decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	MontantPaye  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Solde        decimal.Decimal `gorm:"type:numeric(14,2);not null"` // montant_total - montant_paye
	Statut       StatutFacture   `gorm:"size:20;not null;default:impayee"`
	DateEcheance *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
