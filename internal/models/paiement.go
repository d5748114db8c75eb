package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TypePaiement string

const (
	PaiementLoyer        TypePaiement = "loyer"
	PaiementCaution      TypePaiement = "caution"
	PaiementSouscription TypePaiement = "souscription"
	PaiementDroitTerre   TypePaiement = "droit_terre"
	PaiementFacture      TypePaiement = "facture"
)

// Paiement - règlement rattaché à un contrat (location, souscription ou
// facture selon Type). Immuable après création ; seule l'annulation
// d'import de recouvrement peut le supprimer. Chaque paiement correspond
// à exactement un MouvementCaisse.
type Paiement struct {
	ID              uint            `gorm:"primaryKey"`
	AgenceID        uint            `gorm:"index;not null"`
	Type            TypePaiement    `gorm:"size:20;not null;index"`
	ContratID       uint            `gorm:"index;not null"` // id de la location, souscription ou facture
	Montant         decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	DatePaiement    time.Time       `gorm:"index;not null"`
	ModePaiement    string          `gorm:"size:30;not null"` // especes / cheque / virement / mobile_money
	Reference       string          `gorm:"size:100"`         // référence externe optionnelle
	PeriodeCouverte string          `gorm:"size:7;index"`     // "AAAA-MM", optionnel
	AgentID         *uint           `gorm:"index"`            // agent recouvreur à l'origine du versement
	ImportID        *uint           `gorm:"index"`            // lot d'import de recouvrement
	CreatedAt       time.Time
}
