package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recu - reçu remis au client après un paiement. Une ligne par paiement
// (le client système porte les reçus de paiement fournisseur). Jamais
// modifié ; supprimable uniquement via l'annulation d'import.
type Recu struct {
	ID            uint            `gorm:"primaryKey"`
	AgenceID      uint            `gorm:"index;not null"`
	Numero        string          `gorm:"size:30;uniqueIndex;not null"` // ex: R-000123
	ClientID      uint            `gorm:"index;not null"`
	ReferenceID   uint            `gorm:"index;not null"` // id du paiement à l'origine
	TypeOperation string          `gorm:"size:30;not null"`
	MontantTotal  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	PeriodeDebut  string          `gorm:"size:7"` // "AAAA-MM", optionnel
	PeriodeFin    string          `gorm:"size:7"`
	EmisLe        time.Time       `gorm:"not null"`
	CreatedAt     time.Time
}

// CompteurRecu - séquence de numérotation par préfixe (R-, F-).
// Incrémenté sous verrou dans la transaction de l'appelant : garantit
// l'unicité des numéros même sous forte concurrence, contrairement à
// l'ancien schéma horodatage+aléa.
type CompteurRecu struct {
	ID      uint   `gorm:"primaryKey"`
	Prefixe string `gorm:"size:5;uniqueIndex;not null"`
	Valeur  uint64 `gorm:"not null"`
}
