package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SoldeCaisse - instantané du solde de caisse, une seule ligne par agence.
// Créée paresseusement au premier mouvement, jamais supprimée.
// Mutée uniquement par le moteur d'écriture (caisse.Poster).
type SoldeCaisse struct {
	ID        uint            `gorm:"primaryKey"`
	AgenceID  uint            `gorm:"uniqueIndex;not null"`
	Solde     decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SensMouvement string

const (
	SensEntree SensMouvement = "entree"
	SensSortie SensMouvement = "sortie"
)

type CategorieMouvement string

const (
	CategorieLoyer        CategorieMouvement = "paiement_loyer"
	CategorieDroitTerre   CategorieMouvement = "paiement_droit_terre"
	CategorieSouscription CategorieMouvement = "paiement_souscription"
	CategorieFacture      CategorieMouvement = "paiement_facture"
	CategorieCaution      CategorieMouvement = "caution"
	CategorieVente        CategorieMouvement = "vente"
	CategorieManuel       CategorieMouvement = "manuel"
)

// MouvementCaisse - ligne du journal de caisse, immuable une fois créée.
// Invariant : solde_apres = solde_avant + montant (entrée) ou
// solde_avant - montant (sortie), et solde_avant est la valeur du
// SoldeCaisse juste avant l'écriture. Suppression uniquement via
// l'annulation d'import de recouvrement.
type MouvementCaisse struct {
	ID           uint               `gorm:"primaryKey"`
	AgenceID     uint               `gorm:"index;not null"`
	Montant      decimal.Decimal    `gorm:"type:numeric(14,2);not null"` // toujours positif
	Sens         SensMouvement      `gorm:"size:10;not null"`
	Categorie    CategorieMouvement `gorm:"size:30;not null;index"`
	SoldeAvant   decimal.Decimal    `gorm:"type:numeric(14,2);not null"`
	SoldeApres   decimal.Decimal    `gorm:"type:numeric(14,2);not null"`
	LienID       *uint              `gorm:"index"`    // paiement ou vente à l'origine du mouvement
	Beneficiaire string             `gorm:"size:150"` // pour les sorties
	ModePaiement string             `gorm:"size:30"`
	Reference    string             `gorm:"size:100"`
	CreatedAt    time.Time
}
