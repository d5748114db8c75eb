package caisse

import (
	"errors"

	"immogest-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SoldeCourant retourne le solde de caisse courant de l'agence : la
// ligne d'instantané la plus récente, ou à défaut le repli du journal
// (entrées - sorties), ou 0 si la caisse n'a jamais bougé. Sans effet
// de bord.
func SoldeCourant(db *gorm.DB, agenceID uint) (decimal.Decimal, error) {
	var solde models.SoldeCaisse
	err := db.Where("agence_id = ?", agenceID).Order("updated_at DESC").First(&solde).Error
	if err == nil {
		return solde.Solde, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, err
	}

	// Pas d'instantané : replier le journal.
	type ligne struct {
		Total decimal.NullDecimal
	}
	var l ligne
	if err := db.Model(&models.MouvementCaisse{}).
		Select("SUM(CASE WHEN sens = 'entree' THEN montant ELSE -montant END) as total").
		Where("agence_id = ?", agenceID).
		Scan(&l).Error; err != nil {
		return decimal.Zero, err
	}
	if !l.Total.Valid {
		return decimal.Zero, nil
	}
	return l.Total.Decimal, nil
}
