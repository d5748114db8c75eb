package paiement

import (
	"time"

	"immogest-backend/internal/caisse"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommandeVente - vente au comptant encaissée en caisse
type CommandeVente struct {
	AgenceID    uint
	ArticleID   *uint
	Designation string
	Quantite    int
	Montant     decimal.Decimal
	DateVente   time.Time
}

// ResultatVente - identifiants produits par l'enregistrement d'une vente
type ResultatVente struct {
	VenteID    uint
	SoldeAvant decimal.Decimal
	SoldeApres decimal.Decimal
}

// EnregistrerVente crée la vente et l'entrée de caisse correspondante
// dans la même unité transactionnelle.
func EnregistrerVente(db *gorm.DB, cmd CommandeVente) (*ResultatVente, error) {
	if !cmd.Montant.IsPositive() {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Le montant doit être supérieur à 0")
	}
	if cmd.Quantite <= 0 {
		cmd.Quantite = 1
	}
	if cmd.DateVente.IsZero() {
		cmd.DateVente = time.Now()
	}

	var res ResultatVente
	err := caisse.DansTransaction(db, func(tx *gorm.DB) error {
		vente := models.Vente{
			AgenceID:    cmd.AgenceID,
			ArticleID:   cmd.ArticleID,
			Designation: cmd.Designation,
			Quantite:    cmd.Quantite,
			Montant:     cmd.Montant,
			DateVente:   cmd.DateVente,
		}
		if err := tx.Create(&vente).Error; err != nil {
			return err
		}

		mouvement, err := caisse.Poster(tx, cmd.AgenceID, caisse.Mouvement{
			Montant:   cmd.Montant,
			Sens:      models.SensEntree,
			Categorie: models.CategorieVente,
			LienID:    &vente.ID,
		})
		if err != nil {
			return err
		}

		res = ResultatVente{
			VenteID:    vente.ID,
			SoldeAvant: mouvement.SoldeAvant,
			SoldeApres: mouvement.SoldeApres,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
