package financial

import (
	"errors"
	"fmt"
	"time"

	"immogest-backend/internal/auth"
	"immogest-backend/internal/database"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MontantParCategorie struct {
	Categorie models.CategorieMouvement `json:"categorie"`
	Total     decimal.Decimal           `json:"total"`
}

type BlocMouvements struct {
	Items []MontantParCategorie `json:"items"`
	Total decimal.Decimal       `json:"total"`
}

type ResumeMensuelResponse struct {
	AgenceID   uint            `json:"agence_id"`
	Annee      int             `json:"annee"`
	Mois       int             `json:"mois"`
	Entrees    BlocMouvements  `json:"entrees"`
	Sorties    BlocMouvements  `json:"sorties"`
	Net        decimal.Decimal `json:"net"`
	SoldeFinal decimal.Decimal `json:"solde_final"` // solde après le dernier mouvement du mois
}

// -----------------------------------
// GET /api/resume-financier/mensuel
// ?annee=2026&mois=5[&agence_id=1]
// -----------------------------------
func ResumeMensuelHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		anneeStr := c.Query("annee")
		moisStr := c.Query("mois")
		if anneeStr == "" || moisStr == "" {
			return fiber.NewError(fiber.StatusBadRequest, "annee et mois obligatoires")
		}

		var annee, mois int
		if _, err := fmt.Sscan(anneeStr, &annee); err != nil || annee < 2000 {
			return fiber.NewError(fiber.StatusBadRequest, "annee invalide")
		}
		if _, err := fmt.Sscan(moisStr, &mois); err != nil || mois < 1 || mois > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "mois invalide")
		}

		loc := time.Now().Location()
		premierJour := time.Date(annee, time.Month(mois), 1, 0, 0, 0, 0, loc)
		moisSuivant := premierJour.AddDate(0, 1, 0)

		type row struct {
			Sens      string          `gorm:"column:sens"`
			Categorie string          `gorm:"column:categorie"`
			Total     decimal.Decimal `gorm:"column:total"`
		}
		var rows []row

		if err := database.DB.
			Model(&models.MouvementCaisse{}).
			Select("sens, categorie, SUM(montant) as total").
			Where("agence_id = ? AND created_at >= ? AND created_at < ?", agenceID, premierJour, moisSuivant).
			Group("sens, categorie").
			Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Agrégation du journal impossible")
		}

		entrees := BlocMouvements{Items: make([]MontantParCategorie, 0), Total: decimal.Zero}
		sorties := BlocMouvements{Items: make([]MontantParCategorie, 0), Total: decimal.Zero}
		for _, r := range rows {
			item := MontantParCategorie{
				Categorie: models.CategorieMouvement(r.Categorie),
				Total:     r.Total,
			}
			if r.Sens == string(models.SensEntree) {
				entrees.Items = append(entrees.Items, item)
				entrees.Total = entrees.Total.Add(r.Total)
			} else {
				sorties.Items = append(sorties.Items, item)
				sorties.Total = sorties.Total.Add(r.Total)
			}
		}

		// dernier mouvement du mois : son solde_apres est le solde de
		// clôture, la chaîne du journal garantit sa cohérence
		soldeFinal := decimal.Zero
		var dernier models.MouvementCaisse
		err = database.DB.
			Where("agence_id = ? AND created_at < ?", agenceID, moisSuivant).
			Order("created_at desc, id desc").
			First(&dernier).Error
		switch {
		case err == nil:
			soldeFinal = dernier.SoldeApres
		case errors.Is(err, gorm.ErrRecordNotFound):
			// aucun mouvement : la caisse n'a jamais bougé, solde 0
		default:
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture du solde de clôture impossible")
		}

		return c.JSON(ResumeMensuelResponse{
			AgenceID:   agenceID,
			Annee:      annee,
			Mois:       mois,
			Entrees:    entrees,
			Sorties:    sorties,
			Net:        entrees.Total.Sub(sorties.Total),
			SoldeFinal: soldeFinal,
		})
	}
}
