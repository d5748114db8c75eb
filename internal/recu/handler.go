package recu

import (
	"time"

	"immogest-backend/internal/auth"
	"immogest-backend/internal/database"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type RecuResponse struct {
	ID            uint            `json:"id"`
	AgenceID      uint            `json:"agence_id"`
	Numero        string          `json:"numero"`
	ClientID      uint            `json:"client_id"`
	ReferenceID   uint            `json:"reference_id"`
	TypeOperation string          `json:"type_operation"`
	MontantTotal  decimal.Decimal `json:"montant_total"`
	PeriodeDebut  string          `json:"periode_debut,omitempty"`
	PeriodeFin    string          `json:"periode_fin,omitempty"`
	EmisLe        string          `json:"emis_le"`
}

func versReponse(r models.Recu) RecuResponse {
	return RecuResponse{
		ID:            r.ID,
		AgenceID:      r.AgenceID,
		Numero:        r.Numero,
		ClientID:      r.ClientID,
		ReferenceID:   r.ReferenceID,
		TypeOperation: r.TypeOperation,
		MontantTotal:  r.MontantTotal,
		PeriodeDebut:  r.PeriodeDebut,
		PeriodeFin:    r.PeriodeFin,
		EmisLe:        r.EmisLe.Format(time.RFC3339),
	}
}

// GET /api/recus?du=2026-01-01&au=2026-01-31&type_operation=paiement_loyer
func ListRecusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.Recu{}).Where("agence_id = ?", agenceID)

		if du := c.Query("du"); du != "" {
			d, err := time.Parse("2006-01-02", du)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Date 'du' invalide")
			}
			dbq = dbq.Where("emis_le >= ?", d)
		}
		if au := c.Query("au"); au != "" {
			d, err := time.Parse("2006-01-02", au)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Date 'au' invalide")
			}
			dbq = dbq.Where("emis_le <= ?", d.AddDate(0, 0, 1))
		}
		if t := c.Query("type_operation"); t != "" {
			dbq = dbq.Where("type_operation = ?", t)
		}

		var recus []models.Recu
		if err := dbq.Order("emis_le DESC, id DESC").Find(&recus).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture des reçus impossible")
		}

		resp := make([]RecuResponse, 0, len(recus))
		for _, r := range recus {
			resp = append(resp, versReponse(r))
		}
		return c.JSON(resp)
	}
}

// GET /api/recus/:numero
func GetRecuHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		numero := c.Params("numero")

		var r models.Recu
		if err := database.DB.Where("numero = ?", numero).First(&r).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Reçu introuvable")
		}

		return c.JSON(versReponse(r))
	}
}
