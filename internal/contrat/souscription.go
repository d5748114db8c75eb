package contrat

import (
	"errors"
	"fmt"

	"immogest-backend/internal/audit"
	"immogest-backend/internal/auth"
	"immogest-backend/internal/database"
	"immogest-backend/internal/events"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateSouscriptionRequest struct {
	ClientID             uint            `json:"client_id"`
	BienID               uint            `json:"bien_id"`
	MontantTotal         decimal.Decimal `json:"montant_total"`
	MensualiteDroitTerre decimal.Decimal `json:"mensualite_droit_terre"`
	AgenceID             *uint           `json:"agence_id"`
}

type SouscriptionResponse struct {
	ID                   uint            `json:"id"`
	AgenceID             uint            `json:"agence_id"`
	ClientID             uint            `json:"client_id"`
	ClientNom            string          `json:"client_nom,omitempty"`
	BienID               uint            `json:"bien_id"`
	BienLibelle          string          `json:"bien_libelle,omitempty"`
	MontantTotal         decimal.Decimal `json:"montant_total"`
	MontantPaye          decimal.Decimal `json:"montant_paye"`
	SoldeRestant         decimal.Decimal `json:"solde_restant"`
	MensualiteDroitTerre decimal.Decimal `json:"mensualite_droit_terre"`
	Statut               string          `json:"statut"`
}

func souscriptionEnReponse(s models.Souscription) SouscriptionResponse {
	return SouscriptionResponse{
		ID:                   s.ID,
		AgenceID:             s.AgenceID,
		ClientID:             s.ClientID,
		ClientNom:            s.Client.Nom,
		BienID:               s.BienID,
		BienLibelle:          s.Bien.Libelle,
		MontantTotal:         s.MontantTotal,
		MontantPaye:          s.MontantPaye,
		SoldeRestant:         s.SoldeRestant,
		MensualiteDroitTerre: s.MensualiteDroitTerre,
		Statut:               string(s.Statut),
	}
}

// -------------------------------------------------
// POST /api/souscriptions
// -------------------------------------------------
func CreateSouscriptionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSouscriptionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		agenceID, err := auth.AgenceIDPourRequete(c, body.AgenceID)
		if err != nil {
			return err
		}
		if !body.MontantTotal.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "Le montant total doit être supérieur à 0")
		}

		var client models.Client
		if err := database.DB.First(&client, "id = ? AND agence_id = ?", body.ClientID, agenceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Client introuvable")
			}
			return err
		}
		var bien models.Bien
		if err := database.DB.First(&bien, "id = ? AND agence_id = ?", body.BienID, agenceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Bien introuvable")
			}
			return err
		}

		souscription := models.Souscription{
			AgenceID:             agenceID,
			ClientID:             client.ID,
			BienID:               bien.ID,
			MontantTotal:         body.MontantTotal,
			MontantPaye:          decimal.Zero,
			SoldeRestant:         body.MontantTotal,
			MensualiteDroitTerre: body.MensualiteDroitTerre,
			Statut:               models.SouscriptionEnCours,
		}
		if err := database.DB.Create(&souscription).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Création de la souscription impossible")
		}

		if userID, userName, _, err := auth.InfosUtilisateur(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				AgenceID:    &agenceID,
				UserID:      userID,
				UserName:    userName,
				EntityType:  "souscription",
				EntityID:    souscription.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Souscription #%d pour %s (%s FCFA)", souscription.ID, client.Nom, body.MontantTotal.StringFixed(0)),
				After:       souscription,
			}); logErr != nil {
				fmt.Printf("Écriture du log d'audit impossible : %v\n", logErr)
			}
		}

		events.Notify("souscription", "create")

		souscription.Client = client
		souscription.Bien = bien
		return c.Status(fiber.StatusCreated).JSON(souscriptionEnReponse(souscription))
	}
}

// -------------------------------------------------
// GET /api/souscriptions?statut=en_cours
// -------------------------------------------------
func ListSouscriptionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Preload("Client").Preload("Bien").Where("agence_id = ?", agenceID)
		if statut := c.Query("statut"); statut != "" {
			dbq = dbq.Where("statut = ?", statut)
		}
		if clientID := c.Query("client_id"); clientID != "" {
			dbq = dbq.Where("client_id = ?", clientID)
		}

		var souscriptions []models.Souscription
		if err := dbq.Order("id asc").Find(&souscriptions).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture des souscriptions impossible")
		}

		resp := make([]SouscriptionResponse, 0, len(souscriptions))
		for _, s := range souscriptions {
			resp = append(resp, souscriptionEnReponse(s))
		}
		return c.JSON(resp)
	}
}
