package contrat

import (
	"fmt"
	"time"

	"immogest-backend/internal/audit"
	"immogest-backend/internal/auth"
	"immogest-backend/internal/database"
	"immogest-backend/internal/events"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateFactureRequest struct {
	Fournisseur  string          `json:"fournisseur"`
	Numero       string          `json:"numero"`
	MontantTotal decimal.Decimal `json:"montant_total"`
	DateEcheance string          `json:"date_echeance"` // "2026-03-31", optionnel
	AgenceID     *uint           `json:"agence_id"`
}

type FactureResponse struct {
	ID           uint            `json:"id"`
	AgenceID     uint            `json:"agence_id"`
	Fournisseur  string          `json:"fournisseur"`
	Numero       string          `json:"numero,omitempty"`
	MontantTotal decimal.Decimal `json:"montant_total"`
	MontantPaye  decimal.Decimal `json:"montant_paye"`
	Solde        decimal.Decimal `json:"solde"`
	Statut       string          `json:"statut"`
	DateEcheance string          `json:"date_echeance,omitempty"`
}

func factureEnReponse(f models.FactureFournisseur) FactureResponse {
	resp := FactureResponse{
		ID:           f.ID,
		AgenceID:     f.AgenceID,
		Fournisseur:  f.Fournisseur,
		Numero:       f.Numero,
		MontantTotal: f.MontantTotal,
		MontantPaye:  f.MontantPaye,
		Solde:        f.Solde,
		Statut:       string(f.Statut),
	}
	if f.DateEcheance != nil {
		resp.DateEcheance = f.DateEcheance.Format("2006-01-02")
	}
	return resp
}

// -------------------------------------------------
// POST /api/factures
// -------------------------------------------------
func CreateFactureHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateFactureRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		agenceID, err := auth.AgenceIDPourRequete(c, body.AgenceID)
		if err != nil {
			return err
		}
		if body.Fournisseur == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le fournisseur est obligatoire")
		}
		if !body.MontantTotal.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "Le montant total doit être supérieur à 0")
		}

		var echeance *time.Time
		if body.DateEcheance != "" {
			d, err := time.Parse("2006-01-02", body.DateEcheance)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Date d'échéance invalide")
			}
			echeance = &d
		}

		facture := models.FactureFournisseur{
			AgenceID:     agenceID,
			Fournisseur:  body.Fournisseur,
			Numero:       body.Numero,
			MontantTotal: body.MontantTotal,
			MontantPaye:  decimal.Zero,
			Solde:        body.MontantTotal,
			Statut:       models.FactureImpayee,
			DateEcheance: echeance,
		}
		if err := database.DB.Create(&facture).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Création de la facture impossible")
		}

		if userID, userName, _, err := auth.InfosUtilisateur(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				AgenceID:    &agenceID,
				UserID:      userID,
				UserName:    userName,
				EntityType:  "facture_fournisseur",
				EntityID:    facture.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Facture %s de %s (%s FCFA)", facture.Numero, facture.Fournisseur, body.MontantTotal.StringFixed(0)),
				After:       facture,
			}); logErr != nil {
				fmt.Printf("Écriture du log d'audit impossible : %v\n", logErr)
			}
		}

		events.Notify("facture_fournisseur", "create")

		return c.Status(fiber.StatusCreated).JSON(factureEnReponse(facture))
	}
}

// -------------------------------------------------
// GET /api/factures?statut=impayee
// -------------------------------------------------
func ListFacturesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Where("agence_id = ?", agenceID)
		if statut := c.Query("statut"); statut != "" {
			dbq = dbq.Where("statut = ?", statut)
		}
		if fournisseur := c.Query("fournisseur"); fournisseur != "" {
			dbq = dbq.Where("fournisseur LIKE ?", "%"+fournisseur+"%")
		}

		var factures []models.FactureFournisseur
		if err := dbq.Order("id asc").Find(&factures).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture des factures impossible")
		}

		resp := make([]FactureResponse, 0, len(factures))
		for _, f := range factures {
			resp = append(resp, factureEnReponse(f))
		}
		return c.JSON(resp)
	}
}
