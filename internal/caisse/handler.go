package caisse

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
	"gorm.io/gorm"
)

type CreateMouvementRequest struct {
	Montant      decimal.Decimal           `json:"montant"`
	Sens         models.SensMouvement      `json:"sens"` // "entree" | "sortie"
	Categorie    models.CategorieMouvement `json:"categorie"`
	Beneficiaire string                    `json:"beneficiaire"`
	ModePaiement string                    `json:"mode_paiement"`
	Reference    string                    `json:"reference"`
	// pour l'admin, optionnel :
	AgenceID *uint `json:"agence_id"`
}

type MouvementResponse struct {
	ID           uint                      `json:"id"`
	AgenceID     uint                      `json:"agence_id"`
	Montant      decimal.Decimal           `json:"montant"`
	Sens         models.SensMouvement      `json:"sens"`
	Categorie    models.CategorieMouvement `json:"categorie"`
	SoldeAvant   decimal.Decimal           `json:"solde_avant"`
	SoldeApres   decimal.Decimal           `json:"solde_apres"`
	Beneficiaire string                    `json:"beneficiaire,omitempty"`
	ModePaiement string                    `json:"mode_paiement,omitempty"`
	Reference    string                    `json:"reference,omitempty"`
	CreatedAt    string                    `json:"created_at"`
}

// -------------------------------------------------
// GET /api/caisse/solde
// -------------------------------------------------
func GetSoldeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		solde, err := SoldeCourant(database.DB, agenceID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture du solde impossible")
		}

		return c.JSON(fiber.Map{
			"agence_id": agenceID,
			"solde":     solde,
		})
	}
}

// -------------------------------------------------
// POST /api/caisse/mouvements (mouvement manuel)
// -------------------------------------------------
func EnregistrerMouvementHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMouvementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		agenceID, err := auth.AgenceIDPourRequete(c, body.AgenceID)
		if err != nil {
			return err
		}

		categorie := body.Categorie
		if categorie == "" {
			categorie = models.CategorieManuel
		}

		var avant, apres decimal.Decimal
		var mouvementID uint
		err = DansTransaction(database.DB, func(tx *gorm.DB) error {
			mouvement, err := Poster(tx, agenceID, Mouvement{
				Montant:      body.Montant,
				Sens:         body.Sens,
				Categorie:    categorie,
				Beneficiaire: body.Beneficiaire,
				ModePaiement: body.ModePaiement,
				Reference:    body.Reference,
			})
			if err != nil {
				return err
			}
			avant, apres = mouvement.SoldeAvant, mouvement.SoldeApres
			mouvementID = mouvement.ID
			return nil
		})
		if err != nil {
			return err
		}

		// Audit (hors transaction, best effort)
		if userID, userName, _, err := auth.InfosUtilisateur(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				AgenceID:    &agenceID,
				UserID:      userID,
				UserName:    userName,
				EntityType:  "mouvement_caisse",
				EntityID:    mouvementID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Mouvement de caisse : %s %s FCFA (%s)", body.Sens, body.Montant.StringFixed(0), categorie),
				After: map[string]interface{}{
					"id":          mouvementID,
					"agence_id":   agenceID,
					"montant":     body.Montant,
					"sens":        body.Sens,
					"categorie":   categorie,
					"solde_avant": avant,
					"solde_apres": apres,
				},
			}); logErr != nil {
				fmt.Printf("Écriture du log d'audit impossible : %v\n", logErr)
			}
		}

		events.Notify("mouvement_caisse", "create")

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":          mouvementID,
			"agence_id":   agenceID,
			"solde_avant": avant,
			"solde_apres": apres,
		})
	}
}

// -------------------------------------------------
// GET /api/caisse/mouvements?du=2026-01-01&au=2026-01-31&sens=entree
// -------------------------------------------------
func ListMouvementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.MouvementCaisse{}).Where("agence_id = ?", agenceID)

		if du := c.Query("du"); du != "" {
			d, err := time.Parse("2006-01-02", du)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Date 'du' invalide")
			}
			dbq = dbq.Where("created_at >= ?", d)
		}
		if au := c.Query("au"); au != "" {
			d, err := time.Parse("2006-01-02", au)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Date 'au' invalide")
			}
			dbq = dbq.Where("created_at < ?", d.AddDate(0, 0, 1))
		}
		if sens := c.Query("sens"); sens != "" {
			dbq = dbq.Where("sens = ?", sens)
		}
		if categorie := c.Query("categorie"); categorie != "" {
			dbq = dbq.Where("categorie = ?", categorie)
		}

		var mouvements []models.MouvementCaisse
		if err := dbq.Order("created_at asc, id asc").Find(&mouvements).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture du journal impossible")
		}

		resp := make([]MouvementResponse, 0, len(mouvements))
		for _, m := range mouvements {
			resp = append(resp, MouvementResponse{
				ID:           m.ID,
				AgenceID:     m.AgenceID,
				Montant:      m.Montant,
				Sens:         m.Sens,
				Categorie:    m.Categorie,
				SoldeAvant:   m.SoldeAvant,
				SoldeApres:   m.SoldeApres,
				Beneficiaire: m.Beneficiaire,
				ModePaiement: m.ModePaiement,
				Reference:    m.Reference,
				CreatedAt:    m.CreatedAt.Format(time.RFC3339),
			})
		}

		return c.JSON(resp)
	}
}
