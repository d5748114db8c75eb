package recouvrement

import (
	"fmt"
	"strconv"
	"time"

	"immogest-backend/internal/audit"
	"immogest-backend/internal/auth"
	"immogest-backend/internal/database"
	"immogest-backend/internal/events"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type ImportRequest struct {
	AgentID       uint              `json:"agent_id"`
	Mois          int               `json:"mois"`
	Annee         int               `json:"annee"`
	TypeOperation string            `json:"type_operation"` // loyer | droit_terre
	Versements    []VersementImport `json:"versements"`
	// pour l'admin, optionnel :
	AgenceID *uint `json:"agence_id"`
}

type AnnulationRequest struct {
	AgentID       uint   `json:"agent_id"`
	Mois          int    `json:"mois"`
	Annee         int    `json:"annee"`
	TypeOperation string `json:"type_operation"`
	AgenceID      *uint  `json:"agence_id"`
}

// -------------------------------------------------
// POST /api/recouvrements/imports
// -------------------------------------------------
func ImporterVersementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ImportRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		agenceID, err := auth.AgenceIDPourRequete(c, body.AgenceID)
		if err != nil {
			return err
		}

		res, err := ImporterVersements(database.DB, CommandeImport{
			AgenceID:      agenceID,
			AgentID:       body.AgentID,
			Mois:          body.Mois,
			Annee:         body.Annee,
			TypeOperation: body.TypeOperation,
			Versements:    body.Versements,
		})
		if err != nil {
			return err
		}

		if userID, userName, _, err := auth.InfosUtilisateur(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				AgenceID:   &agenceID,
				UserID:     userID,
				UserName:   userName,
				EntityType: "import_recouvrement",
				EntityID:   res.ImportID,
				Action:     models.AuditActionCreate,
				Description: fmt.Sprintf("Import recouvrement %s %02d/%04d agent #%d : %d versements, %d erreurs",
					body.TypeOperation, body.Mois, body.Annee, body.AgentID, len(res.Reussites), len(res.Erreurs)),
				After: map[string]interface{}{
					"import_id": res.ImportID,
					"reference": res.Reference,
					"reussites": len(res.Reussites),
					"erreurs":   len(res.Erreurs),
				},
			}); logErr != nil {
				fmt.Printf("Écriture du log d'audit impossible : %v\n", logErr)
			}
		}

		events.Notify("import_recouvrement", "create")

		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

func lotDepuisParams(c *fiber.Ctx, agentID uint, mois, annee int, typeOperation string, bodyAgenceID *uint) (*models.ImportRecouvrement, error) {
	agenceID, err := auth.AgenceIDPourRequete(c, bodyAgenceID)
	if err != nil {
		return nil, err
	}
	if typeOperation == "" {
		typeOperation = string(models.PaiementLoyer)
	}
	return TrouverImport(database.DB, agenceID, agentID, mois, annee, typeOperation)
}

// -------------------------------------------------
// GET /api/recouvrements/imports/annulation/preview
//     ?agent_id=3&mois=5&annee=2026&type_operation=loyer
// -------------------------------------------------
func PreviewAnnulationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agentID, err := strconv.Atoi(c.Query("agent_id"))
		if err != nil || agentID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "agent_id invalide")
		}
		mois, _ := strconv.Atoi(c.Query("mois"))
		annee, _ := strconv.Atoi(c.Query("annee"))

		var bodyAgenceID *uint
		if aid, err := strconv.Atoi(c.Query("agence_id")); err == nil && aid > 0 {
			v := uint(aid)
			bodyAgenceID = &v
		}

		lot, err := lotDepuisParams(c, uint(agentID), mois, annee, c.Query("type_operation"), bodyAgenceID)
		if err != nil {
			return err
		}

		res, err := PreviewAnnulation(database.DB, lot)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"import_id": lot.ID,
			"reference": lot.Reference,
			"apercu":    res,
		})
	}
}

// -------------------------------------------------
// POST /api/recouvrements/imports/annulation
// -------------------------------------------------
func AnnulerImportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AnnulationRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if body.AgentID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "agent_id obligatoire")
		}

		lot, err := lotDepuisParams(c, body.AgentID, body.Mois, body.Annee, body.TypeOperation, body.AgenceID)
		if err != nil {
			return err
		}
		agenceID := lot.AgenceID
		importID := lot.ID
		reference := lot.Reference

		res, err := AnnulerImport(database.DB, lot)
		if err != nil {
			return err
		}

		if userID, userName, _, err := auth.InfosUtilisateur(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				AgenceID:   &agenceID,
				UserID:     userID,
				UserName:   userName,
				EntityType: "import_recouvrement",
				EntityID:   importID,
				Action:     models.AuditActionDelete,
				Description: fmt.Sprintf("Annulation import %s : %d paiements remboursés (%s FCFA)",
					reference, res.Paiements, res.TotalRembourse.StringFixed(0)),
				Before: map[string]interface{}{
					"import_id": importID,
					"reference": reference,
				},
				After: map[string]interface{}{
					"paiements_supprimes":  res.Paiements,
					"recus_supprimes":      res.Recus,
					"mouvements_supprimes": res.Mouvements,
					"locations_supprimees": res.Locations,
					"biens_supprimes":      res.Biens,
					"clients_supprimes":    res.Clients,
					"total_rembourse":      res.TotalRembourse,
				},
			}); logErr != nil {
				fmt.Printf("Écriture du log d'audit impossible : %v\n", logErr)
			}
		}

		events.Notify("import_recouvrement", "delete")

		return c.JSON(res)
	}
}

// -------------------------------------------------
// GET /api/agents/:id/statistiques?du=2026-01-01&au=2026-06-30
// -------------------------------------------------
func StatistiquesAgentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agentID, err := strconv.Atoi(c.Params("id"))
		if err != nil || agentID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant d'agent invalide")
		}

		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		var du, au *time.Time
		if s := c.Query("du"); s != "" {
			d, err := time.Parse("2006-01-02", s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Date 'du' invalide")
			}
			du = &d
		}
		if s := c.Query("au"); s != "" {
			d, err := time.Parse("2006-01-02", s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Date 'au' invalide")
			}
			au = &d
		}

		stats, err := CalculerStatistiquesAgent(database.DB, agenceID, uint(agentID), du, au)
		if err != nil {
			return err
		}
		return c.JSON(stats)
	}
}
