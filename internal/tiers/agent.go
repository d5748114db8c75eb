package tiers

import (
	"immogest-backend/internal/auth"
	"immogest-backend/internal/database"
	"immogest-backend/internal/events"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateAgentRequest struct {
	Nom       string `json:"nom"`
	Telephone string `json:"telephone"`
	Zone      string `json:"zone"`
	AgenceID  *uint  `json:"agence_id"`
}

// -------------------------------------------------
// POST /api/agents
// -------------------------------------------------
func CreateAgentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateAgentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		agenceID, err := auth.AgenceIDPourRequete(c, body.AgenceID)
		if err != nil {
			return err
		}
		if body.Nom == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le nom est obligatoire")
		}

		agent := models.AgentRecouvreur{
			AgenceID:  agenceID,
			Nom:       body.Nom,
			Telephone: body.Telephone,
			Zone:      body.Zone,
		}
		if err := database.DB.Create(&agent).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Création de l'agent impossible")
		}

		events.Notify("agent_recouvreur", "create")

		return c.Status(fiber.StatusCreated).JSON(agent)
	}
}

// -------------------------------------------------
// GET /api/agents?zone=cocody
// -------------------------------------------------
func ListAgentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Where("agence_id = ?", agenceID)
		if zone := c.Query("zone"); zone != "" {
			dbq = dbq.Where("zone LIKE ?", "%"+zone+"%")
		}

		var agents []models.AgentRecouvreur
		if err := dbq.Order("nom asc").Find(&agents).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture des agents impossible")
		}
		return c.JSON(agents)
	}
}
