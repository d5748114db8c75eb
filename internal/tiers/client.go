package tiers

import (
	"immogest-backend/internal/auth"
	"immogest-backend/internal/database"
	"immogest-backend/internal/events"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateClientRequest struct {
	Nom       string `json:"nom"`
	Telephone string `json:"telephone"`
	Adresse   string `json:"adresse"`
	AgenceID  *uint  `json:"agence_id"`
}

// -------------------------------------------------
// POST /api/clients
// -------------------------------------------------
func CreateClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateClientRequest
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

		client := models.Client{
			AgenceID:  agenceID,
			Nom:       body.Nom,
			Telephone: body.Telephone,
			Adresse:   body.Adresse,
		}
		if err := database.DB.Create(&client).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Création du client impossible")
		}

		events.Notify("client", "create")

		return c.Status(fiber.StatusCreated).JSON(client)
	}
}

// -------------------------------------------------
// GET /api/clients?nom=kone
// -------------------------------------------------
func ListClientsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		// le client système reste un détail interne de l'émission de reçus
		dbq := database.DB.Where("agence_id = ? AND systeme = ?", agenceID, false)
		if nom := c.Query("nom"); nom != "" {
			dbq = dbq.Where("nom LIKE ?", "%"+nom+"%")
		}

		var clients []models.Client
		if err := dbq.Order("nom asc").Find(&clients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture des clients impossible")
		}
		return c.JSON(clients)
	}
}
