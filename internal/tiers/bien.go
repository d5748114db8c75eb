package tiers

import (
	"immogest-backend/internal/auth"
	"immogest-backend/internal/database"
	"immogest-backend/internal/events"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateBienRequest struct {
	Libelle  string `json:"libelle"`
	Adresse  string `json:"adresse"`
	AgenceID *uint  `json:"agence_id"`
}

// -------------------------------------------------
// POST /api/biens
// -------------------------------------------------
func CreateBienHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBienRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		agenceID, err := auth.AgenceIDPourRequete(c, body.AgenceID)
		if err != nil {
			return err
		}
		if body.Libelle == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le libellé est obligatoire")
		}

		bien := models.Bien{
			AgenceID: agenceID,
			Libelle:  body.Libelle,
			Adresse:  body.Adresse,
			Statut:   models.BienLibre,
		}
		if err := database.DB.Create(&bien).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Création du bien impossible")
		}

		events.Notify("bien", "create")

		return c.Status(fiber.StatusCreated).JSON(bien)
	}
}

// -------------------------------------------------
// GET /api/biens?statut=libre
// -------------------------------------------------
func ListBiensHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Where("agence_id = ?", agenceID)
		if statut := c.Query("statut"); statut != "" {
			dbq = dbq.Where("statut = ?", statut)
		}

		var biens []models.Bien
		if err := dbq.Order("libelle asc").Find(&biens).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture des biens impossible")
		}
		return c.JSON(biens)
	}
}
