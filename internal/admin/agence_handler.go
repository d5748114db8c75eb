package admin

import (
	"strings"

	"immogest-backend/internal/database"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type AgenceResponse struct {
	ID        uint   `json:"id"`
	Nom       string `json:"nom"`
	Adresse   string `json:"adresse"`
	Telephone string `json:"telephone"`
	CreatedAt string `json:"created_at"`
}

type CreateAgenceRequest struct {
	Nom       string  `json:"nom"`
	Adresse   string  `json:"adresse"`
	Telephone *string `json:"telephone"` // optionnel
}

type UpdateAgenceRequest struct {
	Nom       *string `json:"nom"`
	Adresse   *string `json:"adresse"`
	Telephone *string `json:"telephone"`
}

type CreateGestionnaireRequest struct {
	Nom      string `json:"nom"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GestionnaireResponse struct {
	ID        uint   `json:"id"`
	Nom       string `json:"nom"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AgenceID  *uint  `json:"agence_id"`
	CreatedAt string `json:"created_at"`
}

// ----------------------------------------
// CRUD AGENCES
// ----------------------------------------

func CreateAgenceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateAgenceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		body.Nom = strings.TrimSpace(body.Nom)
		if body.Nom == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le nom de l'agence est obligatoire")
		}

		agence := models.Agence{
			Nom:     body.Nom,
			Adresse: body.Adresse,
		}
		if body.Telephone != nil {
			agence.Telephone = strings.TrimSpace(*body.Telephone)
		}

		if err := database.DB.Create(&agence).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Création de l'agence impossible")
		}

		return c.Status(fiber.StatusCreated).JSON(AgenceResponse{
			ID:        agence.ID,
			Nom:       agence.Nom,
			Adresse:   agence.Adresse,
			Telephone: agence.Telephone,
			CreatedAt: agence.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

func ListAgencesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var agences []models.Agence
		if err := database.DB.Find(&agences).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture des agences impossible")
		}

		res := make([]AgenceResponse, 0, len(agences))
		for _, a := range agences {
			res = append(res, AgenceResponse{
				ID:        a.ID,
				Nom:       a.Nom,
				Adresse:   a.Adresse,
				Telephone: a.Telephone,
				CreatedAt: a.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(res)
	}
}

func GetAgenceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var agence models.Agence
		if err := database.DB.First(&agence, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Agence introuvable")
		}

		return c.JSON(AgenceResponse{
			ID:        agence.ID,
			Nom:       agence.Nom,
			Adresse:   agence.Adresse,
			Telephone: agence.Telephone,
			CreatedAt: agence.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

func UpdateAgenceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var agence models.Agence
		if err := database.DB.First(&agence, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Agence introuvable")
		}

		var body UpdateAgenceRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		if body.Nom != nil {
			nom := strings.TrimSpace(*body.Nom)
			if nom == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Le nom de l'agence est obligatoire")
			}
			agence.Nom = nom
		}
		if body.Adresse != nil {
			agence.Adresse = *body.Adresse
		}
		if body.Telephone != nil {
			agence.Telephone = strings.TrimSpace(*body.Telephone)
		}

		if err := database.DB.Save(&agence).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Mise à jour de l'agence impossible")
		}

		return c.JSON(AgenceResponse{
			ID:        agence.ID,
			Nom:       agence.Nom,
			Adresse:   agence.Adresse,
			Telephone: agence.Telephone,
			CreatedAt: agence.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

func DeleteAgenceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		// une agence qui a déjà écrit dans son journal de caisse ne se
		// supprime pas : l'historique financier doit rester lisible
		var n int64
		if err := database.DB.Model(&models.MouvementCaisse{}).
			Where("agence_id = ?", id).Count(&n).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Vérification impossible")
		}
		if n > 0 {
			return fiber.NewError(fiber.StatusBadRequest,
				"Cette agence a des mouvements de caisse, suppression refusée")
		}

		if err := database.DB.Delete(&models.Agence{}, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Suppression de l'agence impossible")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ----------------------------------------
// GESTIONNAIRES D'AGENCE
// ----------------------------------------

func CreateGestionnaireHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID := c.Params("id")

		var agence models.Agence
		if err := database.DB.First(&agence, "id = ?", agenceID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Agence introuvable")
		}

		var body CreateGestionnaireRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		body.Email = strings.ToLower(strings.TrimSpace(body.Email))
		body.Nom = strings.TrimSpace(body.Nom)
		if body.Nom == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nom, email et mot de passe obligatoires")
		}

		var exist models.User
		if err := database.DB.Where("email = ?", body.Email).First(&exist).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cet email est déjà enregistré")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)

		user := models.User{
			Nom:          body.Nom,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleGestionnaire,
			AgenceID:     &agence.ID,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Création du gestionnaire impossible")
		}

		return c.Status(fiber.StatusCreated).JSON(GestionnaireResponse{
			ID:        user.ID,
			Nom:       user.Nom,
			Email:     user.Email,
			Role:      string(user.Role),
			AgenceID:  user.AgenceID,
			CreatedAt: user.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// GET /api/admin/agences/:id/gestionnaires
func ListGestionnairesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID := c.Params("id")

		var users []models.User
		if err := database.DB.
			Where("agence_id = ? AND role = ?", agenceID, models.RoleGestionnaire).
			Order("created_at DESC").
			Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture des gestionnaires impossible")
		}

		res := make([]GestionnaireResponse, 0, len(users))
		for _, u := range users {
			res = append(res, GestionnaireResponse{
				ID:        u.ID,
				Nom:       u.Nom,
				Email:     u.Email,
				Role:      string(u.Role),
				AgenceID:  u.AgenceID,
				CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(res)
	}
}
