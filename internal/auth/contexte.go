package auth

import (
	"fmt"

	"immogest-backend/internal/database"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// InfosUtilisateur retourne l'id, le nom et l'agence de l'utilisateur
// courant (pour l'audit notamment).
func InfosUtilisateur(c *fiber.Ctx) (uint, string, *uint, error) {
	userIDVal := c.Locals(CtxUserIDKey)
	userID, ok := userIDVal.(uint)
	if !ok {
		return 0, "", nil, fiber.NewError(fiber.StatusForbidden, "Utilisateur introuvable")
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return 0, "", nil, fiber.NewError(fiber.StatusInternalServerError, "Utilisateur introuvable")
	}

	var agenceID *uint
	aVal := c.Locals(CtxAgenceIDKey)
	if aPtr, ok := aVal.(*uint); ok && aPtr != nil {
		agenceID = aPtr
	}

	return userID, user.Nom, agenceID, nil
}

// AgenceIDPourRequete résout l'agence cible d'une requête mutante : le
// gestionnaire est cantonné à son agence (JWT), l'admin doit la fournir
// dans le corps.
func AgenceIDPourRequete(c *fiber.Ctx, bodyAgenceID *uint) (uint, error) {
	role := c.Locals(CtxUserRoleKey).(models.UserRole)

	if role == models.RoleGestionnaire {
		agenceIDPtr, ok := c.Locals(CtxAgenceIDKey).(*uint)
		if !ok || agenceIDPtr == nil {
			return 0, fiber.NewError(fiber.StatusForbidden, "Agence introuvable")
		}
		return *agenceIDPtr, nil
	}

	// admin
	if bodyAgenceID == nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "agence_id obligatoire")
	}
	return *bodyAgenceID, nil
}

// AgenceIDDepuisQuery - même résolution pour les lectures (query string)
func AgenceIDDepuisQuery(c *fiber.Ctx) (uint, error) {
	role := c.Locals(CtxUserRoleKey).(models.UserRole)

	if role == models.RoleGestionnaire {
		agenceIDPtr, ok := c.Locals(CtxAgenceIDKey).(*uint)
		if !ok || agenceIDPtr == nil {
			return 0, fiber.NewError(fiber.StatusForbidden, "Agence introuvable")
		}
		return *agenceIDPtr, nil
	}

	aidStr := c.Query("agence_id")
	if aidStr == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "agence_id obligatoire")
	}
	var parsed uint
	if _, err := fmt.Sscan(aidStr, &parsed); err != nil || parsed == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "agence_id invalide")
	}
	return parsed, nil
}
