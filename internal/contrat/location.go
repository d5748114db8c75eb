package contrat

import (
	"errors"
	"fmt"
	"strconv"
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

type CreateLocationRequest struct {
	ClientID     uint            `json:"client_id"`
	BienID       uint            `json:"bien_id"`
	LoyerMensuel decimal.Decimal `json:"loyer_mensuel"`
	Caution      decimal.Decimal `json:"caution"`
	DebutBail    string          `json:"debut_bail"` // "2026-01-01"
	DetteTotale  decimal.Decimal `json:"dette_totale"`
	// pour l'admin, optionnel :
	AgenceID *uint `json:"agence_id"`
}

type LocationResponse struct {
	ID           uint            `json:"id"`
	AgenceID     uint            `json:"agence_id"`
	ClientID     uint            `json:"client_id"`
	ClientNom    string          `json:"client_nom,omitempty"`
	BienID       uint            `json:"bien_id"`
	BienLibelle  string          `json:"bien_libelle,omitempty"`
	LoyerMensuel decimal.Decimal `json:"loyer_mensuel"`
	Caution      decimal.Decimal `json:"caution"`
	DebutBail    string          `json:"debut_bail"`
	DetteTotale  decimal.Decimal `json:"dette_totale"`
	MontantPaye  decimal.Decimal `json:"montant_paye"`
	Statut       string          `json:"statut"`
}

func locationEnReponse(l models.Location) LocationResponse {
	return LocationResponse{
		ID:           l.ID,
		AgenceID:     l.AgenceID,
		ClientID:     l.ClientID,
		ClientNom:    l.Client.Nom,
		BienID:       l.BienID,
		BienLibelle:  l.Bien.Libelle,
		LoyerMensuel: l.LoyerMensuel,
		Caution:      l.Caution,
		DebutBail:    l.DebutBail.Format("2006-01-02"),
		DetteTotale:  l.DetteTotale,
		MontantPaye:  l.MontantPaye,
		Statut:       string(l.Statut),
	}
}

// -------------------------------------------------
// POST /api/locations
// -------------------------------------------------
func CreateLocationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateLocationRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		agenceID, err := auth.AgenceIDPourRequete(c, body.AgenceID)
		if err != nil {
			return err
		}
		if !body.LoyerMensuel.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "Le loyer mensuel doit être supérieur à 0")
		}
		debut := time.Now()
		if body.DebutBail != "" {
			d, err := time.Parse("2006-01-02", body.DebutBail)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Date de début de bail invalide")
			}
			debut = d
		}

		var location models.Location
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var client models.Client
			if err := tx.First(&client, "id = ? AND agence_id = ?", body.ClientID, agenceID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "Client introuvable")
				}
				return err
			}

			var bien models.Bien
			if err := database.PourMiseAJour(tx).First(&bien, "id = ? AND agence_id = ?", body.BienID, agenceID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "Bien introuvable")
				}
				return err
			}
			if bien.Statut == models.BienOccupe {
				return fiber.NewError(fiber.StatusBadRequest, "Ce bien est déjà occupé")
			}

			location = models.Location{
				AgenceID:     agenceID,
				ClientID:     client.ID,
				BienID:       bien.ID,
				LoyerMensuel: body.LoyerMensuel,
				Caution:      body.Caution,
				DebutBail:    debut,
				DetteTotale:  body.DetteTotale,
				MontantPaye:  decimal.Zero,
				Statut:       models.LocationActive,
			}
			if err := tx.Create(&location).Error; err != nil {
				return err
			}

			return tx.Model(&bien).Update("statut", models.BienOccupe).Error
		})
		if err != nil {
			return err
		}

		if userID, userName, _, err := auth.InfosUtilisateur(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				AgenceID:    &agenceID,
				UserID:      userID,
				UserName:    userName,
				EntityType:  "location",
				EntityID:    location.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Création du bail #%d (loyer %s FCFA)", location.ID, body.LoyerMensuel.StringFixed(0)),
				After:       location,
			}); logErr != nil {
				fmt.Printf("Écriture du log d'audit impossible : %v\n", logErr)
			}
		}

		events.Notify("location", "create")

		return c.Status(fiber.StatusCreated).JSON(locationEnReponse(location))
	}
}

// -------------------------------------------------
// GET /api/locations?statut=active
// -------------------------------------------------
func ListLocationsHandler() fiber.Handler {
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

		var locations []models.Location
		if err := dbq.Order("id asc").Find(&locations).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture des locations impossible")
		}

		resp := make([]LocationResponse, 0, len(locations))
		for _, l := range locations {
			resp = append(resp, locationEnReponse(l))
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// DELETE /api/locations/:id (suppression sûre)
// -------------------------------------------------
// Refuse la suppression dès qu'un paiement est rattaché au bail : le
// journal de caisse ne doit jamais pointer vers un contrat disparu.
func DeleteLocationSafelyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.Atoi(c.Params("id"))
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		var location models.Location
		supprime := false
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&location, "id = ? AND agence_id = ?", id, agenceID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "Location introuvable")
				}
				return err
			}

			var n int64
			if err := tx.Model(&models.Paiement{}).
				Where("contrat_id = ? AND type IN ?", location.ID,
					[]models.TypePaiement{models.PaiementLoyer, models.PaiementCaution}).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				// pas d'erreur : le booléen dit au client que rien n'a bougé
				return nil
			}

			if err := tx.Delete(&location).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Bien{}).
				Where("id = ?", location.BienID).
				Update("statut", models.BienLibre).Error; err != nil {
				return err
			}
			supprime = true
			return nil
		})
		if err != nil {
			return err
		}

		if supprime {
			if userID, userName, _, err := auth.InfosUtilisateur(c); err == nil {
				if logErr := audit.WriteLog(audit.LogOptions{
					AgenceID:    &agenceID,
					UserID:      userID,
					UserName:    userName,
					EntityType:  "location",
					EntityID:    location.ID,
					Action:      models.AuditActionDelete,
					Description: fmt.Sprintf("Suppression du bail #%d (aucun paiement rattaché)", location.ID),
					Before:      location,
				}); logErr != nil {
					fmt.Printf("Écriture du log d'audit impossible : %v\n", logErr)
				}
			}
			events.Notify("location", "delete")
		}

		return c.JSON(fiber.Map{"supprime": supprime})
	}
}
