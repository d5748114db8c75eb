package paiement

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

type PaiementRequest struct {
	Montant   decimal.Decimal `json:"montant"`
	Date      string          `json:"date"` // "AAAA-MM-JJ", vide = aujourd'hui
	Mode      string          `json:"mode"` // especes / cheque / virement / mobile_money
	Reference string          `json:"reference"`
	Periode   string          `json:"periode"` // "AAAA-MM", optionnel
	AgentID   *uint           `json:"agent_id"`
}

type PaiementResponse struct {
	PaiementID uint            `json:"paiement_id"`
	RecuID     uint            `json:"recu_id"`
	RecuNumero string          `json:"recu_numero"`
	SoldeAvant decimal.Decimal `json:"solde_avant"`
	SoldeApres decimal.Decimal `json:"solde_apres"`
}

func commandeDepuisRequete(c *fiber.Ctx) (uint, CommandePaiement, error) {
	var contratID uint
	if _, err := fmt.Sscan(c.Params("id"), &contratID); err != nil || contratID == 0 {
		return 0, CommandePaiement{}, fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
	}

	var body PaiementRequest
	if err := c.BodyParser(&body); err != nil {
		return 0, CommandePaiement{}, fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
	}

	cmd := CommandePaiement{
		ContratID:    contratID,
		Montant:      body.Montant,
		ModePaiement: body.Mode,
		Reference:    body.Reference,
		Periode:      body.Periode,
		AgentID:      body.AgentID,
	}

	if body.Date != "" {
		d, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return 0, CommandePaiement{}, fiber.NewError(fiber.StatusBadRequest, "Format de date invalide, attendu 'AAAA-MM-JJ'")
		}
		cmd.DatePaiement = d
	}

	return contratID, cmd, nil
}

// verifierAccesAgence cantonne le gestionnaire à son agence (l'admin
// passe partout).
func verifierAccesAgence(c *fiber.Ctx, agenceID uint) error {
	roleVal := c.Locals(auth.CtxUserRoleKey)
	role, ok := roleVal.(models.UserRole)
	if ok && role == models.RoleGestionnaire {
		aVal := c.Locals(auth.CtxAgenceIDKey)
		aPtr, ok := aVal.(*uint)
		if !ok || aPtr == nil || *aPtr != agenceID {
			return fiber.NewError(fiber.StatusForbidden, "Vous n'avez pas accès à cette agence")
		}
	}
	return nil
}

func journaliserPaiement(c *fiber.Ctx, agenceID uint, res *ResultatPaiement, typePaiement models.TypePaiement, montant decimal.Decimal) {
	if userID, userName, _, err := auth.InfosUtilisateur(c); err == nil {
		if logErr := audit.WriteLog(audit.LogOptions{
			AgenceID:    &agenceID,
			UserID:      userID,
			UserName:    userName,
			EntityType:  "paiement",
			EntityID:    res.PaiementID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Paiement %s : %s FCFA (reçu %s)", typePaiement, montant.StringFixed(0), res.RecuNumero),
			After: map[string]interface{}{
				"paiement_id": res.PaiementID,
				"recu_numero": res.RecuNumero,
				"montant":     montant,
				"solde_avant": res.SoldeAvant,
				"solde_apres": res.SoldeApres,
			},
		}); logErr != nil {
			fmt.Printf("Écriture du log d'audit impossible : %v\n", logErr)
		}
	}
	events.Notify("paiement", "create")
}

// -------------------------------------------------
// POST /api/locations/:id/paiements (loyer)
// -------------------------------------------------
func PayerLocationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		contratID, cmd, err := commandeDepuisRequete(c)
		if err != nil {
			return err
		}

		var location models.Location
		if err := database.DB.First(&location, "id = ?", contratID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Location introuvable")
		}
		if err := verifierAccesAgence(c, location.AgenceID); err != nil {
			return err
		}

		res, err := PayerLocation(database.DB, cmd)
		if err != nil {
			return err
		}

		journaliserPaiement(c, location.AgenceID, res, models.PaiementLoyer, cmd.Montant)

		return c.Status(fiber.StatusCreated).JSON(PaiementResponse{
			PaiementID: res.PaiementID,
			RecuID:     res.RecuID,
			RecuNumero: res.RecuNumero,
			SoldeAvant: res.SoldeAvant,
			SoldeApres: res.SoldeApres,
		})
	}
}

// -------------------------------------------------
// POST /api/locations/:id/caution
// -------------------------------------------------
func PayerCautionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		contratID, cmd, err := commandeDepuisRequete(c)
		if err != nil {
			return err
		}

		var location models.Location
		if err := database.DB.First(&location, "id = ?", contratID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Location introuvable")
		}
		if err := verifierAccesAgence(c, location.AgenceID); err != nil {
			return err
		}

		res, err := PayerCaution(database.DB, cmd)
		if err != nil {
			return err
		}

		journaliserPaiement(c, location.AgenceID, res, models.PaiementCaution, cmd.Montant)

		return c.Status(fiber.StatusCreated).JSON(PaiementResponse{
			PaiementID: res.PaiementID,
			RecuID:     res.RecuID,
			RecuNumero: res.RecuNumero,
			SoldeAvant: res.SoldeAvant,
			SoldeApres: res.SoldeApres,
		})
	}
}

// -------------------------------------------------
// POST /api/souscriptions/:id/paiements (capital)
// POST /api/souscriptions/:id/droit-terre (mensualité)
// -------------------------------------------------
func PayerSouscriptionHandler() fiber.Handler {
	return payerSouscriptionCommun(PayerSouscription, models.PaiementSouscription)
}

func PayerDroitTerreHandler() fiber.Handler {
	return payerSouscriptionCommun(PayerDroitTerre, models.PaiementDroitTerre)
}

func payerSouscriptionCommun(payer func(db *gorm.DB, cmd CommandePaiement) (*ResultatPaiement, error), typePaiement models.TypePaiement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		contratID, cmd, err := commandeDepuisRequete(c)
		if err != nil {
			return err
		}

		var souscription models.Souscription
		if err := database.DB.First(&souscription, "id = ?", contratID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Souscription introuvable")
		}
		if err := verifierAccesAgence(c, souscription.AgenceID); err != nil {
			return err
		}

		res, err := payer(database.DB, cmd)
		if err != nil {
			return err
		}

		journaliserPaiement(c, souscription.AgenceID, res, typePaiement, cmd.Montant)

		return c.Status(fiber.StatusCreated).JSON(PaiementResponse{
			PaiementID: res.PaiementID,
			RecuID:     res.RecuID,
			RecuNumero: res.RecuNumero,
			SoldeAvant: res.SoldeAvant,
			SoldeApres: res.SoldeApres,
		})
	}
}

// -------------------------------------------------
// POST /api/factures/:id/paiements
// -------------------------------------------------
func PayerFactureHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		contratID, cmd, err := commandeDepuisRequete(c)
		if err != nil {
			return err
		}

		var facture models.FactureFournisseur
		if err := database.DB.First(&facture, "id = ?", contratID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Facture introuvable")
		}
		if err := verifierAccesAgence(c, facture.AgenceID); err != nil {
			return err
		}

		res, err := PayerFacture(database.DB, cmd)
		if err != nil {
			return err
		}

		journaliserPaiement(c, facture.AgenceID, res, models.PaiementFacture, cmd.Montant)

		return c.Status(fiber.StatusCreated).JSON(PaiementResponse{
			PaiementID: res.PaiementID,
			RecuID:     res.RecuID,
			RecuNumero: res.RecuNumero,
			SoldeAvant: res.SoldeAvant,
			SoldeApres: res.SoldeApres,
		})
	}
}

type VenteRequest struct {
	ArticleID   *uint           `json:"article_id"`
	Designation string          `json:"designation"`
	Quantite    int             `json:"quantite"`
	Montant     decimal.Decimal `json:"montant"`
	Date        string          `json:"date"`
	// pour l'admin, optionnel :
	AgenceID *uint `json:"agence_id"`
}

// -------------------------------------------------
// POST /api/ventes
// -------------------------------------------------
func EnregistrerVenteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body VenteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		agenceID, err := auth.AgenceIDPourRequete(c, body.AgenceID)
		if err != nil {
			return err
		}

		cmd := CommandeVente{
			AgenceID:    agenceID,
			ArticleID:   body.ArticleID,
			Designation: body.Designation,
			Quantite:    body.Quantite,
			Montant:     body.Montant,
		}
		if body.Date != "" {
			d, err := time.Parse("2006-01-02", body.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Format de date invalide, attendu 'AAAA-MM-JJ'")
			}
			cmd.DateVente = d
		}

		res, err := EnregistrerVente(database.DB, cmd)
		if err != nil {
			return err
		}

		events.Notify("vente", "create")

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"vente_id":    res.VenteID,
			"solde_avant": res.SoldeAvant,
			"solde_apres": res.SoldeApres,
		})
	}
}

type LigneLotRequest struct {
	LocationID uint            `json:"location_id"`
	Montant    decimal.Decimal `json:"montant"`
	Periode    string          `json:"periode"`
}

type LotRequest struct {
	Date    string            `json:"date"`
	Mode    string            `json:"mode"`
	AgentID *uint             `json:"agent_id"`
	Lignes  []LigneLotRequest `json:"lignes"`
}

// -------------------------------------------------
// POST /api/paiements/loyers-groupes
// -------------------------------------------------
func PayerLoyersGroupeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LotRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if len(body.Lignes) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Le lot est vide")
		}

		var date time.Time
		if body.Date != "" {
			d, err := time.Parse("2006-01-02", body.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Format de date invalide, attendu 'AAAA-MM-JJ'")
			}
			date = d
		}

		lignes := make([]LigneLot, 0, len(body.Lignes))
		for _, l := range body.Lignes {
			lignes = append(lignes, LigneLot{
				LocationID: l.LocationID,
				Commande: CommandePaiement{
					Montant:      l.Montant,
					DatePaiement: date,
					ModePaiement: body.Mode,
					Periode:      l.Periode,
					AgentID:      body.AgentID,
				},
			})
		}

		res := PayerLoyersGroupe(database.DB, lignes)

		if len(res.Reussites) > 0 {
			events.Notify("paiement", "create")
		}

		return c.JSON(res)
	}
}

type PaiementListItem struct {
	ID              uint                `json:"id"`
	AgenceID        uint                `json:"agence_id"`
	Type            models.TypePaiement `json:"type"`
	ContratID       uint                `json:"contrat_id"`
	Montant         decimal.Decimal     `json:"montant"`
	DatePaiement    string              `json:"date_paiement"`
	ModePaiement    string              `json:"mode_paiement"`
	Reference       string              `json:"reference,omitempty"`
	PeriodeCouverte string              `json:"periode_couverte,omitempty"`
	AgentID         *uint               `json:"agent_id,omitempty"`
}

// -------------------------------------------------
// GET /api/paiements?type=loyer&contrat_id=1&du=...&au=...
// -------------------------------------------------
func ListPaiementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		agenceID, err := auth.AgenceIDDepuisQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.Paiement{}).Where("agence_id = ?", agenceID)

		if t := c.Query("type"); t != "" {
			dbq = dbq.Where("type = ?", t)
		}
		if cidStr := c.Query("contrat_id"); cidStr != "" {
			var cid uint
			if _, err := fmt.Sscan(cidStr, &cid); err == nil && cid > 0 {
				dbq = dbq.Where("contrat_id = ?", cid)
			}
		}
		if du := c.Query("du"); du != "" {
			d, err := time.Parse("2006-01-02", du)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Date 'du' invalide")
			}
			dbq = dbq.Where("date_paiement >= ?", d)
		}
		if au := c.Query("au"); au != "" {
			d, err := time.Parse("2006-01-02", au)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Date 'au' invalide")
			}
			dbq = dbq.Where("date_paiement < ?", d.AddDate(0, 0, 1))
		}

		var paiements []models.Paiement
		if err := dbq.Order("date_paiement asc, id asc").Find(&paiements).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Lecture des paiements impossible")
		}

		resp := make([]PaiementListItem, 0, len(paiements))
		for _, p := range paiements {
			resp = append(resp, PaiementListItem{
				ID:              p.ID,
				AgenceID:        p.AgenceID,
				Type:            p.Type,
				ContratID:       p.ContratID,
				Montant:         p.Montant,
				DatePaiement:    p.DatePaiement.Format("2006-01-02"),
				ModePaiement:    p.ModePaiement,
				Reference:       p.Reference,
				PeriodeCouverte: p.PeriodeCouverte,
				AgentID:         p.AgentID,
			})
		}

		return c.JSON(resp)
	}
}
