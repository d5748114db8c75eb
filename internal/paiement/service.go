package paiement

import (
	"errors"
	"fmt"
	"time"

	"immogest-backend/internal/caisse"
	"immogest-backend/internal/database"
	"immogest-backend/internal/models"
	"immogest-backend/internal/recu"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tolérance d'arrondi sur les comparaisons de soldes (0,01 FCFA)
var epsilonMontant = decimal.RequireFromString("0.01")

// CommandePaiement - commande typée d'un cas d'usage de paiement.
// L'agence est celle du contrat visé ; le contrôle d'accès est fait en
// amont par le handler.
type CommandePaiement struct {
	ContratID    uint
	Montant      decimal.Decimal
	DatePaiement time.Time
	ModePaiement string
	Reference    string
	Periode      string // "AAAA-MM", optionnel
	AgentID      *uint
	ImportID     *uint
}

// ResultatPaiement - identifiants produits par une unité de paiement
type ResultatPaiement struct {
	PaiementID uint
	RecuID     uint
	RecuNumero string
	SoldeAvant decimal.Decimal
	SoldeApres decimal.Decimal
}

// Chaque cas d'usage existe en deux saveurs : la version publique ouvre
// sa propre unité transactionnelle, la version *Tx s'exécute dans la
// transaction de l'appelant (import de recouvrement notamment).

func PayerLocation(db *gorm.DB, cmd CommandePaiement) (*ResultatPaiement, error) {
	return dansUnite(db, cmd, PayerLocationTx)
}

func PayerCaution(db *gorm.DB, cmd CommandePaiement) (*ResultatPaiement, error) {
	return dansUnite(db, cmd, PayerCautionTx)
}

func PayerSouscription(db *gorm.DB, cmd CommandePaiement) (*ResultatPaiement, error) {
	return dansUnite(db, cmd, PayerSouscriptionTx)
}

func PayerDroitTerre(db *gorm.DB, cmd CommandePaiement) (*ResultatPaiement, error) {
	return dansUnite(db, cmd, PayerDroitTerreTx)
}

func PayerFacture(db *gorm.DB, cmd CommandePaiement) (*ResultatPaiement, error) {
	return dansUnite(db, cmd, PayerFactureTx)
}

func dansUnite(db *gorm.DB, cmd CommandePaiement, fn func(*gorm.DB, CommandePaiement) (*ResultatPaiement, error)) (*ResultatPaiement, error) {
	var res *ResultatPaiement
	err := caisse.DansTransaction(db, func(tx *gorm.DB) error {
		r, err := fn(tx, cmd)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func validerCommande(cmd *CommandePaiement) error {
	if !cmd.Montant.IsPositive() {
		return fiber.NewError(fiber.StatusBadRequest, "Le montant doit être supérieur à 0")
	}
	if cmd.ModePaiement == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Le mode de paiement est obligatoire")
	}
	if cmd.DatePaiement.IsZero() {
		cmd.DatePaiement = time.Now()
	}
	return nil
}

// PayerLocationTx encaisse un loyer. Le montant reste libre : le loyer
// mensuel du bail n'est qu'indicatif, les paiements partiels sont
// acceptés. Si une période est fournie, un second paiement sur la même
// période est refusé.
func PayerLocationTx(tx *gorm.DB, cmd CommandePaiement) (*ResultatPaiement, error) {
	if err := validerCommande(&cmd); err != nil {
		return nil, err
	}

	var location models.Location
	if err := database.PourMiseAJour(tx).First(&location, "id = ?", cmd.ContratID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Location introuvable")
		}
		return nil, err
	}

	// Garde de période : jamais deux paiements de loyer pour le même
	// bail et le même mois couvert.
	if cmd.Periode != "" {
		var n int64
		if err := tx.Model(&models.Paiement{}).
			Where("type = ? AND contrat_id = ? AND periode_couverte = ?",
				models.PaiementLoyer, location.ID, cmd.Periode).
			Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("La période %s est déjà réglée pour cette location", cmd.Periode))
		}
	}

	p := models.Paiement{
		AgenceID:        location.AgenceID,
		Type:            models.PaiementLoyer,
		ContratID:       location.ID,
		Montant:         cmd.Montant,
		DatePaiement:    cmd.DatePaiement,
		ModePaiement:    cmd.ModePaiement,
		Reference:       cmd.Reference,
		PeriodeCouverte: cmd.Periode,
		AgentID:         cmd.AgentID,
		ImportID:        cmd.ImportID,
	}
	if err := tx.Create(&p).Error; err != nil {
		return nil, err
	}

	mouvement, err := caisse.Poster(tx, location.AgenceID, caisse.Mouvement{
		Montant:      cmd.Montant,
		Sens:         models.SensEntree,
		Categorie:    models.CategorieLoyer,
		LienID:       &p.ID,
		ModePaiement: cmd.ModePaiement,
		Reference:    cmd.Reference,
	})
	if err != nil {
		return nil, err
	}

	// Agrégats du bail
	location.MontantPaye = location.MontantPaye.Add(cmd.Montant)
	location.DetteTotale = location.DetteTotale.Sub(cmd.Montant)
	if err := tx.Model(&location).Updates(map[string]interface{}{
		"montant_paye": location.MontantPaye,
		"dette_totale": location.DetteTotale,
	}).Error; err != nil {
		return nil, err
	}

	r, err := recu.Emettre(tx, recu.EmissionRecu{
		AgenceID:      location.AgenceID,
		ClientID:      location.ClientID,
		ReferenceID:   p.ID,
		TypeOperation: string(models.CategorieLoyer),
		MontantTotal:  cmd.Montant,
		PeriodeDebut:  cmd.Periode,
		PeriodeFin:    cmd.Periode,
	})
	if err != nil {
		return nil, err
	}

	return &ResultatPaiement{
		PaiementID: p.ID,
		RecuID:     r.ID,
		RecuNumero: r.Numero,
		SoldeAvant: mouvement.SoldeAvant,
		SoldeApres: mouvement.SoldeApres,
	}, nil
}

// PayerCautionTx sort la caution de caisse (restitution ou versement à
// la création du bail) et l'enregistre comme paiement du bail.
func PayerCautionTx(tx *gorm.DB, cmd CommandePaiement) (*ResultatPaiement, error) {
	if err := validerCommande(&cmd); err != nil {
		return nil, err
	}

	var location models.Location
	if err := tx.Preload("Client").First(&location, "id = ?", cmd.ContratID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Location introuvable")
		}
		return nil, err
	}

	p := models.Paiement{
		AgenceID:     location.AgenceID,
		Type:         models.PaiementCaution,
		ContratID:    location.ID,
		Montant:      cmd.Montant,
		DatePaiement: cmd.DatePaiement,
		ModePaiement: cmd.ModePaiement,
		Reference:    cmd.Reference,
		AgentID:      cmd.AgentID,
		ImportID:     cmd.ImportID,
	}
	if err := tx.Create(&p).Error; err != nil {
		return nil, err
	}

	mouvement, err := caisse.Poster(tx, location.AgenceID, caisse.Mouvement{
		Montant:      cmd.Montant,
		Sens:         models.SensSortie,
		Categorie:    models.CategorieCaution,
		LienID:       &p.ID,
		Beneficiaire: location.Client.Nom,
		ModePaiement: cmd.ModePaiement,
		Reference:    cmd.Reference,
	})
	if err != nil {
		return nil, err
	}

	r, err := recu.Emettre(tx, recu.EmissionRecu{
		AgenceID:      location.AgenceID,
		ClientID:      location.ClientID,
		ReferenceID:   p.ID,
		TypeOperation: string(models.CategorieCaution),
		MontantTotal:  cmd.Montant,
	})
	if err != nil {
		return nil, err
	}

	return &ResultatPaiement{
		PaiementID: p.ID,
		RecuID:     r.ID,
		RecuNumero: r.Numero,
		SoldeAvant: mouvement.SoldeAvant,
		SoldeApres: mouvement.SoldeApres,
	}, nil
}

// PayerSouscriptionTx encaisse un versement sur le capital d'une
// souscription de droit de terre.
func PayerSouscriptionTx(tx *gorm.DB, cmd CommandePaiement) (*ResultatPaiement, error) {
	return payerSurSouscription(tx, cmd, models.PaiementSouscription, models.CategorieSouscription)
}

// PayerDroitTerreTx encaisse une mensualité de droit de terre.
func PayerDroitTerreTx(tx *gorm.DB, cmd CommandePaiement) (*ResultatPaiement, error) {
	return payerSurSouscription(tx, cmd, models.PaiementDroitTerre, models.CategorieDroitTerre)
}

func payerSurSouscription(tx *gorm.DB, cmd CommandePaiement, typePaiement models.TypePaiement, categorie models.CategorieMouvement) (*ResultatPaiement, error) {
	if err := validerCommande(&cmd); err != nil {
		return nil, err
	}

	var souscription models.Souscription
	if err := database.PourMiseAJour(tx).First(&souscription, "id = ?", cmd.ContratID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Souscription introuvable")
		}
		return nil, err
	}

	// Le solde restant est recalculé depuis la somme réelle des
	// paiements, pas depuis la colonne de cache : deux paiements
	// concurrents ne peuvent pas valider contre un reste périmé.
	dejaPaye, err := sommePaiements(tx, souscription.ID,
		models.PaiementSouscription, models.PaiementDroitTerre)
	if err != nil {
		return nil, err
	}
	reste := souscription.MontantTotal.Sub(dejaPaye)
	if cmd.Montant.GreaterThan(reste.Add(epsilonMontant)) {
		return nil, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("Le montant (%s FCFA) dépasse le solde restant (%s FCFA)",
				cmd.Montant.StringFixed(0), reste.StringFixed(0)))
	}

	p := models.Paiement{
		AgenceID:        souscription.AgenceID,
		Type:            typePaiement,
		ContratID:       souscription.ID,
		Montant:         cmd.Montant,
		DatePaiement:    cmd.DatePaiement,
		ModePaiement:    cmd.ModePaiement,
		Reference:       cmd.Reference,
		PeriodeCouverte: cmd.Periode,
		AgentID:         cmd.AgentID,
		ImportID:        cmd.ImportID,
	}
	if err := tx.Create(&p).Error; err != nil {
		return nil, err
	}

	mouvement, err := caisse.Poster(tx, souscription.AgenceID, caisse.Mouvement{
		Montant:      cmd.Montant,
		Sens:         models.SensEntree,
		Categorie:    categorie,
		LienID:       &p.ID,
		ModePaiement: cmd.ModePaiement,
		Reference:    cmd.Reference,
	})
	if err != nil {
		return nil, err
	}

	// Agrégats de la souscription
	nouveauPaye := dejaPaye.Add(cmd.Montant)
	nouveauSolde := souscription.MontantTotal.Sub(nouveauPaye)
	statut := models.SouscriptionEnCours
	if nouveauSolde.LessThanOrEqual(epsilonMontant) {
		statut = models.SouscriptionSoldee
	}
	if err := tx.Model(&souscription).Updates(map[string]interface{}{
		"montant_paye":  nouveauPaye,
		"solde_restant": nouveauSolde,
		"statut":        statut,
	}).Error; err != nil {
		return nil, err
	}

	r, err := recu.Emettre(tx, recu.EmissionRecu{
		AgenceID:      souscription.AgenceID,
		ClientID:      souscription.ClientID,
		ReferenceID:   p.ID,
		TypeOperation: string(categorie),
		MontantTotal:  cmd.Montant,
		PeriodeDebut:  cmd.Periode,
		PeriodeFin:    cmd.Periode,
	})
	if err != nil {
		return nil, err
	}

	return &ResultatPaiement{
		PaiementID: p.ID,
		RecuID:     r.ID,
		RecuNumero: r.Numero,
		SoldeAvant: mouvement.SoldeAvant,
		SoldeApres: mouvement.SoldeApres,
	}, nil
}

// PayerFactureTx règle (partiellement ou totalement) une facture
// fournisseur. Sortie de caisse ; le reçu est porté par le client
// système de l'agence.
func PayerFactureTx(tx *gorm.DB, cmd CommandePaiement) (*ResultatPaiement, error) {
	if err := validerCommande(&cmd); err != nil {
		return nil, err
	}

	var facture models.FactureFournisseur
	if err := database.PourMiseAJour(tx).First(&facture, "id = ?", cmd.ContratID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Facture introuvable")
		}
		return nil, err
	}

	// Même principe que la souscription : reste recalculé depuis la
	// somme réelle des règlements au moment de la transaction.
	dejaPaye, err := sommePaiements(tx, facture.ID, models.PaiementFacture)
	if err != nil {
		return nil, err
	}
	reste := facture.MontantTotal.Sub(dejaPaye)
	if cmd.Montant.GreaterThan(reste.Add(epsilonMontant)) {
		return nil, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("Le montant (%s FCFA) dépasse le solde de la facture (%s FCFA)",
				cmd.Montant.StringFixed(0), reste.StringFixed(0)))
	}

	p := models.Paiement{
		AgenceID:     facture.AgenceID,
		Type:         models.PaiementFacture,
		ContratID:    facture.ID,
		Montant:      cmd.Montant,
		DatePaiement: cmd.DatePaiement,
		ModePaiement: cmd.ModePaiement,
		Reference:    cmd.Reference,
		AgentID:      cmd.AgentID,
		ImportID:     cmd.ImportID,
	}
	if err := tx.Create(&p).Error; err != nil {
		return nil, err
	}

	mouvement, err := caisse.Poster(tx, facture.AgenceID, caisse.Mouvement{
		Montant:      cmd.Montant,
		Sens:         models.SensSortie,
		Categorie:    models.CategorieFacture,
		LienID:       &p.ID,
		Beneficiaire: facture.Fournisseur,
		ModePaiement: cmd.ModePaiement,
		Reference:    cmd.Reference,
	})
	if err != nil {
		return nil, err
	}

	nouveauPaye := dejaPaye.Add(cmd.Montant)
	nouveauSolde := facture.MontantTotal.Sub(nouveauPaye)
	statut := models.FacturePartiel
	if nouveauSolde.LessThanOrEqual(epsilonMontant) {
		statut = models.FacturePayee
	}
	if err := tx.Model(&facture).Updates(map[string]interface{}{
		"montant_paye": nouveauPaye,
		"solde":        nouveauSolde,
		"statut":       statut,
	}).Error; err != nil {
		return nil, err
	}

	clientID, err := recu.ClientSysteme(tx, facture.AgenceID)
	if err != nil {
		return nil, err
	}
	r, err := recu.Emettre(tx, recu.EmissionRecu{
		AgenceID:      facture.AgenceID,
		ClientID:      clientID,
		ReferenceID:   p.ID,
		TypeOperation: string(models.CategorieFacture),
		MontantTotal:  cmd.Montant,
		Prefixe:       "F",
	})
	if err != nil {
		return nil, err
	}

	return &ResultatPaiement{
		PaiementID: p.ID,
		RecuID:     r.ID,
		RecuNumero: r.Numero,
		SoldeAvant: mouvement.SoldeAvant,
		SoldeApres: mouvement.SoldeApres,
	}, nil
}

// sommePaiements retourne la somme réelle des paiements des types
// donnés pour un contrat (source de vérité, pas la colonne de cache).
func sommePaiements(tx *gorm.DB, contratID uint, types ...models.TypePaiement) (decimal.Decimal, error) {
	type ligne struct {
		Total decimal.NullDecimal
	}
	var l ligne
	if err := tx.Model(&models.Paiement{}).
		Select("SUM(montant) as total").
		Where("contrat_id = ? AND type IN ?", contratID, types).
		Scan(&l).Error; err != nil {
		return decimal.Zero, err
	}
	if !l.Total.Valid {
		return decimal.Zero, nil
	}
	return l.Total.Decimal, nil
}
