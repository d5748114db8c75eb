package caisse

import (
	"errors"
	"strings"
	"time"

	"immogest-backend/internal/database"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Mouvement - commande d'écriture au journal de caisse
type Mouvement struct {
	Montant      decimal.Decimal
	Sens         models.SensMouvement
	Categorie    models.CategorieMouvement
	LienID       *uint // paiement ou vente à l'origine du mouvement
	Beneficiaire string
	ModePaiement string
	Reference    string
}

// Poster applique un mouvement au solde de caisse de l'agence et ajoute
// la ligne de journal correspondante. DOIT être appelé dans une
// transaction (via DansTransaction) : la ligne de solde est verrouillée
// FOR UPDATE jusqu'au commit, ce qui sérialise les écritures
// concurrentes et interdit les mises à jour perdues. La ligne de
// journal retournée porte le solde avant et après.
func Poster(tx *gorm.DB, agenceID uint, m Mouvement) (*models.MouvementCaisse, error) {
	if !m.Montant.IsPositive() {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Le montant doit être supérieur à 0")
	}
	switch m.Sens {
	case models.SensEntree, models.SensSortie:
		// ok
	default:
		return nil, fiber.NewError(fiber.StatusBadRequest, "Sens invalide (entree|sortie)")
	}

	var solde models.SoldeCaisse
	err := database.PourMiseAJour(tx).Where("agence_id = ?", agenceID).First(&solde).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Premier mouvement de l'agence : la ligne de solde est créée
		// paresseusement. En cas de création concurrente, la contrainte
		// d'unicité fait échouer la transaction qui sera rejouée.
		solde = models.SoldeCaisse{AgenceID: agenceID, Solde: decimal.Zero}
		if err := tx.Create(&solde).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	avant := solde.Solde
	var apres decimal.Decimal
	if m.Sens == models.SensEntree {
		apres = avant.Add(m.Montant)
	} else {
		apres = avant.Sub(m.Montant)
	}

	if err := tx.Model(&solde).Update("solde", apres).Error; err != nil {
		return nil, err
	}

	mouvement := models.MouvementCaisse{
		AgenceID:     agenceID,
		Montant:      m.Montant,
		Sens:         m.Sens,
		Categorie:    m.Categorie,
		SoldeAvant:   avant,
		SoldeApres:   apres,
		LienID:       m.LienID,
		Beneficiaire: m.Beneficiaire,
		ModePaiement: m.ModePaiement,
		Reference:    m.Reference,
	}
	if err := tx.Create(&mouvement).Error; err != nil {
		return nil, err
	}

	return &mouvement, nil
}

const maxTentatives = 3

// DansTransaction exécute fn dans une transaction et rejoue un nombre
// borné de fois en cas d'échec de sérialisation. Toute erreur annule
// l'intégralité des écritures de l'unité (solde, journal, paiement,
// contrat, reçu) : aucune écriture partielle n'est jamais visible.
func DansTransaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for tentative := 0; tentative < maxTentatives; tentative++ {
		err = db.Transaction(fn)
		if err == nil || !estConflitConcurrent(err) {
			return err
		}
		time.Sleep(time.Duration(tentative+1) * 20 * time.Millisecond)
	}
	return fiber.NewError(fiber.StatusConflict, "Conflit d'accès concurrent sur la caisse, réessayez")
}

// estConflitConcurrent reconnaît les échecs transitoires : échec de
// sérialisation ou deadlock Postgres (40001, 40P01), verrous sqlite des
// tests, et les violations d'unicité des seules lignes créées
// paresseusement sous verrou (solde de caisse, compteurs de reçus).
// Les autres violations d'unicité sont des erreurs de données, pas des
// conflits à rejouer.
func estConflitConcurrent(err error) bool {
	msg := err.Error()
	if strings.Contains(msg, "40001") ||
		strings.Contains(msg, "40P01") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") {
		return true
	}
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint") {
		return strings.Contains(msg, "solde_caisses") || strings.Contains(msg, "compteur_recus")
	}
	return false
}
