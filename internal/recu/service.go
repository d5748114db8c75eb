package recu

import (
	"errors"
	"fmt"
	"time"

	"immogest-backend/internal/database"
	"immogest-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EmissionRecu - commande d'émission d'un reçu
type EmissionRecu struct {
	AgenceID      uint
	ClientID      uint
	ReferenceID   uint // id du paiement à l'origine
	TypeOperation string
	MontantTotal  decimal.Decimal
	PeriodeDebut  string
	PeriodeFin    string
	Prefixe       string // "R" par défaut, "F" pour les règlements fournisseurs
}

// Emettre alloue un numéro et persiste le reçu, dans la transaction de
// l'appelant : si l'unité échoue, le reçu et le compteur sont annulés
// avec le reste. Le numéro garde le préfixe historique (R-/F-) mais est
// adossé à une séquence verrouillée, jamais à horodatage+aléa.
func Emettre(tx *gorm.DB, e EmissionRecu) (*models.Recu, error) {
	prefixe := e.Prefixe
	if prefixe == "" {
		prefixe = "R"
	}

	numero, err := prochainNumero(tx, prefixe)
	if err != nil {
		return nil, err
	}

	r := models.Recu{
		AgenceID:      e.AgenceID,
		Numero:        numero,
		ClientID:      e.ClientID,
		ReferenceID:   e.ReferenceID,
		TypeOperation: e.TypeOperation,
		MontantTotal:  e.MontantTotal,
		PeriodeDebut:  e.PeriodeDebut,
		PeriodeFin:    e.PeriodeFin,
		EmisLe:        time.Now(),
	}
	if err := tx.Create(&r).Error; err != nil {
		return nil, err
	}

	return &r, nil
}

// prochainNumero incrémente la séquence du préfixe sous verrou de ligne.
func prochainNumero(tx *gorm.DB, prefixe string) (string, error) {
	var compteur models.CompteurRecu
	err := database.PourMiseAJour(tx).Where("prefixe = ?", prefixe).First(&compteur).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		compteur = models.CompteurRecu{Prefixe: prefixe, Valeur: 0}
		if err := tx.Create(&compteur).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	compteur.Valeur++
	if err := tx.Model(&compteur).Update("valeur", compteur.Valeur).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%06d", prefixe, compteur.Valeur), nil
}

// ClientSysteme retourne le client porteur des reçus fournisseurs de
// l'agence, en le créant au besoin dans la transaction courante.
func ClientSysteme(tx *gorm.DB, agenceID uint) (uint, error) {
	var client models.Client
	err := tx.Where("agence_id = ? AND systeme = ?", agenceID, true).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		client = models.Client{AgenceID: agenceID, Nom: "SYSTEME", Systeme: true}
		if err := tx.Create(&client).Error; err != nil {
			return 0, err
		}
		return client.ID, nil
	}
	if err != nil {
		return 0, err
	}
	return client.ID, nil
}
