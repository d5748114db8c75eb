package paiement

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LigneLot - un loyer à encaisser dans un lot groupé
type LigneLot struct {
	LocationID uint
	Commande   CommandePaiement
}

// ErreurLot - échec d'une ligne du lot, rapporté sans annuler les autres
type ErreurLot struct {
	LocationID uint   `json:"location_id"`
	Periode    string `json:"periode,omitempty"`
	Erreur     string `json:"erreur"`
}

// ReussiteLot - ligne du lot encaissée avec succès
type ReussiteLot struct {
	LocationID uint   `json:"location_id"`
	PaiementID uint   `json:"paiement_id"`
	RecuNumero string `json:"recu_numero"`
}

// ResultatLot - bilan d'un encaissement groupé
type ResultatLot struct {
	Reussites []ReussiteLot `json:"reussites"`
	Erreurs   []ErreurLot   `json:"erreurs"`
}

// PayerLoyersGroupe encaisse un lot de loyers. Chaque ligne est sa
// propre unité transactionnelle : une période déjà réglée ou un montant
// invalide est rapporté dans erreurs[] sans annuler les lignes déjà
// validées. C'est le seul endroit où l'échec partiel est voulu — le lot
// lui-même n'est pas atomique.
func PayerLoyersGroupe(db *gorm.DB, lignes []LigneLot) ResultatLot {
	res := ResultatLot{
		Reussites: make([]ReussiteLot, 0, len(lignes)),
		Erreurs:   make([]ErreurLot, 0),
	}

	for _, ligne := range lignes {
		cmd := ligne.Commande
		cmd.ContratID = ligne.LocationID

		r, err := PayerLocation(db, cmd)
		if err != nil {
			message := "Erreur interne"
			if fe, ok := err.(*fiber.Error); ok {
				message = fe.Message
			}
			res.Erreurs = append(res.Erreurs, ErreurLot{
				LocationID: ligne.LocationID,
				Periode:    cmd.Periode,
				Erreur:     message,
			})
			continue
		}

		res.Reussites = append(res.Reussites, ReussiteLot{
			LocationID: ligne.LocationID,
			PaiementID: r.PaiementID,
			RecuNumero: r.RecuNumero,
		})
	}

	return res
}
