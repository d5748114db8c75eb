package models

import "time"

// Client - locataire, souscripteur ou client de passage.
// Le client "système" (Systeme=true) sert de porteur pour les reçus
// de paiement fournisseur, qui n'ont pas de client réel.
type Client struct {
	ID        uint   `gorm:"primaryKey"`
	AgenceID  uint   `gorm:"index;not null"`
	Agence    Agence `gorm:"foreignKey:AgenceID"`
	Nom       string `gorm:"size:150;not null"`
	Telephone string `gorm:"size:50"`
	Adresse   string `gorm:"size:255"`
	Systeme   bool   `gorm:"default:false"`
	ImportID  *uint  `gorm:"index"` // renseigné si créé par un import de recouvrement
	CreatedAt time.Time
	UpdatedAt time.Time
}
