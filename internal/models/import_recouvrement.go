package models

import "time"

// ImportRecouvrement - lot d'import des versements d'un agent pour une
// période. Les lignes créées par l'import (clients, biens, locations,
// paiements) portent son id pour que l'annulation retrouve exactement
// son périmètre. Un lot est identifié côté API par
// (agent, mois, annee, type_operation).
type ImportRecouvrement struct {
	ID            uint   `gorm:"primaryKey"`
	AgenceID      uint   `gorm:"index;not null"`
	Reference     string `gorm:"size:36;uniqueIndex;not null"` // uuid
	AgentID       uint   `gorm:"index;not null"`
	Mois          int    `gorm:"not null"`
	Annee         int    `gorm:"not null"`
	TypeOperation string `gorm:"size:30;not null"` // loyer / droit_terre
	CreatedAt     time.Time
}
