package models

import "time"

// AgentRecouvreur - agent de terrain qui collecte les loyers et mensualités
type AgentRecouvreur struct {
	ID        uint   `gorm:"primaryKey"`
	AgenceID  uint   `gorm:"index;not null"`
	Agence    Agence `gorm:"foreignKey:AgenceID"`
	Nom       string `gorm:"size:150;not null"`
	Telephone string `gorm:"size:50"`
	Zone      string `gorm:"size:100"` // secteur de collecte
	CreatedAt time.Time
	UpdatedAt time.Time
}
