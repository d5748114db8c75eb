package models

import "time"

// Agence - agence immobilière (tenant du grand livre de caisse)
type Agence struct {
	ID        uint   `gorm:"primaryKey"`
	Nom       string `gorm:"size:100;not null;unique"`
	Adresse   string `gorm:"size:255"`
	Telephone string `gorm:"size:50"` // Téléphone optionnel
	CreatedAt time.Time
	UpdatedAt time.Time

	Users []User
}
