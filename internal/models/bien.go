package models

import "time"

type StatutBien string

const (
	BienLibre  StatutBien = "libre"
	BienOccupe StatutBien = "occupe"
)

// Bien - bien immobilier (maison, appartement, terrain)
type Bien struct {
	ID        uint       `gorm:"primaryKey"`
	AgenceID  uint       `gorm:"index;not null"`
	Agence    Agence     `gorm:"foreignKey:AgenceID"`
	Libelle   string     `gorm:"size:200;not null"`
	Adresse   string     `gorm:"size:255"`
	Statut    StatutBien `gorm:"size:20;not null;default:libre"`
	ImportID  *uint      `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
