package models

import "time"

type UserRole string

const (
	RoleAdmin        UserRole = "admin"        // accès toutes agences
	RoleGestionnaire UserRole = "gestionnaire" // limité à son agence
)

type User struct {
	ID           uint `gorm:"primaryKey"`
	AgenceID     *uint
	Agence       *Agence
	Nom          string   `gorm:"size:100;not null"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
