package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Quelle agence ?
	AgenceID *uint `json:"agence_id"`

	// Quel utilisateur ?
	UserID   uint   `json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"` // nom dénormalisé

	// Quelle entité ? (ex: "paiement", "mouvement_caisse", "location")
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	// Type d'opération : create/update/delete
	Action AuditAction `gorm:"size:20" json:"action"`

	// Résumé lisible
	Description string `gorm:"size:255" json:"description"`

	// État avant et après (JSON)
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}
