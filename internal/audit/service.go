package audit

import (
	"encoding/json"
	"fmt"

	"immogest-backend/internal/database"
	"immogest-backend/internal/models"
)

type LogOptions struct {
	AgenceID    *uint
	UserID      uint
	UserName    string
	EntityType  string // "paiement", "mouvement_caisse", "recu", "location", ...
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog écrit une entrée d'audit. Appelé hors transaction : un échec
// d'audit ne doit jamais annuler l'opération métier.
func WriteLog(opts LogOptions) error {
	// jsonb Postgres : "null" plutôt que chaîne vide
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		AgenceID:    opts.AgenceID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := database.DB.Create(&log).Error; err != nil {
		return fmt.Errorf("écriture du log d'audit impossible : %w", err)
	}

	return nil
}
