package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PourMiseAJour ajoute SELECT ... FOR UPDATE à la requête sur Postgres.
// Le verrou de ligne sérialise les écritures concurrentes sur la même
// ligne (solde de caisse, compteur de reçus) pendant toute la
// transaction. Sqlite (utilisé par les tests) ne connaît pas cette
// syntaxe mais n'accepte de toute façon qu'un seul écrivain à la fois.
func PourMiseAJour(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
