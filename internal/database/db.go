package database

import (
	"log"

	"immogest-backend/internal/config"
	"immogest-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Connexion à la base de données impossible : %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("Erreur de migration : %v", err)
	}

	log.Println("Connexion à la base réussie. Migration terminée.")
}

// Migrate exécute l'AutoMigrate de tous les modèles puis les migrations
// manuelles. Appelée aussi par les tests sur leur base sqlite.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Agence{},
		&models.User{},
		&models.Client{},
		&models.Bien{},
		&models.AgentRecouvreur{},
		&models.Location{},
		&models.Souscription{},
		&models.FactureFournisseur{},
		&models.Paiement{},
		&models.SoldeCaisse{},
		&models.MouvementCaisse{},
		&models.Recu{},
		&models.CompteurRecu{},
		&models.Vente{},
		&models.ImportRecouvrement{},
		&models.AuditLog{},
	)
	if err != nil {
		return err
	}

	// Migration manuelle : les anciennes bases n'avaient pas de ligne
	// solde_caisses (le solde était recalculé à chaque lecture). On
	// reconstruit l'instantané en repliant le journal, agence par agence.
	var agenceIDs []uint
	if err := db.Model(&models.MouvementCaisse{}).
		Distinct("agence_id").
		Pluck("agence_id", &agenceIDs).Error; err != nil {
		return err
	}
	for _, agenceID := range agenceIDs {
		var count int64
		if err := db.Model(&models.SoldeCaisse{}).
			Where("agence_id = ?", agenceID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		log.Printf("Reconstruction du solde de caisse pour l'agence %d...", agenceID)
		type ligne struct {
			Total string
		}
		var l ligne
		if err := db.Model(&models.MouvementCaisse{}).
			Select("COALESCE(SUM(CASE WHEN sens = 'entree' THEN montant ELSE -montant END), 0) as total").
			Where("agence_id = ?", agenceID).
			Scan(&l).Error; err != nil {
			return err
		}
		if err := db.Exec(
			"INSERT INTO solde_caisses (agence_id, solde, created_at, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)",
			agenceID, l.Total,
		).Error; err != nil {
			return err
		}
	}

	return nil
}
