package caisse

import (
	"errors"
	"sync"
	"testing"

	"immogest-backend/internal/database"
	"immogest-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ouvrirBaseTest(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// une seule connexion : la base :memory: n'est pas partagée entre
	// connexions, et cela sérialise les écritures comme en production
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func agenceTest(t *testing.T, db *gorm.DB) models.Agence {
	t.Helper()
	agence := models.Agence{Nom: "Agence Test"}
	require.NoError(t, db.Create(&agence).Error)
	return agence
}

func TestPosterChaineLeJournal(t *testing.T) {
	db := ouvrirBaseTest(t)
	agence := agenceTest(t, db)

	var m1, m2, m3 *models.MouvementCaisse
	require.NoError(t, DansTransaction(db, func(tx *gorm.DB) error {
		var err error
		m1, err = Poster(tx, agence.ID, Mouvement{
			Montant:   decimal.NewFromInt(100000),
			Sens:      models.SensEntree,
			Categorie: models.CategorieLoyer,
		})
		return err
	}))
	require.NoError(t, DansTransaction(db, func(tx *gorm.DB) error {
		var err error
		m2, err = Poster(tx, agence.ID, Mouvement{
			Montant:   decimal.NewFromInt(25000),
			Sens:      models.SensSortie,
			Categorie: models.CategorieFacture,
		})
		return err
	}))
	require.NoError(t, DansTransaction(db, func(tx *gorm.DB) error {
		var err error
		m3, err = Poster(tx, agence.ID, Mouvement{
			Montant:   decimal.NewFromInt(40000),
			Sens:      models.SensEntree,
			Categorie: models.CategorieVente,
		})
		return err
	}))

	// chaque ligne part du solde laissé par la précédente
	assert.True(t, m1.SoldeAvant.IsZero())
	assert.True(t, m1.SoldeApres.Equal(decimal.NewFromInt(100000)))
	assert.True(t, m2.SoldeAvant.Equal(m1.SoldeApres))
	assert.True(t, m2.SoldeApres.Equal(decimal.NewFromInt(75000)))
	assert.True(t, m3.SoldeAvant.Equal(m2.SoldeApres))
	assert.True(t, m3.SoldeApres.Equal(decimal.NewFromInt(115000)))

	solde, err := SoldeCourant(db, agence.ID)
	require.NoError(t, err)
	assert.True(t, solde.Equal(decimal.NewFromInt(115000)))
}

func TestPosterRefuseMontantInvalide(t *testing.T) {
	db := ouvrirBaseTest(t)
	agence := agenceTest(t, db)

	err := DansTransaction(db, func(tx *gorm.DB) error {
		_, err := Poster(tx, agence.ID, Mouvement{
			Montant:   decimal.Zero,
			Sens:      models.SensEntree,
			Categorie: models.CategorieManuel,
		})
		return err
	})
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)

	err = DansTransaction(db, func(tx *gorm.DB) error {
		_, err := Poster(tx, agence.ID, Mouvement{
			Montant:   decimal.NewFromInt(100),
			Sens:      "ailleurs",
			Categorie: models.CategorieManuel,
		})
		return err
	})
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)

	// rien ne doit avoir été écrit
	var n int64
	require.NoError(t, db.Model(&models.MouvementCaisse{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestSoldeCourantReplieLeJournal(t *testing.T) {
	db := ouvrirBaseTest(t)
	agence := agenceTest(t, db)

	// caisse jamais mouvementée : 0
	solde, err := SoldeCourant(db, agence.ID)
	require.NoError(t, err)
	assert.True(t, solde.IsZero())

	// journal présent mais pas d'instantané (cas de reprise de données)
	require.NoError(t, db.Create(&models.MouvementCaisse{
		AgenceID:   agence.ID,
		Montant:    decimal.NewFromInt(80000),
		Sens:       models.SensEntree,
		Categorie:  models.CategorieLoyer,
		SoldeAvant: decimal.Zero,
		SoldeApres: decimal.NewFromInt(80000),
	}).Error)
	require.NoError(t, db.Create(&models.MouvementCaisse{
		AgenceID:   agence.ID,
		Montant:    decimal.NewFromInt(30000),
		Sens:       models.SensSortie,
		Categorie:  models.CategorieCaution,
		SoldeAvant: decimal.NewFromInt(80000),
		SoldeApres: decimal.NewFromInt(50000),
	}).Error)

	solde, err = SoldeCourant(db, agence.ID)
	require.NoError(t, err)
	assert.True(t, solde.Equal(decimal.NewFromInt(50000)))
}

func TestClassementDesConflitsConcurrents(t *testing.T) {
	transitoires := []string{
		"ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)",
		"ERROR: deadlock detected (SQLSTATE 40P01)",
		"database is locked",
		"database table is locked: mouvement_caisses",
		`ERROR: duplicate key value violates unique constraint "idx_solde_caisses_agence_id" (SQLSTATE 23505)`,
		"UNIQUE constraint failed: solde_caisses.agence_id",
		"UNIQUE constraint failed: compteur_recus.prefixe",
	}
	for _, msg := range transitoires {
		assert.True(t, estConflitConcurrent(errors.New(msg)), msg)
	}

	// une violation d'unicité métier n'est pas un conflit à rejouer
	definitives := []string{
		"UNIQUE constraint failed: agences.nom",
		`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`,
		"ERROR: null value in column \"montant\" (SQLSTATE 23502)",
	}
	for _, msg := range definitives {
		assert.False(t, estConflitConcurrent(errors.New(msg)), msg)
	}
}

func TestEcrituresConcurrentes(t *testing.T) {
	db := ouvrirBaseTest(t)
	agence := agenceTest(t, db)

	const n = 20
	montant := decimal.NewFromInt(1000)

	var wg sync.WaitGroup
	erreurs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			erreurs <- DansTransaction(db, func(tx *gorm.DB) error {
				_, err := Poster(tx, agence.ID, Mouvement{
					Montant:   montant,
					Sens:      models.SensEntree,
					Categorie: models.CategorieLoyer,
				})
				return err
			})
		}()
	}
	wg.Wait()
	close(erreurs)
	for err := range erreurs {
		require.NoError(t, err)
	}

	// pas de mise à jour perdue : le solde vaut la somme exacte
	solde, err := SoldeCourant(db, agence.ID)
	require.NoError(t, err)
	assert.True(t, solde.Equal(montant.Mul(decimal.NewFromInt(n))))

	var mouvements []models.MouvementCaisse
	require.NoError(t, db.Order("id asc").Find(&mouvements).Error)
	require.Len(t, mouvements, n)
	for i, m := range mouvements {
		assert.True(t, m.SoldeApres.Equal(m.SoldeAvant.Add(m.Montant)))
		if i > 0 {
			assert.True(t, m.SoldeAvant.Equal(mouvements[i-1].SoldeApres))
		}
	}
}
