package recu

import (
	"fmt"
	"testing"

	"immogest-backend/internal/database"
	"immogest-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ouvrirBaseTest(t *testing.T) (*gorm.DB, models.Agence, models.Client) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	agence := models.Agence{Nom: "Agence Test"}
	require.NoError(t, db.Create(&agence).Error)
	client := models.Client{AgenceID: agence.ID, Nom: "Bamba Salif"}
	require.NoError(t, db.Create(&client).Error)
	return db, agence, client
}

func TestNumerotationSequentielleParPrefixe(t *testing.T) {
	db, agence, client := ouvrirBaseTest(t)

	var numeros []string
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			r, err := Emettre(tx, EmissionRecu{
				AgenceID:      agence.ID,
				ClientID:      client.ID,
				ReferenceID:   uint(i + 1),
				TypeOperation: "paiement_loyer",
				MontantTotal:  decimal.NewFromInt(100000),
			})
			if err != nil {
				return err
			}
			numeros = append(numeros, r.Numero)
			return nil
		}))
	}
	assert.Equal(t, []string{"R-000001", "R-000002", "R-000003"}, numeros)

	// le préfixe fournisseur a sa propre séquence
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		r, err := Emettre(tx, EmissionRecu{
			AgenceID:      agence.ID,
			ClientID:      client.ID,
			ReferenceID:   10,
			TypeOperation: "paiement_facture",
			MontantTotal:  decimal.NewFromInt(5000),
			Prefixe:       "F",
		})
		if err != nil {
			return err
		}
		assert.Equal(t, "F-000001", r.Numero)
		return nil
	}))
}

func TestEmissionAnnuleeNeConsommePasLaSequence(t *testing.T) {
	db, agence, client := ouvrirBaseTest(t)

	// la transaction échoue après l'émission : reçu ET compteur annulés
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := Emettre(tx, EmissionRecu{
			AgenceID:      agence.ID,
			ClientID:      client.ID,
			ReferenceID:   1,
			TypeOperation: "paiement_loyer",
			MontantTotal:  decimal.NewFromInt(100000),
		}); err != nil {
			return err
		}
		return fmt.Errorf("échec simulé")
	})
	require.Error(t, err)

	var n int64
	require.NoError(t, db.Model(&models.Recu{}).Count(&n).Error)
	assert.Zero(t, n)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		r, err := Emettre(tx, EmissionRecu{
			AgenceID:      agence.ID,
			ClientID:      client.ID,
			ReferenceID:   2,
			TypeOperation: "paiement_loyer",
			MontantTotal:  decimal.NewFromInt(100000),
		})
		if err != nil {
			return err
		}
		assert.Equal(t, "R-000001", r.Numero)
		return nil
	}))
}

func TestClientSystemeUniqueParAgence(t *testing.T) {
	db, agence, _ := ouvrirBaseTest(t)

	var id1, id2 uint
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		id1, err = ClientSysteme(tx, agence.ID)
		return err
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		id2, err = ClientSysteme(tx, agence.ID)
		return err
	}))
	assert.Equal(t, id1, id2)

	var n int64
	require.NoError(t, db.Model(&models.Client{}).Where("systeme = ?", true).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}
