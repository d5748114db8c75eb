package paiement

import (
	"testing"

	"immogest-backend/internal/caisse"
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

func ouvrirBaseTest(t *testing.T) (*gorm.DB, models.Agence) {
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
	return db, agence
}

func locationTest(t *testing.T, db *gorm.DB, agenceID uint, dette int64) models.Location {
	t.Helper()
	client := models.Client{AgenceID: agenceID, Nom: "Kouassi Jean"}
	require.NoError(t, db.Create(&client).Error)
	bien := models.Bien{AgenceID: agenceID, Libelle: "Villa Cocody 12", Statut: models.BienOccupe}
	require.NoError(t, db.Create(&bien).Error)
	location := models.Location{
		AgenceID:     agenceID,
		ClientID:     client.ID,
		BienID:       bien.ID,
		LoyerMensuel: decimal.NewFromInt(100000),
		Caution:      decimal.NewFromInt(500000),
		DetteTotale:  decimal.NewFromInt(dette),
		MontantPaye:  decimal.Zero,
		Statut:       models.LocationActive,
	}
	require.NoError(t, db.Create(&location).Error)
	return location
}

func souscriptionTest(t *testing.T, db *gorm.DB, agenceID uint, total int64) models.Souscription {
	t.Helper()
	client := models.Client{AgenceID: agenceID, Nom: "Traoré Awa"}
	require.NoError(t, db.Create(&client).Error)
	bien := models.Bien{AgenceID: agenceID, Libelle: "Terrain Bingerville L8"}
	require.NoError(t, db.Create(&bien).Error)
	souscription := models.Souscription{
		AgenceID:             agenceID,
		ClientID:             client.ID,
		BienID:               bien.ID,
		MontantTotal:         decimal.NewFromInt(total),
		MontantPaye:          decimal.Zero,
		SoldeRestant:         decimal.NewFromInt(total),
		MensualiteDroitTerre: decimal.NewFromInt(50000),
		Statut:               models.SouscriptionEnCours,
	}
	require.NoError(t, db.Create(&souscription).Error)
	return souscription
}

func codeErreur(t *testing.T, err error) int {
	t.Helper()
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	return fe.Code
}

func TestPayerLoyer(t *testing.T) {
	db, agence := ouvrirBaseTest(t)
	location := locationTest(t, db, agence.ID, 300000)

	res, err := PayerLocation(db, CommandePaiement{
		ContratID:    location.ID,
		Montant:      decimal.NewFromInt(100000),
		ModePaiement: "especes",
		Periode:      "2026-05",
	})
	require.NoError(t, err)
	assert.Equal(t, "R-000001", res.RecuNumero)
	assert.True(t, res.SoldeAvant.IsZero())
	assert.True(t, res.SoldeApres.Equal(decimal.NewFromInt(100000)))

	var rechargee models.Location
	require.NoError(t, db.First(&rechargee, "id = ?", location.ID).Error)
	assert.True(t, rechargee.MontantPaye.Equal(decimal.NewFromInt(100000)))
	assert.True(t, rechargee.DetteTotale.Equal(decimal.NewFromInt(200000)))

	var mouvement models.MouvementCaisse
	require.NoError(t, db.First(&mouvement, "lien_id = ?", res.PaiementID).Error)
	assert.Equal(t, models.SensEntree, mouvement.Sens)
	assert.Equal(t, models.CategorieLoyer, mouvement.Categorie)
}

func TestGardeDePeriode(t *testing.T) {
	db, agence := ouvrirBaseTest(t)
	location := locationTest(t, db, agence.ID, 0)

	cmd := CommandePaiement{
		ContratID:    location.ID,
		Montant:      decimal.NewFromInt(100000),
		ModePaiement: "especes",
		Periode:      "2026-05",
	}
	_, err := PayerLocation(db, cmd)
	require.NoError(t, err)

	// même période : refusé, et rien n'est écrit
	_, err = PayerLocation(db, cmd)
	assert.Equal(t, fiber.StatusBadRequest, codeErreur(t, err))

	var n int64
	require.NoError(t, db.Model(&models.Paiement{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	// période suivante : accepté
	cmd.Periode = "2026-06"
	_, err = PayerLocation(db, cmd)
	require.NoError(t, err)
}

func TestCautionPuisLoyer(t *testing.T) {
	db, agence := ouvrirBaseTest(t)
	location := locationTest(t, db, agence.ID, 100000)

	// restitution de caution : la caisse peut passer en négatif
	res, err := PayerCaution(db, CommandePaiement{
		ContratID:    location.ID,
		Montant:      decimal.NewFromInt(500000),
		ModePaiement: "especes",
	})
	require.NoError(t, err)
	assert.True(t, res.SoldeApres.Equal(decimal.NewFromInt(-500000)))

	res, err = PayerLocation(db, CommandePaiement{
		ContratID:    location.ID,
		Montant:      decimal.NewFromInt(100000),
		ModePaiement: "especes",
		Periode:      "2026-05",
	})
	require.NoError(t, err)
	assert.True(t, res.SoldeApres.Equal(decimal.NewFromInt(-400000)))

	var rechargee models.Location
	require.NoError(t, db.First(&rechargee, "id = ?", location.ID).Error)
	assert.True(t, rechargee.DetteTotale.IsZero())
}

func TestPayerFactureRefuseLeDepassement(t *testing.T) {
	db, agence := ouvrirBaseTest(t)
	facture := models.FactureFournisseur{
		AgenceID:     agence.ID,
		Fournisseur:  "SODECI",
		MontantTotal: decimal.NewFromInt(1000),
		MontantPaye:  decimal.Zero,
		Solde:        decimal.NewFromInt(1000),
		Statut:       models.FactureImpayee,
	}
	require.NoError(t, db.Create(&facture).Error)

	_, err := PayerFacture(db, CommandePaiement{
		ContratID:    facture.ID,
		Montant:      decimal.NewFromInt(800),
		ModePaiement: "cheque",
	})
	require.NoError(t, err)

	// 800 déjà réglés : 300 dépasse le reste, refusé sans écriture
	_, err = PayerFacture(db, CommandePaiement{
		ContratID:    facture.ID,
		Montant:      decimal.NewFromInt(300),
		ModePaiement: "cheque",
	})
	assert.Equal(t, fiber.StatusBadRequest, codeErreur(t, err))

	res, err := PayerFacture(db, CommandePaiement{
		ContratID:    facture.ID,
		Montant:      decimal.NewFromInt(200),
		ModePaiement: "cheque",
	})
	require.NoError(t, err)
	assert.Equal(t, "F-000002", res.RecuNumero)

	var rechargee models.FactureFournisseur
	require.NoError(t, db.First(&rechargee, "id = ?", facture.ID).Error)
	assert.Equal(t, models.FacturePayee, rechargee.Statut)
	assert.True(t, rechargee.Solde.IsZero())

	// deux sorties de caisse, pas trois
	solde, err := caisse.SoldeCourant(db, agence.ID)
	require.NoError(t, err)
	assert.True(t, solde.Equal(decimal.NewFromInt(-1000)))
}

func TestSouscriptionSoldee(t *testing.T) {
	db, agence := ouvrirBaseTest(t)
	souscription := souscriptionTest(t, db, agence.ID, 600000)

	_, err := PayerSouscription(db, CommandePaiement{
		ContratID:    souscription.ID,
		Montant:      decimal.NewFromInt(400000),
		ModePaiement: "virement",
	})
	require.NoError(t, err)

	// les mensualités de droit de terre comptent sur le même capital
	_, err = PayerDroitTerre(db, CommandePaiement{
		ContratID:    souscription.ID,
		Montant:      decimal.NewFromInt(200000),
		ModePaiement: "especes",
		Periode:      "2026-05",
	})
	require.NoError(t, err)

	var rechargee models.Souscription
	require.NoError(t, db.First(&rechargee, "id = ?", souscription.ID).Error)
	assert.Equal(t, models.SouscriptionSoldee, rechargee.Statut)
	assert.True(t, rechargee.SoldeRestant.IsZero())

	// capital épuisé : tout versement supplémentaire est refusé
	_, err = PayerDroitTerre(db, CommandePaiement{
		ContratID:    souscription.ID,
		Montant:      decimal.NewFromInt(1000),
		ModePaiement: "especes",
	})
	assert.Equal(t, fiber.StatusBadRequest, codeErreur(t, err))
}

func TestLotDeLoyersEnEchecPartiel(t *testing.T) {
	db, agence := ouvrirBaseTest(t)
	l1 := locationTest(t, db, agence.ID, 100000)
	l2 := locationTest(t, db, agence.ID, 100000)

	// l2 a déjà réglé la période du lot
	_, err := PayerLocation(db, CommandePaiement{
		ContratID:    l2.ID,
		Montant:      decimal.NewFromInt(100000),
		ModePaiement: "especes",
		Periode:      "2026-05",
	})
	require.NoError(t, err)

	res := PayerLoyersGroupe(db, []LigneLot{
		{LocationID: l1.ID, Commande: CommandePaiement{
			Montant: decimal.NewFromInt(100000), ModePaiement: "especes", Periode: "2026-05"}},
		{LocationID: l2.ID, Commande: CommandePaiement{
			Montant: decimal.NewFromInt(100000), ModePaiement: "especes", Periode: "2026-05"}},
	})

	require.Len(t, res.Reussites, 1)
	require.Len(t, res.Erreurs, 1)
	assert.Equal(t, l1.ID, res.Reussites[0].LocationID)
	assert.Equal(t, l2.ID, res.Erreurs[0].LocationID)

	// la ligne en erreur n'a pas annulé la ligne validée
	solde, err := caisse.SoldeCourant(db, agence.ID)
	require.NoError(t, err)
	assert.True(t, solde.Equal(decimal.NewFromInt(200000)))
}

func TestEnregistrerVente(t *testing.T) {
	db, agence := ouvrirBaseTest(t)

	res, err := EnregistrerVente(db, CommandeVente{
		AgenceID:    agence.ID,
		Designation: "Imprimé bail",
		Montant:     decimal.NewFromInt(5000),
	})
	require.NoError(t, err)
	assert.True(t, res.SoldeApres.Equal(decimal.NewFromInt(5000)))

	var mouvement models.MouvementCaisse
	require.NoError(t, db.First(&mouvement, "lien_id = ?", res.VenteID).Error)
	assert.Equal(t, models.CategorieVente, mouvement.Categorie)
}
