package recouvrement

import (
	"testing"

	"immogest-backend/internal/caisse"
	"immogest-backend/internal/database"
	"immogest-backend/internal/models"
	"immogest-backend/internal/paiement"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ouvrirBaseTest(t *testing.T) (*gorm.DB, models.Agence, models.AgentRecouvreur) {
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
	agent := models.AgentRecouvreur{AgenceID: agence.ID, Nom: "Diabaté Moussa", Zone: "Yopougon"}
	require.NoError(t, db.Create(&agent).Error)
	return db, agence, agent
}

func locationExistante(t *testing.T, db *gorm.DB, agenceID uint) models.Location {
	t.Helper()
	client := models.Client{AgenceID: agenceID, Nom: "Koffi Pascal"}
	require.NoError(t, db.Create(&client).Error)
	bien := models.Bien{AgenceID: agenceID, Libelle: "Studio Adjamé 3", Statut: models.BienOccupe}
	require.NoError(t, db.Create(&bien).Error)
	location := models.Location{
		AgenceID:     agenceID,
		ClientID:     client.ID,
		BienID:       bien.ID,
		LoyerMensuel: decimal.NewFromInt(50000),
		DetteTotale:  decimal.NewFromInt(150000),
		MontantPaye:  decimal.Zero,
		Statut:       models.LocationActive,
	}
	require.NoError(t, db.Create(&location).Error)
	return location
}

func TestImportPuisAnnulation(t *testing.T) {
	db, agence, agent := ouvrirBaseTest(t)
	location := locationExistante(t, db, agence.ID)

	res, err := ImporterVersements(db, CommandeImport{
		AgenceID:      agence.ID,
		AgentID:       agent.ID,
		Mois:          5,
		Annee:         2026,
		TypeOperation: "loyer",
		Versements: []VersementImport{
			{LocationID: &location.ID, Montant: decimal.NewFromInt(50000), ModePaiement: "especes"},
			{ClientNom: "Nouveau Locataire", BienLibelle: "Chambre Abobo 7",
				Montant: decimal.NewFromInt(30000), ModePaiement: "especes"},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Reussites, 2)
	require.Empty(t, res.Erreurs)
	assert.NotEmpty(t, res.Reference)

	solde, err := caisse.SoldeCourant(db, agence.ID)
	require.NoError(t, err)
	require.True(t, solde.Equal(decimal.NewFromInt(80000)))

	// le bail survivant a été mis à jour, le bail créé est marqué du lot
	var survivante models.Location
	require.NoError(t, db.First(&survivante, "id = ?", location.ID).Error)
	assert.True(t, survivante.MontantPaye.Equal(decimal.NewFromInt(50000)))
	assert.True(t, survivante.DetteTotale.Equal(decimal.NewFromInt(100000)))
	var creees int64
	require.NoError(t, db.Model(&models.Location{}).Where("import_id = ?", res.ImportID).Count(&creees).Error)
	assert.EqualValues(t, 1, creees)

	lot, err := TrouverImport(db, agence.ID, agent.ID, 5, 2026, "loyer")
	require.NoError(t, err)

	apercu, err := PreviewAnnulation(db, lot)
	require.NoError(t, err)
	assert.EqualValues(t, 2, apercu.Paiements)
	assert.EqualValues(t, 2, apercu.Recus)
	assert.EqualValues(t, 2, apercu.Mouvements)
	assert.EqualValues(t, 1, apercu.Locations)
	assert.EqualValues(t, 1, apercu.Biens)
	assert.EqualValues(t, 1, apercu.Clients)
	assert.True(t, apercu.TotalRembourse.Equal(decimal.NewFromInt(80000)))

	// la prévisualisation ne modifie rien
	solde, err = caisse.SoldeCourant(db, agence.ID)
	require.NoError(t, err)
	require.True(t, solde.Equal(decimal.NewFromInt(80000)))

	bilan, err := AnnulerImport(db, lot)
	require.NoError(t, err)
	assert.Equal(t, apercu.Paiements, bilan.Paiements)
	assert.Equal(t, apercu.Recus, bilan.Recus)
	assert.Equal(t, apercu.Mouvements, bilan.Mouvements)
	assert.Equal(t, apercu.Locations, bilan.Locations)
	assert.Equal(t, apercu.Biens, bilan.Biens)
	assert.Equal(t, apercu.Clients, bilan.Clients)
	assert.True(t, apercu.TotalRembourse.Equal(bilan.TotalRembourse))

	// la caisse et le bail survivant sont revenus à l'état d'avant import
	solde, err = caisse.SoldeCourant(db, agence.ID)
	require.NoError(t, err)
	assert.True(t, solde.IsZero())
	require.NoError(t, db.First(&survivante, "id = ?", location.ID).Error)
	assert.True(t, survivante.MontantPaye.IsZero())
	assert.True(t, survivante.DetteTotale.Equal(decimal.NewFromInt(150000)))

	// plus aucune trace du lot
	var n int64
	require.NoError(t, db.Model(&models.Paiement{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Recu{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.ImportRecouvrement{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Client{}).Where("nom = ?", "Nouveau Locataire").Count(&n).Error)
	assert.Zero(t, n)

	// la période redevient payable
	_, err = paiement.PayerLocation(db, paiement.CommandePaiement{
		ContratID:    location.ID,
		Montant:      decimal.NewFromInt(50000),
		ModePaiement: "especes",
		Periode:      "2026-05",
	})
	require.NoError(t, err)
}

func TestImportEnDoublonRefuse(t *testing.T) {
	db, agence, agent := ouvrirBaseTest(t)
	location := locationExistante(t, db, agence.ID)

	cmd := CommandeImport{
		AgenceID:      agence.ID,
		AgentID:       agent.ID,
		Mois:          6,
		Annee:         2026,
		TypeOperation: "loyer",
		Versements: []VersementImport{
			{LocationID: &location.ID, Montant: decimal.NewFromInt(50000), ModePaiement: "especes"},
		},
	}
	_, err := ImporterVersements(db, cmd)
	require.NoError(t, err)

	_, err = ImporterVersements(db, cmd)
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
}

func TestImportDroitTerreExigeLaSouscription(t *testing.T) {
	db, agence, agent := ouvrirBaseTest(t)

	res, err := ImporterVersements(db, CommandeImport{
		AgenceID:      agence.ID,
		AgentID:       agent.ID,
		Mois:          5,
		Annee:         2026,
		TypeOperation: "droit_terre",
		Versements: []VersementImport{
			{ClientNom: "Sans Souscription", Montant: decimal.NewFromInt(10000), ModePaiement: "especes"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Reussites)
	require.Len(t, res.Erreurs, 1)
	assert.Equal(t, 1, res.Erreurs[0].Ligne)
}

func souscriptionPour(t *testing.T, db *gorm.DB, agenceID uint) models.Souscription {
	t.Helper()
	client := models.Client{AgenceID: agenceID, Nom: "Traoré Salif"}
	require.NoError(t, db.Create(&client).Error)
	bien := models.Bien{AgenceID: agenceID, Libelle: "Terrain Bingerville", Statut: models.BienOccupe}
	require.NoError(t, db.Create(&bien).Error)
	souscription := models.Souscription{
		AgenceID:             agenceID,
		ClientID:             client.ID,
		BienID:               bien.ID,
		MontantTotal:         decimal.NewFromInt(500000),
		MontantPaye:          decimal.Zero,
		SoldeRestant:         decimal.NewFromInt(500000),
		MensualiteDroitTerre: decimal.NewFromInt(25000),
		Statut:               models.SouscriptionEnCours,
	}
	require.NoError(t, db.Create(&souscription).Error)
	return souscription
}

func TestImportDroitTerreAutreAgenceRefuse(t *testing.T) {
	db, agence, agent := ouvrirBaseTest(t)

	autre := models.Agence{Nom: "Agence Voisine"}
	require.NoError(t, db.Create(&autre).Error)
	souscription := souscriptionPour(t, db, autre.ID)

	res, err := ImporterVersements(db, CommandeImport{
		AgenceID:      agence.ID,
		AgentID:       agent.ID,
		Mois:          5,
		Annee:         2026,
		TypeOperation: "droit_terre",
		Versements: []VersementImport{
			{SouscriptionID: &souscription.ID, Montant: decimal.NewFromInt(25000), ModePaiement: "especes"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Reussites)
	require.Len(t, res.Erreurs, 1)
	assert.Equal(t, 1, res.Erreurs[0].Ligne)

	// aucune des deux caisses ne doit avoir bougé et la souscription
	// voisine reste intacte
	var n int64
	require.NoError(t, db.Model(&models.Paiement{}).Count(&n).Error)
	assert.Zero(t, n)
	for _, id := range []uint{agence.ID, autre.ID} {
		solde, err := caisse.SoldeCourant(db, id)
		require.NoError(t, err)
		assert.True(t, solde.IsZero())
	}
	var intacte models.Souscription
	require.NoError(t, db.First(&intacte, "id = ?", souscription.ID).Error)
	assert.True(t, intacte.MontantPaye.IsZero())
}

func TestImportDroitTerreMemeAgence(t *testing.T) {
	db, agence, agent := ouvrirBaseTest(t)
	souscription := souscriptionPour(t, db, agence.ID)

	res, err := ImporterVersements(db, CommandeImport{
		AgenceID:      agence.ID,
		AgentID:       agent.ID,
		Mois:          5,
		Annee:         2026,
		TypeOperation: "droit_terre",
		Versements: []VersementImport{
			{SouscriptionID: &souscription.ID, Montant: decimal.NewFromInt(25000), ModePaiement: "especes"},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Reussites, 1)
	require.Empty(t, res.Erreurs)

	solde, err := caisse.SoldeCourant(db, agence.ID)
	require.NoError(t, err)
	assert.True(t, solde.Equal(decimal.NewFromInt(25000)))

	var payee models.Souscription
	require.NoError(t, db.First(&payee, "id = ?", souscription.ID).Error)
	assert.True(t, payee.MontantPaye.Equal(decimal.NewFromInt(25000)))
	assert.True(t, payee.SoldeRestant.Equal(decimal.NewFromInt(475000)))
}

func TestStatistiquesAgent(t *testing.T) {
	db, agence, agent := ouvrirBaseTest(t)
	location := locationExistante(t, db, agence.ID)

	_, err := ImporterVersements(db, CommandeImport{
		AgenceID:      agence.ID,
		AgentID:       agent.ID,
		Mois:          5,
		Annee:         2026,
		TypeOperation: "loyer",
		Versements: []VersementImport{
			{LocationID: &location.ID, Montant: decimal.NewFromInt(50000), ModePaiement: "especes"},
			{ClientNom: "Autre Locataire", BienLibelle: "Chambre Abobo 9",
				Montant: decimal.NewFromInt(30000), ModePaiement: "especes"},
		},
	})
	require.NoError(t, err)

	stats, err := CalculerStatistiquesAgent(db, agence.ID, agent.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, agent.Nom, stats.Nom)
	assert.EqualValues(t, 2, stats.NombreVersements)
	assert.True(t, stats.TotalVerse.Equal(decimal.NewFromInt(80000)))
	assert.True(t, stats.MoyenneVersement.Equal(decimal.NewFromInt(40000)))
	assert.True(t, stats.PlusGrosVersement.Equal(decimal.NewFromInt(50000)))
	require.NotNil(t, stats.DernierVersement)

	// agent inconnu : 404
	_, err = CalculerStatistiquesAgent(db, agence.ID, agent.ID+99, nil, nil)
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)
}
