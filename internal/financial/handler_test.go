package financial

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"immogest-backend/internal/auth"
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

	ancienne := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = ancienne })

	agence := models.Agence{Nom: "Agence Test"}
	require.NoError(t, db.Create(&agence).Error)
	return db, agence
}

func appTest() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur interne du serveur"})
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserRoleKey, models.RoleAdmin)
		return c.Next()
	})
	app.Get("/api/resume-financier/mensuel", ResumeMensuelHandler())
	return app
}

func resumeMensuel(t *testing.T, app *fiber.App, agenceID uint, annee, mois int) (int, ResumeMensuelResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/resume-financier/mensuel?agence_id=%d&annee=%d&mois=%d", agenceID, annee, mois), nil)
	require.NoError(t, err)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body ResumeMensuelResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func TestResumeMensuel(t *testing.T) {
	db, agence := ouvrirBaseTest(t)
	app := appTest()

	loc := time.Now().Location()
	require.NoError(t, db.Create(&models.MouvementCaisse{
		AgenceID:   agence.ID,
		Montant:    decimal.NewFromInt(100000),
		Sens:       models.SensEntree,
		Categorie:  models.CategorieLoyer,
		SoldeAvant: decimal.Zero,
		SoldeApres: decimal.NewFromInt(100000),
		CreatedAt:  time.Date(2026, time.April, 10, 9, 0, 0, 0, loc),
	}).Error)
	require.NoError(t, db.Create(&models.MouvementCaisse{
		AgenceID:   agence.ID,
		Montant:    decimal.NewFromInt(50000),
		Sens:       models.SensEntree,
		Categorie:  models.CategorieLoyer,
		SoldeAvant: decimal.NewFromInt(100000),
		SoldeApres: decimal.NewFromInt(150000),
		CreatedAt:  time.Date(2026, time.May, 12, 9, 0, 0, 0, loc),
	}).Error)

	code, body := resumeMensuel(t, app, agence.ID, 2026, 5)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, body.Entrees.Total.Equal(decimal.NewFromInt(50000)))
	assert.True(t, body.SoldeFinal.Equal(decimal.NewFromInt(150000)))

	// mois sans mouvement : le solde de clôture est celui laissé par les
	// mois précédents
	code, body = resumeMensuel(t, app, agence.ID, 2026, 6)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, body.Entrees.Total.IsZero())
	assert.True(t, body.SoldeFinal.Equal(decimal.NewFromInt(150000)))

	// caisse jamais mouvementée avant ce mois : clôture à zéro
	code, body = resumeMensuel(t, app, agence.ID, 2026, 3)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, body.SoldeFinal.IsZero())
}

func TestResumeMensuelErreurBase(t *testing.T) {
	db, agence := ouvrirBaseTest(t)
	app := appTest()

	// base coupée : l'erreur doit remonter en 500, jamais en solde à zéro
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	code, _ := resumeMensuel(t, app, agence.ID, 2026, 5)
	assert.Equal(t, http.StatusInternalServerError, code)
}
