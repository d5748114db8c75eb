package main

import (
	"log"
	"strings"

	"immogest-backend/internal/admin"
	"immogest-backend/internal/audit"
	"immogest-backend/internal/auth"
	"immogest-backend/internal/caisse"
	"immogest-backend/internal/config"
	"immogest-backend/internal/contrat"
	"immogest-backend/internal/dashboard"
	"immogest-backend/internal/database"
	"immogest-backend/internal/events"
	"immogest-backend/internal/financial"
	"immogest-backend/internal/models"
	"immogest-backend/internal/paiement"
	"immogest-backend/internal/recouvrement"
	"immogest-backend/internal/recu"
	"immogest-backend/internal/tiers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	// Trace des notifications de changement de données. Le front s'en
	// servira pour invalider ses caches ; en attendant, elles sont
	// journalisées.
	go func() {
		for ev := range events.Subscribe() {
			log.Printf("Événement %s : %s %s", ev.ID, ev.Action, ev.Table)
		}
	}()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Erreur inattendue:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Erreur interne du serveur",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Auth public
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protégé
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Routes admin (toutes agences)
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/agences", admin.CreateAgenceHandler())
	adminRoutes.Get("/agences", admin.ListAgencesHandler())
	adminRoutes.Get("/agences/:id", admin.GetAgenceHandler())
	adminRoutes.Put("/agences/:id", admin.UpdateAgenceHandler())
	adminRoutes.Delete("/agences/:id", admin.DeleteAgenceHandler())
	adminRoutes.Post("/agences/:id/gestionnaires", admin.CreateGestionnaireHandler())
	adminRoutes.Get("/agences/:id/gestionnaires", admin.ListGestionnairesHandler())

	// Caisse
	protected.Get("/caisse/solde", caisse.GetSoldeHandler())
	protected.Post("/caisse/mouvements", caisse.EnregistrerMouvementHandler())
	protected.Get("/caisse/mouvements", caisse.ListMouvementsHandler())

	// Tiers
	protected.Post("/clients", tiers.CreateClientHandler())
	protected.Get("/clients", tiers.ListClientsHandler())
	protected.Post("/biens", tiers.CreateBienHandler())
	protected.Get("/biens", tiers.ListBiensHandler())
	protected.Post("/agents", tiers.CreateAgentHandler())
	protected.Get("/agents", tiers.ListAgentsHandler())
	protected.Get("/agents/:id/statistiques", recouvrement.StatistiquesAgentHandler())

	// Contrats
	protected.Post("/locations", contrat.CreateLocationHandler())
	protected.Get("/locations", contrat.ListLocationsHandler())
	protected.Delete("/locations/:id", contrat.DeleteLocationSafelyHandler())
	protected.Post("/souscriptions", contrat.CreateSouscriptionHandler())
	protected.Get("/souscriptions", contrat.ListSouscriptionsHandler())
	protected.Post("/factures", contrat.CreateFactureHandler())
	protected.Get("/factures", contrat.ListFacturesHandler())

	// Paiements
	protected.Post("/locations/:id/paiements", paiement.PayerLocationHandler())
	protected.Post("/locations/:id/caution", paiement.PayerCautionHandler())
	protected.Post("/souscriptions/:id/paiements", paiement.PayerSouscriptionHandler())
	protected.Post("/souscriptions/:id/droit-terre", paiement.PayerDroitTerreHandler())
	protected.Post("/factures/:id/paiements", paiement.PayerFactureHandler())
	protected.Post("/ventes", paiement.EnregistrerVenteHandler())
	protected.Post("/paiements/loyers-groupes", paiement.PayerLoyersGroupeHandler())
	protected.Get("/paiements", paiement.ListPaiementsHandler())

	// Reçus
	protected.Get("/recus", recu.ListRecusHandler())
	protected.Get("/recus/:numero", recu.GetRecuHandler())

	// Imports de recouvrement
	protected.Post("/recouvrements/imports", recouvrement.ImporterVersementsHandler())
	protected.Get("/recouvrements/imports/annulation/preview", recouvrement.PreviewAnnulationHandler())
	protected.Post("/recouvrements/imports/annulation", recouvrement.AnnulerImportHandler())

	// Dashboard & résumés
	protected.Get("/dashboard/caisse-chart", dashboard.CaisseChartHandler())
	protected.Get("/resume-financier/mensuel", financial.ResumeMensuelHandler())

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	// Anciens appels RPC du front non repris ici : on répond 501 plutôt
	// qu'un 404 ambigu.
	protected.All("/rpc/:name", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotImplemented,
			"RPC '"+c.Params("name")+"' non implémenté")
	})

	log.Println("Serveur démarré sur le port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
