package routes

import (
	"log"

	"hackportal/config"
	controller "hackportal/controllers"
	"hackportal/middleware"
	"hackportal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

// Dependencies are the collaborators built in main. Notifier, Resumes and
// RateLimitStorage may be nil.
type Dependencies struct {
	DB               *gorm.DB
	Config           config.Config
	Providers        map[string]controller.IdentityProvider
	Notifier         services.Notifier
	Resumes          services.ResumeStore
	RateLimitStorage fiber.Storage
}

func SetupHackerRoutes(app *fiber.App, deps Dependencies) {
	cfg := deps.Config
	budget := services.BudgetEngine{BaseRate: cfg.BudgetPerMember, MemberCap: cfg.BudgetMemberCap}
	admins := services.NewAdminAllowList(cfg.AdminEmails)

	identities := services.NewIdentityResolver(deps.DB)
	teams := services.NewTeamDirectory(deps.DB, services.BcryptHasher{})
	catalog := services.NewCatalog(deps.DB)
	ledger := services.NewLedger(deps.DB, budget, deps.Notifier)
	oversight := services.NewAdminOversight(deps.DB, budget)
	profiles := services.NewProfiles(deps.DB, deps.Resumes)

	authController := &controller.AuthController{
		Identities:    identities,
		Profiles:      profiles,
		Admins:        admins,
		Providers:     deps.Providers,
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    cfg.SessionTTL,
		FrontendURL:   cfg.FrontendURL,
		SecureCookies: cfg.Environment == "production",
	}
	teamController := controller.NewTeamController(teams, ledger)
	shopController := controller.NewShopController(teams, catalog, ledger)
	adminController := controller.NewAdminController(oversight, teams, ledger)
	profileController := controller.NewProfileController(profiles, admins, cfg.FrontendURL)

	protected := middleware.Protected(identities, cfg.SessionSecret)
	optional := middleware.OptionalSession(identities, cfg.SessionSecret)

	hackers := app.Group("/api/hackers", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Login flow
	auth := hackers.Group("/auth")
	for _, provider := range []string{"google", "github"} {
		auth.Get("/"+provider, authController.Login(provider))
		auth.Get("/"+provider+"/callback", authController.Callback(provider))
	}
	auth.Get("/check", protected, authController.Check)
	hackers.Post("/logout", authController.Logout)
	hackers.Post("/role", protected, authController.SelectRole)

	// Profiles
	hackers.Get("/dashboard", protected, profileController.Dashboard)
	hackers.Post("/profile", protected, profileController.UpdateProfile)
	hackers.Get("/u/:uuid", optional, profileController.Profile)
	hackers.Post("/save/:uuid", protected, profileController.Save)
	hackers.Get("/resume/:uuid", profileController.Resume)

	// Teams
	team := hackers.Group("/teams", protected)
	team.Post("/create", teamController.Create)
	team.Post("/join", teamController.Join)
	team.Post("/leave", teamController.Leave)
	team.Get("/current", teamController.Current)

	// Shop
	shop := hackers.Group("/shop", protected)
	shop.Get("/", shopController.Shop)
	shop.Get("/items/:id", shopController.Item)
	shop.Post("/purchase", middleware.PurchaseRateLimiter(cfg.PurchaseRateLimit, deps.RateLimitStorage), shopController.Purchase)

	// Admin
	admin := hackers.Group("/admin", protected, middleware.AdminOnly(admins))
	admin.Get("/", adminController.Stats)
	admin.Get("/orders", adminController.Orders)
	admin.Post("/orders/fulfill", adminController.Fulfill)
	admin.Post("/orders/undo", adminController.Undo)
	admin.Get("/teams", adminController.ListTeams)
	admin.Post("/teams/approve", adminController.ApproveTeam)

	log.Println("Hacker portal routes initialized successfully")
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupHackerRoutes(app, deps)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
