package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go-meatflow/internal/cache"
	"go-meatflow/internal/handler"
	"go-meatflow/internal/middleware"
	"go-meatflow/internal/model"
	"go-meatflow/internal/repository"
	"go-meatflow/internal/scheduler"
	"go-meatflow/internal/service"
	"go-meatflow/internal/ws"
	"go-meatflow/pkg/database"
	applogger "go-meatflow/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	zlog, err := applogger.New()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// 2. Setup Database
	db := database.ConnectDB()
	db.AutoMigrate(
		&model.Organization{}, &model.Currency{},
		&model.User{}, &model.Privilege{}, &model.Role{},
		&model.Zone{}, &model.Supplier{}, &model.Grade{}, &model.Product{},
		&model.Carcass{}, &model.CuttingSession{}, &model.Cut{},
		&model.StockLot{}, &model.StockMovement{},
		&model.Sale{}, &model.SaleItem{}, &model.SalePayment{}, &model.HeldSale{},
		&model.DailyClosing{}, &model.StockCount{}, &model.StockCountItem{}, &model.CashCount{},
	)

	// 3. Seed default privileges, roles, the organization and the owner user
	seedDefaults(db, zlog)

	// 4. Report cache (redis optional; falls back to no-op)
	var reportCache cache.ReportCache = cache.NoopReportCache{}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
		reportCache = cache.NewRedisReportCache(addr, os.Getenv("REDIS_PASSWORD"), redisDB)
		zlog.Info("report cache enabled", zap.String("addr", addr))
	}

	// 5. Setup WebSocket Hub
	wsHub := ws.NewHub(zlog)
	go wsHub.Run()

	// 6. Dependency Injection (Wiring Layers)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	productRepo := repository.NewProductRepo(db)
	zoneRepo := repository.NewZoneRepo(db)
	supplierRepo := repository.NewSupplierRepo(db)
	gradeRepo := repository.NewGradeRepo(db)
	currencyRepo := repository.NewCurrencyRepo(db)
	carcassRepo := repository.NewCarcassRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	stockRepo := repository.NewStockRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	closingRepo := repository.NewClosingRepo(db)

	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)
	catalogService := service.NewCatalogService(productRepo, zoneRepo, supplierRepo, gradeRepo, currencyRepo)
	carcassService := service.NewCarcassService(carcassRepo, zoneRepo, supplierRepo, wsHub, zlog)
	sessionService := service.NewSessionService(sessionRepo, carcassRepo, productRepo, zoneRepo, stockRepo, db, wsHub, zlog)
	stockService := service.NewStockService(stockRepo, zoneRepo, db, reportCache, zlog)
	saleService := service.NewSaleService(saleRepo, stockRepo, productRepo, zoneRepo, currencyRepo, db, wsHub, reportCache, zlog)
	closingService := service.NewClosingService(closingRepo, saleRepo, stockRepo, zoneRepo, currencyRepo, db, reportCache, zlog)
	reportService := service.NewReportService(saleRepo, stockRepo, carcassRepo, sessionRepo, productRepo, zoneRepo, reportCache, zlog)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleRepo, privilegeRepo)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	carcassHandler := handler.NewCarcassHandler(carcassService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	stockHandler := handler.NewStockHandler(stockService)
	saleHandler := handler.NewSaleHandler(saleService)
	closingHandler := handler.NewClosingHandler(closingService)
	reportHandler := handler.NewReportHandler(reportService)

	// 7. Scheduler (expiry sweep, closing reminder)
	sched := scheduler.NewScheduler(stockService, db, wsHub, zlog)
	sched.Start()
	defer sched.Stop()

	// 8. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "MeatFlow v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// 9. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Post("/heartbeat", middleware.RequireAuth(userRepo), authHandler.Heartbeat)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Dashboard
	protected.Get("/dashboard/stats", middleware.RequireAnyPrivilege("dashboard:view", "report:view"), reportHandler.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", middleware.RequireAnyPrivilege("dashboard:view", "report:view"), reportHandler.GetStockMovement)

	// Catalog
	protected.Get("/products", catalogHandler.GetProducts)
	protected.Post("/products", middleware.RequirePrivilege("product:create"), catalogHandler.CreateProduct)
	protected.Put("/products/:id", middleware.RequirePrivilege("product:update"), catalogHandler.UpdateProduct)
	protected.Get("/zones", catalogHandler.GetZones)
	protected.Post("/zones", middleware.RequirePrivilege("catalog:manage"), catalogHandler.CreateZone)
	protected.Put("/zones/:id", middleware.RequirePrivilege("catalog:manage"), catalogHandler.UpdateZone)
	protected.Get("/suppliers", catalogHandler.GetSuppliers)
	protected.Post("/suppliers", middleware.RequirePrivilege("catalog:manage"), catalogHandler.CreateSupplier)
	protected.Get("/grades", catalogHandler.GetGrades)
	protected.Post("/grades", middleware.RequirePrivilege("catalog:manage"), catalogHandler.CreateGrade)
	protected.Get("/currencies", catalogHandler.GetCurrencies)
	protected.Post("/currencies", middleware.RequirePrivilege("catalog:manage"), catalogHandler.CreateCurrency)
	protected.Put("/currencies/:code", middleware.RequirePrivilege("catalog:manage"), catalogHandler.UpdateCurrency)

	// Receiving
	protected.Get("/carcasses", middleware.RequirePrivilege("carcass:view"), carcassHandler.GetCarcasses)
	protected.Get("/carcasses/:id", middleware.RequirePrivilege("carcass:view"), carcassHandler.GetCarcass)
	protected.Post("/carcasses", middleware.RequirePrivilege("carcass:receive"), carcassHandler.ReceiveCarcass)
	protected.Put("/carcasses/:id/notes", middleware.RequirePrivilege("carcass:receive"), carcassHandler.UpdateCarcassNotes)

	// Cutting sessions
	protected.Get("/sessions", middleware.RequirePrivilege("session:manage"), sessionHandler.GetSessions)
	protected.Get("/sessions/:id", middleware.RequirePrivilege("session:manage"), sessionHandler.GetSession)
	protected.Post("/sessions", middleware.RequirePrivilege("session:manage"), sessionHandler.StartSession)
	protected.Post("/sessions/:id/cuts", middleware.RequirePrivilege("session:manage"), sessionHandler.AddCut)
	protected.Delete("/sessions/:id/cuts/:cutId", middleware.RequirePrivilege("session:manage"), sessionHandler.RemoveCut)
	protected.Put("/sessions/:id/waste", middleware.RequirePrivilege("session:manage"), sessionHandler.RecordWaste)
	protected.Post("/sessions/:id/pause", middleware.RequirePrivilege("session:manage"), sessionHandler.PauseSession)
	protected.Post("/sessions/:id/resume", middleware.RequirePrivilege("session:manage"), sessionHandler.ResumeSession)
	protected.Post("/sessions/:id/cancel", middleware.RequirePrivilege("session:manage"), sessionHandler.CancelSession)
	protected.Post("/sessions/:id/complete", middleware.RequirePrivilege("session:manage"), sessionHandler.CompleteSession)

	// Stock
	protected.Get("/stock/lots", middleware.RequirePrivilege("stock:view"), stockHandler.GetLots)
	protected.Get("/stock/by-product", middleware.RequirePrivilege("stock:view"), stockHandler.GetStockByProduct)
	protected.Get("/stock/movements", middleware.RequirePrivilege("stock:view"), stockHandler.GetMovements)
	protected.Post("/stock/transfers", middleware.RequirePrivilege("stock:transfer"), stockHandler.TransferStock)
	protected.Post("/stock/adjustments", middleware.RequirePrivilege("stock:adjust"), stockHandler.AdjustStock)

	// Point of sale
	protected.Get("/sales", middleware.RequirePrivilege("sale:view"), saleHandler.GetSales)
	protected.Get("/sales/held", middleware.RequirePrivilege("sale:create"), saleHandler.GetHeldSales)
	protected.Post("/sales/held/:id/recall", middleware.RequirePrivilege("sale:create"), saleHandler.RecallHeldSale)
	protected.Post("/sales/hold", middleware.RequirePrivilege("sale:create"), saleHandler.HoldSale)
	protected.Get("/sales/:id", middleware.RequirePrivilege("sale:view"), saleHandler.GetSale)
	protected.Post("/sales", middleware.RequirePrivilege("sale:create"), saleHandler.CreateSale)
	protected.Post("/sales/:id/payments", middleware.RequirePrivilege("sale:create"), saleHandler.ProcessPayment)
	protected.Post("/sales/:id/void", middleware.RequirePrivilege("sale:void"), saleHandler.VoidSale)

	// Daily closing
	protected.Get("/closings", middleware.RequirePrivilege("closing:view"), closingHandler.GetClosings)
	protected.Get("/closings/:id", middleware.RequirePrivilege("closing:view"), closingHandler.GetClosing)
	protected.Post("/closings", middleware.RequirePrivilege("closing:manage"), closingHandler.StartClosing)
	protected.Put("/closings/count-items/:id", middleware.RequirePrivilege("closing:manage"), closingHandler.RecordStockCountItem)
	protected.Post("/closings/stock-counts/:id/complete", middleware.RequirePrivilege("closing:manage"), closingHandler.CompleteStockCount)
	protected.Put("/closings/cash-counts/:id", middleware.RequirePrivilege("closing:manage"), closingHandler.RecordCashCount)
	protected.Post("/closings/:id/complete", middleware.RequirePrivilege("closing:manage"), closingHandler.CompleteClosing)

	// Reports
	protected.Get("/reports/sales", middleware.RequirePrivilege("report:view"), reportHandler.GetSalesSummary)
	protected.Get("/reports/stock-valuation", middleware.RequirePrivilege("report:view"), reportHandler.GetStockValuation)
	protected.Get("/reports/yield", middleware.RequirePrivilege("report:view"), reportHandler.GetYieldReport)
	protected.Get("/reports/top-products", middleware.RequirePrivilege("report:view"), reportHandler.GetTopProducts)

	// Users & roles
	protected.Get("/users", userHandler.GetUsers)
	protected.Get("/users/:id", userHandler.GetUser)
	protected.Post("/users", middleware.RequirePrivilege("user:create"), userHandler.CreateUser)
	protected.Put("/users/:id", middleware.RequirePrivilege("user:update"), userHandler.UpdateUser)
	protected.Delete("/users/:id", middleware.RequirePrivilege("user:delete"), userHandler.DeleteUser)
	protected.Put("/users/:id/privileges", middleware.RequirePrivilege("user:update_privilege"), userHandler.UpdateUserPrivileges)
	protected.Get("/roles", roleHandler.GetRoles)
	protected.Get("/privileges", roleHandler.GetPrivileges)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		client := &ws.Client{Conn: c, UserID: c.Query("user_id")}
		wsHub.Register <- client
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 10. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// seedDefaults creates the default privileges, roles, the first organization
// and its owner user if they don't exist yet.
func seedDefaults(db *gorm.DB, zlog *zap.Logger) {
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	userRepo := repository.NewUserRepo(db)

	// 1. Seed privileges first
	if err := privilegeRepo.SeedDefaults(); err != nil {
		zlog.Warn("failed to seed privileges", zap.Error(err))
	}

	// 2. Seed roles
	if err := roleRepo.SeedDefaults(); err != nil {
		zlog.Warn("failed to seed roles", zap.Error(err))
	}

	// 3. Assign privileges to roles
	allPrivileges, _ := privilegeRepo.FindAll()
	byCode := func(codes ...string) []model.Privilege {
		var out []model.Privilege
		want := make(map[string]bool, len(codes))
		for _, code := range codes {
			want[code] = true
		}
		for _, p := range allPrivileges {
			if want[p.Code] {
				out = append(out, p)
			}
		}
		return out
	}

	// OWNER gets everything
	ownerRole, err := roleRepo.FindByCode(model.RoleOwner)
	if err == nil && len(ownerRole.Privileges) == 0 {
		roleRepo.ReplacePrivileges(ownerRole, allPrivileges)
	}

	// MANAGER runs the floor but does not manage users
	managerRole, err := roleRepo.FindByCode(model.RoleManager)
	if err == nil && len(managerRole.Privileges) == 0 {
		var managerPrivileges []model.Privilege
		for _, p := range allPrivileges {
			if p.Code == "user:create" || p.Code == "user:update" || p.Code == "user:delete" || p.Code == "user:update_privilege" {
				continue
			}
			managerPrivileges = append(managerPrivileges, p)
		}
		roleRepo.ReplacePrivileges(managerRole, managerPrivileges)
	}

	// BUTCHER works the receiving and cutting floor
	butcherRole, err := roleRepo.FindByCode(model.RoleButcher)
	if err == nil && len(butcherRole.Privileges) == 0 {
		roleRepo.ReplacePrivileges(butcherRole, byCode(
			"carcass:receive", "carcass:view", "session:manage",
			"stock:view", "stock:transfer", "product:view", "dashboard:view",
		))
	}

	// CASHIER runs the till
	cashierRole, err := roleRepo.FindByCode(model.RoleCashier)
	if err == nil && len(cashierRole.Privileges) == 0 {
		roleRepo.ReplacePrivileges(cashierRole, byCode(
			"sale:create", "sale:view", "stock:view", "product:view", "dashboard:view",
		))
	}

	// 4. Seed the first organization with its zones and base currency
	var org model.Organization
	if err := db.First(&org, "name = ?", "Default Butchery").Error; err == gorm.ErrRecordNotFound {
		org = model.Organization{
			Name:             "Default Butchery",
			BaseCurrencyCode: "USD",
			IsActive:         true,
		}
		org.CreatedBy = "system"
		org.UpdatedBy = "system"
		if err := db.Create(&org).Error; err != nil {
			zlog.Warn("failed to seed organization", zap.Error(err))
			return
		}

		coldRoom := model.Zone{Name: "Cold Room", Code: "COLD", ZoneType: model.ZoneColdRoom, IsDefaultReceiving: true, IsActive: true}
		coldRoom.OrganizationID = org.ID
		counter := model.Zone{Name: "Counter", Code: "POS", ZoneType: model.ZoneCounter, IsPOSZone: true, IsActive: true}
		counter.OrganizationID = org.ID
		db.Create(&coldRoom)
		db.Create(&counter)

		usd := model.Currency{Code: "USD", Name: "US Dollar", ExchangeRate: 1, IsActive: true}
		usd.OrganizationID = org.ID
		db.Create(&usd)
	}

	// 5. Create default owner user
	if _, err := userRepo.FindByEmail("owner@example.com"); err != nil {
		ownerRole, _ := roleRepo.FindByCode(model.RoleOwner)

		owner := &model.User{
			OrganizationID: org.ID,
			Email:          "owner@example.com",
			FullName:       "Owner",
			RoleID:         &ownerRole.ID,
			IsActive:       true,
			Privileges:     ownerRole.Privileges,
		}
		owner.CreatedBy = "system"
		owner.UpdatedBy = "system"

		if err := owner.SetPassword("owner123"); err != nil {
			zlog.Warn("failed to hash owner password", zap.Error(err))
			return
		}
		if err := userRepo.Create(owner); err != nil {
			zlog.Warn("failed to create owner user", zap.Error(err))
		} else {
			zlog.Info("owner user created", zap.String("email", "owner@example.com"))
		}
	}
}
