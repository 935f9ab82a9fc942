package service

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"go-meatflow/internal/cache"
	"go-meatflow/internal/model"
	"go-meatflow/internal/repository"
	"go-meatflow/internal/ws"
)

// testEnv wires every service against an in-memory database so tests can
// drive full flows (receive -> cut -> sell -> close) without a server.
type testEnv struct {
	db    *gorm.DB
	actor Actor

	org      model.Organization
	coldRoom model.Zone
	counter  model.Zone
	ribeye   model.Product
	mince    model.Product
	usd      model.Currency
	zwl      model.Currency

	carcasses CarcassService
	sessions  SessionService
	stock     StockService
	sales     SaleService
	closings  ClosingService
	reports   ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// One connection keeps every session on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.Organization{}, &model.Currency{},
		&model.User{}, &model.Privilege{}, &model.Role{},
		&model.Zone{}, &model.Supplier{}, &model.Grade{}, &model.Product{},
		&model.Carcass{}, &model.CuttingSession{}, &model.Cut{},
		&model.StockLot{}, &model.StockMovement{},
		&model.Sale{}, &model.SaleItem{}, &model.SalePayment{}, &model.HeldSale{},
		&model.DailyClosing{}, &model.StockCount{}, &model.StockCountItem{}, &model.CashCount{},
	); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	env := &testEnv{db: db}

	env.org = model.Organization{Name: "Test Butchery", BaseCurrencyCode: "USD", IsActive: true}
	if err := db.Create(&env.org).Error; err != nil {
		t.Fatalf("seed organization: %v", err)
	}

	env.actor = Actor{
		UserID:         uuid.New(),
		OrganizationID: env.org.ID,
		Name:           "Test Cashier",
		Email:          "cashier@example.com",
	}

	env.coldRoom = model.Zone{Name: "Cold Room", Code: "COLD", ZoneType: model.ZoneColdRoom, IsDefaultReceiving: true, IsActive: true}
	env.coldRoom.OrganizationID = env.org.ID
	env.counter = model.Zone{Name: "Counter", Code: "POS", ZoneType: model.ZoneCounter, IsPOSZone: true, IsActive: true}
	env.counter.OrganizationID = env.org.ID
	for _, zone := range []*model.Zone{&env.coldRoom, &env.counter} {
		if err := db.Create(zone).Error; err != nil {
			t.Fatalf("seed zone: %v", err)
		}
	}

	env.ribeye = model.Product{SKU: "RIB-001", Name: "Ribeye Steak", PricePerKg: 40, TaxRatePercent: 15, CanBeSold: true, IsActive: true}
	env.ribeye.OrganizationID = env.org.ID
	env.mince = model.Product{SKU: "MIN-001", Name: "Beef Mince", PricePerKg: 8, TaxRatePercent: 15, CanBeSold: true, IsActive: true}
	env.mince.OrganizationID = env.org.ID
	for _, product := range []*model.Product{&env.ribeye, &env.mince} {
		if err := db.Create(product).Error; err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}

	env.usd = model.Currency{Code: "USD", Name: "US Dollar", ExchangeRate: 1, OpeningFloat: 200, IsActive: true}
	env.usd.OrganizationID = env.org.ID
	env.zwl = model.Currency{Code: "ZWL", Name: "Zimbabwe Dollar", ExchangeRate: 30, IsActive: true}
	env.zwl.OrganizationID = env.org.ID
	for _, currency := range []*model.Currency{&env.usd, &env.zwl} {
		if err := db.Create(currency).Error; err != nil {
			t.Fatalf("seed currency: %v", err)
		}
	}

	hub := ws.NewHub(zap.NewNop())
	go hub.Run()

	log := zap.NewNop()
	noCache := cache.NoopReportCache{}

	carcassRepo := repository.NewCarcassRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	productRepo := repository.NewProductRepo(db)
	zoneRepo := repository.NewZoneRepo(db)
	supplierRepo := repository.NewSupplierRepo(db)
	currencyRepo := repository.NewCurrencyRepo(db)
	stockRepo := repository.NewStockRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	closingRepo := repository.NewClosingRepo(db)

	env.carcasses = NewCarcassService(carcassRepo, zoneRepo, supplierRepo, hub, log)
	env.sessions = NewSessionService(sessionRepo, carcassRepo, productRepo, zoneRepo, stockRepo, db, hub, log)
	env.stock = NewStockService(stockRepo, zoneRepo, db, noCache, log)
	env.sales = NewSaleService(saleRepo, stockRepo, productRepo, zoneRepo, currencyRepo, db, hub, noCache, log)
	env.closings = NewClosingService(closingRepo, saleRepo, stockRepo, zoneRepo, currencyRepo, db, noCache, log)
	env.reports = NewReportService(saleRepo, stockRepo, carcassRepo, sessionRepo, productRepo, zoneRepo, noCache, log)

	return env
}

// seedLot creates a stock lot directly, bypassing the cutting flow, for tests
// that only need sellable inventory.
func (env *testEnv) seedLot(t *testing.T, product model.Product, zone model.Zone, quantityKg, costPerKg float64) model.StockLot {
	t.Helper()
	lot := model.StockLot{
		ProductID:  product.ID,
		ZoneID:     zone.ID,
		QuantityKg: quantityKg,
		CostPerKg:  costPerKg,
		SourceType: model.StockFromAdjustment,
	}
	lot.OrganizationID = env.org.ID
	lot.RecalcTotalCost()
	if err := env.db.Create(&lot).Error; err != nil {
		t.Fatalf("seed stock lot: %v", err)
	}
	return lot
}

func (env *testEnv) reloadLot(t *testing.T, id uuid.UUID) model.StockLot {
	t.Helper()
	var lot model.StockLot
	if err := env.db.First(&lot, "id = ?", id).Error; err != nil {
		t.Fatalf("reload stock lot: %v", err)
	}
	return lot
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func nowPlusDays(days int) time.Time {
	return time.Now().AddDate(0, 0, days)
}
