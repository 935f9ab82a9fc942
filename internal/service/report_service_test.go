package service

import (
	"context"
	"testing"
	"time"

	"go-meatflow/internal/model"
)

func TestSalesSummaryExcludesVoidedSales(t *testing.T) {
	env := newTestEnv(t)
	env.seedLot(t, env.ribeye, env.counter, 50, 2)
	today := time.Now().Format("2006-01-02")

	kept, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 2, UnitPrice: floatPtr(10)}},
	}, env.actor)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	doomed, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 5, UnitPrice: floatPtr(10)}},
	}, env.actor)
	if err != nil {
		t.Fatalf("create second sale: %v", err)
	}
	if _, err := env.sales.VoidSale(env.org.ID, doomed.ID, "mis-scan", env.actor); err != nil {
		t.Fatalf("void sale: %v", err)
	}

	report, err := env.reports.SalesSummary(context.Background(), env.org.ID, today, today)
	if err != nil {
		t.Fatalf("sales summary: %v", err)
	}
	if report.TransactionCount != 1 {
		t.Errorf("transactions = %d, want only the kept sale", report.TransactionCount)
	}
	if !closeEnough(report.TotalRevenue, kept.TotalAmount) {
		t.Errorf("revenue = %v, want %v", report.TotalRevenue, kept.TotalAmount)
	}
	if !closeEnough(report.AverageSale, kept.TotalAmount) {
		t.Errorf("average = %v, want %v", report.AverageSale, kept.TotalAmount)
	}
	if len(report.ByDay) != 1 || report.ByDay[0].Date != today {
		t.Errorf("by-day rows = %v, want one row for today", report.ByDay)
	}
}

func TestStockValuationFlagsLowStock(t *testing.T) {
	env := newTestEnv(t)
	env.db.Model(&model.Product{}).Where("id = ?", env.ribeye.ID).Update("minimum_stock_kg", 20)
	env.seedLot(t, env.ribeye, env.counter, 5, 4)
	env.seedLot(t, env.mince, env.coldRoom, 30, 1)

	report, err := env.reports.StockValuation(context.Background(), env.org.ID)
	if err != nil {
		t.Fatalf("stock valuation: %v", err)
	}

	if !closeEnough(report.TotalQuantityKg, 35) {
		t.Errorf("total quantity = %v, want 35", report.TotalQuantityKg)
	}
	if !closeEnough(report.TotalValue, 50) {
		t.Errorf("total value = %v, want 50", report.TotalValue)
	}
	if len(report.ByZone) != 2 {
		t.Errorf("zone rows = %d, want 2", len(report.ByZone))
	}

	if len(report.LowStock) != 1 {
		t.Fatalf("low stock rows = %d, want 1", len(report.LowStock))
	}
	low := report.LowStock[0]
	if low.Product.ID != env.ribeye.ID {
		t.Errorf("low stock product = %s, want ribeye", low.Product.ID)
	}
	if !closeEnough(low.Ratio, 0.25) {
		t.Errorf("low stock ratio = %v, want 0.25", low.Ratio)
	}
}

func TestTopProductsRanksByRevenue(t *testing.T) {
	env := newTestEnv(t)
	env.seedLot(t, env.ribeye, env.counter, 50, 2)
	env.seedLot(t, env.mince, env.counter, 50, 1)
	today := time.Now().Format("2006-01-02")

	if _, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items: []SaleLineRequest{
			{ProductID: env.ribeye.ID, QuantityKg: 1},  // 40 revenue
			{ProductID: env.mince.ID, QuantityKg: 10},  // 80 revenue
		},
	}, env.actor); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	rows, err := env.reports.TopProducts(context.Background(), env.org.ID, today, today, 10)
	if err != nil {
		t.Fatalf("top products: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Product.ID != env.mince.ID {
		t.Errorf("top product = %s, want the mince with higher revenue", rows[0].Product.SKU)
	}
	if !closeEnough(rows[0].Revenue, 80) || !closeEnough(rows[1].Revenue, 40) {
		t.Errorf("revenues = %v and %v, want 80 and 40", rows[0].Revenue, rows[1].Revenue)
	}
}

func TestDashboardStatsCountsWork(t *testing.T) {
	env := newTestEnv(t)
	env.receiveCarcass(t, 100, 200)
	env.receiveCarcass(t, 80, 160)
	if _, err := env.sessions.StartSession(&StartSessionRequest{InputWeightKg: 10}, env.actor); err != nil {
		t.Fatalf("start session: %v", err)
	}

	stats, err := env.reports.DashboardStats(context.Background(), env.org.ID)
	if err != nil {
		t.Fatalf("dashboard stats: %v", err)
	}
	if stats.PendingCarcasses != 2 {
		t.Errorf("pending carcasses = %d, want 2", stats.PendingCarcasses)
	}
	if stats.ActiveSessions != 1 {
		t.Errorf("active sessions = %d, want 1", stats.ActiveSessions)
	}
}
