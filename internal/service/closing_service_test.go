package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"go-meatflow/internal/apperr"
	"go-meatflow/internal/model"
)

// startClosingWithSale runs a cash sale and opens a closing for today,
// returning both for the reconciliation assertions.
func startClosingWithSale(t *testing.T, env *testEnv) (*model.DailyClosing, *model.Sale) {
	t.Helper()
	env.seedLot(t, env.ribeye, env.counter, 20, 2)

	sale, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 2, UnitPrice: floatPtr(10)}},
	}, env.actor)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := env.sales.ProcessPayment(env.org.ID, sale.ID, &PaymentRequest{
		PaymentMethod: "cash",
		CurrencyCode:  "USD",
		Amount:        sale.TotalAmount,
	}, env.actor); err != nil {
		t.Fatalf("pay sale: %v", err)
	}

	closing, err := env.closings.StartClosing(nil, env.actor)
	if err != nil {
		t.Fatalf("start closing: %v", err)
	}
	return closing, sale
}

func TestStartClosingSnapshotsDay(t *testing.T) {
	env := newTestEnv(t)
	closing, sale := startClosingWithSale(t, env)

	if closing.ClosingDate != time.Now().Format("2006-01-02") {
		t.Errorf("closing date = %s, want today", closing.ClosingDate)
	}
	if !closeEnough(closing.TotalSales, sale.TotalAmount) {
		t.Errorf("total sales = %v, want %v", closing.TotalSales, sale.TotalAmount)
	}
	if closing.TransactionCount != 1 {
		t.Errorf("transaction count = %d, want 1", closing.TransactionCount)
	}

	// One stock count per active zone; only the counter zone holds stock.
	if len(closing.StockCounts) != 2 {
		t.Fatalf("stock counts = %d, want one per active zone", len(closing.StockCounts))
	}
	// 20 kg seeded minus 2 kg sold.
	if !closeEnough(closing.ExpectedStockKg, 18) {
		t.Errorf("expected stock = %v, want 18", closing.ExpectedStockKg)
	}

	var usdCash *model.CashCount
	for i := range closing.CashCounts {
		if closing.CashCounts[i].CurrencyCode == "USD" {
			usdCash = &closing.CashCounts[i]
		}
	}
	if usdCash == nil {
		t.Fatalf("no USD cash count created")
	}
	if !closeEnough(usdCash.ExpectedTotal, 200+sale.TotalAmount) {
		t.Errorf("expected cash = %v, want float plus cash sales %v", usdCash.ExpectedTotal, 200+sale.TotalAmount)
	}
}

func TestStartClosingTwiceIsConflict(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.closings.StartClosing(nil, env.actor); err != nil {
		t.Fatalf("start closing: %v", err)
	}
	if _, err := env.closings.StartClosing(nil, env.actor); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("second closing error = %v, want conflict", err)
	}
}

func TestDuplicateClosingRejectedByDatabase(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.closings.StartClosing(nil, env.actor); err != nil {
		t.Fatalf("start closing: %v", err)
	}

	// Even a write that skips the start check cannot create a second closing
	// for the same organization and date.
	dup := &model.DailyClosing{
		ClosingDate: time.Now().Format("2006-01-02"),
		Status:      model.ClosingInProgress,
		StartedAt:   time.Now(),
		StartedBy:   env.actor.UserID,
	}
	dup.OrganizationID = env.org.ID
	if err := env.db.Create(dup).Error; err == nil {
		t.Fatalf("duplicate closing row for the same organization and date was accepted")
	}
}

// The fixture pool holds one connection, so every read issued while a
// transaction is open has to run on that transaction or the whole flow
// stalls. This walks the full day: receive, cut, sell, pay, reconcile.
func TestFullDayFlowReconciles(t *testing.T) {
	env := newTestEnv(t)

	carcass := env.receiveCarcass(t, 100, 400)
	session, err := env.sessions.StartSession(&StartSessionRequest{CarcassID: &carcass.ID}, env.actor)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := env.sessions.AddCut(env.org.ID, session.ID, &AddCutRequest{
		ProductID: env.ribeye.ID,
		WeightKg:  60,
	}, env.actor); err != nil {
		t.Fatalf("add cut: %v", err)
	}
	if _, err := env.sessions.RecordWaste(env.org.ID, session.ID, 40, env.actor); err != nil {
		t.Fatalf("record waste: %v", err)
	}

	// No destination on the session, so completion resolves the default
	// receiving zone while it holds the carcass lock.
	result, err := env.sessions.CompleteSession(env.org.ID, session.ID, nil, env.actor)
	if err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("warnings = %v, want none for a fully accounted carcass", result.Warnings)
	}

	sale, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.coldRoom.ID,
		Items:  []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 5}},
	}, env.actor)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	// 5 kg at 40 is 200, plus 15% VAT.
	if !closeEnough(sale.TotalAmount, 230) {
		t.Errorf("sale total = %v, want 230", sale.TotalAmount)
	}
	if _, err := env.sales.ProcessPayment(env.org.ID, sale.ID, &PaymentRequest{
		PaymentMethod: "cash",
		CurrencyCode:  "USD",
		Amount:        230,
	}, env.actor); err != nil {
		t.Fatalf("pay sale: %v", err)
	}

	closing, err := env.closings.StartClosing(nil, env.actor)
	if err != nil {
		t.Fatalf("start closing: %v", err)
	}
	// 60 kg cut in, 5 kg sold.
	if !closeEnough(closing.ExpectedStockKg, 55) {
		t.Errorf("expected stock = %v, want 55", closing.ExpectedStockKg)
	}
	var usdCash *model.CashCount
	for i := range closing.CashCounts {
		if closing.CashCounts[i].CurrencyCode == "USD" {
			usdCash = &closing.CashCounts[i]
		}
	}
	if usdCash == nil {
		t.Fatalf("no USD cash count created")
	}
	if !closeEnough(usdCash.ExpectedTotal, 430) {
		t.Errorf("expected cash = %v, want float 200 plus 230 in sales", usdCash.ExpectedTotal)
	}
}

func TestRecordStockCountItemVarianceNeedsReason(t *testing.T) {
	env := newTestEnv(t)
	env.seedLot(t, env.ribeye, env.counter, 50, 2)
	closing, err := env.closings.StartClosing(nil, env.actor)
	if err != nil {
		t.Fatalf("start closing: %v", err)
	}
	item := findCountItem(t, closing, env.ribeye.ID)

	// 48.5 against 50 expected is a real variance; no reason, no entry.
	_, err = env.closings.RecordStockCountItem(env.org.ID, item.ID, &RecordCountRequest{
		ActualKg: 48.5,
		Version:  item.Version,
	}, env.actor)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("variance without reason error = %v, want validation", err)
	}

	_, err = env.closings.RecordStockCountItem(env.org.ID, item.ID, &RecordCountRequest{
		ActualKg:       48.5,
		VarianceReason: "not_a_reason",
		Version:        item.Version,
	}, env.actor)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("unknown reason error = %v, want validation", err)
	}

	counted, err := env.closings.RecordStockCountItem(env.org.ID, item.ID, &RecordCountRequest{
		ActualKg:       48.5,
		VarianceReason: "wastage",
		Version:        item.Version,
	}, env.actor)
	if err != nil {
		t.Fatalf("record count: %v", err)
	}
	if !closeEnough(counted.VarianceKg, -1.5) {
		t.Errorf("variance = %v, want -1.5", counted.VarianceKg)
	}
	if !closeEnough(counted.VariancePercent, -3) {
		t.Errorf("variance percent = %v, want -3", counted.VariancePercent)
	}

	// Re-submitting with the original version must lose the race.
	_, err = env.closings.RecordStockCountItem(env.org.ID, item.ID, &RecordCountRequest{
		ActualKg:       48.5,
		VarianceReason: "wastage",
		Version:        item.Version,
	}, env.actor)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("stale version error = %v, want conflict", err)
	}
}

func TestExactCountNeedsNoReason(t *testing.T) {
	env := newTestEnv(t)
	env.seedLot(t, env.ribeye, env.counter, 50, 2)
	closing, err := env.closings.StartClosing(nil, env.actor)
	if err != nil {
		t.Fatalf("start closing: %v", err)
	}
	item := findCountItem(t, closing, env.ribeye.ID)

	counted, err := env.closings.RecordStockCountItem(env.org.ID, item.ID, &RecordCountRequest{
		ActualKg: 50,
		Version:  item.Version,
	}, env.actor)
	if err != nil {
		t.Fatalf("record exact count: %v", err)
	}
	if !closeEnough(counted.VarianceKg, 0) {
		t.Errorf("variance = %v, want 0", counted.VarianceKg)
	}
}

func TestCompleteStockCountRequiresAllItemsCounted(t *testing.T) {
	env := newTestEnv(t)
	env.seedLot(t, env.ribeye, env.counter, 30, 2)
	env.seedLot(t, env.mince, env.counter, 10, 1)
	closing, err := env.closings.StartClosing(nil, env.actor)
	if err != nil {
		t.Fatalf("start closing: %v", err)
	}
	counterCount := findStockCount(t, closing, env.counter.ID)

	_, err = env.closings.CompleteStockCount(env.org.ID, counterCount.ID, env.actor)
	if apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("complete with uncounted items error = %v, want invalid state", err)
	}

	for _, item := range counterCount.Items {
		if _, err := env.closings.RecordStockCountItem(env.org.ID, item.ID, &RecordCountRequest{
			ActualKg: item.ExpectedKg,
			Version:  item.Version,
		}, env.actor); err != nil {
			t.Fatalf("count item: %v", err)
		}
	}

	done, err := env.closings.CompleteStockCount(env.org.ID, counterCount.ID, env.actor)
	if err != nil {
		t.Fatalf("complete stock count: %v", err)
	}
	if done.Status != model.StockCountCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if !closeEnough(done.ActualTotalKg, 40) {
		t.Errorf("actual total = %v, want 40", done.ActualTotalKg)
	}
}

func TestCompleteClosingGatesOnCounts(t *testing.T) {
	env := newTestEnv(t)
	closing, _ := startClosingWithSale(t, env)

	// Nothing counted yet: completion must refuse.
	_, err := env.closings.CompleteClosing(env.org.ID, closing.ID, "", env.actor)
	if apperr.KindOf(err) != apperr.KindPrecondition {
		t.Fatalf("premature completion error = %v, want precondition", err)
	}

	for _, count := range closing.StockCounts {
		for _, item := range count.Items {
			if _, err := env.closings.RecordStockCountItem(env.org.ID, item.ID, &RecordCountRequest{
				ActualKg: item.ExpectedKg,
				Version:  item.Version,
			}, env.actor); err != nil {
				t.Fatalf("count item: %v", err)
			}
		}
		if _, err := env.closings.CompleteStockCount(env.org.ID, count.ID, env.actor); err != nil {
			t.Fatalf("complete stock count: %v", err)
		}
	}

	// Stock is done but the tills are not.
	_, err = env.closings.CompleteClosing(env.org.ID, closing.ID, "", env.actor)
	if apperr.KindOf(err) != apperr.KindPrecondition {
		t.Fatalf("completion without cash counts error = %v, want precondition", err)
	}

	for _, cash := range closing.CashCounts {
		if _, err := env.closings.RecordCashCount(env.org.ID, cash.ID, &RecordCashCountRequest{
			CountedTotal: cash.ExpectedTotal,
		}, env.actor); err != nil {
			t.Fatalf("record cash count: %v", err)
		}
	}

	done, err := env.closings.CompleteClosing(env.org.ID, closing.ID, "all square", env.actor)
	if err != nil {
		t.Fatalf("complete closing: %v", err)
	}
	if done.Status != model.ClosingCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if !closeEnough(done.StockVarianceKg, 0) {
		t.Errorf("stock variance = %v, want 0", done.StockVarianceKg)
	}

	// Completion is terminal: no further edits, no reopen.
	if _, err := env.closings.CompleteClosing(env.org.ID, closing.ID, "", env.actor); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("second completion error = %v, want invalid state", err)
	}
	for _, cash := range closing.CashCounts {
		if _, err := env.closings.RecordCashCount(env.org.ID, cash.ID, &RecordCashCountRequest{CountedTotal: 1}, env.actor); apperr.KindOf(err) != apperr.KindInvalidState {
			t.Errorf("cash count after completion error = %v, want invalid state", err)
		}
		break
	}
}

func TestCashCountVariance(t *testing.T) {
	env := newTestEnv(t)
	closing, err := env.closings.StartClosing(nil, env.actor)
	if err != nil {
		t.Fatalf("start closing: %v", err)
	}

	var usdCash *model.CashCount
	for i := range closing.CashCounts {
		if closing.CashCounts[i].CurrencyCode == "USD" {
			usdCash = &closing.CashCounts[i]
		}
	}
	if usdCash == nil {
		t.Fatalf("no USD cash count created")
	}

	// Till is short by 12.50 against the opening float.
	counted, err := env.closings.RecordCashCount(env.org.ID, usdCash.ID, &RecordCashCountRequest{
		CountedTotal: 187.50,
		Notes:        "short after change run",
	}, env.actor)
	if err != nil {
		t.Fatalf("record cash count: %v", err)
	}
	if !closeEnough(counted.Variance, -12.50) {
		t.Errorf("variance = %v, want -12.50", counted.Variance)
	}
}

func findStockCount(t *testing.T, closing *model.DailyClosing, zoneID uuid.UUID) *model.StockCount {
	t.Helper()
	for i := range closing.StockCounts {
		if closing.StockCounts[i].ZoneID == zoneID {
			return &closing.StockCounts[i]
		}
	}
	t.Fatalf("no stock count for zone %s", zoneID)
	return nil
}

func findCountItem(t *testing.T, closing *model.DailyClosing, productID uuid.UUID) *model.StockCountItem {
	t.Helper()
	for i := range closing.StockCounts {
		for j := range closing.StockCounts[i].Items {
			if closing.StockCounts[i].Items[j].ProductID == productID {
				return &closing.StockCounts[i].Items[j]
			}
		}
	}
	t.Fatalf("no stock count item for product %s", productID)
	return nil
}
