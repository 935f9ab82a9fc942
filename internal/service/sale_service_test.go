package service

import (
	"testing"

	"github.com/google/uuid"

	"go-meatflow/internal/apperr"
	"go-meatflow/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

func TestCreateSaleTotalsWithVAT(t *testing.T) {
	env := newTestEnv(t)
	env.seedLot(t, env.ribeye, env.counter, 50, 2)
	env.seedLot(t, env.mince, env.counter, 50, 2)

	sale, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items: []SaleLineRequest{
			{ProductID: env.ribeye.ID, QuantityKg: 0.4},
			{ProductID: env.mince.ID, QuantityKg: 0.3},
		},
	}, env.actor)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	// 0.4 kg at 40 plus 0.3 kg at 8, then 15% VAT on top.
	if !closeEnough(sale.Subtotal, 18.40) {
		t.Errorf("subtotal = %v, want 18.40", sale.Subtotal)
	}
	if !closeEnough(sale.TaxAmount, 2.76) {
		t.Errorf("tax = %v, want 2.76", sale.TaxAmount)
	}
	if !closeEnough(sale.TotalAmount, 21.16) {
		t.Errorf("total = %v, want 21.16", sale.TotalAmount)
	}
	if !closeEnough(sale.TotalWeightKg, 0.7) {
		t.Errorf("weight = %v, want 0.7", sale.TotalWeightKg)
	}
	if !closeEnough(sale.TotalCost, 1.4) {
		t.Errorf("cost = %v, want 1.4", sale.TotalCost)
	}
	if sale.PaymentStatus != model.PaymentUnpaid {
		t.Errorf("payment status = %s, want unpaid", sale.PaymentStatus)
	}

	// Cash payment with change.
	paid, err := env.sales.ProcessPayment(env.org.ID, sale.ID, &PaymentRequest{
		PaymentMethod: "cash",
		CurrencyCode:  "USD",
		Amount:        21.16,
		Tendered:      floatPtr(25),
	}, env.actor)
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if paid.PaymentStatus != model.PaymentPaid {
		t.Errorf("payment status = %s, want paid", paid.PaymentStatus)
	}
	if !closeEnough(paid.ChangeGiven, 3.84) {
		t.Errorf("change = %v, want 3.84", paid.ChangeGiven)
	}

	// Another tender against a settled sale is refused.
	_, err = env.sales.ProcessPayment(env.org.ID, sale.ID, &PaymentRequest{
		PaymentMethod: "cash",
		CurrencyCode:  "USD",
		Amount:        1,
	}, env.actor)
	if apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("payment on paid sale error = %v, want invalid state", err)
	}
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	env.seedLot(t, env.ribeye, env.counter, 2, 2)

	_, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 2.5}},
	}, env.actor)
	if apperr.KindOf(err) != apperr.KindInsufficientStock {
		t.Fatalf("oversell error = %v, want insufficient stock", err)
	}

	// The failed sale must leave the lot untouched.
	var lot model.StockLot
	if err := env.db.First(&lot, "product_id = ?", env.ribeye.ID).Error; err != nil {
		t.Fatalf("reload lot: %v", err)
	}
	if !closeEnough(lot.QuantityKg, 2) {
		t.Errorf("lot quantity = %v, want 2 after rollback", lot.QuantityKg)
	}
}

func TestSaleConsumesEarliestExpiryFirst(t *testing.T) {
	env := newTestEnv(t)
	late := env.seedLot(t, env.ribeye, env.counter, 10, 3)
	early := env.seedLot(t, env.ribeye, env.counter, 4, 2)

	// Give the second lot the nearer expiry so it must be drained first.
	soon := nowPlusDays(1)
	far := nowPlusDays(7)
	env.db.Model(&model.StockLot{}).Where("id = ?", early.ID).Update("expires_at", soon)
	env.db.Model(&model.StockLot{}).Where("id = ?", late.ID).Update("expires_at", far)

	sale, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 6, UnitPrice: floatPtr(10)}},
	}, env.actor)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	if got := env.reloadLot(t, early.ID).QuantityKg; !closeEnough(got, 0) {
		t.Errorf("early lot = %v, want drained to 0", got)
	}
	if got := env.reloadLot(t, late.ID).QuantityKg; !closeEnough(got, 8) {
		t.Errorf("late lot = %v, want 8", got)
	}

	// Weighted cost: 4 kg at 2 plus 2 kg at 3 over 6 kg.
	wantCost := (4*2.0 + 2*3.0) / 6.0
	if !closeEnough(sale.TotalCost, wantCost*6) {
		t.Errorf("total cost = %v, want %v", sale.TotalCost, wantCost*6)
	}
}

func TestVoidSaleRestoresStockAndKeepsRecord(t *testing.T) {
	env := newTestEnv(t)
	lot := env.seedLot(t, env.ribeye, env.counter, 10, 2)

	sale, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 3}},
	}, env.actor)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if got := env.reloadLot(t, lot.ID).QuantityKg; !closeEnough(got, 7) {
		t.Fatalf("lot after sale = %v, want 7", got)
	}

	if _, err := env.sales.VoidSale(env.org.ID, sale.ID, "", env.actor); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("void without reason error = %v, want validation", err)
	}

	voided, err := env.sales.VoidSale(env.org.ID, sale.ID, "customer walked out", env.actor)
	if err != nil {
		t.Fatalf("void sale: %v", err)
	}
	if voided.Status != model.SaleVoided {
		t.Errorf("status = %s, want voided", voided.Status)
	}
	if got := env.reloadLot(t, lot.ID).QuantityKg; !closeEnough(got, 10) {
		t.Errorf("lot after void = %v, want 10 restored", got)
	}

	var reversals int64
	env.db.Model(&model.StockMovement{}).
		Where("reference_id = ? AND type = ?", sale.ID, model.MovementVoid).
		Count(&reversals)
	if reversals != 1 {
		t.Errorf("void movements = %d, want 1", reversals)
	}

	if _, err := env.sales.VoidSale(env.org.ID, sale.ID, "again", env.actor); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("double void error = %v, want invalid state", err)
	}
}

func TestVoidReversesCarcassRevenue(t *testing.T) {
	env := newTestEnv(t)
	carcass := env.receiveCarcass(t, 100, 200)
	session, err := env.sessions.StartSession(&StartSessionRequest{
		CarcassID:         &carcass.ID,
		DestinationZoneID: &env.counter.ID,
	}, env.actor)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := env.sessions.AddCut(env.org.ID, session.ID, &AddCutRequest{ProductID: env.ribeye.ID, WeightKg: 90}, env.actor); err != nil {
		t.Fatalf("add cut: %v", err)
	}
	if _, err := env.sessions.RecordWaste(env.org.ID, session.ID, 10, env.actor); err != nil {
		t.Fatalf("record waste: %v", err)
	}
	if _, err := env.sessions.CompleteSession(env.org.ID, session.ID, nil, env.actor); err != nil {
		t.Fatalf("complete session: %v", err)
	}

	sale, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 5, UnitPrice: floatPtr(10)}},
	}, env.actor)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	after, _ := env.carcasses.GetCarcassByID(env.org.ID, carcass.ID)
	if !closeEnough(after.TotalRevenue, 50) {
		t.Errorf("carcass revenue = %v, want 50", after.TotalRevenue)
	}
	// 5 kg at cost 2 against 50 revenue.
	if !closeEnough(after.Margin, 40) {
		t.Errorf("carcass margin = %v, want 40", after.Margin)
	}

	if _, err := env.sales.VoidSale(env.org.ID, sale.ID, "test void", env.actor); err != nil {
		t.Fatalf("void sale: %v", err)
	}
	reversed, _ := env.carcasses.GetCarcassByID(env.org.ID, carcass.ID)
	if !closeEnough(reversed.TotalRevenue, 0) || !closeEnough(reversed.Margin, 0) {
		t.Errorf("carcass rollup after void = revenue %v margin %v, want both 0", reversed.TotalRevenue, reversed.Margin)
	}
}

func TestPaymentCannotOvershootOutstanding(t *testing.T) {
	env := newTestEnv(t)
	env.seedLot(t, env.ribeye, env.counter, 10, 2)

	sale, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 1, UnitPrice: floatPtr(10)}},
	}, env.actor)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	_, err = env.sales.ProcessPayment(env.org.ID, sale.ID, &PaymentRequest{
		PaymentMethod: "cash",
		CurrencyCode:  "USD",
		Amount:        sale.TotalAmount + 5,
	}, env.actor)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("overshoot error = %v, want validation", err)
	}
}

func TestForeignCurrencyPaymentConvertsToBase(t *testing.T) {
	env := newTestEnv(t)
	env.seedLot(t, env.ribeye, env.counter, 10, 2)

	sale, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 1, UnitPrice: floatPtr(20), LineDiscount: 0}},
		// subtotal 20, tax 3, total 23
	}, env.actor)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	// 300 ZWL at 30 per USD covers 10 in base currency.
	partial, err := env.sales.ProcessPayment(env.org.ID, sale.ID, &PaymentRequest{
		PaymentMethod: "cash",
		CurrencyCode:  "ZWL",
		Amount:        300,
	}, env.actor)
	if err != nil {
		t.Fatalf("process partial payment: %v", err)
	}
	if !closeEnough(partial.AmountPaid, 10) {
		t.Errorf("amount paid = %v, want 10", partial.AmountPaid)
	}
	if partial.PaymentStatus != model.PaymentPartial {
		t.Errorf("payment status = %s, want partial", partial.PaymentStatus)
	}

	remaining := sale.TotalAmount - 10
	settled, err := env.sales.ProcessPayment(env.org.ID, sale.ID, &PaymentRequest{
		PaymentMethod: "card",
		CurrencyCode:  "USD",
		Amount:        remaining,
	}, env.actor)
	if err != nil {
		t.Fatalf("settle remainder: %v", err)
	}
	if settled.PaymentStatus != model.PaymentPaid {
		t.Errorf("payment status = %s, want paid", settled.PaymentStatus)
	}
}

func TestHeldSaleRecallGuardsConcurrency(t *testing.T) {
	env := newTestEnv(t)

	held, err := env.sales.HoldSale(&HoldSaleRequest{
		ZoneID: env.counter.ID,
		Items: []model.HeldCartItem{
			{ProductID: env.ribeye.ID, QuantityKg: 2, UnitPrice: 40},
		},
		CustomerName: "Walk-in",
	}, env.actor)
	if err != nil {
		t.Fatalf("hold sale: %v", err)
	}
	if !closeEnough(held.Subtotal, 80) {
		t.Errorf("held subtotal = %v, want 80", held.Subtotal)
	}

	recalled, err := env.sales.RecallHeldSale(env.org.ID, held.ID, held.Version, env.actor)
	if err != nil {
		t.Fatalf("recall held sale: %v", err)
	}
	if recalled.Status != model.HeldSaleRecalled {
		t.Errorf("status = %s, want recalled", recalled.Status)
	}

	// Recalling again hits the terminal state, not the version check.
	if _, err := env.sales.RecallHeldSale(env.org.ID, held.ID, recalled.Version, env.actor); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("second recall error = %v, want invalid state", err)
	}

	// A stale version against a live hold is a conflict.
	stale, err := env.sales.HoldSale(&HoldSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []model.HeldCartItem{{ProductID: env.mince.ID, QuantityKg: 1, UnitPrice: 8}},
	}, env.actor)
	if err != nil {
		t.Fatalf("hold second sale: %v", err)
	}
	if _, err := env.sales.RecallHeldSale(env.org.ID, stale.ID, stale.Version+3, env.actor); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("stale recall error = %v, want conflict", err)
	}
}

func TestRecallHeldSaleScopedToOrganization(t *testing.T) {
	env := newTestEnv(t)

	held, err := env.sales.HoldSale(&HoldSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []model.HeldCartItem{{ProductID: env.ribeye.ID, QuantityKg: 2, UnitPrice: 40}},
	}, env.actor)
	if err != nil {
		t.Fatalf("hold sale: %v", err)
	}

	// An actor from another organization must neither see nor mutate the hold.
	intruder := Actor{UserID: uuid.New(), OrganizationID: uuid.New()}
	if _, err := env.sales.RecallHeldSale(intruder.OrganizationID, held.ID, held.Version, intruder); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("cross-organization recall error = %v, want not found", err)
	}

	var reloaded model.HeldSale
	if err := env.db.First(&reloaded, "id = ?", held.ID).Error; err != nil {
		t.Fatalf("reload held sale: %v", err)
	}
	if reloaded.Status != model.HeldSaleHeld {
		t.Errorf("status = %s after foreign recall, want still held", reloaded.Status)
	}
	if reloaded.RecalledBy != nil {
		t.Errorf("recalled_by = %v after foreign recall, want unset", reloaded.RecalledBy)
	}

	// The rightful organization can still recall with the original version.
	if _, err := env.sales.RecallHeldSale(env.org.ID, held.ID, held.Version, env.actor); err != nil {
		t.Errorf("recall by owning organization: %v", err)
	}
}

func TestPaymentChecksOutstandingAgainstCurrentBalance(t *testing.T) {
	env := newTestEnv(t)
	env.seedLot(t, env.ribeye, env.counter, 10, 2)

	sale, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID: env.counter.ID,
		Items:  []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 2, UnitPrice: floatPtr(10)}},
	}, env.actor)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	// 20 plus 15% VAT is 23. Pay 10, leaving 13 outstanding.
	if _, err := env.sales.ProcessPayment(env.org.ID, sale.ID, &PaymentRequest{
		PaymentMethod: "cash",
		CurrencyCode:  "USD",
		Amount:        10,
	}, env.actor); err != nil {
		t.Fatalf("first payment: %v", err)
	}

	// A second tender above the remaining balance must fail against the
	// updated balance, not the one from before the first payment.
	if _, err := env.sales.ProcessPayment(env.org.ID, sale.ID, &PaymentRequest{
		PaymentMethod: "cash",
		CurrencyCode:  "USD",
		Amount:        15,
	}, env.actor); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("overshoot after partial payment error = %v, want validation", err)
	}

	settled, err := env.sales.ProcessPayment(env.org.ID, sale.ID, &PaymentRequest{
		PaymentMethod: "cash",
		CurrencyCode:  "USD",
		Amount:        13,
	}, env.actor)
	if err != nil {
		t.Fatalf("settle remainder: %v", err)
	}
	if settled.PaymentStatus != model.PaymentPaid {
		t.Errorf("payment status = %s, want paid", settled.PaymentStatus)
	}
}

func TestDiscountCannotExceedSubtotal(t *testing.T) {
	env := newTestEnv(t)
	env.seedLot(t, env.ribeye, env.counter, 10, 2)

	_, err := env.sales.CreateSale(&CreateSaleRequest{
		ZoneID:         env.counter.ID,
		Items:          []SaleLineRequest{{ProductID: env.ribeye.ID, QuantityKg: 1, UnitPrice: floatPtr(10)}},
		DiscountAmount: 100,
	}, env.actor)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("oversized discount error = %v, want validation", err)
	}
}
