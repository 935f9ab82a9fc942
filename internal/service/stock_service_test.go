package service

import (
	"testing"
	"time"

	"go-meatflow/internal/apperr"
	"go-meatflow/internal/model"
)

func TestTransferStockSplitsLot(t *testing.T) {
	env := newTestEnv(t)
	source := env.seedLot(t, env.ribeye, env.coldRoom, 100, 2)

	dest, err := env.stock.TransferStock(&TransferRequest{
		LotID:      source.ID,
		ToZoneID:   env.counter.ID,
		QuantityKg: 40,
	}, env.actor)
	if err != nil {
		t.Fatalf("transfer stock: %v", err)
	}

	if got := env.reloadLot(t, source.ID).QuantityKg; !closeEnough(got, 60) {
		t.Errorf("source lot = %v, want 60", got)
	}
	if !closeEnough(dest.QuantityKg, 40) {
		t.Errorf("destination lot = %v, want 40", dest.QuantityKg)
	}
	if dest.ZoneID != env.counter.ID {
		t.Errorf("destination zone = %s, want counter", dest.ZoneID)
	}
	// Cost basis travels with the stock.
	if !closeEnough(dest.CostPerKg, 2) {
		t.Errorf("destination cost = %v, want 2", dest.CostPerKg)
	}
	if dest.SourceType != model.StockFromTransfer || dest.SourceID == nil || *dest.SourceID != source.ID {
		t.Errorf("destination lot does not reference its source")
	}

	// Both sides of the move are in the ledger.
	var movements []model.StockMovement
	if err := env.db.Where("type = ?", model.MovementTransfer).Order("quantity_kg ASC").Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("transfer movements = %d, want 2", len(movements))
	}
	if !closeEnough(movements[0].QuantityKg, -40) || !closeEnough(movements[1].QuantityKg, 40) {
		t.Errorf("movement deltas = %v and %v, want -40 and 40", movements[0].QuantityKg, movements[1].QuantityKg)
	}
}

func TestTransferStockRejectsSameZone(t *testing.T) {
	env := newTestEnv(t)
	source := env.seedLot(t, env.ribeye, env.coldRoom, 100, 2)

	_, err := env.stock.TransferStock(&TransferRequest{
		LotID:      source.ID,
		ToZoneID:   env.coldRoom.ID,
		QuantityKg: 10,
	}, env.actor)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("same zone transfer error = %v, want validation", err)
	}
}

func TestTransferStockShortLot(t *testing.T) {
	env := newTestEnv(t)
	source := env.seedLot(t, env.ribeye, env.coldRoom, 5, 2)

	_, err := env.stock.TransferStock(&TransferRequest{
		LotID:      source.ID,
		ToZoneID:   env.counter.ID,
		QuantityKg: 8,
	}, env.actor)
	if apperr.KindOf(err) != apperr.KindInsufficientStock {
		t.Errorf("short transfer error = %v, want insufficient stock", err)
	}
	if got := env.reloadLot(t, source.ID).QuantityKg; !closeEnough(got, 5) {
		t.Errorf("source lot = %v, want untouched 5", got)
	}
}

func TestAdjustStockWritesDeltaMovement(t *testing.T) {
	env := newTestEnv(t)
	lot := env.seedLot(t, env.ribeye, env.coldRoom, 100, 2)

	adjusted, err := env.stock.AdjustStock(&AdjustmentRequest{
		LotID:         lot.ID,
		NewQuantityKg: 90,
		Reason:        "freezer burn trim",
	}, env.actor)
	if err != nil {
		t.Fatalf("adjust stock: %v", err)
	}
	if !closeEnough(adjusted.QuantityKg, 90) {
		t.Errorf("lot = %v, want 90", adjusted.QuantityKg)
	}
	if !closeEnough(adjusted.TotalCost, 180) {
		t.Errorf("total cost = %v, want 180", adjusted.TotalCost)
	}

	var movement model.StockMovement
	if err := env.db.First(&movement, "stock_lot_id = ? AND type = ?", lot.ID, model.MovementAdjustment).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if !closeEnough(movement.QuantityKg, -10) {
		t.Errorf("movement delta = %v, want -10", movement.QuantityKg)
	}
	if movement.Reason != "freezer burn trim" {
		t.Errorf("movement reason = %q", movement.Reason)
	}
}

func TestAdjustStockRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	lot := env.seedLot(t, env.ribeye, env.coldRoom, 100, 2)

	_, err := env.stock.AdjustStock(&AdjustmentRequest{
		LotID:         lot.ID,
		NewQuantityKg: 90,
	}, env.actor)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("reasonless adjustment error = %v, want validation", err)
	}
}

func TestSweepExpiredZeroesPastDueLots(t *testing.T) {
	env := newTestEnv(t)
	expired := env.seedLot(t, env.ribeye, env.coldRoom, 12, 2)
	fresh := env.seedLot(t, env.mince, env.coldRoom, 8, 1)

	past := time.Now().AddDate(0, 0, -1)
	future := time.Now().AddDate(0, 0, 5)
	env.db.Model(&model.StockLot{}).Where("id = ?", expired.ID).Update("expires_at", past)
	env.db.Model(&model.StockLot{}).Where("id = ?", fresh.ID).Update("expires_at", future)

	swept, err := env.stock.SweepExpired(time.Now())
	if err != nil {
		t.Fatalf("sweep expired: %v", err)
	}
	if swept != 1 {
		t.Errorf("swept = %d, want 1", swept)
	}

	if got := env.reloadLot(t, expired.ID).QuantityKg; !closeEnough(got, 0) {
		t.Errorf("expired lot = %v, want 0", got)
	}
	if got := env.reloadLot(t, fresh.ID).QuantityKg; !closeEnough(got, 8) {
		t.Errorf("fresh lot = %v, want untouched 8", got)
	}

	var movement model.StockMovement
	if err := env.db.First(&movement, "stock_lot_id = ? AND type = ?", expired.ID, model.MovementAdjustment).Error; err != nil {
		t.Fatalf("load sweep movement: %v", err)
	}
	if !closeEnough(movement.QuantityKg, -12) {
		t.Errorf("sweep delta = %v, want -12", movement.QuantityKg)
	}
	if movement.Reason != "expired" {
		t.Errorf("sweep reason = %q, want expired", movement.Reason)
	}
}
