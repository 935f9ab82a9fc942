package service

import (
	"strings"
	"testing"

	"go-meatflow/internal/apperr"
	"go-meatflow/internal/model"
)

func (env *testEnv) receiveCarcass(t *testing.T, weightKg, costTotal float64) *model.Carcass {
	t.Helper()
	carcass, err := env.carcasses.ReceiveCarcass(&ReceiveCarcassRequest{
		WeightKg:  weightKg,
		CostTotal: costTotal,
	}, env.actor)
	if err != nil {
		t.Fatalf("receive carcass: %v", err)
	}
	return carcass
}

func TestReceiveCarcassDerivesCostPerKg(t *testing.T) {
	env := newTestEnv(t)

	carcass := env.receiveCarcass(t, 285, 570)

	if !closeEnough(carcass.CostPerKg, 2) {
		t.Errorf("cost per kg = %v, want 2", carcass.CostPerKg)
	}
	if carcass.Status != model.CarcassPending {
		t.Errorf("status = %s, want pending", carcass.Status)
	}
	if !strings.HasPrefix(carcass.CarcassNumber, "CAR-") {
		t.Errorf("carcass number %q missing CAR- prefix", carcass.CarcassNumber)
	}
	if carcass.DestinationZoneID == nil || *carcass.DestinationZoneID != env.coldRoom.ID {
		t.Errorf("expected default receiving zone as destination")
	}
}

func TestSessionLifecycleYieldAndUnaccountedWarning(t *testing.T) {
	env := newTestEnv(t)
	carcass := env.receiveCarcass(t, 285, 570)

	session, err := env.sessions.StartSession(&StartSessionRequest{CarcassID: &carcass.ID}, env.actor)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if !closeEnough(session.InputWeightKg, 285) {
		t.Errorf("input weight = %v, want 285", session.InputWeightKg)
	}

	reloaded, err := env.carcasses.GetCarcassByID(env.org.ID, carcass.ID)
	if err != nil {
		t.Fatalf("reload carcass: %v", err)
	}
	if reloaded.Status != model.CarcassProcessing {
		t.Errorf("carcass status = %s, want processing", reloaded.Status)
	}

	if _, err := env.sessions.AddCut(env.org.ID, session.ID, &AddCutRequest{
		ProductID: env.ribeye.ID,
		WeightKg:  250,
	}, env.actor); err != nil {
		t.Fatalf("add cut: %v", err)
	}
	if _, err := env.sessions.RecordWaste(env.org.ID, session.ID, 30, env.actor); err != nil {
		t.Fatalf("record waste: %v", err)
	}

	result, err := env.sessions.CompleteSession(env.org.ID, session.ID, nil, env.actor)
	if err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if result.Session.Status != model.SessionCompleted {
		t.Errorf("session status = %s, want completed", result.Session.Status)
	}
	// 250 output + 30 waste leaves 5 kg unaccounted, over the tolerance.
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", result.Warnings)
	}

	final, err := env.carcasses.GetCarcassByID(env.org.ID, carcass.ID)
	if err != nil {
		t.Fatalf("reload carcass: %v", err)
	}
	if final.Status != model.CarcassCompleted {
		t.Errorf("carcass status = %s, want completed", final.Status)
	}
	if !closeEnough(final.YieldPercentage, 280.0/285.0*100) {
		t.Errorf("yield = %v, want %v", final.YieldPercentage, 280.0/285.0*100)
	}

	// Completion posts one lot per product at the carcass unit cost.
	var lots []model.StockLot
	if err := env.db.Where("source_id = ?", session.ID).Find(&lots).Error; err != nil {
		t.Fatalf("load lots: %v", err)
	}
	if len(lots) != 1 {
		t.Fatalf("lots = %d, want 1", len(lots))
	}
	if !closeEnough(lots[0].QuantityKg, 250) || !closeEnough(lots[0].CostPerKg, 2) {
		t.Errorf("lot = %.2f kg at %.2f/kg, want 250 at 2", lots[0].QuantityKg, lots[0].CostPerKg)
	}
	if lots[0].ZoneID != env.coldRoom.ID {
		t.Errorf("lot landed in zone %s, want the cold room", lots[0].ZoneID)
	}

	var movements []model.StockMovement
	if err := env.db.Where("stock_lot_id = ? AND type = ?", lots[0].ID, model.MovementProduction).Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 1 || !closeEnough(movements[0].QuantityKg, 250) {
		t.Errorf("expected one production movement of 250 kg, got %v", movements)
	}
}

func TestSessionOutputAlwaysMatchesCuts(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.sessions.StartSession(&StartSessionRequest{InputWeightKg: 20}, env.actor)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	first, err := env.sessions.AddCut(env.org.ID, session.ID, &AddCutRequest{ProductID: env.ribeye.ID, WeightKg: 10}, env.actor)
	if err != nil {
		t.Fatalf("add first cut: %v", err)
	}
	if _, err := env.sessions.AddCut(env.org.ID, session.ID, &AddCutRequest{ProductID: env.mince.ID, WeightKg: 5}, env.actor); err != nil {
		t.Fatalf("add second cut: %v", err)
	}

	loaded, err := env.sessions.GetSessionByID(env.org.ID, session.ID)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if !closeEnough(loaded.TotalOutputKg, 15) {
		t.Errorf("output = %v, want 15", loaded.TotalOutputKg)
	}

	if err := env.sessions.RemoveCut(env.org.ID, session.ID, first.ID, env.actor); err != nil {
		t.Fatalf("remove cut: %v", err)
	}
	loaded, err = env.sessions.GetSessionByID(env.org.ID, session.ID)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if !closeEnough(loaded.TotalOutputKg, 5) {
		t.Errorf("output after removal = %v, want 5", loaded.TotalOutputKg)
	}
}

func TestCompleteSessionIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.sessions.StartSession(&StartSessionRequest{InputWeightKg: 10}, env.actor)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := env.sessions.AddCut(env.org.ID, session.ID, &AddCutRequest{ProductID: env.ribeye.ID, WeightKg: 10}, env.actor); err != nil {
		t.Fatalf("add cut: %v", err)
	}
	if _, err := env.sessions.CompleteSession(env.org.ID, session.ID, nil, env.actor); err != nil {
		t.Fatalf("complete session: %v", err)
	}

	if _, err := env.sessions.CompleteSession(env.org.ID, session.ID, nil, env.actor); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("second completion error = %v, want invalid state", err)
	}
	if _, err := env.sessions.AddCut(env.org.ID, session.ID, &AddCutRequest{ProductID: env.ribeye.ID, WeightKg: 1}, env.actor); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("cut after completion error = %v, want invalid state", err)
	}
}

func TestStartSessionRequiresPendingCarcass(t *testing.T) {
	env := newTestEnv(t)
	carcass := env.receiveCarcass(t, 100, 200)

	if _, err := env.sessions.StartSession(&StartSessionRequest{CarcassID: &carcass.ID}, env.actor); err != nil {
		t.Fatalf("start first session: %v", err)
	}
	_, err := env.sessions.StartSession(&StartSessionRequest{CarcassID: &carcass.ID}, env.actor)
	if apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("second claim error = %v, want invalid state", err)
	}
}

func TestCancelSessionReleasesCarcass(t *testing.T) {
	env := newTestEnv(t)
	carcass := env.receiveCarcass(t, 100, 200)
	session, err := env.sessions.StartSession(&StartSessionRequest{CarcassID: &carcass.ID}, env.actor)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	if _, err := env.sessions.CancelSession(env.org.ID, session.ID, env.actor); err != nil {
		t.Fatalf("cancel session: %v", err)
	}

	reloaded, err := env.carcasses.GetCarcassByID(env.org.ID, carcass.ID)
	if err != nil {
		t.Fatalf("reload carcass: %v", err)
	}
	if reloaded.Status != model.CarcassPending {
		t.Errorf("carcass status = %s, want pending after cancel", reloaded.Status)
	}

	// The released carcass can be claimed again.
	if _, err := env.sessions.StartSession(&StartSessionRequest{CarcassID: &carcass.ID}, env.actor); err != nil {
		t.Fatalf("restart on released carcass: %v", err)
	}
}

func TestPauseResumeTransitions(t *testing.T) {
	env := newTestEnv(t)
	session, err := env.sessions.StartSession(&StartSessionRequest{InputWeightKg: 10}, env.actor)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	if _, err := env.sessions.ResumeSession(env.org.ID, session.ID, env.actor); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("resume active session error = %v, want invalid state", err)
	}

	paused, err := env.sessions.PauseSession(env.org.ID, session.ID, env.actor)
	if err != nil {
		t.Fatalf("pause session: %v", err)
	}
	if paused.Status != model.SessionPaused {
		t.Errorf("status = %s, want paused", paused.Status)
	}

	if _, err := env.sessions.AddCut(env.org.ID, session.ID, &AddCutRequest{ProductID: env.ribeye.ID, WeightKg: 1}, env.actor); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("cut on paused session error = %v, want invalid state", err)
	}

	resumed, err := env.sessions.ResumeSession(env.org.ID, session.ID, env.actor)
	if err != nil {
		t.Fatalf("resume session: %v", err)
	}
	if resumed.Status != model.SessionActive {
		t.Errorf("status = %s, want active", resumed.Status)
	}
}
