package predictor_test

import (
	"testing"

	"rv32isim/predictor"
)

func TestAlwaysNotTakenNeverPredictsTaken(t *testing.T) {
	p := predictor.New(predictor.AlwaysNotTaken)
	if p.Predict(0x1000) {
		t.Error("expected AlwaysNotTaken to never predict taken")
	}
	p.Update(0x1000, true)
	if p.Predict(0x1000) {
		t.Error("expected AlwaysNotTaken to ignore Update entirely")
	}
}

func TestBufferedPredictionStartsWeakTaken(t *testing.T) {
	p := predictor.New(predictor.BufferedPrediction)
	if !p.Predict(0x2000) {
		t.Error("expected initial state Weak-Taken to predict taken")
	}
}

func TestBufferedPredictionSaturatesNotTaken(t *testing.T) {
	p := predictor.New(predictor.BufferedPrediction)
	pc := uint32(0x3000)
	p.Update(pc, false) // Weak -> WeakNot
	if p.Predict(pc) {
		t.Error("expected not-taken after one not-taken update")
	}
	p.Update(pc, false) // WeakNot -> StrongNot
	p.Update(pc, false) // saturates at StrongNot
	if p.Predict(pc) {
		t.Error("expected to remain not-taken at saturation")
	}
	// a single taken doesn't flip a strongly-not-taken counter straight to taken
	p.Update(pc, true) // StrongNot -> WeakNot
	if p.Predict(pc) {
		t.Error("expected still not-taken one step off saturation")
	}
}

func TestBufferedPredictionSaturatesTaken(t *testing.T) {
	p := predictor.New(predictor.BufferedPrediction)
	pc := uint32(0x4000)
	p.Update(pc, true) // Weak -> Strong
	if !p.Predict(pc) {
		t.Error("expected taken after one taken update")
	}
	p.Update(pc, true) // saturates at Strong
	if !p.Predict(pc) {
		t.Error("expected to remain taken at saturation")
	}
}

func TestPredictionIsPerPC(t *testing.T) {
	p := predictor.New(predictor.BufferedPrediction)
	p.Update(0x5000, false)
	p.Update(0x5000, false)
	if p.Predict(0x5004) == p.Predict(0x5000) {
		t.Error("expected independent counters for distinct PCs")
	}
}
