package jailer

import "testing"

func TestIsStage1_UnsetByDefault(t *testing.T) {
	t.Setenv(Stage1Env, "")
	if IsStage1() {
		t.Fatal("expected IsStage1 to be false when unset")
	}
}

func TestIsStage1_TrueWhenSet(t *testing.T) {
	t.Setenv(Stage1Env, "1")
	if !IsStage1() {
		t.Fatal("expected IsStage1 to be true when set to 1")
	}
}

func TestIsStage1_FalseForOtherValues(t *testing.T) {
	t.Setenv(Stage1Env, "true")
	if IsStage1() {
		t.Fatal("expected IsStage1 to require the exact value \"1\"")
	}
}
