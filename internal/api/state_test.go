package api

import (
	"testing"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

func TestStateMachineValidTransitions(t *testing.T) {
	m := NewStateMachine()
	if m.Current() != FirstBoot {
		t.Fatalf("initial state = %s, want FirstBoot", m.Current())
	}
	if err := m.Transition(Running); err != nil {
		t.Fatalf("FirstBoot->Running: %v", err)
	}
	if err := m.Transition(Suspended); err != nil {
		t.Fatalf("Running->Suspended: %v", err)
	}
	if err := m.Transition(Running); err != nil {
		t.Fatalf("Suspended->Running: %v", err)
	}
	if err := m.Transition(ReInit); err != nil {
		t.Fatalf("Running->ReInit: %v", err)
	}
	if err := m.Transition(Running); err != nil {
		t.Fatalf("ReInit->Running: %v", err)
	}
	if err := m.Transition(ShuttingDown); err != nil {
		t.Fatalf("Running->ShuttingDown: %v", err)
	}
}

func TestStateMachineRejectsInvalidTransition(t *testing.T) {
	m := NewStateMachine()
	if err := m.Transition(Suspended); !apperr.Is(err, apperr.KindInvalidInput) {
		t.Fatalf("FirstBoot->Suspended: expected InvalidInput, got %v", err)
	}
}

func TestStateMachineShuttingDownIsTerminal(t *testing.T) {
	m := NewStateMachine()
	_ = m.Transition(Running)
	_ = m.Transition(ShuttingDown)
	if err := m.Transition(Running); err == nil {
		t.Fatal("expected ShuttingDown to reject every transition")
	}
}

func TestCheckCommandSuspendedBlocksMostCommands(t *testing.T) {
	m := NewStateMachine()
	_ = m.Transition(Running)
	_ = m.Transition(Suspended)

	if err := m.CheckCommand("query"); !apperr.Is(err, apperr.KindSuspended) {
		t.Errorf("expected query to be blocked while suspended, got %v", err)
	}
	if err := m.CheckCommand("resume"); err != nil {
		t.Errorf("expected resume to pass while suspended, got %v", err)
	}
	if err := m.CheckCommand("shutdown"); err != nil {
		t.Errorf("expected shutdown to pass while suspended, got %v", err)
	}
}

func TestCheckCommandShuttingDownBlocksEverything(t *testing.T) {
	m := NewStateMachine()
	_ = m.Transition(Running)
	_ = m.Transition(ShuttingDown)

	if err := m.CheckCommand("resume"); !apperr.Is(err, apperr.KindShuttingDown) {
		t.Errorf("expected resume to be blocked while shutting down, got %v", err)
	}
}

func TestCheckThumbnailReadRejectsSuspended(t *testing.T) {
	m := NewStateMachine()
	_ = m.Transition(Running)
	_ = m.Transition(Suspended)
	if err := m.CheckThumbnailRead(); !apperr.Is(err, apperr.KindSuspended) {
		t.Errorf("expected thumbnail reads to reject while suspended, got %v", err)
	}
}

func TestCheckStaticReadSucceedsWhileSuspended(t *testing.T) {
	m := NewStateMachine()
	_ = m.Transition(Running)
	_ = m.Transition(Suspended)
	if err := m.CheckStaticRead(); err != nil {
		t.Errorf("expected static reads to succeed while suspended, got %v", err)
	}
}
