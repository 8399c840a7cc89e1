package ledger

import (
	"errors"
	"testing"

	"github.com/username/cardstock/backend/src/models"
)

func TestCodeLifecycleForwardOnly(t *testing.T) {
	l, _, _ := newTestLedger(t)

	c, err := l.AddCode(models.CardRobux800, "RBX-800-XYZ")
	if err != nil {
		t.Fatalf("AddCode: %v", err)
	}
	if c.Status != models.CodeAvailable {
		t.Fatalf("new code status = %q, want available", c.Status)
	}

	// Delivering before the image is confirmed is rejected.
	if _, err := l.MarkCodeDelivered(c.ID, "buyer"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("MarkCodeDelivered from available: error = %v, want ErrInvalidTransition", err)
	}

	c, err = l.MarkCodeImageReady(c.ID)
	if err != nil {
		t.Fatalf("MarkCodeImageReady: %v", err)
	}
	if c.Status != models.CodeImageReady || c.ImageConfirmedAt == "" {
		t.Fatalf("after image confirm: %+v", c)
	}

	// Confirming the image twice is rejected.
	if _, err := l.MarkCodeImageReady(c.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second MarkCodeImageReady: error = %v, want ErrInvalidTransition", err)
	}

	c, err = l.MarkCodeDelivered(c.ID, "buyer@example.com")
	if err != nil {
		t.Fatalf("MarkCodeDelivered: %v", err)
	}
	if c.Status != models.CodeDelivered || c.DeliveredAt == "" || c.DeliveredTo != "buyer@example.com" {
		t.Fatalf("after delivery: %+v", c)
	}

	// Delivered is terminal.
	if _, err := l.MarkCodeImageReady(c.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("MarkCodeImageReady on delivered: error = %v, want ErrInvalidTransition", err)
	}
	if _, err := l.MarkCodeDelivered(c.ID, "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("MarkCodeDelivered on delivered: error = %v, want ErrInvalidTransition", err)
	}
}

func TestAddCodeValidation(t *testing.T) {
	l, _, _ := newTestLedger(t)

	if _, err := l.AddCode("999", "CODE"); !errors.Is(err, ErrInvalidCardType) {
		t.Errorf("AddCode(999) error = %v, want ErrInvalidCardType", err)
	}
	if _, err := l.AddCode(models.CardSteam5, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("AddCode(empty) error = %v, want ErrInvalidInput", err)
	}
}

func TestDeleteCodeAnyState(t *testing.T) {
	l, _, _ := newTestLedger(t)
	c, err := l.AddCode(models.CardSteam10, "STM-10")
	if err != nil {
		t.Fatalf("AddCode: %v", err)
	}
	if err := l.DeleteCode(c.ID); err != nil {
		t.Fatalf("DeleteCode: %v", err)
	}
	if len(l.Codes()) != 0 {
		t.Error("code still present after delete")
	}
	if err := l.DeleteCode(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteCode error = %v, want ErrNotFound", err)
	}
}
