package ledger

import (
	"errors"
	"fmt"

	"github.com/username/cardstock/backend/src/models"
)

// ErrInvalidTransition is returned when a gift-code status change would
// move backward or skip a state.
var ErrInvalidTransition = errors.New("invalid gift-code status transition")

// AddCode registers a new gift-card code in the available state.
func (l *Ledger) AddCode(cardType models.CardType, code string) (models.GiftCardCode, error) {
	if !cardType.Valid() {
		return models.GiftCardCode{}, fmt.Errorf("%w: %q", ErrInvalidCardType, cardType)
	}
	if code == "" {
		return models.GiftCardCode{}, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c := models.GiftCardCode{
		ID:        l.newID(),
		CardType:  cardType,
		Code:      code,
		Status:    models.CodeAvailable,
		CreatedAt: l.nowISO(),
	}
	l.codes = append(l.codes, c)
	if err := l.persistLocked(keyGiftCodes); err != nil {
		return models.GiftCardCode{}, err
	}
	return c, nil
}

// Codes returns a copy of the gift-code collection.
func (l *Ledger) Codes() []models.GiftCardCode {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.GiftCardCode, len(l.codes))
	copy(out, l.codes)
	return out
}

// MarkCodeImageReady moves a code from available to image_ready and
// stamps the confirmation time.
func (l *Ledger) MarkCodeImageReady(id string) (models.GiftCardCode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, err := l.findCodeLocked(id)
	if err != nil {
		return models.GiftCardCode{}, err
	}
	if c.Status != models.CodeAvailable {
		return models.GiftCardCode{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, models.CodeImageReady)
	}
	c.Status = models.CodeImageReady
	c.ImageConfirmedAt = l.nowISO()
	if err := l.persistLocked(keyGiftCodes); err != nil {
		return models.GiftCardCode{}, err
	}
	return *c, nil
}

// MarkCodeDelivered moves a code from image_ready to delivered, stamping
// the delivery time and optionally the recipient. Delivering straight
// from available is rejected: the image must be confirmed first.
func (l *Ledger) MarkCodeDelivered(id, deliveredTo string) (models.GiftCardCode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, err := l.findCodeLocked(id)
	if err != nil {
		return models.GiftCardCode{}, err
	}
	if c.Status != models.CodeImageReady {
		return models.GiftCardCode{}, fmt.Errorf("%w: %s -> %s (confirm the image first)", ErrInvalidTransition, c.Status, models.CodeDelivered)
	}
	c.Status = models.CodeDelivered
	c.DeliveredAt = l.nowISO()
	c.DeliveredTo = deliveredTo
	if err := l.persistLocked(keyGiftCodes); err != nil {
		return models.GiftCardCode{}, err
	}
	return *c, nil
}

// DeleteCode removes a code regardless of its state. Deletion is an
// explicit action, not a lifecycle transition.
func (l *Ledger) DeleteCode(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.codes {
		if l.codes[i].ID == id {
			l.codes = append(l.codes[:i], l.codes[i+1:]...)
			return l.persistLocked(keyGiftCodes)
		}
	}
	return fmt.Errorf("%w: code %s", ErrNotFound, id)
}

func (l *Ledger) findCodeLocked(id string) (*models.GiftCardCode, error) {
	for i := range l.codes {
		if l.codes[i].ID == id {
			return &l.codes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: code %s", ErrNotFound, id)
}
