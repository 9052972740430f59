package custody

import (
	"github.com/pkg/errors"
)

// The exported transition operations dispatch on the batch variant. Each one
// re-reads current state from the ledger, validates, and commits the new
// state together with exactly one log entry. Any rejection leaves the ledger
// untouched.

// InitiateTransfer hands the batch at address to a transporter, bound for
// receiver.
func (e *Engine) InitiateTransfer(actor, address, transporter, receiver string, loc GeoPoint, now int64) error {
	b, err := e.ledger.Batch(address)
	if err != nil {
		return err
	}
	switch v := b.(type) {
	case *RawMaterialBatch:
		return e.initiateRawMaterialTransfer(actor, v, transporter, receiver, loc, now)
	case *MedicineBatch:
		return e.initiateMedicineTransfer(actor, v, transporter, receiver, loc, now)
	}
	return errors.Wrapf(ErrNotFound, "batch %s has unknown kind", address)
}

// Receive completes an in-transit transfer at the addressed party.
func (e *Engine) Receive(actor, address string, loc GeoPoint, now int64) error {
	b, err := e.ledger.Batch(address)
	if err != nil {
		return err
	}
	switch v := b.(type) {
	case *RawMaterialBatch:
		return e.receiveRawMaterial(actor, v, loc, now)
	case *MedicineBatch:
		return e.receiveMedicine(actor, v, loc, now)
	}
	return errors.Wrapf(ErrNotFound, "batch %s has unknown kind", address)
}

// Finalize marks a medicine batch as consumed or sold on. Raw material
// batches have no finalize edge.
func (e *Engine) Finalize(actor, address string, loc GeoPoint, now int64) error {
	b, err := e.ledger.Batch(address)
	if err != nil {
		return err
	}
	med, ok := b.(*MedicineBatch)
	if !ok {
		return errors.Wrapf(ErrInvalidStateForAction,
			"batch %s is not a medicine batch, finalize does not apply", address)
	}
	return e.finalizeMedicine(actor, med, loc, now)
}

// Destroy retires the batch at address with a recorded reason.
func (e *Engine) Destroy(actor, address, reason string, loc GeoPoint, now int64) error {
	b, err := e.ledger.Batch(address)
	if err != nil {
		return err
	}
	switch v := b.(type) {
	case *RawMaterialBatch:
		return e.destroyRawMaterial(actor, v, reason, loc, now)
	case *MedicineBatch:
		return e.destroyMedicine(actor, v, reason, loc, now)
	}
	return errors.Wrapf(ErrNotFound, "batch %s has unknown kind", address)
}
