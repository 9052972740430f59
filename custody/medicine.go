package custody

import (
	"github.com/pkg/errors"
)

// CreateMedicine registers a new medicine batch for the acting manufacturer.
// Every referenced raw-material batch must already be Received by this same
// manufacturer; the reference list is checked as a set and the whole creation
// rejects with no partial effect if any reference fails.
func (e *Engine) CreateMedicine(actor string, req CreateMedicineRequest, now int64) (*MedicineBatch, error) {
	if err := e.requireRole(actor, RoleManufacturer, ErrUnauthorized); err != nil {
		return nil, err
	}
	if err := validateText("description", req.Description); err != nil {
		return nil, err
	}
	if req.Quantity == 0 {
		return nil, errors.Wrap(ErrPreconditionFailed, "quantity must be positive")
	}
	if req.ExpiryDate <= now {
		return nil, errors.Wrapf(ErrExpiryNotInFuture, "expiry %d is not after %d", req.ExpiryDate, now)
	}

	refs := dedupeRefs(req.RawMaterialRefs)
	if len(refs) == 0 {
		return nil, errors.Wrap(ErrPreconditionFailed, "at least one raw material reference is required")
	}
	for _, ref := range refs {
		rm, err := e.rawMaterial(ref)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, errors.Wrapf(ErrPreconditionFailed, "raw material %s not found", ref)
			}
			return nil, err
		}
		if rm.Status != RawMaterialReceived {
			return nil, errors.Wrapf(ErrPreconditionFailed,
				"raw material %s is %s, composition requires %s", ref, rm.Status, RawMaterialReceived)
		}
		if rm.IntendedManufacturer != actor {
			return nil, errors.Wrapf(ErrPreconditionFailed,
				"raw material %s was intended for a different manufacturer", ref)
		}
	}

	if err := e.assertNewAddress(req.Address); err != nil {
		return nil, err
	}

	batch := &MedicineBatch{
		Address:             req.Address,
		Description:         req.Description,
		Quantity:            req.Quantity,
		Manufacturer:        actor,
		CurrentOwner:        actor,
		RawMaterialBatchIDs: refs,
		ExpiryDate:          req.ExpiryDate,
		Status:              MedicineCreated,
		CreationTime:        now,
		LastUpdateTime:      now,
	}

	entry, err := e.nextEntry(req.Address, actor, "",
		EventMedicineCreated, req.Location, eventPayload{
			Event:       EventMedicineCreated,
			StatusAfter: string(MedicineCreated),
		}, now)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Commit(batch, entry); err != nil {
		return nil, err
	}
	return batch, nil
}

// initiateMedicineTransfer moves a batch from custody into transit toward the
// next stage. The sending role derives from the current status alone; a
// caller holding a "correct" role for some other status is still rejected.
func (e *Engine) initiateMedicineTransfer(actor string, b *MedicineBatch,
	transporter, receiver string, loc GeoPoint, now int64) error {

	rule, ok := medicineSendRules[b.Status]
	if !ok {
		return errors.Wrapf(ErrInvalidStateForAction,
			"medicine batch %s is %s, no transfer leaves that state", b.Address, b.Status)
	}
	if err := e.requireRole(actor, rule.role, ErrRoleMismatchForState); err != nil {
		return err
	}
	if actor != b.CurrentOwner {
		return errors.Wrapf(ErrUnauthorized, "%s does not hold custody of batch %s", actor, b.Address)
	}
	if receiver == "" {
		return errors.Wrap(ErrPreconditionFailed, "receiver must not be empty")
	}
	if transporter == "" {
		return errors.Wrap(ErrPreconditionFailed, "transporter must not be empty")
	}

	next := cloneMedicine(b)
	next.Status = rule.next
	next.CurrentDestination = receiver
	next.CurrentTransporter = transporter
	next.LastUpdateTime = now

	entry, err := e.nextEntry(b.Address, actor, transporter, rule.event, loc, eventPayload{
		Event:        rule.event,
		StatusBefore: string(b.Status),
		StatusAfter:  string(next.Status),
	}, now)
	if err != nil {
		return err
	}
	return e.ledger.Commit(next, entry)
}

// receiveMedicine completes a transfer. Receipt demands an exact identity
// match against the addressed destination, independent of role, so a role
// holder other than the addressed party cannot intercept a shipment.
func (e *Engine) receiveMedicine(actor string, b *MedicineBatch, loc GeoPoint, now int64) error {
	rule, ok := medicineReceiveRules[b.Status]
	if !ok {
		return errors.Wrapf(ErrInvalidStateForAction,
			"medicine batch %s is %s, nothing to receive", b.Address, b.Status)
	}
	if actor != b.CurrentDestination {
		return errors.Wrapf(ErrReceiverMismatch,
			"batch %s is addressed to a different party", b.Address)
	}
	if err := e.requireRole(actor, rule.role, ErrRoleMismatchForState); err != nil {
		return err
	}

	transporter := b.CurrentTransporter
	next := cloneMedicine(b)
	next.Status = rule.next
	next.CurrentOwner = actor
	next.CurrentDestination = ""
	next.CurrentTransporter = ""
	next.LastUpdateTime = now

	entry, err := e.nextEntry(b.Address, actor, transporter,
		EventMedicineReceived, loc, eventPayload{
			Event:        EventMedicineReceived,
			StatusBefore: string(b.Status),
			StatusAfter:  string(next.Status),
		}, now)
	if err != nil {
		return err
	}
	return e.ledger.Commit(next, entry)
}

// finalizeMedicine marks a batch at its customer as consumed or sold on.
// Consumed is terminal.
func (e *Engine) finalizeMedicine(actor string, b *MedicineBatch, loc GeoPoint, now int64) error {
	if b.Status != MedicineAtCustomer {
		return errors.Wrapf(ErrInvalidStateForAction,
			"medicine batch %s is %s, finalize requires %s", b.Address, b.Status, MedicineAtCustomer)
	}
	if err := e.requireRole(actor, RoleCustomer, ErrRoleMismatchForState); err != nil {
		return err
	}
	if actor != b.CurrentOwner {
		return errors.Wrapf(ErrUnauthorized, "%s does not hold custody of batch %s", actor, b.Address)
	}

	next := cloneMedicine(b)
	next.Status = MedicineConsumed
	next.LastUpdateTime = now

	entry, err := e.nextEntry(b.Address, actor, "",
		EventMedicineFinalized, loc, eventPayload{
			Event:        EventMedicineFinalized,
			StatusBefore: string(b.Status),
			StatusAfter:  string(next.Status),
		}, now)
	if err != nil {
		return err
	}
	return e.ledger.Commit(next, entry)
}

// destroyMedicine retires a batch from a resting custody state. The current
// owner may destroy while holding the role matching that state; Admin may
// destroy regardless of ownership. In-transit and terminal batches cannot be
// destroyed.
func (e *Engine) destroyMedicine(actor string, b *MedicineBatch, reason string, loc GeoPoint, now int64) error {
	if err := validateText("reason", reason); err != nil {
		return err
	}
	role, ok := medicineDestroyRules[b.Status]
	if !ok {
		return errors.Wrapf(ErrInvalidStateForAction,
			"medicine batch %s is %s and cannot be destroyed", b.Address, b.Status)
	}

	admin, err := e.isAdmin(actor)
	if err != nil {
		return err
	}
	if !admin {
		if err := e.requireRole(actor, role, ErrRoleMismatchForState); err != nil {
			return err
		}
		if actor != b.CurrentOwner {
			return errors.Wrapf(ErrUnauthorized, "%s does not hold custody of batch %s", actor, b.Address)
		}
	}

	next := cloneMedicine(b)
	next.Status = MedicineDestroyed
	next.CurrentDestination = ""
	next.CurrentTransporter = ""
	next.LastUpdateTime = now

	entry, err := e.nextEntry(b.Address, actor, "",
		EventMedicineDestroyed, loc, eventPayload{
			Event:        EventMedicineDestroyed,
			StatusBefore: string(b.Status),
			StatusAfter:  string(next.Status),
			Reason:       reason,
		}, now)
	if err != nil {
		return err
	}
	return e.ledger.Commit(next, entry)
}
