package custody

import (
	"github.com/pkg/errors"
)

// CreateRawMaterial registers a new raw-material batch owned by the acting
// supplier. The intended manufacturer is fixed here and never changes.
func (e *Engine) CreateRawMaterial(actor string, req CreateRawMaterialRequest, now int64) (*RawMaterialBatch, error) {
	if err := e.requireRole(actor, RoleSupplier, ErrUnauthorized); err != nil {
		return nil, err
	}
	if err := validateText("description", req.Description); err != nil {
		return nil, err
	}
	if req.Quantity == 0 {
		return nil, errors.Wrap(ErrPreconditionFailed, "quantity must be positive")
	}
	if req.IntendedManufacturer == "" {
		return nil, errors.Wrap(ErrPreconditionFailed, "intended manufacturer must not be empty")
	}
	if err := e.assertNewAddress(req.Address); err != nil {
		return nil, err
	}

	batch := &RawMaterialBatch{
		Address:              req.Address,
		Description:          req.Description,
		Quantity:             req.Quantity,
		Supplier:             actor,
		IntendedManufacturer: req.IntendedManufacturer,
		Status:               RawMaterialCreated,
		CreationTime:         now,
		LastUpdateTime:       now,
	}

	entry, err := e.nextEntry(req.Address, actor, req.IntendedManufacturer,
		EventRawMaterialCreated, req.Location, eventPayload{
			Event:       EventRawMaterialCreated,
			StatusAfter: string(RawMaterialCreated),
		}, now)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Commit(batch, entry); err != nil {
		return nil, err
	}
	return batch, nil
}

// initiateRawMaterialTransfer hands a Created batch to a transporter, bound
// for the intended manufacturer. Only the owning supplier may initiate.
func (e *Engine) initiateRawMaterialTransfer(actor string, b *RawMaterialBatch,
	transporter, receiver string, loc GeoPoint, now int64) error {

	if b.Status != RawMaterialCreated {
		return errors.Wrapf(ErrInvalidStateForAction,
			"raw material batch %s is %s, transfer requires %s", b.Address, b.Status, RawMaterialCreated)
	}
	if err := e.requireRole(actor, RoleSupplier, ErrUnauthorized); err != nil {
		return err
	}
	if actor != b.Supplier {
		return errors.Wrapf(ErrUnauthorized, "%s is not the supplier of batch %s", actor, b.Address)
	}
	if receiver != b.IntendedManufacturer {
		return errors.Wrapf(ErrReceiverMismatch,
			"batch %s is intended for %s", b.Address, b.IntendedManufacturer)
	}
	if transporter == "" {
		return errors.Wrap(ErrPreconditionFailed, "transporter must not be empty")
	}

	next := cloneRawMaterial(b)
	next.Status = RawMaterialInTransit
	next.CurrentTransporter = transporter
	next.LastUpdateTime = now

	entry, err := e.nextEntry(b.Address, actor, transporter,
		EventRawMaterialTransferInitiated, loc, eventPayload{
			Event:        EventRawMaterialTransferInitiated,
			StatusBefore: string(b.Status),
			StatusAfter:  string(next.Status),
		}, now)
	if err != nil {
		return err
	}
	return e.ledger.Commit(next, entry)
}

// receiveRawMaterial accepts an in-transit batch at its intended
// manufacturer. Received is terminal for this variant.
func (e *Engine) receiveRawMaterial(actor string, b *RawMaterialBatch, loc GeoPoint, now int64) error {
	if b.Status != RawMaterialInTransit {
		return errors.Wrapf(ErrInvalidStateForAction,
			"raw material batch %s is %s, receive requires %s", b.Address, b.Status, RawMaterialInTransit)
	}
	if err := e.requireRole(actor, RoleManufacturer, ErrUnauthorized); err != nil {
		return err
	}
	if actor != b.IntendedManufacturer {
		return errors.Wrapf(ErrReceiverMismatch,
			"batch %s is intended for %s", b.Address, b.IntendedManufacturer)
	}

	transporter := b.CurrentTransporter
	next := cloneRawMaterial(b)
	next.Status = RawMaterialReceived
	next.CurrentTransporter = ""
	next.LastUpdateTime = now

	entry, err := e.nextEntry(b.Address, actor, transporter,
		EventRawMaterialReceived, loc, eventPayload{
			Event:        EventRawMaterialReceived,
			StatusBefore: string(b.Status),
			StatusAfter:  string(next.Status),
		}, now)
	if err != nil {
		return err
	}
	return e.ledger.Commit(next, entry)
}

// destroyRawMaterial retires a Created batch. The owning supplier may destroy
// its own batch; Admin may destroy regardless of ownership.
func (e *Engine) destroyRawMaterial(actor string, b *RawMaterialBatch, reason string, loc GeoPoint, now int64) error {
	if err := validateText("reason", reason); err != nil {
		return err
	}
	if b.Status != RawMaterialCreated {
		return errors.Wrapf(ErrInvalidStateForAction,
			"raw material batch %s is %s, destroy requires %s", b.Address, b.Status, RawMaterialCreated)
	}

	admin, err := e.isAdmin(actor)
	if err != nil {
		return err
	}
	if !admin {
		if err := e.requireRole(actor, RoleSupplier, ErrUnauthorized); err != nil {
			return err
		}
		if actor != b.Supplier {
			return errors.Wrapf(ErrUnauthorized, "%s is not the supplier of batch %s", actor, b.Address)
		}
	}

	next := cloneRawMaterial(b)
	next.Status = RawMaterialDestroyed
	next.CurrentTransporter = ""
	next.LastUpdateTime = now

	entry, err := e.nextEntry(b.Address, actor, "",
		EventRawMaterialDestroyed, loc, eventPayload{
			Event:        EventRawMaterialDestroyed,
			StatusBefore: string(b.Status),
			StatusAfter:  string(next.Status),
			Reason:       reason,
		}, now)
	if err != nil {
		return err
	}
	return e.ledger.Commit(next, entry)
}
