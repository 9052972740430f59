package custody

import (
	"github.com/pkg/errors"
)

// Transition tables for the medicine machine. The role required to send or
// destroy derives strictly from the batch's current status, never from
// whatever role the caller happens to hold.

type medicineSendRule struct {
	role  Role
	next  MedicineStatus
	event EventCode
}

var medicineSendRules = map[MedicineStatus]medicineSendRule{
	MedicineCreated:       {RoleManufacturer, MedicineInTransitToWholesaler, EventMedicineTransferInitiated},
	MedicineAtWholesaler:  {RoleWholesaler, MedicineInTransitToDistributor, EventMedicineTransferInitiated},
	MedicineAtDistributor: {RoleDistributor, MedicineInTransitToCustomer, EventMedicineTransferInitiated},
}

type medicineReceiveRule struct {
	role Role
	next MedicineStatus
}

var medicineReceiveRules = map[MedicineStatus]medicineReceiveRule{
	MedicineInTransitToWholesaler:  {RoleWholesaler, MedicineAtWholesaler},
	MedicineInTransitToDistributor: {RoleDistributor, MedicineAtDistributor},
	MedicineInTransitToCustomer:    {RoleCustomer, MedicineAtCustomer},
}

// medicineDestroyRules lists the statuses a medicine batch may be destroyed
// from, and the custodial role that matches each.
var medicineDestroyRules = map[MedicineStatus]Role{
	MedicineCreated:       RoleManufacturer,
	MedicineAtWholesaler:  RoleWholesaler,
	MedicineAtDistributor: RoleDistributor,
}

// requireRole checks registry membership and turns a miss into the given
// rejection kind.
func (e *Engine) requireRole(actor string, role Role, missing error) error {
	ok, err := e.roles.HasRole(actor, role)
	if err != nil {
		return errors.Wrapf(err, "role lookup for %s", actor)
	}
	if !ok {
		return errors.Wrapf(missing, "%s does not hold role %s", actor, role)
	}
	return nil
}

// isAdmin reports whether the actor holds the Admin role. Admin bypasses the
// ownership check on destroy and nothing else.
func (e *Engine) isAdmin(actor string) (bool, error) {
	ok, err := e.roles.HasRole(actor, RoleAdmin)
	if err != nil {
		return false, errors.Wrapf(err, "role lookup for %s", actor)
	}
	return ok, nil
}

// validateText enforces the free-text cap shared by descriptions and destroy
// reasons. Empty is rejected too: every logged reason and label must carry
// content.
func validateText(field, value string) error {
	if value == "" {
		return errors.Wrapf(ErrPreconditionFailed, "%s must not be empty", field)
	}
	if len(value) > MaxTextBytes {
		return errors.Wrapf(ErrPreconditionFailed, "%s exceeds %d bytes", field, MaxTextBytes)
	}
	return nil
}

// dedupeRefs collapses duplicate references while keeping first-seen order.
func dedupeRefs(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// rawMaterial loads a batch and asserts the raw-material variant.
func (e *Engine) rawMaterial(address string) (*RawMaterialBatch, error) {
	b, err := e.ledger.Batch(address)
	if err != nil {
		return nil, err
	}
	rm, ok := b.(*RawMaterialBatch)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "batch %s is not a raw material batch", address)
	}
	return rm, nil
}

// medicine loads a batch and asserts the medicine variant.
func (e *Engine) medicine(address string) (*MedicineBatch, error) {
	b, err := e.ledger.Batch(address)
	if err != nil {
		return nil, err
	}
	med, ok := b.(*MedicineBatch)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "batch %s is not a medicine batch", address)
	}
	return med, nil
}

// assertNewAddress rejects creation over an address already in use.
func (e *Engine) assertNewAddress(address string) error {
	if address == "" {
		return errors.Wrap(ErrPreconditionFailed, "batch address must not be empty")
	}
	_, err := e.ledger.Batch(address)
	if err == nil {
		return errors.Wrapf(ErrPreconditionFailed, "batch %s already exists", address)
	}
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
