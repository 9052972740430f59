package custody

// RoleRegistry answers whether a principal currently holds a role. It is
// read-only from the engine's point of view; mutation lives with whoever
// administers the registry.
type RoleRegistry interface {
	HasRole(principal string, role Role) (bool, error)
}

// Ledger is the substrate the engine validates against and commits through.
// Batch returns ErrNotFound (possibly wrapped) for unknown addresses. Commit
// applies the new batch state and appends the log entry as one indivisible
// step; on any failure nothing is applied. A commit whose entry index no
// longer matches the stored history head fails with ErrCommitConflict.
type Ledger interface {
	Batch(address string) (Batch, error)
	History(address string) ([]LogEntry, error)
	Commit(b Batch, entry LogEntry) error
}

// Engine validates custody transitions for both batch variants and extends
// each batch's audit chain through the injected ledger. It holds no mutable
// state of its own; all reads happen against the ledger at validation time.
type Engine struct {
	ledger Ledger
	roles  RoleRegistry
}

func NewEngine(ledger Ledger, roles RoleRegistry) *Engine {
	return &Engine{ledger: ledger, roles: roles}
}

// CreateRawMaterialRequest carries the caller-supplied fields for a new
// raw-material batch. Address is assigned by the caller's substrate (for
// chaincode, the creating transaction ID).
type CreateRawMaterialRequest struct {
	Address              string
	Description          string
	Quantity             uint64
	IntendedManufacturer string
	Location             GeoPoint
}

// CreateMedicineRequest carries the caller-supplied fields for a new medicine
// batch. RawMaterialRefs are deduplicated to set semantics before validation.
type CreateMedicineRequest struct {
	Address         string
	Description     string
	Quantity        uint64
	RawMaterialRefs []string
	ExpiryDate      int64
	Location        GeoPoint
}
