package custody

// Role is a capability tag granted to a principal by the role registry.
type Role string

const (
	RoleSupplier     Role = "SUPPLIER"
	RoleManufacturer Role = "MANUFACTURER"
	RoleWholesaler   Role = "WHOLESALER"
	RoleDistributor  Role = "DISTRIBUTOR"
	RoleCustomer     Role = "CUSTOMER"
	RoleAdmin        Role = "ADMIN"
)

// BatchKind distinguishes the two tracked batch variants.
type BatchKind string

const (
	BatchKindRawMaterial BatchKind = "RAW_MATERIAL"
	BatchKindMedicine    BatchKind = "MEDICINE"
)

type RawMaterialStatus string

const (
	RawMaterialCreated   RawMaterialStatus = "CREATED"
	RawMaterialInTransit RawMaterialStatus = "IN_TRANSIT"
	RawMaterialReceived  RawMaterialStatus = "RECEIVED"
	RawMaterialDestroyed RawMaterialStatus = "DESTROYED"
)

type MedicineStatus string

const (
	MedicineCreated                MedicineStatus = "CREATED"
	MedicineInTransitToWholesaler  MedicineStatus = "IN_TRANSIT_TO_WHOLESALER"
	MedicineAtWholesaler           MedicineStatus = "AT_WHOLESALER"
	MedicineInTransitToDistributor MedicineStatus = "IN_TRANSIT_TO_DISTRIBUTOR"
	MedicineAtDistributor          MedicineStatus = "AT_DISTRIBUTOR"
	MedicineInTransitToCustomer    MedicineStatus = "IN_TRANSIT_TO_CUSTOMER"
	MedicineAtCustomer             MedicineStatus = "AT_CUSTOMER"
	MedicineConsumed               MedicineStatus = "CONSUMED"
	MedicineDestroyed              MedicineStatus = "DESTROYED"
)

// EventCode tags a log entry with the kind of transition it records.
type EventCode string

const (
	EventRawMaterialCreated           EventCode = "RawMaterial Created"
	EventRawMaterialTransferInitiated EventCode = "RawMaterial Transfer Initiated"
	EventRawMaterialReceived          EventCode = "RawMaterial Received"
	EventRawMaterialDestroyed         EventCode = "RawMaterial Destroyed"
	EventMedicineCreated              EventCode = "Medicine Created"
	EventMedicineTransferInitiated    EventCode = "Medicine Transfer Initiated"
	EventMedicineReceived             EventCode = "Medicine Received"
	EventMedicineFinalized            EventCode = "Medicine Consumed/Sold"
	EventMedicineDestroyed            EventCode = "Medicine Destroyed"
)

// MaxTextBytes caps free-text fields (description, destroy reason).
// Over-length input is rejected, never truncated.
const MaxTextBytes = 31

// GeoPoint is a fixed-point coordinate pair, degrees scaled by 1e6.
// The authoritative record never holds floating point.
type GeoPoint struct {
	LatitudeE6  int64 `json:"latitude"`
	LongitudeE6 int64 `json:"longitude"`
}

// Batch is the common surface of the two batch variants. Transition logic
// dispatches on the concrete type.
type Batch interface {
	BatchAddress() string
	Kind() BatchKind
}

// RawMaterialBatch tracks a raw-material batch from a supplier to its
// intended manufacturer.
type RawMaterialBatch struct {
	Address              string            `json:"address"`
	Description          string            `json:"description"`
	Quantity             uint64            `json:"quantity"`
	Supplier             string            `json:"supplier"`
	IntendedManufacturer string            `json:"intendedManufacturer"`
	Status               RawMaterialStatus `json:"status"`
	CurrentTransporter   string            `json:"currentTransporter,omitempty"`
	CreationTime         int64             `json:"creationTime"`
	LastUpdateTime       int64             `json:"lastUpdateTime"`
}

func (b *RawMaterialBatch) BatchAddress() string { return b.Address }
func (b *RawMaterialBatch) Kind() BatchKind      { return BatchKindRawMaterial }

// MedicineBatch tracks a finished medicine batch through the full custody
// chain down to the customer.
type MedicineBatch struct {
	Address             string         `json:"address"`
	Description         string         `json:"description"`
	Quantity            uint64         `json:"quantity"`
	Manufacturer        string         `json:"manufacturer"`
	CurrentOwner        string         `json:"currentOwner"`
	CurrentDestination  string         `json:"currentDestination,omitempty"`
	CurrentTransporter  string         `json:"currentTransporter,omitempty"`
	RawMaterialBatchIDs []string       `json:"rawMaterialBatchIds"`
	ExpiryDate          int64          `json:"expiryDate"`
	Status              MedicineStatus `json:"status"`
	CreationTime        int64          `json:"creationTime"`
	LastUpdateTime      int64          `json:"lastUpdateTime"`
}

func (b *MedicineBatch) BatchAddress() string { return b.Address }
func (b *MedicineBatch) Kind() BatchKind      { return BatchKindMedicine }

// LogEntry is one record in a batch's append-only audit chain. Entries are
// ordered by Index, gap-free from 0, and each commits to the hash of its
// predecessor.
type LogEntry struct {
	BatchAddress  string    `json:"batchAddress"`
	Index         uint64    `json:"index"`
	Timestamp     int64     `json:"timestamp"`
	Actor         string    `json:"actor"`
	InvolvedParty string    `json:"involvedParty,omitempty"`
	EventCode     EventCode `json:"eventCode"`
	Location      GeoPoint  `json:"location"`
	DataHash      string    `json:"dataHash"`
	// PreviousLogHash is empty for index 0.
	PreviousLogHash string `json:"previousLogHash,omitempty"`
}

func cloneRawMaterial(b *RawMaterialBatch) *RawMaterialBatch {
	c := *b
	return &c
}

func cloneMedicine(b *MedicineBatch) *MedicineBatch {
	c := *b
	c.RawMaterialBatchIDs = append([]string(nil), b.RawMaterialBatchIDs...)
	return &c
}

// CloneBatch returns an independent copy of either batch variant.
func CloneBatch(b Batch) Batch {
	switch v := b.(type) {
	case *RawMaterialBatch:
		return cloneRawMaterial(v)
	case *MedicineBatch:
		return cloneMedicine(v)
	}
	return b
}
