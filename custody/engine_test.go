package custody

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Shared fixtures. Principals are opaque strings; the engine never
// interprets them beyond equality.
const (
	supplier     = "supplier-1"
	manufacturer = "manufacturer-1"
	wholesaler   = "wholesaler-1"
	distributor  = "distributor-1"
	customer     = "customer-1"
	admin        = "admin-1"
	transporter  = "transporter-1"
	outsider     = "outsider-1"
)

const baseTime int64 = 1700000000

var testLocation = GeoPoint{LatitudeE6: 52520008, LongitudeE6: 13404954}

func newTestEngine() (*Engine, *MemoryLedger, *StaticRegistry) {
	ledger := NewMemoryLedger()
	registry := NewStaticRegistry()
	registry.Grant(supplier, RoleSupplier)
	registry.Grant(manufacturer, RoleManufacturer)
	registry.Grant(wholesaler, RoleWholesaler)
	registry.Grant(distributor, RoleDistributor)
	registry.Grant(customer, RoleCustomer)
	registry.Grant(admin, RoleAdmin)
	return NewEngine(ledger, registry), ledger, registry
}

// createReceivedRawMaterial walks a raw-material batch to Received so
// medicine creation checks can pass.
func createReceivedRawMaterial(t *testing.T, e *Engine, address string) *RawMaterialBatch {
	t.Helper()
	rm, err := e.CreateRawMaterial(supplier, CreateRawMaterialRequest{
		Address:              address,
		Description:          "paracetamol base",
		Quantity:             100,
		IntendedManufacturer: manufacturer,
		Location:             testLocation,
	}, baseTime)
	require.NoError(t, err)
	require.NoError(t, e.InitiateTransfer(supplier, address, transporter, manufacturer, testLocation, baseTime+10))
	require.NoError(t, e.Receive(manufacturer, address, testLocation, baseTime+20))
	return rm
}

// createMedicineBatch creates a medicine batch backed by one freshly
// received raw material.
func createMedicineBatch(t *testing.T, e *Engine, address, rmAddress string) *MedicineBatch {
	t.Helper()
	createReceivedRawMaterial(t, e, rmAddress)
	med, err := e.CreateMedicine(manufacturer, CreateMedicineRequest{
		Address:         address,
		Description:     "paracetamol 500mg",
		Quantity:        50,
		RawMaterialRefs: []string{rmAddress},
		ExpiryDate:      baseTime + 86400*365,
		Location:        testLocation,
	}, baseTime+30)
	require.NoError(t, err)
	return med
}

// advanceMedicine walks a Created medicine batch forward to the requested
// status along the only legal path.
func advanceMedicine(t *testing.T, e *Engine, address string, target MedicineStatus) {
	t.Helper()
	steps := []struct {
		status  MedicineStatus
		advance func(now int64) error
	}{
		{MedicineInTransitToWholesaler, func(now int64) error {
			return e.InitiateTransfer(manufacturer, address, transporter, wholesaler, testLocation, now)
		}},
		{MedicineAtWholesaler, func(now int64) error {
			return e.Receive(wholesaler, address, testLocation, now)
		}},
		{MedicineInTransitToDistributor, func(now int64) error {
			return e.InitiateTransfer(wholesaler, address, transporter, distributor, testLocation, now)
		}},
		{MedicineAtDistributor, func(now int64) error {
			return e.Receive(distributor, address, testLocation, now)
		}},
		{MedicineInTransitToCustomer, func(now int64) error {
			return e.InitiateTransfer(distributor, address, transporter, customer, testLocation, now)
		}},
		{MedicineAtCustomer, func(now int64) error {
			return e.Receive(customer, address, testLocation, now)
		}},
		{MedicineConsumed, func(now int64) error {
			return e.Finalize(customer, address, testLocation, now)
		}},
	}
	now := baseTime + 100
	for _, step := range steps {
		require.NoError(t, step.advance(now))
		if step.status == target {
			return
		}
		now += 10
	}
	t.Fatalf("status %s is not reachable from Created", target)
}

func mustMedicine(t *testing.T, e *Engine, address string) *MedicineBatch {
	t.Helper()
	b, err := e.Details(address)
	require.NoError(t, err)
	med, ok := b.(*MedicineBatch)
	require.True(t, ok)
	return med
}

func mustRawMaterial(t *testing.T, e *Engine, address string) *RawMaterialBatch {
	t.Helper()
	b, err := e.Details(address)
	require.NoError(t, err)
	rm, ok := b.(*RawMaterialBatch)
	require.True(t, ok)
	return rm
}
