package custody

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMedicine(t *testing.T) {
	e, _, _ := newTestEngine()
	createReceivedRawMaterial(t, e, "rm1")
	createReceivedRawMaterial(t, e, "rm2")

	med, err := e.CreateMedicine(manufacturer, CreateMedicineRequest{
		Address:     "med1",
		Description: "paracetamol 500mg",
		Quantity:    50,
		// Duplicates collapse to set semantics.
		RawMaterialRefs: []string{"rm1", "rm2", "rm1"},
		ExpiryDate:      baseTime + 1000,
		Location:        testLocation,
	}, baseTime+30)
	require.NoError(t, err)

	assert.Equal(t, MedicineCreated, med.Status)
	assert.Equal(t, manufacturer, med.Manufacturer)
	assert.Equal(t, manufacturer, med.CurrentOwner)
	assert.Equal(t, []string{"rm1", "rm2"}, med.RawMaterialBatchIDs)
	assert.Empty(t, med.CurrentDestination)

	history, err := e.History("med1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, EventMedicineCreated, history[0].EventCode)
}

func TestCreateMedicinePreconditions(t *testing.T) {
	e, _, _ := newTestEngine()

	valid := func() CreateMedicineRequest {
		return CreateMedicineRequest{
			Address:         "med1",
			Description:     "paracetamol 500mg",
			Quantity:        50,
			RawMaterialRefs: []string{"rm1"},
			ExpiryDate:      baseTime + 1000,
		}
	}

	t.Run("raw material not yet received", func(t *testing.T) {
		_, err := e.CreateRawMaterial(supplier, CreateRawMaterialRequest{
			Address:              "rm1",
			Description:          "paracetamol base",
			Quantity:             100,
			IntendedManufacturer: manufacturer,
		}, baseTime)
		require.NoError(t, err)

		_, err = e.CreateMedicine(manufacturer, valid(), baseTime)
		assert.ErrorIs(t, err, ErrPreconditionFailed)

		// After the batch reaches Received the same request succeeds.
		require.NoError(t, e.InitiateTransfer(supplier, "rm1", transporter, manufacturer, testLocation, baseTime+10))
		require.NoError(t, e.Receive(manufacturer, "rm1", testLocation, baseTime+20))
		med, err := e.CreateMedicine(manufacturer, valid(), baseTime+30)
		require.NoError(t, err)
		assert.Equal(t, MedicineCreated, med.Status)
		assert.Equal(t, manufacturer, med.CurrentOwner)
	})

	t.Run("empty reference list", func(t *testing.T) {
		req := valid()
		req.Address = "med2"
		req.RawMaterialRefs = nil
		_, err := e.CreateMedicine(manufacturer, req, baseTime)
		assert.ErrorIs(t, err, ErrPreconditionFailed)
	})

	t.Run("unknown reference", func(t *testing.T) {
		req := valid()
		req.Address = "med2"
		req.RawMaterialRefs = []string{"missing"}
		_, err := e.CreateMedicine(manufacturer, req, baseTime)
		assert.ErrorIs(t, err, ErrPreconditionFailed)
	})

	t.Run("raw material intended for another manufacturer", func(t *testing.T) {
		e2, _, reg := newTestEngine()
		reg.Grant("manufacturer-2", RoleManufacturer)
		createReceivedRawMaterial(t, e2, "rm1")
		req := valid()
		_, err := e2.CreateMedicine("manufacturer-2", req, baseTime)
		assert.ErrorIs(t, err, ErrPreconditionFailed)
	})

	t.Run("expiry equal to current time", func(t *testing.T) {
		e2, _, _ := newTestEngine()
		createReceivedRawMaterial(t, e2, "rm1")
		req := valid()
		req.ExpiryDate = baseTime + 30
		_, err := e2.CreateMedicine(manufacturer, req, baseTime+30)
		assert.ErrorIs(t, err, ErrExpiryNotInFuture)
		assert.ErrorIs(t, err, ErrPreconditionFailed)
	})

	t.Run("actor without manufacturer role", func(t *testing.T) {
		_, err := e.CreateMedicine(outsider, valid(), baseTime)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestMedicineFullCustodyChain(t *testing.T) {
	e, _, _ := newTestEngine()
	createMedicineBatch(t, e, "med1", "rm1")

	require.NoError(t, e.InitiateTransfer(manufacturer, "med1", transporter, wholesaler, testLocation, baseTime+100))
	med := mustMedicine(t, e, "med1")
	assert.Equal(t, MedicineInTransitToWholesaler, med.Status)
	assert.Equal(t, wholesaler, med.CurrentDestination)
	assert.Equal(t, transporter, med.CurrentTransporter)
	assert.Equal(t, manufacturer, med.CurrentOwner)

	require.NoError(t, e.Receive(wholesaler, "med1", testLocation, baseTime+110))
	med = mustMedicine(t, e, "med1")
	assert.Equal(t, MedicineAtWholesaler, med.Status)
	assert.Equal(t, wholesaler, med.CurrentOwner)
	assert.Empty(t, med.CurrentDestination)
	assert.Empty(t, med.CurrentTransporter)

	require.NoError(t, e.InitiateTransfer(wholesaler, "med1", transporter, distributor, testLocation, baseTime+120))
	require.NoError(t, e.Receive(distributor, "med1", testLocation, baseTime+130))
	require.NoError(t, e.InitiateTransfer(distributor, "med1", transporter, customer, testLocation, baseTime+140))
	require.NoError(t, e.Receive(customer, "med1", testLocation, baseTime+150))
	med = mustMedicine(t, e, "med1")
	assert.Equal(t, MedicineAtCustomer, med.Status)
	assert.Equal(t, customer, med.CurrentOwner)

	require.NoError(t, e.Finalize(customer, "med1", testLocation, baseTime+160))
	med = mustMedicine(t, e, "med1")
	assert.Equal(t, MedicineConsumed, med.Status)

	history, err := e.History("med1")
	require.NoError(t, err)
	require.Len(t, history, 8)
	assert.Equal(t, EventMedicineFinalized, history[7].EventCode)
	require.NoError(t, VerifyChain(history))
}

// The role needed to send derives from the batch's status, not from whatever
// role the caller holds for some other stage.
func TestMedicineRoleMismatchForState(t *testing.T) {
	e, _, _ := newTestEngine()
	createMedicineBatch(t, e, "med1", "rm1")

	// Wholesaler holds a legitimate role, but a Created batch is sent by its
	// manufacturer.
	err := e.InitiateTransfer(wholesaler, "med1", transporter, distributor, testLocation, baseTime+100)
	assert.ErrorIs(t, err, ErrRoleMismatchForState)

	// Owner without the stage role is likewise rejected once custody moves on.
	advanceMedicine(t, e, "med1", MedicineAtWholesaler)
	err = e.InitiateTransfer(manufacturer, "med1", transporter, distributor, testLocation, baseTime+200)
	assert.ErrorIs(t, err, ErrRoleMismatchForState)
}

// Receipt binds to the addressed party, not to the role: another wholesaler
// cannot intercept a shipment.
func TestMedicineReceiverMismatch(t *testing.T) {
	e, _, reg := newTestEngine()
	reg.Grant("wholesaler-2", RoleWholesaler)
	createMedicineBatch(t, e, "med1", "rm1")
	advanceMedicine(t, e, "med1", MedicineInTransitToWholesaler)

	err := e.Receive("wholesaler-2", "med1", testLocation, baseTime+200)
	assert.ErrorIs(t, err, ErrReceiverMismatch)

	// The addressed party succeeds.
	require.NoError(t, e.Receive(wholesaler, "med1", testLocation, baseTime+210))
	assert.Equal(t, MedicineAtWholesaler, mustMedicine(t, e, "med1").Status)
}

func TestMedicineFinalize(t *testing.T) {
	t.Run("not at customer", func(t *testing.T) {
		e, _, _ := newTestEngine()
		createMedicineBatch(t, e, "med1", "rm1")
		err := e.Finalize(customer, "med1", testLocation, baseTime+100)
		assert.ErrorIs(t, err, ErrInvalidStateForAction)
	})

	t.Run("at customer by current owner", func(t *testing.T) {
		e, _, _ := newTestEngine()
		createMedicineBatch(t, e, "med1", "rm1")
		advanceMedicine(t, e, "med1", MedicineAtCustomer)

		require.NoError(t, e.Finalize(customer, "med1", testLocation, baseTime+200))
		assert.Equal(t, MedicineConsumed, mustMedicine(t, e, "med1").Status)

		// Consumed is terminal.
		err := e.Destroy(customer, "med1", "disposal", testLocation, baseTime+210)
		assert.ErrorIs(t, err, ErrInvalidStateForAction)
	})

	t.Run("at customer by another customer", func(t *testing.T) {
		e, _, reg := newTestEngine()
		reg.Grant("customer-2", RoleCustomer)
		createMedicineBatch(t, e, "med1", "rm1")
		advanceMedicine(t, e, "med1", MedicineAtCustomer)

		err := e.Finalize("customer-2", "med1", testLocation, baseTime+200)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestMedicineDestroy(t *testing.T) {
	t.Run("owner destroys at wholesaler", func(t *testing.T) {
		e, _, _ := newTestEngine()
		createMedicineBatch(t, e, "med1", "rm1")
		advanceMedicine(t, e, "med1", MedicineAtWholesaler)

		require.NoError(t, e.Destroy(wholesaler, "med1", "damaged in storage", testLocation, baseTime+200))
		med := mustMedicine(t, e, "med1")
		assert.Equal(t, MedicineDestroyed, med.Status)

		history, err := e.History("med1")
		require.NoError(t, err)
		assert.Equal(t, EventMedicineDestroyed, history[len(history)-1].EventCode)
	})

	t.Run("admin bypasses ownership", func(t *testing.T) {
		e, _, _ := newTestEngine()
		createMedicineBatch(t, e, "med1", "rm1")
		require.NoError(t, e.Destroy(admin, "med1", "regulatory recall", testLocation, baseTime+100))
		assert.Equal(t, MedicineDestroyed, mustMedicine(t, e, "med1").Status)
	})

	t.Run("in transit cannot be destroyed", func(t *testing.T) {
		e, _, _ := newTestEngine()
		createMedicineBatch(t, e, "med1", "rm1")
		advanceMedicine(t, e, "med1", MedicineInTransitToWholesaler)
		err := e.Destroy(manufacturer, "med1", "reason", testLocation, baseTime+200)
		assert.ErrorIs(t, err, ErrInvalidStateForAction)
	})

	t.Run("role for another stage is rejected", func(t *testing.T) {
		e, _, _ := newTestEngine()
		createMedicineBatch(t, e, "med1", "rm1")
		// Batch is Created; the distributor role does not match that stage.
		err := e.Destroy(distributor, "med1", "reason", testLocation, baseTime+100)
		assert.ErrorIs(t, err, ErrRoleMismatchForState)
	})

	t.Run("non-owner with matching role is rejected", func(t *testing.T) {
		e, _, reg := newTestEngine()
		reg.Grant("manufacturer-2", RoleManufacturer)
		createMedicineBatch(t, e, "med1", "rm1")
		err := e.Destroy("manufacturer-2", "med1", "reason", testLocation, baseTime+100)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("already destroyed", func(t *testing.T) {
		e, _, _ := newTestEngine()
		createMedicineBatch(t, e, "med1", "rm1")
		require.NoError(t, e.Destroy(manufacturer, "med1", "reason", testLocation, baseTime+100))
		err := e.Destroy(manufacturer, "med1", "again", testLocation, baseTime+110)
		assert.ErrorIs(t, err, ErrInvalidStateForAction)
	})
}

func TestFinalizeRawMaterialDoesNotApply(t *testing.T) {
	e, _, _ := newTestEngine()
	createReceivedRawMaterial(t, e, "rm1")
	err := e.Finalize(manufacturer, "rm1", testLocation, baseTime+100)
	assert.ErrorIs(t, err, ErrInvalidStateForAction)
}
