package contracts

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"github.com/pkg/errors"

	"github.com/pharma-trace/chaincode/pharma-trace/custody"
)

var batchLogger = flogging.MustGetLogger("pharmatrace.contracts")

// BatchContract exposes the custody engine to calling tools. It only parses
// arguments, resolves the caller and transaction time, and emits events;
// every custody decision lives in the engine.
type BatchContract struct {
	contractapi.Contract
}

// txMeta resolves the acting principal and the deterministic transaction
// timestamp. Wall-clock reads would diverge across endorsers.
func txMeta(ctx contractapi.TransactionContextInterface) (string, int64, error) {
	actor, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", 0, errors.Wrap(err, "resolving caller identity")
	}
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return "", 0, errors.Wrap(err, "resolving transaction timestamp")
	}
	return actor, ts.GetSeconds(), nil
}

func (c *BatchContract) engine(ctx contractapi.TransactionContextInterface) *custody.Engine {
	stub := ctx.GetStub()
	return custody.NewEngine(NewStateStore(stub), ledgerRoleRegistry{state: stub})
}

func parseQuantity(raw string) (uint64, error) {
	qty, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid quantity %q", raw)
	}
	return qty, nil
}

// parseGeo parses the fixed-point coordinate pair. Inputs arrive already
// scaled by 1e6; the chain never holds floating point.
func parseGeo(latRaw, lonRaw string) (custody.GeoPoint, error) {
	lat, err := strconv.ParseInt(strings.TrimSpace(latRaw), 10, 64)
	if err != nil {
		return custody.GeoPoint{}, errors.Wrapf(err, "invalid latitude %q", latRaw)
	}
	lon, err := strconv.ParseInt(strings.TrimSpace(lonRaw), 10, 64)
	if err != nil {
		return custody.GeoPoint{}, errors.Wrapf(err, "invalid longitude %q", lonRaw)
	}
	return custody.GeoPoint{LatitudeE6: lat, LongitudeE6: lon}, nil
}

func emitBatchEvent(ctx contractapi.TransactionContextInterface, name, address string) error {
	payload, _ := json.Marshal(map[string]string{"batchAddress": address})
	return errors.Wrapf(ctx.GetStub().SetEvent(name, payload), "emitting %s", name)
}

// CreateRawMaterial registers a new raw-material batch and returns its
// address (the creating transaction ID).
func (c *BatchContract) CreateRawMaterial(ctx contractapi.TransactionContextInterface,
	description string, quantity string, intendedManufacturer string,
	latitude string, longitude string) (string, error) {

	actor, now, err := txMeta(ctx)
	if err != nil {
		return "", err
	}
	qty, err := parseQuantity(quantity)
	if err != nil {
		return "", err
	}
	loc, err := parseGeo(latitude, longitude)
	if err != nil {
		return "", err
	}

	batch, err := c.engine(ctx).CreateRawMaterial(actor, custody.CreateRawMaterialRequest{
		Address:              ctx.GetStub().GetTxID(),
		Description:          description,
		Quantity:             qty,
		IntendedManufacturer: intendedManufacturer,
		Location:             loc,
	}, now)
	if err != nil {
		return "", err
	}
	if err := emitBatchEvent(ctx, "RawMaterialCreated", batch.Address); err != nil {
		return "", err
	}
	batchLogger.Infow("raw material created", "address", batch.Address, "supplier", actor)
	return batch.Address, nil
}

// CreateMedicine registers a new medicine batch composed from received raw
// materials. References arrive as a comma-separated address list.
func (c *BatchContract) CreateMedicine(ctx contractapi.TransactionContextInterface,
	description string, quantity string, rawMaterialRefs string,
	expiryDate string, latitude string, longitude string) (string, error) {

	actor, now, err := txMeta(ctx)
	if err != nil {
		return "", err
	}
	qty, err := parseQuantity(quantity)
	if err != nil {
		return "", err
	}
	expiry, err := strconv.ParseInt(strings.TrimSpace(expiryDate), 10, 64)
	if err != nil {
		return "", errors.Wrapf(err, "invalid expiry date %q", expiryDate)
	}
	loc, err := parseGeo(latitude, longitude)
	if err != nil {
		return "", err
	}

	var refs []string
	for _, ref := range strings.Split(rawMaterialRefs, ",") {
		if trimmed := strings.TrimSpace(ref); trimmed != "" {
			refs = append(refs, trimmed)
		}
	}

	batch, err := c.engine(ctx).CreateMedicine(actor, custody.CreateMedicineRequest{
		Address:         ctx.GetStub().GetTxID(),
		Description:     description,
		Quantity:        qty,
		RawMaterialRefs: refs,
		ExpiryDate:      expiry,
		Location:        loc,
	}, now)
	if err != nil {
		return "", err
	}
	if err := emitBatchEvent(ctx, "MedicineCreated", batch.Address); err != nil {
		return "", err
	}
	batchLogger.Infow("medicine created", "address", batch.Address, "manufacturer", actor)
	return batch.Address, nil
}

// InitiateTransfer hands the batch to a transporter, bound for receiver.
func (c *BatchContract) InitiateTransfer(ctx contractapi.TransactionContextInterface,
	batchAddress string, transporter string, receiver string,
	latitude string, longitude string) error {

	actor, now, err := txMeta(ctx)
	if err != nil {
		return err
	}
	loc, err := parseGeo(latitude, longitude)
	if err != nil {
		return err
	}
	if err := c.engine(ctx).InitiateTransfer(actor, batchAddress, transporter, receiver, loc, now); err != nil {
		return err
	}
	return emitBatchEvent(ctx, "BatchTransferInitiated", batchAddress)
}

// ReceivePackage completes an in-transit transfer at the addressed party.
func (c *BatchContract) ReceivePackage(ctx contractapi.TransactionContextInterface,
	batchAddress string, latitude string, longitude string) error {

	actor, now, err := txMeta(ctx)
	if err != nil {
		return err
	}
	loc, err := parseGeo(latitude, longitude)
	if err != nil {
		return err
	}
	if err := c.engine(ctx).Receive(actor, batchAddress, loc, now); err != nil {
		return err
	}
	return emitBatchEvent(ctx, "BatchReceived", batchAddress)
}

// FinalizeMedicineBatch marks a medicine batch at its customer as consumed.
func (c *BatchContract) FinalizeMedicineBatch(ctx contractapi.TransactionContextInterface,
	batchAddress string, latitude string, longitude string) error {

	actor, now, err := txMeta(ctx)
	if err != nil {
		return err
	}
	loc, err := parseGeo(latitude, longitude)
	if err != nil {
		return err
	}
	if err := c.engine(ctx).Finalize(actor, batchAddress, loc, now); err != nil {
		return err
	}
	return emitBatchEvent(ctx, "BatchFinalized", batchAddress)
}

// MarkBatchDestroyed retires a batch with a recorded reason.
func (c *BatchContract) MarkBatchDestroyed(ctx contractapi.TransactionContextInterface,
	batchAddress string, reason string, latitude string, longitude string) error {

	actor, now, err := txMeta(ctx)
	if err != nil {
		return err
	}
	loc, err := parseGeo(latitude, longitude)
	if err != nil {
		return err
	}
	if err := c.engine(ctx).Destroy(actor, batchAddress, reason, loc, now); err != nil {
		return err
	}
	return emitBatchEvent(ctx, "BatchDestroyed", batchAddress)
}

// BatchDetails carries either variant plus its tag, for callers that do not
// know a batch's kind up front.
type BatchDetails struct {
	Kind        custody.BatchKind         `json:"kind"`
	RawMaterial *custody.RawMaterialBatch `json:"rawMaterial,omitempty"`
	Medicine    *custody.MedicineBatch    `json:"medicine,omitempty"`
}

// GetBatchDetails returns the batch at address, whatever its variant.
func (c *BatchContract) GetBatchDetails(ctx contractapi.TransactionContextInterface,
	batchAddress string) (*BatchDetails, error) {

	b, err := c.engine(ctx).Details(batchAddress)
	if err != nil {
		return nil, err
	}
	details := &BatchDetails{Kind: b.Kind()}
	switch v := b.(type) {
	case *custody.RawMaterialBatch:
		details.RawMaterial = v
	case *custody.MedicineBatch:
		details.Medicine = v
	}
	return details, nil
}

// GetRawMaterialDetails returns the raw-material batch at address.
func (c *BatchContract) GetRawMaterialDetails(ctx contractapi.TransactionContextInterface,
	batchAddress string) (*custody.RawMaterialBatch, error) {

	b, err := c.engine(ctx).Details(batchAddress)
	if err != nil {
		return nil, err
	}
	rm, ok := b.(*custody.RawMaterialBatch)
	if !ok {
		return nil, errors.Errorf("batch %s is not a raw material batch", batchAddress)
	}
	return rm, nil
}

// GetMedicineDetails returns the medicine batch at address.
func (c *BatchContract) GetMedicineDetails(ctx contractapi.TransactionContextInterface,
	batchAddress string) (*custody.MedicineBatch, error) {

	b, err := c.engine(ctx).Details(batchAddress)
	if err != nil {
		return nil, err
	}
	med, ok := b.(*custody.MedicineBatch)
	if !ok {
		return nil, errors.Errorf("batch %s is not a medicine batch", batchAddress)
	}
	return med, nil
}

// GetTransactionHistory returns the batch's full ordered audit log.
func (c *BatchContract) GetTransactionHistory(ctx contractapi.TransactionContextInterface,
	batchAddress string) ([]custody.LogEntry, error) {

	return c.engine(ctx).History(batchAddress)
}

// VerificationReport is the outcome of replaying a batch's hash chain.
type VerificationReport struct {
	BatchAddress string `json:"batchAddress"`
	Entries      int    `json:"entries"`
	Valid        bool   `json:"valid"`
	Detail       string `json:"detail,omitempty"`
}

// VerifyTransactionHistory replays the batch's hash chain from index 0.
// Tampering is reported, never repaired.
func (c *BatchContract) VerifyTransactionHistory(ctx contractapi.TransactionContextInterface,
	batchAddress string) (*VerificationReport, error) {

	eng := c.engine(ctx)
	history, err := eng.History(batchAddress)
	if err != nil {
		return nil, err
	}
	report := &VerificationReport{BatchAddress: batchAddress, Entries: len(history), Valid: true}
	if err := eng.VerifyHistory(batchAddress); err != nil {
		if !errors.Is(err, custody.ErrIntegrityViolation) {
			return nil, err
		}
		report.Valid = false
		report.Detail = err.Error()
		batchLogger.Warnw("audit chain verification failed", "address", batchAddress, "detail", err.Error())
	}
	return report, nil
}
