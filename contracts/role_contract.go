package contracts

import (
	"encoding/json"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"github.com/pkg/errors"

	"github.com/pharma-trace/chaincode/pharma-trace/custody"
)

var roleLogger = flogging.MustGetLogger("pharmatrace.roles")

// bootstrapKey marks that the registry has been initialized; InitializeRoles
// is a one-shot operation.
const bootstrapKey = "role_registry_bootstrap"

// RoleContract administers the on-ledger role registry. The custody engine
// only ever reads it; every mutation below is Admin-gated except the initial
// bootstrap.
type RoleContract struct {
	contractapi.Contract
}

func parseRole(name string) (custody.Role, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "SUPPLIER":
		return custody.RoleSupplier, nil
	case "MANUFACTURER":
		return custody.RoleManufacturer, nil
	case "WHOLESALER":
		return custody.RoleWholesaler, nil
	case "DISTRIBUTOR":
		return custody.RoleDistributor, nil
	case "CUSTOMER":
		return custody.RoleCustomer, nil
	case "ADMIN":
		return custody.RoleAdmin, nil
	}
	return "", errors.Errorf("invalid role: %s", name)
}

// InitializeRoles bootstraps the submitting identity as the first Admin.
// Further grants go through AssignRole.
func (r *RoleContract) InitializeRoles(ctx contractapi.TransactionContextInterface) error {
	existing, err := ctx.GetStub().GetState(bootstrapKey)
	if err != nil {
		return errors.Wrap(err, "reading bootstrap marker")
	}
	if existing != nil {
		return errors.New("role registry already initialized")
	}

	caller, now, err := txMeta(ctx)
	if err != nil {
		return err
	}

	registry := ledgerRoleRegistry{state: ctx.GetStub()}
	if err := registry.putAccount(&Account{
		Principal:  caller,
		Roles:      []custody.Role{custody.RoleAdmin},
		AssignedBy: "SYSTEM",
		UpdatedAt:  now,
	}); err != nil {
		return err
	}
	if err := ctx.GetStub().PutState(bootstrapKey, []byte(caller)); err != nil {
		return errors.Wrap(err, "writing bootstrap marker")
	}
	roleLogger.Infow("role registry initialized", "admin", caller)
	return nil
}

func (r *RoleContract) requireAdmin(ctx contractapi.TransactionContextInterface) (string, int64, error) {
	caller, now, err := txMeta(ctx)
	if err != nil {
		return "", 0, err
	}
	registry := ledgerRoleRegistry{state: ctx.GetStub()}
	isAdmin, err := registry.HasRole(caller, custody.RoleAdmin)
	if err != nil {
		return "", 0, err
	}
	if !isAdmin {
		return "", 0, errors.Wrap(custody.ErrUnauthorized, "only an admin can administer roles")
	}
	return caller, now, nil
}

// AssignRole grants a role to a principal. Principals accumulate roles as a
// set; assigning a held role is a no-op.
func (r *RoleContract) AssignRole(ctx contractapi.TransactionContextInterface,
	principal string, role string) error {

	caller, now, err := r.requireAdmin(ctx)
	if err != nil {
		return err
	}
	parsed, err := parseRole(role)
	if err != nil {
		return err
	}
	if principal == "" {
		return errors.New("principal must not be empty")
	}

	registry := ledgerRoleRegistry{state: ctx.GetStub()}
	acct, err := registry.account(principal)
	if err != nil {
		return err
	}
	if acct == nil {
		acct = &Account{Principal: principal}
	}
	if !acct.holds(parsed) {
		acct.Roles = append(acct.Roles, parsed)
	}
	acct.AssignedBy = caller
	acct.UpdatedAt = now
	if err := registry.putAccount(acct); err != nil {
		return err
	}

	payload, _ := json.Marshal(acct)
	if err := ctx.GetStub().SetEvent("RoleAssigned", payload); err != nil {
		return errors.Wrap(err, "emitting RoleAssigned")
	}
	roleLogger.Infow("role assigned", "principal", principal, "role", parsed, "by", caller)
	return nil
}

// RevokeRole removes a role from a principal. An admin cannot revoke its own
// Admin role, so the registry always keeps at least one administrator.
func (r *RoleContract) RevokeRole(ctx contractapi.TransactionContextInterface,
	principal string, role string) error {

	caller, now, err := r.requireAdmin(ctx)
	if err != nil {
		return err
	}
	parsed, err := parseRole(role)
	if err != nil {
		return err
	}
	if parsed == custody.RoleAdmin && principal == caller {
		return errors.New("cannot revoke own admin role")
	}

	registry := ledgerRoleRegistry{state: ctx.GetStub()}
	acct, err := registry.account(principal)
	if err != nil {
		return err
	}
	if acct == nil || !acct.holds(parsed) {
		return errors.Errorf("principal %s does not hold role %s", principal, parsed)
	}

	kept := acct.Roles[:0]
	for _, held := range acct.Roles {
		if held != parsed {
			kept = append(kept, held)
		}
	}
	acct.Roles = kept
	acct.AssignedBy = caller
	acct.UpdatedAt = now
	if err := registry.putAccount(acct); err != nil {
		return err
	}
	roleLogger.Infow("role revoked", "principal", principal, "role", parsed, "by", caller)
	return nil
}

// HasRole answers the registry's read contract for external callers.
func (r *RoleContract) HasRole(ctx contractapi.TransactionContextInterface,
	principal string, role string) (bool, error) {

	parsed, err := parseRole(role)
	if err != nil {
		return false, err
	}
	registry := ledgerRoleRegistry{state: ctx.GetStub()}
	return registry.HasRole(principal, parsed)
}

// GetAccount returns a principal's role grant record.
func (r *RoleContract) GetAccount(ctx contractapi.TransactionContextInterface,
	principal string) (*Account, error) {

	registry := ledgerRoleRegistry{state: ctx.GetStub()}
	acct, err := registry.account(principal)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, errors.Errorf("account %s not found", principal)
	}
	return acct, nil
}

// GetAllAccounts lists every registered principal and its roles.
func (r *RoleContract) GetAllAccounts(ctx contractapi.TransactionContextInterface) ([]*Account, error) {
	iterator, err := ctx.GetStub().GetStateByRange(accountKeyPrefix, accountKeyPrefix+"~")
	if err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}
	defer iterator.Close()

	var accounts []*Account
	for iterator.HasNext() {
		result, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		var acct Account
		if err := json.Unmarshal(result.Value, &acct); err != nil {
			return nil, errors.Wrapf(err, "decoding account record %s", result.Key)
		}
		accounts = append(accounts, &acct)
	}
	return accounts, nil
}
