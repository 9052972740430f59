package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/pharma-trace/chaincode/pharma-trace/custody"
)

// worldState is the slice of the chaincode stub the adapters need. Kept
// narrow so tests can fake it without a peer.
type worldState interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
}

const (
	batchKeyPrefix   = "batch_"
	logKeyPrefix     = "log_"
	accountKeyPrefix = "account_"
)

func batchKey(address string) string {
	return batchKeyPrefix + address
}

// logKey zero-pads the index so per-batch entries sort in append order.
func logKey(address string, index uint64) string {
	return fmt.Sprintf("%s%s_%012d", logKeyPrefix, address, index)
}

func accountKey(principal string) string {
	return accountKeyPrefix + principal
}

// batchEnvelope wraps a stored batch with its variant tag and the number of
// log entries committed so far. The count is what Commit checks the incoming
// entry index against, which is how a stale read surfaces as a conflict
// instead of corrupting the chain.
type batchEnvelope struct {
	Kind     custody.BatchKind `json:"kind"`
	LogCount uint64            `json:"logCount"`
	Batch    json.RawMessage   `json:"batch"`
}

// StateStore is the world-state backed custody.Ledger. All writes of one
// invocation land in the same transaction, so Commit inherits the substrate's
// all-or-nothing semantics.
type StateStore struct {
	state worldState
}

func NewStateStore(state worldState) *StateStore {
	return &StateStore{state: state}
}

func (s *StateStore) envelope(address string) (*batchEnvelope, error) {
	raw, err := s.state.GetState(batchKey(address))
	if err != nil {
		return nil, errors.Wrapf(err, "reading batch %s", address)
	}
	if raw == nil {
		return nil, nil
	}
	var env batchEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrapf(err, "decoding batch %s", address)
	}
	return &env, nil
}

func (s *StateStore) Batch(address string) (custody.Batch, error) {
	env, err := s.envelope(address)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, errors.Wrapf(custody.ErrNotFound, "address %s", address)
	}
	switch env.Kind {
	case custody.BatchKindRawMaterial:
		var b custody.RawMaterialBatch
		if err := json.Unmarshal(env.Batch, &b); err != nil {
			return nil, errors.Wrapf(err, "decoding raw material batch %s", address)
		}
		return &b, nil
	case custody.BatchKindMedicine:
		var b custody.MedicineBatch
		if err := json.Unmarshal(env.Batch, &b); err != nil {
			return nil, errors.Wrapf(err, "decoding medicine batch %s", address)
		}
		return &b, nil
	}
	return nil, errors.Wrapf(custody.ErrNotFound, "batch %s has unknown kind %q", address, env.Kind)
}

func (s *StateStore) History(address string) ([]custody.LogEntry, error) {
	env, err := s.envelope(address)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, nil
	}
	entries := make([]custody.LogEntry, 0, env.LogCount)
	for i := uint64(0); i < env.LogCount; i++ {
		raw, err := s.state.GetState(logKey(address, i))
		if err != nil {
			return nil, errors.Wrapf(err, "reading log entry %d of %s", i, address)
		}
		if raw == nil {
			return nil, errors.Wrapf(custody.ErrIntegrityViolation,
				"log entry %d of %s is missing", i, address)
		}
		var entry custody.LogEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, errors.Wrapf(err, "decoding log entry %d of %s", i, address)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *StateStore) Commit(b custody.Batch, entry custody.LogEntry) error {
	address := b.BatchAddress()
	env, err := s.envelope(address)
	if err != nil {
		return err
	}
	head := uint64(0)
	if env != nil {
		head = env.LogCount
	}
	if entry.Index != head {
		return errors.Wrapf(custody.ErrCommitConflict,
			"entry index %d, history head of %s is %d", entry.Index, address, head)
	}

	batchRaw, err := json.Marshal(b)
	if err != nil {
		return errors.Wrapf(err, "encoding batch %s", address)
	}
	entryRaw, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrapf(err, "encoding log entry %d of %s", entry.Index, address)
	}

	if err := s.state.PutState(logKey(address, entry.Index), entryRaw); err != nil {
		return errors.Wrapf(err, "writing log entry %d of %s", entry.Index, address)
	}
	next := batchEnvelope{Kind: b.Kind(), LogCount: entry.Index + 1, Batch: batchRaw}
	nextRaw, err := json.Marshal(next)
	if err != nil {
		return errors.Wrapf(err, "encoding envelope of %s", address)
	}
	return errors.Wrapf(s.state.PutState(batchKey(address), nextRaw), "writing batch %s", address)
}

// Account is a principal's on-ledger role grant record.
type Account struct {
	Principal  string         `json:"principal"`
	Roles      []custody.Role `json:"roles"`
	AssignedBy string         `json:"assignedBy"`
	UpdatedAt  int64          `json:"updatedAt"`
}

func (a *Account) holds(role custody.Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ledgerRoleRegistry is the world-state backed custody.RoleRegistry. An
// unknown principal simply holds no roles.
type ledgerRoleRegistry struct {
	state worldState
}

func (r ledgerRoleRegistry) account(principal string) (*Account, error) {
	raw, err := r.state.GetState(accountKey(principal))
	if err != nil {
		return nil, errors.Wrapf(err, "reading account %s", principal)
	}
	if raw == nil {
		return nil, nil
	}
	var acct Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, errors.Wrapf(err, "decoding account %s", principal)
	}
	return &acct, nil
}

func (r ledgerRoleRegistry) HasRole(principal string, role custody.Role) (bool, error) {
	acct, err := r.account(principal)
	if err != nil {
		return false, err
	}
	if acct == nil {
		return false, nil
	}
	return acct.holds(role), nil
}

func (r ledgerRoleRegistry) putAccount(acct *Account) error {
	raw, err := json.Marshal(acct)
	if err != nil {
		return errors.Wrapf(err, "encoding account %s", acct.Principal)
	}
	return errors.Wrapf(r.state.PutState(accountKey(acct.Principal), raw),
		"writing account %s", acct.Principal)
}
