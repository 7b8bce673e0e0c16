package contracts

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Chaincode event names, one per committed write
const (
	EventLedgerInitialized      = "LedgerInitialized"
	EventEntityVerified         = "EntityVerified"
	EventEntityDeactivated      = "EntityDeactivated"
	EventCertificationAdded     = "CertificationAdded"
	EventComponentCreated       = "ComponentCreated"
	EventComponentTransferred   = "ComponentTransferred"
	EventComponentStatusUpdated = "ComponentStatusUpdated"
	EventDeliveryReceived       = "DeliveryReceived"
	EventDeliveryCreated        = "DeliveryCreated"
	EventDeliveryStatusUpdated  = "DeliveryStatusUpdated"
	EventDeliveryConfirmed      = "DeliveryConfirmed"
	EventDeliveryDisputed       = "DeliveryDisputed"
	EventDisputeResolved        = "DisputeResolved"
	EventQualityStandardCreated = "QualityStandardCreated"
	EventQualityVerified        = "QualityVerified"
	EventBatchQualityVerified   = "BatchQualityVerified"
)

// callerID resolves the principal the peer authenticated for this transaction.
func callerID(ctx contractapi.TransactionContextInterface) (string, error) {
	caller, err := ctx.GetClientIdentity().GetMSPID()
	if err != nil {
		return "", wrapError(err, CodeUnauthorized, "failed to get caller identity")
	}
	if caller == "" {
		return "", newError(CodeUnauthorized, "caller identity is empty")
	}
	return caller, nil
}

// txTimestamp is the proposal timestamp, identical on every endorser.
func txTimestamp(ctx contractapi.TransactionContextInterface) (string, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return "", wrapError(err, CodeInternal, "failed to get transaction timestamp")
	}
	return ts.AsTime().UTC().Format(time.RFC3339), nil
}

// parseTimestamp normalises a caller supplied RFC 3339 timestamp.
func parseTimestamp(field string, value string) (string, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return "", wrapError(err, CodeInvalidInput, "%s must be an RFC 3339 timestamp", field)
	}
	return t.UTC().Format(time.RFC3339), nil
}

// deterministicID derives a stable identifier from the transaction id, so
// every endorser computes the same value.
func deterministicID(ctx contractapi.TransactionContextInterface, scope string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(scope+"/"+ctx.GetStub().GetTxID())).String()
}

// emitEvent publishes the written record; Fabric keeps only the last event
// set in a transaction.
func emitEvent(ctx contractapi.TransactionContextInterface, name string, payload []byte) error {
	if err := ctx.GetStub().SetEvent(name, payload); err != nil {
		return wrapError(err, CodeInternal, "failed to emit %s event", name)
	}
	return nil
}

func emitRecordEvent(ctx contractapi.TransactionContextInterface, name string, record interface{}) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return wrapError(err, CodeInternal, "failed to encode %s event", name)
	}
	return emitEvent(ctx, name, payload)
}
