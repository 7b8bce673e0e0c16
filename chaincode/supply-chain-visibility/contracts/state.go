package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// World state object types, used as the first part of every composite key
const (
	objectTypeRegistry             = "registry"
	objectTypeEntity               = "entity"
	objectTypeComponent            = "component"
	objectTypeComponentHistory     = "component-history"
	objectTypeComponentOwner       = "component-owner"
	objectTypeComponentReceipt     = "component-receipt"
	objectTypeDelivery             = "delivery"
	objectTypeDeliveryConfirmation = "delivery-confirmation"
	objectTypeDeliveryDispute      = "delivery-dispute"
	objectTypeQualityStandard      = "quality-standard"
	objectTypeQualityRecord        = "quality-record"
	objectTypeQualitySummary       = "quality-summary"
)

// sequenceKey pads log positions so range scans return them in order.
func sequenceKey(seq int) string {
	return fmt.Sprintf("%010d", seq)
}

func stateKey(ctx contractapi.TransactionContextInterface, objectType string, attrs ...string) (string, error) {
	key, err := ctx.GetStub().CreateCompositeKey(objectType, attrs)
	if err != nil {
		return "", wrapError(err, CodeInvalidInput, "failed to build %s key", objectType)
	}
	return key, nil
}

// readState loads the JSON record stored under key into v.
// It reports false without error when nothing is stored.
func readState(ctx contractapi.TransactionContextInterface, key string, v interface{}) (bool, error) {
	data, err := ctx.GetStub().GetState(key)
	if err != nil {
		return false, wrapError(err, CodeInternal, "failed to read state")
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, wrapError(err, CodeInternal, "failed to decode state")
	}
	return true, nil
}

func writeState(ctx contractapi.TransactionContextInterface, key string, v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, wrapError(err, CodeInternal, "failed to encode state")
	}
	if err := ctx.GetStub().PutState(key, data); err != nil {
		return nil, wrapError(err, CodeInternal, "failed to write state")
	}
	return data, nil
}

func stateExists(ctx contractapi.TransactionContextInterface, key string) (bool, error) {
	data, err := ctx.GetStub().GetState(key)
	if err != nil {
		return false, wrapError(err, CodeInternal, "failed to read state")
	}
	return data != nil, nil
}

// scanState decodes every record under the partial composite key in key order.
func scanState[T any](ctx contractapi.TransactionContextInterface, objectType string, attrs ...string) ([]*T, error) {
	resultsIterator, err := ctx.GetStub().GetStateByPartialCompositeKey(objectType, attrs)
	if err != nil {
		return nil, wrapError(err, CodeInternal, "failed to query %s records", objectType)
	}
	defer resultsIterator.Close()

	records := []*T{}
	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return nil, wrapError(err, CodeInternal, "failed to iterate %s records", objectType)
		}

		var record T
		if err := json.Unmarshal(queryResponse.Value, &record); err != nil {
			return nil, wrapError(err, CodeInternal, "failed to decode %s record", objectType)
		}
		records = append(records, &record)
	}

	return records, nil
}

// indexMarker is the value stored under index keys. PutState treats an empty
// value as a delete.
var indexMarker = []byte{0x00}

func putIndex(ctx contractapi.TransactionContextInterface, objectType string, attrs ...string) error {
	key, err := stateKey(ctx, objectType, attrs...)
	if err != nil {
		return err
	}
	if err := ctx.GetStub().PutState(key, indexMarker); err != nil {
		return wrapError(err, CodeInternal, "failed to write %s index", objectType)
	}
	return nil
}

func deleteIndex(ctx contractapi.TransactionContextInterface, objectType string, attrs ...string) error {
	key, err := stateKey(ctx, objectType, attrs...)
	if err != nil {
		return err
	}
	if err := ctx.GetStub().DelState(key); err != nil {
		return wrapError(err, CodeInternal, "failed to delete %s index", objectType)
	}
	return nil
}

// scanIndex returns the last attribute of every index key under the partial
// composite key, in key order.
func scanIndex(ctx contractapi.TransactionContextInterface, objectType string, attrs ...string) ([]string, error) {
	stub := ctx.GetStub()
	resultsIterator, err := stub.GetStateByPartialCompositeKey(objectType, attrs)
	if err != nil {
		return nil, wrapError(err, CodeInternal, "failed to query %s index", objectType)
	}
	defer resultsIterator.Close()

	ids := []string{}
	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return nil, wrapError(err, CodeInternal, "failed to iterate %s index", objectType)
		}
		_, parts, err := stub.SplitCompositeKey(queryResponse.Key)
		if err != nil {
			return nil, wrapError(err, CodeInternal, "failed to split %s index key", objectType)
		}
		if len(parts) == 0 {
			continue
		}
		ids = append(ids, parts[len(parts)-1])
	}

	return ids, nil
}
