package contracts

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Role predicates. They only look at records already loaded by the caller,
// so every check runs against the state of the current transaction.

func isRegistryOwner(owner string, caller string) bool {
	return owner != "" && owner == caller
}

func isActiveEntity(entity *Entity) bool {
	return entity != nil && entity.IsActive
}

func isActiveManufacturer(entity *Entity) bool {
	return isActiveEntity(entity) && entity.EntityType == EntityTypeManufacturer
}

func isCurrentOwner(component *Component, caller string) bool {
	return component.CurrentOwner == caller
}

func isSender(delivery *Delivery, caller string) bool {
	return delivery.Sender == caller
}

func isRecipient(delivery *Delivery, caller string) bool {
	return delivery.Recipient == caller
}

// requireVerifiedEntity fails with ENTITY_NOT_VERIFIED unless id names an
// active registry entry.
func requireVerifiedEntity(ctx contractapi.TransactionContextInterface, id string) (*Entity, error) {
	entity, err := readEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isActiveEntity(entity) {
		return nil, newError(CodeEntityNotVerified, "entity %s is not verified", id)
	}
	return entity, nil
}

// isQualityStatus reports whether status belongs to quality control rather
// than custody. Only these may be set by a verifier who does not own the part.
func isQualityStatus(status ComponentStatus) bool {
	return status == ComponentStatusQualityChecked || status == ComponentStatusInstalled
}

// isQualityVerifierFor reports whether caller is a verified entity that has
// recorded at least one quality verification for the component against a
// standard someone else created.
func isQualityVerifierFor(ctx contractapi.TransactionContextInterface, componentID string, caller string) (bool, error) {
	entity, err := readEntity(ctx, caller)
	if err != nil {
		return false, err
	}
	if !isActiveEntity(entity) {
		return false, nil
	}

	records, err := scanState[QualityVerificationRecord](ctx, objectTypeQualityRecord, componentID)
	if err != nil {
		return false, err
	}
	ownStandard := map[string]bool{}
	for _, record := range records {
		if record.Verifier != caller {
			continue
		}
		own, seen := ownStandard[record.CertificationStandard]
		if !seen {
			standard, err := readQualityStandard(ctx, record.CertificationStandard)
			if err != nil {
				return false, err
			}
			own = standard == nil || standard.CreatedBy == caller
			ownStandard[record.CertificationStandard] = own
		}
		if !own {
			return true, nil
		}
	}
	return false, nil
}
