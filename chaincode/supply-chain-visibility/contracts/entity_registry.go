package contracts

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const entityRegistryContract = "EntityRegistry"

// EntityRegistryContract maintains the verified participants of the network
type EntityRegistryContract struct {
	contractapi.Contract
}

type registryOwnerRecord struct {
	Owner         string `json:"owner"`
	InitializedAt string `json:"initializedAt"`
}

type verifyEntityArgs struct {
	Identity    string `arg:"identity" validate:"required,max=128"`
	CompanyName string `arg:"companyName" validate:"required,max=128"`
}

type certificationArgs struct {
	Identity string `arg:"identity" validate:"required,max=128"`
	Standard string `arg:"standard" validate:"required,max=128"`
	Issuer   string `arg:"issuer" validate:"required,max=128"`
}

// InitLedger fixes the caller as the registry owner. It can only run once.
func (r *EntityRegistryContract) InitLedger(ctx contractapi.TransactionContextInterface) (err error) {
	defer observe(ctx, entityRegistryContract, "InitLedger", &err)

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	key, err := stateKey(ctx, objectTypeRegistry, "owner")
	if err != nil {
		return err
	}
	var existing registryOwnerRecord
	found, err := readState(ctx, key, &existing)
	if err != nil {
		return err
	}
	if found {
		return newError(CodeAlreadyInitialized, "registry owner already set to %s", existing.Owner)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	record := registryOwnerRecord{Owner: caller, InitializedAt: now}
	recordJSON, err := writeState(ctx, key, record)
	if err != nil {
		return err
	}

	log := txLogger(ctx, entityRegistryContract, "InitLedger")
	log.Info().Str("owner", caller).Msg("registry initialized")

	return emitEvent(ctx, EventLedgerInitialized, recordJSON)
}

// GetRegistryOwner returns the principal allowed to verify entities
func (r *EntityRegistryContract) GetRegistryOwner(ctx contractapi.TransactionContextInterface) (string, error) {
	return readRegistryOwner(ctx)
}

// VerifyEntity registers identity as a verified participant of the given type
func (r *EntityRegistryContract) VerifyEntity(ctx contractapi.TransactionContextInterface,
	identity string, entityType int, companyName string) (err error) {
	defer observe(ctx, entityRegistryContract, "VerifyEntity", &err)

	caller, err := r.requireRegistryOwner(ctx)
	if err != nil {
		return err
	}

	if err := validateArgs(verifyEntityArgs{Identity: identity, CompanyName: companyName}); err != nil {
		return err
	}
	parsedType, err := ParseEntityType(entityType)
	if err != nil {
		return err
	}

	existing, err := readEntity(ctx, identity)
	if err != nil {
		return err
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	entity := &Entity{
		ID:               identity,
		EntityType:       parsedType,
		CompanyName:      companyName,
		VerificationDate: now,
		IsActive:         true,
		Certifications:   []Certification{},
	}

	if existing != nil {
		if existing.IsActive {
			return newError(CodeAlreadyVerified, "entity %s is already verified", identity)
		}
		// Re-verification keeps the earlier type and the certification trail
		if existing.EntityType != parsedType {
			return newError(CodeInvalidInput, "entity %s was verified as %s and cannot become %s",
				identity, existing.EntityType, parsedType)
		}
		entity.Certifications = existing.Certifications
	}

	entityJSON, err := putEntity(ctx, entity)
	if err != nil {
		return err
	}

	log := txLogger(ctx, entityRegistryContract, "VerifyEntity")
	log.Info().
		Str("entity", identity).
		Str("entityType", parsedType.String()).
		Str("verifiedBy", caller).
		Bool("reverified", existing != nil).
		Msg("entity verified")

	return emitEvent(ctx, EventEntityVerified, entityJSON)
}

// DeactivateEntity withdraws verification while keeping the record for audit
func (r *EntityRegistryContract) DeactivateEntity(ctx contractapi.TransactionContextInterface,
	identity string) (err error) {
	defer observe(ctx, entityRegistryContract, "DeactivateEntity", &err)

	caller, err := r.requireRegistryOwner(ctx)
	if err != nil {
		return err
	}

	entity, err := readEntity(ctx, identity)
	if err != nil {
		return err
	}
	if entity == nil {
		return newError(CodeNotFound, "entity %s not found", identity)
	}
	if !entity.IsActive {
		return newError(CodeInvalidState, "entity %s is already inactive", identity)
	}

	entity.IsActive = false
	entityJSON, err := putEntity(ctx, entity)
	if err != nil {
		return err
	}

	log := txLogger(ctx, entityRegistryContract, "DeactivateEntity")
	log.Info().Str("entity", identity).Str("deactivatedBy", caller).Msg("entity deactivated")

	return emitEvent(ctx, EventEntityDeactivated, entityJSON)
}

// IsVerifiedEntity reports whether identity has an active registry record
func (r *EntityRegistryContract) IsVerifiedEntity(ctx contractapi.TransactionContextInterface,
	identity string) (bool, error) {

	entity, err := readEntity(ctx, identity)
	if err != nil {
		return false, err
	}
	return isActiveEntity(entity), nil
}

// GetEntityInfo returns the registry record of identity, active or not
func (r *EntityRegistryContract) GetEntityInfo(ctx contractapi.TransactionContextInterface,
	identity string) (*Entity, error) {

	entity, err := readEntity(ctx, identity)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, newError(CodeNotFound, "entity %s not found", identity)
	}
	return entity, nil
}

// AddCertification appends a certification and returns its 1-based index
func (r *EntityRegistryContract) AddCertification(ctx contractapi.TransactionContextInterface,
	identity string, standard string, issuer string, timestamp string) (index int, err error) {
	defer observe(ctx, entityRegistryContract, "AddCertification", &err)

	if err := validateArgs(certificationArgs{Identity: identity, Standard: standard, Issuer: issuer}); err != nil {
		return 0, err
	}
	issuedAt, err := parseTimestamp("timestamp", timestamp)
	if err != nil {
		return 0, err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return 0, err
	}

	entity, err := requireVerifiedEntity(ctx, identity)
	if err != nil {
		return 0, err
	}

	// Only the registry owner or the entity itself may attach certifications
	if caller != identity {
		owner, err := readRegistryOwner(ctx)
		if err != nil {
			return 0, err
		}
		if !isRegistryOwner(owner, caller) {
			return 0, newError(CodeUnauthorized, "%s cannot certify entity %s", caller, identity)
		}
	}

	entity.Certifications = append(entity.Certifications, Certification{
		Standard:  standard,
		Issuer:    issuer,
		Timestamp: issuedAt,
	})
	entityJSON, err := putEntity(ctx, entity)
	if err != nil {
		return 0, err
	}

	index = len(entity.Certifications)
	log := txLogger(ctx, entityRegistryContract, "AddCertification")
	log.Info().Str("entity", identity).Str("standard", standard).Int("index", index).Msg("certification added")

	if err := emitEvent(ctx, EventCertificationAdded, entityJSON); err != nil {
		return 0, err
	}
	return index, nil
}

// GetAllEntities lists every registry record, including deactivated ones
func (r *EntityRegistryContract) GetAllEntities(ctx contractapi.TransactionContextInterface) ([]*Entity, error) {
	return scanState[Entity](ctx, objectTypeEntity)
}

func (r *EntityRegistryContract) requireRegistryOwner(ctx contractapi.TransactionContextInterface) (string, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	owner, err := readRegistryOwner(ctx)
	if err != nil {
		return "", err
	}
	if !isRegistryOwner(owner, caller) {
		return "", newError(CodeUnauthorized, "only the registry owner can manage entities")
	}
	return caller, nil
}

// Registry queries shared with the other contracts

func readRegistryOwner(ctx contractapi.TransactionContextInterface) (string, error) {
	key, err := stateKey(ctx, objectTypeRegistry, "owner")
	if err != nil {
		return "", err
	}
	var record registryOwnerRecord
	found, err := readState(ctx, key, &record)
	if err != nil {
		return "", err
	}
	if !found {
		return "", newError(CodeInvalidState, "registry has not been initialized")
	}
	return record.Owner, nil
}

// readEntity returns nil without error when identity was never verified.
func readEntity(ctx contractapi.TransactionContextInterface, identity string) (*Entity, error) {
	key, err := stateKey(ctx, objectTypeEntity, identity)
	if err != nil {
		return nil, err
	}
	var entity Entity
	found, err := readState(ctx, key, &entity)
	if err != nil || !found {
		return nil, err
	}
	return &entity, nil
}

func putEntity(ctx contractapi.TransactionContextInterface, entity *Entity) ([]byte, error) {
	key, err := stateKey(ctx, objectTypeEntity, entity.ID)
	if err != nil {
		return nil, err
	}
	return writeState(ctx, key, entity)
}
