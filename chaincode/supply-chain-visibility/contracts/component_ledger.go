package contracts

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const componentContract = "Component"

// ComponentContract tracks components and their append-only custody trail
type ComponentContract struct {
	contractapi.Contract
}

type createComponentArgs struct {
	ID            string `arg:"id" validate:"required,max=64"`
	ComponentType string `arg:"componentType" validate:"required,max=128"`
	BatchNumber   string `arg:"batchNumber" validate:"required,max=64"`
}

type transitionArgs struct {
	ID       string `arg:"id" validate:"required,max=64"`
	Location string `arg:"location" validate:"max=128"`
	Notes    string `arg:"notes" validate:"max=512"`
}

// CreateComponent registers a new component owned by its manufacturer
func (c *ComponentContract) CreateComponent(ctx contractapi.TransactionContextInterface,
	id string, componentType string, batchNumber string) (err error) {
	defer observe(ctx, componentContract, "CreateComponent", &err)

	if err := validateArgs(createComponentArgs{ID: id, ComponentType: componentType, BatchNumber: batchNumber}); err != nil {
		return err
	}

	manufacturer, err := callerID(ctx)
	if err != nil {
		return err
	}

	// Only verified manufacturers may mint components
	entity, err := requireVerifiedEntity(ctx, manufacturer)
	if err != nil {
		return err
	}
	if !isActiveManufacturer(entity) {
		return newError(CodeUnauthorized, "%s is a %s, only manufacturers can create components",
			manufacturer, entity.EntityType)
	}

	existing, err := readComponent(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return newError(CodeDuplicateID, "component %s already exists", id)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	component := &Component{
		ID:              id,
		Manufacturer:    manufacturer,
		ComponentType:   componentType,
		BatchNumber:     batchNumber,
		ManufactureDate: now,
		CurrentOwner:    manufacturer,
		CurrentStatus:   ComponentStatusManufactured,
		CreatedAt:       now,
		Sequence:        0,
	}

	componentJSON, err := putComponent(ctx, component)
	if err != nil {
		return err
	}
	if err := putIndex(ctx, objectTypeComponentOwner, manufacturer, id); err != nil {
		return err
	}

	log := txLogger(ctx, componentContract, "CreateComponent")
	log.Info().Str("component", id).Str("manufacturer", manufacturer).Msg("component created")

	return emitEvent(ctx, EventComponentCreated, componentJSON)
}

// TransferComponent hands custody of a component to another verified entity
func (c *ComponentContract) TransferComponent(ctx contractapi.TransactionContextInterface,
	id string, to string, location string, notes string) (err error) {
	defer observe(ctx, componentContract, "TransferComponent", &err)

	if err := validateArgs(transitionArgs{ID: id, Location: location, Notes: notes}); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	component, err := getComponent(ctx, id)
	if err != nil {
		return err
	}
	if !isCurrentOwner(component, caller) {
		return newError(CodeUnauthorized, "only the current owner can transfer component %s", id)
	}
	if _, err := requireVerifiedEntity(ctx, to); err != nil {
		return err
	}

	entry, err := appendHistory(ctx, component, to, component.CurrentStatus, location, notes)
	if err != nil {
		return err
	}

	log := txLogger(ctx, componentContract, "TransferComponent")
	log.Info().
		Str("component", id).
		Str("from", entry.FromEntity).
		Str("to", entry.ToEntity).
		Int("sequence", entry.Sequence).
		Msg("component transferred")

	return emitRecordEvent(ctx, EventComponentTransferred, entry)
}

// UpdateComponentStatus records a status change without moving custody.
// Statuses may go backwards; a correction is still a recorded event.
func (c *ComponentContract) UpdateComponentStatus(ctx contractapi.TransactionContextInterface,
	id string, newStatus int, location string, notes string) (err error) {
	defer observe(ctx, componentContract, "UpdateComponentStatus", &err)

	if err := validateArgs(transitionArgs{ID: id, Location: location, Notes: notes}); err != nil {
		return err
	}
	status, err := ParseComponentStatus(newStatus)
	if err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	component, err := getComponent(ctx, id)
	if err != nil {
		return err
	}

	// Verifiers who do not hold the component may only record quality outcomes
	if !isCurrentOwner(component, caller) {
		if !isQualityStatus(status) {
			return newError(CodeUnauthorized, "only the current owner can set component %s to %s", id, status)
		}
		verifier, err := isQualityVerifierFor(ctx, id, caller)
		if err != nil {
			return err
		}
		if !verifier {
			return newError(CodeUnauthorized, "%s is neither owner nor quality verifier of component %s", caller, id)
		}
	}

	if err := checkQualityGate(ctx, id, status); err != nil {
		return err
	}

	entry, err := appendHistory(ctx, component, component.CurrentOwner, status, location, notes)
	if err != nil {
		return err
	}

	log := txLogger(ctx, componentContract, "UpdateComponentStatus")
	log.Info().
		Str("component", id).
		Str("status", status.String()).
		Str("updatedBy", caller).
		Int("sequence", entry.Sequence).
		Msg("component status updated")

	return emitRecordEvent(ctx, EventComponentStatusUpdated, entry)
}

// ReceiveDelivery moves every received component of a confirmed delivery
// into the recipient's custody with status RECEIVED. Components that already
// left the sender are skipped. A delivery is received once; the receipt is
// kept under its own key. It returns how many components moved.
func (c *ComponentContract) ReceiveDelivery(ctx contractapi.TransactionContextInterface,
	deliveryID string, location string, notes string) (received int, err error) {
	defer observe(ctx, componentContract, "ReceiveDelivery", &err)

	if err := validateArgs(transitionArgs{ID: deliveryID, Location: location, Notes: notes}); err != nil {
		return 0, err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return 0, err
	}

	delivery, err := getDelivery(ctx, deliveryID)
	if err != nil {
		return 0, err
	}
	if !isRecipient(delivery, caller) {
		return 0, newError(CodeUnauthorized, "only the recipient can receive delivery %s", deliveryID)
	}
	if _, err := requireVerifiedEntity(ctx, caller); err != nil {
		return 0, err
	}

	confirmation, err := readDeliveryConfirmation(ctx, deliveryID)
	if err != nil {
		return 0, err
	}
	if confirmation == nil {
		return 0, newError(CodeInvalidState, "delivery %s has not been confirmed", deliveryID)
	}

	receiptKey, err := stateKey(ctx, objectTypeComponentReceipt, deliveryID)
	if err != nil {
		return 0, err
	}
	alreadyReceived, err := stateExists(ctx, receiptKey)
	if err != nil {
		return 0, err
	}
	if alreadyReceived {
		return 0, newError(CodeInvalidState, "delivery %s was already received", deliveryID)
	}

	// Load everything first so a failure leaves no partial trail
	pending := []*Component{}
	for _, componentID := range confirmation.ReceivedComponents {
		component, err := getComponent(ctx, componentID)
		if err != nil {
			return 0, err
		}
		if isCurrentOwner(component, delivery.Sender) {
			pending = append(pending, component)
		}
	}

	log := txLogger(ctx, componentContract, "ReceiveDelivery")
	for _, component := range pending {
		note := notes
		if note == "" {
			note = "received with delivery " + deliveryID
		}
		entry, err := appendHistory(ctx, component, caller, ComponentStatusReceived, location, note)
		if err != nil {
			return 0, err
		}
		log.Info().
			Str("component", component.ID).
			Str("delivery", deliveryID).
			Int("sequence", entry.Sequence).
			Msg("component received")
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return 0, err
	}
	summary := deliveryReceipt{
		DeliveryID:   deliveryID,
		Recipient:    caller,
		Received:     len(pending),
		ComponentIDs: []string{},
		ReceivedAt:   now,
	}
	for _, component := range pending {
		summary.ComponentIDs = append(summary.ComponentIDs, component.ID)
	}
	if _, err := writeState(ctx, receiptKey, summary); err != nil {
		return 0, err
	}
	if err := emitRecordEvent(ctx, EventDeliveryReceived, summary); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// GetComponent returns the current record of a component
func (c *ComponentContract) GetComponent(ctx contractapi.TransactionContextInterface,
	id string) (*Component, error) {
	return getComponent(ctx, id)
}

// GetComponentHistory returns the history entry at index (0-based)
func (c *ComponentContract) GetComponentHistory(ctx contractapi.TransactionContextInterface,
	id string, index int) (*ComponentHistoryEntry, error) {

	component, err := getComponent(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= component.Sequence {
		return nil, newError(CodeNotFound, "component %s has no history entry %d", id, index)
	}

	key, err := stateKey(ctx, objectTypeComponentHistory, id, sequenceKey(index))
	if err != nil {
		return nil, err
	}
	var entry ComponentHistoryEntry
	found, err := readState(ctx, key, &entry)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newError(CodeInternal, "history entry %d of component %s is missing", index, id)
	}
	return &entry, nil
}

// GetCurrentSequence returns the number of history entries recorded so far
func (c *ComponentContract) GetCurrentSequence(ctx contractapi.TransactionContextInterface,
	id string) (int, error) {

	component, err := getComponent(ctx, id)
	if err != nil {
		return 0, err
	}
	return component.Sequence, nil
}

// GetComponentTrail returns the full ordered history of a component
func (c *ComponentContract) GetComponentTrail(ctx contractapi.TransactionContextInterface,
	id string) ([]*ComponentHistoryEntry, error) {

	if _, err := getComponent(ctx, id); err != nil {
		return nil, err
	}
	return scanState[ComponentHistoryEntry](ctx, objectTypeComponentHistory, id)
}

// QueryComponentsByOwner lists the components currently held by owner.
// It reads the owner index, so the cost follows the owner's holdings.
func (c *ComponentContract) QueryComponentsByOwner(ctx contractapi.TransactionContextInterface,
	owner string) ([]*Component, error) {

	ids, err := scanIndex(ctx, objectTypeComponentOwner, owner)
	if err != nil {
		return nil, err
	}

	owned := make([]*Component, 0, len(ids))
	for _, id := range ids {
		component, err := getComponent(ctx, id)
		if err != nil {
			return nil, err
		}
		owned = append(owned, component)
	}
	return owned, nil
}

type deliveryReceipt struct {
	DeliveryID   string   `json:"deliveryId"`
	Recipient    string   `json:"recipient"`
	Received     int      `json:"received"`
	ComponentIDs []string `json:"componentIds"`
	ReceivedAt   string   `json:"receivedAt"`
}

// checkQualityGate enforces that QUALITY_CHECKED needs a recorded verification
// and INSTALLED needs a passing one.
func checkQualityGate(ctx contractapi.TransactionContextInterface, componentID string, status ComponentStatus) error {
	if !isQualityStatus(status) {
		return nil
	}

	summary, err := readQualitySummary(ctx, componentID)
	if err != nil {
		return err
	}
	if status == ComponentStatusQualityChecked && summary.Count == 0 {
		return newError(CodeInvalidState, "component %s has no quality verification", componentID)
	}
	if status == ComponentStatusInstalled && summary.PassedCount == 0 {
		return newError(CodeInvalidState, "component %s has not passed quality verification", componentID)
	}
	return nil
}

// appendHistory writes the next history entry and moves the component's
// owner and status to match it.
func appendHistory(ctx contractapi.TransactionContextInterface, component *Component,
	to string, status ComponentStatus, location string, notes string) (*ComponentHistoryEntry, error) {

	now, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	entry := &ComponentHistoryEntry{
		ComponentID: component.ID,
		Sequence:    component.Sequence,
		FromEntity:  component.CurrentOwner,
		ToEntity:    to,
		Status:      status,
		Timestamp:   now,
		Location:    location,
		Notes:       notes,
		TxID:        ctx.GetStub().GetTxID(),
	}

	key, err := stateKey(ctx, objectTypeComponentHistory, component.ID, sequenceKey(entry.Sequence))
	if err != nil {
		return nil, err
	}
	exists, err := stateExists(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError(CodeInternal, "history entry %d of component %s already written", entry.Sequence, component.ID)
	}
	if _, err := writeState(ctx, key, entry); err != nil {
		return nil, err
	}

	if to != component.CurrentOwner {
		if err := deleteIndex(ctx, objectTypeComponentOwner, component.CurrentOwner, component.ID); err != nil {
			return nil, err
		}
		if err := putIndex(ctx, objectTypeComponentOwner, to, component.ID); err != nil {
			return nil, err
		}
	}

	component.CurrentOwner = to
	component.CurrentStatus = status
	component.Sequence++
	if _, err := putComponent(ctx, component); err != nil {
		return nil, err
	}

	return entry, nil
}

// Component queries shared with the other contracts

// readComponent returns nil without error when the component does not exist.
func readComponent(ctx contractapi.TransactionContextInterface, id string) (*Component, error) {
	key, err := stateKey(ctx, objectTypeComponent, id)
	if err != nil {
		return nil, err
	}
	var component Component
	found, err := readState(ctx, key, &component)
	if err != nil || !found {
		return nil, err
	}
	return &component, nil
}

func getComponent(ctx contractapi.TransactionContextInterface, id string) (*Component, error) {
	component, err := readComponent(ctx, id)
	if err != nil {
		return nil, err
	}
	if component == nil {
		return nil, newError(CodeNotFound, "component %s does not exist", id)
	}
	return component, nil
}

func putComponent(ctx contractapi.TransactionContextInterface, component *Component) ([]byte, error) {
	key, err := stateKey(ctx, objectTypeComponent, component.ID)
	if err != nil {
		return nil, err
	}
	return writeState(ctx, key, component)
}
