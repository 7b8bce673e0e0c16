package contracts

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const deliveryContract = "Delivery"

// DeliveryContract drives shipments from creation through confirmation or dispute
type DeliveryContract struct {
	contractapi.Contract
}

type createDeliveryArgs struct {
	ID             string   `arg:"id" validate:"required,max=64"`
	Recipient      string   `arg:"recipient" validate:"required,max=128"`
	ComponentIDs   []string `arg:"componentIds" validate:"required,min=1,max=100,dive,required,max=64"`
	Location       string   `arg:"location" validate:"max=128"`
	Carrier        string   `arg:"carrier" validate:"max=128"`
	TrackingNumber string   `arg:"trackingNumber" validate:"max=64"`
}

type confirmDeliveryArgs struct {
	ID                 string   `arg:"id" validate:"required,max=64"`
	ReceivedComponents []string `arg:"receivedIds" validate:"max=100,dive,required,max=64"`
	ConditionNotes     string   `arg:"notes" validate:"max=512"`
	Signature          string   `arg:"signature" validate:"max=128"`
}

type disputeDeliveryArgs struct {
	ID     string `arg:"id" validate:"required,max=64"`
	Reason string `arg:"reason" validate:"required,max=512"`
}

type resolveDisputeArgs struct {
	ID    string `arg:"id" validate:"required,max=64"`
	Notes string `arg:"notes" validate:"max=512"`
}

// deliveryTransitions lists the moves UpdateDeliveryStatus may make.
// CONFIRMED and DISPUTED are only reachable through their own records.
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusPending:   {DeliveryStatusInTransit, DeliveryStatusDelivered},
	DeliveryStatusInTransit: {DeliveryStatusDelivered},
	DeliveryStatusDelivered: {},
	DeliveryStatusConfirmed: {},
	DeliveryStatusDisputed:  {},
}

func canTransition(from DeliveryStatus, to DeliveryStatus) bool {
	for _, allowed := range deliveryTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CreateDelivery groups components the caller owns into a shipment to recipient
func (d *DeliveryContract) CreateDelivery(ctx contractapi.TransactionContextInterface,
	id string, recipient string, componentIDs []string, expectedDeliveryDate string,
	location string, carrier string, trackingNumber string) (err error) {
	defer observe(ctx, deliveryContract, "CreateDelivery", &err)

	args := createDeliveryArgs{
		ID:             id,
		Recipient:      recipient,
		ComponentIDs:   componentIDs,
		Location:       location,
		Carrier:        carrier,
		TrackingNumber: trackingNumber,
	}
	if err := validateArgs(args); err != nil {
		return err
	}
	if err := uniqueIDs("componentIds", componentIDs); err != nil {
		return err
	}
	expected, err := parseTimestamp("expectedDeliveryDate", expectedDeliveryDate)
	if err != nil {
		return err
	}

	sender, err := callerID(ctx)
	if err != nil {
		return err
	}

	existing, err := readDelivery(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return newError(CodeDuplicateID, "delivery %s already exists", id)
	}

	if _, err := requireVerifiedEntity(ctx, sender); err != nil {
		return err
	}
	if _, err := requireVerifiedEntity(ctx, recipient); err != nil {
		return err
	}

	// The sender must hold every listed component right now
	for _, componentID := range componentIDs {
		component, err := getComponent(ctx, componentID)
		if err != nil {
			return err
		}
		if !isCurrentOwner(component, sender) {
			return newError(CodeNotOwner, "%s does not own component %s", sender, componentID)
		}
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	delivery := &Delivery{
		ID:               id,
		Sender:           sender,
		Recipient:        recipient,
		ComponentIDs:     componentIDs,
		ExpectedDelivery: expected,
		Status:           DeliveryStatusPending,
		DeliveryLocation: location,
		Carrier:          carrier,
		TrackingNumber:   trackingNumber,
		CreatedAt:        now,
	}

	deliveryJSON, err := putDelivery(ctx, delivery)
	if err != nil {
		return err
	}

	log := txLogger(ctx, deliveryContract, "CreateDelivery")
	log.Info().
		Str("delivery", id).
		Str("sender", sender).
		Str("recipient", recipient).
		Int("components", len(componentIDs)).
		Msg("delivery created")

	return emitEvent(ctx, EventDeliveryCreated, deliveryJSON)
}

// UpdateDeliveryStatus moves a delivery forward through PENDING, IN_TRANSIT and DELIVERED
func (d *DeliveryContract) UpdateDeliveryStatus(ctx contractapi.TransactionContextInterface,
	id string, newStatus int) (err error) {
	defer observe(ctx, deliveryContract, "UpdateDeliveryStatus", &err)

	status, err := ParseDeliveryStatus(newStatus)
	if err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	delivery, err := getDelivery(ctx, id)
	if err != nil {
		return err
	}
	if !isSender(delivery, caller) {
		return newError(CodeUnauthorized, "only the sender can update delivery %s", id)
	}
	if !canTransition(delivery.Status, status) {
		return newError(CodeInvalidTransition, "delivery %s cannot move from %s to %s", id, delivery.Status, status)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	previous := delivery.Status
	delivery.Status = status
	if status == DeliveryStatusDelivered {
		delivery.ActualDelivery = now
	}

	deliveryJSON, err := putDelivery(ctx, delivery)
	if err != nil {
		return err
	}

	log := txLogger(ctx, deliveryContract, "UpdateDeliveryStatus")
	log.Info().
		Str("delivery", id).
		Str("from", previous.String()).
		Str("to", status.String()).
		Msg("delivery status updated")

	return emitEvent(ctx, EventDeliveryStatusUpdated, deliveryJSON)
}

// ConfirmDelivery records the recipient's receipt of a delivered shipment
func (d *DeliveryContract) ConfirmDelivery(ctx contractapi.TransactionContextInterface,
	id string, receivedIDs []string, conditionNotes string, signature string,
	damagesReported bool) (err error) {
	defer observe(ctx, deliveryContract, "ConfirmDelivery", &err)

	args := confirmDeliveryArgs{
		ID:                 id,
		ReceivedComponents: receivedIDs,
		ConditionNotes:     conditionNotes,
		Signature:          signature,
	}
	if err := validateArgs(args); err != nil {
		return err
	}
	if err := uniqueIDs("receivedIds", receivedIDs); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	delivery, err := getDelivery(ctx, id)
	if err != nil {
		return err
	}
	if !isRecipient(delivery, caller) {
		return newError(CodeUnauthorized, "only the recipient can confirm delivery %s", id)
	}

	existing, err := readDeliveryConfirmation(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return newError(CodeAlreadyConfirmed, "delivery %s was already confirmed", id)
	}
	if delivery.Status != DeliveryStatusDelivered {
		return newError(CodeInvalidState, "delivery %s is %s, only DELIVERED can be confirmed", id, delivery.Status)
	}

	// Received components must come from the shipment; missing ones are allowed
	shipped := make(map[string]struct{}, len(delivery.ComponentIDs))
	for _, componentID := range delivery.ComponentIDs {
		shipped[componentID] = struct{}{}
	}
	for _, componentID := range receivedIDs {
		if _, ok := shipped[componentID]; !ok {
			return newError(CodeInvalidInput, "component %s is not part of delivery %s", componentID, id)
		}
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	received := receivedIDs
	if received == nil {
		received = []string{}
	}
	confirmation := &DeliveryConfirmation{
		DeliveryID:         id,
		ConfirmedBy:        caller,
		ConfirmationDate:   now,
		ReceivedComponents: received,
		ConditionNotes:     conditionNotes,
		Signature:          signature,
		DamagesReported:    damagesReported,
	}

	confirmationKey, err := stateKey(ctx, objectTypeDeliveryConfirmation, id)
	if err != nil {
		return err
	}
	confirmationJSON, err := writeState(ctx, confirmationKey, confirmation)
	if err != nil {
		return err
	}

	delivery.Status = DeliveryStatusConfirmed
	if _, err := putDelivery(ctx, delivery); err != nil {
		return err
	}

	log := txLogger(ctx, deliveryContract, "ConfirmDelivery")
	log.Info().
		Str("delivery", id).
		Int("received", len(received)).
		Int("shipped", len(delivery.ComponentIDs)).
		Bool("damagesReported", damagesReported).
		Msg("delivery confirmed")

	return emitEvent(ctx, EventDeliveryConfirmed, confirmationJSON)
}

// DisputeDelivery opens a dispute on a delivered or confirmed shipment.
// A confirmed delivery keeps its confirmation record once disputed.
func (d *DeliveryContract) DisputeDelivery(ctx contractapi.TransactionContextInterface,
	id string, reason string) (err error) {
	defer observe(ctx, deliveryContract, "DisputeDelivery", &err)

	if err := validateArgs(disputeDeliveryArgs{ID: id, Reason: reason}); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	delivery, err := getDelivery(ctx, id)
	if err != nil {
		return err
	}
	if !isRecipient(delivery, caller) {
		return newError(CodeUnauthorized, "only the recipient can dispute delivery %s", id)
	}

	existing, err := readDeliveryDispute(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return newError(CodeAlreadyDisputed, "delivery %s is already disputed", id)
	}
	if delivery.Status != DeliveryStatusDelivered && delivery.Status != DeliveryStatusConfirmed {
		return newError(CodeInvalidState, "delivery %s is %s, only DELIVERED or CONFIRMED can be disputed", id, delivery.Status)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	dispute := &DeliveryDispute{
		DeliveryID:       id,
		DisputeID:        deterministicID(ctx, objectTypeDeliveryDispute),
		DisputedBy:       caller,
		DisputeReason:    reason,
		DisputeDate:      now,
		ResolutionStatus: ResolutionStatusOpen,
	}

	disputeJSON, err := putDeliveryDispute(ctx, dispute)
	if err != nil {
		return err
	}

	previous := delivery.Status
	delivery.Status = DeliveryStatusDisputed
	if _, err := putDelivery(ctx, delivery); err != nil {
		return err
	}

	log := txLogger(ctx, deliveryContract, "DisputeDelivery")
	log.Info().
		Str("delivery", id).
		Str("disputeId", dispute.DisputeID).
		Str("previousStatus", previous.String()).
		Msg("delivery disputed")

	return emitEvent(ctx, EventDeliveryDisputed, disputeJSON)
}

// ResolveDispute closes an open dispute as RESOLVED or REJECTED. The sender or
// the registry owner may resolve; the delivery stays DISPUTED.
func (d *DeliveryContract) ResolveDispute(ctx contractapi.TransactionContextInterface,
	id string, resolution int, notes string) (err error) {
	defer observe(ctx, deliveryContract, "ResolveDispute", &err)

	if err := validateArgs(resolveDisputeArgs{ID: id, Notes: notes}); err != nil {
		return err
	}
	outcome, err := ParseResolutionStatus(resolution)
	if err != nil {
		return err
	}
	if outcome == ResolutionStatusOpen {
		return newError(CodeInvalidInput, "a dispute can only be resolved as RESOLVED or REJECTED")
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}

	delivery, err := getDelivery(ctx, id)
	if err != nil {
		return err
	}
	if !isSender(delivery, caller) {
		owner, err := readRegistryOwner(ctx)
		if err != nil {
			return err
		}
		if !isRegistryOwner(owner, caller) {
			return newError(CodeUnauthorized, "%s cannot resolve the dispute on delivery %s", caller, id)
		}
	}

	dispute, err := readDeliveryDispute(ctx, id)
	if err != nil {
		return err
	}
	if dispute == nil {
		return newError(CodeNotFound, "delivery %s has no dispute", id)
	}
	if dispute.ResolutionStatus != ResolutionStatusOpen {
		return newError(CodeInvalidState, "dispute on delivery %s is already %s", id, dispute.ResolutionStatus)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	dispute.ResolutionStatus = outcome
	dispute.Resolver = caller
	dispute.ResolutionDate = now
	dispute.ResolutionNotes = notes

	disputeJSON, err := putDeliveryDispute(ctx, dispute)
	if err != nil {
		return err
	}

	log := txLogger(ctx, deliveryContract, "ResolveDispute")
	log.Info().
		Str("delivery", id).
		Str("disputeId", dispute.DisputeID).
		Str("resolution", outcome.String()).
		Str("resolver", caller).
		Msg("dispute resolved")

	return emitEvent(ctx, EventDisputeResolved, disputeJSON)
}

// GetDelivery returns a delivery record
func (d *DeliveryContract) GetDelivery(ctx contractapi.TransactionContextInterface,
	id string) (*Delivery, error) {
	return getDelivery(ctx, id)
}

// GetDeliveryConfirmation returns the recipient's confirmation of a delivery
func (d *DeliveryContract) GetDeliveryConfirmation(ctx contractapi.TransactionContextInterface,
	id string) (*DeliveryConfirmation, error) {

	confirmation, err := readDeliveryConfirmation(ctx, id)
	if err != nil {
		return nil, err
	}
	if confirmation == nil {
		return nil, newError(CodeNotFound, "delivery %s has no confirmation", id)
	}
	return confirmation, nil
}

// GetDeliveryDispute returns the dispute raised on a delivery
func (d *DeliveryContract) GetDeliveryDispute(ctx contractapi.TransactionContextInterface,
	id string) (*DeliveryDispute, error) {

	dispute, err := readDeliveryDispute(ctx, id)
	if err != nil {
		return nil, err
	}
	if dispute == nil {
		return nil, newError(CodeNotFound, "delivery %s has no dispute", id)
	}
	return dispute, nil
}

// IsDeliveryConfirmed reports whether a confirmation exists, whatever the current status
func (d *DeliveryContract) IsDeliveryConfirmed(ctx contractapi.TransactionContextInterface,
	id string) (bool, error) {

	if _, err := getDelivery(ctx, id); err != nil {
		return false, err
	}
	confirmation, err := readDeliveryConfirmation(ctx, id)
	if err != nil {
		return false, err
	}
	return confirmation != nil, nil
}

// GetDeliveryStatus returns the current status of a delivery
func (d *DeliveryContract) GetDeliveryStatus(ctx contractapi.TransactionContextInterface,
	id string) (int, error) {

	delivery, err := getDelivery(ctx, id)
	if err != nil {
		return 0, err
	}
	return int(delivery.Status), nil
}

// Delivery queries shared with the other contracts

// readDelivery returns nil without error when the delivery does not exist.
func readDelivery(ctx contractapi.TransactionContextInterface, id string) (*Delivery, error) {
	key, err := stateKey(ctx, objectTypeDelivery, id)
	if err != nil {
		return nil, err
	}
	var delivery Delivery
	found, err := readState(ctx, key, &delivery)
	if err != nil || !found {
		return nil, err
	}
	return &delivery, nil
}

func getDelivery(ctx contractapi.TransactionContextInterface, id string) (*Delivery, error) {
	delivery, err := readDelivery(ctx, id)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, newError(CodeNotFound, "delivery %s does not exist", id)
	}
	return delivery, nil
}

func putDelivery(ctx contractapi.TransactionContextInterface, delivery *Delivery) ([]byte, error) {
	key, err := stateKey(ctx, objectTypeDelivery, delivery.ID)
	if err != nil {
		return nil, err
	}
	return writeState(ctx, key, delivery)
}

func readDeliveryConfirmation(ctx contractapi.TransactionContextInterface, id string) (*DeliveryConfirmation, error) {
	key, err := stateKey(ctx, objectTypeDeliveryConfirmation, id)
	if err != nil {
		return nil, err
	}
	var confirmation DeliveryConfirmation
	found, err := readState(ctx, key, &confirmation)
	if err != nil || !found {
		return nil, err
	}
	return &confirmation, nil
}

func readDeliveryDispute(ctx contractapi.TransactionContextInterface, id string) (*DeliveryDispute, error) {
	key, err := stateKey(ctx, objectTypeDeliveryDispute, id)
	if err != nil {
		return nil, err
	}
	var dispute DeliveryDispute
	found, err := readState(ctx, key, &dispute)
	if err != nil || !found {
		return nil, err
	}
	return &dispute, nil
}

func putDeliveryDispute(ctx contractapi.TransactionContextInterface, dispute *DeliveryDispute) ([]byte, error) {
	key, err := stateKey(ctx, objectTypeDeliveryDispute, dispute.DeliveryID)
	if err != nil {
		return nil, err
	}
	return writeState(ctx, key, dispute)
}
