package contracts

import "fmt"

// Entity represents a verified supply chain participant
type Entity struct {
	ID               string          `json:"id"`
	EntityType       EntityType      `json:"entityType"`
	CompanyName      string          `json:"companyName"`
	VerificationDate string          `json:"verificationDate"`
	IsActive         bool            `json:"isActive"`
	Certifications   []Certification `json:"certifications"`
}

// Certification is a standard an entity has been certified against
type Certification struct {
	Standard  string `json:"standard"`
	Issuer    string `json:"issuer"`
	Timestamp string `json:"timestamp"`
}

// Component represents a tracked physical part
type Component struct {
	ID              string          `json:"id"`
	Manufacturer    string          `json:"manufacturer"`
	ComponentType   string          `json:"componentType"`
	BatchNumber     string          `json:"batchNumber"`
	ManufactureDate string          `json:"manufactureDate"`
	CurrentOwner    string          `json:"currentOwner"`
	CurrentStatus   ComponentStatus `json:"currentStatus"`
	CreatedAt       string          `json:"createdAt"`
	Sequence        int             `json:"sequence"` // number of history entries recorded
}

// ComponentHistoryEntry is one immutable step in a component's trail
type ComponentHistoryEntry struct {
	ComponentID string          `json:"componentId"`
	Sequence    int             `json:"sequence"`
	FromEntity  string          `json:"fromEntity"`
	ToEntity    string          `json:"toEntity"`
	Status      ComponentStatus `json:"status"`
	Timestamp   string          `json:"timestamp"`
	Location    string          `json:"location"`
	Notes       string          `json:"notes"`
	TxID        string          `json:"txId"`
}

// Delivery represents a shipment of components between two entities
type Delivery struct {
	ID               string         `json:"id"`
	Sender           string         `json:"sender"`
	Recipient        string         `json:"recipient"`
	ComponentIDs     []string       `json:"componentIds"`
	ExpectedDelivery string         `json:"expectedDeliveryDate"`
	ActualDelivery   string         `json:"actualDeliveryDate,omitempty" metadata:",optional"`
	Status           DeliveryStatus `json:"deliveryStatus"`
	DeliveryLocation string         `json:"deliveryLocation"`
	Carrier          string         `json:"carrier"`
	TrackingNumber   string         `json:"trackingNumber"`
	CreatedAt        string         `json:"createdAt"`
}

// DeliveryConfirmation is the recipient's signed receipt of a delivery
type DeliveryConfirmation struct {
	DeliveryID         string   `json:"deliveryId"`
	ConfirmedBy        string   `json:"confirmedBy"`
	ConfirmationDate   string   `json:"confirmationDate"`
	ReceivedComponents []string `json:"receivedComponents"`
	ConditionNotes     string   `json:"conditionNotes"`
	Signature          string   `json:"signature"`
	DamagesReported    bool     `json:"damagesReported"`
}

// DeliveryDispute records a recipient's objection to a delivery
type DeliveryDispute struct {
	DeliveryID       string           `json:"deliveryId"`
	DisputeID        string           `json:"disputeId"`
	DisputedBy       string           `json:"disputedBy"`
	DisputeReason    string           `json:"disputeReason"`
	DisputeDate      string           `json:"disputeDate"`
	ResolutionStatus ResolutionStatus `json:"resolutionStatus"`
	Resolver         string           `json:"resolver,omitempty" metadata:",optional"`
	ResolutionDate   string           `json:"resolutionDate,omitempty" metadata:",optional"`
	ResolutionNotes  string           `json:"resolutionNotes,omitempty" metadata:",optional"`
}

// QualityStandard is a named pass threshold with its test procedures
type QualityStandard struct {
	ID             string `json:"id"`
	StandardName   string `json:"standardName"`
	MinScore       int    `json:"minScore"`
	TestProcedures string `json:"testProcedures"`
	CreatedBy      string `json:"createdBy"`
	CreatedAt      string `json:"createdAt"`
}

// QualityVerificationRecord is one verification attempt against a standard
type QualityVerificationRecord struct {
	ComponentID           string `json:"componentId"`
	Index                 int    `json:"index"`
	Verifier              string `json:"verifier"`
	QualityScore          int    `json:"qualityScore"`
	TestResults           string `json:"testResults"`
	CertificationStandard string `json:"certificationStandard"`
	VerificationDate      string `json:"verificationDate"`
	Passed                bool   `json:"passed"`
	Notes                 string `json:"notes"`
}

// QualitySummary is the per-component rollup of its verification log
type QualitySummary struct {
	ComponentID string `json:"componentId"`
	Count       int    `json:"count"`
	PassedCount int    `json:"passedCount"`
	LatestScore int    `json:"latestScore"`
}

// Enums

type EntityType int

const (
	EntityTypeManufacturer EntityType = iota + 1
	EntityTypeSupplier
	EntityTypeDistributor
	EntityTypeRetailer
)

func (t EntityType) String() string {
	switch t {
	case EntityTypeManufacturer:
		return "MANUFACTURER"
	case EntityTypeSupplier:
		return "SUPPLIER"
	case EntityTypeDistributor:
		return "DISTRIBUTOR"
	case EntityTypeRetailer:
		return "RETAILER"
	default:
		return fmt.Sprintf("EntityType(%d)", int(t))
	}
}

// ParseEntityType converts a raw transaction argument into an EntityType
func ParseEntityType(v int) (EntityType, error) {
	t := EntityType(v)
	switch t {
	case EntityTypeManufacturer, EntityTypeSupplier, EntityTypeDistributor, EntityTypeRetailer:
		return t, nil
	}
	return 0, newError(CodeInvalidInput, "invalid entity type: %d", v)
}

type ComponentStatus int

const (
	ComponentStatusManufactured ComponentStatus = iota + 1
	ComponentStatusInTransit
	ComponentStatusReceived
	ComponentStatusQualityChecked
	ComponentStatusInstalled
)

func (s ComponentStatus) String() string {
	switch s {
	case ComponentStatusManufactured:
		return "MANUFACTURED"
	case ComponentStatusInTransit:
		return "IN_TRANSIT"
	case ComponentStatusReceived:
		return "RECEIVED"
	case ComponentStatusQualityChecked:
		return "QUALITY_CHECKED"
	case ComponentStatusInstalled:
		return "INSTALLED"
	default:
		return fmt.Sprintf("ComponentStatus(%d)", int(s))
	}
}

// ParseComponentStatus converts a raw transaction argument into a ComponentStatus
func ParseComponentStatus(v int) (ComponentStatus, error) {
	s := ComponentStatus(v)
	switch s {
	case ComponentStatusManufactured, ComponentStatusInTransit, ComponentStatusReceived,
		ComponentStatusQualityChecked, ComponentStatusInstalled:
		return s, nil
	}
	return 0, newError(CodeInvalidStatus, "invalid component status: %d", v)
}

type DeliveryStatus int

const (
	DeliveryStatusPending DeliveryStatus = iota + 1
	DeliveryStatusInTransit
	DeliveryStatusDelivered
	DeliveryStatusConfirmed
	DeliveryStatusDisputed
)

func (s DeliveryStatus) String() string {
	switch s {
	case DeliveryStatusPending:
		return "PENDING"
	case DeliveryStatusInTransit:
		return "IN_TRANSIT"
	case DeliveryStatusDelivered:
		return "DELIVERED"
	case DeliveryStatusConfirmed:
		return "CONFIRMED"
	case DeliveryStatusDisputed:
		return "DISPUTED"
	default:
		return fmt.Sprintf("DeliveryStatus(%d)", int(s))
	}
}

// ParseDeliveryStatus converts a raw transaction argument into a DeliveryStatus
func ParseDeliveryStatus(v int) (DeliveryStatus, error) {
	s := DeliveryStatus(v)
	switch s {
	case DeliveryStatusPending, DeliveryStatusInTransit, DeliveryStatusDelivered,
		DeliveryStatusConfirmed, DeliveryStatusDisputed:
		return s, nil
	}
	return 0, newError(CodeInvalidStatus, "invalid delivery status: %d", v)
}

type ResolutionStatus int

const (
	ResolutionStatusOpen ResolutionStatus = iota + 1
	ResolutionStatusResolved
	ResolutionStatusRejected
)

func (s ResolutionStatus) String() string {
	switch s {
	case ResolutionStatusOpen:
		return "OPEN"
	case ResolutionStatusResolved:
		return "RESOLVED"
	case ResolutionStatusRejected:
		return "REJECTED"
	default:
		return fmt.Sprintf("ResolutionStatus(%d)", int(s))
	}
}

// ParseResolutionStatus converts a raw transaction argument into a ResolutionStatus
func ParseResolutionStatus(v int) (ResolutionStatus, error) {
	s := ResolutionStatus(v)
	switch s {
	case ResolutionStatusOpen, ResolutionStatusResolved, ResolutionStatusRejected:
		return s, nil
	}
	return 0, newError(CodeInvalidInput, "invalid resolution status: %d", v)
}
