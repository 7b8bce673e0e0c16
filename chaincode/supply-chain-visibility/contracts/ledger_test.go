package contracts

import (
	"crypto/x509"
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/suite"
)

const (
	regulatorMSP    = "RegulatorMSP"
	manufacturerMSP = "ManufacturerMSP"
	supplierMSP     = "SupplierMSP"
	distributorMSP  = "DistributorMSP"
	retailerMSP     = "RetailerMSP"
	outsiderMSP     = "OutsiderMSP"
)

// fakeIdentity stands in for the peer-validated client certificate.
type fakeIdentity struct {
	mspID string
}

func (f *fakeIdentity) GetID() (string, error) {
	return "x509::CN=" + f.mspID, nil
}

func (f *fakeIdentity) GetMSPID() (string, error) {
	return f.mspID, nil
}

func (f *fakeIdentity) GetAttributeValue(string) (string, bool, error) {
	return "", false, nil
}

func (f *fakeIdentity) AssertAttributeValue(attrName string, _ string) error {
	return fmt.Errorf("attribute %s not present", attrName)
}

func (f *fakeIdentity) GetX509Certificate() (*x509.Certificate, error) {
	return nil, nil
}

type recordedEvent struct {
	name    string
	payload []byte
}

// ledgerSuite runs every contract against one in-memory MockStub. Each write
// happens in its own mock transaction, like separate endorsed proposals.
type ledgerSuite struct {
	suite.Suite

	stub     *shimtest.MockStub
	identity *fakeIdentity
	ctx      *contractapi.TransactionContext
	txSeq    int
	events   []recordedEvent

	registry   *EntityRegistryContract
	components *ComponentContract
	deliveries *DeliveryContract
	quality    *QualityContract
}

func (s *ledgerSuite) SetupTest() {
	s.stub = shimtest.NewMockStub("supply-chain-visibility", nil)
	s.identity = &fakeIdentity{}
	s.ctx = new(contractapi.TransactionContext)
	s.ctx.SetStub(s.stub)
	s.ctx.SetClientIdentity(s.identity)
	s.txSeq = 0
	s.events = nil

	s.registry = new(EntityRegistryContract)
	s.components = new(ComponentContract)
	s.deliveries = new(DeliveryContract)
	s.quality = new(QualityContract)
}

// as starts a new transaction submitted by caller.
func (s *ledgerSuite) as(caller string) contractapi.TransactionContextInterface {
	s.collectEvents()
	s.txSeq++
	s.stub.MockTransactionStart(fmt.Sprintf("tx-%04d", s.txSeq))
	s.identity.mspID = caller
	return s.ctx
}

// collectEvents empties the stub's buffered event channel.
func (s *ledgerSuite) collectEvents() {
	for {
		select {
		case event := <-s.stub.ChaincodeEventsChannel:
			s.events = append(s.events, recordedEvent{name: event.EventName, payload: event.Payload})
		default:
			return
		}
	}
}

// lastEvent returns the most recent chaincode event.
func (s *ledgerSuite) lastEvent() recordedEvent {
	s.collectEvents()
	s.Require().NotEmpty(s.events, "no chaincode event emitted")
	return s.events[len(s.events)-1]
}

func (s *ledgerSuite) decodeEvent(name string, v interface{}) {
	event := s.lastEvent()
	s.Require().Equal(name, event.name)
	s.Require().NoError(json.Unmarshal(event.payload, v))
}

// requireCode asserts err carries the given ledger error code.
func (s *ledgerSuite) requireCode(code Code, err error) {
	s.Require().Error(err)
	s.Equal(code, CodeOf(err), err.Error())
}

// bootstrap initialises the registry and verifies one entity per role.
func (s *ledgerSuite) bootstrap() {
	s.Require().NoError(s.registry.InitLedger(s.as(regulatorMSP)))
	for identity, entityType := range map[string]EntityType{
		manufacturerMSP: EntityTypeManufacturer,
		supplierMSP:     EntityTypeSupplier,
		distributorMSP:  EntityTypeDistributor,
		retailerMSP:     EntityTypeRetailer,
	} {
		err := s.registry.VerifyEntity(s.as(regulatorMSP), identity, int(entityType), identity+" Ltd")
		s.Require().NoError(err)
	}
}

func (s *ledgerSuite) createComponent(id string) {
	s.Require().NoError(s.components.CreateComponent(s.as(manufacturerMSP), id, "bearing", "BATCH-7"))
}

func (s *ledgerSuite) createStandard(id string, minScore int) {
	s.Require().NoError(s.quality.CreateQualityStandard(s.as(manufacturerMSP), id, "ISO "+id, minScore, "visual, load test"))
}
