package contracts

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const qualityContract = "Quality"

const batchTestResults = "Batch verification"

// QualityContract keeps quality standards and the per component verification log
type QualityContract struct {
	contractapi.Contract
}

type qualityStandardArgs struct {
	ID             string `arg:"id" validate:"required,max=64"`
	StandardName   string `arg:"name" validate:"required,max=128"`
	MinScore       int    `arg:"minScore" validate:"score"`
	TestProcedures string `arg:"procedures" validate:"max=1024"`
}

type verificationArgs struct {
	ComponentID string `arg:"componentId" validate:"required,max=64"`
	Score       int    `arg:"score" validate:"score"`
	TestResults string `arg:"testResults" validate:"max=1024"`
	StandardID  string `arg:"standardId" validate:"required,max=64"`
	Notes       string `arg:"notes" validate:"max=512"`
}

// verificationBatch caches summaries across one transaction, since reads
// do not observe the transaction's own writes.
type verificationBatch struct {
	ctx       contractapi.TransactionContextInterface
	verifier  string
	standard  *QualityStandard
	now       string
	summaries map[string]*QualitySummary
}

// CreateQualityStandard registers a named pass threshold
func (q *QualityContract) CreateQualityStandard(ctx contractapi.TransactionContextInterface,
	id string, name string, minScore int, procedures string) (err error) {
	defer observe(ctx, qualityContract, "CreateQualityStandard", &err)

	args := qualityStandardArgs{ID: id, StandardName: name, MinScore: minScore, TestProcedures: procedures}
	if err := validateArgs(args); err != nil {
		return err
	}

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	if _, err := requireVerifiedEntity(ctx, caller); err != nil {
		return err
	}

	existing, err := readQualityStandard(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return newError(CodeDuplicateID, "quality standard %s already exists", id)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	standard := &QualityStandard{
		ID:             id,
		StandardName:   name,
		MinScore:       minScore,
		TestProcedures: procedures,
		CreatedBy:      caller,
		CreatedAt:      now,
	}

	key, err := stateKey(ctx, objectTypeQualityStandard, id)
	if err != nil {
		return err
	}
	standardJSON, err := writeState(ctx, key, standard)
	if err != nil {
		return err
	}

	log := txLogger(ctx, qualityContract, "CreateQualityStandard")
	log.Info().Str("standard", id).Int("minScore", minScore).Str("createdBy", caller).Msg("quality standard created")

	return emitEvent(ctx, EventQualityStandardCreated, standardJSON)
}

// GetQualityStandard returns a quality standard
func (q *QualityContract) GetQualityStandard(ctx contractapi.TransactionContextInterface,
	id string) (*QualityStandard, error) {

	standard, err := readQualityStandard(ctx, id)
	if err != nil {
		return nil, err
	}
	if standard == nil {
		return nil, newError(CodeNotFound, "quality standard %s does not exist", id)
	}
	return standard, nil
}

// VerifyComponentQuality appends a verification record and reports whether
// the score meets the standard's minimum
func (q *QualityContract) VerifyComponentQuality(ctx contractapi.TransactionContextInterface,
	componentID string, score int, testResults string, standardID string,
	notes string) (passed bool, err error) {
	defer observe(ctx, qualityContract, "VerifyComponentQuality", &err)

	args := verificationArgs{
		ComponentID: componentID,
		Score:       score,
		TestResults: testResults,
		StandardID:  standardID,
		Notes:       notes,
	}
	if err := validateArgs(args); err != nil {
		return false, err
	}

	batch, err := newVerificationBatch(ctx, standardID)
	if err != nil {
		return false, err
	}
	if err := batch.check(componentID, score); err != nil {
		return false, err
	}

	record, err := batch.record(componentID, score, testResults, notes)
	if err != nil {
		return false, err
	}

	log := txLogger(ctx, qualityContract, "VerifyComponentQuality")
	log.Info().
		Str("component", componentID).
		Str("standard", standardID).
		Int("score", score).
		Int("index", record.Index).
		Bool("passed", record.Passed).
		Msg("component quality verified")

	if err := emitRecordEvent(ctx, EventQualityVerified, record); err != nil {
		return false, err
	}
	return record.Passed, nil
}

// BatchVerifyComponents verifies componentIDs[i] with scores[i] against one
// standard. Every pair is checked before anything is written, so a single
// bad pair rejects the whole batch.
func (q *QualityContract) BatchVerifyComponents(ctx contractapi.TransactionContextInterface,
	componentIDs []string, scores []int, standardID string) (results []bool, err error) {
	defer observe(ctx, qualityContract, "BatchVerifyComponents", &err)

	if len(componentIDs) != len(scores) {
		return nil, newError(CodeLengthMismatch, "%d component ids but %d scores", len(componentIDs), len(scores))
	}

	batch, err := newVerificationBatch(ctx, standardID)
	if err != nil {
		return nil, err
	}

	var (
		failures  *multierror.Error
		firstCode Code
	)
	for i, componentID := range componentIDs {
		err := validateArgs(verificationArgs{ComponentID: componentID, Score: scores[i], StandardID: standardID})
		if err == nil {
			err = batch.check(componentID, scores[i])
		}
		if err != nil {
			if failures == nil {
				firstCode = CodeOf(err)
			}
			failures = multierror.Append(failures, fmt.Errorf("index %d: %w", i, err))
		}
	}
	if failures != nil {
		failures.ErrorFormat = listFailures
		return nil, wrapError(failures, firstCode, "batch rejected, %d of %d entries invalid",
			failures.Len(), len(componentIDs))
	}

	results = make([]bool, 0, len(componentIDs))
	records := make([]*QualityVerificationRecord, 0, len(componentIDs))
	for i, componentID := range componentIDs {
		record, err := batch.record(componentID, scores[i], batchTestResults, "")
		if err != nil {
			return nil, err
		}
		results = append(results, record.Passed)
		records = append(records, record)
	}

	passed := 0
	for _, ok := range results {
		if ok {
			passed++
		}
	}
	log := txLogger(ctx, qualityContract, "BatchVerifyComponents")
	log.Info().
		Str("standard", standardID).
		Int("verified", len(results)).
		Int("passed", passed).
		Msg("batch quality verification recorded")

	if err := emitRecordEvent(ctx, EventBatchQualityVerified, records); err != nil {
		return nil, err
	}
	return results, nil
}

// GetQualityVerification returns the verification record at index (0-based)
func (q *QualityContract) GetQualityVerification(ctx contractapi.TransactionContextInterface,
	componentID string, index int) (*QualityVerificationRecord, error) {

	if index < 0 {
		return nil, newError(CodeNotFound, "component %s has no verification %d", componentID, index)
	}
	key, err := stateKey(ctx, objectTypeQualityRecord, componentID, sequenceKey(index))
	if err != nil {
		return nil, err
	}
	var record QualityVerificationRecord
	found, err := readState(ctx, key, &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newError(CodeNotFound, "component %s has no verification %d", componentID, index)
	}
	return &record, nil
}

// GetVerificationCount returns how many verifications a component has
func (q *QualityContract) GetVerificationCount(ctx contractapi.TransactionContextInterface,
	componentID string) (int, error) {

	summary, err := readQualitySummary(ctx, componentID)
	if err != nil {
		return 0, err
	}
	return summary.Count, nil
}

// IsComponentQualityVerified reports whether any verification of the component passed
func (q *QualityContract) IsComponentQualityVerified(ctx contractapi.TransactionContextInterface,
	componentID string) (bool, error) {

	summary, err := readQualitySummary(ctx, componentID)
	if err != nil {
		return false, err
	}
	return summary.PassedCount > 0, nil
}

// GetLatestQualityScore returns the score of the most recent verification
func (q *QualityContract) GetLatestQualityScore(ctx contractapi.TransactionContextInterface,
	componentID string) (int, error) {

	summary, err := readQualitySummary(ctx, componentID)
	if err != nil {
		return 0, err
	}
	if summary.Count == 0 {
		return 0, newError(CodeNotFound, "component %s has no quality verification", componentID)
	}
	return summary.LatestScore, nil
}

// GetComponentVerifications returns the full verification log of a component
func (q *QualityContract) GetComponentVerifications(ctx contractapi.TransactionContextInterface,
	componentID string) ([]*QualityVerificationRecord, error) {
	return scanState[QualityVerificationRecord](ctx, objectTypeQualityRecord, componentID)
}

func newVerificationBatch(ctx contractapi.TransactionContextInterface, standardID string) (*verificationBatch, error) {
	verifier, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := requireVerifiedEntity(ctx, verifier); err != nil {
		return nil, err
	}

	standard, err := readQualityStandard(ctx, standardID)
	if err != nil {
		return nil, err
	}
	if standard == nil {
		return nil, newError(CodeNotFound, "quality standard %s does not exist", standardID)
	}

	now, err := txTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	return &verificationBatch{
		ctx:       ctx,
		verifier:  verifier,
		standard:  standard,
		now:       now,
		summaries: map[string]*QualitySummary{},
	}, nil
}

// check validates one pair without writing anything.
func (b *verificationBatch) check(componentID string, score int) error {
	if score < minQualityScore || score > maxQualityScore {
		return newError(CodeInvalidScore, "score must be between %d and %d, got %d",
			minQualityScore, maxQualityScore, score)
	}
	if _, err := b.summary(componentID); err != nil {
		return err
	}
	return nil
}

// summary loads the component's rollup once per transaction and fails with
// NOT_FOUND when the component does not exist.
func (b *verificationBatch) summary(componentID string) (*QualitySummary, error) {
	if summary, ok := b.summaries[componentID]; ok {
		return summary, nil
	}
	if _, err := getComponent(b.ctx, componentID); err != nil {
		return nil, err
	}
	summary, err := readQualitySummary(b.ctx, componentID)
	if err != nil {
		return nil, err
	}
	b.summaries[componentID] = summary
	return summary, nil
}

// record appends the next verification of componentID and updates its rollup.
func (b *verificationBatch) record(componentID string, score int, testResults string, notes string) (*QualityVerificationRecord, error) {
	summary, err := b.summary(componentID)
	if err != nil {
		return nil, err
	}

	record := &QualityVerificationRecord{
		ComponentID:           componentID,
		Index:                 summary.Count,
		Verifier:              b.verifier,
		QualityScore:          score,
		TestResults:           testResults,
		CertificationStandard: b.standard.ID,
		VerificationDate:      b.now,
		Passed:                score >= b.standard.MinScore,
		Notes:                 notes,
	}

	key, err := stateKey(b.ctx, objectTypeQualityRecord, componentID, sequenceKey(record.Index))
	if err != nil {
		return nil, err
	}
	if _, err := writeState(b.ctx, key, record); err != nil {
		return nil, err
	}

	summary.Count++
	if record.Passed {
		summary.PassedCount++
	}
	summary.LatestScore = score

	summaryKey, err := stateKey(b.ctx, objectTypeQualitySummary, componentID)
	if err != nil {
		return nil, err
	}
	if _, err := writeState(b.ctx, summaryKey, summary); err != nil {
		return nil, err
	}

	return record, nil
}

func listFailures(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

// Quality queries shared with the other contracts

func readQualityStandard(ctx contractapi.TransactionContextInterface, id string) (*QualityStandard, error) {
	key, err := stateKey(ctx, objectTypeQualityStandard, id)
	if err != nil {
		return nil, err
	}
	var standard QualityStandard
	found, err := readState(ctx, key, &standard)
	if err != nil || !found {
		return nil, err
	}
	return &standard, nil
}

// readQualitySummary returns an empty summary for components never verified.
func readQualitySummary(ctx contractapi.TransactionContextInterface, componentID string) (*QualitySummary, error) {
	key, err := stateKey(ctx, objectTypeQualitySummary, componentID)
	if err != nil {
		return nil, err
	}
	summary := &QualitySummary{ComponentID: componentID}
	if _, err := readState(ctx, key, summary); err != nil {
		return nil, err
	}
	return summary, nil
}
