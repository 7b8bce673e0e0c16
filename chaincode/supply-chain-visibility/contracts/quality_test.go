package contracts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type QualitySuite struct {
	ledgerSuite
}

func TestQualitySuite(t *testing.T) {
	suite.Run(t, new(QualitySuite))
}

func (s *QualitySuite) SetupTest() {
	s.ledgerSuite.SetupTest()
	s.bootstrap()
	s.createComponent("COMP-001")
	s.createComponent("COMP-002")
	s.createComponent("COMP-003")
	s.createStandard("STD-70", 70)
}

func (s *QualitySuite) TestCreateQualityStandard() {
	s.Run("stored with creator", func() {
		standard, err := s.quality.GetQualityStandard(s.as(outsiderMSP), "STD-70")
		s.Require().NoError(err)
		s.Equal(70, standard.MinScore)
		s.Equal(manufacturerMSP, standard.CreatedBy)
		s.Equal("visual, load test", standard.TestProcedures)
	})

	s.Run("bounds accepted", func() {
		s.createStandard("STD-0", 0)
		s.createStandard("STD-100", 100)
	})

	s.Run("score out of range", func() {
		err := s.quality.CreateQualityStandard(s.as(manufacturerMSP), "STD-X", "broken", 101, "")
		s.requireCode(CodeInvalidScore, err)
		err = s.quality.CreateQualityStandard(s.as(manufacturerMSP), "STD-X", "broken", -1, "")
		s.requireCode(CodeInvalidScore, err)
	})

	s.Run("duplicate id", func() {
		err := s.quality.CreateQualityStandard(s.as(supplierMSP), "STD-70", "again", 50, "")
		s.requireCode(CodeDuplicateID, err)
	})

	s.Run("unverified caller", func() {
		err := s.quality.CreateQualityStandard(s.as(outsiderMSP), "STD-Y", "mine", 50, "")
		s.requireCode(CodeEntityNotVerified, err)
	})

	s.Run("unknown standard", func() {
		_, err := s.quality.GetQualityStandard(s.as(outsiderMSP), "STD-404")
		s.requireCode(CodeNotFound, err)
	})
}

func (s *QualitySuite) TestPassThreshold() {
	cases := []struct {
		score  int
		passed bool
	}{
		{70, true},
		{69, false},
		{100, true},
		{1, false},
		{0, false},
	}

	for i, tc := range cases {
		passed, err := s.quality.VerifyComponentQuality(s.as(supplierMSP), "COMP-001", tc.score, "run", "STD-70", "")
		s.Require().NoError(err)
		s.Equal(tc.passed, passed, "score %d", tc.score)

		record, err := s.quality.GetQualityVerification(s.as(outsiderMSP), "COMP-001", i)
		s.Require().NoError(err)
		s.Equal(i, record.Index)
		s.Equal(tc.score, record.QualityScore)
		s.Equal(tc.passed, record.Passed)
		s.Equal(supplierMSP, record.Verifier)
		s.Equal("STD-70", record.CertificationStandard)
	}

	count, err := s.quality.GetVerificationCount(s.as(outsiderMSP), "COMP-001")
	s.Require().NoError(err)
	s.Equal(len(cases), count)

	latest, err := s.quality.GetLatestQualityScore(s.as(outsiderMSP), "COMP-001")
	s.Require().NoError(err)
	s.Equal(0, latest)

	verified, err := s.quality.IsComponentQualityVerified(s.as(outsiderMSP), "COMP-001")
	s.Require().NoError(err)
	s.True(verified)

	trail, err := s.quality.GetComponentVerifications(s.as(outsiderMSP), "COMP-001")
	s.Require().NoError(err)
	s.Len(trail, len(cases))
}

func (s *QualitySuite) TestVerifyRejections() {
	s.Run("score out of range", func() {
		_, err := s.quality.VerifyComponentQuality(s.as(supplierMSP), "COMP-001", 101, "", "STD-70", "")
		s.requireCode(CodeInvalidScore, err)
		_, err = s.quality.VerifyComponentQuality(s.as(supplierMSP), "COMP-001", -5, "", "STD-70", "")
		s.requireCode(CodeInvalidScore, err)
	})

	s.Run("unknown standard", func() {
		_, err := s.quality.VerifyComponentQuality(s.as(supplierMSP), "COMP-001", 80, "", "STD-404", "")
		s.requireCode(CodeNotFound, err)
	})

	s.Run("unknown component", func() {
		_, err := s.quality.VerifyComponentQuality(s.as(supplierMSP), "COMP-404", 80, "", "STD-70", "")
		s.requireCode(CodeNotFound, err)
	})

	s.Run("unverified verifier", func() {
		_, err := s.quality.VerifyComponentQuality(s.as(outsiderMSP), "COMP-001", 80, "", "STD-70", "")
		s.requireCode(CodeEntityNotVerified, err)
	})

	count, err := s.quality.GetVerificationCount(s.as(outsiderMSP), "COMP-001")
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *QualitySuite) TestUnverifiedComponentQueries() {
	verified, err := s.quality.IsComponentQualityVerified(s.as(outsiderMSP), "COMP-001")
	s.Require().NoError(err)
	s.False(verified)

	_, err = s.quality.GetLatestQualityScore(s.as(outsiderMSP), "COMP-001")
	s.requireCode(CodeNotFound, err)

	_, err = s.quality.GetQualityVerification(s.as(outsiderMSP), "COMP-001", 0)
	s.requireCode(CodeNotFound, err)
}

func (s *QualitySuite) TestBatchVerify() {
	results, err := s.quality.BatchVerifyComponents(s.as(distributorMSP),
		[]string{"COMP-001", "COMP-002", "COMP-003"}, []int{85, 92, 68}, "STD-70")
	s.Require().NoError(err)
	s.Equal([]bool{true, true, false}, results)

	var records []QualityVerificationRecord
	s.decodeEvent(EventBatchQualityVerified, &records)
	s.Len(records, 3)

	for i, id := range []string{"COMP-001", "COMP-002", "COMP-003"} {
		record, err := s.quality.GetQualityVerification(s.as(outsiderMSP), id, 0)
		s.Require().NoError(err)
		s.Equal(results[i], record.Passed)
		s.Equal(batchTestResults, record.TestResults)
		s.Equal(distributorMSP, record.Verifier)
	}

	s.Run("matches single verification", func() {
		single, err := s.quality.VerifyComponentQuality(s.as(distributorMSP), "COMP-003", 68, "", "STD-70", "")
		s.Require().NoError(err)
		s.Equal(results[2], single)
	})
}

func (s *QualitySuite) TestBatchRepeatsComponent() {
	results, err := s.quality.BatchVerifyComponents(s.as(distributorMSP),
		[]string{"COMP-001", "COMP-001"}, []int{40, 75}, "STD-70")
	s.Require().NoError(err)
	s.Equal([]bool{false, true}, results)

	count, err := s.quality.GetVerificationCount(s.as(outsiderMSP), "COMP-001")
	s.Require().NoError(err)
	s.Equal(2, count)

	latest, err := s.quality.GetLatestQualityScore(s.as(outsiderMSP), "COMP-001")
	s.Require().NoError(err)
	s.Equal(75, latest)

	second, err := s.quality.GetQualityVerification(s.as(outsiderMSP), "COMP-001", 1)
	s.Require().NoError(err)
	s.Equal(1, second.Index)
}

func (s *QualitySuite) TestBatchRejections() {
	s.Run("length mismatch", func() {
		_, err := s.quality.BatchVerifyComponents(s.as(distributorMSP),
			[]string{"COMP-001", "COMP-002"}, []int{85}, "STD-70")
		s.requireCode(CodeLengthMismatch, err)
	})

	s.Run("invalid entries abort the whole batch", func() {
		_, err := s.quality.BatchVerifyComponents(s.as(distributorMSP),
			[]string{"COMP-001", "COMP-404", "COMP-003"}, []int{85, 90, 120}, "STD-70")
		s.requireCode(CodeNotFound, err)
		s.True(errors.Is(err, ErrNotFound))
		s.Contains(err.Error(), "index 1")
		s.Contains(err.Error(), "index 2")
		s.NotContains(err.Error(), "index 0")

		for _, id := range []string{"COMP-001", "COMP-003"} {
			count, err := s.quality.GetVerificationCount(s.as(outsiderMSP), id)
			s.Require().NoError(err)
			s.Equal(0, count, id)
		}
	})

	s.Run("first failure decides the code", func() {
		_, err := s.quality.BatchVerifyComponents(s.as(distributorMSP),
			[]string{"COMP-001", "COMP-404"}, []int{-1, 90}, "STD-70")
		s.requireCode(CodeInvalidScore, err)
	})

	s.Run("unknown standard", func() {
		_, err := s.quality.BatchVerifyComponents(s.as(distributorMSP),
			[]string{"COMP-001"}, []int{85}, "STD-404")
		s.requireCode(CodeNotFound, err)
	})

	s.Run("unverified verifier", func() {
		_, err := s.quality.BatchVerifyComponents(s.as(outsiderMSP),
			[]string{"COMP-001"}, []int{85}, "STD-70")
		s.requireCode(CodeEntityNotVerified, err)
	})
}
