package contracts

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const resultOK = "OK"

var (
	logger = zerolog.Nop()

	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "supply_chain_visibility",
		Name:      "transactions_total",
		Help:      "number of ledger write transactions by contract, operation and result code",
	}, []string{"contract", "operation", "result"})
)

// SetLogger replaces the package logger used by every contract.
func SetLogger(l zerolog.Logger) {
	logger = l.With().Str("module", "contracts").Logger()
}

// txLogger carries the transaction id on every line.
func txLogger(ctx contractapi.TransactionContextInterface, contract string, operation string) zerolog.Logger {
	return logger.With().
		Str("contract", contract).
		Str("operation", operation).
		Str("txId", ctx.GetStub().GetTxID()).
		Logger()
}

// observe records the outcome of a write transaction. Call it deferred with
// a pointer to the named error result.
func observe(ctx contractapi.TransactionContextInterface, contract string, operation string, errp *error) {
	result := resultOK
	if *errp != nil {
		result = string(CodeOf(*errp))
		log := txLogger(ctx, contract, operation)
		log.Debug().Str("code", result).Err(*errp).Msg("transaction rejected")
	}
	transactionsTotal.WithLabelValues(contract, operation, result).Inc()
}
