package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hamidayaqub0/Decentralized-Manufacturing-Supply-Chain-Visibility/chaincode/supply-chain-visibility/contracts"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func newChaincode() (*contractapi.ContractChaincode, error) {
	return contractapi.NewChaincode(
		&contracts.EntityRegistryContract{},
		&contracts.ComponentContract{},
		&contracts.DeliveryContract{},
		&contracts.QualityContract{},
	)
}

func run(cfg *config, log zerolog.Logger) error {
	contracts.SetLogger(log)

	cc, err := newChaincode()
	if err != nil {
		return fmt.Errorf("error creating supply chain visibility chaincode: %w", err)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	if cfg.ServerAddress == "" {
		log.Info().Msg("starting chaincode under the peer")
		if err := cc.Start(); err != nil {
			return fmt.Errorf("error starting supply chain visibility chaincode: %w", err)
		}
		return nil
	}

	return runAsService(cfg, cc, log)
}

// runAsService runs the chaincode as an external service the peer dials
func runAsService(cfg *config, cc *contractapi.ContractChaincode, log zerolog.Logger) error {
	tlsProps, err := loadTLSProperties(cfg)
	if err != nil {
		return err
	}

	server := &shim.ChaincodeServer{
		CCID:     cfg.ChaincodeID,
		Address:  cfg.ServerAddress,
		CC:       cc,
		TLSProps: tlsProps,
	}

	log.Info().
		Str("address", cfg.ServerAddress).
		Str("ccid", cfg.ChaincodeID).
		Bool("tls", !tlsProps.Disabled).
		Msg("starting external chaincode server")

	if err := server.Start(); err != nil {
		return fmt.Errorf("error starting supply chain visibility chaincode server: %w", err)
	}
	return nil
}

func loadTLSProperties(cfg *config) (shim.TLSProperties, error) {
	if cfg.TLSDisabled {
		return shim.TLSProperties{Disabled: true}, nil
	}

	key, err := os.ReadFile(cfg.TLSKeyFile)
	if err != nil {
		return shim.TLSProperties{}, fmt.Errorf("failed to read TLS key: %w", err)
	}
	cert, err := os.ReadFile(cfg.TLSCertFile)
	if err != nil {
		return shim.TLSProperties{}, fmt.Errorf("failed to read TLS certificate: %w", err)
	}

	props := shim.TLSProperties{Key: key, Cert: cert}
	if cfg.ClientCAFile != "" {
		props.ClientCACerts, err = os.ReadFile(cfg.ClientCAFile)
		if err != nil {
			return shim.TLSProperties{}, fmt.Errorf("failed to read TLS client CA: %w", err)
		}
	}
	return props, nil
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("address", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
