package main

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-lib-go/common/flogging"

	"github.com/pharma-trace/chaincode/pharma-trace/contracts"
)

var logger = flogging.MustGetLogger("pharmatrace")

func newChaincode() (*contractapi.ContractChaincode, error) {
	return contractapi.NewChaincode(
		&contracts.BatchContract{},
		&contracts.RoleContract{},
	)
}

func main() {
	cfg, err := LoadServiceConfig()
	if err != nil {
		logger.Panicf("Error loading chaincode configuration: %v", err)
	}

	// External service mode when a listen address is configured, otherwise
	// run in-process under the peer.
	if cfg.Address != "" {
		if err := RunAsService(cfg); err != nil {
			logger.Panicf("Error running chaincode service: %v", err)
		}
		return
	}

	chaincode, err := newChaincode()
	if err != nil {
		logger.Panicf("Error creating pharma trace chaincode: %v", err)
	}
	if err := chaincode.Start(); err != nil {
		logger.Panicf("Error starting pharma trace chaincode: %v", err)
	}
}
