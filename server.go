package main

import (
	"os"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/pkg/errors"
)

// RunAsService runs the chaincode as an external service listening on the
// configured address.
func RunAsService(cfg *ServiceConfig) error {
	if cfg.CCID == "" {
		return errors.New("service mode requires a chaincode ID (CHAINCODE_ID or ccid)")
	}

	cc, err := newChaincode()
	if err != nil {
		return errors.Wrap(err, "creating chaincode")
	}

	tlsProps, err := tlsProperties(cfg.TLS)
	if err != nil {
		return err
	}

	server := &shim.ChaincodeServer{
		CCID:     cfg.CCID,
		Address:  cfg.Address,
		CC:       cc,
		TLSProps: tlsProps,
	}

	logger.Infow("starting chaincode service", "address", cfg.Address, "ccid", cfg.CCID, "tls", !cfg.TLS.Disabled)
	return errors.Wrap(server.Start(), "chaincode server")
}

func tlsProperties(cfg TLSConfig) (shim.TLSProperties, error) {
	if cfg.Disabled {
		return shim.TLSProperties{Disabled: true}, nil
	}

	key, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return shim.TLSProperties{}, errors.Wrapf(err, "reading TLS key %s", cfg.KeyFile)
	}
	cert, err := os.ReadFile(cfg.CertFile)
	if err != nil {
		return shim.TLSProperties{}, errors.Wrapf(err, "reading TLS cert %s", cfg.CertFile)
	}
	props := shim.TLSProperties{Key: key, Cert: cert}
	if cfg.ClientAuthRequired {
		ca, err := os.ReadFile(cfg.ClientCACertFile)
		if err != nil {
			return shim.TLSProperties{}, errors.Wrapf(err, "reading client CA cert %s", cfg.ClientCACertFile)
		}
		props.ClientCACerts = ca
	}
	return props, nil
}
