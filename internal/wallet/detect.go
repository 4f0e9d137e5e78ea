package wallet

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Provider selection modes.
const (
	ModeAuto     = "auto"
	ModeRPC      = "rpc"
	ModeKeystore = "keystore"
)

// detectTimeout bounds the signer check so a missing signer fails fast.
const detectTimeout = 3 * time.Second

// DetectConfig describes where to look for a wallet.
type DetectConfig struct {
	Mode         string
	SignerURL    string
	KeystoreDir  string
	PollInterval time.Duration
	Node         Node
	Prompter     PassphrasePrompter
	Logger       LogWriter
}

// DetectProvider finds a usable wallet. It never reports why detection
// failed beyond the debug log; callers show the installation prompt.
// In auto mode a reachable signer wins over a keystore with accounts.
func DetectProvider(ctx context.Context, cfg DetectConfig) (Provider, bool) {
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	mode := cfg.Mode
	if mode == "" {
		mode = ModeAuto
	}

	if mode == ModeAuto || mode == ModeRPC {
		if p := dialSigner(ctx, cfg, logger); p != nil {
			return p, true
		}
		if mode == ModeRPC {
			return nil, false
		}
	}

	if cfg.KeystoreDir == "" {
		return nil, false
	}
	p, err := NewKeystoreProvider(cfg.KeystoreDir, cfg.Node, cfg.Prompter)
	if err != nil {
		logger.Debug("keystore provider unavailable: %v", err)
		return nil, false
	}
	if mode == ModeAuto && !p.HasAccounts() {
		logger.Debug("keystore %s has no accounts", cfg.KeystoreDir)
		p.Close()
		return nil, false
	}
	return p, true
}

func dialSigner(ctx context.Context, cfg DetectConfig, logger LogWriter) Provider {
	if cfg.SignerURL == "" {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	p, err := DialRPCProvider(dialCtx, cfg.SignerURL, cfg.PollInterval)
	if err != nil {
		logger.Debug("signer %s unreachable: %v", cfg.SignerURL, err)
		return nil
	}

	var id hexutil.Big
	if err := p.Request(dialCtx, &id, MethodChainID); err != nil {
		logger.Debug("signer %s did not answer %s: %v", cfg.SignerURL, MethodChainID, err)
		p.Close()
		return nil
	}
	return p
}
