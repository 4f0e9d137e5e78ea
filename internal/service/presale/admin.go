package presale

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/service/transaction"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Accepted end time layouts, the second being what a datetime-local input
// produces.
//
//nolint:gochecknoglobals // Fixed layout list
var endTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04"}

// PresaleSettings are the values the owner can (re)start the sale with.
// Rates are token units per whole paying unit at 18 decimals; limits are in
// the paying currency's smallest unit.
type PresaleSettings struct {
	EndTime           time.Time
	TokensPerNative   *big.Int
	TokensPerStable   *big.Int
	MinPurchaseNative *big.Int
	MaxPurchaseNative *big.Int
	MinPurchaseStable *big.Int
	MaxPurchaseStable *big.Int
}

// SettingsInput is the owner form as typed.
type SettingsInput struct {
	EndTime           string
	TokensPerNative   string
	TokensPerStable   string
	MinPurchaseNative string
	MaxPurchaseNative string
	MinPurchaseStable string
	MaxPurchaseStable string
}

// ParseSettings converts the owner form into contract units.
func ParseSettings(in SettingsInput) (*PresaleSettings, error) {
	end, err := parseEndTime(in.EndTime)
	if err != nil {
		return nil, err
	}

	s := &PresaleSettings{EndTime: end}
	fields := []struct {
		name   string
		value  string
		places int
		target **big.Int
	}{
		{eth.MethodTokensPerBNB, in.TokensPerNative, chain.RateDecimals, &s.TokensPerNative},
		{eth.MethodTokensPerUSDT, in.TokensPerStable, chain.RateDecimals, &s.TokensPerStable},
		{eth.MethodMinPurchaseBNB, in.MinPurchaseNative, chain.Native.Decimals, &s.MinPurchaseNative},
		{eth.MethodMaxPurchaseBNB, in.MaxPurchaseNative, chain.Native.Decimals, &s.MaxPurchaseNative},
		{eth.MethodMinPurchaseUSDT, in.MinPurchaseStable, chain.Stable.Decimals, &s.MinPurchaseStable},
		{eth.MethodMaxPurchaseUSDT, in.MaxPurchaseStable, chain.Stable.Decimals, &s.MaxPurchaseStable},
	}
	for _, f := range fields {
		v, err := chain.ParseDecimalAmount(f.value, f.places)
		if err != nil {
			return nil, uwerr.WithDetails(uwerr.ErrInvalidInput, map[string]string{
				"field": f.name,
				"value": f.value,
			})
		}
		*f.target = v
	}
	return s, nil
}

func parseEndTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range endTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, uwerr.WithDetails(uwerr.ErrInvalidInput, map[string]string{
		"field": eth.MethodEndTime,
		"value": s,
	})
}

// Check validates the settings against now.
func (s *PresaleSettings) Check(now time.Time) error {
	invalid := func(field, reason string) error {
		return uwerr.WithDetails(uwerr.ErrInvalidInput, map[string]string{"field": field, "reason": reason})
	}

	if !s.EndTime.After(now) {
		return invalid(eth.MethodEndTime, "end time must be in the future")
	}
	if s.TokensPerNative == nil || s.TokensPerNative.Sign() <= 0 {
		return invalid(eth.MethodTokensPerBNB, "rate must be positive")
	}
	if s.TokensPerStable == nil || s.TokensPerStable.Sign() <= 0 {
		return invalid(eth.MethodTokensPerUSDT, "rate must be positive")
	}
	for _, pair := range []struct {
		field    string
		min, max *big.Int
	}{
		{eth.MethodMinPurchaseBNB, s.MinPurchaseNative, s.MaxPurchaseNative},
		{eth.MethodMinPurchaseUSDT, s.MinPurchaseStable, s.MaxPurchaseStable},
	} {
		if pair.min == nil || pair.max == nil || pair.min.Sign() < 0 {
			return invalid(pair.field, "limits are required")
		}
		if pair.min.Cmp(pair.max) > 0 {
			return invalid(pair.field, "minimum exceeds maximum")
		}
	}
	return nil
}

// SettingsView is the current configuration as read from the contract.
type SettingsView struct {
	Block             uint64
	Status            SaleStatus
	EndTime           Field
	TokensPerNative   Field
	TokensPerStable   Field
	MinPurchaseNative Field
	MaxPurchaseNative Field
	MinPurchaseStable Field
	MaxPurchaseStable Field
}

// AdminConfig holds dependencies for owner administration.
type AdminConfig struct {
	Wallet     Wallet
	Reader     *Reader
	Transactor Transactor
	Logger     LogWriter
	Now        func() time.Time

	// Refresher, when set, serves CurrentSettings so owner reads share the
	// dashboard's refresh ordering.
	Refresher *Refresher
}

// Admin performs owner-only presale operations. Every operation checks
// ownership on chain first.
type Admin struct {
	wallet    Wallet
	reader    *Reader
	refresher *Refresher
	tx        Transactor
	logger    LogWriter
	now       func() time.Time
}

// NewAdmin creates the owner administration service.
func NewAdmin(cfg *AdminConfig) *Admin {
	a := &Admin{
		wallet:    cfg.Wallet,
		reader:    cfg.Reader,
		refresher: cfg.Refresher,
		tx:        cfg.Transactor,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if a.logger == nil {
		a.logger = nopLogger{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// IsOwner reports whether address owns the presale contract.
func (a *Admin) IsOwner(ctx context.Context, address common.Address) (bool, error) {
	owner, err := a.reader.Presale().CallAddress(ctx, nil, eth.MethodOwner)
	if err != nil {
		return false, uwerr.WithDetails(uwerr.WithCause(uwerr.ErrReadFailure, err), map[string]string{
			"field": eth.MethodOwner,
		})
	}
	return owner == address, nil
}

// RequireOwner returns NotOwner unless the active account owns the presale.
func (a *Admin) RequireOwner(ctx context.Context) (common.Address, error) {
	account, err := a.wallet.ActiveAddress()
	if err != nil {
		return common.Address{}, err
	}
	ok, err := a.IsOwner(ctx, account)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, uwerr.WithDetails(uwerr.ErrNotOwner, map[string]string{"address": account.Hex()})
	}
	return account, nil
}

// CurrentSettings reads the configurable presale values. Fields that cannot
// be read are left unknown. With a refresher the values come from a fresh
// applied refresh, so they are never older than the dashboard's.
func (a *Admin) CurrentSettings(ctx context.Context) (*SettingsView, error) {
	snap, err := a.currentSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsView{
		Block:             snap.Block,
		Status:            snap.Status,
		EndTime:           snap.EndTime,
		TokensPerNative:   snap.TokensPerNative,
		TokensPerStable:   snap.TokensPerStable,
		MinPurchaseNative: snap.MinPurchaseNative,
		MaxPurchaseNative: snap.MaxPurchaseNative,
		MinPurchaseStable: snap.MinPurchaseStable,
		MaxPurchaseStable: snap.MaxPurchaseStable,
	}, nil
}

func (a *Admin) currentSnapshot(ctx context.Context) (*SaleSnapshot, error) {
	if a.refresher == nil {
		return a.reader.FetchSaleSnapshot(ctx)
	}
	if err := a.refresher.RefreshNow(ctx); err != nil {
		return nil, err
	}
	if snap := a.refresher.State().Snapshot; snap != nil {
		return snap, nil
	}
	// Stopped before anything was applied.
	return a.reader.FetchSaleSnapshot(ctx)
}

// UpdatePresale starts (or restarts) the sale with s.
func (a *Admin) UpdatePresale(ctx context.Context, s *PresaleSettings) (*types.Receipt, error) {
	if err := s.Check(a.now()); err != nil {
		return nil, err
	}
	return a.ownerCall(ctx, transaction.KindAdminUpdate, eth.MethodStartPresale,
		big.NewInt(s.EndTime.Unix()),
		s.TokensPerNative, s.TokensPerStable,
		s.MinPurchaseNative, s.MaxPurchaseNative,
		s.MinPurchaseStable, s.MaxPurchaseStable,
	)
}

// WithdrawRemainingTokens returns the unsold tokens to the owner.
func (a *Admin) WithdrawRemainingTokens(ctx context.Context) (*types.Receipt, error) {
	return a.ownerCall(ctx, transaction.KindWithdraw, eth.MethodWithdrawRemaining)
}

// WithdrawNative moves the collected native currency to the owner.
func (a *Admin) WithdrawNative(ctx context.Context) (*types.Receipt, error) {
	return a.ownerCall(ctx, transaction.KindWithdraw, eth.MethodWithdrawBNB)
}

// WithdrawStable moves the collected stablecoin to the owner.
func (a *Admin) WithdrawStable(ctx context.Context) (*types.Receipt, error) {
	return a.ownerCall(ctx, transaction.KindWithdraw, eth.MethodWithdrawUSDT)
}

func (a *Admin) ownerCall(ctx context.Context, kind transaction.Kind, method string, args ...any) (*types.Receipt, error) {
	if err := a.wallet.RequireChain(ctx); err != nil {
		return nil, err
	}
	if _, err := a.RequireOwner(ctx); err != nil {
		return nil, err
	}

	presale := a.reader.Presale()
	data, err := presale.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("owner call %s", method)
	return a.tx.Submit(ctx, kind, transaction.Send(a.wallet, presale.Address(), nil, data, 0))
}
