package presale

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/chain/eth"
)

// Currency is what a purchase is paid with.
type Currency string

// Accepted currencies.
const (
	CurrencyNative Currency = "BNB"
	CurrencyStable Currency = "USDT"
)

// ParseCurrency accepts the currency symbol in any case.
func ParseCurrency(s string) (Currency, bool) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case CurrencyNative:
		return CurrencyNative, true
	case CurrencyStable:
		return CurrencyStable, true
	default:
		return "", false
	}
}

// Asset returns the decimals and symbol of the currency.
func (c Currency) Asset() chain.Asset {
	if c == CurrencyStable {
		return chain.Stable
	}
	return chain.Native
}

// Other returns the other accepted currency.
func (c Currency) Other() Currency {
	if c == CurrencyStable {
		return CurrencyNative
	}
	return CurrencyStable
}

// SaleStatus is the presale window relative to the current time.
type SaleStatus string

// Sale statuses.
const (
	StatusUnknown    SaleStatus = "unknown"
	StatusNotStarted SaleStatus = "not_started"
	StatusActive     SaleStatus = "active"
	StatusEnded      SaleStatus = "ended"
)

// String returns the display form.
func (s SaleStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "Not Started"
	case StatusActive:
		return "Active"
	case StatusEnded:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Field is one on-chain value. Raw is nil when the value was never read;
// Stale marks a value carried over from an earlier refresh because the
// latest read failed (Err).
type Field struct {
	Raw   *big.Int
	Stale bool
	Err   error
}

// Known reports whether the field has a value.
func (f Field) Known() bool {
	return f.Raw != nil
}

// Format renders the value with the given asset's decimals, or "-" when unknown.
func (f Field) Format(a chain.Asset) string {
	if f.Raw == nil {
		return "-"
	}
	return a.Format(f.Raw)
}

// SaleSnapshot is the presale state read at one block.
type SaleSnapshot struct {
	Epoch     uint64
	Block     uint64
	FetchedAt time.Time
	Status    SaleStatus

	StartTime         Field
	EndTime           Field
	TokensAvailable   Field
	TokensSold        Field
	TokensPerNative   Field
	TokensPerStable   Field
	MinPurchaseNative Field
	MaxPurchaseNative Field
	MinPurchaseStable Field
	MaxPurchaseStable Field
}

// Rate returns the tokens-per-unit rate for c.
func (s *SaleSnapshot) Rate(c Currency) Field {
	if c == CurrencyStable {
		return s.TokensPerStable
	}
	return s.TokensPerNative
}

// Limits returns the purchase bounds for c.
func (s *SaleSnapshot) Limits(c Currency) (minimum, maximum Field) {
	if c == CurrencyStable {
		return s.MinPurchaseStable, s.MaxPurchaseStable
	}
	return s.MinPurchaseNative, s.MaxPurchaseNative
}

// Progress returns sold/available as a percentage, 0 when unknown.
func (s *SaleSnapshot) Progress() float64 {
	if !s.TokensSold.Known() || !s.TokensAvailable.Known() || s.TokensAvailable.Raw.Sign() == 0 {
		return 0
	}
	ratio := new(big.Float).Quo(new(big.Float).SetInt(s.TokensSold.Raw), new(big.Float).SetInt(s.TokensAvailable.Raw))
	pct, _ := ratio.Mul(ratio, big.NewFloat(100)).Float64()
	return pct
}

// Stale reports whether any field carries a retained value or is unknown.
func (s *SaleSnapshot) Stale() bool {
	for _, f := range snapshotFields {
		v := f.field(s)
		if v.Stale || !v.Known() {
			return true
		}
	}
	return false
}

// UserPosition holds the balances of one account.
type UserPosition struct {
	Address           common.Address
	Block             uint64
	NativeBalance     *big.Int
	StableBalance     *big.Int
	TokenBalance      *big.Int
	ContributionTotal *big.Int
}

// State is what the dashboard displays: the last applied snapshot and the
// position of the active account, either possibly nil.
type State struct {
	Snapshot *SaleSnapshot
	Position *UserPosition
}

// Contracts are the addresses the presale service talks to.
type Contracts struct {
	Presale common.Address
	Token   common.Address
	Stable  common.Address
}

// snapshotFields maps each presale view to its snapshot field.
//
//nolint:gochecknoglobals // Fixed read batch
var snapshotFields = []struct {
	method string
	field  func(*SaleSnapshot) *Field
}{
	{eth.MethodStartTime, func(s *SaleSnapshot) *Field { return &s.StartTime }},
	{eth.MethodEndTime, func(s *SaleSnapshot) *Field { return &s.EndTime }},
	{eth.MethodTotalTokensSold, func(s *SaleSnapshot) *Field { return &s.TokensSold }},
	{eth.MethodPresaleSupply, func(s *SaleSnapshot) *Field { return &s.TokensAvailable }},
	{eth.MethodTokensPerBNB, func(s *SaleSnapshot) *Field { return &s.TokensPerNative }},
	{eth.MethodTokensPerUSDT, func(s *SaleSnapshot) *Field { return &s.TokensPerStable }},
	{eth.MethodMinPurchaseBNB, func(s *SaleSnapshot) *Field { return &s.MinPurchaseNative }},
	{eth.MethodMaxPurchaseBNB, func(s *SaleSnapshot) *Field { return &s.MaxPurchaseNative }},
	{eth.MethodMinPurchaseUSDT, func(s *SaleSnapshot) *Field { return &s.MinPurchaseStable }},
	{eth.MethodMaxPurchaseUSDT, func(s *SaleSnapshot) *Field { return &s.MaxPurchaseStable }},
}

// statusAt derives the sale status from the time window.
func statusAt(start, end Field, now time.Time) SaleStatus {
	if !start.Known() || !end.Known() {
		return StatusUnknown
	}
	ts := big.NewInt(now.Unix())
	switch {
	case ts.Cmp(start.Raw) < 0:
		return StatusNotStarted
	case ts.Cmp(end.Raw) < 0:
		return StatusActive
	default:
		return StatusEnded
	}
}
