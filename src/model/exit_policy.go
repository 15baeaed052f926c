package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PolicyKind string

const (
	PolicyTakeProfit   PolicyKind = "take_profit"
	PolicyStopLoss     PolicyKind = "stop_loss"
	PolicyTrailingStop PolicyKind = "trailing_stop"
	PolicyAutoClose    PolicyKind = "auto_close"
	PolicySecure       PolicyKind = "secure"
)

// ExitPolicy is the parameter set of the policy that produced a decision.
type ExitPolicy interface {
	Kind() PolicyKind
}

type TakeProfitPolicy struct {
	ThresholdPct decimal.Decimal `json:"threshold_pct"`
	EpsilonPct   decimal.Decimal `json:"epsilon_pct"`
	MinHoldMs    int64           `json:"min_hold_ms"`
}

type StopLossPolicy struct {
	ThresholdPct decimal.Decimal `json:"threshold_pct"`
	EpsilonPct   decimal.Decimal `json:"epsilon_pct"`
}

type TrailingStopPolicy struct {
	TrailPct       decimal.Decimal `json:"trail_pct"`
	HighWaterPrice decimal.Decimal `json:"high_water_price"`
	StopPrice      decimal.Decimal `json:"stop_price"`
}

type AutoClosePolicy struct {
	AfterHours decimal.Decimal `json:"after_hours"`
}

type SecurePolicy struct {
	SecurePct       decimal.Decimal `json:"secure_pct"`
	SecureTpPct     decimal.Decimal `json:"secure_tp_pct"`
	SecureFilledQty decimal.Decimal `json:"secure_filled_qty"`
}

func (TakeProfitPolicy) Kind() PolicyKind   { return PolicyTakeProfit }
func (StopLossPolicy) Kind() PolicyKind     { return PolicyStopLoss }
func (TrailingStopPolicy) Kind() PolicyKind { return PolicyTrailingStop }
func (AutoClosePolicy) Kind() PolicyKind    { return PolicyAutoClose }
func (SecurePolicy) Kind() PolicyKind       { return PolicySecure }

type policyEnvelope struct {
	Kind   PolicyKind      `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// EncodePolicy wraps p as {"kind": ..., "params": {...}}. A nil policy encodes to nil.
func EncodePolicy(p ExitPolicy) (datatypes.JSON, error) {
	if p == nil {
		return nil, nil
	}
	params, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s policy: %w", p.Kind(), err)
	}
	raw, err := json.Marshal(policyEnvelope{Kind: p.Kind(), Params: params})
	if err != nil {
		return nil, fmt.Errorf("encode %s policy envelope: %w", p.Kind(), err)
	}
	return datatypes.JSON(raw), nil
}

// DecodePolicy is the inverse of EncodePolicy.
func DecodePolicy(raw datatypes.JSON) (ExitPolicy, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var env policyEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode policy envelope: %w", err)
	}

	var p ExitPolicy
	switch env.Kind {
	case PolicyTakeProfit:
		var v TakeProfitPolicy
		if err := json.Unmarshal(env.Params, &v); err != nil {
			return nil, err
		}
		p = v
	case PolicyStopLoss:
		var v StopLossPolicy
		if err := json.Unmarshal(env.Params, &v); err != nil {
			return nil, err
		}
		p = v
	case PolicyTrailingStop:
		var v TrailingStopPolicy
		if err := json.Unmarshal(env.Params, &v); err != nil {
			return nil, err
		}
		p = v
	case PolicyAutoClose:
		var v AutoClosePolicy
		if err := json.Unmarshal(env.Params, &v); err != nil {
			return nil, err
		}
		p = v
	case PolicySecure:
		var v SecurePolicy
		if err := json.Unmarshal(env.Params, &v); err != nil {
			return nil, err
		}
		p = v
	default:
		return nil, fmt.Errorf("unknown policy kind %q", env.Kind)
	}
	return p, nil
}
