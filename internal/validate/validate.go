// Package validate translates external order submissions into canonical
// model.Order values, rejecting malformed or oversized input before it
// ever reaches an order book. Struct-tag validation is grounded on
// abdoElHodaky-tradSys's internal/validation/validator.go; per-user rate
// limiting is grounded on the same repo's internal/trading/mitigation/rate_limiter.go.
package validate

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/latticefi/matching-engine/internal/apperrors"
	"github.com/latticefi/matching-engine/internal/model"
)

// SubmitOrderRequest is the wire shape accepted by the intake surface,
// before translation into a model.Order.
type SubmitOrderRequest struct {
	ClientOrderID string  `json:"client_order_id" validate:"omitempty,max=64"`
	UserID        string  `json:"user_id" validate:"required,uuid"`
	Symbol        string  `json:"symbol" validate:"required"`
	Side          string  `json:"side" validate:"required,oneof=buy sell"`
	OrderType     string  `json:"order_type" validate:"required,oneof=market limit stop_limit stop_market"`
	TimeInForce   string  `json:"time_in_force" validate:"omitempty,oneof=GTC IOC FOK GTD"`
	Price         string  `json:"price" validate:"omitempty,decimal_positive"`
	Quantity      string  `json:"quantity" validate:"required,decimal_positive"`
	ExpiresAt     *time.Time `json:"expires_at" validate:"omitempty"`
}

// Validator validates intake requests and enforces a per-user token
// bucket before handing a canonical order to the engine.
type Validator struct {
	v *validator.Validate

	ratePerSecond float64
	rateBurst     int

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
}

// New constructs a Validator. ratePerSecond/rateBurst configure the
// token bucket each distinct user is given (spec.md §6).
func New(ratePerSecond float64, rateBurst int) *Validator {
	v := validator.New()
	v.RegisterValidation("decimal_positive", validateDecimalPositive)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		v:             v,
		ratePerSecond: ratePerSecond,
		rateBurst:     rateBurst,
		limiters:      make(map[uuid.UUID]*rate.Limiter),
	}
}

func validateDecimalPositive(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return d.GreaterThan(decimal.Zero)
}

// ToOrder validates req and, if valid, returns the canonical order ready
// for OrderBook.ProcessOrder. RemainingQuantity is seeded equal to
// Quantity, matching the contract ProcessOrder expects of a fresh order.
func (val *Validator) ToOrder(req SubmitOrderRequest) (*model.Order, error) {
	if err := val.v.Struct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidQuantity, formatValidationError(err), err)
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidQuantity, "user_id must be a valid uuid", err)
	}

	symbol := model.Symbol(strings.ToUpper(req.Symbol))
	if !symbol.Valid() {
		return nil, apperrors.New(apperrors.KindInvalidSymbol, "symbol must be BASE-QUOTE, e.g. ETH-USDT")
	}

	side := model.Buy
	if req.Side == "sell" {
		side = model.Sell
	}

	var orderType model.OrderType
	switch req.OrderType {
	case "market":
		orderType = model.Market
	case "limit":
		orderType = model.Limit
	case "stop_limit":
		orderType = model.StopLimit
	case "stop_market":
		orderType = model.StopMarket
	}
	if orderType.IsStop() {
		return nil, apperrors.New(apperrors.KindUnsupportedOp, "stop orders are not yet supported")
	}

	tif := model.GTC
	switch req.TimeInForce {
	case "IOC":
		tif = model.IOC
	case "FOK":
		tif = model.FOK
	case "GTD":
		tif = model.GTD
	}

	if orderType.HasLimitPrice() && req.Price == "" {
		return nil, apperrors.New(apperrors.KindPriceRequired, "price is required for limit orders")
	}
	if tif == model.GTD && req.ExpiresAt == nil {
		return nil, apperrors.New(apperrors.KindInvalidQuantity, "expires_at is required for GTD orders")
	}

	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil || qty.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.New(apperrors.KindInvalidQuantity, "quantity must be a positive decimal")
	}

	order := &model.Order{
		ID:                uuid.New(),
		ClientOrderID:     req.ClientOrderID,
		UserID:            userID,
		Symbol:            symbol,
		Side:              side,
		OrderType:         orderType,
		TimeInForce:       tif,
		Status:            model.Pending,
		Quantity:          qty,
		RemainingQuantity: qty,
		ExpiresAt:         req.ExpiresAt,
	}
	if orderType.HasLimitPrice() {
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.LessThanOrEqual(decimal.Zero) {
			return nil, apperrors.New(apperrors.KindInvalidPrice, "price must be a positive decimal")
		}
		order.Price = &price
	}

	return order, nil
}

// Allow reports whether userID may submit another command right now,
// consuming one token from its bucket if so.
func (val *Validator) Allow(userID uuid.UUID) bool {
	return val.limiterFor(userID).Allow()
}

func (val *Validator) limiterFor(userID uuid.UUID) *rate.Limiter {
	val.mu.Lock()
	defer val.mu.Unlock()

	l, ok := val.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(val.ratePerSecond), val.rateBurst)
		val.limiters[userID] = l
	}
	return l
}

func formatValidationError(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag()))
	}
	return strings.Join(msgs, "; ")
}
