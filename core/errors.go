package core

import "errors"

// ErrorCode is a named failure kind. Handlers wrap a code with context via
// fmt.Errorf("...: %w", code) so callers can match it with errors.Is.
type ErrorCode int

const (
	// ErrUnknown is the kind reported for failures that carry no code.
	ErrUnknown ErrorCode = 100000
	// ErrNotFound a requested record does not exist
	ErrNotFound ErrorCode = 100001
	// ErrInvalidArguments length or format violation
	ErrInvalidArguments ErrorCode = 100002
	// ErrUnauthorized caller lacks the required ownership or grant
	ErrUnauthorized ErrorCode = 100003
	// ErrRelationMismatch records reference inconsistent keys
	ErrRelationMismatch ErrorCode = 100004
	// ErrAlreadyExists duplicate creation
	ErrAlreadyExists ErrorCode = 100005
	// ErrAlreadyBound holder authority bound to another holder
	ErrAlreadyBound ErrorCode = 100006
	// ErrArithmeticOverflow u64 overflow in collateral or counter math
	ErrArithmeticOverflow ErrorCode = 100007
	// ErrTransferRestricted asset trade flag is off
	ErrTransferRestricted ErrorCode = 100008
	// ErrConflict a versioned record changed underneath the writer
	ErrConflict ErrorCode = 100009

	// ErrMintFailed ledger mint or collateral transfer failed
	ErrMintFailed ErrorCode = 100100
	// ErrTransferFailed ledger transfer failed
	ErrTransferFailed ErrorCode = 100101
	// ErrPaymentFailed buy leg A failed
	ErrPaymentFailed ErrorCode = 100102
	// ErrSettlementFailed buy leg B failed
	ErrSettlementFailed ErrorCode = 100103

	// ErrSaleNotFound no sale for the listing id
	ErrSaleNotFound ErrorCode = 100200
	// ErrAlreadySettled sale already left the open state
	ErrAlreadySettled ErrorCode = 100201
	// ErrMarketplaceNotInitialized the marketplace singleton is missing
	ErrMarketplaceNotInitialized ErrorCode = 100202
)

var errorNames = map[ErrorCode]string{
	ErrUnknown:                   "unknown",
	ErrNotFound:                  "not_found",
	ErrInvalidArguments:          "invalid_arguments",
	ErrUnauthorized:              "unauthorized",
	ErrRelationMismatch:          "relation_mismatch",
	ErrAlreadyExists:             "already_exists",
	ErrAlreadyBound:              "already_bound",
	ErrArithmeticOverflow:        "arithmetic_overflow",
	ErrTransferRestricted:        "transfer_restricted",
	ErrConflict:                  "conflict",
	ErrMintFailed:                "mint_failed",
	ErrTransferFailed:            "transfer_failed",
	ErrPaymentFailed:             "payment_failed",
	ErrSettlementFailed:          "settlement_failed",
	ErrSaleNotFound:              "sale_not_found",
	ErrAlreadySettled:            "already_settled",
	ErrMarketplaceNotInitialized: "marketplace_not_initialized",
}

// String returns the snake_case kind name.
func (e ErrorCode) String() string {
	if name, ok := errorNames[e]; ok {
		return name
	}
	return errorNames[ErrUnknown]
}

func (e ErrorCode) Error() string {
	return e.String()
}

// KindOf returns the first ErrorCode in err's chain, or ErrUnknown.
func KindOf(err error) ErrorCode {
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	return ErrUnknown
}
