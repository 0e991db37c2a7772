package domain

import "errors"

var (
	// ErrAlreadyInitialized is returned when the marketplace registry is
	// initialized a second time.
	ErrAlreadyInitialized = errors.New("marketplace already initialized")

	// ErrNotInitialized is returned by any instruction that needs the
	// registry before it exists.
	ErrNotInitialized = errors.New("marketplace not initialized")

	// ErrInvalidTokenConfig is returned when the allowed token list and the
	// decimals list differ in length or repeat a mint.
	ErrInvalidTokenConfig = errors.New("invalid allowed token configuration")

	ErrInvalidAmount         = errors.New("invalid amount")
	ErrTokenNotAllowed       = errors.New("token not allowed")
	ErrUnauthorized          = errors.New("unauthorized access")
	ErrInvalidState          = errors.New("invalid campaign status")
	ErrInsufficientFunds     = errors.New("insufficient escrow funds")
	ErrInvalidKolAddress     = errors.New("invalid KOL address")
	ErrInvalidTimeParameters = errors.New("invalid time parameters")
	ErrCampaignExpired       = errors.New("campaign has expired")

	// ErrUnbalancedSettlement is returned when a settlement would leave
	// funds behind in the escrow account.
	ErrUnbalancedSettlement = errors.New("settlement does not drain escrow")

	// ErrBalanceOverflow is returned when a credit would exceed the range
	// of a token amount.
	ErrBalanceOverflow = errors.New("token balance overflow")

	// ErrNotFound is returned when a campaign or open campaign does not
	// exist at the requested address.
	ErrNotFound = errors.New("account not found")
)

// InstructionError ties a failure to the instruction that produced it.
// The instruction's state changes were discarded.
type InstructionError struct {
	Instruction string
	Err         error
}

func (e *InstructionError) Error() string {
	return e.Instruction + ": " + e.Err.Error()
}

func (e *InstructionError) Unwrap() error {
	return e.Err
}

// NewInstructionError wraps err with the instruction name. A nil err yields
// nil.
func NewInstructionError(instruction string, err error) error {
	if err == nil {
		return nil
	}
	return &InstructionError{Instruction: instruction, Err: err}
}

// IsClientError reports whether err is caused by the caller's input or by
// the current state of the ledger rather than by an infrastructure failure.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrAlreadyInitialized, ErrNotInitialized, ErrInvalidTokenConfig,
		ErrInvalidAmount, ErrTokenNotAllowed, ErrUnauthorized, ErrInvalidState,
		ErrInsufficientFunds, ErrInvalidKolAddress, ErrInvalidTimeParameters,
		ErrCampaignExpired, ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
