// Package dbgrules defines the canonical rule codes (DBG-series) reported by debugtry.
// Each rule represents a distinct reason the tool refuses to instrument source as-is.
//
// Rule numbering scheme:
//
//	000–009  Directive option parsing
//	010–019  Structural rewrite constraints
//	020–029  Directive placement
package dbgrules

import "fmt"

// Rule represents a debugtry rule code (DBG-series).
type Rule int

const (
	ruleInvalid Rule = iota

	DBG000UnknownOption
	DBG001DuplicateOption
	DBG002OptionValueMustBeBool
	DBG003MalformedOption
	DBG010AmbiguousTailCall
	DBG011ErrorMustBeLastResult
	DBG012MissingPosition
	DBG013BlankResultBlocksExpansion
	DBG020DirectiveNeedsErrorResult
)

// String returns the canonical code and short name of the rule.
// Example: "DBG000: UnknownOption"
func (r Rule) String() string {
	switch r {
	case DBG000UnknownOption:
		return "DBG000: UnknownOption"
	case DBG001DuplicateOption:
		return "DBG001: DuplicateOption"
	case DBG002OptionValueMustBeBool:
		return "DBG002: OptionValueMustBeBool"
	case DBG003MalformedOption:
		return "DBG003: MalformedOption"
	case DBG010AmbiguousTailCall:
		return "DBG010: AmbiguousTailCall"
	case DBG011ErrorMustBeLastResult:
		return "DBG011: ErrorMustBeLastResult"
	case DBG012MissingPosition:
		return "DBG012: MissingPosition"
	case DBG013BlankResultBlocksExpansion:
		return "DBG013: BlankResultBlocksExpansion"
	case DBG020DirectiveNeedsErrorResult:
		return "DBG020: DirectiveNeedsErrorResult"
	default:
		return fmt.Sprintf("rule-unknown(%d)", r)
	}
}

// Description returns the human-readable explanation of the rule.
func (r Rule) Description() string {
	switch r {
	case DBG000UnknownOption:
		return "Directive option is not recognized."
	case DBG001DuplicateOption:
		return "Directive option is set more than once."
	case DBG002OptionValueMustBeBool:
		return "Directive option value must be a boolean literal."
	case DBG003MalformedOption:
		return "Directive options must be written as key=value pairs."
	case DBG010AmbiguousTailCall:
		return "Multi-value tail call cannot be instrumented; assign its results to variables first."
	case DBG011ErrorMustBeLastResult:
		return "Instrumented functions must place the error result as the last return value."
	case DBG012MissingPosition:
		return "Propagation site has no usable source position."
	case DBG013BlankResultBlocksExpansion:
		return "Bare return propagates a named error but a blank-named result prevents expansion; name every result."
	case DBG020DirectiveNeedsErrorResult:
		return "Instrument directive is placed on a function that returns no error."
	default:
		return fmt.Sprintf("unknown-rule(%d)", r)
	}
}

// Canonical constructors — for readability and stable call sites.

func UnknownOption() Rule              { return DBG000UnknownOption }
func DuplicateOption() Rule            { return DBG001DuplicateOption }
func OptionValueMustBeBool() Rule      { return DBG002OptionValueMustBeBool }
func MalformedOption() Rule            { return DBG003MalformedOption }
func AmbiguousTailCall() Rule          { return DBG010AmbiguousTailCall }
func ErrorMustBeLastResult() Rule      { return DBG011ErrorMustBeLastResult }
func MissingPosition() Rule            { return DBG012MissingPosition }
func BlankResultBlocksExpansion() Rule { return DBG013BlankResultBlocksExpansion }
func DirectiveNeedsErrorResult() Rule  { return DBG020DirectiveNeedsErrorResult }
