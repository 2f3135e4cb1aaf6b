package engine

import (
	"errors"
	"fmt"
)

// SessionError represents an error from an authoring operation.
type SessionError struct {
	Code    SessionErrorCode
	RuleID  string
	Message string
}

// SessionErrorCode categorizes session errors.
type SessionErrorCode string

const (
	// ErrCodeRuleNotFound indicates the referenced rule does not exist.
	ErrCodeRuleNotFound SessionErrorCode = "RULE_NOT_FOUND"

	// ErrCodeWrongRuleKind indicates an AI-rule operation was applied to a
	// filter rule or vice versa.
	ErrCodeWrongRuleKind SessionErrorCode = "WRONG_RULE_KIND"
)

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, e.Message, e.RuleID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRuleNotFound reports whether err is a rule-not-found session error.
// Uses errors.As to handle wrapped errors.
func IsRuleNotFound(err error) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code == ErrCodeRuleNotFound
	}
	return false
}

func notFound(ruleID string) *SessionError {
	return &SessionError{Code: ErrCodeRuleNotFound, RuleID: ruleID, Message: "no rule with this id"}
}

func wrongKind(ruleID, want string) *SessionError {
	return &SessionError{
		Code:    ErrCodeWrongRuleKind,
		RuleID:  ruleID,
		Message: "operation requires " + want,
	}
}
