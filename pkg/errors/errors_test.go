package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefinitionIsComparable(t *testing.T) {
	// Definition 是值类型，errors.Is 直接按值比较
	err := fmt.Errorf("wrap: %w", RuleNotFound)
	assert.True(t, errors.Is(err, RuleNotFound))
	assert.False(t, errors.Is(err, ContactNotFound))
}

func TestDefinitionMessage(t *testing.T) {
	assert.Equal(t, "Schedule not found", RuleNotFound.Error())
	assert.Equal(t, "RULE_NOT_FOUND", RuleNotFound.Code)
}

func TestSkipMessageErrorAs(t *testing.T) {
	var target *SkipMessageError

	err := fmt.Errorf("consume: %w", &SkipMessageError{Reason: "already processed"})
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "already processed", target.Reason)

	assert.False(t, errors.As(errors.New("other"), &target))
}

func TestLookup(t *testing.T) {
	def := Get("STORE_UNAVAILABLE")
	assert.Equal(t, StoreUnavailable, def)

	unknown := Get("NO_SUCH_CODE")
	assert.Equal(t, "NO_SUCH_CODE", unknown.Code)
	assert.Equal(t, "Unexpected error", unknown.Message)
}
