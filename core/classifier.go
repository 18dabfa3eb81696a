package core

import (
	"errors"
	"github.com/idena-network/idena-wallet-connect/provider"
	"github.com/idena-network/idena-wallet-connect/types"
	"strings"
)

var DefaultRejectionPhrases = []string{
	"user rejected",
	"user denied",
	"rejected by user",
	"user cancelled",
	"user canceled",
}

// Classifier tells a user's refusal apart from other provider failures.
type Classifier struct {
	phrases []string
}

func NewClassifier(phrases []string) *Classifier {
	if len(phrases) == 0 {
		phrases = DefaultRejectionPhrases
	}
	lower := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		if phrase = strings.TrimSpace(phrase); phrase != "" {
			lower = append(lower, strings.ToLower(phrase))
		}
	}
	return &Classifier{phrases: lower}
}

func (c *Classifier) Classify(err error) *types.Failure {
	var failure *types.Failure
	if errors.As(err, &failure) {
		return failure
	}
	var providerErr *provider.Error
	if errors.As(err, &providerErr) && providerErr.Code == provider.CodeUserRejected {
		return types.WrapFailure(types.UserRejected, err)
	}
	message := strings.ToLower(err.Error())
	for _, phrase := range c.phrases {
		if strings.Contains(message, phrase) {
			return types.WrapFailure(types.UserRejected, err)
		}
	}
	return types.WrapFailure(types.ProviderError, err)
}
