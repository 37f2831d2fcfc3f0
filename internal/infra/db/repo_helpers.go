package db

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var errDBUnavailable = errors.New("db unavailable")

func stringPtrIfNotEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func addressPtr(addr common.Address) *string {
	if addr == (common.Address{}) {
		return nil
	}
	return stringPtrIfNotEmpty(addr.Hex())
}

func addressValue(value *string) common.Address {
	if value == nil {
		return common.Address{}
	}
	return common.HexToAddress(*value)
}
