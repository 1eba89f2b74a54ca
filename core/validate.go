package core

import (
	"fmt"
	"strconv"

	"github.com/asaskevich/govalidator"
)

// Field length limits in characters.
const (
	MaxGameNameLen    = 10
	MaxGameDescLen    = 50
	MaxAssetNameLen   = 19
	MaxAssetSymbolLen = 4
	MaxAssetURILen    = 19
)

func checkLength(field, value string, min, max int) error {
	if !govalidator.StringLength(value, strconv.Itoa(min), strconv.Itoa(max)) {
		return fmt.Errorf("%s must be %d-%d characters, got %q: %w", field, min, max, value, ErrInvalidArguments)
	}
	return nil
}

// ValidateGame checks the name and description limits of a game.
func ValidateGame(name, description string) error {
	if err := checkLength("name", name, 1, MaxGameNameLen); err != nil {
		return err
	}
	return checkLength("description", description, 0, MaxGameDescLen)
}

// ValidateAsset checks name, symbol and uri limits of an asset.
func ValidateAsset(name, symbol, uri string) error {
	if err := checkLength("name", name, 1, MaxAssetNameLen); err != nil {
		return err
	}
	if err := checkLength("symbol", symbol, 0, MaxAssetSymbolLen); err != nil {
		return err
	}
	return checkLength("uri", uri, 0, MaxAssetURILen)
}
