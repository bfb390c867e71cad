package utils

import (
	"errors"
	"regexp"
)

// sheetKeyPattern matches "<DD>.<MM> <from>-<to>" with numeric station ids.
var sheetKeyPattern = regexp.MustCompile(`^\d{2}\.\d{2} \d{1,20}-\d{1,20}$`)

// ValidateSheetKey validates a sheet key taken from a request.
func ValidateSheetKey(key string) error {
	if key == "" {
		return errors.New("sheet key cannot be empty")
	}

	if len(key) > 64 {
		return errors.New("sheet key too long (max 64 characters)")
	}

	if !sheetKeyPattern.MatchString(key) {
		return errors.New("sheet key must look like \"03.01 2208001-2218000\"")
	}

	return nil
}
