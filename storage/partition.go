package storage

import (
	"fmt"
	"regexp"
)

var partitionRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidatePartition rejects names that are not safe as a collection or table name.
func ValidatePartition(name string) error {
	if !partitionRe.MatchString(name) {
		return fmt.Errorf("storage: invalid partition name %q", name)
	}
	return nil
}
