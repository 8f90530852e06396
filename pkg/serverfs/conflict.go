package serverfs

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nimbusfs/nimbusfs/pkg/model"
)

// resolveConflictedName implements the conflicted-copy naming policy:
// base_name if free, else progressively more specific "Conflicted
// copy" suffixes until one is free.
func resolveConflictedName(tx entityTx, parent, baseName string, ts model.Timespec) (string, error) {
	if _, err := tx.QueryByName(parent, baseName); err != nil {
		return baseName, nil
	}

	ext := filepath.Ext(baseName)
	stem := strings.TrimSuffix(baseName, ext)
	t := ts.Time()

	day := fmt.Sprintf("%s (Conflicted copy %s)%s", stem, t.Format("2006-01-02"), ext)
	if _, err := tx.QueryByName(parent, day); err != nil {
		return day, nil
	}

	full := fmt.Sprintf("%s (Conflicted copy %s)%s", stem, t.Format("2006-01-02 15-04-05"), ext)
	if _, err := tx.QueryByName(parent, full); err != nil {
		return full, nil
	}

	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (Conflicted copy %s) (%d)%s", stem, t.Format("2006-01-02 15-04-05"), n, ext)
		if _, err := tx.QueryByName(parent, candidate); err != nil {
			return candidate, nil
		}
	}
}
