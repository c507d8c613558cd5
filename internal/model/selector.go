package model

import (
	"fmt"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// SelectByImportance keeps features whose importance is at least the mean importance.
// 입력 순서를 유지함. 중요도가 전부 0 이면 모든 피처가 남음
func SelectByImportance(segment int, names []string, importances []float64) (contracts.SelectedFeatureSet, error) {
	if len(names) != len(importances) {
		return contracts.SelectedFeatureSet{}, fmt.Errorf("%d names for %d importances", len(names), len(importances))
	}
	if len(names) == 0 {
		return contracts.SelectedFeatureSet{}, contracts.ErrEmptyFeatureSet
	}

	mean := 0.0
	for _, v := range importances {
		mean += v
	}
	mean /= float64(len(importances))

	keep := make([]string, 0, len(names))
	for i, v := range importances {
		if v >= mean {
			keep = append(keep, names[i])
		}
	}
	set := contracts.NewSelectedFeatureSet(segment, keep)
	if set.Empty() {
		return set, contracts.ErrEmptyFeatureSet
	}
	return set, nil
}
