package tracker

import (
	"sort"
	"time"

	"github.com/dmitrijs2005/santatracker/internal/models"
)

// FindIndex returns the index n of the last element with CardTime <= target,
// -1 when the list is empty or target precedes the first element, and
// len(list)-1 when target is at or past the last element. list must be
// ordered by CardTime.
func FindIndex[T models.Card](list []T, target time.Time) int {
	if len(list) == 0 || target.Before(list[0].CardTime()) {
		return -1
	}
	i := sort.Search(len(list), func(i int) bool {
		return list[i].CardTime().After(target)
	})
	return i - 1
}
