package cache

import (
	"sort"
	"strconv"
	"strings"
)

func TestKey(testID uint) string {
	return "test:" + strconv.FormatUint(uint64(testID), 10)
}

func QuestionsKey(testID uint) string {
	return "questions:" + strconv.FormatUint(uint64(testID), 10)
}

func AnswersKey(questionID uint) string {
	return "answers:" + strconv.FormatUint(uint64(questionID), 10)
}

// BatchKey builds an order-independent key over a set of ids, e.g. "tests:1,4,9".
func BatchKey(prefix string, ids []uint) string {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, 0, len(sorted))
	var prev uint
	for i, id := range sorted {
		if i > 0 && id == prev {
			continue
		}
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
		prev = id
	}
	return prefix + ":" + strings.Join(parts, ",")
}
