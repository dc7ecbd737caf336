package distribution

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlan_EvenPages(t *testing.T) {
	pages := Plan(1000, 100, 100)
	require.Len(t, pages, 10)
	for i, p := range pages {
		require.Equal(t, i, p.Index)
		require.Equal(t, i*100, p.Offset)
		require.Equal(t, 100, p.Size)
		require.Equal(t, 10, p.Target)
	}
}

func TestPlan_ShortLastPage(t *testing.T) {
	pages := Plan(250, 100, 30)
	require.Len(t, pages, 3)
	require.Equal(t, 50, pages[2].Size)
	require.Equal(t, []int{12, 12, 6}, targets(pages))
}

func TestPlan_RemainderTiesGoToLowerIndex(t *testing.T) {
	pages := Plan(10, 3, 5)
	require.Len(t, pages, 4)
	require.Equal(t, []int{2, 2, 1, 0}, targets(pages))
}

func TestPlan_Invariants(t *testing.T) {
	for _, total := range []int{1, 7, 99, 100, 101, 1234} {
		for _, pageSize := range []int{1, 3, 100, 5000} {
			for _, quota := range []int{0, 1, total / 3, total, total + 10} {
				pages := Plan(total, pageSize, quota)
				require.Len(t, pages, (total+pageSize-1)/pageSize)

				next, sum := 0, 0
				for _, p := range pages {
					require.Equal(t, next, p.Offset, "no gaps or overlap")
					require.LessOrEqual(t, p.Target, p.Size)
					require.GreaterOrEqual(t, p.Target, 0)
					next += p.Size
					sum += p.Target
				}
				require.Equal(t, total, next)
				require.Equal(t, min(quota, total), sum, "total=%d page=%d quota=%d", total, pageSize, quota)
			}
		}
	}
}

func TestPlan_Degenerate(t *testing.T) {
	require.Nil(t, Plan(0, 100, 10))
	require.Len(t, Plan(250, 0, 10), 3, "page size 0 uses the default")
	require.Equal(t, []int{0, 0}, targets(Plan(150, 100, -5)))
}

func targets(pages []Page) []int {
	out := make([]int, len(pages))
	for i, p := range pages {
		out[i] = p.Target
	}
	return out
}
