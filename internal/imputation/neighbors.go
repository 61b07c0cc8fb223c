package imputation

import "sort"

// OrderByDistance returns a permutation of all gauge indices sorted by
// ascending distance from the given gauge, read from that gauge's column of
// the distance matrix. Missing distances sort strictly after every defined
// distance. The sort is stable, so ties between equal distances and the
// relative order of missing entries both preserve input index order. The
// gauge's own index carries a missing diagonal distance and therefore lands
// at the tail.
func OrderByDistance(site int, d *DistanceMatrix) []int {
	n := d.Order()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		da := d.At(order[a], site)
		db := d.At(order[b], site)
		switch {
		case IsMissing(da):
			return false
		case IsMissing(db):
			return true
		default:
			return da < db
		}
	})
	return order
}

// orderAllSites precomputes the neighbor ordering for every gauge. The
// orderings depend only on the distance matrix and are reused across all
// time slices of a run.
func orderAllSites(d *DistanceMatrix) [][]int {
	orders := make([][]int, d.Order())
	for site := range orders {
		orders[site] = OrderByDistance(site, d)
	}
	return orders
}
