package distribution

import "sort"

// DefaultPageSize es el tamaño de página si no se configura otro.
const DefaultPageSize = 100

// Page es un rango [Offset, Offset+Size) de la población ordenada por ID.
// Target es la parte del cupo que le corresponde a la página.
type Page struct {
	Index  int
	Offset int
	Size   int
	Target int
}

// Plan divide total usuarios en ceil(total/pageSize) páginas contiguas y
// reparte quota entre ellas proporcionalmente al tamaño (método del resto
// mayor, empates a favor del índice menor).
//
// Garantías: sum(Target) == min(quota, total) y Target <= Size.
//
// El conteo y las lecturas de página son lecturas separadas: si la población
// cambia entre ambas, las páginas pueden solaparse o dejar huecos. Se acepta.
func Plan(total, pageSize, quota int) []Page {
	if total <= 0 {
		return nil
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	quota = max(0, min(quota, total))

	n := (total + pageSize - 1) / pageSize
	pages := make([]Page, n)
	rem := make([]int64, n)

	assigned := 0
	for i := range pages {
		offset := i * pageSize
		size := min(pageSize, total-offset)
		share := int64(quota) * int64(size)
		pages[i] = Page{
			Index:  i,
			Offset: offset,
			Size:   size,
			Target: int(share / int64(total)),
		}
		rem[i] = share % int64(total)
		assigned += pages[i].Target
	}

	if left := quota - assigned; left > 0 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return rem[order[a]] > rem[order[b]] })
		for _, i := range order[:left] {
			pages[i].Target++
		}
	}
	return pages
}
